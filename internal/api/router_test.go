package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"well_bbs/internal/core/config"
	"well_bbs/internal/core/database/dbtest"
	"well_bbs/internal/model"
	"well_bbs/internal/service"
)

type inlineEvents struct {
	handlers []func(ctx context.Context, event any) error
}

func (e *inlineEvents) Publish(ctx context.Context, _ string, event any) {
	for _, h := range e.handlers {
		_ = h(ctx, event)
	}
}

type noopWarmer struct{ calls int }

func (w *noopWarmer) Warmup(context.Context) error {
	w.calls++
	return nil
}

type server struct {
	t      *testing.T
	router *gin.Engine
	svc    *service.Container
	warmer *noopWarmer
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := &config.Config{
		Cache:      config.CacheConfig{L1Cap: 8, L2TTL: 60},
		JWT:        config.JWTConfig{Secret: "test-secret", Expiry: 3600, RefreshExpiry: 7200},
		Moderation: config.ModerationConfig{SettingsTTL: 60, UploadURLPrefix: "/uploads/"},
		Security: config.SecurityConfig{
			AllowIPs:  []string{"127.0.0.1"},
			RateLimit: 1000,
		},
	}
	events := &inlineEvents{}
	svc := service.NewContainer(service.ContainerDeps{
		DB:         dbtest.New(t),
		Redis:      rdb,
		Config:     cfg,
		Clock:      clockwork.NewFakeClock(),
		Registerer: prometheus.NewRegistry(),
		Events:     events,
	})
	events.handlers = append(events.handlers, svc.Fanout.Handle, svc.Images.Handle)

	warmer := &noopWarmer{}
	router := NewRouter(RouterDeps{
		Security: cfg.Security,
		Services: svc,
		Warmer:   warmer,
		Clock:    clockwork.NewFakeClock(),
	})
	return &server{t: t, router: router, svc: svc, warmer: warmer}
}

func (s *server) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "127.0.0.1:40000"
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type envelope[T any] struct {
	Code int `json:"code"`
	Data T   `json:"data"`
}

type errorBody struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// signup registers a user, optionally promotes it and returns an access token.
func (s *server) signup(name string, role model.Role) (int64, string) {
	s.t.Helper()
	w := s.do("POST", "/api/v1/register", "", model.RegisterRequest{Username: name, Password: "secret123"})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	uid := decode[model.RegisterResponse](s.t, w).User.Uid

	if role != model.RoleUser {
		require.NoError(s.t, s.svc.Users.SetRole(context.Background(), uid, role))
	}

	w = s.do("POST", "/api/v1/login", "", model.LoginRequest{Username: name, Password: "secret123"})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	return uid, decode[envelope[model.LoginResponse]](s.t, w).Data.Token
}

func (s *server) createForum(admin string, req model.CreateForumRequest) int64 {
	s.t.Helper()
	w := s.do("POST", "/api/mgt/forum", admin, req)
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[model.ForumDTO](s.t, w).Fid
}

func TestThreadAndReplyFlow(t *testing.T) {
	s := newServer(t)
	_, admin := s.signup("admin", model.RoleAdmin)
	ownerUID, owner := s.signup("owner", model.RoleUser)
	_, replier := s.signup("replier", model.RoleUser)
	fid := s.createForum(admin, model.CreateForumRequest{Name: "General"})

	w := s.do("POST", "/api/v1/threads", owner, model.CreateThreadRequest{
		Title: "Hello World", Content: "first post body", SubjectID: fid,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	thread := decode[struct {
		Thread model.ThreadDTO `json:"thread"`
	}](t, w).Thread
	require.Equal(t, "hello-world", thread.Slug)
	require.Equal(t, ownerUID, thread.Uid)

	w = s.do("POST", "/api/v1/posts", replier, model.CreatePostRequest{
		ThreadID: thread.Tid, Content: "nice thread @owner",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	post := decode[struct {
		Post model.PostDTO `json:"post"`
	}](t, w).Post
	require.True(t, post.Approved)

	w = s.do("GET", "/api/v1/thread/"+itoa(thread.Tid)+"/posts", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[envelope[service.PostPage]](t, w).Data
	require.Equal(t, 2, page.Total)

	w = s.do("GET", "/api/v1/notifications", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	notes := decode[envelope[service.NotificationPage]](t, w).Data
	require.Equal(t, 2, notes.Unread)

	w = s.do("POST", "/api/v1/notification/"+itoa(notes.List[0].ID)+"/read", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do("POST", "/api/v1/notification/"+itoa(notes.List[0].ID)+"/read", replier, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGuestRejectedEvenWithGuestPosting(t *testing.T) {
	s := newServer(t)
	_, admin := s.signup("admin", model.RoleAdmin)
	fid := s.createForum(admin, model.CreateForumRequest{Name: "Open", GuestPosting: true})

	w := s.do("POST", "/api/v1/threads", "", model.CreateThreadRequest{Title: "hi", Content: "from a guest", SubjectID: fid})
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestPostErrorsUseErrorBody(t *testing.T) {
	s := newServer(t)
	_, admin := s.signup("admin", model.RoleAdmin)
	_, user := s.signup("someone", model.RoleUser)
	fid := s.createForum(admin, model.CreateForumRequest{Name: "Members"})

	w := s.do("POST", "/api/v1/threads", user, model.CreateThreadRequest{Title: "t", Content: "body", SubjectID: fid})
	require.Equal(t, http.StatusCreated, w.Code)
	tid := decode[struct {
		Thread model.ThreadDTO `json:"thread"`
	}](t, w).Thread.Tid

	w = s.do("POST", "/api/v1/posts", "", model.CreatePostRequest{ThreadID: tid, Content: "guest reply"})
	require.Equal(t, http.StatusForbidden, w.Code)
	require.NotEmpty(t, decode[errorBody](t, w).Error)

	w = s.do("POST", "/api/v1/posts", user, map[string]any{"content": "missing thread"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do("POST", "/api/v1/posts", user, model.CreatePostRequest{ThreadID: 999, Content: "nowhere"})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = s.do("POST", "/api/v1/posts", "garbage", model.CreatePostRequest{ThreadID: tid, Content: "x"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestManagementGuards(t *testing.T) {
	s := newServer(t)
	_, user := s.signup("plain", model.RoleUser)
	_, mod := s.signup("mod", model.RoleModerator)

	require.Equal(t, http.StatusUnauthorized, s.do("GET", "/api/mgt/moderation/settings", "", nil).Code)
	require.Equal(t, http.StatusForbidden, s.do("GET", "/api/mgt/moderation/settings", user, nil).Code)
	require.Equal(t, http.StatusForbidden, s.do("GET", "/api/mgt/moderation/settings", mod, nil).Code)
	require.Equal(t, http.StatusOK, s.do("GET", "/api/mgt/moderation/pending", mod, nil).Code)
}

func TestModerationSettingsAndApproval(t *testing.T) {
	s := newServer(t)
	_, admin := s.signup("admin", model.RoleAdmin)
	_, user := s.signup("newbie", model.RoleUser)
	fid := s.createForum(admin, model.CreateForumRequest{Name: "Queue"})

	w := s.do("PUT", "/api/mgt/moderation/settings", admin, map[string]any{
		"filter_action":   model.FilterBlock,
		"banned_words":    []string{"spam"},
		"max_post_length": 1000,
	})
	require.Equal(t, http.StatusBadRequest, w.Code, "profanity_filter must be sent explicitly")

	enabled := true
	w = s.do("PUT", "/api/mgt/moderation/settings", admin, model.UpdateModerationRequest{
		FilterAction:    model.FilterBlock,
		ProfanityFilter: &enabled,
		BannedWords:     []string{"spam"},
		RequireApproval: true,
		MaxPostLength:   1000,
		MaxLinksPerPost: 5,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do("GET", "/api/mgt/moderation/settings", admin, nil)
	settings := decode[envelope[model.ModerationSettings]](t, w).Data
	require.Equal(t, model.FilterBlock, settings.FilterAction)
	require.Equal(t, "spam", settings.BannedWords)
	require.True(t, settings.ProfanityFilter)

	w = s.do("POST", "/api/v1/threads", user, model.CreateThreadRequest{Title: "buy", Content: "cheap spam here", SubjectID: fid})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do("POST", "/api/v1/threads", user, model.CreateThreadRequest{Title: "hi", Content: "hello all", SubjectID: fid})
	require.Equal(t, http.StatusCreated, w.Code)
	thread := decode[struct {
		Thread model.ThreadDTO `json:"thread"`
	}](t, w).Thread
	require.NotNil(t, thread.FirstPost)
	require.False(t, thread.FirstPost.Approved)

	w = s.do("GET", "/api/mgt/moderation/pending", admin, nil)
	pending := decode[envelope[struct {
		List []model.PostDTO `json:"list"`
	}]](t, w).Data.List
	require.Len(t, pending, 1)

	w = s.do("POST", "/api/mgt/moderation/post/"+itoa(pending[0].Pid)+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, decode[envelope[model.PostDTO]](t, w).Data.Approved)
}

func TestForumManagementAndCache(t *testing.T) {
	s := newServer(t)
	_, admin := s.signup("admin", model.RoleAdmin)
	uid, _ := s.signup("helper", model.RoleUser)

	parent := s.createForum(admin, model.CreateForumRequest{Name: "Parent"})
	child := s.createForum(admin, model.CreateForumRequest{Name: "Child", Parent: parent})

	w := s.do("GET", "/api/v1/forums/tree", "", nil)
	tree := decode[envelope[[]model.ForumTree]](t, w).Data
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Children, 1)

	require.Equal(t, http.StatusBadRequest, s.do("DELETE", "/api/mgt/forum/"+itoa(parent), admin, nil).Code)
	require.Equal(t, http.StatusOK, s.do("POST", "/api/mgt/forum/"+itoa(child)+"/moderator", admin, model.MemberRequest{Uid: uid}).Code)
	require.Equal(t, http.StatusNotFound, s.do("POST", "/api/mgt/forum/"+itoa(child)+"/moderator", admin, model.MemberRequest{Uid: 12345}).Code)

	require.Equal(t, http.StatusOK, s.do("POST", "/api/mgt/cache/flush", admin, nil).Code)
	require.Equal(t, http.StatusOK, s.do("POST", "/api/mgt/cache/prewarm", admin, nil).Code)
	require.Equal(t, 1, s.warmer.calls)
}

func TestDisabledUserRejected(t *testing.T) {
	s := newServer(t)
	_, admin := s.signup("admin", model.RoleAdmin)
	uid, user := s.signup("troll", model.RoleUser)

	one := 1
	w := s.do("PUT", "/api/mgt/user/"+itoa(uid)+"/status", admin, map[string]*int{"status": &one})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.Equal(t, http.StatusUnauthorized, s.do("GET", "/api/v1/notifications", user, nil).Code)
	w = s.do("POST", "/api/v1/login", "", model.LoginRequest{Username: "troll", Password: "secret123"})
	require.Equal(t, http.StatusForbidden, w.Code)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
