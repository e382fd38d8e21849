package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"well_bbs/internal/core/config"
	"well_bbs/internal/core/database/dbtest"
	"well_bbs/internal/core/snowflake"
	"well_bbs/internal/model"
	"well_bbs/internal/pkg/pool"
	"well_bbs/internal/repository"
)

// syncEvents delivers events inline so tests can assert side effects right after publishing.
type syncEvents struct {
	handlers []func(ctx context.Context, event any) error
	topics   []string
}

func (e *syncEvents) Publish(ctx context.Context, topic string, event any) {
	e.topics = append(e.topics, topic)
	for _, h := range e.handlers {
		_ = h(ctx, event)
	}
}

type testEnv struct {
	db  *sqlx.DB
	rdb *redis.Client
	mr  *miniredis.Miniredis

	clock *clockwork.FakeClock
	reg   *prometheus.Registry

	forums        repository.ForumRepository
	threads       repository.ThreadRepository
	posts         repository.PostRepository
	users         repository.UserRepository
	groups        repository.GroupRepository
	moderation    repository.ModerationRepository
	notifications repository.NotificationRepository
	images        repository.PostImageRepository

	metrics   *Metrics
	store     *ModerationStore
	perms     *PermissionResolver
	gate      *PublicationGate
	slugs     *SlugAssigner
	ledger    *CounterLedger
	fanout    *NotificationFanout
	linker    *ImageLinker
	events    *syncEvents
	threadSvc *ThreadService
	forumSvc  *ForumService
	publish   *PublishService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := dbtest.New(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	e := &testEnv{
		db:            db,
		rdb:           rdb,
		mr:            mr,
		clock:         clockwork.NewFakeClock(),
		reg:           prometheus.NewRegistry(),
		forums:        repository.NewForumRepository(db),
		threads:       repository.NewThreadRepository(db),
		posts:         repository.NewPostRepository(db),
		users:         repository.NewUserRepository(db),
		groups:        repository.NewGroupRepository(db),
		moderation:    repository.NewModerationRepository(db),
		notifications: repository.NewNotificationRepository(db),
		images:        repository.NewPostImageRepository(db),
		events:        &syncEvents{},
	}
	cacheCfg := &config.CacheConfig{L1Cap: 8, L2TTL: 60}

	e.metrics = NewMetrics(e.reg)
	e.store = NewModerationStore(e.moderation,
		pool.NewTTLCache[string, *model.ModerationSettings](5*time.Minute, e.clock), rdb, nil)
	e.perms = NewPermissionResolver(e.groups)
	e.gate = NewPublicationGate(e.forums, e.threads, e.perms, e.store)
	e.slugs = NewSlugAssigner(e.threads)
	e.ledger = NewCounterLedger(repository.NewTxManager(db), e.posts, e.threads, e.forums, e.users)
	e.fanout = NewNotificationFanout(e.threads, e.users, e.notifications, e.metrics)
	e.linker = NewImageLinker(e.images, "/uploads/")
	e.events.handlers = append(e.events.handlers, e.fanout.Handle, e.linker.Handle)
	e.threadSvc = NewThreadService(e.threads, e.posts, e.slugs, rdb, cacheCfg)
	e.forumSvc = NewForumService(e.forums, e.groups, e.users, rdb, cacheCfg)
	e.publish = NewPublishService(PublishDeps{
		Gate:        e.gate,
		Slugs:       e.slugs,
		Ledger:      e.ledger,
		Permissions: e.perms,
		Posts:       e.posts,
		Threads:     e.threads,
		Events:      e.events,
		ThreadCache: e.threadSvc,
		ForumCache:  e.forumSvc,
		Metrics:     e.metrics,
	})
	return e
}

func (e *testEnv) saveSettings(t *testing.T, mutate func(s *model.ModerationSettings)) {
	t.Helper()
	s := DefaultModerationSettings(nil)
	mutate(s)
	_, err := e.store.Save(context.Background(), s)
	require.NoError(t, err)
}

func (e *testEnv) createUser(t *testing.T, name string, role model.Role, postCount int) *model.Actor {
	t.Helper()
	u := &model.User{
		Uid:       snowflake.Generate(),
		Username:  name,
		Role:      role,
		Status:    model.UserStatusActive,
		PostCount: postCount,
	}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u.Actor()
}

func (e *testEnv) createForum(t *testing.T, mutate func(f *model.Forum)) *model.Forum {
	t.Helper()
	f := &model.Forum{
		Fid:      snowflake.Generate(),
		Name:     "general",
		Path:     "0",
		IsActive: true,
		CanPost:  true,
		CanReply: true,
	}
	if mutate != nil {
		mutate(f)
	}
	require.NoError(t, e.forums.Create(context.Background(), f))
	return f
}

func (e *testEnv) createThread(t *testing.T, owner *model.Actor, f *model.Forum, title string) *model.ThreadDTO {
	t.Helper()
	th, err := e.publish.CreateThread(context.Background(), owner, CreateThreadInput{
		ForumID: f.Fid,
		Title:   title,
		Content: "opening post for " + title,
	})
	require.NoError(t, err)
	return th
}

func (e *testEnv) lockThread(t *testing.T, tid int64) {
	t.Helper()
	locked := true
	_, err := e.threadSvc.Update(context.Background(), tid, &UpdateThreadInput{IsLocked: &locked})
	require.NoError(t, err)
}
