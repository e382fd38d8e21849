package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"well_bbs/internal/model"
	"well_bbs/internal/pkg/apperr"
)

func TestCreateThreadUpdatesCounters(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := e.createUser(t, "ivan", model.RoleUser, 0)
	f := e.createForum(t, nil)

	th := e.createThread(t, u, f, "First thread")
	require.Equal(t, "first-thread", th.Slug)
	require.NotNil(t, th.FirstPost)
	require.True(t, th.FirstPost.Approved)

	stored, err := e.threads.GetByID(ctx, th.Tid)
	require.NoError(t, err)
	require.Equal(t, 1, stored.Posts)
	require.Equal(t, 0, stored.Replies)
	require.Equal(t, u.Uid, stored.LastPostUid)

	forum, err := e.forums.GetByID(ctx, f.Fid)
	require.NoError(t, err)
	require.Equal(t, 1, forum.Threads)
	require.Equal(t, 1, forum.Posts)

	user, err := e.users.GetByID(ctx, u.Uid)
	require.NoError(t, err)
	require.Equal(t, 1, user.PostCount)

	require.Equal(t, 1.0, testutil.ToFloat64(e.metrics.Publication.WithLabelValues("thread", "accepted")))
}

// Scenario A: an untrusted user's post is kept pending but still counted.
func TestCreatePostPendingForUntrustedUser(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	owner := e.createUser(t, "owner", model.RoleUser, 100)
	f := e.createForum(t, nil)
	th := e.createThread(t, owner, f, "Queue")

	e.saveSettings(t, func(s *model.ModerationSettings) {
		s.ModerationQueue = true
		s.TrustedUserPostCount = 50
	})
	newbie := e.createUser(t, "newbie", model.RoleUser, 0)

	post, err := e.publish.CreatePost(ctx, newbie, CreatePostInput{ThreadID: th.Tid, Content: "hello there"})
	require.NoError(t, err)
	require.False(t, post.Approved)

	stored, err := e.posts.GetByID(ctx, post.Pid)
	require.NoError(t, err)
	require.False(t, stored.Approved)

	thread, err := e.threads.GetByID(ctx, th.Tid)
	require.NoError(t, err)
	require.Equal(t, 2, thread.Posts)
	require.Equal(t, 1, thread.Replies)
	require.Equal(t, newbie.Uid, thread.LastPostUid)

	forum, err := e.forums.GetByID(ctx, f.Fid)
	require.NoError(t, err)
	require.Equal(t, 2, forum.Posts)

	user, err := e.users.GetByID(ctx, newbie.Uid)
	require.NoError(t, err)
	require.Equal(t, 1, user.PostCount)

	pending, err := e.publish.ListPending(ctx, 1, 20)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, post.Pid, pending[0].Pid)

	page, err := e.threadSvc.ListPosts(ctx, th.Tid, &model.PostListQuery{Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)

	require.Equal(t, 1.0, testutil.ToFloat64(e.metrics.Publication.WithLabelValues("post", "pending")))
}

// Scenario B: blocked words reject the post with a reason naming the word.
func TestCreatePostBlockedWord(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := e.createUser(t, "judy", model.RoleUser, 0)
	f := e.createForum(t, nil)
	th := e.createThread(t, u, f, "Deals")

	e.saveSettings(t, func(s *model.ModerationSettings) {
		s.BannedWords = "viagra"
		s.FilterAction = model.FilterBlock
	})

	_, err := e.publish.CreatePost(ctx, u, CreatePostInput{ThreadID: th.Tid, Content: "buy viagra now"})
	requireAppError(t, err, apperr.KindValidation, apperr.CodeProhibited)
	require.Equal(t, 400, apperr.KindOf(err).HTTPStatus())
	require.Contains(t, err.Error(), "viagra")

	thread, err := e.threads.GetByID(ctx, th.Tid)
	require.NoError(t, err)
	require.Equal(t, 1, thread.Posts)
	require.Equal(t, 1.0, testutil.ToFloat64(e.metrics.Publication.WithLabelValues("post", "rejected")))
}

// Scenario C: a locked thread refuses replies from everyone, admins included.
func TestCreatePostLockedThread(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	owner := e.createUser(t, "kate", model.RoleUser, 0)
	admin := e.createUser(t, "admin", model.RoleAdmin, 0)
	f := e.createForum(t, nil)
	th := e.createThread(t, owner, f, "Closed")
	e.lockThread(t, th.Tid)

	for _, actor := range []*model.Actor{owner, admin, nil} {
		_, err := e.publish.CreatePost(ctx, actor, CreatePostInput{ThreadID: th.Tid, Content: "reply"})
		requireAppError(t, err, apperr.KindForbidden, apperr.CodeThreadLocked)
		require.Equal(t, 403, apperr.KindOf(err).HTTPStatus())
	}
}

// Scenario D: each mentioned user gets exactly one notification.
func TestCreatePostMentionsNotify(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	author := e.createUser(t, "leo", model.RoleUser, 0)
	alice := e.createUser(t, "alice", model.RoleUser, 0)
	bob := e.createUser(t, "bob", model.RoleUser, 0)
	f := e.createForum(t, nil)
	th := e.createThread(t, author, f, "Mentions")

	_, err := e.publish.CreatePost(ctx, author, CreatePostInput{
		ThreadID: th.Tid,
		Content:  "ping @alice @bob @alice @leo @nobody",
	})
	require.NoError(t, err)

	for _, uid := range []int64{alice.Uid, bob.Uid} {
		list, err := e.notifications.ListByUser(ctx, uid, false, 0, 10)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, model.NotifyMention, list[0].Type)
		require.Equal(t, author.Uid, list[0].TriggeredBy)
	}
	own, err := e.notifications.ListByUser(ctx, author.Uid, false, 0, 10)
	require.NoError(t, err)
	require.Empty(t, own)
	require.Equal(t, []string{TopicPostPublished, TopicPostPublished}, e.events.topics)
}

func TestCreatePostMentionRespectsPreference(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	author := e.createUser(t, "mia", model.RoleUser, 0)
	alice := e.createUser(t, "alice", model.RoleUser, 0)
	f := e.createForum(t, nil)
	th := e.createThread(t, author, f, "Quiet")

	require.NoError(t, e.notifications.SetPreference(ctx, &model.NotificationPreference{
		Uid: alice.Uid, Type: model.NotifyMention, Enabled: false,
	}))

	_, err := e.publish.CreatePost(ctx, author, CreatePostInput{ThreadID: th.Tid, Content: "hey @alice"})
	require.NoError(t, err)

	list, err := e.notifications.ListByUser(ctx, alice.Uid, false, 0, 10)
	require.NoError(t, err)
	require.Empty(t, list)
	require.Equal(t, 1.0, testutil.ToFloat64(e.metrics.Notification.WithLabelValues("MENTION", "skipped")))
}

func TestCreatePostNotifiesOwnerAndSubscribers(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	owner := e.createUser(t, "nina", model.RoleUser, 0)
	replier := e.createUser(t, "oscar", model.RoleUser, 0)
	watcher := e.createUser(t, "pat", model.RoleUser, 0)
	f := e.createForum(t, nil)
	th := e.createThread(t, owner, f, "Watched")

	require.NoError(t, e.notifications.Subscribe(ctx, th.Tid, owner.Uid, 1))
	require.NoError(t, e.notifications.Subscribe(ctx, th.Tid, watcher.Uid, 1))
	require.NoError(t, e.notifications.Subscribe(ctx, th.Tid, replier.Uid, 1))

	_, err := e.publish.CreatePost(ctx, replier, CreatePostInput{ThreadID: th.Tid, Content: "a reply"})
	require.NoError(t, err)

	ownerList, err := e.notifications.ListByUser(ctx, owner.Uid, false, 0, 10)
	require.NoError(t, err)
	require.Len(t, ownerList, 1)
	require.Equal(t, model.NotifyReply, ownerList[0].Type)

	watcherList, err := e.notifications.ListByUser(ctx, watcher.Uid, false, 0, 10)
	require.NoError(t, err)
	require.Len(t, watcherList, 1)
	require.Equal(t, model.NotifyThreadReply, watcherList[0].Type)

	replierList, err := e.notifications.ListByUser(ctx, replier.Uid, false, 0, 10)
	require.NoError(t, err)
	require.Empty(t, replierList)
}

func TestCreatePostReplyToValidation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := e.createUser(t, "quinn", model.RoleUser, 0)
	f := e.createForum(t, nil)
	a := e.createThread(t, u, f, "A")
	b := e.createThread(t, u, f, "B")

	other := b.FirstPost.Pid
	_, err := e.publish.CreatePost(ctx, u, CreatePostInput{ThreadID: a.Tid, Content: "x", ReplyToID: &other})
	requireAppError(t, err, apperr.KindValidation, apperr.CodeInvalidReplyTo)

	target := a.FirstPost.Pid
	post, err := e.publish.CreatePost(ctx, u, CreatePostInput{ThreadID: a.Tid, Content: "x", ReplyToID: &target})
	require.NoError(t, err)
	require.Equal(t, target, *post.ReplyToPid)
}

func TestCreatePostCensorsContent(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := e.createUser(t, "rita", model.RoleUser, 0)
	f := e.createForum(t, nil)
	th := e.createThread(t, u, f, "Clean")

	e.saveSettings(t, func(s *model.ModerationSettings) { s.BannedWords = "casino" })
	post, err := e.publish.CreatePost(ctx, u, CreatePostInput{ThreadID: th.Tid, Content: "<p>Casino night</p>"})
	require.NoError(t, err)
	require.True(t, post.Approved)
	require.Equal(t, "<p>****** night</p>", post.Content)
}

func TestPublishedEventCarriesSlugAndRawContent(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	var got []*PostPublished
	e.events.handlers = append(e.events.handlers, func(_ context.Context, event any) error {
		got = append(got, event.(*PostPublished))
		return nil
	})
	e.saveSettings(t, func(s *model.ModerationSettings) { s.BannedWords = "casino" })
	u := e.createUser(t, "xena", model.RoleUser, 0)
	f := e.createForum(t, nil)

	th, err := e.publish.CreateThread(ctx, u, CreateThreadInput{ForumID: f.Fid, Title: "Slugged Thread", Content: "casino talk"})
	require.NoError(t, err)
	_, err = e.publish.CreatePost(ctx, u, CreatePostInput{ThreadID: th.Tid, Content: "more casino"})
	require.NoError(t, err)

	require.Len(t, got, 2)
	require.True(t, got[0].NewThread)
	require.Equal(t, "slugged-thread", got[0].Slug)
	require.Equal(t, "casino talk", got[0].Content)
	require.Equal(t, "****** talk", th.FirstPost.Content)
	require.False(t, got[1].NewThread)
	require.Equal(t, "slugged-thread", got[1].Slug)
	require.Equal(t, "more casino", got[1].Content)
}

func TestCreatePostMentionsMatchRawContent(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	author := e.createUser(t, "wes", model.RoleUser, 0)
	target := e.createUser(t, "casino", model.RoleUser, 0)
	f := e.createForum(t, nil)
	th := e.createThread(t, author, f, "Names")

	e.saveSettings(t, func(s *model.ModerationSettings) {
		s.BannedWords = "casino"
		s.FilterAction = model.FilterCensor
	})
	post, err := e.publish.CreatePost(ctx, author, CreatePostInput{ThreadID: th.Tid, Content: "hello @casino please look"})
	require.NoError(t, err)
	require.Equal(t, "hello @****** please look", post.Content)

	list, err := e.notifications.ListByUser(ctx, target.Uid, false, 0, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, model.NotifyMention, list[0].Type)
	require.Equal(t, post.Pid, list[0].Pid)
}

func TestCreatePostImagesLinked(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := e.createUser(t, "sam", model.RoleUser, 0)
	f := e.createForum(t, nil)
	th := e.createThread(t, u, f, "Pics")

	post, err := e.publish.CreatePost(ctx, u, CreatePostInput{
		ThreadID: th.Tid,
		Content:  `<p>look</p><img src="/uploads/a.png"><img src="https://cdn.example.com/b.png"><img src="/uploads/a.png">`,
	})
	require.NoError(t, err)

	imgs, err := e.images.ListByPost(ctx, post.Pid)
	require.NoError(t, err)
	require.Len(t, imgs, 1)
	require.Equal(t, "/uploads/a.png", imgs[0].URL)
}

func TestEditPost(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	author := e.createUser(t, "tom", model.RoleUser, 0)
	stranger := e.createUser(t, "uma", model.RoleUser, 0)
	mod := e.createUser(t, "vic", model.RoleUser, 0)
	f := e.createForum(t, nil)
	th := e.createThread(t, author, f, "Editable")
	require.NoError(t, e.groups.AddModerator(ctx, f.Fid, mod.Uid))

	post, err := e.publish.CreatePost(ctx, author, CreatePostInput{ThreadID: th.Tid, Content: "first draft"})
	require.NoError(t, err)

	_, err = e.publish.EditPost(ctx, stranger, post.Pid, &model.EditPostRequest{Content: "hijack"})
	requireAppError(t, err, apperr.KindForbidden, apperr.CodeForbidden)

	edited, err := e.publish.EditPost(ctx, author, post.Pid, &model.EditPostRequest{Content: "second draft", Reason: "typo"})
	require.NoError(t, err)
	require.Equal(t, "second draft", edited.Content)
	require.Equal(t, author.Uid, edited.EditedBy)
	require.Equal(t, "typo", edited.EditReason)
	require.True(t, edited.Approved)

	e.saveSettings(t, func(s *model.ModerationSettings) {
		s.BannedWords = "casino"
		s.FilterAction = model.FilterFlag
	})
	edited, err = e.publish.EditPost(ctx, mod, post.Pid, &model.EditPostRequest{Content: "casino link"})
	require.NoError(t, err)
	require.False(t, edited.Approved)
	require.True(t, edited.Flagged)

	e.lockThread(t, th.Tid)
	_, err = e.publish.EditPost(ctx, author, post.Pid, &model.EditPostRequest{Content: "after lock"})
	requireAppError(t, err, apperr.KindForbidden, apperr.CodeThreadLocked)
}

func TestDeletePostRetractsCounters(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	author := e.createUser(t, "walt", model.RoleUser, 0)
	f := e.createForum(t, nil)
	th := e.createThread(t, author, f, "Deletable")

	post, err := e.publish.CreatePost(ctx, author, CreatePostInput{ThreadID: th.Tid, Content: "to be removed"})
	require.NoError(t, err)

	err = e.publish.DeletePost(ctx, author, th.FirstPost.Pid)
	requireAppError(t, err, apperr.KindValidation, apperr.CodeBadRequest)

	require.NoError(t, e.publish.DeletePost(ctx, author, post.Pid))

	stored, err := e.posts.GetByID(ctx, post.Pid)
	require.NoError(t, err)
	require.True(t, stored.Deleted)
	require.Equal(t, author.Uid, stored.DeletedBy)

	thread, err := e.threads.GetByID(ctx, th.Tid)
	require.NoError(t, err)
	require.Equal(t, 1, thread.Posts)
	require.Equal(t, 0, thread.Replies)

	user, err := e.users.GetByID(ctx, author.Uid)
	require.NoError(t, err)
	require.Equal(t, 1, user.PostCount)

	err = e.publish.DeletePost(ctx, author, post.Pid)
	requireAppError(t, err, apperr.KindNotFound, apperr.CodePostNotFound)
}

func TestApprovePost(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	owner := e.createUser(t, "xena", model.RoleUser, 0)
	mod := e.createUser(t, "yuri", model.RoleModerator, 0)
	f := e.createForum(t, nil)
	th := e.createThread(t, owner, f, "Pending")
	e.saveSettings(t, func(s *model.ModerationSettings) { s.RequireApproval = true })

	post, err := e.publish.CreatePost(ctx, owner, CreatePostInput{ThreadID: th.Tid, Content: "wait for me"})
	require.NoError(t, err)
	require.False(t, post.Approved)

	_, err = e.publish.ApprovePost(ctx, owner, post.Pid)
	requireAppError(t, err, apperr.KindForbidden, apperr.CodeForbidden)

	approved, err := e.publish.ApprovePost(ctx, mod, post.Pid)
	require.NoError(t, err)
	require.True(t, approved.Approved)

	pending, err := e.publish.ListPending(ctx, 1, 20)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestLedgerRollsBackWhenCounterMisses(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := e.createUser(t, "zoe", model.RoleUser, 0)
	f := e.createForum(t, nil)
	th := e.createThread(t, u, f, "Ledger")

	post := &model.Post{Pid: 999, Tid: th.Tid, Uid: u.Uid, Content: "orphan", Approved: true}
	err := e.ledger.PublishPost(ctx, post, 123456)
	requireAppError(t, err, apperr.KindFatal, apperr.CodeInternalError)

	stored, err := e.posts.GetByID(ctx, 999)
	require.NoError(t, err)
	require.Nil(t, stored)

	thread, err := e.threads.GetByID(ctx, th.Tid)
	require.NoError(t, err)
	require.Equal(t, 1, thread.Posts)
}
