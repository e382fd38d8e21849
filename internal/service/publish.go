package service

import (
	"context"
	"strings"
	"time"

	"well_bbs/internal/core/logger"
	"well_bbs/internal/core/snowflake"
	"well_bbs/internal/model"
	"well_bbs/internal/pkg/apperr"
	"well_bbs/internal/repository"
)

// EventPublisher 提交后事件发布
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event any)
}

// CacheInvalidator 按 ID 清理读缓存
type CacheInvalidator interface {
	Invalidate(ctx context.Context, id int64)
}

// CreatePostInput 回帖参数
type CreatePostInput struct {
	ThreadID  int64
	Content   string
	ReplyToID *int64
}

// CreateThreadInput 发主题参数
type CreateThreadInput struct {
	ForumID int64
	Title   string
	Content string
}

// PublishDeps 发布服务依赖
type PublishDeps struct {
	Gate        *PublicationGate
	Slugs       *SlugAssigner
	Ledger      *CounterLedger
	Permissions *PermissionResolver
	Posts       repository.PostRepository
	Threads     repository.ThreadRepository
	Events      EventPublisher   // 可为 nil
	ThreadCache CacheInvalidator // 可为 nil
	ForumCache  CacheInvalidator // 可为 nil
	Metrics     *Metrics         // 可为 nil
}

// PublishService 发帖/发主题编排
type PublishService struct {
	PublishDeps
}

// NewPublishService 创建发布服务
func NewPublishService(deps PublishDeps) *PublishService {
	return &PublishService{PublishDeps: deps}
}

// CreatePost 回帖
func (s *PublishService) CreatePost(ctx context.Context, actor *model.Actor, in CreatePostInput) (*model.PostDTO, error) {
	if actor == nil {
		actor = model.GuestActor()
	}
	d, err := s.Gate.Evaluate(ctx, &Submission{
		Kind:     SubmitPost,
		Actor:    actor,
		ThreadID: in.ThreadID,
		Content:  in.Content,
	})
	if err != nil {
		s.recordFailure("post", err)
		return nil, err
	}

	if in.ReplyToID != nil {
		if err := s.checkReplyTo(ctx, *in.ReplyToID, in.ThreadID); err != nil {
			s.recordFailure("post", err)
			return nil, err
		}
	}

	post := &model.Post{
		Pid:        snowflake.Generate(),
		Tid:        d.Thread.Tid,
		Uid:        actor.Uid,
		Content:    d.Content,
		ReplyToPid: in.ReplyToID,
		Approved:   d.Approved,
		Flagged:    d.Flagged,
		FlagReason: d.FlagReason,
		CreatedAt:  time.Now().Unix(),
	}

	// 账本事务开始后不再响应请求取消
	wctx := context.WithoutCancel(ctx)
	if err := s.Ledger.PublishPost(wctx, post, d.Forum.Fid); err != nil {
		s.recordFailure("post", err)
		logger.Error("publish post failed",
			logger.Int64("tid", post.Tid), logger.Int64("uid", actor.Uid), logger.ErrorField(err))
		return nil, err
	}

	s.afterCommit(wctx, d.Forum.Fid, d.Thread.Tid, &PostPublished{
		Tid:       post.Tid,
		Pid:       post.Pid,
		Fid:       d.Forum.Fid,
		AuthorUID: actor.Uid,
		Subject:   d.Thread.Subject,
		Slug:      d.Thread.SlugValue(),
		Content:   in.Content,
		Approved:  post.Approved,
	})
	s.record("post", d.State)

	logger.Info("post published",
		logger.Int64("pid", post.Pid),
		logger.Int64("tid", post.Tid),
		logger.Int64("uid", actor.Uid),
		logger.Bool("approved", post.Approved))
	return post.ToDTO(), nil
}

func (s *PublishService) checkReplyTo(ctx context.Context, pid, tid int64) error {
	target, err := s.Posts.GetByID(ctx, pid)
	if err != nil {
		return apperr.Fatal("failed to load reply target", err)
	}
	if target == nil || target.Deleted || target.Tid != tid {
		return apperr.Validation(apperr.CodeInvalidReplyTo, "replyToId must reference a post in the same thread")
	}
	return nil
}

// CreateThread 发主题，首帖与主题一起写入
func (s *PublishService) CreateThread(ctx context.Context, actor *model.Actor, in CreateThreadInput) (*model.ThreadDTO, error) {
	if actor == nil {
		actor = model.GuestActor()
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		err := apperr.Validation(apperr.CodeBadRequest, "title is required")
		s.recordFailure("thread", err)
		return nil, err
	}

	d, err := s.Gate.Evaluate(ctx, &Submission{
		Kind:    SubmitThread,
		Actor:   actor,
		ForumID: in.ForumID,
		Content: in.Content,
	})
	if err != nil {
		s.recordFailure("thread", err)
		return nil, err
	}

	wctx := context.WithoutCancel(ctx)
	slug, err := s.Slugs.Assign(wctx, title, 0)
	if err != nil {
		s.recordFailure("thread", err)
		return nil, err
	}

	now := time.Now().Unix()
	thread := &model.Thread{
		Tid:         snowflake.Generate(),
		Fid:         d.Forum.Fid,
		Uid:         actor.Uid,
		Subject:     title,
		Slug:        &slug,
		ThreadType:  model.ThreadTypeNormal,
		LastPostAt:  now,
		LastPostUid: actor.Uid,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	first := &model.Post{
		Pid:        snowflake.Generate(),
		Tid:        thread.Tid,
		Uid:        actor.Uid,
		Content:    d.Content,
		Approved:   d.Approved,
		Flagged:    d.Flagged,
		FlagReason: d.FlagReason,
		CreatedAt:  now,
	}

	if err := s.Ledger.PublishThread(wctx, thread, first); err != nil {
		s.recordFailure("thread", err)
		logger.Error("publish thread failed",
			logger.Int64("fid", thread.Fid), logger.Int64("uid", actor.Uid), logger.ErrorField(err))
		return nil, err
	}
	thread.Posts = 1

	s.afterCommit(wctx, thread.Fid, 0, &PostPublished{
		Tid:       thread.Tid,
		Pid:       first.Pid,
		Fid:       thread.Fid,
		AuthorUID: actor.Uid,
		Subject:   thread.Subject,
		Slug:      thread.SlugValue(),
		Content:   in.Content,
		NewThread: true,
		Approved:  first.Approved,
	})
	s.record("thread", d.State)

	logger.Info("thread published",
		logger.Int64("tid", thread.Tid),
		logger.Int64("fid", thread.Fid),
		logger.String("slug", slug),
		logger.Bool("approved", first.Approved))

	dto := thread.ToDTO()
	dto.FirstPost = first.ToDTO()
	return dto, nil
}

func (s *PublishService) afterCommit(ctx context.Context, fid, tid int64, ev *PostPublished) {
	if tid > 0 {
		s.invalidateThread(ctx, tid)
	}
	if s.ForumCache != nil {
		s.ForumCache.Invalidate(ctx, fid)
	}
	if s.Events != nil {
		s.Events.Publish(ctx, TopicPostPublished, ev)
	}
}

func (s *PublishService) invalidateThread(ctx context.Context, tid int64) {
	if s.ThreadCache != nil {
		s.ThreadCache.Invalidate(ctx, tid)
	}
}

// loadPost 读取未删除的帖子及其主题
func (s *PublishService) loadPost(ctx context.Context, pid int64) (*model.Post, *model.Thread, error) {
	post, err := s.Posts.GetByID(ctx, pid)
	if err != nil {
		return nil, nil, apperr.Fatal("failed to load post", err)
	}
	if post == nil || post.Deleted {
		return nil, nil, apperr.NotFound(apperr.CodePostNotFound, "post not found")
	}
	thread, err := s.Threads.GetByID(ctx, post.Tid)
	if err != nil {
		return nil, nil, apperr.Fatal("failed to load thread", err)
	}
	if thread == nil || thread.Deleted {
		return nil, nil, apperr.NotFound(apperr.CodeThreadNotFound, "thread not found")
	}
	return post, thread, nil
}

func (s *PublishService) canModerate(ctx context.Context, actor *model.Actor, fid int64) bool {
	return s.Permissions.Resolve(ctx, actor.Uid, fid, actor.Role).CanModerate
}

// EditPost 作者或版主编辑帖子，内容按当前审核配置重新检查
func (s *PublishService) EditPost(ctx context.Context, actor *model.Actor, pid int64, req *model.EditPostRequest) (*model.PostDTO, error) {
	if actor == nil || actor.IsGuest() {
		return nil, apperr.Unauthenticated("login required")
	}
	post, thread, err := s.loadPost(ctx, pid)
	if err != nil {
		return nil, err
	}
	if thread.IsLocked {
		return nil, apperr.Forbidden(apperr.CodeThreadLocked, "thread is locked")
	}
	if post.Uid != actor.Uid && !s.canModerate(ctx, actor, thread.Fid) {
		return nil, apperr.Forbidden(apperr.CodeForbidden, "you can only edit your own posts")
	}

	sc, err := s.Gate.Screen(ctx, req.Content)
	if err != nil {
		s.recordFailure("edit", err)
		return nil, err
	}

	post.Content = sc.Content
	post.Approved = post.Approved && !sc.Flagged
	post.Flagged = sc.Flagged
	post.FlagReason = sc.FlagReason
	post.EditedAt = time.Now().Unix()
	post.EditedBy = actor.Uid
	post.EditReason = req.Reason

	if err := s.Posts.UpdateContent(ctx, post); err != nil {
		err = apperr.Fatal("failed to update post", err)
		s.recordFailure("edit", err)
		return nil, err
	}
	s.invalidateThread(ctx, thread.Tid)

	outcome := StateAccepted
	if !post.Approved {
		outcome = StateAcceptedPending
	}
	s.record("edit", outcome)
	return post.ToDTO(), nil
}

// DeletePost 软删除回帖；首帖需删除整个主题
func (s *PublishService) DeletePost(ctx context.Context, actor *model.Actor, pid int64) error {
	if actor == nil || actor.IsGuest() {
		return apperr.Unauthenticated("login required")
	}
	post, thread, err := s.loadPost(ctx, pid)
	if err != nil {
		return err
	}

	moderator := s.canModerate(ctx, actor, thread.Fid)
	if !moderator {
		if post.Uid != actor.Uid {
			return apperr.Forbidden(apperr.CodeForbidden, "you can only delete your own posts")
		}
		if thread.IsLocked {
			return apperr.Forbidden(apperr.CodeThreadLocked, "thread is locked")
		}
	}

	first, err := s.Posts.FirstPost(ctx, thread.Tid)
	if err != nil {
		return apperr.Fatal("failed to load first post", err)
	}
	if first != nil && first.Pid == post.Pid {
		return apperr.Validation(apperr.CodeBadRequest, "cannot delete the first post, delete the thread instead")
	}

	wctx := context.WithoutCancel(ctx)
	if err := s.Ledger.RetractPost(wctx, post, thread.Fid, actor.Uid, time.Now().Unix()); err != nil {
		logger.Error("delete post failed", logger.Int64("pid", pid), logger.ErrorField(err))
		return err
	}
	s.invalidateThread(wctx, thread.Tid)
	if s.ForumCache != nil {
		s.ForumCache.Invalidate(wctx, thread.Fid)
	}

	logger.Info("post deleted",
		logger.Int64("pid", pid),
		logger.Int64("by", actor.Uid),
		logger.Bool("moderator", moderator))
	return nil
}

// ApprovePost 版主审核通过
func (s *PublishService) ApprovePost(ctx context.Context, actor *model.Actor, pid int64) (*model.PostDTO, error) {
	if actor == nil || actor.IsGuest() {
		return nil, apperr.Unauthenticated("login required")
	}
	post, thread, err := s.loadPost(ctx, pid)
	if err != nil {
		return nil, err
	}
	if !s.canModerate(ctx, actor, thread.Fid) {
		return nil, apperr.Forbidden(apperr.CodeForbidden, "moderator permission required")
	}
	if post.Approved {
		return post.ToDTO(), nil
	}

	if err := s.Posts.Approve(ctx, pid); err != nil {
		return nil, apperr.Fatal("failed to approve post", err)
	}
	post.Approved = true
	s.invalidateThread(ctx, thread.Tid)

	logger.Info("post approved", logger.Int64("pid", pid), logger.Int64("by", actor.Uid))
	return post.ToDTO(), nil
}

// ListPending 待审核帖子
func (s *PublishService) ListPending(ctx context.Context, page, pageSize int) ([]*model.PostDTO, error) {
	if page < 1 {
		page = 1
	}
	posts, err := s.Posts.ListPending(ctx, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, apperr.Fatal("failed to list pending posts", err)
	}
	list := make([]*model.PostDTO, 0, len(posts))
	for _, p := range posts {
		list = append(list, p.ToDTO())
	}
	return list, nil
}

func (s *PublishService) record(kind string, state GateState) {
	if s.Metrics == nil {
		return
	}
	outcome := "accepted"
	if state == StateAcceptedPending {
		outcome = "pending"
	}
	s.Metrics.Publication.WithLabelValues(kind, outcome).Inc()
}

func (s *PublishService) recordFailure(kind string, err error) {
	if s.Metrics == nil {
		return
	}
	outcome := "rejected"
	if apperr.KindOf(err) == apperr.KindFatal {
		outcome = "error"
	}
	s.Metrics.Publication.WithLabelValues(kind, outcome).Inc()
}
