package service

import (
	"context"

	"well_bbs/internal/model"
	"well_bbs/internal/pkg/apperr"
	"well_bbs/internal/repository"
)

// CounterLedger 发帖写入与计数维护，全部在同一事务中完成
type CounterLedger struct {
	tx      *repository.TxManager
	posts   repository.PostRepository
	threads repository.ThreadRepository
	forums  repository.ForumRepository
	users   repository.UserRepository
}

// NewCounterLedger 创建计数账本
func NewCounterLedger(tx *repository.TxManager, posts repository.PostRepository, threads repository.ThreadRepository,
	forums repository.ForumRepository, users repository.UserRepository) *CounterLedger {
	return &CounterLedger{
		tx:      tx,
		posts:   posts,
		threads: threads,
		forums:  forums,
		users:   users,
	}
}

// PublishPost 写入回帖并更新主题、版块、用户计数
func (l *CounterLedger) PublishPost(ctx context.Context, post *model.Post, fid int64) error {
	err := l.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := l.posts.Create(ctx, post); err != nil {
			return err
		}
		return l.record(ctx, post, fid, true)
	})
	if err != nil {
		return apperr.Fatal("failed to publish post", err)
	}
	return nil
}

// PublishThread 写入主题与首帖并更新计数
func (l *CounterLedger) PublishThread(ctx context.Context, thread *model.Thread, first *model.Post) error {
	err := l.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := l.threads.Create(ctx, thread); err != nil {
			return err
		}
		if err := l.posts.Create(ctx, first); err != nil {
			return err
		}
		return l.record(ctx, first, thread.Fid, false)
	})
	if err != nil {
		return apperr.Fatal("failed to publish thread", err)
	}
	return nil
}

func (l *CounterLedger) record(ctx context.Context, post *model.Post, fid int64, isReply bool) error {
	if err := l.threads.RecordPost(ctx, post.Tid, post.Uid, post.CreatedAt, isReply); err != nil {
		return err
	}
	threads := 1
	if isReply {
		threads = 0
	}
	if err := l.forums.AddCounters(ctx, fid, threads, 1); err != nil {
		return err
	}
	if post.Uid > 0 {
		return l.users.AddPostCount(ctx, post.Uid, 1)
	}
	return nil
}

// RetractPost 软删除回帖并回退计数
func (l *CounterLedger) RetractPost(ctx context.Context, post *model.Post, fid, by, at int64) error {
	err := l.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := l.posts.SoftDelete(ctx, post.Pid, by, at); err != nil {
			return err
		}
		if err := l.threads.RetractPost(ctx, post.Tid, true); err != nil {
			return err
		}
		if err := l.forums.AddCounters(ctx, fid, 0, -1); err != nil {
			return err
		}
		if post.Uid > 0 {
			return l.users.AddPostCount(ctx, post.Uid, -1)
		}
		return nil
	})
	if err != nil {
		return apperr.Fatal("failed to delete post", err)
	}
	return nil
}
