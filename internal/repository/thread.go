package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"well_bbs/internal/model"
)

const threadColumns = "tid, fid, uid, subject, slug, thread_type, is_locked, is_sticky, posts, replies, views, last_post_at, last_post_uid, deleted, created_at, updated_at"

// ThreadRepository Thread 数据访问接口
type ThreadRepository interface {
	GetByID(ctx context.Context, tid int64) (*model.Thread, error)
	List(ctx context.Context, fid int64, offset, limit int) ([]*model.Thread, error)
	Count(ctx context.Context, fid int64) (int, error)
	Create(ctx context.Context, thread *model.Thread) error
	Update(ctx context.Context, thread *model.Thread) error
	SlugExists(ctx context.Context, slug string, excludeTid int64) (bool, error)
	RecordPost(ctx context.Context, tid, uid, at int64, isReply bool) error
	RetractPost(ctx context.Context, tid int64, isReply bool) error
	SoftDelete(ctx context.Context, tid int64) error
	IncViews(ctx context.Context, tid int64) error
}

// threadRepository Thread 数据访问实现
type threadRepository struct {
	db *sqlx.DB
}

// NewThreadRepository 创建 ThreadRepository 实例
func NewThreadRepository(db *sqlx.DB) ThreadRepository {
	return &threadRepository{db: db}
}

// GetByID 根据 ID 获取 Thread（含已删除，由调用方判断）
func (r *threadRepository) GetByID(ctx context.Context, tid int64) (*model.Thread, error) {
	var thread model.Thread
	err := QuerierFromCtx(ctx, r.db).GetContext(ctx, &thread, "SELECT "+threadColumns+" FROM thread WHERE tid = ?", tid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get thread %d: %w", tid, err)
	}
	return &thread, nil
}

func (r *threadRepository) listFilter(fid int64) sq.And {
	cond := sq.And{sq.Eq{"deleted": false}}
	if fid > 0 {
		cond = append(cond, sq.Eq{"fid": fid})
	}
	return cond
}

// List 主题列表，置顶优先，按最后回复时间倒序；fid<=0 表示全部版块
func (r *threadRepository) List(ctx context.Context, fid int64, offset, limit int) ([]*model.Thread, error) {
	query, args, err := sq.Select(threadColumns).From("thread").
		Where(r.listFilter(fid)).
		OrderBy("is_sticky DESC", "last_post_at DESC", "tid DESC").
		Limit(uint64(limit)).Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, err
	}

	var threads []*model.Thread
	if err := QuerierFromCtx(ctx, r.db).SelectContext(ctx, &threads, query, args...); err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	return threads, nil
}

// Count 主题总数
func (r *threadRepository) Count(ctx context.Context, fid int64) (int, error) {
	query, args, err := sq.Select("COUNT(*)").From("thread").Where(r.listFilter(fid)).ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := QuerierFromCtx(ctx, r.db).GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("count threads: %w", err)
	}
	return n, nil
}

// Create 创建 Thread
func (r *threadRepository) Create(ctx context.Context, t *model.Thread) error {
	_, err := QuerierFromCtx(ctx, r.db).ExecContext(ctx,
		"INSERT INTO thread ("+threadColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		t.Tid, t.Fid, t.Uid, t.Subject, t.Slug, t.ThreadType, t.IsLocked, t.IsSticky, t.Posts, t.Replies,
		t.Views, t.LastPostAt, t.LastPostUid, t.Deleted, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert thread: %w", err)
	}
	return nil
}

// Update 更新标题、slug、锁定与置顶
func (r *threadRepository) Update(ctx context.Context, t *model.Thread) error {
	_, err := QuerierFromCtx(ctx, r.db).ExecContext(ctx,
		"UPDATE thread SET subject = ?, slug = ?, is_locked = ?, is_sticky = ?, updated_at = ? WHERE tid = ?",
		t.Subject, t.Slug, t.IsLocked, t.IsSticky, t.UpdatedAt, t.Tid)
	if err != nil {
		return fmt.Errorf("update thread %d: %w", t.Tid, err)
	}
	return nil
}

// SlugExists slug 是否已被其他主题占用
func (r *threadRepository) SlugExists(ctx context.Context, slug string, excludeTid int64) (bool, error) {
	b := sq.Select("COUNT(*)").From("thread").Where(sq.Eq{"slug": slug})
	if excludeTid > 0 {
		b = b.Where(sq.NotEq{"tid": excludeTid})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return false, err
	}
	var n int
	if err := QuerierFromCtx(ctx, r.db).GetContext(ctx, &n, query, args...); err != nil {
		return false, fmt.Errorf("probe slug: %w", err)
	}
	return n > 0, nil
}

// RecordPost 新帖计数：posts+1，回复额外 replies+1，并更新最后回复
func (r *threadRepository) RecordPost(ctx context.Context, tid, uid, at int64, isReply bool) error {
	replies := 0
	if isReply {
		replies = 1
	}
	err := execAffecting(ctx, QuerierFromCtx(ctx, r.db),
		`UPDATE thread SET posts = posts + 1, replies = replies + ?, last_post_at = ?, last_post_uid = ?, updated_at = ?
		WHERE tid = ? AND deleted = 0`,
		replies, at, uid, at, tid)
	if err != nil {
		return fmt.Errorf("thread %d record post: %w", tid, err)
	}
	return nil
}

// RetractPost 删帖计数回退，最后回复改指向剩余最新帖；调用前帖子须已软删除
func (r *threadRepository) RetractPost(ctx context.Context, tid int64, isReply bool) error {
	replies := 0
	if isReply {
		replies = 1
	}
	q := QuerierFromCtx(ctx, r.db)
	err := execAffecting(ctx, q,
		"UPDATE thread SET posts = posts - 1, replies = replies - ? WHERE tid = ? AND deleted = 0",
		replies, tid)
	if err != nil {
		return fmt.Errorf("thread %d retract post: %w", tid, err)
	}

	query, args, err := sq.Select("uid", "created_at").From("post").
		Where(sq.Eq{"tid": tid, "deleted": 0}).
		OrderBy("created_at DESC", "pid DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return err
	}
	var last struct {
		Uid       int64 `db:"uid"`
		CreatedAt int64 `db:"created_at"`
	}
	if err := q.GetContext(ctx, &last, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("thread %d latest post: %w", tid, err)
	}
	if _, err := q.ExecContext(ctx,
		"UPDATE thread SET last_post_at = ?, last_post_uid = ? WHERE tid = ?",
		last.CreatedAt, last.Uid, tid); err != nil {
		return fmt.Errorf("thread %d reset last post: %w", tid, err)
	}
	return nil
}

// SoftDelete 软删除主题
func (r *threadRepository) SoftDelete(ctx context.Context, tid int64) error {
	err := execAffecting(ctx, QuerierFromCtx(ctx, r.db),
		"UPDATE thread SET deleted = 1 WHERE tid = ? AND deleted = 0", tid)
	if err != nil {
		return fmt.Errorf("soft delete thread %d: %w", tid, err)
	}
	return nil
}

// IncViews 增加浏览数
func (r *threadRepository) IncViews(ctx context.Context, tid int64) error {
	_, err := QuerierFromCtx(ctx, r.db).ExecContext(ctx, "UPDATE thread SET views = views + 1 WHERE tid = ?", tid)
	return err
}
