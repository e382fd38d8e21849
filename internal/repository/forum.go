package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"well_bbs/internal/model"
)

const forumColumns = "fid, name, parent, path, depth, display_order, is_active, can_post, can_reply, guest_posting, is_locked, threads, posts, created_at, updated_at"

// ForumRepository Forum 数据访问接口
type ForumRepository interface {
	GetByID(ctx context.Context, fid int64) (*model.Forum, error)
	GetAll(ctx context.Context) ([]*model.Forum, error)
	GetByParent(ctx context.Context, parent int64) ([]*model.Forum, error)
	Create(ctx context.Context, forum *model.Forum) error
	Update(ctx context.Context, forum *model.Forum) error
	Delete(ctx context.Context, fid int64) error
	AddCounters(ctx context.Context, fid int64, threads, posts int) error
}

// forumRepository Forum 数据访问实现
type forumRepository struct {
	db *sqlx.DB
}

// NewForumRepository 创建 ForumRepository 实例
func NewForumRepository(db *sqlx.DB) ForumRepository {
	return &forumRepository{db: db}
}

// GetByID 根据 ID 获取 Forum
func (r *forumRepository) GetByID(ctx context.Context, fid int64) (*model.Forum, error) {
	var forum model.Forum
	err := QuerierFromCtx(ctx, r.db).GetContext(ctx, &forum, "SELECT "+forumColumns+" FROM forum WHERE fid = ?", fid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get forum %d: %w", fid, err)
	}
	return &forum, nil
}

// GetAll 获取所有 Forum
func (r *forumRepository) GetAll(ctx context.Context) ([]*model.Forum, error) {
	var forums []*model.Forum
	err := QuerierFromCtx(ctx, r.db).SelectContext(ctx, &forums,
		"SELECT "+forumColumns+" FROM forum ORDER BY display_order ASC, fid ASC")
	if err != nil {
		return nil, fmt.Errorf("list forums: %w", err)
	}
	return forums, nil
}

// GetByParent 根据父版块获取子版块
func (r *forumRepository) GetByParent(ctx context.Context, parent int64) ([]*model.Forum, error) {
	var forums []*model.Forum
	err := QuerierFromCtx(ctx, r.db).SelectContext(ctx, &forums,
		"SELECT "+forumColumns+" FROM forum WHERE parent = ? ORDER BY display_order ASC, fid ASC", parent)
	if err != nil {
		return nil, fmt.Errorf("list child forums: %w", err)
	}
	return forums, nil
}

// Create 创建 Forum，fid 由调用方生成
func (r *forumRepository) Create(ctx context.Context, f *model.Forum) error {
	_, err := QuerierFromCtx(ctx, r.db).ExecContext(ctx,
		"INSERT INTO forum ("+forumColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		f.Fid, f.Name, f.Parent, f.Path, f.Depth, f.DisplayOrder, f.IsActive, f.CanPost, f.CanReply,
		f.GuestPosting, f.IsLocked, f.Threads, f.Posts, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert forum: %w", err)
	}
	return nil
}

// Update 更新 Forum 属性（不含计数器）
func (r *forumRepository) Update(ctx context.Context, f *model.Forum) error {
	_, err := QuerierFromCtx(ctx, r.db).ExecContext(ctx,
		`UPDATE forum SET name = ?, display_order = ?, is_active = ?, can_post = ?, can_reply = ?,
		guest_posting = ?, is_locked = ?, updated_at = ? WHERE fid = ?`,
		f.Name, f.DisplayOrder, f.IsActive, f.CanPost, f.CanReply, f.GuestPosting, f.IsLocked, f.UpdatedAt, f.Fid)
	if err != nil {
		return fmt.Errorf("update forum %d: %w", f.Fid, err)
	}
	return nil
}

// Delete 删除 Forum
func (r *forumRepository) Delete(ctx context.Context, fid int64) error {
	_, err := QuerierFromCtx(ctx, r.db).ExecContext(ctx, "DELETE FROM forum WHERE fid = ?", fid)
	if err != nil {
		return fmt.Errorf("delete forum %d: %w", fid, err)
	}
	return nil
}

// AddCounters 原子增减主题数和帖子数
func (r *forumRepository) AddCounters(ctx context.Context, fid int64, threads, posts int) error {
	err := execAffecting(ctx, QuerierFromCtx(ctx, r.db),
		"UPDATE forum SET threads = threads + ?, posts = posts + ? WHERE fid = ?", threads, posts, fid)
	if err != nil {
		return fmt.Errorf("forum %d counters: %w", fid, err)
	}
	return nil
}
