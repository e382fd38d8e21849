package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"well_bbs/internal/model"
)

const postColumns = "pid, tid, uid, content, reply_to_pid, approved, flagged, flag_reason, deleted, deleted_at, deleted_by, edited_at, edited_by, edit_reason, created_at"

// PostRepository 帖子数据访问接口
type PostRepository interface {
	GetByID(ctx context.Context, pid int64) (*model.Post, error)
	FirstPost(ctx context.Context, tid int64) (*model.Post, error)
	ListByThread(ctx context.Context, tid int64, approvedOnly bool, offset, limit int) ([]*model.Post, error)
	CountByThread(ctx context.Context, tid int64, approvedOnly bool) (int, error)
	ListPending(ctx context.Context, offset, limit int) ([]*model.Post, error)
	Create(ctx context.Context, post *model.Post) error
	UpdateContent(ctx context.Context, post *model.Post) error
	Approve(ctx context.Context, pid int64) error
	SoftDelete(ctx context.Context, pid, by, at int64) error
}

type postRepository struct {
	db *sqlx.DB
}

// NewPostRepository 创建帖子仓库
func NewPostRepository(db *sqlx.DB) PostRepository {
	return &postRepository{db: db}
}

// GetByID 根据ID获取帖子（含已删除）
func (r *postRepository) GetByID(ctx context.Context, pid int64) (*model.Post, error) {
	var post model.Post
	err := QuerierFromCtx(ctx, r.db).GetContext(ctx, &post, "SELECT "+postColumns+" FROM post WHERE pid = ?", pid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get post %d: %w", pid, err)
	}
	return &post, nil
}

// FirstPost 主题首帖
func (r *postRepository) FirstPost(ctx context.Context, tid int64) (*model.Post, error) {
	var post model.Post
	err := QuerierFromCtx(ctx, r.db).GetContext(ctx, &post,
		"SELECT "+postColumns+" FROM post WHERE tid = ? AND deleted = 0 ORDER BY created_at ASC, pid ASC LIMIT 1", tid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("first post of %d: %w", tid, err)
	}
	return &post, nil
}

func approvedClause(approvedOnly bool) string {
	if approvedOnly {
		return " AND approved = 1"
	}
	return ""
}

// ListByThread 主题下帖子，按时间正序
func (r *postRepository) ListByThread(ctx context.Context, tid int64, approvedOnly bool, offset, limit int) ([]*model.Post, error) {
	var posts []*model.Post
	err := QuerierFromCtx(ctx, r.db).SelectContext(ctx, &posts,
		"SELECT "+postColumns+" FROM post WHERE tid = ? AND deleted = 0"+approvedClause(approvedOnly)+
			" ORDER BY created_at ASC, pid ASC LIMIT ? OFFSET ?",
		tid, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list posts of %d: %w", tid, err)
	}
	return posts, nil
}

// CountByThread 主题下帖子数
func (r *postRepository) CountByThread(ctx context.Context, tid int64, approvedOnly bool) (int, error) {
	var n int
	err := QuerierFromCtx(ctx, r.db).GetContext(ctx, &n,
		"SELECT COUNT(*) FROM post WHERE tid = ? AND deleted = 0"+approvedClause(approvedOnly), tid)
	if err != nil {
		return 0, fmt.Errorf("count posts of %d: %w", tid, err)
	}
	return n, nil
}

// ListPending 待审核帖子
func (r *postRepository) ListPending(ctx context.Context, offset, limit int) ([]*model.Post, error) {
	var posts []*model.Post
	err := QuerierFromCtx(ctx, r.db).SelectContext(ctx, &posts,
		"SELECT "+postColumns+" FROM post WHERE approved = 0 AND deleted = 0 ORDER BY created_at ASC, pid ASC LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list pending posts: %w", err)
	}
	return posts, nil
}

// Create 创建帖子
func (r *postRepository) Create(ctx context.Context, p *model.Post) error {
	_, err := QuerierFromCtx(ctx, r.db).ExecContext(ctx,
		"INSERT INTO post ("+postColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		p.Pid, p.Tid, p.Uid, p.Content, p.ReplyToPid, p.Approved, p.Flagged, p.FlagReason, p.Deleted,
		p.DeletedAt, p.DeletedBy, p.EditedAt, p.EditedBy, p.EditReason, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

// UpdateContent 编辑内容与审核标记
func (r *postRepository) UpdateContent(ctx context.Context, p *model.Post) error {
	err := execAffecting(ctx, QuerierFromCtx(ctx, r.db),
		`UPDATE post SET content = ?, approved = ?, flagged = ?, flag_reason = ?, edited_at = ?, edited_by = ?, edit_reason = ?
		WHERE pid = ? AND deleted = 0`,
		p.Content, p.Approved, p.Flagged, p.FlagReason, p.EditedAt, p.EditedBy, p.EditReason, p.Pid)
	if err != nil {
		return fmt.Errorf("update post %d: %w", p.Pid, err)
	}
	return nil
}

// Approve 审核通过
func (r *postRepository) Approve(ctx context.Context, pid int64) error {
	err := execAffecting(ctx, QuerierFromCtx(ctx, r.db),
		"UPDATE post SET approved = 1 WHERE pid = ? AND deleted = 0 AND approved = 0", pid)
	if err != nil {
		return fmt.Errorf("approve post %d: %w", pid, err)
	}
	return nil
}

// SoftDelete 软删除帖子
func (r *postRepository) SoftDelete(ctx context.Context, pid, by, at int64) error {
	err := execAffecting(ctx, QuerierFromCtx(ctx, r.db),
		"UPDATE post SET deleted = 1, deleted_at = ?, deleted_by = ? WHERE pid = ? AND deleted = 0", at, by, pid)
	if err != nil {
		return fmt.Errorf("soft delete post %d: %w", pid, err)
	}
	return nil
}
