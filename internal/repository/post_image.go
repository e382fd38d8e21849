package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"well_bbs/internal/model"
)

// PostImageRepository 帖子图片关联
type PostImageRepository interface {
	Create(ctx context.Context, img *model.PostImage) error
	ListByPost(ctx context.Context, pid int64) ([]*model.PostImage, error)
}

type postImageRepository struct {
	db *sqlx.DB
}

// NewPostImageRepository 创建图片关联仓库
func NewPostImageRepository(db *sqlx.DB) PostImageRepository {
	return &postImageRepository{db: db}
}

// Create 写入关联
func (r *postImageRepository) Create(ctx context.Context, img *model.PostImage) error {
	_, err := QuerierFromCtx(ctx, r.db).ExecContext(ctx,
		"INSERT INTO post_image (id, pid, url, created_at) VALUES (?, ?, ?, ?)",
		img.ID, img.Pid, img.URL, img.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert post image: %w", err)
	}
	return nil
}

// ListByPost 帖子关联的图片
func (r *postImageRepository) ListByPost(ctx context.Context, pid int64) ([]*model.PostImage, error) {
	var list []*model.PostImage
	err := QuerierFromCtx(ctx, r.db).SelectContext(ctx, &list,
		"SELECT id, pid, url, created_at FROM post_image WHERE pid = ? ORDER BY id", pid)
	return list, err
}
