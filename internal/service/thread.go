package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"well_bbs/internal/core/config"
	"well_bbs/internal/core/logger"
	"well_bbs/internal/model"
	"well_bbs/internal/pkg/apperr"
	"well_bbs/internal/repository"
)

// ThreadService Thread业务服务
type ThreadService struct {
	repo  repository.ThreadRepository
	posts repository.PostRepository
	slugs *SlugAssigner
	cache *layeredCache
}

// ThreadPage 主题分页
type ThreadPage struct {
	List  []*model.ThreadDTO `json:"list"`
	Total int                `json:"total"`
	Page  int                `json:"page"`
}

// PostPage 帖子分页
type PostPage struct {
	List  []*model.PostDTO `json:"list"`
	Total int              `json:"total"`
	Page  int              `json:"page"`
}

// UpdateThreadInput 主题管理参数，nil 字段保持不变
type UpdateThreadInput struct {
	Subject  *string `json:"subject"`
	IsLocked *bool   `json:"is_locked"`
	IsSticky *bool   `json:"is_sticky"`
}

// NewThreadService 创建ThreadService实例
func NewThreadService(repo repository.ThreadRepository, posts repository.PostRepository, slugs *SlugAssigner,
	l2 *redis.Client, cfg *config.CacheConfig) *ThreadService {
	return &ThreadService{
		repo:  repo,
		posts: posts,
		slugs: slugs,
		cache: newLayeredCache(cfg, l2),
	}
}

func threadKey(tid int64) string {
	return fmt.Sprintf("thread:%d", tid)
}

// Get 获取单个Thread，含已审核的首帖
func (s *ThreadService) Get(ctx context.Context, tid int64) (*model.ThreadDTO, error) {
	dto, err := cached(ctx, s.cache, threadKey(tid), func(ctx context.Context) (*model.ThreadDTO, error) {
		thread, err := s.repo.GetByID(ctx, tid)
		if err != nil || thread == nil || thread.Deleted {
			return nil, err
		}
		dto := thread.ToDTO()
		first, err := s.posts.FirstPost(ctx, tid)
		if err != nil {
			return nil, err
		}
		if first != nil && first.Approved {
			dto.FirstPost = first.ToDTO()
		}
		return dto, nil
	})
	if err != nil {
		return nil, apperr.Fatal("failed to load thread", err)
	}
	if dto == nil {
		return nil, apperr.NotFound(apperr.CodeThreadNotFound, "thread not found")
	}
	return dto, nil
}

// List 获取Thread列表，fid<=0 表示全部版块
func (s *ThreadService) List(ctx context.Context, q *model.ThreadListQuery) (*ThreadPage, error) {
	offset := (q.Page - 1) * q.PageSize
	threads, err := s.repo.List(ctx, q.Fid, offset, q.PageSize)
	if err != nil {
		return nil, apperr.Fatal("failed to list threads", err)
	}
	total, err := s.repo.Count(ctx, q.Fid)
	if err != nil {
		return nil, apperr.Fatal("failed to count threads", err)
	}

	list := make([]*model.ThreadDTO, 0, len(threads))
	for _, t := range threads {
		list = append(list, t.ToDTO())
	}
	return &ThreadPage{List: list, Total: total, Page: q.Page}, nil
}

// ListPosts 主题下已审核的帖子
func (s *ThreadService) ListPosts(ctx context.Context, tid int64, q *model.PostListQuery) (*PostPage, error) {
	if _, err := s.Get(ctx, tid); err != nil {
		return nil, err
	}
	offset := (q.Page - 1) * q.PageSize
	posts, err := s.posts.ListByThread(ctx, tid, true, offset, q.PageSize)
	if err != nil {
		return nil, apperr.Fatal("failed to list posts", err)
	}
	total, err := s.posts.CountByThread(ctx, tid, true)
	if err != nil {
		return nil, apperr.Fatal("failed to count posts", err)
	}

	list := make([]*model.PostDTO, 0, len(posts))
	for _, p := range posts {
		list = append(list, p.ToDTO())
	}
	return &PostPage{List: list, Total: total, Page: q.Page}, nil
}

// Update 修改标题、锁定、置顶；改标题时重新分配 slug
func (s *ThreadService) Update(ctx context.Context, tid int64, in *UpdateThreadInput) (*model.ThreadDTO, error) {
	thread, err := s.repo.GetByID(ctx, tid)
	if err != nil {
		return nil, apperr.Fatal("failed to load thread", err)
	}
	if thread == nil || thread.Deleted {
		return nil, apperr.NotFound(apperr.CodeThreadNotFound, "thread not found")
	}

	if in.Subject != nil {
		subject := strings.TrimSpace(*in.Subject)
		if subject == "" {
			return nil, apperr.Validation(apperr.CodeBadRequest, "subject is required")
		}
		if subject != thread.Subject {
			slug, err := s.slugs.Assign(ctx, subject, tid)
			if err != nil {
				return nil, err
			}
			thread.Subject = subject
			thread.Slug = &slug
		}
	}
	if in.IsLocked != nil {
		thread.IsLocked = *in.IsLocked
	}
	if in.IsSticky != nil {
		thread.IsSticky = *in.IsSticky
	}
	thread.UpdatedAt = time.Now().Unix()

	if err := s.repo.Update(ctx, thread); err != nil {
		return nil, apperr.Fatal("failed to update thread", err)
	}
	s.Invalidate(ctx, tid)

	logger.Info("thread updated",
		logger.Int64("tid", tid),
		logger.Bool("locked", thread.IsLocked),
		logger.Bool("sticky", thread.IsSticky))
	return thread.ToDTO(), nil
}

// IncViews 增加浏览量
func (s *ThreadService) IncViews(ctx context.Context, tid int64) error {
	if err := s.repo.IncViews(ctx, tid); err != nil {
		return apperr.Fatal("failed to count view", err)
	}
	s.Invalidate(ctx, tid)
	return nil
}

// Invalidate 清理单个主题缓存
func (s *ThreadService) Invalidate(ctx context.Context, tid int64) {
	s.cache.del(ctx, threadKey(tid))
}

// FlushCache 刷新缓存
func (s *ThreadService) FlushCache(ctx context.Context) error {
	return s.cache.flush(ctx, "thread:*")
}
