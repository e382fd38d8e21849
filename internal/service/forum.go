package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"well_bbs/internal/core/config"
	"well_bbs/internal/core/logger"
	"well_bbs/internal/core/snowflake"
	"well_bbs/internal/model"
	"well_bbs/internal/pkg/apperr"
	"well_bbs/internal/repository"
)

// ForumService Forum 业务服务
type ForumService struct {
	repo   repository.ForumRepository
	groups repository.GroupRepository
	users  repository.UserRepository
	cache  *layeredCache
}

// NewForumService 创建 ForumService 实例
func NewForumService(repo repository.ForumRepository, groups repository.GroupRepository, users repository.UserRepository,
	l2 *redis.Client, cfg *config.CacheConfig) *ForumService {
	return &ForumService{
		repo:   repo,
		groups: groups,
		users:  users,
		cache:  newLayeredCache(cfg, l2),
	}
}

func forumKey(fid int64) string {
	return fmt.Sprintf("forum:%d", fid)
}

// Get 获取单个 Forum
func (s *ForumService) Get(ctx context.Context, fid int64) (*model.ForumDTO, error) {
	dto, err := cached(ctx, s.cache, forumKey(fid), func(ctx context.Context) (*model.ForumDTO, error) {
		f, err := s.repo.GetByID(ctx, fid)
		if err != nil || f == nil {
			return nil, err
		}
		return f.ToDTO(), nil
	})
	if err != nil {
		return nil, apperr.Fatal("failed to load forum", err)
	}
	if dto == nil {
		return nil, apperr.NotFound(apperr.CodeForumNotFound, "forum not found")
	}
	return dto, nil
}

// GetAll 获取所有 Forum
func (s *ForumService) GetAll(ctx context.Context) ([]*model.ForumDTO, error) {
	forums, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, apperr.Fatal("failed to list forums", err)
	}

	list := make([]*model.ForumDTO, 0, len(forums))
	for _, f := range forums {
		list = append(list, f.ToDTO())
	}
	return list, nil
}

// GetTree 获取论坛树
func (s *ForumService) GetTree(ctx context.Context) ([]*model.ForumTree, error) {
	forums, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return BuildForumTree(forums), nil
}

// BuildForumTree 按 parent 组装树，保持输入顺序
func BuildForumTree(forums []*model.ForumDTO) []*model.ForumTree {
	nodeMap := make(map[int64]*model.ForumTree, len(forums))
	nodes := make([]*model.ForumTree, 0, len(forums))
	for _, f := range forums {
		node := &model.ForumTree{ForumDTO: *f}
		nodeMap[f.Fid] = node
		nodes = append(nodes, node)
	}

	var roots []*model.ForumTree
	for _, node := range nodes {
		if parent, ok := nodeMap[node.Parent]; ok && node.Parent > 0 {
			parent.Children = append(parent.Children, node)
			continue
		}
		roots = append(roots, node)
	}
	return roots
}

// Create 创建 Forum
func (s *ForumService) Create(ctx context.Context, req *model.CreateForumRequest) (*model.ForumDTO, error) {
	// 计算 path 和 depth
	path := "0"
	depth := 0
	if req.Parent > 0 {
		p, err := s.repo.GetByID(ctx, req.Parent)
		if err != nil {
			return nil, apperr.Fatal("failed to load parent forum", err)
		}
		if p == nil {
			return nil, apperr.NotFound(apperr.CodeForumNotFound, "parent forum not found")
		}
		path = p.Path + "," + strconv.FormatInt(p.Fid, 10)
		depth = p.Depth + 1
	}

	now := time.Now().Unix()
	forum := &model.Forum{
		Fid:          snowflake.Generate(),
		Name:         req.Name,
		Parent:       req.Parent,
		Path:         path,
		Depth:        depth,
		DisplayOrder: req.DisplayOrder,
		IsActive:     true,
		CanPost:      true,
		CanReply:     true,
		GuestPosting: req.GuestPosting,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, forum); err != nil {
		logger.Error("create forum failed", logger.String("error", err.Error()))
		return nil, apperr.Fatal("failed to create forum", err)
	}
	return forum.ToDTO(), nil
}

// Update 更新 Forum，nil 字段保持不变
func (s *ForumService) Update(ctx context.Context, fid int64, req *model.UpdateForumRequest) (*model.ForumDTO, error) {
	forum, err := s.repo.GetByID(ctx, fid)
	if err != nil {
		return nil, apperr.Fatal("failed to load forum", err)
	}
	if forum == nil {
		return nil, apperr.NotFound(apperr.CodeForumNotFound, "forum not found")
	}

	if req.Name != nil {
		forum.Name = *req.Name
	}
	if req.DisplayOrder != nil {
		forum.DisplayOrder = *req.DisplayOrder
	}
	if req.IsActive != nil {
		forum.IsActive = *req.IsActive
	}
	if req.CanPost != nil {
		forum.CanPost = *req.CanPost
	}
	if req.CanReply != nil {
		forum.CanReply = *req.CanReply
	}
	if req.GuestPosting != nil {
		forum.GuestPosting = *req.GuestPosting
	}
	if req.IsLocked != nil {
		forum.IsLocked = *req.IsLocked
	}
	forum.UpdatedAt = time.Now().Unix()

	if err := s.repo.Update(ctx, forum); err != nil {
		return nil, apperr.Fatal("failed to update forum", err)
	}
	s.Invalidate(ctx, fid)
	return forum.ToDTO(), nil
}

// Delete 删除空版块
func (s *ForumService) Delete(ctx context.Context, fid int64) error {
	forum, err := s.repo.GetByID(ctx, fid)
	if err != nil {
		return apperr.Fatal("failed to load forum", err)
	}
	if forum == nil {
		return apperr.NotFound(apperr.CodeForumNotFound, "forum not found")
	}
	children, err := s.repo.GetByParent(ctx, fid)
	if err != nil {
		return apperr.Fatal("failed to load child forums", err)
	}
	if len(children) > 0 || forum.Threads > 0 {
		return apperr.Validation(apperr.CodeBadRequest, "forum is not empty")
	}

	if err := s.repo.Delete(ctx, fid); err != nil {
		return apperr.Fatal("failed to delete forum", err)
	}
	s.Invalidate(ctx, fid)
	return nil
}

// AddModerator 指派版主
func (s *ForumService) AddModerator(ctx context.Context, fid, uid int64) error {
	if _, err := s.Get(ctx, fid); err != nil {
		return err
	}
	user, err := s.users.GetByID(ctx, uid)
	if err != nil {
		return apperr.Fatal("failed to load user", err)
	}
	if user == nil {
		return apperr.NotFound(apperr.CodeNotFound, "user not found")
	}
	if err := s.groups.AddModerator(ctx, fid, uid); err != nil {
		return apperr.Fatal("failed to add moderator", err)
	}
	logger.Info("forum moderator added", logger.Int64("fid", fid), logger.Int64("uid", uid))
	return nil
}

// RemoveModerator 撤销版主
func (s *ForumService) RemoveModerator(ctx context.Context, fid, uid int64) error {
	if err := s.groups.RemoveModerator(ctx, fid, uid); err != nil {
		return apperr.Fatal("failed to remove moderator", err)
	}
	return nil
}

// Invalidate 清理单个版块缓存
func (s *ForumService) Invalidate(ctx context.Context, fid int64) {
	s.cache.del(ctx, forumKey(fid))
}

// FlushCache 刷新缓存
func (s *ForumService) FlushCache(ctx context.Context) error {
	return s.cache.flush(ctx, "forum:*")
}
