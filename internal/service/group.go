package service

import (
	"context"

	"well_bbs/internal/core/logger"
	"well_bbs/internal/core/snowflake"
	"well_bbs/internal/model"
	"well_bbs/internal/pkg/apperr"
	"well_bbs/internal/repository"
)

// GroupService 用户组管理
type GroupService struct {
	repo  repository.GroupRepository
	users repository.UserRepository
}

// NewGroupService 创建用户组服务
func NewGroupService(repo repository.GroupRepository, users repository.UserRepository) *GroupService {
	return &GroupService{repo: repo, users: users}
}

// Create 创建用户组
func (s *GroupService) Create(ctx context.Context, req *model.CreateGroupRequest) (*model.UserGroup, error) {
	g := &model.UserGroup{
		Gid:         snowflake.Generate(),
		Name:        req.Name,
		CanPost:     req.CanPost,
		CanReply:    req.CanReply,
		CanModerate: req.CanModerate,
	}
	if err := s.repo.Create(ctx, g); err != nil {
		return nil, apperr.Fatal("failed to create group", err)
	}
	logger.Info("user group created", logger.Int64("gid", g.Gid), logger.String("name", g.Name))
	return g, nil
}

// AddMember 加入用户组
func (s *GroupService) AddMember(ctx context.Context, gid, uid int64) error {
	g, err := s.repo.GetByID(ctx, gid)
	if err != nil {
		return apperr.Fatal("failed to load group", err)
	}
	if g == nil {
		return apperr.NotFound(apperr.CodeNotFound, "group not found")
	}
	u, err := s.users.GetByID(ctx, uid)
	if err != nil {
		return apperr.Fatal("failed to load user", err)
	}
	if u == nil {
		return apperr.NotFound(apperr.CodeNotFound, "user not found")
	}
	if err := s.repo.AddMember(ctx, gid, uid); err != nil {
		return apperr.Fatal("failed to add member", err)
	}
	return nil
}

// RemoveMember 移出用户组
func (s *GroupService) RemoveMember(ctx context.Context, gid, uid int64) error {
	if err := s.repo.RemoveMember(ctx, gid, uid); err != nil {
		return apperr.Fatal("failed to remove member", err)
	}
	return nil
}

// ListByUser 用户所在组
func (s *GroupService) ListByUser(ctx context.Context, uid int64) ([]*model.UserGroup, error) {
	groups, err := s.repo.ListByUser(ctx, uid)
	if err != nil {
		return nil, apperr.Fatal("failed to list groups", err)
	}
	return groups, nil
}
