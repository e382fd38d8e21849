package service

import (
	"context"

	"well_bbs/internal/core/logger"
	"well_bbs/internal/model"
	"well_bbs/internal/repository"
)

// Permissions 用户在某版块的有效权限
type Permissions struct {
	CanPost     bool `json:"can_post"`
	CanReply    bool `json:"can_reply"`
	CanModerate bool `json:"can_moderate"`
}

// Or 按位或合并
func (p Permissions) Or(o Permissions) Permissions {
	return Permissions{
		CanPost:     p.CanPost || o.CanPost,
		CanReply:    p.CanReply || o.CanReply,
		CanModerate: p.CanModerate || o.CanModerate,
	}
}

var allPermissions = Permissions{CanPost: true, CanReply: true, CanModerate: true}

// RoleDefaults 角色默认权限
func RoleDefaults(role model.Role) Permissions {
	switch role {
	case model.RoleAdmin, model.RoleModerator:
		return allPermissions
	case model.RoleUser:
		return Permissions{CanPost: true, CanReply: true}
	default:
		return Permissions{}
	}
}

// PermissionSources 权限来源
type PermissionSources struct {
	Role           model.Role
	ForumModerator bool
	Groups         []Permissions
}

// MergePermissions 角色默认、版主指派与各用户组权限取或
func MergePermissions(src PermissionSources) Permissions {
	p := RoleDefaults(src.Role)
	if src.ForumModerator {
		p = p.Or(allPermissions)
	}
	for _, g := range src.Groups {
		p = p.Or(g)
	}
	return p
}

// PermissionResolver 权限解析
type PermissionResolver struct {
	groups repository.GroupRepository
}

// NewPermissionResolver 创建权限解析器
func NewPermissionResolver(groups repository.GroupRepository) *PermissionResolver {
	return &PermissionResolver{groups: groups}
}

// Resolve 计算有效权限；任何数据访问错误都退回角色默认权限
func (r *PermissionResolver) Resolve(ctx context.Context, uid, fid int64, role model.Role) Permissions {
	if uid == 0 {
		return RoleDefaults(role)
	}

	src := PermissionSources{Role: role}

	isMod, err := r.groups.IsModerator(ctx, fid, uid)
	if err != nil {
		logger.Warn("permission: moderator lookup failed, using role defaults",
			logger.Int64("uid", uid), logger.Int64("fid", fid), logger.String("error", err.Error()))
		return RoleDefaults(role)
	}
	src.ForumModerator = isMod

	groups, err := r.groups.ListByUser(ctx, uid)
	if err != nil {
		logger.Warn("permission: group lookup failed, using role defaults",
			logger.Int64("uid", uid), logger.String("error", err.Error()))
		return RoleDefaults(role)
	}
	for _, g := range groups {
		src.Groups = append(src.Groups, Permissions{CanPost: g.CanPost, CanReply: g.CanReply, CanModerate: g.CanModerate})
	}

	return MergePermissions(src)
}
