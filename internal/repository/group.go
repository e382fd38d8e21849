package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"well_bbs/internal/model"
)

// GroupRepository 用户组与版主数据访问接口
type GroupRepository interface {
	Create(ctx context.Context, group *model.UserGroup) error
	GetByID(ctx context.Context, gid int64) (*model.UserGroup, error)
	ListByUser(ctx context.Context, uid int64) ([]*model.UserGroup, error)
	AddMember(ctx context.Context, gid, uid int64) error
	RemoveMember(ctx context.Context, gid, uid int64) error
	IsModerator(ctx context.Context, fid, uid int64) (bool, error)
	AddModerator(ctx context.Context, fid, uid int64) error
	RemoveModerator(ctx context.Context, fid, uid int64) error
}

type groupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository 创建用户组仓库
func NewGroupRepository(db *sqlx.DB) GroupRepository {
	return &groupRepository{db: db}
}

// Create 创建用户组
func (r *groupRepository) Create(ctx context.Context, g *model.UserGroup) error {
	_, err := QuerierFromCtx(ctx, r.db).ExecContext(ctx,
		"INSERT INTO user_group (gid, name, can_post, can_reply, can_moderate) VALUES (?, ?, ?, ?, ?)",
		g.Gid, g.Name, g.CanPost, g.CanReply, g.CanModerate)
	if err != nil {
		return fmt.Errorf("insert group: %w", err)
	}
	return nil
}

// GetByID 根据ID获取用户组
func (r *groupRepository) GetByID(ctx context.Context, gid int64) (*model.UserGroup, error) {
	var g model.UserGroup
	err := QuerierFromCtx(ctx, r.db).GetContext(ctx, &g,
		"SELECT gid, name, can_post, can_reply, can_moderate FROM user_group WHERE gid = ?", gid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get group %d: %w", gid, err)
	}
	return &g, nil
}

// ListByUser 用户所属的全部组
func (r *groupRepository) ListByUser(ctx context.Context, uid int64) ([]*model.UserGroup, error) {
	var groups []*model.UserGroup
	err := QuerierFromCtx(ctx, r.db).SelectContext(ctx, &groups,
		`SELECT g.gid, g.name, g.can_post, g.can_reply, g.can_moderate
		FROM user_group g INNER JOIN user_group_member m ON m.gid = g.gid
		WHERE m.uid = ?`, uid)
	if err != nil {
		return nil, fmt.Errorf("groups of user %d: %w", uid, err)
	}
	return groups, nil
}

// AddMember 加入用户组，已存在时忽略
func (r *groupRepository) AddMember(ctx context.Context, gid, uid int64) error {
	q := QuerierFromCtx(ctx, r.db)
	var n int
	if err := q.GetContext(ctx, &n, "SELECT COUNT(*) FROM user_group_member WHERE gid = ? AND uid = ?", gid, uid); err != nil {
		return fmt.Errorf("probe member: %w", err)
	}
	if n > 0 {
		return nil
	}
	_, err := q.ExecContext(ctx, "INSERT INTO user_group_member (gid, uid) VALUES (?, ?)", gid, uid)
	return err
}

// RemoveMember 移出用户组
func (r *groupRepository) RemoveMember(ctx context.Context, gid, uid int64) error {
	_, err := QuerierFromCtx(ctx, r.db).ExecContext(ctx, "DELETE FROM user_group_member WHERE gid = ? AND uid = ?", gid, uid)
	return err
}

// IsModerator 是否为该版块版主
func (r *groupRepository) IsModerator(ctx context.Context, fid, uid int64) (bool, error) {
	var n int
	err := QuerierFromCtx(ctx, r.db).GetContext(ctx, &n,
		"SELECT COUNT(*) FROM forum_moderator WHERE fid = ? AND uid = ?", fid, uid)
	if err != nil {
		return false, fmt.Errorf("probe moderator: %w", err)
	}
	return n > 0, nil
}

// AddModerator 指派版主，已存在时忽略
func (r *groupRepository) AddModerator(ctx context.Context, fid, uid int64) error {
	ok, err := r.IsModerator(ctx, fid, uid)
	if err != nil || ok {
		return err
	}
	_, err = QuerierFromCtx(ctx, r.db).ExecContext(ctx, "INSERT INTO forum_moderator (fid, uid) VALUES (?, ?)", fid, uid)
	return err
}

// RemoveModerator 撤销版主
func (r *groupRepository) RemoveModerator(ctx context.Context, fid, uid int64) error {
	_, err := QuerierFromCtx(ctx, r.db).ExecContext(ctx, "DELETE FROM forum_moderator WHERE fid = ? AND uid = ?", fid, uid)
	return err
}
