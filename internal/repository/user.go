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

const userColumns = "uid, username, password, email, avatar, role, status, post_count, dateline, lastvisit"

// UserRepository 用户数据访问接口
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, uid int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByUsernames(ctx context.Context, usernames []string) ([]*model.User, error)
	UpdateRole(ctx context.Context, uid int64, role model.Role) error
	UpdateStatus(ctx context.Context, uid int64, status int) error
	UpdateLastvisit(ctx context.Context, uid int64, timestamp int64) error
	AddPostCount(ctx context.Context, uid int64, delta int) error
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

type userRepository struct {
	db *sqlx.DB
}

// Create 创建用户
func (r *userRepository) Create(ctx context.Context, u *model.User) error {
	_, err := QuerierFromCtx(ctx, r.db).ExecContext(ctx,
		"INSERT INTO user ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		u.Uid, u.Username, u.Password, u.Email, u.Avatar, u.Role, u.Status, u.PostCount, u.Dateline, u.Lastvisit)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID 根据ID获取用户（含禁用用户，由调用方判断状态）
func (r *userRepository) GetByID(ctx context.Context, uid int64) (*model.User, error) {
	var user model.User
	err := QuerierFromCtx(ctx, r.db).GetContext(ctx, &user, "SELECT "+userColumns+" FROM user WHERE uid = ?", uid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user %d: %w", uid, err)
	}
	return &user, nil
}

// GetByUsername 根据用户名获取用户
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := QuerierFromCtx(ctx, r.db).GetContext(ctx, &user, "SELECT "+userColumns+" FROM user WHERE username = ?", username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by name: %w", err)
	}
	return &user, nil
}

// GetByUsernames 批量按用户名查询，不存在的用户名忽略
func (r *userRepository) GetByUsernames(ctx context.Context, usernames []string) ([]*model.User, error) {
	if len(usernames) == 0 {
		return nil, nil
	}
	query, args, err := sq.Select(userColumns).From("user").Where(sq.Eq{"username": usernames}).ToSql()
	if err != nil {
		return nil, err
	}
	var users []*model.User
	if err := QuerierFromCtx(ctx, r.db).SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("get users by name: %w", err)
	}
	return users, nil
}

// UpdateRole 修改角色
func (r *userRepository) UpdateRole(ctx context.Context, uid int64, role model.Role) error {
	return execAffecting(ctx, QuerierFromCtx(ctx, r.db), "UPDATE user SET role = ? WHERE uid = ?", role, uid)
}

// UpdateStatus 启用/禁用
func (r *userRepository) UpdateStatus(ctx context.Context, uid int64, status int) error {
	return execAffecting(ctx, QuerierFromCtx(ctx, r.db), "UPDATE user SET status = ? WHERE uid = ?", status, uid)
}

// UpdateLastvisit 更新最后访问时间
func (r *userRepository) UpdateLastvisit(ctx context.Context, uid int64, timestamp int64) error {
	_, err := QuerierFromCtx(ctx, r.db).ExecContext(ctx, "UPDATE user SET lastvisit = ? WHERE uid = ?", timestamp, uid)
	return err
}

// AddPostCount 原子增减发帖数
func (r *userRepository) AddPostCount(ctx context.Context, uid int64, delta int) error {
	err := execAffecting(ctx, QuerierFromCtx(ctx, r.db),
		"UPDATE user SET post_count = post_count + ? WHERE uid = ?", delta, uid)
	if err != nil {
		return fmt.Errorf("user %d post count: %w", uid, err)
	}
	return nil
}
