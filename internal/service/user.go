package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"well_bbs/internal/core/config"
	"well_bbs/internal/core/logger"
	"well_bbs/internal/core/snowflake"
	"well_bbs/internal/model"
	"well_bbs/internal/pkg/apperr"
	"well_bbs/internal/repository"
)

const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

// Claims JWT 载荷
type Claims struct {
	Uid  int64  `json:"uid"`
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// UserService 用户服务
type UserService struct {
	repo   repository.UserRepository
	cache  *layeredCache
	jwtCfg *config.JWTConfig
}

// NewUserService 创建用户服务
func NewUserService(repo repository.UserRepository, redisClient *redis.Client, cacheCfg *config.CacheConfig, jwtCfg *config.JWTConfig) *UserService {
	return &UserService{
		repo:   repo,
		cache:  newLayeredCache(cacheCfg, redisClient),
		jwtCfg: jwtCfg,
	}
}

func userKey(uid int64) string {
	return fmt.Sprintf("user:%d", uid)
}

var errBadCredentials = apperr.NewAppError(apperr.KindUnauthenticated, apperr.CodeBadCredentials, "invalid username or password")

// Login 用户登录
func (s *UserService) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	user, err := s.repo.GetByUsername(ctx, req.Username)
	if err != nil {
		logger.Error("login: get user error", logger.String("error", err.Error()))
		return nil, apperr.Fatal("failed to load user", err)
	}
	if user == nil {
		return nil, errBadCredentials
	}

	// 验证密码
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, errBadCredentials
	}

	// 检查状态
	if user.Status != model.UserStatusActive {
		return nil, apperr.Forbidden(apperr.CodeAccountDisabled, "account is disabled")
	}

	// 更新最后访问时间
	now := time.Now().Unix()
	if err := s.repo.UpdateLastvisit(ctx, user.Uid, now); err != nil {
		logger.Warn("login: update lastvisit failed", logger.Int64("uid", user.Uid), logger.ErrorField(err))
	}

	return s.issue(user)
}

// Refresh 用 refresh token 换取新的令牌对
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*model.LoginResponse, error) {
	claims, err := s.parse(refreshToken, tokenRefresh)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.GetByID(ctx, claims.Uid)
	if err != nil {
		return nil, apperr.Fatal("failed to load user", err)
	}
	if user == nil || user.Status != model.UserStatusActive {
		return nil, apperr.Unauthenticated("invalid refresh token")
	}
	return s.issue(user)
}

func (s *UserService) issue(user *model.User) (*model.LoginResponse, error) {
	token, err := s.sign(user.Uid, tokenAccess, s.jwtCfg.Expiry)
	if err != nil {
		logger.Error("login: generate token error", logger.String("error", err.Error()))
		return nil, apperr.Fatal("failed to issue token", err)
	}
	refresh, err := s.sign(user.Uid, tokenRefresh, s.jwtCfg.RefreshExpiry)
	if err != nil {
		return nil, apperr.Fatal("failed to issue token", err)
	}
	return &model.LoginResponse{
		Token:        token,
		RefreshToken: refresh,
		User:         user.ToDTO(),
	}, nil
}

// Register 用户注册
func (s *UserService) Register(ctx context.Context, req *model.RegisterRequest) (*model.RegisterResponse, error) {
	// 检查用户名
	exist, err := s.repo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, apperr.Fatal("failed to check username", err)
	}
	if exist != nil {
		return nil, apperr.Validation(apperr.CodeUsernameTaken, "username is already taken")
	}

	// 加密密码
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("register: hash password error", logger.String("error", err.Error()))
		return nil, apperr.Fatal("failed to hash password", err)
	}

	now := time.Now().Unix()
	user := &model.User{
		Uid:       snowflake.Generate(),
		Username:  req.Username,
		Password:  string(hashedPassword),
		Email:     req.Email,
		Avatar:    fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/svg?seed=%s", req.Username),
		Role:      model.RoleUser,
		Status:    model.UserStatusActive,
		Dateline:  now,
		Lastvisit: now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		logger.Error("register: create user error", logger.String("error", err.Error()))
		return nil, apperr.Fatal("failed to create user", err)
	}

	return &model.RegisterResponse{User: user.ToDTO()}, nil
}

// Authenticate 校验访问令牌并构造发帖身份；用户不存在视为游客
func (s *UserService) Authenticate(ctx context.Context, token string) (*model.Actor, error) {
	claims, err := s.parse(token, tokenAccess)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.GetByID(ctx, claims.Uid)
	if err != nil {
		return nil, apperr.Fatal("failed to load user", err)
	}
	if user == nil {
		return model.GuestActor(), nil
	}
	if user.Status != model.UserStatusActive {
		return nil, apperr.Unauthenticated("account is disabled")
	}
	return user.Actor(), nil
}

// GetUserByID 根据ID获取用户
func (s *UserService) GetUserByID(ctx context.Context, uid int64) (*model.UserDTO, error) {
	dto, err := cached(ctx, s.cache, userKey(uid), func(ctx context.Context) (*model.UserDTO, error) {
		user, err := s.repo.GetByID(ctx, uid)
		if err != nil || user == nil {
			return nil, err
		}
		d := user.ToDTO()
		return &d, nil
	})
	if err != nil {
		return nil, apperr.Fatal("failed to load user", err)
	}
	if dto == nil {
		return nil, apperr.NotFound(apperr.CodeNotFound, "user not found")
	}
	return dto, nil
}

// SetRole 修改角色
func (s *UserService) SetRole(ctx context.Context, uid int64, role model.Role) error {
	if !role.Valid() || role == model.RoleGuest {
		return apperr.Validation(apperr.CodeBadRequest, "role must be USER, MODERATOR or ADMIN")
	}
	if err := s.repo.UpdateRole(ctx, uid, role); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return apperr.NotFound(apperr.CodeNotFound, "user not found")
		}
		return apperr.Fatal("failed to update role", err)
	}
	s.cache.del(ctx, userKey(uid))
	logger.Info("user role changed", logger.Int64("uid", uid), logger.String("role", string(role)))
	return nil
}

// SetStatus 启用/禁用账号
func (s *UserService) SetStatus(ctx context.Context, uid int64, status int) error {
	if status != model.UserStatusActive && status != model.UserStatusDisabled {
		return apperr.Validation(apperr.CodeBadRequest, "status must be 0 or 1")
	}
	if err := s.repo.UpdateStatus(ctx, uid, status); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return apperr.NotFound(apperr.CodeNotFound, "user not found")
		}
		return apperr.Fatal("failed to update status", err)
	}
	s.cache.del(ctx, userKey(uid))
	return nil
}

// FlushCache 刷新缓存
func (s *UserService) FlushCache(ctx context.Context) error {
	return s.cache.flush(ctx, "user:*")
}

func (s *UserService) sign(uid int64, typ string, ttlSeconds int) (string, error) {
	now := time.Now()
	claims := Claims{
		Uid:  uid,
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttlSeconds) * time.Second)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtCfg.Secret))
}

func (s *UserService) parse(tokenString, typ string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.jwtCfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.Unauthenticated("token expired")
		}
		return nil, apperr.Unauthenticated("invalid token")
	}
	if claims.Type != typ || claims.Uid <= 0 {
		return nil, apperr.Unauthenticated("invalid token")
	}
	return claims, nil
}
