package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"well_bbs/internal/core/logger"
	"well_bbs/internal/core/snowflake"
	"well_bbs/internal/model"
	"well_bbs/internal/pkg/apperr"
	"well_bbs/internal/pkg/pool"
	"well_bbs/internal/repository"
)

// SettingsInvalidateChannel 审核配置变更广播频道
const SettingsInvalidateChannel = "moderation:settings:invalidate"

const settingsCacheKey = "active"

// DefaultBannedWords 内置垃圾/诈骗词表
var DefaultBannedWords = []string{
	"viagra", "cialis", "casino", "lottery", "jackpot", "bitcoin doubler",
	"crypto giveaway", "free money", "wire transfer", "western union",
	"nigerian prince", "payday loan", "work from home", "click here",
	"buy followers", "miracle cure", "weight loss pills",
}

// DefaultModerationSettings 无配置或加载失败时使用的默认值
func DefaultModerationSettings(words []string) *model.ModerationSettings {
	if len(words) == 0 {
		words = DefaultBannedWords
	}
	return &model.ModerationSettings{
		IsActive:             true,
		ProfanityFilter:      true,
		BannedWords:          strings.Join(words, ","),
		FilterAction:         model.FilterCensor,
		MinPostLength:        1,
		MaxPostLength:        50000,
		MaxLinksPerPost:      10,
		TrustedUserPostCount: 0,
	}
}

// SettingsSource 审核配置来源
type SettingsSource interface {
	GetSettings(ctx context.Context) *model.ModerationSettings
}

// ModerationStore 审核配置缓存
type ModerationStore struct {
	repo     repository.ModerationRepository
	cache    *pool.TTLCache[string, *model.ModerationSettings]
	rdb      *redis.Client
	builtins []string
}

// NewModerationStore 创建审核配置存储；rdb 可为 nil（仅本地缓存）
func NewModerationStore(repo repository.ModerationRepository, cache *pool.TTLCache[string, *model.ModerationSettings], rdb *redis.Client, builtins []string) *ModerationStore {
	return &ModerationStore{
		repo:     repo,
		cache:    cache,
		rdb:      rdb,
		builtins: builtins,
	}
}

// GetSettings 返回配置副本；缓存过期时重新加载，失败退回默认值
func (s *ModerationStore) GetSettings(ctx context.Context) *model.ModerationSettings {
	if v, ok := s.cache.Get(settingsCacheKey); ok {
		cp := *v
		return &cp
	}

	settings, err := s.repo.GetActive(ctx)
	if err != nil {
		logger.Warn("moderation: load settings failed, using defaults", logger.String("error", err.Error()))
		settings = nil
	}
	if settings == nil {
		settings = DefaultModerationSettings(s.builtins)
	}

	s.cache.Set(settingsCacheKey, settings)
	cp := *settings
	return &cp
}

// ClearCache 下次读取强制重新加载
func (s *ModerationStore) ClearCache() {
	s.cache.Remove(settingsCacheKey)
}

// ValidateSettings 校验配置
func ValidateSettings(in *model.ModerationSettings) error {
	if !in.FilterAction.Valid() {
		return apperr.Validation(apperr.CodeBadRequest, "filter_action must be CENSOR, BLOCK or FLAG")
	}
	if in.MinPostLength < 0 || in.TrustedUserPostCount < 0 {
		return apperr.Validation(apperr.CodeBadRequest, "lengths and thresholds must not be negative")
	}
	if in.MaxPostLength > 0 && in.MinPostLength > in.MaxPostLength {
		return apperr.Validation(apperr.CodeBadRequest, "min_post_length exceeds max_post_length")
	}
	return nil
}

// Save 保存配置并清理本地缓存，同时广播给其他实例
func (s *ModerationStore) Save(ctx context.Context, in *model.ModerationSettings) (*model.ModerationSettings, error) {
	if err := ValidateSettings(in); err != nil {
		return nil, err
	}

	current, err := s.repo.GetActive(ctx)
	if err != nil {
		return nil, apperr.Fatal("failed to load moderation settings", err)
	}
	switch {
	case in.ID != 0:
	case current != nil:
		in.ID = current.ID
	default:
		in.ID = snowflake.Generate()
	}
	in.IsActive = true
	in.UpdatedAt = time.Now().Unix()

	if err := s.repo.Save(ctx, in); err != nil {
		return nil, apperr.Fatal("failed to save moderation settings", err)
	}

	s.ClearCache()
	s.broadcast(ctx)

	logger.Info("moderation settings saved",
		logger.Int64("id", in.ID),
		logger.String("filter_action", string(in.FilterAction)))
	return in, nil
}

func (s *ModerationStore) broadcast(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Publish(ctx, SettingsInvalidateChannel, fmt.Sprint(time.Now().UnixNano())).Err(); err != nil {
		logger.Warn("moderation: invalidation broadcast failed", logger.String("error", err.Error()))
	}
}

// WatchInvalidation 订阅配置变更广播直到 ctx 结束
func (s *ModerationStore) WatchInvalidation(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	sub := s.rdb.Subscribe(ctx, SettingsInvalidateChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			s.ClearCache()
			logger.Debug("moderation settings cache invalidated by broadcast")
		}
	}
}
