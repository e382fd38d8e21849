package runtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"well_bbs/internal/core/logger"
	"well_bbs/internal/model"
)

// ForumSource 版块数据来源
type ForumSource interface {
	GetAll(ctx context.Context) ([]*model.ForumDTO, error)
	GetTree(ctx context.Context) ([]*model.ForumTree, error)
}

// SettingsSource 审核配置来源
type SettingsSource interface {
	GetSettings(ctx context.Context) *model.ModerationSettings
}

// Runtime 运行时快照：版块列表、版块树与当前审核配置
type Runtime struct {
	forums   ForumSource
	settings SettingsSource
	clock    clockwork.Clock

	mu         sync.RWMutex
	forumList  []*model.ForumDTO
	forumTree  []*model.ForumTree
	moderation *model.ModerationSettings
	loadedAt   time.Time
}

// New 创建 Runtime；clock 为 nil 时使用真实时钟
func New(forums ForumSource, settings SettingsSource, clock clockwork.Clock) *Runtime {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Runtime{forums: forums, settings: settings, clock: clock}
}

// Warmup 预热数据；失败的部分保留上一次的快照
func (r *Runtime) Warmup(ctx context.Context) error {
	start := r.clock.Now()
	logger.Info("runtime warmup started")

	var errs []error

	list, err := r.forums.GetAll(ctx)
	if err != nil {
		logger.Error("warmup forum list failed", logger.String("error", err.Error()))
		errs = append(errs, err)
	} else {
		r.mu.Lock()
		r.forumList = list
		r.mu.Unlock()
		logger.Info("warmup forum list", logger.Int("count", len(list)))
	}

	tree, err := r.forums.GetTree(ctx)
	if err != nil {
		logger.Error("warmup forum tree failed", logger.String("error", err.Error()))
		errs = append(errs, err)
	} else {
		r.mu.Lock()
		r.forumTree = tree
		r.mu.Unlock()
		logger.Info("warmup forum tree", logger.Int("count", len(tree)))
	}

	settings := r.settings.GetSettings(ctx)
	r.mu.Lock()
	r.moderation = settings
	r.loadedAt = r.clock.Now()
	r.mu.Unlock()

	logger.Info("runtime warmup completed", logger.Duration("duration", r.clock.Since(start)))
	return errors.Join(errs...)
}

// Run 每隔 every 重新预热，直到 ctx 结束
func (r *Runtime) Run(ctx context.Context, every time.Duration) {
	ticker := r.clock.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if err := r.Warmup(ctx); err != nil {
				logger.Warn("runtime reload incomplete", logger.ErrorField(err))
			}
		}
	}
}

// ForumList 获取 Forum 列表
func (r *Runtime) ForumList() []*model.ForumDTO {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.forumList
}

// ForumTree 获取 Forum 树
func (r *Runtime) ForumTree() []*model.ForumTree {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.forumTree
}

// Moderation 预热时的审核配置
func (r *Runtime) Moderation() *model.ModerationSettings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.moderation
}

// LoadedAt 获取加载时间
func (r *Runtime) LoadedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loadedAt
}

// Status 返回运行时状态
func (r *Runtime) Status() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	status := map[string]interface{}{
		"forum_count": len(r.forumList),
		"forum_roots": len(r.forumTree),
		"loaded_at":   r.loadedAt.Format("2006-01-02 15:04:05"),
	}
	if r.moderation != nil {
		status["filter_action"] = r.moderation.FilterAction
		status["profanity_filter"] = r.moderation.ProfanityFilter
		status["banned_words"] = len(r.moderation.Words())
		status["moderation_queue"] = r.moderation.ModerationQueue
	}
	return status
}
