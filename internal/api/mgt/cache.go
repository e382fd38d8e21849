package mgt

import (
	"context"

	"github.com/gin-gonic/gin"
	"well_bbs/internal/core/logger"
	"well_bbs/internal/pkg/response"
	"well_bbs/internal/service"
)

// Flusher 可清理缓存的服务
type Flusher interface {
	FlushCache(ctx context.Context) error
}

// Warmer 运行时快照
type Warmer interface {
	Warmup(ctx context.Context) error
}

// CacheHandler Cache Management API Handler
type CacheHandler struct {
	flushers   []Flusher
	moderation *service.ModerationStore
	warmer     Warmer
}

// NewCacheHandler 创建CacheHandler
func NewCacheHandler(moderation *service.ModerationStore, warmer Warmer, flushers ...Flusher) *CacheHandler {
	return &CacheHandler{flushers: flushers, moderation: moderation, warmer: warmer}
}

// Flush POST /api/mgt/cache/flush
func (h *CacheHandler) Flush(c *gin.Context) {
	for _, f := range h.flushers {
		if err := f.FlushCache(c.Request.Context()); err != nil {
			response.Error(c, err)
			return
		}
	}
	h.moderation.ClearCache()
	response.SuccessWithMsg(c, nil, "cache flushed")
}

// Prewarm POST /api/mgt/cache/prewarm
func (h *CacheHandler) Prewarm(c *gin.Context) {
	if err := h.warmer.Warmup(c.Request.Context()); err != nil {
		logger.Warn("prewarm incomplete", logger.ErrorField(err))
		response.SuccessWithMsg(c, nil, "cache prewarm incomplete")
		return
	}
	response.SuccessWithMsg(c, nil, "cache prewarmed")
}
