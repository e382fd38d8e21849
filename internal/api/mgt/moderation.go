package mgt

import (
	"github.com/gin-gonic/gin"
	"well_bbs/internal/middleware"
	"well_bbs/internal/model"
	"well_bbs/internal/pkg/response"
	"well_bbs/internal/pkg/util"
	"well_bbs/internal/service"
)

// ModerationHandler 审核配置与待审队列
type ModerationHandler struct {
	store   *service.ModerationStore
	publish *service.PublishService
}

// NewModerationHandler 创建 ModerationHandler
func NewModerationHandler(store *service.ModerationStore, publish *service.PublishService) *ModerationHandler {
	return &ModerationHandler{store: store, publish: publish}
}

// GetSettings GET /api/mgt/moderation/settings
func (h *ModerationHandler) GetSettings(c *gin.Context) {
	response.Success(c, h.store.GetSettings(c.Request.Context()))
}

// UpdateSettings PUT /api/mgt/moderation/settings
func (h *ModerationHandler) UpdateSettings(c *gin.Context) {
	var req model.UpdateModerationRequest
	if !util.BindJSON(c, &req) {
		return
	}
	saved, err := h.store.Save(c.Request.Context(), req.ToSettings())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, saved)
}

// Pending GET /api/mgt/moderation/pending
func (h *ModerationHandler) Pending(c *gin.Context) {
	var q model.PostListQuery
	if !util.BindQuery(c, &q) {
		return
	}
	list, err := h.publish.ListPending(c.Request.Context(), q.Page, q.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"list": list, "page": q.Page})
}

// Approve POST /api/mgt/moderation/post/:pid/approve
func (h *ModerationHandler) Approve(c *gin.Context) {
	pid, ok := util.ParamID(c, "pid")
	if !ok {
		return
	}
	post, err := h.publish.ApprovePost(c.Request.Context(), middleware.ActorFromContext(c), pid)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, post)
}
