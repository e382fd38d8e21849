package v1

import (
	"github.com/gin-gonic/gin"
	"well_bbs/internal/middleware"
	"well_bbs/internal/model"
	"well_bbs/internal/pkg/response"
	"well_bbs/internal/pkg/util"
	"well_bbs/internal/service"
)

// NotificationHandler 通知、偏好与主题订阅
type NotificationHandler struct {
	svc *service.NotificationService
}

// NewNotificationHandler 创建 NotificationHandler
func NewNotificationHandler(svc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// List GET /api/v1/notifications?unread=true
func (h *NotificationHandler) List(c *gin.Context) {
	var q model.PostListQuery
	if !util.BindQuery(c, &q) {
		return
	}
	actor := middleware.ActorFromContext(c)

	page, err := h.svc.List(c.Request.Context(), actor.Uid, util.QueryBool(c, "unread"), q.Page, q.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, page)
}

// MarkRead POST /api/v1/notification/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := util.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.MarkRead(c.Request.Context(), middleware.ActorFromContext(c).Uid, id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// MarkAllRead POST /api/v1/notifications/read
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	if err := h.svc.MarkAllRead(c.Request.Context(), middleware.ActorFromContext(c).Uid); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Preferences GET /api/v1/notifications/preference
func (h *NotificationHandler) Preferences(c *gin.Context) {
	prefs, err := h.svc.ListPreferences(c.Request.Context(), middleware.ActorFromContext(c).Uid)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, prefs)
}

// SetPreference PUT /api/v1/notifications/preference
func (h *NotificationHandler) SetPreference(c *gin.Context) {
	var req model.PreferenceRequest
	if !util.BindJSON(c, &req) {
		return
	}
	if err := h.svc.SetPreference(c.Request.Context(), middleware.ActorFromContext(c).Uid, &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Subscribe POST /api/v1/thread/:tid/subscribe
func (h *NotificationHandler) Subscribe(c *gin.Context) {
	tid, ok := util.ParamID(c, "tid")
	if !ok {
		return
	}
	if err := h.svc.Subscribe(c.Request.Context(), middleware.ActorFromContext(c).Uid, tid); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Unsubscribe DELETE /api/v1/thread/:tid/subscribe
func (h *NotificationHandler) Unsubscribe(c *gin.Context) {
	tid, ok := util.ParamID(c, "tid")
	if !ok {
		return
	}
	if err := h.svc.Unsubscribe(c.Request.Context(), middleware.ActorFromContext(c).Uid, tid); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
