package mgt

import (
	"github.com/gin-gonic/gin"
	"well_bbs/internal/model"
	"well_bbs/internal/pkg/response"
	"well_bbs/internal/pkg/util"
	"well_bbs/internal/service"
)

// ForumMgtHandler Forum Management API Handler
type ForumMgtHandler struct {
	svc *service.ForumService
}

// NewForumMgtHandler 创建 ForumMgtHandler
func NewForumMgtHandler(svc *service.ForumService) *ForumMgtHandler {
	return &ForumMgtHandler{svc: svc}
}

// Create POST /api/mgt/forum
func (h *ForumMgtHandler) Create(c *gin.Context) {
	var req model.CreateForumRequest
	if !util.BindJSON(c, &req) {
		return
	}
	dto, err := h.svc.Create(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto)
}

// Update PUT /api/mgt/forum/:fid
func (h *ForumMgtHandler) Update(c *gin.Context) {
	fid, ok := util.ParamID(c, "fid")
	if !ok {
		return
	}
	var req model.UpdateForumRequest
	if !util.BindJSON(c, &req) {
		return
	}
	dto, err := h.svc.Update(c.Request.Context(), fid, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto)
}

// Delete DELETE /api/mgt/forum/:fid
func (h *ForumMgtHandler) Delete(c *gin.Context) {
	fid, ok := util.ParamID(c, "fid")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), fid); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// AddModerator POST /api/mgt/forum/:fid/moderator
func (h *ForumMgtHandler) AddModerator(c *gin.Context) {
	fid, ok := util.ParamID(c, "fid")
	if !ok {
		return
	}
	var req model.MemberRequest
	if !util.BindJSON(c, &req) {
		return
	}
	if err := h.svc.AddModerator(c.Request.Context(), fid, req.Uid); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// RemoveModerator DELETE /api/mgt/forum/:fid/moderator/:uid
func (h *ForumMgtHandler) RemoveModerator(c *gin.Context) {
	fid, ok := util.ParamID(c, "fid")
	if !ok {
		return
	}
	uid, ok := util.ParamID(c, "uid")
	if !ok {
		return
	}
	if err := h.svc.RemoveModerator(c.Request.Context(), fid, uid); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
