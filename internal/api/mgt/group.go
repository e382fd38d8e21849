package mgt

import (
	"github.com/gin-gonic/gin"
	"well_bbs/internal/model"
	"well_bbs/internal/pkg/response"
	"well_bbs/internal/pkg/util"
	"well_bbs/internal/service"
)

// GroupHandler 用户组管理
type GroupHandler struct {
	svc *service.GroupService
}

// NewGroupHandler 创建 GroupHandler
func NewGroupHandler(svc *service.GroupService) *GroupHandler {
	return &GroupHandler{svc: svc}
}

// Create POST /api/mgt/group
func (h *GroupHandler) Create(c *gin.Context) {
	var req model.CreateGroupRequest
	if !util.BindJSON(c, &req) {
		return
	}
	g, err := h.svc.Create(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, g)
}

// AddMember POST /api/mgt/group/:gid/member
func (h *GroupHandler) AddMember(c *gin.Context) {
	gid, ok := util.ParamID(c, "gid")
	if !ok {
		return
	}
	var req model.MemberRequest
	if !util.BindJSON(c, &req) {
		return
	}
	if err := h.svc.AddMember(c.Request.Context(), gid, req.Uid); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// RemoveMember DELETE /api/mgt/group/:gid/member/:uid
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	gid, ok := util.ParamID(c, "gid")
	if !ok {
		return
	}
	uid, ok := util.ParamID(c, "uid")
	if !ok {
		return
	}
	if err := h.svc.RemoveMember(c.Request.Context(), gid, uid); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// ListByUser GET /api/mgt/user/:uid/groups
func (h *GroupHandler) ListByUser(c *gin.Context) {
	uid, ok := util.ParamID(c, "uid")
	if !ok {
		return
	}
	groups, err := h.svc.ListByUser(c.Request.Context(), uid)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, groups)
}
