package mgt

import (
	"github.com/gin-gonic/gin"
	"well_bbs/internal/model"
	"well_bbs/internal/pkg/response"
	"well_bbs/internal/pkg/util"
	"well_bbs/internal/service"
)

// UserMgtHandler 用户管理
type UserMgtHandler struct {
	svc *service.UserService
}

// NewUserMgtHandler 创建用户管理处理器
func NewUserMgtHandler(svc *service.UserService) *UserMgtHandler {
	return &UserMgtHandler{svc: svc}
}

// RoleRequest 修改角色
type RoleRequest struct {
	Role model.Role `json:"role" binding:"required"`
}

// StatusRequest 启用/禁用，0 正常 1 禁用
type StatusRequest struct {
	Status *int `json:"status" binding:"required,oneof=0 1"`
}

// SetRole PUT /api/mgt/user/:uid/role
func (h *UserMgtHandler) SetRole(c *gin.Context) {
	uid, ok := util.ParamID(c, "uid")
	if !ok {
		return
	}
	var req RoleRequest
	if !util.BindJSON(c, &req) {
		return
	}
	if err := h.svc.SetRole(c.Request.Context(), uid, req.Role); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// SetStatus PUT /api/mgt/user/:uid/status
func (h *UserMgtHandler) SetStatus(c *gin.Context) {
	uid, ok := util.ParamID(c, "uid")
	if !ok {
		return
	}
	var req StatusRequest
	if !util.BindJSON(c, &req) {
		return
	}
	if err := h.svc.SetStatus(c.Request.Context(), uid, *req.Status); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
