package v1

import (
	"github.com/gin-gonic/gin"
	"well_bbs/internal/model"
	"well_bbs/internal/pkg/response"
	"well_bbs/internal/pkg/util"
	"well_bbs/internal/service"
)

// UserHandler User API Handler
type UserHandler struct {
	svc *service.UserService
}

// NewUserHandler 创建 UserHandler
func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// RefreshRequest 刷新 token 请求
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Login POST /api/v1/login
func (h *UserHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if !util.BindJSON(c, &req) {
		return
	}
	resp, err := h.svc.Login(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, resp)
}

// Register POST /api/v1/register
func (h *UserHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if !util.BindJSON(c, &req) {
		return
	}
	resp, err := h.svc.Register(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resp)
}

// Refresh POST /api/v1/refresh
func (h *UserHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if !util.BindJSON(c, &req) {
		return
	}
	resp, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, resp)
}

// GetUser GET /api/v1/user/:uid
func (h *UserHandler) GetUser(c *gin.Context) {
	uid, ok := util.ParamID(c, "uid")
	if !ok {
		return
	}
	dto, err := h.svc.GetUserByID(c.Request.Context(), uid)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto)
}
