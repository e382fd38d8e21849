package mgt

import (
	"github.com/gin-gonic/gin"
	"well_bbs/internal/pkg/response"
	"well_bbs/internal/pkg/util"
	"well_bbs/internal/service"
)

// ThreadHandler Thread Management API Handler
type ThreadHandler struct {
	svc *service.ThreadService
}

// NewThreadHandler 创建ThreadHandler
func NewThreadHandler(svc *service.ThreadService) *ThreadHandler {
	return &ThreadHandler{svc: svc}
}

// Update PUT /api/mgt/thread/:tid
func (h *ThreadHandler) Update(c *gin.Context) {
	tid, ok := util.ParamID(c, "tid")
	if !ok {
		return
	}
	var req service.UpdateThreadInput
	if !util.BindJSON(c, &req) {
		return
	}
	dto, err := h.svc.Update(c.Request.Context(), tid, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto)
}
