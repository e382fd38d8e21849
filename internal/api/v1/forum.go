package v1

import (
	"github.com/gin-gonic/gin"
	"well_bbs/internal/pkg/response"
	"well_bbs/internal/pkg/util"
	"well_bbs/internal/service"
)

// ForumHandler Forum API Handler
type ForumHandler struct {
	svc *service.ForumService
}

// NewForumHandler 创建 ForumHandler
func NewForumHandler(svc *service.ForumService) *ForumHandler {
	return &ForumHandler{svc: svc}
}

// List GET /api/v1/forums
func (h *ForumHandler) List(c *gin.Context) {
	list, err := h.svc.GetAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

// Tree GET /api/v1/forums/tree
func (h *ForumHandler) Tree(c *gin.Context) {
	tree, err := h.svc.GetTree(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, tree)
}

// Get GET /api/v1/forum/:fid
func (h *ForumHandler) Get(c *gin.Context) {
	fid, ok := util.ParamID(c, "fid")
	if !ok {
		return
	}

	dto, err := h.svc.Get(c.Request.Context(), fid)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto)
}
