package v1

import (
	"github.com/gin-gonic/gin"
	"well_bbs/internal/core/logger"
	"well_bbs/internal/middleware"
	"well_bbs/internal/model"
	"well_bbs/internal/pkg/response"
	"well_bbs/internal/pkg/util"
	"well_bbs/internal/service"
)

// ThreadHandler Thread API Handler
type ThreadHandler struct {
	svc     *service.ThreadService
	publish *service.PublishService
}

// NewThreadHandler 创建ThreadHandler
func NewThreadHandler(svc *service.ThreadService, publish *service.PublishService) *ThreadHandler {
	return &ThreadHandler{svc: svc, publish: publish}
}

// Create POST /api/v1/threads
func (h *ThreadHandler) Create(c *gin.Context) {
	var req model.CreateThreadRequest
	if !util.BindJSON(c, &req) {
		return
	}

	thread, err := h.publish.CreateThread(c.Request.Context(), middleware.ActorFromContext(c), service.CreateThreadInput{
		ForumID: req.SubjectID,
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"thread": thread})
}

// List GET /api/v1/threads
func (h *ThreadHandler) List(c *gin.Context) {
	var q model.ThreadListQuery
	if !util.BindQuery(c, &q) {
		return
	}

	page, err := h.svc.List(c.Request.Context(), &q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, page)
}

// Get GET /api/v1/thread/:tid
func (h *ThreadHandler) Get(c *gin.Context) {
	tid, ok := util.ParamID(c, "tid")
	if !ok {
		return
	}

	dto, err := h.svc.Get(c.Request.Context(), tid)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.svc.IncViews(c.Request.Context(), tid); err != nil {
		logger.Warn("failed to count thread view",
			logger.Int64("tid", tid),
			logger.ErrorField(err))
	}
	response.Success(c, dto)
}

// Posts GET /api/v1/thread/:tid/posts
func (h *ThreadHandler) Posts(c *gin.Context) {
	tid, ok := util.ParamID(c, "tid")
	if !ok {
		return
	}
	var q model.PostListQuery
	if !util.BindQuery(c, &q) {
		return
	}

	page, err := h.svc.ListPosts(c.Request.Context(), tid, &q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, page)
}
