package v1

import (
	"github.com/gin-gonic/gin"
	"well_bbs/internal/middleware"
	"well_bbs/internal/model"
	"well_bbs/internal/pkg/response"
	"well_bbs/internal/pkg/util"
	"well_bbs/internal/service"
)

// PostHandler Post API Handler
type PostHandler struct {
	publish *service.PublishService
}

// NewPostHandler 创建 PostHandler
func NewPostHandler(publish *service.PublishService) *PostHandler {
	return &PostHandler{publish: publish}
}

// Create POST /api/v1/posts
func (h *PostHandler) Create(c *gin.Context) {
	var req model.CreatePostRequest
	if !util.BindJSON(c, &req) {
		return
	}

	post, err := h.publish.CreatePost(c.Request.Context(), middleware.ActorFromContext(c), service.CreatePostInput{
		ThreadID:  req.ThreadID,
		Content:   req.Content,
		ReplyToID: req.ReplyToID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"post": post})
}

// Edit PUT /api/v1/post/:pid
func (h *PostHandler) Edit(c *gin.Context) {
	pid, ok := util.ParamID(c, "pid")
	if !ok {
		return
	}
	var req model.EditPostRequest
	if !util.BindJSON(c, &req) {
		return
	}

	post, err := h.publish.EditPost(c.Request.Context(), middleware.ActorFromContext(c), pid, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, post)
}

// Delete DELETE /api/v1/post/:pid
func (h *PostHandler) Delete(c *gin.Context) {
	pid, ok := util.ParamID(c, "pid")
	if !ok {
		return
	}
	if err := h.publish.DeletePost(c.Request.Context(), middleware.ActorFromContext(c), pid); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
