package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"

	"well_bbs/internal/api/mgt"
	v1 "well_bbs/internal/api/v1"
	"well_bbs/internal/core/config"
	"well_bbs/internal/middleware"
	"well_bbs/internal/model"
	"well_bbs/internal/service"
)

// RouterDeps 路由依赖
type RouterDeps struct {
	Security config.SecurityConfig
	Services *service.Container
	Warmer   mgt.Warmer
	Clock    clockwork.Clock
}

// NewRouter 创建带公共中间件的路由，注册 /api/v1 与 /api/mgt
func NewRouter(d RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.RateLimitMW(middleware.NewIPLimiter(d.Security.RateLimit, time.Minute, d.Clock)))
	router.Use(middleware.CORSMiddleware(d.Security.CORS))

	Register(router, d)
	return router
}

// Register 注册业务路由
func Register(router gin.IRouter, d RouterDeps) {
	svc := d.Services
	whitelist := middleware.IPWhitelistConfig{AllowIPs: d.Security.AllowIPs, DenyIPs: d.Security.DenyIPs}
	optional := middleware.AuthMW(svc.Users, false)
	required := middleware.AuthMW(svc.Users, true)

	postV1 := v1.NewPostHandler(svc.Publish)
	threadV1 := v1.NewThreadHandler(svc.Threads, svc.Publish)
	forumV1 := v1.NewForumHandler(svc.Forums)
	notifyV1 := v1.NewNotificationHandler(svc.Notifications)
	userV1 := v1.NewUserHandler(svc.Users)

	// Public API (v1) - Public 白名单（本地/内网跳过）
	v1Group := router.Group("/api/v1")
	v1Group.Use(middleware.PublicWhitelistMW(whitelist))
	{
		v1Group.POST("/login", userV1.Login)
		v1Group.POST("/register", userV1.Register)
		v1Group.POST("/refresh", userV1.Refresh)
		v1Group.GET("/user/:uid", userV1.GetUser)

		v1Group.GET("/forums", forumV1.List)
		v1Group.GET("/forums/tree", forumV1.Tree)
		v1Group.GET("/forum/:fid", forumV1.Get)

		v1Group.GET("/threads", threadV1.List)
		v1Group.GET("/thread/:tid", threadV1.Get)
		v1Group.GET("/thread/:tid/posts", threadV1.Posts)

		// 可选鉴权：游客由发布闸门以 403 拒绝，guest_posting 只能进一步收紧
		v1Group.POST("/threads", optional, threadV1.Create)
		v1Group.POST("/posts", optional, postV1.Create)
		v1Group.PUT("/post/:pid", optional, postV1.Edit)
		v1Group.DELETE("/post/:pid", optional, postV1.Delete)

		v1Group.POST("/thread/:tid/subscribe", required, notifyV1.Subscribe)
		v1Group.DELETE("/thread/:tid/subscribe", required, notifyV1.Unsubscribe)
		v1Group.GET("/notifications", required, notifyV1.List)
		v1Group.POST("/notifications/read", required, notifyV1.MarkAllRead)
		v1Group.POST("/notification/:id/read", required, notifyV1.MarkRead)
		v1Group.GET("/notifications/preference", required, notifyV1.Preferences)
		v1Group.PUT("/notifications/preference", required, notifyV1.SetPreference)
	}

	moderationMgt := mgt.NewModerationHandler(svc.Moderation, svc.Publish)
	forumMgt := mgt.NewForumMgtHandler(svc.Forums)
	groupMgt := mgt.NewGroupHandler(svc.Groups)
	threadMgt := mgt.NewThreadHandler(svc.Threads)
	userMgt := mgt.NewUserMgtHandler(svc.Users)
	cacheMgt := mgt.NewCacheHandler(svc.Moderation, d.Warmer, svc.Threads, svc.Forums, svc.Users)

	// Management API (mgt) - 强制 IP 白名单
	mgtGroup := router.Group("/api/mgt")
	mgtGroup.Use(middleware.AdminWhitelistMW(whitelist), required)

	// 审核：版主可处理待审帖，具体版块权限在服务层校验
	staff := mgtGroup.Group("", middleware.RequireRole(model.RoleModerator, model.RoleAdmin))
	{
		staff.GET("/moderation/pending", moderationMgt.Pending)
		staff.POST("/moderation/post/:pid/approve", moderationMgt.Approve)
	}

	admin := mgtGroup.Group("", middleware.RequireRole(model.RoleAdmin))
	{
		admin.GET("/moderation/settings", moderationMgt.GetSettings)
		admin.PUT("/moderation/settings", moderationMgt.UpdateSettings)

		admin.POST("/forum", forumMgt.Create)
		admin.PUT("/forum/:fid", forumMgt.Update)
		admin.DELETE("/forum/:fid", forumMgt.Delete)
		admin.POST("/forum/:fid/moderator", forumMgt.AddModerator)
		admin.DELETE("/forum/:fid/moderator/:uid", forumMgt.RemoveModerator)

		admin.POST("/group", groupMgt.Create)
		admin.POST("/group/:gid/member", groupMgt.AddMember)
		admin.DELETE("/group/:gid/member/:uid", groupMgt.RemoveMember)
		admin.GET("/user/:uid/groups", groupMgt.ListByUser)

		admin.PUT("/thread/:tid", threadMgt.Update)

		admin.PUT("/user/:uid/role", userMgt.SetRole)
		admin.PUT("/user/:uid/status", userMgt.SetStatus)

		admin.POST("/cache/flush", cacheMgt.Flush)
		admin.POST("/cache/prewarm", cacheMgt.Prewarm)
	}
}
