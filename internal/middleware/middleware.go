package middleware

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"well_bbs/internal/core/config"
	"well_bbs/internal/core/logger"
	"well_bbs/internal/model"
	"well_bbs/internal/pkg/apperr"
	"well_bbs/internal/pkg/response"
)

const (
	// HeaderRequestID 请求 ID 头
	HeaderRequestID = "X-Request-Id"

	requestIDKey = "request_id"
	actorKey     = "actor"
)

// RequestIDMiddleware 为每个请求分配 ID，优先沿用上游传入的值
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// RequestID 当前请求 ID
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// LoggerMiddleware 请求日志中间件
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := []zap.Field{
			logger.String("request_id", RequestID(c)),
			logger.String("method", c.Request.Method),
			logger.String("path", path),
			logger.String("query", query),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("latency", time.Since(start)),
			logger.String("client_ip", c.ClientIP()),
		}
		if actor := ActorFromContext(c); !actor.IsGuest() {
			fields = append(fields, logger.Int64("uid", actor.Uid))
		}
		logger.Info("request", fields...)
	}
}

// RecoveryMiddleware 异常恢复中间件
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					logger.String("request_id", RequestID(c)),
					logger.String("error", fmt.Sprintf("%v", err)))
				response.InternalError(c, "internal server error")
			}
		}()
		c.Next()
	}
}

// CORSMiddleware 跨域中间件
func CORSMiddleware(corsCfg config.CORSConfig) gin.HandlerFunc {
	if !corsCfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	methods := strings.Join(corsCfg.AllowedMethods, ", ")
	headers := strings.Join(corsCfg.AllowedHeaders, ", ")
	maxAge := fmt.Sprintf("%d", corsCfg.MaxAge)
	anyOrigin := len(corsCfg.AllowedOrigins) == 0 || slices.Contains(corsCfg.AllowedOrigins, "*")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		if anyOrigin || slices.Contains(corsCfg.AllowedOrigins, origin) {
			if origin == "" && !corsCfg.AllowCredentials {
				c.Header("Access-Control-Allow-Origin", "*")
			} else if origin != "" {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
			}
		}

		c.Header("Access-Control-Allow-Methods", methods)
		c.Header("Access-Control-Allow-Headers", headers)
		c.Header("Access-Control-Allow-Credentials", fmt.Sprintf("%t", corsCfg.AllowCredentials))
		c.Header("Access-Control-Max-Age", maxAge)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// Authenticator 将 access token 解析为发帖人身份
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.Actor, error)
}

// AuthMW 鉴权中间件。required 为 false 时无 token 按游客处理，
// 但携带了无效 token 仍然拒绝
func AuthMW(auth Authenticator, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			if required {
				response.Error(c, apperr.Unauthenticated("unauthorized"))
				return
			}
			c.Set(actorKey, model.GuestActor())
			c.Next()
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			response.Error(c, apperr.Unauthenticated("invalid token format: missing 'Bearer ' prefix"))
			return
		}

		actor, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			return
		}
		if required && actor.IsGuest() {
			response.Error(c, apperr.Unauthenticated("unauthorized"))
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// ActorFromContext 当前请求的身份，未经过鉴权中间件时为游客
func ActorFromContext(c *gin.Context) *model.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(*model.Actor); ok && actor != nil {
			return actor
		}
	}
	return model.GuestActor()
}

// RequireRole 角色校验，需放在 AuthMW 之后
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFromContext(c)
		if actor.IsGuest() {
			response.Error(c, apperr.Unauthenticated("unauthorized"))
			return
		}
		if !slices.Contains(roles, actor.Role) {
			logger.Warn("role check failed",
				logger.Int64("uid", actor.Uid),
				logger.String("role", string(actor.Role)),
				logger.String("path", c.Request.URL.Path))
			response.Error(c, apperr.Forbidden(apperr.CodeForbidden, "insufficient role"))
			return
		}
		c.Next()
	}
}
