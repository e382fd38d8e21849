package middleware

import (
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"well_bbs/internal/core/logger"
	"well_bbs/internal/pkg/apperr"
	"well_bbs/internal/pkg/response"
)

// IPWhitelistConfig IP 白名单配置
type IPWhitelistConfig struct {
	AllowIPs []string // 允许的 IP 列表（支持 CIDR）
	DenyIPs  []string // 拒绝的 IP 列表
}

type ipChecker struct {
	allowNets []*net.IPNet
	denyNets  []*net.IPNet
	allowSet  map[string]bool
	denySet   map[string]bool
}

func parseIPList(list []string) ([]*net.IPNet, map[string]bool) {
	var nets []*net.IPNet
	set := make(map[string]bool)
	for _, ip := range list {
		ip = strings.TrimSpace(ip)
		if ip == "" {
			continue
		}
		if _, n, err := net.ParseCIDR(ip); err == nil {
			nets = append(nets, n)
		} else {
			set[ip] = true
		}
	}
	return nets, set
}

func newIPChecker(cfg IPWhitelistConfig) *ipChecker {
	c := &ipChecker{}
	c.allowNets, c.allowSet = parseIPList(cfg.AllowIPs)
	c.denyNets, c.denySet = parseIPList(cfg.DenyIPs)
	return c
}

// isLocalIP 本机或内网地址
func isLocalIP(ipStr string) bool {
	if ipStr == "localhost" {
		return true
	}
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate()
}

func (c *ipChecker) denied(ipStr string) bool {
	if c.denySet[ipStr] {
		return true
	}
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, n := range c.denyNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func (c *ipChecker) allowed(ipStr string) bool {
	if c.allowSet[ipStr] {
		return true
	}
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, n := range c.allowNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func (c *ipChecker) empty() bool {
	return len(c.allowSet) == 0 && len(c.allowNets) == 0 && len(c.denySet) == 0 && len(c.denyNets) == 0
}

func denyIP(c *gin.Context) {
	response.Error(c, apperr.Forbidden(apperr.CodeForbidden, "access denied: IP not in whitelist"))
}

// PublicWhitelistMW 公共接口 IP 过滤
// - 本地/内网 IP 直接放行
// - 黑名单优先；配置了白名单时外网 IP 需在白名单中
func PublicWhitelistMW(cfg IPWhitelistConfig) gin.HandlerFunc {
	checker := newIPChecker(cfg)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if isLocalIP(clientIP) || checker.empty() {
			c.Next()
			return
		}
		if checker.denied(clientIP) {
			logger.Warn("public IP blocked by deny list",
				logger.String("ip", clientIP),
				logger.String("path", c.Request.URL.Path))
			denyIP(c)
			return
		}
		if len(checker.allowSet) > 0 || len(checker.allowNets) > 0 {
			if !checker.allowed(clientIP) {
				logger.Warn("public IP blocked by whitelist",
					logger.String("ip", clientIP),
					logger.String("path", c.Request.URL.Path))
				denyIP(c)
				return
			}
		}
		c.Next()
	}
}

// AdminWhitelistMW 管理接口 IP 白名单，仅本地/内网与显式白名单可访问
func AdminWhitelistMW(cfg IPWhitelistConfig) gin.HandlerFunc {
	checker := newIPChecker(cfg)
	admitted := func(ip string) bool {
		if ip == "" || checker.denied(ip) {
			return false
		}
		return isLocalIP(ip) || checker.allowed(ip)
	}

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		realIP := c.GetHeader("X-Real-IP")

		if admitted(realIP) || admitted(clientIP) {
			c.Next()
			return
		}

		logger.Warn("admin access denied: IP not in whitelist",
			logger.String("ip", clientIP),
			logger.String("real_ip", realIP),
			logger.String("path", c.Request.URL.Path))
		denyIP(c)
	}
}

// IPLimiter 滑动窗口 IP 频率限制器
type IPLimiter struct {
	mu     sync.Mutex
	visits map[string][]time.Time
	limit  int
	window time.Duration
	clock  clockwork.Clock
}

// NewIPLimiter 创建 IP 限制器；limit <= 0 时不限制
func NewIPLimiter(limit int, window time.Duration, clock clockwork.Clock) *IPLimiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &IPLimiter{
		visits: make(map[string][]time.Time),
		limit:  limit,
		window: window,
		clock:  clock,
	}
}

// Allow 检查是否允许访问
func (l *IPLimiter) Allow(ip string) bool {
	if l.limit <= 0 {
		return true
	}
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	valid := l.visits[ip][:0]
	for _, ts := range l.visits[ip] {
		if now.Sub(ts) < l.window {
			valid = append(valid, ts)
		}
	}
	if len(valid) >= l.limit {
		l.visits[ip] = valid
		return false
	}
	l.visits[ip] = append(valid, now)
	return true
}

// Sweep 清理窗口外的记录
func (l *IPLimiter) Sweep() {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, ts := range l.visits {
		if len(ts) == 0 || now.Sub(ts[len(ts)-1]) >= l.window {
			delete(l.visits, ip)
		}
	}
}

// RateLimitMW 频率限制中间件
func RateLimitMW(limiter *IPLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !limiter.Allow(ip) {
			logger.Warn("rate limit exceeded",
				logger.String("ip", ip),
				logger.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(429, response.ErrorBody{Error: "too many requests", Code: 429})
			return
		}
		c.Next()
	}
}
