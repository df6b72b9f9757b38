// Package gateway implements the edge reverse proxy: it routes API traffic
// to the user and content services and applies a coarse per-IP throttle
// before requests ever reach the distributed limiters behind it. It holds
// no auth logic; bearer tokens pass through untouched.
package gateway

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/osvitahub/backend/internal/middleware"
	"github.com/osvitahub/backend/internal/model"
)

// Throttle is a local per-client token bucket. It is deliberately
// in-process: the edge only needs rough protection, the precise quotas live
// in the services' Redis-backed limiters.
type Throttle struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewThrottle allows roughly requests hits per window per client.
func NewThrottle(requests int, window time.Duration) *Throttle {
	t := &Throttle{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(float64(requests) / window.Seconds()),
		burst:    requests,
	}
	go t.sweep()
	return t
}

// Allow reports whether the client identified by ip may proceed.
func (t *Throttle) Allow(ip string) bool {
	t.mu.Lock()
	v, ok := t.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	t.mu.Unlock()

	return v.limiter.Allow()
}

func (t *Throttle) sweep() {
	for range time.Tick(time.Minute) {
		t.mu.Lock()
		for ip, v := range t.visitors {
			if time.Since(v.lastSeen) > 3*time.Minute {
				delete(t.visitors, ip)
			}
		}
		t.mu.Unlock()
	}
}

// Middleware rejects over-quota clients with the shared 429 envelope.
func (t *Throttle) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !t.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, model.Fail("Too many requests"))
			return
		}
		c.Next()
	}
}

// Proxy forwards the request to target, preserving method, headers, body
// and query string. The matched wildcard path is appended to prefix.
func Proxy(target, prefix string, client *http.Client, logger *slog.Logger) gin.HandlerFunc {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return func(c *gin.Context) {
		url := target + prefix + c.Param("path")
		if q := c.Request.URL.RawQuery; q != "" {
			url += "?" + q
		}

		req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, url, c.Request.Body)
		if err != nil {
			c.JSON(http.StatusInternalServerError, model.Fail("Failed to create upstream request"))
			return
		}
		req.Header = c.Request.Header.Clone()

		resp, err := client.Do(req)
		if err != nil {
			logger.Warn("upstream unreachable", "target", target, "error", err)
			c.JSON(http.StatusBadGateway, model.Fail("Service unavailable"))
			return
		}
		defer resp.Body.Close()

		for key, values := range resp.Header {
			for _, value := range values {
				c.Writer.Header().Add(key, value)
			}
		}
		c.Status(resp.StatusCode)
		_, _ = io.Copy(c.Writer, resp.Body)
	}
}

// Deps carries the gateway router's configuration.
type Deps struct {
	UserServiceURL    string
	ContentServiceURL string
	Throttle          *Throttle
	Logger            *slog.Logger
	CORSOrigins       []string
	Client            *http.Client
}

// NewRouter assembles the gateway: logging, CORS and the edge throttle in
// front of plain path-prefix forwarding.
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.CORS(deps.CORSOrigins))
	r.Use(deps.Throttle.Middleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, model.OK(gin.H{"service": "gateway", "status": "ok"}))
	})

	r.Any("/api/users/*path", Proxy(strings.TrimSuffix(deps.UserServiceURL, "/"), "/api/users", deps.Client, deps.Logger))
	r.Any("/api/content/*path", Proxy(strings.TrimSuffix(deps.ContentServiceURL, "/"), "/api/content", deps.Client, deps.Logger))

	return r
}
