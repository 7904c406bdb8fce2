package api

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/eduverse/typehub/internal/auth"
	"github.com/eduverse/typehub/internal/domain"
	"github.com/eduverse/typehub/internal/errors"
	"github.com/eduverse/typehub/internal/telemetry"
)

const claimsKey = "claims"

// Logger logs one line per request and counts it by route and status.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		telemetry.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()

		level := slog.LevelInfo
		if status >= 500 {
			level = slog.LevelError
		}
		slog.Log(c.Request.Context(), level, "api: request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"took", time.Since(start),
			"ip", c.ClientIP(),
		)
	}
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if t, found := strings.CutPrefix(h, "Bearer "); found {
		return strings.TrimSpace(t)
	}
	return ""
}

func (a *API) authenticate(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		a.fail(c, errors.New(errors.CodeUnauthenticated, errors.WithMessagef("missing bearer token")))
		return
	}

	claims, err := a.tokens.Validate(token)
	if err != nil {
		a.fail(c, err)
		return
	}

	c.Set(claimsKey, claims)
	c.Next()
}

// optionalAuth attaches the caller's claims when a valid token is present and
// lets anonymous requests through.
func (a *API) optionalAuth(c *gin.Context) {
	if token := bearerToken(c); token != "" {
		if claims, err := a.tokens.Validate(token); err == nil {
			c.Set(claimsKey, claims)
		}
	}
	c.Next()
}

func (a *API) requireAdmin(c *gin.Context) {
	if claims := claimsOf(c); claims == nil || claims.Role != domain.RoleAdmin {
		a.fail(c, errors.New(errors.CodePermissionDenied, errors.WithMessagef("admin role required")))
		return
	}
	c.Next()
}

func claimsOf(c *gin.Context) *auth.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

// userID returns the authenticated user's id, empty for anonymous requests.
func userID(c *gin.Context) string {
	if claims := claimsOf(c); claims != nil {
		return claims.Subject
	}
	return ""
}

// rateLimit allows limit requests per client IP within each window. Requests
// pass through when redis is unavailable.
func (a *API) rateLimit(name string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := fmt.Sprintf("%s:ratelimit:%s:%s", a.prefix, name, c.ClientIP())

		// The window is opened with its TTL in the same transaction as the
		// increment, so a counter never exists without an expiry.
		var incr *redis.IntCmd
		_, err := a.redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.SetNX(ctx, key, 0, window)
			incr = p.Incr(ctx, key)
			return nil
		})
		if err != nil {
			slog.WarnContext(ctx, "api: rate limit unavailable", "key", key, "error", err)
			c.Next()
			return
		}

		if incr.Val() > int64(limit) {
			a.fail(c, errors.New(errors.CodeResourceExhausted, errors.WithMessagef("too many requests, try again later")))
			return
		}

		c.Next()
	}
}
