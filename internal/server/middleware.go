package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/turuturu/turuturu/internal/identity"
	"go.uber.org/zap"
)

const contextPrincipalKey = "principal"

// SecurityHeaders applies the fixed response-header policy to every
// route, including errors.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Content-Security-Policy", "default-src 'self'")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Next()
	}
}

// RequestLogger emits one structured line per request.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}

func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			s.logAuthFailure(c, "missing bearer token")
			AbortWithError(c, ErrUnauthorized)
			return
		}

		principal, err := s.verifier.Verify(c.Request.Context(), token)
		if err != nil {
			s.logAuthFailure(c, "verification failed")
			AbortWithError(c, err)
			return
		}

		c.Set(contextPrincipalKey, principal)
		c.Next()
	}
}

func (s *Server) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := currentPrincipal(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if !principal.IsAdmin {
			s.logAuthFailure(c, "admin required")
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

// RateLimit guards a bucket keyed by client IP. A broken limiter
// backend fails open: availability over throttling.
func (s *Server) RateLimit(bucket string, perMinute int) gin.HandlerFunc {
	rate := float64(perMinute) / 60.0
	return func(c *gin.Context) {
		key := fmt.Sprintf("ratelimit:%s:%s", bucket, c.ClientIP())
		result, err := s.limiter.Allow(c.Request.Context(), key, rate, perMinute)
		if err != nil {
			s.log.Warn("rate limiter unavailable", zap.String("bucket", bucket), zap.Error(err))
			c.Next()
			return
		}
		if !result.Allowed {
			s.obsMetrics.RecordRateLimited(bucket)
			retryAfter := int(result.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

func (s *Server) logAuthFailure(c *gin.Context, reason string) {
	s.log.Warn("auth rejected",
		zap.String("reason", reason),
		zap.String("path", c.FullPath()),
		zap.String("ip", c.ClientIP()),
		zap.String("user_agent", c.Request.UserAgent()),
	)
}

func currentPrincipal(c *gin.Context) (identity.Principal, bool) {
	value, ok := c.Get(contextPrincipalKey)
	if !ok {
		return identity.Principal{}, false
	}
	principal, ok := value.(identity.Principal)
	return principal, ok
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
