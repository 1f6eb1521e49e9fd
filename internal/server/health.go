package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) Health(c *gin.Context) {
	start := time.Now()
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	elapsed := time.Since(start)

	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"version": s.cfg.AppVersion,
			"checks": gin.H{
				"database": gin.H{"status": "down", "error": err.Error()},
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": s.cfg.AppVersion,
		"checks": gin.H{
			"database": gin.H{
				"status":         "up",
				"responseTimeMs": elapsed.Milliseconds(),
			},
		},
	})
}
