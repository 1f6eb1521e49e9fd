package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/turuturu/turuturu/internal/payment/domain"
	webhookdomain "github.com/turuturu/turuturu/internal/webhook/domain"
	"go.uber.org/zap"
)

// HandleWebhook verifies the raw body signature before any parsing;
// the signature covers exact bytes.
func (s *Server) HandleWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.gateway.Verify(c.Request.Context(), payload, c.Request.Header); err != nil {
		s.log.Warn("webhook signature rejected", zap.String("ip", c.ClientIP()))
		AbortWithError(c, err)
		return
	}

	event, err := s.gateway.Parse(c.Request.Context(), payload)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
		AbortWithError(c, err)
		return
	}

	result, err := s.webhookSvc.Process(c.Request.Context(), event)
	if err != nil {
		if errors.Is(err, webhookdomain.ErrUnknownUser) {
			AbortWithError(c, paymentdomain.ErrInvalidMetadata)
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"received": true,
		"outcome":  result.Outcome,
	})
}
