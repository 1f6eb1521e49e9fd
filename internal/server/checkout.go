package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	paymentdomain "github.com/turuturu/turuturu/internal/payment/domain"
	profiledomain "github.com/turuturu/turuturu/internal/profile/domain"
)

// maxCheckoutAmount caps the legacy ad-hoc amount path, in whole BRL.
const maxCheckoutAmount = 10000

type checkoutRequest struct {
	PriceID     string `json:"priceId"`
	Amount      int64  `json:"amount"`
	Credits     int64  `json:"credits"`
	CustomerID  string `json:"customerId"`
	PackageName string `json:"packageName"`
}

func (s *Server) CreateCheckoutSession(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	customerID := strings.TrimSpace(req.CustomerID)
	if _, err := uuid.Parse(customerID); err != nil {
		AbortWithError(c, profiledomain.ErrInvalidID)
		return
	}
	if customerID != principal.UserID && !principal.IsAdmin {
		AbortWithError(c, ErrForbidden)
		return
	}
	if req.Credits <= 0 || strings.TrimSpace(req.PackageName) == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if req.PriceID == "" && (req.Amount <= 0 || req.Amount > maxCheckoutAmount) {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	// The profile must exist before we take money against it.
	if _, err := s.profileSvc.GetByID(c.Request.Context(), customerID); err != nil {
		AbortWithError(c, err)
		return
	}

	session, err := s.gateway.CreateCheckoutSession(c.Request.Context(), paymentdomain.CheckoutRequest{
		UserID:      customerID,
		PackageName: strings.TrimSpace(req.PackageName),
		Credits:     req.Credits,
		PriceID:     strings.TrimSpace(req.PriceID),
		AmountMinor: req.Amount * 100,
		Currency:    "brl",
		SuccessURL:  fmt.Sprintf("%s/dashboard?payment=success&session_id={CHECKOUT_SESSION_ID}", s.cfg.AppURL),
		CancelURL:   fmt.Sprintf("%s/comprar-creditos?payment=cancelled", s.cfg.AppURL),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"sessionId": session.SessionID,
		"url":       session.URL,
	})
}
