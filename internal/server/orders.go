package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	musicdomain "github.com/turuturu/turuturu/internal/music/domain"
	orderdomain "github.com/turuturu/turuturu/internal/order/domain"
	"go.uber.org/zap"
)

type submitOrderRequest struct {
	Prompt     string `json:"prompt"`
	CustomerID string `json:"customerId"`
}

type updateOrderRequest struct {
	Status    string `json:"status"`
	UpdatedBy string `json:"updatedBy"`
}

type orderResponse struct {
	orderdomain.Order
	MusicFiles []musicdomain.MusicFile `json:"musicFiles,omitempty"`
}

func (s *Server) SubmitOrder(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req submitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	customerID := strings.TrimSpace(req.CustomerID)
	if _, err := uuid.Parse(customerID); err != nil {
		AbortWithError(c, orderdomain.ErrInvalidCustomer)
		return
	}
	if customerID != principal.UserID && !principal.IsAdmin {
		AbortWithError(c, ErrForbidden)
		return
	}

	result, err := s.orderSvc.Submit(c.Request.Context(), orderdomain.SubmitRequest{
		CustomerID:     customerID,
		Prompt:         req.Prompt,
		IdempotencyKey: strings.TrimSpace(c.GetHeader("Idempotency-Key")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := gin.H{
		"success":          true,
		"order":            result.Order,
		"remainingCredits": result.RemainingCredits,
	}
	if result.NeedsPayment {
		resp["needsPayment"] = true
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) ListOrders(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if c.Query("isAdmin") == "true" {
		if !principal.IsAdmin {
			AbortWithError(c, ErrForbidden)
			return
		}
		orders, err := s.orderSvc.ListAll(c.Request.Context())
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "orders": s.withMusicFiles(c, orders)})
		return
	}

	customerID := strings.TrimSpace(c.Query("customerId"))
	if customerID == "" {
		customerID = principal.UserID
	}
	if customerID != principal.UserID && !principal.IsAdmin {
		AbortWithError(c, ErrForbidden)
		return
	}

	orders, err := s.orderSvc.ListByCustomer(c.Request.Context(), customerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "orders": s.withMusicFiles(c, orders)})
}

func (s *Server) GetOrder(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	order, err := s.orderSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if order.CustomerID != principal.UserID && !principal.IsAdmin {
		// 404, not 403: do not reveal that the order exists.
		AbortWithError(c, ErrNotFound)
		return
	}

	files, err := s.musicSvc.ListByOrder(c.Request.Context(), order.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"order":   orderResponse{Order: order, MusicFiles: files},
	})
}

func (s *Server) UpdateOrderStatus(c *gin.Context) {
	var req updateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	status, ok := orderdomain.ParseStatus(strings.TrimSpace(req.Status))
	if !ok {
		AbortWithError(c, orderdomain.ErrInvalidStatus)
		return
	}

	order, err := s.orderSvc.UpdateStatus(c.Request.Context(), orderdomain.UpdateStatusRequest{
		OrderID:   c.Param("id"),
		Status:    status,
		UpdatedBy: strings.TrimSpace(req.UpdatedBy),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

func (s *Server) withMusicFiles(c *gin.Context, orders []orderdomain.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		files, err := s.musicSvc.ListByOrder(c.Request.Context(), order.ID)
		if err != nil {
			// The listing still serves without its deliveries.
			s.log.Warn("music file lookup failed", zap.String("order_id", order.ID), zap.Error(err))
			files = nil
		}
		out = append(out, orderResponse{Order: order, MusicFiles: files})
	}
	return out
}
