package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	creditdomain "github.com/turuturu/turuturu/internal/credit/domain"
	"github.com/turuturu/turuturu/internal/identity"
	musicdomain "github.com/turuturu/turuturu/internal/music/domain"
	orderdomain "github.com/turuturu/turuturu/internal/order/domain"
	paymentdomain "github.com/turuturu/turuturu/internal/payment/domain"
	profiledomain "github.com/turuturu/turuturu/internal/profile/domain"
	"github.com/turuturu/turuturu/pkg/db"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
	ErrUpstreamFailed     = errors.New("upstream_failed")
)

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ErrorHandlingMiddleware maps the last error pushed onto the context
// to the wire shape. Handlers abort with AbortWithError and never
// write error JSON themselves.
func ErrorHandlingMiddleware(production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, resp := mapError(lastErr.Err)
		if status == http.StatusInternalServerError && production {
			resp.Details = ""
		}
		c.AbortWithStatusJSON(status, resp)
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorResponse) {
	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorResponse{Error: "validation_error", Details: err.Error()}
	case errors.Is(err, ErrUnauthorized), errors.Is(err, identity.ErrUnauthenticated):
		return http.StatusUnauthorized, errorResponse{Error: "unauthorized"}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorResponse{Error: "forbidden"}
	case isNotFoundError(err):
		return http.StatusNotFound, errorResponse{Error: "not_found"}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorResponse{Error: "rate_limited"}
	case errors.Is(err, identity.ErrUnavailable), errors.Is(err, paymentdomain.ErrUnavailable), errors.Is(err, ErrUpstreamFailed):
		return http.StatusBadGateway, errorResponse{Error: "upstream_failed"}
	case errors.Is(err, ErrServiceUnavailable), db.IsSerializationErr(err):
		return http.StatusServiceUnavailable, errorResponse{Error: "service_unavailable"}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal_error", Details: err.Error()}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, orderdomain.ErrInvalidPrompt),
		errors.Is(err, orderdomain.ErrPromptTooLong),
		errors.Is(err, orderdomain.ErrInvalidCustomer),
		errors.Is(err, orderdomain.ErrInvalidStatus),
		errors.Is(err, orderdomain.ErrInvalidTransition),
		errors.Is(err, orderdomain.ErrMissingMusicFile),
		errors.Is(err, creditdomain.ErrInvalidUser),
		errors.Is(err, creditdomain.ErrInvalidOrder),
		errors.Is(err, creditdomain.ErrInvalidAmount),
		errors.Is(err, musicdomain.ErrInvalidOrder),
		errors.Is(err, musicdomain.ErrUnsupportedMedia),
		errors.Is(err, musicdomain.ErrFileTooLarge),
		errors.Is(err, musicdomain.ErrOrderClosed),
		errors.Is(err, musicdomain.ErrOrderUnpaid),
		errors.Is(err, profiledomain.ErrInvalidID),
		errors.Is(err, profiledomain.ErrInvalidEmail),
		errors.Is(err, paymentdomain.ErrInvalidSignature),
		errors.Is(err, paymentdomain.ErrInvalidPayload),
		errors.Is(err, paymentdomain.ErrInvalidEvent),
		errors.Is(err, paymentdomain.ErrInvalidMetadata):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, orderdomain.ErrNotFound),
		errors.Is(err, musicdomain.ErrNotFound),
		errors.Is(err, musicdomain.ErrOrderNotFound),
		errors.Is(err, creditdomain.ErrUserNotFound),
		errors.Is(err, profiledomain.ErrNotFound):
		return true
	default:
		return false
	}
}
