package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	paymentdomain "github.com/turuturu/turuturu/internal/payment/domain"
	"go.uber.org/zap"
)

type stripeSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type stripeErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (g *Gateway) CreateCheckoutSession(ctx context.Context, req paymentdomain.CheckoutRequest) (paymentdomain.CheckoutSession, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" || req.Credits <= 0 {
		return paymentdomain.CheckoutSession{}, paymentdomain.ErrInvalidMetadata
	}

	values := url.Values{}
	values.Set("mode", "payment")
	values.Set("success_url", req.SuccessURL)
	values.Set("cancel_url", req.CancelURL)
	values.Set("line_items[0][quantity]", "1")
	if priceID := strings.TrimSpace(req.PriceID); priceID != "" {
		values.Set("line_items[0][price]", priceID)
	} else {
		if req.AmountMinor <= 0 {
			return paymentdomain.CheckoutSession{}, paymentdomain.ErrInvalidMetadata
		}
		values.Set("line_items[0][price_data][currency]", strings.ToLower(req.Currency))
		values.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(req.AmountMinor, 10))
		values.Set("line_items[0][price_data][product_data][name]", req.PackageName)
	}
	values.Set("metadata[userId]", userID)
	values.Set("metadata[credits]", strconv.FormatInt(req.Credits, 10))
	values.Set("metadata[packageName]", req.PackageName)
	values.Set("metadata[orderType]", "credit_purchase")

	session, err := g.doRequest(ctx, http.MethodPost, "/v1/checkout/sessions", values)
	if err != nil {
		return paymentdomain.CheckoutSession{}, err
	}
	return paymentdomain.CheckoutSession{
		SessionID: session.ID,
		URL:       session.URL,
	}, nil
}

func (g *Gateway) doRequest(ctx context.Context, method, path string, values url.Values) (stripeSession, error) {
	session, err := g.doRequestOnce(ctx, method, path, values)
	if err != nil && isTransient(err) && ctx.Err() == nil {
		g.log.Warn("stripe request retried", zap.String("path", path), zap.Error(err))
		session, err = g.doRequestOnce(ctx, method, path, values)
	}
	return session, err
}

func (g *Gateway) doRequestOnce(ctx context.Context, method, path string, values url.Values) (stripeSession, error) {
	req, err := http.NewRequestWithContext(ctx, method, "https://api.stripe.com"+path, strings.NewReader(values.Encode()))
	if err != nil {
		return stripeSession{}, err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return stripeSession{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return stripeSession{}, paymentdomain.ErrUnavailable
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var stripeErr stripeErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&stripeErr); err != nil {
			return stripeSession{}, errors.New("stripe_request_failed")
		}
		message := strings.TrimSpace(stripeErr.Error.Message)
		if message == "" {
			message = "stripe_request_failed"
		}
		return stripeSession{}, errors.New(message)
	}

	var session stripeSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return stripeSession{}, err
	}
	if session.ID == "" {
		return stripeSession{}, errors.New("stripe_response_invalid")
	}
	return session, nil
}

func isTransient(err error) bool {
	if errors.Is(err, paymentdomain.ErrUnavailable) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
