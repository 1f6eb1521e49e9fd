package domain

import "context"

type Kind string

const (
	KindOrderConfirmation Kind = "order_confirmation"
	KindStatusUpdate      Kind = "status_update"
	KindDelivery          Kind = "delivery"
	KindCreditPurchase    Kind = "credit_purchase"
	KindAdminAlert        Kind = "admin_alert"
)

// Event is one outbound notification. UserID is resolved to a recipient
// address by the sink; Data carries the template variables.
type Event struct {
	Kind   Kind
	UserID string
	Data   map[string]string
}

// Sink delivers notifications after the triggering transaction has
// committed. Send never returns an error: delivery failures are logged
// and must not affect the business outcome that produced the event.
type Sink interface {
	Send(ctx context.Context, event Event)
}
