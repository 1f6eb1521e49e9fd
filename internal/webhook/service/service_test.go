package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turuturu/turuturu/internal/clock"
	creditdomain "github.com/turuturu/turuturu/internal/credit/domain"
	creditservice "github.com/turuturu/turuturu/internal/credit/service"
	musicdomain "github.com/turuturu/turuturu/internal/music/domain"
	notifdomain "github.com/turuturu/turuturu/internal/notification/domain"
	orderdomain "github.com/turuturu/turuturu/internal/order/domain"
	orderrepository "github.com/turuturu/turuturu/internal/order/repository"
	orderservice "github.com/turuturu/turuturu/internal/order/service"
	paymentdomain "github.com/turuturu/turuturu/internal/payment/domain"
	profiledomain "github.com/turuturu/turuturu/internal/profile/domain"
	"github.com/turuturu/turuturu/internal/webhook/domain"
	"github.com/turuturu/turuturu/internal/webhook/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type silentSink struct {
	mu    sync.Mutex
	kinds []notifdomain.Kind
}

func (s *silentSink) Send(ctx context.Context, event notifdomain.Event) {
	s.mu.Lock()
	s.kinds = append(s.kinds, event.Kind)
	s.mu.Unlock()
}

type webhookTestEnv struct {
	db      *gorm.DB
	clock   *clock.FakeClock
	credits creditdomain.Service
	orders  orderdomain.Service
	hooks   domain.Service
	sink    *silentSink
}

func setupWebhookTest(t *testing.T) *webhookTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&profiledomain.Profile{},
		&orderdomain.Order{},
		&orderdomain.Submission{},
		&creditdomain.CreditDebit{},
		&musicdomain.MusicFile{},
		&domain.WebhookReceipt{},
	))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})

	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	sink := &silentSink{}
	credits := creditservice.New(creditservice.Params{DB: db, Log: zap.NewNop(), Clock: fake})
	orders := orderservice.New(orderservice.Params{
		DB:       db,
		Log:      zap.NewNop(),
		Clock:    fake,
		Repo:     orderrepository.Provide(),
		Credits:  credits,
		Notifier: sink,
	})
	hooks := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		Clock:    fake,
		Repo:     repository.Provide(),
		Credits:  credits,
		Orders:   orders,
		Notifier: sink,
	})

	return &webhookTestEnv{db: db, clock: fake, credits: credits, orders: orders, hooks: hooks, sink: sink}
}

func (e *webhookTestEnv) seedProfile(t *testing.T, id string, credits int64) {
	t.Helper()
	require.NoError(t, e.db.Create(&profiledomain.Profile{
		ID:      id,
		Email:   id + "@example.com",
		Credits: credits,
	}).Error)
}

func creditPurchaseEvent(eventID, userID string, credits int64) *paymentdomain.Event {
	return &paymentdomain.Event{
		Provider:        "stripe",
		ProviderEventID: eventID,
		Type:            paymentdomain.EventTypeCreditPurchase,
		UserID:          userID,
		Credits:         credits,
		PackageName:     "Pacote Família",
		RawPayload:      []byte(`{"id":"` + eventID + `"}`),
	}
}

func TestProcessGrantsCredits(t *testing.T) {
	env := setupWebhookTest(t)
	env.seedProfile(t, "u1", 0)

	result, err := env.hooks.Process(context.Background(), creditPurchaseEvent("evt_1", "u1", 5))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeApplied, result.Outcome)
	assert.Equal(t, int64(5), result.Granted)
	assert.Equal(t, 0, result.Promoted)

	balance, err := env.credits.Balance(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), balance)

	var receipt domain.WebhookReceipt
	require.NoError(t, env.db.First(&receipt, "event_id = ?", "evt_1").Error)
	assert.Equal(t, domain.OutcomeApplied, receipt.Outcome)
}

func TestProcessPromotesParkedOrdersFIFO(t *testing.T) {
	env := setupWebhookTest(t)
	env.seedProfile(t, "u1", 0)

	first, err := env.orders.Submit(context.Background(), orderdomain.SubmitRequest{CustomerID: "u1", Prompt: "p1"})
	require.NoError(t, err)
	env.clock.Advance(time.Minute)
	second, err := env.orders.Submit(context.Background(), orderdomain.SubmitRequest{CustomerID: "u1", Prompt: "p2"})
	require.NoError(t, err)
	env.clock.Advance(time.Minute)
	third, err := env.orders.Submit(context.Background(), orderdomain.SubmitRequest{CustomerID: "u1", Prompt: "p3"})
	require.NoError(t, err)

	result, err := env.hooks.Process(context.Background(), creditPurchaseEvent("evt_1", "u1", 2))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeApplied, result.Outcome)
	assert.Equal(t, 2, result.Promoted)

	for _, tc := range []struct {
		orderID string
		want    orderdomain.OrderStatus
	}{
		{first.Order.ID, orderdomain.StatusPending},
		{second.Order.ID, orderdomain.StatusPending},
		{third.Order.ID, orderdomain.StatusAwaitingPayment},
	} {
		got, err := env.orders.GetByID(context.Background(), tc.orderID)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got.Status)
	}

	// Both granted credits were spent on the promotions.
	balance, err := env.credits.Balance(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestProcessIsExactlyOncePerEventID(t *testing.T) {
	env := setupWebhookTest(t)
	env.seedProfile(t, "u1", 0)

	first, err := env.hooks.Process(context.Background(), creditPurchaseEvent("evt_1", "u1", 5))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeApplied, first.Outcome)

	replay, err := env.hooks.Process(context.Background(), creditPurchaseEvent("evt_1", "u1", 5))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeDuplicate, replay.Outcome)

	balance, err := env.credits.Balance(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), balance, "replay must not grant twice")
}

func TestProcessPaymentFailedCancelsParkedOrders(t *testing.T) {
	env := setupWebhookTest(t)
	env.seedProfile(t, "u1", 0)

	parked, err := env.orders.Submit(context.Background(), orderdomain.SubmitRequest{CustomerID: "u1", Prompt: "p1"})
	require.NoError(t, err)

	result, err := env.hooks.Process(context.Background(), &paymentdomain.Event{
		Provider:        "stripe",
		ProviderEventID: "evt_fail_1",
		Type:            paymentdomain.EventTypePaymentFailed,
		UserID:          "u1",
		RawPayload:      []byte(`{"id":"evt_fail_1"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeApplied, result.Outcome)
	assert.Equal(t, 1, result.Canceled)

	got, err := env.orders.GetByID(context.Background(), parked.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StatusCanceled, got.Status)
	assert.Equal(t, orderdomain.PaymentFailed, got.PaymentStatus)
}

func TestProcessUnknownUserFails(t *testing.T) {
	env := setupWebhookTest(t)

	_, err := env.hooks.Process(context.Background(), creditPurchaseEvent("evt_1", "ghost", 5))
	assert.ErrorIs(t, err, domain.ErrUnknownUser)
}

func TestProcessIgnoresUnhandledTypes(t *testing.T) {
	env := setupWebhookTest(t)

	result, err := env.hooks.Process(context.Background(), &paymentdomain.Event{
		Provider:        "stripe",
		ProviderEventID: "evt_other",
		Type:            "invoice.paid",
		RawPayload:      []byte(`{"id":"evt_other"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeIgnored, result.Outcome)

	var receipt domain.WebhookReceipt
	require.NoError(t, env.db.First(&receipt, "event_id = ?", "evt_other").Error)
	assert.Equal(t, domain.OutcomeIgnored, receipt.Outcome)
}

func TestProcessRejectsMissingEventID(t *testing.T) {
	env := setupWebhookTest(t)

	_, err := env.hooks.Process(context.Background(), &paymentdomain.Event{Type: paymentdomain.EventTypeCreditPurchase})
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)
}
