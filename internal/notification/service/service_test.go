package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turuturu/turuturu/internal/config"
	"github.com/turuturu/turuturu/internal/notification/domain"
	profiledomain "github.com/turuturu/turuturu/internal/profile/domain"
	"go.uber.org/zap"
)

type capturingProvider struct {
	mu       sync.Mutex
	sent     chan struct{}
	to       []string
	subjects []string
}

func newCapturingProvider() *capturingProvider {
	return &capturingProvider{sent: make(chan struct{}, 16)}
}

func (p *capturingProvider) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	p.mu.Lock()
	p.to = append(p.to, to...)
	p.subjects = append(p.subjects, subject)
	p.mu.Unlock()
	p.sent <- struct{}{}
	return nil
}

func (p *capturingProvider) waitForSend(t *testing.T) {
	t.Helper()
	select {
	case <-p.sent:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification delivery")
	}
}

type staticProfileService struct {
	profile profiledomain.Profile
	err     error
}

func (s *staticProfileService) Upsert(ctx context.Context, req profiledomain.UpsertProfileRequest) (profiledomain.Profile, error) {
	return s.profile, s.err
}

func (s *staticProfileService) GetByID(ctx context.Context, id string) (profiledomain.Profile, error) {
	return s.profile, s.err
}

func TestSendDeliversToProfileEmail(t *testing.T) {
	provider := newCapturingProvider()
	name := "Alice"
	sink := New(Params{
		Config: config.Config{AdminEmail: "admin@turuturu.app"},
		Log:    zap.NewNop(),
		Email:  provider,
		Profiles: &staticProfileService{profile: profiledomain.Profile{
			ID:    "u1",
			Email: "alice@example.com",
			Name:  &name,
		}},
	})

	sink.Send(context.Background(), domain.Event{
		Kind:   domain.KindOrderConfirmation,
		UserID: "u1",
		Data:   map[string]string{"order_id": "o1"},
	})
	provider.waitForSend(t)

	provider.mu.Lock()
	defer provider.mu.Unlock()
	require.Len(t, provider.to, 1)
	assert.Equal(t, "alice@example.com", provider.to[0])
	assert.Equal(t, "Pedido de Música Confirmado - TuruTuru App", provider.subjects[0])
}

func TestSendRoutesAdminAlertsToAdminEmail(t *testing.T) {
	provider := newCapturingProvider()
	sink := New(Params{
		Config:   config.Config{AdminEmail: "admin@turuturu.app"},
		Log:      zap.NewNop(),
		Email:    provider,
		Profiles: &staticProfileService{err: profiledomain.ErrNotFound},
	})

	sink.Send(context.Background(), domain.Event{
		Kind:   domain.KindAdminAlert,
		UserID: "u1",
		Data:   map[string]string{"order_id": "o1"},
	})
	provider.waitForSend(t)

	provider.mu.Lock()
	defer provider.mu.Unlock()
	require.Len(t, provider.to, 1)
	assert.Equal(t, "admin@turuturu.app", provider.to[0])
	assert.Equal(t, "Pagamento Confirmado - Pedido Pronto para Produção", provider.subjects[0])
}

func TestSendSurvivesCanceledRequestContext(t *testing.T) {
	provider := newCapturingProvider()
	sink := New(Params{
		Config: config.Config{},
		Log:    zap.NewNop(),
		Email:  provider,
		Profiles: &staticProfileService{profile: profiledomain.Profile{
			ID:    "u1",
			Email: "u1@example.com",
		}},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink.Send(ctx, domain.Event{
		Kind:   domain.KindStatusUpdate,
		UserID: "u1",
		Data:   map[string]string{"order_id": "o1", "status": "IN_PRODUCTION"},
	})
	provider.waitForSend(t)

	provider.mu.Lock()
	defer provider.mu.Unlock()
	assert.Equal(t, "Atualização do Pedido - Em Produção", provider.subjects[0])
}

func TestSendNeverPanicsOnLookupFailure(t *testing.T) {
	provider := newCapturingProvider()
	sink := New(Params{
		Config:   config.Config{},
		Log:      zap.NewNop(),
		Email:    provider,
		Profiles: &staticProfileService{err: errors.New("db down")},
	})

	sink.Send(context.Background(), domain.Event{
		Kind:   domain.KindDelivery,
		UserID: "u1",
	})

	select {
	case <-provider.sent:
		t.Fatal("no email expected when recipient lookup fails")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRenderSubjects(t *testing.T) {
	tests := []struct {
		kind    domain.Kind
		data    map[string]string
		subject string
	}{
		{domain.KindOrderConfirmation, map[string]string{"order_id": "o1"}, "Pedido de Música Confirmado - TuruTuru App"},
		{domain.KindStatusUpdate, map[string]string{"status": "COMPLETED"}, "Atualização do Pedido - Música Pronta"},
		{domain.KindStatusUpdate, map[string]string{"status": "CANCELED"}, "Atualização do Pedido - Pedido Cancelado"},
		{domain.KindDelivery, map[string]string{"order_id": "o1"}, "Sua Música Está Pronta! 🎵 - TuruTuru App"},
		{domain.KindCreditPurchase, map[string]string{"credits": "5"}, "Compra de Créditos Confirmada - TuruTuru App"},
		{domain.KindAdminAlert, map[string]string{"order_id": "o1"}, "Pagamento Confirmado - Pedido Pronto para Produção"},
	}
	for _, tc := range tests {
		subject, body := render(domain.Event{Kind: tc.kind, Data: tc.data}, "Alice")
		assert.Equal(t, tc.subject, subject)
		assert.NotEmpty(t, body)
	}
}
