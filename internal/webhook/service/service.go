package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/turuturu/turuturu/internal/clock"
	creditdomain "github.com/turuturu/turuturu/internal/credit/domain"
	notifdomain "github.com/turuturu/turuturu/internal/notification/domain"
	obsmetrics "github.com/turuturu/turuturu/internal/observability/metrics"
	orderdomain "github.com/turuturu/turuturu/internal/order/domain"
	paymentdomain "github.com/turuturu/turuturu/internal/payment/domain"
	"github.com/turuturu/turuturu/internal/webhook/domain"
	"github.com/turuturu/turuturu/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	maxTxAttempts = 3
	retryBackoff  = 25 * time.Millisecond
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Repo       domain.Repository
	Credits    creditdomain.Service
	Orders     orderdomain.Service
	Notifier   notifdomain.Sink
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	repo       domain.Repository
	credits    creditdomain.Service
	orders     orderdomain.Service
	notifier   notifdomain.Sink
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("webhook.service"),
		clock:      p.Clock,
		repo:       p.Repo,
		credits:    p.Credits,
		orders:     p.Orders,
		notifier:   p.Notifier,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Process(ctx context.Context, event *paymentdomain.Event) (domain.Result, error) {
	if event == nil || event.ProviderEventID == "" {
		return domain.Result{}, domain.ErrInvalidEvent
	}

	var result domain.Result
	var promoted, canceled []orderdomain.Order
	err := s.withRetry(ctx, func(tx *gorm.DB) error {
		promoted, canceled = nil, nil
		// The receipt records what processing this row settles; an error
		// below rolls the receipt back with the rest of the transaction.
		outcome := domain.OutcomeIgnored
		switch event.Type {
		case paymentdomain.EventTypeCreditPurchase, paymentdomain.EventTypePaymentFailed:
			outcome = domain.OutcomeApplied
		}
		if err := s.insertReceipt(ctx, tx, event, outcome); err != nil {
			return err
		}

		switch event.Type {
		case paymentdomain.EventTypeCreditPurchase:
			balance, err := s.credits.GrantTx(ctx, tx, event.UserID, event.Credits)
			if err != nil {
				if errors.Is(err, creditdomain.ErrUserNotFound) {
					return domain.ErrUnknownUser
				}
				return err
			}
			promoted, err = s.orders.PromoteAwaitingTx(ctx, tx, event.UserID, event.Credits)
			if err != nil {
				return err
			}
			result = domain.Result{
				Outcome:  domain.OutcomeApplied,
				Granted:  event.Credits,
				Promoted: len(promoted),
			}
			s.log.Info("credits granted from checkout",
				zap.String("event_id", event.ProviderEventID),
				zap.String("user_id", event.UserID),
				zap.Int64("credits", event.Credits),
				zap.Int64("balance", balance),
				zap.Int("promoted", len(promoted)),
			)
			return nil

		case paymentdomain.EventTypePaymentFailed:
			var err error
			canceled, err = s.orders.CancelAwaitingTx(ctx, tx, event.UserID)
			if err != nil {
				return err
			}
			// A parked order never holds a debit; refund anyway in case a
			// partial promotion from a crashed process left one behind.
			for _, order := range canceled {
				if err := s.credits.RefundTx(ctx, tx, order.ID); err != nil {
					return err
				}
			}
			result = domain.Result{
				Outcome:  domain.OutcomeApplied,
				Canceled: len(canceled),
			}
			s.log.Info("payment failure reconciled",
				zap.String("event_id", event.ProviderEventID),
				zap.String("user_id", event.UserID),
				zap.Int("canceled", len(canceled)),
			)
			return nil

		default:
			result = domain.Result{Outcome: domain.OutcomeIgnored}
			return nil
		}
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			s.obsMetrics.RecordWebhookEvent(string(domain.OutcomeDuplicate))
			s.log.Info("webhook replay ignored", zap.String("event_id", event.ProviderEventID))
			return domain.Result{Outcome: domain.OutcomeDuplicate}, nil
		}
		return domain.Result{}, err
	}

	s.obsMetrics.RecordWebhookEvent(string(result.Outcome))
	if result.Outcome == domain.OutcomeApplied {
		s.notify(ctx, event, promoted, canceled)
	}
	return result, nil
}

func (s *Service) insertReceipt(ctx context.Context, tx *gorm.DB, event *paymentdomain.Event, outcome domain.Outcome) error {
	return s.repo.InsertReceipt(ctx, tx, &domain.WebhookReceipt{
		EventID:    event.ProviderEventID,
		Provider:   event.Provider,
		Kind:       event.Type,
		Outcome:    outcome,
		Payload:    datatypes.JSON(event.RawPayload),
		ReceivedAt: s.clock.Now().UTC(),
	})
}

// notify runs after commit. Failures inside the sink are logged there
// and never reach the reconciliation outcome.
func (s *Service) notify(ctx context.Context, event *paymentdomain.Event, promoted, canceled []orderdomain.Order) {
	switch event.Type {
	case paymentdomain.EventTypeCreditPurchase:
		s.notifier.Send(ctx, notifdomain.Event{
			Kind:   notifdomain.KindCreditPurchase,
			UserID: event.UserID,
			Data: map[string]string{
				"credits":      strconv.FormatInt(event.Credits, 10),
				"package_name": event.PackageName,
			},
		})
		for _, order := range promoted {
			s.notifier.Send(ctx, notifdomain.Event{
				Kind:   notifdomain.KindAdminAlert,
				UserID: order.CustomerID,
				Data: map[string]string{
					"order_id": order.ID,
					"status":   string(order.Status),
				},
			})
		}
	case paymentdomain.EventTypePaymentFailed:
		for _, order := range canceled {
			s.notifier.Send(ctx, notifdomain.Event{
				Kind:   notifdomain.KindStatusUpdate,
				UserID: order.CustomerID,
				Data: map[string]string{
					"order_id": order.ID,
					"status":   string(order.Status),
				},
			})
		}
	}
}

func (s *Service) withRetry(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(tx)
		})
		if err == nil || !db.IsSerializationErr(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryBackoff * time.Duration(attempt)):
		}
	}
	return err
}
