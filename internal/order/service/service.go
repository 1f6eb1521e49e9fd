package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/turuturu/turuturu/internal/clock"
	creditdomain "github.com/turuturu/turuturu/internal/credit/domain"
	notifdomain "github.com/turuturu/turuturu/internal/notification/domain"
	obsmetrics "github.com/turuturu/turuturu/internal/observability/metrics"
	"github.com/turuturu/turuturu/internal/order/domain"
	"github.com/turuturu/turuturu/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
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
	Notifier   notifdomain.Sink
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	repo       domain.Repository
	credits    creditdomain.Service
	notifier   notifdomain.Sink
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("order.service"),
		clock:      p.Clock,
		repo:       p.Repo,
		credits:    p.Credits,
		notifier:   p.Notifier,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Submit(ctx context.Context, req domain.SubmitRequest) (domain.SubmitResult, error) {
	customerID := strings.TrimSpace(req.CustomerID)
	if customerID == "" {
		return domain.SubmitResult{}, domain.ErrInvalidCustomer
	}
	prompt := domain.SanitizePrompt(req.Prompt)
	if prompt == "" {
		return domain.SubmitResult{}, domain.ErrInvalidPrompt
	}
	if len(prompt) > domain.MaxPromptLen {
		return domain.SubmitResult{}, domain.ErrPromptTooLong
	}

	now := s.clock.Now().UTC()
	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		key = submissionKey(customerID, prompt, now)
	}

	var result domain.SubmitResult
	err := s.withRetry(ctx, func(tx *gorm.DB) error {
		var err error
		result, err = s.submitTx(ctx, tx, customerID, prompt, key, now)
		return err
	})
	if err != nil {
		// A concurrent submission with the same key won the insert race.
		// Surface the winner's order instead of the constraint error.
		if db.IsDuplicateKeyErr(err) {
			return s.resolveDuplicate(ctx, key)
		}
		return domain.SubmitResult{}, err
	}

	if !result.Duplicate {
		s.obsMetrics.RecordOrderCreated(string(result.Order.Status))
		s.notifier.Send(ctx, notifdomain.Event{
			Kind:   notifdomain.KindOrderConfirmation,
			UserID: customerID,
			Data: map[string]string{
				"order_id": result.Order.ID,
				"status":   string(result.Order.Status),
			},
		})
		s.log.Info("order submitted",
			zap.String("order_id", result.Order.ID),
			zap.String("customer_id", customerID),
			zap.String("status", string(result.Order.Status)),
		)
	}
	return result, nil
}

func (s *Service) submitTx(ctx context.Context, tx *gorm.DB, customerID, prompt, key string, now time.Time) (domain.SubmitResult, error) {
	existing, err := s.repo.FindSubmission(ctx, tx, key)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	if existing != nil {
		return s.duplicateResult(ctx, tx, existing)
	}

	order := domain.Order{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		Prompt:     prompt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	debit, err := s.credits.TryDebitTx(ctx, tx, customerID, order.ID)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	if debit.OK {
		order.Status = domain.StatusPending
		order.PaymentStatus = domain.PaymentPaid
	} else {
		order.Status = domain.StatusAwaitingPayment
		order.PaymentStatus = domain.PaymentPending
	}

	if err := s.repo.Insert(ctx, tx, &order); err != nil {
		return domain.SubmitResult{}, err
	}
	err = s.repo.InsertSubmission(ctx, tx, &domain.Submission{
		Key:        key,
		OrderID:    order.ID,
		CustomerID: customerID,
		CreatedAt:  now,
	})
	if err != nil {
		return domain.SubmitResult{}, err
	}

	return domain.SubmitResult{
		Order:            order,
		RemainingCredits: debit.Balance,
		NeedsPayment:     debit.Insufficient,
	}, nil
}

func (s *Service) resolveDuplicate(ctx context.Context, key string) (domain.SubmitResult, error) {
	submission, err := s.repo.FindSubmission(ctx, s.db, key)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	if submission == nil {
		return domain.SubmitResult{}, domain.ErrNotFound
	}
	return s.duplicateResult(ctx, s.db, submission)
}

func (s *Service) duplicateResult(ctx context.Context, tx *gorm.DB, submission *domain.Submission) (domain.SubmitResult, error) {
	order, err := s.repo.FindByID(ctx, tx, submission.OrderID, false)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	if order == nil {
		return domain.SubmitResult{}, domain.ErrNotFound
	}
	balance, err := s.credits.Balance(ctx, submission.CustomerID)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	return domain.SubmitResult{
		Order:            *order,
		RemainingCredits: balance,
		NeedsPayment:     order.Status == domain.StatusAwaitingPayment,
		Duplicate:        true,
	}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Order, error) {
	order, err := s.repo.FindByID(ctx, s.db, strings.TrimSpace(id), false)
	if err != nil {
		return domain.Order{}, err
	}
	if order == nil {
		return domain.Order{}, domain.ErrNotFound
	}
	return *order, nil
}

func (s *Service) ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, domain.ErrInvalidCustomer
	}
	return s.repo.ListByCustomer(ctx, s.db, customerID)
}

func (s *Service) ListAll(ctx context.Context) ([]domain.Order, error) {
	return s.repo.ListAll(ctx, s.db)
}

func (s *Service) UpdateStatus(ctx context.Context, req domain.UpdateStatusRequest) (domain.Order, error) {
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return domain.Order{}, domain.ErrNotFound
	}

	var updated domain.Order
	var from domain.OrderStatus
	err := s.withRetry(ctx, func(tx *gorm.DB) error {
		order, err := s.repo.FindByID(ctx, tx, orderID, true)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.ErrNotFound
		}
		from = order.Status

		// AWAITING_PAYMENT is owned by the payment reconciler; moving it
		// by hand would create a paid-looking order that never debited.
		if order.Status == domain.StatusAwaitingPayment && req.Status != domain.StatusCanceled {
			return domain.ErrInvalidTransition
		}
		if !domain.CanTransition(order.Status, req.Status) {
			return domain.ErrInvalidTransition
		}

		payment := order.PaymentStatus
		switch req.Status {
		case domain.StatusCompleted:
			if order.PaymentStatus != domain.PaymentPaid {
				return domain.ErrInvalidTransition
			}
			count, err := s.repo.CountMusicFiles(ctx, tx, order.ID)
			if err != nil {
				return err
			}
			if count == 0 {
				return domain.ErrMissingMusicFile
			}
		case domain.StatusCanceled:
			if err := s.credits.RefundTx(ctx, tx, order.ID); err != nil {
				return err
			}
			if order.Status == domain.StatusAwaitingPayment {
				payment = domain.PaymentFailed
			}
		}

		now := s.clock.Now().UTC()
		if err := s.repo.UpdateStatus(ctx, tx, order.ID, req.Status, payment, req.UpdatedBy, now); err != nil {
			return err
		}
		updated = *order
		updated.Status = req.Status
		updated.PaymentStatus = payment
		if req.UpdatedBy != "" {
			by := req.UpdatedBy
			updated.UpdatedBy = &by
		}
		updated.UpdatedAt = now
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.obsMetrics.RecordOrderTransition(string(from), string(updated.Status))
	s.notifyTransition(ctx, updated)
	s.log.Info("order status updated",
		zap.String("order_id", updated.ID),
		zap.String("from", string(from)),
		zap.String("to", string(updated.Status)),
		zap.String("updated_by", req.UpdatedBy),
	)
	return updated, nil
}

func (s *Service) MarkInProductionTx(ctx context.Context, tx *gorm.DB, orderID, updatedBy string) (*domain.Order, error) {
	order, err := s.repo.FindByID(ctx, tx, orderID, true)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	if order.Status != domain.StatusPending {
		return order, nil
	}

	now := s.clock.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, tx, order.ID, domain.StatusInProduction, order.PaymentStatus, updatedBy, now); err != nil {
		return nil, err
	}
	s.obsMetrics.RecordOrderTransition(string(domain.StatusPending), string(domain.StatusInProduction))

	order.Status = domain.StatusInProduction
	order.UpdatedAt = now
	return order, nil
}

func (s *Service) PromoteAwaitingTx(ctx context.Context, tx *gorm.DB, userID string, limit int64) ([]domain.Order, error) {
	parked, err := s.repo.ListAwaiting(ctx, tx, userID, true)
	if err != nil {
		return nil, err
	}

	var promoted []domain.Order
	for _, order := range parked {
		if limit >= 0 && int64(len(promoted)) >= limit {
			break
		}
		debit, err := s.credits.TryDebitTx(ctx, tx, userID, order.ID)
		if err != nil {
			return nil, err
		}
		if !debit.OK {
			break
		}
		now := s.clock.Now().UTC()
		if err := s.repo.UpdateStatus(ctx, tx, order.ID, domain.StatusPending, domain.PaymentPaid, "", now); err != nil {
			return nil, err
		}
		order.Status = domain.StatusPending
		order.PaymentStatus = domain.PaymentPaid
		order.UpdatedAt = now
		promoted = append(promoted, order)
		s.obsMetrics.RecordOrderTransition(string(domain.StatusAwaitingPayment), string(domain.StatusPending))
	}
	return promoted, nil
}

func (s *Service) CancelAwaitingTx(ctx context.Context, tx *gorm.DB, userID string) ([]domain.Order, error) {
	parked, err := s.repo.ListAwaiting(ctx, tx, userID, true)
	if err != nil {
		return nil, err
	}

	canceled := make([]domain.Order, 0, len(parked))
	for _, order := range parked {
		now := s.clock.Now().UTC()
		if err := s.repo.UpdateStatus(ctx, tx, order.ID, domain.StatusCanceled, domain.PaymentFailed, "", now); err != nil {
			return nil, err
		}
		order.Status = domain.StatusCanceled
		order.PaymentStatus = domain.PaymentFailed
		order.UpdatedAt = now
		canceled = append(canceled, order)
		s.obsMetrics.RecordOrderTransition(string(domain.StatusAwaitingPayment), string(domain.StatusCanceled))
	}
	return canceled, nil
}

func (s *Service) notifyTransition(ctx context.Context, order domain.Order) {
	kind := notifdomain.KindStatusUpdate
	if order.Status == domain.StatusCompleted {
		kind = notifdomain.KindDelivery
	}
	s.notifier.Send(ctx, notifdomain.Event{
		Kind:   kind,
		UserID: order.CustomerID,
		Data: map[string]string{
			"order_id": order.ID,
			"status":   string(order.Status),
		},
	})
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

// submissionKey derives a dedupe key for clients that sent none: the
// same user resubmitting the same prompt within the same minute is
// treated as a double click, not a second commission.
func submissionKey(customerID, prompt string, now time.Time) string {
	promptSum := sha256.Sum256([]byte(prompt))
	sum := sha256.Sum256([]byte(fmt.Sprintf(
		"%s|%s|%d",
		customerID,
		hex.EncodeToString(promptSum[:]),
		now.Unix()/60,
	)))
	return hex.EncodeToString(sum[:])
}
