package service

import (
	"context"
	"strings"
	"time"

	"github.com/turuturu/turuturu/internal/clock"
	"github.com/turuturu/turuturu/internal/credit/domain"
	obsmetrics "github.com/turuturu/turuturu/internal/observability/metrics"
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
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("credit.service"),
		clock:      p.Clock,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Balance(ctx context.Context, userID string) (int64, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, domain.ErrInvalidUser
	}

	var row struct {
		ID      string
		Credits int64
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT id, credits FROM profiles WHERE id = ?`,
		userID,
	).Scan(&row).Error
	if err != nil {
		return 0, err
	}
	if row.ID == "" {
		return 0, domain.ErrUserNotFound
	}
	return row.Credits, nil
}

func (s *Service) Grant(ctx context.Context, userID string, n int64, reason string) (int64, error) {
	var balance int64
	err := s.withRetry(ctx, func(tx *gorm.DB) error {
		var err error
		balance, err = s.GrantTx(ctx, tx, userID, n)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("credits granted",
		zap.String("user_id", userID),
		zap.Int64("credits", n),
		zap.Int64("balance", balance),
		zap.String("reason", reason),
	)
	return balance, nil
}

func (s *Service) GrantTx(ctx context.Context, tx *gorm.DB, userID string, n int64) (int64, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, domain.ErrInvalidUser
	}
	if n <= 0 {
		return 0, domain.ErrInvalidAmount
	}

	balance, found, err := s.lockBalance(ctx, tx, userID)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, domain.ErrUserNotFound
	}

	balance += n
	if err := s.writeBalance(ctx, tx, userID, balance); err != nil {
		return 0, err
	}

	s.obsMetrics.RecordCreditsGranted(n)
	return balance, nil
}

func (s *Service) TryDebit(ctx context.Context, userID, orderID string) (domain.DebitResult, error) {
	var result domain.DebitResult
	err := s.withRetry(ctx, func(tx *gorm.DB) error {
		var err error
		result, err = s.TryDebitTx(ctx, tx, userID, orderID)
		return err
	})
	return result, err
}

// TryDebitTx decrements the balance and records the per-order debit marker
// in one step. A repeat call for an already-debited order reports success
// without touching the balance.
func (s *Service) TryDebitTx(ctx context.Context, tx *gorm.DB, userID, orderID string) (domain.DebitResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.DebitResult{}, domain.ErrInvalidUser
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.DebitResult{}, domain.ErrInvalidOrder
	}

	balance, found, err := s.lockBalance(ctx, tx, userID)
	if err != nil {
		return domain.DebitResult{}, err
	}
	if !found {
		return domain.DebitResult{}, domain.ErrUserNotFound
	}

	existing, err := s.findDebit(ctx, tx, orderID)
	if err != nil {
		return domain.DebitResult{}, err
	}
	if existing != nil {
		return domain.DebitResult{OK: true, Balance: balance}, nil
	}

	if balance < 1 {
		return domain.DebitResult{Insufficient: true, Balance: balance}, nil
	}

	debit := domain.CreditDebit{
		OrderID:    orderID,
		CustomerID: userID,
		DebitedAt:  s.clock.Now(),
	}
	if err := tx.WithContext(ctx).Create(&debit).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.DebitResult{OK: true, Balance: balance}, nil
		}
		return domain.DebitResult{}, err
	}

	balance--
	if err := s.writeBalance(ctx, tx, userID, balance); err != nil {
		return domain.DebitResult{}, err
	}

	s.obsMetrics.RecordCreditDebited()
	return domain.DebitResult{OK: true, Balance: balance}, nil
}

func (s *Service) Refund(ctx context.Context, orderID string) error {
	return s.withRetry(ctx, func(tx *gorm.DB) error {
		return s.RefundTx(ctx, tx, orderID)
	})
}

// RefundTx reverses the debit for orderID if one exists; a second refund
// for the same order is a no-op.
func (s *Service) RefundTx(ctx context.Context, tx *gorm.DB, orderID string) error {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.ErrInvalidOrder
	}

	debit, err := s.findDebit(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if debit == nil {
		return nil
	}

	balance, found, err := s.lockBalance(ctx, tx, debit.CustomerID)
	if err != nil {
		return err
	}
	if !found {
		return domain.ErrUserNotFound
	}

	if err := tx.WithContext(ctx).Exec(
		`DELETE FROM credit_debits WHERE order_id = ?`,
		orderID,
	).Error; err != nil {
		return err
	}

	if err := s.writeBalance(ctx, tx, debit.CustomerID, balance+1); err != nil {
		return err
	}

	s.obsMetrics.RecordCreditRefunded()
	return nil
}

// lockBalance re-reads the profile row under lock; cached or previously
// read balances never drive a mutation decision.
func (s *Service) lockBalance(ctx context.Context, tx *gorm.DB, userID string) (int64, bool, error) {
	query := `SELECT id, credits FROM profiles WHERE id = ?`
	if db.IsPostgres(tx) {
		query += ` FOR UPDATE`
	}

	var row struct {
		ID      string
		Credits int64
	}
	if err := tx.WithContext(ctx).Raw(query, userID).Scan(&row).Error; err != nil {
		return 0, false, err
	}
	if row.ID == "" {
		return 0, false, nil
	}
	return row.Credits, true, nil
}

func (s *Service) writeBalance(ctx context.Context, tx *gorm.DB, userID string, balance int64) error {
	return tx.WithContext(ctx).Exec(
		`UPDATE profiles SET credits = ?, updated_at = ? WHERE id = ?`,
		balance,
		s.clock.Now(),
		userID,
	).Error
}

func (s *Service) findDebit(ctx context.Context, tx *gorm.DB, orderID string) (*domain.CreditDebit, error) {
	var debit domain.CreditDebit
	err := tx.WithContext(ctx).Raw(
		`SELECT order_id, customer_id, debited_at FROM credit_debits WHERE order_id = ?`,
		orderID,
	).Scan(&debit).Error
	if err != nil {
		return nil, err
	}
	if debit.OrderID == "" {
		return nil, nil
	}
	return &debit, nil
}

func (s *Service) withRetry(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var lastErr error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		lastErr = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(tx)
		})
		if lastErr == nil || !db.IsSerializationErr(lastErr) {
			return lastErr
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryBackoff * time.Duration(attempt)):
		}
	}
	return lastErr
}
