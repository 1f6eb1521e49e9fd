package repository

import (
	"context"
	"time"

	"github.com/turuturu/turuturu/internal/order/domain"
	"github.com/turuturu/turuturu/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const orderColumns = `id, customer_id, prompt, status, payment_status, updated_by, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, handle *gorm.DB, order *domain.Order) error {
	return handle.WithContext(ctx).Create(order).Error
}

func (r *repo) FindByID(ctx context.Context, handle *gorm.DB, id string, forUpdate bool) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
	if forUpdate && db.IsPostgres(handle) {
		query += ` FOR UPDATE`
	}

	var order domain.Order
	if err := handle.WithContext(ctx).Raw(query, id).Scan(&order).Error; err != nil {
		return nil, err
	}
	if order.ID == "" {
		return nil, nil
	}
	return &order, nil
}

func (r *repo) ListByCustomer(ctx context.Context, handle *gorm.DB, customerID string) ([]domain.Order, error) {
	var orders []domain.Order
	err := handle.WithContext(ctx).Raw(
		`SELECT `+orderColumns+` FROM orders WHERE customer_id = ? ORDER BY created_at DESC, id DESC`,
		customerID,
	).Scan(&orders).Error
	return orders, err
}

func (r *repo) ListAll(ctx context.Context, handle *gorm.DB) ([]domain.Order, error) {
	var orders []domain.Order
	err := handle.WithContext(ctx).Raw(
		`SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC, id DESC`,
	).Scan(&orders).Error
	return orders, err
}

// ListAwaiting returns a user's parked orders oldest first so promotion
// consumes credits in submission order.
func (r *repo) ListAwaiting(ctx context.Context, handle *gorm.DB, customerID string, forUpdate bool) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders
		WHERE customer_id = ? AND status = ?
		ORDER BY created_at ASC, id ASC`
	if forUpdate && db.IsPostgres(handle) {
		query += ` FOR UPDATE`
	}

	var orders []domain.Order
	err := handle.WithContext(ctx).Raw(query, customerID, domain.StatusAwaitingPayment).Scan(&orders).Error
	return orders, err
}

func (r *repo) UpdateStatus(ctx context.Context, handle *gorm.DB, id string, status domain.OrderStatus, payment domain.PaymentStatus, updatedBy string, now time.Time) error {
	var by *string
	if updatedBy != "" {
		by = &updatedBy
	}
	return handle.WithContext(ctx).Exec(
		`UPDATE orders SET status = ?, payment_status = ?, updated_by = ?, updated_at = ? WHERE id = ?`,
		status, payment, by, now, id,
	).Error
}

func (r *repo) CountMusicFiles(ctx context.Context, handle *gorm.DB, orderID string) (int64, error) {
	var count int64
	err := handle.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM music_files WHERE order_id = ?`,
		orderID,
	).Scan(&count).Error
	return count, err
}

func (r *repo) FindSubmission(ctx context.Context, handle *gorm.DB, key string) (*domain.Submission, error) {
	var submission domain.Submission
	err := handle.WithContext(ctx).Raw(
		`SELECT key, order_id, customer_id, created_at FROM order_submissions WHERE key = ?`,
		key,
	).Scan(&submission).Error
	if err != nil {
		return nil, err
	}
	if submission.Key == "" {
		return nil, nil
	}
	return &submission, nil
}

func (r *repo) InsertSubmission(ctx context.Context, handle *gorm.DB, submission *domain.Submission) error {
	return handle.WithContext(ctx).Create(submission).Error
}
