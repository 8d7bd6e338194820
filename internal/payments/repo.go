package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tunnelpay/tunnelpay-backend/pkg/db/models"
	"github.com/tunnelpay/tunnelpay-backend/pkg/enums"
)

// Repository handles payment intent persistence. Intent rows are history:
// status transitions only, no deletes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, intent *models.PaymentIntent) error
	Update(ctx context.Context, intent *models.PaymentIntent) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.PaymentIntent, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, completedAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	MarkExpired(ctx context.Context, id uuid.UUID) (bool, error)
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
	SumCompletedKopecks(ctx context.Context) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an intent repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, intent *models.PaymentIntent) error {
	return r.db.WithContext(ctx).Create(intent).Error
}

func (r *repository) Update(ctx context.Context, intent *models.PaymentIntent) error {
	return r.db.WithContext(ctx).Save(intent).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&intent).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &intent, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.PaymentIntent, error) {
	if limit <= 0 {
		limit = 50
	}
	var intents []models.PaymentIntent
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&intents).Error; err != nil {
		return nil, err
	}
	return intents, nil
}

// MarkCompleted transitions pending -> completed. Returns false when the
// intent was no longer pending, which means another caller won the race.
func (r *repository) MarkCompleted(ctx context.Context, id uuid.UUID, completedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PaymentIntent{}).
		Where("id = ? AND status = ?", id, enums.IntentStatusPending).
		Updates(map[string]any{
			"status":       enums.IntentStatusCompleted,
			"completed_at": completedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentIntent{}).
		Where("id = ? AND status = ?", id, enums.IntentStatusPending).
		Updates(map[string]any{
			"status":         enums.IntentStatusFailed,
			"failure_reason": reason,
		}).Error
}

// MarkExpired transitions pending -> expired for one intent.
func (r *repository) MarkExpired(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PaymentIntent{}).
		Where("id = ? AND status = ?", id, enums.IntentStatusPending).
		Update("status", enums.IntentStatusExpired)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ExpireStale batch-transitions pending intents past their deadline.
func (r *repository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PaymentIntent{}).
		Where("status = ? AND expires_at < ?", enums.IntentStatusPending, now).
		Update("status", enums.IntentStatusExpired)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repository) SumCompletedKopecks(ctx context.Context) (int64, error) {
	var total *int64
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentIntent{}).
		Where("status = ?", enums.IntentStatusCompleted).
		Select("SUM(amount_kopecks)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}
