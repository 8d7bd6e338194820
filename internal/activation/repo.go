package activation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tunnelpay/tunnelpay-backend/pkg/db/models"
)

// Repository handles subscription persistence. Superseded rows are kept as
// history with active unset.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, subscription *models.Subscription) error
	DeactivateAllForUser(ctx context.Context, userID uuid.UUID) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	FindActiveByUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error)
	CountActive(ctx context.Context, now time.Time) (int64, error)
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a subscription repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, subscription *models.Subscription) error {
	return r.db.WithContext(ctx).Create(subscription).Error
}

func (r *repository) DeactivateAllForUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("user_id = ? AND active", userID).
		Update("active", false).Error
}

func (r *repository) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ?", id).
		Update("active", false).Error
}

func (r *repository) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var subscription models.Subscription
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND active", userID).
		Order("end_date DESC").
		First(&subscription).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &subscription, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error) {
	var subscriptions []models.Subscription
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&subscriptions).Error; err != nil {
		return nil, err
	}
	return subscriptions, nil
}

// DeactivateExpired batch-clears the active flag on subscriptions past their
// end date.
func (r *repository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("active AND end_date < ?", now).
		Update("active", false)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repository) CountActive(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("active AND end_date > ?", now).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
