package referrals

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tunnelpay/tunnelpay-backend/pkg/db/models"
	"github.com/tunnelpay/tunnelpay-backend/pkg/enums"
)

// Repository handles referral payout persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreatePayout(ctx context.Context, payout *models.ReferralPayout) error
	FindPayout(ctx context.Context, id uuid.UUID) (*models.ReferralPayout, error)
	UpdatePayout(ctx context.Context, payout *models.ReferralPayout) error
	ListPayouts(ctx context.Context, status *enums.PayoutStatus) ([]models.ReferralPayout, error)
	ListPayoutsByUser(ctx context.Context, userID uuid.UUID) ([]models.ReferralPayout, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payout repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreatePayout(ctx context.Context, payout *models.ReferralPayout) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *repository) FindPayout(ctx context.Context, id uuid.UUID) (*models.ReferralPayout, error) {
	var payout models.ReferralPayout
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payout).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &payout, nil
}

func (r *repository) UpdatePayout(ctx context.Context, payout *models.ReferralPayout) error {
	return r.db.WithContext(ctx).Save(payout).Error
}

func (r *repository) ListPayouts(ctx context.Context, status *enums.PayoutStatus) ([]models.ReferralPayout, error) {
	query := r.db.WithContext(ctx).Model(&models.ReferralPayout{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var payouts []models.ReferralPayout
	if err := query.Order("created_at DESC").Find(&payouts).Error; err != nil {
		return nil, err
	}
	return payouts, nil
}

func (r *repository) ListPayoutsByUser(ctx context.Context, userID uuid.UUID) ([]models.ReferralPayout, error) {
	var payouts []models.ReferralPayout
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&payouts).Error; err != nil {
		return nil, err
	}
	return payouts, nil
}
