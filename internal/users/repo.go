package users

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tunnelpay/tunnelpay-backend/pkg/db/models"
)

// Repository handles user persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	FindByReferralCode(ctx context.Context, code string) (*models.User, error)
	AttachReferrer(ctx context.Context, userID, referrerID uuid.UUID) (bool, error)
	IncrementTotalReferrals(ctx context.Context, userID uuid.UUID) error
	AddTotalSpent(ctx context.Context, userID uuid.UUID, amountKopecks int64) error
	AddReferralBalance(ctx context.Context, userID uuid.UUID, amountKopecks int64) error
	DeductReferralBalance(ctx context.Context, userID uuid.UUID, amountKopecks int64) (bool, error)
	ListActiveTelegramIDs(ctx context.Context) ([]int64, error)
	Count(ctx context.Context) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a user repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindByReferralCode(ctx context.Context, code string) (*models.User, error) {
	if code == "" {
		return nil, nil
	}
	var user models.User
	if err := r.db.WithContext(ctx).Where("referral_code = ?", code).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// AttachReferrer sets referrer_id only if it is still unset. Returns whether
// the row changed.
func (r *repository) AttachReferrer(ctx context.Context, userID, referrerID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND referrer_id IS NULL", userID).
		Update("referrer_id", referrerID)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) IncrementTotalReferrals(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("total_referrals", gorm.Expr("total_referrals + 1")).Error
}

func (r *repository) AddTotalSpent(ctx context.Context, userID uuid.UUID, amountKopecks int64) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("total_spent_kopecks", gorm.Expr("total_spent_kopecks + ?", amountKopecks)).Error
}

func (r *repository) AddReferralBalance(ctx context.Context, userID uuid.UUID, amountKopecks int64) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("referral_balance_kopecks", gorm.Expr("referral_balance_kopecks + ?", amountKopecks)).Error
}

// DeductReferralBalance subtracts only when the balance covers the amount.
// Returns whether the deduction happened.
func (r *repository) DeductReferralBalance(ctx context.Context, userID uuid.UUID, amountKopecks int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND referral_balance_kopecks >= ?", userID, amountKopecks).
		Update("referral_balance_kopecks", gorm.Expr("referral_balance_kopecks - ?", amountKopecks))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) ListActiveTelegramIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("is_active").
		Order("created_at ASC").
		Pluck("telegram_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
