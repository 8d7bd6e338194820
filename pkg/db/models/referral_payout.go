package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tunnelpay/tunnelpay-backend/pkg/enums"
)

// ReferralPayout is a request to withdraw accumulated referral balance.
type ReferralPayout struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	UserID         uuid.UUID          `gorm:"column:user_id;type:uuid;not null;index"`
	AmountKopecks  int64              `gorm:"column:amount_kopecks;not null"`
	Status         enums.PayoutStatus `gorm:"column:status;not null;default:'pending'"`
	PaymentDetails *string            `gorm:"column:payment_details"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	CompletedAt    *time.Time         `gorm:"column:completed_at"`
}
