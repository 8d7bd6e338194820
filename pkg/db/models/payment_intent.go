package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tunnelpay/tunnelpay-backend/pkg/enums"
)

// PaymentIntent is one requested payment with a provider. Rows are
// append-only history: they are mutated only by status transitions and
// never deleted.
type PaymentIntent struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	UserID         uuid.UUID          `gorm:"column:user_id;type:uuid;not null;index"`
	PlanID         string             `gorm:"column:plan_id;not null"`
	Provider       enums.Provider     `gorm:"column:provider;not null"`
	AmountKopecks  int64              `gorm:"column:amount_kopecks;not null"`
	ExternalID     *string            `gorm:"column:external_id;index"`
	PayURL         *string            `gorm:"column:pay_url"`
	Status         enums.IntentStatus `gorm:"column:status;not null;default:'pending';index"`
	FailureReason  *string            `gorm:"column:failure_reason"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	CompletedAt    *time.Time         `gorm:"column:completed_at"`
	ExpiresAt      time.Time          `gorm:"column:expires_at;not null;index"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// IsExpired reports whether the intent is pending past its deadline.
func (p PaymentIntent) IsExpired(now time.Time) bool {
	return p.Status == enums.IntentStatusPending && now.After(p.ExpiresAt)
}

// RemainingTime returns how long the intent can still be paid, zero once
// past the deadline.
func (p PaymentIntent) RemainingTime(now time.Time) time.Duration {
	remaining := p.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
