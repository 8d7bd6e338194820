package models

import (
	"time"

	"github.com/google/uuid"
)

// Subscription grants time-limited VPN access. At most one row per user is
// active and unexpired; activation deactivates prior rows in the same
// transaction. Superseded rows are kept, never deleted.
type Subscription struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID         uuid.UUID `gorm:"column:user_id;type:uuid;not null;index:idx_subscriptions_user_active"`
	PlanID         string    `gorm:"column:plan_id;not null"`
	StartDate      time.Time `gorm:"column:start_date;not null"`
	EndDate        time.Time `gorm:"column:end_date;not null"`
	Active         bool      `gorm:"column:active;not null;default:true;index:idx_subscriptions_user_active"`
	Credential     []byte    `gorm:"column:credential"`
	ServerLocation string    `gorm:"column:server_location;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// IsExpired reports whether the subscription has run out.
func (s Subscription) IsExpired(now time.Time) bool {
	return now.After(s.EndDate)
}

// DaysRemaining returns whole days left, zero once expired.
func (s Subscription) DaysRemaining(now time.Time) int {
	if s.IsExpired(now) {
		return 0
	}
	return int(s.EndDate.Sub(now).Hours() / 24)
}
