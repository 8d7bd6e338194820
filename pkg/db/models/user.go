package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the subset of chat-user identity the billing engine owns. All
// monetary fields are integer kopecks.
type User struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	TelegramID int64     `gorm:"column:telegram_id;not null;uniqueIndex"`
	Username   *string   `gorm:"column:username"`
	FirstName  *string   `gorm:"column:first_name"`
	LastName   *string   `gorm:"column:last_name"`
	IsActive   bool      `gorm:"column:is_active;not null;default:true"`

	// ReferrerID is set at most once and never changes afterwards.
	ReferrerID             *uuid.UUID `gorm:"column:referrer_id;type:uuid;index"`
	ReferralCode           string     `gorm:"column:referral_code;not null;uniqueIndex"`
	ReferralBalanceKopecks int64      `gorm:"column:referral_balance_kopecks;not null;default:0"`
	TotalReferrals         int64      `gorm:"column:total_referrals;not null;default:0"`
	TotalSpentKopecks      int64      `gorm:"column:total_spent_kopecks;not null;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// FullName builds a display name from whatever identity parts exist.
func (u User) FullName() string {
	name := ""
	if u.FirstName != nil {
		name = *u.FirstName
	}
	if u.LastName != nil {
		if name != "" {
			name += " "
		}
		name += *u.LastName
	}
	if name != "" {
		return name
	}
	if u.Username != nil && *u.Username != "" {
		return *u.Username
	}
	return "user"
}
