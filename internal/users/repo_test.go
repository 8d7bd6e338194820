package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tunnelpay/tunnelpay-backend/pkg/db/models"
)

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	usersTable := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  telegram_id INTEGER NOT NULL UNIQUE,
  username TEXT,
  first_name TEXT,
  last_name TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  referrer_id TEXT,
  referral_code TEXT NOT NULL UNIQUE,
  referral_balance_kopecks INTEGER NOT NULL DEFAULT 0,
  total_referrals INTEGER NOT NULL DEFAULT 0,
  total_spent_kopecks INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(usersTable).Error)
	return db
}

func seedUser(t *testing.T, db *gorm.DB, telegramID int64, code string) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.New(),
		TelegramID:   telegramID,
		IsActive:     true,
		ReferralCode: code,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestRepositoryAttachReferrerOnce(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, 100, "CODEAAA1")
	first := seedUser(t, db, 101, "CODEAAA2")
	second := seedUser(t, db, 102, "CODEAAA3")

	attached, err := repo.AttachReferrer(ctx, user.ID, first.ID)
	require.NoError(t, err)
	assert.True(t, attached)

	attached, err = repo.AttachReferrer(ctx, user.ID, second.ID)
	require.NoError(t, err)
	assert.False(t, attached, "referrer must be immutable once set")

	stored, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ReferrerID)
	assert.Equal(t, first.ID, *stored.ReferrerID)
}

func TestRepositoryBalanceUpdates(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, 200, "CODEBBB1")

	require.NoError(t, repo.AddReferralBalance(ctx, user.ID, 2990))
	require.NoError(t, repo.AddReferralBalance(ctx, user.ID, 1000))
	require.NoError(t, repo.AddTotalSpent(ctx, user.ID, 29900))

	stored, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3990), stored.ReferralBalanceKopecks)
	assert.Equal(t, int64(29900), stored.TotalSpentKopecks)

	deducted, err := repo.DeductReferralBalance(ctx, user.ID, 5000)
	require.NoError(t, err)
	assert.False(t, deducted, "deduction past the balance must be refused")

	deducted, err = repo.DeductReferralBalance(ctx, user.ID, 3990)
	require.NoError(t, err)
	assert.True(t, deducted)

	stored, err = repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stored.ReferralBalanceKopecks)
}

func TestRepositoryFindMissingReturnsNil(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user, err := repo.FindByTelegramID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, user)

	user, err = repo.FindByReferralCode(ctx, "NOPE0000")
	require.NoError(t, err)
	assert.Nil(t, user)
}
