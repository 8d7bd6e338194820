package referrals

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tunnelpay/tunnelpay-backend/internal/users"
	"github.com/tunnelpay/tunnelpay-backend/pkg/config"
	"github.com/tunnelpay/tunnelpay-backend/pkg/db/models"
	"github.com/tunnelpay/tunnelpay-backend/pkg/enums"
	pkgerrors "github.com/tunnelpay/tunnelpay-backend/pkg/errors"
	"github.com/tunnelpay/tunnelpay-backend/pkg/logger"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (g *gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

func setupPayoutTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	schema := []string{`
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
);`, `
CREATE TABLE IF NOT EXISTS referral_payouts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  amount_kopecks INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  payment_details TEXT,
  created_at DATETIME,
  completed_at DATETIME
);`}
	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newPayoutService(t *testing.T, db *gorm.DB, minPayout int64) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(db),
		Users:  users.NewRepository(db),
		Tx:     &gormTxRunner{db: db},
		Config: config.ReferralConfig{BonusPercent: 10, MinPayoutKopecks: minPayout},
		Logger: logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel}),
	})
	require.NoError(t, err)
	return svc
}

func seedUserWithBalance(t *testing.T, db *gorm.DB, balance int64) *models.User {
	t.Helper()
	user := &models.User{
		ID:                     uuid.New(),
		TelegramID:             int64(uuid.New().ID()),
		IsActive:               true,
		ReferralCode:           uuid.NewString()[:8],
		ReferralBalanceKopecks: balance,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestRequestPayoutBelowMinimum(t *testing.T) {
	db := setupPayoutTestDB(t)
	svc := newPayoutService(t, db, 10000)
	user := seedUserWithBalance(t, db, 9999)

	_, err := svc.RequestPayout(context.Background(), user.ID, "card 1234")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestRequestPayoutDrainsBalance(t *testing.T) {
	db := setupPayoutTestDB(t)
	svc := newPayoutService(t, db, 10000)
	user := seedUserWithBalance(t, db, 12500)

	payout, err := svc.RequestPayout(context.Background(), user.ID, "card 1234")
	require.NoError(t, err)
	assert.Equal(t, int64(12500), payout.AmountKopecks)
	assert.Equal(t, enums.PayoutStatusPending, payout.Status)

	var stored models.User
	require.NoError(t, db.Where("id = ?", user.ID).First(&stored).Error)
	assert.Equal(t, int64(0), stored.ReferralBalanceKopecks)
}

func TestCompletePayout(t *testing.T) {
	db := setupPayoutTestDB(t)
	svc := newPayoutService(t, db, 10000)
	user := seedUserWithBalance(t, db, 20000)

	payout, err := svc.RequestPayout(context.Background(), user.ID, "")
	require.NoError(t, err)

	completed, err := svc.CompletePayout(context.Background(), payout.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)

	_, err = svc.CompletePayout(context.Background(), payout.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestListPendingPayouts(t *testing.T) {
	db := setupPayoutTestDB(t)
	svc := newPayoutService(t, db, 10000)

	first := seedUserWithBalance(t, db, 20000)
	second := seedUserWithBalance(t, db, 30000)

	_, err := svc.RequestPayout(context.Background(), first.ID, "")
	require.NoError(t, err)
	payout, err := svc.RequestPayout(context.Background(), second.ID, "")
	require.NoError(t, err)

	_, err = svc.CompletePayout(context.Background(), payout.ID)
	require.NoError(t, err)

	pending, err := svc.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, first.ID, pending[0].UserID)
}
