package referrals

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tunnelpay/tunnelpay-backend/internal/users"
	"github.com/tunnelpay/tunnelpay-backend/pkg/config"
	"github.com/tunnelpay/tunnelpay-backend/pkg/db/models"
	"github.com/tunnelpay/tunnelpay-backend/pkg/enums"
	pkgerrors "github.com/tunnelpay/tunnelpay-backend/pkg/errors"
	"github.com/tunnelpay/tunnelpay-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the referral payout service.
type ServiceParams struct {
	Repo   Repository
	Users  users.Repository
	Tx     txRunner
	Config config.ReferralConfig
	Logger *logger.Logger
}

// Service handles referral payout requests against accumulated balances.
type Service struct {
	repo  Repository
	users users.Repository
	tx    txRunner
	cfg   config.ReferralConfig
	logg  *logger.Logger
}

// NewService builds a referral payout service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Users == nil {
		return nil, errors.New("users repo is required")
	}
	if params.Tx == nil {
		return nil, errors.New("tx runner is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		repo:  params.Repo,
		users: params.Users,
		tx:    params.Tx,
		cfg:   params.Config,
		logg:  params.Logger,
	}, nil
}

// RequestPayout deducts the full referral balance and opens a pending payout.
// The balance must meet the configured minimum.
func (s *Service) RequestPayout(ctx context.Context, userID uuid.UUID, paymentDetails string) (*models.ReferralPayout, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading user")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	amount := user.ReferralBalanceKopecks
	if amount < s.cfg.MinPayoutKopecks {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "referral balance below payout minimum").
			WithDetails(map[string]int64{
				"balance_kopecks": amount,
				"minimum_kopecks": s.cfg.MinPayoutKopecks,
			})
	}

	payout := &models.ReferralPayout{
		ID:            uuid.New(),
		UserID:        userID,
		AmountKopecks: amount,
		Status:        enums.PayoutStatusPending,
	}
	if paymentDetails != "" {
		payout.PaymentDetails = &paymentDetails
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		deducted, err := s.users.WithTx(tx).DeductReferralBalance(ctx, userID, amount)
		if err != nil {
			return err
		}
		if !deducted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "referral balance changed, retry the payout")
		}
		return s.repo.WithTx(tx).CreatePayout(ctx, payout)
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating payout")
	}

	s.logg.Info(s.logg.WithUserID(ctx, userID.String()), "referral payout requested")
	return payout, nil
}

// CompletePayout marks a pending payout as paid out.
func (s *Service) CompletePayout(ctx context.Context, payoutID uuid.UUID) (*models.ReferralPayout, error) {
	payout, err := s.repo.FindPayout(ctx, payoutID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading payout")
	}
	if payout == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
	}
	if payout.Status != enums.PayoutStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payout is not pending").
			WithDetails(map[string]string{"status": payout.Status.String()})
	}

	now := time.Now().UTC()
	payout.Status = enums.PayoutStatusCompleted
	payout.CompletedAt = &now
	if err := s.repo.UpdatePayout(ctx, payout); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating payout")
	}
	return payout, nil
}

// ListPending returns payouts awaiting manual processing.
func (s *Service) ListPending(ctx context.Context) ([]models.ReferralPayout, error) {
	status := enums.PayoutStatusPending
	payouts, err := s.repo.ListPayouts(ctx, &status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing payouts")
	}
	return payouts, nil
}
