package users

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/tunnelpay/tunnelpay-backend/pkg/db/models"
	pkgerrors "github.com/tunnelpay/tunnelpay-backend/pkg/errors"
	"github.com/tunnelpay/tunnelpay-backend/pkg/logger"
)

const referralCodeAttempts = 5

// ServiceParams groups dependencies for the user service.
type ServiceParams struct {
	Repo   Repository
	Logger *logger.Logger
}

// Service orchestrates user registration and referral attachment.
type Service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds a user service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{repo: params.Repo, logg: params.Logger}, nil
}

// RegisterParams carries the chat identity for get-or-create registration.
type RegisterParams struct {
	TelegramID   int64
	Username     *string
	FirstName    *string
	LastName     *string
	ReferralCode string
}

// Register returns the user for a telegram id, creating the row on first
// contact. A referral code, when present, attaches the referrer; attachment
// happens at most once per user and never to the user themselves.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*models.User, bool, error) {
	if params.TelegramID == 0 {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "telegram id is required")
	}

	user, err := s.repo.FindByTelegramID(ctx, params.TelegramID)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "looking up user")
	}

	created := false
	if user == nil {
		user, err = s.createUser(ctx, params)
		if err != nil {
			return nil, false, err
		}
		created = true
		s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "user registered")
	}

	if params.ReferralCode != "" && user.ReferrerID == nil {
		if err := s.attachReferrer(ctx, user, params.ReferralCode); err != nil {
			return nil, false, err
		}
	}

	return user, created, nil
}

func (s *Service) createUser(ctx context.Context, params RegisterParams) (*models.User, error) {
	for attempt := 0; attempt < referralCodeAttempts; attempt++ {
		code, err := newReferralCode()
		if err != nil {
			return nil, err
		}
		taken, err := s.repo.FindByReferralCode(ctx, code)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking referral code")
		}
		if taken != nil {
			continue
		}

		user := &models.User{
			ID:           uuid.New(),
			TelegramID:   params.TelegramID,
			Username:     params.Username,
			FirstName:    params.FirstName,
			LastName:     params.LastName,
			IsActive:     true,
			ReferralCode: code,
		}
		if err := s.repo.Create(ctx, user); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating user")
		}
		return user, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "could not allocate a referral code")
}

func (s *Service) attachReferrer(ctx context.Context, user *models.User, code string) error {
	referrer, err := s.repo.FindByReferralCode(ctx, code)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolving referral code")
	}
	if referrer == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown referral code").
			WithDetails(map[string]string{"code": code})
	}
	if referrer.ID == user.ID {
		return pkgerrors.New(pkgerrors.CodeValidation, "cannot use your own referral code")
	}

	attached, err := s.repo.AttachReferrer(ctx, user.ID, referrer.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attaching referrer")
	}
	if !attached {
		// A concurrent registration already set the referrer.
		return nil
	}
	if err := s.repo.IncrementTotalReferrals(ctx, referrer.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "counting referral")
	}
	user.ReferrerID = &referrer.ID

	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "referrer attached")
	return nil
}

// Get returns a user by telegram id or a not found error.
func (s *Service) Get(ctx context.Context, telegramID int64) (*models.User, error) {
	user, err := s.repo.FindByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "looking up user")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return user, nil
}

// GetByID returns a user by primary key or a not found error.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "looking up user")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return user, nil
}
