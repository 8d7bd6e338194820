package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tunnelpay/tunnelpay-backend/internal/providers"
	"github.com/tunnelpay/tunnelpay-backend/pkg/db/models"
	"github.com/tunnelpay/tunnelpay-backend/pkg/enums"
	pkgerrors "github.com/tunnelpay/tunnelpay-backend/pkg/errors"
	"github.com/tunnelpay/tunnelpay-backend/pkg/logger"
	"github.com/tunnelpay/tunnelpay-backend/pkg/plans"
)

// intentTTL bounds how long an invoice stays payable.
const intentTTL = 15 * time.Minute

// ServiceParams groups dependencies for the payment intent service.
type ServiceParams struct {
	Repo      Repository
	Providers *providers.Registry
	Catalog   *plans.Catalog
	Logger    *logger.Logger
}

// Service opens payment intents against the configured providers.
type Service struct {
	repo      Repository
	providers *providers.Registry
	catalog   *plans.Catalog
	logg      *logger.Logger
}

// NewService builds a payment intent service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Providers == nil {
		return nil, errors.New("provider registry is required")
	}
	if params.Catalog == nil {
		return nil, errors.New("plan catalog is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		repo:      params.Repo,
		providers: params.Providers,
		catalog:   params.Catalog,
		logg:      params.Logger,
	}, nil
}

// CreateIntentParams identifies who pays for what through which provider.
type CreateIntentParams struct {
	UserID   uuid.UUID
	PlanID   string
	Provider enums.Provider
}

// CreateIntent opens a pending intent and asks the provider for an invoice.
// The pending row is persisted before the provider call so an intent exists
// even when the provider is down; a provider failure marks it failed and the
// failed intent is returned with the error.
func (s *Service) CreateIntent(ctx context.Context, params CreateIntentParams) (*models.PaymentIntent, error) {
	plan, err := s.catalog.ByID(params.PlanID)
	if err != nil {
		return nil, err
	}
	gateway, err := s.providers.Get(params.Provider)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	intent := &models.PaymentIntent{
		ID:            uuid.New(),
		UserID:        params.UserID,
		PlanID:        plan.ID,
		Provider:      params.Provider,
		AmountKopecks: plan.PriceKopecks,
		Status:        enums.IntentStatusPending,
		CreatedAt:     now,
		ExpiresAt:     now.Add(intentTTL),
	}
	if err := s.repo.Create(ctx, intent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting intent")
	}

	ctx = s.logg.WithIntentID(s.logg.WithProvider(ctx, params.Provider.String()), intent.ID.String())

	result, err := gateway.Create(ctx, providers.CreateParams{
		AmountKopecks: plan.PriceKopecks,
		OrderID:       intent.ID.String(),
		Description:   "VPN subscription " + plan.Name,
	})
	if err != nil {
		if markErr := s.repo.MarkFailed(ctx, intent.ID, err.Error()); markErr != nil {
			s.logg.Error(ctx, "marking intent failed", markErr)
		}
		intent.Status = enums.IntentStatusFailed
		reason := err.Error()
		intent.FailureReason = &reason
		s.logg.Warn(ctx, "provider refused to open an invoice")
		return intent, err
	}

	intent.ExternalID = &result.ExternalID
	intent.PayURL = &result.PayURL
	if err := s.repo.Update(ctx, intent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storing provider invoice")
	}

	s.logg.Info(ctx, "payment intent created")
	return intent, nil
}

// GetIntent loads an intent or fails with not found.
func (s *Service) GetIntent(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	intent, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading intent")
	}
	if intent == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
	}
	return intent, nil
}

// History lists a user's intents, newest first.
func (s *Service) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.PaymentIntent, error) {
	intents, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing intents")
	}
	return intents, nil
}
