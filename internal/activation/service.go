package activation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tunnelpay/tunnelpay-backend/internal/notify"
	"github.com/tunnelpay/tunnelpay-backend/internal/payments"
	"github.com/tunnelpay/tunnelpay-backend/internal/providers"
	"github.com/tunnelpay/tunnelpay-backend/internal/referrals"
	"github.com/tunnelpay/tunnelpay-backend/internal/users"
	"github.com/tunnelpay/tunnelpay-backend/pkg/config"
	"github.com/tunnelpay/tunnelpay-backend/pkg/db/models"
	"github.com/tunnelpay/tunnelpay-backend/pkg/enums"
	pkgerrors "github.com/tunnelpay/tunnelpay-backend/pkg/errors"
	"github.com/tunnelpay/tunnelpay-backend/pkg/logger"
	"github.com/tunnelpay/tunnelpay-backend/pkg/plans"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Provisioner assigns servers and issues credentials for new subscriptions.
type Provisioner interface {
	PickLocation() string
	Issue(ctx context.Context, userID uuid.UUID, serverLocation string) ([]byte, error)
}

// ServiceParams groups dependencies for the activation service.
type ServiceParams struct {
	Intents     payments.Repository
	Subs        Repository
	Users       users.Repository
	Providers   *providers.Registry
	Catalog     *plans.Catalog
	Provisioner Provisioner
	Notifier    notify.Notifier
	Tx          txRunner
	Referral    config.ReferralConfig
	Logger      *logger.Logger
}

// Service confirms payments against providers and activates subscriptions
// exactly once per intent.
type Service struct {
	intents     payments.Repository
	subs        Repository
	users       users.Repository
	providers   *providers.Registry
	catalog     *plans.Catalog
	provisioner Provisioner
	notifier    notify.Notifier
	tx          txRunner
	referral    config.ReferralConfig
	logg        *logger.Logger
}

// NewService builds the activation service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Intents == nil {
		return nil, errors.New("intents repo is required")
	}
	if params.Subs == nil {
		return nil, errors.New("subscriptions repo is required")
	}
	if params.Users == nil {
		return nil, errors.New("users repo is required")
	}
	if params.Providers == nil {
		return nil, errors.New("provider registry is required")
	}
	if params.Catalog == nil {
		return nil, errors.New("plan catalog is required")
	}
	if params.Provisioner == nil {
		return nil, errors.New("provisioner is required")
	}
	if params.Notifier == nil {
		return nil, errors.New("notifier is required")
	}
	if params.Tx == nil {
		return nil, errors.New("tx runner is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		intents:     params.Intents,
		subs:        params.Subs,
		users:       params.Users,
		providers:   params.Providers,
		catalog:     params.Catalog,
		provisioner: params.Provisioner,
		notifier:    params.Notifier,
		tx:          params.Tx,
		referral:    params.Referral,
		logg:        params.Logger,
	}, nil
}

// VerifyResult reports where an intent landed after a verification pass.
// Remaining is meaningful only while the intent stays pending.
type VerifyResult struct {
	Intent       *models.PaymentIntent
	Subscription *models.Subscription
	Remaining    time.Duration
}

// Verify polls the provider for an intent and activates the subscription on a
// confirmed payment. Calling it again on a completed or failed intent returns
// the stored outcome without touching the provider; an expired intent answers
// with an intent expired error. Two concurrent calls race on a conditional
// update inside the activation transaction and exactly one of them activates.
func (s *Service) Verify(ctx context.Context, intentID uuid.UUID) (*VerifyResult, error) {
	intent, err := s.intents.FindByID(ctx, intentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading intent")
	}
	if intent == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
	}

	ctx = s.logg.WithIntentID(s.logg.WithProvider(ctx, intent.Provider.String()), intent.ID.String())

	if intent.Status == enums.IntentStatusExpired {
		return nil, pkgerrors.New(pkgerrors.CodeIntentExpired, "payment window expired")
	}
	if intent.Status.IsTerminal() {
		return s.settledResult(ctx, intent)
	}

	now := time.Now().UTC()
	if intent.IsExpired(now) {
		if _, err := s.intents.MarkExpired(ctx, intent.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expiring intent")
		}
		s.logg.Info(ctx, "intent expired before payment")
		return nil, pkgerrors.New(pkgerrors.CodeIntentExpired, "payment window expired")
	}

	if intent.ExternalID == nil {
		return &VerifyResult{Intent: intent, Remaining: intent.RemainingTime(now)}, nil
	}

	gateway, err := s.providers.Get(intent.Provider)
	if err != nil {
		return nil, err
	}
	status, err := gateway.Check(ctx, *intent.ExternalID)
	if err != nil {
		return nil, err
	}

	switch status {
	case enums.CanonicalStatusCompleted:
		return s.activate(ctx, intent, now)
	case enums.CanonicalStatusFailed:
		if err := s.intents.MarkFailed(ctx, intent.ID, "provider reported failure"); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failing intent")
		}
		intent.Status = enums.IntentStatusFailed
		s.logg.Info(ctx, "payment failed at the provider")
		return &VerifyResult{Intent: intent}, nil
	default:
		// pending and unknown both mean keep waiting.
		return &VerifyResult{Intent: intent, Remaining: intent.RemainingTime(now)}, nil
	}
}

// settledResult reloads the stored outcome for a terminal intent.
func (s *Service) settledResult(ctx context.Context, intent *models.PaymentIntent) (*VerifyResult, error) {
	result := &VerifyResult{Intent: intent}
	if intent.Status == enums.IntentStatusCompleted {
		subscription, err := s.subs.FindActiveByUser(ctx, intent.UserID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading subscription")
		}
		result.Subscription = subscription
	}
	return result, nil
}

// activate races the conditional completion update inside the activation
// transaction, so an intent is never completed without its subscription and
// credits. The loser returns the winner's outcome.
func (s *Service) activate(ctx context.Context, intent *models.PaymentIntent, now time.Time) (*VerifyResult, error) {
	plan, err := s.catalog.ByID(intent.PlanID)
	if err != nil {
		return nil, err
	}

	location := s.provisioner.PickLocation()
	credential, err := s.provisioner.Issue(ctx, intent.UserID, location)
	if err != nil {
		// The subscription still activates; the credential can be
		// reissued once the provisioner recovers.
		s.logg.Error(ctx, "issuing credential", err)
		credential = nil
	}

	subscription := &models.Subscription{
		ID:             uuid.New(),
		UserID:         intent.UserID,
		PlanID:         plan.ID,
		StartDate:      now,
		EndDate:        now.AddDate(0, 0, plan.DurationDays),
		Active:         true,
		Credential:     credential,
		ServerLocation: location,
	}

	user, err := s.users.FindByID(ctx, intent.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading user")
	}

	bonus := referrals.Bonus(intent.AmountKopecks, s.referral.BonusPercent)

	won := false
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.intents.WithTx(tx).MarkCompleted(ctx, intent.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		won = true

		subs := s.subs.WithTx(tx)
		if err := subs.DeactivateAllForUser(ctx, intent.UserID); err != nil {
			return err
		}
		if err := subs.Create(ctx, subscription); err != nil {
			return err
		}
		usersTx := s.users.WithTx(tx)
		if err := usersTx.AddTotalSpent(ctx, intent.UserID, intent.AmountKopecks); err != nil {
			return err
		}
		if user != nil && user.ReferrerID != nil && bonus > 0 {
			if err := usersTx.AddReferralBalance(ctx, *user.ReferrerID, bonus); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "activating subscription")
	}
	if !won {
		stored, err := s.intents.FindByID(ctx, intent.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reloading intent")
		}
		if stored == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
		}
		return s.settledResult(ctx, stored)
	}

	intent.Status = enums.IntentStatusCompleted
	intent.CompletedAt = &now

	s.logg.Info(s.logg.WithUserID(ctx, intent.UserID.String()), "subscription activated")
	s.notifyAfterActivation(ctx, user, subscription, bonus)

	return &VerifyResult{Intent: intent, Subscription: subscription}, nil
}

// notifyAfterActivation runs post-commit; delivery failures are logged and
// never propagated.
func (s *Service) notifyAfterActivation(ctx context.Context, user *models.User, subscription *models.Subscription, bonus int64) {
	if user == nil {
		return
	}

	msg := notify.Message{
		Text: fmt.Sprintf("Your VPN subscription is active until %s. Server: %s.",
			subscription.EndDate.Format("02.01.2006"), subscription.ServerLocation),
	}
	if len(subscription.Credential) > 0 {
		msg.Document = &notify.Document{Name: "vpn.conf", Content: subscription.Credential}
	}
	if err := s.notifier.Send(ctx, user.TelegramID, msg); err != nil {
		s.logg.Warn(ctx, "delivering activation message failed")
	}

	if user.ReferrerID == nil || bonus <= 0 {
		return
	}
	referrer, err := s.users.FindByID(ctx, *user.ReferrerID)
	if err != nil || referrer == nil {
		s.logg.Warn(ctx, "referrer lookup for bonus notification failed")
		return
	}
	text := fmt.Sprintf("Referral bonus credited: %d.%02d RUB.", bonus/100, bonus%100)
	if err := s.notifier.Send(ctx, referrer.TelegramID, notify.Message{Text: text}); err != nil {
		s.logg.Warn(ctx, "delivering referral bonus message failed")
	}
}

// Status reports the user's current subscription, lazily deactivating a row
// whose end date already passed.
func (s *Service) Status(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	subscription, err := s.subs.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading subscription")
	}
	if subscription == nil {
		return nil, nil
	}
	if subscription.IsExpired(time.Now().UTC()) {
		if err := s.subs.Deactivate(ctx, subscription.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivating subscription")
		}
		subscription.Active = false
	}
	return subscription, nil
}
