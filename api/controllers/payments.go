package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tunnelpay/tunnelpay-backend/api/responses"
	"github.com/tunnelpay/tunnelpay-backend/api/validators"
	activationsvc "github.com/tunnelpay/tunnelpay-backend/internal/activation"
	paymentsvc "github.com/tunnelpay/tunnelpay-backend/internal/payments"
	usersvc "github.com/tunnelpay/tunnelpay-backend/internal/users"
	"github.com/tunnelpay/tunnelpay-backend/pkg/db/models"
	"github.com/tunnelpay/tunnelpay-backend/pkg/enums"
	pkgerrors "github.com/tunnelpay/tunnelpay-backend/pkg/errors"
	"github.com/tunnelpay/tunnelpay-backend/pkg/logger"
)

// IntentCreate opens a payment intent for a plan with a chosen provider and
// returns the invoice the client should pay.
func IntentCreate(payments *paymentsvc.Service, users *usersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if payments == nil || users == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		var payload createIntentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		provider, err := enums.ParseProvider(payload.Provider)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid provider"))
			return
		}

		user, err := users.Get(r.Context(), payload.TelegramID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		intent, err := payments.CreateIntent(r.Context(), paymentsvc.CreateIntentParams{
			UserID:   user.ID,
			PlanID:   payload.PlanID,
			Provider: provider,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newIntentResponse(*intent, time.Now().UTC()))
	}
}

// IntentGet returns the current state of one intent without polling the
// provider.
func IntentGet(payments *paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if payments == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		intentID, err := intentIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		intent, err := payments.GetIntent(r.Context(), intentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newIntentResponse(*intent, time.Now().UTC()))
	}
}

// IntentVerify polls the provider for an intent and activates the
// subscription when the payment is confirmed.
func IntentVerify(activation *activationsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if activation == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "activation service unavailable"))
			return
		}

		intentID, err := intentIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := activation.Verify(r.Context(), intentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newVerifyResponse(result))
	}
}

// IntentHistory returns a user's intents, newest first.
func IntentHistory(payments *paymentsvc.Service, users *usersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if payments == nil || users == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		telegramID, err := telegramIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := users.Get(r.Context(), telegramID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		intents, err := payments.History(r.Context(), user.ID, 0)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		now := time.Now().UTC()
		out := make([]intentResponse, len(intents))
		for i, intent := range intents {
			out[i] = newIntentResponse(intent, now)
		}
		responses.WriteSuccess(w, map[string]any{"intents": out})
	}
}

type createIntentRequest struct {
	TelegramID int64  `json:"telegram_id" validate:"required"`
	PlanID     string `json:"plan_id" validate:"required"`
	Provider   string `json:"provider" validate:"required"`
}

type intentResponse struct {
	ID               uuid.UUID  `json:"id"`
	PlanID           string     `json:"plan_id"`
	Provider         string     `json:"provider"`
	AmountKopecks    int64      `json:"amount_kopecks"`
	PayURL           *string    `json:"pay_url,omitempty"`
	Status           string     `json:"status"`
	FailureReason    *string    `json:"failure_reason,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	ExpiresAt        time.Time  `json:"expires_at"`
	RemainingSeconds int64      `json:"remaining_seconds"`
}

func newIntentResponse(intent models.PaymentIntent, now time.Time) intentResponse {
	return intentResponse{
		ID:               intent.ID,
		PlanID:           intent.PlanID,
		Provider:         intent.Provider.String(),
		AmountKopecks:    intent.AmountKopecks,
		PayURL:           intent.PayURL,
		Status:           intent.Status.String(),
		FailureReason:    intent.FailureReason,
		CreatedAt:        intent.CreatedAt,
		CompletedAt:      intent.CompletedAt,
		ExpiresAt:        intent.ExpiresAt,
		RemainingSeconds: int64(intent.RemainingTime(now).Seconds()),
	}
}

type verifyResponse struct {
	Intent           intentResponse        `json:"intent"`
	Subscription     *subscriptionResponse `json:"subscription,omitempty"`
	RemainingSeconds int64                 `json:"remaining_seconds"`
}

func newVerifyResponse(result *activationsvc.VerifyResult) verifyResponse {
	out := verifyResponse{
		Intent:           newIntentResponse(*result.Intent, time.Now().UTC()),
		RemainingSeconds: int64(result.Remaining.Seconds()),
	}
	if result.Subscription != nil {
		resp := newSubscriptionResponse(*result.Subscription, time.Now().UTC())
		out.Subscription = &resp
	}
	return out
}

func intentIDParam(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "intentID"))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid intent id")
	}
	return id, nil
}
