package controllers

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tunnelpay/tunnelpay-backend/api/responses"
	activationsvc "github.com/tunnelpay/tunnelpay-backend/internal/activation"
	usersvc "github.com/tunnelpay/tunnelpay-backend/internal/users"
	"github.com/tunnelpay/tunnelpay-backend/pkg/db/models"
	pkgerrors "github.com/tunnelpay/tunnelpay-backend/pkg/errors"
	"github.com/tunnelpay/tunnelpay-backend/pkg/logger"
)

// SubscriptionStatus reports the user's current subscription. An expired
// subscription is deactivated on read, so the answer is always current.
func SubscriptionStatus(activation *activationsvc.Service, users *usersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if activation == nil || users == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
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

		subscription, err := activation.Status(r.Context(), user.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if subscription == nil {
			responses.WriteSuccess(w, map[string]any{"active": false})
			return
		}

		resp := newSubscriptionResponse(*subscription, time.Now().UTC())
		responses.WriteSuccess(w, map[string]any{"active": resp.Active, "subscription": resp})
	}
}

type subscriptionResponse struct {
	ID             uuid.UUID `json:"id"`
	PlanID         string    `json:"plan_id"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	Active         bool      `json:"active"`
	DaysRemaining  int       `json:"days_remaining"`
	ServerLocation string    `json:"server_location"`
	Credential     string    `json:"credential,omitempty"`
}

func newSubscriptionResponse(s models.Subscription, now time.Time) subscriptionResponse {
	out := subscriptionResponse{
		ID:             s.ID,
		PlanID:         s.PlanID,
		StartDate:      s.StartDate,
		EndDate:        s.EndDate,
		Active:         s.Active && !s.IsExpired(now),
		DaysRemaining:  s.DaysRemaining(now),
		ServerLocation: s.ServerLocation,
	}
	if len(s.Credential) > 0 {
		out.Credential = base64.StdEncoding.EncodeToString(s.Credential)
	}
	return out
}
