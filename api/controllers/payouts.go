package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tunnelpay/tunnelpay-backend/api/responses"
	"github.com/tunnelpay/tunnelpay-backend/api/validators"
	referralsvc "github.com/tunnelpay/tunnelpay-backend/internal/referrals"
	usersvc "github.com/tunnelpay/tunnelpay-backend/internal/users"
	"github.com/tunnelpay/tunnelpay-backend/pkg/db/models"
	pkgerrors "github.com/tunnelpay/tunnelpay-backend/pkg/errors"
	"github.com/tunnelpay/tunnelpay-backend/pkg/logger"
)

// PayoutRequest opens a withdrawal of the user's referral balance. The
// whole balance is withdrawn; partial payouts are not supported.
func PayoutRequest(referrals *referralsvc.Service, users *usersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if referrals == nil || users == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "referral service unavailable"))
			return
		}

		telegramID, err := telegramIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload requestPayoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := users.Get(r.Context(), telegramID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payout, err := referrals.RequestPayout(r.Context(), user.ID, strings.TrimSpace(payload.PaymentDetails))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newPayoutResponse(*payout))
	}
}

// AdminPayoutsList returns payout requests awaiting manual settlement.
func AdminPayoutsList(referrals *referralsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if referrals == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "referral service unavailable"))
			return
		}

		payouts, err := referrals.ListPending(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]payoutResponse, len(payouts))
		for i, payout := range payouts {
			out[i] = newPayoutResponse(payout)
		}
		responses.WriteSuccess(w, map[string]any{"payouts": out})
	}
}

// AdminPayoutComplete marks a payout as settled after the operator has paid
// the user out of band.
func AdminPayoutComplete(referrals *referralsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if referrals == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "referral service unavailable"))
			return
		}

		raw := strings.TrimSpace(chi.URLParam(r, "payoutID"))
		payoutID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payout id"))
			return
		}

		payout, err := referrals.CompletePayout(r.Context(), payoutID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPayoutResponse(*payout))
	}
}

type requestPayoutRequest struct {
	PaymentDetails string `json:"payment_details" validate:"required"`
}

type payoutResponse struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	AmountKopecks  int64      `json:"amount_kopecks"`
	Status         string     `json:"status"`
	PaymentDetails *string    `json:"payment_details,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

func newPayoutResponse(p models.ReferralPayout) payoutResponse {
	return payoutResponse{
		ID:             p.ID,
		UserID:         p.UserID,
		AmountKopecks:  p.AmountKopecks,
		Status:         p.Status.String(),
		PaymentDetails: p.PaymentDetails,
		CreatedAt:      p.CreatedAt,
		CompletedAt:    p.CompletedAt,
	}
}
