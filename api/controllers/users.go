package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tunnelpay/tunnelpay-backend/api/responses"
	"github.com/tunnelpay/tunnelpay-backend/api/validators"
	usersvc "github.com/tunnelpay/tunnelpay-backend/internal/users"
	"github.com/tunnelpay/tunnelpay-backend/pkg/db/models"
	pkgerrors "github.com/tunnelpay/tunnelpay-backend/pkg/errors"
	"github.com/tunnelpay/tunnelpay-backend/pkg/logger"
)

// UsersRegister creates or fetches the user for a telegram account. The call
// is idempotent; repeating it returns the existing row.
func UsersRegister(svc *usersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		var payload registerUserRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, created, err := svc.Register(r.Context(), usersvc.RegisterParams{
			TelegramID:   payload.TelegramID,
			Username:     payload.Username,
			FirstName:    payload.FirstName,
			LastName:     payload.LastName,
			ReferralCode: strings.TrimSpace(payload.ReferralCode),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, newUserResponse(*user))
	}
}

// UsersGet returns the profile for a telegram id.
func UsersGet(svc *usersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		telegramID, err := telegramIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.Get(r.Context(), telegramID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newUserResponse(*user))
	}
}

type registerUserRequest struct {
	TelegramID   int64   `json:"telegram_id" validate:"required"`
	Username     *string `json:"username"`
	FirstName    *string `json:"first_name"`
	LastName     *string `json:"last_name"`
	ReferralCode string  `json:"referral_code"`
}

type userResponse struct {
	ID                     uuid.UUID `json:"id"`
	TelegramID             int64     `json:"telegram_id"`
	Username               *string   `json:"username,omitempty"`
	FirstName              *string   `json:"first_name,omitempty"`
	LastName               *string   `json:"last_name,omitempty"`
	ReferralCode           string    `json:"referral_code"`
	ReferralBalanceKopecks int64     `json:"referral_balance_kopecks"`
	TotalReferrals         int64     `json:"total_referrals"`
	TotalSpentKopecks      int64     `json:"total_spent_kopecks"`
	CreatedAt              time.Time `json:"created_at"`
}

func newUserResponse(u models.User) userResponse {
	return userResponse{
		ID:                     u.ID,
		TelegramID:             u.TelegramID,
		Username:               u.Username,
		FirstName:              u.FirstName,
		LastName:               u.LastName,
		ReferralCode:           u.ReferralCode,
		ReferralBalanceKopecks: u.ReferralBalanceKopecks,
		TotalReferrals:         u.TotalReferrals,
		TotalSpentKopecks:      u.TotalSpentKopecks,
		CreatedAt:              u.CreatedAt,
	}
}

func telegramIDParam(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "telegramID"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid telegram id")
	}
	return id, nil
}
