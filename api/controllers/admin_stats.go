package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/tunnelpay/tunnelpay-backend/api/responses"
	pkgerrors "github.com/tunnelpay/tunnelpay-backend/pkg/errors"
	"github.com/tunnelpay/tunnelpay-backend/pkg/logger"
)

type userCounter interface {
	Count(ctx context.Context) (int64, error)
}

type subscriptionCounter interface {
	CountActive(ctx context.Context, now time.Time) (int64, error)
}

type revenueSummer interface {
	SumCompletedKopecks(ctx context.Context) (int64, error)
}

// AdminStats aggregates the headline numbers for the operator dashboard.
func AdminStats(users userCounter, subs subscriptionCounter, revenue revenueSummer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if users == nil || subs == nil || revenue == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stats unavailable"))
			return
		}

		ctx := r.Context()
		totalUsers, err := users.Count(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		activeSubscriptions, err := subs.CountActive(ctx, time.Now().UTC())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		revenueKopecks, err := revenue.SumCompletedKopecks(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"total_users":          totalUsers,
			"active_subscriptions": activeSubscriptions,
			"revenue_kopecks":      revenueKopecks,
		})
	}
}
