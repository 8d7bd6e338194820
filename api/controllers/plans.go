package controllers

import (
	"net/http"

	"github.com/tunnelpay/tunnelpay-backend/api/responses"
	pkgerrors "github.com/tunnelpay/tunnelpay-backend/pkg/errors"
	"github.com/tunnelpay/tunnelpay-backend/pkg/logger"
	"github.com/tunnelpay/tunnelpay-backend/pkg/plans"
)

// PlansList returns the purchasable subscription tiers.
func PlansList(catalog *plans.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if catalog == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan catalog unavailable"))
			return
		}

		all := catalog.All()
		out := make([]planResponse, len(all))
		for i, plan := range all {
			out[i] = newPlanResponse(plan)
		}
		responses.WriteSuccess(w, map[string]any{"plans": out})
	}
}

type planResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PriceKopecks int64  `json:"price_kopecks"`
	DurationDays int    `json:"duration_days"`
	Popular      bool   `json:"popular"`
}

func newPlanResponse(p plans.Plan) planResponse {
	return planResponse{
		ID:           p.ID,
		Name:         p.Name,
		PriceKopecks: p.PriceKopecks,
		DurationDays: p.DurationDays,
		Popular:      p.Popular,
	}
}
