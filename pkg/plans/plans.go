package plans

import (
	"sort"

	pkgerrors "github.com/tunnelpay/tunnelpay-backend/pkg/errors"

	"github.com/tunnelpay/tunnelpay-backend/pkg/config"
)

// Plan describes a purchasable subscription tier. PriceKopecks is the
// integer minor-unit price; prices are never represented as floats.
type Plan struct {
	ID           string
	Name         string
	PriceKopecks int64
	DurationDays int
	Popular      bool
}

// Catalog resolves plan ids to plans. Built once at startup from config.
type Catalog struct {
	byID  map[string]Plan
	order []string
}

// NewCatalog builds the catalog from configured ruble prices.
func NewCatalog(cfg config.PlansConfig) *Catalog {
	plans := []Plan{
		{ID: "1_month", Name: "1 month", PriceKopecks: cfg.OneMonthPrice * 100, DurationDays: 30},
		{ID: "3_months", Name: "3 months", PriceKopecks: cfg.ThreeMonthPrice * 100, DurationDays: 90, Popular: true},
		{ID: "6_months", Name: "6 months", PriceKopecks: cfg.SixMonthPrice * 100, DurationDays: 180},
		{ID: "12_months", Name: "12 months", PriceKopecks: cfg.TwelveMonthPrice * 100, DurationDays: 365},
	}

	byID := make(map[string]Plan, len(plans))
	order := make([]string, 0, len(plans))
	for _, plan := range plans {
		byID[plan.ID] = plan
		order = append(order, plan.ID)
	}
	return &Catalog{byID: byID, order: order}
}

// ByID resolves a plan or returns a validation error for unknown ids.
func (c *Catalog) ByID(id string) (Plan, error) {
	plan, ok := c.byID[id]
	if !ok {
		return Plan{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown plan").WithDetails(map[string]string{"plan_id": id})
	}
	return plan, nil
}

// All returns the plans in duration order.
func (c *Catalog) All() []Plan {
	out := make([]Plan, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DurationDays < out[j].DurationDays
	})
	return out
}
