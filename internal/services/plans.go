package services

import "inventory-service/internal/models"

// Plan is a purchasable subscription tier.
type Plan struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	PriceMonthly  float64 `json:"price_monthly"`
	Popular       bool    `json:"popular"`
	MaxUsers      int     `json:"max_users"`
	MaxProducts   int     `json:"max_products"`
	MaxOrders     int     `json:"max_orders"`
	MaxWarehouses int     `json:"max_warehouses"`

	HasAdvancedReports bool `json:"has_advanced_reports"`
	HasAPIAccess       bool `json:"has_api_access"`
	HasPrioritySupport bool `json:"has_priority_support"`
}

// Plan ids
const (
	PlanTrial        = "trial"
	PlanStarter      = "starter"
	PlanProfessional = "professional"
	PlanEnterprise   = "enterprise"
)

// Plans returns the purchasable plan catalog, cheapest first.
func Plans() []Plan {
	return []Plan{
		{
			ID:            PlanStarter,
			Name:          "Starter",
			Description:   "For small teams getting started",
			PriceMonthly:  29,
			MaxUsers:      5,
			MaxProducts:   500,
			MaxOrders:     1000,
			MaxWarehouses: 2,
		},
		{
			ID:            PlanProfessional,
			Name:          "Professional",
			Description:   "For growing businesses",
			PriceMonthly:  79,
			Popular:       true,
			MaxUsers:      15,
			MaxProducts:   2000,
			MaxOrders:     5000,
			MaxWarehouses: 5,

			HasAdvancedReports: true,
			HasAPIAccess:       true,
		},
		{
			ID:            PlanEnterprise,
			Name:          "Enterprise",
			Description:   "For large operations",
			PriceMonthly:  199,
			MaxUsers:      models.Unlimited,
			MaxProducts:   models.Unlimited,
			MaxOrders:     models.Unlimited,
			MaxWarehouses: models.Unlimited,

			HasAdvancedReports: true,
			HasAPIAccess:       true,
			HasPrioritySupport: true,
		},
	}
}

// PlanByID looks up a purchasable plan.
func PlanByID(id string) (*Plan, bool) {
	for _, plan := range Plans() {
		if plan.ID == id {
			p := plan
			return &p, true
		}
	}
	return nil, false
}

// ApplyPlan copies a plan's limits and feature flags onto the
// subscription.
func ApplyPlan(sub *models.Subscription, plan *Plan) {
	sub.PlanID = plan.ID
	sub.MaxUsers = plan.MaxUsers
	sub.MaxProducts = plan.MaxProducts
	sub.MaxOrders = plan.MaxOrders
	sub.MaxWarehouses = plan.MaxWarehouses
	sub.HasAdvancedReports = plan.HasAdvancedReports
	sub.HasAPIAccess = plan.HasAPIAccess
	sub.HasPrioritySupport = plan.HasPrioritySupport
}
