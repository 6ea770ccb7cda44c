package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"inventory-service/internal/services"
)

// SubscriptionHandler handles subscription endpoints
type SubscriptionHandler struct {
	subscriptions *services.SubscriptionService
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(subscriptions *services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions}
}

// Current returns the organization's subscription, creating the trial
// on first access
func (h *SubscriptionHandler) Current(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	sub, err := h.subscriptions.Current(c.Request.Context(), orgID)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Subscription retrieved", sub)
}

// Plans returns the purchasable plan catalog
func (h *SubscriptionHandler) Plans(c *gin.Context) {
	SuccessResponse(c, http.StatusOK, "Plans retrieved", services.Plans())
}

// Limits returns the subscription's plan limits
func (h *SubscriptionHandler) Limits(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	sub, err := h.subscriptions.Current(c.Request.Context(), orgID)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Limits retrieved", gin.H{
		"max_users":      sub.MaxUsers,
		"max_products":   sub.MaxProducts,
		"max_orders":     sub.MaxOrders,
		"max_warehouses": sub.MaxWarehouses,
	})
}

// Usage returns current consumption against the plan limits
func (h *SubscriptionHandler) Usage(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	usage, err := h.subscriptions.Usage(c.Request.Context(), orgID)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Usage retrieved", usage)
}

// StartTrial explicitly starts the trial subscription
func (h *SubscriptionHandler) StartTrial(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	sub, err := h.subscriptions.StartTrial(c.Request.Context(), orgID)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "Trial started", sub)
}

// ChangePlan moves the organization to another plan
func (h *SubscriptionHandler) ChangePlan(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	var input struct {
		PlanID string `json:"plan_id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	sub, err := h.subscriptions.ChangePlan(c.Request.Context(), orgID, input.PlanID)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Plan changed", sub)
}

// Cancel cancels the subscription, immediately or at period end
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	var input struct {
		Immediate bool `json:"immediate"`
	}
	_ = c.ShouldBindJSON(&input)

	sub, err := h.subscriptions.Cancel(c.Request.Context(), orgID, input.Immediate)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Subscription cancelled", sub)
}

// Reactivate clears a pending cancellation
func (h *SubscriptionHandler) Reactivate(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	sub, err := h.subscriptions.Reactivate(c.Request.Context(), orgID)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Subscription reactivated", sub)
}

// CheckLimit reports whether one more resource of the given kind fits
// the plan
func (h *SubscriptionHandler) CheckLimit(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	limitType := c.Query("type")
	if limitType == "" {
		ErrorResponse(c, http.StatusBadRequest, "type query parameter is required", nil)
		return
	}
	err := h.subscriptions.CheckLimit(c.Request.Context(), orgID, limitType)
	if err != nil {
		if limitErr, ok := services.IsLimitExceededError(err); ok {
			SuccessResponse(c, http.StatusOK, "Limit checked", gin.H{
				"allowed":    false,
				"limit_type": limitErr.LimitType,
				"current":    limitErr.Current,
				"limit":      limitErr.Limit,
			})
			return
		}
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Limit checked", gin.H{"allowed": true})
}
