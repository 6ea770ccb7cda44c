package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"inventory-service/internal/services"
)

// PaymentHandler handles Stripe-backed payment endpoints
type PaymentHandler struct {
	stripe *services.StripeService
	orgs   *services.OrganizationService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(stripe *services.StripeService, orgs *services.OrganizationService) *PaymentHandler {
	return &PaymentHandler{stripe: stripe, orgs: orgs}
}

// CreateCheckoutSession starts a subscription checkout and returns the
// hosted checkout URL
func (h *PaymentHandler) CreateCheckoutSession(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	var input struct {
		PlanID  string `json:"plan_id"`
		PriceID string `json:"price_id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	org, err := h.orgs.Current(c.Request.Context(), orgID)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	url, err := h.stripe.CreateCheckoutSession(c.Request.Context(), org, input.PlanID, input.PriceID)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Checkout session created", gin.H{"url": url})
}

// CreatePortalSession opens the billing portal for the organization
func (h *PaymentHandler) CreatePortalSession(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	url, err := h.stripe.CreatePortalSession(c.Request.Context(), orgID)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Portal session created", gin.H{"url": url})
}

// Prices lists the active recurring prices, cheapest first
func (h *PaymentHandler) Prices(c *gin.Context) {
	prices, err := h.stripe.ListPrices(c.Request.Context())
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Prices retrieved", prices)
}

// CancelSubscription cancels the Stripe subscription and mirrors the
// change locally
func (h *PaymentHandler) CancelSubscription(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	var input struct {
		Immediate bool `json:"immediate"`
	}
	_ = c.ShouldBindJSON(&input)

	if err := h.stripe.CancelProviderSubscription(c.Request.Context(), orgID, input.Immediate); err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Subscription cancelled", nil)
}
