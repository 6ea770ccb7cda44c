package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"inventory-service/internal/config"
	"inventory-service/internal/models"
)

// StripeService wraps the Stripe API for checkout, billing portal and
// webhook-driven subscription sync.
type StripeService struct {
	client        *client.API
	cfg           config.StripeConfig
	subscriptions *SubscriptionService
	logger        *logrus.Logger
}

// NewStripeService creates a new Stripe service. The returned service
// is nil-client safe only in tests; production wiring requires a
// secret key.
func NewStripeService(cfg config.StripeConfig, subscriptions *SubscriptionService, logger *logrus.Logger) *StripeService {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return &StripeService{
		client:        api,
		cfg:           cfg,
		subscriptions: subscriptions,
		logger:        logger,
	}
}

// CreateCheckoutSession starts a subscription checkout for the
// organization and returns the hosted checkout URL.
func (s *StripeService) CreateCheckoutSession(ctx context.Context, org *models.Organization, planID, priceID string) (string, error) {
	if _, ok := PlanByID(planID); !ok {
		return "", NewValidationError("plan_id", fmt.Sprintf("unknown plan %q", planID))
	}
	if priceID == "" {
		return "", NewValidationError("price_id", "price_id is required")
	}

	customerID, err := s.getOrCreateCustomer(ctx, org)
	if err != nil {
		return "", err
	}

	params := &stripe.CheckoutSessionParams{
		Mode:                stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:            stripe.String(customerID),
		SuccessURL:          stripe.String(s.cfg.SuccessURL),
		CancelURL:           stripe.String(s.cfg.CancelURL),
		AllowPromotionCodes: stripe.Bool(true),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				"organization_id":   org.ID.String(),
				"organization_name": org.Name,
				"plan_id":           planID,
			},
		},
	}
	params.Context = ctx
	params.AddMetadata("organization_id", org.ID.String())
	params.AddMetadata("organization_name", org.Name)
	params.AddMetadata("plan_id", planID)

	session, err := s.client.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}
	return session.URL, nil
}

// CreatePortalSession opens the billing portal for the organization's
// Stripe customer.
func (s *StripeService) CreatePortalSession(ctx context.Context, orgID uuid.UUID) (string, error) {
	sub, err := s.subscriptions.Current(ctx, orgID)
	if err != nil {
		return "", err
	}
	if sub.StripeCustomerID == "" {
		return "", NewConflictError("subscription", "organization has no billing account yet")
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(sub.StripeCustomerID),
		ReturnURL: stripe.String(s.cfg.PortalReturnURL),
	}
	params.Context = ctx

	session, err := s.client.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create portal session: %w", err)
	}
	return session.URL, nil
}

// getOrCreateCustomer finds the organization's Stripe customer by email
// and metadata, creating one when absent.
func (s *StripeService) getOrCreateCustomer(ctx context.Context, org *models.Organization) (string, error) {
	sub, err := s.subscriptions.Current(ctx, org.ID)
	if err != nil {
		return "", err
	}
	if sub.StripeCustomerID != "" {
		return sub.StripeCustomerID, nil
	}

	if org.Email != "" {
		listParams := &stripe.CustomerListParams{Email: stripe.String(org.Email)}
		listParams.Context = ctx
		iter := s.client.Customers.List(listParams)
		for iter.Next() {
			c := iter.Customer()
			if c.Metadata["organization_id"] == org.ID.String() {
				return c.ID, nil
			}
		}
		if err := iter.Err(); err != nil {
			return "", fmt.Errorf("failed to list customers: %w", err)
		}
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(org.Email),
		Name:  stripe.String(org.Name),
	}
	params.Context = ctx
	params.AddMetadata("organization_id", org.ID.String())

	customer, err := s.client.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create customer: %w", err)
	}
	return customer.ID, nil
}

// PriceInfo is a purchasable price exposed to the frontend.
type PriceInfo struct {
	ID         string  `json:"id"`
	Currency   string  `json:"currency"`
	UnitAmount int64   `json:"unit_amount"`
	Interval   string  `json:"interval"`
	ProductID  string  `json:"product_id"`
	Product    string  `json:"product"`
	Lookup     string  `json:"lookup_key,omitempty"`
}

// ListPrices returns the active recurring prices, cheapest first.
func (s *StripeService) ListPrices(ctx context.Context) ([]PriceInfo, error) {
	params := &stripe.PriceListParams{Active: stripe.Bool(true)}
	params.Context = ctx
	params.AddExpand("data.product")

	var prices []PriceInfo
	iter := s.client.Prices.List(params)
	for iter.Next() {
		p := iter.Price()
		if p.Recurring == nil {
			continue
		}
		info := PriceInfo{
			ID:         p.ID,
			Currency:   string(p.Currency),
			UnitAmount: p.UnitAmount,
			Interval:   string(p.Recurring.Interval),
			Lookup:     p.LookupKey,
		}
		if p.Product != nil {
			info.ProductID = p.Product.ID
			info.Product = p.Product.Name
		}
		prices = append(prices, info)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list prices: %w", err)
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i].UnitAmount < prices[j].UnitAmount })
	return prices, nil
}

// CancelProviderSubscription cancels the Stripe subscription,
// immediately or at period end, then mirrors the change locally.
func (s *StripeService) CancelProviderSubscription(ctx context.Context, orgID uuid.UUID, immediate bool) error {
	sub, err := s.subscriptions.Current(ctx, orgID)
	if err != nil {
		return err
	}
	if sub.StripeSubscriptionID != "" {
		if immediate {
			params := &stripe.SubscriptionCancelParams{}
			params.Context = ctx
			if _, err := s.client.Subscriptions.Cancel(sub.StripeSubscriptionID, params); err != nil {
				return fmt.Errorf("failed to cancel subscription: %w", err)
			}
		} else {
			params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(true)}
			params.Context = ctx
			if _, err := s.client.Subscriptions.Update(sub.StripeSubscriptionID, params); err != nil {
				return fmt.Errorf("failed to schedule cancellation: %w", err)
			}
		}
	}
	_, err = s.subscriptions.Cancel(ctx, orgID, immediate)
	return err
}

// HandleEvent processes a verified Stripe webhook event. Unhandled
// event types are accepted without effect.
func (s *StripeService) HandleEvent(ctx context.Context, event stripe.Event) error {
	switch string(event.Type) {
	case "checkout.session.completed":
		return s.handleCheckoutCompleted(ctx, event)
	case "customer.subscription.created", "customer.subscription.updated":
		return s.handleSubscriptionSync(ctx, event)
	case "customer.subscription.deleted":
		return s.handleSubscriptionDeleted(ctx, event)
	case "invoice.payment_succeeded":
		return s.handleInvoice(ctx, event, models.SubscriptionActive)
	case "invoice.payment_failed":
		return s.handleInvoice(ctx, event, models.SubscriptionPastDue)
	default:
		s.logger.WithField("event_type", string(event.Type)).Debug("ignoring stripe event")
		return nil
	}
}

func (s *StripeService) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("failed to decode checkout session: %w", err)
	}

	orgID, err := uuid.Parse(session.Metadata["organization_id"])
	if err != nil {
		s.logger.Warn("checkout session without organization metadata")
		return nil
	}
	customerID := ""
	if session.Customer != nil {
		customerID = session.Customer.ID
	}
	subscriptionID := ""
	if session.Subscription != nil {
		subscriptionID = session.Subscription.ID
	}
	return s.subscriptions.ActivateFromCheckout(ctx, orgID, session.Metadata["plan_id"], customerID, subscriptionID)
}

func (s *StripeService) handleSubscriptionSync(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("failed to decode subscription: %w", err)
	}

	periodStart := time.Unix(sub.CurrentPeriodStart, 0).UTC()
	periodEnd := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	priceID := ""
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		priceID = sub.Items.Data[0].Price.ID
	}
	return s.subscriptions.SyncFromProvider(ctx, sub.ID,
		mapStripeStatus(string(sub.Status)), &periodStart, &periodEnd, priceID, sub.CancelAtPeriodEnd)
}

func (s *StripeService) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("failed to decode subscription: %w", err)
	}
	return s.subscriptions.SyncFromProvider(ctx, sub.ID,
		models.SubscriptionCancelled, nil, nil, "", false)
}

func (s *StripeService) handleInvoice(ctx context.Context, event stripe.Event, status models.SubscriptionStatus) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to decode invoice: %w", err)
	}
	if invoice.Customer == nil {
		return nil
	}
	return s.subscriptions.SetStatusByCustomer(ctx, invoice.Customer.ID, status)
}

// mapStripeStatus converts a Stripe subscription status to the local
// status taxonomy.
func mapStripeStatus(status string) models.SubscriptionStatus {
	switch status {
	case "active":
		return models.SubscriptionActive
	case "trialing":
		return models.SubscriptionTrial
	case "past_due":
		return models.SubscriptionPastDue
	case "canceled", "unpaid", "incomplete_expired":
		return models.SubscriptionCancelled
	default:
		return models.SubscriptionSuspended
	}
}
