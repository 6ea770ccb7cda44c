package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"inventory-service/internal/config"
	"inventory-service/internal/models"
)

// SubscriptionRepo is the persistence surface for subscriptions.
type SubscriptionRepo interface {
	FirstOrDefault(ctx context.Context, query string, args ...interface{}) (*models.Subscription, error)
	Find(ctx context.Context, query string, args ...interface{}) ([]models.Subscription, error)
	Add(ctx context.Context, entity *models.Subscription) error
	Update(ctx context.Context, entity *models.Subscription) error
}

type resourceCounter interface {
	Count(ctx context.Context, orgID uuid.UUID, query string, args ...interface{}) (int64, error)
}

type memberCounter interface {
	CountMembers(ctx context.Context, orgID uuid.UUID) (int64, error)
}

// UsageMetric reports consumption against one plan limit.
type UsageMetric struct {
	Current     int64 `json:"current"`
	Limit       int   `json:"limit"`
	IsAtLimit   bool  `json:"is_at_limit"`
	IsNearLimit bool  `json:"is_near_limit"`
}

// UsageStats reports consumption against every plan limit. Orders
// count only the current calendar month.
type UsageStats struct {
	Users      UsageMetric `json:"users"`
	Products   UsageMetric `json:"products"`
	Orders     UsageMetric `json:"orders"`
	Warehouses UsageMetric `json:"warehouses"`
}

// ComputeMetric derives the at/near limit flags for one limit. A limit
// of Unlimited is never at or near.
func ComputeMetric(current int64, limit int) UsageMetric {
	metric := UsageMetric{Current: current, Limit: limit}
	if limit == models.Unlimited {
		return metric
	}
	metric.IsAtLimit = current >= int64(limit)
	metric.IsNearLimit = current*100 >= int64(limit)*80
	return metric
}

// CanDowngrade reports which limits current usage would violate on the
// target plan. An empty result means the downgrade is allowed.
func CanDowngrade(usage *UsageStats, plan *Plan) []string {
	var violations []string
	check := func(name string, current int64, limit int) {
		if limit != models.Unlimited && current > int64(limit) {
			violations = append(violations, name)
		}
	}
	check("users", usage.Users.Current, plan.MaxUsers)
	check("products", usage.Products.Current, plan.MaxProducts)
	check("orders", usage.Orders.Current, plan.MaxOrders)
	check("warehouses", usage.Warehouses.Current, plan.MaxWarehouses)
	return violations
}

// SubscriptionService implements subscription lifecycle and limit
// enforcement.
type SubscriptionService struct {
	subs       SubscriptionRepo
	products   resourceCounter
	orders     resourceCounter
	warehouses resourceCounter
	members    memberCounter
	cfg        config.SubscriptionConfig
	events     eventPublisher
	logger     *logrus.Logger
}

// NewSubscriptionService creates a new subscription service.
func NewSubscriptionService(subs SubscriptionRepo, products, orders, warehouses resourceCounter, members memberCounter, cfg config.SubscriptionConfig, events eventPublisher, logger *logrus.Logger) *SubscriptionService {
	return &SubscriptionService{
		subs:       subs,
		products:   products,
		orders:     orders,
		warehouses: warehouses,
		members:    members,
		cfg:        cfg,
		events:     events,
		logger:     logger,
	}
}

// EnsureSubscription returns the organization's subscription, creating
// the trial when none exists yet.
func (s *SubscriptionService) EnsureSubscription(ctx context.Context, orgID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.subs.FirstOrDefault(ctx, "organization_id = ?", orgID)
	if err != nil {
		return nil, err
	}
	if sub != nil {
		return sub, nil
	}

	trialEnd := time.Now().UTC().AddDate(0, 0, s.cfg.TrialDays)
	sub = &models.Subscription{
		OrganizationID: orgID,
		PlanID:         PlanTrial,
		Status:         models.SubscriptionTrial,
		TrialEndsAt:    &trialEnd,
		MaxUsers:       s.cfg.TrialMaxUsers,
		MaxProducts:    s.cfg.TrialMaxProducts,
		MaxOrders:      s.cfg.TrialMaxOrders,
		MaxWarehouses:  s.cfg.TrialMaxWarehouses,
	}
	if err := s.subs.Add(ctx, sub); err != nil {
		return nil, err
	}
	s.logger.WithField("organization_id", orgID.String()).Info("trial subscription created")
	return sub, nil
}

// Current returns the organization's subscription.
func (s *SubscriptionService) Current(ctx context.Context, orgID uuid.UUID) (*models.Subscription, error) {
	return s.EnsureSubscription(ctx, orgID)
}

// StartTrial explicitly starts a trial. It conflicts when the
// organization already has a subscription.
func (s *SubscriptionService) StartTrial(ctx context.Context, orgID uuid.UUID) (*models.Subscription, error) {
	existing, err := s.subs.FirstOrDefault(ctx, "organization_id = ?", orgID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, NewConflictError("subscription", "organization already has a subscription")
	}
	return s.EnsureSubscription(ctx, orgID)
}

// Usage reports current consumption against the plan's limits.
func (s *SubscriptionService) Usage(ctx context.Context, orgID uuid.UUID) (*UsageStats, error) {
	sub, err := s.EnsureSubscription(ctx, orgID)
	if err != nil {
		return nil, err
	}

	users, err := s.members.CountMembers(ctx, orgID)
	if err != nil {
		return nil, err
	}
	products, err := s.products.Count(ctx, orgID, "")
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	orders, err := s.orders.Count(ctx, orgID, "created_at >= ?", monthStart)
	if err != nil {
		return nil, err
	}
	warehouses, err := s.warehouses.Count(ctx, orgID, "")
	if err != nil {
		return nil, err
	}

	return &UsageStats{
		Users:      ComputeMetric(users, sub.MaxUsers),
		Products:   ComputeMetric(products, sub.MaxProducts),
		Orders:     ComputeMetric(orders, sub.MaxOrders),
		Warehouses: ComputeMetric(warehouses, sub.MaxWarehouses),
	}, nil
}

// CheckLimit returns a LimitExceededError when the organization cannot
// add one more resource of the given kind.
func (s *SubscriptionService) CheckLimit(ctx context.Context, orgID uuid.UUID, limitType string) error {
	usage, err := s.Usage(ctx, orgID)
	if err != nil {
		return err
	}
	var metric UsageMetric
	switch limitType {
	case "users":
		metric = usage.Users
	case "products":
		metric = usage.Products
	case "orders":
		metric = usage.Orders
	case "warehouses":
		metric = usage.Warehouses
	default:
		return NewValidationError("limit_type", fmt.Sprintf("unknown limit type %q", limitType))
	}
	if metric.IsAtLimit {
		return NewLimitExceededError(limitType, metric.Current, metric.Limit)
	}
	return nil
}

// ChangePlan moves the organization to another plan. Downgrades are
// refused while usage exceeds the target plan's limits.
func (s *SubscriptionService) ChangePlan(ctx context.Context, orgID uuid.UUID, planID string) (*models.Subscription, error) {
	plan, ok := PlanByID(planID)
	if !ok {
		return nil, NewValidationError("plan_id", fmt.Sprintf("unknown plan %q", planID))
	}
	sub, err := s.EnsureSubscription(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if sub.PlanID == planID {
		return sub, nil
	}

	usage, err := s.Usage(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if violations := CanDowngrade(usage, plan); len(violations) > 0 {
		return nil, NewConflictError("subscription",
			fmt.Sprintf("current usage exceeds the %s plan limits for: %v", plan.Name, violations))
	}

	ApplyPlan(sub, plan)
	sub.Status = models.SubscriptionActive
	sub.CancelAtPeriodEnd = false
	sub.CancelledAt = nil
	if err := s.subs.Update(ctx, sub); err != nil {
		return nil, err
	}
	s.publishChange(orgID, sub)
	return sub, nil
}

// Cancel cancels the subscription, immediately or at period end.
func (s *SubscriptionService) Cancel(ctx context.Context, orgID uuid.UUID, immediate bool) (*models.Subscription, error) {
	sub, err := s.EnsureSubscription(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if sub.Status == models.SubscriptionCancelled {
		return sub, nil
	}

	now := time.Now().UTC()
	if immediate {
		sub.Status = models.SubscriptionCancelled
		sub.CancelledAt = &now
		sub.CancelAtPeriodEnd = false
	} else {
		sub.CancelAtPeriodEnd = true
	}
	if err := s.subs.Update(ctx, sub); err != nil {
		return nil, err
	}
	s.publishChange(orgID, sub)
	return sub, nil
}

// Reactivate clears a pending cancellation or revives a cancelled
// subscription.
func (s *SubscriptionService) Reactivate(ctx context.Context, orgID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.EnsureSubscription(ctx, orgID)
	if err != nil {
		return nil, err
	}

	sub.CancelAtPeriodEnd = false
	sub.CancelledAt = nil
	if sub.Status == models.SubscriptionCancelled || sub.Status == models.SubscriptionSuspended {
		sub.Status = models.SubscriptionActive
	}
	if err := s.subs.Update(ctx, sub); err != nil {
		return nil, err
	}
	s.publishChange(orgID, sub)
	return sub, nil
}

// ActivateFromCheckout binds the Stripe identity created by a completed
// checkout session and activates the purchased plan.
func (s *SubscriptionService) ActivateFromCheckout(ctx context.Context, orgID uuid.UUID, planID, customerID, subscriptionID string) error {
	sub, err := s.EnsureSubscription(ctx, orgID)
	if err != nil {
		return err
	}
	if plan, ok := PlanByID(planID); ok {
		ApplyPlan(sub, plan)
	}
	sub.Status = models.SubscriptionActive
	sub.StripeCustomerID = customerID
	sub.StripeSubscriptionID = subscriptionID
	sub.TrialEndsAt = nil
	sub.CancelAtPeriodEnd = false
	sub.CancelledAt = nil
	if err := s.subs.Update(ctx, sub); err != nil {
		return err
	}
	s.publishChange(orgID, sub)
	return nil
}

// SyncFromProvider applies the billing provider's view of a
// subscription: status, period and pending cancellation.
func (s *SubscriptionService) SyncFromProvider(ctx context.Context, subscriptionID string, status models.SubscriptionStatus, periodStart, periodEnd *time.Time, priceID string, cancelAtPeriodEnd bool) error {
	sub, err := s.subs.FirstOrDefault(ctx, "stripe_subscription_id = ?", subscriptionID)
	if err != nil {
		return err
	}
	if sub == nil {
		s.logger.WithField("stripe_subscription_id", subscriptionID).
			Warn("provider sync for unknown subscription")
		return nil
	}

	sub.Status = status
	sub.CurrentPeriodStart = periodStart
	sub.CurrentPeriodEnd = periodEnd
	sub.CancelAtPeriodEnd = cancelAtPeriodEnd
	if priceID != "" {
		sub.StripePriceID = priceID
	}
	if status == models.SubscriptionCancelled && sub.CancelledAt == nil {
		now := time.Now().UTC()
		sub.CancelledAt = &now
	}
	if err := s.subs.Update(ctx, sub); err != nil {
		return err
	}
	s.publishChange(sub.OrganizationID, sub)
	return nil
}

// SetStatusByCustomer updates the status of the customer's
// subscription, used for invoice payment webhooks.
func (s *SubscriptionService) SetStatusByCustomer(ctx context.Context, customerID string, status models.SubscriptionStatus) error {
	sub, err := s.subs.FirstOrDefault(ctx, "stripe_customer_id = ?", customerID)
	if err != nil {
		return err
	}
	if sub == nil {
		return nil
	}
	sub.Status = status
	if err := s.subs.Update(ctx, sub); err != nil {
		return err
	}
	s.publishChange(sub.OrganizationID, sub)
	return nil
}

// ExpireTrials suspends trial subscriptions past their end date.
// Called by the background sweep.
func (s *SubscriptionService) ExpireTrials(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	expired, err := s.subs.Find(ctx, "status = ? AND trial_ends_at < ?", models.SubscriptionTrial, now)
	if err != nil {
		return 0, err
	}
	for i := range expired {
		sub := &expired[i]
		sub.Status = models.SubscriptionSuspended
		if err := s.subs.Update(ctx, sub); err != nil {
			return i, err
		}
		s.publishChange(sub.OrganizationID, sub)
	}
	return len(expired), nil
}

func (s *SubscriptionService) publishChange(orgID uuid.UUID, sub *models.Subscription) {
	if s.events == nil {
		return
	}
	_ = s.events.Publish("subscription.changed", map[string]interface{}{
		"event_type":      "subscription.changed",
		"organization_id": orgID.String(),
		"plan_id":         sub.PlanID,
		"status":          sub.Status,
		"timestamp":       time.Now().UTC(),
	})
}
