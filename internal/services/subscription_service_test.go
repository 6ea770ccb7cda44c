package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"inventory-service/internal/config"
	"inventory-service/internal/models"
)

// MockSubscriptionRepo is a mock implementation of SubscriptionRepo
type MockSubscriptionRepo struct {
	mock.Mock
}

func (m *MockSubscriptionRepo) FirstOrDefault(ctx context.Context, query string, args ...interface{}) (*models.Subscription, error) {
	callArgs := m.Called(ctx, query, args)
	if callArgs.Get(0) == nil {
		return nil, callArgs.Error(1)
	}
	return callArgs.Get(0).(*models.Subscription), callArgs.Error(1)
}

func (m *MockSubscriptionRepo) Find(ctx context.Context, query string, args ...interface{}) ([]models.Subscription, error) {
	callArgs := m.Called(ctx, query, args)
	return callArgs.Get(0).([]models.Subscription), callArgs.Error(1)
}

func (m *MockSubscriptionRepo) Add(ctx context.Context, entity *models.Subscription) error {
	callArgs := m.Called(ctx, entity)
	return callArgs.Error(0)
}

func (m *MockSubscriptionRepo) Update(ctx context.Context, entity *models.Subscription) error {
	callArgs := m.Called(ctx, entity)
	return callArgs.Error(0)
}

// MockResourceCounter is a mock implementation of the tenant-scoped
// count used for plan limit checks
type MockResourceCounter struct {
	mock.Mock
}

func (m *MockResourceCounter) Count(ctx context.Context, orgID uuid.UUID, query string, args ...interface{}) (int64, error) {
	callArgs := m.Called(ctx, orgID, query, args)
	return callArgs.Get(0).(int64), callArgs.Error(1)
}

// MockMemberCounter counts active organization members
type MockMemberCounter struct {
	mock.Mock
}

func (m *MockMemberCounter) CountMembers(ctx context.Context, orgID uuid.UUID) (int64, error) {
	callArgs := m.Called(ctx, orgID)
	return callArgs.Get(0).(int64), callArgs.Error(1)
}

func testSubscriptionConfig() config.SubscriptionConfig {
	return config.SubscriptionConfig{
		TrialDays:          14,
		TrialMaxUsers:      3,
		TrialMaxProducts:   50,
		TrialMaxOrders:     100,
		TrialMaxWarehouses: 1,
	}
}

func newTestSubscriptionService(subs SubscriptionRepo, products, orders, warehouses resourceCounter, members memberCounter) *SubscriptionService {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewSubscriptionService(subs, products, orders, warehouses, members, testSubscriptionConfig(), nil, logger)
}

func TestComputeMetric(t *testing.T) {
	tests := []struct {
		name     string
		current  int64
		limit    int
		wantAt   bool
		wantNear bool
	}{
		{
			name:    "Well under the limit",
			current: 10,
			limit:   100,
		},
		{
			name:     "At eighty percent is near",
			current:  80,
			limit:    100,
			wantNear: true,
		},
		{
			name:     "At the limit",
			current:  100,
			limit:    100,
			wantAt:   true,
			wantNear: true,
		},
		{
			name:     "Over the limit",
			current:  120,
			limit:    100,
			wantAt:   true,
			wantNear: true,
		},
		{
			name:    "Unlimited is never at or near",
			current: 1000000,
			limit:   models.Unlimited,
		},
		{
			name:     "Zero limit is always at",
			current:  0,
			limit:    0,
			wantAt:   true,
			wantNear: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metric := ComputeMetric(tt.current, tt.limit)

			assert.Equal(t, tt.wantAt, metric.IsAtLimit)
			assert.Equal(t, tt.wantNear, metric.IsNearLimit)
			assert.Equal(t, tt.current, metric.Current)
			assert.Equal(t, tt.limit, metric.Limit)
		})
	}
}

func TestCanDowngrade(t *testing.T) {
	starter, ok := PlanByID(PlanStarter)
	assert.True(t, ok)

	t.Run("Usage within limits allows downgrade", func(t *testing.T) {
		usage := &UsageStats{
			Users:      UsageMetric{Current: 3},
			Products:   UsageMetric{Current: 100},
			Orders:     UsageMetric{Current: 500},
			Warehouses: UsageMetric{Current: 1},
		}

		violations := CanDowngrade(usage, starter)

		assert.Empty(t, violations)
	})

	t.Run("Excess usage names the violated limits", func(t *testing.T) {
		usage := &UsageStats{
			Users:      UsageMetric{Current: 8},
			Products:   UsageMetric{Current: 100},
			Orders:     UsageMetric{Current: 500},
			Warehouses: UsageMetric{Current: 4},
		}

		violations := CanDowngrade(usage, starter)

		assert.ElementsMatch(t, []string{"users", "warehouses"}, violations)
	})

	t.Run("Usage exactly at the limit is allowed", func(t *testing.T) {
		usage := &UsageStats{
			Users:      UsageMetric{Current: 5},
			Products:   UsageMetric{Current: 500},
			Orders:     UsageMetric{Current: 1000},
			Warehouses: UsageMetric{Current: 2},
		}

		violations := CanDowngrade(usage, starter)

		assert.Empty(t, violations)
	})

	t.Run("Unlimited plan never violates", func(t *testing.T) {
		enterprise, ok := PlanByID(PlanEnterprise)
		assert.True(t, ok)

		usage := &UsageStats{
			Users:      UsageMetric{Current: 1000},
			Products:   UsageMetric{Current: 100000},
			Orders:     UsageMetric{Current: 100000},
			Warehouses: UsageMetric{Current: 50},
		}

		violations := CanDowngrade(usage, enterprise)

		assert.Empty(t, violations)
	})
}

func TestPlanCatalog(t *testing.T) {
	t.Run("Catalog is ordered cheapest first", func(t *testing.T) {
		plans := Plans()

		assert.Len(t, plans, 3)
		for i := 1; i < len(plans); i++ {
			assert.Greater(t, plans[i].PriceMonthly, plans[i-1].PriceMonthly)
		}
	})

	t.Run("Lookup by id", func(t *testing.T) {
		plan, ok := PlanByID(PlanProfessional)

		assert.True(t, ok)
		assert.Equal(t, "Professional", plan.Name)
		assert.True(t, plan.Popular)
	})

	t.Run("Unknown plan id", func(t *testing.T) {
		_, ok := PlanByID("platinum")

		assert.False(t, ok)
	})

	t.Run("Trial is not purchasable", func(t *testing.T) {
		_, ok := PlanByID(PlanTrial)

		assert.False(t, ok)
	})
}

func TestEnsureSubscription(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()

	t.Run("Existing subscription is returned as is", func(t *testing.T) {
		subs := new(MockSubscriptionRepo)
		existing := &models.Subscription{OrganizationID: orgID, PlanID: PlanStarter, Status: models.SubscriptionActive}
		subs.On("FirstOrDefault", ctx, "organization_id = ?", mock.Anything).Return(existing, nil)

		svc := newTestSubscriptionService(subs, nil, nil, nil, nil)
		sub, err := svc.EnsureSubscription(ctx, orgID)

		assert.NoError(t, err)
		assert.Same(t, existing, sub)
		subs.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
	})

	t.Run("Missing subscription creates a trial with configured limits", func(t *testing.T) {
		subs := new(MockSubscriptionRepo)
		subs.On("FirstOrDefault", ctx, "organization_id = ?", mock.Anything).Return(nil, nil)
		subs.On("Add", ctx, mock.AnythingOfType("*models.Subscription")).Return(nil)

		svc := newTestSubscriptionService(subs, nil, nil, nil, nil)
		sub, err := svc.EnsureSubscription(ctx, orgID)

		assert.NoError(t, err)
		assert.Equal(t, PlanTrial, sub.PlanID)
		assert.Equal(t, models.SubscriptionTrial, sub.Status)
		assert.Equal(t, 3, sub.MaxUsers)
		assert.Equal(t, 50, sub.MaxProducts)
		assert.Equal(t, 100, sub.MaxOrders)
		assert.Equal(t, 1, sub.MaxWarehouses)
		if assert.NotNil(t, sub.TrialEndsAt) {
			expected := time.Now().UTC().AddDate(0, 0, 14)
			assert.WithinDuration(t, expected, *sub.TrialEndsAt, time.Minute)
		}
		subs.AssertExpectations(t)
	})
}

func TestStartTrial(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()

	t.Run("Conflicts when a subscription already exists", func(t *testing.T) {
		subs := new(MockSubscriptionRepo)
		existing := &models.Subscription{OrganizationID: orgID, Status: models.SubscriptionActive}
		subs.On("FirstOrDefault", ctx, "organization_id = ?", mock.Anything).Return(existing, nil)

		svc := newTestSubscriptionService(subs, nil, nil, nil, nil)
		_, err := svc.StartTrial(ctx, orgID)

		_, isConflict := IsConflictError(err)
		assert.True(t, isConflict)
	})
}

func TestCheckLimit(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()

	setup := func(productCount int64) (*SubscriptionService, *MockSubscriptionRepo) {
		subs := new(MockSubscriptionRepo)
		sub := &models.Subscription{
			OrganizationID: orgID,
			PlanID:         PlanTrial,
			Status:         models.SubscriptionTrial,
			MaxUsers:       3,
			MaxProducts:    50,
			MaxOrders:      100,
			MaxWarehouses:  1,
		}
		subs.On("FirstOrDefault", ctx, "organization_id = ?", mock.Anything).Return(sub, nil)

		products := new(MockResourceCounter)
		products.On("Count", ctx, orgID, "", mock.Anything).Return(productCount, nil)
		orders := new(MockResourceCounter)
		orders.On("Count", ctx, orgID, "created_at >= ?", mock.Anything).Return(int64(10), nil)
		warehouses := new(MockResourceCounter)
		warehouses.On("Count", ctx, orgID, "", mock.Anything).Return(int64(1), nil)
		members := new(MockMemberCounter)
		members.On("CountMembers", ctx, orgID).Return(int64(2), nil)

		return newTestSubscriptionService(subs, products, orders, warehouses, members), subs
	}

	t.Run("Under the limit passes", func(t *testing.T) {
		svc, _ := setup(10)

		err := svc.CheckLimit(ctx, orgID, "products")

		assert.NoError(t, err)
	})

	t.Run("At the limit returns a limit error", func(t *testing.T) {
		svc, _ := setup(50)

		err := svc.CheckLimit(ctx, orgID, "products")

		limitErr, ok := IsLimitExceededError(err)
		if assert.True(t, ok) {
			assert.Equal(t, "products", limitErr.LimitType)
			assert.Equal(t, int64(50), limitErr.Current)
			assert.Equal(t, 50, limitErr.Limit)
		}
	})

	t.Run("Unknown limit type is a validation error", func(t *testing.T) {
		svc, _ := setup(10)

		err := svc.CheckLimit(ctx, orgID, "gadgets")

		_, ok := IsValidationError(err)
		assert.True(t, ok)
	})
}

func TestExpireTrials(t *testing.T) {
	ctx := context.Background()

	t.Run("Suspends every expired trial", func(t *testing.T) {
		subs := new(MockSubscriptionRepo)
		expired := []models.Subscription{
			{OrganizationID: uuid.New(), PlanID: PlanTrial, Status: models.SubscriptionTrial},
			{OrganizationID: uuid.New(), PlanID: PlanTrial, Status: models.SubscriptionTrial},
		}
		subs.On("Find", ctx, "status = ? AND trial_ends_at < ?", mock.Anything).Return(expired, nil)
		subs.On("Update", ctx, mock.MatchedBy(func(sub *models.Subscription) bool {
			return sub.Status == models.SubscriptionSuspended
		})).Return(nil).Twice()

		svc := newTestSubscriptionService(subs, nil, nil, nil, nil)
		count, err := svc.ExpireTrials(ctx)

		assert.NoError(t, err)
		assert.Equal(t, 2, count)
		subs.AssertExpectations(t)
	})

	t.Run("Nothing to expire", func(t *testing.T) {
		subs := new(MockSubscriptionRepo)
		subs.On("Find", ctx, "status = ? AND trial_ends_at < ?", mock.Anything).Return([]models.Subscription{}, nil)

		svc := newTestSubscriptionService(subs, nil, nil, nil, nil)
		count, err := svc.ExpireTrials(ctx)

		assert.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}
