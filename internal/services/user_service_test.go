package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"inventory-service/internal/models"
)

// MockUserRepo is a mock implementation of UserRepo
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) GetById(ctx context.Context, id uuid.UUID) (*models.AppUser, error) {
	callArgs := m.Called(ctx, id)
	if callArgs.Get(0) == nil {
		return nil, callArgs.Error(1)
	}
	return callArgs.Get(0).(*models.AppUser), callArgs.Error(1)
}

func (m *MockUserRepo) FirstOrDefault(ctx context.Context, query string, args ...interface{}) (*models.AppUser, error) {
	callArgs := m.Called(ctx, query, args)
	if callArgs.Get(0) == nil {
		return nil, callArgs.Error(1)
	}
	return callArgs.Get(0).(*models.AppUser), callArgs.Error(1)
}

func (m *MockUserRepo) Add(ctx context.Context, entity *models.AppUser) error {
	callArgs := m.Called(ctx, entity)
	return callArgs.Error(0)
}

func (m *MockUserRepo) Update(ctx context.Context, entity *models.AppUser) error {
	callArgs := m.Called(ctx, entity)
	return callArgs.Error(0)
}

func (m *MockUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	callArgs := m.Called(ctx, id)
	return callArgs.Error(0)
}

// MockMembershipRepo is a mock implementation of MembershipRepo
type MockMembershipRepo struct {
	mock.Mock
}

func (m *MockMembershipRepo) GetById(ctx context.Context, id uuid.UUID) (*models.OrganizationUser, error) {
	callArgs := m.Called(ctx, id)
	if callArgs.Get(0) == nil {
		return nil, callArgs.Error(1)
	}
	return callArgs.Get(0).(*models.OrganizationUser), callArgs.Error(1)
}

func (m *MockMembershipRepo) Find(ctx context.Context, query string, args ...interface{}) ([]models.OrganizationUser, error) {
	callArgs := m.Called(ctx, query, args)
	return callArgs.Get(0).([]models.OrganizationUser), callArgs.Error(1)
}

func (m *MockMembershipRepo) FirstOrDefault(ctx context.Context, query string, args ...interface{}) (*models.OrganizationUser, error) {
	callArgs := m.Called(ctx, query, args)
	if callArgs.Get(0) == nil {
		return nil, callArgs.Error(1)
	}
	return callArgs.Get(0).(*models.OrganizationUser), callArgs.Error(1)
}

func (m *MockMembershipRepo) Count(ctx context.Context, query string, args ...interface{}) (int64, error) {
	callArgs := m.Called(ctx, query, args)
	return callArgs.Get(0).(int64), callArgs.Error(1)
}

func (m *MockMembershipRepo) Add(ctx context.Context, entity *models.OrganizationUser) error {
	callArgs := m.Called(ctx, entity)
	return callArgs.Error(0)
}

func (m *MockMembershipRepo) Update(ctx context.Context, entity *models.OrganizationUser) error {
	callArgs := m.Called(ctx, entity)
	return callArgs.Error(0)
}

func (m *MockMembershipRepo) Delete(ctx context.Context, id uuid.UUID) error {
	callArgs := m.Called(ctx, id)
	return callArgs.Error(0)
}

// MockOrganizationRepo is a mock implementation of OrganizationRepo
type MockOrganizationRepo struct {
	mock.Mock
}

func (m *MockOrganizationRepo) GetById(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	callArgs := m.Called(ctx, id)
	if callArgs.Get(0) == nil {
		return nil, callArgs.Error(1)
	}
	return callArgs.Get(0).(*models.Organization), callArgs.Error(1)
}

func (m *MockOrganizationRepo) FirstOrDefault(ctx context.Context, query string, args ...interface{}) (*models.Organization, error) {
	callArgs := m.Called(ctx, query, args)
	if callArgs.Get(0) == nil {
		return nil, callArgs.Error(1)
	}
	return callArgs.Get(0).(*models.Organization), callArgs.Error(1)
}

func (m *MockOrganizationRepo) Add(ctx context.Context, entity *models.Organization) error {
	callArgs := m.Called(ctx, entity)
	return callArgs.Error(0)
}

func (m *MockOrganizationRepo) Update(ctx context.Context, entity *models.Organization) error {
	callArgs := m.Called(ctx, entity)
	return callArgs.Error(0)
}

func (m *MockOrganizationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	callArgs := m.Called(ctx, id)
	return callArgs.Error(0)
}

func newTestUserService(users UserRepo, memberships MembershipRepo) *UserService {
	return NewUserService(users, memberships, nil, quietLogger())
}

func TestCreateOrUpdateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("Missing identity is unauthorized", func(t *testing.T) {
		svc := newTestUserService(new(MockUserRepo), new(MockMembershipRepo))

		_, err := svc.CreateOrUpdate(ctx, "", UserInput{})

		_, ok := IsUnauthorizedError(err)
		assert.True(t, ok)
	})

	t.Run("New external id creates the local mirror", func(t *testing.T) {
		users := new(MockUserRepo)
		users.On("FirstOrDefault", ctx, "external_id = ?", mock.Anything).Return(nil, nil)
		users.On("Add", ctx, mock.MatchedBy(func(u *models.AppUser) bool {
			return u.ExternalID == "user_1" && u.Email == "a@example.com"
		})).Return(nil)

		svc := newTestUserService(users, new(MockMembershipRepo))
		user, err := svc.CreateOrUpdate(ctx, "user_1", UserInput{Email: "a@example.com"})

		assert.NoError(t, err)
		assert.Equal(t, "user_1", user.ExternalID)
		users.AssertExpectations(t)
	})

	t.Run("Replay refreshes profile fields only", func(t *testing.T) {
		users := new(MockUserRepo)
		existing := &models.AppUser{ExternalID: "user_1", Email: "a@example.com", FirstName: "Ada"}
		users.On("FirstOrDefault", ctx, "external_id = ?", mock.Anything).Return(existing, nil)
		users.On("Update", ctx, existing).Return(nil)

		svc := newTestUserService(users, new(MockMembershipRepo))
		user, err := svc.CreateOrUpdate(ctx, "user_1", UserInput{FirstName: "Grace"})

		assert.NoError(t, err)
		assert.Equal(t, "Grace", user.FirstName)
		// An empty email in the payload does not clear the stored one.
		assert.Equal(t, "a@example.com", user.Email)
		users.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
	})
}

func TestSetCurrentOrganization(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()

	t.Run("Requires an active membership", func(t *testing.T) {
		users := new(MockUserRepo)
		users.On("FirstOrDefault", ctx, "external_id = ?", mock.Anything).
			Return(&models.AppUser{ExternalID: "user_1"}, nil)

		memberships := new(MockMembershipRepo)
		memberships.On("FirstOrDefault", ctx, "user_id = ? AND organization_id = ? AND is_active = ?", mock.Anything).
			Return(nil, nil)

		svc := newTestUserService(users, memberships)
		_, err := svc.SetCurrentOrganization(ctx, "user_1", orgID)

		_, ok := IsConflictError(err)
		assert.True(t, ok)
	})
}

func TestAddMember(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	userID := uuid.New()

	t.Run("Active member cannot be added twice", func(t *testing.T) {
		users := new(MockUserRepo)
		users.On("GetById", ctx, userID).Return(&models.AppUser{}, nil)

		memberships := new(MockMembershipRepo)
		memberships.On("FirstOrDefault", ctx, "user_id = ? AND organization_id = ?", mock.Anything).
			Return(&models.OrganizationUser{IsActive: true}, nil)

		svc := newTestUserService(users, memberships)
		_, err := svc.AddMember(ctx, orgID, userID, models.RoleUser)

		_, ok := IsConflictError(err)
		assert.True(t, ok)
	})

	t.Run("Inactive membership is reactivated", func(t *testing.T) {
		users := new(MockUserRepo)
		users.On("GetById", ctx, userID).Return(&models.AppUser{}, nil)

		memberships := new(MockMembershipRepo)
		inactive := &models.OrganizationUser{IsActive: false, Role: models.RoleUser}
		memberships.On("FirstOrDefault", ctx, "user_id = ? AND organization_id = ?", mock.Anything).
			Return(inactive, nil)
		memberships.On("Update", ctx, inactive).Return(nil)

		svc := newTestUserService(users, memberships)
		membership, err := svc.AddMember(ctx, orgID, userID, models.RoleManager)

		assert.NoError(t, err)
		assert.True(t, membership.IsActive)
		assert.Equal(t, models.RoleManager, membership.Role)
		memberships.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
	})

	t.Run("Unknown role is rejected", func(t *testing.T) {
		svc := newTestUserService(new(MockUserRepo), new(MockMembershipRepo))

		_, err := svc.AddMember(ctx, orgID, userID, "superuser")

		_, ok := IsValidationError(err)
		assert.True(t, ok)
	})
}

func TestRemoveMembershipFromWebhook(t *testing.T) {
	ctx := context.Background()

	t.Run("Unknown organization is a no-op", func(t *testing.T) {
		orgs := new(MockOrganizationRepo)
		orgs.On("FirstOrDefault", ctx, "external_id = ?", mock.Anything).Return(nil, nil)

		users := new(MockUserRepo)
		users.On("FirstOrDefault", ctx, "external_id = ?", mock.Anything).Return(nil, nil)

		memberships := new(MockMembershipRepo)

		svc := NewUserService(users, memberships, orgs, quietLogger())
		err := svc.RemoveMembershipFromWebhook(ctx, "org_gone", "user_gone")

		assert.NoError(t, err)
		memberships.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

func TestOwnerGuard(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	membershipID := uuid.New()

	ownerMembership := func() *models.OrganizationUser {
		return &models.OrganizationUser{
			OrganizationID: orgID,
			Role:           models.RoleOwner,
			IsActive:       true,
		}
	}

	t.Run("Last owner cannot be demoted", func(t *testing.T) {
		memberships := new(MockMembershipRepo)
		memberships.On("GetById", ctx, membershipID).Return(ownerMembership(), nil)
		memberships.On("Count", ctx, "organization_id = ? AND role = ? AND is_active = ? AND id <> ?", mock.Anything).
			Return(int64(0), nil)

		svc := newTestUserService(new(MockUserRepo), memberships)
		_, err := svc.UpdateMemberRole(ctx, orgID, membershipID, models.RoleAdmin)

		conflictErr, ok := IsConflictError(err)
		if assert.True(t, ok) {
			assert.Contains(t, conflictErr.Message, "at least one owner")
		}
	})

	t.Run("Owner can be demoted when another owner remains", func(t *testing.T) {
		memberships := new(MockMembershipRepo)
		memberships.On("GetById", ctx, membershipID).Return(ownerMembership(), nil)
		memberships.On("Count", ctx, "organization_id = ? AND role = ? AND is_active = ? AND id <> ?", mock.Anything).
			Return(int64(1), nil)
		memberships.On("Update", ctx, mock.AnythingOfType("*models.OrganizationUser")).Return(nil)

		svc := newTestUserService(new(MockUserRepo), memberships)
		membership, err := svc.UpdateMemberRole(ctx, orgID, membershipID, models.RoleAdmin)

		assert.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, membership.Role)
	})

	t.Run("Last owner cannot be removed", func(t *testing.T) {
		memberships := new(MockMembershipRepo)
		memberships.On("GetById", ctx, membershipID).Return(ownerMembership(), nil)
		memberships.On("Count", ctx, "organization_id = ? AND role = ? AND is_active = ? AND id <> ?", mock.Anything).
			Return(int64(0), nil)

		svc := newTestUserService(new(MockUserRepo), memberships)
		err := svc.RemoveMember(ctx, orgID, membershipID)

		_, ok := IsConflictError(err)
		assert.True(t, ok)
	})

	t.Run("Membership in another organization is not found", func(t *testing.T) {
		memberships := new(MockMembershipRepo)
		foreign := ownerMembership()
		foreign.OrganizationID = uuid.New()
		memberships.On("GetById", ctx, membershipID).Return(foreign, nil)

		svc := newTestUserService(new(MockUserRepo), memberships)
		err := svc.RemoveMember(ctx, orgID, membershipID)

		_, ok := IsNotFoundError(err)
		assert.True(t, ok)
	})
}
