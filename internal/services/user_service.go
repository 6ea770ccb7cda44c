package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"inventory-service/internal/models"
)

// UserRepo is the persistence surface for application users.
type UserRepo interface {
	GetById(ctx context.Context, id uuid.UUID) (*models.AppUser, error)
	FirstOrDefault(ctx context.Context, query string, args ...interface{}) (*models.AppUser, error)
	Add(ctx context.Context, entity *models.AppUser) error
	Update(ctx context.Context, entity *models.AppUser) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// MembershipRepo is the persistence surface for organization
// memberships.
type MembershipRepo interface {
	GetById(ctx context.Context, id uuid.UUID) (*models.OrganizationUser, error)
	Find(ctx context.Context, query string, args ...interface{}) ([]models.OrganizationUser, error)
	FirstOrDefault(ctx context.Context, query string, args ...interface{}) (*models.OrganizationUser, error)
	Count(ctx context.Context, query string, args ...interface{}) (int64, error)
	Add(ctx context.Context, entity *models.OrganizationUser) error
	Update(ctx context.Context, entity *models.OrganizationUser) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// UserService implements user and membership operations. Users are
// mastered by the identity provider; this service keeps an idempotent
// local mirror keyed by the provider's user id.
type UserService struct {
	users       UserRepo
	memberships MembershipRepo
	orgs        OrganizationRepo
	logger      *logrus.Logger
}

// NewUserService creates a new user service.
func NewUserService(users UserRepo, memberships MembershipRepo, orgs OrganizationRepo, logger *logrus.Logger) *UserService {
	return &UserService{
		users:       users,
		memberships: memberships,
		orgs:        orgs,
		logger:      logger,
	}
}

// UserInput carries the mutable user profile fields.
type UserInput struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	ImageURL  string `json:"image_url"`
}

// CreateOrUpdate upserts a user by external id. Replays are no-ops
// beyond refreshing profile fields.
func (s *UserService) CreateOrUpdate(ctx context.Context, externalID string, in UserInput) (*models.AppUser, error) {
	if externalID == "" {
		return nil, NewUnauthorizedError("no user in token")
	}

	user, err := s.users.FirstOrDefault(ctx, "external_id = ?", externalID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user = &models.AppUser{
			ExternalID: externalID,
			Email:      in.Email,
			FirstName:  in.FirstName,
			LastName:   in.LastName,
			ImageURL:   in.ImageURL,
		}
		if err := s.users.Add(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	}

	if in.Email != "" {
		user.Email = in.Email
	}
	user.FirstName = in.FirstName
	user.LastName = in.LastName
	if in.ImageURL != "" {
		user.ImageURL = in.ImageURL
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Me returns the user and their active memberships.
func (s *UserService) Me(ctx context.Context, externalID string) (*models.AppUser, []models.OrganizationUser, error) {
	if externalID == "" {
		return nil, nil, NewUnauthorizedError("no user in token")
	}
	user, err := s.users.FirstOrDefault(ctx, "external_id = ?", externalID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, NewNotFoundError("user")
	}
	memberships, err := s.memberships.Find(ctx, "user_id = ? AND is_active = ?", user.ID, true)
	if err != nil {
		return nil, nil, err
	}
	return user, memberships, nil
}

// SetCurrentOrganization switches the user's active organization. The
// user must be an active member of the target.
func (s *UserService) SetCurrentOrganization(ctx context.Context, externalID string, orgID uuid.UUID) (*models.AppUser, error) {
	user, err := s.users.FirstOrDefault(ctx, "external_id = ?", externalID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, NewNotFoundError("user")
	}

	membership, err := s.memberships.FirstOrDefault(ctx,
		"user_id = ? AND organization_id = ? AND is_active = ?", user.ID, orgID, true)
	if err != nil {
		return nil, err
	}
	if membership == nil {
		return nil, NewConflictError("membership", "user is not a member of that organization")
	}

	user.CurrentOrganizationID = &orgID
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ListMembers returns the organization's active memberships.
func (s *UserService) ListMembers(ctx context.Context, orgID uuid.UUID) ([]models.OrganizationUser, error) {
	return s.memberships.Find(ctx, "organization_id = ? AND is_active = ?", orgID, true)
}

// CountMembers counts the organization's active memberships.
func (s *UserService) CountMembers(ctx context.Context, orgID uuid.UUID) (int64, error) {
	return s.memberships.Count(ctx, "organization_id = ? AND is_active = ?", orgID, true)
}

// AddMember adds a user to the organization with a role.
func (s *UserService) AddMember(ctx context.Context, orgID, userID uuid.UUID, role models.Role) (*models.OrganizationUser, error) {
	if !models.ValidRole(role) {
		return nil, NewValidationError("role", "unknown role")
	}
	user, err := s.users.GetById(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, NewNotFoundError("user")
	}

	existing, err := s.memberships.FirstOrDefault(ctx,
		"user_id = ? AND organization_id = ?", userID, orgID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.IsActive {
			return nil, NewConflictError("membership", "user is already a member")
		}
		existing.IsActive = true
		existing.Role = role
		if err := s.memberships.Update(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	membership := &models.OrganizationUser{
		OrganizationID: orgID,
		UserID:         userID,
		Role:           role,
		IsActive:       true,
		JoinedAt:       time.Now().UTC(),
	}
	if err := s.memberships.Add(ctx, membership); err != nil {
		return nil, err
	}
	return membership, nil
}

// UpdateMemberRole changes a member's role. The last owner cannot be
// demoted.
func (s *UserService) UpdateMemberRole(ctx context.Context, orgID, membershipID uuid.UUID, role models.Role) (*models.OrganizationUser, error) {
	if !models.ValidRole(role) {
		return nil, NewValidationError("role", "unknown role")
	}
	membership, err := s.memberships.GetById(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if membership == nil || membership.OrganizationID != orgID {
		return nil, NewNotFoundError("membership")
	}

	if membership.Role == models.RoleOwner && role != models.RoleOwner {
		if err := s.requireAnotherOwner(ctx, orgID, membership.ID); err != nil {
			return nil, err
		}
	}

	membership.Role = role
	if err := s.memberships.Update(ctx, membership); err != nil {
		return nil, err
	}
	return membership, nil
}

// RemoveMember removes a member from the organization. The last owner
// cannot be removed.
func (s *UserService) RemoveMember(ctx context.Context, orgID, membershipID uuid.UUID) error {
	membership, err := s.memberships.GetById(ctx, membershipID)
	if err != nil {
		return err
	}
	if membership == nil || membership.OrganizationID != orgID {
		return NewNotFoundError("membership")
	}
	if membership.Role == models.RoleOwner {
		if err := s.requireAnotherOwner(ctx, orgID, membership.ID); err != nil {
			return err
		}
	}
	return s.memberships.Delete(ctx, membershipID)
}

func (s *UserService) requireAnotherOwner(ctx context.Context, orgID, excludeID uuid.UUID) error {
	owners, err := s.memberships.Count(ctx,
		"organization_id = ? AND role = ? AND is_active = ? AND id <> ?",
		orgID, models.RoleOwner, true, excludeID)
	if err != nil {
		return err
	}
	if owners == 0 {
		return NewConflictError("membership", "organization must keep at least one owner")
	}
	return nil
}

// UpsertFromWebhook applies a user.created/user.updated webhook.
func (s *UserService) UpsertFromWebhook(ctx context.Context, externalID string, in UserInput) error {
	_, err := s.CreateOrUpdate(ctx, externalID, in)
	return err
}

// DeleteFromWebhook applies a user.deleted webhook.
func (s *UserService) DeleteFromWebhook(ctx context.Context, externalID string) error {
	user, err := s.users.FirstOrDefault(ctx, "external_id = ?", externalID)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}
	return s.users.Delete(ctx, user.ID)
}

// SyncMembershipFromWebhook applies an organizationMembership.created
// webhook, creating the user and organization mirrors when needed.
func (s *UserService) SyncMembershipFromWebhook(ctx context.Context, externalOrgID, externalUserID string, role models.Role) error {
	org, err := s.orgs.FirstOrDefault(ctx, "external_id = ?", externalOrgID)
	if err != nil {
		return err
	}
	if org == nil {
		s.logger.WithField("external_org_id", externalOrgID).
			Warn("membership webhook for unknown organization")
		return nil
	}
	user, err := s.CreateOrUpdate(ctx, externalUserID, UserInput{})
	if err != nil {
		return err
	}
	if !models.ValidRole(role) {
		role = models.RoleUser
	}
	_, err = s.AddMember(ctx, org.ID, user.ID, role)
	if _, conflict := IsConflictError(err); conflict {
		return nil
	}
	return err
}

// RemoveMembershipFromWebhook applies an organizationMembership.deleted
// webhook.
func (s *UserService) RemoveMembershipFromWebhook(ctx context.Context, externalOrgID, externalUserID string) error {
	org, err := s.orgs.FirstOrDefault(ctx, "external_id = ?", externalOrgID)
	if err != nil {
		return err
	}
	user, err := s.users.FirstOrDefault(ctx, "external_id = ?", externalUserID)
	if err != nil {
		return err
	}
	if org == nil || user == nil {
		return nil
	}
	membership, err := s.memberships.FirstOrDefault(ctx,
		"organization_id = ? AND user_id = ?", org.ID, user.ID)
	if err != nil || membership == nil {
		return err
	}
	return s.memberships.Delete(ctx, membership.ID)
}
