package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"inventory-service/internal/models"
)

// OrganizationRepo is the persistence surface for organizations.
type OrganizationRepo interface {
	GetById(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	FirstOrDefault(ctx context.Context, query string, args ...interface{}) (*models.Organization, error)
	Add(ctx context.Context, entity *models.Organization) error
	Update(ctx context.Context, entity *models.Organization) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type kvCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

type subscriptionEnsurer interface {
	EnsureSubscription(ctx context.Context, orgID uuid.UUID) (*models.Subscription, error)
}

// OrganizationService implements organization operations, including the
// external-id resolution every tenanted request goes through.
type OrganizationService struct {
	orgs          OrganizationRepo
	subscriptions subscriptionEnsurer
	cache         kvCache
	logger        *logrus.Logger
}

// NewOrganizationService creates a new organization service.
func NewOrganizationService(orgs OrganizationRepo, subscriptions subscriptionEnsurer, cache kvCache, logger *logrus.Logger) *OrganizationService {
	return &OrganizationService{
		orgs:          orgs,
		subscriptions: subscriptions,
		cache:         cache,
		logger:        logger,
	}
}

const orgResolveCacheTTL = 5 * time.Minute

// ResolveExternalID maps the identity provider's organization id to the
// internal UUID. Resolutions are cached briefly since every tenanted
// request performs one.
func (s *OrganizationService) ResolveExternalID(ctx context.Context, externalID string) (uuid.UUID, error) {
	cacheKey := "org:ext:" + externalID
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, cacheKey); ok {
			if id, err := uuid.Parse(cached); err == nil {
				return id, nil
			}
		}
	}

	org, err := s.orgs.FirstOrDefault(ctx, "external_id = ?", externalID)
	if err != nil {
		return uuid.Nil, err
	}
	if org == nil {
		return uuid.Nil, nil
	}
	if s.cache != nil {
		s.cache.Set(ctx, cacheKey, org.ID.String(), orgResolveCacheTTL)
	}
	return org.ID, nil
}

// Current returns the organization the request is scoped to.
func (s *OrganizationService) Current(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	org, err := s.orgs.GetById(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, NewNotFoundError("organization")
	}
	return org, nil
}

// OrganizationInput carries the mutable organization fields.
type OrganizationInput struct {
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city"`
	Country  string `json:"country"`
	Industry string `json:"industry"`
}

// Sync upserts an organization by its external id. Replaying the same
// sync is a no-op beyond refreshing mutable fields.
func (s *OrganizationService) Sync(ctx context.Context, externalID string, in OrganizationInput) (*models.Organization, error) {
	if externalID == "" {
		return nil, NewUnauthorizedError("no organization in token")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, NewValidationError("name", "name is required")
	}

	org, err := s.orgs.FirstOrDefault(ctx, "external_id = ?", externalID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		org = &models.Organization{
			ExternalID: externalID,
			Name:       in.Name,
			Slug:       in.Slug,
			Email:      in.Email,
			IsActive:   true,
		}
		if err := s.orgs.Add(ctx, org); err != nil {
			return nil, err
		}
		s.logger.WithFields(logrus.Fields{
			"organization_id": org.ID.String(),
			"external_id":     externalID,
		}).Info("organization created from sync")
		return org, nil
	}

	org.Name = in.Name
	if in.Slug != "" {
		org.Slug = in.Slug
	}
	if in.Email != "" {
		org.Email = in.Email
	}
	if err := s.orgs.Update(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

// Update modifies the current organization's profile.
func (s *OrganizationService) Update(ctx context.Context, orgID uuid.UUID, in OrganizationInput) (*models.Organization, error) {
	org, err := s.Current(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, NewValidationError("name", "name is required")
	}

	org.Name = in.Name
	org.Slug = in.Slug
	org.Email = in.Email
	org.Phone = in.Phone
	org.Address = in.Address
	org.City = in.City
	org.Country = in.Country
	org.Industry = in.Industry

	if err := s.orgs.Update(ctx, org); err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Delete(ctx, "org:ext:"+org.ExternalID)
	}
	return org, nil
}

// CompleteSetup marks onboarding finished and guarantees the
// organization has a subscription, creating the trial when absent.
func (s *OrganizationService) CompleteSetup(ctx context.Context, orgID uuid.UUID, in OrganizationInput) (*models.Organization, error) {
	org, err := s.Current(ctx, orgID)
	if err != nil {
		return nil, err
	}

	if in.Name != "" {
		org.Name = in.Name
	}
	if in.Industry != "" {
		org.Industry = in.Industry
	}
	if in.Country != "" {
		org.Country = in.Country
	}
	org.SetupCompleted = true

	if err := s.orgs.Update(ctx, org); err != nil {
		return nil, err
	}
	if _, err := s.subscriptions.EnsureSubscription(ctx, orgID); err != nil {
		return nil, err
	}
	return org, nil
}

// UpsertFromWebhook applies an organization.created/updated webhook.
func (s *OrganizationService) UpsertFromWebhook(ctx context.Context, externalID, name, slug string) (*models.Organization, error) {
	org, err := s.orgs.FirstOrDefault(ctx, "external_id = ?", externalID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		org = &models.Organization{
			ExternalID: externalID,
			Name:       name,
			Slug:       slug,
			IsActive:   true,
		}
		if err := s.orgs.Add(ctx, org); err != nil {
			return nil, err
		}
		return org, nil
	}

	if name != "" {
		org.Name = name
	}
	if slug != "" {
		org.Slug = slug
	}
	if err := s.orgs.Update(ctx, org); err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Delete(ctx, "org:ext:"+externalID)
	}
	return org, nil
}
