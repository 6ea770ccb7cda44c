package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"inventory-service/internal/models"
)

// WebhookEventRepo records received webhook deliveries.
type WebhookEventRepo interface {
	FirstOrDefault(ctx context.Context, query string, args ...interface{}) (*models.WebhookEvent, error)
	Add(ctx context.Context, entity *models.WebhookEvent) error
	Update(ctx context.Context, entity *models.WebhookEvent) error
}

// SvixTolerance is the accepted clock skew for webhook timestamps.
const SvixTolerance = 5 * time.Minute

const identityProvider = "clerk"

// VerifySvixSignature checks a Svix-style webhook signature: an
// HMAC-SHA256 over "{id}.{timestamp}.{body}" keyed with the decoded
// secret. The signature header may carry several space-separated
// "v1,<base64>" candidates; any match passes.
func VerifySvixSignature(secret, msgID, timestamp, signatureHeader string, body []byte, now time.Time) error {
	if msgID == "" || timestamp == "" || signatureHeader == "" {
		return NewUnauthorizedError("missing webhook signature headers")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return NewUnauthorizedError("invalid webhook timestamp")
	}
	drift := now.Unix() - ts
	if drift < 0 {
		drift = -drift
	}
	if drift > int64(SvixTolerance.Seconds()) {
		return NewUnauthorizedError("webhook timestamp outside tolerance")
	}

	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, "whsec_"))
	if err != nil {
		return fmt.Errorf("failed to decode webhook secret: %w", err)
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(msgID + "." + timestamp + "."))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	for _, candidate := range strings.Fields(signatureHeader) {
		parts := strings.SplitN(candidate, ",", 2)
		if len(parts) != 2 || parts[0] != "v1" {
			continue
		}
		if hmac.Equal([]byte(parts[1]), []byte(expected)) {
			return nil
		}
	}
	return NewUnauthorizedError("webhook signature mismatch")
}

// ComputeSvixSignature produces the "v1,<sig>" value a sender would
// attach for the given payload.
func ComputeSvixSignature(secret, msgID, timestamp string, body []byte) (string, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, "whsec_"))
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(msgID + "." + timestamp + "."))
	mac.Write(body)
	return "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// IdentityWebhookService ingests identity provider webhooks and keeps
// the local user and organization mirrors in sync. Deliveries are
// recorded by message id; replays are no-ops.
type IdentityWebhookService struct {
	deliveries WebhookEventRepo
	users      *UserService
	orgs       *OrganizationService
	secret     string
	logger     *logrus.Logger
}

// NewIdentityWebhookService creates a new identity webhook service.
func NewIdentityWebhookService(deliveries WebhookEventRepo, users *UserService, orgs *OrganizationService, secret string, logger *logrus.Logger) *IdentityWebhookService {
	return &IdentityWebhookService{
		deliveries: deliveries,
		users:      users,
		orgs:       orgs,
		secret:     secret,
		logger:     logger,
	}
}

// Verify checks the delivery's signature headers. Verification is
// skipped, with a warning, when no secret is configured.
func (s *IdentityWebhookService) Verify(msgID, timestamp, signature string, body []byte) error {
	if s.secret == "" {
		s.logger.Warn("webhook signature verification skipped: no secret configured")
		return nil
	}
	return VerifySvixSignature(s.secret, msgID, timestamp, signature, body, time.Now().UTC())
}

type identityEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type identityUserData struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	ImageURL       string `json:"image_url"`
	EmailAddresses []struct {
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

type identityOrgData struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type identityMembershipData struct {
	Organization struct {
		ID string `json:"id"`
	} `json:"organization"`
	PublicUserData struct {
		UserID string `json:"user_id"`
	} `json:"public_user_data"`
	Role string `json:"role"`
}

// Process handles one verified delivery. Events already seen are
// skipped; unknown event types are recorded and accepted.
func (s *IdentityWebhookService) Process(ctx context.Context, msgID string, body []byte) error {
	existing, err := s.deliveries.FirstOrDefault(ctx,
		"provider = ? AND external_event_id = ?", identityProvider, msgID)
	if err != nil {
		return err
	}
	if existing != nil && existing.Processed {
		s.logger.WithField("event_id", msgID).Info("webhook replay ignored")
		return nil
	}

	var event identityEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return NewValidationError("body", "invalid webhook payload")
	}

	if existing == nil {
		existing = &models.WebhookEvent{
			Provider:        identityProvider,
			ExternalEventID: msgID,
			EventType:       event.Type,
			Payload:         models.JSONB(body),
		}
		if err := s.deliveries.Add(ctx, existing); err != nil {
			return err
		}
	}

	handleErr := s.dispatch(ctx, event)

	now := time.Now().UTC()
	existing.Processed = handleErr == nil
	existing.ProcessedAt = &now
	if handleErr != nil {
		existing.Error = handleErr.Error()
	}
	if err := s.deliveries.Update(ctx, existing); err != nil {
		return err
	}
	return handleErr
}

func (s *IdentityWebhookService) dispatch(ctx context.Context, event identityEvent) error {
	switch event.Type {
	case "user.created", "user.updated":
		var data identityUserData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return fmt.Errorf("failed to decode user event: %w", err)
		}
		email := ""
		if len(data.EmailAddresses) > 0 {
			email = data.EmailAddresses[0].EmailAddress
		}
		return s.users.UpsertFromWebhook(ctx, data.ID, UserInput{
			Email:     email,
			FirstName: data.FirstName,
			LastName:  data.LastName,
			ImageURL:  data.ImageURL,
		})

	case "user.deleted":
		var data identityUserData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return fmt.Errorf("failed to decode user event: %w", err)
		}
		return s.users.DeleteFromWebhook(ctx, data.ID)

	case "organization.created", "organization.updated":
		var data identityOrgData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return fmt.Errorf("failed to decode organization event: %w", err)
		}
		_, err := s.orgs.UpsertFromWebhook(ctx, data.ID, data.Name, data.Slug)
		return err

	case "organizationMembership.created":
		var data identityMembershipData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return fmt.Errorf("failed to decode membership event: %w", err)
		}
		return s.users.SyncMembershipFromWebhook(ctx,
			data.Organization.ID, data.PublicUserData.UserID, mapIdentityRole(data.Role))

	case "organizationMembership.deleted":
		var data identityMembershipData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return fmt.Errorf("failed to decode membership event: %w", err)
		}
		return s.users.RemoveMembershipFromWebhook(ctx,
			data.Organization.ID, data.PublicUserData.UserID)

	default:
		s.logger.WithField("event_type", event.Type).Info("ignoring identity event")
		return nil
	}
}

// mapIdentityRole converts the provider's role naming ("org:admin") to
// the local role taxonomy.
func mapIdentityRole(role string) models.Role {
	role = strings.TrimPrefix(role, "org:")
	switch role {
	case "admin":
		return models.RoleAdmin
	case "owner":
		return models.RoleOwner
	default:
		return models.RoleUser
	}
}
