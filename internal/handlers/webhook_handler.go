package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76/webhook"

	"inventory-service/internal/models"
	"inventory-service/internal/services"
)

// WebhookHandler handles inbound webhooks from the identity provider
// and Stripe. These routes carry no bearer token; each provider's own
// signature scheme authenticates the delivery.
type WebhookHandler struct {
	identity     *services.IdentityWebhookService
	stripeSvc    *services.StripeService
	deliveries   services.WebhookEventRepo
	stripeSecret string
	logger       *logrus.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(identity *services.IdentityWebhookService, stripeSvc *services.StripeService, deliveries services.WebhookEventRepo, stripeSecret string, logger *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{
		identity:     identity,
		stripeSvc:    stripeSvc,
		deliveries:   deliveries,
		stripeSecret: stripeSecret,
		logger:       logger,
	}
}

// HandleClerk ingests an identity provider webhook. Replays of an
// already-processed delivery are acknowledged without effect.
func (h *WebhookHandler) HandleClerk(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Failed to read body", err)
		return
	}

	msgID := c.GetHeader("svix-id")
	timestamp := c.GetHeader("svix-timestamp")
	signature := c.GetHeader("svix-signature")

	if err := h.identity.Verify(msgID, timestamp, signature, body); err != nil {
		ErrorResponse(c, http.StatusUnauthorized, "Webhook verification failed", err)
		return
	}
	if msgID == "" {
		ErrorResponse(c, http.StatusBadRequest, "Missing svix-id header", nil)
		return
	}

	if err := h.identity.Process(c.Request.Context(), msgID, body); err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Webhook processed", nil)
}

// HandleStripe ingests a Stripe webhook, verified through the SDK.
func (h *WebhookHandler) HandleStripe(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Failed to read body", err)
		return
	}

	event, err := webhook.ConstructEventWithTolerance(body,
		c.GetHeader("Stripe-Signature"), h.stripeSecret, 5*time.Minute)
	if err != nil {
		ErrorResponse(c, http.StatusUnauthorized, "Webhook verification failed", err)
		return
	}

	ctx := c.Request.Context()
	existing, err := h.deliveries.FirstOrDefault(ctx,
		"provider = ? AND external_event_id = ?", "stripe", event.ID)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	if existing != nil && existing.Processed {
		h.logger.WithField("event_id", event.ID).Info("stripe webhook replay ignored")
		SuccessResponse(c, http.StatusOK, "Webhook already processed", nil)
		return
	}
	if existing == nil {
		existing = &models.WebhookEvent{
			Provider:        "stripe",
			ExternalEventID: event.ID,
			EventType:       string(event.Type),
			Payload:         models.JSONB(body),
		}
		if err := h.deliveries.Add(ctx, existing); err != nil {
			ServiceErrorResponse(c, err)
			return
		}
	}

	handleErr := h.stripeSvc.HandleEvent(ctx, event)

	now := time.Now().UTC()
	existing.Processed = handleErr == nil
	existing.ProcessedAt = &now
	if handleErr != nil {
		existing.Error = handleErr.Error()
	}
	if err := h.deliveries.Update(ctx, existing); err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	if handleErr != nil {
		ServiceErrorResponse(c, handleErr)
		return
	}
	SuccessResponse(c, http.StatusOK, "Webhook processed", nil)
}
