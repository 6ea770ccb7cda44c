package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"inventory-service/internal/models"
)

// OrganizationResolver maps an identity provider organization id to the
// internal organization UUID.
type OrganizationResolver interface {
	ResolveExternalID(ctx context.Context, externalID string) (uuid.UUID, error)
}

// TenantContext resolves the request's organization once and stores the
// internal UUID in the gin context. It also threads the acting user
// into the request context so audit stamping can pick it up. Requests
// without an organization proceed untenanted; handlers that require a
// tenant reject them.
func TenantContext(resolver OrganizationResolver, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if userID := GetUserID(c); userID != "" {
			ctx = models.WithActor(ctx, userID)
			c.Request = c.Request.WithContext(ctx)
		}

		externalID := GetExternalOrgID(c)
		if externalID == "" {
			c.Next()
			return
		}

		orgID, err := resolver.ResolveExternalID(ctx, externalID)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"external_org_id": externalID,
				"error":           err.Error(),
			}).Warn("failed to resolve organization")
			c.Next()
			return
		}
		if orgID != uuid.Nil {
			c.Set(OrgIDKey, orgID)
		}

		c.Next()
	}
}
