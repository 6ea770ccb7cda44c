package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"inventory-service/internal/services"
)

// LimitChecker verifies that an organization can add one more resource
// of the given kind under its subscription plan.
type LimitChecker interface {
	CheckLimit(ctx context.Context, orgID uuid.UUID, limitType string) error
}

// limitedRoutes maps resource-creating path prefixes to the plan limit
// they consume.
var limitedRoutes = map[string]string{
	"/api/products":   "products",
	"/api/orders":     "orders",
	"/api/warehouses": "warehouses",
	"/api/users":      "users",
}

// SubscriptionLimits blocks resource creation once the organization's
// plan limit is reached. Reads always pass, as do the subscription and
// payment routes so a capped organization can still upgrade.
func SubscriptionLimits(checker LimitChecker, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/subscriptions") ||
			strings.HasPrefix(path, "/api/payments") ||
			strings.HasPrefix(path, "/api/webhooks") {
			c.Next()
			return
		}

		limitType := ""
		for prefix, kind := range limitedRoutes {
			if path == prefix || path == prefix+"/" {
				limitType = kind
				break
			}
		}
		if limitType == "" {
			c.Next()
			return
		}

		orgID, ok := GetOrgID(c)
		if !ok {
			c.Next()
			return
		}

		if err := checker.CheckLimit(c.Request.Context(), orgID, limitType); err != nil {
			if limitErr, ok := services.IsLimitExceededError(err); ok {
				c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
					"success":    false,
					"message":    limitErr.Error(),
					"limit_type": limitErr.LimitType,
					"current":    limitErr.Current,
					"limit":      limitErr.Limit,
					"upgrade":    "/api/subscriptions/plans",
					"request_id": GetRequestID(c),
					"timestamp":  time.Now().UTC().Format(time.RFC3339),
				})
				return
			}
			// Limit checks never block traffic on internal failure.
			logger.WithFields(logrus.Fields{
				"organization_id": orgID.String(),
				"limit_type":      limitType,
				"error":           err.Error(),
			}).Warn("limit check failed, allowing request")
		}

		c.Next()
	}
}
