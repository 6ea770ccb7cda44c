package middleware

import (
	"encoding/json"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Auth extracts the caller's identity from the Bearer token. Token
// signatures are verified upstream by the API gateway; this middleware
// only reads claims. Requests without a usable token proceed without
// an identity and are rejected later by handlers that require one.
func Auth() gin.HandlerFunc {
	parser := jwt.NewParser()
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.Next()
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		token, _, err := parser.ParseUnverified(raw, jwt.MapClaims{})
		if err != nil {
			c.Next()
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.Next()
			return
		}

		if sub, ok := claims["sub"].(string); ok && sub != "" {
			c.Set(UserIDKey, sub)
		}
		if orgID, ok := ResolveOrgClaim(claims); ok {
			c.Set(ExternalOrgIDKey, orgID)
		}

		c.Next()
	}
}

// ResolveOrgClaim extracts the identity provider's organization id from
// token claims. Strategies are tried in order:
//
//  1. the direct "org_id" claim
//  2. the nested "o" claim, parsed as JSON, reading its "id" field
//  3. the alternate "organization_id" claim
//
// Values containing unexpanded template placeholders ("{{" or "}}")
// are treated as absent. The resolver never fails; it reports false
// when no usable organization id is present.
func ResolveOrgClaim(claims map[string]interface{}) (string, bool) {
	if v, ok := usableClaim(claims["org_id"]); ok {
		return v, true
	}
	if v, ok := orgFromNestedClaim(claims["o"]); ok {
		return v, true
	}
	if v, ok := usableClaim(claims["organization_id"]); ok {
		return v, true
	}
	return "", false
}

func orgFromNestedClaim(raw interface{}) (string, bool) {
	switch v := raw.(type) {
	case map[string]interface{}:
		return usableClaim(v["id"])
	case string:
		var nested struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal([]byte(v), &nested); err != nil {
			return "", false
		}
		return usableClaim(nested.ID)
	}
	return "", false
}

func usableClaim(raw interface{}) (string, bool) {
	value, ok := raw.(string)
	if !ok || value == "" || isTemplateValue(value) {
		return "", false
	}
	return value, true
}

// isTemplateValue detects unexpanded template placeholders that some
// token templates leave behind when no organization is active.
func isTemplateValue(value string) bool {
	return strings.Contains(value, "{{") || strings.Contains(value, "}}")
}
