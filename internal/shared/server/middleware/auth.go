package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"backoffice/internal/shared/auth"
	"backoffice/internal/shared/server/respond"
)

const (
	subjectKey = "subject"
	emailKey   = "email"
	rolesKey   = "roles"
)

// RoleAdmin is required for state-changing back-office actions.
const RoleAdmin = "admin"

// Auth validates the staff bearer token and stores identity in context.
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if !strings.HasPrefix(authHeader, "Bearer ") {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if token == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		claims, err := auth.VerifyJWT(token)
		if err != nil {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		c.Set(subjectKey, claims.Subject)
		if claims.Email != "" {
			c.Set(emailKey, claims.Email)
		}
		c.Set(rolesKey, claims.Roles)
		c.Next()
	}
}

// RequireRoles lets the request through when the caller holds any of roles.
// It must run after Auth.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		held := RolesFromContext(c)
		for _, r := range roles {
			if slices.Contains(held, r) {
				c.Next()
				return
			}
		}
		respond.Error(c, http.StatusForbidden, "forbidden", "insufficient role", nil)
	}
}

// SubjectFromContext fetches the staff subject set by the auth middleware.
func SubjectFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(subjectKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// EmailFromContext fetches the staff email set by the auth middleware.
func EmailFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(emailKey)
	if email, ok := val.(string); ok {
		return email
	}
	return ""
}

// RolesFromContext fetches the staff roles set by the auth middleware.
func RolesFromContext(c *gin.Context) []string {
	if c == nil {
		return nil
	}
	val, _ := c.Get(rolesKey)
	if roles, ok := val.([]string); ok {
		return roles
	}
	return nil
}
