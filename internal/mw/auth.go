package mw

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shubhayu-dev/Sanrakshan/internal/auth"
)

// Context keys set by the auth middleware.
const (
	CtxPrincipalID = "principal_id"
	CtxIsStaff     = "is_staff"
)

// Auth validates the bearer token and injects the principal into the
// request context. The service trusts the token's staff flag; there is no
// further authorization logic downstream.
func Auth(mgr *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		principal, err := mgr.Parse(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token is invalid or expired"})
			return
		}

		c.Set(CtxPrincipalID, principal.ID)
		c.Set(CtxIsStaff, principal.IsStaff)
		c.Next()
	}
}

// RequireStaff gates staff-only routes on the identity provider's staff
// flag. Must run after Auth.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(CtxIsStaff) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "staff access required"})
			return
		}
		c.Next()
	}
}

// Principal extracts the authenticated principal from the gin context.
func Principal(c *gin.Context) auth.Principal {
	return auth.Principal{
		ID:      c.GetString(CtxPrincipalID),
		IsStaff: c.GetBool(CtxIsStaff),
	}
}
