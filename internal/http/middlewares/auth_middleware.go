package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hcsem/communityhub/internal/accounts"
	"github.com/hcsem/communityhub/internal/actorctx"
)

// Keep this small interface so tests can fake it easily.
type IdentityResolver interface {
	CurrentUser(ctx context.Context, rawToken string) (accounts.Identity, error)
	Authorize(ctx context.Context, id accounts.Identity, permissionID, ip string) error
}

type AuthMiddleware struct {
	gate IdentityResolver
}

func NewAuthMiddleware(gate IdentityResolver) *AuthMiddleware {
	return &AuthMiddleware{gate: gate}
}

func rejectUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    "unauthorized",
			"message": message,
		},
	})
}

// RequireAuth resolves the bearer token to a live session identity. A token
// whose session row is revoked or expired fails here even with a valid
// signature.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			rejectUnauthorized(c, "Missing or invalid Authorization header")
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if raw == "" {
			rejectUnauthorized(c, "Missing or invalid session token")
			return
		}

		id, err := m.gate.CurrentUser(c.Request.Context(), raw)
		if err != nil {
			if errors.Is(err, accounts.ErrUnauthenticated) {
				rejectUnauthorized(c, "Invalid or expired session token")
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{
					"code":    "internal_error",
					"message": "Could not resolve session",
				},
			})
			return
		}

		// Stash the raw token too so logout can revoke the session row.
		c.Set(CtxIdentity, id)
		c.Set(CtxRawToken, raw)
		c.Set(string(CtxUserID), id.User.ID)

		// propagate the actor on the plain request context for audit writes
		c.Request = c.Request.WithContext(actorctx.WithUserID(c.Request.Context(), id.User.ID))

		c.Next()
	}
}

// RequirePermission gates a route group on one permission id. Must run after
// RequireAuth. Denials are audited by the gate.
func (m *AuthMiddleware) RequirePermission(permissionID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFromContext(c)
		if !ok {
			rejectUnauthorized(c, "Missing session identity")
			return
		}

		if err := m.gate.Authorize(c.Request.Context(), id, permissionID, c.ClientIP()); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "forbidden",
					"message": "Missing required permission",
				},
			})
			return
		}

		c.Next()
	}
}

// Optional helpers so handlers don’t need to know the magic keys.

func IdentityFromContext(c *gin.Context) (accounts.Identity, bool) {
	v, ok := c.Get(CtxIdentity)
	if !ok {
		return accounts.Identity{}, false
	}
	id, ok := v.(accounts.Identity)
	return id, ok
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(string(CtxUserID))
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

func RawTokenFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxRawToken)
	if !ok {
		return "", false
	}
	raw, ok := v.(string)
	return raw, ok && raw != ""
}
