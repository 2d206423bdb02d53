package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hcsem/communityhub/internal/accounts"
	"github.com/hcsem/communityhub/internal/config"
	"github.com/hcsem/communityhub/internal/domain/role"
	"github.com/hcsem/communityhub/internal/http/middlewares"
	"github.com/hcsem/communityhub/internal/observability"
)

// Keep these interfaces small so tests can fake them easily.

type LoginGate interface {
	Login(ctx context.Context, email, password, ip string) (accounts.LoginResult, error)
	Logout(ctx context.Context, rawToken string) error
}

type PasswordChanger interface {
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword, ip string) error
	CompleteForcedChange(ctx context.Context, changeToken, newPassword, ip string) error
	RedeemToken(ctx context.Context, plainToken, newPassword, ip string) error
}

type AuthHandler struct {
	gate      LoginGate
	passwords PasswordChanger
	prom      *observability.Prom
}

func NewAuthHandler(gate LoginGate, passwords PasswordChanger, prom *observability.Prom) *AuthHandler {
	return &AuthHandler{
		gate:      gate,
		passwords: passwords,
		prom:      prom,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
}

type ForcedChangeRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

func (h *AuthHandler) countLogin(outcome string) {
	if h.prom != nil {
		h.prom.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}

func (h *AuthHandler) countReset(event string) {
	if h.prom != nil {
		h.prom.ResetTokensTotal.WithLabelValues(event).Inc()
	}
}

// Login answers identically for an unknown email and a wrong password so the
// response cannot be used to probe which emails exist.
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 5*time.Second)

	defer cancel()

	res, err := h.gate.Login(cctx, req.Email, req.Password, ctx.ClientIP())

	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrInvalidCredentials):
			h.countLogin("invalid")
			RespondUnAuthorized(ctx, "Invalid email or password")
		case errors.Is(err, accounts.ErrAccountLocked):
			h.countLogin("locked")
			if h.prom != nil {
				h.prom.LockoutsTotal.Inc()
			}
			RespondForbidden(ctx, "account_locked", "Account is locked. Try again later or contact an administrator.")
		default:
			RespondInternal(ctx, "Could not process login")
		}
		return
	}

	if res.MustChangePassword {
		h.countLogin("must_change")

		ctx.JSON(http.StatusOK, gin.H{
			"mustChangePassword":  true,
			"passwordChangeToken": res.Token,
		})
		return
	}

	h.countLogin("ok")

	ctx.JSON(http.StatusOK, gin.H{
		"token":     res.Token,
		"expiresAt": res.ExpiresAt,
		"user":      res.User,
	})
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	raw, ok := middlewares.RawTokenFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "Missing session token")
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)

	defer cancel()

	if err := h.gate.Logout(cctx, raw); err != nil {
		RespondInternal(ctx, "Could not end session")
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	id, ok := middlewares.IdentityFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "Missing session identity")
		return
	}

	perms := []string{}

	if id.HasRole {
		if id.Role.IsSuperRole {
			perms = role.All
		} else {
			perms = id.Role.Permissions
		}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"user":        id.User,
		"role":        id.Role,
		"permissions": perms,
	})
}

func (h *AuthHandler) ChangePassword(ctx *gin.Context) {
	id, ok := middlewares.IdentityFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "Missing session identity")
		return
	}

	var req ChangePasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 5*time.Second)

	defer cancel()

	err := h.passwords.ChangePassword(cctx, id.User.ID, req.CurrentPassword, req.NewPassword, ctx.ClientIP())

	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrInvalidCredentials):
			RespondError(ctx, http.StatusBadRequest, "invalid_current_password", "Current password is incorrect.", nil)
		case errors.Is(err, accounts.ErrValidation):
			RespondBadRequest(ctx, "New password does not meet requirements", nil)
		default:
			RespondInternal(ctx, "Could not change password")
		}
		return
	}

	ctx.Status(http.StatusNoContent)
}

// CompleteForcedChange trades the short-lived password-change token handed
// out at login for a new password. The client signs in again afterwards.
func (h *AuthHandler) CompleteForcedChange(ctx *gin.Context) {
	var req ForcedChangeRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 5*time.Second)

	defer cancel()

	err := h.passwords.CompleteForcedChange(cctx, req.Token, req.NewPassword, ctx.ClientIP())

	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrInvalidToken):
			RespondUnAuthorized(ctx, "Invalid or expired password change token")
		case errors.Is(err, accounts.ErrValidation):
			RespondBadRequest(ctx, "New password does not meet requirements", nil)
		default:
			RespondInternal(ctx, "Could not change password")
		}
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h *AuthHandler) ResetPassword(ctx *gin.Context) {
	var req ResetPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 5*time.Second)

	defer cancel()

	err := h.passwords.RedeemToken(cctx, req.Token, req.NewPassword, ctx.ClientIP())

	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrInvalidToken):
			h.countReset("rejected")
			RespondError(ctx, http.StatusBadRequest, "invalid_token", "Reset token is invalid or already used.", nil)
		case errors.Is(err, accounts.ErrTokenExpired):
			h.countReset("rejected")
			RespondError(ctx, http.StatusBadRequest, "token_expired", "Reset token has expired.", nil)
		case errors.Is(err, accounts.ErrValidation):
			RespondBadRequest(ctx, "New password does not meet requirements", nil)
		default:
			RespondInternal(ctx, "Could not reset password")
		}
		return
	}

	h.countReset("redeemed")

	ctx.Status(http.StatusNoContent)
}
