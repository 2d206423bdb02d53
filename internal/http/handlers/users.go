package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hcsem/communityhub/internal/accounts"
	"github.com/hcsem/communityhub/internal/config"
	"github.com/hcsem/communityhub/internal/domain/job"
	"github.com/hcsem/communityhub/internal/domain/user"
	"github.com/hcsem/communityhub/internal/http/middlewares"
	"github.com/hcsem/communityhub/internal/jobs"
)

type UserRegistry interface {
	CreateUser(ctx context.Context, in accounts.CreateUserInput, actorID *string, ip string) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
	UpdateUser(ctx context.Context, id string, req user.UpdateRequest, actorID *string, ip string) (user.User, error)
	DeleteUser(ctx context.Context, id string, actorID *string, ip string) error
	Unlock(ctx context.Context, id string, actorID *string, ip string) error
	Lock(ctx context.Context, id string, actorID *string, ip string) error
	ResetAttempts(ctx context.Context, id string, actorID *string, ip string) error
	ForcePasswordChange(ctx context.Context, id string, actorID *string, ip string) error
}

type ResetIssuer interface {
	IssueToken(ctx context.Context, targetUserID string, actorID *string, ip string) (accounts.IssuedReset, error)
}

type JobEnqueuer interface {
	Create(ctx context.Context, req job.CreateRequest) (job.Job, error)
}

type UsersHandler struct {
	registry UserRegistry
	resets   ResetIssuer
	jobs     JobEnqueuer
	baseURL  string
}

func NewUsersHandler(registry UserRegistry, resets ResetIssuer, jobs JobEnqueuer, baseURL string) *UsersHandler {
	return &UsersHandler{
		registry: registry,
		resets:   resets,
		jobs:     jobs,
		baseURL:  baseURL,
	}
}

type CreateUserRequest struct {
	Email              string  `json:"email" binding:"required,email"`
	FullName           string  `json:"fullName" binding:"required"`
	Password           string  `json:"password" binding:"required,min=8"`
	RoleID             *string `json:"roleId"`
	MustChangePassword bool    `json:"mustChangePassword"`
}

type UpdateUserRequest struct {
	FullName *string `json:"fullName"`
	RoleID   *string `json:"roleId"`
	IsActive *bool   `json:"isActive"`
}

func actorFrom(ctx *gin.Context) *string {
	id, ok := middlewares.IdentityFromContext(ctx)

	if !ok {
		return nil
	}
	return &id.User.ID
}

func (h *UsersHandler) Create(ctx *gin.Context) {
	var req CreateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 5*time.Second)

	defer cancel()

	u, err := h.registry.CreateUser(cctx, accounts.CreateUserInput{
		Email:              req.Email,
		FullName:           req.FullName,
		Password:           req.Password,
		RoleID:             req.RoleID,
		MustChangePassword: req.MustChangePassword,
	}, actorFrom(ctx), ctx.ClientIP())

	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrDuplicateEmail):
			RespondConflict(ctx, "email_taken", "Email is already in use.")
		case errors.Is(err, accounts.ErrValidation):
			RespondBadRequest(ctx, "Invalid user payload", nil)
		default:
			RespondInternal(ctx, "Could not create user")
		}
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"user": u})
}

func (h *UsersHandler) List(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 5*time.Second)

	defer cancel()

	users, err := h.registry.ListUsers(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *UsersHandler) Get(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)

	defer cancel()

	u, err := h.registry.GetUser(cctx, ctx.Param("id"))

	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not fetch user")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": u})
}

func (h *UsersHandler) Update(ctx *gin.Context) {
	var req UpdateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 5*time.Second)

	defer cancel()

	u, err := h.registry.UpdateUser(cctx, ctx.Param("id"), user.UpdateRequest{
		FullName: req.FullName,
		RoleID:   req.RoleID,
		IsActive: req.IsActive,
	}, actorFrom(ctx), ctx.ClientIP())

	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrNotFound):
			RespondNotFound(ctx, "User not found")
		case errors.Is(err, accounts.ErrValidation):
			RespondBadRequest(ctx, "Invalid user payload", nil)
		default:
			RespondInternal(ctx, "Could not update user")
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": u})
}

func (h *UsersHandler) Delete(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 5*time.Second)

	defer cancel()

	if err := h.registry.DeleteUser(cctx, ctx.Param("id"), actorFrom(ctx), ctx.ClientIP()); err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not delete user")
		return
	}

	ctx.Status(http.StatusNoContent)
}

// Unlock clears the lock only; the failed-attempt counter survives until an
// explicit reset.
func (h *UsersHandler) Unlock(ctx *gin.Context) {
	h.simpleAction(ctx, h.registry.Unlock)
}

func (h *UsersHandler) Lock(ctx *gin.Context) {
	h.simpleAction(ctx, h.registry.Lock)
}

func (h *UsersHandler) ResetAttempts(ctx *gin.Context) {
	h.simpleAction(ctx, h.registry.ResetAttempts)
}

func (h *UsersHandler) ForcePasswordChange(ctx *gin.Context) {
	h.simpleAction(ctx, h.registry.ForcePasswordChange)
}

func (h *UsersHandler) simpleAction(ctx *gin.Context, fn func(ctx context.Context, id string, actorID *string, ip string) error) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 5*time.Second)

	defer cancel()

	if err := fn(cctx, ctx.Param("id"), actorFrom(ctx), ctx.ClientIP()); err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not update account state")
		return
	}

	ctx.Status(http.StatusNoContent)
}

// InitiateReset mints a single-use reset token for the user and queues the
// notification email. The plaintext token leaves the system only inside the
// reset link.
func (h *UsersHandler) InitiateReset(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 5*time.Second)

	defer cancel()

	actorID := actorFrom(ctx)

	issued, err := h.resets.IssueToken(cctx, ctx.Param("id"), actorID, ctx.ClientIP())

	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not issue reset token")
		return
	}

	resetURL := h.baseURL + "/reset-password?token=" + url.QueryEscape(issued.Token)

	requestedBy := ""
	if actorID != nil {
		requestedBy = *actorID
	}

	payload, err := jobs.PasswordResetEmailPayload{
		Email:       issued.User.Email,
		FullName:    issued.User.FullName,
		ResetURL:    resetURL,
		ExpiresAt:   issued.ExpiresAt,
		RequestedBy: requestedBy,
		RequestID:   requestIDFrom(ctx),
	}.JSON()

	if err != nil {
		RespondInternal(ctx, "Could not queue reset email")
		return
	}

	if _, err := h.jobs.Create(cctx, job.CreateRequest{
		Type:    jobs.TypePasswordResetEmail,
		Payload: payload,
	}); err != nil {
		RespondInternal(ctx, "Could not queue reset email")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"resetUrl":  resetURL,
		"expiresAt": issued.ExpiresAt,
	})
}
