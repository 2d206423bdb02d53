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
)

type RoleRegistry interface {
	CreateRole(ctx context.Context, req role.CreateRequest, actorID *string, ip string) (role.Role, error)
	GetRole(ctx context.Context, id string) (role.Role, error)
	ListRoles(ctx context.Context) ([]role.Role, error)
	UpdateRole(ctx context.Context, id string, in accounts.UpdateRoleInput, actorID *string, ip string) (role.Role, error)
	DeleteRole(ctx context.Context, id string, actorID *string, ip string) error
}

type RolesHandler struct {
	registry RoleRegistry
}

func NewRolesHandler(registry RoleRegistry) *RolesHandler {
	return &RolesHandler{registry: registry}
}

type CreateRoleRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
	IsSuperRole bool     `json:"isSuperRole"`
}

type UpdateRoleRequest struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Permissions *[]string `json:"permissions"`
	IsSuperRole *bool     `json:"isSuperRole"`
}

func roleActor(ctx *gin.Context) *string {
	id, ok := middlewares.IdentityFromContext(ctx)

	if !ok {
		return nil
	}
	return &id.User.ID
}

// Permissions lists the fixed vocabulary so admin UIs never hardcode it.
func (h *RolesHandler) Permissions(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"permissions": role.All})
}

func (h *RolesHandler) Create(ctx *gin.Context) {
	var req CreateRoleRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 5*time.Second)

	defer cancel()

	ro, err := h.registry.CreateRole(cctx, role.CreateRequest{
		Name:        req.Name,
		Description: req.Description,
		Permissions: req.Permissions,
		IsSuperRole: req.IsSuperRole,
	}, roleActor(ctx), ctx.ClientIP())

	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrDuplicateRoleName):
			RespondConflict(ctx, "role_name_taken", "Role name is already in use.")
		case errors.Is(err, accounts.ErrValidation):
			RespondBadRequest(ctx, "Invalid role payload", nil)
		default:
			RespondInternal(ctx, "Could not create role")
		}
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"role": ro})
}

func (h *RolesHandler) List(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 5*time.Second)

	defer cancel()

	roles, err := h.registry.ListRoles(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list roles")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"roles": roles})
}

func (h *RolesHandler) Get(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)

	defer cancel()

	ro, err := h.registry.GetRole(cctx, ctx.Param("id"))

	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			RespondNotFound(ctx, "Role not found")
			return
		}
		RespondInternal(ctx, "Could not fetch role")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"role": ro})
}

func (h *RolesHandler) Update(ctx *gin.Context) {
	var req UpdateRoleRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 5*time.Second)

	defer cancel()

	ro, err := h.registry.UpdateRole(cctx, ctx.Param("id"), accounts.UpdateRoleInput{
		Name:        req.Name,
		Description: req.Description,
		Permissions: req.Permissions,
		IsSuperRole: req.IsSuperRole,
	}, roleActor(ctx), ctx.ClientIP())

	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrNotFound):
			RespondNotFound(ctx, "Role not found")
		case errors.Is(err, accounts.ErrDuplicateRoleName):
			RespondConflict(ctx, "role_name_taken", "Role name is already in use.")
		case errors.Is(err, accounts.ErrValidation):
			RespondBadRequest(ctx, "Invalid role payload", nil)
		default:
			RespondInternal(ctx, "Could not update role")
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"role": ro})
}

// Delete refuses while users still hold the role.
func (h *RolesHandler) Delete(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 5*time.Second)

	defer cancel()

	err := h.registry.DeleteRole(cctx, ctx.Param("id"), roleActor(ctx), ctx.ClientIP())

	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrNotFound):
			RespondNotFound(ctx, "Role not found")
		case errors.Is(err, accounts.ErrRoleInUse):
			RespondConflict(ctx, "role_in_use", "Role is still assigned to users.")
		default:
			RespondInternal(ctx, "Could not delete role")
		}
		return
	}

	ctx.Status(http.StatusNoContent)
}
