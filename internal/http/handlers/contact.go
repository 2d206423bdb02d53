package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hcsem/communityhub/internal/config"
	"github.com/hcsem/communityhub/internal/domain/contactrequest"
	"github.com/hcsem/communityhub/internal/repo/postgres"
)

type ContactStore interface {
	Create(ctx context.Context, c contactrequest.ContactRequest) error
	GetByID(ctx context.Context, id string) (contactrequest.ContactRequest, error)
	List(ctx context.Context, filter contactrequest.ListFilter) ([]contactrequest.ContactRequest, int, error)
	SetStatus(ctx context.Context, id string, status contactrequest.Status) error
	SetDeleted(ctx context.Context, id string, deleted bool) error
}

type ContactHandler struct {
	store ContactStore
}

func NewContactHandler(store ContactStore) *ContactHandler {
	return &ContactHandler{store: store}
}

type SetStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending reviewed archived"`
}

// Submit is the public intake endpoint; it sits behind the shared rate
// limiter in the router.
func (h *ContactHandler) Submit(ctx *gin.Context) {
	var req contactrequest.CreateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 5*time.Second)

	defer cancel()

	c := contactrequest.NewFromCreateRequest(req)

	if err := h.store.Create(cctx, c); err != nil {
		RespondInternal(ctx, "Could not submit contact request")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"contactRequest": c})
}

func (h *ContactHandler) List(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 5*time.Second)

	defer cancel()

	filter := contactrequest.ListFilter{
		IncludeDeleted: ctx.Query("includeDeleted") == "true",
		Limit:          intQuery(ctx, "limit", 0),
		Offset:         intQuery(ctx, "offset", 0),
	}

	if raw := ctx.Query("status"); raw != "" {
		status := contactrequest.Status(raw)

		if !status.IsValid() {
			RespondBadRequest(ctx, "Unknown status filter", nil)
			return
		}
		filter.Status = &status
	}

	items, total, err := h.store.List(cctx, filter)

	if err != nil {
		RespondInternal(ctx, "Could not list contact requests")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"contactRequests": items, "total": total})
}

func (h *ContactHandler) Get(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)

	defer cancel()

	c, err := h.store.GetByID(cctx, ctx.Param("id"))

	if err != nil {
		if errors.Is(err, postgres.ErrContactRequestNotFound) {
			RespondNotFound(ctx, "Contact request not found")
			return
		}
		RespondInternal(ctx, "Could not fetch contact request")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"contactRequest": c})
}

// SetStatus also marks the request as read; triaging implies having seen it.
func (h *ContactHandler) SetStatus(ctx *gin.Context) {
	var req SetStatusRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 5*time.Second)

	defer cancel()

	if err := h.store.SetStatus(cctx, ctx.Param("id"), contactrequest.Status(req.Status)); err != nil {
		if errors.Is(err, postgres.ErrContactRequestNotFound) {
			RespondNotFound(ctx, "Contact request not found")
			return
		}
		RespondInternal(ctx, "Could not update contact request")
		return
	}

	ctx.Status(http.StatusNoContent)
}

// Delete is a soft delete; trashed requests stay queryable with
// includeDeleted until purged by hand.
func (h *ContactHandler) Delete(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 5*time.Second)

	defer cancel()

	if err := h.store.SetDeleted(cctx, ctx.Param("id"), true); err != nil {
		if errors.Is(err, postgres.ErrContactRequestNotFound) {
			RespondNotFound(ctx, "Contact request not found")
			return
		}
		RespondInternal(ctx, "Could not delete contact request")
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h *ContactHandler) Restore(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 5*time.Second)

	defer cancel()

	if err := h.store.SetDeleted(cctx, ctx.Param("id"), false); err != nil {
		if errors.Is(err, postgres.ErrContactRequestNotFound) {
			RespondNotFound(ctx, "Contact request not found")
			return
		}
		RespondInternal(ctx, "Could not restore contact request")
		return
	}

	ctx.Status(http.StatusNoContent)
}
