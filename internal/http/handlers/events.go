package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hcsem/communityhub/internal/config"
	"github.com/hcsem/communityhub/internal/domain/event"
	"github.com/hcsem/communityhub/internal/repo/postgres"
)

type EventStore interface {
	Create(ctx context.Context, req event.CreateRequest) (event.Event, error)
	GetByID(ctx context.Context, id string) (event.Event, error)
	GetBySlug(ctx context.Context, slug string) (event.Event, error)
	List(ctx context.Context, filter event.ListFilter) ([]event.Event, int, error)
	Update(ctx context.Context, id string, req event.UpdateRequest) (event.Event, error)
	Delete(ctx context.Context, id string) error
}

type EventsHandler struct {
	store EventStore
}

func NewEventsHandler(store EventStore) *EventsHandler {
	return &EventsHandler{store: store}
}

func intQuery(ctx *gin.Context, name string, fallback int) int {
	raw := ctx.Query(name)

	if raw == "" {
		return fallback
	}

	n, err := strconv.Atoi(raw)

	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func timeQuery(ctx *gin.Context, name string) *time.Time {
	raw := ctx.Query(name)

	if raw == "" {
		return nil
	}

	t, err := time.Parse(time.RFC3339, raw)

	if err != nil {
		return nil
	}
	return &t
}

// ListPublic never returns hidden events regardless of query params.
func (h *EventsHandler) ListPublic(ctx *gin.Context) {
	h.list(ctx, false)
}

func (h *EventsHandler) ListAdmin(ctx *gin.Context) {
	h.list(ctx, true)
}

func (h *EventsHandler) list(ctx *gin.Context, includeHidden bool) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 5*time.Second)

	defer cancel()

	filter := event.ListFilter{
		IncludeHidden: includeHidden,
		From:          timeQuery(ctx, "from"),
		To:            timeQuery(ctx, "to"),
		Limit:         intQuery(ctx, "limit", 0),
		Offset:        intQuery(ctx, "offset", 0),
	}

	events, total, err := h.store.List(cctx, filter)

	if err != nil {
		RespondInternal(ctx, "Could not list events")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"events": events, "total": total})
}

func (h *EventsHandler) GetBySlug(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)

	defer cancel()

	ev, err := h.store.GetBySlug(cctx, ctx.Param("slug"))

	if err != nil {
		if errors.Is(err, postgres.ErrEventNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		RespondInternal(ctx, "Could not fetch event")
		return
	}

	// hidden events are invisible on the public route
	if ev.IsHidden {
		RespondNotFound(ctx, "Event not found")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"event": ev})
}

func (h *EventsHandler) Create(ctx *gin.Context) {
	var req event.CreateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 5*time.Second)

	defer cancel()

	ev, err := h.store.Create(cctx, req)

	if err != nil {
		if errors.Is(err, postgres.ErrSlugTaken) {
			RespondConflict(ctx, "slug_taken", "Slug is already in use.")
			return
		}
		RespondInternal(ctx, "Could not create event")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"event": ev})
}

func (h *EventsHandler) Update(ctx *gin.Context) {
	var req event.UpdateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 5*time.Second)

	defer cancel()

	ev, err := h.store.Update(cctx, ctx.Param("id"), req)

	if err != nil {
		switch {
		case errors.Is(err, postgres.ErrEventNotFound):
			RespondNotFound(ctx, "Event not found")
		case errors.Is(err, postgres.ErrSlugTaken):
			RespondConflict(ctx, "slug_taken", "Slug is already in use.")
		default:
			RespondInternal(ctx, "Could not update event")
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"event": ev})
}

func (h *EventsHandler) Delete(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 5*time.Second)

	defer cancel()

	if err := h.store.Delete(cctx, ctx.Param("id")); err != nil {
		if errors.Is(err, postgres.ErrEventNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		RespondInternal(ctx, "Could not delete event")
		return
	}

	ctx.Status(http.StatusNoContent)
}
