package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hcsem/communityhub/internal/config"
	"github.com/hcsem/communityhub/internal/domain/auditlog"
)

type AuditLogStore interface {
	List(ctx context.Context, filter auditlog.ListFilter) ([]auditlog.Entry, int, error)
}

type AuditLogsHandler struct {
	store AuditLogStore
}

func NewAuditLogsHandler(store AuditLogStore) *AuditLogsHandler {
	return &AuditLogsHandler{store: store}
}

func (h *AuditLogsHandler) List(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 5*time.Second)

	defer cancel()

	filter := auditlog.ListFilter{
		Limit:  intQuery(ctx, "limit", 0),
		Offset: intQuery(ctx, "offset", 0),
	}

	if actor := ctx.Query("actorId"); actor != "" {
		filter.ActorID = &actor
	}

	if action := ctx.Query("action"); action != "" {
		filter.Action = &action
	}

	entries, total, err := h.store.List(cctx, filter)

	if err != nil {
		RespondInternal(ctx, "Could not list audit log entries")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"entries": entries, "total": total})
}
