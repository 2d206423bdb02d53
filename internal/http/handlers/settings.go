package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hcsem/communityhub/internal/audit"
	"github.com/hcsem/communityhub/internal/config"
	"github.com/hcsem/communityhub/internal/domain/auditlog"
	"github.com/hcsem/communityhub/internal/domain/settings"
	"github.com/hcsem/communityhub/internal/http/middlewares"
)

type SettingsStore interface {
	Get(ctx context.Context) (settings.SiteSettings, error)
	Update(ctx context.Context, req settings.UpdateRequest, updatedBy string) (settings.SiteSettings, error)
}

type SettingsHandler struct {
	store SettingsStore
	audit *audit.Recorder
}

func NewSettingsHandler(store SettingsStore, rec *audit.Recorder) *SettingsHandler {
	return &SettingsHandler{store: store, audit: rec}
}

func (h *SettingsHandler) Get(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)

	defer cancel()

	s, err := h.store.Get(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not fetch site settings")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"settings": s})
}

func (h *SettingsHandler) Update(ctx *gin.Context) {
	id, ok := middlewares.IdentityFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "Missing session identity")
		return
	}

	var req settings.UpdateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 5*time.Second)

	defer cancel()

	s, err := h.store.Update(cctx, req, id.User.ID)

	if err != nil {
		RespondInternal(ctx, "Could not update site settings")
		return
	}

	h.audit.Record(cctx, &id.User.ID, auditlog.ActionSettingsUpdated, nil, ctx.ClientIP())

	ctx.JSON(http.StatusOK, gin.H{"settings": s})
}
