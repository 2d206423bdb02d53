package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hcsem/communityhub/internal/config"
	"github.com/hcsem/communityhub/internal/domain/blog"
	"github.com/hcsem/communityhub/internal/http/middlewares"
	"github.com/hcsem/communityhub/internal/repo/postgres"
)

type BlogStore interface {
	Create(ctx context.Context, b blog.Blog) error
	GetByID(ctx context.Context, id string) (blog.Blog, error)
	GetBySlug(ctx context.Context, slug string) (blog.Blog, error)
	List(ctx context.Context, filter blog.ListFilter) ([]blog.Blog, int, error)
	Update(ctx context.Context, id string, req blog.UpdateRequest) (blog.Blog, error)
	Delete(ctx context.Context, id string) error
}

type BlogsHandler struct {
	store BlogStore
}

func NewBlogsHandler(store BlogStore) *BlogsHandler {
	return &BlogsHandler{store: store}
}

func (h *BlogsHandler) ListPublic(ctx *gin.Context) {
	h.list(ctx, false)
}

func (h *BlogsHandler) ListAdmin(ctx *gin.Context) {
	h.list(ctx, true)
}

func (h *BlogsHandler) list(ctx *gin.Context, includeHidden bool) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 5*time.Second)

	defer cancel()

	filter := blog.ListFilter{
		IncludeHidden: includeHidden,
		Limit:         intQuery(ctx, "limit", 0),
		Offset:        intQuery(ctx, "offset", 0),
	}

	if tag := ctx.Query("tag"); tag != "" {
		filter.Tag = &tag
	}

	blogs, total, err := h.store.List(cctx, filter)

	if err != nil {
		RespondInternal(ctx, "Could not list blog posts")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"blogs": blogs, "total": total})
}

func (h *BlogsHandler) GetBySlug(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)

	defer cancel()

	b, err := h.store.GetBySlug(cctx, ctx.Param("slug"))

	if err != nil {
		if errors.Is(err, postgres.ErrBlogNotFound) {
			RespondNotFound(ctx, "Blog post not found")
			return
		}
		RespondInternal(ctx, "Could not fetch blog post")
		return
	}

	// drafts stay invisible on the public route
	if b.IsHidden {
		RespondNotFound(ctx, "Blog post not found")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"blog": b})
}

func (h *BlogsHandler) Create(ctx *gin.Context) {
	var req blog.CreateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 5*time.Second)

	defer cancel()

	var authorID *string

	if id, ok := middlewares.IdentityFromContext(ctx); ok {
		authorID = &id.User.ID
	}

	b := blog.NewFromCreateRequest(req, authorID)

	if err := h.store.Create(cctx, b); err != nil {
		if errors.Is(err, postgres.ErrSlugTaken) {
			RespondConflict(ctx, "slug_taken", "Slug is already in use.")
			return
		}
		RespondInternal(ctx, "Could not create blog post")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"blog": b})
}

func (h *BlogsHandler) Update(ctx *gin.Context) {
	var req blog.UpdateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 5*time.Second)

	defer cancel()

	b, err := h.store.Update(cctx, ctx.Param("id"), req)

	if err != nil {
		switch {
		case errors.Is(err, postgres.ErrBlogNotFound):
			RespondNotFound(ctx, "Blog post not found")
		case errors.Is(err, postgres.ErrSlugTaken):
			RespondConflict(ctx, "slug_taken", "Slug is already in use.")
		default:
			RespondInternal(ctx, "Could not update blog post")
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"blog": b})
}

func (h *BlogsHandler) Delete(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 5*time.Second)

	defer cancel()

	if err := h.store.Delete(cctx, ctx.Param("id")); err != nil {
		if errors.Is(err, postgres.ErrBlogNotFound) {
			RespondNotFound(ctx, "Blog post not found")
			return
		}
		RespondInternal(ctx, "Could not delete blog post")
		return
	}

	ctx.Status(http.StatusNoContent)
}
