package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/geocoder89/fellowship/internal/access"
	"github.com/geocoder89/fellowship/internal/cache"
	"github.com/geocoder89/fellowship/internal/config"
	"github.com/geocoder89/fellowship/internal/domain/content"
	"github.com/geocoder89/fellowship/internal/security"
	"github.com/gin-gonic/gin"
)

var pageNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,63}$`)

type ContentStore interface {
	ListPage(ctx context.Context, page string) ([]content.Item, error)
	Upsert(ctx context.Context, req content.UpsertRequest, updatedBy string) (content.Item, error)
}

type ContentHandler struct {
	repo  ContentStore
	pages cache.Pages
	log   *slog.Logger
}

func NewContentHandler(repo ContentStore, pages cache.Pages, log *slog.Logger) *ContentHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ContentHandler{repo: repo, pages: pages, log: log}
}

// GetPage serves the editable values of one public page, grouped by section.
func (h *ContentHandler) GetPage(ctx *gin.Context) {
	page := ctx.Param("page")
	if !pageNamePattern.MatchString(page) {
		RespondNotFound(ctx, "Page not found")
		return
	}

	items, ok := h.pages.Get(ctx.Request.Context(), page)
	if !ok {
		cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 2*time.Second)
		defer cancel()

		var err error
		items, err = h.repo.ListPage(cctx, page)
		if err != nil {
			h.log.ErrorContext(ctx.Request.Context(), "load page content failed", "page", page, "err", err)
			RespondInternal(ctx, "Could not load page content")
			return
		}
		h.pages.Set(ctx.Request.Context(), page, items)
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"page":     page,
		"sections": content.Sections(items),
		"items":    items,
	})
}

// Upsert is mounted behind the admin API gate.
func (h *ContentHandler) Upsert(ctx *gin.Context) {
	u, ok := access.UserFrom(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Authentication required")
		return
	}

	var req content.UpsertRequest
	if !BindJSON(ctx, &req) {
		return
	}

	if !pageNamePattern.MatchString(req.Page) {
		RespondBadRequest(ctx, "Invalid page name", gin.H{"page": req.Page})
		return
	}
	req.Value = security.SanitizeContent(req.Value)

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	item, err := h.repo.Upsert(cctx, req, u.ID)
	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "upsert content failed", "page", req.Page, "err", err)
		RespondInternal(ctx, "Could not save content")
		return
	}

	h.pages.Invalidate(ctx.Request.Context(), req.Page)

	ctx.JSON(http.StatusOK, item)
}
