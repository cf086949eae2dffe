package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/fellowship/internal/config"
	"github.com/geocoder89/fellowship/internal/domain/contact"
	"github.com/geocoder89/fellowship/internal/utils"
	"github.com/gin-gonic/gin"
)

const (
	defaultContactsLimit = 50
	maxContactsLimit     = 200
)

type ContactsStore interface {
	Create(ctx context.Context, req contact.CreateRequest) (contact.Submission, error)
	List(ctx context.Context, f contact.ListFilter) ([]contact.Submission, error)
	MarkRead(ctx context.Context, id string) error
}

type ContactsHandler struct {
	repo ContactsStore
	log  *slog.Logger
}

func NewContactsHandler(repo ContactsStore, log *slog.Logger) *ContactsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ContactsHandler{repo: repo, log: log}
}

// Submit stores a visitor's contact form. Input is reduced to plain text first.
func (h *ContactsHandler) Submit(ctx *gin.Context) {
	var req contact.CreateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	req = sanitizeContact(req)
	if req.Message == "" || req.FirstName == "" || req.LastName == "" {
		RespondBadRequest(ctx, "Invalid request body", gin.H{"reason": "fields are empty after removing markup"})
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	s, err := h.repo.Create(cctx, req)
	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "store contact submission failed", "err", err)
		RespondInternal(ctx, "Could not send message")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Thank you, we will be in touch",
		"id":      s.ID,
	})
}

func (h *ContactsHandler) List(ctx *gin.Context) {
	f := contact.ListFilter{Limit: defaultContactsLimit}

	if raw := ctx.Query("unread"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			RespondBadRequest(ctx, "Invalid unread flag", gin.H{"unread": raw})
			return
		}
		f.UnreadOnly = v
	}

	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			RespondBadRequest(ctx, "Invalid limit", gin.H{"limit": raw})
			return
		}
		f.Limit = min(n, maxContactsLimit)
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	items, err := h.repo.List(cctx, f)
	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "list contact submissions failed", "err", err)
		RespondInternal(ctx, "Could not list messages")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

func (h *ContactsHandler) MarkRead(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Message not found")
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	err := h.repo.MarkRead(cctx, id)
	if err != nil {
		if errors.Is(err, contact.ErrNotFound) {
			RespondNotFound(ctx, "Message not found")
			return
		}
		h.log.ErrorContext(ctx.Request.Context(), "mark contact read failed", "id", id, "err", err)
		RespondInternal(ctx, "Could not update message")
		return
	}

	RespondMessage(ctx, http.StatusOK, "Marked as read")
}
