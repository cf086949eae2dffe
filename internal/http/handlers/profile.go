package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/fellowship/internal/auth"
	"github.com/geocoder89/fellowship/internal/config"
	"github.com/geocoder89/fellowship/internal/domain/profile"
	"github.com/gin-gonic/gin"
)

// APIGate is the handler-side access check; *access.Gate implements it.
type APIGate interface {
	RequireAPI(c *gin.Context) (*auth.User, bool)
	RequireRoleAPI(c *gin.Context, roles ...profile.Role) (*auth.User, profile.Role, bool)
}

// SelfProfileStore must be backed by the session DB: it only ever sees the caller's row.
type SelfProfileStore interface {
	GetByID(ctx context.Context, id string) (profile.Profile, error)
	UpdateSelf(ctx context.Context, id string, req profile.UpdateSelfRequest) (profile.Profile, error)
}

type ProfileHandler struct {
	gate     APIGate
	profiles SelfProfileStore
	log      *slog.Logger
}

func NewProfileHandler(gate APIGate, profiles SelfProfileStore, log *slog.Logger) *ProfileHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ProfileHandler{gate: gate, profiles: profiles, log: log}
}

func (h *ProfileHandler) GetProfile(ctx *gin.Context) {
	u, ok := h.gate.RequireAPI(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	p, err := h.profiles.GetByID(cctx, u.ID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			RespondNotFound(ctx, "Profile not found")
			return
		}
		h.log.ErrorContext(ctx.Request.Context(), "get profile failed", "user_id", u.ID, "err", err)
		RespondInternal(ctx, "Could not fetch profile")
		return
	}

	ctx.JSON(http.StatusOK, p)
}

func (h *ProfileHandler) UpdateProfile(ctx *gin.Context) {
	u, ok := h.gate.RequireAPI(ctx)
	if !ok {
		return
	}

	var req profile.UpdateSelfRequest
	if !BindJSON(ctx, &req) {
		return
	}

	if req.Empty() {
		RespondBadRequest(ctx, "Nothing to update", nil)
		return
	}
	req.Nickname = sanitizeOptional(req.Nickname)

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	p, err := h.profiles.UpdateSelf(cctx, u.ID, req)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			RespondNotFound(ctx, "Profile not found")
			return
		}
		h.log.ErrorContext(ctx.Request.Context(), "update profile failed", "user_id", u.ID, "err", err)
		RespondInternal(ctx, "Could not update profile")
		return
	}

	ctx.JSON(http.StatusOK, p)
}
