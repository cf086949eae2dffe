package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/fellowship/internal/config"
	"github.com/geocoder89/fellowship/internal/domain/profile"
	"github.com/geocoder89/fellowship/internal/domain/settings"
	"github.com/geocoder89/fellowship/internal/security"
	"github.com/gin-gonic/gin"
)

// AdminSettingsStore rotates the singleton admin password row under a row lock.
type AdminSettingsStore interface {
	Rotate(ctx context.Context, decide func(current settings.AdminSettings) (string, error)) error
}

type AdminSettingsHandler struct {
	gate  APIGate
	store AdminSettingsStore
	log   *slog.Logger
}

func NewAdminSettingsHandler(gate APIGate, store AdminSettingsStore, log *slog.Logger) *AdminSettingsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AdminSettingsHandler{gate: gate, store: store, log: log}
}

// SetAdminPassword sets the shared admin delete password. The first set needs no
// current password; later ones do. Current and historical passwords cannot be reused.
func (h *AdminSettingsHandler) SetAdminPassword(ctx *gin.Context) {
	admin, _, ok := h.gate.RequireRoleAPI(ctx, profile.RoleAdmin)
	if !ok {
		return
	}

	var req settings.SetPasswordRequest
	if !BindJSON(ctx, &req) {
		return
	}

	next := security.SecretDigest(req.NewPassword)

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	err := h.store.Rotate(cctx, func(current settings.AdminSettings) (string, error) {
		if current.HasPassword() {
			if req.CurrentAdminPassword == nil ||
				!security.DigestMatches(*req.CurrentAdminPassword, current.DeletePasswordHash) {
				return "", settings.ErrPasswordMismatch
			}
		}

		if current.Used(next) {
			return "", settings.ErrPasswordReused
		}

		return next, nil
	})

	if err != nil {
		switch {
		case errors.Is(err, settings.ErrPasswordMismatch):
			h.log.WarnContext(ctx.Request.Context(), "admin password change refused: current password mismatch", "actor_id", admin.ID)
			RespondForbidden(ctx, "Current admin password is incorrect")
		case errors.Is(err, settings.ErrPasswordReused):
			RespondBadRequest(ctx, "This password was used before; choose a new one", nil)
		default:
			h.log.ErrorContext(ctx.Request.Context(), "admin password change failed", "err", err)
			RespondInternal(ctx, "Could not set admin password")
		}
		return
	}

	h.log.InfoContext(ctx.Request.Context(), "admin password set", "actor_id", admin.ID)
	RespondMessage(ctx, http.StatusOK, "Admin password updated")
}
