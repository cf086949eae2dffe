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
	"github.com/geocoder89/fellowship/internal/domain/user"
	"github.com/geocoder89/fellowship/internal/security"
	"github.com/gin-gonic/gin"
)

// IdentityDeleter removes an auth identity with elevated rights.
type IdentityDeleter interface {
	DeleteIdentity(ctx context.Context, userID string) error
}

// ProfileAdminStore is backed by the service DB and bypasses row level security.
type ProfileAdminStore interface {
	SetRole(ctx context.Context, id string, role profile.Role) error
	SetCanComment(ctx context.Context, id string, canComment bool) error
}

type ProfileLister interface {
	List(ctx context.Context) ([]profile.Profile, error)
}

type AdminSettingsReader interface {
	Get(ctx context.Context) (settings.AdminSettings, error)
}

// AdminUsersHandler holds the privileged user mutations. Each one passes the admin
// gate with the caller's own session before a single elevated write.
type AdminUsersHandler struct {
	gate       APIGate
	identities IdentityDeleter
	profiles   ProfileAdminStore
	lister     ProfileLister
	settings   AdminSettingsReader
	// fallbackDigest is used for delete-user while no admin password was ever set.
	fallbackDigest string
	log            *slog.Logger
}

type AdminUsersDeps struct {
	Gate       APIGate
	Identities IdentityDeleter
	Profiles   ProfileAdminStore
	Lister     ProfileLister
	Settings   AdminSettingsReader
	// FallbackSecret is the plain ADMIN_DELETE_SECRET; empty disables the fallback.
	FallbackSecret string
	Log            *slog.Logger
}

func NewAdminUsersHandler(d AdminUsersDeps) *AdminUsersHandler {
	h := &AdminUsersHandler{
		gate:       d.Gate,
		identities: d.Identities,
		profiles:   d.Profiles,
		lister:     d.Lister,
		settings:   d.Settings,
		log:        d.Log,
	}
	if d.FallbackSecret != "" {
		h.fallbackDigest = security.SecretDigest(d.FallbackSecret)
	}
	if h.log == nil {
		h.log = slog.Default()
	}
	return h
}

func (h *AdminUsersHandler) ListUsers(ctx *gin.Context) {
	if _, _, ok := h.gate.RequireRoleAPI(ctx, profile.RoleAdmin); !ok {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	items, err := h.lister.List(cctx)
	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "list profiles failed", "err", err)
		RespondInternal(ctx, "Could not list users")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

// DeleteUser needs the shared admin delete password on top of the admin role. A wrong
// password never deletes anything, however often it is tried.
func (h *AdminUsersHandler) DeleteUser(ctx *gin.Context) {
	admin, _, ok := h.gate.RequireRoleAPI(ctx, profile.RoleAdmin)
	if !ok {
		return
	}

	var req profile.DeleteUserRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	stored, err := h.deleteDigest(cctx)
	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "load admin settings failed", "err", err)
		RespondInternal(ctx, "Could not delete user")
		return
	}

	if !security.DigestMatches(req.AdminPassword, stored) {
		h.log.WarnContext(ctx.Request.Context(), "delete user refused: admin password mismatch",
			"actor_id", admin.ID,
			"target_id", req.UserID,
		)
		RespondForbidden(ctx, "Invalid admin password")
		return
	}

	err = h.identities.DeleteIdentity(cctx, req.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		h.log.ErrorContext(ctx.Request.Context(), "delete user failed", "target_id", req.UserID, "err", err)
		RespondInternal(ctx, "Could not delete user")
		return
	}

	h.log.InfoContext(ctx.Request.Context(), "user deleted", "actor_id", admin.ID, "target_id", req.UserID)
	RespondMessage(ctx, http.StatusOK, "User deleted")
}

// deleteDigest returns the digest delete-user compares against; "" means no password
// is configured at all and every attempt is refused.
func (h *AdminUsersHandler) deleteDigest(ctx context.Context) (string, error) {
	s, err := h.settings.Get(ctx)
	if err != nil {
		if errors.Is(err, settings.ErrNotConfigured) {
			return h.fallbackDigest, nil
		}
		return "", err
	}

	if !s.HasPassword() {
		return h.fallbackDigest, nil
	}
	return s.DeletePasswordHash, nil
}

func (h *AdminUsersHandler) UpdateUserRole(ctx *gin.Context) {
	admin, _, ok := h.gate.RequireRoleAPI(ctx, profile.RoleAdmin)
	if !ok {
		return
	}

	var req profile.UpdateRoleRequest
	if !BindJSON(ctx, &req) {
		return
	}

	role, err := profile.ParseRole(req.Role)
	if err != nil {
		RespondBadRequest(ctx, "Invalid role", gin.H{"role": req.Role})
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	err = h.profiles.SetRole(cctx, req.UserID, role)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		h.log.ErrorContext(ctx.Request.Context(), "update role failed", "target_id", req.UserID, "err", err)
		RespondInternal(ctx, "Could not update role")
		return
	}

	h.log.InfoContext(ctx.Request.Context(), "user role updated",
		"actor_id", admin.ID,
		"target_id", req.UserID,
		"role", role.String(),
	)
	RespondMessage(ctx, http.StatusOK, "Role updated")
}

func (h *AdminUsersHandler) UpdateUserPermission(ctx *gin.Context) {
	admin, _, ok := h.gate.RequireRoleAPI(ctx, profile.RoleAdmin)
	if !ok {
		return
	}

	var req profile.UpdatePermissionRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	err := h.profiles.SetCanComment(cctx, req.UserID, *req.CanComment)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		h.log.ErrorContext(ctx.Request.Context(), "update permission failed", "target_id", req.UserID, "err", err)
		RespondInternal(ctx, "Could not update permission")
		return
	}

	h.log.InfoContext(ctx.Request.Context(), "user permission updated",
		"actor_id", admin.ID,
		"target_id", req.UserID,
		"can_comment", *req.CanComment,
	)
	RespondMessage(ctx, http.StatusOK, "Permission updated")
}
