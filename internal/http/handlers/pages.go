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

// PageGate is the redirecting flavour of the access check.
type PageGate interface {
	Require(c *gin.Context) (*auth.User, bool)
	RequireRole(c *gin.Context, roles ...profile.Role) (*auth.User, profile.Role, bool)
}

type DashboardCounts interface {
	Count(ctx context.Context) (int, error)
}

type UnreadCounter interface {
	CountUnread(ctx context.Context) (int, error)
}

// PagesHandler serves the view models an external renderer turns into HTML.
type PagesHandler struct {
	gate     PageGate
	profiles SelfProfileStore
	users    DashboardCounts
	contacts UnreadCounter
	log      *slog.Logger
}

func NewPagesHandler(gate PageGate, profiles SelfProfileStore, users DashboardCounts, contacts UnreadCounter, log *slog.Logger) *PagesHandler {
	if log == nil {
		log = slog.Default()
	}
	return &PagesHandler{gate: gate, profiles: profiles, users: users, contacts: contacts, log: log}
}

type DashboardView struct {
	UserID         string       `json:"userId"`
	Email          string       `json:"email"`
	Role           profile.Role `json:"role"`
	UserCount      int          `json:"userCount"`
	UnreadContacts int          `json:"unreadContacts"`
}

func (h *PagesHandler) AdminDashboard(ctx *gin.Context) {
	u, role, ok := h.gate.RequireRole(ctx, profile.RoleAdmin)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	users, err := h.users.Count(cctx)
	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "dashboard user count failed", "err", err)
		RespondInternal(ctx, "Could not load dashboard")
		return
	}

	unread, err := h.contacts.CountUnread(cctx)
	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "dashboard unread count failed", "err", err)
		RespondInternal(ctx, "Could not load dashboard")
		return
	}

	ctx.JSON(http.StatusOK, DashboardView{
		UserID:         u.ID,
		Email:          u.Email,
		Role:           role,
		UserCount:      users,
		UnreadContacts: unread,
	})
}

type ProfileView struct {
	UserID  string           `json:"userId"`
	Email   string           `json:"email"`
	Profile *profile.Profile `json:"profile"`
}

// ProfilePage needs a session only. A user whose profile row is missing still gets a
// view, with a null profile.
func (h *PagesHandler) ProfilePage(ctx *gin.Context) {
	u, ok := h.gate.Require(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	view := ProfileView{UserID: u.ID, Email: u.Email}

	p, err := h.profiles.GetByID(cctx, u.ID)
	switch {
	case err == nil:
		view.Profile = &p
	case errors.Is(err, profile.ErrNotFound):
	default:
		h.log.ErrorContext(ctx.Request.Context(), "profile page lookup failed", "user_id", u.ID, "err", err)
		RespondInternal(ctx, "Could not load profile")
		return
	}

	ctx.JSON(http.StatusOK, view)
}
