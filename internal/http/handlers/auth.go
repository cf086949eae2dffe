package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/fellowship/internal/auth"
	"github.com/geocoder89/fellowship/internal/config"
	"github.com/geocoder89/fellowship/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// AuthHandler signs members in and out. Every call goes through a client bound to the
// request's cookies, so the session cookies are written on the same response.
type AuthHandler struct {
	clients *auth.Factory
	log     *slog.Logger
}

func NewAuthHandler(clients *auth.Factory, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuthHandler{clients: clients, log: log}
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.SignUpRequest

	if !BindJSON(ctx, &req) {
		return
	}
	req.Nickname = sanitizeOptional(req.Nickname)

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	sess, err := h.clients.ForGin(ctx).SignUp(cctx, req)
	if err != nil {
		if errors.Is(err, user.ErrEmailAlreadyUsed) {
			RespondConflict(ctx, "email_taken", "Email is already in use.")
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "sign up failed", "err", err)
		RespondInternal(ctx, "Could not create account")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message":     "Account created",
		"accessToken": sess.AccessToken,
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.SignInRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// short timeout for DB lookup
	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	sess, err := h.clients.ForGin(ctx).SignIn(cctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			RespondError(ctx, http.StatusUnauthorized, "invalid_credentials", "Email or password is incorrect.", nil)
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "sign in failed", "err", err)
		RespondInternal(ctx, "Could not sign in")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":     "Signed in",
		"accessToken": sess.AccessToken,
	})
}

// Logout always clears the session cookies; a failed revocation is only logged.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	h.signOut(ctx)

	ctx.JSON(http.StatusOK, gin.H{
		"message":  "Signed out",
		"redirect": "/",
	})
}

// LogoutPage is the form-post flavour used by the site header.
func (h *AuthHandler) LogoutPage(ctx *gin.Context) {
	h.signOut(ctx)
	ctx.Redirect(http.StatusSeeOther, "/")
}

func (h *AuthHandler) signOut(ctx *gin.Context) {
	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.clients.ForGin(ctx).SignOut(cctx); err != nil {
		h.log.WarnContext(ctx.Request.Context(), "session revoke failed", "err", err)
	}
}
