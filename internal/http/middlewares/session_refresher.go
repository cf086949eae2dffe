package middlewares

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/geocoder89/fellowship/internal/actorctx"
	"github.com/geocoder89/fellowship/internal/auth"
	"github.com/gin-gonic/gin"
)

// DefaultSkipPrefixes are paths that never carry a session worth refreshing.
var DefaultSkipPrefixes = []string{"/static/", "/favicon.ico", "/healthz", "/readyz", "/metrics"}

type SessionRefresherOptions struct {
	SkipPrefixes []string
	// AdminPrefixes are page paths that need a session before any handler runs.
	AdminPrefixes []string
	LoginPath     string
}

// SessionRefresher resolves the session on every dynamic request so that tokens close
// to expiry are rotated and the new cookies ride on this response. The user, if any,
// is stashed on the context and scopes row level security for the rest of the chain.
// Admin page paths without a user are redirected to the login page here; handler
// gates still run their own checks.
func SessionRefresher(clients *auth.Factory, opts SessionRefresherOptions, log *slog.Logger) gin.HandlerFunc {
	if opts.SkipPrefixes == nil {
		opts.SkipPrefixes = DefaultSkipPrefixes
	}
	if opts.LoginPath == "" {
		opts.LoginPath = "/login"
	}
	if log == nil {
		log = slog.Default()
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path

		if hasAnyPrefix(path, opts.SkipPrefixes) {
			c.Next()
			return
		}

		ctx := c.Request.Context()

		u, err := clients.ForGin(c).GetUser(ctx)
		if err != nil {
			// not fatal here; gates downstream decide and fail closed
			log.WarnContext(ctx, "session refresh failed", "path", path, "err", err)
			u = nil
		}

		if u != nil {
			c.Set(CtxSessionUser, u)
			c.Request = c.Request.WithContext(actorctx.WithUserID(ctx, u.ID))
		}

		if u == nil && isAdminPage(path, opts.AdminPrefixes) {
			c.Redirect(http.StatusSeeOther, opts.LoginPath)
			c.Abort()
			return
		}

		c.Next()
	}
}

// SessionUser returns the user the refresher resolved for this request.
func SessionUser(c *gin.Context) (*auth.User, bool) {
	v, ok := c.Get(CtxSessionUser)
	if !ok {
		return nil, false
	}
	u, ok := v.(*auth.User)
	return u, ok && u != nil
}

func isAdminPage(path string, prefixes []string) bool {
	for _, p := range prefixes {
		p = strings.TrimRight(p, "/")
		if p == "" {
			continue
		}
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
