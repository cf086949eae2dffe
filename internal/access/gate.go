package access

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/geocoder89/fellowship/internal/actorctx"
	"github.com/geocoder89/fellowship/internal/auth"
	"github.com/geocoder89/fellowship/internal/domain/profile"
	"github.com/geocoder89/fellowship/internal/observability"
	"github.com/gin-gonic/gin"
)

const (
	LoginPath = "/login"
	HomePath  = "/"

	ctxUserKey = "access.user"
	ctxRoleKey = "access.role"
)

type RoleResolver interface {
	Resolve(ctx context.Context, userID string) (profile.Role, error)
}

// Gate guards a handler. Page flavours redirect, API flavours answer with a JSON error.
// Every failure is fail closed: errors are logged and treated as not authorized, and
// a missing profile is indistinguishable from a wrong role.
type Gate struct {
	clients  *auth.Factory
	resolver RoleResolver
	prom     *observability.Prom
	log      *slog.Logger
}

func NewGate(clients *auth.Factory, resolver RoleResolver, prom *observability.Prom, log *slog.Logger) *Gate {
	if log == nil {
		log = slog.Default()
	}
	return &Gate{clients: clients, resolver: resolver, prom: prom, log: log}
}

// authenticate resolves the caller through a client bound to this request's cookies.
// On success the request context carries the actor for row level security.
func (g *Gate) authenticate(c *gin.Context) *auth.User {
	ctx := c.Request.Context()

	u, err := g.clients.ForGin(c).GetUser(ctx)
	if err != nil {
		g.log.ErrorContext(ctx, "access: session lookup failed", "path", c.Request.URL.Path, "err", err)
		return nil
	}
	if u == nil {
		return nil
	}

	c.Request = c.Request.WithContext(actorctx.WithUserID(ctx, u.ID))
	c.Set(ctxUserKey, u)

	return u
}

// authorize reports whether u holds one of roles. Resolver failures are logged and deny.
func (g *Gate) authorize(c *gin.Context, u *auth.User, roles []profile.Role) (profile.Role, bool) {
	ctx := c.Request.Context()

	role, err := g.resolver.Resolve(ctx, u.ID)
	if err != nil {
		g.log.WarnContext(ctx, "access: role resolution failed",
			"user_id", u.ID,
			"path", c.Request.URL.Path,
			"err", err,
		)
		return "", false
	}

	if !role.In(roles...) {
		g.log.InfoContext(ctx, "access: role not permitted",
			"user_id", u.ID,
			"role", role.String(),
			"path", c.Request.URL.Path,
		)
		return role, false
	}

	c.Set(ctxRoleKey, role)
	return role, true
}

// Require admits any authenticated user; otherwise it redirects to the login page.
func (g *Gate) Require(c *gin.Context) (*auth.User, bool) {
	u := g.authenticate(c)
	if u == nil {
		g.prom.ObserveAccess("unauthenticated")
		redirect(c, LoginPath)
		return nil, false
	}

	g.prom.ObserveAccess("allowed")
	return u, true
}

// RequireRole admits users holding one of roles. Unauthenticated callers go to the
// login page, everyone else who is refused goes home.
func (g *Gate) RequireRole(c *gin.Context, roles ...profile.Role) (*auth.User, profile.Role, bool) {
	u := g.authenticate(c)
	if u == nil {
		g.prom.ObserveAccess("unauthenticated")
		redirect(c, LoginPath)
		return nil, "", false
	}

	role, ok := g.authorize(c, u, roles)
	if !ok {
		g.prom.ObserveAccess("forbidden")
		redirect(c, HomePath)
		return nil, "", false
	}

	g.prom.ObserveAccess("allowed")
	return u, role, true
}

func (g *Gate) RequireAPI(c *gin.Context) (*auth.User, bool) {
	u := g.authenticate(c)
	if u == nil {
		g.prom.ObserveAccess("unauthenticated")
		abortJSON(c, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return nil, false
	}

	g.prom.ObserveAccess("allowed")
	return u, true
}

func (g *Gate) RequireRoleAPI(c *gin.Context, roles ...profile.Role) (*auth.User, profile.Role, bool) {
	u := g.authenticate(c)
	if u == nil {
		g.prom.ObserveAccess("unauthenticated")
		abortJSON(c, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return nil, "", false
	}

	role, ok := g.authorize(c, u, roles)
	if !ok {
		g.prom.ObserveAccess("forbidden")
		abortJSON(c, http.StatusForbidden, "forbidden", "Insufficient permissions")
		return nil, "", false
	}

	g.prom.ObserveAccess("allowed")
	return u, role, true
}

// APIRole is RequireRoleAPI as route group middleware.
func (g *Gate) APIRole(roles ...profile.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, _, ok := g.RequireRoleAPI(c, roles...); !ok {
			return
		}
		c.Next()
	}
}

// UserFrom returns the user a gate admitted earlier in the chain.
func UserFrom(c *gin.Context) (*auth.User, bool) {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*auth.User)
	return u, ok && u != nil
}

func RoleFrom(c *gin.Context) (profile.Role, bool) {
	v, ok := c.Get(ctxRoleKey)
	if !ok {
		return "", false
	}
	r, ok := v.(profile.Role)
	return r, ok
}

func redirect(c *gin.Context, to string) {
	c.Redirect(http.StatusSeeOther, to)
	c.Abort()
}

func abortJSON(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":      code,
			"message":   message,
			"requestId": c.GetString("request_id"),
		},
	})
}
