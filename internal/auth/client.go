package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/geocoder89/fellowship/internal/domain/user"
	"github.com/geocoder89/fellowship/internal/observability"
	"github.com/geocoder89/fellowship/internal/session"
	"github.com/gin-gonic/gin"
)

// Provider is the auth backend a Client talks to. *Service implements it.
type Provider interface {
	CookieNames() CookieNames
	Verify(ctx context.Context, accessToken string) (User, time.Time, error)
	Refresh(ctx context.Context, refreshToken string) (Session, error)
	SignIn(ctx context.Context, email, password string) (Session, error)
	SignUp(ctx context.Context, req user.SignUpRequest) (Session, error)
	Revoke(ctx context.Context, refreshToken string) error
}

type FactoryOptions struct {
	// RefreshThreshold rotates the session when the access token has less than this left.
	RefreshThreshold time.Duration
	Cookie           session.Options
	Prom             *observability.Prom
	Log              *slog.Logger
}

// Factory builds request-scoped clients. The factory itself holds no per-user state
// and is shared by every request.
type Factory struct {
	provider Provider
	opts     FactoryOptions
}

func NewFactory(provider Provider, opts FactoryOptions) *Factory {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	return &Factory{provider: provider, opts: opts}
}

func (f *Factory) ForRequest(store session.Store) *Client {
	return &Client{
		provider:  f.provider,
		store:     store,
		threshold: f.opts.RefreshThreshold,
		prom:      f.opts.Prom,
		log:       f.opts.Log,
	}
}

// ForGin binds a new client to the cookie jar of c.
func (f *Factory) ForGin(c *gin.Context) *Client {
	return f.ForRequest(session.FromGin(c, f.opts.Cookie))
}

// Client is bound to one request's cookies. Do not share it across requests.
type Client struct {
	provider  Provider
	store     session.Store
	threshold time.Duration
	prom      *observability.Prom
	log       *slog.Logger

	resolved bool
	user     *User
}

// GetUser returns the session's user, rotating tokens first when the access token is
// close to expiry. A missing or invalid session yields (nil, nil); only failures of the
// auth backend itself are returned as errors.
func (c *Client) GetUser(ctx context.Context) (*User, error) {
	if c.resolved {
		return c.user, nil
	}

	u, err := c.load(ctx)
	if err != nil {
		return nil, err
	}

	c.resolved = true
	c.user = u
	return u, nil
}

func (c *Client) load(ctx context.Context) (*User, error) {
	names := c.provider.CookieNames()

	var current *User

	if access, ok := c.store.Get(names.Access); ok && access != "" {
		u, exp, err := c.provider.Verify(ctx, access)
		switch {
		case err == nil:
			if time.Until(exp) > c.threshold {
				return &u, nil
			}
			current = &u
		case !errors.Is(err, ErrSessionInvalid):
			// the session store could not be asked; do not guess
			return nil, err
		}
	}

	refresh, ok := c.store.Get(names.Refresh)
	if !ok || refresh == "" {
		return current, nil
	}

	sess, err := c.provider.Refresh(ctx, refresh)
	if err != nil {
		if errors.Is(err, ErrSessionInvalid) {
			c.prom.ObserveRefresh("rejected")
			// A concurrent request may already hold the rotated cookies, so leave the jar alone.
			return current, nil
		}

		c.prom.ObserveRefresh("error")
		if current != nil {
			c.log.WarnContext(ctx, "session refresh failed, using current access token", "err", err)
			return current, nil
		}
		return nil, err
	}

	c.prom.ObserveRefresh("rotated")
	c.writeSession(sess)

	u := sess.User
	return &u, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (Session, error) {
	sess, err := c.provider.SignIn(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	c.adopt(sess)
	return sess, nil
}

func (c *Client) SignUp(ctx context.Context, req user.SignUpRequest) (Session, error) {
	sess, err := c.provider.SignUp(ctx, req)
	if err != nil {
		return Session{}, err
	}
	c.adopt(sess)
	return sess, nil
}

// SignOut revokes the session server side and clears the cookies. The cookies are
// cleared even when revocation fails; the error is returned for logging.
func (c *Client) SignOut(ctx context.Context) error {
	var err error

	if refresh, ok := c.store.Get(c.provider.CookieNames().Refresh); ok && refresh != "" {
		err = c.provider.Revoke(ctx, refresh)
	}

	c.clearSession()
	c.resolved = true
	c.user = nil

	return err
}

func (c *Client) adopt(sess Session) {
	c.writeSession(sess)
	u := sess.User
	c.resolved = true
	c.user = &u
}

func (c *Client) writeSession(sess Session) {
	names := c.provider.CookieNames()
	maxAge := int(time.Until(sess.RefreshExpiresAt).Seconds())

	c.store.SetAll([]session.Cookie{
		{Name: names.Access, Value: sess.AccessToken, Options: session.Options{MaxAge: maxAge}},
		{Name: names.Refresh, Value: sess.RefreshToken, Options: session.Options{MaxAge: maxAge}},
	})
}

func (c *Client) clearSession() {
	names := c.provider.CookieNames()

	c.store.SetAll([]session.Cookie{
		{Name: names.Access, Value: "", Options: session.Options{MaxAge: -1}},
		{Name: names.Refresh, Value: "", Options: session.Options{MaxAge: -1}},
	})
}
