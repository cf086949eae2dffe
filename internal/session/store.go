// Package session adapts a request's cookie jar into the name/value store the
// auth client reads and writes session tokens through.
//
// A store is bound to exactly one request. Build a new one per request and
// never keep it beyond the handler that created it.
package session

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
)

// overlayKey holds cookies written earlier in the same request, so a refresh done
// by middleware is visible to stores built later by handlers.
const overlayKey = "session.cookie_overlay"

type Options struct {
	Path     string
	Domain   string
	MaxAge   int
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
}

type Cookie struct {
	Name    string
	Value   string
	Options Options
}

// Expired reports whether the cookie instructs the browser to drop it.
func (c Cookie) Expired() bool {
	return c.Options.MaxAge < 0
}

type Store interface {
	Get(name string) (string, bool)
	GetAll() []Cookie
	// SetAll is best effort. Cookies that cannot be written are skipped silently.
	SetAll(cookies []Cookie)
}

// DefaultOptions are applied to every cookie written through a GinStore.
func DefaultOptions(secure bool) Options {
	return Options{
		Path:     "/",
		Secure:   secure,
		HTTPOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

type GinStore struct {
	c        *gin.Context
	defaults Options
}

func FromGin(c *gin.Context, defaults Options) *GinStore {
	return &GinStore{c: c, defaults: defaults}
}

func (s *GinStore) overlay() map[string]Cookie {
	if v, ok := s.c.Get(overlayKey); ok {
		if m, ok := v.(map[string]Cookie); ok {
			return m
		}
	}
	m := make(map[string]Cookie)
	s.c.Set(overlayKey, m)
	return m
}

func (s *GinStore) Get(name string) (string, bool) {
	for _, ck := range s.GetAll() {
		if ck.Name == name {
			return ck.Value, true
		}
	}
	return "", false
}

func (s *GinStore) GetAll() []Cookie {
	merged := make(map[string]Cookie)

	if s.c.Request != nil {
		for _, rc := range s.c.Request.Cookies() {
			merged[rc.Name] = Cookie{Name: rc.Name, Value: rc.Value}
		}
	}

	for name, ck := range s.overlay() {
		if ck.Expired() || ck.Value == "" {
			delete(merged, name)
			continue
		}
		merged[name] = ck
	}

	out := make([]Cookie, 0, len(merged))
	for _, ck := range merged {
		out = append(out, ck)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

func (s *GinStore) SetAll(cookies []Cookie) {
	if len(cookies) == 0 {
		return
	}

	// headers are gone once the body started; the write cannot land anymore
	if s.c.Writer.Written() {
		slog.Default().DebugContext(s.c.Request.Context(), "session cookies skipped, response already written",
			"count", len(cookies))
		return
	}

	ov := s.overlay()

	for _, ck := range cookies {
		opts := s.merge(ck.Options)

		hc := &http.Cookie{
			Name:     ck.Name,
			Value:    ck.Value,
			Path:     opts.Path,
			Domain:   opts.Domain,
			MaxAge:   opts.MaxAge,
			Secure:   opts.Secure,
			HttpOnly: opts.HTTPOnly,
			SameSite: opts.SameSite,
		}

		if err := hc.Valid(); err != nil {
			slog.Default().DebugContext(s.c.Request.Context(), "session cookie skipped", "name", ck.Name, "err", err)
			continue
		}

		http.SetCookie(s.c.Writer, hc)
		ov[ck.Name] = Cookie{Name: ck.Name, Value: ck.Value, Options: opts}
	}
}

func (s *GinStore) merge(o Options) Options {
	out := o
	if out.Path == "" {
		out.Path = s.defaults.Path
	}
	if out.Domain == "" {
		out.Domain = s.defaults.Domain
	}
	if out.SameSite == 0 {
		out.SameSite = s.defaults.SameSite
	}
	out.Secure = out.Secure || s.defaults.Secure
	out.HTTPOnly = out.HTTPOnly || s.defaults.HTTPOnly
	return out
}
