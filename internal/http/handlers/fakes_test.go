package handlers_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/fellowship/internal/access"
	"github.com/geocoder89/fellowship/internal/auth"
	"github.com/geocoder89/fellowship/internal/domain/profile"
	"github.com/geocoder89/fellowship/internal/domain/settings"
	"github.com/geocoder89/fellowship/internal/domain/user"
	"github.com/geocoder89/fellowship/internal/session"
)

const (
	adminID = "11111111-1111-4111-8111-111111111111"
	userID  = "22222222-2222-4222-8222-222222222222"
	childID = "33333333-3333-4333-8333-333333333333"
)

// tokenProvider accepts access tokens "tok:<user id>" and signs in anyone whose
// password is "correct-horse".
type tokenProvider struct {
	mu      sync.Mutex
	revoked []string
}

func (p *tokenProvider) CookieNames() auth.CookieNames {
	return auth.CookieNames{Access: "at", Refresh: "rt"}
}

func (p *tokenProvider) Verify(_ context.Context, access string) (auth.User, time.Time, error) {
	id, ok := strings.CutPrefix(access, "tok:")
	if !ok || id == "" {
		return auth.User{}, time.Time{}, auth.ErrSessionInvalid
	}
	return auth.User{ID: id, Email: id + "@example.com"}, time.Now().Add(time.Hour), nil
}

func (p *tokenProvider) Refresh(context.Context, string) (auth.Session, error) {
	return auth.Session{}, auth.ErrSessionInvalid
}

func (p *tokenProvider) SignIn(_ context.Context, email, password string) (auth.Session, error) {
	if password != "correct-horse" {
		return auth.Session{}, auth.ErrInvalidCredentials
	}
	return newSession(email), nil
}

func (p *tokenProvider) SignUp(_ context.Context, req user.SignUpRequest) (auth.Session, error) {
	if req.Email == "taken@example.com" {
		return auth.Session{}, user.ErrEmailAlreadyUsed
	}
	return newSession(req.Email), nil
}

func (p *tokenProvider) Revoke(_ context.Context, refresh string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revoked = append(p.revoked, refresh)
	return nil
}

func newSession(id string) auth.Session {
	return auth.Session{
		User:             auth.User{ID: id, Email: id},
		AccessToken:      "tok:" + id,
		AccessExpiresAt:  time.Now().Add(time.Hour),
		RefreshToken:     "ref:" + id,
		RefreshExpiresAt: time.Now().Add(24 * time.Hour),
	}
}

func newFactory(p auth.Provider) *auth.Factory {
	return auth.NewFactory(p, auth.FactoryOptions{
		RefreshThreshold: time.Minute,
		Cookie:           session.DefaultOptions(false),
	})
}

func newGate(profiles *memProfiles) *access.Gate {
	return access.NewGate(newFactory(&tokenProvider{}), access.NewResolver(profiles), nil, nil)
}

// memProfiles stands in for both the session and the service profile repositories.
type memProfiles struct {
	mu     sync.Mutex
	rows   map[string]profile.Profile
	writes int
	err    error
}

func newMemProfiles() *memProfiles {
	m := &memProfiles{rows: map[string]profile.Profile{}}
	m.rows[adminID] = profile.Profile{ID: adminID, Email: "admin@example.com", Role: profile.RoleAdmin, CanComment: true}
	m.rows[userID] = profile.Profile{ID: userID, Email: "user@example.com", Role: profile.RoleUser, CanComment: true}
	m.rows[childID] = profile.Profile{ID: childID, Email: "child@example.com", Role: profile.RoleChild}
	return m
}

func (m *memProfiles) GetRole(_ context.Context, id string) (profile.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return "", profile.ErrNotFound
	}
	return p.Role, nil
}

func (m *memProfiles) GetByID(_ context.Context, id string) (profile.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return profile.Profile{}, m.err
	}
	p, ok := m.rows[id]
	if !ok {
		return profile.Profile{}, profile.ErrNotFound
	}
	return p, nil
}

func (m *memProfiles) UpdateSelf(_ context.Context, id string, req profile.UpdateSelfRequest) (profile.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return profile.Profile{}, profile.ErrNotFound
	}
	if req.Nickname != nil {
		p.Nickname = req.Nickname
	}
	if req.Gender != nil {
		p.Gender = req.Gender
	}
	if req.ProfilePictureURL != nil {
		p.ProfilePictureURL = req.ProfilePictureURL
	}
	m.rows[id] = p
	m.writes++
	return p, nil
}

func (m *memProfiles) SetRole(_ context.Context, id string, role profile.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	p, ok := m.rows[id]
	if !ok {
		return profile.ErrNotFound
	}
	p.Role = role
	m.rows[id] = p
	m.writes++
	return nil
}

func (m *memProfiles) SetCanComment(_ context.Context, id string, canComment bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return profile.ErrNotFound
	}
	p.CanComment = canComment
	m.rows[id] = p
	m.writes++
	return nil
}

func (m *memProfiles) List(context.Context) ([]profile.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]profile.Profile, 0, len(m.rows))
	for _, p := range m.rows {
		out = append(out, p)
	}
	return out, nil
}

func (m *memProfiles) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows), nil
}

func (m *memProfiles) role(id string) profile.Role {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id].Role
}

type memIdentities struct {
	mu      sync.Mutex
	known   map[string]bool
	deleted []string
}

func (m *memIdentities) DeleteIdentity(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.known[id] {
		return user.ErrNotFound
	}
	delete(m.known, id)
	m.deleted = append(m.deleted, id)
	return nil
}

// memSettings behaves like the singleton row: Rotate holds the lock for the whole
// read, decide and write sequence.
type memSettings struct {
	mu  sync.Mutex
	row *settings.AdminSettings
}

func (m *memSettings) Get(context.Context) (settings.AdminSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.row == nil {
		return settings.AdminSettings{}, settings.ErrNotConfigured
	}
	return *m.row, nil
}

func (m *memSettings) Rotate(_ context.Context, decide func(settings.AdminSettings) (string, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var current settings.AdminSettings
	if m.row != nil {
		current = *m.row
	}

	next, err := decide(current)
	if err != nil {
		return err
	}

	history := append([]string(nil), current.PasswordHistoryHashes...)
	if current.DeletePasswordHash != "" {
		history = append(history, current.DeletePasswordHash)
	}
	now := time.Now().UTC()
	m.row = &settings.AdminSettings{
		ID:                    settings.SingletonID,
		DeletePasswordHash:    next,
		PasswordSetDate:       &now,
		PasswordHistoryHashes: history,
	}
	return nil
}

func (m *memSettings) hash() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.row == nil {
		return ""
	}
	return m.row.DeletePasswordHash
}

var errDB = errors.New("db error")

// sendJSON issues a request carrying the given user's access cookie; an empty id sends none.
func sendJSON(h http.Handler, method, path, asUser, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if asUser != "" {
		req.AddCookie(&http.Cookie{Name: "at", Value: "tok:" + asUser})
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}
