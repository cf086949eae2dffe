package auth_test

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/fellowship/internal/domain/user"
	"github.com/geocoder89/fellowship/internal/session"
	"github.com/google/uuid"
)

type memIdentities struct {
	mu      sync.Mutex
	byEmail map[string]user.User
	err     error
	// refresh mirrors the ON DELETE CASCADE from users to refresh_tokens.
	refresh *memRefresh
}

func newMemIdentities() *memIdentities {
	return &memIdentities{byEmail: map[string]user.User{}}
}

func (m *memIdentities) Create(_ context.Context, email, hash string, _ *string) (user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return user.User{}, m.err
	}
	if _, ok := m.byEmail[email]; ok {
		return user.User{}, user.ErrEmailAlreadyUsed
	}
	now := time.Now().UTC()
	u := user.User{ID: uuid.NewString(), Email: email, PasswordHash: hash, CreatedAt: now, UpdatedAt: now}
	m.byEmail[email] = u
	return u, nil
}

func (m *memIdentities) GetByEmail(_ context.Context, email string) (user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return user.User{}, m.err
	}
	u, ok := m.byEmail[email]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (m *memIdentities) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for email, u := range m.byEmail {
		if u.ID == id {
			delete(m.byEmail, email)
			if m.refresh != nil {
				m.refresh.dropUser(id)
			}
			return nil
		}
	}
	return user.ErrNotFound
}

type memRefresh struct {
	mu        sync.Mutex
	rows      map[string]user.RefreshToken
	err       error
	rotateErr error
}

func newMemRefresh() *memRefresh {
	return &memRefresh{rows: map[string]user.RefreshToken{}}
}

func (m *memRefresh) Create(_ context.Context, row user.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.rows[row.ID] = row
	return nil
}

func (m *memRefresh) Rotate(_ context.Context, id, hash string, next user.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.rotateErr != nil {
		return m.rotateErr
	}
	row, ok := m.rows[id]
	if !ok {
		return user.ErrRefreshTokenNotFound
	}
	if err := row.CheckPresented(hash, time.Now().UTC()); err != nil {
		return err
	}
	if next.SessionID != row.SessionID {
		return user.ErrRefreshTokenMismatch
	}
	now := time.Now().UTC()
	row.RevokedAt = &now
	row.ReplacedBy = &next.ID
	m.rows[id] = row
	m.rows[next.ID] = next
	return nil
}

func (m *memRefresh) RevokeSession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	now := time.Now().UTC()
	for id, row := range m.rows {
		if row.SessionID == sessionID && row.RevokedAt == nil {
			row.RevokedAt = &now
			m.rows[id] = row
		}
	}
	return nil
}

func (m *memRefresh) SessionActive(_ context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	now := time.Now().UTC()
	for _, row := range m.rows {
		if row.SessionID == sessionID && row.RevokedAt == nil && row.ExpiresAt.After(now) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRefresh) dropUser(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, row := range m.rows {
		if row.UserID == userID {
			delete(m.rows, id)
		}
	}
}

// jar is a browser-like cookie store: it keeps whatever the server last set.
type jar struct {
	cookies map[string]string
	writes  int
}

func newJar() *jar {
	return &jar{cookies: map[string]string{}}
}

func (j *jar) Get(name string) (string, bool) {
	v, ok := j.cookies[name]
	return v, ok
}

func (j *jar) GetAll() []session.Cookie {
	out := make([]session.Cookie, 0, len(j.cookies))
	for k, v := range j.cookies {
		out = append(out, session.Cookie{Name: k, Value: v})
	}
	return out
}

func (j *jar) SetAll(cookies []session.Cookie) {
	j.writes++
	for _, c := range cookies {
		if c.Expired() || c.Value == "" {
			delete(j.cookies, c.Name)
			continue
		}
		j.cookies[c.Name] = c.Value
	}
}
