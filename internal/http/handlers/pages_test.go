package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/geocoder89/fellowship/internal/domain/profile"
	"github.com/geocoder89/fellowship/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

type unreadCounter int

func (u unreadCounter) CountUnread(context.Context) (int, error) { return int(u), nil }

func newPagesRouter(profiles *memProfiles) *gin.Engine {
	h := handlers.NewPagesHandler(newGate(profiles), profiles, profiles, unreadCounter(4), nil)

	r := gin.New()
	r.GET("/admin", h.AdminDashboard)
	r.GET("/profile", h.ProfilePage)
	return r
}

func TestPagesHandler_AdminDashboard(t *testing.T) {
	r := newPagesRouter(newMemProfiles())

	tests := []struct {
		name     string
		as       string
		status   int
		location string
	}{
		{"anonymous", "", http.StatusSeeOther, "/login"},
		{"user", userID, http.StatusSeeOther, "/"},
		{"child", childID, http.StatusSeeOther, "/"},
		{"admin", adminID, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := sendJSON(r, http.MethodGet, "/admin", tt.as, "")
			if w.Code != tt.status {
				t.Fatalf("got status %d, want %d", w.Code, tt.status)
			}
			if got := w.Header().Get("Location"); got != tt.location {
				t.Fatalf("got Location %q, want %q", got, tt.location)
			}
		})
	}

	w := sendJSON(r, http.MethodGet, "/admin", adminID, "")
	var view handlers.DashboardView
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if view.Role != profile.RoleAdmin || view.UserCount != 3 || view.UnreadContacts != 4 {
		t.Fatalf("got view %+v", view)
	}
}

func TestPagesHandler_ProfilePage(t *testing.T) {
	profiles := newMemProfiles()
	r := newPagesRouter(profiles)

	w := sendJSON(r, http.MethodGet, "/profile", "", "")
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/login" {
		t.Fatalf("anonymous got %d %q", w.Code, w.Header().Get("Location"))
	}

	w = sendJSON(r, http.MethodGet, "/profile", childID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d", w.Code)
	}
	var view handlers.ProfileView
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if view.Profile == nil || view.Profile.Role != profile.RoleChild {
		t.Fatalf("got view %+v", view)
	}

	// a session without a profile row still renders
	w = sendJSON(r, http.MethodGet, "/profile", "66666666-6666-4666-8666-666666666666", "")
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d", w.Code)
	}

	profiles.err = errDB
	w = sendJSON(r, http.MethodGet, "/profile", childID, "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("got status %d, want 500", w.Code)
	}
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestHealthHandler_Readyz(t *testing.T) {
	tests := []struct {
		name   string
		db     handlers.Pinger
		redis  handlers.Pinger
		status int
	}{
		{"db_only", pinger{}, nil, http.StatusOK},
		{"db_and_redis", pinger{}, pinger{}, http.StatusOK},
		{"db_down", pinger{err: errors.New("refused")}, nil, http.StatusServiceUnavailable},
		{"redis_down", pinger{}, pinger{err: errors.New("refused")}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewHealthHandler(tt.db, tt.redis)
			r := setupRouter(http.MethodGet, "/readyz", h.Readyz)

			w := sendJSON(r, http.MethodGet, "/readyz", "", "")
			if w.Code != tt.status {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.status, w.Body.String())
			}
		})
	}
}

func TestHealthHandler_ReadyzWhileShuttingDown(t *testing.T) {
	var draining bool
	h := handlers.NewHealthHandler(pinger{}, nil).WithShutdownSignal(func() bool { return draining })
	r := setupRouter(http.MethodGet, "/readyz", h.Readyz)

	if w := sendJSON(r, http.MethodGet, "/readyz", "", ""); w.Code != http.StatusOK {
		t.Fatalf("got status %d before shutdown, want 200", w.Code)
	}

	draining = true
	w := sendJSON(r, http.MethodGet, "/readyz", "", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("got status %d while draining, want 503", w.Code)
	}
	if !strings.Contains(w.Body.String(), "shutting_down") {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}
