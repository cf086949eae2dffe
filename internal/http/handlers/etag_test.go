package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geocoder89/fellowship/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

func etagRouter(payload any) *gin.Engine {
	r := gin.New()
	h := func(ctx *gin.Context) { handlers.RespondJSONWithETag(ctx, http.StatusOK, payload) }
	r.GET("/thing", h)
	r.POST("/thing", h)
	return r
}

func TestRespondJSONWithETag_WeakTagAndCacheHeaders(t *testing.T) {
	r := etagRouter(gin.H{"title": "Harvest Supper"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/thing", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("got %d", w.Code)
	}
	tag := w.Header().Get("ETag")
	if !strings.HasPrefix(tag, `W/"`) || !strings.HasSuffix(tag, `"`) {
		t.Fatalf("expected a weak ETag, got %q", tag)
	}
	if got := w.Header().Get("Vary"); !strings.Contains(got, "Cookie") || !strings.Contains(got, "Authorization") {
		t.Fatalf("Vary must name the session credentials, got %q", got)
	}
	if got := w.Header().Get("Cache-Control"); !strings.Contains(got, "private") {
		t.Fatalf("Cache-Control must keep shared caches out, got %q", got)
	}

	// the same payload gets the same tag, a different one does not
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/thing", nil))
	if w2.Header().Get("ETag") != tag {
		t.Fatalf("tag not stable: %q vs %q", w2.Header().Get("ETag"), tag)
	}

	w3 := httptest.NewRecorder()
	etagRouter(gin.H{"title": "Advent Carols"}).ServeHTTP(w3, httptest.NewRequest(http.MethodGet, "/thing", nil))
	if w3.Header().Get("ETag") == tag {
		t.Fatalf("different payloads share tag %q", tag)
	}
}

func TestRespondJSONWithETag_IfNoneMatch(t *testing.T) {
	r := etagRouter(gin.H{"title": "Harvest Supper"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/thing", nil))
	tag := w.Header().Get("ETag")
	strong := strings.TrimPrefix(tag, "W/")

	cases := []struct {
		name   string
		method string
		header string
		want   int
	}{
		{"exact weak tag", http.MethodGet, tag, http.StatusNotModified},
		{"strong form of the same tag", http.MethodGet, strong, http.StatusNotModified},
		{"tag inside a list", http.MethodGet, `"other", ` + tag + `, W/"more"`, http.StatusNotModified},
		{"wildcard", http.MethodGet, "*", http.StatusNotModified},
		{"stale tag", http.MethodGet, `W/"0123"`, http.StatusOK},
		{"unquoted garbage", http.MethodGet, strings.Trim(strong, `"`), http.StatusOK},
		{"empty list items", http.MethodGet, " , ,", http.StatusOK},
		{"not a conditional GET", http.MethodPost, tag, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/thing", nil)
			req.Header.Set("If-None-Match", tc.header)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tc.want {
				t.Fatalf("If-None-Match %q got %d, want %d", tc.header, w.Code, tc.want)
			}
			if tc.want == http.StatusNotModified && w.Body.Len() != 0 {
				t.Fatalf("304 must have no body, got %q", w.Body.String())
			}
			if w.Header().Get("ETag") != tag {
				t.Fatalf("ETag missing on %d response", w.Code)
			}
		})
	}
}
