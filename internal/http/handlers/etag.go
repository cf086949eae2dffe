package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Reads go through the caller's session, so two callers can get different bodies for
// the same URL. Caches must key on the credentials and revalidate every time.
const (
	etagVary         = "Cookie, Authorization"
	etagCacheControl = "private, no-cache"
)

// RespondJSONWithETag writes payload with a weak validator and answers a matching
// conditional GET with 304. Other methods always get the full response.
func RespondJSONWithETag(ctx *gin.Context, status int, payload any) {
	ctx.Header("Vary", etagVary)
	ctx.Header("Cache-Control", etagCacheControl)

	tag, err := weakETag(payload)
	if err != nil {
		ctx.JSON(status, payload)
		return
	}

	ctx.Header("ETag", tag)

	method := ctx.Request.Method
	if (method == http.MethodGet || method == http.MethodHead) && noneMatch(ctx.GetHeader("If-None-Match"), tag) {
		ctx.Status(http.StatusNotModified)
		return
	}

	ctx.JSON(status, payload)
}

// weakETag hashes the JSON form; equal payloads are semantically equal, not byte-equal
// on the wire once compression or encoder changes get involved.
func weakETag(payload any) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(b)

	return `W/"` + hex.EncodeToString(sum[:16]) + `"`, nil
}

// noneMatch reports whether If-None-Match names tag. The comparison is weak, so
// W/"x" and "x" match.
func noneMatch(header, tag string) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}
	if header == "*" {
		return true
	}

	want := opaqueTag(tag)

	for _, part := range strings.Split(header, ",") {
		if got := opaqueTag(part); got != "" && got == want {
			return true
		}
	}

	return false
}

// opaqueTag strips the weak prefix; anything that is not a quoted tag yields "".
func opaqueTag(raw string) string {
	v := strings.TrimSpace(raw)
	v = strings.TrimPrefix(v, "W/")

	if len(v) < 2 || v[0] != '"' || v[len(v)-1] != '"' {
		return ""
	}
	return v
}
