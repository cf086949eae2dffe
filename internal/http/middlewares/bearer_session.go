package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// BearerSession lets API clients that keep the access token returned by login send it
// as "Authorization: Bearer <token>" instead of the cookie. The token is presented to
// the session layer as the access cookie; a real cookie always wins. Such clients
// have no refresh cookie, so they re-login when the token expires.
func BearerSession(accessCookie string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.Next()
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if raw == "" {
			c.Next()
			return
		}

		if ck, err := c.Request.Cookie(accessCookie); err == nil && ck.Value != "" {
			c.Next()
			return
		}

		c.Request.AddCookie(&http.Cookie{Name: accessCookie, Value: raw})
		c.Next()
	}
}
