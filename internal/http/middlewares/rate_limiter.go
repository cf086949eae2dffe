package middlewares

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// maxTrackedKeys bounds memory; when exceeded every bucket is dropped and refills.
const maxTrackedKeys = 10000

// RateLimiter keeps one token bucket per derived key.
type RateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

// NewRateLimiter admits burst requests per key, refilled evenly over window.
func NewRateLimiter(burst int, window time.Duration) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:    rate.Every(window / time.Duration(burst)),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (rl *RateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.limiters[key]
	if ok {
		return l
	}

	if len(rl.limiters) >= maxTrackedKeys {
		rl.limiters = make(map[string]*rate.Limiter)
	}

	l = rate.NewLimiter(rl.limit, rl.burst)
	rl.limiters[key] = l
	return l
}

func (rl *RateLimiter) RateLimiterMiddleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)

		if key == "" {
			// fallback to IP if key cannot be derived
			key = clientIP(c)
		}

		r := rl.get(key).Reserve()
		if delay := r.Delay(); delay > 0 {
			r.Cancel()

			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":      "rate_limited",
					"message":   "Too many requests. Please try again shortly.",
					"requestId": c.GetString(CtxRequestID),
				},
			})
			return
		}

		c.Next()
	}
}

// KeyByIP is for unauthenticated endpoints such as login and register.
func KeyByIP(c *gin.Context) string {
	return "ip:" + clientIP(c)
}

// KeyByUserOrIP prefers the session user resolved earlier in the chain.
func KeyByUserOrIP(c *gin.Context) string {
	if u, ok := SessionUser(c); ok {
		return "user:" + u.ID
	}
	return KeyByIP(c)
}

// TrustProxies decides whose forwarding headers clientIP believes. An empty list
// trusts nobody, so every bucket is keyed by the socket peer.
func TrustProxies(r *gin.Engine, proxies []string) error {
	if len(proxies) == 0 {
		return r.SetTrustedProxies(nil)
	}
	if err := r.SetTrustedProxies(proxies); err != nil {
		_ = r.SetTrustedProxies(nil)
		return err
	}
	return nil
}

func clientIP(c *gin.Context) string {
	// X-Forwarded-For counts only when the peer is a trusted proxy.
	ip := c.ClientIP()

	host, _, err := net.SplitHostPort(ip)
	if err == nil && host != "" {
		return host
	}

	return ip
}
