package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Caiocr8/sistema-pedidos-sub000/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// rateEntry tracks request counts per IP within a fixed window.
type rateEntry struct {
	count     int
	windowEnd time.Time
}

type rateLimiter struct {
	mu      sync.Mutex
	entries map[string]*rateEntry
	limit   int
	window  time.Duration
	now     func() time.Time
}

// RateLimiter allows limit requests per window per client IP. Expired entries
// are purged every few windows so IPs that never return do not accumulate.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	return newRateLimiter(limit, window, time.Now).handle()
}

func newRateLimiter(limit int, window time.Duration, now func() time.Time) *rateLimiter {
	return &rateLimiter{entries: make(map[string]*rateEntry), limit: limit, window: window, now: now}
}

func (rl *rateLimiter) handle() gin.HandlerFunc {
	var lastPurge time.Time

	return func(c *gin.Context) {
		now := rl.now()

		rl.mu.Lock()
		if now.Sub(lastPurge) > 5*rl.window {
			rl.purgeLocked(now)
			lastPurge = now
		}
		ip := c.ClientIP()
		entry, ok := rl.entries[ip]
		if !ok || now.After(entry.windowEnd) {
			entry = &rateEntry{windowEnd: now.Add(rl.window)}
			rl.entries[ip] = entry
		}
		entry.count++
		over := entry.count > rl.limit
		retry := entry.windowEnd.Sub(now)
		rl.mu.Unlock()

		if over {
			c.Header("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				apierror.Retry(apierror.CodeLimite, "Demasiadas solicitudes. Intente nuevamente en un momento."))
			return
		}
		c.Next()
	}
}

func (rl *rateLimiter) purgeLocked(now time.Time) {
	purged := 0
	for ip, e := range rl.entries {
		if now.After(e.windowEnd) {
			delete(rl.entries, ip)
			purged++
		}
	}
	if purged > 0 {
		log.Debug().Int("purged", purged).Int("remaining", len(rl.entries)).Msg("rate limiter entries purged")
	}
}
