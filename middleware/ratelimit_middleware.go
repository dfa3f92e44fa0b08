package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/GShadowBroker/library-server/utils/errors"
)

const (
	limiterTTL    = time.Hour
	sweepInterval = 10 * time.Minute
)

// RateLimit throttles requests per client IP. Used on the credential
// endpoints (login, createUser) where the caller has no identity yet.
// Stale limiters are swept lazily on request, every sweepInterval at most,
// so the middleware owns no background goroutine.
func RateLimit(r rate.Limit, burst int) func(http.Handler) http.Handler {
	type client struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	var mu sync.Mutex
	clients := make(map[string]*client)
	lastSweep := time.Now()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ip, _, err := net.SplitHostPort(req.RemoteAddr)
			if err != nil {
				ip = req.RemoteAddr
			}

			mu.Lock()
			if time.Since(lastSweep) > sweepInterval {
				for addr, c := range clients {
					if time.Since(c.lastSeen) > limiterTTL {
						delete(clients, addr)
					}
				}
				lastSweep = time.Now()
			}
			c, ok := clients[ip]
			if !ok {
				c = &client{limiter: rate.NewLimiter(r, burst)}
				clients[ip] = c
			}
			c.lastSeen = time.Now()
			allowed := c.limiter.Allow()
			mu.Unlock()

			if !allowed {
				WriteError(w, errors.NewAPIError("RATE_LIMITED", "Too many requests", http.StatusTooManyRequests))
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}
