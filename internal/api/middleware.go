package api

// This file contains the request logging and admin token middleware.

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/vrsandeep/techmail/internal/auth"
)

// requestLogger logs each request through the application logger.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		s.log.WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start).String(),
		}).Debug("Handled request")
	})
}

// AdminTokenMiddleware requires a bearer token matching api.token_hash.
// With no hash configured the admin routes are open.
func (s *Server) AdminTokenMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hash := s.app.Config().API.TokenHash
		if hash == "" {
			next.ServeHTTP(w, r)
			return
		}

		token := auth.BearerToken(r.Header.Get("Authorization"))
		if token == "" {
			RespondWithError(w, http.StatusUnauthorized, "Unauthorized: No bearer token")
			return
		}
		if !auth.CheckTokenHash(token, hash) {
			RespondWithError(w, http.StatusUnauthorized, "Unauthorized: Invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// limiterIdle is the least time a client's limiter is kept after its
// last request.
const limiterIdle = 10 * time.Minute

type clientLimiter struct {
	limiter *rate.Limiter
	seen    time.Time
}

// ipLimiter holds one token bucket per client IP. Buckets idle for
// longer than idle are dropped on the next sweep, at most once per idle.
type ipLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientLimiter
	rate      rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newIPLimiter(r rate.Limit, burst int) *ipLimiter {
	// A bucket must not be dropped before it could have refilled.
	idle := limiterIdle
	if refill := time.Duration(float64(burst) / float64(r) * float64(time.Second)); refill > idle {
		idle = refill
	}
	return &ipLimiter{
		clients: make(map[string]*clientLimiter),
		rate:    r,
		burst:   burst,
		idle:    idle,
		now:     time.Now,
	}
}

func (ipl *ipLimiter) allow(ip string) bool {
	ipl.mu.Lock()
	defer ipl.mu.Unlock()

	now := ipl.now()
	if now.Sub(ipl.lastSweep) >= ipl.idle {
		for key, c := range ipl.clients {
			if now.Sub(c.seen) >= ipl.idle {
				delete(ipl.clients, key)
			}
		}
		ipl.lastSweep = now
	}

	c, ok := ipl.clients[ip]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(ipl.rate, ipl.burst)}
		ipl.clients[ip] = c
	}
	c.seen = now
	return c.limiter.AllowN(now, 1)
}

// RateLimit allows r requests per second per client IP, with bursts of
// up to burst requests. A non-positive r disables the limit.
func RateLimit(r float64, burst int) func(http.Handler) http.Handler {
	if r <= 0 {
		return func(h http.Handler) http.Handler { return h }
	}
	if burst < 1 {
		burst = 1
	}
	il := newIPLimiter(rate.Limit(r), burst)
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !il.allow(clientIP(req)) {
				RespondWithError(w, http.StatusTooManyRequests, "Too Many Requests")
				return
			}
			h.ServeHTTP(w, req)
		})
	}
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
