package httpserver

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// authUser is placed into request context by withOptionalAuth.
type authUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type (
	ctxUserKey   struct{}
	ctxPlayerKey struct{}
)

const (
	anonCookieName = "katla_anon"
	anonCookieTTL  = 180 * 24 * time.Hour
)

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// requestLogger emits one zerolog line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", chimw.GetReqID(r.Context())).
				Msg("request")
		}()
		next.ServeHTTP(ww, r)
	})
}

// corsHandler enables credentialed CORS for a single origin.
func corsHandler(origin string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   []string{origin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Accept-Language"},
		AllowCredentials: true,
		MaxAge:           600,
	}).Handler
}

// withOptionalAuth decorates requests with the user when a valid token is
// present. It never rejects a request.
func (s *Server) withOptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u := s.authenticate(r); u != nil {
			r = r.WithContext(context.WithValue(r.Context(), ctxUserKey{}, u))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(r *http.Request) *authUser {
	if s.deps.Tokens == nil {
		return nil
	}
	tok := bearerOrCookie(r, s.deps.Config.CookieName)
	if tok == "" {
		return nil
	}
	c, err := s.deps.Tokens.Parse(tok)
	if err != nil {
		return nil
	}
	// the account may have been removed since the token was issued
	if s.deps.Users != nil {
		if _, err := s.deps.Users.ByID(r.Context(), c.ID); err != nil {
			return nil
		}
	}
	return &authUser{ID: c.ID, Username: c.Username}
}

// requireAuth rejects requests without a signed-in user.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if currentUser(r) == nil {
			s.fail(w, r, errUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func currentUser(r *http.Request) *authUser {
	u, _ := r.Context().Value(ctxUserKey{}).(*authUser)
	return u
}

// withPlayer resolves the player id: the user's id when signed in,
// otherwise the anonymous cookie, issued on first sight.
func (s *Server) withPlayer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if u := currentUser(r); u != nil {
			id = u.ID
		} else {
			id = s.ensureAnonID(w, r)
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxPlayerKey{}, id)))
	})
}

func playerID(r *http.Request) string {
	id, _ := r.Context().Value(ctxPlayerKey{}).(string)
	return id
}

// ensureAnonID returns the anonymous cookie or sets a new one.
func (s *Server) ensureAnonID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(anonCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, s.cookie(anonCookieName, id, anonCookieTTL))
	return id
}

func anonID(r *http.Request) string {
	if c, err := r.Cookie(anonCookieName); err == nil {
		return c.Value
	}
	return ""
}

// cookie builds an HttpOnly cookie that lives for ttl. Lifetime is sent as
// Max-Age so it holds regardless of the game clock. Production cookies are
// Secure and SameSite=None so a separately hosted client can send them.
func (s *Server) cookie(name, value string, ttl time.Duration) *http.Cookie {
	secure := s.deps.Config.Production
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		MaxAge:   int(ttl / time.Second),
	}
	if value == "" || c.MaxAge <= 0 {
		c.MaxAge = -1
	}
	return c
}

// bearerOrCookie extracts a bearer token from the Authorization header or
// the auth cookie.
func bearerOrCookie(r *http.Request, cookieName string) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}

// clientLimiter keeps one token bucket per client key.
type clientLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	clients map[string]*limiterEntry
}

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

const limiterSweepSize = 10000

func newClientLimiter(rps float64, burst int) *clientLimiter {
	if rps <= 0 {
		return nil
	}
	return &clientLimiter{limit: rate.Limit(rps), burst: max(burst, 1), clients: make(map[string]*limiterEntry)}
}

func (l *clientLimiter) allow(key string, now time.Time) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.clients) >= limiterSweepSize {
		for k, e := range l.clients {
			if now.Sub(e.seen) > time.Minute {
				delete(l.clients, k)
			}
		}
	}
	e := l.clients[key]
	if e == nil {
		e = &limiterEntry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = e
	}
	e.seen = now
	return e.lim.AllowN(now, 1)
}

// limitKey buckets signed-in users by account and everyone else by client
// address, since anonymous ids are free to mint.
func limitKey(r *http.Request) string {
	if u := currentUser(r); u != nil {
		return "u:" + u.ID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// rateLimited throttles per user or client address.
func (s *Server) rateLimited(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(limitKey(r), s.now()) {
			s.fail(w, r, errRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}
