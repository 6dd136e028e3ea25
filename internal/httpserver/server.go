// internal/httpserver/server.go
//
// HTTP server wiring for the Katla backend.
// Responsibilities:
//   - Router + middleware (request IDs, real IP, panic recovery, timeouts,
//     compression, JSON, CORS, request logging).
//   - Public endpoints: "/", "/health", puzzle tuple and word list.
//   - Game endpoints (optional auth): the player's daily board, settings,
//     sync and statistics.
//   - Daily leaderboard, archive play, auth and versus rooms.
//
// Notes:
//   - Every request has a player id: the signed-in user's id, or an
//     anonymous id kept in a cookie. Player state is keyed by it.
//   - Errors are JSON {"error": code, "message": localized text}.

package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/katla/internal/auth"
	"github.com/robalobadob/katla/internal/config"
	"github.com/robalobadob/katla/internal/daily"
	"github.com/robalobadob/katla/internal/live"
	"github.com/robalobadob/katla/internal/messages"
	"github.com/robalobadob/katla/internal/play"
	"github.com/robalobadob/katla/internal/store"
	"github.com/robalobadob/katla/internal/words"
)

// Deps are the services the routes use. Results, Users, Rooms and Hub may
// be nil; their routes then answer 404.
type Deps struct {
	Config     *config.Config
	Play       *play.Service
	Source     *daily.Source
	Words      *words.List
	Provider   store.Provider
	Results    *daily.Store
	Users      *auth.Users
	Tokens     *auth.Tokens
	Rooms      *live.RoomStore
	RoomTokens *live.RoomTokens
	Hub        *live.Hub
	Messages   *messages.Localizer
	Now        func() time.Time
}

// Server bundles the router and its dependencies.
type Server struct {
	r       *chi.Mux
	deps    Deps
	now     func() time.Time
	limiter *clientLimiter
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps) *Server {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Config == nil {
		d.Config = config.FromEnv()
	}
	if d.Messages == nil {
		loc, err := messages.Default()
		if err != nil {
			log.Fatal().Err(err).Msg("load messages")
		}
		d.Messages = loc
	}
	s := &Server{
		r:       chi.NewRouter(),
		deps:    d,
		now:     d.Now,
		limiter: newClientLimiter(d.Config.RateLimitRPS, d.Config.RateLimitBurst),
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(requestLogger)
	s.r.Use(chimw.Recoverer)
	s.r.Use(corsHandler(d.Config.ClientOrigin))
	s.r.Use(s.withOptionalAuth)
	s.r.Use(s.withPlayer)

	// websocket upgrades skip the timeout and compression wrappers
	s.mountLiveSocket(s.r)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))
		r.Use(chimw.Compress(5))
		r.Use(jsonContentType)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"service":   "katla-go",
				"endpoints": []string{"/health", "/api/hash", "GET /game", "POST /game/guess", "/auth/*", "/live/*"},
			})
		})
		r.Get("/health", s.handleHealth)

		s.mountPuzzle(r)
		s.mountGame(r)
		s.mountDaily(r)
		s.mountAuth(r)
		s.mountLive(r)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Handler exposes the router (useful for tests and http.Server).
func (s *Server) Handler() http.Handler { return s.r }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	answers, allowed := s.deps.Words.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"storage": s.deps.Config.Storage,
		"answers": answers,
		"allowed": allowed,
		"puzzle":  s.deps.Source.Current(s.now()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body of at most 64KiB into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	if err := dec.Decode(v); err != nil {
		return errBadRequest
	}
	return nil
}
