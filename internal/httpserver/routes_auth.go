package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/katla/internal/auth"
	"github.com/robalobadob/katla/internal/store"
)

func (s *Server) mountAuth(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.With(s.rateLimited).Post("/signup", s.handleSignup)
		r.With(s.rateLimited).Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.With(s.requireAuth).Get("/me", s.handleMe)
	})
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userRes struct {
	User  *authUser `json:"user"`
	Token string    `json:"token"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if s.deps.Users == nil {
		s.fail(w, r, errNotFound)
		return
	}
	var req credentials
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	u, err := s.deps.Users.Create(r.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.startSession(w, r, u, http.StatusCreated)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.deps.Users == nil {
		s.fail(w, r, errNotFound)
		return
	}
	var req credentials
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	u, err := s.deps.Users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.startSession(w, r, u, http.StatusOK)
}

// startSession sets the session cookie and moves the anonymous player's
// state onto the account.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, u *auth.User, status int) {
	tok, exp, err := s.deps.Tokens.Sign(u.ID, u.Username)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	http.SetCookie(w, s.cookie(s.deps.Config.CookieName, tok, time.Until(exp)))

	if anon := anonID(r); anon != "" && anon != u.ID {
		if c, ok := s.deps.Provider.(store.Claimer); ok {
			if err := c.Claim(r.Context(), anon, u.ID); err != nil {
				log.Warn().Err(err).Str("user", u.ID).Msg("claim anonymous state")
			}
		}
		s.deps.Play.Forget(anon, u.ID)
		http.SetCookie(w, s.cookie(anonCookieName, "", 0))
	}
	writeJSON(w, status, userRes{User: &authUser{ID: u.ID, Username: u.Username}, Token: tok})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, s.cookie(s.deps.Config.CookieName, "", 0))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"user": currentUser(r)})
}
