package httpserver

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/katla/internal/daily"
	"github.com/robalobadob/katla/internal/play"
)

func (s *Server) mountGame(r chi.Router) {
	r.Route("/game", func(r chi.Router) {
		r.Get("/", s.handleGame)
		r.Delete("/", s.handleReset)
		r.With(s.rateLimited).Post("/guess", s.handleGuess)
		r.With(s.rateLimited).Post("/input", s.handleInput)
		r.Put("/settings", s.handleSettings)
		r.Post("/sync", s.handleSync)
	})
	r.Get("/stats/me", s.handleStats)
	r.Post("/stats/import", s.handleImportStats)
}

// submitRes adds the localized message to a play.SubmitOutcome.
type submitRes struct {
	play.SubmitOutcome
	Message string `json:"message,omitempty"`
}

func (s *Server) submitResponse(r *http.Request, out play.SubmitOutcome) submitRes {
	res := submitRes{SubmitOutcome: out}
	lang := requestLang(r, s.deps.Messages)
	switch out.MessageKey {
	case "":
	case "answer":
		res.Message = s.deps.Messages.Format(lang, "answer", strings.ToUpper(out.View.Answer))
	default:
		res.Message = s.deps.Messages.Get(lang, out.MessageKey)
	}
	return res
}

// handleGame returns the player's board for the current puzzle.
func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	v := s.deps.Play.Game(r.Context(), playerID(r))
	if v.State == daily.NoStorage.String() {
		w.Header().Set("X-Katla-Storage", "unavailable")
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.deps.Play.Submit(r.Context(), playerID(r), req.Guess)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.submitResponse(r, out))
}

type inputReq struct {
	Key string `json:"key"`
}

// handleInput applies one key press: a letter, "backspace" or "enter".
func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	var req inputReq
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.deps.Play.Input(r.Context(), playerID(r), req.Key)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.submitResponse(r, out))
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	var req play.Settings
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Play.UpdateSettings(r.Context(), playerID(r), req))
}

// handleReset clears game state, stats and the last seen token.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.deps.Play.Reset(r.Context(), playerID(r))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleSync overwrites the player's state with what another origin sent.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req play.ImportPayload
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.deps.Play.Import(r.Context(), playerID(r), req); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Play.Game(r.Context(), playerID(r)))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Play.Stats(r.Context(), playerID(r)))
}

type importStatsReq struct {
	Code   string `json:"code"`
	Scores string `json:"scores"`
}

func (s *Server) handleImportStats(w http.ResponseWriter, r *http.Request) {
	var req importStatsReq
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	sv, err := s.deps.Play.ImportStats(r.Context(), playerID(r), req.Code, req.Scores)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sv)
}
