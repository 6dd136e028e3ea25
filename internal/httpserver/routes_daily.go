package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/katla/internal/daily"
)

// mountDaily registers the results board. Results are written by the play
// service when a daily puzzle finishes.
func (s *Server) mountDaily(r chi.Router) {
	r.Get("/daily/leaderboard", s.handleLeaderboard)
}

type lbRes struct {
	Num    int           `json:"num"`
	Date   string        `json:"date"`
	Played bool          `json:"played"`
	Top    []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the winners of ?num= or ?date=YYYY-MM-DD
// (default: the current puzzle) and whether the caller has a result for it.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.deps.Results == nil {
		s.fail(w, r, errNotFound)
		return
	}
	cal := s.deps.Source.Cal
	current := s.deps.Source.Current(s.now())
	num := current
	if q := r.URL.Query().Get("num"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			s.fail(w, r, errNotFound)
			return
		}
		num = n
	} else if q := r.URL.Query().Get("date"); q != "" {
		d, err := cal.ParseDate(q)
		if err != nil {
			s.fail(w, r, errNotFound)
			return
		}
		num = cal.NumForDate(d)
	}
	if num < 1 || num > current {
		s.fail(w, r, errNotFound)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := s.deps.Results.Leaderboard(r.Context(), num, min(limit, 100))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	played, err := s.deps.Results.AlreadyPlayed(r.Context(), playerID(r), num)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lbRes{
		Num:    num,
		Date:   cal.DateKey(cal.ActivationTime(num)),
		Played: played,
		Top:    rows,
	})
}
