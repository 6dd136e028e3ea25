package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/katla/internal/codec"
)

const puzzleCacheControl = "public, s-maxage=3600, stale-while-revalidate=86400"

func (s *Server) mountPuzzle(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/hash", s.handleHash)
		r.Get("/puzzle", s.handlePuzzle)
		r.Get("/words", s.handleWords)
		r.Get("/archive", s.handleArchiveList)
		r.Get("/archive/{num}", s.handleArchive)
		r.With(s.rateLimited).Post("/archive/{num}/guess", s.handleArchiveGuess)
	})
}

// handleHash returns the current puzzle tuple as one opaque token.
func (s *Server) handleHash(w http.ResponseWriter, r *http.Request) {
	h := s.deps.Source.Latest(s.now())
	w.Header().Set("Cache-Control", puzzleCacheControl)
	writeJSON(w, http.StatusOK, map[string]string{"hash": codec.EncodeHashed(h)})
}

type puzzleRes struct {
	Num        int    `json:"num"`
	Date       string `json:"date"`
	Hash       string `json:"hash"`
	Previous   string `json:"previous,omitempty"`
	Activation string `json:"activation"`
}

// handlePuzzle returns the tuple fields individually.
func (s *Server) handlePuzzle(w http.ResponseWriter, r *http.Request) {
	h := s.deps.Source.Latest(s.now())
	w.Header().Set("Cache-Control", puzzleCacheControl)
	writeJSON(w, http.StatusOK, puzzleRes{
		Num:        h.Num,
		Date:       h.Date,
		Hash:       h.Latest,
		Previous:   h.Previous,
		Activation: s.deps.Source.Cal.ActivationTime(h.Num).Format(time.RFC3339),
	})
}

func (s *Server) handleWords(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=86400")
	writeJSON(w, http.StatusOK, map[string]any{"words": s.deps.Words.Words()})
}

type archiveEntry struct {
	Num  int    `json:"num"`
	Date string `json:"date"`
}

// handleArchiveList lists every published puzzle, newest first.
func (s *Server) handleArchiveList(w http.ResponseWriter, r *http.Request) {
	cal := s.deps.Source.Cal
	current := s.deps.Source.Current(s.now())
	out := make([]archiveEntry, 0, current)
	for n := current; n >= 1; n-- {
		out = append(out, archiveEntry{Num: n, Date: cal.DateKey(cal.ActivationTime(n))})
	}
	w.Header().Set("Cache-Control", puzzleCacheControl)
	writeJSON(w, http.StatusOK, out)
}

func archiveNum(r *http.Request) (int, error) {
	n, err := strconv.Atoi(chi.URLParam(r, "num"))
	if err != nil {
		return 0, errNotFound
	}
	return n, nil
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	num, err := archiveNum(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	v, err := s.deps.Play.Archive(r.Context(), playerID(r), num)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type guessReq struct {
	Guess string `json:"guess"`
}

func (s *Server) handleArchiveGuess(w http.ResponseWriter, r *http.Request) {
	num, err := archiveNum(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req guessReq
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.deps.Play.ArchiveSubmit(r.Context(), playerID(r), num, req.Guess)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.submitResponse(r, out))
}
