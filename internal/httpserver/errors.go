package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/katla/internal/auth"
	"github.com/robalobadob/katla/internal/daily"
	"github.com/robalobadob/katla/internal/game"
	"github.com/robalobadob/katla/internal/live"
	"github.com/robalobadob/katla/internal/messages"
	"github.com/robalobadob/katla/internal/play"
	"github.com/robalobadob/katla/internal/stats"
)

var (
	errBadRequest   = errors.New("invalid request")
	errUnauthorized = errors.New("unauthorized")
	errRateLimited  = errors.New("rate limited")
	errNotFound     = errors.New("not found")
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// classify maps err to a status code and message key.
func classify(err error) (int, string) {
	var hm *game.HardModeError
	var ve *auth.ValidationError
	switch {
	case errors.Is(err, game.ErrNotEnoughLetters), errors.Is(err, game.ErrNotInWordList), errors.As(err, &hm):
		return http.StatusUnprocessableEntity, messages.ErrorKey(err)
	case errors.Is(err, game.ErrFinished), errors.Is(err, game.ErrAnimating):
		return http.StatusConflict, messages.ErrorKey(err)
	case errors.Is(err, errBadRequest), errors.Is(err, play.ErrInvalidKey), errors.Is(err, play.ErrInvalidImport):
		return http.StatusBadRequest, "error.invalid_request"
	case errors.Is(err, play.ErrInvalidCode):
		return http.StatusForbidden, "error.invalid_code"
	case errors.Is(err, stats.ErrInvalidScores), errors.Is(err, stats.ErrInvalidPlay),
		errors.Is(err, stats.ErrInvalidStreak), errors.Is(err, stats.ErrNegative):
		return http.StatusBadRequest, "error.invalid_stats"
	case errors.Is(err, daily.ErrNotFound), errors.Is(err, errNotFound), errors.Is(err, auth.ErrNotFound):
		return http.StatusNotFound, "error.not_found"
	case errors.As(err, &ve):
		return http.StatusBadRequest, "error.invalid_request"
	case errors.Is(err, auth.ErrUsernameTaken):
		return http.StatusConflict, "error.username_taken"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "error.invalid_credentials"
	case errors.Is(err, errUnauthorized), errors.Is(err, auth.ErrInvalidToken), errors.Is(err, live.ErrInvalidToken):
		return http.StatusUnauthorized, "error.unauthorized"
	case errors.Is(err, live.ErrForbidden):
		return http.StatusForbidden, "error.forbidden"
	case errors.Is(err, live.ErrInvalidUsername):
		return http.StatusBadRequest, "error.invalid_username"
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests, "error.rate_limited"
	}
	return http.StatusInternalServerError, "error.internal"
}

// fail writes err as a localized JSON error.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, key := classify(err)
	lang := requestLang(r, s.deps.Messages)

	msg := s.deps.Messages.Get(lang, key)
	var ve *auth.ValidationError
	switch {
	case key == messages.ErrorKey(err):
		msg = s.deps.Messages.Error(lang, err)
	case errors.As(err, &ve):
		msg = ve.Reason
	}
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, errorBody{Error: strings.TrimPrefix(key, "error."), Message: msg})
}

// requestLang picks "lang" from the query, then Accept-Language, then the
// default language.
func requestLang(r *http.Request, loc *messages.Localizer) string {
	if l := r.URL.Query().Get("lang"); l != "" && loc.Has(l) {
		return l
	}
	for _, part := range strings.Split(r.Header.Get("Accept-Language"), ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if base := strings.ToLower(strings.SplitN(tag, "-", 2)[0]); base != "" && loc.Has(base) {
			return base
		}
	}
	return messages.DefaultLang
}
