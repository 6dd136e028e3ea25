// Package state reads and writes the player's persisted game state.
//
// Values are decoded into a Result that says whether the stored value was
// usable. A missing or malformed value yields the default, never an error:
// errors are reserved for the underlying storage failing.
package state

import (
	"encoding/json"
	"time"

	"github.com/robalobadob/katla/internal/game"
	"github.com/robalobadob/katla/internal/stats"
)

const (
	KeyGameState     = "katla:gameState"
	KeyGameStats     = "katla:gameStats"
	KeyLastHash      = "katla:lastHash"
	KeyInvalidWords  = "katla:invalidWords"
	KeyLiveGameState = "katla:liveGameState"
)

// Status tags how a value was obtained.
type Status int

const (
	Decoded Status = iota
	Missing
	Invalid
)

func (s Status) String() string {
	switch s {
	case Decoded:
		return "decoded"
	case Missing:
		return "missing"
	case Invalid:
		return "invalid"
	}
	return "unknown"
}

// Result is a decoded value plus how it was obtained. Missing and Invalid
// results carry the default value.
type Result[T any] struct {
	Value  T
	Status Status
}

// GameState is the persisted daily board plus settings.
type GameState struct {
	Answers [game.MaxAttempts]string `json:"answers"`
	Attempt int                      `json:"attempt"`
	// LastCompletedDate is the epoch millisecond timestamp of the last win.
	LastCompletedDate  *int64 `json:"lastCompletedDate"`
	EnableHardMode     bool   `json:"enableHardMode"`
	EnableHighContrast bool   `json:"enableHighContrast"`
}

// History returns the board part of the state.
func (g GameState) History() game.AttemptHistory {
	return game.AttemptHistory{Answers: g.Answers, Attempt: g.Attempt}
}

// WithHistory returns g with its board replaced by h.
func (g GameState) WithHistory(h game.AttemptHistory) GameState {
	g.Answers = h.Answers
	g.Attempt = h.Attempt
	return g
}

// CompletedDate formats LastCompletedDate as a calendar date in loc, or ""
// when there is none.
func (g GameState) CompletedDate(loc *time.Location) string {
	if g.LastCompletedDate == nil {
		return ""
	}
	return time.UnixMilli(*g.LastCompletedDate).In(loc).Format(stats.DateLayout)
}

// LiveGameState is the versus-mode board, kept apart from the daily one.
type LiveGameState struct {
	GameState
	WinCount int `json:"winCount"`
}

type rawGameState struct {
	Answers            []string        `json:"answers"`
	Attempt            *int            `json:"attempt"`
	LastCompletedDate  json.RawMessage `json:"lastCompletedDate"`
	EnableHardMode     bool            `json:"enableHardMode"`
	EnableHighContrast bool            `json:"enableHighContrast"`
	WinCount           int             `json:"winCount"`
}

func decodeRaw(raw string) (rawGameState, GameState, bool) {
	var r rawGameState
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return r, GameState{}, false
	}
	// Shorter answer lists are padded with empty slots.
	if len(r.Answers) > game.MaxAttempts || r.Attempt == nil {
		return r, GameState{}, false
	}
	g := GameState{
		Attempt:            *r.Attempt,
		LastCompletedDate:  completedMillis(r.LastCompletedDate),
		EnableHardMode:     r.EnableHardMode,
		EnableHighContrast: r.EnableHighContrast,
	}
	copy(g.Answers[:], r.Answers)
	return r, g, validGame(g)
}

// completedMillis reads lastCompletedDate as epoch milliseconds. Older
// clients stored a YYYY-MM-DD string; that is read as noon UTC of the day.
// Anything else counts as no completion.
func completedMillis(raw json.RawMessage) *int64 {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var ms int64
	if err := json.Unmarshal(raw, &ms); err == nil {
		return &ms
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	t, err := time.Parse(stats.DateLayout, s)
	if err != nil {
		return nil
	}
	ms = t.Add(12 * time.Hour).UnixMilli()
	return &ms
}

func validGame(g GameState) bool {
	if g.Attempt < 0 || g.Attempt > game.MaxAttempts {
		return false
	}
	for i, a := range g.Answers {
		if !lowerLetters(a) {
			return false
		}
		n := len(a)
		switch {
		case i < g.Attempt && n != game.WordLength:
			return false
		case i >= g.Attempt && n > game.WordLength:
			return false
		}
	}
	return true
}

func lowerLetters(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}
	return true
}

// DecodeGameState parses a stored game state. ok reports whether the key
// existed at all.
func DecodeGameState(raw string, ok bool) Result[GameState] {
	if !ok {
		return Result[GameState]{Status: Missing}
	}
	_, g, valid := decodeRaw(raw)
	if !valid {
		return Result[GameState]{Status: Invalid}
	}
	return Result[GameState]{Value: g, Status: Decoded}
}

// DecodeLiveGameState parses a stored versus board.
func DecodeLiveGameState(raw string, ok bool) Result[LiveGameState] {
	if !ok {
		return Result[LiveGameState]{Status: Missing}
	}
	r, g, valid := decodeRaw(raw)
	if !valid || r.WinCount < 0 {
		return Result[LiveGameState]{Status: Invalid}
	}
	return Result[LiveGameState]{Value: LiveGameState{GameState: g, WinCount: r.WinCount}, Status: Decoded}
}

// DecodeStats parses stored statistics. Negative counters or a current
// streak above the max streak make the value Invalid.
func DecodeStats(raw string, ok bool) Result[stats.GameStats] {
	if !ok {
		return Result[stats.GameStats]{Status: Missing}
	}
	var s stats.GameStats
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Result[stats.GameStats]{Status: Invalid}
	}
	for _, n := range s.Distribution.Wins {
		if n < 0 {
			return Result[stats.GameStats]{Status: Invalid}
		}
	}
	if s.Distribution.Fail < 0 || s.CurrentStreak < 0 || s.CurrentStreak > s.MaxStreak {
		return Result[stats.GameStats]{Status: Invalid}
	}
	return Result[stats.GameStats]{Value: s, Status: Decoded}
}

// DecodeInvalidWords parses the rejected-word list of the current puzzle.
func DecodeInvalidWords(raw string, ok bool) Result[[]string] {
	if !ok {
		return Result[[]string]{Value: []string{}, Status: Missing}
	}
	var words []string
	if err := json.Unmarshal([]byte(raw), &words); err != nil || words == nil {
		return Result[[]string]{Value: []string{}, Status: Invalid}
	}
	return Result[[]string]{Value: words, Status: Decoded}
}
