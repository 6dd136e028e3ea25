package live

import (
	"github.com/robalobadob/katla/internal/game"
	"github.com/robalobadob/katla/internal/state"
)

// Server → client event types.
const (
	EventStart    = "start"
	EventWin      = "win"
	EventLose     = "lose"
	EventEmoji    = "emoji"
	EventHash     = "hash"
	EventPresence = "presence"
	EventState    = "state"
	EventResult   = "result"
	EventError    = "error"
)

// Client → server message types.
const (
	MsgSubmit = "submit"
	MsgEmoji  = "emoji"
	MsgStart  = "start"
)

// Event is one JSON frame sent to members.
type Event struct {
	Type      string               `json:"type"`
	Num       int                  `json:"num,omitempty"`
	Hash      string               `json:"hash,omitempty"`
	Username  string               `json:"username,omitempty"`
	Answer    string               `json:"answer,omitempty"`
	Emoji     string               `json:"emoji,omitempty"`
	Message   string               `json:"message,omitempty"`
	Error     string               `json:"error,omitempty"`
	Result    *game.SubmitResult   `json:"result,omitempty"`
	State     *state.LiveGameState `json:"state,omitempty"`
	Presences []Presence           `json:"presences,omitempty"`
}

// ClientMessage is one JSON frame read from a member.
type ClientMessage struct {
	Type  string `json:"type"`
	Guess string `json:"guess,omitempty"`
	Emoji string `json:"emoji,omitempty"`
}

// Presence is what other members see of a player during a round.
type Presence struct {
	Username string    `json:"username"`
	Scores   []float64 `json:"scores"`
	IsFailed bool      `json:"isFailed"`
	WinCount int       `json:"winCount"`
	Host     bool      `json:"host,omitempty"`
}

// Scores maps letter states to 1 (correct), 0.5 (present) and 0 (absent).
func Scores(states []game.LetterState) []float64 {
	out := make([]float64, len(states))
	for i, s := range states {
		switch s {
		case game.Correct:
			out[i] = 1
		case game.Present:
			out[i] = 0.5
		}
	}
	return out
}

// TotalScore sums scores; game.WordLength means the word was guessed.
func TotalScore(scores []float64) float64 {
	var total float64
	for _, s := range scores {
		total += s
	}
	return total
}

func defaultScores() []float64 { return make([]float64, game.WordLength) }
