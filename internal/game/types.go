// internal/game/types.go
//
// Core type definitions for the Katla game engine.
// Defines:
//   - LetterState: per-letter result of a guess (correct/present/absent).
//   - AttemptHistory: the six guess slots plus the attempt cursor.
//   - Phase: the board's input lock (idle/submitting/reveal animating).

package game

// LetterState represents the evaluation result for a single letter in a guess.
//   - "correct": letter matches the answer at this position.
//   - "present": letter occurs elsewhere in the answer and that occurrence
//     was not already claimed by a correct or earlier present letter.
//   - "absent":  no unclaimed occurrence of the letter remains.
type LetterState string

const (
	Correct LetterState = "correct"
	Present LetterState = "present"
	Absent  LetterState = "absent"
)

const (
	// MaxAttempts is the number of guess slots on a board.
	MaxAttempts = 6
	// WordLength is the number of letters in every guess and answer.
	WordLength = 5
)

// AttemptHistory holds the guess slots of one puzzle. Slots before Attempt
// are completed and immutable; the slot at Attempt (if any) is being typed.
type AttemptHistory struct {
	Answers [MaxAttempts]string `json:"answers"`
	Attempt int                 `json:"attempt"`
}

// NewHistory returns six empty slots with the cursor at 0.
func NewHistory() AttemptHistory {
	return AttemptHistory{}
}

// Last returns the most recently completed guess, or "" when none.
func (h AttemptHistory) Last() string {
	if h.Attempt == 0 {
		return ""
	}
	return h.Answers[h.Attempt-1]
}

// Completed returns the completed guesses in order.
func (h AttemptHistory) Completed() []string {
	return append([]string(nil), h.Answers[:h.Attempt]...)
}

// Won reports whether the last completed guess is the answer.
func (h AttemptHistory) Won(answer string) bool {
	return h.Attempt > 0 && h.Answers[h.Attempt-1] == answer
}

// Finished reports whether the puzzle is over (won, or out of attempts).
func (h AttemptHistory) Finished(answer string) bool {
	return h.Attempt >= MaxAttempts || h.Won(answer)
}

// Phase is the board's input lock state.
type Phase int

const (
	Idle Phase = iota
	Submitting
	RevealAnimating
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case RevealAnimating:
		return "reveal_animating"
	}
	return "unknown"
}
