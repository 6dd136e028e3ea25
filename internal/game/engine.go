// internal/game/engine.go
//
// Board engine for a single Katla puzzle.
// Responsibilities:
//   - Accept letter input, backspace and submission for the current slot.
//   - Validate submissions (length, word list, hard mode) without mutating
//     the history on failure.
//   - Commit valid guesses and lock input while the reveal plays.
//
// The input lock is an explicit phase (Idle → Submitting → RevealAnimating
// → Idle). Every operation first advances the phase against the clock, so
// an expired reveal never needs a timer to unlock the board.
package game

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	ErrNotEnoughLetters = errors.New("not enough letters")
	ErrNotInWordList    = errors.New("not in word list")
	ErrFinished         = errors.New("puzzle finished")
	ErrAnimating        = errors.New("reveal in progress")
)

// DefaultRevealDuration matches six tiles flipping 400ms apart.
const DefaultRevealDuration = 6 * 400 * time.Millisecond

// WordChecker reports whether a word may be submitted as a guess.
type WordChecker interface {
	IsValidWord(w string) bool
}

// Options configure a Board.
type Options struct {
	HardMode       bool
	RevealDuration time.Duration
	Now            func() time.Time
}

// Board applies player input to an AttemptHistory.
type Board struct {
	answer      string
	history     AttemptHistory
	words       WordChecker
	hardMode    bool
	reveal      time.Duration
	now         func() time.Time
	phase       Phase
	revealUntil time.Time
}

// SubmitResult is returned for every committed guess.
type SubmitResult struct {
	Guess    string        `json:"guess"`
	States   []LetterState `json:"states"`
	Attempt  int           `json:"attempt"`
	Finished bool          `json:"finished"`
	Won      bool          `json:"won"`
}

// NewBoard constructs a board for answer, resuming from h.
func NewBoard(answer string, h AttemptHistory, words WordChecker, opts Options) *Board {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if opts.RevealDuration < 0 {
		opts.RevealDuration = 0
	}
	return &Board{
		answer:   strings.ToLower(answer),
		history:  h,
		words:    words,
		hardMode: opts.HardMode,
		reveal:   opts.RevealDuration,
		now:      now,
		phase:    Idle,
	}
}

// History returns a copy of the current attempt history.
func (b *Board) History() AttemptHistory { return b.history }

// Answer returns the secret word.
func (b *Board) Answer() string { return b.answer }

// SetHardMode toggles hard-mode validation for later submissions.
func (b *Board) SetHardMode(on bool) { b.hardMode = on }

// HardMode reports whether hard mode is enabled.
func (b *Board) HardMode() bool { return b.hardMode }

// Phase advances the input lock and reports it.
func (b *Board) Phase() Phase {
	b.advance()
	return b.phase
}

// Finished reports whether the puzzle is over.
func (b *Board) Finished() bool { return b.history.Finished(b.answer) }

// Type appends a letter to the current slot. Non-letters, letters past
// the fifth and keys on a finished board are ignored.
func (b *Board) Type(letter rune) error {
	if err := b.ready(); err != nil {
		return ignoreFinished(err)
	}
	letter = []rune(strings.ToLower(string(letter)))[0]
	if letter < 'a' || letter > 'z' {
		return nil
	}
	cur := b.history.Answers[b.history.Attempt]
	if utf8.RuneCountInString(cur) < WordLength {
		b.history.Answers[b.history.Attempt] = cur + string(letter)
	}
	return nil
}

// Backspace removes the last letter of the current slot. It is ignored on
// a finished board.
func (b *Board) Backspace() error {
	if err := b.ready(); err != nil {
		return ignoreFinished(err)
	}
	cur := []rune(b.history.Answers[b.history.Attempt])
	if len(cur) > 0 {
		b.history.Answers[b.history.Attempt] = string(cur[:len(cur)-1])
	}
	return nil
}

func ignoreFinished(err error) error {
	if errors.Is(err, ErrFinished) {
		return nil
	}
	return err
}

// SubmitWord submits word in place of the current slot. A rejected word
// leaves the slot as it was.
func (b *Board) SubmitWord(word string) (SubmitResult, error) {
	if err := b.ready(); err != nil {
		return SubmitResult{}, err
	}
	return b.commit(strings.ToLower(strings.TrimSpace(word)))
}

// Submit validates and commits the current slot.
//
// Validation order:
//   - input locked by a running reveal → ErrAnimating
//   - puzzle already finished          → ErrFinished
//   - fewer than five letters          → ErrNotEnoughLetters
//   - not in the word list             → ErrNotInWordList
//   - hard mode and a prior attempt    → *HardModeError
func (b *Board) Submit() (SubmitResult, error) {
	if err := b.ready(); err != nil {
		return SubmitResult{}, err
	}
	return b.commit(b.history.Answers[b.history.Attempt])
}

func (b *Board) commit(guess string) (SubmitResult, error) {
	b.phase = Submitting
	if err := b.validate(guess); err != nil {
		b.phase = Idle
		return SubmitResult{}, err
	}

	b.history.Answers[b.history.Attempt] = guess
	b.history.Attempt++
	b.phase = RevealAnimating
	b.revealUntil = b.now().Add(b.reveal)

	states := Score(guess, b.answer)
	return SubmitResult{
		Guess:    guess,
		States:   states,
		Attempt:  b.history.Attempt,
		Finished: b.history.Finished(b.answer),
		Won:      IsWin(states),
	}, nil
}

func (b *Board) validate(guess string) error {
	if len([]rune(guess)) < WordLength {
		return ErrNotEnoughLetters
	}
	if b.words != nil && !b.words.IsValidWord(guess) {
		return ErrNotInWordList
	}
	if b.hardMode {
		if v := ValidateHardMode(b.history, guess, b.answer); v != nil {
			return &HardModeError{Violation: *v}
		}
	}
	return nil
}

// ready advances the lock and rejects input while animating or finished.
func (b *Board) ready() error {
	b.advance()
	if b.phase == RevealAnimating {
		return ErrAnimating
	}
	if b.history.Finished(b.answer) {
		return ErrFinished
	}
	return nil
}

func (b *Board) advance() {
	if b.phase == RevealAnimating && !b.now().Before(b.revealUntil) {
		b.phase = Idle
	}
}
