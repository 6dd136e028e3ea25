package game

import "fmt"

// Violation describes why a candidate breaks hard mode.
// Position is 1-based; 0 means the letter must be used somewhere.
type Violation struct {
	Letter   string `json:"letter"`
	Position int    `json:"position,omitempty"`
}

// HardModeError wraps a Violation so callers can use errors.As.
type HardModeError struct {
	Violation Violation
}

func (e *HardModeError) Error() string {
	if e.Violation.Position == 0 {
		return fmt.Sprintf("hard mode: letter %q must be used", e.Violation.Letter)
	}
	return fmt.Sprintf("hard mode: position %d must be %q", e.Violation.Position, e.Violation.Letter)
}

// CheckHardMode reports whether candidate reuses everything previous
// revealed about answer. Letters revealed as present are checked first, in
// the order they appear in previous; correct positions are checked after
// that, left to right. The first failure wins.
func CheckHardMode(previous, candidate, answer string) *Violation {
	prev := []rune(previous)
	cand := []rune(candidate)
	states := Score(previous, answer)

	have := make(map[rune]bool, len(cand))
	for _, r := range cand {
		have[r] = true
	}
	seen := make(map[rune]bool)
	for i, s := range states {
		if s != Present || seen[prev[i]] {
			continue
		}
		seen[prev[i]] = true
		if !have[prev[i]] {
			return &Violation{Letter: string(prev[i])}
		}
	}

	for i, s := range states {
		if s != Correct {
			continue
		}
		if i >= len(cand) || cand[i] != prev[i] {
			return &Violation{Letter: string(prev[i]), Position: i + 1}
		}
	}
	return nil
}

// ValidateHardMode checks candidate against the last completed guess in h.
// With no completed guess there is nothing to enforce.
func ValidateHardMode(h AttemptHistory, candidate, answer string) *Violation {
	if h.Attempt == 0 {
		return nil
	}
	return CheckHardMode(h.Last(), candidate, answer)
}
