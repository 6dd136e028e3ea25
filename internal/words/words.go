// internal/words/words.go
//
// Word list management for the game engine.
//
// Responsibilities:
//   - Load the answers and allowed guess lists from files or fall back to
//     the embedded defaults.
//   - Keep a set for quick guess validation (answers ∪ allowed).
//   - Supply RandomAnswer for versus rounds and Stats for the health route.
//
// Word Lists:
//   - answers: daily solutions in publication order (comma or newline separated).
//   - allowed: valid guesses; every answer is always allowed too.
//
// Loading behavior (Load):
//  1. If both paths are set, read answers and allowed guesses from them.
//  2. If only the allowed path is set, use that file for both.
//  3. Otherwise use the embedded assets.
//
// Constraints:
//   • Words must be 5 letters a–z; anything else is dropped.
//   • Lists are normalized to lowercase, order preserved, duplicates removed.

package words

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"os"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/robalobadob/katla/assets"
	"github.com/robalobadob/katla/internal/game"
)

var ErrEmpty = errors.New("words: answers list is empty")

// List holds the loaded word lists. It is immutable after construction
// and safe for concurrent use.
type List struct {
	answers []string
	words   []string            // answers ∪ allowed, sorted
	allowed map[string]struct{} // same as words
}

// Load builds a List from files, or from the embedded assets when paths
// are empty.
func Load(answersPath, allowedPath string) (*List, error) {
	var ans, allow []string
	var err error

	switch {
	case answersPath != "" && allowedPath != "":
		if ans, err = readWordFile(answersPath); err != nil {
			return nil, err
		}
		if allow, err = readWordFile(allowedPath); err != nil {
			return nil, err
		}

	case allowedPath != "":
		if allow, err = readWordFile(allowedPath); err != nil {
			return nil, err
		}
		ans = allow

	default:
		if ans, err = assets.AnswersList(); err != nil {
			return nil, fmt.Errorf("embedded answers: %w", err)
		}
		if allow, err = assets.AllowedList(); err != nil {
			return nil, fmt.Errorf("embedded words: %w", err)
		}
	}

	l := New(ans, allow)
	if len(l.answers) == 0 {
		return nil, ErrEmpty
	}
	return l, nil
}

// New builds a List from in-memory lists.
func New(answers, allowed []string) *List {
	ans := normalize(answers)
	words := lo.Uniq(append(append([]string{}, ans...), normalize(allowed)...))
	sort.Strings(words)
	return &List{
		answers: ans,
		words:   words,
		allowed: lo.SliceToMap(words, func(w string) (string, struct{}) { return w, struct{}{} }),
	}
}

// readWordFile loads a comma or newline separated list.
func readWordFile(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read word list %s: %w", path, err)
	}
	return assets.SplitWords(string(b)), nil
}

// normalize lowercases, keeps valid 5-letter words and drops duplicates.
func normalize(list []string) []string {
	out := lo.FilterMap(list, func(w string, _ int) (string, bool) {
		w = strings.ToLower(strings.TrimSpace(w))
		return w, len(w) == game.WordLength && isAlpha(w)
	})
	return lo.Uniq(out)
}

// isAlpha reports whether s is all lowercase ASCII letters.
func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// IsValidWord reports whether w may be guessed.
func (l *List) IsValidWord(w string) bool {
	_, ok := l.allowed[strings.ToLower(w)]
	return ok
}

// IsAnswer reports whether w is one of the daily answers.
func (l *List) IsAnswer(w string) bool {
	return lo.Contains(l.answers, strings.ToLower(w))
}

// Answers returns the answers in publication order.
func (l *List) Answers() []string { return l.answers }

// Words returns every valid guess, sorted.
func (l *List) Words() []string { return l.words }

// RandomAnswer returns a cryptographically random answer from pool, or
// from all answers when pool is empty.
func (l *List) RandomAnswer(pool []string) string {
	if len(pool) == 0 {
		pool = l.answers
	}
	if len(pool) == 0 {
		return ""
	}
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(pool))))
	return pool[n.Int64()]
}

// Stats returns counts of loaded words: (answers, allowed).
func (l *List) Stats() (answersCount int, allowedCount int) {
	return len(l.answers), len(l.words)
}
