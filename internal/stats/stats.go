// Package stats aggregates finished puzzles into player statistics.
//
// Record is the only function that mutates a GameStats. It is called once
// per puzzle, on the transition into the finished state.
package stats

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the format of completion dates.
const DateLayout = "2006-01-02"

// Distribution maps attempt count (1..6) to wins, plus failures.
// It serializes as {"1":n,...,"6":n,"fail":n}.
type Distribution struct {
	Wins [6]int
	Fail int
}

// GameStats are the persisted aggregate counters.
type GameStats struct {
	Distribution  Distribution `json:"distribution"`
	CurrentStreak int          `json:"currentStreak"`
	MaxStreak     int          `json:"maxStreak"`
}

// Outcome describes one finished puzzle.
type Outcome struct {
	Won bool
	// Attempts is the number of guesses used, 1..6.
	Attempts int
	// StreakValid is the result of StreakIsValid at completion time.
	StreakValid bool
}

// TotalWin sums wins across all attempt counts.
func TotalWin(s GameStats) int {
	total := 0
	for _, n := range s.Distribution.Wins {
		total += n
	}
	return total
}

// TotalPlay is total wins plus failures.
func TotalPlay(s GameStats) int {
	return TotalWin(s) + s.Distribution.Fail
}

// WinRate is the rounded win percentage, 0 when nothing was played.
func WinRate(s GameStats) int {
	play := TotalPlay(s)
	if play == 0 {
		return 0
	}
	return int(math.Round(float64(TotalWin(s)) / float64(play) * 100))
}

// StreakIsValid reports whether a win now continues the streak: either
// there is no previous completion, or it happened exactly yesterday in loc.
// A longer gap only breaks the streak on the next win.
func StreakIsValid(lastCompleted string, now time.Time, loc *time.Location) bool {
	if lastCompleted == "" {
		return true
	}
	last, err := time.ParseInLocation(DateLayout, lastCompleted, loc)
	if err != nil {
		return false
	}
	y, m, d := now.In(loc).Date()
	yesterday := time.Date(y, m, d-1, 0, 0, 0, 0, loc)
	return last.Equal(yesterday)
}

// Record folds one finished puzzle into s.
func Record(s *GameStats, o Outcome) {
	if o.Won {
		n := o.Attempts
		if n < 1 {
			n = 1
		}
		if n > len(s.Distribution.Wins) {
			n = len(s.Distribution.Wins)
		}
		s.Distribution.Wins[n-1]++
		if o.StreakValid {
			s.CurrentStreak++
		} else {
			s.CurrentStreak = 1
		}
	} else {
		s.Distribution.Fail++
		s.CurrentStreak = 0
	}
	s.MaxStreak = max(s.MaxStreak, s.CurrentStreak)
}

var (
	ErrInvalidPlay   = errors.New("stats: more plays than puzzles")
	ErrInvalidStreak = errors.New("stats: inconsistent streak")
	ErrNegative      = errors.New("stats: negative counter")
)

// Validate checks imported stats for consistency. maxPlays is the number
// of puzzles published so far; 0 disables that check.
func Validate(s GameStats, maxPlays int) error {
	for _, n := range s.Distribution.Wins {
		if n < 0 {
			return ErrNegative
		}
	}
	if s.Distribution.Fail < 0 || s.CurrentStreak < 0 || s.MaxStreak < 0 {
		return ErrNegative
	}
	if maxPlays > 0 && TotalPlay(s) > maxPlays {
		return ErrInvalidPlay
	}
	if s.CurrentStreak > s.MaxStreak {
		return fmt.Errorf("%w: current %d > max %d", ErrInvalidStreak, s.CurrentStreak, s.MaxStreak)
	}
	if s.MaxStreak > TotalWin(s) {
		return fmt.Errorf("%w: max %d > wins %d", ErrInvalidStreak, s.MaxStreak, TotalWin(s))
	}
	return nil
}

// MarshalJSON writes the keyed distribution object.
func (d Distribution) MarshalJSON() ([]byte, error) {
	m := make(map[string]int, len(d.Wins)+1)
	for i, n := range d.Wins {
		m[strconv.Itoa(i+1)] = n
	}
	m["fail"] = d.Fail
	return json.Marshal(m)
}

// UnmarshalJSON reads the keyed distribution object. Missing keys are 0.
func (d *Distribution) UnmarshalJSON(b []byte) error {
	var m map[string]int
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*d = Distribution{Fail: m["fail"]}
	for i := range d.Wins {
		d.Wins[i] = m[strconv.Itoa(i+1)]
	}
	return nil
}

var congratulations = [...]string{
	"congrats.1", "congrats.2", "congrats.3", "congrats.4", "congrats.5", "congrats.6",
}

// CongratulationKey returns the message key shown after winning on the
// given attempt (1..6). Out-of-range attempts clamp to the ends.
func CongratulationKey(attempt int) string {
	attempt = min(max(attempt, 1), len(congratulations))
	return congratulations[attempt-1]
}

var ErrInvalidScores = errors.New("stats: scores must be 9 non-negative integers")

// ParseScores reads "a,b,c,d,e,f,fail,current,max": the win counts for
// one to six attempts, failures, and the two streaks.
func ParseScores(s string) (GameStats, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 9 {
		return GameStats{}, ErrInvalidScores
	}
	n := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 {
			return GameStats{}, ErrInvalidScores
		}
		n[i] = v
	}
	var gs GameStats
	copy(gs.Distribution.Wins[:], n[:6])
	gs.Distribution.Fail = n[6]
	gs.CurrentStreak, gs.MaxStreak = n[7], n[8]
	return gs, nil
}
