// Package daily decides which puzzle a player sees on a given day.
//
// Puzzle n activates at midnight of epoch+n days in the calendar's fixed
// offset; answers[n-1] is its word. The source publishes the tuple of the
// latest and previous tokens, and the scheduler reconciles that tuple with
// what the player saw last.
package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"time"
)

const (
	DateLayout = "2006-01-02"
	day        = 24 * time.Hour
)

// Calendar maps wall-clock time to puzzle numbers.
type Calendar struct {
	Epoch time.Time
	Loc   *time.Location
}

// NewCalendar builds a calendar whose days start at midnight UTC+offsetHours
// and whose puzzle 0 is the epoch date (YYYY-MM-DD).
func NewCalendar(epoch string, offsetHours int) (Calendar, error) {
	loc := time.FixedZone(fmt.Sprintf("UTC%+d", offsetHours), offsetHours*3600)
	e, err := time.ParseInLocation(DateLayout, epoch, loc)
	if err != nil {
		return Calendar{}, fmt.Errorf("parse epoch %q: %w", epoch, err)
	}
	return Calendar{Epoch: e, Loc: loc}, nil
}

// DateKey returns YYYY-MM-DD of t in the calendar's zone.
func (c Calendar) DateKey(t time.Time) string {
	return t.In(c.Loc).Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD date as midnight in the calendar's zone.
func (c Calendar) ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, c.Loc)
}

// NumForDate is ceil((date - epoch) / day), the number of the puzzle that
// activates on date.
func (c Calendar) NumForDate(date time.Time) int {
	d := date.Sub(c.Epoch)
	n := int(d / day)
	if d%day > 0 {
		n++
	}
	return n
}

// NumAt is the number of the puzzle already active at t.
func (c Calendar) NumAt(t time.Time) int {
	d := t.Sub(c.Epoch)
	n := int(d / day)
	if d < 0 && d%day != 0 {
		n--
	}
	return n
}

// ActivationTime is midnight of the day puzzle num becomes active.
func (c Calendar) ActivationTime(num int) time.Time {
	return c.Epoch.AddDate(0, 0, num)
}

// WordIndex returns a deterministic index for a date key using
// HMAC(salt, YYYY-MM-DD) % answersLen.
func WordIndex(dateKey, salt string, answersLen int) int {
	if answersLen <= 0 {
		return 0
	}
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(dateKey))
	sum := h.Sum(nil)
	// first 8 bytes as uint64 for modulus distribution
	n := binary.BigEndian.Uint64(sum[:8])
	return int(n % uint64(answersLen))
}
