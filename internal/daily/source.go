package daily

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/robalobadob/katla/internal/codec"
)

// ErrNotFound is returned for puzzles that are not published yet.
var ErrNotFound = errors.New("daily: puzzle not found")

// Source publishes puzzle tuples from an ordered answers list.
//
// Latest looks Lead ahead of now, so a client loading the page shortly
// before midnight already holds tomorrow's token and switches to it by
// itself once its clock passes the activation time.
type Source struct {
	Cal     Calendar
	Answers []string
	Lead    time.Duration
	Salt    string

	mu     sync.Mutex
	filled []string // words of the puzzles after the list, in order
}

// Word returns the answer of puzzle num. Puzzles past the end of the list
// are picked by WordIndex on their activation date, never repeating the
// previous day's word.
func (s *Source) Word(num int) string {
	if len(s.Answers) == 0 || num < 1 {
		return ""
	}
	if num <= len(s.Answers) {
		return s.Answers[num-1]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.Answers[len(s.Answers)-1]
	if len(s.filled) > 0 {
		prev = s.filled[len(s.filled)-1]
	}
	for n := len(s.Answers) + len(s.filled) + 1; n <= num; n++ {
		prev = s.fill(n, prev)
		s.filled = append(s.filled, prev)
	}
	return s.filled[num-len(s.Answers)-1]
}

// fill picks the word of puzzle num, rehashing the date key while it
// matches prev.
func (s *Source) fill(num int, prev string) string {
	key := s.Cal.DateKey(s.Cal.ActivationTime(num))
	idx := WordIndex(key, s.Salt, len(s.Answers))
	for k := 1; s.Answers[idx] == prev && k <= 16; k++ {
		idx = WordIndex(key+"#"+strconv.Itoa(k), s.Salt, len(s.Answers))
	}
	if s.Answers[idx] == prev {
		idx = (idx + 1) % len(s.Answers)
	}
	return s.Answers[idx]
}

// Latest returns the tuple published at now.
func (s *Source) Latest(now time.Time) codec.Hashed {
	num := max(s.Cal.NumAt(now.Add(s.Lead)), 1)
	h := codec.Hashed{
		Num:    num,
		Date:   s.Cal.DateKey(s.Cal.ActivationTime(num)),
		Latest: codec.Encode(s.Word(num)),
	}
	if num > 1 {
		h.Previous = codec.Encode(s.Word(num - 1))
	}
	return h
}

// Current returns the number of the puzzle active at now.
func (s *Source) Current(now time.Time) int {
	return max(s.Cal.NumAt(now), 1)
}

// Archive returns an already active puzzle. Archive tuples have no
// previous token.
func (s *Source) Archive(num int, now time.Time) (codec.Hashed, error) {
	if num < 1 || num > s.Cal.NumAt(now) || len(s.Answers) == 0 {
		return codec.Hashed{}, ErrNotFound
	}
	return codec.Hashed{
		Num:    num,
		Date:   s.Cal.DateKey(s.Cal.ActivationTime(num)),
		Latest: codec.Encode(s.Word(num)),
	}, nil
}
