package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreMarksCorrectCharacters(t *testing.T) {
	assert.Equal(t,
		[]LetterState{Absent, Correct, Absent, Correct, Correct},
		Score("semua", "benua"))
}

func TestScorePrioritizesCorrectBeforePresent(t *testing.T) {
	cases := []struct {
		guess, answer string
		want          []LetterState
	}{
		{"babat", "benua", []LetterState{Correct, Present, Absent, Absent, Absent}},
		{"gagap", "ganar", []LetterState{Correct, Correct, Absent, Correct, Absent}},
		{"nanar", "ganar", []LetterState{Absent, Correct, Correct, Correct, Correct}},
		// left-most repeated letter claims the single remaining occurrence
		{"aabbb", "xxxxa", []LetterState{Present, Absent, Absent, Absent, Absent}},
		{"kakak", "akkaa", []LetterState{Present, Present, Correct, Correct, Absent}},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Score(c.guess, c.answer), "%s vs %s", c.guess, c.answer)
	}
}

func TestScoreSelfMatchIsAllCorrect(t *testing.T) {
	for _, w := range []string{"ganar", "benua", "kakak", "aaaaa", "syair"} {
		states := Score(w, w)
		assert.True(t, IsWin(states), w)
	}
}

func TestScoreAllAbsent(t *testing.T) {
	for _, s := range Score("zzzzz", "benua") {
		assert.Equal(t, Absent, s)
	}
}

func TestScoreLengthMismatch(t *testing.T) {
	assert.Equal(t, []LetterState{Correct, Correct, Absent}, Score("abz", "ab"))
	assert.Len(t, Score("", "benua"), 0)
	assert.False(t, IsWin(nil))
}
