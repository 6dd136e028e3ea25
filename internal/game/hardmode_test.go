package game

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHardModeMustUsePresentLetter(t *testing.T) {
	// babat vs benua: b correct at 1, a present
	v := CheckHardMode("babat", "sekop", "benua")
	require.NotNil(t, v)
	assert.Equal(t, Violation{Letter: "a"}, *v)
}

func TestHardModeMustMatchCorrectPosition(t *testing.T) {
	v := CheckHardMode("babat", "kamar", "benua")
	require.NotNil(t, v)
	assert.Equal(t, Violation{Letter: "b", Position: 1}, *v)

	// semua vs benua: e, u, a correct at 2, 4, 5
	v = CheckHardMode("semua", "senja", "benua")
	require.NotNil(t, v)
	assert.Equal(t, Violation{Letter: "u", Position: 4}, *v)
}

func TestHardModeMustUseWinsOverMustMatch(t *testing.T) {
	v := CheckHardMode("babat", "lemon", "benua")
	require.NotNil(t, v)
	assert.Equal(t, Violation{Letter: "a"}, *v)
}

func TestHardModePresentLettersInFirstSeenOrder(t *testing.T) {
	// arung vs nadir: a, r, n present; candidate lacks r and n
	v := CheckHardMode("arung", "lapak", "nadir")
	require.NotNil(t, v)
	assert.Equal(t, "r", v.Letter)
	assert.Zero(t, v.Position)
}

func TestHardModeValidCandidate(t *testing.T) {
	assert.Nil(t, CheckHardMode("babat", "bakat", "benua"))
	assert.Nil(t, CheckHardMode("zzzzz", "qqqqq", "benua"))
}

func TestValidateHardModeNeedsPriorAttempt(t *testing.T) {
	h := NewHistory()
	assert.Nil(t, ValidateHardMode(h, "lemon", "benua"))

	h.Answers[0] = "babat"
	h.Attempt = 1
	v := ValidateHardMode(h, "lemon", "benua")
	require.NotNil(t, v)

	err := error(&HardModeError{Violation: *v})
	var hm *HardModeError
	require.True(t, errors.As(err, &hm))
	assert.Contains(t, err.Error(), "must be used")
}
