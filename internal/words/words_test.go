package words

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbedded(t *testing.T) {
	l, err := Load("", "")
	require.NoError(t, err)

	ans, allowed := l.Stats()
	assert.Greater(t, ans, 100)
	assert.Greater(t, allowed, ans)
	assert.Equal(t, "ganar", l.Answers()[0])

	assert.True(t, l.IsValidWord("nanar"))
	assert.True(t, l.IsValidWord("GANAR"))
	assert.False(t, l.IsValidWord("zzzzz"))
	assert.False(t, l.IsValidWord("gan"))
}

func TestAnswersAreAlwaysValid(t *testing.T) {
	l, err := Load("", "")
	require.NoError(t, err)
	for _, a := range l.Answers() {
		assert.True(t, l.IsValidWord(a), a)
	}
}

func TestNewNormalizes(t *testing.T) {
	l := New([]string{" Katla ", "katla", "kat", "ka-la"}, []string{"BABAT", "semua", "sem ua"})
	assert.Equal(t, []string{"katla"}, l.Answers())
	assert.Equal(t, []string{"babat", "katla", "semua"}, l.Words())
	assert.True(t, l.IsAnswer("KATLA"))
	assert.False(t, l.IsAnswer("babat"))
}

func TestLoadFromFiles(t *testing.T) {
	dir := t.TempDir()
	ans := filepath.Join(dir, "answers.csv")
	allowed := filepath.Join(dir, "words.txt")
	require.NoError(t, os.WriteFile(ans, []byte("ganar,\npakar,\n"), 0o644))
	require.NoError(t, os.WriteFile(allowed, []byte("# words\nnanar\nsyair\n"), 0o644))

	l, err := Load(ans, allowed)
	require.NoError(t, err)
	assert.Equal(t, []string{"ganar", "pakar"}, l.Answers())
	assert.Equal(t, []string{"ganar", "nanar", "pakar", "syair"}, l.Words())

	l, err = Load("", allowed)
	require.NoError(t, err)
	assert.Equal(t, []string{"nanar", "syair"}, l.Answers())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load("", filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("\n"), 0o644))
	_, err = Load("", empty)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestRandomAnswer(t *testing.T) {
	l := New([]string{"ganar", "pakar"}, nil)
	assert.Contains(t, l.Answers(), l.RandomAnswer(nil))
	assert.Equal(t, "syair", l.RandomAnswer([]string{"syair"}))
	assert.Equal(t, "", New(nil, nil).RandomAnswer(nil))
}
