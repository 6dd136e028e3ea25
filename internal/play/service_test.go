package play

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/katla/internal/codec"
	"github.com/robalobadob/katla/internal/daily"
	"github.com/robalobadob/katla/internal/game"
	"github.com/robalobadob/katla/internal/state"
	"github.com/robalobadob/katla/internal/stats"
	"github.com/robalobadob/katla/internal/store"
	"github.com/robalobadob/katla/internal/words"
)

var wib = time.FixedZone("WIB", 7*3600)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Add(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type mockRecorder struct{ mock.Mock }

func (m *mockRecorder) InsertResult(ctx context.Context, r daily.Result) error {
	return m.Called(ctx, r).Error(0)
}

type fixture struct {
	clock    *clock
	provider store.Provider
	source   *daily.Source
	words    *words.List
	rec      *mockRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cal, err := daily.NewCalendar("2022-01-20", 7)
	require.NoError(t, err)

	answers := make([]string, 25)
	for i := range answers {
		answers[i] = fmt.Sprintf("kat%c%c", 'a'+i/26, 'a'+i%26)
	}
	answers[18], answers[19], answers[20] = "pakar", "ganar", "syair"

	return &fixture{
		clock:    &clock{t: time.Date(2022, 2, 9, 10, 0, 0, 0, wib)},
		provider: store.NewMemory(),
		source:   &daily.Source{Cal: cal, Answers: answers, Salt: "test"},
		words:    words.New(answers, []string{"nanar", "babat", "benua", "semua"}),
		rec:      &mockRecorder{},
	}
}

func (f *fixture) service() *Service {
	return New(Config{
		Source:         f.source,
		Words:          f.words,
		Provider:       f.provider,
		Results:        f.rec,
		RevealDuration: game.DefaultRevealDuration,
		ShareURL:       "https://katla.id",
		Now:            f.clock.Now,
	})
}

func (f *fixture) expectResult(num, guesses int, won bool) {
	f.rec.On("InsertResult", mock.Anything, mock.MatchedBy(func(r daily.Result) bool {
		return r.PlayerID == "p1" && r.Num == num && r.Guesses == guesses && r.Won == won
	})).Return(nil).Once()
}

func TestGanarEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.expectResult(20, 2, true)
	svc := f.service()

	v := svc.Game(ctx, "p1")
	assert.Equal(t, "ready", v.State)
	assert.Equal(t, 20, v.Num)
	assert.Equal(t, "2022-02-09", v.Date)
	assert.Empty(t, v.Answer)

	out, err := svc.Submit(ctx, "p1", "nanar")
	require.NoError(t, err)
	assert.Equal(t, []game.LetterState{game.Absent, game.Correct, game.Correct, game.Correct, game.Correct}, out.Result.States)
	assert.False(t, out.Result.Finished)
	assert.Equal(t, "reveal_animating", out.View.Phase)

	f.clock.Add(game.DefaultRevealDuration)
	out, err = svc.Submit(ctx, "p1", "GANAR")
	require.NoError(t, err)
	assert.True(t, out.Result.Won)
	assert.True(t, out.Result.Finished)
	assert.Equal(t, 2, out.Result.Attempt)
	assert.Equal(t, "congrats.2", out.MessageKey)
	assert.Equal(t, "ganar", out.View.Answer)
	assert.Equal(t, "Katla 20 2/6\n\n⬛🟩🟩🟩🟩\n🟩🟩🟩🟩🟩\n\nhttps://katla.id", out.View.Share)

	sv := svc.Stats(ctx, "p1")
	assert.Equal(t, 1, sv.Distribution.Wins[1])
	assert.Equal(t, 1, sv.CurrentStreak)
	assert.Equal(t, 100, sv.WinRate)
	f.rec.AssertExpectations(t)
}

func TestSubmitLockedWhileRevealing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.service()

	_, err := svc.Submit(ctx, "p1", "nanar")
	require.NoError(t, err)
	_, err = svc.Submit(ctx, "p1", "pakar")
	assert.ErrorIs(t, err, game.ErrAnimating)
	_, err = svc.Input(ctx, "p1", "a")
	assert.ErrorIs(t, err, game.ErrAnimating)

	f.clock.Add(game.DefaultRevealDuration)
	_, err = svc.Submit(ctx, "p1", "pakar")
	assert.NoError(t, err)
}

func TestStatsRecordedOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.expectResult(20, 1, true)
	svc := f.service()

	_, err := svc.Submit(ctx, "p1", "ganar")
	require.NoError(t, err)
	f.clock.Add(game.DefaultRevealDuration)
	_, err = svc.Submit(ctx, "p1", "ganar")
	assert.ErrorIs(t, err, game.ErrFinished)

	// a restarted process resumes the finished board without re-recording
	restarted := f.service()
	v := restarted.Game(ctx, "p1")
	assert.True(t, v.Finished)
	assert.Equal(t, 1, stats.TotalPlay(v.Stats.GameStats))
	f.rec.AssertExpectations(t)
}

func TestLossRecordsFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.expectResult(20, 6, false)
	svc := f.service()

	var out SubmitOutcome
	var err error
	for i := 0; i < game.MaxAttempts; i++ {
		out, err = svc.Submit(ctx, "p1", "pakar")
		require.NoError(t, err)
		f.clock.Add(game.DefaultRevealDuration)
	}
	assert.True(t, out.Result.Finished)
	assert.False(t, out.Result.Won)
	assert.Equal(t, "answer", out.MessageKey)
	assert.Equal(t, 1, out.View.Stats.Distribution.Fail)
	assert.Equal(t, 0, out.View.Stats.CurrentStreak)

	raw, ok, err := f.provider.For("p1").Get(ctx, state.KeyGameState)
	require.NoError(t, err)
	require.True(t, ok)
	g := state.DecodeGameState(raw, ok)
	assert.Nil(t, g.Value.LastCompletedDate, "only wins set the completion date")
}

func TestProgressSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.service().Submit(ctx, "p1", "nanar")
	require.NoError(t, err)

	v := f.service().Game(ctx, "p1")
	assert.Equal(t, 1, v.Attempt)
	assert.Equal(t, "nanar", v.Answers[0])
	require.Len(t, v.Evaluations, 1)
}

func TestRejectedGuessKeepsSavedBoard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.service()

	on := true
	svc.UpdateSettings(ctx, "p1", Settings{HardMode: &on})
	_, err := svc.Submit(ctx, "p1", "nanar")
	require.NoError(t, err)
	f.clock.Add(3 * time.Second)

	for _, w := range []string{"abcdefg", "12345", "zzzzz"} {
		_, err = svc.Submit(ctx, "p1", w)
		assert.ErrorIs(t, err, game.ErrNotInWordList, w)
	}

	svc.Forget("p1")
	v := svc.Game(ctx, "p1")
	assert.Equal(t, 1, v.Attempt)
	assert.Equal(t, "nanar", v.Answers[0])
	assert.Empty(t, v.Answers[1])
	assert.True(t, v.HardMode)

	res, err := state.New(f.provider.For("p1")).GameState(ctx)
	require.NoError(t, err)
	assert.Equal(t, state.Decoded, res.Status)
}

func TestIdleSessionsAreEvicted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.service()

	_, err := svc.Submit(ctx, "p1", "nanar")
	require.NoError(t, err)
	_, err = svc.Archive(ctx, "p1", 19)
	require.NoError(t, err)

	f.clock.Add(DefaultIdleTTL + time.Hour)
	svc.Game(ctx, "p2")

	svc.mu.Lock()
	assert.NotContains(t, svc.sessions, "p1")
	assert.Contains(t, svc.sessions, "p2")
	assert.Empty(t, svc.archives)
	svc.mu.Unlock()

	v := svc.Game(ctx, "p1")
	assert.Equal(t, 1, v.Attempt)
	assert.Equal(t, "nanar", v.Answers[0])
}

func TestRolloverResetsBoardAndKeepsStreak(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.expectResult(20, 1, true)
	f.expectResult(21, 1, true)
	svc := f.service()

	_, err := svc.Submit(ctx, "p1", "ganar")
	require.NoError(t, err)

	f.clock.Add(24 * time.Hour)
	v := svc.Game(ctx, "p1")
	assert.Equal(t, 21, v.Num)
	assert.Equal(t, 0, v.Attempt)
	assert.False(t, v.Finished)

	out, err := svc.Submit(ctx, "p1", "syair")
	require.NoError(t, err)
	assert.True(t, out.Result.Won)
	assert.Equal(t, 2, out.View.Stats.CurrentStreak)
	assert.Equal(t, 2, out.View.Stats.MaxStreak)
	f.rec.AssertExpectations(t)
}

func TestStreakBreaksAfterGap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.rec.On("InsertResult", mock.Anything, mock.Anything).Return(nil)
	svc := f.service()

	_, err := svc.Submit(ctx, "p1", "ganar")
	require.NoError(t, err)

	f.clock.Add(48 * time.Hour)
	v := svc.Game(ctx, "p1")
	require.Equal(t, 22, v.Num)
	out, err := svc.Submit(ctx, "p1", f.source.Word(22))
	require.NoError(t, err)
	assert.Equal(t, 1, out.View.Stats.CurrentStreak)
	assert.Equal(t, 1, out.View.Stats.MaxStreak)
}

func TestInvalidWordIsTracked(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.service()

	_, err := svc.Submit(ctx, "p1", "zzzzz")
	assert.ErrorIs(t, err, game.ErrNotInWordList)
	_, err = svc.Submit(ctx, "p1", "gan")
	assert.ErrorIs(t, err, game.ErrNotEnoughLetters)

	words, err := state.New(f.provider.For("p1")).InvalidWords(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"zzzzz"}, words)
	assert.Equal(t, 0, svc.Game(ctx, "p1").Attempt)
}

func TestInputKeys(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.service()

	for _, k := range []string{"n", "A", "n", "a", "r", "x"} {
		_, err := svc.Input(ctx, "p1", k)
		require.NoError(t, err)
	}
	out, err := svc.Input(ctx, "p1", "backspace")
	require.NoError(t, err)
	assert.Equal(t, "nana", out.View.Answers[0])

	_, err = svc.Input(ctx, "p1", "enter")
	assert.ErrorIs(t, err, game.ErrNotEnoughLetters)

	_, err = svc.Input(ctx, "p1", "r")
	require.NoError(t, err)
	out, err = svc.Input(ctx, "p1", "Enter")
	require.NoError(t, err)
	assert.Equal(t, 1, out.Result.Attempt)

	_, err = svc.Input(ctx, "p1", "F5")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestHardModeSetting(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.service()

	on := true
	v := svc.UpdateSettings(ctx, "p1", Settings{HardMode: &on, HighContrast: &on})
	assert.True(t, v.HardMode)
	assert.True(t, v.HighContrast)

	_, err := svc.Submit(ctx, "p1", "nanar")
	require.NoError(t, err)
	f.clock.Add(game.DefaultRevealDuration)

	_, err = svc.Submit(ctx, "p1", "babat")
	var hm *game.HardModeError
	require.ErrorAs(t, err, &hm)
	assert.Equal(t, game.Violation{Letter: "n", Position: 3}, hm.Violation)

	// settings survive a restart
	assert.True(t, f.service().Game(ctx, "p1").HardMode)
}

func TestNoStorageStillPlays(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.provider = store.Unavailable{}
	f.expectResult(20, 1, true)
	svc := f.service()

	v := svc.Game(ctx, "p1")
	assert.Equal(t, "no-storage", v.State)

	out, err := svc.Submit(ctx, "p1", "ganar")
	require.NoError(t, err)
	assert.True(t, out.Result.Won)
	assert.Equal(t, 1, out.View.Stats.Distribution.Wins[0])
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.service()

	_, err := svc.Submit(ctx, "p1", "nanar")
	require.NoError(t, err)
	svc.Reset(ctx, "p1")

	_, ok, err := f.provider.For("p1").Get(ctx, state.KeyGameState)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, svc.Game(ctx, "p1").Attempt)
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.service()

	p := ImportPayload{
		GameState: json.RawMessage(`{"answers":["nanar","","","","",""],"attempt":1,"lastCompletedDate":null}`),
		GameStats: json.RawMessage(`{"distribution":{"1":1,"2":0,"3":0,"4":0,"5":0,"6":0,"fail":0},"currentStreak":1,"maxStreak":1}`),
		LastHash:  codec.Encode("ganar"),
	}
	require.NoError(t, svc.Import(ctx, "p1", p))

	v := svc.Game(ctx, "p1")
	assert.Equal(t, 1, v.Attempt)
	assert.Equal(t, 1, v.Stats.Distribution.Wins[0])

	p.GameState = json.RawMessage(`{"answers":"nope"}`)
	assert.ErrorIs(t, svc.Import(ctx, "p1", p), ErrInvalidImport)
}

func TestImportStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.service()

	_, err := svc.ImportStats(ctx, "p1", "wrong", "1,0,0,0,0,0,0,1,1")
	assert.ErrorIs(t, err, ErrInvalidCode)

	sv, err := svc.ImportStats(ctx, "p1", codec.Encode("katla"), "1,2,0,0,0,0,1,2,3")
	require.NoError(t, err)
	assert.Equal(t, 4, sv.TotalPlay)

	// more plays than puzzles published so far
	_, err = svc.ImportStats(ctx, "p1", codec.Encode("katla"), "30,0,0,0,0,0,0,0,0")
	assert.ErrorIs(t, err, stats.ErrInvalidPlay)

	_, err = svc.ImportStats(ctx, "p1", codec.Encode("katla"), "1,0,0,0,0,0,0,2,1")
	assert.ErrorIs(t, err, stats.ErrInvalidStreak)

	assert.Equal(t, 4, svc.Stats(ctx, "p1").TotalPlay)
}

func TestArchive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.service()

	v, err := svc.Archive(ctx, "p1", 19)
	require.NoError(t, err)
	assert.Equal(t, "2022-02-08", v.Date)

	out, err := svc.ArchiveSubmit(ctx, "p1", 19, "pakar")
	require.NoError(t, err)
	assert.True(t, out.Result.Won)
	assert.Equal(t, "congrats.1", out.MessageKey)
	assert.Equal(t, 0, stats.TotalPlay(svc.Stats(ctx, "p1").GameStats))

	_, err = svc.Archive(ctx, "p1", 21)
	assert.ErrorIs(t, err, daily.ErrNotFound)
}
