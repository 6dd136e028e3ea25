package live

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/katla/internal/codec"
	"github.com/robalobadob/katla/internal/game"
	"github.com/robalobadob/katla/internal/messages"
	"github.com/robalobadob/katla/internal/state"
	"github.com/robalobadob/katla/internal/store"
	"github.com/robalobadob/katla/internal/words"
)

const roomID = "kt-abc-123"

type timers struct {
	mu  sync.Mutex
	fns []func()
}

func (tm *timers) AfterFunc(d time.Duration, f func()) func() bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.fns = append(tm.fns, f)
	return func() bool { return true }
}

func (tm *timers) fire(t *testing.T) {
	t.Helper()
	tm.mu.Lock()
	require.NotEmpty(t, tm.fns, "no timer scheduled")
	f := tm.fns[len(tm.fns)-1]
	tm.fns = nil
	tm.mu.Unlock()
	f()
}

type harness struct {
	hub      *Hub
	timers   *timers
	provider store.Provider
}

func newHarness(t *testing.T, answers ...string) *harness {
	t.Helper()
	loc, err := messages.Default()
	require.NoError(t, err)
	h := &harness{timers: &timers{}, provider: store.NewMemory()}
	h.hub = NewHub(Config{
		Words:     words.New(answers, []string{"nanar", "babat", "benua", "semua"}),
		Provider:  h.provider,
		Messages:  loc,
		AfterFunc: h.timers.AfterFunc,
	})
	t.Cleanup(h.hub.Close)
	return h
}

func (h *harness) join(t *testing.T, player, username string, host bool) *Client {
	t.Helper()
	c := NewClient(player, username, host, nil)
	require.NoError(t, h.hub.Join(context.Background(), roomID, c))
	return c
}

func send(t *testing.T, c *Client, msg ClientMessage) {
	t.Helper()
	require.True(t, c.room.deliver(envelope{from: c, msg: msg}))
}

func next(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case b, ok := <-c.out:
		require.True(t, ok, "outbox closed")
		var ev Event
		require.NoError(t, json.Unmarshal(b, &ev))
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

// await skips events until one of type typ arrives.
func await(t *testing.T, c *Client, typ string) Event {
	t.Helper()
	for {
		if ev := next(t, c); ev.Type == typ {
			return ev
		}
	}
}

// startRound joins two players and returns them with the round's word.
func startRound(t *testing.T, h *harness) (*Client, *Client, string) {
	t.Helper()
	a := h.join(t, "p1", "andi", true)
	await(t, a, EventPresence)
	b := h.join(t, "p2", "budi", false)

	await(t, a, EventStart)
	ev := await(t, a, EventHash)
	assert.Equal(t, 1, ev.Num)
	await(t, b, EventStart)
	assert.Equal(t, ev.Hash, await(t, b, EventHash).Hash)
	await(t, a, EventPresence)
	await(t, b, EventPresence)
	return a, b, codec.Decode(ev.Hash)
}

func TestScores(t *testing.T) {
	s := Scores([]game.LetterState{game.Correct, game.Present, game.Absent, game.Correct, game.Present})
	assert.Equal(t, []float64{1, 0.5, 0, 1, 0.5}, s)
	assert.Equal(t, 3.0, TotalScore(s))
	assert.Equal(t, 0.0, TotalScore(defaultScores()))
}

func TestRoundStartsWhenSecondMemberJoins(t *testing.T) {
	h := newHarness(t, "ganar")
	a := h.join(t, "p1", "andi", true)

	ev := await(t, a, EventPresence)
	require.Len(t, ev.Presences, 1)
	assert.Equal(t, "andi", ev.Presences[0].Username)
	assert.True(t, ev.Presences[0].Host)

	b := h.join(t, "p2", "budi", false)
	st := await(t, b, EventState)
	require.NotNil(t, st.State)
	assert.Equal(t, 0, st.State.WinCount)

	await(t, a, EventStart)
	ev = await(t, a, EventHash)
	assert.Equal(t, 1, ev.Num)
	assert.Equal(t, "ganar", codec.Decode(ev.Hash))
}

func TestWinBroadcastsAndStartsNextRound(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "ganar", "pakar")
	a, b, word := startRound(t, h)

	send(t, a, ClientMessage{Type: MsgSubmit, Guess: word})
	res := await(t, a, EventResult)
	require.NotNil(t, res.Result)
	assert.True(t, res.Result.Won)

	win := await(t, b, EventWin)
	assert.Equal(t, "andi", win.Username)
	assert.Equal(t, "Selamat, andi!!\nRonde selanjutnya akan dimulai dalam 5 detik", win.Message)

	p := await(t, b, EventPresence)
	require.Len(t, p.Presences, 2)
	assert.Equal(t, 1, p.Presences[0].WinCount)
	assert.Equal(t, []float64{1, 1, 1, 1, 1}, p.Presences[0].Scores)

	// the round is over until the next one starts
	send(t, b, ClientMessage{Type: MsgSubmit, Guess: word})
	assert.Equal(t, "error.finished", await(t, b, EventError).Error)

	live, err := state.New(h.provider.For("p1")).LiveGameState(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, live.Value.WinCount)

	h.timers.fire(t)
	await(t, b, EventStart)
	ev := await(t, b, EventHash)
	assert.Equal(t, 2, ev.Num)
	assert.NotEqual(t, word, codec.Decode(ev.Hash), "a used word is not picked again")

	st := await(t, a, EventState)
	require.NotNil(t, st.State)
	assert.Equal(t, 0, st.State.Attempt)
	assert.Equal(t, 1, st.State.WinCount)
}

func TestLoseWhenEveryoneFails(t *testing.T) {
	h := newHarness(t, "ganar")
	a, b, _ := startRound(t, h)

	for i := 0; i < game.MaxAttempts; i++ {
		send(t, a, ClientMessage{Type: MsgSubmit, Guess: "babat"})
		await(t, a, EventResult)
	}
	p := await(t, b, EventPresence)
	for !p.Presences[0].IsFailed {
		p = await(t, b, EventPresence)
	}
	assert.False(t, p.Presences[1].IsFailed)

	for i := 0; i < game.MaxAttempts; i++ {
		send(t, b, ClientMessage{Type: MsgSubmit, Guess: "semua"})
		await(t, b, EventResult)
	}
	lose := await(t, a, EventLose)
	assert.Equal(t, "ganar", lose.Answer)
	assert.Equal(t, "Jawaban: ganar.\nRonde selanjutnya akan dimulai dalam 5 detik", lose.Message)

	h.timers.fire(t)
	assert.Equal(t, 2, await(t, a, EventHash).Num)
}

func TestLoseWhenLastPlayerStillGuessingLeaves(t *testing.T) {
	h := newHarness(t, "ganar")
	a, b, _ := startRound(t, h)
	c := h.join(t, "p3", "cici", false)
	await(t, c, EventState)

	for _, cl := range []*Client{b, c} {
		for i := 0; i < game.MaxAttempts; i++ {
			send(t, cl, ClientMessage{Type: MsgSubmit, Guess: "semua"})
			await(t, cl, EventResult)
		}
	}

	a.room.leave(a)
	for _, cl := range []*Client{b, c} {
		lose := await(t, cl, EventLose)
		assert.Equal(t, "ganar", lose.Answer)
	}
	h.timers.fire(t)
	assert.Equal(t, 2, await(t, b, EventHash).Num)
}

func TestInvalidGuessOnlyReachesSender(t *testing.T) {
	h := newHarness(t, "ganar")
	a, _, _ := startRound(t, h)

	send(t, a, ClientMessage{Type: MsgSubmit, Guess: "zzzzz"})
	ev := await(t, a, EventError)
	assert.Equal(t, "error.not_in_word_list", ev.Error)
	assert.Equal(t, "Tidak ada dalam KBBI", ev.Message)

	send(t, a, ClientMessage{Type: "dance"})
	assert.Equal(t, "error.invalid_request", await(t, a, EventError).Error)
}

func TestOnlyHostRestarts(t *testing.T) {
	h := newHarness(t, "ganar")
	a, b, _ := startRound(t, h)

	send(t, b, ClientMessage{Type: MsgStart})
	assert.Equal(t, "error.forbidden", await(t, b, EventError).Error)

	send(t, a, ClientMessage{Type: MsgSubmit, Guess: "nanar"})
	await(t, a, EventResult)
	send(t, a, ClientMessage{Type: MsgStart})
	await(t, b, EventStart)
	assert.Equal(t, 1, await(t, b, EventHash).Num, "restart forgets earlier rounds")
	st := await(t, a, EventState)
	assert.Equal(t, 0, st.State.Attempt)
}

func TestEmojiReachesOthers(t *testing.T) {
	h := newHarness(t, "ganar")
	a, b, _ := startRound(t, h)

	send(t, a, ClientMessage{Type: MsgEmoji, Emoji: "🔥"})
	ev := await(t, b, EventEmoji)
	assert.Equal(t, "🔥", ev.Emoji)
	assert.Equal(t, "andi", ev.Username)
	assert.Equal(t, "Pesan dari: andi", ev.Message)
}

func TestReconnectResumesBoard(t *testing.T) {
	h := newHarness(t, "ganar")
	a, _, _ := startRound(t, h)

	send(t, a, ClientMessage{Type: MsgSubmit, Guess: "nanar"})
	await(t, a, EventResult)

	a2 := h.join(t, "p1", "andi", true)
	assert.Equal(t, 1, await(t, a2, EventHash).Num)
	st := await(t, a2, EventState)
	require.NotNil(t, st.State)
	assert.Equal(t, 1, st.State.Attempt)
	assert.Equal(t, "nanar", st.State.Answers[0])

	// the replaced connection's outbox is closed
	require.Eventually(t, func() bool {
		for {
			select {
			case _, ok := <-a.out:
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, time.Second, 10*time.Millisecond)
}

func TestRoomClosesWhenEmpty(t *testing.T) {
	h := newHarness(t, "ganar")
	a, b, _ := startRound(t, h)

	a.room.leave(a)
	p := await(t, b, EventPresence)
	require.Len(t, p.Presences, 1)
	assert.Equal(t, "budi", p.Presences[0].Username)

	b.room.leave(b)
	require.Eventually(t, func() bool {
		_, ok := h.hub.Room(roomID)
		return !ok
	}, time.Second, 10*time.Millisecond)

	// a fresh room starts from scratch
	c := h.join(t, "p3", "cici", false)
	await(t, c, EventPresence)
	r, ok := h.hub.Room(roomID)
	require.True(t, ok)
	snap, err := r.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Num)
}
