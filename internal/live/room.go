// internal/live/room.go
//
// Versus room actor.
// Responsibilities:
//   - Own every member's board, presence and win count on one goroutine.
//   - Pick an unused word per round and publish its token.
//   - Detect the round's end (a win, or everyone failed) and start the
//     next round after NewGameDelay.
//
// Members are keyed by player id so a reconnect resumes the same board.

package live

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/robalobadob/katla/internal/codec"
	"github.com/robalobadob/katla/internal/game"
	"github.com/robalobadob/katla/internal/messages"
	"github.com/robalobadob/katla/internal/state"
	"github.com/robalobadob/katla/internal/store"
)

var (
	ErrRoomClosed = errors.New("live: room closed")
	ErrNoRound    = errors.New("live: round not started")
	ErrNotHost    = errors.New("live: only the host can start a round")
)

// DefaultNewGameDelay is the pause between a round's end and the next one.
const DefaultNewGameDelay = 5 * time.Second

// Words is the word list a room plays with.
type Words interface {
	game.WordChecker
	Answers() []string
	RandomAnswer(pool []string) string
}

// Config is shared by every room of a Hub.
type Config struct {
	Words          Words
	Provider       store.Provider
	Messages       *messages.Localizer
	Lang           string
	NewGameDelay   time.Duration
	RevealDuration time.Duration
	Now            func() time.Time
	// AfterFunc schedules f after d and returns a stop function. It
	// defaults to time.AfterFunc.
	AfterFunc func(d time.Duration, f func()) (stop func() bool)
}

func (c Config) withDefaults() Config {
	if c.Provider == nil {
		c.Provider = store.NewMemory()
	}
	if c.Lang == "" {
		c.Lang = messages.DefaultLang
	}
	if c.NewGameDelay <= 0 {
		c.NewGameDelay = DefaultNewGameDelay
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.AfterFunc == nil {
		c.AfterFunc = func(d time.Duration, f func()) func() bool {
			return time.AfterFunc(d, f).Stop
		}
	}
	return c
}

type member struct {
	player   string
	username string
	host     bool
	client   *Client
	store    *state.Store
	live     state.LiveGameState
	board    *game.Board
	presence Presence
}

type envelope struct {
	from *Client
	msg  ClientMessage
}

type joinRequest struct {
	client *Client
	err    chan error
}

// Snapshot is a point-in-time view of a room.
type Snapshot struct {
	ID        string     `json:"id"`
	Num       int        `json:"num"`
	Hash      string     `json:"hash"`
	RoundOver bool       `json:"roundOver"`
	Presences []Presence `json:"presences"`
}

type Room struct {
	id  string
	cfg Config
	ctx context.Context

	members   map[string]*member
	order     []string
	hashes    []string
	round     int
	roundOver bool
	stopTimer func() bool

	joins     chan joinRequest
	leaves    chan *Client
	inbox     chan envelope
	newRound  chan int
	snapshots chan chan Snapshot
	quit      chan struct{}
	done      chan struct{}
	onClose   func(*Room)
}

func newRoom(id string, cfg Config, onClose func(*Room)) *Room {
	return &Room{
		id:        id,
		cfg:       cfg,
		members:   make(map[string]*member),
		joins:     make(chan joinRequest),
		leaves:    make(chan *Client, 16),
		inbox:     make(chan envelope, 256),
		newRound:  make(chan int, 1),
		snapshots: make(chan chan Snapshot),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		onClose:   onClose,
	}
}

func (r *Room) ID() string { return r.id }

func (r *Room) run() {
	ctx, cancel := context.WithCancel(context.Background())
	r.ctx = ctx
	defer cancel()
	defer r.shutdown()

	for {
		select {
		case req := <-r.joins:
			r.handleJoin(req.client)
			req.err <- nil
		case c := <-r.leaves:
			if r.handleLeave(c) {
				log.Info().Str("room", r.id).Int("rounds", len(r.hashes)).Msg("live room empty, closing")
				return
			}
		case env := <-r.inbox:
			r.handleMessage(env)
		case n := <-r.newRound:
			if n == r.round {
				r.startNewGame()
			}
		case resp := <-r.snapshots:
			resp <- r.snapshot()
		case <-r.quit:
			return
		}
	}
}

func (r *Room) shutdown() {
	r.cancelTimer()
	for _, m := range r.members {
		if m.client != nil {
			close(m.client.out)
			m.client = nil
		}
	}
	close(r.done)
	if r.onClose != nil {
		r.onClose(r)
	}
}

// Close stops the room and disconnects its members.
func (r *Room) Close() {
	select {
	case <-r.quit:
	default:
		close(r.quit)
	}
	<-r.done
}

func (r *Room) join(ctx context.Context, c *Client) error {
	req := joinRequest{client: c, err: make(chan error, 1)}
	select {
	case r.joins <- req:
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.err:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Room) leave(c *Client) {
	select {
	case r.leaves <- c:
	case <-r.done:
	}
}

func (r *Room) deliver(env envelope) bool {
	select {
	case r.inbox <- env:
		return true
	case <-r.done:
		return false
	}
}

// Snapshot asks the room for its current state.
func (r *Room) Snapshot(ctx context.Context) (Snapshot, error) {
	resp := make(chan Snapshot, 1)
	select {
	case r.snapshots <- resp:
	case <-r.done:
		return Snapshot{}, ErrRoomClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case s := <-resp:
		return s, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (r *Room) latest() string {
	if len(r.hashes) == 0 {
		return ""
	}
	return r.hashes[len(r.hashes)-1]
}

func (r *Room) handleJoin(c *Client) {
	m := r.members[c.player]
	if m == nil {
		m = &member{player: c.player, store: state.New(r.cfg.Provider.For(c.player))}
		r.load(m)
		r.members[c.player] = m
		r.order = append(r.order, c.player)
		if len(r.hashes) > 0 {
			r.resetMember(m)
		}
	} else if m.client != nil {
		close(m.client.out)
	}
	m.client = c
	m.username = c.username
	m.host = m.host || c.host
	m.presence.Username = c.username
	m.presence.Host = m.host

	if len(r.hashes) > 0 {
		c.send(Event{Type: EventHash, Num: len(r.hashes), Hash: r.latest()})
	}
	live := m.live
	c.send(Event{Type: EventState, State: &live})
	log.Debug().Str("room", r.id).Str("player", c.player).Str("username", c.username).Msg("live member joined")

	if len(r.hashes) == 0 && r.connected() > 1 {
		r.startNewGame()
		return
	}
	r.broadcastPresence()
}

// handleLeave disconnects c and reports whether the room is now empty.
func (r *Room) handleLeave(c *Client) bool {
	m := r.members[c.player]
	if m == nil || m.client != c {
		return false
	}
	close(c.out)
	m.client = nil
	log.Debug().Str("room", r.id).Str("player", c.player).Msg("live member left")
	if r.connected() == 0 {
		return true
	}
	// the leaver may have been the last one still guessing
	if r.round > 0 && !r.roundOver && r.othersFailed(nil) {
		r.lose()
	}
	r.broadcastPresence()
	return false
}

func (r *Room) handleMessage(env envelope) {
	m := r.members[env.from.player]
	if m == nil || m.client != env.from {
		return
	}
	switch env.msg.Type {
	case MsgSubmit:
		r.submit(m, env.msg.Guess)
	case MsgEmoji:
		if env.msg.Emoji == "" {
			return
		}
		r.broadcast(Event{
			Type:     EventEmoji,
			Username: m.username,
			Emoji:    env.msg.Emoji,
			Message:  r.format("live.emoji", m.username),
		}, m)
	case MsgStart:
		if !m.host {
			r.sendError(m, ErrNotHost)
			return
		}
		// host restart: forget used words and begin again
		r.hashes = nil
		r.startNewGame()
	default:
		r.sendError(m, errUnknownMessage)
	}
}

var errUnknownMessage = errors.New("live: unknown message type")

// startNewGame publishes a word no earlier round of this room used and
// resets every member's board.
func (r *Room) startNewGame() {
	r.cancelTimer()
	unused := lo.Filter(r.cfg.Words.Answers(), func(w string, _ int) bool {
		return !lo.Contains(r.hashes, codec.Encode(w))
	})
	word := r.cfg.Words.RandomAnswer(unused)
	if word == "" {
		log.Error().Str("room", r.id).Msg("live room has no answers to play")
		return
	}
	r.hashes = append(r.hashes, codec.Encode(word))
	r.round++
	r.roundOver = false

	for _, id := range r.order {
		r.resetMember(r.members[id])
	}
	r.broadcast(Event{Type: EventStart}, nil)
	r.broadcast(Event{Type: EventHash, Num: len(r.hashes), Hash: r.latest()}, nil)
	for _, m := range r.members {
		if m.client != nil {
			live := m.live
			m.client.send(Event{Type: EventState, State: &live})
		}
	}
	r.broadcastPresence()
	log.Info().Str("room", r.id).Int("num", len(r.hashes)).Msg("live round started")
}

// resetMember clears the member's board for the current round. Settings
// and win count carry over.
func (r *Room) resetMember(m *member) {
	m.live.GameState = m.live.WithHistory(game.NewHistory())
	m.live.LastCompletedDate = nil
	m.board = game.NewBoard(codec.Decode(r.latest()), game.NewHistory(), r.cfg.Words, game.Options{
		HardMode:       m.live.EnableHardMode,
		RevealDuration: r.cfg.RevealDuration,
		Now:            r.cfg.Now,
	})
	m.presence.Scores = defaultScores()
	m.presence.IsFailed = false
	m.presence.WinCount = m.live.WinCount
	r.save(m)
}

func (r *Room) submit(m *member, guess string) {
	if m.board == nil {
		r.sendError(m, ErrNoRound)
		return
	}
	if r.roundOver {
		r.sendError(m, game.ErrFinished)
		return
	}
	res, err := m.board.SubmitWord(guess)
	if err != nil {
		r.sendError(m, err)
		return
	}

	scores := Scores(res.States)
	total := TotalScore(scores)
	m.live.GameState = m.live.WithHistory(m.board.History())
	m.presence.Scores = scores
	m.presence.IsFailed = res.Attempt == game.MaxAttempts && total != game.WordLength
	m.client.send(Event{Type: EventResult, Result: &res})

	secs := int(r.cfg.NewGameDelay / time.Second)
	switch {
	case total == game.WordLength:
		m.live.WinCount++
		m.presence.WinCount = m.live.WinCount
		r.roundOver = true
		r.broadcast(Event{
			Type:     EventWin,
			Username: m.username,
			Message:  r.format("live.win", m.username, secs),
		}, nil)
		r.schedule()
	case m.presence.IsFailed && r.othersFailed(m):
		r.lose()
	}
	r.save(m)
	r.broadcastPresence()
}

// lose ends the round without a winner and reveals the answer.
func (r *Room) lose() {
	answer := codec.Decode(r.latest())
	r.roundOver = true
	r.broadcast(Event{
		Type:    EventLose,
		Answer:  answer,
		Message: r.format("live.lose", answer, int(r.cfg.NewGameDelay/time.Second)),
	}, nil)
	r.schedule()
}

// othersFailed reports whether every other connected member failed.
func (r *Room) othersFailed(self *member) bool {
	for _, m := range r.members {
		if m != self && m.client != nil && !m.presence.IsFailed {
			return false
		}
	}
	return true
}

func (r *Room) schedule() {
	r.cancelTimer()
	round := r.round
	r.stopTimer = r.cfg.AfterFunc(r.cfg.NewGameDelay, func() {
		select {
		case r.newRound <- round:
		case <-r.done:
		}
	})
}

func (r *Room) cancelTimer() {
	if r.stopTimer != nil {
		r.stopTimer()
		r.stopTimer = nil
	}
}

func (r *Room) connected() int {
	return lo.CountBy(lo.Values(r.members), func(m *member) bool { return m.client != nil })
}

func (r *Room) presences() []Presence {
	out := make([]Presence, 0, len(r.order))
	for _, id := range r.order {
		m := r.members[id]
		if m.client == nil {
			continue
		}
		p := m.presence
		p.Scores = append([]float64(nil), p.Scores...)
		out = append(out, p)
	}
	return out
}

func (r *Room) broadcastPresence() {
	r.broadcast(Event{Type: EventPresence, Presences: r.presences()}, nil)
}

// broadcast sends ev to every connected member except skip.
func (r *Room) broadcast(ev Event, skip *member) {
	for _, id := range r.order {
		m := r.members[id]
		if m != skip && m.client != nil {
			m.client.send(ev)
		}
	}
}

func (r *Room) snapshot() Snapshot {
	return Snapshot{
		ID:        r.id,
		Num:       len(r.hashes),
		Hash:      r.latest(),
		RoundOver: r.roundOver,
		Presences: r.presences(),
	}
}

func (r *Room) sendError(m *member, err error) {
	if m.client == nil {
		return
	}
	key := errorKey(err)
	msg := err.Error()
	if r.cfg.Messages != nil {
		msg = r.cfg.Messages.Get(r.cfg.Lang, key)
		if key == messages.ErrorKey(err) {
			msg = r.cfg.Messages.Error(r.cfg.Lang, err)
		}
	}
	m.client.send(Event{Type: EventError, Error: key, Message: msg})
}

func errorKey(err error) string {
	switch {
	case errors.Is(err, ErrNotHost):
		return "error.forbidden"
	case errors.Is(err, ErrNoRound), errors.Is(err, errUnknownMessage):
		return "error.invalid_request"
	}
	return messages.ErrorKey(err)
}

func (r *Room) format(key string, args ...any) string {
	if r.cfg.Messages == nil {
		return ""
	}
	return r.cfg.Messages.Format(r.cfg.Lang, key, args...)
}

// load restores the member's settings and win count. The stored board
// belongs to whatever room the player was last in and is not resumed.
func (r *Room) load(m *member) {
	res, err := m.store.LiveGameState(r.ctx)
	if err != nil {
		log.Warn().Err(err).Str("player", m.player).Msg("load live state")
		return
	}
	if res.Status == state.Decoded {
		m.live.WinCount = res.Value.WinCount
		m.live.EnableHardMode = res.Value.EnableHardMode
		m.live.EnableHighContrast = res.Value.EnableHighContrast
	}
	m.presence.WinCount = m.live.WinCount
	m.presence.Scores = defaultScores()
}

func (r *Room) save(m *member) {
	if err := m.store.SetLiveGameState(r.ctx, m.live); err != nil && !errors.Is(err, store.ErrUnavailable) {
		log.Warn().Err(err).Str("player", m.player).Msg("save live state")
	}
}
