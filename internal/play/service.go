// internal/play/service.go
//
// Per-player game flow for the daily puzzle.
// Responsibilities:
//   - Load each player's persisted state and reconcile it against the
//     published puzzle tuple (daily.Scheduler).
//   - Keep a live game.Board per player so the reveal lock spans requests.
//   - Persist every change, record statistics exactly once per finished
//     puzzle, and record the daily result for the leaderboard.
//
// Storage failures never fail a request: the session degrades to the
// no-storage state and keeps playing on in-memory state.

package play

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/katla/internal/codec"
	"github.com/robalobadob/katla/internal/daily"
	"github.com/robalobadob/katla/internal/game"
	"github.com/robalobadob/katla/internal/state"
	"github.com/robalobadob/katla/internal/stats"
	"github.com/robalobadob/katla/internal/store"
)

var (
	ErrInvalidKey    = errors.New("play: invalid key")
	ErrInvalidImport = errors.New("play: invalid import")
	ErrInvalidCode   = errors.New("play: invalid code")
)

// ResultRecorder receives finished daily puzzles.
type ResultRecorder interface {
	InsertResult(ctx context.Context, r daily.Result) error
}

// Config wires a Service.
type Config struct {
	Source         *daily.Source
	Words          game.WordChecker
	Provider       store.Provider
	Results        ResultRecorder
	RevealDuration time.Duration
	ShareURL       string
	// IdleTTL evicts cached sessions and archive boards untouched for
	// longer. Zero means DefaultIdleTTL.
	IdleTTL time.Duration
	Now     func() time.Time
}

const DefaultIdleTTL = 6 * time.Hour

// Service owns every player's daily session.
type Service struct {
	cfg Config
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
	archives map[archiveKey]*archiveGame
	swept    time.Time
}

func New(cfg Config) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	if cfg.Provider == nil {
		cfg.Provider = store.NewMemory()
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	return &Service{
		cfg:      cfg,
		now:      now,
		sessions: make(map[string]*session),
		archives: make(map[archiveKey]*archiveGame),
	}
}

type session struct {
	mu      sync.Mutex
	player  string
	st      *state.Store
	sched   *daily.Scheduler
	tuple   codec.Hashed
	current daily.Decision
	game    state.GameState
	stats   stats.GameStats
	board   *game.Board
	started time.Time
	seen    time.Time // guarded by Service.mu
}

func (s *session) ephemeral() bool { return s.sched.State() == daily.NoStorage }

// lock returns the player's session, locked and reconciled. The caller
// unlocks it.
func (s *Service) lock(ctx context.Context, player string) *session {
	s.mu.Lock()
	now := s.now()
	s.sweep(now)
	sess := s.sessions[player]
	if sess == nil {
		sess = &session{
			player: player,
			st:     state.New(s.cfg.Provider.For(player)),
			sched:  daily.NewScheduler(s.cfg.Source.Cal, s.now),
		}
		s.sessions[player] = sess
	}
	sess.seen = now
	s.mu.Unlock()

	sess.mu.Lock()
	s.refresh(ctx, sess)
	return sess
}

// sweep drops sessions and archive boards idle for longer than IdleTTL.
// Evicted sessions reload from storage on the next request. Callers hold
// s.mu.
func (s *Service) sweep(now time.Time) {
	if now.Sub(s.swept) < s.cfg.IdleTTL/4 {
		return
	}
	s.swept = now
	for p, sess := range s.sessions {
		if now.Sub(sess.seen) > s.cfg.IdleTTL {
			delete(s.sessions, p)
		}
	}
	for k, ag := range s.archives {
		if now.Sub(ag.seen) > s.cfg.IdleTTL {
			delete(s.archives, k)
		}
	}
}

// refresh reconciles when the published tuple changed, or when the
// session still shows the previous puzzle and the latest one is now due.
func (s *Service) refresh(ctx context.Context, sess *session) {
	now := s.now()
	tuple := s.cfg.Source.Latest(now)
	due := !now.Before(s.cfg.Source.Cal.ActivationTime(tuple.Num))
	if sess.board != nil && tuple == sess.tuple && (sess.current.Active == tuple.Latest || !due) {
		return
	}

	d := sess.sched.Apply(ctx, sess.st, tuple)
	sess.tuple = tuple
	if sess.board != nil && d.Active == sess.current.Active && !d.Reset {
		sess.current = d.Decision
		return
	}

	sess.current = d.Decision
	sess.game = d.Game
	sess.started = time.Time{}
	if !sess.ephemeral() {
		res, err := sess.st.Stats(ctx)
		if err != nil {
			log.Warn().Err(err).Str("player", sess.player).Msg("load stats")
		}
		sess.stats = res.Value
	}
	sess.board = game.NewBoard(codec.Decode(d.Active), sess.game.History(), s.cfg.Words, game.Options{
		HardMode:       sess.game.EnableHardMode,
		RevealDuration: s.cfg.RevealDuration,
		Now:            s.now,
	})
	log.Debug().Str("player", sess.player).Int("num", d.Num).Str("state", d.State.String()).
		Bool("reset", d.Reset).Msg("puzzle reconciled")
}

func (s *Service) saveGame(ctx context.Context, sess *session) {
	sess.game = sess.game.WithHistory(sess.board.History())
	if sess.ephemeral() {
		return
	}
	if err := sess.st.SetGameState(ctx, sess.game); err != nil {
		log.Warn().Err(err).Str("player", sess.player).Msg("save game state")
	}
}

func (s *Service) saveStats(ctx context.Context, sess *session) {
	if sess.ephemeral() {
		return
	}
	if err := sess.st.SetStats(ctx, sess.stats); err != nil {
		log.Warn().Err(err).Str("player", sess.player).Msg("save stats")
	}
}

// Game returns the player's current view.
func (s *Service) Game(ctx context.Context, player string) View {
	sess := s.lock(ctx, player)
	defer sess.mu.Unlock()
	return s.view(sess)
}

// Submit submits guess, or the typed slot when guess is empty.
func (s *Service) Submit(ctx context.Context, player, guess string) (SubmitOutcome, error) {
	sess := s.lock(ctx, player)
	defer sess.mu.Unlock()
	return s.submit(ctx, sess, guess)
}

func (s *Service) submit(ctx context.Context, sess *session, guess string) (SubmitOutcome, error) {
	if sess.started.IsZero() {
		sess.started = s.now()
	}

	var res game.SubmitResult
	var err error
	word := strings.ToLower(strings.TrimSpace(guess))
	if word == "" {
		h := sess.board.History()
		word = h.Answers[h.Attempt]
		res, err = sess.board.Submit()
	} else {
		res, err = sess.board.SubmitWord(word)
	}
	if err != nil {
		// rejected guesses leave the board untouched, so there is nothing to save
		if errors.Is(err, game.ErrNotInWordList) && !sess.ephemeral() {
			if err := sess.st.AddInvalidWord(ctx, word); err != nil {
				log.Warn().Err(err).Str("player", sess.player).Msg("track invalid word")
			}
		}
		return SubmitOutcome{}, err
	}

	out := SubmitOutcome{Result: res}
	sess.game = sess.game.WithHistory(sess.board.History())
	if res.Finished {
		out.MessageKey = s.finish(ctx, sess, res)
	}
	s.saveGame(ctx, sess)
	out.View = s.view(sess)
	return out, nil
}

// finish records the outcome of a puzzle that just ended and returns the
// message key to show.
func (s *Service) finish(ctx context.Context, sess *session, res game.SubmitResult) string {
	now := s.now()
	loc := s.cfg.Source.Cal.Loc
	o := stats.Outcome{Won: res.Won, Attempts: res.Attempt}
	key := "answer"
	if res.Won {
		o.StreakValid = stats.StreakIsValid(sess.game.CompletedDate(loc), now, loc)
		ms := now.UnixMilli()
		sess.game.LastCompletedDate = &ms
		key = stats.CongratulationKey(res.Attempt)
	}
	stats.Record(&sess.stats, o)
	s.saveStats(ctx, sess)

	if s.cfg.Results != nil {
		r := daily.Result{
			PlayerID: sess.player,
			Num:      sess.current.Num,
			Date:     s.cfg.Source.Cal.DateKey(s.cfg.Source.Cal.ActivationTime(sess.current.Num)),
			Guesses:  res.Attempt,
			Won:      res.Won,
		}
		if !sess.started.IsZero() {
			r.ElapsedMs = now.Sub(sess.started).Milliseconds()
		}
		if err := s.cfg.Results.InsertResult(ctx, r); err != nil {
			log.Warn().Err(err).Str("player", sess.player).Int("num", r.Num).Msg("record daily result")
		}
	}
	log.Info().Str("player", sess.player).Int("num", sess.current.Num).Bool("won", res.Won).
		Int("attempts", res.Attempt).Msg("puzzle finished")
	return key
}

// Input applies one key press: a letter, "backspace" or "enter".
func (s *Service) Input(ctx context.Context, player, key string) (SubmitOutcome, error) {
	sess := s.lock(ctx, player)
	defer sess.mu.Unlock()

	key = strings.ToLower(strings.TrimSpace(key))
	var err error
	switch {
	case key == "enter":
		return s.submit(ctx, sess, "")
	case key == "backspace":
		err = sess.board.Backspace()
	case len(key) == 1 && key[0] >= 'a' && key[0] <= 'z':
		if sess.started.IsZero() && !sess.board.Finished() {
			sess.started = s.now()
		}
		err = sess.board.Type(rune(key[0]))
	default:
		return SubmitOutcome{}, ErrInvalidKey
	}
	if err != nil {
		return SubmitOutcome{}, err
	}
	s.saveGame(ctx, sess)
	return SubmitOutcome{View: s.view(sess)}, nil
}

// Settings are optional toggles; nil leaves a setting unchanged.
type Settings struct {
	HardMode     *bool `json:"enableHardMode"`
	HighContrast *bool `json:"enableHighContrast"`
}

func (s *Service) UpdateSettings(ctx context.Context, player string, in Settings) View {
	sess := s.lock(ctx, player)
	defer sess.mu.Unlock()

	if in.HardMode != nil {
		sess.game.EnableHardMode = *in.HardMode
		sess.board.SetHardMode(*in.HardMode)
	}
	if in.HighContrast != nil {
		sess.game.EnableHighContrast = *in.HighContrast
	}
	s.saveGame(ctx, sess)
	return s.view(sess)
}

// Forget drops cached sessions so the next request reloads them from
// storage.
func (s *Service) Forget(players ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range players {
		delete(s.sessions, p)
	}
}

// Reset forgets the player's game state, stats and marker.
func (s *Service) Reset(ctx context.Context, player string) {
	s.mu.Lock()
	delete(s.sessions, player)
	s.mu.Unlock()

	if err := state.New(s.cfg.Provider.For(player)).Clear(ctx); err != nil {
		log.Warn().Err(err).Str("player", player).Msg("reset session")
	}
}

// Stats returns the player's statistics.
func (s *Service) Stats(ctx context.Context, player string) StatsView {
	sess := s.lock(ctx, player)
	defer sess.mu.Unlock()
	return newStatsView(sess.stats)
}

// ImportPayload is the state another origin pushes to this one.
type ImportPayload struct {
	GameState json.RawMessage `json:"gameState"`
	GameStats json.RawMessage `json:"gameStats"`
	LastHash  string          `json:"lastHash"`
}

// Import overwrites the player's state with p. Both blobs must decode.
func (s *Service) Import(ctx context.Context, player string, p ImportPayload) error {
	g := state.DecodeGameState(string(p.GameState), len(p.GameState) > 0)
	st := state.DecodeStats(string(p.GameStats), len(p.GameStats) > 0)
	if g.Status != state.Decoded || st.Status != state.Decoded || p.LastHash == "" {
		return ErrInvalidImport
	}

	s.mu.Lock()
	delete(s.sessions, player)
	s.mu.Unlock()

	ss := state.New(s.cfg.Provider.For(player))
	if err := ss.SetGameState(ctx, g.Value); err != nil {
		return err
	}
	if err := ss.SetStats(ctx, st.Value); err != nil {
		return err
	}
	return ss.SetLastHash(ctx, p.LastHash)
}

// ImportStats replaces the player's statistics with scores after checking
// them against the number of puzzles published so far.
func (s *Service) ImportStats(ctx context.Context, player, code, scores string) (StatsView, error) {
	if code != codec.Encode("katla") {
		return StatsView{}, ErrInvalidCode
	}
	gs, err := stats.ParseScores(scores)
	if err != nil {
		return StatsView{}, err
	}
	if err := stats.Validate(gs, s.cfg.Source.Current(s.now())); err != nil {
		return StatsView{}, err
	}

	sess := s.lock(ctx, player)
	defer sess.mu.Unlock()
	sess.stats = gs
	if sess.ephemeral() {
		return newStatsView(gs), nil
	}
	if err := sess.st.SetStats(ctx, gs); err != nil {
		return StatsView{}, err
	}
	return newStatsView(gs), nil
}
