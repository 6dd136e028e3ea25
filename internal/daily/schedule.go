package daily

import (
	"context"
	"fmt"
	"time"

	"github.com/robalobadob/katla/internal/codec"
	"github.com/robalobadob/katla/internal/game"
	"github.com/robalobadob/katla/internal/state"
	"github.com/robalobadob/katla/internal/store"
)

// State is the scheduler's lifecycle.
type State int

const (
	// Init: persisted state not loaded yet.
	Init State = iota
	// NoStorage: persistence unavailable, playing on ephemeral state.
	NoStorage
	// Ready: reconciled, active puzzle known.
	Ready
)

func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case NoStorage:
		return "no-storage"
	case Ready:
		return "ready"
	}
	return "unknown"
}

// Input is everything a reconciliation looks at.
type Input struct {
	Tuple            codec.Hashed
	LastSeen         string
	HasLastSeen      bool
	StorageAvailable bool
	// Activation is when Tuple.Latest becomes active.
	Activation time.Time
	Now        time.Time
}

// Decision says which token is active and what to write back.
type Decision struct {
	State  State
	Active string
	Num    int
	// Persist: store Active as the last seen token.
	Persist bool
	// Reset: empty the attempt history and the invalid word list.
	Reset bool
}

// Reconcile decides the active puzzle. It is pure: the same Input always
// yields the same Decision.
func Reconcile(in Input) Decision {
	t := in.Tuple
	latest := Decision{State: Ready, Active: t.Latest, Num: t.Num}
	previous := Decision{State: Ready, Active: t.Previous, Num: t.Num - 1}
	due := !in.Now.Before(in.Activation)

	switch {
	case !in.StorageAvailable:
		latest.State = NoStorage
		return latest

	case !in.HasLastSeen:
		if !due && t.Previous != "" {
			previous.Persist = true
			return previous
		}
		latest.Persist = true
		return latest

	case in.LastSeen == t.Latest:
		return latest

	case due, t.Previous == "":
		latest.Persist, latest.Reset = true, true
		return latest

	case in.LastSeen != t.Previous:
		previous.Persist, previous.Reset = true, true
		return previous

	default:
		return previous
	}
}

// Session is the reconciled puzzle plus the player's game state for it.
type Session struct {
	Decision
	Game state.GameState
}

// Scheduler applies Reconcile decisions to a player's persisted state.
type Scheduler struct {
	cal   Calendar
	now   func() time.Time
	state State
}

// NewScheduler returns a scheduler in the Init state. A nil now uses
// time.Now.
func NewScheduler(cal Calendar, now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{cal: cal, now: now}
}

// State reports the lifecycle state after the last Apply.
func (s *Scheduler) State() State { return s.state }

// Apply reconciles tuple against st. Storage that fails the write check, or
// fails mid-way, yields a NoStorage session on default state rather than
// an error.
func (s *Scheduler) Apply(ctx context.Context, st *state.Store, tuple codec.Hashed) Session {
	in := Input{
		Tuple:            tuple,
		StorageAvailable: store.Writable(ctx, st.KV()),
		Now:              s.now(),
	}
	if act, err := s.cal.ParseDate(tuple.Date); err == nil {
		in.Activation = act
	} else {
		in.Activation = s.cal.ActivationTime(tuple.Num)
	}

	if in.StorageAvailable {
		last, ok, err := st.LastHash(ctx)
		if err != nil {
			in.StorageAvailable = false
		} else {
			in.LastSeen, in.HasLastSeen = last, ok && last != ""
		}
	}

	d := Reconcile(in)
	if d.State == NoStorage {
		s.state = NoStorage
		return Session{Decision: d}
	}

	sess, err := s.commit(ctx, st, d)
	if err != nil {
		in.StorageAvailable = false
		s.state = NoStorage
		return Session{Decision: Reconcile(in)}
	}
	s.state = d.State
	return sess
}

func (s *Scheduler) commit(ctx context.Context, st *state.Store, d Decision) (Session, error) {
	res, err := st.GameState(ctx)
	if err != nil {
		return Session{}, err
	}
	g := res.Value
	if d.Reset {
		g = g.WithHistory(game.NewHistory())
		if err := st.SetGameState(ctx, g); err != nil {
			return Session{}, err
		}
		if err := st.SetInvalidWords(ctx, nil); err != nil {
			return Session{}, err
		}
	}
	if d.Persist {
		if err := st.SetLastHash(ctx, d.Active); err != nil {
			return Session{}, fmt.Errorf("persist marker: %w", err)
		}
	}
	return Session{Decision: d, Game: g}, nil
}
