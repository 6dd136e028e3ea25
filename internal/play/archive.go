package play

import (
	"context"
	"strings"
	"time"

	"github.com/robalobadob/katla/internal/codec"
	"github.com/robalobadob/katla/internal/game"
	"github.com/robalobadob/katla/internal/stats"
)

// Archive puzzles are played on ephemeral boards: nothing is persisted and
// statistics are untouched.

type archiveKey struct {
	player string
	num    int
}

type archiveGame struct {
	hash  string
	board *game.Board
	seen  time.Time
}

func (s *Service) archiveBoard(player string, num int) (*archiveGame, error) {
	now := s.now()
	s.sweep(now)
	key := archiveKey{player, num}
	if ag := s.archives[key]; ag != nil {
		ag.seen = now
		return ag, nil
	}
	h, err := s.cfg.Source.Archive(num, s.now())
	if err != nil {
		return nil, err
	}
	ag := &archiveGame{
		hash: h.Latest,
		seen: now,
		board: game.NewBoard(codec.Decode(h.Latest), game.NewHistory(), s.cfg.Words, game.Options{
			RevealDuration: s.cfg.RevealDuration,
			Now:            s.now,
		}),
	}
	s.archives[key] = ag
	return ag, nil
}

func (s *Service) archiveView(ag *archiveGame, num int) View {
	v := boardView(ag.board, num, ag.hash, s.cfg.ShareURL, false)
	v.State = "no-storage"
	v.Date = s.cfg.Source.Cal.DateKey(s.cfg.Source.Cal.ActivationTime(num))
	return v
}

// Archive returns the player's board for archive puzzle num.
func (s *Service) Archive(ctx context.Context, player string, num int) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ag, err := s.archiveBoard(player, num)
	if err != nil {
		return View{}, err
	}
	return s.archiveView(ag, num), nil
}

// ArchiveSubmit submits guess on archive puzzle num.
func (s *Service) ArchiveSubmit(ctx context.Context, player string, num int, guess string) (SubmitOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ag, err := s.archiveBoard(player, num)
	if err != nil {
		return SubmitOutcome{}, err
	}
	res, err := ag.board.SubmitWord(strings.ToLower(guess))
	if err != nil {
		return SubmitOutcome{}, err
	}
	out := SubmitOutcome{Result: res, View: s.archiveView(ag, num)}
	if res.Finished {
		out.MessageKey = "answer"
		if res.Won {
			out.MessageKey = stats.CongratulationKey(res.Attempt)
		}
	}
	return out, nil
}
