package play

import (
	"github.com/robalobadob/katla/internal/game"
	"github.com/robalobadob/katla/internal/stats"
)

// View is what a client needs to draw the board.
type View struct {
	State        string                   `json:"state"`
	Num          int                      `json:"num"`
	Hash         string                   `json:"hash"`
	Date         string                   `json:"date"`
	Answers      [game.MaxAttempts]string `json:"answers"`
	Attempt      int                      `json:"attempt"`
	Evaluations  [][]game.LetterState     `json:"evaluations"`
	Phase        string                   `json:"phase"`
	Finished     bool                     `json:"finished"`
	Won          bool                     `json:"won"`
	Answer       string                   `json:"answer,omitempty"`
	HardMode     bool                     `json:"enableHardMode"`
	HighContrast bool                     `json:"enableHighContrast"`
	Share        string                   `json:"share,omitempty"`
	Stats        *StatsView               `json:"stats,omitempty"`
}

// SubmitOutcome is returned for key presses and submissions. Result is
// zero unless a guess was committed; MessageKey is set when the puzzle
// just finished.
type SubmitOutcome struct {
	Result     game.SubmitResult `json:"result"`
	MessageKey string            `json:"messageKey,omitempty"`
	View       View              `json:"view"`
}

// StatsView adds derived totals to the stored counters.
type StatsView struct {
	stats.GameStats
	TotalPlay int `json:"totalPlay"`
	TotalWin  int `json:"totalWin"`
	WinRate   int `json:"winRate"`
}

func newStatsView(gs stats.GameStats) StatsView {
	return StatsView{
		GameStats: gs,
		TotalPlay: stats.TotalPlay(gs),
		TotalWin:  stats.TotalWin(gs),
		WinRate:   stats.WinRate(gs),
	}
}

// boardView fills the board part of a View. The answer and share text
// are only revealed once the puzzle is over.
func boardView(b *game.Board, num int, hash, shareURL string, highContrast bool) View {
	h := b.History()
	v := View{
		Num:          num,
		Hash:         hash,
		Answers:      h.Answers,
		Attempt:      h.Attempt,
		Evaluations:  make([][]game.LetterState, 0, h.Attempt),
		Phase:        b.Phase().String(),
		Finished:     b.Finished(),
		Won:          h.Won(b.Answer()),
		HardMode:     b.HardMode(),
		HighContrast: highContrast,
	}
	for _, g := range h.Completed() {
		v.Evaluations = append(v.Evaluations, game.Score(g, b.Answer()))
	}
	if v.Finished {
		v.Answer = b.Answer()
		v.Share = game.ShareText(num, h, b.Answer(), highContrast, shareURL)
	}
	return v
}

func (s *Service) view(sess *session) View {
	v := boardView(sess.board, sess.current.Num, sess.current.Active, s.cfg.ShareURL, sess.game.EnableHighContrast)
	v.State = sess.sched.State().String()
	v.Date = s.cfg.Source.Cal.DateKey(s.cfg.Source.Cal.ActivationTime(sess.current.Num))
	sv := newStatsView(sess.stats)
	v.Stats = &sv
	return v
}
