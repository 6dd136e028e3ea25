package daily

import (
	"context"
	"database/sql"
	"fmt"
)

// Result is one player's finished daily puzzle.
type Result struct {
	PlayerID  string `json:"playerId"`
	Num       int    `json:"num"`
	Date      string `json:"date"`
	Guesses   int    `json:"guesses"`
	Won       bool   `json:"won"`
	ElapsedMs int64  `json:"elapsedMs"`
}

// Store keeps daily results in the daily_results table.
type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) AlreadyPlayed(ctx context.Context, playerID string, num int) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM daily_results WHERE player_id=? AND num=?`,
		playerID, num,
	).Scan(&cnt)
	return cnt > 0, err
}

// InsertResult records r. A second result for the same player and puzzle
// is ignored.
func (s *Store) InsertResult(ctx context.Context, r Result) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO daily_results (player_id, num, date, guesses, won, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.PlayerID, r.Num, r.Date, r.Guesses, r.Won, r.ElapsedMs,
	)
	if err != nil {
		return fmt.Errorf("insert daily result: %w", err)
	}
	return nil
}

// LBRow is one leaderboard line.
type LBRow struct {
	PlayerID  string `json:"playerId"`
	Guesses   int    `json:"guesses"`
	ElapsedMs int64  `json:"elapsedMs"`
}

// Leaderboard returns the winners of puzzle num, fewest guesses first,
// then fastest. limit <= 0 means 20.
func (s *Store) Leaderboard(ctx context.Context, num, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT player_id, guesses, elapsed_ms
		FROM daily_results
		WHERE num = ? AND won = 1
		ORDER BY guesses ASC, elapsed_ms ASC, created_at ASC
		LIMIT ?`, num, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]LBRow, 0, limit)
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.PlayerID, &r.Guesses, &r.ElapsedMs); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
