package state

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samber/lo"

	"github.com/robalobadob/katla/internal/stats"
	"github.com/robalobadob/katla/internal/store"
)

// Store gives typed access to one player's KV.
type Store struct {
	kv store.KV
}

// New wraps kv.
func New(kv store.KV) *Store { return &Store{kv: kv} }

// KV returns the underlying key/value store.
func (s *Store) KV() store.KV { return s.kv }

func (s *Store) get(ctx context.Context, key string) (string, bool, error) {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	return raw, ok, nil
}

func (s *Store) setJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, string(b)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *Store) GameState(ctx context.Context) (Result[GameState], error) {
	raw, ok, err := s.get(ctx, KeyGameState)
	if err != nil {
		return Result[GameState]{}, err
	}
	return DecodeGameState(raw, ok), nil
}

func (s *Store) SetGameState(ctx context.Context, g GameState) error {
	return s.setJSON(ctx, KeyGameState, g)
}

func (s *Store) Stats(ctx context.Context) (Result[stats.GameStats], error) {
	raw, ok, err := s.get(ctx, KeyGameStats)
	if err != nil {
		return Result[stats.GameStats]{}, err
	}
	return DecodeStats(raw, ok), nil
}

func (s *Store) SetStats(ctx context.Context, gs stats.GameStats) error {
	return s.setJSON(ctx, KeyGameStats, gs)
}

// LastHash returns the last seen puzzle token and whether one is stored.
func (s *Store) LastHash(ctx context.Context) (string, bool, error) {
	return s.get(ctx, KeyLastHash)
}

func (s *Store) SetLastHash(ctx context.Context, token string) error {
	if err := s.kv.Set(ctx, KeyLastHash, token); err != nil {
		return fmt.Errorf("write %s: %w", KeyLastHash, err)
	}
	return nil
}

func (s *Store) InvalidWords(ctx context.Context) ([]string, error) {
	raw, ok, err := s.get(ctx, KeyInvalidWords)
	if err != nil {
		return nil, err
	}
	return DecodeInvalidWords(raw, ok).Value, nil
}

func (s *Store) SetInvalidWords(ctx context.Context, words []string) error {
	if words == nil {
		words = []string{}
	}
	return s.setJSON(ctx, KeyInvalidWords, words)
}

// AddInvalidWord appends w to the rejected-word list unless already there.
func (s *Store) AddInvalidWord(ctx context.Context, w string) error {
	words, err := s.InvalidWords(ctx)
	if err != nil {
		return err
	}
	if lo.Contains(words, w) {
		return nil
	}
	return s.SetInvalidWords(ctx, append(words, w))
}

func (s *Store) LiveGameState(ctx context.Context) (Result[LiveGameState], error) {
	raw, ok, err := s.get(ctx, KeyLiveGameState)
	if err != nil {
		return Result[LiveGameState]{}, err
	}
	return DecodeLiveGameState(raw, ok), nil
}

func (s *Store) SetLiveGameState(ctx context.Context, l LiveGameState) error {
	return s.setJSON(ctx, KeyLiveGameState, l)
}

// Clear removes the daily game state, stats and marker. Used by the
// settings reset.
func (s *Store) Clear(ctx context.Context) error {
	for _, k := range []string{KeyGameState, KeyGameStats, KeyLastHash} {
		if err := s.kv.Remove(ctx, k); err != nil {
			return fmt.Errorf("remove %s: %w", k, err)
		}
	}
	return nil
}
