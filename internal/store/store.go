// internal/store/store.go
//
// Persistence provider for per-player state.
//
// Every player gets a KV scoped to their owner id (anonymous cookie or user
// id). Implementations:
//   - Memory:      map-based, lost on restart (development, tests).
//   - SQLite:      kv table in the server database.
//   - Unavailable: every call fails, the equivalent of a browser with
//                  storage disabled. Callers degrade to ephemeral state.

package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
)

// ErrUnavailable is returned by providers that cannot persist anything.
var ErrUnavailable = errors.New("store: storage unavailable")

// KV is the narrow get/set/remove capability the game core consumes.
type KV interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Provider hands out KVs scoped to one owner.
type Provider interface {
	For(owner string) KV
}

// Claimer is implemented by providers that can move an anonymous owner's
// keys to a signed-in account.
type Claimer interface {
	Claim(ctx context.Context, from, to string) error
}

// Writable reports whether kv can round-trip a value, writing and removing a
// random katla:test:* key.
func Writable(ctx context.Context, kv KV) bool {
	var b [5]byte
	_, _ = rand.Read(b[:])
	key := "katla:test:" + hex.EncodeToString(b[:])
	want := hex.EncodeToString(b[:])[:5]

	if err := kv.Set(ctx, key, want); err != nil {
		return false
	}
	got, ok, err := kv.Get(ctx, key)
	if err != nil || !ok {
		return false
	}
	_ = kv.Remove(ctx, key)
	return got == want
}

// Unavailable is a Provider whose KVs always fail.
type Unavailable struct{}

func (Unavailable) For(string) KV { return unavailableKV{} }

type unavailableKV struct{}

func (unavailableKV) Get(context.Context, string) (string, bool, error) {
	return "", false, ErrUnavailable
}
func (unavailableKV) Set(context.Context, string, string) error { return ErrUnavailable }
func (unavailableKV) Remove(context.Context, string) error      { return ErrUnavailable }
