package auth

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/robalobadob/katla/migrations"
)

func newUsers(t *testing.T) *Users {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Up(db))
	return NewUsers(db).WithCost(bcrypt.MinCost)
}

func TestSignupAndLogin(t *testing.T) {
	ctx := context.Background()
	users := newUsers(t)

	u, err := users.Create(ctx, "  pemain_1 ", "rahasia123")
	require.NoError(t, err)
	assert.Equal(t, "pemain_1", u.Username)
	assert.NotEmpty(t, u.ID)

	got, err := users.Authenticate(ctx, "PEMAIN_1", "rahasia123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = users.Authenticate(ctx, "pemain_1", "salah")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = users.Authenticate(ctx, "nobody", "rahasia123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	byID, err := users.ByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Username, byID.Username)
	_, err = users.ByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSignupRules(t *testing.T) {
	ctx := context.Background()
	users := newUsers(t)

	_, err := users.Create(ctx, "ab", "rahasia123")
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
	_, err = users.Create(ctx, "bad name", "rahasia123")
	assert.ErrorAs(t, err, &ve)
	_, err = users.Create(ctx, "katla", "short")
	assert.ErrorAs(t, err, &ve)

	_, err = users.Create(ctx, "katla", "rahasia123")
	require.NoError(t, err)
	_, err = users.Create(ctx, "KATLA", "rahasia456")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestTokens(t *testing.T) {
	now := time.Date(2022, 2, 9, 0, 0, 0, 0, time.UTC)
	tk := NewTokens("secret", time.Hour)
	tk.now = func() time.Time { return now }

	s, exp, err := tk.Sign("id-1", "katla")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), exp)

	c, err := tk.Parse(s)
	require.NoError(t, err)
	assert.Equal(t, "id-1", c.ID)
	assert.Equal(t, "katla", c.Username)

	_, err = NewTokens("other", time.Hour).Parse(s)
	assert.ErrorIs(t, err, ErrInvalidToken)

	now = now.Add(2 * time.Hour)
	_, err = tk.Parse(s)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tk.Parse("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
