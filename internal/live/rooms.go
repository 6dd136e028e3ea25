package live

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/robalobadob/katla/internal/codec"
)

var (
	ErrForbidden       = errors.New("live: forbidden")
	ErrInvalidToken    = errors.New("live: invalid room token")
	ErrInvalidUsername = errors.New("live: invalid username")
)

const roomPrefix = "kt-"

// GenerateRoomID returns "kt-<encoded auth>-<21 hex chars>".
func GenerateRoomID(auth string) string {
	return roomPrefix + codec.Encode(auth) + "-" + randomHex(21)
}

// RoomAuth returns the auth key embedded in a room id.
func RoomAuth(roomID string) (string, bool) {
	rest, ok := strings.CutPrefix(roomID, roomPrefix)
	if !ok {
		return "", false
	}
	i := strings.LastIndexByte(rest, '-')
	if i <= 0 {
		return "", false
	}
	auth := codec.Decode(rest[:i])
	return auth, auth != ""
}

func randomHex(n int) string {
	var sb strings.Builder
	for sb.Len() < n {
		sb.WriteString(strings.ReplaceAll(uuid.NewString(), "-", ""))
	}
	return sb.String()[:n]
}

// RoomKeys is one host's key pair. The auth key lets the host open rooms;
// the invite key lets guests into them.
type RoomKeys struct {
	ID        string `json:"id"`
	Auth      string `json:"auth"`
	InviteKey string `json:"inviteKey"`
	Owner     string `json:"owner"`
}

// Access is the outcome of authorizing a key for a room.
type Access struct {
	Room      string
	InviteKey string
	Host      bool
}

// RoomStore keeps room keys in the live_rooms table.
type RoomStore struct {
	db *sql.DB
}

func NewRoomStore(db *sql.DB) *RoomStore { return &RoomStore{db: db} }

// Create issues a new key pair for owner.
func (s *RoomStore) Create(ctx context.Context, owner string) (RoomKeys, error) {
	k := RoomKeys{
		ID:        uuid.NewString(),
		Auth:      randomHex(16),
		InviteKey: randomHex(16),
		Owner:     owner,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO live_rooms (id, auth, invite_key, owner) VALUES (?, ?, ?, ?)`,
		k.ID, k.Auth, k.InviteKey, k.Owner)
	if err != nil {
		return RoomKeys{}, fmt.Errorf("insert live room: %w", err)
	}
	return k, nil
}

// Authorize matches key against both the auth and invite columns. The
// room id must embed the matched pair's auth key.
func (s *RoomStore) Authorize(ctx context.Context, roomID, key string) (Access, error) {
	if key == "" {
		return Access{}, ErrForbidden
	}
	var k RoomKeys
	err := s.db.QueryRowContext(ctx,
		`SELECT id, auth, invite_key, owner FROM live_rooms WHERE auth = ? OR invite_key = ? LIMIT 1`,
		key, key).Scan(&k.ID, &k.Auth, &k.InviteKey, &k.Owner)
	if errors.Is(err, sql.ErrNoRows) {
		return Access{}, ErrForbidden
	}
	if err != nil {
		return Access{}, fmt.Errorf("query live room: %w", err)
	}
	if auth, ok := RoomAuth(roomID); !ok || auth != k.Auth {
		return Access{}, ErrForbidden
	}
	return Access{Room: roomID, InviteKey: k.InviteKey, Host: key == k.Auth}, nil
}

// RoomClaims are the payload of a room token.
type RoomClaims struct {
	Room     string `json:"room"`
	Username string `json:"username"`
	Host     bool   `json:"host,omitempty"`
	jwt.RegisteredClaims
}

// RoomTokens signs the short-lived tokens the websocket endpoint accepts.
type RoomTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewRoomTokens(secret string, ttl time.Duration) *RoomTokens {
	return &RoomTokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// ValidUsername trims name and checks it is 1 to 20 characters.
func ValidUsername(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := len([]rune(name)); n == 0 || n > 20 {
		return "", ErrInvalidUsername
	}
	return name, nil
}

func (t *RoomTokens) Sign(a Access, username string) (string, error) {
	now := t.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, RoomClaims{
		Room:     a.Room,
		Username: username,
		Host:     a.Host,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.Room,
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	ss, err := tok.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign room token: %w", err)
	}
	return ss, nil
}

func (t *RoomTokens) Parse(s string) (*RoomClaims, error) {
	var c RoomClaims
	tok, err := jwt.ParseWithClaims(s, &c, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil || !tok.Valid || c.Room == "" || c.Username == "" {
		return nil, ErrInvalidToken
	}
	return &c, nil
}
