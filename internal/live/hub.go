package live

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

var ErrHubClosed = errors.New("live: hub closed")

// Hub owns the running rooms. A room starts on its first join and stops
// when its last member leaves.
type Hub struct {
	cfg Config

	mu     sync.Mutex
	rooms  map[string]*Room
	closed bool
}

func NewHub(cfg Config) *Hub {
	return &Hub{cfg: cfg.withDefaults(), rooms: make(map[string]*Room)}
}

// Join adds c to the room, starting the room when needed.
func (h *Hub) Join(ctx context.Context, roomID string, c *Client) error {
	for {
		h.mu.Lock()
		if h.closed {
			h.mu.Unlock()
			return ErrHubClosed
		}
		r := h.rooms[roomID]
		if r == nil {
			r = newRoom(roomID, h.cfg, h.remove)
			h.rooms[roomID] = r
			go r.run()
			log.Info().Str("room", roomID).Msg("live room opened")
		}
		h.mu.Unlock()

		c.room = r
		err := r.join(ctx, c)
		if errors.Is(err, ErrRoomClosed) {
			// the room emptied between lookup and join
			h.remove(r)
			continue
		}
		return err
	}
}

// Room returns a running room.
func (h *Hub) Room(id string) (*Room, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[id]
	return r, ok
}

func (h *Hub) remove(r *Room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[r.id] == r {
		delete(h.rooms, r.id)
	}
}

// Close stops every room.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	rooms := make([]*Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	h.mu.Unlock()

	for _, r := range rooms {
		r.Close()
	}
}
