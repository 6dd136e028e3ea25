package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/katla/internal/live"
)

const liveJoinTimeout = 5 * time.Second

// mountLive registers the room key endpoints.
func (s *Server) mountLive(r chi.Router) {
	r.Route("/live", func(r chi.Router) {
		r.With(s.rateLimited).Post("/auth", s.handleLiveAuth)
		r.With(s.requireAuth).Post("/rooms", s.handleCreateRoom)
	})
}

// mountLiveSocket registers the websocket endpoint.
func (s *Server) mountLiveSocket(r chi.Router) {
	r.Get("/live/ws", s.handleLiveSocket)
}

func (s *Server) liveEnabled() bool {
	return s.deps.Rooms != nil && s.deps.RoomTokens != nil && s.deps.Hub != nil
}

type liveAuthReq struct {
	Room     string `json:"room"`
	Auth     string `json:"auth"`
	Username string `json:"username"`
}

type liveAuthRes struct {
	Token     string `json:"token"`
	InviteKey string `json:"inviteKey,omitempty"`
	Host      bool   `json:"host"`
}

// handleLiveAuth exchanges a room key for a websocket token. Only the host
// gets the invite key back.
func (s *Server) handleLiveAuth(w http.ResponseWriter, r *http.Request) {
	if !s.liveEnabled() {
		s.fail(w, r, errNotFound)
		return
	}
	var req liveAuthReq
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	name, err := live.ValidUsername(req.Username)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	access, err := s.deps.Rooms.Authorize(r.Context(), req.Room, req.Auth)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	tok, err := s.deps.RoomTokens.Sign(access, name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res := liveAuthRes{Token: tok, Host: access.Host}
	if access.Host {
		res.InviteKey = access.InviteKey
	}
	writeJSON(w, http.StatusOK, res)
}

type createRoomRes struct {
	Room      string `json:"room"`
	Auth      string `json:"auth"`
	InviteKey string `json:"inviteKey"`
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	if !s.liveEnabled() {
		s.fail(w, r, errNotFound)
		return
	}
	keys, err := s.deps.Rooms.Create(r.Context(), currentUser(r).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createRoomRes{
		Room:      live.GenerateRoomID(keys.Auth),
		Auth:      keys.Auth,
		InviteKey: keys.InviteKey,
	})
}

// handleLiveSocket upgrades ?token= holders and hands the connection to
// the room. The handler returns when the client disconnects.
func (s *Server) handleLiveSocket(w http.ResponseWriter, r *http.Request) {
	if !s.liveEnabled() {
		s.fail(w, r, errNotFound)
		return
	}
	claims, err := s.deps.RoomTokens.Parse(r.URL.Query().Get("token"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	up := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			o := r.Header.Get("Origin")
			return o == "" || o == s.deps.Config.ClientOrigin
		},
	}
	ws, err := up.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		log.Debug().Err(err).Msg("live upgrade")
		return
	}

	c := live.NewClient(playerID(r), claims.Username, claims.Host, live.NewWebsocketConn(ws))
	ctx, cancel := context.WithTimeout(context.Background(), liveJoinTimeout)
	err = s.deps.Hub.Join(ctx, claims.Room, c)
	cancel()
	if err != nil {
		log.Warn().Err(err).Str("room", claims.Room).Msg("live join")
		_ = ws.Close()
		return
	}
	log.Info().Str("room", claims.Room).Str("username", claims.Username).Msg("live member connected")

	go c.WritePump(live.PingPeriod)
	c.ReadPump()
}
