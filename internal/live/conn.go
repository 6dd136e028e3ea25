package live

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	PingPeriod = pongWait * 9 / 10

	maxMessageSize = 1024
	outboxSize     = 64
)

// Conn is the transport a Client talks through.
type Conn interface {
	Read() ([]byte, error)
	Write(data []byte) error
	Ping() error
	Close(reason string)
}

type websocketConn struct {
	socket *websocket.Conn
}

// NewWebsocketConn wraps an upgraded connection. Reads fail once no pong
// arrives within a minute.
func NewWebsocketConn(ws *websocket.Conn) Conn {
	ws.SetReadLimit(maxMessageSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	return &websocketConn{socket: ws}
}

func (wc *websocketConn) Read() ([]byte, error) {
	_, p, err := wc.socket.ReadMessage()
	return p, err
}

func (wc *websocketConn) Write(data []byte) error {
	wc.socket.SetWriteDeadline(time.Now().Add(writeWait))
	return wc.socket.WriteMessage(websocket.TextMessage, data)
}

func (wc *websocketConn) Ping() error {
	return wc.socket.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (wc *websocketConn) Close(reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	wc.socket.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	wc.socket.Close()
}

// Client is one member connection. The room is the only writer of out and
// closes it when the member leaves.
type Client struct {
	player   string
	username string
	host     bool
	conn     Conn
	out      chan []byte
	limiter  *rate.Limiter
	room     *Room
}

func NewClient(player, username string, host bool, conn Conn) *Client {
	return &Client{
		player:   player,
		username: username,
		host:     host,
		conn:     conn,
		out:      make(chan []byte, outboxSize),
		limiter:  rate.NewLimiter(2, 10),
	}
}

func (c *Client) Username() string { return c.username }

// send queues ev without blocking. A full outbox drops the frame.
func (c *Client) send(ev Event) {
	b, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("type", ev.Type).Msg("marshal live event")
		return
	}
	select {
	case c.out <- b:
	default:
		log.Warn().Str("player", c.player).Str("type", ev.Type).Msg("live outbox full, dropping event")
	}
}

// ReadPump forwards frames to the room until the connection fails.
func (c *Client) ReadPump() {
	defer c.room.leave(c)
	for {
		data, err := c.conn.Read()
		if err != nil {
			return
		}
		if !c.limiter.Allow() {
			continue
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if !c.room.deliver(envelope{from: c, msg: msg}) {
			return
		}
	}
}

// WritePump drains the outbox and pings every period. It closes the
// connection on exit.
func (c *Client) WritePump(period time.Duration) {
	ticker := time.NewTicker(period)
	defer func() {
		ticker.Stop()
		c.conn.Close("")
	}()
	for {
		select {
		case data, ok := <-c.out:
			if !ok {
				return
			}
			if err := c.conn.Write(data); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(); err != nil {
				return
			}
		}
	}
}
