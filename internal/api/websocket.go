package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/envcloud/envcloud-core/internal/auth"
)

// wsSendBufferSize is the per-client outbound message buffer size when
// none is configured.
const wsSendBufferSize = 256

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// WSClient is one live subscriber to a location topic.
//
// The hub pushes marshalled payloads into send via TrySend; writePump
// drains it onto the wire. A full buffer drops the message rather than
// stalling the hub.
type WSClient struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// TrySend queues data for delivery, dropping it if the client's buffer
// is full or the client is closing.
func (c *WSClient) TrySend(data []byte) {
	select {
	case <-c.done:
	case c.send <- data:
	default:
		// Client buffer full, skip
	}
}

// handleWebSocket upgrades the connection and subscribes it to the
// requested location's live topic.
//
// Authentication is via token query parameter: browsers cannot set an
// Authorization header on a WebSocket handshake.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeUnauthorized(w, "token query parameter is required")
		return
	}
	if _, err := auth.ParseToken(token, s.secCfg.JWT.Secret); err != nil {
		writeUnauthorized(w, "invalid or expired token")
		return
	}

	topic := chi.URLParam(r, "locationID")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	bufferSize := s.wsCfg.SendBufferSize
	if bufferSize <= 0 {
		bufferSize = wsSendBufferSize
	}
	client := &WSClient{
		conn: conn,
		send: make(chan []byte, bufferSize),
		done: make(chan struct{}),
	}

	s.hub.Subscribe(topic, client)
	s.logger.Debug("websocket client connected", "topic", topic)

	go s.writePump(client)
	go s.readPump(client, topic)
}

// readPump drains incoming frames until the client disconnects, then
// tears the subscription down. Clients send nothing meaningful; the
// read loop exists to observe the close.
func (s *Server) readPump(c *WSClient, topic string) {
	defer func() {
		s.hub.Unsubscribe(topic, c)
		close(c.done)
		c.conn.Close()
		s.logger.Debug("websocket client disconnected", "topic", topic)
	}()

	if s.wsCfg.MaxMessageSize > 0 {
		c.conn.SetReadLimit(int64(s.wsCfg.MaxMessageSize))
	}
	pingInterval := time.Duration(s.wsCfg.PingInterval) * time.Second
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	pongWait := time.Duration(s.wsCfg.PongTimeout) * time.Second
	if pongWait <= 0 {
		pongWait = 10 * time.Second
	}
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		// Any client message resets the read deadline.
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	}
}

// writePump writes queued payloads and protocol pings to the
// connection until the client goes away.
func (s *Server) writePump(c *WSClient) {
	pingInterval := time.Duration(s.wsCfg.PingInterval) * time.Second
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	pongWait := time.Duration(s.wsCfg.PongTimeout) * time.Second
	if pongWait <= 0 {
		pongWait = 10 * time.Second
	}
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			//nolint:errcheck // Best-effort close message
			c.conn.WriteMessage(websocket.CloseMessage, nil)
			return
		case message := <-c.send:
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
