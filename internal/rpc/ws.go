package rpc

import (
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Klingon-tech/splwallet/internal/session"
)

const (
	wsWriteTimeout = 3 * time.Second
	wsPingPeriod   = 30 * time.Second
	wsReadLimit    = 512

	// wsClientBuffer is how many events may queue for one client before it
	// is treated as a slow consumer and dropped.
	wsClientBuffer = 64
)

// wsClient is one websocket subscriber.
type wsClient struct {
	send chan []byte
}

// hub fans controller events out to websocket clients.
type hub struct {
	mu      sync.Mutex
	clients map[uint64]*wsClient
	nextID  uint64
	closed  bool
}

func newHub() *hub {
	return &hub{clients: make(map[uint64]*wsClient)}
}

// register adds a client. The first message queued is first.
func (h *hub) register(first []byte) (uint64, *wsClient, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, nil, false
	}
	c := &wsClient{send: make(chan []byte, wsClientBuffer)}
	c.send <- first
	id := h.nextID
	h.nextID++
	h.clients[id] = c
	return id, c, true
}

// remove drops a client. Safe to call more than once.
func (h *hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(id)
}

func (h *hub) removeLocked(id uint64) {
	if c, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(c.send)
	}
}

// broadcast is a session.Listener. It never blocks: a client whose buffer
// is full is disconnected.
func (h *hub) broadcast(ev session.Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.removeLocked(id)
		}
	}
}

// count returns the number of connected clients.
func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// close disconnects every client and refuses new ones.
func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id := range h.clients {
		h.removeLocked(id)
	}
}

// handleWS upgrades GET /ws and streams controller events as JSON text
// frames, starting with the current state.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !s.checkIP(w, r) {
		return
	}

	upgrader := websocket.Upgrader{
		HandshakeTimeout: wsWriteTimeout,
		CheckOrigin:      s.checkWSOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Websocket upgrade failed")
		return
	}

	first, _ := json.Marshal(session.Event{Type: session.StateChanged, State: s.session.State()})
	id, client, ok := s.hub.register(first)
	if !ok {
		conn.Close()
		return
	}
	s.logger.Debug().Uint64("client", id).Str("remote", r.RemoteAddr).Msg("Websocket client connected")

	go writePump(conn, client)

	// Read until the peer goes away. Clients have nothing to say.
	conn.SetReadLimit(wsReadLimit)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.hub.remove(id)
	s.logger.Debug().Uint64("client", id).Msg("Websocket client disconnected")
}

func writePump(conn *websocket.Conn, c *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// checkWSOrigin accepts non-browser clients (no Origin), same-host pages,
// and origins on the CORS list.
func (s *Server) checkWSOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || s.originAllowed(origin) {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}
