// Package realtime keeps the client fresh: a WebSocket push channel with
// reconnect backoff, a polling backstop, and end-to-end connection
// recovery. Push is a latency optimization; polling is the correctness
// guarantee.
package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/avolkov/lanferry/internal/common"
	"github.com/avolkov/lanferry/internal/logging"
	"github.com/avolkov/lanferry/internal/netx"
	"github.com/gorilla/websocket"
)

// TokenSource exposes the session fields the socket needs.
type TokenSource interface {
	BaseURL() string
	Token() string
}

// EventsTokenProvider fetches the short-lived socket token.
type EventsTokenProvider interface {
	EventsToken(ctx context.Context) (string, error)
}

// Socket owns the single live WebSocket connection. Opening a new
// connection always tears the previous one down first.
type Socket struct {
	sess    TokenSource
	events  EventsTokenProvider
	refresh func(ctx context.Context) error
	escalate func(ctx context.Context)
	log     logging.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	manual  bool
	attempt int

	keepalive time.Duration
}

func NewSocket(sess TokenSource, events EventsTokenProvider, refresh func(ctx context.Context) error, escalate func(ctx context.Context), log logging.Logger) *Socket {
	return &Socket{
		sess:      sess,
		events:    events,
		refresh:   refresh,
		escalate:  escalate,
		log:       log,
		keepalive: common.KeepaliveInterval,
	}
}

// Connect opens the events socket. A previous connection is closed first.
func (s *Socket) Connect(ctx context.Context) error {
	s.mu.Lock()
	s.manual = false
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.mu.Unlock()

	token := s.sess.Token()
	if token == "" {
		return common.ErrUnauthorized
	}

	wsToken, err := s.events.EventsToken(ctx)
	if err != nil {
		s.scheduleReconnect()
		return err
	}

	wsURL, err := netx.WebSocketURL(s.sess.BaseURL())
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{
		Subprotocols:     []string{"stream-v1", "auth." + wsToken},
		HandshakeTimeout: common.DefaultRequestTimeout,
	}
	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		s.log.Warn(ctx, "socket dial failed", "url", wsURL, "err", err)
		s.scheduleReconnect()
		return err
	}

	s.mu.Lock()
	if s.conn != nil {
		// a racing Connect installed a connection while we were dialing;
		// close it so its pumps wind down without arming a reconnect
		_ = s.conn.Close()
	}
	s.conn = conn
	s.attempt = 0
	s.mu.Unlock()

	go s.readPump(conn)
	go s.keepalivePump(conn)
	s.log.Info(ctx, "events socket open", "url", wsURL)
	return nil
}

// Close tears the socket down without scheduling a reconnect.
func (s *Socket) Close() {
	s.mu.Lock()
	s.manual = true
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// ForceClose is Close under another name, used by the 401 hook.
func (s *Socket) ForceClose() { s.Close() }

func (s *Socket) readPump(conn *websocket.Conn) {
	ctx := context.Background()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.handleClosed(conn)
			return
		}

		var event struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &event); err != nil {
			continue
		}
		if !strings.HasPrefix(event.Type, "transfer_") {
			continue
		}
		if err := s.refresh(ctx); err != nil {
			s.log.Warn(ctx, "push-triggered refresh failed", "event", event.Type, "err", err)
		}
	}
}

// keepalivePump writes a text "ping" on a fixed cadence. Write failures
// are not handled here; the absence of further traffic trips the read
// pump's close path.
func (s *Socket) keepalivePump(conn *websocket.Conn) {
	ticker := time.NewTicker(s.keepalive)
	defer ticker.Stop()
	for range ticker.C {
		s.mu.Lock()
		current := s.conn == conn
		s.mu.Unlock()
		if !current {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte("ping"))
	}
}

// handleClosed runs when the read pump sees an error or EOF.
func (s *Socket) handleClosed(conn *websocket.Conn) {
	s.mu.Lock()
	if s.conn != conn {
		// an old connection lost a race with a newer one; nothing to do
		s.mu.Unlock()
		return
	}
	s.conn = nil
	manual := s.manual
	s.mu.Unlock()
	_ = conn.Close()

	if manual || s.sess.Token() == "" {
		return
	}
	s.scheduleReconnect()
}

// scheduleReconnect arms a delayed reconnect with exponential backoff.
// After enough consecutive failures, repeated socket trouble more likely
// means the endpoint itself is gone, so it escalates to full recovery.
func (s *Socket) scheduleReconnect() {
	s.mu.Lock()
	s.attempt++
	attempt := s.attempt
	s.mu.Unlock()

	if attempt > common.EscalateAfter {
		s.mu.Lock()
		s.attempt = 0
		s.mu.Unlock()
		go s.escalate(context.Background())
		return
	}

	delay := reconnectDelay(attempt)
	time.AfterFunc(delay, func() {
		s.mu.Lock()
		stale := s.manual || s.conn != nil
		s.mu.Unlock()
		if stale || s.sess.Token() == "" {
			return
		}
		_ = s.Connect(context.Background())
	})
}
