package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/avolkov/lanferry/internal/common"
	"github.com/avolkov/lanferry/internal/logging"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type fakeTokenSource struct {
	mu      sync.Mutex
	baseURL string
	token   string
}

func (f *fakeTokenSource) BaseURL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.baseURL
}

func (f *fakeTokenSource) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

type fakeEventsTokens struct {
	token string
	err   error
}

func (f *fakeEventsTokens) EventsToken(context.Context) (string, error) {
	return f.token, f.err
}

// eventsServer upgrades on the events path and records the subprotocols the
// client offered.
func eventsServer(t *testing.T, onConn func(*websocket.Conn)) (*httptest.Server, *[]string) {
	t.Helper()
	var offered []string
	upgrader := websocket.Upgrader{Subprotocols: []string{"stream-v1"}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/events/ws", r.URL.Path)
		offered = websocket.Subprotocols(r)
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		onConn(conn)
	}))
	t.Cleanup(srv.Close)
	return srv, &offered
}

func TestSocket_ConnectOffersAuthSubprotocol(t *testing.T) {
	connected := make(chan *websocket.Conn, 1)
	srv, offered := eventsServer(t, func(c *websocket.Conn) { connected <- c })

	sess := &fakeTokenSource{baseURL: srv.URL, token: "access"}
	s := NewSocket(sess, &fakeEventsTokens{token: "ws-tok"},
		func(context.Context) error { return nil },
		func(context.Context) {},
		logging.NewNopLogger())

	require.NoError(t, s.Connect(context.Background()))
	defer s.Close()

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw the connection")
	}
	require.Equal(t, []string{"stream-v1", "auth.ws-tok"}, *offered)
}

func TestSocket_TransferEventTriggersRefresh(t *testing.T) {
	srv, _ := eventsServer(t, func(c *websocket.Conn) {
		_ = c.WriteMessage(websocket.TextMessage, []byte(`{"type":"device_online"}`))
		_ = c.WriteMessage(websocket.TextMessage, []byte(`{"type":"transfer_updated","transfer_id":"t1"}`))
	})

	refreshed := make(chan struct{}, 1)
	sess := &fakeTokenSource{baseURL: srv.URL, token: "access"}
	s := NewSocket(sess, &fakeEventsTokens{token: "ws-tok"},
		func(context.Context) error {
			select {
			case refreshed <- struct{}{}:
			default:
			}
			return nil
		},
		func(context.Context) {},
		logging.NewNopLogger())

	require.NoError(t, s.Connect(context.Background()))
	defer s.Close()

	select {
	case <-refreshed:
	case <-time.After(2 * time.Second):
		t.Fatal("transfer event never triggered a refresh")
	}
}

// gatedEventsTokens parks the first caller on a gate so a test can hold
// one Connect mid-flight while another completes.
type gatedEventsTokens struct {
	mu    sync.Mutex
	calls int
	gate  chan struct{}
}

func (f *gatedEventsTokens) EventsToken(context.Context) (string, error) {
	f.mu.Lock()
	f.calls++
	first := f.calls == 1
	f.mu.Unlock()
	if first {
		<-f.gate
	}
	return "ws-tok", nil
}

func (f *gatedEventsTokens) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestSocket_OverlappingConnectsKeepOneLiveConnection(t *testing.T) {
	srv, _ := eventsServer(t, func(c *websocket.Conn) {
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	})

	sess := &fakeTokenSource{baseURL: srv.URL, token: "access"}
	tokens := &gatedEventsTokens{gate: make(chan struct{})}
	s := NewSocket(sess, tokens,
		func(context.Context) error { return nil },
		func(context.Context) {},
		logging.NewNopLogger())

	// first Connect parks in the token fetch before dialing
	done := make(chan error, 1)
	go func() { done <- s.Connect(context.Background()) }()
	require.Eventually(t, func() bool { return tokens.callCount() == 1 },
		2*time.Second, 10*time.Millisecond, "first connect never reached the token fetch")

	// second Connect wins the race and installs its connection
	require.NoError(t, s.Connect(context.Background()))
	s.mu.Lock()
	overlapped := s.conn
	s.mu.Unlock()
	require.NotNil(t, overlapped)

	// release the parked Connect; it must replace and close the winner
	close(tokens.gate)
	require.NoError(t, <-done)
	defer s.Close()

	s.mu.Lock()
	live := s.conn
	s.mu.Unlock()
	require.NotNil(t, live)
	require.NotSame(t, overlapped, live, "the overlapped connection is torn down")

	// the replaced connection's read pump exits without arming a reconnect
	time.Sleep(100 * time.Millisecond)
	s.mu.Lock()
	attempt := s.attempt
	current := s.conn
	s.mu.Unlock()
	require.Zero(t, attempt)
	require.Same(t, live, current, "exactly one connection stays installed")
}

func TestSocket_ConnectWithoutTokenFails(t *testing.T) {
	sess := &fakeTokenSource{baseURL: "http://127.0.0.1:1", token: ""}
	s := NewSocket(sess, &fakeEventsTokens{token: "ws-tok"},
		func(context.Context) error { return nil },
		func(context.Context) {},
		logging.NewNopLogger())

	err := s.Connect(context.Background())
	require.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestSocket_ManualCloseSkipsReconnect(t *testing.T) {
	srv, _ := eventsServer(t, func(c *websocket.Conn) {
		// hold the connection open until the client closes it
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	})

	sess := &fakeTokenSource{baseURL: srv.URL, token: "access"}
	s := NewSocket(sess, &fakeEventsTokens{token: "ws-tok"},
		func(context.Context) error { return nil },
		func(context.Context) { t.Error("manual close must not escalate") },
		logging.NewNopLogger())

	require.NoError(t, s.Connect(context.Background()))
	s.Close()

	// give the read pump time to observe the close
	time.Sleep(100 * time.Millisecond)
	s.mu.Lock()
	attempt := s.attempt
	s.mu.Unlock()
	require.Zero(t, attempt, "no reconnect attempt after a manual close")
}
