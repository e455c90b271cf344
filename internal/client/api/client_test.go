package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/avolkov/lanferry/internal/common"
	"github.com/avolkov/lanferry/internal/logging"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	mu      sync.Mutex
	baseURL string
	token   string
	cleared bool
}

func (f *fakeSession) BaseURL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.baseURL
}

func (f *fakeSession) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeSession) ClearToken() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = ""
	f.cleared = true
}

func newTestClient(sess SessionSource) *Client {
	return New(sess, "http://127.0.0.1:8787", "", logging.NewNopLogger())
}

func TestRequestJSON_BaseURLRequired(t *testing.T) {
	c := newTestClient(&fakeSession{})

	err := c.requestJSON(context.Background(), "/api/v1/devices", requestOpts{auth: true}, nil)
	require.ErrorIs(t, err, common.ErrValidation)
	require.EqualError(t, err, "Coordinator URL is required")
}

func TestRequestJSON_AuthRequiresToken(t *testing.T) {
	c := newTestClient(&fakeSession{baseURL: "http://127.0.0.1:8787"})

	err := c.requestJSON(context.Background(), "/api/v1/devices", requestOpts{auth: true}, nil)
	require.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestRequestJSON_SendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(&fakeSession{baseURL: srv.URL, token: "tok-123"})
	require.NoError(t, c.requestJSON(context.Background(), "/x", requestOpts{auth: true}, nil))
	require.Equal(t, "Bearer tok-123", gotAuth)
}

func TestRequestJSON_UnauthorizedClearsTokenAndFiresHook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"token expired"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	sess := &fakeSession{baseURL: srv.URL, token: "tok"}
	c := newTestClient(sess)
	hookFired := false
	c.SetAuthLostHook(func() { hookFired = true })

	err := c.requestJSON(context.Background(), "/x", requestOpts{auth: true}, nil)
	require.ErrorIs(t, err, common.ErrUnauthorized)
	require.EqualError(t, err, "token expired")
	require.True(t, sess.cleared)
	require.True(t, hookFired)
}

func TestRequestJSON_UnauthenticatedCallNeverClearsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	sess := &fakeSession{baseURL: srv.URL, token: "tok"}
	c := newTestClient(sess)

	err := c.requestJSON(context.Background(), "/x", requestOpts{}, nil)
	require.Error(t, err)
	require.False(t, sess.cleared, "only authenticated 401s invalidate the session")
}

func TestRequestJSON_TimeoutIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	c := newTestClient(&fakeSession{baseURL: srv.URL})
	err := c.requestJSON(context.Background(), "/x", requestOpts{timeout: 20 * time.Millisecond}, nil)
	require.ErrorIs(t, err, common.ErrTimeout)
	require.NotErrorIs(t, err, common.ErrTransport)
}

func TestRequestJSON_ConnectFailureIsTransport(t *testing.T) {
	c := newTestClient(&fakeSession{baseURL: "http://127.0.0.1:1"})

	err := c.requestJSON(context.Background(), "/x", requestOpts{}, nil)
	require.ErrorIs(t, err, common.ErrTransport)
	require.NotErrorIs(t, err, common.ErrTimeout)
}

func TestRequestJSON_MalformedBodyIsProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	c := newTestClient(&fakeSession{baseURL: srv.URL})
	var out struct{}
	err := c.requestJSON(context.Background(), "/x", requestOpts{}, &out)
	require.ErrorIs(t, err, common.ErrProtocol)
}

func TestRequestJSON_ServerErrorCarriesStatusAndDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"share not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(&fakeSession{baseURL: srv.URL})
	err := c.requestJSON(context.Background(), "/x", requestOpts{}, nil)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.Status)
	require.EqualError(t, err, "share not found")
}
