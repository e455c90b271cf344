package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/avolkov/lanferry/internal/common"
	"github.com/stretchr/testify/require"
)

func TestAgent_SendChunkWireFormat(t *testing.T) {
	type captured struct {
		path    string
		query   map[string]string
		offset  string
		last    string
		body    []byte
		content string
	}
	var got captured

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := map[string]string{}
		for k := range r.URL.Query() {
			q[k] = r.URL.Query().Get(k)
		}
		body, _ := io.ReadAll(r.Body)
		got = captured{
			path:    r.URL.Path,
			query:   q,
			offset:  r.Header.Get("x-chunk-offset"),
			last:    r.Header.Get("x-chunk-last"),
			body:    body,
			content: r.Header.Get("Content-Type"),
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewAgent(srv.URL, "share-1", "ticket-1")
	meta := ChunkMeta{ItemID: "item-1", Filename: "report.pdf", Size: 4096, SHA256: common.PlaceholderSHA256}
	require.NoError(t, a.SendChunk(context.Background(), meta, 1024, true, []byte("chunk-data")))

	require.Equal(t, "/chunk", got.path)
	require.Equal(t, "share-1", got.query["share_id"])
	require.Equal(t, "ticket-1", got.query["ticket"])
	require.Equal(t, "item-1", got.query["item_id"])
	require.Equal(t, "report.pdf", got.query["filename"])
	require.Equal(t, "4096", got.query["size"])
	require.Equal(t, common.PlaceholderSHA256, got.query["sha256"])
	require.Equal(t, "1024", got.offset)
	require.Equal(t, "true", got.last)
	require.Equal(t, []byte("chunk-data"), got.body)
	require.Equal(t, "application/octet-stream", got.content)
}

func TestAgent_StatusMapsReceivedBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/status", r.URL.Path)
		require.Equal(t, "share-1", r.URL.Query().Get("share_id"))
		json.NewEncoder(w).Encode(agentStatusResponse{Items: []AgentItemStatus{
			{ItemID: "a", ReceivedBytes: 100},
			{ItemID: "b", ReceivedBytes: 0},
		}})
	}))
	defer srv.Close()

	a := NewAgent(srv.URL, "share-1", "ticket-1")
	received, err := a.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[string]int64{"a": 100, "b": 0}, received)
}

func TestAgent_FinalizeSendsJSONBody(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/finalize", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewAgent(srv.URL, "share-1", "ticket-1")
	require.NoError(t, a.Finalize(context.Background(), "item-1", "/incoming", true))

	require.Equal(t, "item-1", got["item_id"])
	require.Equal(t, "/incoming", got["destination_path"])
	require.Equal(t, true, got["keep_original_name"])
}

func TestAgent_NonOKStatusBecomesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"ticket expired"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	a := NewAgent(srv.URL, "share-1", "ticket-1")
	err := a.Commit(context.Background(), "item-1")

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusForbidden, apiErr.Status)
	require.EqualError(t, err, "ticket expired")
}

func TestAgent_TransportErrorRewrites(t *testing.T) {
	a := NewAgent("http://192.168.1.50:9100", "s", "t")

	tests := []struct {
		name string
		in   error
		kind error
		want string
	}{
		{
			name: "timeout",
			in:   context.DeadlineExceeded,
			kind: common.ErrTimeout,
			want: "did not answer",
		},
		{
			name: "refused",
			in:   errors.New("dial tcp 192.168.1.50:9100: connect: connection refused"),
			kind: common.ErrTransport,
			want: "unreachable",
		},
		{
			name: "no route",
			in:   errors.New("dial tcp 192.168.1.50:9100: connect: no route to host"),
			kind: common.ErrTransport,
			want: "may not be on this LAN",
		},
		{
			name: "proxy",
			in:   errors.New("proxyconnect tcp: dial tcp 10.0.0.1:3128: i/o timeout"),
			kind: common.ErrTransport,
			want: "proxy or TLS policy",
		},
		{
			name: "other",
			in:   errors.New("read: connection reset by peer"),
			kind: common.ErrTransport,
			want: "agent request to",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := a.transportError(tc.in)
			require.ErrorIs(t, err, tc.kind)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}
