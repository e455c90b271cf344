package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/avolkov/lanferry/internal/common"
)

// Agent drives the chunk upload protocol against one device's agent
// service. The agent lives on a distinct LAN endpoint handed out by the
// coordinator when an upload is opened; every call is scoped by the share
// id and the short-lived upload ticket.
type Agent struct {
	baseURL string
	shareID string
	ticket  string
	http    *http.Client
}

func NewAgent(baseURL, shareID, ticket string) *Agent {
	return &Agent{baseURL: baseURL, shareID: shareID, ticket: ticket, http: &http.Client{}}
}

// AgentItemStatus reports how many bytes the agent has already received for
// one item, which is what makes interrupted uploads resumable.
type AgentItemStatus struct {
	ItemID        string `json:"item_id"`
	ReceivedBytes int64  `json:"received_bytes"`
}

type agentStatusResponse struct {
	Items []AgentItemStatus `json:"items"`
}

// ChunkMeta identifies the item a chunk belongs to. The agent needs the
// full item descriptor on every chunk because chunks may arrive on a fresh
// connection after a resume.
type ChunkMeta struct {
	ItemID   string
	Filename string
	Size     int64
	SHA256   string
}

// Status returns received-byte counts per item.
func (a *Agent) Status(ctx context.Context) (map[string]int64, error) {
	var out agentStatusResponse
	if err := a.do(ctx, http.MethodGet, "/status", a.query(nil), nil, "", &out); err != nil {
		return nil, err
	}
	received := make(map[string]int64, len(out.Items))
	for _, item := range out.Items {
		received[item.ItemID] = item.ReceivedBytes
	}
	return received, nil
}

// SendChunk posts one raw chunk. Offset and last-chunk flag travel as
// request headers; item identity travels in the query string.
func (a *Agent) SendChunk(ctx context.Context, meta ChunkMeta, offset int64, last bool, data []byte) error {
	q := a.query(map[string]string{
		"item_id":  meta.ItemID,
		"filename": meta.Filename,
		"size":     strconv.FormatInt(meta.Size, 10),
		"sha256":   meta.SHA256,
	})
	ctx, cancel := context.WithTimeout(ctx, common.AgentRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chunk?"+q, bytes.NewReader(data))
	if err != nil {
		return wrapError(common.ErrValidation, "build chunk request", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("x-chunk-offset", strconv.FormatInt(offset, 10))
	req.Header.Set("x-chunk-last", strconv.FormatBool(last))

	resp, err := a.http.Do(req)
	if err != nil {
		return a.transportError(err)
	}
	defer resp.Body.Close()
	return a.checkStatus(resp)
}

// Commit finalizes the byte stream of one item.
func (a *Agent) Commit(ctx context.Context, itemID string) error {
	q := a.query(map[string]string{"item_id": itemID})
	return a.do(ctx, http.MethodPost, "/commit", q, nil, "", nil)
}

// Finalize moves a committed item into place. This is the only agent call
// with a JSON body.
func (a *Agent) Finalize(ctx context.Context, itemID, destinationPath string, keepOriginalName bool) error {
	body := map[string]any{
		"item_id":            itemID,
		"destination_path":   destinationPath,
		"keep_original_name": keepOriginalName,
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return wrapError(common.ErrValidation, "encode finalize body", err)
	}
	return a.do(ctx, http.MethodPost, "/finalize", a.query(nil), encoded, "application/json", nil)
}

// Pause asks the agent to park the transfer server-side.
func (a *Agent) Pause(ctx context.Context) error {
	return a.do(ctx, http.MethodPost, "/pause", a.query(nil), nil, "", nil)
}

// Resume reverses Pause.
func (a *Agent) Resume(ctx context.Context) error {
	return a.do(ctx, http.MethodPost, "/resume", a.query(nil), nil, "", nil)
}

func (a *Agent) query(extra map[string]string) string {
	q := url.Values{}
	q.Set("share_id", a.shareID)
	q.Set("ticket", a.ticket)
	for k, v := range extra {
		q.Set(k, v)
	}
	return q.Encode()
}

func (a *Agent) do(ctx context.Context, method, path, query string, body []byte, contentType string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, common.AgentRequestTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path+"?"+query, reader)
	if err != nil {
		return wrapError(common.ErrValidation, "build agent request", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return a.transportError(err)
	}
	defer resp.Body.Close()

	if err := a.checkStatus(resp); err != nil {
		return err
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return wrapError(common.ErrProtocol, "decode agent response", err)
		}
	}
	return nil
}

func (a *Agent) checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	return serverError(resp.StatusCode, body)
}

// transportError rewrites raw transport failures into operator-actionable
// text. Raw dial errors name sockets and syscalls; what the operator needs
// to know is whether the agent is reachable on the LAN at all, or whether
// an intermediary policy got in the way.
func (a *Agent) transportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return wrapError(common.ErrTimeout,
			fmt.Sprintf("agent at %s did not answer — check that the receiving device is online and on this LAN", a.baseURL), err)
	}
	text := err.Error()
	switch {
	case strings.Contains(text, "connection refused"),
		strings.Contains(text, "no route to host"),
		strings.Contains(text, "no such host"),
		strings.Contains(text, "network is unreachable"):
		return wrapError(common.ErrTransport,
			fmt.Sprintf("agent at %s is unreachable — the receiving device may not be on this LAN", a.baseURL), err)
	case strings.Contains(text, "certificate"),
		strings.Contains(text, "proxyconnect"),
		strings.Contains(text, "Forbidden"):
		return wrapError(common.ErrTransport,
			fmt.Sprintf("request to agent at %s was blocked by a proxy or TLS policy", a.baseURL), err)
	}
	return wrapError(common.ErrTransport, fmt.Sprintf("agent request to %s failed", a.baseURL), err)
}
