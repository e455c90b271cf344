// Package api implements the HTTP client for the coordinator service and
// the per-device agents: a single JSON request primitive with timeout and
// typed error normalization, plus one method per endpoint.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"time"

	"github.com/avolkov/lanferry/internal/common"
	"github.com/avolkov/lanferry/internal/logging"
)

// SessionSource is the slice of the session store the client needs.
type SessionSource interface {
	BaseURL() string
	Token() string
	ClearToken()
}

// Client talks to the coordinator. One instance per app; safe for
// concurrent use.
type Client struct {
	sess SessionSource
	http *http.Client
	log  logging.Logger

	// onAuthLost force-closes the realtime socket when a 401 invalidates
	// the session. Registered by the realtime engine at startup.
	onAuthLost func()

	defaultBaseURL    string
	discoveryEndpoint string

	discovery discoveryCache
}

func New(sess SessionSource, defaultBaseURL, discoveryEndpoint string, log logging.Logger) *Client {
	return &Client{
		sess:              sess,
		http:              &http.Client{},
		log:               log,
		defaultBaseURL:    defaultBaseURL,
		discoveryEndpoint: discoveryEndpoint,
	}
}

// SetAuthLostHook registers the callback invoked when an authenticated call
// comes back 401.
func (c *Client) SetAuthLostHook(fn func()) {
	c.onAuthLost = fn
}

type requestOpts struct {
	method  string
	body    any
	auth    bool
	timeout time.Duration
}

// requestJSON performs one coordinator call and decodes the JSON response
// into out (which may be nil). Failures are normalized into *Error values
// classified by the common sentinels.
func (c *Client) requestJSON(ctx context.Context, path string, opts requestOpts, out any) error {
	base := c.sess.BaseURL()
	if base == "" {
		return newError(common.ErrValidation, "Coordinator URL is required")
	}

	token := ""
	if opts.auth {
		token = c.sess.Token()
		if token == "" {
			return newError(common.ErrUnauthorized, "not connected")
		}
	}

	if opts.method == "" {
		opts.method = http.MethodGet
	}
	if opts.timeout == 0 {
		opts.timeout = common.DefaultRequestTimeout
	}

	var bodyReader io.Reader
	if opts.body != nil {
		encoded, err := json.Marshal(opts.body)
		if err != nil {
			return wrapError(common.ErrValidation, "encode request body", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, opts.method, base+path, bodyReader)
	if err != nil {
		return wrapError(common.ErrValidation, "build request", err)
	}
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return wrapError(common.ErrTimeout, fmt.Sprintf("request to %s timed out", path), err)
		}
		return wrapError(common.ErrTransport, fmt.Sprintf("request to %s failed", path), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return wrapError(common.ErrTransport, "read response", err)
	}

	if resp.StatusCode == http.StatusUnauthorized && opts.auth {
		// The session is gone; drop the token and tear down the realtime
		// socket. No retry at this layer.
		c.sess.ClearToken()
		if c.onAuthLost != nil {
			c.onAuthLost()
		}
		return &Error{Kind: common.ErrUnauthorized, Status: resp.StatusCode, msg: extractErrorDetail(respBody, resp.StatusCode)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return serverError(resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return wrapError(common.ErrProtocol, fmt.Sprintf("decode response from %s", path), err)
		}
	}
	return nil
}
