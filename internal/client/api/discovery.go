package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/avolkov/lanferry/internal/common"
	"github.com/avolkov/lanferry/internal/netx"
)

type discoveryCache struct {
	mu   sync.Mutex
	urls []string
	at   time.Time
}

// ProbeCoordinatorBaseURL checks whether url is actually a coordinator: a
// short unauthenticated GET of the root must answer with a JSON body whose
// "service" field equals "coordinator". Arbitrary HTTP servers are
// rejected.
func (c *Client) ProbeCoordinatorBaseURL(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, common.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/", nil)
	if err != nil {
		return wrapError(common.ErrValidation, "build probe request", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return wrapError(common.ErrTransport, fmt.Sprintf("probe %s failed", url), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return wrapError(common.ErrTransport, "read probe response", err)
	}

	var out probeResponse
	if err := json.Unmarshal(body, &out); err != nil || out.Service != "coordinator" {
		return newError(common.ErrProtocol, fmt.Sprintf("%s is not a coordinator", url))
	}
	return nil
}

// DiscoverCoordinatorBaseURLs returns candidate coordinator URLs: the
// current session URL, the built-in default, and whatever the discovery
// endpoint reports, de-duplicated in that order and capped. Results are
// cached briefly unless force is set.
func (c *Client) DiscoverCoordinatorBaseURLs(ctx context.Context, force bool) []string {
	c.discovery.mu.Lock()
	if !force && len(c.discovery.urls) > 0 && time.Since(c.discovery.at) < common.DiscoveryCacheTTL {
		cached := append([]string(nil), c.discovery.urls...)
		c.discovery.mu.Unlock()
		return cached
	}
	c.discovery.mu.Unlock()

	seen := make(map[string]struct{})
	var urls []string
	add := func(raw string) {
		normalized, err := netx.NormalizeBaseURL(raw)
		if err != nil {
			return
		}
		if _, dup := seen[normalized]; dup {
			return
		}
		if len(urls) >= common.DiscoveryCap {
			return
		}
		seen[normalized] = struct{}{}
		urls = append(urls, normalized)
	}

	if cur := c.sess.BaseURL(); cur != "" {
		add(cur)
	}
	add(c.defaultBaseURL)
	for _, u := range c.fetchDiscoveredURLs(ctx) {
		add(u)
	}

	c.discovery.mu.Lock()
	c.discovery.urls = append([]string(nil), urls...)
	c.discovery.at = time.Now()
	c.discovery.mu.Unlock()
	return urls
}

// fetchDiscoveredURLs queries the discovery endpoint. Failures only shrink
// the candidate set, so they are logged and swallowed.
func (c *Client) fetchDiscoveredURLs(ctx context.Context) []string {
	if c.discoveryEndpoint == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, common.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.discoveryEndpoint, nil)
	if err != nil {
		return nil
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn(ctx, "coordinator discovery failed", "err", err)
		return nil
	}
	defer resp.Body.Close()

	var out discoveryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.log.Warn(ctx, "coordinator discovery returned malformed body", "err", err)
		return nil
	}
	return out.Coordinators
}
