package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avolkov/lanferry/internal/client/session"
	"github.com/avolkov/lanferry/internal/common"
	"github.com/avolkov/lanferry/internal/logging"
)

// blindAttempts is how many candidates get a direct connect attempt when
// no candidate answers the probe, covering coordinators that are up but
// slow to answer the root endpoint.
const blindAttempts = 3

// SessionControl is the slice of the session store recovery needs.
type SessionControl interface {
	Session() session.Session
	SetIdentity(ctx context.Context, sess session.Session) error
	SetBaseURL(ctx context.Context, baseURL string) error
	ClearIdentity()
}

// Connector re-establishes an authenticated session, either from saved
// credentials or by first-contact bootstrap pairing.
type Connector interface {
	Connect(ctx context.Context) error
	Bootstrap(ctx context.Context) error
}

// Discoverer enumerates and probes candidate coordinator base URLs.
type Discoverer interface {
	DiscoverCoordinatorBaseURLs(ctx context.Context, force bool) []string
	ProbeCoordinatorBaseURL(ctx context.Context, url string) error
}

type inflight struct {
	done chan struct{}
	err  error
}

// Recoverer walks discovered coordinator candidates and reconnects against
// the first one that works, re-pairing from scratch when the saved
// credentials are rejected. Concurrent requests share one run.
type Recoverer struct {
	sess  SessionControl
	conn  Connector
	disco Discoverer
	log   logging.Logger

	// onRecovered runs after a successful recovery, e.g. to reopen the
	// events socket and refresh lists.
	onRecovered func(ctx context.Context)

	mu       sync.Mutex
	inflight *inflight
	lastRun  time.Time
	lastErr  error
	minGap   time.Duration
}

func NewRecoverer(sess SessionControl, conn Connector, disco Discoverer, log logging.Logger) *Recoverer {
	return &Recoverer{
		sess:   sess,
		conn:   conn,
		disco:  disco,
		log:    log,
		minGap: common.RecoveryMinGap,
	}
}

// SetOnRecovered registers the post-recovery hook.
func (r *Recoverer) SetOnRecovered(fn func(ctx context.Context)) {
	r.onRecovered = fn
}

// RequestRecovery runs recovery, collapsing concurrent callers onto the
// same in-flight run and rate-limiting back-to-back runs. Callers that
// join an in-flight run get its result. A forced request skips the rate
// limit and re-runs discovery instead of serving cached candidates;
// user-driven recovery forces, automatic escalation does not.
func (r *Recoverer) RequestRecovery(ctx context.Context, force bool) error {
	r.mu.Lock()
	if h := r.inflight; h != nil {
		r.mu.Unlock()
		select {
		case <-h.done:
			return h.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if !force && !r.lastRun.IsZero() && time.Since(r.lastRun) < r.minGap {
		err := r.lastErr
		r.mu.Unlock()
		return err
	}
	h := &inflight{done: make(chan struct{})}
	r.inflight = h
	r.mu.Unlock()

	h.err = r.run(ctx, force)

	r.mu.Lock()
	r.lastRun = time.Now()
	r.lastErr = h.err
	r.inflight = nil
	r.mu.Unlock()
	close(h.done)
	return h.err
}

func (r *Recoverer) run(ctx context.Context, force bool) error {
	snapshot := r.sess.Session()

	candidates := r.disco.DiscoverCoordinatorBaseURLs(ctx, force)
	if len(candidates) == 0 {
		return fmt.Errorf("recovery: no coordinator candidates: %w", common.ErrTransport)
	}

	attempts := r.probeAll(ctx, candidates)
	if len(attempts) == 0 {
		n := min(blindAttempts, len(candidates))
		attempts = candidates[:n]
		r.log.Warn(ctx, "no candidate answered the probe, trying directly", "count", n)
	}

	var firstErr error
	for _, url := range attempts {
		err := r.tryCandidate(ctx, url, snapshot)
		if err == nil {
			r.log.Info(ctx, "recovered coordinator connection", "url", url)
			if r.onRecovered != nil {
				r.onRecovered(ctx)
			}
			return nil
		}
		r.log.Warn(ctx, "recovery candidate failed", "url", url, "err", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	return fmt.Errorf("recovery: %w", firstErr)
}

// probeAll probes every candidate concurrently and returns the reachable
// ones in their original order.
func (r *Recoverer) probeAll(ctx context.Context, candidates []string) []string {
	ok := make([]bool, len(candidates))
	var wg sync.WaitGroup
	for i, url := range candidates {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			ok[i] = r.disco.ProbeCoordinatorBaseURL(ctx, url) == nil
		}(i, url)
	}
	wg.Wait()

	var reachable []string
	for i, url := range candidates {
		if ok[i] {
			reachable = append(reachable, url)
		}
	}
	return reachable
}

// tryCandidate points the session at url, then tries the saved identity
// first and falls back to bootstrap pairing when it is missing or
// rejected.
func (r *Recoverer) tryCandidate(ctx context.Context, url string, snapshot session.Session) error {
	if err := r.sess.SetBaseURL(ctx, url); err != nil {
		return err
	}

	if snapshot.PrincipalID != "" && snapshot.ClientDeviceID != "" && snapshot.DeviceSecret != "" {
		restored := snapshot
		restored.BaseURL = url
		restored.AccessToken = ""
		if err := r.sess.SetIdentity(ctx, restored); err != nil {
			return err
		}
		err := r.conn.Connect(ctx)
		if err == nil {
			return nil
		}
		r.log.Warn(ctx, "saved identity rejected, re-pairing", "url", url, "err", err)
	}

	r.sess.ClearIdentity()
	return r.conn.Bootstrap(ctx)
}
