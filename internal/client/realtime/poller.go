package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/avolkov/lanferry/internal/common"
	"github.com/avolkov/lanferry/internal/logging"
)

// Poller is the polling backstop behind the push socket. It refreshes
// the catalog best-effort and the transfer list unconditionally on every
// tick, fast while the app is foregrounded and slow in the background.
type Poller struct {
	refreshCatalog   func(ctx context.Context, force bool) error
	refreshTransfers func(ctx context.Context) error
	clearToken       func()
	escalate         func(ctx context.Context)
	log              logging.Logger

	mu         sync.Mutex
	foreground bool
	failures   int
	running    bool
	stop       chan struct{}
	wake       chan struct{}

	fgInterval time.Duration
	bgInterval time.Duration
}

func NewPoller(
	refreshCatalog func(ctx context.Context, force bool) error,
	refreshTransfers func(ctx context.Context) error,
	clearToken func(),
	escalate func(ctx context.Context),
	log logging.Logger,
	fgInterval, bgInterval time.Duration,
) *Poller {
	if fgInterval <= 0 {
		fgInterval = common.PollForeground
	}
	if bgInterval <= 0 {
		bgInterval = common.PollBackground
	}
	return &Poller{
		refreshCatalog:   refreshCatalog,
		refreshTransfers: refreshTransfers,
		clearToken:       clearToken,
		escalate:         escalate,
		log:              log,
		foreground:       true,
		fgInterval:       fgInterval,
		bgInterval:       bgInterval,
	}
}

// Start launches the poll loop. A second Start without a Stop is a no-op.
func (p *Poller) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stop = make(chan struct{})
	p.wake = make(chan struct{}, 1)
	stop, wake := p.stop, p.wake
	p.mu.Unlock()

	go p.loop(stop, wake)
}

// Stop halts the loop. Safe to call repeatedly.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.running = false
	close(p.stop)
}

// SetForeground switches between the fast and slow cadence. Moving to the
// foreground also wakes the loop for an immediate tick.
func (p *Poller) SetForeground(fg bool) {
	p.mu.Lock()
	changed := p.foreground != fg
	p.foreground = fg
	wake := p.wake
	running := p.running
	p.mu.Unlock()

	if changed && fg && running {
		select {
		case wake <- struct{}{}:
		default:
		}
	}
}

func (p *Poller) interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.foreground {
		return p.fgInterval
	}
	return p.bgInterval
}

func (p *Poller) loop(stop <-chan struct{}, wake <-chan struct{}) {
	timer := time.NewTimer(p.interval())
	defer timer.Stop()
	for {
		select {
		case <-stop:
			return
		case <-wake:
		case <-timer.C:
		}
		p.tick(context.Background())
		timer.Reset(p.interval())
	}
}

// tick performs one poll. Catalog failures only log; the transfer list is
// the health signal, and enough consecutive failures mean the token or the
// endpoint is dead, so the token is dropped and recovery kicks in.
func (p *Poller) tick(ctx context.Context) {
	if err := p.refreshCatalog(ctx, false); err != nil {
		p.log.Warn(ctx, "catalog poll failed", "err", err)
	}

	if err := p.refreshTransfers(ctx); err != nil {
		p.mu.Lock()
		p.failures++
		failures := p.failures
		p.mu.Unlock()

		p.log.Warn(ctx, "transfer poll failed", "failures", failures, "err", err)
		if failures >= common.PollFailureLimit {
			p.mu.Lock()
			p.failures = 0
			p.mu.Unlock()
			p.clearToken()
			p.escalate(ctx)
		}
		return
	}

	p.mu.Lock()
	p.failures = 0
	p.mu.Unlock()
}
