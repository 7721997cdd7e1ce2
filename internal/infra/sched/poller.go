package sched

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc performs one poll. Returning true ends the poller.
type TickFunc func(ctx context.Context) (stop bool)

// Poller runs a TickFunc at a fixed interval until it reports a terminal
// outcome, the optional max duration elapses, or Stop is called. Ticks never
// overlap: a slow tick delays the next one.
type Poller struct {
	interval    time.Duration
	maxDuration time.Duration
	tickTimeout time.Duration
	tick        TickFunc
	onExpire    func()
	log         *zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type PollerConfig struct {
	Interval    time.Duration
	MaxDuration time.Duration // 0 disables the bound
	TickTimeout time.Duration
}

// NewPoller constructs a poller. onExpire, if set, runs once when MaxDuration
// elapses without a terminal tick.
func NewPoller(cfg PollerConfig, tick TickFunc, onExpire func(), logger *zerolog.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.TickTimeout <= 0 {
		cfg.TickTimeout = cfg.Interval * 5
	}
	return &Poller{
		interval:    cfg.Interval,
		maxDuration: cfg.MaxDuration,
		tickTimeout: cfg.TickTimeout,
		tick:        tick,
		onExpire:    onExpire,
		log:         logger,
		done:        make(chan struct{}),
	}
}

// Start begins polling in a background goroutine. Calling Start more than once has no effect.
func (p *Poller) Start(parentCtx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(parentCtx)
	p.cancel = cancel
	go p.loop(ctx)
}

func (p *Poller) loop(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer func() {
		ticker.Stop()
		close(p.done)
	}()

	var expire <-chan time.Time
	if p.maxDuration > 0 {
		t := time.NewTimer(p.maxDuration)
		defer t.Stop()
		expire = t.C
	}

	for {
		select {
		case <-ctx.Done():
			p.log.Debug().Msg("poller cancelled")
			return
		case <-expire:
			p.log.Warn().Dur("max_duration", p.maxDuration).Msg("poller expired")
			if p.onExpire != nil {
				p.onExpire()
			}
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, p.tickTimeout)
			stop := p.tick(runCtx)
			cancel()
			if stop {
				return
			}
		}
	}
}

// Stop cancels the poller and waits for the loop to finish. It is idempotent
// and safe to call on a poller that was never started.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-p.done
}

// Done is closed once the loop has exited.
func (p *Poller) Done() <-chan struct{} { return p.done }
