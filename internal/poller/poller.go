package poller

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// State is the lifecycle state of a Poller.
type State int

const (
	Uninitialized State = iota
	Polling
	Stopped
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Polling:
		return "polling"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

var (
	cyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inboxwatch_poll_cycles_total",
		Help: "Completed unread polling cycles",
	}, []string{"source"})
	deltasTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inboxwatch_poll_deltas_total",
		Help: "New-message deltas detected by the poller",
	}, []string{"source"})
	fetchFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inboxwatch_poll_fetch_failures_total",
		Help: "Unread count fetches that failed",
	}, []string{"source"})
)

// Result is handed to the Handler after every cycle. Until the source has
// targets, Counts is empty and Cold is set.
type Result struct {
	Source string
	Counts Snapshot
	Total  int
	Deltas []DeltaEvent
	Cold   bool
}

// Handler receives cycle results. It is called with the poller's lock held,
// so it must not block or call back into the Poller.
type Handler func(Result)

type Config struct {
	Interval     time.Duration
	FetchTimeout time.Duration
}

// Poller periodically observes a Source and reports unread deltas.
type Poller struct {
	source       Source
	interval     time.Duration
	fetchTimeout time.Duration
	handler      Handler
	logger       zerolog.Logger

	mu    sync.Mutex
	state State
	warm  bool
	snap  Snapshot
}

func New(source Source, cfg Config, handler Handler, logger zerolog.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	return &Poller{
		source:       source,
		interval:     cfg.Interval,
		fetchTimeout: cfg.FetchTimeout,
		handler:      handler,
		logger:       logger.With().Str("component", "poller").Str("source", source.Name()).Logger(),
		snap:         Snapshot{},
	}
}

// Run polls immediately and then on every tick until ctx is cancelled. An
// in-flight cycle is abandoned on cancellation and its results discarded.
func (p *Poller) Run(ctx context.Context) {
	defer p.stop()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		done := make(chan struct{})
		go func() {
			defer close(done)
			p.cycle(ctx)
		}()

		select {
		case <-ctx.Done():
			return
		case <-done:
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Poller) stop() {
	p.mu.Lock()
	p.state = Stopped
	p.mu.Unlock()
	p.logger.Debug().Msg("poller stopped")
}

func (p *Poller) cycle(ctx context.Context) {
	targets := p.source.Targets(ctx)

	p.mu.Lock()
	if p.state == Stopped {
		p.mu.Unlock()
		return
	}
	if p.state == Uninitialized {
		if len(targets) == 0 {
			// Nothing visible yet: consumers still get a zero total.
			if p.handler != nil {
				p.handler(Result{Source: p.source.Name(), Counts: Snapshot{}, Cold: true})
			}
			p.mu.Unlock()
			return
		}
		p.state = Polling
	}
	cold := !p.warm
	p.mu.Unlock()

	obs := Observe(ctx, p.source, targets, p.fetchTimeout, p.logger)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Stopped || ctx.Err() != nil {
		return
	}

	next, deltas := PollOnce(p.snap, obs, cold)
	for i := range deltas {
		deltas[i].Source = p.source.Name()
	}
	p.snap = next
	p.warm = true

	cyclesTotal.WithLabelValues(p.source.Name()).Inc()
	deltasTotal.WithLabelValues(p.source.Name()).Add(float64(len(deltas)))

	if p.handler != nil {
		p.handler(Result{
			Source: p.source.Name(),
			Counts: next.Clone(),
			Total:  next.Total(),
			Deltas: deltas,
			Cold:   cold,
		})
	}
}

// Observe fetches every target's count concurrently. Fetches run detached
// from ctx cancellation, bounded by timeout. Failures are logged and
// returned in the observation rather than aborting the round.
func Observe(ctx context.Context, source Source, targets []Target, timeout time.Duration, logger zerolog.Logger) []Observation {
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	obs := make([]Observation, len(targets))
	var g errgroup.Group
	for i, t := range targets {
		g.Go(func() error {
			n, err := source.Count(fetchCtx, t)
			obs[i] = Observation{Key: t.Key, Label: t.Label, Count: n, Err: err}
			if err != nil {
				fetchFailuresTotal.WithLabelValues(source.Name()).Inc()
				logger.Warn().Err(err).Str("target", t.Key).Msg("unread count fetch failed, keeping previous count")
			}
			return nil
		})
	}
	g.Wait()
	return obs
}

// State returns the current lifecycle state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Counts returns a copy of the current snapshot.
func (p *Poller) Counts() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap.Clone()
}

// TotalUnread is the sum of the current counts.
func (p *Poller) TotalUnread() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap.Total()
}
