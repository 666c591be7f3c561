package dispatch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/edvin/inboxwatch/internal/poller"
)

// Permission is the system notification permission reported by the client.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// ParsePermission maps a client-reported value to a Permission. Unknown
// values are treated as undetermined.
func ParsePermission(s string) Permission {
	switch Permission(s) {
	case PermissionGranted, PermissionDenied:
		return Permission(s)
	default:
		return PermissionDefault
	}
}

type Toast struct {
	Key     string `json:"key"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

type Notification struct {
	Tag   string `json:"tag"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

type Sound interface {
	Play(ctx context.Context) error
}

type Toaster interface {
	Toast(ctx context.Context, t Toast) error
}

type SystemNotifier interface {
	Permission() Permission
	RequestPermission(ctx context.Context) error
	Notify(ctx context.Context, n Notification) error
}

var channelFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "inboxwatch_dispatch_failures_total",
	Help: "Notification channel side effects that failed",
}, []string{"channel"})

// Dispatcher turns unread deltas into local side effects. Each channel runs
// independently; a failing channel never blocks the others.
type Dispatcher struct {
	sound    Sound
	toaster  Toaster
	notifier SystemNotifier
	logger   zerolog.Logger

	suppressed atomic.Bool

	mu             sync.Mutex
	requestPending bool

	wg sync.WaitGroup
}

// New creates a Dispatcher. Any channel may be nil to disable it.
func New(sound Sound, toaster Toaster, notifier SystemNotifier, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		sound:    sound,
		toaster:  toaster,
		notifier: notifier,
		logger:   logger.With().Str("component", "dispatcher").Logger(),
	}
}

// SetSuppressed turns all side effects off or back on.
func (d *Dispatcher) SetSuppressed(v bool) {
	d.suppressed.Store(v)
}

func (d *Dispatcher) Suppressed() bool {
	return d.suppressed.Load()
}

// OnDelta fires every channel for the event and returns without waiting.
func (d *Dispatcher) OnDelta(ctx context.Context, e poller.DeltaEvent) {
	if d.suppressed.Load() || e.NewCount() <= 0 {
		return
	}

	msg := NewMessagesText(e.NewCount())

	if d.sound != nil {
		d.spawn(ctx, "sound", e, func(ctx context.Context) error {
			return d.sound.Play(ctx)
		})
	}
	if d.toaster != nil {
		d.spawn(ctx, "toast", e, func(ctx context.Context) error {
			return d.toaster.Toast(ctx, Toast{Key: e.Key, Title: e.Label, Message: msg})
		})
	}
	if d.notifier != nil {
		d.spawn(ctx, "system", e, func(ctx context.Context) error {
			return d.notifySystem(ctx, Notification{Tag: e.Key, Title: e.Label, Body: msg})
		})
	}
}

func (d *Dispatcher) spawn(ctx context.Context, channel string, e poller.DeltaEvent, fn func(context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				channelFailuresTotal.WithLabelValues(channel).Inc()
				d.logger.Error().Interface("panic", r).Str("channel", channel).Msg("notification channel panicked")
			}
		}()
		if err := fn(ctx); err != nil {
			channelFailuresTotal.WithLabelValues(channel).Inc()
			d.logger.Warn().Err(err).Str("channel", channel).Str("target", e.Key).Msg("notification channel failed")
		}
	}()
}

func (d *Dispatcher) notifySystem(ctx context.Context, n Notification) error {
	switch d.notifier.Permission() {
	case PermissionGranted:
		d.clearPending()
		return d.notifier.Notify(ctx, n)
	case PermissionDenied:
		d.clearPending()
		return nil
	default:
		d.mu.Lock()
		if d.requestPending {
			d.mu.Unlock()
			return nil
		}
		d.requestPending = true
		d.mu.Unlock()
		if err := d.notifier.RequestPermission(ctx); err != nil {
			// The client never saw the request; ask again on the next delta.
			d.clearPending()
			return err
		}
		return nil
	}
}

func (d *Dispatcher) clearPending() {
	d.mu.Lock()
	d.requestPending = false
	d.mu.Unlock()
}

// Wait blocks until every side effect started so far has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// NewMessagesText renders the toast body for n new messages.
func NewMessagesText(n int) string {
	if n == 1 {
		return "1 new message"
	}
	return fmt.Sprintf("%d new messages", n)
}
