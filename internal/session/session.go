package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/edvin/inboxwatch/internal/dispatch"
	"github.com/edvin/inboxwatch/internal/poller"
)

const outboundBuffer = 64

var errBacklogFull = errors.New("stream backlog full")

var activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "inboxwatch_stream_sessions_active",
	Help: "Open notification stream sessions",
})

type Config struct {
	MailInterval time.Duration
	ChatInterval time.Duration
	FetchTimeout time.Duration
}

// Options are per-connection settings supplied by the client at connect time.
type Options struct {
	Permission dispatch.Permission
	Quiet      bool
}

// Manager runs one notification session per stream connection.
type Manager struct {
	accounts      poller.AccountLister
	mailbox       poller.MailboxCounter
	conversations poller.ConversationLister
	chat          poller.ChatCounter
	cfg           Config
	logger        zerolog.Logger
}

// NewManager creates a Manager. A nil mailbox or chat counter disables that
// source.
func NewManager(
	accounts poller.AccountLister,
	mailbox poller.MailboxCounter,
	conversations poller.ConversationLister,
	chat poller.ChatCounter,
	cfg Config,
	logger zerolog.Logger,
) *Manager {
	return &Manager{
		accounts:      accounts,
		mailbox:       mailbox,
		conversations: conversations,
		chat:          chat,
		cfg:           cfg,
		logger:        logger.With().Str("component", "session").Logger(),
	}
}

// Serve drives pollers and a dispatcher for the user over conn until the
// client disconnects or ctx is cancelled.
func (m *Manager) Serve(ctx context.Context, conn *websocket.Conn, userID string, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	activeSessions.Inc()
	defer activeSessions.Dec()

	s := &session{
		out:        make(chan Frame, outboundBuffer),
		permission: opts.Permission,
		logger:     m.logger.With().Str("user_id", userID).Logger(),
	}
	if s.permission == "" {
		s.permission = dispatch.PermissionDefault
	}
	s.dispatcher = dispatch.New(s, s, s, s.logger)
	s.dispatcher.SetSuppressed(opts.Quiet)

	var wg sync.WaitGroup
	run := func(src poller.Source, interval time.Duration) {
		p := poller.New(src, poller.Config{Interval: interval, FetchTimeout: m.cfg.FetchTimeout}, s.handleResult(ctx), s.logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Run(ctx)
		}()
	}
	if m.mailbox != nil {
		run(poller.NewMailSource(userID, m.accounts, m.mailbox), m.cfg.MailInterval)
	}
	if m.chat != nil {
		run(poller.NewChatSource(userID, m.conversations, m.chat), m.cfg.ChatInterval)
	}

	writeErr := make(chan error, 1)
	go func() {
		writeErr <- s.writeLoop(ctx, conn)
		cancel()
	}()

	s.logger.Info().Msg("notification stream opened")
	err := s.readLoop(ctx, conn)
	cancel()
	wg.Wait()
	s.dispatcher.Wait()

	if werr := <-writeErr; werr != nil && err == nil {
		err = werr
	}
	s.logger.Info().Msg("notification stream closed")

	if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
		websocket.CloseStatus(err) == websocket.StatusGoingAway ||
		errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

type session struct {
	out        chan Frame
	dispatcher *dispatch.Dispatcher
	logger     zerolog.Logger

	mu         sync.Mutex
	permission dispatch.Permission
}

func (s *session) handleResult(ctx context.Context) poller.Handler {
	return func(r poller.Result) {
		total := r.Total
		if err := s.enqueue(Frame{Type: FrameUnread, Source: r.Source, Counts: r.Counts, Total: &total}); err != nil {
			s.logger.Warn().Err(err).Str("source", r.Source).Msg("dropped unread frame")
		}
		for _, d := range r.Deltas {
			s.dispatcher.OnDelta(ctx, d)
		}
	}
}

func (s *session) enqueue(f Frame) error {
	select {
	case s.out <- f:
		return nil
	default:
		return errBacklogFull
	}
}

func (s *session) writeLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case f := <-s.out:
			if err := wsjson.Write(ctx, conn, f); err != nil {
				return err
			}
		}
	}
}

func (s *session) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		var f ClientFrame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			return err
		}

		switch f.Type {
		case FramePermission:
			s.mu.Lock()
			s.permission = dispatch.ParsePermission(f.State)
			s.mu.Unlock()
		case FrameQuiet:
			s.dispatcher.SetSuppressed(f.Enabled)
		default:
			s.logger.Debug().Str("type", f.Type).Msg("ignoring unknown client frame")
		}
	}
}

func (s *session) Play(context.Context) error {
	return s.enqueue(Frame{Type: FrameSound})
}

func (s *session) Toast(_ context.Context, t dispatch.Toast) error {
	return s.enqueue(Frame{Type: FrameToast, Key: t.Key, Title: t.Title, Message: t.Message})
}

func (s *session) Permission() dispatch.Permission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permission
}

func (s *session) RequestPermission(context.Context) error {
	return s.enqueue(Frame{Type: FrameRequestPermission})
}

func (s *session) Notify(_ context.Context, n dispatch.Notification) error {
	return s.enqueue(Frame{Type: FrameNotification, Key: n.Tag, Title: n.Title, Message: n.Body})
}
