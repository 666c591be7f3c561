package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/edvin/inboxwatch/internal/api/handler"
	mw "github.com/edvin/inboxwatch/internal/api/middleware"
	"github.com/edvin/inboxwatch/internal/config"
	"github.com/edvin/inboxwatch/internal/core"
	"github.com/edvin/inboxwatch/internal/push"
	"github.com/edvin/inboxwatch/internal/session"
	"github.com/edvin/inboxwatch/internal/stalwart"
)

type Server struct {
	router   chi.Router
	logger   zerolog.Logger
	services *core.Services
	sessions *session.Manager
	mailbox  *stalwart.JMAPClient
	corePool *pgxpool.Pool
	cfg      *config.Config
}

func NewServer(logger zerolog.Logger, coreDB *pgxpool.Pool, cfg *config.Config) *Server {
	pusher := push.NewClient(cfg.PushAPIURL, cfg.PushAccessToken, cfg.PushTimeout)
	if !pusher.Enabled() {
		logger.Warn().Msg("PUSH_ACCESS_TOKEN not set, push fan-out disabled")
	}

	services := core.NewServices(coreDB, core.ServicesConfig{
		JWTSecret: cfg.JWTSecret,
		JWTIssuer: cfg.JWTIssuer,
		JWTTTL:    cfg.JWTTTL,
	}, pusher)
	mailbox := stalwart.NewJMAPClient(cfg.StalwartURL, cfg.StalwartAdminToken)

	s := &Server{
		router:   chi.NewRouter(),
		logger:   logger,
		services: services,
		mailbox:  mailbox,
		corePool: coreDB,
		cfg:      cfg,
		sessions: session.NewManager(services.Access, mailbox, services.Access, services.Chat, session.Config{
			MailInterval: cfg.MailPollInterval,
			ChatInterval: cfg.ChatPollInterval,
			FetchTimeout: cfg.FetchTimeout,
		}, logger),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
	s.router.Use(mw.CORS(s.cfg.CORSOrigins))
}

func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", promhttp.Handler())
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	auth := handler.NewAuth(s.services.Auth)
	s.router.Post("/auth/login", auth.Login)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.Auth(s.services.Auth))

		me := handler.NewMe(s.services.Auth)
		r.Get("/me", me.Get)

		account := handler.NewAccount(s.services.Access)
		r.Get("/accounts", account.List)

		unread := handler.NewUnread(handler.UnreadSources{
			Accounts:      s.services.Access,
			Mailbox:       s.mailbox,
			Conversations: s.services.Access,
			Chat:          s.services.Chat,
		}, s.cfg.FetchTimeout)
		r.Get("/unread", unread.Get)

		stream := handler.NewStream(s.sessions, originPatterns(s.cfg.CORSOrigins))
		r.Get("/stream", stream.Connect)

		device := handler.NewDevice(s.services.Device)
		r.Post("/devices", device.Register)
		r.Delete("/devices/{token}", device.Delete)

		conversation := handler.NewConversation(s.services.Access, s.services.Chat)
		r.Get("/conversations", conversation.List)
		r.Post("/conversations/{id}/messages", conversation.PostMessage)
		r.Post("/conversations/{id}/read", conversation.MarkRead)

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAdmin(s.services.Role))

			pushHandler := handler.NewPush(s.services.Push)
			r.Post("/push/send", pushHandler.Send)
		})
	})
}

// originPatterns turns configured CORS origins into the host patterns the
// WebSocket upgrade checks against.
func originPatterns(origins []string) []string {
	var patterns []string
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		patterns = append(patterns, u.Host)
	}
	return patterns
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := s.corePool.Ping(ctx); err != nil {
		checks["core_db"] = err.Error()
		healthy = false
	} else {
		checks["core_db"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(checks)
}

// Shutdown waits for background chat notifications to finish.
func (s *Server) Shutdown() {
	s.services.Chat.Wait()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
