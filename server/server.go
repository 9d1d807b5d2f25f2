package server

import (
	"context"
	"fmt"
	"net/http"
	"net/netip"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-hr-tenancy/auth"
	"github.com/jrsteele09/go-hr-tenancy/internal/config"
	"github.com/jrsteele09/go-hr-tenancy/internal/notify"
	"github.com/jrsteele09/go-hr-tenancy/internal/obs"
	"github.com/jrsteele09/go-hr-tenancy/lifecycle"
	"github.com/jrsteele09/go-hr-tenancy/members"
	"github.com/jrsteele09/go-hr-tenancy/registration"
	"github.com/jrsteele09/go-hr-tenancy/store"
	"github.com/jrsteele09/go-hr-tenancy/token"
)

type Server struct {
	env    string // Environment (e.g., "DEV", "PROD")
	mux    *http.ServeMux
	routes []string
	config config.Config

	store        store.Store
	tokens       *token.Manager
	auth         *auth.Service
	registration *registration.Service
	lifecycle    *lifecycle.Controller
	members      *members.Service
	metrics      *obs.Metrics
	loginLimiter *ipRateLimiter

	trustedProxies []netip.Prefix
}

type Option func(*Server)

func WithMetrics(m *obs.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

func WithAuthOptions(options ...auth.Option) Option {
	return func(s *Server) {
		s.auth = auth.New(s.store, s.tokens, options...)
	}
}

// New wires the domain services over st, bootstraps the superadmin and
// registers the API routes.
func New(cfg config.Config, st store.Store, tokens *token.Manager, notifier notify.Notifier, options ...Option) (*Server, error) {
	s := &Server{
		env:          cfg.GetEnv(),
		mux:          http.NewServeMux(),
		config:       cfg,
		store:        st,
		tokens:       tokens,
		auth:         auth.New(st, tokens),
		registration: registration.New(st, registration.WithNotifier(notifier)),
		lifecycle:    lifecycle.New(st, lifecycle.WithNotifier(notifier)),
		members:      members.New(st, members.WithNotifier(notifier)),
		loginLimiter: newIPRateLimiter(cfg.GetLoginRatePerSecond(), cfg.GetLoginRateBurst()),

		trustedProxies: cfg.GetTrustedProxies(),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = obs.NewMetrics()
	}

	if err := s.InitialiseSystem(context.Background()); err != nil {
		return nil, fmt.Errorf("[Server New] Failed to initialise the system: %w", err)
	}

	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	log.Info().Msgf("[%s] %s", color+paddedMethod+ResetColor, path)
}
