// Package httpserver wires the txbridge handlers onto the webhook and admin
// listeners.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/netutil"

	"git.home.luguber.info/inful/txbridge/internal/config"
	derrors "git.home.luguber.info/inful/txbridge/internal/foundation/errors"
	handlers "git.home.luguber.info/inful/txbridge/internal/server/handlers"
	smw "git.home.luguber.info/inful/txbridge/internal/server/middleware"
)

// Options carries the optional collaborators of the admin listener.
type Options struct {
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
	// Events backs /events; nil disables the endpoint.
	Events *handlers.EventHandlers
}

// Server manages the webhook and admin HTTP endpoints.
type Server struct {
	webhookServer *http.Server
	adminServer   *http.Server
	cfg           config.ServerConfig
	opts          Options
	errorAdapter  *derrors.HTTPErrorAdapter

	bridgeHandlers     *handlers.BridgeHandlers
	monitoringHandlers *handlers.MonitoringHandlers
	eventHandlers      *handlers.EventHandlers

	addrs map[string]net.Addr

	mchain func(http.Handler) http.Handler
}

// New constructs the HTTP server wiring for runner.
func New(cfg config.ServerConfig, runner handlers.Runner, opts Options) *Server {
	s := &Server{
		cfg:          cfg,
		opts:         opts,
		errorAdapter: derrors.NewHTTPErrorAdapter(slog.Default()),
		addrs:        map[string]net.Addr{},
	}
	s.bridgeHandlers = handlers.NewBridgeHandlers(runner)
	s.monitoringHandlers = handlers.NewMonitoringHandlers(s.bridgeHandlers)
	s.eventHandlers = opts.Events
	if s.eventHandlers == nil {
		s.eventHandlers = handlers.NewEventHandlers(nil)
	}
	s.mchain = smw.Chain(slog.Default(), s.errorAdapter)
	return s
}

// WebhookHandler returns the handler of the webhook listener.
func (s *Server) WebhookHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.bridgeHandlers.HandleWebhook)
	mux.HandleFunc("/client/callback", s.bridgeHandlers.HandleCallback)
	return s.mchain(mux)
}

// AdminHandler returns the handler of the admin listener.
func (s *Server) AdminHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.monitoringHandlers.HandleHealthCheck)
	mux.HandleFunc("/version", s.monitoringHandlers.HandleVersion)
	mux.HandleFunc("/events", s.eventHandlers.HandleEvents)
	if s.opts.MetricsHandler != nil {
		mux.Handle("/metrics", s.opts.MetricsHandler)
	}
	return s.mchain(mux)
}

// Start binds both listeners and serves them in the background. Binding is
// done up front so that a port conflict fails startup as a whole.
func (s *Server) Start(ctx context.Context) error {
	type preBind struct {
		name string
		addr string
		ln   net.Listener
	}
	binds := []preBind{
		{name: "webhook", addr: s.cfg.WebhookAddr},
		{name: "admin", addr: s.cfg.AdminAddr},
	}
	var bindErrs []error
	lc := net.ListenConfig{}
	for i := range binds {
		ln, err := lc.Listen(ctx, "tcp", binds[i].addr)
		if err != nil {
			bindErrs = append(bindErrs, fmt.Errorf("%s address %s: %w", binds[i].name, binds[i].addr, err))
			continue
		}
		binds[i].ln = ln
		s.addrs[binds[i].name] = ln.Addr()
	}
	if len(bindErrs) > 0 {
		for _, b := range binds {
			if b.ln != nil {
				_ = b.ln.Close()
			}
		}
		return fmt.Errorf("http startup failed: %w", errors.Join(bindErrs...))
	}

	webhookLn := binds[0].ln
	if s.cfg.MaxConnections > 0 {
		webhookLn = netutil.LimitListener(webhookLn, s.cfg.MaxConnections)
	}

	// Conversions can take minutes, so the webhook listener has no write deadline.
	s.webhookServer = &http.Server{Handler: s.WebhookHandler(), ReadHeaderTimeout: 10 * time.Second, ReadTimeout: 30 * time.Second, IdleTimeout: 60 * time.Second}
	s.adminServer = &http.Server{Handler: s.AdminHandler(), ReadHeaderTimeout: 10 * time.Second, ReadTimeout: 30 * time.Second, WriteTimeout: 30 * time.Second, IdleTimeout: 120 * time.Second}
	s.startServerWithListener("webhook", s.webhookServer, webhookLn)
	s.startServerWithListener("admin", s.adminServer, binds[1].ln)

	slog.Info("HTTP servers started",
		slog.String("webhook_addr", binds[0].ln.Addr().String()),
		slog.String("admin_addr", binds[1].ln.Addr().String()),
		slog.Int("max_connections", s.cfg.MaxConnections))
	return nil
}

// Addr returns the bound address of the named listener ("webhook" or "admin").
func (s *Server) Addr(name string) net.Addr {
	return s.addrs[name]
}

// Stop gracefully shuts down both HTTP servers.
func (s *Server) Stop(ctx context.Context) error {
	var errs []error
	if s.adminServer != nil {
		if err := s.adminServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("admin server shutdown: %w", err))
		}
	}
	if s.webhookServer != nil {
		if err := s.webhookServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("webhook server shutdown: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	slog.Info("HTTP servers stopped")
	return nil
}

// startServerWithListener launches srv on a pre-bound listener.
func (s *Server) startServerWithListener(kind string, srv *http.Server, ln net.Listener) {
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error(fmt.Sprintf("%s server error", kind), "error", err)
		}
	}()
}
