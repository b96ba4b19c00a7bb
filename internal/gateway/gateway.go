// ABOUTME: Gateway orchestrator that wires the session registry to gRPC and HTTP servers
// ABOUTME: Owns listeners, the sweep loop, health status, and graceful shutdown

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
	"tailscale.com/ipn/ipnstate"
	"tailscale.com/tsnet"

	"github.com/2389/chatbot-gateway/internal/agent"
	"github.com/2389/chatbot-gateway/internal/auth"
	"github.com/2389/chatbot-gateway/internal/chat"
	"github.com/2389/chatbot-gateway/internal/config"
	"github.com/2389/chatbot-gateway/internal/cooldown"
	"github.com/2389/chatbot-gateway/internal/metrics"
	"github.com/2389/chatbot-gateway/internal/session"
	"github.com/2389/chatbot-gateway/internal/store"
	pb "github.com/2389/chatbot-gateway/proto/chatbotpb"
)

// Tailnet ports used when tailscale is enabled.
const (
	tailnetGRPCPort = ":50052"
	tailnetHTTPPort = ":80"
)

// Gateway runs the chatbot service.
type Gateway struct {
	config      *config.Config
	registry    *session.Registry
	router      *agent.Router
	store       store.Store
	metrics     *metrics.Metrics
	grpcServer  *grpc.Server
	health      *health.Server
	httpServer  *http.Server
	tsnetServer *tsnet.Server
	logger      *slog.Logger

	// closed once listeners are bound; grpcAddr and httpAddr are set by then
	ready    chan struct{}
	grpcAddr net.Addr
	httpAddr net.Addr

	shutdownOnce sync.Once
	shutdownErr  error
}

// Option customizes New.
type Option func(*options)

type options struct {
	factory agent.Factory
	store   store.Store
	clock   func() time.Time
}

// WithFactory replaces the backend router as the agent factory.
func WithFactory(f agent.Factory) Option {
	return func(o *options) { o.factory = f }
}

// WithStore uses s as the lifecycle ledger instead of database.path.
func WithStore(s store.Store) Option {
	return func(o *options) { o.store = s }
}

// WithClock injects the registry clock.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// New creates a Gateway from cfg.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Gateway, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	gw := &Gateway{
		config:  cfg,
		metrics: metrics.New(),
		logger:  logger.With("component", "gateway"),
		ready:   make(chan struct{}),
	}

	factory := o.factory
	if factory == nil {
		router, err := newRouter(cfg, logger)
		if err != nil {
			return nil, err
		}
		gw.router = router
		factory = router
	}

	gw.store = o.store
	if gw.store == nil && cfg.Database.Path != "" {
		s, err := initStore(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		gw.store = s
	}

	regOpts := []session.Option{session.WithMetrics(gw.metrics)}
	if gw.store != nil {
		regOpts = append(regOpts, session.WithStore(gw.store))
	}
	if o.clock != nil {
		regOpts = append(regOpts, session.WithClock(o.clock))
	}
	registry, err := session.NewRegistry(sessionConfig(cfg), factory, logger, regOpts...)
	if err != nil {
		gw.closeStore()
		return nil, fmt.Errorf("creating session registry: %w", err)
	}
	gw.registry = registry

	verifier, err := newVerifier(cfg, gw.logger)
	if err != nil {
		gw.closeStore()
		return nil, err
	}

	gw.grpcServer = newGRPCServer(verifier, logger.With("component", "auth"))
	pb.RegisterChatbotServiceServer(gw.grpcServer, chat.NewService(registry, gw.metrics, logger))
	gw.health = health.NewServer()
	healthpb.RegisterHealthServer(gw.grpcServer, gw.health)
	gw.health.SetServingStatus(pb.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	if cfg.Server.Reflection {
		reflection.Register(gw.grpcServer)
		gw.logger.Info("gRPC reflection enabled")
	}

	if cfg.Server.HTTPAddr != "" || cfg.Tailscale.Enabled {
		gw.httpServer = &http.Server{
			Addr:              cfg.Server.HTTPAddr,
			Handler:           gw.Handler(verifier),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	return gw, nil
}

func sessionConfig(cfg *config.Config) session.Config {
	return session.Config{
		MaxSessions:   cfg.Sessions.MaxSessions,
		RenewAfter:    cfg.Sessions.RenewAfter,
		ZombieAfter:   cfg.Sessions.ZombieAfter,
		SweepInterval: cfg.Sessions.SweepInterval,
	}
}

// newRouter registers every backend the config enables, each behind its own
// ask cooldown.
func newRouter(cfg *config.Config, logger *slog.Logger) (*agent.Router, error) {
	router := agent.NewRouter(cfg.Chatbot.DefaultBackend, logger.With("component", "agent"))
	interval := cfg.Cooldown.AskInterval

	backends := []agent.Backend{agent.EchoBackend{}}
	if c := cfg.Chatbot.OpenAI; c.APIKey != "" {
		backends = append(backends, agent.NewOpenAIBackend(agent.OpenAIConfig{
			APIKey:    c.APIKey,
			BaseURL:   c.BaseURL,
			Model:     c.Model,
			MaxTokens: c.MaxTokens,
		}))
	}
	if c := cfg.Chatbot.Anthropic; c.APIKey != "" {
		backends = append(backends, agent.NewAnthropicBackend(agent.AnthropicConfig{
			APIKey:    c.APIKey,
			BaseURL:   c.BaseURL,
			Model:     c.Model,
			MaxTokens: c.MaxTokens,
		}))
	}

	for _, b := range backends {
		if err := router.Register(b, cooldown.New(interval)); err != nil {
			return nil, fmt.Errorf("registering %s backend: %w", b.Name(), err)
		}
	}

	if _, _, err := router.Resolve(agent.Config{}); err != nil {
		return nil, fmt.Errorf("default backend %q is not configured: %w", cfg.Chatbot.DefaultBackend, err)
	}
	return router, nil
}

// initStore opens the SQLite ledger. CHATBOT_DB_PATH overrides the configured path.
func initStore(path string) (store.Store, error) {
	if envPath := os.Getenv("CHATBOT_DB_PATH"); envPath != "" {
		path = envPath
	}
	s, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// newVerifier returns nil when auth is disabled so interceptors run anonymous.
func newVerifier(cfg *config.Config, logger *slog.Logger) (auth.TokenVerifier, error) {
	if cfg.Auth.JWTSecret == "" {
		logger.Warn("auth disabled - no jwt_secret configured")
		return nil, nil
	}
	v, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("creating JWT verifier: %w", err)
	}
	logger.Info("bearer token auth enabled")
	return v, nil
}

func newGRPCServer(verifier auth.TokenVerifier, logger *slog.Logger) *grpc.Server {
	return grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    15 * time.Second,
			Timeout: 5 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.ChainUnaryInterceptor(auth.UnaryInterceptor(verifier, logger)),
		grpc.ChainStreamInterceptor(auth.StreamInterceptor(verifier, logger)),
	)
}

// Registry exposes the session registry.
func (g *Gateway) Registry() *session.Registry { return g.registry }

// Metrics exposes the metrics collector.
func (g *Gateway) Metrics() *metrics.Metrics { return g.metrics }

// GRPCServer exposes the gRPC server, for serving on custom listeners.
func (g *Gateway) GRPCServer() *grpc.Server { return g.grpcServer }

// Ready is closed once Run has bound its listeners.
func (g *Gateway) Ready() <-chan struct{} { return g.ready }

// GRPCAddr returns the bound gRPC address; valid after Ready.
func (g *Gateway) GRPCAddr() net.Addr { return g.grpcAddr }

// HTTPAddr returns the bound HTTP address, or nil when HTTP is disabled; valid after Ready.
func (g *Gateway) HTTPAddr() net.Addr { return g.httpAddr }

// Run starts the servers and the sweep loop and blocks until ctx is canceled
// or a server fails. Returns nil on graceful shutdown.
func (g *Gateway) Run(ctx context.Context) error {
	grpcLn, httpLn, err := g.setupListeners(ctx)
	if err != nil {
		return err
	}
	g.grpcAddr = grpcLn.Addr()
	if httpLn != nil {
		g.httpAddr = httpLn.Addr()
	}

	sweepCtx, stopSweep := context.WithCancel(context.WithoutCancel(ctx))
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		_ = g.registry.Run(sweepCtx)
	}()

	errCh := g.startServers(grpcLn, httpLn)
	g.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	g.health.SetServingStatus(pb.ServiceName, healthpb.HealthCheckResponse_SERVING)
	close(g.ready)

	serverErr := g.waitForShutdownSignal(ctx, errCh)

	// Servers drain first so no ask lands on a session the sweep left mid-renewal.
	shutdownErr := g.gracefulShutdown()
	stopSweep()
	<-sweepDone

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// setupListeners creates listeners based on configuration (Tailscale or TCP).
// httpLn is nil when the HTTP server is disabled.
func (g *Gateway) setupListeners(ctx context.Context) (grpcLn, httpLn net.Listener, err error) {
	if g.config.Tailscale.Enabled {
		if g.config.Server.GRPCAddr != "" || g.config.Server.HTTPAddr != "" {
			g.logger.Warn("server.grpc_addr and server.http_addr are ignored when tailscale is enabled")
		}
		return g.setupTailscaleListeners(ctx)
	}
	return g.setupTCPListeners()
}

func (g *Gateway) setupTCPListeners() (grpcLn, httpLn net.Listener, err error) {
	g.logger.Info("starting gateway",
		"grpc_addr", g.config.Server.GRPCAddr,
		"http_addr", g.config.Server.HTTPAddr,
	)

	grpcLn, err = net.Listen("tcp", g.config.Server.GRPCAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("listening on gRPC address: %w", err)
	}
	if g.httpServer == nil {
		return grpcLn, nil, nil
	}

	httpLn, err = net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		_ = grpcLn.Close()
		return nil, nil, fmt.Errorf("listening on HTTP address: %w", err)
	}
	return grpcLn, httpLn, nil
}

// resolveTailscaleStateDir returns the state directory, using default if not configured.
func resolveTailscaleStateDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for tailscale state (set tailscale.state_dir explicitly): %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "chatbot-gateway", "tailscale"), nil
}

// resolveTailscaleAuthKey returns the auth key from config or environment.
func resolveTailscaleAuthKey(configured string) (string, error) {
	authKey := configured
	if authKey == "" {
		authKey = os.Getenv("TS_AUTHKEY")
	}
	if authKey == "" {
		return "", errors.New("tailscale auth key required: set tailscale.auth_key or TS_AUTHKEY")
	}
	return authKey, nil
}

func (g *Gateway) setupTailscaleListeners(ctx context.Context) (grpcLn, httpLn net.Listener, err error) {
	tsCfg := g.config.Tailscale

	stateDir, err := resolveTailscaleStateDir(tsCfg.StateDir)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(stateDir, 0o700); err != nil {
		return nil, nil, fmt.Errorf("creating tailscale state dir: %w", err)
	}
	authKey, err := resolveTailscaleAuthKey(tsCfg.AuthKey)
	if err != nil {
		return nil, nil, err
	}

	g.tsnetServer = &tsnet.Server{
		Hostname:  tsCfg.Hostname,
		Dir:       stateDir,
		Ephemeral: tsCfg.Ephemeral,
		AuthKey:   authKey,
	}

	g.logger.Info("starting tailscale node", "hostname", tsCfg.Hostname, "state_dir", stateDir, "ephemeral", tsCfg.Ephemeral)
	status, err := g.tsnetServer.Up(ctx)
	if err != nil {
		_ = g.tsnetServer.Close()
		return nil, nil, fmt.Errorf("starting tailscale: %w", err)
	}
	g.logTailscaleStatus(tsCfg.Hostname, status)

	grpcLn, err = g.tsnetServer.Listen("tcp", tailnetGRPCPort)
	if err != nil {
		_ = g.tsnetServer.Close()
		return nil, nil, fmt.Errorf("listening on tailscale gRPC port: %w", err)
	}
	httpLn, err = g.tsnetServer.Listen("tcp", tailnetHTTPPort)
	if err != nil {
		_ = grpcLn.Close()
		_ = g.tsnetServer.Close()
		return nil, nil, fmt.Errorf("listening on tailscale HTTP port: %w", err)
	}
	return grpcLn, httpLn, nil
}

func (g *Gateway) logTailscaleStatus(hostname string, status *ipnstate.Status) {
	var tsAddr, dnsName string
	if len(status.TailscaleIPs) > 0 {
		tsAddr = status.TailscaleIPs[0].String()
	} else {
		g.logger.Warn("tailscale node has no IP addresses assigned")
	}
	if status.Self != nil {
		dnsName = status.Self.DNSName
	}
	g.logger.Info("tailscale node ready", "hostname", hostname, "tailscale_ip", tsAddr, "dns_name", dnsName)
}

func (g *Gateway) startServers(grpcLn, httpLn net.Listener) chan error {
	errCh := make(chan error, 2)

	go func() {
		g.logger.Info("gRPC server listening", "addr", grpcLn.Addr().String())
		if err := g.grpcServer.Serve(grpcLn); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- fmt.Errorf("gRPC server: %w", err)
		}
	}()

	if httpLn != nil {
		go func() {
			g.logger.Info("HTTP server listening", "addr", httpLn.Addr().String())
			if err := g.httpServer.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("HTTP server: %w", err)
			}
		}()
	}

	return errCh
}

func (g *Gateway) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		g.logger.Error("server error", "error", err)
		select {
		case additionalErr := <-errCh:
			g.logger.Error("additional server error", "error", additionalErr)
		default:
		}
		return err
	}
}

// gracefulShutdown uses a fresh context since the run context is already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

func (g *Gateway) shutdownGRPCServer(ctx context.Context) {
	stopped := make(chan struct{})
	go func() {
		g.grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-ctx.Done():
		g.grpcServer.Stop()
	}
}

func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

func (g *Gateway) closeStore() error {
	if g.store == nil {
		return nil
	}
	return g.store.Close()
}

// Shutdown stops the servers, drops every session, and releases resources.
// Safe to call more than once.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.shutdownOnce.Do(func() {
		g.logger.Info("shutting down gateway")
		g.health.Shutdown()

		var errs []error
		if g.httpServer != nil {
			errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))
		}
		g.shutdownGRPCServer(ctx)

		g.registry.Close()

		if g.tsnetServer != nil {
			errs = appendCloseError(errs, "tailscale shutdown", g.tsnetServer.Close())
		}
		errs = appendCloseError(errs, "store close", g.closeStore())

		g.shutdownErr = errors.Join(errs...)
	})
	return g.shutdownErr
}
