package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/accounts"
	"github.com/MrEthical07/goSession/guard"
	"github.com/MrEthical07/goSession/internal/demoauth"
	"github.com/MrEthical07/goSession/profile"
	"github.com/MrEthical07/goSession/signin"
)

// App is a wired shell ready to Run.
type App struct {
	cfg      *Config
	logger   *slog.Logger
	session  *goSession.Manager
	server   *http.Server
	listener net.Listener
	closers  []func() error
}

// New opens the store, builds the session manager and binds the listener.
// Hydration does not start until Run.
func New(ctx context.Context, cfg *Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	store, closeStore, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.closers = append(a.closers, closeStore)

	sessionCfg := goSession.DefaultConfig()
	sessionCfg.Metrics.EnableLatencyHistograms = true
	sessionCfg.Audit.Enabled = cfg.AuditLog
	session, err := goSession.New().
		WithConfig(sessionCfg).
		WithStore(store).
		WithLogger(logger).
		WithAuditSink(goSession.NewJSONWriterSink(os.Stdout)).
		Build()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build session: %w", err)
	}
	a.session = session

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	a.listener = ln

	authURL := cfg.AuthURL
	var authority http.Handler
	if cfg.EmbeddedAuthority() {
		authority, err = newDemoAuthority(cfg, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		authURL = "http://" + ln.Addr().String() + "/api"
	}

	client := accounts.New(authURL, accounts.WithTokenSource(session))
	routes := guard.DefaultRoutes()
	handler, err := NewRouter(RouterDeps{
		Config:    cfg,
		Logger:    logger,
		Session:   session,
		Flow:      &signin.Flow{Auth: client, Session: session, Routes: routes, Logger: logger},
		Syncer:    &profile.Syncer{Service: client, Session: session},
		Routes:    routes,
		Authority: authority,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	a.server = &http.Server{
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
	}
	return a, nil
}

// Addr is the bound listen address.
func (a *App) Addr() string {
	return a.listener.Addr().String()
}

// Session exposes the manager for callers embedding the shell.
func (a *App) Session() *goSession.Manager {
	return a.session
}

// Run serves until ctx is cancelled. Hydration runs alongside the server so
// early requests see the loading state.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.session.Initialize(ctx); err != nil {
			a.logger.ErrorContext(ctx, "session started logged out", slog.Any("error", err))
		}
		return nil
	})

	g.Go(func() error {
		a.logger.Info("sessiond listening", slog.String("addr", a.Addr()), slog.String("store", a.cfg.Store))
		if err := a.server.Serve(a.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close releases the store and flushes audit events.
func (a *App) Close() {
	if a.session != nil {
		a.session.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", slog.Any("error", err))
		}
	}
	a.closers = nil
}

func newDemoAuthority(cfg *Config, logger *slog.Logger) (http.Handler, error) {
	secret := []byte(cfg.AuthSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, err
		}
	}
	issuer, err := demoauth.NewIssuer(demoauth.TokenConfig{
		Secret:     secret,
		Issuer:     "sessiond",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		Leeway:     30 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("demo issuer: %w", err)
	}
	hasher, err := demoauth.NewHasher(demoauth.DefaultHashParams())
	if err != nil {
		return nil, err
	}
	dir := demoauth.NewDirectory(hasher)
	if err := seedDemoAccounts(dir); err != nil {
		return nil, err
	}
	logger.Warn("using embedded demo accounts API; do not use in production")
	return demoauth.NewServer(dir, issuer,
		demoauth.WithLogger(logger.With("component", "demoauth")),
		demoauth.WithAllowedOrigins(cfg.CORSOrigins...),
	).Handler(), nil
}

func seedDemoAccounts(dir *demoauth.Directory) error {
	seeds := []struct {
		email, first string
		role         goSession.Role
	}{
		{"student@example.com", "Sam", goSession.RoleStudent},
		{"instructor@example.com", "Ines", goSession.RoleInstructor},
		{"admin@example.com", "Ada", goSession.RoleAdmin},
	}
	for _, s := range seeds {
		if _, err := dir.Seed(s.email, "demo-password", s.role, s.first, "Demo"); err != nil {
			return fmt.Errorf("seed %s: %w", s.email, err)
		}
	}
	return nil
}
