package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/guard"
	"github.com/MrEthical07/goSession/metrics/export/prometheus"
	"github.com/MrEthical07/goSession/middleware"
	"github.com/MrEthical07/goSession/profile"
	"github.com/MrEthical07/goSession/signin"
)

// RouterDeps aggregates what the router serves.
type RouterDeps struct {
	Config  *Config
	Logger  *slog.Logger
	Session *goSession.Manager
	Flow    *signin.Flow
	Syncer  *profile.Syncer
	Routes  guard.Routes
	// Authority, when set, is mounted under /api.
	Authority http.Handler
}

var dashboardTitles = map[goSession.Role]string{
	goSession.RoleStudent:    "Student dashboard",
	goSession.RoleInstructor: "Instructor dashboard",
	goSession.RoleAdmin:      "Admin dashboard",
}

// NewRouter builds the shell's routes. Every page route sits behind
// middleware.Provide so the guards can read the session.
func NewRouter(deps RouterDeps) (http.Handler, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	h := &handlers{
		session: deps.Session,
		flow:    deps.Flow,
		syncer:  deps.Syncer,
		routes:  deps.Routes,
		pages:   pages,
		logger:  deps.Logger,
	}
	opts := middleware.Options{
		Routes:  deps.Routes,
		Metrics: deps.Session.Metrics(),
		Logger:  deps.Logger,
	}

	r := chi.NewRouter()
	r.Use(
		chimw.RequestID,
		chimw.RealIP,
		requestLogger(deps.Logger),
		chimw.Recoverer,
		secureHeaders(deps.Config, deps.Logger),
		middleware.Provide(deps.Session),
	)

	r.Get("/healthz", healthz)
	r.Get("/session.json", h.sessionJSON)
	r.Handle("/metrics", prometheus.NewExporter(deps.Session).Handler())
	if deps.Authority != nil {
		r.Mount("/api", deps.Authority)
	}

	r.Get("/", h.home)
	r.Get(signin.VerifyEmailPath, h.verifyEmail)
	r.With(middleware.Guard(opts, settledOnly)).Post("/logout", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAnonymous(opts))
		r.Get("/login", h.showLogin)
		r.With(httprate.Limit(
			deps.Config.LoginRateLimit, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
		)).Post("/login", h.handleLogin)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuthenticated(opts))
		r.Get("/profile", h.showProfile)
		r.Post("/profile", h.handleProfile)
	})

	for _, role := range goSession.AllRoles.Roles() {
		path, ok := deps.Routes.Landing[role]
		if !ok || path == "" {
			continue
		}
		r.With(middleware.RequireRoles(opts, role)).Get(path, h.dashboard(dashboardTitles[role]))
	}

	return r, nil
}

// settledOnly holds requests while the session is loading and lets
// everything through afterwards.
func settledOnly(view goSession.View, _ *http.Request) guard.Decision {
	if view.IsLoading() {
		return guard.Decision{Kind: guard.Wait}
	}
	return guard.Decision{Kind: guard.Render}
}

func secureHeaders(cfg *Config, logger *slog.Logger) func(http.Handler) http.Handler {
	sm := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "same-origin",
		ContentSecurityPolicy: "default-src 'self'; style-src 'self' 'unsafe-inline'",
		SSLRedirect:           cfg.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         !cfg.IsProduction(),
	})
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := sm.Process(w, r); err != nil {
				logger.WarnContext(r.Context(), "secure headers blocked request", slog.Any("error", err))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.DebugContext(r.Context(), "request",
				slog.String("request_id", chimw.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("elapsed", time.Since(start)),
			)
		})
	}
}
