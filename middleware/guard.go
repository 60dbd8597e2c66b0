package middleware

import (
	"context"
	"log/slog"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/guard"
)

// Options configures the guards.
type Options struct {
	Routes guard.Routes
	// Metrics, when set, counts every decision.
	Metrics *goSession.Metrics
	// Logger, when set, receives a debug record per redirect.
	Logger *slog.Logger
}

// Policy computes a decision for one request.
type Policy func(view goSession.View, r *http.Request) guard.Decision

// Provide attaches reader to every request so the guards below it can
// find the session. A nil reader, including a nil *goSession.Manager,
// panics with goSession.ErrNoSessionContext when the middleware is built.
func Provide(reader goSession.Reader) func(http.Handler) http.Handler {
	if _, ok := goSession.FromContext(goSession.NewContext(context.Background(), reader)); !ok {
		panic(goSession.ErrNoSessionContext)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := goSession.NewContext(r.Context(), reader)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Guard applies policy to each request. It panics with
// goSession.ErrNoSessionContext when Provide was not installed upstream.
func Guard(opts Options, policy Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reader := goSession.MustFromContext(r.Context())
			d := policy(reader.View(), r)

			switch d.Kind {
			case guard.Render:
				opts.Metrics.Inc(goSession.MetricGuardRender)
				next.ServeHTTP(w, r)
			case guard.Wait:
				opts.Metrics.Inc(goSession.MetricGuardWait)
				writeWaiting(w, r)
			case guard.Redirect:
				location := d.Location
				if d.From != "" {
					opts.Metrics.Inc(goSession.MetricGuardRedirectLogin)
					location = withNext(location, d.From)
				} else {
					opts.Metrics.Inc(goSession.MetricGuardRedirectLanding)
				}
				if opts.Logger != nil {
					opts.Logger.DebugContext(r.Context(), "guard redirect",
						"path", r.URL.Path, "location", location)
				}
				http.Redirect(w, r, location, http.StatusSeeOther)
			default:
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		})
	}
}

// RequireRoles lets through authenticated visitors whose role is one of
// roles. Anonymous visitors go to the login route; others go to the
// default landing.
func RequireRoles(opts Options, roles ...goSession.Role) func(http.Handler) http.Handler {
	allowed := goSession.NewRoleSet(roles...)
	return Guard(opts, func(view goSession.View, r *http.Request) guard.Decision {
		return guard.Authenticated(view, allowed, r.URL.RequestURI(), opts.Routes)
	})
}

// RequireAuthenticated is RequireRoles with every role allowed.
func RequireAuthenticated(opts Options) func(http.Handler) http.Handler {
	return RequireRoles(opts, goSession.AllRoles.Roles()...)
}

// RequireAnonymous lets through visitors who are not logged in and sends
// the rest to their role's landing.
func RequireAnonymous(opts Options) func(http.Handler) http.Handler {
	return Guard(opts, func(view goSession.View, _ *http.Request) guard.Decision {
		return guard.Anonymous(view, opts.Routes)
	})
}
