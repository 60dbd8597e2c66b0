// Package signin orchestrates logging in and out: it asks the accounts API
// for credentials, refuses unverified accounts, records the session and
// picks the page to land on.
package signin

import (
	"context"
	"errors"
	"log/slog"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/accounts"
	"github.com/MrEthical07/goSession/guard"
)

// VerifyEmailPath is where unverified users are sent.
const VerifyEmailPath = "/verify-email-prompt"

// ErrEmailUnverified is returned when the account exists but its email has
// not been verified. The session is not touched.
var ErrEmailUnverified = errors.New("email address not verified")

// Authenticator exchanges credentials with the token authority.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (goSession.Credentials, goSession.User, error)
}

// Result says where to go after a sign-in attempt.
type Result struct {
	Redirect string
	User     goSession.User
}

// Flow wires an authenticator to a session.
type Flow struct {
	Auth    Authenticator
	Session goSession.Session
	Routes  guard.Routes
	Logger  *slog.Logger
}

// SignIn authenticates and, on success, records the session and returns
// the landing for the user's role.
func (f *Flow) SignIn(ctx context.Context, email, password string) (Result, error) {
	creds, user, err := f.Auth.Login(ctx, email, password)
	if err != nil {
		if accounts.IsEmailUnverified(err) {
			f.log(ctx, "sign-in refused, email unverified")
			return Result{Redirect: VerifyEmailPath}, ErrEmailUnverified
		}
		return Result{}, err
	}
	if !user.EmailVerified {
		f.log(ctx, "sign-in refused, email unverified", "user_id", user.ID)
		return Result{Redirect: VerifyEmailPath, User: user}, ErrEmailUnverified
	}

	if err := f.Session.Login(ctx, creds, user); err != nil {
		return Result{}, err
	}
	f.log(ctx, "signed in", "user_id", user.ID, "role", user.Role.String())
	return Result{Redirect: f.Routes.LandingFor(user.Role), User: user}, nil
}

// SignOut ends the session and returns the login path.
func (f *Flow) SignOut(ctx context.Context) (string, error) {
	if err := f.Session.Logout(ctx); err != nil {
		return "", err
	}
	login := f.Routes.Login
	if login == "" {
		login = "/login"
	}
	return login, nil
}

func (f *Flow) log(ctx context.Context, msg string, args ...any) {
	if f.Logger == nil {
		return
	}
	f.Logger.InfoContext(ctx, msg, args...)
}
