// Package guard holds the navigation policy applied to session views: which
// destinations an authenticated or anonymous visitor may reach, and where
// they are sent otherwise.
//
// # Decisions
//
// Every policy returns a [Decision]: render the destination, wait for the
// session to settle, or redirect. While the session is loading the answer is
// always [Wait]; a policy never redirects on an unknown state.
//
// # Architecture boundaries
//
// Policies are pure functions of a goSession.View and a [Routes] table. They
// perform no I/O and keep no state. HTTP translation lives in middleware.
//
// # What this package must NOT do
//
//   - Mutate the session.
//   - Inspect tokens.
package guard
