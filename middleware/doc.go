// Package middleware adapts the guard policies to net/http.
//
// # Guards
//
//   - [Provide] attaches the session reader to every request context.
//   - [RequireRoles] and [RequireAuthenticated] protect destinations.
//   - [RequireAnonymous] protects login-style destinations.
//
// Each guard reads the session view from the request context, asks the
// guard package for a decision and translates it: Render calls the next
// handler, Wait answers 503 with a waiting page, Redirect answers 303.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into guard calls. It does NOT
// decide anything itself; all decisions come from the guard package.
//
// # What this package must NOT do
//
//   - Mutate the session.
//   - Redirect while the session is loading.
//   - Follow a return path that leaves the application.
package middleware
