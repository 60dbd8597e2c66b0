// Package accounts is the HTTP client for the external accounts API: login,
// registration and the current user's profile.
//
// Requests carry the session's access credential as a bearer token. The
// client never refreshes or inspects that token.
package accounts
