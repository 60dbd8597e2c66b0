// Package demoauth is a small in-process accounts API used by the demo
// shell and by integration tests. It speaks the same wire format as the
// production accounts service: /accounts/login/, /accounts/register/ and
// /accounts/profile/ with a {"data": ...} envelope.
//
// Access and refresh tokens are HS256 JWTs. Passwords are stored as
// Argon2id PHC strings.
//
// # What this package must NOT do
//
//   - Be used as a production identity provider. Accounts live in memory.
//   - Import the session manager's storage backends.
package demoauth
