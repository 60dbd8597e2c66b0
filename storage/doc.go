// Package storage provides the durable key-value backends a session is
// persisted to: in-memory, a JSON file, Redis and SQLite.
//
// # Atomicity
//
// [Store.Apply] is all-or-nothing. The session writes its credential pair
// and user record in one Apply call so the three keys never disagree, even
// when the process dies mid-write.
//
// # Architecture boundaries
//
// Values are opaque strings. This package does not decode user records or
// tokens; the root goSession package owns the key layout and the codec.
//
// # What this package must NOT do
//
//   - Import goSession (no upward imports).
//   - Retry failed writes. The caller decides whether a failure is fatal.
package storage
