// Package goSession keeps the authentication state of a single-user client
// process: who is logged in, whether that answer is known yet, and how the
// answer is persisted across restarts.
//
// A [Manager] is built once with [Builder], hydrated from durable storage
// with [Manager.Initialize], and then mutated only through [Manager.Login],
// [Manager.Logout] and [Manager.UpdateUser]. Every mutation writes the
// durable store and the in-memory record as one step: if the store write
// fails, memory keeps the previous state.
//
// # Architecture boundaries
//
// goSession is the public surface. It owns the [View] snapshot consumed by
// the guard package, the [Role] enumeration, and the storage key layout.
// Backends live in storage/, navigation policy in guard/ and middleware/,
// account and profile plumbing in accounts/, profile/ and signin/.
//
// # What this package must NOT do
//
//   - Inspect, verify, or refresh the opaque access/refresh tokens.
//   - Make redirect decisions (guard owns those).
//   - Coordinate state with other processes sharing the same store.
package goSession
