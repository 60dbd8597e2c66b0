package goSession

import "errors"

var (
	// ErrNotSettled is returned by mutations issued before Initialize completed.
	ErrNotSettled = errors.New("session not settled")
	// ErrInvalidCredentials is returned by Login when either token is empty.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidUser is returned when a user record fails validation.
	ErrInvalidUser = errors.New("invalid user record")
	// ErrPersistFailed wraps a durable-store write failure. Memory state is
	// left unchanged when it is returned.
	ErrPersistFailed = errors.New("session persist failed")
	// ErrStoreUnavailable wraps a durable-store read failure during hydration.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrNoSessionContext signals that a guard ran without a session in its
	// context. It is a wiring bug and guards panic with it.
	ErrNoSessionContext = errors.New("guard used outside a session context")
	// ErrStoreRequired is returned by Build when no durable store was given.
	ErrStoreRequired = errors.New("durable store required")
	// ErrBuilderUsed is returned when Build is called twice.
	ErrBuilderUsed = errors.New("builder already used")
)
