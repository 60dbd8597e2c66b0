package goSession

import (
	"context"
	"reflect"
)

type readerContextKey struct{}

// NewContext attaches a session reader to ctx. Guards read it back with
// [FromContext].
func NewContext(ctx context.Context, r Reader) context.Context {
	return context.WithValue(ctx, readerContextKey{}, r)
}

// FromContext returns the reader attached by [NewContext].
func FromContext(ctx context.Context) (Reader, bool) {
	if ctx == nil {
		return nil, false
	}

	r, ok := ctx.Value(readerContextKey{}).(Reader)
	if !ok || nilReader(r) {
		return nil, false
	}
	return r, true
}

// nilReader also catches a nil pointer stored in a non-nil interface.
func nilReader(r Reader) bool {
	if r == nil {
		return true
	}
	v := reflect.ValueOf(r)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Interface, reflect.Slice, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// MustFromContext is FromContext for guards: a missing reader is a wiring
// bug, so it panics with [ErrNoSessionContext].
func MustFromContext(ctx context.Context) Reader {
	r, ok := FromContext(ctx)
	if !ok {
		panic(ErrNoSessionContext)
	}
	return r
}
