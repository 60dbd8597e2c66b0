package storage

import (
	"context"
	"errors"
)

// ErrUnavailable wraps backend I/O failures.
var ErrUnavailable = errors.New("storage unavailable")

// ErrCorrupt is returned by Get when the backing medium exists but cannot
// be parsed. Apply recovers from it by rewriting the medium.
var ErrCorrupt = errors.New("storage corrupt")

// Store is a small string key-value store with atomic batch writes.
type Store interface {
	// Get returns the value under key. A missing key is ("", false, nil).
	Get(ctx context.Context, key string) (string, bool, error)
	// Apply performs every op or none of them.
	Apply(ctx context.Context, ops ...Op) error
}

// OpKind distinguishes writes from deletes.
type OpKind uint8

const (
	OpSet OpKind = iota + 1
	OpDelete
)

// Op is one step of an Apply batch.
type Op struct {
	Kind  OpKind
	Key   string
	Value string
}

// Set builds a write of value under key.
func Set(key, value string) Op {
	return Op{Kind: OpSet, Key: key, Value: value}
}

// Delete builds a removal of key. Deleting a missing key is not an error.
func Delete(key string) Op {
	return Op{Kind: OpDelete, Key: key}
}

func applyTo(m map[string]string, ops []Op) {
	for _, op := range ops {
		switch op.Kind {
		case OpSet:
			m[op.Key] = op.Value
		case OpDelete:
			delete(m, op.Key)
		}
	}
}

func validateOps(ops []Op) error {
	for _, op := range ops {
		if op.Key == "" {
			return errors.New("storage op with empty key")
		}
		if op.Kind != OpSet && op.Kind != OpDelete {
			return errors.New("storage op with unknown kind")
		}
	}
	return nil
}
