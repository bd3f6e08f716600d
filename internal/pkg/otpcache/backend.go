package otpcache

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by a Backend when no record exists for a phone.
	// It is authoritative: the cache does not consult later backends.
	ErrNotFound = errors.New("otpcache: record not found")

	// ErrEmptyPhone is returned when an operation receives an empty phone key.
	ErrEmptyPhone = errors.New("otpcache: phone is required")

	// ErrMissingExpiry is returned by Set when the record has no ExpiresAt.
	ErrMissingExpiry = errors.New("otpcache: record expiresAt is required")

	// ErrSerialize wraps failures converting a record into its stored form.
	ErrSerialize = errors.New("otpcache: serialize record")

	// ErrDeserialize wraps failures decoding a stored record.
	ErrDeserialize = errors.New("otpcache: deserialize record")
)

// Backend is a single key-value store the cache can read and write.
//
// Implementations own their key scheme and encoding. Any error other than
// ErrNotFound or ErrDeserialize is treated as a connectivity failure and makes
// the cache try the next backend in its chain.
type Backend interface {
	Name() string
	Set(ctx context.Context, phone string, entry Entry) error
	Get(ctx context.Context, phone string) (*Record, error)
	Delete(ctx context.Context, phone string) error
	Close() error
}

const keyPrefix = "otp:"

func namespacedKey(phone string) string {
	return keyPrefix + phone
}
