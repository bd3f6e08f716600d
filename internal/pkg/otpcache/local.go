package otpcache

import (
	"context"

	gocache "github.com/patrickmn/go-cache"
)

// Local is an in-process Backend. Entries never expire on their own and are
// keyed by the raw phone number.
type Local struct {
	store *gocache.Cache
}

// NewLocal returns an empty in-process backend without a cleanup janitor.
func NewLocal() *Local {
	return &Local{store: gocache.New(gocache.NoExpiration, 0)}
}

// Name implements Backend.
func (*Local) Name() string { return "local" }

// Set stores the unserialized record.
func (l *Local) Set(_ context.Context, phone string, entry Entry) error {
	l.store.Set(phone, entry.Record, gocache.NoExpiration)
	return nil
}

// Get returns ErrNotFound when nothing is stored for phone.
func (l *Local) Get(_ context.Context, phone string) (*Record, error) {
	v, found := l.store.Get(phone)
	if !found {
		return nil, ErrNotFound
	}

	rec, ok := v.(Record)
	if !ok {
		return nil, ErrDeserialize
	}

	return &rec, nil
}

// Delete removes phone if present.
func (l *Local) Delete(_ context.Context, phone string) error {
	l.store.Delete(phone)
	return nil
}

// Len returns the number of stored records.
func (l *Local) Len() int {
	return l.store.ItemCount()
}

// Close is a no-op; the map lives as long as the process.
func (*Local) Close() error { return nil }
