// Package storage provides key-value stores for persisting client session
// state between process runs, with file and Redis backends and CBOR
// serialization helpers.
package storage

import "context"

// Storage is the contract for state persistence backends.
// All implementations must be safe for concurrent use.
type Storage interface {
	// Get retrieves the value stored under key.
	// Returns ErrNotFound if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value under key, overwriting any existing value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the value stored under key.
	// Returns nil if the key doesn't exist (idempotent operation).
	Delete(ctx context.Context, key string) error

	// Close releases backend resources. The store must not be used afterwards.
	Close() error
}

// Prefixed wraps a store so every key is namespaced with a fixed prefix.
// Clients use it to partition one backend between state kinds
// (e.g. "state:" vs "account_id:") without coordinating key names.
type Prefixed struct {
	store  Storage
	prefix string
}

// NewPrefixed wraps store with the given key prefix.
func NewPrefixed(store Storage, prefix string) *Prefixed {
	return &Prefixed{store: store, prefix: prefix}
}

// Get retrieves the value stored under the prefixed key.
func (p *Prefixed) Get(ctx context.Context, key string) ([]byte, error) {
	return p.store.Get(ctx, p.prefix+key)
}

// Set stores a value under the prefixed key.
func (p *Prefixed) Set(ctx context.Context, key string, value []byte) error {
	return p.store.Set(ctx, p.prefix+key, value)
}

// Delete removes the value stored under the prefixed key.
func (p *Prefixed) Delete(ctx context.Context, key string) error {
	return p.store.Delete(ctx, p.prefix+key)
}

// Close closes the underlying store.
func (p *Prefixed) Close() error {
	return p.store.Close()
}
