package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefixed(t *testing.T) {
	ctx := context.Background()
	backend, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	states := NewPrefixed(backend, "state:")
	accounts := NewPrefixed(backend, "account_id:")

	require.NoError(t, states.Set(ctx, "42", []byte("state-blob")))
	require.NoError(t, accounts.Set(ctx, "42", []byte("account-blob")))

	// Same key, different namespaces.
	got, err := states.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, []byte("state-blob"), got)

	got, err = accounts.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, []byte("account-blob"), got)

	// The raw backend sees the prefixed keys.
	got, err = backend.Get(ctx, "state:42")
	require.NoError(t, err)
	assert.Equal(t, []byte("state-blob"), got)

	// Deleting in one namespace leaves the other intact.
	require.NoError(t, states.Delete(ctx, "42"))
	_, err = states.Get(ctx, "42")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = accounts.Get(ctx, "42")
	assert.NoError(t, err)
}

func TestPrefixedClose(t *testing.T) {
	backend, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	wrapped := NewPrefixed(backend, "state:")
	require.NoError(t, wrapped.Close())

	// Close propagates to the backend.
	_, err = backend.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrClosed)
}
