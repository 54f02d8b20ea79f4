package client

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuthenticator struct {
	ident string
	err   error
	calls int
}

func (a *fakeAuthenticator) Authenticate(ctx context.Context, c *Client) error {
	a.calls++
	if a.err != nil {
		return a.err
	}
	return c.SetAuthenticated(ctx, a.ident)
}

type fakeRecoverer struct {
	ok    bool
	err   error
	calls int
}

func (r *fakeRecoverer) RecoverAuth(context.Context, *Client, *AuthRequiredError) (bool, error) {
	r.calls++
	return r.ok, r.err
}

func TestWithAuthAutoAuthenticates(t *testing.T) {
	auth := &fakeAuthenticator{ident: "alice"}
	c := newTestClient(t, "", func(b *Builder) { b.WithAuth(auth) })

	var opCalls int
	op := func(context.Context) error { opCalls++; return nil }

	require.NoError(t, c.WithAuth(context.Background(), op))
	assert.Equal(t, 1, auth.calls)
	assert.Equal(t, 1, opCalls)
	assert.True(t, c.IsAuthenticated())
	assert.Equal(t, "alice", c.AuthIdent())

	// Already authenticated: op runs without another round.
	require.NoError(t, c.WithAuth(context.Background(), op))
	assert.Equal(t, 1, auth.calls)
	assert.Equal(t, 2, opCalls)
}

func TestWithAuthAuthenticationFails(t *testing.T) {
	auth := &fakeAuthenticator{err: errors.New("bad credentials")}
	c := newTestClient(t, "", func(b *Builder) { b.WithAuth(auth) })

	var opCalls int
	err := c.WithAuth(context.Background(), func(context.Context) error { opCalls++; return nil })

	assert.EqualError(t, err, "bad credentials")
	assert.Zero(t, opCalls)
	assert.False(t, c.IsAuthenticated())
}

func TestWithAuthNoAuthenticator(t *testing.T) {
	c := newTestClient(t, "", nil)
	err := c.WithAuth(context.Background(), func(context.Context) error { return nil })
	assert.EqualError(t, err, "authenticator not configured")
}

func TestWithAuthDisabledRunsOpDirectly(t *testing.T) {
	auth := &fakeAuthenticator{ident: "alice"}
	c := newTestClient(t, "", func(b *Builder) { b.WithAuth(auth).WithAutoAuthenticate(false) })

	var opCalls int
	require.NoError(t, c.WithAuth(context.Background(), func(context.Context) error { opCalls++; return nil }))
	assert.Zero(t, auth.calls)
	assert.Equal(t, 1, opCalls)
}

func TestWithAuthRecovery(t *testing.T) {
	authRequired := NewAuthRequiredError(nil, "alice", "token expired")

	// authenticated returns a client past the auto-authentication gate.
	authenticated := func(t *testing.T, rec *fakeRecoverer, opts func(*Builder)) *Client {
		t.Helper()
		c := newTestClient(t, "", func(b *Builder) {
			b.WithAuth(&fakeAuthenticator{ident: "alice"})
			if rec != nil {
				b.WithAuthRecoverer(rec)
			}
			if opts != nil {
				opts(b)
			}
		})
		require.NoError(t, c.SetAuthenticated(context.Background(), "alice"))
		return c
	}

	t.Run("recovered_reruns_op_once", func(t *testing.T) {
		rec := &fakeRecoverer{ok: true}
		c := authenticated(t, rec, nil)

		var opCalls int
		err := c.WithAuth(context.Background(), func(context.Context) error {
			opCalls++
			if opCalls == 1 {
				return authRequired
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 2, opCalls)
		assert.Equal(t, 1, rec.calls)
		assert.True(t, c.IsAuthenticated())
	})

	t.Run("second_failure_returned_directly", func(t *testing.T) {
		rec := &fakeRecoverer{ok: true}
		c := authenticated(t, rec, nil)

		var opCalls int
		err := c.WithAuth(context.Background(), func(context.Context) error {
			opCalls++
			return authRequired
		})

		assert.Same(t, authRequired, err)
		assert.Equal(t, 2, opCalls)
		assert.Equal(t, 1, rec.calls, "recovery runs at most once per call")
	})

	t.Run("not_recovered_returns_original", func(t *testing.T) {
		rec := &fakeRecoverer{ok: false}
		c := authenticated(t, rec, nil)

		err := c.WithAuth(context.Background(), func(context.Context) error { return authRequired })

		assert.Same(t, authRequired, err)
		assert.Equal(t, 1, rec.calls)
		assert.False(t, c.IsAuthenticated())
	})

	t.Run("recovery_error_returned", func(t *testing.T) {
		rec := &fakeRecoverer{err: errors.New("refresh failed")}
		c := authenticated(t, rec, nil)

		err := c.WithAuth(context.Background(), func(context.Context) error { return authRequired })

		assert.EqualError(t, err, "refresh failed")
		assert.False(t, c.IsAuthenticated())
	})

	t.Run("no_recoverer_marks_unauthenticated", func(t *testing.T) {
		c := authenticated(t, nil, nil)

		err := c.WithAuth(context.Background(), func(context.Context) error { return authRequired })

		assert.Same(t, authRequired, err)
		assert.False(t, c.IsAuthenticated())
	})

	t.Run("auto_off_skips_recovery", func(t *testing.T) {
		rec := &fakeRecoverer{ok: true}
		c := authenticated(t, rec, func(b *Builder) { b.WithAutoAuthenticate(false) })

		err := c.WithAuth(context.Background(), func(context.Context) error { return authRequired })

		assert.Same(t, authRequired, err)
		assert.Zero(t, rec.calls)
		assert.False(t, c.IsAuthenticated())
	})

	t.Run("other_errors_pass_through", func(t *testing.T) {
		rec := &fakeRecoverer{ok: true}
		c := authenticated(t, rec, nil)
		boom := errors.New("boom")

		err := c.WithAuth(context.Background(), func(context.Context) error { return boom })

		assert.Same(t, boom, err)
		assert.Zero(t, rec.calls)
		assert.True(t, c.IsAuthenticated(), "unrelated failures keep the session")
	})

	t.Run("wrapped_auth_required_recovered", func(t *testing.T) {
		rec := &fakeRecoverer{ok: true}
		c := authenticated(t, rec, nil)

		var opCalls int
		err := c.WithAuth(context.Background(), func(context.Context) error {
			opCalls++
			if opCalls == 1 {
				return NewRetryExceededError(authRequired, "", 1)
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 1, rec.calls)
	})
}

type combinedAuth struct {
	fakeAuthenticator
	recovered int
}

func (a *combinedAuth) RecoverAuth(ctx context.Context, c *Client, _ *AuthRequiredError) (bool, error) {
	a.recovered++
	return true, nil
}

func TestAuthenticatorDoublesAsRecoverer(t *testing.T) {
	auth := &combinedAuth{fakeAuthenticator: fakeAuthenticator{ident: "alice"}}
	c := newTestClient(t, "", func(b *Builder) { b.WithAuth(auth) })
	require.NoError(t, c.SetAuthenticated(context.Background(), "alice"))

	var opCalls int
	err := c.WithAuth(context.Background(), func(context.Context) error {
		opCalls++
		if opCalls == 1 {
			return NewAuthRequiredError(nil, "alice", "expired")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, auth.recovered)
}
