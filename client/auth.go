package client

import (
	"context"
	"errors"
)

// Authenticator performs a full authentication round for the client,
// typically ending with SetAuthenticated on success.
type Authenticator interface {
	Authenticate(ctx context.Context, c *Client) error
}

// AuthRecoverer tries to fix an auth-required failure in place, e.g. by
// refreshing a token. Returning true retries the failed operation once;
// returning false gives up and surfaces the original error.
type AuthRecoverer interface {
	RecoverAuth(ctx context.Context, c *Client, authErr *AuthRequiredError) (bool, error)
}

// Authenticate runs the configured authenticator.
func (c *Client) Authenticate(ctx context.Context) error {
	if c.auth == nil {
		return errors.New("authenticator not configured")
	}
	return c.auth.Authenticate(ctx, c)
}

// WithAuth runs op under the authentication gate. When auto-authentication
// is on and the client is unauthenticated, it authenticates before the first
// run; errors on that path surface without recovery. Otherwise an
// AuthRequiredError from op is handed to the recoverer at most once: a
// successful recovery reruns op, anything else marks the client
// unauthenticated and returns the original (or recovery) error.
func (c *Client) WithAuth(ctx context.Context, op func(ctx context.Context) error) error {
	if c.config.AutoAuthenticate && !c.IsAuthenticated() {
		if err := c.Authenticate(ctx); err != nil {
			return err
		}
		return op(ctx)
	}

	err := op(ctx)
	if err == nil {
		return nil
	}
	var authErr *AuthRequiredError
	if !errors.As(err, &authErr) {
		return err
	}

	if !c.config.AutoAuthenticate || c.recoverer == nil {
		c.setAuthenticated(false)
		return err
	}
	recovered, rerr := c.recoverer.RecoverAuth(ctx, c, authErr)
	if rerr != nil {
		c.setAuthenticated(false)
		return rerr
	}
	if !recovered {
		c.setAuthenticated(false)
		return err
	}
	return op(ctx)
}

// SetAuthenticated records a successful authentication as ident and persists
// session state when a store is configured. An empty ident keeps the current
// one.
func (c *Client) SetAuthenticated(ctx context.Context, ident string) error {
	c.mu.Lock()
	if ident != "" {
		c.authIdent = ident
	}
	c.authenticated = true
	c.mu.Unlock()

	c.log.Info().Str("ident", ident).Msg("Authenticated")
	if c.store != nil {
		return c.SaveState(ctx)
	}
	return nil
}

func (c *Client) setAuthenticated(v bool) {
	c.mu.Lock()
	c.authenticated = v
	c.mu.Unlock()
}
