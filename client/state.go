package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/vgavro/requests-client/storage"
)

// SessionState is the persistable snapshot of a client session, keyed in the
// state store by the auth ident.
type SessionState struct {
	AuthIdent     string         `cbor:"1,keyasint"`
	Authenticated bool           `cbor:"2,keyasint"`
	Extra         map[string]any `cbor:"3,keyasint,omitempty"`
}

// StateHooks customize persisted state. OnSave runs before encoding and can
// stash client-specific data in Extra; OnLoad runs after decoding and applies
// it back.
type StateHooks struct {
	OnSave func(state *SessionState)
	OnLoad func(state *SessionState)
}

// loadState fetches and applies the persisted session snapshot. A missing
// snapshot is not an error and leaves the client unauthenticated.
func (c *Client) loadState(ctx context.Context) (bool, error) {
	c.mu.Lock()
	ident := c.authIdent
	c.mu.Unlock()
	if ident == "" {
		return false, errors.New("cannot load state without auth ident")
	}

	raw, err := c.store.Get(ctx, ident)
	if errors.Is(err, storage.ErrNotFound) {
		if c.config.DebugLevel >= 2 {
			c.log.Debug().Str("ident", ident).Msg("State not found")
		}
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load state: %w", err)
	}

	state, err := storage.Unmarshal[SessionState](raw)
	if err != nil {
		return false, fmt.Errorf("load state: %w", err)
	}
	if c.hooks.OnLoad != nil {
		c.hooks.OnLoad(&state)
	}

	c.mu.Lock()
	if state.AuthIdent != "" {
		c.authIdent = state.AuthIdent
	}
	c.authenticated = state.Authenticated
	c.extra = state.Extra
	c.mu.Unlock()

	c.log.Debug().
		Str("ident", ident).
		Bool("authenticated", state.Authenticated).
		Msg("State loaded")
	return true, nil
}

// SaveState persists the session snapshot under the auth ident.
func (c *Client) SaveState(ctx context.Context) error {
	c.mu.Lock()
	state := SessionState{
		AuthIdent:     c.authIdent,
		Authenticated: c.authenticated,
		Extra:         c.extra,
	}
	c.mu.Unlock()

	if state.AuthIdent == "" {
		return errors.New("cannot save state without auth ident")
	}
	if c.store == nil {
		return errors.New("cannot save state without state store")
	}
	if c.hooks.OnSave != nil {
		c.hooks.OnSave(&state)
	}

	raw, err := storage.Marshal(state)
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	if err := c.store.Set(ctx, state.AuthIdent, raw); err != nil {
		return fmt.Errorf("save state: %w", err)
	}

	c.mu.Lock()
	c.extra = state.Extra
	c.mu.Unlock()

	c.log.Info().Str("ident", state.AuthIdent).Msg("State saved")
	return nil
}

// StateExtra returns a value stashed in the session snapshot's Extra map.
func (c *Client) StateExtra(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.extra[key]
	return v, ok
}

// SetStateExtra stashes a value in the session snapshot's Extra map. It is
// persisted on the next SaveState.
func (c *Client) SetStateExtra(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.extra == nil {
		c.extra = make(map[string]any)
	}
	c.extra[key] = value
}
