package client

import (
	"context"
	"fmt"
	"io"
	"mime"
	nethttp "net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vgavro/requests-client/logger"
	"github.com/vgavro/requests-client/storage"
)

// Client executes API requests through a pipeline of request-wait floor,
// rate limiting, status checking, JSON decoding and error translation, with
// classified retries on top (see Do). Build one with NewBuilder.
//
// Counters and session state are safe for concurrent use, but the retry
// budgets are per Do call and the request-wait floor serializes against the
// last send time, so concurrent callers share pacing.
type Client struct {
	config     *Config
	log        logger.Logger
	http       Doer
	clock      Clock
	limiter    *rate.Limiter
	traceIDGen func() string
	store      storage.Storage
	auth       Authenticator
	recoverer  AuthRecoverer
	hooks      StateHooks

	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor

	mu            sync.Mutex
	authIdent     string
	authenticated bool
	extra         map[string]any
	callsCount    int64
	callsElapsed  time.Duration
	firstCallTime time.Time
	lastCallTime  time.Time
	lastResponse  *Response
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodGet, req)
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPost, req)
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPut, req)
}

// Patch performs a PATCH request.
func (c *Client) Patch(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPatch, req)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodDelete, req)
}

// CallsCount returns the number of completed transport round trips.
func (c *Client) CallsCount() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.callsCount
}

// CallsElapsed returns the total time spent waiting for responses.
func (c *Client) CallsElapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.callsElapsed
}

// FirstCallTime returns when the first request was sent, zero before any.
func (c *Client) FirstCallTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.firstCallTime
}

// LastCallTime returns when the most recent request was sent, zero before any.
func (c *Client) LastCallTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastCallTime
}

// LastResponse returns the most recent response. Kept for debugging only.
func (c *Client) LastResponse() *Response {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastResponse
}

// AuthIdent returns the account identity the client operates as.
func (c *Client) AuthIdent() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authIdent
}

// IsAuthenticated reports whether the client considers itself authenticated.
func (c *Client) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

// Close releases idle transport connections and closes the session state
// store, when one is configured.
func (c *Client) Close() error {
	if hc, ok := c.http.(*nethttp.Client); ok {
		hc.CloseIdleConnections()
	}
	if c.store != nil {
		return c.store.Close()
	}
	return nil
}

func (c *Client) sleep(ctx context.Context, d time.Duration, reason string) error {
	if d < 0 {
		return fmt.Errorf("cannot sleep negative duration %s", d)
	}
	if d == 0 {
		return nil
	}
	if c.config.DebugLevel >= 4 {
		c.log.Debug().Dur("sleep", d).Str("reason", reason).Msg("Sleeping")
	}
	return c.clock.Sleep(ctx, d)
}

func (c *Client) setLastCallTime(t time.Time) {
	c.mu.Lock()
	c.lastCallTime = t
	c.mu.Unlock()
}

// waitRequestFloor enforces the minimum delay since the last send and stamps
// first/last call times. The first call records firstCallTime and never waits.
func (c *Client) waitRequestFloor(ctx context.Context) error {
	now := c.clock.Now()

	c.mu.Lock()
	last := c.lastCallTime
	if last.IsZero() {
		c.firstCallTime = now
	}
	c.mu.Unlock()

	if !last.IsZero() && c.config.RequestWait > 0 {
		if delta := now.Sub(last); delta < c.config.RequestWait {
			if err := c.sleep(ctx, c.config.RequestWait-delta, "request wait"); err != nil {
				return err
			}
		}
	}

	c.setLastCallTime(c.clock.Now())
	return nil
}

func (c *Client) recordCall(resp *Response, elapsed time.Duration) {
	c.mu.Lock()
	c.callsElapsed += elapsed
	c.callsCount++
	c.lastResponse = resp
	c.mu.Unlock()
}

// shouldDecode reports whether the response body should be decoded as JSON:
// either the request forces it or the media type is in the configured list.
func (c *Client) shouldDecode(req *Request, resp *Response) bool {
	if req.DecodeJSON {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(resp.ContentType())
	if err != nil {
		return false
	}
	for _, want := range c.config.JSONContentTypes {
		if mediaType == want {
			return true
		}
	}
	return false
}

// executeOnce performs a single transport round trip: wait floor, rate
// limiter, send, timing and counters, status check, JSON decode. Per-request
// error processors run on every failure that has passed the transport.
func (c *Client) executeOnce(ctx context.Context, method string, req *Request) (*Response, error) {
	if err := c.waitRequestFloor(ctx); err != nil {
		return nil, err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	follow := c.config.FollowRedirects
	if req.FollowRedirects != nil {
		follow = *req.FollowRedirects
	}
	ctx = withFollowRedirects(ctx, follow)

	httpReq, err := c.buildRequest(ctx, method, req)
	if err != nil {
		return nil, err
	}

	if c.config.DebugLevel >= 5 {
		ev := c.log.Debug().
			Str("method", method).
			Str("url", httpReq.URL.String()).
			Interface("headers", httpReq.Header)
		if req.Body != nil {
			ev = ev.Bytes("body", req.Body)
		} else if req.JSON != nil {
			ev = ev.Interface("json", req.JSON)
		} else if req.Form != nil {
			ev = ev.Str("form", req.Form.Encode())
		}
		ev.Msg("REQUEST")
	}

	ctx, span := startRequestSpan(ctx, method, httpReq.URL.String())
	start := c.clock.Now()
	httpResp, err := c.http.Do(httpReq) //nolint:bodyclose // closed below after interceptors
	if c.config.RequestWaitWithResponseTime {
		c.setLastCallTime(c.clock.Now())
	}
	if err != nil {
		endRequestSpan(span, 0, err)
		recordRequestMetrics(ctx, c.config.Name, method, 0, c.clock.Now().Sub(start), err)
		return nil, runProcessors(err, req.ErrorProcessors)
	}
	elapsed := c.clock.Now().Sub(start)

	if err := c.runResponseInterceptors(ctx, httpReq, httpResp); err != nil {
		closeBody(httpResp)
		endRequestSpan(span, httpResp.StatusCode, err)
		return nil, fmt.Errorf("response interceptor failed: %w", err)
	}

	body, err := io.ReadAll(httpResp.Body)
	closeBody(httpResp)
	if err != nil {
		err = fmt.Errorf("read response body: %w", err)
		endRequestSpan(span, httpResp.StatusCode, err)
		recordRequestMetrics(ctx, c.config.Name, method, httpResp.StatusCode, elapsed, err)
		return nil, runProcessors(err, req.ErrorProcessors)
	}

	resp := newResponse(httpResp, body, elapsed)
	endRequestSpan(span, resp.StatusCode, nil)
	recordRequestMetrics(ctx, c.config.Name, method, resp.StatusCode, elapsed, nil)

	if c.config.DebugLevel >= 5 {
		c.log.Debug().
			Str("method", resp.Method).
			Int("status", resp.StatusCode).
			Str("url", resp.URL).
			Bytes("body", resp.Body).
			Msg("RESPONSE")
	}

	if c.config.WarnElapsed > 0 && elapsed > c.config.WarnElapsed {
		c.mu.Lock()
		count, total, since := c.callsCount, c.callsElapsed, c.firstCallTime
		c.mu.Unlock()
		c.log.Warn().
			Str("method", resp.Method).
			Str("url", resp.URL).
			Dur("elapsed", elapsed).
			Int64("calls", count).
			Dur("calls_elapsed", total).
			Time("since", since).
			Msg("Slow request")
	}

	c.recordCall(resp, elapsed)

	expect := req.ExpectStatus
	if expect == nil {
		expect = c.config.ExpectStatus
	}
	if !expect.Matches(resp.StatusCode) {
		if c.shouldDecode(req, resp) {
			// Best effort so processors and callers can inspect the payload.
			_ = resp.DecodeJSON(&resp.Data)
		}
		return resp, runProcessors(NewStatusError(resp, expect), req.ErrorProcessors)
	}

	if c.shouldDecode(req, resp) {
		if err := resp.DecodeJSON(&resp.Data); err != nil {
			return resp, runProcessors(NewDecodeError(resp, err), req.ErrorProcessors)
		}
	}

	return resp, nil
}

func closeBody(resp *nethttp.Response) {
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
}
