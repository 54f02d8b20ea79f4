package client

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/vgavro/requests-client/logger"
)

// BackoffFactory produces a fresh wait policy for one retry lane of one Do
// call. Lanes create their backoff lazily on the first retry.
type BackoffFactory func() backoff.BackOff

// ConstantBackoff returns a factory yielding a fixed wait between attempts.
func ConstantBackoff(wait time.Duration) BackoffFactory {
	return func() backoff.BackOff { return backoff.NewConstantBackOff(wait) }
}

// ExponentialBackoff returns a factory yielding exponentially growing waits
// starting at initial and capped at maxWait.
func ExponentialBackoff(initial, maxWait time.Duration) BackoffFactory {
	return func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = initial
		b.MaxInterval = maxWait
		b.Reset()
		return b
	}
}

func (c *Client) newLaneBackoff(defaultWait time.Duration) backoff.BackOff {
	if c.config.BackoffFactory != nil {
		return c.config.BackoffFactory()
	}
	return backoff.NewConstantBackOff(defaultWait)
}

// laneWait resolves the wait before the next attempt: the error's own
// positive hint wins, otherwise the lane's backoff policy decides.
func laneWait(hint time.Duration, lane backoff.BackOff) time.Duration {
	if hint > 0 {
		return hint
	}
	d := lane.NextBackOff()
	if d < 0 {
		return 0
	}
	return d
}

// classifyRetryable returns the first retryable error in err's chain,
// outermost first, so a translated error takes precedence over its cause.
func classifyRetryable(err error) error {
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch e.(type) {
		case *RetrySignal, *RatelimitError, *TemporaryError:
			return e
		}
	}
	return nil
}

// Do executes the request, retrying on classified errors until success or
// budget exhaustion. Budgets reset on every call: each RetrySignal ident has
// its own budget, ratelimit and temporary errors share one counter each.
// Client-wide error processors run on every attempt error before
// classification; an unclassified error returns as-is.
//
// Exhausted budgets surface as RetryExceededError, except ratelimit and
// temporary lanes configured with zero retries, which re-raise the
// classified error unwrapped.
func (c *Client) Do(ctx context.Context, method string, req *Request) (*Response, error) {
	if err := c.validateRequest(req); err != nil {
		return nil, err
	}

	var (
		ratelimitRetries int
		temporaryRetries int
		identRetries     map[string]int
		ratelimitLane    backoff.BackOff
		temporaryLane    backoff.BackOff
	)

	for {
		resp, err := c.executeOnce(ctx, method, req)
		if err == nil {
			return resp, nil
		}
		err = runProcessors(err, c.config.ErrorProcessors)

		switch e := classifyRetryable(err).(type) {
		case *RetrySignal:
			if identRetries == nil {
				identRetries = make(map[string]int)
			}
			lane := e.lane()
			identRetries[lane]++
			if identRetries[lane] > e.Count {
				return resp, NewRetryExceededError(e.Result, lane, e.Count)
			}
			c.retryEvent(c.log.Warn(), identRetries[lane]).
				Str("ident", lane).
				Msg("Retrying on signal")
			recordRetryMetrics(ctx, c.config.Name, string(KindRetry), lane)
			if e.Wait > 0 {
				if serr := c.sleep(ctx, e.Wait, "retry request: "+lane); serr != nil {
					return nil, serr
				}
			}

		case *RatelimitError:
			ratelimitRetries++
			if ratelimitRetries > c.config.RatelimitRetries {
				if ratelimitRetries-1 > 0 {
					return resp, NewRetryExceededError(e, "", ratelimitRetries-1)
				}
				return resp, err
			}
			c.retryEvent(c.log.Warn(), ratelimitRetries).
				Err(err).
				Msg("Retrying on ratelimit")
			recordRetryMetrics(ctx, c.config.Name, string(KindRatelimit), "")
			if ratelimitLane == nil {
				ratelimitLane = c.newLaneBackoff(c.config.RatelimitWait)
			}
			if serr := c.sleep(ctx, laneWait(e.Wait, ratelimitLane), "ratelimit wait"); serr != nil {
				return nil, serr
			}

		case *TemporaryError:
			temporaryRetries++
			if temporaryRetries > c.config.TemporaryRetries {
				if temporaryRetries-1 > 0 {
					return resp, NewRetryExceededError(e, "", temporaryRetries-1)
				}
				return resp, err
			}
			c.retryEvent(c.log.Debug(), temporaryRetries).
				Err(err).
				Msg("Retrying on temporary error")
			recordRetryMetrics(ctx, c.config.Name, string(KindTemporary), "")
			if temporaryLane == nil {
				temporaryLane = c.newLaneBackoff(c.config.TemporaryWait)
			}
			if serr := c.sleep(ctx, laneWait(e.Wait, temporaryLane), "temporary error wait"); serr != nil {
				return nil, serr
			}

		default:
			return resp, err
		}
	}
}

func (c *Client) retryEvent(ev logger.Event, attempt int) logger.Event {
	c.mu.Lock()
	count, total, since := c.callsCount, c.callsElapsed, c.firstCallTime
	c.mu.Unlock()
	return ev.
		Int("attempt", attempt).
		Int64("calls", count).
		Dur("calls_elapsed", total).
		Time("since", since)
}
