// Package client provides a session-stateful HTTP API client base with a
// classified retry engine, declarative error-translation rules, an
// authentication gate, and persistable session state.
//
// Error taxonomy
//   - Errors raised by the request pipeline implement ClientError and carry
//     an ErrorKind plus the triggering *Response when one exists.
//   - RetrySignal, RatelimitError and TemporaryError are retryable kinds.
//     Each has its own attempt budget inside a single Do call.
//   - RetryExceededError terminates a retry lane and wraps the last error.
//
// Retry engine
//   - Do runs attempts until success, budget exhaustion, or an unclassified
//     error. Budgets reset on every Do call.
//   - A positive Wait on the retryable error overrides the configured wait;
//     otherwise the lane's backoff policy (constant by default) decides.
//   - A zero-budget lane re-raises the classified error unwrapped.
//
// Notes
//   - Request bodies are rebuilt on each attempt, so retries are safe for
//     JSON and form payloads.
//   - Client-wide error processors run on every attempt error before
//     classification; per-request processors run inside the attempt.
package client
