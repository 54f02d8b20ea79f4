package client

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vgavro/requests-client/objpath"
)

// ErrorKind classifies pipeline errors so callers can branch on behavior
// without matching concrete types.
type ErrorKind string

const (
	KindResponse        ErrorKind = "response"
	KindRetry           ErrorKind = "retry"
	KindRatelimit       ErrorKind = "ratelimit"
	KindTemporary       ErrorKind = "temporary"
	KindStatus          ErrorKind = "status"
	KindDecode          ErrorKind = "decode"
	KindAuth            ErrorKind = "auth"
	KindAuthRequired    ErrorKind = "auth_required"
	KindValidation      ErrorKind = "validation"
	KindRetryExceeded   ErrorKind = "retry_exceeded"
	KindEntity          ErrorKind = "entity"
	KindEntityNotFound  ErrorKind = "entity_not_found"
	KindEntityForbidden ErrorKind = "entity_forbidden"
)

// DefaultRetryIdent is the retry lane used by RetrySignal when no ident is set.
const DefaultRetryIdent = "default"

// ClientError is implemented by every error the request pipeline raises.
type ClientError interface {
	error
	Kind() ErrorKind
	Response() *Response
}

// bodyReprLimit caps response bodies in single-line error messages.
// Use %+v to render the full body.
const bodyReprLimit = 128

func reprResponse(resp *Response, full bool) string {
	if resp == nil {
		return "[no response]"
	}
	body := string(resp.Body)
	if !full && len(resp.Body) > bodyReprLimit {
		body = fmt.Sprintf("%s...%db", resp.Body[:bodyReprLimit], len(resp.Body))
	}
	url := resp.URL
	if resp.StatusCode == http.StatusMovedPermanently || resp.StatusCode == http.StatusFound {
		url += " -> " + resp.Headers.Get("Location")
	}
	return fmt.Sprintf("%s %d %s: %s", resp.Method, resp.StatusCode, url, body)
}

func renderError(msg string, resp *Response, full bool) string {
	if msg != "" {
		return msg + ": " + reprResponse(resp, full)
	}
	return reprResponse(resp, full)
}

// ResponseError is the base error carried by every response-derived failure.
// Its Error form truncates the body; format with %+v for the full body.
type ResponseError struct {
	Resp *Response
	Msg  string
	Err  error
}

// NewResponseError creates a ResponseError for resp with an optional message.
func NewResponseError(resp *Response, msg string) *ResponseError {
	return &ResponseError{Resp: resp, Msg: msg}
}

// text is the message rendered before the response summary. A plain cause
// stands in for a missing message; ClientError causes are skipped since their
// text already carries the response summary.
func (e *ResponseError) text() string {
	if e.Msg != "" {
		return e.Msg
	}
	var ce ClientError
	if e.Err != nil && !errors.As(e.Err, &ce) {
		return e.Err.Error()
	}
	return ""
}

// Error implements the error interface.
func (e *ResponseError) Error() string {
	return renderError(e.text(), e.Resp, false)
}

// Format renders the full, untruncated response body for %+v.
func (e *ResponseError) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		io.WriteString(s, renderError(e.text(), e.Resp, true))
		return
	}
	io.WriteString(s, e.Error())
}

// Unwrap returns the underlying cause, if any.
func (e *ResponseError) Unwrap() error { return e.Err }

// Kind implements ClientError.
func (e *ResponseError) Kind() ErrorKind { return KindResponse }

// Response returns the response that produced the error, or nil.
func (e *ResponseError) Response() *Response { return e.Resp }

// Message returns the message without the response summary.
func (e *ResponseError) Message() string { return e.text() }

// Data returns the decoded response payload, or nil.
func (e *ResponseError) Data() any {
	if e.Resp == nil {
		return nil
	}
	return e.Resp.Data
}

// DataPath resolves a dotted path inside the decoded response payload,
// returning nil when the response, payload or path is missing.
func (e *ResponseError) DataPath(path string) any {
	d := e.Data()
	if d == nil {
		return nil
	}
	v, err := objpath.Resolve(d, path)
	if err != nil {
		return nil
	}
	return v
}

// AccessField implements objpath.FieldAccessor so translation rules can
// match on paths like "response.status_code" or "data.error.code".
func (e *ResponseError) AccessField(name string) (any, bool) {
	switch name {
	case "response":
		if e.Resp == nil {
			return nil, false
		}
		return e.Resp, true
	case "data":
		return e.Data(), true
	case "msg":
		return e.Msg, true
	case "cause":
		if e.Err == nil {
			return nil, false
		}
		return e.Err, true
	}
	return nil, false
}

// RetrySignal requests another attempt of the current call on its own retry
// lane, without touching the ratelimit or temporary budgets. Count is the
// number of extra attempts allowed; the zero value means no budget and the
// next occurrence is wrapped in RetryExceededError immediately.
type RetrySignal struct {
	Result any
	Ident  string
	Count  int
	Wait   time.Duration
}

// NewRetrySignal creates a RetrySignal on the default lane with a budget of
// one extra attempt.
func NewRetrySignal(result any) *RetrySignal {
	return &RetrySignal{Result: result, Ident: DefaultRetryIdent, Count: 1}
}

// Error implements the error interface.
func (e *RetrySignal) Error() string {
	return fmt.Sprintf("retry requested (ident=%q count=%d)", e.lane(), e.Count)
}

// Kind implements ClientError.
func (e *RetrySignal) Kind() ErrorKind { return KindRetry }

// Response implements ClientError; retry signals carry no response.
func (e *RetrySignal) Response() *Response { return nil }

func (e *RetrySignal) lane() string {
	if e.Ident == "" {
		return DefaultRetryIdent
	}
	return e.Ident
}

// TemporaryError marks a transient failure eligible for the temporary retry
// budget. Wait overrides the client's configured wait when positive.
type TemporaryError struct {
	ResponseError
	Wait time.Duration
}

// NewTemporaryError creates a TemporaryError, inheriting the response from
// cause when resp is nil and cause is a ClientError.
func NewTemporaryError(resp *Response, msg string, wait time.Duration, cause error) *TemporaryError {
	if resp == nil {
		var ce ClientError
		if errors.As(cause, &ce) {
			resp = ce.Response()
		}
	}
	return &TemporaryError{
		ResponseError: ResponseError{Resp: resp, Msg: msg, Err: cause},
		Wait:          wait,
	}
}

// Kind implements ClientError.
func (e *TemporaryError) Kind() ErrorKind { return KindTemporary }

// RatelimitError marks a rate-limited failure eligible for the ratelimit
// retry budget. Wait overrides the client's configured wait when positive.
type RatelimitError struct {
	ResponseError
	Wait time.Duration
}

// NewRatelimitError creates a RatelimitError, inheriting the response from
// cause when resp is nil and cause is a ClientError.
func NewRatelimitError(resp *Response, msg string, wait time.Duration, cause error) *RatelimitError {
	if resp == nil {
		var ce ClientError
		if errors.As(cause, &ce) {
			resp = ce.Response()
		}
	}
	return &RatelimitError{
		ResponseError: ResponseError{Resp: resp, Msg: msg, Err: cause},
		Wait:          wait,
	}
}

// Kind implements ClientError.
func (e *RatelimitError) Kind() ErrorKind { return KindRatelimit }

// StatusError reports a response status outside the expected set.
type StatusError struct {
	ResponseError
	Expected StatusSpec
	Status   int
}

// NewStatusError creates a StatusError for a response whose status did not
// match expected.
func NewStatusError(resp *Response, expected StatusSpec) *StatusError {
	return &StatusError{
		ResponseError: ResponseError{
			Resp: resp,
			Msg:  fmt.Sprintf("%s (!=%s)", resp.Status, expected),
		},
		Expected: expected,
		Status:   resp.StatusCode,
	}
}

// Kind implements ClientError.
func (e *StatusError) Kind() ErrorKind { return KindStatus }

// DecodeError reports a response body that could not be decoded.
type DecodeError struct {
	ResponseError
}

// NewDecodeError creates a DecodeError wrapping the decoder failure.
func NewDecodeError(resp *Response, cause error) *DecodeError {
	return &DecodeError{ResponseError{
		Resp: resp,
		Msg:  fmt.Sprintf("json decode failed: %v", cause),
		Err:  cause,
	}}
}

// Kind implements ClientError.
func (e *DecodeError) Kind() ErrorKind { return KindDecode }

// AuthError reports an authentication failure that retrying cannot fix.
// Ident names the account the failure belongs to.
type AuthError struct {
	ResponseError
	Ident string
}

// NewAuthError creates an AuthError for the given account ident.
func NewAuthError(resp *Response, ident, msg string) *AuthError {
	if ident != "" && msg != "" {
		msg = ident + ": " + msg
	} else if ident != "" {
		msg = ident
	}
	return &AuthError{
		ResponseError: ResponseError{Resp: resp, Msg: msg},
		Ident:         ident,
	}
}

// Kind implements ClientError.
func (e *AuthError) Kind() ErrorKind { return KindAuth }

// AuthRequiredError reports a request rejected for missing or expired
// credentials. Client.WithAuth recovers from it once per call.
type AuthRequiredError struct {
	AuthError
}

// NewAuthRequiredError creates an AuthRequiredError for the given account ident.
func NewAuthRequiredError(resp *Response, ident, msg string) *AuthRequiredError {
	return &AuthRequiredError{AuthError: *NewAuthError(resp, ident, msg)}
}

// Kind implements ClientError.
func (e *AuthRequiredError) Kind() ErrorKind { return KindAuthRequired }

// Unwrap returns the embedded AuthError so errors.As matches the base type.
func (e *AuthRequiredError) Unwrap() error { return &e.AuthError }

// EntityError reports a failure tied to a specific remote entity.
type EntityError struct {
	ResponseError
	EntityType string
	EntityID   any
}

// Kind implements ClientError.
func (e *EntityError) Kind() ErrorKind { return KindEntity }

// EntityNotFoundError reports a missing remote entity.
type EntityNotFoundError struct {
	EntityError
}

// NewEntityNotFoundError creates an EntityNotFoundError for the given entity.
func NewEntityNotFoundError(resp *Response, entityType string, entityID any) *EntityNotFoundError {
	return &EntityNotFoundError{EntityError{
		ResponseError: ResponseError{
			Resp: resp,
			Msg:  fmt.Sprintf("%s(%v) not found", entityType, entityID),
		},
		EntityType: entityType,
		EntityID:   entityID,
	}}
}

// Kind implements ClientError.
func (e *EntityNotFoundError) Kind() ErrorKind { return KindEntityNotFound }

// Unwrap returns the embedded EntityError so errors.As matches the base type.
func (e *EntityNotFoundError) Unwrap() error { return &e.EntityError }

// EntityForbiddenError reports a remote entity the caller may not access.
type EntityForbiddenError struct {
	EntityError
}

// NewEntityForbiddenError creates an EntityForbiddenError for the given entity.
func NewEntityForbiddenError(resp *Response, entityType string, entityID any) *EntityForbiddenError {
	return &EntityForbiddenError{EntityError{
		ResponseError: ResponseError{
			Resp: resp,
			Msg:  fmt.Sprintf("%s(%v) forbidden", entityType, entityID),
		},
		EntityType: entityType,
		EntityID:   entityID,
	}}
}

// Kind implements ClientError.
func (e *EntityForbiddenError) Kind() ErrorKind { return KindEntityForbidden }

// Unwrap returns the embedded EntityError so errors.As matches the base type.
func (e *EntityForbiddenError) Unwrap() error { return &e.EntityError }

// validationReprLimit caps the rendered field errors in single-line messages.
const validationReprLimit = 64

// ValidationError reports a decoded payload that failed schema validation.
// Fields maps field paths to their violation messages.
type ValidationError struct {
	ResponseError
	Fields map[string][]string
}

// NewValidationError creates a ValidationError with per-field messages.
func NewValidationError(resp *Response, msg string, fields map[string][]string) *ValidationError {
	return &ValidationError{
		ResponseError: ResponseError{Resp: resp, Msg: msg},
		Fields:        fields,
	}
}

// Kind implements ClientError.
func (e *ValidationError) Kind() ErrorKind { return KindValidation }

func (e *ValidationError) message(full bool) string {
	fields := fmt.Sprintf("%v", e.Fields)
	if !full && len(fields) > validationReprLimit {
		fields = fmt.Sprintf("%s..%db", fields[:validationReprLimit], len(fields))
	}
	if e.Msg != "" {
		return e.Msg + ": " + fields
	}
	return fields
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return renderError(e.message(false), e.Resp, false)
}

// Format renders the full field errors and response body for %+v.
func (e *ValidationError) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		io.WriteString(s, renderError(e.message(true), e.Resp, true))
		return
	}
	io.WriteString(s, e.Error())
}

// RetryExceededError terminates a retry lane once its budget is spent.
// Result holds what exhausted the lane: the classified error, the retry
// signal's payload, or a response.
type RetryExceededError struct {
	ResponseError
	Result any
	Ident  string
	Count  int
	Reason string
}

// NewRetryExceededError creates a RetryExceededError for a spent lane.
// The reason is the lane ident when one was set, otherwise the result's
// error kind or value.
func NewRetryExceededError(result any, ident string, count int) *RetryExceededError {
	e := &RetryExceededError{Result: result, Ident: ident, Count: count}
	var reason string
	switch v := result.(type) {
	case ClientError:
		e.Resp = v.Response()
		e.Err = v
		if m, ok := result.(interface{ Message() string }); ok {
			e.Msg = m.Message()
		}
		reason = string(v.Kind())
	case *Response:
		e.Resp = v
	case error:
		e.Err = v
		reason = v.Error()
	default:
		if result != nil {
			reason = fmt.Sprintf("%v", result)
		}
	}
	switch {
	case ident != "" && ident != DefaultRetryIdent:
		e.Reason = ident
	case reason != "":
		e.Reason = reason
	default:
		e.Reason = DefaultRetryIdent
	}
	return e
}

// Kind implements ClientError.
func (e *RetryExceededError) Kind() ErrorKind { return KindRetryExceeded }

func (e *RetryExceededError) message() string {
	msg := fmt.Sprintf("Retries(%d) on %q exceeded", e.Count, e.Reason)
	if e.Msg != "" {
		return msg + ": " + e.Msg
	}
	return msg
}

// Error implements the error interface.
func (e *RetryExceededError) Error() string {
	return renderError(e.message(), e.Resp, false)
}

// Format renders the full response body for %+v.
func (e *RetryExceededError) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		io.WriteString(s, renderError(e.message(), e.Resp, true))
		return
	}
	io.WriteString(s, e.Error())
}

// IsKind reports whether any error in err's chain carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	for ; err != nil; err = errors.Unwrap(err) {
		if ce, ok := err.(ClientError); ok && ce.Kind() == kind {
			return true
		}
	}
	return false
}

// IsStatus reports whether any error in err's chain carries a response whose
// status matches spec (hundred-class wildcards allowed, as in StatusSpec).
func IsStatus(err error, spec ...int) bool {
	for ; err != nil; err = errors.Unwrap(err) {
		ce, ok := err.(ClientError)
		if !ok {
			continue
		}
		if resp := ce.Response(); resp != nil && StatusSpec(spec).Matches(resp.StatusCode) {
			return true
		}
	}
	return false
}
