package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"strings"
)

// Request describes one API call. The zero value is a valid request against
// the client's base URL.
//
// Bodies are encoded per attempt, so retried requests are always re-sent
// intact. Body wins over Form, Form wins over JSON.
type Request struct {
	URL     string
	Params  url.Values
	Headers map[string]string
	Body    []byte
	Form    url.Values
	JSON    any
	Auth    *BasicAuth

	// ExpectStatus overrides the client's expected statuses. nil keeps the
	// client default; StatusAny disables the check.
	ExpectStatus StatusSpec

	// DecodeJSON forces JSON decoding regardless of the response content type.
	DecodeJSON bool

	// ErrorProcessors run on errors raised while executing this request,
	// before the client-wide processors.
	ErrorProcessors []Processor

	// FollowRedirects overrides the client redirect policy for this request.
	FollowRedirects *bool
}

// BasicAuth contains basic authentication credentials.
type BasicAuth struct {
	Username string
	Password string
}

// RequestInterceptor is called before sending the request.
type RequestInterceptor func(ctx context.Context, req *nethttp.Request) error

// ResponseInterceptor is called after receiving the response, before the
// body is read.
type ResponseInterceptor func(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error

type ctxKey int

const (
	followRedirectsKey ctxKey = iota
	traceIDKey
)

// WithTraceID returns a context carrying a trace id that overrides the
// client's generator for requests built from it.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceIDFromContext returns the trace id set by WithTraceID, if any.
func TraceIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(traceIDKey).(string); ok {
		return id
	}
	return ""
}

func withFollowRedirects(ctx context.Context, follow bool) context.Context {
	return context.WithValue(ctx, followRedirectsKey, follow)
}

func hasScheme(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != ""
}

// resolveURL joins the request URL with the client base URL unless the
// request URL already carries a scheme.
func (c *Client) resolveURL(raw string) string {
	if hasScheme(raw) {
		return raw
	}
	return c.config.BaseURL + raw
}

func (c *Client) validateRequest(req *Request) error {
	if req == nil {
		return fmt.Errorf("request cannot be nil")
	}
	if req.URL == "" && c.config.BaseURL == "" {
		return fmt.Errorf("request URL cannot be empty without a base URL")
	}
	return nil
}

// encodeBody returns the body reader and the implied content type for the
// request's payload, encoding fresh on every call.
func encodeBody(req *Request) (io.Reader, string, error) {
	switch {
	case req.Body != nil:
		return bytes.NewReader(req.Body), "", nil
	case req.Form != nil:
		return strings.NewReader(req.Form.Encode()), "application/x-www-form-urlencoded", nil
	case req.JSON != nil:
		b, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, "", fmt.Errorf("encode json body: %w", err)
		}
		return bytes.NewReader(b), "application/json", nil
	}
	return nil, "", nil
}

// buildRequest constructs an *http.Request, applies params, headers, auth and
// the trace header, and runs request interceptors.
func (c *Client) buildRequest(ctx context.Context, method string, req *Request) (*nethttp.Request, error) {
	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := nethttp.NewRequestWithContext(ctx, method, c.resolveURL(req.URL), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if len(req.Params) > 0 {
		q := httpReq.URL.Query()
		for key, values := range req.Params {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		httpReq.URL.RawQuery = q.Encode()
	}

	c.applyHeaders(httpReq, req, contentType)
	c.applyAuth(httpReq, req)

	if err := c.runRequestInterceptors(ctx, httpReq); err != nil {
		return nil, fmt.Errorf("request interceptor failed: %w", err)
	}
	return httpReq, nil
}

// applyHeaders applies default headers, the implied content type, the trace
// header and request-specific headers, in that order.
func (c *Client) applyHeaders(httpReq *nethttp.Request, req *Request, contentType string) {
	for key, value := range c.config.DefaultHeaders {
		httpReq.Header.Set(key, value)
	}

	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	if c.config.TraceHeader != "" {
		id := TraceIDFromContext(httpReq.Context())
		if id == "" {
			id = c.traceIDGen()
		}
		httpReq.Header.Set(c.config.TraceHeader, id)
	}

	// Request-specific headers override everything above.
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
}

// applyAuth applies basic auth credentials; request-specific auth takes
// precedence over the client's.
func (c *Client) applyAuth(httpReq *nethttp.Request, req *Request) {
	auth := req.Auth
	if auth == nil {
		auth = c.config.BasicAuth
	}
	if auth != nil {
		httpReq.SetBasicAuth(auth.Username, auth.Password)
	}
}

func (c *Client) runRequestInterceptors(ctx context.Context, req *nethttp.Request) error {
	for _, interceptor := range c.requestInterceptors {
		if err := interceptor(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) runResponseInterceptors(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error {
	for _, interceptor := range c.responseInterceptors {
		if err := interceptor(ctx, req, resp); err != nil {
			return err
		}
	}
	return nil
}
