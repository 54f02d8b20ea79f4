package client

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/vgavro/requests-client/objpath"
)

// Response is the pipeline's view of a completed HTTP exchange: the fully
// read body plus the decoded payload when JSON decoding ran.
type Response struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Headers    http.Header
	Body       []byte
	Data       any
	Elapsed    time.Duration
}

func newResponse(resp *http.Response, body []byte, elapsed time.Duration) *Response {
	r := &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Headers:    resp.Header,
		Body:       body,
		Elapsed:    elapsed,
	}
	if resp.Request != nil {
		r.Method = resp.Request.Method
		if resp.Request.URL != nil {
			r.URL = resp.Request.URL.String()
		}
	}
	return r
}

// Text returns the body as a string.
func (r *Response) Text() string { return string(r.Body) }

// ContentType returns the raw Content-Type header value.
func (r *Response) ContentType() string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers.Get("Content-Type")
}

// DecodeJSON decodes the body into v. The pipeline uses it with *any to
// populate Data; callers can re-decode into concrete types.
func (r *Response) DecodeJSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// DataPath resolves a dotted path inside the decoded payload.
func (r *Response) DataPath(path string) (any, error) {
	return objpath.Resolve(r.Data, path)
}

// AccessField implements objpath.FieldAccessor so translation rules can match
// on response attributes.
func (r *Response) AccessField(name string) (any, bool) {
	switch name {
	case "method":
		return r.Method, true
	case "url":
		return r.URL, true
	case "status_code":
		return r.StatusCode, true
	case "status":
		return r.Status, true
	case "headers":
		return r.Headers, true
	case "body":
		return r.Body, true
	case "data":
		return r.Data, true
	case "elapsed":
		return r.Elapsed, true
	}
	return nil, false
}
