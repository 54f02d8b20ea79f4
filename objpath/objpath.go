// Package objpath resolves dotted paths ("response.data.error.code") through
// nested values. Maps, slices, and HTTP headers are traversed natively; other
// types opt in by implementing FieldAccessor. No reflection is involved.
package objpath

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// FieldAccessor is implemented by types that expose named fields to path
// resolution.
type FieldAccessor interface {
	// AccessField returns the value of the named field and whether it exists.
	AccessField(name string) (any, bool)
}

// LookupError reports a path segment that could not be resolved.
type LookupError struct {
	Path    string // full dotted path
	Segment string // segment that failed to resolve
	Value   any    // value the segment was applied to
}

// Error implements the error interface.
func (e *LookupError) Error() string {
	return fmt.Sprintf("objpath: cannot resolve %q: segment %q not found in %T", e.Path, e.Segment, e.Value)
}

// Resolve walks path through v, one dot-separated segment at a time. An empty
// path returns v unchanged. It returns a *LookupError when a segment cannot
// be resolved.
func Resolve(v any, path string) (any, error) {
	if path == "" {
		return v, nil
	}
	cur := v
	for _, seg := range strings.Split(path, ".") {
		next, ok := lookup(cur, seg)
		if !ok {
			return nil, &LookupError{Path: path, Segment: seg, Value: cur}
		}
		cur = next
	}
	return cur, nil
}

// ResolveDefault is Resolve with a fallback: it returns def when any segment
// is missing.
func ResolveDefault(v any, path string, def any) any {
	res, err := Resolve(v, path)
	if err != nil {
		return def
	}
	return res
}

// Has reports whether path resolves through v.
func Has(v any, path string) bool {
	_, err := Resolve(v, path)
	return err == nil
}

func lookup(v any, seg string) (any, bool) {
	switch tv := v.(type) {
	case map[string]any:
		val, ok := tv[seg]
		return val, ok
	case map[string]string:
		val, ok := tv[seg]
		return val, ok
	case http.Header:
		if vals := tv.Values(seg); len(vals) > 0 {
			return vals[0], true
		}
		return nil, false
	case []any:
		idx, err := strconv.Atoi(seg)
		if err != nil {
			return nil, false
		}
		if idx < 0 {
			idx += len(tv)
		}
		if idx < 0 || idx >= len(tv) {
			return nil, false
		}
		return tv[idx], true
	}
	if fa, ok := v.(FieldAccessor); ok {
		return fa.AccessField(seg)
	}
	return nil, false
}
