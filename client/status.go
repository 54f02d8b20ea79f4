package client

import (
	"strconv"
	"strings"
)

// StatusSpec lists the response status codes a request accepts. An element
// between 1 and 9 matches its whole hundred class (2 accepts any 2xx). An
// empty spec matches every status.
type StatusSpec []int

// StatusAny matches every status code. Set it on a request to disable the
// status check while keeping the client default for other requests.
var StatusAny = StatusSpec{}

// Matches reports whether code is accepted by the spec.
func (s StatusSpec) Matches(code int) bool {
	if len(s) == 0 {
		return true
	}
	for _, want := range s {
		if want == code {
			return true
		}
		if want >= 1 && want <= 9 && code/100 == want {
			return true
		}
	}
	return false
}

// String renders the spec for error messages, e.g. "200", "2xx" or "200,201".
func (s StatusSpec) String() string {
	if len(s) == 0 {
		return "any"
	}
	parts := make([]string, len(s))
	for i, want := range s {
		if want >= 1 && want <= 9 {
			parts[i] = strconv.Itoa(want) + "xx"
		} else {
			parts[i] = strconv.Itoa(want)
		}
	}
	return strings.Join(parts, ",")
}
