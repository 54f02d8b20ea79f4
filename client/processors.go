package client

import (
	"errors"
	"reflect"
	"time"

	"github.com/vgavro/requests-client/objpath"
)

// Processor inspects an error raised by the pipeline and may translate it
// into another error, typically a retryable kind. Returning nil keeps the
// original error. The first processor that translates stops the chain.
type Processor func(err error) error

func runProcessors(err error, processors []Processor) error {
	for _, p := range processors {
		if translated := p(err); translated != nil {
			return translated
		}
	}
	return err
}

// Rule declares when a typed error should be translated. Attrs maps dotted
// paths resolved on the matched error (e.g. "response.status_code" or
// "data.error.code") to expected values; When adds an arbitrary predicate.
// All set conditions must hold. Wait is the retry hint attached on translate.
type Rule[E error] struct {
	Attrs map[string]any
	When  func(E) bool
	Wait  time.Duration
}

func (r Rule[E]) matches(err error) (E, bool) {
	var target E
	if !errors.As(err, &target) {
		return target, false
	}
	for path, want := range r.Attrs {
		got, lookupErr := objpath.Resolve(target, path)
		if lookupErr != nil || !equalLoose(got, want) {
			return target, false
		}
	}
	if r.When != nil && !r.When(target) {
		return target, false
	}
	return target, true
}

// RatelimitOn returns a processor translating errors matching the rule into
// a RatelimitError carrying the rule's wait hint.
func RatelimitOn[E error](rule Rule[E]) Processor {
	return func(err error) error {
		if _, ok := rule.matches(err); !ok {
			return nil
		}
		return NewRatelimitError(nil, "", rule.Wait, err)
	}
}

// TemporaryOn returns a processor translating errors matching the rule into
// a TemporaryError carrying the rule's wait hint.
func TemporaryOn[E error](rule Rule[E]) Processor {
	return func(err error) error {
		if _, ok := rule.matches(err); !ok {
			return nil
		}
		return NewTemporaryError(nil, "", rule.Wait, err)
	}
}

// TranslateOn returns a processor that hands errors matching the rule to fn
// for arbitrary translation.
func TranslateOn[E error](rule Rule[E], fn func(match E, err error) error) Processor {
	return func(err error) error {
		match, ok := rule.matches(err)
		if !ok {
			return nil
		}
		return fn(match, err)
	}
}

// equalLoose compares a resolved attribute against a rule value, tolerating
// numeric type differences (JSON payloads yield float64 where rules say int).
func equalLoose(got, want any) bool {
	if got == nil || want == nil {
		return got == nil && want == nil
	}
	gv, wv := reflect.ValueOf(got), reflect.ValueOf(want)
	if isNumeric(gv) && isNumeric(wv) {
		return numericValue(gv) == numericValue(wv)
	}
	return reflect.DeepEqual(got, want)
}

func isNumeric(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

func numericValue(v reflect.Value) float64 {
	switch {
	case v.CanInt():
		return float64(v.Int())
	case v.CanUint():
		return float64(v.Uint())
	default:
		return v.Float()
	}
}
