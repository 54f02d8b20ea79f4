// Package schema decodes response payloads into typed structs. Struct binds
// the loosely typed values produced by JSON decoding using json field names,
// converts timestamps along the way, and validates the result field by
// field, reporting failures as *client.ValidationError with dotted field
// paths.
package schema

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/vgavro/requests-client/client"
	"github.com/vgavro/requests-client/objpath"
)

// schemaKey collects binding failures that cannot be attributed to a single
// field.
const schemaKey = "_schema"

// Struct decodes a raw payload into T. The zero value binds with json field
// names, ignores unknown keys and validates `validate` tags.
type Struct[T any] struct {
	// DataPath narrows the payload by dotted-path resolution before
	// binding, so decoders can target an envelope member directly.
	DataPath string

	// Strict rejects unknown keys instead of ignoring them.
	Strict bool

	// Hooks prepend custom conversion hooks to the built-in timestamp
	// handling.
	Hooks []mapstructure.DecodeHookFunc

	// PostDecode runs after binding and validation. Domain models use it
	// to capture the client they were loaded through.
	PostDecode func(ctx client.DecodeContext, v *T) error
}

var _ client.Decoder = Struct[struct{}]{}

// Decode implements client.Decoder. It returns the bound T value.
func (s Struct[T]) Decode(ctx client.DecodeContext, data any) (any, error) {
	if s.DataPath != "" {
		v, err := objpath.Resolve(data, s.DataPath)
		if err != nil {
			return nil, client.NewResponseError(ctx.Response,
				fmt.Sprintf("could not resolve %q on data: %v", s.DataPath, err))
		}
		data = v
	}

	hooks := make([]mapstructure.DecodeHookFunc, 0, len(s.Hooks)+1)
	hooks = append(hooks, s.Hooks...)
	hooks = append(hooks, TimestampHook())

	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &out,
		TagName:     "json",
		ErrorUnused: s.Strict,
		DecodeHook:  mapstructure.ComposeDecodeHookFunc(hooks...),
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(data); err != nil {
		return nil, client.NewValidationError(ctx.Response, "",
			map[string][]string{schemaKey: {err.Error()}})
	}

	if ve := validateValue(ctx.Response, &out); ve != nil {
		return nil, ve
	}

	if s.PostDecode != nil {
		if err := s.PostDecode(ctx, &out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Decode binds data into T with default options.
func Decode[T any](ctx client.DecodeContext, data any) (T, error) {
	out, err := Struct[T]{}.Decode(ctx, data)
	if err != nil {
		var zero T
		return zero, err
	}
	return out.(T), nil
}
