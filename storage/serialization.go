package storage

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// CBOR encoding/decoding modes configured for determinism and safety.
// Canonical sort keeps the same snapshot encoding to the same bytes; the
// decode limits bound what a corrupted or hostile backend can make us parse.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

//nolint:gochecknoinits // CBOR mode configuration at package load time
func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort: cbor.SortCanonical,
		Time: cbor.TimeRFC3339,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoding mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		MaxArrayElements: 10000,
		MaxMapPairs:      10000,
		MaxNestedLevels:  16,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoding mode: %v", err))
	}
}

// Marshal serializes a value to CBOR bytes for storage.
//
// Struct tags are optional but shrink the encoding:
//
//	type snapshot struct {
//	    Ident string `cbor:"1,keyasint"`
//	    Authenticated bool `cbor:"2,keyasint"`
//	}
func Marshal[T any](v T) ([]byte, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cbor marshal failed: %w", err)
	}
	return data, nil
}

// Unmarshal deserializes CBOR bytes from storage into a value of type T.
func Unmarshal[T any](data []byte) (T, error) {
	var v T
	if err := decMode.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("cbor unmarshal failed: %w", err)
	}
	return v, nil
}

// MustMarshal is like Marshal but panics on error. Use it only where the
// value is known serializable (tests, fixed snapshots).
func MustMarshal[T any](v T) []byte {
	data, err := Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("MustMarshal failed: %v", err))
	}
	return data
}

// MustUnmarshal is like Unmarshal but panics on error.
func MustUnmarshal[T any](data []byte) T {
	v, err := Unmarshal[T](data)
	if err != nil {
		panic(fmt.Sprintf("MustUnmarshal failed: %v", err))
	}
	return v
}
