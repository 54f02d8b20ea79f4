package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

var timeType = reflect.TypeOf(time.Time{})

// TimestampHook converts RFC 3339 strings and unix epoch numbers into
// time.Time during binding. Epoch zero decodes as the zero time, matching
// APIs that send 0 for "not set".
func TimestampHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != timeType || from == timeType {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			t, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				return nil, fmt.Errorf("parse timestamp %q: %w", v, err)
			}
			return t, nil
		case float64:
			return epochTime(v), nil
		case int:
			return epochTime(float64(v)), nil
		case int64:
			return epochTime(float64(v)), nil
		case json.Number:
			f, err := v.Float64()
			if err != nil {
				return nil, fmt.Errorf("parse timestamp %q: %w", v, err)
			}
			return epochTime(f), nil
		}
		return data, nil
	}
}

func epochTime(sec float64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	s, frac := math.Modf(sec)
	return time.Unix(int64(s), int64(math.Round(frac*1e9))).UTC()
}
