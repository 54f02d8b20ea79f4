package client

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleTranslation(t *testing.T) {
	resp := testResponse("GET", 429, "http://api.test/x", `{"error":{"code":17}}`)
	resp.Data = map[string]any{"error": map[string]any{"code": float64(17)}}
	statusErr := NewStatusError(resp, StatusSpec{200})

	t.Run("matches_status_attr", func(t *testing.T) {
		p := RatelimitOn(Rule[*StatusError]{
			Attrs: map[string]any{"response.status_code": 429},
			Wait:  time.Second,
		})
		translated := p(statusErr)
		var rlErr *RatelimitError
		require.ErrorAs(t, translated, &rlErr)
		assert.Equal(t, time.Second, rlErr.Wait)
		assert.Same(t, resp, rlErr.Response())
	})

	t.Run("matches_data_attr", func(t *testing.T) {
		p := TemporaryOn(Rule[*StatusError]{
			Attrs: map[string]any{"data.error.code": 17},
		})
		var tmpErr *TemporaryError
		require.ErrorAs(t, p(statusErr), &tmpErr)
	})

	t.Run("attr_mismatch_keeps_error", func(t *testing.T) {
		p := RatelimitOn(Rule[*StatusError]{
			Attrs: map[string]any{"response.status_code": 503},
		})
		assert.Nil(t, p(statusErr))
	})

	t.Run("wrong_type_keeps_error", func(t *testing.T) {
		p := RatelimitOn(Rule[*StatusError]{})
		assert.Nil(t, p(errors.New("not a status error")))
	})

	t.Run("when_predicate_gates", func(t *testing.T) {
		p := RatelimitOn(Rule[*StatusError]{
			When: func(e *StatusError) bool { return e.Status >= 500 },
		})
		assert.Nil(t, p(statusErr))

		p = RatelimitOn(Rule[*StatusError]{
			When: func(e *StatusError) bool { return e.Status == 429 },
		})
		assert.NotNil(t, p(statusErr))
	})

	t.Run("translate_on_custom_error", func(t *testing.T) {
		p := TranslateOn(Rule[*StatusError]{
			Attrs: map[string]any{"response.status_code": 429},
		}, func(match *StatusError, _ error) error {
			return NewEntityNotFoundError(match.Response(), "quota", "default")
		})
		var nfErr *EntityNotFoundError
		require.ErrorAs(t, p(statusErr), &nfErr)
	})
}

func TestRunProcessorsFirstTranslationWins(t *testing.T) {
	sentinel := errors.New("translated")
	var secondCalled bool

	processors := []Processor{
		func(error) error { return sentinel },
		func(error) error { secondCalled = true; return sentinel },
	}

	err := runProcessors(errors.New("original"), processors)
	assert.Same(t, sentinel, err)
	assert.False(t, secondCalled)

	t.Run("no_translation_keeps_original", func(t *testing.T) {
		original := errors.New("original")
		err := runProcessors(original, []Processor{func(error) error { return nil }})
		assert.Same(t, original, err)
	})
}

func TestEqualLoose(t *testing.T) {
	tests := []struct {
		name string
		got  any
		want any
		eq   bool
	}{
		{"int_vs_float64", float64(429), 429, true},
		{"int_vs_int64", int64(7), 7, true},
		{"uint_vs_int", uint(3), 3, true},
		{"numeric_mismatch", float64(429), 430, false},
		{"strings_equal", "a", "a", true},
		{"strings_differ", "a", "b", false},
		{"both_nil", nil, nil, true},
		{"one_nil", nil, "a", false},
		{"bools", true, true, true},
		{"slice_deep_equal", []string{"x"}, []string{"x"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.eq, equalLoose(tt.got, tt.want))
		})
	}
}
