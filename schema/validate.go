package schema

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/vgavro/requests-client/client"
)

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

// defaultValidator returns the shared validator instance, reporting fields
// by their json names.
func defaultValidator() *validator.Validate {
	vldOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		vld = v
	})
	return vld
}

// validateValue runs field validation over a bound value. Structs validate
// directly, slices validate every struct element with failures keyed by
// index, everything else passes.
func validateValue(resp *client.Response, v any) *client.ValidationError {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Struct:
		return toValidationError(resp, defaultValidator().Struct(rv.Interface()), "")
	case reflect.Slice, reflect.Array:
		fields := make(map[string][]string)
		for i := 0; i < rv.Len(); i++ {
			el := rv.Index(i)
			for (el.Kind() == reflect.Pointer || el.Kind() == reflect.Interface) && !el.IsNil() {
				el = el.Elem()
			}
			if el.Kind() != reflect.Struct {
				break
			}
			ve := toValidationError(resp, defaultValidator().Struct(el.Interface()), strconv.Itoa(i)+".")
			if ve != nil {
				for k, msgs := range ve.Fields {
					fields[k] = append(fields[k], msgs...)
				}
			}
		}
		if len(fields) > 0 {
			return client.NewValidationError(resp, "", fields)
		}
	}
	return nil
}

// toValidationError converts validator output into a ValidationError with
// dotted json field paths, each optionally prefixed.
func toValidationError(resp *client.Response, err error, prefix string) *client.ValidationError {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return client.NewValidationError(resp, "", map[string][]string{schemaKey: {err.Error()}})
	}
	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		key := prefix + fieldKey(fe)
		fields[key] = append(fields[key], errorMessage(fe))
	}
	return client.NewValidationError(resp, "", fields)
}

// fieldKey strips the root type from the error namespace, leaving the
// dotted json path of the failing field.
func fieldKey(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func errorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s", fe.Param())
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be %s or more", fe.Param())
	case "lte":
		return fmt.Sprintf("must be %s or less", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
