package gateway

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/gaurav-prasanna/pagegate/core"
	"github.com/gaurav-prasanna/pagegate/core/capability"
)

// validate checks input against the declared fields in order and returns the
// input the capability should see: coerced values, defaults filled in, and
// any undeclared keys passed through untouched.
func validate(fields []capability.FieldSpec, input map[string]any) (map[string]any, *core.Failure) {
	out := make(map[string]any, len(input)+len(fields))
	for k, v := range input {
		out[k] = v
	}

	for _, f := range fields {
		v, present := input[f.FieldName]
		if !present || v == nil {
			if f.Required {
				return nil, core.NewFailure(core.KindValidation, "field %q: required field is missing", f.FieldName)
			}
			if f.Default != nil {
				out[f.FieldName] = f.Default
			}
			continue
		}
		coerced, err := coerce(f, v)
		if err != nil {
			return nil, core.NewFailure(core.KindValidation, "field %q: %v", f.FieldName, err)
		}
		out[f.FieldName] = coerced
	}
	return out, nil
}

// coerce converts v to the Go representation of f's kind.
func coerce(f capability.FieldSpec, v any) (any, error) {
	switch f.Kind {
	case capability.KindString:
		if isComposite(v) {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return s, nil

	case capability.KindNumber:
		if _, ok := v.(bool); ok {
			return nil, fmt.Errorf("expected number, got %T", v)
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("expected number, got empty string")
		}
		if f.Integer() {
			return toInteger(v)
		}
		n, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, fmt.Errorf("expected number, got %T", v)
		}
		return n, nil

	case capability.KindBoolean:
		if isComposite(v) {
			return nil, fmt.Errorf("expected boolean, got %T", v)
		}
		b, err := cast.ToBoolE(v)
		if err != nil {
			return nil, fmt.Errorf("expected boolean, got %v", v)
		}
		return b, nil

	case capability.KindObject:
		if !isComposite(v) {
			return nil, fmt.Errorf("expected object, got %T", v)
		}
		return v, nil
	}
	return v, nil
}

// toInteger accepts whole numbers that fit in an int64.
func toInteger(v any) (int64, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.Uint() > math.MaxInt64 {
			return 0, fmt.Errorf("expected integer, got %v", v)
		}
		return int64(rv.Uint()), nil
	}
	if s, ok := v.(string); ok {
		if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return n, nil
		}
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
	if math.IsNaN(f) || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("expected integer, got %v", v)
	}
	return int64(f), nil
}

func isComposite(v any) bool {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return true
	case reflect.Ptr:
		return reflect.ValueOf(v).Elem().Kind() == reflect.Struct
	}
	return false
}
