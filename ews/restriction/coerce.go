package restriction

import (
	"strconv"
	"time"

	"github.com/tarowe/go-ews/errors"
	"github.com/tarowe/go-ews/ews/types"
)

// Canonical converts an operand to the canonical wire literal for the given
// field type. Date/times normalize to a timezone-aware UTC instant in
// RFC 3339; integers and booleans to their decimal and lowercase forms.
func Canonical(field string, t types.FieldType, operand any) (string, error) {
	fail := func(want string) (string, error) {
		return "", &errors.TypeCoercionError{Field: field, Value: operand, Want: want}
	}

	switch t {
	case types.FieldString:
		s, ok := operand.(string)
		if !ok {
			return fail("string")
		}
		return s, nil

	case types.FieldInt:
		switch v := operand.(type) {
		case int:
			return strconv.Itoa(v), nil
		case int32:
			return strconv.FormatInt(int64(v), 10), nil
		case int64:
			return strconv.FormatInt(v, 10), nil
		case float64:
			// JSON decoding hands numbers over as float64
			if v != float64(int64(v)) {
				return fail("int")
			}
			return strconv.FormatInt(int64(v), 10), nil
		default:
			return fail("int")
		}

	case types.FieldBool:
		b, ok := operand.(bool)
		if !ok {
			return fail("bool")
		}
		return strconv.FormatBool(b), nil

	case types.FieldDateTime:
		switch v := operand.(type) {
		case time.Time:
			return v.UTC().Format(time.RFC3339), nil
		case string:
			ts, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return fail("RFC 3339 datetime")
			}
			return ts.UTC().Format(time.RFC3339), nil
		default:
			return fail("datetime")
		}

	default:
		return fail(t.String())
	}
}
