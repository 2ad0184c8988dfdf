package schema

import (
	"fmt"
	"strconv"
	"time"
)

// Field parsing helpers for remote records.
//
// Remote records arrive as map[string]any decoded from JSON. These
// helpers make "field absent" and "field present but malformed"
// distinguishable: the bool reports presence, the error reports a
// malformed value. A missing field is never an error here; required-field
// policy belongs to the caller.

// StringField extracts a string-valued field.
func StringField(rec map[string]any, key string) (string, bool, error) {
	v, ok := rec[key]
	if !ok || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", true, fmt.Errorf("field %q: expected string, got %T", key, v)
	}
	return s, true, nil
}

// FloatField extracts a numeric field. JSON numbers decode as float64;
// numeric strings are accepted because some remote exports quote numbers.
func FloatField(rec map[string]any, key string) (float64, bool, error) {
	v, ok := rec[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	switch n := v.(type) {
	case float64:
		return n, true, nil
	case int:
		return float64(n), true, nil
	case int64:
		return float64(n), true, nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, true, fmt.Errorf("field %q: %q is not numeric", key, n)
		}
		return f, true, nil
	default:
		return 0, true, fmt.Errorf("field %q: expected number, got %T", key, v)
	}
}

// IntField extracts an integer field, rejecting fractional values.
func IntField(rec map[string]any, key string) (int, bool, error) {
	f, ok, err := FloatField(rec, key)
	if err != nil || !ok {
		return 0, ok, err
	}
	i := int(f)
	if float64(i) != f {
		return 0, true, fmt.Errorf("field %q: %v is not an integer", key, f)
	}
	return i, true, nil
}

// BoolField extracts a boolean field.
func BoolField(rec map[string]any, key string) (bool, bool, error) {
	v, ok := rec[key]
	if !ok || v == nil {
		return false, false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, true, fmt.Errorf("field %q: expected bool, got %T", key, v)
	}
	return b, true, nil
}

// TimeField extracts an RFC 3339 timestamp field.
func TimeField(rec map[string]any, key string) (time.Time, bool, error) {
	s, ok, err := StringField(rec, key)
	if err != nil || !ok {
		return time.Time{}, ok, err
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, true, fmt.Errorf("field %q: %q is not an RFC 3339 timestamp", key, s)
	}
	return t, true, nil
}
