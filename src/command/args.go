package command

import (
	"encoding/json"
	"fmt"
	"math"

	"desk-bridge/src/errkind"
)

// Args are the loosely typed named arguments of one command, usually decoded from JSON.
type Args map[string]any

func missing(key string) error {
	return fmt.Errorf("%w: missing argument %q", errkind.ErrInvalidArgument, key)
}

func mistyped(key, want string, v any) error {
	return fmt.Errorf("%w: argument %q must be %s, got %T", errkind.ErrInvalidArgument, key, want, v)
}

func (a Args) lookup(key string) (any, bool) {
	v, ok := a[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (a Args) String(key string) (string, error) {
	s, ok, err := a.OptString(key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", missing(key)
	}
	return s, nil
}

func (a Args) OptString(key string) (string, bool, error) {
	v, ok := a.lookup(key)
	if !ok {
		return "", false, nil
	}
	s, isString := v.(string)
	if !isString {
		return "", false, mistyped(key, "a string", v)
	}
	return s, true, nil
}

func (a Args) Int(key string) (int, error) {
	n, ok, err := a.OptInt(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, missing(key)
	}
	return n, nil
}

// OptInt accepts any numeric value without a fractional part.
func (a Args) OptInt(key string) (int, bool, error) {
	v, ok := a.lookup(key)
	if !ok {
		return 0, false, nil
	}
	switch n := v.(type) {
	case int:
		return n, true, nil
	case int32:
		return int(n), true, nil
	case int64:
		return int(n), true, nil
	case uint:
		return int(n), true, nil
	case uint32:
		return int(n), true, nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || n > math.MaxInt32 || n < math.MinInt32 {
			return 0, false, mistyped(key, "an integer", v)
		}
		return int(n), true, nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false, mistyped(key, "an integer", v)
		}
		return int(i), true, nil
	default:
		return 0, false, mistyped(key, "an integer", v)
	}
}

// Uint is a required non-negative integer.
func (a Args) Uint(key string) (uint, error) {
	n, err := a.Int(key)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: argument %q must not be negative, got %d", errkind.ErrInvalidArgument, key, n)
	}
	return uint(n), nil
}

func (a Args) OptFloat(key string) (float64, bool, error) {
	v, ok := a.lookup(key)
	if !ok {
		return 0, false, nil
	}
	switch n := v.(type) {
	case float64:
		return n, true, nil
	case float32:
		return float64(n), true, nil
	case int:
		return float64(n), true, nil
	case int64:
		return float64(n), true, nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false, mistyped(key, "a number", v)
		}
		return f, true, nil
	default:
		return 0, false, mistyped(key, "a number", v)
	}
}

func (a Args) OptBool(key string) (bool, bool, error) {
	v, ok := a.lookup(key)
	if !ok {
		return false, false, nil
	}
	b, isBool := v.(bool)
	if !isBool {
		return false, false, mistyped(key, "a boolean", v)
	}
	return b, true, nil
}
