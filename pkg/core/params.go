package core

import (
	"fmt"
	"maps"
	"strconv"

	"github.com/cockroachdb/apd/v3"
)

// Params carries request parameters and raw decoded payload fields.
// The getters tolerate missing keys and mixed JSON number/string encodings,
// which venue payloads switch between freely.
type Params map[string]any

// Clone returns a shallow copy of the params.
func (p Params) Clone() Params {
	clone := make(Params, len(p))
	maps.Copy(clone, p)
	return clone
}

// Without returns a copy of the params with the given keys removed.
func (p Params) Without(keys ...string) Params {
	clone := p.Clone()
	for _, key := range keys {
		delete(clone, key)
	}
	return clone
}

// String returns the string value of key, or fallback when absent.
// Numeric values are rendered without an exponent.
func (p Params) String(key, fallback string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return fallback
	}
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Int returns the integer value of key, accepting JSON numbers and numeric
// strings, or fallback when absent or unparsable.
func (p Params) Int(key string, fallback int64) int64 {
	v, ok := p[key]
	if !ok || v == nil {
		return fallback
	}
	switch val := v.(type) {
	case int:
		return int64(val)
	case int64:
		return val
	case float64:
		return int64(val)
	case string:
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

// Float returns the float value of key, accepting JSON numbers and numeric
// strings, or fallback when absent or unparsable.
func (p Params) Float(key string, fallback float64) float64 {
	v, ok := p[key]
	if !ok || v == nil {
		return fallback
	}
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case string:
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

// Bool returns the boolean value of key, or fallback when absent.
func (p Params) Bool(key string, fallback bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return fallback
}

// Decimal returns the decimal value of key, or nil when absent or
// unparsable. JSON numbers and numeric strings are both accepted; string
// payloads preserve the venue's exact precision.
func (p Params) Decimal(key string) *apd.Decimal {
	s := p.String(key, "")
	if s == "" {
		return nil
	}
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return nil
	}
	return d
}

// Has reports whether key is present with a non-nil value.
func (p Params) Has(key string) bool {
	v, ok := p[key]
	return ok && v != nil
}
