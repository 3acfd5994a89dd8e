package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is the resolved value of one option: either a scalar or an aggregate
// exposing named sub-properties addressed with dot paths.
type Value struct {
	scalar    float64
	aggregate map[string]any
	missing   bool
}

// Scalar wraps a plain number.
func Scalar(v float64) Value {
	return Value{scalar: v}
}

// Aggregate wraps a structured value.
func Aggregate(fields map[string]any) Value {
	if fields == nil {
		fields = map[string]any{}
	}
	return Value{aggregate: fields}
}

// Unavailable marks a value that could not be produced, such as a nested
// formula that did not evaluate. Every path lookup on it fails.
func Unavailable() Value {
	return Value{missing: true}
}

// Available reports whether the value was produced.
func (v Value) Available() bool {
	return !v.missing
}

// IsAggregate reports whether the value carries sub-properties.
func (v Value) IsAggregate() bool {
	return v.aggregate != nil
}

// Fields returns the aggregate's sub-properties (nil for scalars).
func (v Value) Fields() map[string]any {
	return v.aggregate
}

// Lookup returns the raw sub-property at path. An empty path on a scalar
// returns the scalar itself.
func (v Value) Lookup(path string) (any, bool) {
	path = strings.TrimSpace(path)
	if v.missing {
		return nil, false
	}
	if v.aggregate == nil {
		if path == "" {
			return v.scalar, true
		}
		return nil, false
	}
	if path == "" {
		return nil, false
	}
	return lookupMap(v.aggregate, strings.ToLower(path))
}

// Path applies a variable path and coerces the result to a number. Booleans
// become 1 or 0. Non-numeric or missing leaves report false.
func (v Value) Path(path string) (float64, bool) {
	raw, ok := v.Lookup(path)
	if !ok {
		return 0, false
	}
	return coerceNumber(raw)
}

// String renders the value for logs and CLI output.
func (v Value) String() string {
	if v.missing {
		return "<unavailable>"
	}
	if v.aggregate == nil {
		return strconv.FormatFloat(v.scalar, 'f', -1, 64)
	}
	return fmt.Sprint(v.aggregate)
}

func lookupMap(values map[string]any, path string) (any, bool) {
	if len(values) == 0 || path == "" {
		return nil, false
	}

	if v, ok := values[path]; ok {
		return v, true
	}

	parts := strings.Split(path, ".")
	var current any = values
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, false
		}
		typed, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		next, ok := typed[part]
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

func coerceNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case float64:
		if math.IsNaN(v) {
			return 0, false
		}
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// ParseNumber parses a raw submitted number, returning 0 when unparsable.
func ParseNumber(raw string) float64 {
	n, ok := parseNumber(raw)
	if !ok {
		return 0
	}
	return n
}

// TryNumber parses a raw number, reporting whether it was numeric.
func TryNumber(raw string) (float64, bool) {
	return parseNumber(raw)
}

func parseNumber(raw string) (float64, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, false
	}
	if strings.Contains(trimmed, ",") && !strings.Contains(trimmed, ".") {
		trimmed = strings.ReplaceAll(trimmed, ",", ".")
	}
	n, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func boolNumber(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
