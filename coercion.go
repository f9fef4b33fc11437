package ygggo_formsql

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Coercion is the closed set of conversions a placeholder type token can select.
type Coercion int

const (
	CoerceString Coercion = iota + 1
	CoerceInteger
	CoerceLong
	CoerceBoolean
)

// ParseCoercion resolves a placeholder type token. Tokens are matched
// case-insensitively; "number", "int" and "integer" are aliases.
func ParseCoercion(token string) (Coercion, bool) {
	switch strings.ToLower(token) {
	case "string":
		return CoerceString, true
	case "number", "int", "integer":
		return CoerceInteger, true
	case "long":
		return CoerceLong, true
	case "boolean":
		return CoerceBoolean, true
	}
	return 0, false
}

func (c Coercion) String() string {
	switch c {
	case CoerceString:
		return "string"
	case CoerceInteger:
		return "integer"
	case CoerceLong:
		return "long"
	case CoerceBoolean:
		return "boolean"
	}
	return "Coercion(" + strconv.Itoa(int(c)) + ")"
}

var (
	errNotNumeric  = errors.New("value is not numeric")
	errOutOfRange  = errors.New("value is out of the 64-bit integer range")
	errUnsupported = errors.New("value has an unsupported kind")
)

// Convert turns a submitted value into the driver value for this rule.
// A nil value converts to nil (SQL NULL) under every rule.
//
// CoerceLong parses to an integer and then hands the driver a float64. Integers above
// 2^53 in magnitude therefore lose precision (9007199254740993 arrives as
// 9007199254740992); this is the documented ceiling of the rule, not an error.
func (c Coercion) Convert(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch c {
	case CoerceString:
		return toText(v), nil
	case CoerceInteger:
		return toInteger(v)
	case CoerceLong:
		n, err := toInteger(v)
		if err != nil {
			return nil, err
		}
		return float64(n), nil
	case CoerceBoolean:
		if truthy(v) {
			return int64(1), nil
		}
		return int64(0), nil
	}
	return nil, fmt.Errorf("unknown coercion %d", int(c))
}

func toText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

func toInteger(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return uintToInt(uint64(x))
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return uintToInt(x)
	case float32:
		return floatToInt(float64(x))
	case float64:
		return floatToInt(x)
	case json.Number:
		return parseInteger(x.String())
	case string:
		return parseInteger(x)
	case []byte:
		return parseInteger(string(x))
	}
	return 0, errUnsupported
}

// parseInteger accepts integer literals exactly and decimal literals truncated toward zero.
func parseInteger(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	} else if errors.Is(err, strconv.ErrRange) {
		return 0, errOutOfRange
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errNotNumeric
	}
	return floatToInt(f)
}

func floatToInt(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errNotNumeric
	}
	t := math.Trunc(f)
	if t >= math.MaxInt64 || t < math.MinInt64 {
		return 0, errOutOfRange
	}
	return int64(t), nil
}

func uintToInt(u uint64) (int64, error) {
	if u > math.MaxInt64 {
		return 0, errOutOfRange
	}
	return int64(u), nil
}

// truthy reports whether a submitted value counts as true for a boolean column.
// Strings understood by strconv.ParseBool use that meaning; any other non-empty
// string is true.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return false
		}
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
		return true
	case json.Number:
		f, err := x.Float64()
		return err == nil && f != 0
	case float64:
		return x != 0 && !math.IsNaN(x)
	case float32:
		return x != 0 && !math.IsNaN(float64(x))
	}
	if n, err := toInteger(v); err == nil {
		return n != 0
	}
	return true
}
