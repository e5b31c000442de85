// Package query encodes filter, sort and pagination parameters into
// canonical query strings.
//
// Empty values never reach the wire: a nil value, a nil pointer or the empty
// string drops the key entirely. Keys are sorted so the same parameters always
// produce the same string.
package query

import (
	"fmt"
	"math"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	querystring "github.com/google/go-querystring/query"
)

// Params maps parameter names to scalar values.
type Params map[string]any

// Encode serializes params. It returns "" when nothing survives omission.
func Encode(params Params) string {
	values := url.Values{}
	for key, value := range params {
		s, ok := stringify(value)
		if !ok {
			continue
		}
		values.Set(key, s)
	}
	return values.Encode()
}

// EncodeStruct flattens a struct with `url` tags and applies the same
// omission rules as Encode.
func EncodeStruct(v any) (string, error) {
	values, err := querystring.Values(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode query parameters: %w", err)
	}
	return encodeValues(values), nil
}

// Append attaches qs to path. An empty qs leaves path untouched.
func Append(path, qs string) string {
	if qs == "" {
		return path
	}
	if strings.Contains(path, "?") {
		return path + "&" + qs
	}
	return path + "?" + qs
}

// Merge returns a new Params with the keys of b written over a.
func Merge(a, b Params) Params {
	out := make(Params, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func encodeValues(values url.Values) string {
	for key, list := range values {
		kept := list[:0]
		for _, v := range list {
			if v != "" {
				kept = append(kept, v)
			}
		}
		if len(kept) == 0 {
			delete(values, key)
			continue
		}
		values[key] = kept
	}
	return values.Encode()
}

// stringify renders a scalar the way a JavaScript String() call would.
// The second result is false for values that must be omitted.
func stringify(value any) (string, bool) {
	if value == nil {
		return "", false
	}

	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return "", false
		}
		rv = rv.Elem()
	}

	var s string
	switch rv.Kind() {
	case reflect.String:
		s = rv.String()
	case reflect.Bool:
		s = strconv.FormatBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		s = strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		s = strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32:
		s = formatFloat(rv.Float(), 32)
	case reflect.Float64:
		s = formatFloat(rv.Float(), 64)
	default:
		if stringer, ok := rv.Interface().(fmt.Stringer); ok {
			s = stringer.String()
		} else {
			s = fmt.Sprint(rv.Interface())
		}
	}
	if s == "" {
		return "", false
	}
	return s, true
}

// formatFloat uses the shortest decimal form, switching to exponent form
// outside [1e-6, 1e21) as JavaScript number formatting does.
func formatFloat(f float64, bitSize int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	if abs := math.Abs(f); abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, bitSize)
	}
	// Go pads the exponent to two digits; JavaScript does not.
	mantissa, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, bitSize), "e")
	return mantissa + "e" + exp[:1] + strings.TrimLeft(exp[1:], "0")
}
