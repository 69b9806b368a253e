/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package cast converts loosely typed answer and variable values the way a browser
// runtime would: Number(x) coercion, String(x) conversion and truthiness.
package cast

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ToFloat64E converts a Go numeric value to float64.
// Strings are not parsed; use ToNumber for Number(x) semantics.
func ToFloat64E(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	default:
		return 0, fmt.Errorf("unable to cast %v of type %T to float64", value, value)
	}
}

// IsNumber reports whether value is a Go numeric type and returns it as float64.
func IsNumber(value interface{}) (float64, bool) {
	f, err := ToFloat64E(value)
	return f, err == nil
}

// ToSlice returns value as []interface{} when it is a slice of answers.
func ToSlice(value interface{}) ([]interface{}, bool) {
	switch v := value.(type) {
	case []interface{}:
		return v, true
	case []string:
		out := make([]interface{}, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	case []float64:
		out := make([]interface{}, len(v))
		for i, f := range v {
			out[i] = f
		}
		return out, true
	case []int:
		out := make([]interface{}, len(v))
		for i, n := range v {
			out[i] = n
		}
		return out, true
	default:
		return nil, false
	}
}

// ToNumber converts value with Number(x) semantics. NaN is returned when the
// value has no numeric reading; nil counts as undefined.
func ToNumber(value interface{}) float64 {
	if f, ok := IsNumber(value); ok {
		return f
	}
	switch v := value.(type) {
	case nil:
		return math.NaN()
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		return parseNumber(v)
	default:
		if items, ok := ToSlice(value); ok {
			return parseNumber(Join(items, ","))
		}
		return math.NaN()
	}
}

// ToNumberOrZero is Number(x) || 0: NaN and zero both become 0.
func ToNumberOrZero(value interface{}) float64 {
	f := ToNumber(value)
	if math.IsNaN(f) {
		return 0
	}
	return f
}

func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			if strings.ContainsRune(s[2:], '_') {
				return math.NaN()
			}
			if n, err := strconv.ParseUint(s[2:], base, 64); err == nil {
				return float64(n)
			}
			return math.NaN()
		}
	}
	for _, r := range s {
		if !(r >= '0' && r <= '9' || r == '.' || r == 'e' || r == 'E' || r == '+' || r == '-') {
			return math.NaN()
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return f
		}
		return math.NaN()
	}
	return f
}

// FormatNumber formats a float the way String(number) does.
func FormatNumber(f float64) string {
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
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		// Go pads the exponent to two digits, the browser does not.
		mant, exp, _ := strings.Cut(s, "e")
		sign := exp[0]
		exp = strings.TrimLeft(exp[1:], "0")
		return mant + "e" + string(sign) + exp
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ToJSString converts value the way String(x) does, except that nil becomes "" and
// objects are written as JSON.
func ToJSString(value interface{}) string {
	if f, ok := IsNumber(value); ok {
		return FormatNumber(f)
	}
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	case error:
		return v.Error()
	default:
		if items, ok := ToSlice(value); ok {
			return Join(items, ",")
		}
		if b, err := json.Marshal(value); err == nil {
			return string(b)
		}
		return fmt.Sprintf("%v", value)
	}
}

// Join converts each element with ToJSString and joins them with sep.
func Join(items []interface{}, sep string) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = ToJSString(item)
	}
	return strings.Join(parts, sep)
}

// IsTruthy reports whether value is truthy: nil, false, 0, NaN and "" are falsy,
// everything else (including empty slices and maps) is truthy.
func IsTruthy(value interface{}) bool {
	if f, ok := IsNumber(value); ok {
		return f != 0 && !math.IsNaN(f)
	}
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	default:
		return true
	}
}

// IsEmpty reports whether value is nil, "" or an empty slice.
func IsEmpty(value interface{}) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return s == ""
	}
	if items, ok := ToSlice(value); ok {
		return len(items) == 0
	}
	return false
}
