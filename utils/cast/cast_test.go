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

package cast

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToNumber(t *testing.T) {
	tests := []struct {
		name   string
		input  interface{}
		expect float64
	}{
		{"int", 3, 3},
		{"float", 2.5, 2.5},
		{"numeric string", "42", 42},
		{"padded string", "  7 ", 7},
		{"empty string", "", 0},
		{"exponent", "1e3", 1000},
		{"hex", "0x1f", 31},
		{"binary", "0b101", 5},
		{"true", true, 1},
		{"false", false, 0},
		{"infinity", "Infinity", math.Inf(1)},
		{"single element slice", []interface{}{"5"}, 5},
		{"empty slice", []interface{}{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, ToNumber(tt.input))
		})
	}
}

func TestToNumberNaN(t *testing.T) {
	for _, input := range []interface{}{nil, "abc", "1_000", "inf", "NaN", "-0x10", []interface{}{1, 2}, map[string]interface{}{}} {
		assert.True(t, math.IsNaN(ToNumber(input)), "%v", input)
	}
}

func TestToNumberOrZero(t *testing.T) {
	assert.Equal(t, float64(0), ToNumberOrZero(nil))
	assert.Equal(t, float64(0), ToNumberOrZero("abc"))
	assert.Equal(t, float64(12), ToNumberOrZero("12"))
}

func TestToJSString(t *testing.T) {
	assert.Equal(t, "", ToJSString(nil))
	assert.Equal(t, "8", ToJSString(float64(8)))
	assert.Equal(t, "0.5", ToJSString(0.5))
	assert.Equal(t, "1e+21", ToJSString(1e21))
	assert.Equal(t, "1e-7", ToJSString(1e-7))
	assert.Equal(t, "NaN", ToJSString(math.NaN()))
	assert.Equal(t, "true", ToJSString(true))
	assert.Equal(t, "a,b", ToJSString([]interface{}{"a", "b"}))
	assert.Equal(t, "a,b", ToJSString([]string{"a", "b"}))
	assert.Equal(t, `{"k":1}`, ToJSString(map[string]interface{}{"k": 1}))
}

func TestIsTruthy(t *testing.T) {
	assert.False(t, IsTruthy(nil))
	assert.False(t, IsTruthy(""))
	assert.False(t, IsTruthy(0))
	assert.False(t, IsTruthy(false))
	assert.False(t, IsTruthy(math.NaN()))
	assert.True(t, IsTruthy("no"))
	assert.True(t, IsTruthy(1))
	assert.True(t, IsTruthy([]interface{}{}))
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(nil))
	assert.True(t, IsEmpty(""))
	assert.True(t, IsEmpty([]interface{}{}))
	assert.False(t, IsEmpty(0))
	assert.False(t, IsEmpty([]string{"x"}))
}
