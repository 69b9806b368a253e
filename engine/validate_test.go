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

package engine

import (
	"encoding/json"
	"testing"

	"github.com/funnelgo/funnel/api/types"
	"github.com/stretchr/testify/assert"
)

func validations(pairs ...any) types.Validations {
	var v types.Validations
	for i := 0; i+1 < len(pairs); i += 2 {
		v = append(v, types.Validation{Rule: pairs[i].(string), Param: pairs[i+1]})
	}
	return v
}

func TestValidateValue(t *testing.T) {
	tests := []struct {
		name  string
		rules types.Validations
		value any
		want  string
	}{
		{"required missing", validations("required", true), nil, "Required"},
		{"required empty string", validations("required", true), "", "Required"},
		{"required empty list", validations("required", true), []any{}, "Required"},
		{"required zero is present", validations("required", true), 0, ""},
		{"required disabled", validations("required", false), nil, ""},
		{"short circuit", validations("required", true, "minLength", 5), "", "Required"},
		{"email ok", validations("email", true), "ada@example.com", ""},
		{"email bad", validations("email", true), "ada@example", "Invalid email address"},
		{"email skipped when empty", validations("email", true), "", ""},
		{"min length", validations("minLength", 5), "abc", "Must be at least 5 characters"},
		{"min length utf16", validations("minLength", 2), "😀", ""},
		{"max length", validations("maxLength", 2), "abc", "Must be at most 2 characters"},
		{"min choices", validations("minChoices", 2), []any{"a"}, "Select at least 2 options"},
		{"min choices scalar", validations("minChoices", 1), "a", ""},
		{"min choices nothing", validations("minChoices", 1), nil, "Select at least 1 options"},
		{"max choices", validations("maxChoices", 1), []any{"a", "b"}, "Select at most 1 options"},
		{"min", validations("min", 18), "17", "Must be at least 18"},
		{"min ok", validations("min", 18), 18, ""},
		{"min skipped when nil", validations("min", 18), nil, ""},
		{"max", validations("max", 10), 10.5, "Must be at most 10"},
		{"pattern ok", validations("pattern", `^\d{3}$`), "123", ""},
		{"pattern bad", validations("pattern", `^\d{3}$`), "12a", "Invalid format"},
		{"pattern uncompilable", validations("pattern", `([a-z`), "x", ""},
		{"unknown rule", validations("shout", true), "", ""},
		{"first failure wins", validations("minLength", 5, "pattern", `^\d+$`), "ab", "Must be at least 5 characters"},
		{"declared order", validations("pattern", `^\d+$`, "minLength", 5), "ab", "Invalid format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateValue(tt.rules, tt.value))
		})
	}
}

func TestValidatePage(t *testing.T) {
	var page types.Page
	err := json.Unmarshal([]byte(`{
		"id": "p1",
		"blocks": [
			{"id": "h", "type": "heading", "validations": {"required": true}},
			{"id": "name", "type": "text_input", "validations": {"required": true, "minLength": 5}},
			{"id": "mail", "type": "text_input", "validations": {"email": true}},
			{"id": "age", "type": "slider", "validations": {"min": 18}},
			{"id": "free", "type": "text_input"}
		]
	}`), &page)
	assert.Nil(t, err)

	errs := ValidatePage(&page, &types.State{Values: map[string]any{"name": "", "mail": "nope", "age": 21}})
	assert.Equal(t, types.ErrorMap{"name": "Required", "mail": "Invalid email address"}, errs)

	errs = ValidatePage(&page, &types.State{Values: map[string]any{"name": "Grace", "age": 21}})
	assert.Equal(t, 0, len(errs))

	assert.Equal(t, 0, len(ValidatePage(nil, nil)))
}

func TestCompilePatternCache(t *testing.T) {
	a, err := CompilePattern(`^[a-z]+$`)
	assert.Nil(t, err)
	b, _ := CompilePattern(`^[a-z]+$`)
	assert.True(t, a == b)

	_, err = CompilePattern(`(`)
	assert.NotNil(t, err)
}
