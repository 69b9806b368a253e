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

package lint

import (
	"strings"
	"testing"

	"github.com/funnelgo/funnel/api/types"
	"github.com/stretchr/testify/assert"
)

const goodFlow = `{
  "id": "quiz",
  "variables": {"score": 0},
  "pages": [
    {"id": "p1", "blocks": [
      {"id": "color", "type": "dropdown", "properties": {"choices": ["red", "blue"]}},
      {"id": "hi", "type": "heading", "properties": {"text": "Score {{var:score}} for {{block:color}}"}}
    ]},
    {"id": "p2", "blocks": [
      {"id": "age", "type": "slider", "properties": {"min": 0, "max": 100},
       "validations": {"min": 18, "pattern": "^\\d+$"}}
    ]}
  ],
  "rules": [
    {"pageId": "p1", "actions": [
      {"type": "add", "details": {"target": {"type": "variable", "value": "score"}, "value": 1}},
      {"type": "jump", "condition": {"op": "expr", "expr": "values.color == 'blue'"},
       "details": {"target": {"type": "page", "value": "p2"}}}
    ]}
  ]
}`

func messages(issues []Issue) string {
	var parts []string
	for _, issue := range issues {
		parts = append(parts, issue.String())
	}
	return strings.Join(parts, "\n")
}

func TestRunGoodFlow(t *testing.T) {
	result, err := Run([]byte(goodFlow))
	assert.Nil(t, err)
	assert.True(t, result.Valid(), messages(result.Errors))
	assert.Equal(t, 0, len(result.Warnings), messages(result.Warnings))
	assert.Nil(t, result.Err())
}

func TestRunStructuralErrors(t *testing.T) {
	_, err := Run([]byte(`{"pages": [`))
	assert.NotNil(t, err)

	result, err := Run([]byte(`{"pages": [{"blocks": [{"id": "b1"}]}], "rules": [{"pageId": "p1"}]}`))
	assert.Nil(t, err)
	assert.False(t, result.Valid())
	assert.NotNil(t, result.Err())

	result, err = Run([]byte(`{"name": "no pages"}`))
	assert.Nil(t, err)
	assert.False(t, result.Valid())
}

func TestRunSemanticErrors(t *testing.T) {
	result, err := Run([]byte(`{
	  "pages": [
	    {"id": "p1", "blocks": [
	      {"id": "q1", "type": "text_input", "validations": {"pattern": "([a-z"}},
	      {"id": "q1", "type": "text_input"}
	    ]},
	    {"id": "p1", "blocks": []}
	  ],
	  "rules": [
	    {"pageId": "ghost", "actions": []},
	    {"pageId": "p1", "actions": [
	      {"type": "jump", "condition": {"op": "expr", "expr": "values.q1 =="}, "details": {"target": "p9"}}
	    ]},
	    {"pageId": "p1", "actions": []}
	  ]
	}`))
	assert.Nil(t, err)
	text := messages(result.Errors)
	assert.Contains(t, text, `duplicate block id "q1"`)
	assert.Contains(t, text, `duplicate page id "p1"`)
	assert.Contains(t, text, "invalid pattern")
	assert.Contains(t, text, `rule set for unknown page "ghost"`)
	assert.Contains(t, text, `duplicate rule set for page "p1"`)
	assert.Contains(t, text, "invalid expression")
	assert.Contains(t, messages(result.Warnings), `jump to unknown page "p9"`)
}

func TestCheckWarnings(t *testing.T) {
	schema := &types.Schema{
		Pages: []types.Page{{ID: "p1", Blocks: []types.Block{
			{ID: "c", Type: types.MultipleChoice},
			{ID: "s", Type: types.Slider, Properties: map[string]any{"min": 10, "max": 1}},
			{ID: "x", Type: "carousel", Properties: map[string]any{"text": "{{var:nope}} {{block:gone}}"}},
		}}},
		Rules: []types.RuleSet{{PageID: "p1", Actions: []types.Action{
			{Type: types.ActionHide, Details: types.Details{Target: types.Operand{Type: types.OperandVariable, Value: "c"}}},
			{Type: types.ActionHide, Details: types.Details{Target: types.Operand{Type: types.OperandBlock, Value: "zz"}}},
			{Type: types.ActionAdd, Details: types.Details{Target: types.Operand{Type: types.OperandBlock, Value: "c"}}},
			{Type: "teleport"},
			{Type: types.ActionSet, Condition: &types.Condition{Op: types.OpEq, Vars: []types.Operand{{Type: types.OperandBlock, Value: "missing"}}},
				Details: types.Details{Target: types.Operand{Type: types.OperandVariable, Value: "v"}, Value: &types.Operand{Type: types.OperandConstant, Value: 1}}},
			{Type: types.ActionJump, Condition: &types.Condition{Op: "xor"}, Details: types.Details{Target: types.Operand{Type: types.OperandPage, Value: "p1"}}},
		}}},
	}
	result := Check(schema)
	assert.True(t, result.Valid(), messages(result.Errors))
	text := messages(result.Warnings)
	for _, want := range []string{
		"multiple_choice block has no choices",
		"slider max 1 is below min 10",
		`unknown block type "carousel"`,
		`unknown variable "nope"`,
		`unknown block "gone"`,
		`hide target must be a block, got "variable"`,
		`hide of unknown block "zz"`,
		`add target must be a variable, got "block"`,
		"add has no value",
		`unknown action type "teleport"`,
		"eq needs two operands",
		`unknown block "missing"`,
		`unknown condition op "xor"`,
	} {
		assert.Contains(t, text, want)
	}

	assert.False(t, Check(nil).Valid())
}
