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
	"testing"

	"github.com/funnelgo/funnel/api/types"
	"github.com/stretchr/testify/assert"
)

func constant(v any) types.Operand {
	return types.Operand{Type: types.OperandConstant, Value: v}
}

func variable(name string) types.Operand {
	return types.Operand{Type: types.OperandVariable, Value: name}
}

func block(id string) types.Operand {
	return types.Operand{Type: types.OperandBlock, Value: id}
}

func cmp(op types.Op, a, b types.Operand) *types.Condition {
	return &types.Condition{Op: op, Vars: []types.Operand{a, b}}
}

func TestEvaluateConditionLogic(t *testing.T) {
	state := &types.State{Variables: map[string]any{"score": 4}, Values: map[string]any{}}
	yes := types.Condition{Op: types.OpAlways}
	no := *cmp(types.OpEq, constant(1), constant(2))

	assert.True(t, EvaluateCondition(nil, state))
	assert.True(t, EvaluateCondition(&yes, state))
	assert.True(t, EvaluateCondition(&types.Condition{Op: types.OpAnd}, state))
	assert.False(t, EvaluateCondition(&types.Condition{Op: types.OpOr}, state))
	assert.True(t, EvaluateCondition(&types.Condition{Op: types.OpAnd, Conditions: []types.Condition{yes, yes}}, state))
	assert.False(t, EvaluateCondition(&types.Condition{Op: types.OpAnd, Conditions: []types.Condition{yes, no}}, state))
	assert.True(t, EvaluateCondition(&types.Condition{Op: types.OpOr, Conditions: []types.Condition{no, yes}}, state))
	assert.False(t, EvaluateCondition(&types.Condition{Op: types.OpOr, Conditions: []types.Condition{no, no}}, state))
	assert.False(t, EvaluateCondition(&types.Condition{Op: "between"}, state))
	assert.False(t, EvaluateCondition(&types.Condition{Op: types.OpEq, Vars: []types.Operand{constant(1)}}, state))
	assert.False(t, EvaluateCondition(&types.Condition{Op: types.OpEq}, nil))
}

func TestEvaluateConditionCompare(t *testing.T) {
	state := &types.State{
		Variables: map[string]any{"score": 4, "label": "gold"},
		Values: map[string]any{
			"age":    "30",
			"name":   "Ada",
			"choice": []any{"a", "b", "c"},
			"nums":   []any{1.0, 2.0},
			"blank":  "",
		},
	}
	tests := []struct {
		name string
		cond *types.Condition
		want bool
	}{
		{"numeric eq", cmp(types.OpEq, variable("score"), constant(4)), true},
		{"numeric string coerced", cmp(types.OpGt, block("age"), constant(18)), true},
		{"numeric lte", cmp(types.OpLte, block("age"), constant("30")), true},
		{"lexical lt", cmp(types.OpLt, block("name"), constant("Bob")), true},
		{"lexical eq", cmp(types.OpEq, variable("label"), constant("gold")), true},
		{"mixed eq", cmp(types.OpEq, block("name"), constant(3)), false},
		{"mixed neq", cmp(types.OpNeq, block("name"), constant(3)), true},
		{"mixed ordering", cmp(types.OpGt, block("name"), constant(3)), false},
		{"missing never equals a coerced constant", cmp(types.OpEq, block("nope"), constant("")), false},
		{"missing vs zero", cmp(types.OpEq, block("blank"), constant(0)), true},
		{"array membership", cmp(types.OpEq, block("choice"), constant("b")), true},
		{"array membership right side", cmp(types.OpEq, constant("c"), block("choice")), true},
		{"array non membership", cmp(types.OpNeq, block("choice"), constant("z")), true},
		{"array membership negated", cmp(types.OpNeq, block("choice"), constant("a")), false},
		{"array membership numeric", cmp(types.OpEq, block("nums"), constant("2")), true},
		{"array ordering joins", cmp(types.OpEq, block("choice"), constant("a,b,c")), false},
		{"array lt uses joined string", cmp(types.OpLt, block("choice"), constant("b")), true},
		{"bool coerced", cmp(types.OpEq, constant(true), constant(1)), true},
		{"page operand resolves to nothing", cmp(types.OpNeq, types.Operand{Type: types.OperandPage, Value: "p1"}, constant("p1")), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluateCondition(tt.cond, state))
		})
	}
}

func TestEvaluateConditionExpr(t *testing.T) {
	state := &types.State{
		Variables: map[string]any{"score": 7},
		Values:    map[string]any{"color": "blue"},
	}
	assert.True(t, EvaluateCondition(&types.Condition{Op: types.OpExpr, Expr: "vars.score > 3 && values.color == 'blue'"}, state))
	assert.False(t, EvaluateCondition(&types.Condition{Op: types.OpExpr, Expr: "values.color == 'red'"}, state))
	assert.False(t, EvaluateCondition(&types.Condition{Op: types.OpExpr, Expr: "vars.score >"}, state))
	assert.False(t, EvaluateCondition(&types.Condition{Op: types.OpExpr}, state))
	assert.True(t, EvaluateCondition(&types.Condition{Op: types.OpExpr, Expr: "values.missing == nil"}, nil))
}
