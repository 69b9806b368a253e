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

// Package engine is the flow runtime: it evaluates conditions and page rules, resolves
// templates, builds page views, validates answers and drives navigation between pages.
//
// Every function in this package is tolerant: malformed schemas and references degrade to
// no-ops or false conditions, never to panics or errors.
package engine

import (
	"math"

	"github.com/funnelgo/funnel/api/types"
	"github.com/funnelgo/funnel/utils/cast"
	"github.com/funnelgo/funnel/utils/el"
)

// EvaluateCondition evaluates cond against state. A nil condition is true.
func EvaluateCondition(cond *types.Condition, state *types.State) bool {
	if cond == nil {
		return true
	}
	switch cond.Op {
	case types.OpAlways:
		return true
	case types.OpAnd:
		for i := range cond.Conditions {
			if !EvaluateCondition(&cond.Conditions[i], state) {
				return false
			}
		}
		return true
	case types.OpOr:
		for i := range cond.Conditions {
			if EvaluateCondition(&cond.Conditions[i], state) {
				return true
			}
		}
		return false
	case types.OpEq, types.OpNeq, types.OpLt, types.OpLte, types.OpGt, types.OpGte:
		if len(cond.Vars) < 2 {
			return false
		}
		return compare(cond.Op, resolveOperand(cond.Vars[0], state), resolveOperand(cond.Vars[1], state))
	case types.OpExpr:
		ok, err := el.EvalBool(cond.Expr, exprEnv(state))
		return err == nil && ok
	default:
		return false
	}
}

func resolveOperand(operand types.Operand, state *types.State) any {
	switch operand.Type {
	case types.OperandConstant:
		return operand.Value
	case types.OperandVariable:
		if state == nil {
			return nil
		}
		return state.Variables[operand.Name()]
	case types.OperandBlock:
		if state == nil {
			return nil
		}
		return state.Values[operand.Name()]
	default:
		return nil
	}
}

func exprEnv(state *types.State) map[string]any {
	env := map[string]any{"vars": map[string]any{}, "values": map[string]any{}}
	if state != nil {
		if state.Variables != nil {
			env["vars"] = state.Variables
		}
		if state.Values != nil {
			env["values"] = state.Values
		}
	}
	return env
}

func compare(op types.Op, a, b any) bool {
	if op == types.OpEq || op == types.OpNeq {
		if items, ok := cast.ToSlice(a); ok {
			return contains(items, b) == (op == types.OpEq)
		}
		if items, ok := cast.ToSlice(b); ok {
			return contains(items, a) == (op == types.OpEq)
		}
	}
	x, y := normalize(a), normalize(b)
	xf, xNum := x.(float64)
	yf, yNum := y.(float64)
	if xNum && yNum {
		switch op {
		case types.OpEq:
			return xf == yf
		case types.OpNeq:
			return xf != yf
		case types.OpLt:
			return xf < yf
		case types.OpLte:
			return xf <= yf
		case types.OpGt:
			return xf > yf
		case types.OpGte:
			return xf >= yf
		}
		return false
	}
	xs, xStr := x.(string)
	ys, yStr := y.(string)
	if xStr && yStr {
		switch op {
		case types.OpEq:
			return xs == ys
		case types.OpNeq:
			return xs != ys
		case types.OpLt:
			return xs < ys
		case types.OpLte:
			return xs <= ys
		case types.OpGt:
			return xs > ys
		case types.OpGte:
			return xs >= ys
		}
		return false
	}
	// a number never equals a string and is never ordered against one
	return op == types.OpNeq
}

// contains reports whether the normalised needle equals any normalised element.
func contains(items []any, needle any) bool {
	for _, item := range items {
		if compare(types.OpEq, scalar(item), scalar(needle)) {
			return true
		}
	}
	return false
}

// scalar flattens nested slices so membership never recurses into another membership test.
func scalar(v any) any {
	if items, ok := cast.ToSlice(v); ok {
		return cast.Join(items, ",")
	}
	return v
}

// normalize reduces a value to a float64 or a string.
func normalize(v any) any {
	if v == nil {
		return ""
	}
	if f, ok := cast.IsNumber(v); ok {
		return f
	}
	if items, ok := cast.ToSlice(v); ok {
		return cast.Join(items, ",")
	}
	if f := cast.ToNumber(v); !math.IsNaN(f) {
		return f
	}
	return cast.ToJSString(v)
}
