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
	"github.com/funnelgo/funnel/api/types"
	"github.com/funnelgo/funnel/utils/cast"
)

// EvaluatePageRules runs the rule set registered for pageID against state and returns the
// jump target, the hidden block ids and the resulting variable table.
//
// Actions run in declaration order. Each condition sees the variables as mutated by the
// actions before it. state itself is never modified.
func EvaluatePageRules(pageID string, schema *types.Schema, state *types.State) types.RuleResult {
	working := types.State{}
	if state != nil {
		working.Variables = types.CopyTable(state.Variables)
		working.Values = state.Values
	} else {
		working.Variables = map[string]any{}
	}
	result := types.RuleResult{
		HiddenBlockIDs: map[string]struct{}{},
		Variables:      working.Variables,
	}
	if schema == nil {
		return result
	}
	ruleSet := schema.RuleSet(pageID)
	if ruleSet == nil {
		return result
	}
	for i := range ruleSet.Actions {
		action := &ruleSet.Actions[i]
		if !EvaluateCondition(action.Condition, &working) {
			continue
		}
		switch action.Type {
		case types.ActionJump:
			if target := action.Details.Target.Name(); target != "" {
				result.JumpTo = target
			}
		case types.ActionHide:
			if action.Details.Target.Type != types.OperandBlock {
				continue
			}
			if id := action.Details.Target.Name(); id != "" {
				result.HiddenBlockIDs[id] = struct{}{}
			}
		default:
			if action.Type.IsArithmetic() {
				applyArithmetic(action, working.Variables)
			}
		}
	}
	return result
}

// applyArithmetic mutates vars for add, subtract, multiply, divide and set actions.
// Only variable targets with a value operand are touched.
func applyArithmetic(action *types.Action, vars map[string]any) {
	target := action.Details.Target
	operand := action.Details.Value
	if target.Type != types.OperandVariable || operand == nil {
		return
	}
	name := target.Name()
	if name == "" {
		return
	}
	var raw any
	if operand.Type == types.OperandVariable {
		raw = vars[operand.Name()]
	} else {
		if operand.Value == nil {
			return
		}
		raw = operand.Value
	}
	if action.Type == types.ActionSet {
		if operand.Type == types.OperandVariable {
			vars[name] = cast.ToNumberOrZero(raw)
		} else {
			// literals are assigned as written so string variables can be set
			vars[name] = raw
		}
		return
	}
	a := cast.ToNumberOrZero(vars[name])
	b := cast.ToNumberOrZero(raw)
	switch action.Type {
	case types.ActionAdd:
		vars[name] = a + b
	case types.ActionSubtract:
		vars[name] = a - b
	case types.ActionMultiply:
		vars[name] = a * b
	case types.ActionDivide:
		if b != 0 {
			vars[name] = a / b
		}
	}
}
