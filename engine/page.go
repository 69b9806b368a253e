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

// BuildPage assembles the view of page: hidden blocks are dropped, templates in the remaining
// blocks are resolved with the variables produced by rules, and values are restricted to the
// visible blocks. carried becomes the view's errors; nil gives an empty error map.
func BuildPage(page *types.Page, state *types.State, rules types.RuleResult, carried types.ErrorMap) *types.PageView {
	view := &types.PageView{
		Blocks: []types.Block{},
		Values: map[string]any{},
		Errors: types.ErrorMap{},
	}
	if carried != nil {
		view.Errors = carried
	}
	if page == nil {
		return view
	}
	view.ID = page.ID
	view.Title = page.Title

	display := &types.State{}
	if state != nil {
		display.Variables = state.Variables
		display.Values = state.Values
	}
	if rules.Variables != nil {
		display.Variables = rules.Variables
	}

	inputs := 0
	singleChoiceInputs := 0
	for _, block := range page.Blocks {
		if rules.Hidden(block.ID) {
			continue
		}
		view.Blocks = append(view.Blocks, resolveBlock(block, display))
		if display.Values != nil {
			if v, ok := display.Values[block.ID]; ok {
				view.Values[block.ID] = v
			}
		}
		if !block.Type.IsInput() {
			continue
		}
		inputs++
		if isSingleChoice(block) {
			singleChoiceInputs++
		}
	}
	view.AutoAdvance = inputs > 0 && inputs == singleChoiceInputs
	return view
}

// isSingleChoice reports whether answering block is a single click: a dropdown or a
// multiple_choice whose multiple property is falsy.
func isSingleChoice(block types.Block) bool {
	switch block.Type {
	case types.Dropdown:
		return true
	case types.MultipleChoice:
		return !cast.IsTruthy(block.Properties["multiple"])
	default:
		return false
	}
}
