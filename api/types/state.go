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

package types

// HistoryEntry is pushed by Next before it mutates state and popped by Prev.
// Variables is the variable table as it was before the page's rules ran.
type HistoryEntry struct {
	PageIndex int            `json:"pageIndex"`
	Variables map[string]any `json:"variables"`
}

// State is the mutable runtime state of one flow session.
type State struct {
	CurrentPageIndex int            `json:"currentPageIndex"`
	Variables        map[string]any `json:"variables"`
	Values           map[string]any `json:"values"`
	History          []HistoryEntry `json:"history"`
	Completed        bool           `json:"completed"`
}

// Copy returns a copy of the state that shares no maps or slices with s.
func (s State) Copy() State {
	c := State{
		CurrentPageIndex: s.CurrentPageIndex,
		Variables:        CopyTable(s.Variables),
		Values:           CopyTable(s.Values),
		Completed:        s.Completed,
	}
	if len(s.History) > 0 {
		c.History = make([]HistoryEntry, len(s.History))
		for i, h := range s.History {
			c.History[i] = HistoryEntry{PageIndex: h.PageIndex, Variables: CopyTable(h.Variables)}
		}
	}
	return c
}

// CopyTable copies a variable or value table. Slice values are copied too, so the
// copy can be handed out without exposing the owner's answers to mutation.
func CopyTable(m map[string]any) map[string]any {
	c := make(map[string]any, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case []any:
			c[k] = append([]any(nil), t...)
		case []string:
			c[k] = append([]string(nil), t...)
		default:
			c[k] = v
		}
	}
	return c
}

// ErrorMap maps a block id to its first failing validation message.
type ErrorMap map[string]string

// Copy returns a copy of the map, never nil.
func (e ErrorMap) Copy() ErrorMap {
	c := make(ErrorMap, len(e))
	for k, v := range e {
		c[k] = v
	}
	return c
}

// RuleResult is the outcome of evaluating one page's rule set.
type RuleResult struct {
	// JumpTo is the destination page id, empty when no jump fired.
	JumpTo         string
	HiddenBlockIDs map[string]struct{}
	Variables      map[string]any
}

// Hidden reports whether the block was hidden by a rule.
func (r RuleResult) Hidden(blockID string) bool {
	_, ok := r.HiddenBlockIDs[blockID]
	return ok
}

// PageView is what the presentation layer renders.
type PageView struct {
	ID          string         `json:"id"`
	Title       string         `json:"title,omitempty"`
	Index       int            `json:"index"`
	Blocks      []Block        `json:"blocks"`
	Values      map[string]any `json:"values"`
	Errors      ErrorMap       `json:"errors"`
	AutoAdvance bool           `json:"autoAdvance"`
}
