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
	"context"
	"errors"
	"time"

	"github.com/funnelgo/funnel/api/types"
	"github.com/funnelgo/funnel/utils/json"
)

// Navigator drives one respondent through a flow. It owns the runtime state and the current
// page view. A Navigator is not safe for concurrent use.
type Navigator struct {
	schema *types.Schema
	config types.Config
	state  types.State
	view   *types.PageView
}

// New creates a navigator positioned on the first page of schema. Variables are seeded from the
// schema and values are restored from the configured store.
func New(schema *types.Schema, opts ...types.Option) *Navigator {
	n := newNavigator(schema, opts...)
	n.restoreValues()
	n.enterPage()
	n.emit(types.Event{Type: types.EventSessionStarted})
	n.emitPageEntered(types.Forward)
	return n
}

// Resume creates a navigator from a previously exported state without contacting the store
// or emitting events.
func Resume(schema *types.Schema, state types.State, opts ...types.Option) *Navigator {
	n := newNavigator(schema, opts...)
	n.Restore(state)
	return n
}

func newNavigator(schema *types.Schema, opts ...types.Option) *Navigator {
	if schema == nil {
		schema = &types.Schema{}
	}
	config := types.NewConfig(opts...)
	if config.Logger == nil {
		config.Logger = types.DiscardLogger()
	}
	if config.PersistTimeout <= 0 {
		config.PersistTimeout = types.DefaultPersistTimeout
	}
	if config.FlowID == "" {
		config.FlowID = schema.ID
	}
	return &Navigator{
		schema: schema,
		config: config,
		state: types.State{
			Variables: types.CopyTable(schema.Variables),
			Values:    map[string]any{},
		},
	}
}

// SetValue records the answer for blockID, re-runs the current page's rules and rebuilds the
// view. When the page auto-advances, Next is called.
func (n *Navigator) SetValue(blockID string, value any) {
	n.state.Values[blockID] = value
	n.persist()

	carried := types.ErrorMap{}
	if n.view != nil {
		carried = n.view.Errors.Copy()
		delete(carried, blockID)
	}
	page := n.currentPage()
	if page != nil {
		rules := EvaluatePageRules(page.ID, n.schema, &n.state)
		n.state.Variables = rules.Variables
		n.view = n.buildView(page, rules, carried)
	} else {
		n.view.Errors = carried
	}
	n.emit(types.Event{Type: types.EventValueChanged, BlockID: blockID})

	if n.view.AutoAdvance {
		n.Next()
	}
}

// Next validates the current page and moves to the page chosen by its rules: the jump target
// when it names an existing page, otherwise the following page. On the last page the flow is
// completed instead.
func (n *Navigator) Next() {
	page := n.currentPage()
	if page == nil {
		return
	}
	if errs := ValidatePage(page, &n.state); len(errs) > 0 {
		n.view.Errors = errs
		n.emit(types.Event{Type: types.EventValidationFailed, Errors: errs.Copy()})
		return
	}

	rules := EvaluatePageRules(page.ID, n.schema, &n.state)
	dest := -1
	if rules.JumpTo != "" {
		dest = n.schema.PageIndex(rules.JumpTo)
	}
	if dest < 0 {
		if n.state.CurrentPageIndex >= len(n.schema.Pages)-1 {
			n.complete(rules)
			return
		}
		dest = n.state.CurrentPageIndex + 1
	}

	n.state.History = append(n.state.History, types.HistoryEntry{
		PageIndex: n.state.CurrentPageIndex,
		Variables: n.state.Variables,
	})
	n.state.Variables = rules.Variables
	n.state.CurrentPageIndex = dest
	n.enterPage()
	n.emitPageEntered(types.Forward)
}

// Prev returns to the page the last Next left, restoring the variables it had then. Going
// back reopens a completed flow, so finishing it again emits flow_completed again.
func (n *Navigator) Prev() {
	if len(n.state.History) == 0 {
		return
	}
	last := len(n.state.History) - 1
	entry := n.state.History[last]
	n.state.History = n.state.History[:last]
	n.state.Completed = false
	n.state.CurrentPageIndex = entry.PageIndex
	n.state.Variables = types.CopyTable(entry.Variables)
	n.enterPage()
	n.emitPageEntered(types.Back)
}

// Restore replaces the runtime state with a previously exported one and rebuilds the view.
func (n *Navigator) Restore(state types.State) {
	s := state.Copy()
	if s.Variables == nil {
		s.Variables = map[string]any{}
	}
	if s.Values == nil {
		s.Values = map[string]any{}
	}
	if s.CurrentPageIndex < 0 || s.CurrentPageIndex >= len(n.schema.Pages) {
		s.CurrentPageIndex = 0
	}
	n.state = s
	n.enterPage()
}

// Page returns the current page view.
func (n *Navigator) Page() *types.PageView {
	v := *n.view
	v.Errors = n.view.Errors.Copy()
	return &v
}

// State returns a deep copy of the runtime state.
func (n *Navigator) State() types.State {
	return n.state.Copy()
}

func (n *Navigator) Schema() *types.Schema {
	return n.schema
}

func (n *Navigator) InstanceID() string {
	return n.config.InstanceID
}

// Completed reports whether the respondent has finished the last page.
func (n *Navigator) Completed() bool {
	return n.state.Completed
}

func (n *Navigator) currentPage() *types.Page {
	return n.schema.Page(n.state.CurrentPageIndex)
}

// enterPage evaluates the current page's rules for display only and rebuilds the view.
// Variables produced by this pass are not adopted.
func (n *Navigator) enterPage() {
	page := n.currentPage()
	var rules types.RuleResult
	if page != nil {
		rules = EvaluatePageRules(page.ID, n.schema, &n.state)
	}
	n.view = n.buildView(page, rules, nil)
}

func (n *Navigator) buildView(page *types.Page, rules types.RuleResult, carried types.ErrorMap) *types.PageView {
	view := BuildPage(page, &n.state, rules, carried)
	view.Index = n.state.CurrentPageIndex
	return view
}

func (n *Navigator) complete(rules types.RuleResult) {
	n.view.Errors = types.ErrorMap{}
	if n.state.Completed {
		return
	}
	n.state.Completed = true
	n.emit(types.Event{
		Type:      types.EventFlowCompleted,
		Values:    types.CopyTable(n.state.Values),
		Variables: types.CopyTable(rules.Variables),
	})
}

func (n *Navigator) persist() {
	store := n.config.Store
	if store == nil || n.config.InstanceID == "" {
		return
	}
	data, err := json.Marshal(n.state.Values)
	if err != nil {
		n.config.Logger.Printf("flow %s instance %s: encode values error: %v", n.config.FlowID, n.config.InstanceID, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), n.config.PersistTimeout)
	defer cancel()
	if err := store.Save(ctx, n.config.InstanceID, data); err != nil {
		n.config.Logger.Printf("flow %s instance %s: save values error: %v", n.config.FlowID, n.config.InstanceID, err)
	}
}

func (n *Navigator) restoreValues() {
	store := n.config.Store
	if store == nil || n.config.InstanceID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), n.config.PersistTimeout)
	defer cancel()
	data, err := store.Load(ctx, n.config.InstanceID)
	if err != nil {
		if !errors.Is(err, types.ErrValuesNotFound) {
			n.config.Logger.Printf("flow %s instance %s: load values error: %v", n.config.FlowID, n.config.InstanceID, err)
		}
		return
	}
	var values map[string]any
	if err := json.Unmarshal(data, &values); err != nil {
		n.config.Logger.Printf("flow %s instance %s: discard corrupt values: %v", n.config.FlowID, n.config.InstanceID, err)
		return
	}
	for k, v := range values {
		n.state.Values[k] = v
	}
}

func (n *Navigator) emitPageEntered(direction types.Direction) {
	n.emit(types.Event{Type: types.EventPageEntered, Direction: direction})
}

func (n *Navigator) emit(event types.Event) {
	sink := n.config.EventSink
	if sink == nil {
		return
	}
	event.FlowID = n.config.FlowID
	event.SessionID = n.config.SessionID
	event.InstanceID = n.config.InstanceID
	event.PageIndex = n.state.CurrentPageIndex
	if page := n.currentPage(); page != nil {
		event.PageID = page.ID
	}
	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	if err := sink.OnEvent(event); err != nil {
		n.config.Logger.Printf("flow %s session %s: event %s error: %v", n.config.FlowID, n.config.SessionID, event.Type, err)
	}
}
