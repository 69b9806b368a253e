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
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/funnelgo/funnel/api/types"
	"github.com/stretchr/testify/assert"
)

const colorFlow = `{
  "id": "colors",
  "variables": {"score": 0},
  "pages": [
    {"id": "start", "blocks": [
      {"id": "color", "type": "multiple_choice", "properties": {
        "label": "Pick one",
        "choices": [{"id": "c1", "label": "Red", "value": "red"}, {"id": "c2", "label": "Blue", "value": "blue"}]
      }}
    ]},
    {"id": "red-page", "blocks": [{"id": "h1", "type": "heading", "properties": {"text": "Red it is"}}]},
    {"id": "blue-page", "blocks": [{"id": "h2", "type": "heading", "properties": {"text": "Score {{var:score}}"}}]}
  ],
  "rules": [
    {"pageId": "start", "actions": [
      {"type": "add", "condition": {"op": "always"},
       "details": {"target": {"type": "variable", "value": "score"}, "value": {"type": "constant", "value": 3}}},
      {"type": "jump",
       "condition": {"op": "eq", "vars": [{"type": "block", "value": "color"}, {"type": "constant", "value": "blue"}]},
       "details": {"target": {"type": "page", "value": "blue-page"}}}
    ]}
  ]
}`

const formFlow = `{
  "id": "form",
  "variables": {"visits": 0},
  "pages": [
    {"id": "p1", "blocks": [
      {"id": "name", "type": "text_input", "validations": {"required": true, "minLength": 2}},
      {"id": "hint", "type": "paragraph", "properties": {"text": "Visits {{var:visits}}"}}
    ]},
    {"id": "p2", "blocks": [
      {"id": "plan", "type": "multiple_choice", "properties": {"multiple": true}},
      {"id": "secret", "type": "text_input"}
    ]}
  ],
  "rules": [
    {"pageId": "p1", "actions": [
      {"type": "add", "details": {"target": {"type": "variable", "value": "visits"}, "value": {"type": "constant", "value": 1}}}
    ]},
    {"pageId": "p2", "actions": [
      {"type": "hide", "condition": {"op": "neq", "vars": [{"type": "block", "value": "name"}, {"type": "constant", "value": "admin"}]},
       "details": {"target": {"type": "block", "value": "secret"}}},
      {"type": "jump", "details": {"target": {"type": "page", "value": "nowhere"}}}
    ]}
  ]
}`

func loadSchema(t *testing.T, def string) *types.Schema {
	var schema types.Schema
	if err := json.Unmarshal([]byte(def), &schema); err != nil {
		t.Fatal(err)
	}
	return &schema
}

type recorder struct {
	mu     sync.Mutex
	events []types.Event
}

func (r *recorder) OnEvent(event types.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) kinds() []types.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []types.EventType
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *recorder) last() types.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type mapStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	saveErr error
	saves   int
}

func newMapStore() *mapStore {
	return &mapStore{data: map[string][]byte{}}
}

func (s *mapStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.data[key]; ok {
		return b, nil
	}
	return nil, types.ErrValuesNotFound
}

func (s *mapStore) Save(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.data[key] = data
	return nil
}

func (s *mapStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *mapStore) Close() error {
	return nil
}

func TestNavigatorJumpScenario(t *testing.T) {
	events := &recorder{}
	nav := New(loadSchema(t, colorFlow), types.WithEventSink(events), types.WithLogger(types.DiscardLogger()))

	assert.Equal(t, "start", nav.Page().ID)
	assert.True(t, nav.Page().AutoAdvance)
	assert.Equal(t, "Pick one", nav.Page().Blocks[0].Properties["label"])

	nav.SetValue("color", "blue")

	assert.Equal(t, "blue-page", nav.Page().ID)
	assert.Equal(t, 2, nav.Page().Index)
	// SetValue and the chained Next each adopt the start page's rules
	assert.Equal(t, "Score 6", nav.Page().Blocks[0].Properties["text"])
	assert.Equal(t, 6.0, nav.State().Variables["score"])
	assert.Equal(t, []types.EventType{
		types.EventSessionStarted,
		types.EventPageEntered,
		types.EventValueChanged,
		types.EventPageEntered,
	}, events.kinds())
	assert.Equal(t, "blue-page", events.last().PageID)
	assert.Equal(t, "colors", events.last().FlowID)
}

func TestNavigatorSequentialWithoutJump(t *testing.T) {
	nav := New(loadSchema(t, colorFlow), types.WithLogger(types.DiscardLogger()))
	nav.SetValue("color", "red")
	assert.Equal(t, "red-page", nav.Page().ID)
	assert.Equal(t, 1, len(nav.State().History))
}

func TestNavigatorBackNavigationRestoresVariables(t *testing.T) {
	nav := New(loadSchema(t, formFlow), types.WithLogger(types.DiscardLogger()))
	before := nav.State().Variables

	nav.SetValue("name", "Grace")
	nav.Next()
	assert.Equal(t, 1, nav.State().CurrentPageIndex)
	assert.Equal(t, 2.0, nav.State().Variables["visits"])

	nav.Prev()
	assert.Equal(t, 0, nav.State().CurrentPageIndex)
	assert.Equal(t, 0, len(nav.State().History))
	// SetValue on p1 adopted visits=1 before Next ran, and that is the snapshot Next pushed
	assert.Equal(t, 1.0, nav.State().Variables["visits"])
	// the display pass on re-entry shows the page rules applied once more, without adopting them
	assert.Equal(t, "Visits 2", nav.Page().Blocks[1].Properties["text"])

	nav.Prev()
	assert.Equal(t, 0, nav.State().CurrentPageIndex)
	assert.Equal(t, map[string]any{"visits": 0.0}, before)
}

func TestNavigatorPrevRestoresExactSnapshot(t *testing.T) {
	schema := loadSchema(t, formFlow)
	nav := New(schema, types.WithLogger(types.DiscardLogger()))
	nav.Restore(types.State{Values: map[string]any{"name": "Grace"}, Variables: map[string]any{"visits": 7}})

	snapshot := nav.State().Variables
	nav.Next()
	assert.Equal(t, 8.0, nav.State().Variables["visits"])
	nav.Prev()
	assert.Equal(t, snapshot, nav.State().Variables)
	assert.Equal(t, 0, nav.State().CurrentPageIndex)
}

func TestNavigatorValidation(t *testing.T) {
	events := &recorder{}
	nav := New(loadSchema(t, formFlow), types.WithEventSink(events), types.WithLogger(types.DiscardLogger()))

	nav.Next()
	assert.Equal(t, 0, nav.State().CurrentPageIndex)
	assert.Equal(t, types.ErrorMap{"name": "Required"}, nav.Page().Errors)
	assert.Equal(t, types.EventValidationFailed, events.last().Type)
	assert.Equal(t, types.ErrorMap{"name": "Required"}, events.last().Errors)
	assert.Equal(t, 0, len(nav.State().History))

	// editing a field clears its error without revalidating
	nav.SetValue("name", "G")
	assert.Equal(t, 0, len(nav.Page().Errors))

	nav.Next()
	assert.Equal(t, types.ErrorMap{"name": "Must be at least 2 characters"}, nav.Page().Errors)
}

func TestNavigatorHideAndUnknownJump(t *testing.T) {
	nav := New(loadSchema(t, formFlow), types.WithLogger(types.DiscardLogger()))
	nav.SetValue("name", "Grace")
	nav.Next()

	view := nav.Page()
	assert.Equal(t, "p2", view.ID)
	assert.Equal(t, 1, len(view.Blocks))
	assert.Equal(t, "plan", view.Blocks[0].ID)
	assert.False(t, view.AutoAdvance)

	// multi-select does not auto-advance
	nav.SetValue("secret", "x")
	nav.SetValue("plan", []any{"a"})
	assert.Equal(t, "p2", nav.Page().ID)
	_, visible := nav.Page().Values["secret"]
	assert.False(t, visible)
}

func TestNavigatorCompletion(t *testing.T) {
	events := &recorder{}
	nav := New(loadSchema(t, formFlow), types.WithEventSink(events), types.WithLogger(types.DiscardLogger()))
	nav.SetValue("name", "Grace")
	nav.Next()
	history := len(nav.State().History)

	// the jump to an unknown page falls back to sequential order, which ends the flow
	nav.Next()
	assert.True(t, nav.Completed())
	assert.Equal(t, 1, nav.State().CurrentPageIndex)
	assert.Equal(t, history, len(nav.State().History))
	completed := events.last()
	assert.Equal(t, types.EventFlowCompleted, completed.Type)
	assert.Equal(t, "Grace", completed.Values["name"])

	count := len(events.kinds())
	nav.Next()
	assert.Equal(t, count, len(events.kinds()))
}

func TestNavigatorPrevReopensCompletedFlow(t *testing.T) {
	events := &recorder{}
	nav := New(loadSchema(t, formFlow), types.WithEventSink(events), types.WithLogger(types.DiscardLogger()))
	nav.SetValue("name", "Grace")
	nav.Next()
	nav.Next()
	assert.True(t, nav.Completed())

	nav.Prev()
	assert.False(t, nav.Completed())
	assert.False(t, nav.State().Completed)
	assert.Equal(t, 0, nav.State().CurrentPageIndex)

	nav.SetValue("name", "Hopper")
	nav.Next()
	nav.Next()
	assert.True(t, nav.Completed())
	var finished []types.Event
	for _, e := range events.events {
		if e.Type == types.EventFlowCompleted {
			finished = append(finished, e)
		}
	}
	assert.Equal(t, 2, len(finished))
	assert.Equal(t, "Grace", finished[0].Values["name"])
	assert.Equal(t, "Hopper", finished[1].Values["name"])
}

func TestNavigatorPersistence(t *testing.T) {
	store := newMapStore()
	schema := loadSchema(t, formFlow)

	nav := New(schema, types.WithStore(store), types.WithInstanceID("i-1"), types.WithLogger(types.DiscardLogger()))
	nav.SetValue("name", "Grace")
	assert.Equal(t, `{"name":"Grace"}`, string(store.data["i-1"]))

	restored := New(schema, types.WithStore(store), types.WithInstanceID("i-1"), types.WithLogger(types.DiscardLogger()))
	assert.Equal(t, "Grace", restored.State().Values["name"])
	assert.Equal(t, "Grace", restored.Page().Values["name"])
	assert.Equal(t, "i-1", restored.InstanceID())

	fresh := New(schema, types.WithStore(store), types.WithInstanceID("i-2"), types.WithLogger(types.DiscardLogger()))
	assert.Equal(t, 0, len(fresh.State().Values))

	nav.SetValue("name", "Tom & <Jerry>")
	assert.Equal(t, `{"name":"Tom & <Jerry>"}`, string(store.data["i-1"]))

	// no instance id means no persistence
	saves := store.saves
	New(schema, types.WithStore(store), types.WithLogger(types.DiscardLogger())).SetValue("name", "x")
	assert.Equal(t, saves, store.saves)
}

func TestNavigatorToleratesStoreFailures(t *testing.T) {
	store := newMapStore()
	store.data["bad"] = []byte("{not json")
	schema := loadSchema(t, formFlow)

	nav := New(schema, types.WithStore(store), types.WithInstanceID("bad"), types.WithLogger(types.DiscardLogger()))
	assert.Equal(t, 0, len(nav.State().Values))

	store.saveErr = errors.New("disk full")
	nav.SetValue("name", "Grace")
	nav.Next()
	assert.Equal(t, "p2", nav.Page().ID)
}

func TestNavigatorEmptySchema(t *testing.T) {
	nav := New(&types.Schema{}, types.WithLogger(types.DiscardLogger()))
	nav.Next()
	nav.Prev()
	nav.SetValue("x", 1)
	assert.Equal(t, "", nav.Page().ID)
	assert.Equal(t, 1, nav.State().Values["x"])
	assert.False(t, nav.Completed())

	nav = New(nil)
	assert.NotNil(t, nav.Schema())
	assert.NotNil(t, nav.Page())
}

func TestNavigatorStateIsACopy(t *testing.T) {
	nav := New(loadSchema(t, formFlow), types.WithLogger(types.DiscardLogger()))
	nav.SetValue("name", "Grace")
	state := nav.State()
	state.Values["name"] = "changed"
	state.Variables["visits"] = 99
	assert.Equal(t, "Grace", nav.State().Values["name"])
	assert.Equal(t, 1.0, nav.State().Variables["visits"])

	view := nav.Page()
	view.Errors["name"] = "x"
	assert.Equal(t, 0, len(nav.Page().Errors))
}

func TestNavigatorResume(t *testing.T) {
	schema := loadSchema(t, formFlow)
	nav := New(schema, types.WithLogger(types.DiscardLogger()))
	nav.SetValue("name", "Grace")
	nav.Next()
	exported := nav.State()

	events := &recorder{}
	resumed := Resume(schema, exported, types.WithEventSink(events), types.WithLogger(types.DiscardLogger()))
	assert.Equal(t, "p2", resumed.Page().ID)
	assert.Equal(t, 1, resumed.Page().Index)
	assert.Equal(t, exported, resumed.State())
	assert.Equal(t, 0, len(events.kinds()))

	resumed.Prev()
	assert.Equal(t, "p1", resumed.Page().ID)
	assert.Equal(t, "Grace", resumed.Page().Values["name"])

	clamped := Resume(schema, types.State{CurrentPageIndex: 9}, types.WithLogger(types.DiscardLogger()))
	assert.Equal(t, 0, clamped.State().CurrentPageIndex)
	assert.NotNil(t, clamped.State().Values)
}
