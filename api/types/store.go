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

import (
	"context"
	"errors"
	"time"
)

// ErrValuesNotFound is returned by ValueStore.Load when nothing is stored under the key.
var ErrValuesNotFound = errors.New("values not found")

// ValueStore is the durable storage of answer values, keyed by flow-instance id.
// Implementations must be safe for concurrent use.
type ValueStore interface {
	// Load returns the stored document, or ErrValuesNotFound.
	Load(ctx context.Context, key string) ([]byte, error)
	// Save replaces the stored document.
	Save(ctx context.Context, key string, data []byte) error
	// Delete removes the stored document. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases any resources held by the store.
	Close() error
}

// EventType names a navigation event.
type EventType string

const (
	EventSessionStarted   EventType = "session_started"
	EventValueChanged     EventType = "value_changed"
	EventPageEntered      EventType = "page_entered"
	EventValidationFailed EventType = "validation_failed"
	EventFlowCompleted    EventType = "flow_completed"
)

// Direction of a page transition.
type Direction string

const (
	Forward Direction = "forward"
	Back    Direction = "back"
)

// Event is emitted by the navigator after each observable state change.
type Event struct {
	Type       EventType      `json:"type"`
	FlowID     string         `json:"flowId,omitempty"`
	SessionID  string         `json:"sessionId,omitempty"`
	InstanceID string         `json:"instanceId,omitempty"`
	PageID     string         `json:"pageId,omitempty"`
	PageIndex  int            `json:"pageIndex"`
	Direction  Direction      `json:"direction,omitempty"`
	BlockID    string         `json:"blockId,omitempty"`
	Values     map[string]any `json:"values,omitempty"`
	Variables  map[string]any `json:"variables,omitempty"`
	Errors     ErrorMap       `json:"errors,omitempty"`
	Time       time.Time      `json:"time"`
}

// EventSink receives navigator events. OnEvent is called synchronously from the
// navigator, so implementations that do I/O should not block for long.
type EventSink interface {
	OnEvent(event Event) error
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(event Event) error

func (f EventSinkFunc) OnEvent(event Event) error {
	return f(event)
}
