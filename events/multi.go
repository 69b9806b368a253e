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

package events

import (
	"sync"

	"github.com/funnelgo/funnel/api/types"
)

// Multi fans events out to several sinks. A failing sink is logged and does not stop the
// others.
type Multi struct {
	logger types.Logger
	mu     sync.RWMutex
	sinks  []types.EventSink
}

var _ types.EventSink = (*Multi)(nil)

func NewMulti(logger types.Logger, sinks ...types.EventSink) *Multi {
	m := &Multi{logger: types.NewLogger(logger)}
	for _, sink := range sinks {
		m.Add(sink)
	}
	return m
}

// Add appends a sink. nil is ignored.
func (m *Multi) Add(sink types.EventSink) {
	if sink == nil {
		return
	}
	m.mu.Lock()
	m.sinks = append(m.sinks, sink)
	m.mu.Unlock()
}

// Len returns the number of sinks.
func (m *Multi) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sinks)
}

func (m *Multi) OnEvent(event types.Event) error {
	m.mu.RLock()
	sinks := m.sinks
	m.mu.RUnlock()
	for _, sink := range sinks {
		if err := sink.OnEvent(event); err != nil {
			m.logger.Printf("event %s of session %s: sink %T failed: %v", event.Type, event.SessionID, sink, err)
		}
	}
	return nil
}
