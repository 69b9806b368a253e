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


// Package events delivers navigator events to the outside world.
//
// Every sink implements types.EventSink and can be combined with Multi:
//
//	sink := events.NewMulti(logger, metricsSink, events.NewAsync(webhook, 8, logger))
//	sessions := funnel.NewSessionManager(pool, types.WithEventSink(sink))
package events

import (
	"fmt"

	"github.com/funnelgo/funnel/api/types"
)

// Types lists every event type a navigator emits.
var Types = []types.EventType{
	types.EventSessionStarted,
	types.EventValueChanged,
	types.EventPageEntered,
	types.EventValidationFailed,
	types.EventFlowCompleted,
}

// Filter is a set of event types. An empty filter accepts every type.
type Filter map[types.EventType]bool

// NewFilter parses event type names. Unknown names are an error.
func NewFilter(names []string) (Filter, error) {
	filter := Filter{}
	for _, name := range names {
		kind := types.EventType(name)
		if !isKnown(kind) {
			return nil, fmt.Errorf("unknown event type %q", name)
		}
		filter[kind] = true
	}
	return filter, nil
}

// Accept reports whether events of this type pass.
func (f Filter) Accept(kind types.EventType) bool {
	return len(f) == 0 || f[kind]
}

func isKnown(kind types.EventType) bool {
	for _, t := range Types {
		if t == kind {
			return true
		}
	}
	return false
}
