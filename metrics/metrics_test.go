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

package metrics

import (
	"testing"
	"time"

	"github.com/funnelgo/funnel/api/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSink(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewSink(reg)
	defer sink.Close()

	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	events := []types.Event{
		{Type: types.EventSessionStarted, FlowID: "quiz", SessionID: "s1", Time: start},
		{Type: types.EventPageEntered, FlowID: "quiz", SessionID: "s1", PageID: "start", Direction: types.Forward, Time: start},
		{Type: types.EventValueChanged, FlowID: "quiz", SessionID: "s1", BlockID: "color", Time: start},
		{Type: types.EventValidationFailed, FlowID: "quiz", SessionID: "s1", PageID: "start", Time: start},
		{Type: types.EventPageEntered, FlowID: "quiz", SessionID: "s1", PageID: "blue-page", Direction: types.Forward, Time: start},
		{Type: types.EventPageEntered, FlowID: "quiz", SessionID: "s1", PageID: "start", Direction: types.Back, Time: start},
		{Type: types.EventFlowCompleted, FlowID: "quiz", SessionID: "s1", Time: start.Add(45 * time.Second)},
		{Type: types.EventFlowCompleted, FlowID: "quiz", SessionID: "unknown", Time: start},
	}
	for _, event := range events {
		assert.Nil(t, sink.OnEvent(event))
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(sink.sessionsStarted.WithLabelValues("quiz")))
	assert.Equal(t, 2.0, testutil.ToFloat64(sink.pageTransitions.WithLabelValues("quiz", "forward")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.pageTransitions.WithLabelValues("quiz", "back")))
	assert.Equal(t, 2.0, testutil.ToFloat64(sink.pageViews.WithLabelValues("quiz", "start")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.validationFailures.WithLabelValues("quiz", "start")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.valueChanges.WithLabelValues("quiz")))
	assert.Equal(t, 2.0, testutil.ToFloat64(sink.completions.WithLabelValues("quiz")))
	assert.Equal(t, 1, testutil.CollectAndCount(sink.completionSeconds))
	assert.Equal(t, 0, sink.started.Len())

	families, err := reg.Gather()
	assert.Nil(t, err)
	var names []string
	for _, family := range families {
		names = append(names, family.GetName())
	}
	assert.Contains(t, names, "funnel_flows_completed_total")
	assert.Contains(t, names, "funnel_completion_seconds")
}
