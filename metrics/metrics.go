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


// Package metrics turns navigator events into Prometheus metrics.
package metrics

import (
	"time"

	"github.com/funnelgo/funnel/api/types"
	"github.com/funnelgo/funnel/utils/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "funnel"

// startedTTL is how long a session start is remembered for the completion histogram.
const startedTTL = 24 * time.Hour

// Sink is a types.EventSink that records every event it sees.
type Sink struct {
	sessionsStarted    *prometheus.CounterVec
	pageTransitions    *prometheus.CounterVec
	pageViews          *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	valueChanges       *prometheus.CounterVec
	completions        *prometheus.CounterVec
	completionSeconds  *prometheus.HistogramVec

	started *cache.MemoryCache
}

var _ types.EventSink = (*Sink)(nil)

// NewSink registers the metrics on reg. A nil reg uses the default registerer.
func NewSink(reg prometheus.Registerer) *Sink {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Sink{
		sessionsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Sessions started per flow",
		}, []string{"flow"}),
		pageTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_transitions_total",
			Help:      "Pages entered per flow and direction",
		}, []string{"flow", "direction"}),
		pageViews: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_views_total",
			Help:      "Pages entered per flow and page",
		}, []string{"flow", "page"}),
		validationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Next calls blocked by validation errors per flow and page",
		}, []string{"flow", "page"}),
		valueChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "value_changes_total",
			Help:      "Answers recorded per flow",
		}, []string{"flow"}),
		completions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flows_completed_total",
			Help:      "Sessions that reached the end of the flow",
		}, []string{"flow"}),
		completionSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_seconds",
			Help:      "Time from session start to completion",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		}, []string{"flow"}),
		started: cache.NewMemoryCache(time.Minute),
	}
}

func (s *Sink) OnEvent(event types.Event) error {
	flow := event.FlowID
	switch event.Type {
	case types.EventSessionStarted:
		s.sessionsStarted.WithLabelValues(flow).Inc()
		if event.SessionID != "" {
			s.started.Set(event.SessionID, event.Time, startedTTL)
		}
	case types.EventPageEntered:
		s.pageTransitions.WithLabelValues(flow, string(event.Direction)).Inc()
		s.pageViews.WithLabelValues(flow, event.PageID).Inc()
	case types.EventValidationFailed:
		s.validationFailures.WithLabelValues(flow, event.PageID).Inc()
	case types.EventValueChanged:
		s.valueChanges.WithLabelValues(flow).Inc()
	case types.EventFlowCompleted:
		s.completions.WithLabelValues(flow).Inc()
		if v, ok := s.started.Get(event.SessionID); ok {
			s.completionSeconds.WithLabelValues(flow).Observe(event.Time.Sub(v.(time.Time)).Seconds())
			s.started.Delete(event.SessionID)
		}
	}
	return nil
}

// Close stops the background cleanup of remembered session starts.
func (s *Sink) Close() error {
	s.started.StopGC()
	return nil
}
