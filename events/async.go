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
	"sync/atomic"
	"time"

	"github.com/funnelgo/funnel/api/types"
	"github.com/funnelgo/funnel/utils/pool"
)

// Async hands events to a sink on a worker pool so that slow sinks do not hold up
// navigation. Events are dropped and logged when every worker is busy. Delivery order is
// not kept.
type Async struct {
	sink    types.EventSink
	workers *pool.WorkerPool
	logger  types.Logger
	wg      sync.WaitGroup
	dropped uint64
}

var _ types.EventSink = (*Async)(nil)

// NewAsync delivers to sink with at most workers concurrent calls.
func NewAsync(sink types.EventSink, workers int, logger types.Logger) *Async {
	return &Async{
		sink:    sink,
		workers: pool.New(workers, time.Minute),
		logger:  types.NewLogger(logger),
	}
}

func (a *Async) OnEvent(event types.Event) error {
	a.wg.Add(1)
	err := a.workers.Submit(func() {
		defer a.wg.Done()
		if err := a.sink.OnEvent(event); err != nil {
			a.logger.Printf("event %s of session %s: sink %T failed: %v", event.Type, event.SessionID, a.sink, err)
		}
	})
	if err != nil {
		a.wg.Done()
		atomic.AddUint64(&a.dropped, 1)
		return err
	}
	return nil
}

// Dropped returns how many events were not delivered because the pool was busy or stopped.
func (a *Async) Dropped() uint64 {
	return atomic.LoadUint64(&a.dropped)
}

// Close waits for queued deliveries and stops the pool.
func (a *Async) Close() error {
	a.wg.Wait()
	a.workers.Stop()
	return nil
}
