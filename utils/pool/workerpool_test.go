/*
 * Copyright 2023 The RuleGo Authors.
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

package pool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWorkerPool(t *testing.T) {
	wp := New(64, 0)
	defer wp.Stop()

	var n int32
	var wg sync.WaitGroup
	submitted := 0
	for i := 0; i < 1000; i++ {
		wg.Add(1)
		err := wp.Submit(func() {
			defer wg.Done()
			atomic.AddInt32(&n, 1)
		})
		if err != nil {
			wg.Done()
			assert.Equal(t, ErrBusy, err)
			continue
		}
		submitted++
	}
	wg.Wait()
	assert.Equal(t, int32(submitted), atomic.LoadInt32(&n))
	assert.True(t, submitted > 0)
	assert.True(t, wp.Workers() <= 64)
}

func TestWorkerPoolBusy(t *testing.T) {
	wp := New(1, 0)
	defer wp.Stop()

	release := make(chan struct{})
	assert.Nil(t, wp.Submit(func() { <-release }))
	assert.Equal(t, ErrBusy, wp.Submit(func() {}))
	close(release)

	assert.Eventually(t, func() bool {
		return wp.Submit(func() {}) == nil
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, wp.Workers())
}

func TestWorkerPoolReapsIdle(t *testing.T) {
	wp := New(4, 20*time.Millisecond)
	defer wp.Stop()

	done := make(chan struct{})
	assert.Nil(t, wp.Submit(func() { close(done) }))
	<-done
	assert.Eventually(t, func() bool {
		return wp.Workers() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestWorkerPoolStop(t *testing.T) {
	wp := New(2, 0)
	wp.Stop()
	wp.Stop()
	assert.Equal(t, ErrStopped, wp.Submit(func() {}))
}
