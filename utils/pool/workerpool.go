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


// Package pool runs submitted functions on a bounded set of reusable goroutines.
//
// The idle-worker stack follows the fasthttp worker pool
// (https://github.com/valyala/fasthttp/blob/master/workerpool.go): the most recently idle
// worker takes the next function and workers idle for too long are stopped.
package pool

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrBusy    = errors.New("no idle workers")
	ErrStopped = errors.New("worker pool stopped")
)

const defaultMaxIdle = 10 * time.Second

// WorkerPool is safe for concurrent use. Submit never blocks: it fails with ErrBusy when
// MaxWorkers functions are already running.
type WorkerPool struct {
	maxWorkers int
	maxIdle    time.Duration

	mu      sync.Mutex
	workers int
	idle    []*worker
	stopped bool
	stopCh  chan struct{}
}

type worker struct {
	lastUse time.Time
	tasks   chan func()
}

// New starts a pool of at most maxWorkers goroutines. maxIdle <= 0 stops idle workers after
// 10 seconds.
func New(maxWorkers int, maxIdle time.Duration) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	if maxIdle <= 0 {
		maxIdle = defaultMaxIdle
	}
	wp := &WorkerPool{maxWorkers: maxWorkers, maxIdle: maxIdle, stopCh: make(chan struct{})}
	go wp.reap()
	return wp
}

// Submit runs fn on an idle or new worker.
func (wp *WorkerPool) Submit(fn func()) error {
	w, err := wp.take()
	if err != nil {
		return err
	}
	w.tasks <- fn
	return nil
}

// Workers returns the number of running worker goroutines.
func (wp *WorkerPool) Workers() int {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	return wp.workers
}

// Stop releases the idle workers. Running functions finish; later submits fail.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	idle := wp.idle
	wp.idle = nil
	close(wp.stopCh)
	wp.mu.Unlock()
	for _, w := range idle {
		close(w.tasks)
	}
}

func (wp *WorkerPool) take() (*worker, error) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.stopped {
		return nil, ErrStopped
	}
	if n := len(wp.idle); n > 0 {
		w := wp.idle[n-1]
		wp.idle[n-1] = nil
		wp.idle = wp.idle[:n-1]
		return w, nil
	}
	if wp.workers >= wp.maxWorkers {
		return nil, ErrBusy
	}
	wp.workers++
	w := &worker{tasks: make(chan func(), 1)}
	go wp.run(w)
	return w, nil
}

func (wp *WorkerPool) run(w *worker) {
	defer func() {
		wp.mu.Lock()
		wp.workers--
		wp.mu.Unlock()
	}()
	for fn := range w.tasks {
		fn()
		if !wp.park(w) {
			return
		}
	}
}

// park puts w back on the idle stack. It reports false when the pool has stopped.
func (wp *WorkerPool) park(w *worker) bool {
	w.lastUse = time.Now()
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.stopped {
		return false
	}
	wp.idle = append(wp.idle, w)
	return true
}

func (wp *WorkerPool) reap() {
	ticker := time.NewTicker(wp.maxIdle)
	defer ticker.Stop()
	for {
		select {
		case <-wp.stopCh:
			return
		case <-ticker.C:
			wp.reapIdle()
		}
	}
}

// reapIdle stops the workers idle for longer than maxIdle. The stack is ordered by last use,
// so they sit at its bottom.
func (wp *WorkerPool) reapIdle() {
	deadline := time.Now().Add(-wp.maxIdle)
	wp.mu.Lock()
	n := 0
	for n < len(wp.idle) && wp.idle[n].lastUse.Before(deadline) {
		n++
	}
	expired := make([]*worker, n)
	copy(expired, wp.idle[:n])
	wp.idle = append(wp.idle[:0], wp.idle[n:]...)
	wp.mu.Unlock()
	for _, w := range expired {
		close(w.tasks)
	}
}
