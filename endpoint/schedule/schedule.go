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


// Package schedule runs periodic jobs with a seconds-resolution cron, the session sweeper
// among them.
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/funnelgo/funnel"
	"github.com/funnelgo/funnel/api/types"
	"github.com/robfig/cron/v3"
)

// Schedule owns a cron. Jobs can be added before or after Start.
type Schedule struct {
	mu     sync.Mutex
	cron   *cron.Cron
	logger types.Logger
}

func New(logger types.Logger) *Schedule {
	return &Schedule{cron: cron.New(cron.WithSeconds()), logger: types.NewLogger(logger)}
}

// AddFunc runs fn on spec, e.g. "*/30 * * * * *" or "@every 1m". Panics in fn are logged.
// It returns the job id.
func (s *Schedule) AddFunc(spec string, fn func()) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return "", errors.New("schedule is closed")
	}
	id, err := s.cron.AddFunc(spec, func() {
		defer func() {
			if e := recover(); e != nil {
				s.logger.Printf("schedule job %q err: %v", spec, e)
			}
		}()
		fn()
	})
	if err != nil {
		return "", fmt.Errorf("schedule %q: %w", spec, err)
	}
	return strconv.Itoa(int(id)), nil
}

// Remove drops a job.
func (s *Schedule) Remove(id string) error {
	entryID, err := strconv.Atoi(id)
	if err != nil {
		return fmt.Errorf("%s is not a job id", id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		s.cron.Remove(cron.EntryID(entryID))
	}
	return nil
}

// Len returns the number of jobs.
func (s *Schedule) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return 0
	}
	return len(s.cron.Entries())
}

// SweepSessions removes the sessions idle for longer than idle on spec.
func (s *Schedule) SweepSessions(spec string, sessions *funnel.SessionManager, idle time.Duration) (string, error) {
	if idle <= 0 {
		return "", errors.New("idle timeout must be positive")
	}
	return s.AddFunc(spec, func() {
		if n := sessions.Sweep(idle); n > 0 {
			s.logger.Printf("swept %d sessions idle for more than %s", n, idle)
		}
	})
}

func (s *Schedule) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return errors.New("schedule is closed")
	}
	s.cron.Start()
	return nil
}

// Close stops the cron and waits for running jobs.
func (s *Schedule) Close() error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
	return nil
}
