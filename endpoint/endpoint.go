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


// Package endpoint holds the surfaces that drive sessions from outside the process: the
// rest and websocket endpoints and the scheduled session sweeper.
package endpoint

import (
	"errors"
	"fmt"
)

// Endpoint is a started-and-stopped network surface or background job.
type Endpoint interface {
	Start() error
	Close() error
}

// Group starts and closes several endpoints together.
type Group struct {
	endpoints []Endpoint
	started   int
}

func NewGroup(endpoints ...Endpoint) *Group {
	g := &Group{}
	for _, e := range endpoints {
		g.Add(e)
	}
	return g
}

// Add appends an endpoint. nil is ignored.
func (g *Group) Add(e Endpoint) *Group {
	if e != nil {
		g.endpoints = append(g.endpoints, e)
	}
	return g
}

// Len returns the number of endpoints.
func (g *Group) Len() int {
	return len(g.endpoints)
}

// Start starts the endpoints in order. When one fails, those already started are closed.
func (g *Group) Start() error {
	for g.started < len(g.endpoints) {
		e := g.endpoints[g.started]
		if err := e.Start(); err != nil {
			index := g.started
			return errors.Join(fmt.Errorf("start endpoint %d (%T): %w", index, e, err), g.Close())
		}
		g.started++
	}
	return nil
}

// Close closes the started endpoints in reverse order.
func (g *Group) Close() error {
	var errs []error
	for i := g.started - 1; i >= 0; i-- {
		if err := g.endpoints[i].Close(); err != nil {
			errs = append(errs, fmt.Errorf("close endpoint %d (%T): %w", i, g.endpoints[i], err))
		}
	}
	g.started = 0
	return errors.Join(errs...)
}
