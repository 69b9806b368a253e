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
	"time"
)

// DefaultPersistTimeout bounds a single write-through of values to the store.
const DefaultPersistTimeout = time.Second * 2

// Config defines the configuration of a flow runtime session.
type Config struct {
	// Logger is the logging interface, defaulting to `DefaultLogger()`.
	Logger Logger
	// Store persists answer values. Nil keeps values in memory only.
	Store ValueStore
	// EventSink receives navigation events. Nil disables events.
	EventSink EventSink
	// InstanceID keys the persisted values. Values are neither restored nor saved when empty.
	InstanceID string
	// SessionID and FlowID are copied into emitted events.
	SessionID string
	FlowID    string
	// PersistTimeout bounds each store call, defaulting to DefaultPersistTimeout.
	PersistTimeout time.Duration
}

// Option is a function type that modifies the Config.
type Option func(*Config) error

// NewConfig creates a new Config with default values and applies the provided options.
func NewConfig(opts ...Option) Config {
	c := &Config{
		Logger:         DefaultLogger(),
		PersistTimeout: DefaultPersistTimeout,
	}
	for _, opt := range opts {
		_ = opt(c)
	}
	return *c
}

// WithLogger is an option that sets the logger of the Config.
func WithLogger(logger Logger) Option {
	return func(c *Config) error {
		c.Logger = logger
		return nil
	}
}

// WithStore is an option that sets the value store of the Config.
func WithStore(store ValueStore) Option {
	return func(c *Config) error {
		c.Store = store
		return nil
	}
}

// WithEventSink is an option that sets the event sink of the Config.
func WithEventSink(sink EventSink) Option {
	return func(c *Config) error {
		c.EventSink = sink
		return nil
	}
}

// WithInstanceID is an option that sets the flow-instance id used as the storage key.
func WithInstanceID(id string) Option {
	return func(c *Config) error {
		c.InstanceID = id
		return nil
	}
}

// WithSessionID is an option that sets the session id reported in events.
func WithSessionID(id string) Option {
	return func(c *Config) error {
		c.SessionID = id
		return nil
	}
}

// WithFlowID is an option that sets the flow id reported in events.
func WithFlowID(id string) Option {
	return func(c *Config) error {
		c.FlowID = id
		return nil
	}
}

// WithPersistTimeout is an option that sets the timeout of each store call.
func WithPersistTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		c.PersistTimeout = timeout
		return nil
	}
}
