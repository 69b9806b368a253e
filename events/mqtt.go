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
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/funnelgo/funnel/api/types"
	"github.com/funnelgo/funnel/utils/json"
	"github.com/funnelgo/funnel/utils/mqtt"
)

// MQTTConfiguration configures the broker sink.
type MQTTConfiguration struct {
	mqtt.Config `mapstructure:",squash"`
	// TopicPrefix is the first topic level, "funnel" by default.
	TopicPrefix string
	// Types restricts the published event types. Empty publishes all.
	Types []string
	// ConnectTimeout bounds the initial connect.
	ConnectTimeout time.Duration
}

// Publisher sends a payload to a topic.
type Publisher interface {
	Publish(topic string, data []byte) error
}

// MQTT publishes every event as JSON to <prefix>/<flowId>/<type>.
type MQTT struct {
	publisher Publisher
	prefix    string
	filter    Filter
	closer    func() error
}

var _ types.EventSink = (*MQTT)(nil)

// NewMQTT connects to the broker.
func NewMQTT(config MQTTConfiguration) (*MQTT, error) {
	filter, err := NewFilter(config.Types)
	if err != nil {
		return nil, err
	}
	timeout := config.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	client, err := mqtt.NewClient(ctx, config.Config)
	if err != nil {
		return nil, fmt.Errorf("connect mqtt %s: %w", config.Server, err)
	}
	sink := NewMQTTWithPublisher(client, config.TopicPrefix, filter)
	sink.closer = client.Close
	return sink, nil
}

// NewMQTTWithPublisher publishes through p.
func NewMQTTWithPublisher(p Publisher, prefix string, filter Filter) *MQTT {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "funnel"
	}
	return &MQTT{publisher: p, prefix: prefix, filter: filter}
}

// Topic returns the topic an event is published to.
func (s *MQTT) Topic(event types.Event) string {
	flowID := event.FlowID
	if flowID == "" {
		flowID = "_"
	}
	return s.prefix + "/" + flowID + "/" + string(event.Type)
}

func (s *MQTT) OnEvent(event types.Event) error {
	if !s.filter.Accept(event.Type) {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.publisher.Publish(s.Topic(event), data)
}

func (s *MQTT) Close() error {
	if s.closer != nil {
		return s.closer()
	}
	return nil
}
