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

package main

import (
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/funnelgo/funnel"
	"github.com/funnelgo/funnel/api/types"
	"github.com/funnelgo/funnel/config"
	"github.com/funnelgo/funnel/endpoint"
	"github.com/funnelgo/funnel/endpoint/rest"
	"github.com/funnelgo/funnel/endpoint/schedule"
	"github.com/funnelgo/funnel/endpoint/websocket"
	"github.com/funnelgo/funnel/events"
	"github.com/funnelgo/funnel/metrics"
	"github.com/funnelgo/funnel/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var configFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the flows of a folder over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := config.DefaultConfig
			if configFile != "" {
				var err error
				if c, err = config.Load(configFile); err != nil {
					return err
				}
			}
			srv, err := newServer(c)
			if err != nil {
				return err
			}
			if err := srv.Start(); err != nil {
				srv.Close()
				return err
			}
			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
			<-sigs
			srv.Close()
			srv.logger.Println("stopped server")
			return nil
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "INI configuration file")
	return cmd
}

// server wires the configured components together.
type server struct {
	logger    *log.Logger
	rest      *rest.Rest
	endpoints *endpoint.Group
	sessions  *funnel.SessionManager
	closers   []io.Closer
}

func newServer(c config.Config) (*server, error) {
	logger, err := c.Logger()
	if err != nil {
		return nil, err
	}
	s := &server{logger: logger}

	pool := funnel.NewPool(logger)
	if err := pool.Load(c.FlowsDir); err != nil {
		return nil, err
	}
	logger.Printf("loaded flows from %s", c.FlowsDir)

	store, err := storage.New(c.Store.Driver, c.Store.StoreConfiguration())
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, store)

	sink := events.NewMulti(logger)
	registry := prometheus.NewRegistry()
	if c.Metrics {
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metricsSink := metrics.NewSink(registry)
		sink.Add(metricsSink)
		s.closers = append(s.closers, metricsSink)
	}
	if c.Mqtt.Enabled {
		mqttSink, err := events.NewMQTT(c.Mqtt.SinkConfiguration())
		if err != nil {
			s.Close()
			return nil, err
		}
		sink.Add(mqttSink)
		s.closers = append(s.closers, mqttSink)
	}
	if c.Webhook.Enabled {
		hook, err := events.NewWebhook(c.Webhook.SinkConfiguration())
		if err != nil {
			s.Close()
			return nil, err
		}
		async := events.NewAsync(hook, c.Events.AsyncWorkers, logger)
		sink.Add(async)
		s.closers = append(s.closers, async)
	}

	s.sessions = funnel.NewSessionManager(pool,
		types.WithStore(store),
		types.WithEventSink(sink),
		types.WithLogger(logger),
		types.WithPersistTimeout(c.Session.PersistTimeout),
	).EnableSnapshots(c.Session.SnapshotTTL)

	s.rest = rest.New(rest.Config{Server: c.Server, CertFile: c.CertFile, CertKeyFile: c.CertKeyFile}, pool, s.sessions)
	if c.Metrics {
		s.rest.Handle(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}
	if c.Websocket {
		websocket.New(s.sessions).Register(s.rest)
	}

	s.endpoints = endpoint.NewGroup(s.rest)
	if c.Session.IdleTimeout > 0 {
		sweeper := schedule.New(logger)
		if _, err := sweeper.SweepSessions(c.Session.SweepSpec, s.sessions, c.Session.IdleTimeout); err != nil {
			s.Close()
			return nil, err
		}
		s.endpoints.Add(sweeper)
	}
	return s, nil
}

func (s *server) Start() error {
	return s.endpoints.Start()
}

// Close stops the endpoints first so no request reaches a closed store.
func (s *server) Close() {
	if s.endpoints != nil {
		if err := s.endpoints.Close(); err != nil {
			s.logger.Printf("close endpoints: %v", err)
		}
	}
	if s.sessions != nil {
		s.sessions.Close()
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			s.logger.Printf("close %T: %v", s.closers[i], err)
		}
	}
	s.closers = nil
}
