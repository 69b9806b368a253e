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


// Package config loads the server configuration from an INI file.
//
//	server = :9090
//	flows_dir = ./flows
//
//	[store]
//	driver = redis
//	server = 127.0.0.1:6379
//	ttl = 72h
//
//	[session]
//	idle_timeout = 30m
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/funnelgo/funnel/api/types"
	"github.com/funnelgo/funnel/events"
	"github.com/funnelgo/funnel/storage"
	"github.com/funnelgo/funnel/utils/mqtt"
	"github.com/go-playground/validator/v10"
	"gopkg.in/ini.v1"
)

// Config is the server configuration.
type Config struct {
	// Server is the http listen address.
	Server      string `ini:"server" validate:"required"`
	CertFile    string `ini:"cert_file" validate:"required_with=CertKeyFile"`
	CertKeyFile string `ini:"cert_key_file" validate:"required_with=CertFile"`
	// FlowsDir is loaded into the flow pool at startup.
	FlowsDir string `ini:"flows_dir" validate:"required"`
	// LogFile receives the log. Empty logs to stdout.
	LogFile string `ini:"log_file"`
	// Metrics serves Prometheus metrics on /metrics.
	Metrics bool `ini:"metrics"`
	// Websocket serves sessions on /api/v1/sessions/:sessionId/ws.
	Websocket bool `ini:"websocket"`

	Store   Store   `ini:"store"`
	Session Session `ini:"session"`
	Events  Events  `ini:"events"`
	Mqtt    Mqtt    `ini:"mqtt"`
	Webhook Webhook `ini:"webhook"`
}

// Store selects the value store.
type Store struct {
	Driver string `ini:"driver" validate:"oneof=memory sql redis"`
	// SqlDriver is mysql or postgres.
	SqlDriver string `ini:"sql_driver" validate:"omitempty,oneof=mysql postgres"`
	Dsn       string `ini:"dsn" validate:"required_if=Driver sql"`
	Table     string `ini:"table"`
	// Server is the redis address.
	Server   string        `ini:"server"`
	Password string        `ini:"password"`
	DB       int           `ini:"db" validate:"gte=0"`
	PoolSize int           `ini:"pool_size" validate:"gte=0"`
	TTL      time.Duration `ini:"ttl" validate:"gte=0"`
}

// Session configures session lifetime.
type Session struct {
	// IdleTimeout removes sessions without activity for this long. 0 keeps them.
	IdleTimeout time.Duration `ini:"idle_timeout" validate:"gte=0"`
	// SweepSpec is the cron spec of the idle sweep.
	SweepSpec string `ini:"sweep_spec" validate:"required_with=IdleTimeout"`
	// SnapshotTTL keeps swept sessions revivable for this long. 0 disables revival.
	SnapshotTTL time.Duration `ini:"snapshot_ttl" validate:"gte=0"`
	// PersistTimeout bounds one write to the value store.
	PersistTimeout time.Duration `ini:"persist_timeout" validate:"gte=0"`
}

// Events configures the delivery of slow sinks.
type Events struct {
	// AsyncWorkers bounds concurrent webhook deliveries.
	AsyncWorkers int `ini:"async_workers" validate:"gte=1"`
}

// Mqtt configures the broker sink.
type Mqtt struct {
	Enabled     bool          `ini:"enabled"`
	Server      string        `ini:"server" validate:"required_if=Enabled true"`
	Username    string        `ini:"username"`
	Password    string        `ini:"password"`
	ClientID    string        `ini:"client_id"`
	QOS         uint8         `ini:"qos" validate:"lte=2"`
	TopicPrefix string        `ini:"topic_prefix"`
	Types       []string      `ini:"types" delim:","`
	CAFile      string        `ini:"ca_file"`
	CertFile    string        `ini:"cert_file"`
	CertKeyFile string        `ini:"cert_key_file"`
	Timeout     time.Duration `ini:"connect_timeout" validate:"gte=0"`
}

// Webhook configures the HTTP sink.
type Webhook struct {
	Enabled        bool          `ini:"enabled"`
	Url            string        `ini:"url" validate:"required_if=Enabled true,omitempty,url"`
	Types          []string      `ini:"types" delim:","`
	Timeout        time.Duration `ini:"timeout" validate:"gte=0"`
	UseSystemProxy bool          `ini:"use_system_proxy"`
	ProxyScheme    string        `ini:"proxy_scheme" validate:"omitempty,oneof=http https socks5"`
	ProxyHost      string        `ini:"proxy_host" validate:"required_with=ProxyScheme"`
	ProxyPort      int           `ini:"proxy_port" validate:"required_with=ProxyScheme,max=65535"`
	ProxyUser      string        `ini:"proxy_user"`
	ProxyPassword  string        `ini:"proxy_password"`
}

// DefaultConfig is used when no file is given, and fills what a file leaves out.
var DefaultConfig = Config{
	Server:    ":9090",
	FlowsDir:  "./flows",
	Metrics:   true,
	Websocket: true,
	Store: Store{
		Driver:    storage.Memory,
		SqlDriver: storage.MySQL,
		Table:     "funnel_values",
		Server:    "127.0.0.1:6379",
		TTL:       72 * time.Hour,
	},
	Session: Session{
		IdleTimeout:    30 * time.Minute,
		SweepSpec:      "@every 1m",
		SnapshotTTL:    time.Hour,
		PersistTimeout: 2 * time.Second,
	},
	Events: Events{AsyncWorkers: 8},
	Mqtt: Mqtt{
		Server:      "tcp://127.0.0.1:1883",
		TopicPrefix: "funnel",
		Timeout:     10 * time.Second,
	},
	Webhook: Webhook{
		Types:   []string{"flow_completed"},
		Timeout: 10 * time.Second,
	},
}

var validate = validator.New()

// Load reads the INI file over DefaultConfig and validates the result.
func Load(path string) (Config, error) {
	c := DefaultConfig
	c.Webhook.Types = append([]string(nil), DefaultConfig.Webhook.Types...)
	file, err := ini.Load(path)
	if err != nil {
		return c, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := file.MapTo(&c); err != nil {
		return c, fmt.Errorf("map config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

// Validate checks the field constraints and that event type names are known.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if _, err := events.NewFilter(c.Mqtt.Types); err != nil {
		return fmt.Errorf("mqtt types: %w", err)
	}
	if _, err := events.NewFilter(c.Webhook.Types); err != nil {
		return fmt.Errorf("webhook types: %w", err)
	}
	return nil
}

// Logger opens the log file, or returns a stdout logger when none is set.
func (c *Config) Logger() (*log.Logger, error) {
	if c.LogFile == "" {
		return types.DefaultLogger(), nil
	}
	f, err := os.OpenFile(c.LogFile, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	return types.NewFileLogger(f), nil
}

// StoreConfiguration is the storage.New configuration of the store section.
func (s Store) StoreConfiguration() map[string]any {
	switch s.Driver {
	case storage.SQL:
		return map[string]any{
			"driverName": s.SqlDriver,
			"dsn":        s.Dsn,
			"table":      s.Table,
			"poolSize":   s.PoolSize,
		}
	case storage.Redis:
		return map[string]any{
			"server":   s.Server,
			"password": s.Password,
			"db":       s.DB,
			"poolSize": s.PoolSize,
			"ttl":      s.TTL,
		}
	default:
		return map[string]any{"ttl": s.TTL}
	}
}

// SinkConfiguration is the events.NewMQTT configuration of the mqtt section.
func (m Mqtt) SinkConfiguration() events.MQTTConfiguration {
	return events.MQTTConfiguration{
		Config: mqtt.Config{
			Server:      m.Server,
			Username:    m.Username,
			Password:    m.Password,
			ClientID:    m.ClientID,
			QOS:         m.QOS,
			CAFile:      m.CAFile,
			CertFile:    m.CertFile,
			CertKeyFile: m.CertKeyFile,
		},
		TopicPrefix:    m.TopicPrefix,
		Types:          m.Types,
		ConnectTimeout: m.Timeout,
	}
}

// SinkConfiguration is the events.NewWebhook configuration of the webhook section.
func (w Webhook) SinkConfiguration() events.WebhookConfiguration {
	return events.WebhookConfiguration{
		Server:                   w.Url,
		Types:                    w.Types,
		Timeout:                  w.Timeout,
		EnableProxy:              w.UseSystemProxy || w.ProxyScheme != "",
		UseSystemProxyProperties: w.UseSystemProxy,
		ProxyScheme:              w.ProxyScheme,
		ProxyHost:                w.ProxyHost,
		ProxyPort:                w.ProxyPort,
		ProxyUser:                w.ProxyUser,
		ProxyPassword:            w.ProxyPassword,
	}
}
