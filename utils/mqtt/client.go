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


// Package mqtt wraps the Paho client for publishing flow events to a broker.
package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/funnelgo/funnel/utils/str"
)

// ErrNotConnected is returned by Publish while the broker connection is down.
var ErrNotConnected = errors.New("mqtt client not connected")

// Config is the broker connection.
type Config struct {
	// Server is the broker url, e.g. tcp://127.0.0.1:1883.
	Server   string
	Username string
	Password string
	// ClientID defaults to a random funnel/ id.
	ClientID     string
	QOS          uint8
	CleanSession bool
	// MaxReconnectInterval caps the backoff between reconnects.
	MaxReconnectInterval time.Duration
	// PublishTimeout bounds how long Publish waits for the broker.
	PublishTimeout time.Duration
	CAFile         string
	CertFile       string
	CertKeyFile    string
}

// Client is a connected publisher. It reconnects on its own after the first connect.
type Client struct {
	client    paho.Client
	qos       byte
	timeout   time.Duration
	connected int32
}

// NewClient connects to the broker, retrying every 2 seconds until ctx is done.
func NewClient(ctx context.Context, conf Config) (*Client, error) {
	if conf.Server == "" {
		return nil, errors.New("mqtt server can not be empty")
	}
	if conf.QOS > 2 {
		return nil, fmt.Errorf("invalid mqtt qos %d", conf.QOS)
	}
	c := &Client{qos: conf.QOS, timeout: conf.PublishTimeout}
	if c.timeout <= 0 {
		c.timeout = 5 * time.Second
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(conf.Server)
	opts.SetUsername(conf.Username)
	opts.SetPassword(conf.Password)
	opts.SetCleanSession(conf.CleanSession)
	if conf.ClientID == "" {
		opts.SetClientID("funnel/" + str.RandomStr(8))
	} else {
		opts.SetClientID(conf.ClientID)
	}
	if conf.MaxReconnectInterval <= 0 {
		conf.MaxReconnectInterval = time.Minute
	}
	opts.SetMaxReconnectInterval(conf.MaxReconnectInterval)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(c.onConnected)
	opts.SetConnectionLostHandler(c.onConnectionLost)

	tlsConfig, err := newTLSConfig(conf.CAFile, conf.CertFile, conf.CertKeyFile)
	if err != nil {
		return nil, fmt.Errorf("load mqtt certificates ca=%s cert=%s key=%s: %w", conf.CAFile, conf.CertFile, conf.CertKeyFile, err)
	}
	if tlsConfig != nil {
		opts.SetTLSConfig(tlsConfig)
	}
	c.client = paho.NewClient(opts)

	for {
		token := c.client.Connect()
		if token.Wait() && token.Error() == nil {
			return c, nil
		}
		select {
		case <-ctx.Done():
			return nil, token.Error()
		case <-time.After(2 * time.Second):
		}
	}
}

// IsConnected reports whether the broker connection is up.
func (c *Client) IsConnected() bool {
	return atomic.LoadInt32(&c.connected) == 1
}

// Publish sends data to topic with the configured qos.
func (c *Client) Publish(topic string, data []byte) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	token := c.client.Publish(topic, c.qos, false, data)
	if !token.WaitTimeout(c.timeout) {
		return fmt.Errorf("mqtt publish to %s timed out after %s", topic, c.timeout)
	}
	return token.Error()
}

func (c *Client) Close() error {
	atomic.StoreInt32(&c.connected, 0)
	if c.client != nil {
		c.client.Disconnect(500)
	}
	return nil
}

func (c *Client) onConnected(paho.Client) {
	atomic.StoreInt32(&c.connected, 1)
}

func (c *Client) onConnectionLost(paho.Client, error) {
	atomic.StoreInt32(&c.connected, 0)
}

func newTLSConfig(caFile, certFile, certKeyFile string) (*tls.Config, error) {
	if caFile == "" && certFile == "" && certKeyFile == "" {
		return nil, nil
	}
	tlsConfig := &tls.Config{}
	if caFile != "" {
		caCert, err := os.ReadFile(caFile)
		if err != nil {
			return nil, err
		}
		certPool := x509.NewCertPool()
		if !certPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("no certificates in %s", caFile)
		}
		tlsConfig.RootCAs = certPool
	}
	if certFile != "" && certKeyFile != "" {
		kp, err := tls.LoadX509KeyPair(certFile, certKeyFile)
		if err != nil {
			return nil, err
		}
		tlsConfig.Certificates = []tls.Certificate{kp}
	}
	return tlsConfig, nil
}
