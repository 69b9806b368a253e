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
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/funnelgo/funnel/api/types"
	"github.com/funnelgo/funnel/utils/json"
	"golang.org/x/net/proxy"
)

const (
	ContentTypeKey  = "Content-Type"
	JsonContentType = "application/json"
)

// WebhookConfiguration configures the HTTP sink.
type WebhookConfiguration struct {
	// Server is the URL events are POSTed to.
	Server string
	// Headers are added to every request.
	Headers map[string]string
	// Types restricts the posted event types. Empty posts flow_completed only.
	Types []string
	// Timeout bounds one request, 10 seconds by default.
	Timeout time.Duration
	// EnableProxy routes requests through a proxy.
	EnableProxy bool
	// UseSystemProxyProperties takes the proxy from HTTP_PROXY/HTTPS_PROXY.
	UseSystemProxyProperties bool
	// ProxyScheme is http, https or socks5.
	ProxyScheme   string
	ProxyHost     string
	ProxyPort     int
	ProxyUser     string
	ProxyPassword string
}

// Webhook POSTs events as JSON.
type Webhook struct {
	config WebhookConfiguration
	filter Filter
	client *http.Client
}

var _ types.EventSink = (*Webhook)(nil)

func NewWebhook(config WebhookConfiguration) (*Webhook, error) {
	u, err := url.Parse(config.Server)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid webhook url %q", config.Server)
	}
	if len(config.Types) == 0 {
		config.Types = []string{string(types.EventFlowCompleted)}
	}
	filter, err := NewFilter(config.Types)
	if err != nil {
		return nil, err
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	client, err := newHttpClient(config)
	if err != nil {
		return nil, err
	}
	return &Webhook{config: config, filter: filter, client: client}, nil
}

func (w *Webhook) OnEvent(event types.Event) error {
	if !w.filter.Accept(event.Type) {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), w.config.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.Server, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set(ContentTypeKey, JsonContentType)
	for k, v := range w.config.Headers {
		req.Header.Set(k, v)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook %s: %s", w.config.Server, resp.Status)
	}
	return nil
}

func newHttpClient(config WebhookConfiguration) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	if config.EnableProxy {
		var proxyURL *url.URL
		if config.UseSystemProxyProperties {
			proxyURL = systemProxy()
		} else {
			proxyURL = buildProxyURL(config.ProxyScheme, config.ProxyHost, config.ProxyPort, config.ProxyUser, config.ProxyPassword)
		}
		if proxyURL == nil {
			return nil, errors.New("proxy enabled but not configured")
		}
		if proxyURL.Scheme == "socks5" {
			dialer, err := socks5Dialer(proxyURL)
			if err != nil {
				return nil, err
			}
			transport.DialContext = dialer
		} else {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}
	return &http.Client{Transport: transport, Timeout: config.Timeout}, nil
}

func systemProxy() *url.URL {
	for _, env := range []string{"HTTPS_PROXY", "https_proxy", "HTTP_PROXY", "http_proxy"} {
		if v := os.Getenv(env); v != "" {
			if u, err := url.Parse(v); err == nil && u.Host != "" {
				return u
			}
		}
	}
	return nil
}

func buildProxyURL(scheme, host string, port int, user, password string) *url.URL {
	if scheme == "" || host == "" || port == 0 {
		return nil
	}
	u := &url.URL{Scheme: scheme, Host: net.JoinHostPort(host, strconv.Itoa(port))}
	if user != "" {
		u.User = url.UserPassword(user, password)
	}
	return u
}

func socks5Dialer(proxyURL *url.URL) (func(ctx context.Context, network, addr string) (net.Conn, error), error) {
	var auth *proxy.Auth
	if proxyURL.User != nil {
		password, _ := proxyURL.User.Password()
		auth = &proxy.Auth{User: proxyURL.User.Username(), Password: password}
	}
	dialer, err := proxy.SOCKS5("tcp", proxyURL.Host, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("socks5 proxy %s: %w", proxyURL.Host, err)
	}
	if contextDialer, ok := dialer.(proxy.ContextDialer); ok {
		return contextDialer.DialContext, nil
	}
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return dialer.Dial(network, addr)
	}, nil
}
