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


// Package rest serves flows and sessions over HTTP.
//
// Routes:
//
//	GET    /api/v1/flows
//	GET    /api/v1/flows/:flowId
//	POST   /api/v1/flows/:flowId/sessions
//	GET    /api/v1/sessions/:sessionId
//	PUT    /api/v1/sessions/:sessionId/values/:blockId
//	POST   /api/v1/sessions/:sessionId/next
//	POST   /api/v1/sessions/:sessionId/prev
//	DELETE /api/v1/sessions/:sessionId
package rest

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/funnelgo/funnel"
	"github.com/funnelgo/funnel/api/types"
	"github.com/funnelgo/funnel/utils/json"
	"github.com/julienschmidt/httprouter"
)

const (
	ContentTypeKey  = "Content-Type"
	JsonContentType = "application/json"

	ParamFlowID    = "flowId"
	ParamSessionID = "sessionId"
	ParamBlockID   = "blockId"

	// maxBodySize caps request bodies.
	maxBodySize = 1 << 20
)

// Config is the HTTP listener.
type Config struct {
	// Server is the listen address, e.g. ":9090".
	Server      string
	CertFile    string
	CertKeyFile string
	// ReadTimeout bounds reading one request. 0 means 30 seconds.
	ReadTimeout time.Duration
}

// Rest is the HTTP endpoint.
type Rest struct {
	Config   Config
	pool     *funnel.Pool
	sessions *funnel.SessionManager
	logger   types.Logger
	router   *httprouter.Router
	server   *http.Server
	listener net.Listener
}

// New creates the endpoint and registers the flow and session routes.
func New(config Config, pool *funnel.Pool, sessions *funnel.SessionManager) *Rest {
	r := &Rest{
		Config:   config,
		pool:     pool,
		sessions: sessions,
		logger:   sessions.Logger(),
		router:   httprouter.New(),
	}
	r.GET("/api/v1/flows", r.listFlows)
	r.GET("/api/v1/flows/:flowId", r.getFlow)
	r.POST("/api/v1/flows/:flowId/sessions", r.startSession)
	r.GET("/api/v1/sessions/:sessionId", r.getSession)
	r.PUT("/api/v1/sessions/:sessionId/values/:blockId", r.setValue)
	r.POST("/api/v1/sessions/:sessionId/next", r.next)
	r.POST("/api/v1/sessions/:sessionId/prev", r.prev)
	r.DELETE("/api/v1/sessions/:sessionId", r.removeSession)
	return r
}

// Handle mounts a plain handler, e.g. the metrics handler on /metrics.
func (r *Rest) Handle(method, path string, handler http.Handler) *Rest {
	return r.AddRouter(method, path, func(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		handler.ServeHTTP(w, req)
	})
}

// AddRouter registers a route. Panics in handle are recovered and answered with 500.
func (r *Rest) AddRouter(method, path string, handle httprouter.Handle) *Rest {
	r.router.Handle(method, path, r.recoverer(handle))
	return r
}

func (r *Rest) GET(path string, handle httprouter.Handle) *Rest {
	return r.AddRouter(http.MethodGet, path, handle)
}

func (r *Rest) POST(path string, handle httprouter.Handle) *Rest {
	return r.AddRouter(http.MethodPost, path, handle)
}

func (r *Rest) PUT(path string, handle httprouter.Handle) *Rest {
	return r.AddRouter(http.MethodPut, path, handle)
}

func (r *Rest) DELETE(path string, handle httprouter.Handle) *Rest {
	return r.AddRouter(http.MethodDelete, path, handle)
}

// Router returns the underlying router, which is also the endpoint's http.Handler.
func (r *Rest) Router() *httprouter.Router {
	return r.router
}

// Sessions returns the session manager the endpoint drives.
func (r *Rest) Sessions() *funnel.SessionManager {
	return r.sessions
}

// Start listens and serves in the background.
func (r *Rest) Start() error {
	readTimeout := r.Config.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 30 * time.Second
	}
	r.server = &http.Server{Addr: r.Config.Server, Handler: r.router, ReadHeaderTimeout: readTimeout}
	ln, err := r.listen()
	if err != nil {
		return err
	}
	r.listener = ln
	isTls := r.Config.CertKeyFile != "" && r.Config.CertFile != ""
	go func() {
		var err error
		if isTls {
			r.logger.Printf("started rest server with TLS on %s", ln.Addr())
			err = r.server.ServeTLS(ln, r.Config.CertFile, r.Config.CertKeyFile)
		} else {
			r.logger.Printf("started rest server on %s", ln.Addr())
			err = r.server.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Printf("rest server stopped: %v", err)
		}
	}()
	return nil
}

func (r *Rest) listen() (net.Listener, error) {
	addr := r.Config.Server
	if addr == "" {
		if r.Config.CertKeyFile != "" && r.Config.CertFile != "" {
			addr = ":https"
		} else {
			addr = ":http"
		}
	}
	return net.Listen("tcp", addr)
}

// Addr returns the listen address once started.
func (r *Rest) Addr() string {
	if r.listener == nil {
		return ""
	}
	return r.listener.Addr().String()
}

// Close shuts the server down, waiting up to 5 seconds for running requests.
func (r *Rest) Close() error {
	if r.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.server.Shutdown(ctx)
}

func (r *Rest) recoverer(handle httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, params httprouter.Params) {
		defer func() {
			if e := recover(); e != nil {
				r.logger.Printf("rest handler %s %s err: %v", req.Method, req.URL.Path, e)
				WriteError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		handle(w, req, params)
	}
}

// SessionResponse is the body of every session route.
type SessionResponse struct {
	SessionID  string          `json:"sessionId"`
	FlowID     string          `json:"flowId"`
	InstanceID string          `json:"instanceId"`
	Completed  bool            `json:"completed"`
	Page       *types.PageView `json:"page"`
	State      *types.State    `json:"state,omitempty"`
}

// NewSessionResponse describes a session after view was produced. State is included when
// withState is set.
func NewSessionResponse(session *funnel.Session, view *types.PageView, withState bool) SessionResponse {
	resp := SessionResponse{
		SessionID:  session.ID,
		FlowID:     session.FlowID,
		InstanceID: session.InstanceID(),
		Completed:  session.Completed(),
		Page:       view,
	}
	if withState {
		state := session.State()
		resp.State = &state
	}
	return resp
}

type startRequest struct {
	InstanceID string `json:"instanceId"`
}

type valueRequest struct {
	Value any `json:"value"`
}

type flowSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Pages int    `json:"pages"`
}

func (r *Rest) listFlows(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	flows := []flowSummary{}
	r.pool.Range(func(id string, schema *types.Schema) bool {
		flows = append(flows, flowSummary{ID: id, Name: schema.Name, Pages: len(schema.Pages)})
		return true
	})
	sort.Slice(flows, func(i, j int) bool { return flows[i].ID < flows[j].ID })
	WriteJSON(w, http.StatusOK, flows)
}

func (r *Rest) getFlow(w http.ResponseWriter, _ *http.Request, params httprouter.Params) {
	schema, ok := r.pool.Get(params.ByName(ParamFlowID))
	if !ok {
		WriteError(w, http.StatusNotFound, funnel.ErrFlowNotFound.Error())
		return
	}
	WriteJSON(w, http.StatusOK, schema)
}

func (r *Rest) startSession(w http.ResponseWriter, req *http.Request, params httprouter.Params) {
	var body startRequest
	if err := readBody(req, &body, true); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := r.sessions.Start(params.ByName(ParamFlowID), body.InstanceID)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, NewSessionResponse(session, session.View(), true))
}

func (r *Rest) getSession(w http.ResponseWriter, _ *http.Request, params httprouter.Params) {
	session, ok := r.session(w, params)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, NewSessionResponse(session, session.View(), true))
}

func (r *Rest) setValue(w http.ResponseWriter, req *http.Request, params httprouter.Params) {
	session, ok := r.session(w, params)
	if !ok {
		return
	}
	var body valueRequest
	if err := readBody(req, &body, false); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	view := session.SetValue(params.ByName(ParamBlockID), body.Value)
	WriteJSON(w, http.StatusOK, NewSessionResponse(session, view, false))
}

func (r *Rest) next(w http.ResponseWriter, _ *http.Request, params httprouter.Params) {
	session, ok := r.session(w, params)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, NewSessionResponse(session, session.Next(), false))
}

func (r *Rest) prev(w http.ResponseWriter, _ *http.Request, params httprouter.Params) {
	session, ok := r.session(w, params)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, NewSessionResponse(session, session.Prev(), false))
}

func (r *Rest) removeSession(w http.ResponseWriter, _ *http.Request, params httprouter.Params) {
	if !r.sessions.Remove(params.ByName(ParamSessionID)) {
		WriteError(w, http.StatusNotFound, funnel.ErrSessionNotFound.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Rest) session(w http.ResponseWriter, params httprouter.Params) (*funnel.Session, bool) {
	session, err := r.sessions.Get(params.ByName(ParamSessionID))
	if err != nil {
		writeSessionError(w, err)
		return nil, false
	}
	return session, true
}

func writeSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, funnel.ErrFlowNotFound) || errors.Is(err, funnel.ErrSessionNotFound) {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	WriteError(w, http.StatusInternalServerError, err.Error())
}

// readBody decodes a JSON body into v. An empty body is accepted when optional is set.
func readBody(req *http.Request, v any, optional bool) error {
	data, err := io.ReadAll(io.LimitReader(req.Body, maxBodySize))
	if err != nil {
		return err
	}
	if len(data) == 0 {
		if optional {
			return nil
		}
		return errors.New("request body is empty")
	}
	return json.Unmarshal(data, v)
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set(ContentTypeKey, JsonContentType)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// WriteError writes {"error": msg}.
func WriteError(w http.ResponseWriter, status int, msg string) {
	data, _ := json.Marshal(map[string]string{"error": msg})
	w.Header().Set(ContentTypeKey, JsonContentType)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
