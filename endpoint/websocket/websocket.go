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


// Package websocket drives a session over one websocket connection.
//
// Client frames:
//
//	{"op":"setValue","blockId":"color","value":"blue"}
//	{"op":"next"}
//	{"op":"prev"}
//	{"op":"view"}
//
// Every frame is answered with the session response of the rest package, or {"error": msg}.
package websocket

import (
	"net/http"
	"time"

	"github.com/funnelgo/funnel"
	"github.com/funnelgo/funnel/api/types"
	"github.com/funnelgo/funnel/endpoint/rest"
	"github.com/funnelgo/funnel/utils/json"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

// Path is the route the endpoint registers on the rest router.
const Path = "/api/v1/sessions/:sessionId/ws"

const (
	OpSetValue = "setValue"
	OpNext     = "next"
	OpPrev     = "prev"
	OpView     = "view"
)

// Frame is a client request.
type Frame struct {
	Op      string `json:"op"`
	BlockID string `json:"blockId,omitempty"`
	Value   any    `json:"value,omitempty"`
}

type errorFrame struct {
	Error string `json:"error"`
}

// Websocket upgrades session requests and serves frames until the client disconnects.
type Websocket struct {
	Upgrader websocket.Upgrader
	// WriteTimeout bounds writing one reply.
	WriteTimeout time.Duration
	sessions     *funnel.SessionManager
	logger       types.Logger
}

func New(sessions *funnel.SessionManager) *Websocket {
	return &Websocket{
		Upgrader:     websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		WriteTimeout: 10 * time.Second,
		sessions:     sessions,
		logger:       sessions.Logger(),
	}
}

// Register mounts the endpoint on r's router, sharing its listener.
func (ws *Websocket) Register(r *rest.Rest) *Websocket {
	r.GET(Path, ws.handler)
	return ws
}

func (ws *Websocket) handler(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	sessionID := params.ByName(rest.ParamSessionID)
	if _, err := ws.sessions.Get(sessionID); err != nil {
		rest.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	c, err := ws.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.logger.Printf("websocket upgrade: %v", err)
		return
	}
	defer c.Close()

	for {
		mt, message, err := c.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				ws.logger.Printf("websocket session %s read: %v", sessionID, err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		// the session may have been swept or removed since the last frame
		session, err := ws.sessions.Get(sessionID)
		if err != nil {
			ws.write(c, mt, sessionID, errorFrame{Error: err.Error()})
			_ = c.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, err.Error()),
				time.Now().Add(ws.WriteTimeout))
			return
		}
		if !ws.write(c, mt, sessionID, ws.serve(session, message)) {
			return
		}
	}
}

func (ws *Websocket) write(c *websocket.Conn, mt int, sessionID string, reply any) bool {
	data, err := json.Marshal(reply)
	if err != nil {
		data, _ = json.Marshal(errorFrame{Error: err.Error()})
	}
	_ = c.SetWriteDeadline(time.Now().Add(ws.WriteTimeout))
	if err := c.WriteMessage(mt, data); err != nil {
		ws.logger.Printf("websocket session %s write: %v", sessionID, err)
		return false
	}
	return true
}

func (ws *Websocket) serve(session *funnel.Session, message []byte) any {
	var frame Frame
	if err := json.Unmarshal(message, &frame); err != nil {
		return errorFrame{Error: "invalid frame: " + err.Error()}
	}
	var view *types.PageView
	switch frame.Op {
	case OpSetValue:
		if frame.BlockID == "" {
			return errorFrame{Error: "blockId is required"}
		}
		view = session.SetValue(frame.BlockID, frame.Value)
	case OpNext:
		view = session.Next()
	case OpPrev:
		view = session.Prev()
	case OpView:
		view = session.View()
	default:
		return errorFrame{Error: "unknown op " + frame.Op}
	}
	return rest.NewSessionResponse(session, view, false)
}
