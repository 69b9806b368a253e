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

package funnel

import (
	"sync"
	"time"

	"github.com/funnelgo/funnel/api/types"
	"github.com/funnelgo/funnel/engine"
	"github.com/funnelgo/funnel/utils/cache"
	"github.com/gofrs/uuid/v5"
)

// Session is one respondent walking through one flow. Its methods are safe for concurrent use.
type Session struct {
	ID     string
	FlowID string

	mu         sync.Mutex
	nav        *engine.Navigator
	lastActive time.Time
}

func newSession(id, flowID string, nav *engine.Navigator) *Session {
	return &Session{ID: id, FlowID: flowID, nav: nav, lastActive: time.Now()}
}

// SetValue records an answer and returns the resulting view, which may be a later page when
// the answer auto-advanced the flow.
func (s *Session) SetValue(blockID string, value any) *types.PageView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
	s.nav.SetValue(blockID, value)
	return s.nav.Page()
}

// Next validates the current page and advances. The view carries the errors when it did not.
func (s *Session) Next() *types.PageView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
	s.nav.Next()
	return s.nav.Page()
}

// Prev goes back one page.
func (s *Session) Prev() *types.PageView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
	s.nav.Prev()
	return s.nav.Page()
}

// View returns the current page view.
func (s *Session) View() *types.PageView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
	return s.nav.Page()
}

// State returns a copy of the runtime state.
func (s *Session) State() types.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav.State()
}

func (s *Session) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav.Completed()
}

func (s *Session) InstanceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav.InstanceID()
}

// LastActive is the time of the last call that read or changed the session.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// snapshot is what a swept session leaves behind.
type snapshot struct {
	flowID     string
	instanceID string
	state      types.State
}

// SessionManager starts, finds and expires sessions over the flows of a pool.
type SessionManager struct {
	pool   *Pool
	opts   []types.Option
	logger types.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	snapshots   *cache.MemoryCache
	snapshotTTL time.Duration
}

// NewSessionManager creates a manager. opts are applied to every navigator it creates, so
// the store, event sink and logger given here are shared by all sessions.
func NewSessionManager(pool *Pool, opts ...types.Option) *SessionManager {
	if pool == nil {
		pool = DefaultPool
	}
	config := types.NewConfig(opts...)
	return &SessionManager{
		pool:     pool,
		opts:     opts,
		logger:   types.NewLogger(config.Logger),
		sessions: map[string]*Session{},
	}
}

// EnableSnapshots keeps the state of swept sessions for ttl so that Get can bring them back.
// It must be called before the manager is used.
func (m *SessionManager) EnableSnapshots(ttl time.Duration) *SessionManager {
	if ttl > 0 {
		m.snapshotTTL = ttl
		m.snapshots = cache.NewMemoryCache(ttl)
	}
	return m
}

// Start begins a session on the flow. instanceID keys the stored answers, so starting again
// with the same instance id resumes them; it defaults to the new session id.
func (m *SessionManager) Start(flowID, instanceID string) (*Session, error) {
	schema, ok := m.pool.Get(flowID)
	if !ok {
		return nil, ErrFlowNotFound
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	sessionID := id.String()
	if instanceID == "" {
		instanceID = sessionID
	}
	nav := engine.New(schema, m.navigatorOptions(sessionID, schema.ID, instanceID)...)
	session := newSession(sessionID, schema.ID, nav)

	m.mu.Lock()
	m.sessions[sessionID] = session
	m.mu.Unlock()
	return session, nil
}

func (m *SessionManager) navigatorOptions(sessionID, flowID, instanceID string) []types.Option {
	opts := make([]types.Option, 0, len(m.opts)+3)
	opts = append(opts, m.opts...)
	return append(opts,
		types.WithSessionID(sessionID),
		types.WithFlowID(flowID),
		types.WithInstanceID(instanceID),
	)
}

// Get returns a live session, reviving it from its snapshot when it was swept recently.
func (m *SessionManager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	session, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if ok {
		return session, nil
	}
	return m.revive(sessionID)
}

func (m *SessionManager) revive(sessionID string) (*Session, error) {
	if m.snapshots == nil {
		return nil, ErrSessionNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if session, ok := m.sessions[sessionID]; ok {
		return session, nil
	}
	v, ok := m.snapshots.Take(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	snap := v.(snapshot)
	schema, ok := m.pool.Get(snap.flowID)
	if !ok {
		return nil, ErrFlowNotFound
	}
	nav := engine.Resume(schema, snap.state, m.navigatorOptions(sessionID, snap.flowID, snap.instanceID)...)
	session := newSession(sessionID, snap.flowID, nav)
	m.sessions[sessionID] = session
	return session, nil
}

// Remove ends a session. Stored answers are kept for the instance id.
func (m *SessionManager) Remove(sessionID string) bool {
	m.mu.Lock()
	_, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	if m.snapshots != nil {
		if _, found := m.snapshots.Take(sessionID); found {
			ok = true
		}
	}
	return ok
}

// Sweep removes the sessions idle for longer than idle and returns how many were removed.
// With snapshots enabled a session's snapshot is stored before it leaves the live set, so Get
// always finds one or the other.
func (m *SessionManager) Sweep(idle time.Duration) int {
	deadline := time.Now().Add(-idle)
	removed := 0

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, session := range m.sessions {
		if !session.LastActive().Before(deadline) {
			continue
		}
		if m.snapshots != nil {
			m.snapshots.Set(id, snapshot{
				flowID:     session.FlowID,
				instanceID: session.InstanceID(),
				state:      session.State(),
			}, m.snapshotTTL)
		}
		delete(m.sessions, id)
		removed++
	}
	return removed
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Range calls fn for every live session until fn returns false.
func (m *SessionManager) Range(fn func(session *Session) bool) {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	m.mu.RUnlock()
	for _, session := range sessions {
		if !fn(session) {
			return
		}
	}
}

// Logger returns the logger shared by the manager's sessions.
func (m *SessionManager) Logger() types.Logger {
	return m.logger
}

// Close stops background work.
func (m *SessionManager) Close() {
	if m.snapshots != nil {
		m.snapshots.StopGC()
	}
}
