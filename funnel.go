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

// Package funnel serves multi-page flows (quizzes, funnels, surveys) to respondents.
//
// # Usage
//
// A flow is a JSON or YAML document made of pages of blocks plus per-page rule sets:
//
//	{
//	  "id": "quiz",
//	  "variables": {"score": 0},
//	  "pages": [
//	    {"id": "start", "blocks": [
//	      {"id": "color", "type": "multiple_choice", "properties": {"choices": ["red", "blue"]}}
//	    ]},
//	    {"id": "blue-page", "blocks": [
//	      {"id": "h1", "type": "heading", "properties": {"text": "Score {{var:score}}"}}
//	    ]}
//	  ],
//	  "rules": [
//	    {"pageId": "start", "actions": [
//	      {"type": "jump",
//	       "condition": {"op": "eq", "vars": [{"type": "block", "value": "color"}, "blue"]},
//	       "details": {"target": {"type": "page", "value": "blue-page"}}}
//	    ]}
//	  ]
//	}
//
// Load flows into a pool
//
//	pool := funnel.NewPool()
//	err := pool.Load("./flows")
//
// Start a session and drive it
//
//	sessions := funnel.NewSessionManager(pool, types.WithStore(store))
//	session, err := sessions.Start("quiz", "")
//	view := session.SetValue("color", "blue")
//
// The engine package holds the runtime itself and can be used without a pool.
package funnel

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/funnelgo/funnel/api/types"
	"github.com/funnelgo/funnel/lint"
	"github.com/funnelgo/funnel/utils/fs"
)

var (
	ErrFlowNotFound    = errors.New("flow not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrFlowID          = errors.New("flow id is empty")
)

// FilePatterns are the file names Load picks up.
var FilePatterns = []string{"*.json", "*.yaml", "*.yml"}

// DefaultPool is the pool used by the package-level functions.
var DefaultPool = NewPool()

// Pool holds the loaded flows by id. Schemas in the pool are never mutated.
type Pool struct {
	flows  sync.Map
	logger types.Logger
}

// NewPool creates an empty pool. Lint warnings are reported to logger.
func NewPool(logger ...types.Logger) *Pool {
	p := &Pool{logger: types.DefaultLogger()}
	if len(logger) > 0 && logger[0] != nil {
		p.logger = logger[0]
	}
	return p
}

// Load reads every flow file under folderPath and its subfolders. A flow without an id takes
// its file name without extension.
func (p *Pool) Load(folderPath string) error {
	paths, err := fs.GetFilePaths(folderPath, FilePatterns)
	if err != nil {
		return err
	}
	for _, path := range paths {
		def := fs.LoadFile(path)
		if def == nil {
			continue
		}
		name := filepath.Base(path)
		id := name[:len(name)-len(filepath.Ext(name))]
		if _, err := p.New(id, def, FormatOf(path)); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// New parses, lints and stores a flow. The schema's own id wins over id; the schema id is set
// to id when it has none. A flow that fails lint is rejected.
func (p *Pool) New(id string, def []byte, format string) (*types.Schema, error) {
	schema, result, err := Lint(def, format)
	if err != nil {
		return nil, err
	}
	if !result.Valid() {
		return nil, result.Err()
	}
	if schema.ID == "" {
		schema.ID = id
	}
	if schema.ID == "" {
		return nil, ErrFlowID
	}
	for _, issue := range result.Warnings {
		p.logger.Printf("flow %s: %s", schema.ID, issue)
	}
	p.flows.Store(schema.ID, schema)
	return schema, nil
}

// Get returns the flow with the given id.
func (p *Pool) Get(id string) (*types.Schema, bool) {
	v, ok := p.flows.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*types.Schema), true
}

// Del removes the flow with the given id. Running sessions keep their schema.
func (p *Pool) Del(id string) {
	p.flows.Delete(id)
}

// Range calls fn for every flow until fn returns false.
func (p *Pool) Range(fn func(id string, schema *types.Schema) bool) {
	p.flows.Range(func(key, value any) bool {
		return fn(key.(string), value.(*types.Schema))
	})
}

// Lint decodes a flow definition and lints it. YAML definitions are linted through their
// JSON encoding.
func Lint(def []byte, format string) (*types.Schema, *lint.Result, error) {
	parser, err := ParserFor(format)
	if err != nil {
		return nil, nil, err
	}
	schema, err := parser.Decode(def)
	if err != nil {
		return nil, nil, fmt.Errorf("decode flow: %w", err)
	}
	doc := def
	if _, ok := parser.(*JsonParser); !ok {
		if doc, err = (&JsonParser{}).Encode(schema); err != nil {
			return nil, nil, err
		}
	}
	result, err := lint.Run(doc)
	if err != nil {
		return nil, nil, err
	}
	return schema, result, nil
}

// Load reads every flow file under folderPath into the default pool.
func Load(folderPath string) error {
	return DefaultPool.Load(folderPath)
}

// New parses, lints and stores a flow in the default pool.
func New(id string, def []byte, format string) (*types.Schema, error) {
	return DefaultPool.New(id, def, format)
}

// Get returns a flow from the default pool.
func Get(id string) (*types.Schema, bool) {
	return DefaultPool.Get(id)
}

// Del removes a flow from the default pool.
func Del(id string) {
	DefaultPool.Del(id)
}
