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
	"fmt"
	"path/filepath"
	"strings"

	"github.com/funnelgo/funnel/api/types"
	"github.com/funnelgo/funnel/utils/json"
	"gopkg.in/yaml.v3"
)

// Flow definition formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Parser decodes and encodes flow definitions.
type Parser interface {
	Decode(def []byte) (*types.Schema, error)
	Encode(schema *types.Schema) ([]byte, error)
}

// JsonParser reads and writes flow definitions as JSON.
type JsonParser struct {
}

func (p *JsonParser) Decode(def []byte) (*types.Schema, error) {
	var schema types.Schema
	if err := json.Unmarshal(def, &schema); err != nil {
		return nil, err
	}
	return &schema, nil
}

func (p *JsonParser) Encode(schema *types.Schema) ([]byte, error) {
	return json.Marshal(schema)
}

// YamlParser reads and writes flow definitions as YAML.
type YamlParser struct {
}

func (p *YamlParser) Decode(def []byte) (*types.Schema, error) {
	var schema types.Schema
	if err := yaml.Unmarshal(def, &schema); err != nil {
		return nil, err
	}
	return &schema, nil
}

func (p *YamlParser) Encode(schema *types.Schema) ([]byte, error) {
	return yaml.Marshal(schema)
}

// ParserFor returns the parser for a format name. An empty format means JSON.
func ParserFor(format string) (Parser, error) {
	switch strings.ToLower(format) {
	case "", FormatJSON:
		return &JsonParser{}, nil
	case FormatYAML, "yml":
		return &YamlParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported flow format %q", format)
	}
}

// FormatOf derives the format of a flow file from its extension.
func FormatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}
