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

package types

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Validation rule names understood by the validator.
const (
	ValidateRequired   = "required"
	ValidateEmail      = "email"
	ValidateMinLength  = "minLength"
	ValidateMaxLength  = "maxLength"
	ValidateMinChoices = "minChoices"
	ValidateMaxChoices = "maxChoices"
	ValidateMin        = "min"
	ValidateMax        = "max"
	ValidatePattern    = "pattern"
)

// Validation is one rule name and its parameter. A false or nil parameter disables the rule.
type Validation struct {
	Rule  string
	Param any
}

// Enforced reports whether the rule is switched on.
func (v Validation) Enforced() bool {
	if v.Param == nil {
		return false
	}
	if b, ok := v.Param.(bool); ok && !b {
		return false
	}
	return true
}

// Validations keeps the rules of a block in the order they were declared,
// which is the order they are checked in.
type Validations []Validation

// Get returns the parameter of the named rule.
func (v Validations) Get(rule string) (any, bool) {
	for _, item := range v {
		if item.Rule == rule {
			return item.Param, true
		}
	}
	return nil, false
}

// MarshalJSON writes the rules as an object, preserving order.
func (v Validations) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, item := range v {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(item.Rule)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(item.Param)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of rule name to parameter, keeping the key order.
func (v *Validations) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*v = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("validations: expected object, got %v", tok)
	}
	result := Validations{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("validations: expected string key, got %v", keyTok)
		}
		var param any
		if err := dec.Decode(&param); err != nil {
			return fmt.Errorf("validations.%s: %w", key, err)
		}
		result = append(result, Validation{Rule: key, Param: param})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*v = result
	return nil
}

// UnmarshalYAML reads a mapping node, keeping the key order.
func (v *Validations) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*v = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("validations: expected mapping at line %d", node.Line)
	}
	result := make(Validations, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var param any
		if err := node.Content[i+1].Decode(&param); err != nil {
			return fmt.Errorf("validations.%s: %w", node.Content[i].Value, err)
		}
		result = append(result, Validation{Rule: node.Content[i].Value, Param: param})
	}
	*v = result
	return nil
}

// MarshalYAML writes the rules as a mapping, preserving order.
func (v Validations) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, item := range v {
		val := &yaml.Node{}
		if err := val.Encode(item.Param); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: item.Rule}, val)
	}
	return node, nil
}
