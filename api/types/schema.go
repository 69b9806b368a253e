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

// Package types holds the data model shared by the flow runtime, its stores and its endpoints:
// the immutable flow schema, the mutable runtime state, page views, events and configuration.
package types

import (
	"encoding/json"

	"github.com/funnelgo/funnel/utils/cast"
	"github.com/funnelgo/funnel/utils/maps"
	"gopkg.in/yaml.v3"
)

// BlockType is the discriminant of a block. The string values are the tags persisted by the editor.
type BlockType string

const (
	Heading        BlockType = "heading"
	Paragraph      BlockType = "paragraph"
	Image          BlockType = "image"
	Divider        BlockType = "divider"
	TextInput      BlockType = "text_input"
	MultipleChoice BlockType = "multiple_choice"
	Dropdown       BlockType = "dropdown"
	Slider         BlockType = "slider"
	Gauge          BlockType = "gauge"
	StatCards      BlockType = "stat_cards"
)

// IsInput reports whether blocks of this type collect an answer.
func (t BlockType) IsInput() bool {
	switch t {
	case TextInput, MultipleChoice, Dropdown, Slider:
		return true
	default:
		return false
	}
}

// IsKnown reports whether t is one of the block types the runtime knows about.
func (t BlockType) IsKnown() bool {
	switch t {
	case Heading, Paragraph, Image, Divider, TextInput, MultipleChoice, Dropdown, Slider, Gauge, StatCards:
		return true
	default:
		return false
	}
}

// ActionType is the kind of effect a rule action has when its condition holds.
type ActionType string

const (
	ActionJump     ActionType = "jump"
	ActionHide     ActionType = "hide"
	ActionAdd      ActionType = "add"
	ActionSubtract ActionType = "subtract"
	ActionMultiply ActionType = "multiply"
	ActionDivide   ActionType = "divide"
	ActionSet      ActionType = "set"
)

// IsArithmetic reports whether the action mutates a variable.
func (t ActionType) IsArithmetic() bool {
	switch t {
	case ActionAdd, ActionSubtract, ActionMultiply, ActionDivide, ActionSet:
		return true
	default:
		return false
	}
}

// Op is the operator of a condition node.
type Op string

const (
	OpAlways Op = "always"
	OpAnd    Op = "and"
	OpOr     Op = "or"
	OpEq     Op = "eq"
	OpNeq    Op = "neq"
	OpLt     Op = "lt"
	OpLte    Op = "lte"
	OpGt     Op = "gt"
	OpGte    Op = "gte"
	// OpExpr evaluates an expr-lang expression against {vars, values}.
	OpExpr Op = "expr"
)

// IsComparison reports whether the op compares two operands.
func (o Op) IsComparison() bool {
	switch o {
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte:
		return true
	default:
		return false
	}
}

// OperandType says where an operand takes its value from.
type OperandType string

const (
	OperandConstant OperandType = "constant"
	OperandVariable OperandType = "variable"
	OperandBlock    OperandType = "block"
	OperandPage     OperandType = "page"
)

// Schema is the definition of one flow. It is never mutated by the runtime.
type Schema struct {
	ID        string         `json:"id,omitempty" yaml:"id,omitempty"`
	Name      string         `json:"name,omitempty" yaml:"name,omitempty"`
	Variables map[string]any `json:"variables,omitempty" yaml:"variables,omitempty"`
	Pages     []Page         `json:"pages" yaml:"pages"`
	Rules     []RuleSet      `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// Page is an ordered group of blocks shown together.
type Page struct {
	ID     string  `json:"id" yaml:"id"`
	Title  string  `json:"title,omitempty" yaml:"title,omitempty"`
	Blocks []Block `json:"blocks" yaml:"blocks"`
}

// Block is a content or input widget on a page.
type Block struct {
	ID          string         `json:"id" yaml:"id"`
	Type        BlockType      `json:"type" yaml:"type"`
	Properties  map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`
	Validations Validations    `json:"validations,omitempty" yaml:"validations,omitempty"`
}

// RuleSet is the ordered list of actions attached to one page.
type RuleSet struct {
	PageID  string   `json:"pageId" yaml:"pageId"`
	Actions []Action `json:"actions" yaml:"actions"`
}

// Action is a conditional effect.
type Action struct {
	Type      ActionType `json:"type" yaml:"type"`
	Condition *Condition `json:"condition,omitempty" yaml:"condition,omitempty"`
	Details   Details    `json:"details" yaml:"details"`
}

// Details carries the target of an action and, for arithmetic, its right-hand operand.
type Details struct {
	Target Operand  `json:"target" yaml:"target"`
	Value  *Operand `json:"value,omitempty" yaml:"value,omitempty"`
}

// Condition is a boolean expression node.
// always has no operands, and/or use Conditions, comparators use exactly two Vars.
type Condition struct {
	Op         Op          `json:"op" yaml:"op"`
	Vars       []Operand   `json:"vars,omitempty" yaml:"vars,omitempty"`
	Conditions []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Expr       string      `json:"expr,omitempty" yaml:"expr,omitempty"`
}

// Operand references a constant, a variable, a block answer or a page.
type Operand struct {
	Type  OperandType `json:"type" yaml:"type"`
	Value any         `json:"value" yaml:"value"`
}

type operandAlias Operand

// UnmarshalJSON accepts either {"type":..,"value":..} or a bare scalar, which becomes a constant.
func (o *Operand) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '{' {
		var a operandAlias
		if err := json.Unmarshal(data, &a); err != nil {
			return err
		}
		*o = Operand(a)
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Operand{Type: OperandConstant, Value: v}
	return nil
}

// UnmarshalYAML mirrors UnmarshalJSON for YAML documents.
func (o *Operand) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.MappingNode {
		var a operandAlias
		if err := node.Decode(&a); err != nil {
			return err
		}
		*o = Operand(a)
		return nil
	}
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	*o = Operand{Type: OperandConstant, Value: v}
	return nil
}

// Name returns the operand value as a reference name (variable name, block id or page id).
func (o Operand) Name() string {
	return cast.ToJSString(o.Value)
}

// Choice is one option of a choice block.
type Choice struct {
	ID    string `mapstructure:"id"`
	Label string `mapstructure:"label"`
	Value any    `mapstructure:"value"`
}

// ChoiceProperties is the typed view of multiple_choice and dropdown properties.
type ChoiceProperties struct {
	Label    string   `mapstructure:"label"`
	Multiple bool     `mapstructure:"multiple"`
	Choices  []Choice `mapstructure:"choices"`
}

// SliderProperties is the typed view of slider and gauge properties.
type SliderProperties struct {
	Label string  `mapstructure:"label"`
	Min   float64 `mapstructure:"min"`
	Max   float64 `mapstructure:"max"`
	Step  float64 `mapstructure:"step"`
}

// ChoiceProperties decodes the block properties into a ChoiceProperties.
// Plain string choices become choices whose label and value are that string.
func (b *Block) ChoiceProperties() (ChoiceProperties, error) {
	var p ChoiceProperties
	err := maps.WeakMap2Struct(b.Properties, &p, maps.StringToStructHook(func(s string) any {
		return map[string]any{"id": s, "label": s, "value": s}
	}))
	return p, err
}

// SliderProperties decodes the block properties into a SliderProperties.
func (b *Block) SliderProperties() (SliderProperties, error) {
	var p SliderProperties
	err := maps.WeakMap2Struct(b.Properties, &p)
	return p, err
}

// PageIndex returns the index of the page with the given id, or -1.
func (s *Schema) PageIndex(id string) int {
	if s == nil || id == "" {
		return -1
	}
	for i := range s.Pages {
		if s.Pages[i].ID == id {
			return i
		}
	}
	return -1
}

// Page returns the page at index i, or nil when i is out of range.
func (s *Schema) Page(i int) *Page {
	if s == nil || i < 0 || i >= len(s.Pages) {
		return nil
	}
	return &s.Pages[i]
}

// RuleSet returns the rule set attached to pageID, or nil.
func (s *Schema) RuleSet(pageID string) *RuleSet {
	if s == nil {
		return nil
	}
	for i := range s.Rules {
		if s.Rules[i].PageID == pageID {
			return &s.Rules[i]
		}
	}
	return nil
}

// Block finds a block by id anywhere in the schema.
func (s *Schema) Block(id string) (*Block, *Page) {
	if s == nil {
		return nil, nil
	}
	for i := range s.Pages {
		p := &s.Pages[i]
		for j := range p.Blocks {
			if p.Blocks[j].ID == id {
				return &p.Blocks[j], p
			}
		}
	}
	return nil, nil
}
