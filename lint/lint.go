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

// Package lint checks flow documents before they are served. Structural problems are found
// with an embedded JSON Schema, then the decoded flow is checked for dangling references and
// unusable rules.
//
// Errors make a flow unloadable. Warnings describe constructs the runtime tolerates by
// ignoring them.
package lint

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/funnelgo/funnel/api/types"
	"github.com/funnelgo/funnel/engine"
	"github.com/funnelgo/funnel/utils/cast"
	"github.com/funnelgo/funnel/utils/el"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Issue is one finding. Path locates it in the document, e.g. "pages[1].blocks[0]".
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// Result holds the findings of a lint run.
type Result struct {
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Valid reports whether the flow has no errors.
func (r *Result) Valid() bool {
	return len(r.Errors) == 0
}

// Err joins the errors into one error, or returns nil.
func (r *Result) Err() error {
	if r.Valid() {
		return nil
	}
	var errs []error
	for _, issue := range r.Errors {
		errs = append(errs, errors.New(issue.String()))
	}
	return errors.Join(errs...)
}

func (r *Result) errorf(path, format string, args ...any) {
	r.Errors = append(r.Errors, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (r *Result) warnf(path, format string, args ...any) {
	r.Warnings = append(r.Warnings, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
}

var (
	compileOnce sync.Once
	flowSchema  *jsonschema.Schema
	compileErr  error
)

func structure() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource("flow.json", strings.NewReader(flowSchemaJSON)); err != nil {
			compileErr = fmt.Errorf("add flow schema: %w", err)
			return
		}
		flowSchema, compileErr = compiler.Compile("flow.json")
	})
	return flowSchema, compileErr
}

// Run lints a JSON flow document. The error is non-nil only when the document is not JSON.
func Run(data []byte) (*Result, error) {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode flow: %w", err)
	}
	schema, err := structure()
	if err != nil {
		return nil, err
	}
	result := &Result{}
	if err := schema.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			collect(result, verr)
		} else {
			result.errorf("", "%v", err)
		}
		return result, nil
	}
	var flow types.Schema
	if err := json.Unmarshal(data, &flow); err != nil {
		result.errorf("", "%v", err)
		return result, nil
	}
	checked := Check(&flow)
	result.Errors = append(result.Errors, checked.Errors...)
	result.Warnings = append(result.Warnings, checked.Warnings...)
	return result, nil
}

// collect flattens the leaves of a validation error tree.
func collect(result *Result, verr *jsonschema.ValidationError) {
	if len(verr.Causes) == 0 {
		result.errorf(verr.InstanceLocation, "%s", verr.Message)
		return
	}
	for _, cause := range verr.Causes {
		collect(result, cause)
	}
}

// Check runs the semantic checks on a decoded flow.
func Check(schema *types.Schema) *Result {
	result := &Result{}
	if schema == nil {
		result.errorf("", "flow is empty")
		return result
	}
	c := checker{
		schema:    schema,
		result:    result,
		pages:     map[string]bool{},
		blocks:    map[string]bool{},
		variables: map[string]bool{},
	}
	c.collectDeclarations()
	c.checkPages()
	c.checkRules()
	return result
}

type checker struct {
	schema    *types.Schema
	result    *Result
	pages     map[string]bool
	blocks    map[string]bool
	variables map[string]bool
}

func (c *checker) collectDeclarations() {
	for name := range c.schema.Variables {
		c.variables[name] = true
	}
	for i, page := range c.schema.Pages {
		if c.pages[page.ID] {
			c.result.errorf(fmt.Sprintf("pages[%d]", i), "duplicate page id %q", page.ID)
		}
		c.pages[page.ID] = true
		for j, block := range page.Blocks {
			if c.blocks[block.ID] {
				c.result.errorf(fmt.Sprintf("pages[%d].blocks[%d]", i, j), "duplicate block id %q", block.ID)
			}
			c.blocks[block.ID] = true
		}
	}
	// arithmetic actions may introduce variables the flow does not declare
	for _, ruleSet := range c.schema.Rules {
		for _, action := range ruleSet.Actions {
			if action.Type.IsArithmetic() && action.Details.Target.Type == types.OperandVariable {
				c.variables[action.Details.Target.Name()] = true
			}
		}
	}
}

func (c *checker) checkPages() {
	for i, page := range c.schema.Pages {
		for j, block := range page.Blocks {
			path := fmt.Sprintf("pages[%d].blocks[%d]", i, j)
			if !block.Type.IsKnown() {
				c.result.warnf(path, "unknown block type %q", block.Type)
			}
			if block.Type == types.MultipleChoice || block.Type == types.Dropdown {
				props, err := block.ChoiceProperties()
				if err != nil {
					c.result.warnf(path, "unreadable choice properties: %v", err)
				} else if len(props.Choices) == 0 {
					c.result.warnf(path, "%s block has no choices", block.Type)
				}
			}
			if block.Type == types.Slider {
				c.checkSlider(path, block)
			}
			if pattern, ok := block.Validations.Get(types.ValidatePattern); ok && (types.Validation{Param: pattern}).Enforced() {
				if _, err := engine.CompilePattern(cast.ToJSString(pattern)); err != nil {
					c.result.errorf(path+".validations.pattern", "invalid pattern: %v", err)
				}
			}
			for _, ref := range engine.Placeholders(block.Properties) {
				c.checkReference(path+".properties", ref.Kind, ref.Name)
			}
		}
	}
}

func (c *checker) checkSlider(path string, block types.Block) {
	props, err := block.SliderProperties()
	if err != nil {
		c.result.warnf(path, "unreadable slider properties: %v", err)
		return
	}
	_, hasMin := block.Properties["min"]
	_, hasMax := block.Properties["max"]
	if hasMin && hasMax && props.Max < props.Min {
		c.result.warnf(path, "slider max %v is below min %v", props.Max, props.Min)
	}
}

func (c *checker) checkReference(path, kind, name string) {
	switch kind {
	case "var":
		if !c.variables[name] {
			c.result.warnf(path, "unknown variable %q", name)
		}
	case "block":
		if !c.blocks[name] {
			c.result.warnf(path, "unknown block %q", name)
		}
	}
}

func (c *checker) checkRules() {
	seen := map[string]bool{}
	for i, ruleSet := range c.schema.Rules {
		path := fmt.Sprintf("rules[%d]", i)
		if !c.pages[ruleSet.PageID] {
			c.result.errorf(path, "rule set for unknown page %q", ruleSet.PageID)
		}
		if seen[ruleSet.PageID] {
			c.result.errorf(path, "duplicate rule set for page %q", ruleSet.PageID)
		}
		seen[ruleSet.PageID] = true
		for j, action := range ruleSet.Actions {
			c.checkAction(fmt.Sprintf("%s.actions[%d]", path, j), action)
		}
	}
}

func (c *checker) checkAction(path string, action types.Action) {
	if action.Condition != nil {
		c.checkCondition(path+".condition", action.Condition)
	}
	target := action.Details.Target
	switch {
	case action.Type == types.ActionJump:
		if !c.pages[target.Name()] {
			c.result.warnf(path, "jump to unknown page %q", target.Name())
		}
	case action.Type == types.ActionHide:
		if target.Type != types.OperandBlock {
			c.result.warnf(path, "hide target must be a block, got %q", target.Type)
		} else if !c.blocks[target.Name()] {
			c.result.warnf(path, "hide of unknown block %q", target.Name())
		}
	case action.Type.IsArithmetic():
		if target.Type != types.OperandVariable {
			c.result.warnf(path, "%s target must be a variable, got %q", action.Type, target.Type)
		}
		if action.Details.Value == nil {
			c.result.warnf(path, "%s has no value", action.Type)
		} else {
			c.checkOperand(path+".details.value", *action.Details.Value)
		}
	default:
		c.result.warnf(path, "unknown action type %q", action.Type)
	}
}

func (c *checker) checkCondition(path string, cond *types.Condition) {
	switch {
	case cond.Op == types.OpAlways:
	case cond.Op == types.OpAnd || cond.Op == types.OpOr:
		for i := range cond.Conditions {
			c.checkCondition(fmt.Sprintf("%s.conditions[%d]", path, i), &cond.Conditions[i])
		}
	case cond.Op.IsComparison():
		if len(cond.Vars) < 2 {
			c.result.warnf(path, "%s needs two operands", cond.Op)
		}
		for i, operand := range cond.Vars {
			c.checkOperand(fmt.Sprintf("%s.vars[%d]", path, i), operand)
		}
	case cond.Op == types.OpExpr:
		if _, err := el.CompileBool(cond.Expr); err != nil {
			c.result.errorf(path, "invalid expression: %v", err)
		}
	default:
		c.result.warnf(path, "unknown condition op %q", cond.Op)
	}
}

func (c *checker) checkOperand(path string, operand types.Operand) {
	switch operand.Type {
	case types.OperandVariable:
		c.checkReference(path, "var", operand.Name())
	case types.OperandBlock:
		c.checkReference(path, "block", operand.Name())
	}
}
