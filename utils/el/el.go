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

// Package el compiles and runs expr-lang expressions used by expression conditions.
// Programs are compiled once per distinct source and shared by all sessions.
package el

import (
	"errors"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

var ErrEmptyExpr = errors.New("empty expression")

type compiled struct {
	program *vm.Program
	err     error
}

var programs sync.Map

// CompileBool compiles a boolean expression, caching the program (or the compile error)
// for later calls with the same source.
func CompileBool(expression string) (*vm.Program, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, ErrEmptyExpr
	}
	if v, ok := programs.Load(expression); ok {
		c := v.(compiled)
		return c.program, c.err
	}
	program, err := expr.Compile(expression, expr.AllowUndefinedVariables(), expr.AsBool())
	v, _ := programs.LoadOrStore(expression, compiled{program: program, err: err})
	c := v.(compiled)
	return c.program, c.err
}

// EvalBool compiles (or reuses) the expression and runs it against env.
func EvalBool(expression string, env map[string]interface{}) (bool, error) {
	program, err := CompileBool(expression)
	if err != nil {
		return false, err
	}
	out, err := vm.Run(program, env)
	if err != nil {
		return false, err
	}
	result, _ := out.(bool)
	return result, nil
}
