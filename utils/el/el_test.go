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

package el

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvalBool(t *testing.T) {
	env := map[string]interface{}{
		"vars":   map[string]interface{}{"score": float64(5)},
		"values": map[string]interface{}{"color": "blue"},
	}
	ok, err := EvalBool("vars.score > 3 && values.color == 'blue'", env)
	assert.Nil(t, err)
	assert.True(t, ok)

	ok, err = EvalBool("vars.score > 10", env)
	assert.Nil(t, err)
	assert.False(t, ok)

	ok, err = EvalBool("values.missing == nil", env)
	assert.Nil(t, err)
	assert.True(t, ok)
}

func TestCompileBoolErrors(t *testing.T) {
	_, err := CompileBool("  ")
	assert.Equal(t, ErrEmptyExpr, err)

	_, err = CompileBool("vars.score >")
	assert.NotNil(t, err)
	// cached error is returned again
	_, err2 := CompileBool("vars.score >")
	assert.Equal(t, err, err2)

	_, err = EvalBool("1 +", nil)
	assert.NotNil(t, err)
}

func TestCompileBoolCaches(t *testing.T) {
	p1, err := CompileBool("true")
	assert.Nil(t, err)
	p2, _ := CompileBool(" true ")
	assert.True(t, p1 == p2)
}
