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

package engine

import (
	"sync"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/funnelgo/funnel/api/types"
	"github.com/funnelgo/funnel/utils/cast"
)

const (
	MsgRequired     = "Required"
	MsgInvalidEmail = "Invalid email address"
	MsgInvalidFmt   = "Invalid format"
)

// patternMatchTimeout bounds a single pattern match so a pathological expression cannot
// stall navigation.
const patternMatchTimeout = 100 * time.Millisecond

const emailPattern = `^[^\s@]+@[^\s@]+\.[^\s@]+$`

// check reports the failure message for value under param, or "" when the rule passes.
type check func(value, param any) string

var checks = map[string]check{
	types.ValidateRequired: func(value, _ any) string {
		if cast.IsEmpty(value) {
			return MsgRequired
		}
		return ""
	},
	types.ValidateEmail: func(value, _ any) string {
		if !present(value) {
			return ""
		}
		if ok, known := matchPattern(emailPattern, cast.ToJSString(value)); known && !ok {
			return MsgInvalidEmail
		}
		return ""
	},
	types.ValidateMinLength: func(value, param any) string {
		if present(value) && float64(jsLength(cast.ToJSString(value))) < cast.ToNumber(param) {
			return "Must be at least " + cast.ToJSString(param) + " characters"
		}
		return ""
	},
	types.ValidateMaxLength: func(value, param any) string {
		if present(value) && float64(jsLength(cast.ToJSString(value))) > cast.ToNumber(param) {
			return "Must be at most " + cast.ToJSString(param) + " characters"
		}
		return ""
	},
	types.ValidateMinChoices: func(value, param any) string {
		if float64(choiceCount(value)) < cast.ToNumber(param) {
			return "Select at least " + cast.ToJSString(param) + " options"
		}
		return ""
	},
	types.ValidateMaxChoices: func(value, param any) string {
		if float64(choiceCount(value)) > cast.ToNumber(param) {
			return "Select at most " + cast.ToJSString(param) + " options"
		}
		return ""
	},
	types.ValidateMin: func(value, param any) string {
		if value != nil && cast.ToNumber(value) < cast.ToNumber(param) {
			return "Must be at least " + cast.ToJSString(param)
		}
		return ""
	},
	types.ValidateMax: func(value, param any) string {
		if value != nil && cast.ToNumber(value) > cast.ToNumber(param) {
			return "Must be at most " + cast.ToJSString(param)
		}
		return ""
	},
	types.ValidatePattern: func(value, param any) string {
		if !present(value) {
			return ""
		}
		if ok, known := matchPattern(cast.ToJSString(param), cast.ToJSString(value)); known && !ok {
			return MsgInvalidFmt
		}
		return ""
	},
}

// ValidatePage validates the current values of page's input blocks. The result maps a block id
// to the message of its first failing rule; blocks that pass are absent.
func ValidatePage(page *types.Page, state *types.State) types.ErrorMap {
	errs := types.ErrorMap{}
	if page == nil {
		return errs
	}
	var values map[string]any
	if state != nil {
		values = state.Values
	}
	for _, block := range page.Blocks {
		if !block.Type.IsInput() || len(block.Validations) == 0 {
			continue
		}
		if msg := ValidateValue(block.Validations, values[block.ID]); msg != "" {
			errs[block.ID] = msg
		}
	}
	return errs
}

// ValidateValue runs validations against value in order and returns the first failure message.
// Rules with a false or missing parameter and unknown rules are skipped.
func ValidateValue(validations types.Validations, value any) string {
	for _, v := range validations {
		if !v.Enforced() {
			continue
		}
		fn, ok := checks[v.Rule]
		if !ok {
			continue
		}
		if msg := fn(value, v.Param); msg != "" {
			return msg
		}
	}
	return ""
}

// CompilePattern compiles an ECMAScript regular expression, caching the result.
func CompilePattern(pattern string) (*regexp2.Regexp, error) {
	if v, ok := patterns.Load(pattern); ok {
		c := v.(compiledPattern)
		return c.re, c.err
	}
	re, err := regexp2.Compile(pattern, regexp2.ECMAScript)
	if re != nil {
		re.MatchTimeout = patternMatchTimeout
	}
	v, _ := patterns.LoadOrStore(pattern, compiledPattern{re: re, err: err})
	c := v.(compiledPattern)
	return c.re, c.err
}

type compiledPattern struct {
	re  *regexp2.Regexp
	err error
}

var patterns sync.Map

// matchPattern reports whether s matches pattern. known is false when the pattern does not
// compile or the match timed out, in which case the rule is skipped.
func matchPattern(pattern, s string) (ok bool, known bool) {
	re, err := CompilePattern(pattern)
	if err != nil {
		return false, false
	}
	ok, err = re.MatchString(s)
	if err != nil {
		return false, false
	}
	return ok, true
}

func present(value any) bool {
	if value == nil {
		return false
	}
	s, ok := value.(string)
	return !ok || s != ""
}

// choiceCount is the number of selected options: the list length, or one for a truthy scalar.
func choiceCount(value any) int {
	if items, ok := cast.ToSlice(value); ok {
		return len(items)
	}
	if cast.IsTruthy(value) {
		return 1
	}
	return 0
}

// jsLength counts UTF-16 code units.
func jsLength(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}
