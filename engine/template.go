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
	"regexp"
	"strings"

	"github.com/funnelgo/funnel/api/types"
	"github.com/funnelgo/funnel/utils/cast"
)

const (
	placeholderVar   = "var"
	placeholderBlock = "block"
)

// placeholderRe matches {{var:NAME}} and {{block:ID}}.
var placeholderRe = regexp.MustCompile(`\{\{\s*(var|block)\s*:([^}]*)\}\}`)

// ResolveTemplates returns a copy of value with every placeholder in every string replaced.
// Slices and maps are copied recursively; other values are returned unchanged.
func ResolveTemplates(value any, state *types.State) any {
	switch v := value.(type) {
	case string:
		return resolveString(v, state)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = ResolveTemplates(item, state)
		}
		return out
	case []string:
		out := make([]string, len(v))
		for i, item := range v {
			out[i] = resolveString(item, state)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = ResolveTemplates(item, state)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(v))
		for k, item := range v {
			out[k] = resolveString(item, state)
		}
		return out
	default:
		return value
	}
}

func resolveString(s string, state *types.State) string {
	if !strings.Contains(s, "{{") {
		return s
	}
	return placeholderRe.ReplaceAllStringFunc(s, func(match string) string {
		groups := placeholderRe.FindStringSubmatch(match)
		name := strings.TrimSpace(groups[2])
		var v any
		if state != nil {
			switch groups[1] {
			case placeholderVar:
				v = state.Variables[name]
			case placeholderBlock:
				v = state.Values[name]
			}
		}
		return formatPlaceholder(v)
	})
}

// formatPlaceholder renders a looked-up value: nothing for a missing value, ", " between
// the elements of an answer list.
func formatPlaceholder(v any) string {
	if v == nil {
		return ""
	}
	if items, ok := cast.ToSlice(v); ok {
		return cast.Join(items, ", ")
	}
	return cast.ToJSString(v)
}

// resolveBlock returns a copy of block with its properties resolved.
func resolveBlock(block types.Block, state *types.State) types.Block {
	out := block
	if block.Properties != nil {
		out.Properties = ResolveTemplates(block.Properties, state).(map[string]any)
	}
	if block.Validations != nil {
		out.Validations = append(types.Validations(nil), block.Validations...)
	}
	return out
}

// Placeholder is one {{kind:name}} reference found in a template.
type Placeholder struct {
	Kind string
	Name string
}

// Placeholders lists the placeholders referenced anywhere in value, in no particular order.
func Placeholders(value any) []Placeholder {
	var out []Placeholder
	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case string:
			for _, m := range placeholderRe.FindAllStringSubmatch(t, -1) {
				out = append(out, Placeholder{Kind: m[1], Name: strings.TrimSpace(m[2])})
			}
		case []any:
			for _, item := range t {
				walk(item)
			}
		case []string:
			for _, item := range t {
				walk(item)
			}
		case map[string]any:
			for _, item := range t {
				walk(item)
			}
		case map[string]string:
			for _, item := range t {
				walk(item)
			}
		}
	}
	walk(value)
	return out
}
