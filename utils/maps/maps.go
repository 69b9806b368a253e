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

package maps

import (
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// WeakMap2Struct decodes a configuration map into output, a pointer to a struct. Input is
// weakly typed ("true" decodes into a bool, 1 into a string field) and hooks run in order.
func WeakMap2Struct(input interface{}, output interface{}, hooks ...mapstructure.DecodeHookFunc) error {
	cfg := &mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           output,
	}
	if len(hooks) > 0 {
		cfg.DecodeHook = mapstructure.ComposeDecodeHookFunc(hooks...)
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// StringToStructHook returns a decode hook that expands a string into the value returned
// by expand whenever a struct is expected, e.g. "red" into {"label":"red","value":"red"}.
func StringToStructHook(expand func(s string) interface{}) mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t.Kind() != reflect.Struct {
			return data, nil
		}
		return expand(reflect.ValueOf(data).String()), nil
	}
}
