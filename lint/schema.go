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

package lint

// flowSchemaJSON describes the shape of a flow document.
const flowSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "flow.json",
  "title": "Flow",
  "type": "object",
  "required": ["pages"],
  "properties": {
    "id": {"type": "string"},
    "name": {"type": "string"},
    "variables": {
      "type": "object",
      "additionalProperties": {"type": ["number", "string", "boolean", "null"]}
    },
    "pages": {"type": "array", "items": {"$ref": "#/$defs/page"}},
    "rules": {"type": ["array", "null"], "items": {"$ref": "#/$defs/ruleSet"}}
  },
  "$defs": {
    "page": {
      "type": "object",
      "required": ["id"],
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "title": {"type": "string"},
        "blocks": {"type": ["array", "null"], "items": {"$ref": "#/$defs/block"}}
      }
    },
    "block": {
      "type": "object",
      "required": ["id", "type"],
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "type": {"type": "string", "minLength": 1},
        "properties": {"type": "object"},
        "validations": {"type": "object"}
      }
    },
    "ruleSet": {
      "type": "object",
      "required": ["pageId", "actions"],
      "properties": {
        "pageId": {"type": "string", "minLength": 1},
        "actions": {"type": ["array", "null"], "items": {"$ref": "#/$defs/action"}}
      }
    },
    "action": {
      "type": "object",
      "required": ["type", "details"],
      "properties": {
        "type": {"type": "string"},
        "condition": {"$ref": "#/$defs/condition"},
        "details": {
          "type": "object",
          "required": ["target"],
          "properties": {
            "target": {"$ref": "#/$defs/operand"},
            "value": {"$ref": "#/$defs/operand"}
          }
        }
      }
    },
    "condition": {
      "type": "object",
      "required": ["op"],
      "properties": {
        "op": {"type": "string"},
        "vars": {"type": "array", "items": {"$ref": "#/$defs/operand"}},
        "conditions": {"type": "array", "items": {"$ref": "#/$defs/condition"}},
        "expr": {"type": "string"}
      }
    },
    "operand": {
      "anyOf": [
        {
          "type": "object",
          "required": ["type"],
          "properties": {
            "type": {"enum": ["constant", "variable", "block", "page"]}
          }
        },
        {"type": ["string", "number", "boolean", "null"]}
      ]
    }
  }
}`
