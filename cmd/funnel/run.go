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

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/funnelgo/funnel"
	"github.com/funnelgo/funnel/api/types"
	"github.com/funnelgo/funnel/engine"
	"github.com/funnelgo/funnel/utils/json"
	"github.com/spf13/cobra"
)

// step is one line of a replay script.
type step struct {
	Op      string `json:"op"`
	BlockID string `json:"blockId,omitempty"`
	Value   any    `json:"value,omitempty"`
}

func newRunCmd() *cobra.Command {
	var showEvents bool
	cmd := &cobra.Command{
		Use:   "run <flow> <script>",
		Short: "Replay a JSON-lines script of setValue/next/prev steps and print every page view",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			parser, err := funnel.ParserFor(funnel.FormatOf(args[0]))
			if err != nil {
				return err
			}
			schema, err := parser.Decode(def)
			if err != nil {
				return err
			}
			script, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer script.Close()
			return replay(schema, script, cmd.OutOrStdout(), showEvents)
		},
	}
	cmd.Flags().BoolVar(&showEvents, "events", false, "print navigator events")
	return cmd
}

// replay drives a navigator with the script and writes the page view after every step.
// Blank lines and lines starting with # are skipped.
func replay(schema *types.Schema, script io.Reader, out io.Writer, showEvents bool) error {
	opts := []types.Option{types.WithLogger(types.DiscardLogger()), types.WithInstanceID("replay")}
	if showEvents {
		opts = append(opts, types.WithEventSink(types.EventSinkFunc(func(event types.Event) error {
			fmt.Fprintf(out, "event %s page=%s\n", event.Type, event.PageID)
			return nil
		})))
	}
	nav := engine.New(schema, opts...)
	if err := printView(out, "start", nav); err != nil {
		return err
	}

	scanner := bufio.NewScanner(script)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var s step
		if err := json.Unmarshal([]byte(text), &s); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		switch s.Op {
		case "setValue":
			if s.BlockID == "" {
				return fmt.Errorf("line %d: setValue needs a blockId", line)
			}
			nav.SetValue(s.BlockID, s.Value)
		case "next":
			nav.Next()
		case "prev":
			nav.Prev()
		default:
			return fmt.Errorf("line %d: unknown op %q", line, s.Op)
		}
		if err := printView(out, fmt.Sprintf("%d %s", line, s.Op), nav); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	state := nav.State()
	fmt.Fprintf(out, "# completed=%t\n", state.Completed)
	data, err := json.MarshalIndent(state.Values)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\n", data)
	return err
}

func printView(out io.Writer, label string, nav *engine.Navigator) error {
	data, err := json.MarshalIndent(nav.Page())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "# %s\n%s\n", label, data)
	return err
}
