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
	"fmt"
	"io"
	"os"

	"github.com/funnelgo/funnel"
	"github.com/spf13/cobra"
)

func newLintCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "lint <file>...",
		Short: "Check flow files for structural and semantic problems",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			errorCount, warningCount := lintFiles(cmd.OutOrStdout(), args)
			if errorCount > 0 || (strict && warningCount > 0) {
				return fmt.Errorf("%d errors, %d warnings", errorCount, warningCount)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on warnings too")
	return cmd
}

// lintFiles prints one line per issue and returns the error and warning counts. An unreadable
// or undecodable file counts as one error.
func lintFiles(out io.Writer, paths []string) (int, int) {
	errorCount, warningCount := 0, 0
	for _, path := range paths {
		def, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(out, "%s: error: %v\n", path, err)
			errorCount++
			continue
		}
		_, result, err := funnel.Lint(def, funnel.FormatOf(path))
		if err != nil {
			fmt.Fprintf(out, "%s: error: %v\n", path, err)
			errorCount++
			continue
		}
		for _, issue := range result.Errors {
			fmt.Fprintf(out, "%s: error: %s\n", path, issue)
		}
		for _, issue := range result.Warnings {
			fmt.Fprintf(out, "%s: warning: %s\n", path, issue)
		}
		if len(result.Errors) == 0 && len(result.Warnings) == 0 {
			fmt.Fprintf(out, "%s: ok\n", path)
		}
		errorCount += len(result.Errors)
		warningCount += len(result.Warnings)
	}
	return errorCount, warningCount
}
