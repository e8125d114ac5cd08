// Copyright 2022 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/gorse-io/spasm/internal/memimg"
	"github.com/spf13/cobra"
	"github.com/xyproto/env/v2"
)

var verbose bool

func logf(format string, args ...any) {
	if verbose {
		_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

func warnf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, "warning: "+format+"\n", args...)
}

func exitOnError(err error) {
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newPipeline builds a Pipeline from the persistent flags. A second
// positional argument overrides --output.
func newPipeline(cmd *cobra.Command, args []string) *Pipeline {
	output, _ := cmd.Flags().GetString("output")
	if len(args) > 1 {
		output = args[1]
	}
	formats, _ := cmd.Flags().GetStringSlice("format")
	lenient, _ := cmd.Flags().GetBool("lenient")
	pipeline, err := NewPipeline(output, formats, lenient)
	exitOnError(err)
	return pipeline
}

var command = &cobra.Command{
	Use:   "spasm",
	Short: "Program generator and encoder for the spatial accelerator",
}

var generateCommand = &cobra.Command{
	Use:   "generate config [output_directory]",
	Short: "Generate one assembly program per active PE",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		_, err := newPipeline(cmd, args).Generate(args[0])
		exitOnError(err)
	},
}

var assembleCommand = &cobra.Command{
	Use:   "assemble manifest [output_directory]",
	Short: "Encode the assembly programs listed in a manifest into memory images",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(newPipeline(cmd, args).Assemble(args[0]))
	},
}

var buildCommand = &cobra.Command{
	Use:   "build config [output_directory]",
	Short: "Generate and encode in one run",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(newPipeline(cmd, args).Build(args[0]))
	},
}

func init() {
	command.PersistentFlags().StringP("output", "o", env.Str("SPASM_OUTPUT", "build"), "output directory of generated files")
	command.PersistentFlags().BoolVarP(&verbose, "verbose", "v", env.Bool("SPASM_VERBOSE"), "if set, increase verbosity level")
	command.PersistentFlags().Bool("lenient", false, "skip malformed program lines with a warning instead of failing")
	command.PersistentFlags().StringSlice("format", []string{"hex", "mem"},
		"memory image artifacts to write ("+strings.Join(memimg.ListFormats(), ", ")+")")
	command.AddCommand(generateCommand, assembleCommand, buildCommand)
}

func main() {
	if err := command.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
