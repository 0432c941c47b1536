// Copyright (c) 2024 The Falcon Contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/paanil/mug/compiler"
	"github.com/paanil/mug/compiler/diag"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// stageFlag is a boolean-shaped pflag.Value: -s and -c each get their
// own instance, but both write through to the same *compiler.Stage,
// so whichever one pflag parses last (in command-line order) is the
// one left standing, matching the "later flag wins" rule.
type stageFlag struct {
	target *compiler.Stage
	value  compiler.Stage
}

func (f *stageFlag) String() string     { return "" }
func (f *stageFlag) Type() string       { return "bool" }
func (f *stageFlag) IsBoolFlag() bool   { return true }
func (f *stageFlag) Set(_ string) error { *f.target = f.value; return nil }

func main() {
	os.Exit(run(os.Args[1:]))
}

// knownFlags are every flag mug actually recognises, spelled both
// short and long since pflag accepts either.
var knownFlags = map[string]bool{
	"-s": true, "--s": true,
	"-c": true, "--c": true,
	"-o": true, "--o": true,
	"-h": true, "--help": true,
}

// stripUnknownFlags warns about and removes any "-"-prefixed argument
// mug doesn't recognise, so an unrecognised flag degrades to a
// warning instead of the hard parse error pflag would otherwise raise.
// -o's value is skipped over so it is never mistaken for a flag.
func stripUnknownFlags(args []string) []string {
	kept := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "-o" || a == "--o" {
			kept = append(kept, a)
			if i+1 < len(args) {
				i++
				kept = append(kept, args[i])
			}
			continue
		}
		if strings.HasPrefix(a, "-") && !knownFlags[a] {
			fmt.Fprintf(os.Stderr, "warning: unrecognised flag %q ignored\n", a)
			continue
		}
		kept = append(kept, a)
	}
	return kept
}

func run(args []string) int {
	stage := compiler.StageExe
	var outPath string

	root := &cobra.Command{
		Use:           "mug [-s|-c] [-o out] <source>",
		Short:         "mug compiles a source file to x86-64 NASM assembly, an object, or an executable",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
	}
	flags := root.Flags()
	flags.VarP(&stageFlag{target: &stage, value: compiler.StageAsm}, "s", "s", "stop after writing assembly")
	flags.VarP(&stageFlag{target: &stage, value: compiler.StageObj}, "c", "c", "stop after writing an object file")
	flags.StringVarP(&outPath, "o", "o", "", "output path")

	var sources []string
	root.RunE = func(cmd *cobra.Command, positional []string) error {
		if len(positional) == 0 {
			return cmd.Help()
		}
		sources = positional
		if len(sources) > 1 {
			return fmt.Errorf("expected exactly one source file, got %d", len(sources))
		}
		return nil
	}

	root.SetArgs(stripUnknownFlags(args))
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if len(sources) == 0 {
		return 0
	}

	sink := diag.NewSink(os.Stderr)
	opts := compiler.Options{Stage: stage, OutPath: outPath, ErrorCap: diag.DefaultErrorCap}
	sink.Cap = opts.ErrorCap
	if _, err := compiler.Compile(sources[0], opts, sink); err != nil {
		return 1
	}
	return 0
}

var _ pflag.Value = (*stageFlag)(nil)
