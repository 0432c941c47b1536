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

// Package diag collects and prints the compiler's four diagnostic
// kinds (lexical, syntactic, semantic, I/O). It generalises the
// teacher's inline print-and-exit into a reusable sink: the teacher's
// parser called os.Exit(1) the moment it saw a syntax error, which works for
// a single-file CLI but makes the parser untestable and unusable as a
// library. Sink instead counts and caps, leaving the decision of
// when to stop to its caller.
package diag

import (
	"fmt"
	"io"
)

// DefaultErrorCap is how many diagnostics Sink will actually print
// before it starts only counting. Grounded on the original's
// ErrorContext::max_print, which defaults to 10 for the same reason:
// past a handful of errors the rest are usually noise cascading from
// the first one.
const DefaultErrorCap = 10

// Sink accumulates diagnostics of all four kinds and writes the first
// Cap of them to Out as "error:<line>:<col>: <message>" (lexical
// diagnostics print "error:<line>: <message>", and diagnostics without a
// position just "error: <message>").
type Sink struct {
	Out io.Writer
	Cap int

	printed int
	total   int
}

// NewSink returns a Sink capped at DefaultErrorCap, writing to out.
func NewSink(out io.Writer) *Sink {
	return &Sink{Out: out, Cap: DefaultErrorCap}
}

func (s *Sink) report(prefix, format string, args ...interface{}) {
	s.total++
	if s.printed >= s.Cap {
		return
	}
	s.printed++
	fmt.Fprintf(s.Out, "%s%s\n", prefix, fmt.Sprintf(format, args...))
}

// Lexical reports a tokenisation failure (an unrecognised character,
// an unterminated literal).
func (s *Sink) Lexical(line int, format string, args ...interface{}) {
	s.report(fmt.Sprintf("error:%d: ", line), format, args...)
}

// Syntactic satisfies ast.Diagnostics, matching the original
// ErrorContext::print_error(line, column, message, info) overload's
// "error:<line>:<col>: " position prefix.
func (s *Sink) Syntactic(line, column int, format string, args ...interface{}) {
	s.report(fmt.Sprintf("error:%d:%d: ", line, column), format, args...)
}

// Semantic satisfies check.Diagnostics. The checker does not carry
// per-node source positions in mug's AST, so semantic diagnostics are
// unpositioned, same as the original's two-argument
// print_error(message, info) overload.
func (s *Sink) Semantic(format string, args ...interface{}) {
	s.report("error: ", format, args...)
}

// IO reports a failure reading the source file or writing an output
// artifact.
func (s *Sink) IO(format string, args ...interface{}) {
	s.report("error: ", format, args...)
}

// Failed reports whether any diagnostic, printed or merely counted,
// was ever recorded.
func (s *Sink) Failed() bool { return s.total > 0 }

// Count returns the total number of diagnostics recorded, including
// ones suppressed past Cap.
func (s *Sink) Count() int { return s.total }
