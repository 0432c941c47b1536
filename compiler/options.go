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

package compiler

// Stage is how far the pipeline is asked to go.
type Stage int

const (
	// StageExe produces a linked executable, the default.
	StageExe Stage = iota
	// StageAsm stops after writing the NASM source.
	StageAsm
	// StageObj stops after writing the assembled object.
	StageObj
)

// Trace bits gate the teacher-style fmt.Printf dumps of each stage's
// intermediate representation. Named after the teacher's own
// compile/compiler.go Debug* booleans, collapsed into one bitmask. No
// CLI flag sets it; main.go leaves Trace at zero, so the dumps are only
// reachable by callers that build Options themselves.
type Trace uint

const (
	TraceTokens Trace = 1 << iota
	TraceAst
	TraceIR
	TraceAsm
)

// Options configures one Compile call. main.go fills Stage and OutPath
// from parsed CLI flags and sets ErrorCap to diag.DefaultErrorCap; there
// is no file- or environment-based configuration layer to mirror
// because the teacher has none either.
type Options struct {
	Stage    Stage
	OutPath  string
	ErrorCap int
	Trace    Trace
}
