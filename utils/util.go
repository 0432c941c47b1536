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
package utils

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"

	"github.com/samber/lo"
)

func Assert(cond bool, format string, msg ...interface{}) {
	if !cond {
		panic(fmt.Sprintf(format, msg...))
	}
}

// Any reports whether c equals any of cs. Kept as a thin wrapper so call
// sites read the way they always have; the loop itself is lo.Contains.
func Any[T comparable](c T, cs ...T) bool {
	return lo.Contains(cs, c)
}

func Unimplement() {
	panic("Not implement yet")
}

func ShouldNotReachHere() {
	panic("Should not reach here")
}

func Fatal(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	println(msg)
	panic(msg)
}

func CommandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

// ExecuteCmd shells out to an external tool (nasm, the linker) the same
// way the compiler driver always has; mug's own codegen never invokes it.
func ExecuteCmd(workDir string, args ...string) error {
	if !CommandExists(args[0]) {
		return fmt.Errorf("cannot find %v on PATH", args[0])
	}
	cmd := exec.Command(args[0], args[1:]...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Dir = workDir

	if err := cmd.Run(); err != nil {
		os.Stderr.WriteString(stderr.String())
		return fmt.Errorf("%s: %w", args[0], err)
	}
	return nil
}

// AlignStackBytes rounds n up so that (n+8) is a multiple of 16, which is
// the Windows x64 prologue's alignment contract: the pushed return address
// plus the pushed rbp (8 bytes) completes the 16-byte alignment that `sub
// rsp, n` must leave in place.
func AlignStackBytes(n int) int {
	rem := (n + 8) % 16
	if rem == 0 {
		return n
	}
	return n + (16 - rem)
}
