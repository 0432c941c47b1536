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

package codegen

import (
	"bufio"
	"fmt"
	"io"
)

// asm wraps the output stream and knows how to spell each NASM mnemonic
// this backend ever emits. It has no opinion about register allocation;
// routine builds strings, funcGen decides which registers go where.
type asm struct {
	w *bufio.Writer
}

func newAsm(w io.Writer) *asm {
	return &asm{w: bufio.NewWriter(w)}
}

func (a *asm) flush() error { return a.w.Flush() }

func (a *asm) line(format string, args ...interface{}) {
	fmt.Fprintf(a.w, "\t"+format+"\n", args...)
}

func (a *asm) raw(format string, args ...interface{}) {
	fmt.Fprintf(a.w, format+"\n", args...)
}

func (a *asm) global(name string)    { a.line("global %s", name) }
func (a *asm) sectionText()          { a.line("section .text") }
func (a *asm) funcLabel(name string) { a.raw("%s:", name) }

func (a *asm) prolog(name string, stackBytes int) {
	a.funcLabel(name)
	a.line("push rbp")
	a.line("mov rbp, rsp")
	a.line("sub rsp, %d", stackBytes)
	a.raw("")
}

func (a *asm) epilog() {
	a.raw(".epi:")
	a.line("mov rsp, rbp")
	a.line("pop rbp")
	a.line("ret")
	a.raw("")
}

func (a *asm) store(destOffset int, src RegID) { a.line("mov [rbp%+d], %s", destOffset, src) }
func (a *asm) load(dest RegID, srcOffset int)  { a.line("mov %s, [rbp%+d]", dest, srcOffset) }
func (a *asm) storeArg(slot int, src RegID)    { a.line("mov [rsp+%d], %s", slot, src) }

func (a *asm) movImm(dest RegID, value uint64) { a.line("mov %s, %d", dest, value) }
func (a *asm) movReg(dest, src RegID)          { a.line("mov %s, %s", dest, src) }
func (a *asm) xorImm(reg RegID, value uint64)  { a.line("xor %s, %d", reg, value) }
func (a *asm) cmpImm(reg RegID, value uint64)  { a.line("cmp %s, %d", reg, value) }
func (a *asm) cmpReg(a1, a2 RegID)             { a.line("cmp %s, %s", a1, a2) }
func (a *asm) neg(reg RegID)                   { a.line("neg %s", reg) }
func (a *asm) zero(reg RegID)                  { a.line("xor %s, %s", reg, reg) }
func (a *asm) cqo()                            { a.line("cqo") }

func (a *asm) label(id uint32)  { a.raw(".l%d:", id) }
func (a *asm) jmpEpi()          { a.line("jmp .epi") }
func (a *asm) jmp(id uint32)    { a.line("jmp .l%d", id) }
func (a *asm) je(id uint32)     { a.line("je .l%d", id) }
func (a *asm) jne(id uint32)    { a.line("jne .l%d", id) }
func (a *asm) call(name string) { a.line("call %s", name) }

func (a *asm) mul(r RegID)  { a.line("mul %s", r) }
func (a *asm) imul(r RegID) { a.line("imul %s", r) }
func (a *asm) div(r RegID)  { a.line("div %s", r) }
func (a *asm) idiv(r RegID) { a.line("idiv %s", r) }

func (a *asm) add(dest, src RegID) { a.line("add %s, %s", dest, src) }
func (a *asm) sub(dest, src RegID) { a.line("sub %s, %s", dest, src) }

func (a *asm) cmov(suffix string, dest, src RegID) {
	a.line("cmov%s %s, %s", suffix, dest, src)
}
