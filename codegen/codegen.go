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

// Package codegen lowers quad IR to x86-64 NASM text targeting the
// Windows 64-bit calling convention: a least-recently-used register
// allocator with explicit spilling, flushed at every basic-block edge
// so that labels never need register state to agree across predecessors.
package codegen

import (
	"io"

	"github.com/paanil/mug/ir"
	"github.com/paanil/mug/utils"
)

const shadowSpaceSlots = 4

// temp tracks one value slot's home: the register currently holding it
// (RegNone if none), its stack slot relative to rbp (0 if never
// assigned one), and whether that slot is the value's canonical copy.
type temp struct {
	reg        RegID
	baseOffset int
	spilled    bool
}

// funcGen generates one routine's instructions. A fresh funcGen is used
// per routine; nothing carries over between routines.
type funcGen struct {
	a            *asm
	regs         *regAlloc
	temps        []temp
	spilledCount int
	pendingArgs  []int
}

// Generate emits the whole program as NASM text: a `global` directive
// per routine other than @top_level (extern ones included), a single
// `.text` section, then
// every routine's body in IR order. @top_level still gets a body (an
// empty program still emits a prologue/epilogue pair) but is never
// exported — nothing outside the compiled unit calls it directly.
// Extern routines contribute only their `global` line: they have a
// signature but no body of their own to lower.
func Generate(program *ir.IR, w io.Writer) error {
	out := newAsm(w)

	for _, r := range program.Routines {
		if r.Name == "@top_level" {
			continue
		}
		out.global(r.Name)
	}
	out.sectionText()

	for _, r := range program.Routines {
		if r.Extern {
			continue
		}
		fg := &funcGen{a: out, regs: newRegAlloc()}
		fg.genRoutine(program, r)
	}

	return out.flush()
}

func hasCall(r *ir.Routine) bool {
	for _, q := range r.Quads {
		if q.Op == ir.CALL {
			return true
		}
	}
	return false
}

func maxOutgoingArgs(r *ir.Routine) int {
	max := shadowSpaceSlots
	for _, q := range r.Quads {
		if q.Op != ir.ARG {
			continue
		}
		if n := int(q.Target.ArgIndex()) + 1; n > max {
			max = n
		}
	}
	return max
}

// frameSize computes the prologue's `sub rsp, N`: a stack slot per temp
// (an upper bound on how many will actually end up spilled) plus room
// for the widest outgoing argument list this routine issues, rounded so
// that, combined with the pushed rbp, rsp lands on a 16-byte boundary.
func frameSize(r *ir.Routine) int {
	stackBytes := (r.TempCount + maxOutgoingArgs(r)) * 8
	if hasCall(r) && stackBytes < 32 {
		stackBytes = 32
	}
	return utils.AlignStackBytes(stackBytes)
}

func (fg *funcGen) genRoutine(program *ir.IR, r *ir.Routine) {
	fg.temps = make([]temp, r.TempCount)
	fg.spilledCount = 0

	for i := range fg.temps {
		fg.temps[i].reg = RegNone
	}
	for i := 0; i < r.ParamCount; i++ {
		fg.temps[i].baseOffset = 16 + 8*i
	}

	stackBytes := frameSize(r)

	fg.a.prolog(r.Name, stackBytes)

	for i := 0; i < r.ParamCount; i++ {
		if reg, ok := paramRegister(i); ok {
			fg.regs.allocRegister(reg, i)
			fg.temps[i].reg = reg
		} else {
			fg.temps[i].spilled = true
		}
	}

	for _, q := range r.Quads {
		fg.genQuad(program, q)
	}

	fg.a.epilog()
}

// spill ensures reg's current owner, if any, has a canonical home on
// the stack, emits the store, then frees the register.
func (fg *funcGen) spill(reg RegID) {
	owner := fg.regs.ownerOf(reg)
	if owner < 0 {
		return
	}
	t := &fg.temps[owner]
	if !t.spilled {
		if t.baseOffset == 0 {
			fg.spilledCount++
			t.baseOffset = -8 * fg.spilledCount
		}
		t.spilled = true
	}
	fg.a.store(t.baseOffset, reg)
	t.reg = RegNone
	fg.regs.dealloc(reg)
}

func (fg *funcGen) getRegister(id RegID) RegID {
	victim := fg.regs.allocRegister(id, -1)
	if victim >= 0 {
		fg.spillTemp(id, victim)
	}
	return id
}

func (fg *funcGen) getRegisterFor(id RegID, tempID int, loadSpilled bool) RegID {
	victim := fg.regs.allocRegister(id, tempID)
	if victim >= 0 {
		fg.spillTemp(id, victim)
	}

	if loadSpilled {
		t := fg.temps[tempID]
		if t.reg != RegNone {
			old := t.reg
			fg.a.movReg(id, old)
			fg.regs.dealloc(old)
		} else if t.spilled {
			fg.a.load(id, t.baseOffset)
		}
	}
	fg.temps[tempID].reg = id
	return id
}

// spillTemp is spill() specialised for when the caller already knows
// which temp id owned the register (avoids a redundant owner lookup
// right after allocRegister/allocAnyRegister report the victim).
func (fg *funcGen) spillTemp(reg RegID, tempID int) {
	t := &fg.temps[tempID]
	if !t.spilled {
		if t.baseOffset == 0 {
			fg.spilledCount++
			t.baseOffset = -8 * fg.spilledCount
		}
		t.spilled = true
	}
	fg.a.store(t.baseOffset, reg)
	t.reg = RegNone
}

func (fg *funcGen) getAnyRegister() RegID {
	id, victim := fg.regs.allocAnyRegister(-1)
	if victim >= 0 {
		fg.spillTemp(id, victim)
	}
	return id
}

func (fg *funcGen) getAnyRegisterFor(tempID int, loadSpilled bool) RegID {
	t := fg.temps[tempID]
	if t.reg != RegNone {
		fg.regs.allocRegister(t.reg, tempID)
		return t.reg
	}

	id, victim := fg.regs.allocAnyRegister(tempID)
	if victim >= 0 {
		fg.spillTemp(id, victim)
	}
	if t.spilled && loadSpilled {
		fg.a.load(id, t.baseOffset)
	}
	fg.temps[tempID].reg = id
	return id
}

// flushBlock spills every live register without forgetting which temp
// it belonged to, then frees them all — the basic-block boundary
// discipline that keeps register state from needing to agree across
// an edge into a label.
func (fg *funcGen) flushBlock() {
	for _, id := range fg.regs.liveRegisters() {
		fg.spill(id)
	}
}

func (fg *funcGen) genQuad(program *ir.IR, q ir.Quad) {
	switch q.Op {
	case ir.MOV_IM:
		reg := fg.getAnyRegisterFor(int(q.Target.Temp()), false)
		fg.a.movImm(reg, q.Left.Int())

	case ir.MOV:
		target := fg.getAnyRegisterFor(int(q.Target.Temp()), false)
		left := fg.getAnyRegisterFor(int(q.Left.Temp()), true)
		fg.a.movReg(target, left)

	case ir.NOT:
		target := fg.getAnyRegisterFor(int(q.Target.Temp()), false)
		left := fg.getAnyRegisterFor(int(q.Left.Temp()), true)
		fg.a.movReg(target, left)
		fg.a.xorImm(target, 1)

	case ir.NEG:
		target := fg.getAnyRegisterFor(int(q.Target.Temp()), false)
		left := fg.getAnyRegisterFor(int(q.Left.Temp()), true)
		fg.a.movReg(target, left)
		fg.a.neg(target)

	case ir.MUL, ir.IMUL, ir.DIV, ir.IDIV:
		fg.genMulDiv(q)

	case ir.ADD, ir.SUB:
		target := fg.getAnyRegisterFor(int(q.Target.Temp()), false)
		left := fg.getAnyRegisterFor(int(q.Left.Temp()), true)
		right := fg.getAnyRegisterFor(int(q.Right.Temp()), true)
		fg.a.movReg(target, left)
		if q.Op == ir.ADD {
			fg.a.add(target, right)
		} else {
			fg.a.sub(target, right)
		}

	case ir.EQ, ir.NE, ir.LT, ir.BELOW, ir.GT, ir.ABOVE, ir.LE, ir.BE, ir.GE, ir.AE:
		fg.genCompare(q)

	case ir.JMP:
		fg.flushBlock()
		fg.a.jmp(q.Target.Label())

	case ir.JZ, ir.JNZ:
		left := fg.getAnyRegisterFor(int(q.Left.Temp()), true)
		fg.a.cmpImm(left, 0)
		fg.flushBlock()
		if q.Op == ir.JZ {
			fg.a.je(q.Target.Label())
		} else {
			fg.a.jne(q.Target.Label())
		}

	case ir.LABEL:
		fg.flushBlock()
		fg.a.label(q.Target.Label())
		fg.flushBlock()

	case ir.RET:
		if q.Target.Flag {
			rax := RegRAX
			reg := fg.getAnyRegisterFor(int(q.Left.Temp()), true)
			if reg != rax {
				fg.a.movReg(rax, reg)
			}
		}
		fg.a.jmpEpi()

	case ir.ARG:
		fg.pendingArgs = append(fg.pendingArgs, int(q.Left.Temp()))

	case ir.CALL:
		fg.genCall(program, q)
	}
}

func (fg *funcGen) genMulDiv(q ir.Quad) {
	rax := fg.getRegisterFor(RegRAX, int(q.Target.Temp()), false)
	rdx := fg.getRegister(RegRDX)
	left := fg.getAnyRegisterFor(int(q.Left.Temp()), true)
	right := fg.getAnyRegisterFor(int(q.Right.Temp()), true)
	fg.a.movReg(rax, left)

	switch q.Op {
	case ir.MUL:
		fg.a.zero(rdx)
		fg.a.mul(right)
	case ir.IMUL:
		fg.a.cqo()
		fg.a.imul(right)
	case ir.DIV:
		fg.a.zero(rdx)
		fg.a.div(right)
	case ir.IDIV:
		fg.a.cqo()
		fg.a.idiv(right)
	}
}

var compareSuffix = map[ir.Op]string{
	ir.EQ: "e", ir.NE: "ne", ir.LT: "l", ir.BELOW: "b",
	ir.GT: "g", ir.ABOVE: "a", ir.LE: "le", ir.BE: "be", ir.GE: "ge", ir.AE: "ae",
}

func (fg *funcGen) genCompare(q ir.Quad) {
	left := fg.getAnyRegisterFor(int(q.Left.Temp()), true)
	right := fg.getAnyRegisterFor(int(q.Right.Temp()), true)
	target := fg.getAnyRegisterFor(int(q.Target.Temp()), false)
	one := fg.getAnyRegister()

	fg.a.zero(target)
	fg.a.movImm(one, 1)
	fg.a.cmpReg(left, right)
	fg.a.cmov(compareSuffix[q.Op], target, one)
}

// genCall materialises the arguments collected by the preceding run of
// ARG quads into the Windows x64 integer argument registers (or the
// outgoing-argument stack slots beyond the fourth), issues the call,
// then binds the result temp to rax.
func (fg *funcGen) genCall(program *ir.IR, q ir.Quad) {
	args := fg.pendingArgs
	fg.pendingArgs = nil

	for i, argTemp := range args {
		if reg, ok := paramRegister(i); ok {
			fg.getRegisterFor(reg, argTemp, true)
			continue
		}
		src := fg.getAnyRegisterFor(argTemp, true)
		fg.a.storeArg(8*i, src)
	}

	// Every register in this pool is caller-saved under the Windows x64
	// ABI, so anything still live has to hit memory before the callee
	// can clobber it.
	fg.flushBlock()

	callee := program.RoutineByID(q.Left.Func())
	fg.a.call(callee.Name)

	fg.regs.allocRegister(RegRAX, int(q.Target.Temp()))
	fg.temps[q.Target.Temp()].reg = RegRAX
}
