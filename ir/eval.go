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

package ir

import "fmt"

// Eval is a small reference interpreter over quad IR, used only by
// tests to check a routine's lowering without involving NASM or a
// linker. It is not part of the compilation pipeline.
type Eval struct {
	ir *IR
}

func NewEval(program *IR) *Eval {
	return &Eval{ir: program}
}

// Call runs the named routine with the given arguments (as raw 64-bit
// words, reinterpreted per the callee's own arithmetic) and returns its
// result and whether it returned one.
func (ev *Eval) Call(name string, args ...uint64) (uint64, bool) {
	r := ev.routineByName(name)
	if r == nil {
		panic(fmt.Sprintf("ir.Eval: no routine named %q", name))
	}
	return ev.run(r, args)
}

func (ev *Eval) routineByName(name string) *Routine {
	for _, r := range ev.ir.Routines {
		if r.Name == name {
			return r
		}
	}
	return nil
}

func (ev *Eval) run(r *Routine, args []uint64) (uint64, bool) {
	temps := make([]uint64, r.TempCount)
	copy(temps, args)

	labels := make(map[uint32]int)
	for i, q := range r.Quads {
		if q.Op == LABEL {
			labels[q.Target.Label()] = i
		}
	}

	var pendingArgs []uint64
	read := func(o Operand) uint64 {
		switch o.Kind {
		case OperandTemp:
			return temps[o.Temp()]
		case OperandInt:
			return o.Int()
		default:
			panic("ir.Eval: operand is not readable")
		}
	}

	pc := 0
	for pc < len(r.Quads) {
		q := r.Quads[pc]
		switch q.Op {
		case MOV_IM, MOV:
			temps[q.Target.Temp()] = read(q.Left)
		case NOT:
			v := read(q.Left)
			if v == 0 {
				temps[q.Target.Temp()] = 1
			} else {
				temps[q.Target.Temp()] = 0
			}
		case NEG:
			temps[q.Target.Temp()] = -read(q.Left)
		case MUL, IMUL:
			temps[q.Target.Temp()] = read(q.Left) * read(q.Right)
		case DIV:
			temps[q.Target.Temp()] = read(q.Left) / read(q.Right)
		case IDIV:
			temps[q.Target.Temp()] = uint64(int64(read(q.Left)) / int64(read(q.Right)))
		case ADD:
			temps[q.Target.Temp()] = read(q.Left) + read(q.Right)
		case SUB:
			temps[q.Target.Temp()] = read(q.Left) - read(q.Right)
		case EQ:
			temps[q.Target.Temp()] = boolWord(read(q.Left) == read(q.Right))
		case NE:
			temps[q.Target.Temp()] = boolWord(read(q.Left) != read(q.Right))
		case LT:
			temps[q.Target.Temp()] = boolWord(int64(read(q.Left)) < int64(read(q.Right)))
		case BELOW:
			temps[q.Target.Temp()] = boolWord(read(q.Left) < read(q.Right))
		case GT:
			temps[q.Target.Temp()] = boolWord(int64(read(q.Left)) > int64(read(q.Right)))
		case ABOVE:
			temps[q.Target.Temp()] = boolWord(read(q.Left) > read(q.Right))
		case LE:
			temps[q.Target.Temp()] = boolWord(int64(read(q.Left)) <= int64(read(q.Right)))
		case BE:
			temps[q.Target.Temp()] = boolWord(read(q.Left) <= read(q.Right))
		case GE:
			temps[q.Target.Temp()] = boolWord(int64(read(q.Left)) >= int64(read(q.Right)))
		case AE:
			temps[q.Target.Temp()] = boolWord(read(q.Left) >= read(q.Right))
		case JMP:
			pc = labels[q.Target.Label()]
			continue
		case LABEL:
			// no-op at runtime
		case JZ:
			if read(q.Left) == 0 {
				pc = labels[q.Target.Label()]
				continue
			}
		case JNZ:
			if read(q.Left) != 0 {
				pc = labels[q.Target.Label()]
				continue
			}
		case RET:
			if q.Target.Flag {
				return read(q.Left), true
			}
			return 0, false
		case ARG:
			idx := q.Target.ArgIndex()
			for uint32(len(pendingArgs)) <= idx {
				pendingArgs = append(pendingArgs, 0)
			}
			pendingArgs[idx] = read(q.Left)
		case CALL:
			callee := ev.ir.RoutineByID(q.Left.Func())
			result, _ := ev.run(callee, pendingArgs)
			pendingArgs = nil
			temps[q.Target.Temp()] = result
		default:
			panic(fmt.Sprintf("ir.Eval: unhandled opcode %v", q.Op))
		}
		pc++
	}
	return 0, false
}

func boolWord(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
