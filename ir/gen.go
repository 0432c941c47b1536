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

import (
	"github.com/paanil/mug/ast"
	"github.com/paanil/mug/symtab"
)

// routineState tracks temp/label allocation for the routine currently
// being lowered. Unlike Quad/Routine, which are exported wire shapes,
// this is purely a bookkeeping scratchpad.
type routineState struct {
	r         *Routine
	nextTemp  uint32
	nextLabel uint32
}

func (rs *routineState) newTemp() uint32 {
	id := rs.nextTemp
	rs.nextTemp++
	return id
}

func (rs *routineState) newLabel() uint32 {
	id := rs.nextLabel
	rs.nextLabel++
	return id
}

func (rs *routineState) emit(q Quad) {
	rs.r.Quads = append(rs.r.Quads, q)
}

type loopLabels struct {
	start, end uint32
}

type generator struct {
	ir      *IR
	cur     *routineState
	funcIDs map[string]uint32
	vars    *symtab.Table[uint32]
	loops   []loopLabels
}

// Generate lowers a type-checked ast into quad IR. Callers must only
// pass an Ast that check.Check has already accepted; Generate assumes
// every Expression's DataType slot is already filled in.
func Generate(a ast.Ast) *IR {
	g := &generator{
		ir:      &IR{},
		funcIDs: assignFuncIDs(a.Root),
		vars:    symtab.New[uint32](),
	}

	top := &Routine{Name: "@top_level", ID: 0}
	g.ir.Routines = append(g.ir.Routines, top)
	topState := &routineState{r: top}
	g.cur = topState

	for _, stmt := range a.Root.Stmts {
		if fn, ok := stmt.(*ast.FuncDef); ok {
			g.genFuncDef(fn)
			continue
		}
		g.genStmt(stmt)
	}

	top.TempCount = topState.nextTemp
	return g.ir
}

// assignFuncIDs walks the top level once, handing out routine ids in
// source order so that forward calls can be lowered to a CALL of a
// routine that hasn't been generated yet. Id 0 is reserved for
// @top_level.
func assignFuncIDs(root *ast.BlockStmt) map[string]uint32 {
	ids := make(map[string]uint32)
	next := uint32(1)
	for _, fn := range ast.TopLevelFuncDefs(root) {
		ids[fn.Name] = next
		next++
	}
	return ids
}

func (g *generator) genFuncDef(fn *ast.FuncDef) {
	rs := &routineState{r: &Routine{
		Name:       fn.Name,
		ID:         g.funcIDs[fn.Name],
		ParamCount: len(fn.Params),
		Extern:     fn.Body == nil,
	}}

	saved := g.cur
	g.cur = rs
	g.vars.EnterScope()

	for _, p := range fn.Params {
		t := rs.newTemp()
		g.vars.Put(p.Name, t)
	}

	if fn.Body != nil {
		for _, stmt := range fn.Body.Stmts {
			g.genStmt(stmt)
		}
	}

	rs.r.TempCount = rs.nextTemp
	g.vars.ExitScope()
	g.cur = saved
	g.ir.Routines = append(g.ir.Routines, rs.r)
}

// genExpr lowers e into zero or more quads in the current routine and
// returns the Operand holding its value, always OperandTemp.
func (g *generator) genExpr(e ast.Expression) Operand {
	switch e := e.(type) {
	case *ast.BoolExpr:
		t := g.cur.newTemp()
		v := uint64(0)
		if e.Value {
			v = 1
		}
		g.cur.emit(Quad{Op: MOV_IM, Target: TempOperand(t), Left: IntOperand(v)})
		return TempOperand(t)

	case *ast.ConstExpr:
		t := g.cur.newTemp()
		g.cur.emit(Quad{Op: MOV_IM, Target: TempOperand(t), Left: IntOperand(e.Value)})
		return TempOperand(t)

	case *ast.VarExpr:
		id, _ := g.vars.Get(e.Name)
		return TempOperand(id)

	case *ast.CallExpr:
		return g.genCall(e)

	case *ast.UnaryExpr:
		return g.genUnary(e)

	case *ast.BinaryExpr:
		return g.genBinary(e)
	}
	panic("ir: unhandled expression type")
}

func (g *generator) genCall(e *ast.CallExpr) Operand {
	for i, arg := range e.Args {
		v := g.genExpr(arg)
		g.cur.emit(Quad{Op: ARG, Target: ArgIndexOperand(uint32(i)), Left: v})
	}
	result := g.cur.newTemp()
	g.cur.emit(Quad{Op: CALL, Target: TempOperand(result), Left: FuncOperand(g.funcIDs[e.Name])})
	return TempOperand(result)
}

func (g *generator) genUnary(e *ast.UnaryExpr) Operand {
	v := g.genExpr(e.Operand)
	t := g.cur.newTemp()
	op := NOT
	if e.Op == ast.UnaryNeg {
		op = NEG
	}
	g.cur.emit(Quad{Op: op, Target: TempOperand(t), Left: v})
	return TempOperand(t)
}

// genBinary lowers && and || with short-circuit control flow, and
// every other binary operator as a single quad whose opcode is chosen
// by the operands' signedness.
func (g *generator) genBinary(e *ast.BinaryExpr) Operand {
	if e.Op == ast.BinAnd || e.Op == ast.BinOr {
		return g.genShortCircuit(e)
	}

	l := g.genExpr(e.Left)
	r := g.genExpr(e.Right)
	signed := e.Left.Type().Kind == ast.Int || e.Right.Type().Kind == ast.Int

	t := g.cur.newTemp()
	g.cur.emit(Quad{Op: binaryOp(e.Op, signed), Target: TempOperand(t), Left: l, Right: r})
	return TempOperand(t)
}

func binaryOp(op ast.BinaryOp, signed bool) Op {
	switch op {
	case ast.BinMul:
		if signed {
			return IMUL
		}
		return MUL
	case ast.BinDiv:
		if signed {
			return IDIV
		}
		return DIV
	case ast.BinAdd:
		return ADD
	case ast.BinSub:
		return SUB
	case ast.BinEq:
		return EQ
	case ast.BinNe:
		return NE
	case ast.BinLt:
		if signed {
			return LT
		}
		return BELOW
	case ast.BinGt:
		if signed {
			return GT
		}
		return ABOVE
	case ast.BinLe:
		if signed {
			return LE
		}
		return BE
	case ast.BinGe:
		if signed {
			return GE
		}
		return AE
	}
	panic("ir: unhandled binary operator")
}

// genShortCircuit lowers `left && right` / `left || right` into:
//
//	result := left
//	if result is decisive, jump past evaluating right
//	result := right
//	skip:
func (g *generator) genShortCircuit(e *ast.BinaryExpr) Operand {
	result := g.cur.newTemp()
	skip := g.cur.newLabel()

	l := g.genExpr(e.Left)
	g.cur.emit(Quad{Op: MOV, Target: TempOperand(result), Left: l})

	branch := JZ
	if e.Op == ast.BinOr {
		branch = JNZ
	}
	g.cur.emit(Quad{Op: branch, Target: LabelOperand(skip), Left: TempOperand(result)})

	r := g.genExpr(e.Right)
	g.cur.emit(Quad{Op: MOV, Target: TempOperand(result), Left: r})
	g.cur.emit(Quad{Op: LABEL, Target: LabelOperand(skip)})

	return TempOperand(result)
}

func (g *generator) genStmt(s ast.Statement) {
	switch s := s.(type) {
	case *ast.EmptyStmt:

	case *ast.ExprStmt:
		g.genExpr(s.Expr)

	case *ast.AssignStmt:
		v := g.genExpr(s.Value)
		id, _ := g.vars.Get(s.Name)
		g.cur.emit(Quad{Op: MOV, Target: TempOperand(id), Left: v})

	case *ast.DeclStmt:
		g.genDecl(s)

	case *ast.ReturnStmt:
		g.genReturn(s)

	case *ast.IfStmt:
		g.genIf(s)

	case *ast.WhileStmt:
		g.genWhile(s)

	case *ast.BlockStmt:
		g.vars.EnterScope()
		for _, stmt := range s.Stmts {
			g.genStmt(stmt)
		}
		g.vars.ExitScope()

	case *ast.BreakStmt:
		l := g.loops[len(g.loops)-1]
		g.cur.emit(Quad{Op: JMP, Target: LabelOperand(l.end)})

	case *ast.ContinueStmt:
		l := g.loops[len(g.loops)-1]
		g.cur.emit(Quad{Op: JMP, Target: LabelOperand(l.start)})

	default:
		panic("ir: unhandled statement type")
	}
}

// genDecl aliases a declaration with an initializer directly onto the
// temp holding the initializer's value; a declaration without one just
// reserves a fresh, as-yet-unwritten temp.
func (g *generator) genDecl(s *ast.DeclStmt) {
	if s.Init != nil {
		v := g.genExpr(s.Init)
		g.vars.Put(s.Name, v.Temp())
		return
	}
	g.vars.Put(s.Name, g.cur.newTemp())
}

func (g *generator) genReturn(s *ast.ReturnStmt) {
	if s.Value != nil {
		v := g.genExpr(s.Value)
		g.cur.emit(Quad{Op: RET, Target: FlagOperand(true), Left: v})
		return
	}
	g.cur.emit(Quad{Op: RET, Target: FlagOperand(false)})
}

func (g *generator) genIf(s *ast.IfStmt) {
	elseLabel := g.cur.newLabel()

	cond := g.genExpr(s.Cond)
	g.cur.emit(Quad{Op: JZ, Target: LabelOperand(elseLabel), Left: cond})
	g.genStmt(s.Then)

	if s.Else != nil {
		endLabel := g.cur.newLabel()
		g.cur.emit(Quad{Op: JMP, Target: LabelOperand(endLabel)})
		g.cur.emit(Quad{Op: LABEL, Target: LabelOperand(elseLabel)})
		g.genStmt(s.Else)
		g.cur.emit(Quad{Op: LABEL, Target: LabelOperand(endLabel)})
		return
	}
	g.cur.emit(Quad{Op: LABEL, Target: LabelOperand(elseLabel)})
}

func (g *generator) genWhile(s *ast.WhileStmt) {
	startLabel := g.cur.newLabel()
	endLabel := g.cur.newLabel()

	g.cur.emit(Quad{Op: LABEL, Target: LabelOperand(startLabel)})
	cond := g.genExpr(s.Cond)
	g.cur.emit(Quad{Op: JZ, Target: LabelOperand(endLabel), Left: cond})

	g.loops = append(g.loops, loopLabels{start: startLabel, end: endLabel})
	g.genStmt(s.Body)
	g.loops = g.loops[:len(g.loops)-1]

	g.cur.emit(Quad{Op: JMP, Target: LabelOperand(startLabel)})
	g.cur.emit(Quad{Op: LABEL, Target: LabelOperand(endLabel)})
}
