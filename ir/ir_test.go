package ir

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paanil/mug/arena"
	"github.com/paanil/mug/ast"
	"github.com/paanil/mug/check"
	"github.com/paanil/mug/strtab"
)

type parseDiags struct{ msgs []string }

func (d *parseDiags) Syntactic(line, column int, format string, args ...interface{}) {
	d.msgs = append(d.msgs, format)
}

type checkDiags struct{ msgs []string }

func (d *checkDiags) Semantic(format string, args ...interface{}) {
	d.msgs = append(d.msgs, format)
}

func build(t *testing.T, src string) *IR {
	t.Helper()
	a := arena.NewAlloc()
	strs := strtab.New(a)
	pd := &parseDiags{}
	p := ast.NewParser(strings.NewReader(src), strs, pd)
	tree := p.Parse()
	if !tree.Valid {
		t.Fatalf("parse failed: %v", pd.msgs)
	}
	cd := &checkDiags{}
	if !check.Check(tree, cd) {
		t.Fatalf("check failed: %v", cd.msgs)
	}
	return Generate(tree)
}

func TestTopLevelIsRoutineZero(t *testing.T) {
	program := build(t, `int x = 1;`)
	if len(program.Routines) == 0 || program.Routines[0].Name != "@top_level" || program.Routines[0].ID != 0 {
		t.Fatalf("expected @top_level as routine 0, got %+v", program.Routines)
	}
}

func TestArithmeticEvaluatesCorrectly(t *testing.T) {
	program := build(t, `function f() -> int { return 1 + 2 * 3; }`)
	ev := NewEval(program)
	got, ok := ev.Call("f")
	if !ok || got != 7 {
		t.Fatalf("expected 7, got %d (ok=%v)", got, ok)
	}
}

func TestCallRoutesArguments(t *testing.T) {
	program := build(t, `
		function add(int a, int b) -> int { return a + b; }
		function main() -> int { return add(3, 4); }
	`)
	ev := NewEval(program)
	got, ok := ev.Call("main")
	if !ok || got != 7 {
		t.Fatalf("expected 7, got %d (ok=%v)", got, ok)
	}
}

func TestMutualRecursionEvaluates(t *testing.T) {
	program := build(t, `
		function isEven(int n) -> bool { if (n == 0) { return true; } return isOdd(n - 1); }
		function isOdd(int n) -> bool { if (n == 0) { return false; } return isEven(n - 1); }
	`)
	ev := NewEval(program)
	got, ok := ev.Call("isEven", 10)
	if !ok || got != 1 {
		t.Fatalf("expected true, got %d (ok=%v)", got, ok)
	}
}

func TestShortCircuitAndSkipsRightSideEffect(t *testing.T) {
	program := build(t, `
		function f() -> bool {
			bool left = false;
			// Evaluating the right side would divide by zero.
			return left && (1 / 0 == 1);
		}
	`)
	ev := NewEval(program)
	got, ok := ev.Call("f")
	if !ok || got != 0 {
		t.Fatalf("expected false, got %d (ok=%v)", got, ok)
	}
}

func TestShortCircuitOrShortCircuits(t *testing.T) {
	program := build(t, `
		function f() -> bool {
			bool left = true;
			// Evaluating the right side would divide by zero.
			return left || (1 / 0 == 2);
		}
	`)
	ev := NewEval(program)
	got, ok := ev.Call("f")
	if !ok || got != 1 {
		t.Fatalf("expected true, got %d (ok=%v)", got, ok)
	}
}

func TestWhileLoopAccumulates(t *testing.T) {
	program := build(t, `
		function sum(int n) -> int {
			int total = 0;
			int i = 0;
			while (i < n) {
				total += i;
				i += 1;
			}
			return total;
		}
	`)
	ev := NewEval(program)
	got, ok := ev.Call("sum", 5)
	if !ok || got != 10 {
		t.Fatalf("expected 10, got %d (ok=%v)", got, ok)
	}
}

func TestBreakExitsLoopEarly(t *testing.T) {
	program := build(t, `
		function f() -> int {
			int i = 0;
			while (i < 10) {
				if (i == 3) { break; }
				i += 1;
			}
			return i;
		}
	`)
	ev := NewEval(program)
	got, ok := ev.Call("f")
	if !ok || got != 3 {
		t.Fatalf("expected 3, got %d (ok=%v)", got, ok)
	}
}

func TestContinueSkipsRestOfBody(t *testing.T) {
	program := build(t, `
		function f() -> int {
			int i = 0;
			int total = 0;
			while (i < 5) {
				i += 1;
				if (i == 3) { continue; }
				total += i;
			}
			return total;
		}
	`)
	ev := NewEval(program)
	got, ok := ev.Call("f")
	// 1 + 2 + 4 + 5 = 12, skipping 3.
	if !ok || got != 12 {
		t.Fatalf("expected 12, got %d (ok=%v)", got, ok)
	}
}

func TestExternProducesBodylessRoutine(t *testing.T) {
	program := build(t, `extern function puts(int x) -> int;`)
	r := program.RoutineByID(1)
	if r == nil || r.Name != "puts" || !r.Extern || r.Quads != nil {
		t.Fatalf("expected bodyless extern routine, got %+v", r)
	}
}

func TestAdditionLowersToExactQuadSequence(t *testing.T) {
	program := build(t, `function f() -> int { return 1 + 2; }`)
	got := program.Routines[1].Quads

	want := []Quad{
		{Op: MOV_IM, Target: TempOperand(0), Left: IntOperand(1)},
		{Op: MOV_IM, Target: TempOperand(1), Left: IntOperand(2)},
		{Op: ADD, Target: TempOperand(2), Left: TempOperand(0), Right: TempOperand(1)},
		{Op: RET, Target: FlagOperand(true), Left: TempOperand(2)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("quad sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestSignedVsUnsignedDivisionOpcode(t *testing.T) {
	program := build(t, `function f() -> uint { uint a = 7u; uint b = 2u; return a / b; }`)
	found := false
	for _, q := range program.Routines[1].Quads {
		if q.Op == DIV {
			found = true
		}
		if q.Op == IDIV {
			t.Fatalf("expected unsigned DIV, got signed IDIV")
		}
	}
	if !found {
		t.Fatalf("expected a DIV quad")
	}
}
