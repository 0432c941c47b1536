package codegen

import (
	"bytes"
	"strings"
	"testing"

	"github.com/paanil/mug/arena"
	"github.com/paanil/mug/ast"
	"github.com/paanil/mug/check"
	"github.com/paanil/mug/ir"
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

func emit(t *testing.T, src string) string {
	t.Helper()
	program := compileToIR(t, src)
	var buf bytes.Buffer
	if err := Generate(program, &buf); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return buf.String()
}

func compileToIR(t *testing.T, src string) *ir.IR {
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
	return ir.Generate(tree)
}

func TestEmptyProgramEmitsTopLevelPrologEpilog(t *testing.T) {
	out := emit(t, ``)
	if !strings.Contains(out, "@top_level:") {
		t.Fatalf("expected a body for @top_level, got:\n%s", out)
	}
	if !strings.Contains(out, "push rbp") || !strings.Contains(out, ".epi:") {
		t.Fatalf("expected prologue/epilogue for the empty program, got:\n%s", out)
	}
	if strings.Contains(out, "global @top_level") {
		t.Fatalf("did not expect @top_level to be exported, got:\n%s", out)
	}
}

func TestExternContributesOnlyGlobalDirective(t *testing.T) {
	out := emit(t, `extern function puts(int x) -> int;`)
	if !strings.Contains(out, "global puts") {
		t.Fatalf("expected 'global puts', got:\n%s", out)
	}
	if strings.Contains(out, "puts:") {
		t.Fatalf("did not expect a body for an extern function, got:\n%s", out)
	}
}

func TestGlobalDirectivePerRoutine(t *testing.T) {
	out := emit(t, `function f() { } function g() { }`)
	if !strings.Contains(out, "global f") || !strings.Contains(out, "global g") {
		t.Fatalf("expected global directives for both routines, got:\n%s", out)
	}
	if strings.Contains(out, "global @top_level") {
		t.Fatalf("did not expect @top_level to be exported, got:\n%s", out)
	}
}

func TestPrologEpilogShape(t *testing.T) {
	out := emit(t, `function f() { }`)
	if !strings.Contains(out, "f:") || !strings.Contains(out, "push rbp") ||
		!strings.Contains(out, "mov rbp, rsp") || !strings.Contains(out, "sub rsp,") {
		t.Fatalf("expected a standard prologue, got:\n%s", out)
	}
	if !strings.Contains(out, ".epi:") || !strings.Contains(out, "pop rbp") || !strings.Contains(out, "ret") {
		t.Fatalf("expected a standard epilogue, got:\n%s", out)
	}
}

func TestCallEmitsCallInstruction(t *testing.T) {
	out := emit(t, `
		function callee(int x) -> int { return x; }
		function f() -> int { return callee(1); }
	`)
	if !strings.Contains(out, "call callee") {
		t.Fatalf("expected a call instruction, got:\n%s", out)
	}
}

func TestComparisonEmitsCmov(t *testing.T) {
	out := emit(t, `function f() -> bool { return 1 < 2; }`)
	if !strings.Contains(out, "cmovl") {
		t.Fatalf("expected a cmovl for signed '<', got:\n%s", out)
	}
}

func TestUnsignedDivisionEmitsDivNotIdiv(t *testing.T) {
	out := emit(t, `function f() -> uint { uint a = 7u; uint b = 2u; return a / b; }`)
	if !strings.Contains(out, "div rdx") && !strings.Contains(out, "\tdiv ") {
		t.Fatalf("expected an unsigned 'div', got:\n%s", out)
	}
	if strings.Contains(out, "idiv") {
		t.Fatalf("did not expect signed 'idiv' for unsigned division, got:\n%s", out)
	}
}

func TestStackFrameSatisfiesAlignmentInvariant(t *testing.T) {
	program := compileToIR(t, `
		function callee(int a, int b, int c, int d, int e) -> int { return a; }
		function f() -> int { return callee(1, 2, 3, 4, 5); }
	`)
	for _, r := range program.Routines {
		if r.Quads == nil {
			continue
		}
		stackBytes := frameSize(r)
		if (stackBytes+8)%16 != 0 {
			t.Fatalf("routine %s: stack size %d does not satisfy (N+8)%%16==0", r.Name, stackBytes)
		}
		if hasCall(r) && stackBytes < 32 {
			t.Fatalf("routine %s: stack size %d below required shadow space", r.Name, stackBytes)
		}
	}
}
