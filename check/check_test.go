package check

import (
	"strings"
	"testing"

	"github.com/paanil/mug/arena"
	"github.com/paanil/mug/ast"
	"github.com/paanil/mug/strtab"
)

type collectingDiags struct {
	msgs []string
}

func (d *collectingDiags) Semantic(format string, args ...interface{}) {
	d.msgs = append(d.msgs, format)
}

func parseOK(t *testing.T, src string) ast.Ast {
	t.Helper()
	a := arena.NewAlloc()
	strs := strtab.New(a)
	diags := &parseDiags{}
	p := ast.NewParser(strings.NewReader(src), strs, diags)
	result := p.Parse()
	if !result.Valid {
		t.Fatalf("parse failed: %v", diags.msgs)
	}
	return result
}

type parseDiags struct{ msgs []string }

func (d *parseDiags) Syntactic(line, column int, format string, args ...interface{}) {
	d.msgs = append(d.msgs, format)
}

func checkSrc(t *testing.T, src string) (bool, *collectingDiags) {
	t.Helper()
	tree := parseOK(t, src)
	diags := &collectingDiags{}
	return Check(tree, diags), diags
}

func TestMutualRecursionResolves(t *testing.T) {
	ok, diags := checkSrc(t, `
		function isEven(int n) -> bool { if (n == 0) { return true; } return isOdd(n - 1); }
		function isOdd(int n) -> bool { if (n == 0) { return false; } return isEven(n - 1); }
	`)
	if !ok {
		t.Fatalf("expected mutual recursion to typecheck, errors: %v", diags.msgs)
	}
}

func TestForwardReferenceResolves(t *testing.T) {
	ok, diags := checkSrc(t, `
		function a() -> int { return b(); }
		function b() -> int { return 1; }
	`)
	if !ok {
		t.Fatalf("expected forward reference to typecheck, errors: %v", diags.msgs)
	}
}

func TestIntUintCrossCast(t *testing.T) {
	ok, diags := checkSrc(t, `
		function f() {
			int x = 1;
			uint y = x;
		}
	`)
	if !ok {
		t.Fatalf("expected int->uint cast to be allowed, errors: %v", diags.msgs)
	}
}

func TestBoolArithmeticRejected(t *testing.T) {
	ok, _ := checkSrc(t, `
		function f() -> int {
			bool b = true;
			return b + 1;
		}
	`)
	if ok {
		t.Fatalf("expected boolean arithmetic to be rejected")
	}
}

func TestSignedUnsignedComparisonRejected(t *testing.T) {
	ok, _ := checkSrc(t, `
		function f() -> bool {
			int x = 1;
			uint y = 2u;
			return x < y;
		}
	`)
	if ok {
		t.Fatalf("expected signed/unsigned comparison to be rejected")
	}
}

func TestBreakOutsideLoopRejected(t *testing.T) {
	ok, _ := checkSrc(t, `function f() { break; }`)
	if ok {
		t.Fatalf("expected break outside loop to be rejected")
	}
}

func TestBreakInsideWhileAccepted(t *testing.T) {
	ok, diags := checkSrc(t, `function f() { while (true) { break; } }`)
	if !ok {
		t.Fatalf("expected break inside while to typecheck, errors: %v", diags.msgs)
	}
}

func TestRedeclarationInSameScopeRejected(t *testing.T) {
	ok, _ := checkSrc(t, `function f() { int x = 1; int x = 2; }`)
	if ok {
		t.Fatalf("expected redeclaration in same scope to be rejected")
	}
}

func TestShadowingInNestedScopeAllowed(t *testing.T) {
	ok, diags := checkSrc(t, `
		function f() {
			int x = 1;
			{
				int x = 2;
			}
		}
	`)
	if !ok {
		t.Fatalf("expected shadowing in nested scope, errors: %v", diags.msgs)
	}
}

func TestNonVoidMustReturnValue(t *testing.T) {
	ok, _ := checkSrc(t, `function f() -> int { return; }`)
	if ok {
		t.Fatalf("expected bare return in non-void function to be rejected")
	}
}

func TestArityMismatchRejected(t *testing.T) {
	ok, _ := checkSrc(t, `
		function f(int a, int b) { }
		function g() { f(1); }
	`)
	if ok {
		t.Fatalf("expected too-few-arguments call to be rejected")
	}
}
