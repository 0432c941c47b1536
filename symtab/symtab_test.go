package symtab

import "testing"

func TestScopeRoundTrip(t *testing.T) {
	tab := New[int]()
	tab.Put("x", 1)
	tab.Put("y", 2)

	tab.EnterScope()
	tab.Put("x", 99) // shadows outer x
	tab.Put("z", 3)  // new in inner scope

	if v, ok := tab.Get("x"); !ok || v != 99 {
		t.Fatalf("expected shadowed x=99, got %v, %v", v, ok)
	}
	if !tab.InCurrentScope("x") {
		t.Fatalf("expected x to be in current scope after shadowing put")
	}
	if !tab.Has("z") {
		t.Fatalf("expected z to be visible")
	}

	tab.ExitScope()

	if v, ok := tab.Get("x"); !ok || v != 1 {
		t.Fatalf("expected restored x=1, got %v, %v", v, ok)
	}
	if tab.Has("z") {
		t.Fatalf("expected z to be gone after exiting its scope")
	}
	if !tab.InCurrentScope("x") {
		t.Fatalf("expected outer x to read as in-current-scope again after exiting the inner scope")
	}
}

func TestRedeclarationDetection(t *testing.T) {
	tab := New[string]()
	tab.Put("a", "first")
	if !tab.InCurrentScope("a") {
		t.Fatalf("expected a to be in current scope")
	}

	tab.EnterScope()
	if tab.InCurrentScope("a") {
		t.Fatalf("a from an ancestor scope must not read as in-current-scope")
	}
	tab.Put("a", "shadow")
	if !tab.InCurrentScope("a") {
		t.Fatalf("a just put in this scope must read as in-current-scope")
	}
	tab.ExitScope()
}

func TestNestedScopesFullyRestore(t *testing.T) {
	tab := New[int]()
	tab.Put("a", 1)

	tab.EnterScope()
	tab.Put("b", 2)
	tab.EnterScope()
	tab.Put("c", 3)
	tab.Put("a", 100)
	tab.ExitScope()

	if tab.Has("c") {
		t.Fatalf("c should not survive its scope")
	}
	if v, _ := tab.Get("a"); v != 1 {
		t.Fatalf("a should be restored to 1, got %d", v)
	}
	if v, _ := tab.Get("b"); v != 2 {
		t.Fatalf("b should still be visible, got %d", v)
	}
	tab.ExitScope()

	if tab.Has("b") {
		t.Fatalf("b should not survive its scope")
	}
}
