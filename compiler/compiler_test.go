package compiler

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/paanil/mug/compiler/diag"
)

func writeSource(t *testing.T, dir, src string) string {
	t.Helper()
	path := filepath.Join(dir, "in.mug")
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestCompileStopsAfterAssemblyOnStageAsm(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, `function f() -> int { return 1; }`)
	outPath := filepath.Join(dir, "out.s")

	var errBuf bytes.Buffer
	sink := diag.NewSink(&errBuf)
	res, err := Compile(path, Options{Stage: StageAsm, OutPath: outPath}, sink)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if sink.Failed() {
		t.Fatalf("unexpected diagnostics: %s", errBuf.String())
	}
	if res.OutPath != outPath {
		t.Fatalf("expected OutPath %q, got %q", outPath, res.OutPath)
	}
	contents, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("expected assembly to be written: %v", err)
	}
	if !bytes.Contains(contents, []byte("global f")) {
		t.Fatalf("expected emitted assembly to export f, got:\n%s", contents)
	}
}

func TestCompileReportsSyntaxErrorsWithoutWritingOutput(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, `function f( -> int { return 1; }`)
	outPath := filepath.Join(dir, "out.s")

	var errBuf bytes.Buffer
	sink := diag.NewSink(&errBuf)
	res, err := Compile(path, Options{Stage: StageAsm, OutPath: outPath}, sink)
	if err != nil {
		t.Fatalf("Compile returned an error instead of a diagnostic: %v", err)
	}
	if !sink.Failed() {
		t.Fatalf("expected a syntax diagnostic, got none")
	}
	if res.OutPath != "" {
		t.Fatalf("expected no output path on front-end failure, got %q", res.OutPath)
	}
	if _, err := os.Stat(outPath); err == nil {
		t.Fatalf("did not expect assembly to be written after a parse failure")
	}
}

func TestCompileReportsSemanticErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, `function f() -> int { return g(); }`)
	outPath := filepath.Join(dir, "out.s")

	var errBuf bytes.Buffer
	sink := diag.NewSink(&errBuf)
	if _, err := Compile(path, Options{Stage: StageAsm, OutPath: outPath}, sink); err != nil {
		t.Fatalf("Compile returned an error instead of a diagnostic: %v", err)
	}
	if !sink.Failed() {
		t.Fatalf("expected a semantic diagnostic for calling an undefined function")
	}
}

func TestDefaultOutputNamesPerStage(t *testing.T) {
	cases := []struct {
		stage Stage
		want  string
	}{
		{StageAsm, "out.s"},
		{StageObj, "out.o"},
		{StageExe, "out.exe"},
	}
	for _, c := range cases {
		if got := defaultOutPath(c.stage); got != c.want {
			t.Fatalf("stage %v: expected %q, got %q", c.stage, c.want, got)
		}
	}
}
