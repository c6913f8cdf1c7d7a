package compiler

import (
	"os"
	"path/filepath"
	"testing"
)

func preprocessFile(t *testing.T, src string) (string, *Diagnostics) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "t.c")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	diags := &Diagnostics{}
	out, err := Preprocess(path, PreprocessOptions{}, diags)
	if err != nil {
		t.Fatalf("Preprocess(%q) error: %v", src, err)
	}
	return out, diags
}

// TestPreprocessIdempotence checks that running a file with no directives
// through the preprocessor leaves its code untouched.
func TestPreprocessIdempotence(t *testing.T) {
	const src = "int main() {\n  return 0;\n}\n"
	out, diags := preprocessFile(t, src)
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Errors())
	}
	if out != src {
		t.Errorf("got %q, want unchanged %q", out, src)
	}
}

// TestPreprocessSelfRecursiveMacroTerminates checks that #define A A does
// not expand forever: the hide-set algorithm stops the rescan the moment it
// would reuse A's own name.
func TestPreprocessSelfRecursiveMacroTerminates(t *testing.T) {
	const src = "#define A A\nint x = A;\n"
	out, diags := preprocessFile(t, src)
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Errors())
	}
	want := "int x = A;\n"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

// TestPreprocessMutuallyRecursiveMacrosTerminate checks the same property
// for a two-macro cycle.
func TestPreprocessMutuallyRecursiveMacrosTerminate(t *testing.T) {
	const src = "#define A B\n#define B A\nint x = A;\n"
	out, diags := preprocessFile(t, src)
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Errors())
	}
	want := "int x = A;\n"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

// TestPreprocessFunctionMacroParenthesization checks that a function-like
// macro body substitution is fully parenthesized, so an argument expression
// doesn't silently change precedence at the call site.
func TestPreprocessFunctionMacroParenthesization(t *testing.T) {
	const src = "#define SQ(x) ((x)*(x))\nint i = 3;\nint y = SQ(i+1);\n"
	out, diags := preprocessFile(t, src)
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Errors())
	}
	want := "int i = 3;\nint y = ((i+1)*(i+1));\n"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestPreprocessConditionalCompilation(t *testing.T) {
	const src = "#define FEATURE 1\n#if FEATURE\nint a = 1;\n#else\nint a = 2;\n#endif\n"
	out, diags := preprocessFile(t, src)
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Errors())
	}
	if out != "int a = 1;\n" {
		t.Errorf("got %q, want the #if branch only", out)
	}
}

func TestPreprocessIfdefUndefined(t *testing.T) {
	const src = "#ifdef NOPE\nint a = 1;\n#endif\nint b = 2;\n"
	out, diags := preprocessFile(t, src)
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Errors())
	}
	if out != "int b = 2;\n" {
		t.Errorf("got %q, want only the fallthrough line", out)
	}
}

func TestPreprocessUnterminatedConditionalIsAnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.c")
	if err := os.WriteFile(path, []byte("#if 1\nint a;\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	diags := &Diagnostics{}
	_, err := Preprocess(path, PreprocessOptions{}, diags)
	if err == nil {
		t.Fatal("expected an error for an unterminated #if")
	}
}

func TestPreprocessInclude(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "def.h"), []byte("int shared = 7;\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	mainPath := filepath.Join(dir, "main.c")
	if err := os.WriteFile(mainPath, []byte("#include \"def.h\"\nint main() { return shared; }\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	diags := &Diagnostics{}
	out, err := Preprocess(mainPath, PreprocessOptions{}, diags)
	if err != nil {
		t.Fatalf("Preprocess error: %v", err)
	}
	want := "/* begin include \"def.h\" */\nint shared = 7;\n/* end include \"def.h\" */\nint main() { return shared; }\n"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestPreprocessIncludeCycleIsAnError(t *testing.T) {
	dir := t.TempDir()
	aPath := filepath.Join(dir, "a.h")
	bPath := filepath.Join(dir, "b.h")
	if err := os.WriteFile(aPath, []byte("#include \"b.h\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(bPath, []byte("#include \"a.h\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	diags := &Diagnostics{}
	_, err := Preprocess(aPath, PreprocessOptions{}, diags)
	if err == nil && !diags.HasErrors() {
		t.Fatal("expected an include cycle to be reported as an error or diagnostic")
	}
}
