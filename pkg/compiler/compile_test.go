package compiler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func compileSrc(t *testing.T, src string) *Result {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "t.c")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	res, err := Compile(path, Options{})
	if err != nil {
		t.Fatalf("Compile(%q) error: %v\ndiagnostics: %v", src, err, res.Diags.All())
	}
	return res
}

func TestCompileHelloWorld(t *testing.T) {
	res := compileSrc(t, `
int puts(char *s);
int main() {
	puts("hello, world");
	return 0;
}
`)
	if !strings.Contains(res.Assembly, "main:") {
		t.Error("expected a main label in the generated assembly")
	}
	if !strings.Contains(res.Assembly, "call puts") {
		t.Error("expected a call to puts")
	}
}

func TestCompileFactorial(t *testing.T) {
	res := compileSrc(t, `
int factorial(int n) {
	if (n <= 1) {
		return 1;
	}
	return n * factorial(n - 1);
}
int main() {
	return factorial(5);
}
`)
	if !strings.Contains(res.Assembly, "call factorial") {
		t.Error("expected a recursive call to factorial")
	}
}

func TestCompileArraySum(t *testing.T) {
	res := compileSrc(t, `
int sum(int *a, int n) {
	int total = 0;
	for (int i = 0; i < n; i++) {
		total += a[i];
	}
	return total;
}
int main() {
	int nums[5] = {1, 2, 3, 4, 5};
	return sum(nums, 5);
}
`)
	if res.Module == nil || len(res.Module.Functions) != 2 {
		t.Fatalf("expected 2 lowered functions, got %d", len(res.Module.Functions))
	}
}

func TestCompileStructFieldAccess(t *testing.T) {
	res := compileSrc(t, `
struct Point { int x; int y; };
int manhattan(struct Point p) {
	return p.x + p.y;
}
int main() {
	struct Point origin = {.x = 3, .y = 4};
	return manhattan(origin);
}
`)
	if res.Module == nil {
		t.Fatal("expected a non-nil module")
	}
}

func TestCompileFloatComparison(t *testing.T) {
	res := compileSrc(t, `
int isClose(double a, double b) {
	double diff = a - b;
	if (diff < 0) {
		diff = -diff;
	}
	return diff < 0.0001;
}
int main() {
	return isClose(1.0, 1.00001);
}
`)
	if !strings.Contains(res.Assembly, "ucomisd") && !strings.Contains(res.Assembly, "comisd") {
		t.Error("expected a double-precision comparison instruction")
	}
}

func TestCompileWithMacro(t *testing.T) {
	res := compileSrc(t, `
#define SQUARE(x) ((x)*(x))
int main() {
	return SQUARE(4);
}
`)
	if !strings.Contains(res.Preprocessed, "((4)*(4))") {
		t.Errorf("expected the macro to expand fully parenthesized, got: %q", res.Preprocessed)
	}
}

func TestCompileStopsAtParseErrorWithoutRunningSemanticAnalysis(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.c")
	if err := os.WriteFile(path, []byte("int main( { return 0; }"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	res, err := Compile(path, Options{})
	if err == nil {
		t.Fatal("expected a parse error")
	}
	if res.Syms != nil {
		t.Error("semantic analysis should not have run after a parse error")
	}
}

func TestCompileStopsAtSemanticErrorWithoutGeneratingIR(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.c")
	if err := os.WriteFile(path, []byte("int main() { return undeclared; }"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	res, err := Compile(path, Options{})
	if err == nil {
		t.Fatal("expected a semantic error")
	}
	if res.Module != nil {
		t.Error("IR generation should not have run after a semantic error")
	}
}

func TestCompileUsesIncludeSearchPath(t *testing.T) {
	dir := t.TempDir()
	incDir := filepath.Join(dir, "inc")
	if err := os.Mkdir(incDir, 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(incDir, "val.h"), []byte("int v = 99;\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	mainPath := filepath.Join(dir, "main.c")
	if err := os.WriteFile(mainPath, []byte("#include <val.h>\nint main() { return v; }\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	res, err := Compile(mainPath, Options{SearchPaths: []string{incDir}})
	if err != nil {
		t.Fatalf("Compile error: %v\ndiagnostics: %v", err, res.Diags.All())
	}
}
