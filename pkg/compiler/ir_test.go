package compiler

import "testing"

func lowerModule(t *testing.T, src string) *Module {
	t.Helper()
	diags := &Diagnostics{}
	toks := Lex(NewSourceFile("t.c", src), diags)
	tu := ParseTranslationUnit(toks, diags)
	if diags.HasErrors() {
		t.Fatalf("parse(%q) reported errors: %v", src, diags.Errors())
	}
	analyzer := NewAnalyzer(diags)
	syms := analyzer.Analyze(tu)
	if diags.HasErrors() {
		t.Fatalf("analyze(%q) reported errors: %v", src, diags.Errors())
	}
	return GenerateModule(tu, syms, analyzer.Typedefs())
}

func findFunction(t *testing.T, mod *Module, name string) Function {
	t.Helper()
	for _, fn := range mod.Functions {
		if fn.Name == name {
			return fn
		}
	}
	t.Fatalf("no function named %q in module", name)
	return Function{}
}

// TestShortCircuitAndSkipsRightOperand checks that `a && f()` emits the
// jump that tests `a` *before* any quad calling f, so the generated code
// can skip evaluating the right operand at run time.
func TestShortCircuitAndSkipsRightOperand(t *testing.T) {
	const src = `
int f();
int g(int a) {
	return a && f();
}
`
	mod := lowerModule(t, src)
	fn := findFunction(t, mod, "g")

	jumpIdx, callIdx := -1, -1
	for i, q := range fn.Body {
		if q.Op == OpJumpIfZero && jumpIdx == -1 {
			jumpIdx = i
		}
		if q.Op == OpCall && callIdx == -1 {
			callIdx = i
		}
	}
	if jumpIdx == -1 {
		t.Fatal("expected an OpJumpIfZero quad for the && short circuit")
	}
	if callIdx == -1 {
		t.Fatal("expected an OpCall quad for f()")
	}
	if jumpIdx >= callIdx {
		t.Errorf("jump testing the left operand (quad %d) must precede the call to f (quad %d)", jumpIdx, callIdx)
	}
}

// TestShortCircuitOrSkipsRightOperand mirrors the && case for ||: the
// right operand is only reached when the left operand is zero.
func TestShortCircuitOrSkipsRightOperand(t *testing.T) {
	const src = `
int f();
int g(int a) {
	return a || f();
}
`
	mod := lowerModule(t, src)
	fn := findFunction(t, mod, "g")

	jumpIdx, callIdx := -1, -1
	for i, q := range fn.Body {
		if q.Op == OpJumpIfNotZero && jumpIdx == -1 {
			jumpIdx = i
		}
		if q.Op == OpCall && callIdx == -1 {
			callIdx = i
		}
	}
	if jumpIdx == -1 {
		t.Fatal("expected an OpJumpIfNotZero quad for the || short circuit")
	}
	if callIdx == -1 {
		t.Fatal("expected an OpCall quad for f()")
	}
	if jumpIdx >= callIdx {
		t.Errorf("jump testing the left operand (quad %d) must precede the call to f (quad %d)", jumpIdx, callIdx)
	}
}

func TestIfStmtLowersToConditionalJump(t *testing.T) {
	const src = `
int g(int a) {
	if (a) {
		return 1;
	}
	return 0;
}
`
	mod := lowerModule(t, src)
	fn := findFunction(t, mod, "g")
	var sawJump bool
	for _, q := range fn.Body {
		if q.Op == OpJumpIfZero {
			sawJump = true
		}
	}
	if !sawJump {
		t.Error("expected an OpJumpIfZero quad lowering the if condition")
	}
}

func TestWhileLoopHasBackEdge(t *testing.T) {
	const src = `
int g(int n) {
	int s = 0;
	while (n > 0) {
		s = s + n;
		n = n - 1;
	}
	return s;
}
`
	mod := lowerModule(t, src)
	fn := findFunction(t, mod, "g")

	labels := map[string]int{}
	for i, q := range fn.Body {
		if q.Op == OpLabel {
			labels[q.Result.Label] = i
		}
	}
	var sawBackEdge bool
	for i, q := range fn.Body {
		if q.Op == OpJump {
			if target, ok := labels[q.Result.Label]; ok && target < i {
				sawBackEdge = true
			}
		}
	}
	if !sawBackEdge {
		t.Error("expected a jump back to an earlier label closing the while loop")
	}
}

func TestQuadStringFormatsLabel(t *testing.T) {
	q := Quad{Op: OpLabel, Result: Operand{Kind: OperandLabel, Label: "L1"}}
	if got, want := q.String(), "L1:"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestQuadStringFormatsMnemonicAndOperands(t *testing.T) {
	q := Quad{
		Op:     OpAdd,
		Result: Operand{Kind: OperandTemp, Temp: 1, Type: IntType},
		Arg1:   Operand{Kind: OperandImmInt, Imm: 1, Type: IntType},
		Arg2:   Operand{Kind: OperandImmInt, Imm: 2, Type: IntType},
	}
	got := q.String()
	if got == "" {
		t.Fatal("expected a non-empty rendering")
	}
	if got[:4] != "  AD" {
		t.Errorf("got %q, want it to start with the ADD mnemonic", got)
	}
}

func TestOpcodeStringUnknownFallback(t *testing.T) {
	var bogus Opcode = -1
	if got := bogus.String(); got != "???" {
		t.Errorf("got %q, want the unknown-opcode fallback", got)
	}
}
