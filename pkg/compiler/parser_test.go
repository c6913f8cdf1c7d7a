package compiler

import "testing"

func parseNoErr(t *testing.T, src string) *TranslationUnit {
	t.Helper()
	diags := &Diagnostics{}
	toks := Lex(NewSourceFile("t.c", src), diags)
	tu := ParseTranslationUnit(toks, diags)
	if diags.HasErrors() {
		t.Fatalf("parse(%q) reported errors: %v", src, diags.Errors())
	}
	return tu
}

func TestParseVarDecl(t *testing.T) {
	tu := parseNoErr(t, "int x = 10;")
	if len(tu.Decls) != 1 {
		t.Fatalf("got %d decls, want 1", len(tu.Decls))
	}
	v, ok := tu.Decls[0].(*VarDecl)
	if !ok {
		t.Fatalf("got %T, want *VarDecl", tu.Decls[0])
	}
	if v.Name != "x" {
		t.Errorf("got name %q, want x", v.Name)
	}
	if lit, ok := v.Init.(*IntLit); !ok || lit.Value != 10 {
		t.Errorf("got init %v, want IntLit(10)", v.Init)
	}
}

// TestParseArrayOfPointers covers the classic C declarator gotcha: `int
// *a[10]` is an array of 10 pointers to int, not a pointer to an array.
func TestParseArrayOfPointers(t *testing.T) {
	tu := parseNoErr(t, "int *a[10];")
	v := tu.Decls[0].(*VarDecl)
	arr, ok := v.Type.(*ArrayType)
	if !ok {
		t.Fatalf("got %T, want *ArrayType", v.Type)
	}
	if _, ok := arr.Elem.(*PointerType); !ok {
		t.Fatalf("array element is %T, want *PointerType", arr.Elem)
	}
}

// TestParsePointerToArray covers the mirror-image declarator: `int (*p)[3]`
// is a pointer to an array of 3 ints.
func TestParsePointerToArray(t *testing.T) {
	tu := parseNoErr(t, "int (*p)[3];")
	v := tu.Decls[0].(*VarDecl)
	ptr, ok := v.Type.(*PointerType)
	if !ok {
		t.Fatalf("got %T, want *PointerType", v.Type)
	}
	if _, ok := ptr.Elem.(*ArrayType); !ok {
		t.Fatalf("pointer element is %T, want *ArrayType", ptr.Elem)
	}
}

// TestParseArrayOfFunctionPointers is the canonical stress test: `int
// (*fp[10])(int)` is an array of 10 pointers to functions taking an int
// and returning an int.
func TestParseArrayOfFunctionPointers(t *testing.T) {
	tu := parseNoErr(t, "int (*fp[10])(int);")
	v := tu.Decls[0].(*VarDecl)
	arr, ok := v.Type.(*ArrayType)
	if !ok {
		t.Fatalf("got %T, want *ArrayType", v.Type)
	}
	ptr, ok := arr.Elem.(*PointerType)
	if !ok {
		t.Fatalf("array element is %T, want *PointerType", arr.Elem)
	}
	if _, ok := ptr.Elem.(*FunctionType); !ok {
		t.Fatalf("pointer element is %T, want *FunctionType", ptr.Elem)
	}
}

func TestParseFunctionDefinition(t *testing.T) {
	tu := parseNoErr(t, "int main() { return 0; }")
	fn, ok := tu.Decls[0].(*FunctionDecl)
	if !ok {
		t.Fatalf("got %T, want *FunctionDecl", tu.Decls[0])
	}
	if fn.Name != "main" || fn.Body == nil {
		t.Fatalf("got %+v, want a defined function named main", fn)
	}
	if len(fn.Body.Items) != 1 {
		t.Fatalf("got %d body statements, want 1", len(fn.Body.Items))
	}
	if _, ok := fn.Body.Items[0].(*ReturnStmt); !ok {
		t.Errorf("got %T, want *ReturnStmt", fn.Body.Items[0])
	}
}

func TestParseCastVsParenExpr(t *testing.T) {
	tu := parseNoErr(t, "typedef int myint; int main() { int x = (myint)1; int y = (x); return 0; }")
	fn := tu.Decls[1].(*FunctionDecl)
	decl1 := fn.Body.Items[0].(*DeclStmt)
	xDecl := decl1.Decls[0].(*VarDecl)
	if _, ok := xDecl.Init.(*Cast); !ok {
		t.Errorf("got %T, want *Cast for (myint)1", xDecl.Init)
	}
	decl2 := fn.Body.Items[1].(*DeclStmt)
	yDecl := decl2.Decls[0].(*VarDecl)
	if _, ok := yDecl.Init.(*Ident); !ok {
		t.Errorf("got %T, want *Ident for (x)", yDecl.Init)
	}
}

func TestParseDesignatedInitializers(t *testing.T) {
	tu := parseNoErr(t, "struct P { int x; int y; }; struct P p = {.x = 1, .y = 2};")
	v := tu.Decls[1].(*VarDecl)
	list, ok := v.Init.(*InitList)
	if !ok {
		t.Fatalf("got %T, want *InitList", v.Init)
	}
	if len(list.Elements) != 2 {
		t.Fatalf("got %d elements, want 2", len(list.Elements))
	}
	bin, ok := list.Elements[0].(*Binary)
	if !ok || bin.Op != Assign {
		t.Fatalf("got %v, want a designator assignment", list.Elements[0])
	}
	member, ok := bin.Left.(*Member)
	if !ok || member.Name != "x" || member.Base != nil {
		t.Errorf("got %+v, want Member{Base: nil, Name: \"x\"}", bin.Left)
	}
}

// TestParseDeterminism checks that printing the AST twice from the same
// source yields identical text, i.e. PrintTranslationUnit is a pure
// function of the AST's shape.
func TestParseDeterminism(t *testing.T) {
	const src = `
struct P { int x, y; };
int sum(struct P p) {
	int s = 0;
	for (int i = 0; i < 2; i++) {
		s += p.x;
	}
	return s;
}
`
	tu1 := parseNoErr(t, src)
	tu2 := parseNoErr(t, src)
	got1 := PrintTranslationUnit(tu1)
	got2 := PrintTranslationUnit(tu2)
	if got1 != got2 {
		t.Errorf("printed AST is not deterministic:\n%s\n---\n%s", got1, got2)
	}
}

func TestParseSyntaxErrorRecovers(t *testing.T) {
	diags := &Diagnostics{}
	toks := Lex(NewSourceFile("t.c", "int x = ; int y = 2;"), diags)
	tu := ParseTranslationUnit(toks, diags)
	if !diags.HasErrors() {
		t.Fatal("expected a diagnostic for the missing initializer expression")
	}
	if len(tu.Decls) != 2 {
		t.Fatalf("got %d decls, want 2 (parser should recover and keep going)", len(tu.Decls))
	}
}
