package compiler

import "testing"

func lexNoErr(t *testing.T, src string) []Token {
	t.Helper()
	diags := &Diagnostics{}
	toks := Lex(NewSourceFile("t.c", src), diags)
	if diags.HasErrors() {
		t.Fatalf("Lex(%q) reported errors: %v", src, diags.Errors())
	}
	return toks
}

func TestLexBasicTokens(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kinds []TokenKind
	}{
		{"empty", "", []TokenKind{EOF}},
		{
			"punctuation",
			"+ - * / & = == != < > ; , { } ( )",
			[]TokenKind{Plus, Minus, Star, Slash, Amp, Assign, Eq, NotEq, Less, Greater,
				Semicolon, Comma, LBrace, RBrace, LParen, RParen, EOF},
		},
		{
			"keywords and identifiers",
			"int if else while return variableName _under_score",
			[]TokenKind{KwInt, KwIf, KwElse, KwWhile, KwReturn, Identifier, Identifier, EOF},
		},
		{
			"multi-char operators",
			"<<= >>= && || ++ -- -> ... ##",
			[]TokenKind{ShlAssign, ShrAssign, AmpAmp, PipePipe, PlusPlus, MinusMinus, Arrow, Ellipsis, HashHash, EOF},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks := lexNoErr(t, tt.input)
			if len(toks) != len(tt.kinds) {
				t.Fatalf("got %d tokens, want %d: %v", len(toks), len(tt.kinds), toks)
			}
			for i, k := range tt.kinds {
				if toks[i].Kind != k {
					t.Errorf("token %d: got %s, want %s", i, toks[i].Kind, k)
				}
			}
		})
	}
}

func TestLexIntegerLiterals(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"0", 0},
		{"1", 1},
		{"42", 42},
		{"0x7f", 0x7f},
		{"075", 075},
		{"0b101", 0b101},
		{"2147483647", 2147483647},
		{"0xdeadbeef", 0xdeadbeef},
		{"123ull", 123},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			toks := lexNoErr(t, tt.input)
			if toks[0].Kind != IntLiteral {
				t.Fatalf("got kind %s, want IntLiteral", toks[0].Kind)
			}
			if toks[0].Literal.Int != tt.want {
				t.Errorf("got %d, want %d", toks[0].Literal.Int, tt.want)
			}
		})
	}
}

func TestLexFloatLiterals(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"0.0", 0.0},
		{".5", 0.5},
		{"5.", 5.0},
		{"1e10", 1e10},
		{"2.5e-3", 2.5e-3},
		{"1.5f", 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			toks := lexNoErr(t, tt.input)
			if toks[0].Kind != FloatLiteral {
				t.Fatalf("got kind %s, want FloatLiteral", toks[0].Kind)
			}
			got := toks[0].Literal.Float
			diff := got - tt.want
			if diff < 0 {
				diff = -diff
			}
			if diff > 1e-9*(1+abs64(tt.want)) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func abs64(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func TestLexStringAndCharLiterals(t *testing.T) {
	toks := lexNoErr(t, `"hello\n" 'a' '\0' '\x41'`)
	if toks[0].Kind != StringLiteral || string(toks[0].Literal.Str) != "hello\n" {
		t.Errorf("string literal: got %q", toks[0].Literal.Str)
	}
	if toks[1].Kind != CharLiteral || toks[1].Literal.Char != 'a' {
		t.Errorf("char literal: got %v", toks[1].Literal.Char)
	}
	if toks[2].Kind != CharLiteral || toks[2].Literal.Char != 0 {
		t.Errorf("char literal '\\0': got %v", toks[2].Literal.Char)
	}
	if toks[3].Kind != CharLiteral || toks[3].Literal.Char != 'A' {
		t.Errorf("char literal '\\x41': got %v", toks[3].Literal.Char)
	}
}

func TestLexInvalidCharacterRecovers(t *testing.T) {
	diags := &Diagnostics{}
	toks := Lex(NewSourceFile("t.c", "int x `= 1;"), diags)
	if !diags.HasErrors() {
		t.Fatal("expected a diagnostic for the stray backtick")
	}
	// Lexing keeps going after the bad byte instead of stopping dead.
	var sawAssign bool
	for _, tok := range toks {
		if tok.Kind == Assign {
			sawAssign = true
		}
	}
	if !sawAssign {
		t.Error("lexer did not recover past the invalid character")
	}
}
