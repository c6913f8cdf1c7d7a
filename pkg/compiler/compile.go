package compiler

import "fmt"

// Options configures one Compile run: the include search path. Compile
// always runs the whole pipeline; stopping early is the driver's job.
type Options struct {
	SearchPaths []string
}

// Result carries every intermediate artifact a driver stage might want to
// print, plus the final assembly text. Fields are populated as far as the
// pipeline got before a fatal diagnostic stopped it.
type Result struct {
	Preprocessed string
	Tokens       []Token
	TU           *TranslationUnit
	Syms         *SymbolTable
	Module       *Module
	Assembly     string
	Diags        *Diagnostics
}

// Compile runs preprocess -> lex -> parse -> semantic analyze -> IR
// generate -> emit for one translation unit rooted at path, stopping at
// the first phase whose diagnostics include a hard error. It mirrors the
// short-circuit shape of a single Compile entry point threading one
// growing result through every stage, except that CDD's pipeline
// aggregates diagnostics across phases instead of returning on the first
// error: the lex/parse boundary in particular runs the parser even when
// the lexer reported errors, so a single run can surface more than one
// problem.
func Compile(path string, opts Options) (*Result, error) {
	diags := &Diagnostics{}
	res := &Result{Diags: diags}

	src, err := Preprocess(path, PreprocessOptions{SearchPaths: opts.SearchPaths}, diags)
	if err != nil {
		return res, fmt.Errorf("preprocess error: %w", err)
	}
	res.Preprocessed = src

	file := NewSourceFile(path, src)
	tokens := Lex(file, diags)
	res.Tokens = tokens

	// The parser runs over whatever the lexer produced even when the
	// lexer already reported errors, so one run can surface more than one
	// problem at once.
	tu := ParseTranslationUnit(tokens, diags)
	res.TU = tu
	if diags.HasErrors() {
		return res, fmt.Errorf("parse error: %s", diags.Errors()[0].Message)
	}

	analyzer := NewAnalyzer(diags)
	syms := analyzer.Analyze(tu)
	res.Syms = syms
	if diags.HasErrors() {
		return res, fmt.Errorf("semantic error: %s", diags.Errors()[0].Message)
	}

	mod := GenerateModule(tu, syms, analyzer.Typedefs())
	res.Module = mod

	asm := EmitModule(mod)
	res.Assembly = asm

	return res, nil
}
