// Command cdd is the CDD compiler driver: it walks os.Args by hand (no
// flags/cobra/urfave dispatch table) selecting a pipeline stop point, then
// runs preprocess -> lex -> parse -> semantic analyze -> IR generate ->
// emit -> assemble/link as far as that stop point requires.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cdd/internal/toolchain"
	"cdd/pkg/compiler"
	"cdd/pkg/utils"
)

func usage() {
	fmt.Fprintln(os.Stderr, "CDD Compiler")
	fmt.Fprintf(os.Stderr, "Usage: %s [options] <source_file>\n\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "Options:")
	fmt.Fprintln(os.Stderr, "  -p, --preprocess   stop after preprocessing, print to stdout")
	fmt.Fprintln(os.Stderr, "  -l, --lex          stop after lexing, print tokens")
	fmt.Fprintln(os.Stderr, "  -a, --ast          stop after parsing, print the AST")
	fmt.Fprintln(os.Stderr, "  -s, --semantic     stop after semantic analysis, print summary")
	fmt.Fprintln(os.Stderr, "  -i, --ir           print the quadruple listing")
	fmt.Fprintln(os.Stderr, "  -S, --asm          emit assembly to the output file")
	fmt.Fprintln(os.Stderr, "  -c, --compile      produce an executable")
	fmt.Fprintln(os.Stderr, "  -o FILE            output filename")
	fmt.Fprintln(os.Stderr, "  -I DIR             add DIR to the include search path")
	fmt.Fprintln(os.Stderr, "  -h, --help         this message")
	fmt.Fprintln(os.Stderr, "\nEnvironment: CDD_INCLUDE_PATH, CDD_STDLIB_PATH")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var (
		onlyPreprocess, onlyLex, onlyAst, doSemantic, doIR, doAsm, doCompile bool
		inPath, outPath                                                     string
		includeDirs                                                         []string
	)

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-p" || arg == "--preprocess":
			onlyPreprocess = true
		case arg == "-l" || arg == "--lex":
			onlyLex = true
		case arg == "-a" || arg == "--ast":
			onlyAst = true
		case arg == "-s" || arg == "--semantic":
			doSemantic = true
		case arg == "-i" || arg == "--ir":
			doIR = true
		case arg == "-S" || arg == "--asm":
			doAsm = true
		case arg == "-c" || arg == "--compile":
			doCompile = true
		case arg == "-o":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "-o requires an argument")
				os.Exit(1)
			}
			i++
			outPath = args[i]
		case arg == "-I":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "-I requires an argument")
				os.Exit(1)
			}
			i++
			includeDirs = append(includeDirs, args[i])
		case arg == "-h" || arg == "--help":
			usage()
			os.Exit(0)
		case strings.HasPrefix(arg, "-"):
			fmt.Fprintf(os.Stderr, "unrecognized flag %q\n", arg)
			usage()
			os.Exit(1)
		default:
			inPath = arg
		}
	}

	if inPath == "" {
		fmt.Fprintln(os.Stderr, "error: no source file specified")
		usage()
		os.Exit(1)
	}

	fullPath, _, err := utils.GetPathInfo(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read error: %v\n", err)
		os.Exit(1)
	}

	if outPath == "" {
		outPath = defaultOutputPath(inPath, doCompile)
	}

	diags := &compiler.Diagnostics{}

	src, err := compiler.Preprocess(fullPath, compiler.PreprocessOptions{SearchPaths: includeDirs}, diags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "preprocess error: %v\n", err)
		os.Exit(1)
	}
	if onlyPreprocess {
		fmt.Println(src)
		os.Exit(0)
	}

	file := compiler.NewSourceFile(fullPath, src)
	tokens := compiler.Lex(file, diags)
	if onlyLex {
		for _, tok := range tokens {
			fmt.Println(tok)
		}
		if diags.HasErrors() {
			reportAndExit(diags)
		}
		os.Exit(0)
	}

	tu := compiler.ParseTranslationUnit(tokens, diags)
	if diags.HasErrors() {
		reportAndExit(diags)
	}
	if onlyAst {
		fmt.Print(compiler.PrintTranslationUnit(tu))
		os.Exit(0)
	}

	analyzer := compiler.NewAnalyzer(diags)
	syms := analyzer.Analyze(tu)
	if diags.HasErrors() {
		reportAndExit(diags)
	}
	if doSemantic && !doIR && !doAsm && !doCompile {
		printSemanticSummary(tu, diags)
		os.Exit(0)
	}

	mod := compiler.GenerateModule(tu, syms, analyzer.Typedefs())
	if doIR && !doAsm && !doCompile {
		printIR(mod)
		os.Exit(0)
	}

	asm := compiler.EmitModule(mod)

	if doCompile {
		asmPath := outPath + ".s"
		if err := os.WriteFile(asmPath, []byte(asm), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "error: cannot write to %s: %v\n", asmPath, err)
			os.Exit(1)
		}
		if _, err := toolchain.AssembleAndLink(asmPath, outPath); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("compiled successfully: %s\n", outPath)
		os.Exit(0)
	}

	// Default and -S/--asm both stop here, emitting assembly text.
	if outPath == "-" {
		fmt.Print(asm)
	} else {
		if err := os.WriteFile(outPath, []byte(asm), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "error: cannot write to %s: %v\n", outPath, err)
			os.Exit(1)
		}
		fmt.Printf("assembly written to %s\n", outPath)
	}
}

func defaultOutputPath(inPath string, doCompile bool) string {
	ext := filepath.Ext(inPath)
	base := strings.TrimSuffix(inPath, ext)
	if doCompile {
		return base
	}
	return base + ".s"
}

func reportAndExit(diags *compiler.Diagnostics) {
	diags.Sort()
	for _, d := range diags.All() {
		fmt.Fprintln(os.Stderr, d)
	}
	os.Exit(1)
}

func printSemanticSummary(tu *compiler.TranslationUnit, diags *compiler.Diagnostics) {
	var funcs, vars, types int
	for _, d := range tu.Decls {
		switch d.(type) {
		case *compiler.FunctionDecl:
			funcs++
		case *compiler.VarDecl:
			vars++
		default:
			types++
		}
	}
	fmt.Println("=== Semantic Analysis ===")
	fmt.Println("Status: Passed")
	fmt.Printf("Declarations: %d\n", len(tu.Decls))
	fmt.Printf("Errors: %d\n", len(diags.Errors()))
	fmt.Printf("Warnings: %d\n", len(diags.Warnings()))
	fmt.Println()
	fmt.Println("--- Symbol Summary ---")
	fmt.Printf("Functions: %d\n", funcs)
	fmt.Printf("Global Variables: %d\n", vars)
	fmt.Printf("Type Definitions: %d\n", types)
}

func printIR(mod *compiler.Module) {
	fmt.Println("=== Intermediate Representation (Quadruples) ===")
	for _, fn := range mod.Functions {
		fmt.Printf("\nFunction: %s\n", fn.Name)
		for i, q := range fn.Body {
			fmt.Printf("  [%d] %s\n", i, q)
		}
	}
}
