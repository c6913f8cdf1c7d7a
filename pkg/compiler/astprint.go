package compiler

import (
	"fmt"
	"strings"
)

// PrintTranslationUnit renders tu in a stable, indented textual form: one
// line per node, children indented two spaces under their parent. It
// exists so a driver's `-a`/`--ast` stop point has something deterministic
// to print, and so re-parsing the printed form's structure (node kind plus
// children) is a no-op round trip for testing.
func PrintTranslationUnit(tu *TranslationUnit) string {
	var sb strings.Builder
	for _, d := range tu.Decls {
		printDecl(&sb, d, 0)
	}
	return sb.String()
}

func indent(sb *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		sb.WriteString("  ")
	}
}

func printDecl(sb *strings.Builder, d Decl, depth int) {
	indent(sb, depth)
	switch decl := d.(type) {
	case *VarDecl:
		fmt.Fprintf(sb, "VarDecl %s : %s\n", decl.Name, decl.Type)
		if decl.Init != nil {
			indent(sb, depth+1)
			fmt.Fprintf(sb, "init: %s\n", decl.Init)
		}
	case *FunctionDecl:
		fmt.Fprintf(sb, "FunctionDecl %s : %s\n", decl.Name, decl.Type)
		if decl.Body != nil {
			printStmt(sb, decl.Body, depth+1)
		}
	case *RecordDecl:
		kind := "struct"
		if decl.IsUnion {
			kind = "union"
		}
		fmt.Fprintf(sb, "RecordDecl %s %s\n", kind, decl.Tag)
		for _, f := range decl.Fields {
			indent(sb, depth+1)
			fmt.Fprintf(sb, "field %s : %s\n", f.Name, f.Type)
		}
	case *EnumDecl:
		fmt.Fprintf(sb, "EnumDecl %s\n", decl.Tag)
		for _, c := range decl.Constants {
			indent(sb, depth+1)
			if c.Value != nil {
				fmt.Fprintf(sb, "const %s = %s\n", c.Name, c.Value)
			} else {
				fmt.Fprintf(sb, "const %s\n", c.Name)
			}
		}
	case *TypedefDecl:
		fmt.Fprintf(sb, "TypedefDecl %s : %s\n", decl.Name, decl.Type)
	default:
		fmt.Fprintf(sb, "%T\n", d)
	}
}

func printStmt(sb *strings.Builder, s Stmt, depth int) {
	indent(sb, depth)
	switch stmt := s.(type) {
	case *CompoundStmt:
		fmt.Fprintf(sb, "CompoundStmt (scope %d)\n", stmt.ScopeID)
		for _, item := range stmt.Items {
			printStmt(sb, item, depth+1)
		}
	case *DeclStmt:
		sb.WriteString("DeclStmt\n")
		for _, d := range stmt.Decls {
			printDecl(sb, d, depth+1)
		}
	case *ExprStmt:
		fmt.Fprintf(sb, "ExprStmt %s\n", stmt.X)
	case *IfStmt:
		fmt.Fprintf(sb, "IfStmt %s\n", stmt.Cond)
		printStmt(sb, stmt.Then, depth+1)
		if stmt.Else != nil {
			indent(sb, depth)
			sb.WriteString("else\n")
			printStmt(sb, stmt.Else, depth+1)
		}
	case *SwitchStmt:
		fmt.Fprintf(sb, "SwitchStmt %s\n", stmt.Tag)
		printStmt(sb, stmt.Body, depth+1)
	case *CaseStmt:
		fmt.Fprintf(sb, "CaseStmt %s\n", stmt.Value)
		printStmt(sb, stmt.Body, depth+1)
	case *DefaultStmt:
		sb.WriteString("DefaultStmt\n")
		printStmt(sb, stmt.Body, depth+1)
	case *WhileStmt:
		fmt.Fprintf(sb, "WhileStmt %s\n", stmt.Cond)
		printStmt(sb, stmt.Body, depth+1)
	case *DoWhileStmt:
		sb.WriteString("DoWhileStmt\n")
		printStmt(sb, stmt.Body, depth+1)
		indent(sb, depth+1)
		fmt.Fprintf(sb, "cond: %s\n", stmt.Cond)
	case *ForStmt:
		sb.WriteString("ForStmt\n")
		if stmt.Init != nil {
			printStmt(sb, stmt.Init, depth+1)
		}
		if stmt.Cond != nil {
			indent(sb, depth+1)
			fmt.Fprintf(sb, "cond: %s\n", stmt.Cond)
		}
		if stmt.Post != nil {
			indent(sb, depth+1)
			fmt.Fprintf(sb, "post: %s\n", stmt.Post)
		}
		printStmt(sb, stmt.Body, depth+1)
	case *GotoStmt:
		fmt.Fprintf(sb, "GotoStmt %s\n", stmt.Label)
	case *ContinueStmt:
		sb.WriteString("ContinueStmt\n")
	case *BreakStmt:
		sb.WriteString("BreakStmt\n")
	case *ReturnStmt:
		if stmt.Value != nil {
			fmt.Fprintf(sb, "ReturnStmt %s\n", stmt.Value)
		} else {
			sb.WriteString("ReturnStmt\n")
		}
	case *LabelStmt:
		fmt.Fprintf(sb, "LabelStmt %s\n", stmt.Name)
		printStmt(sb, stmt.Stmt, depth+1)
	default:
		fmt.Fprintf(sb, "%T\n", s)
	}
}
