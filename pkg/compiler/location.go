package compiler

import "fmt"

// Location pinpoints a byte in a translation unit. Every token, AST node,
// IR operand origin, and Diagnostic carries one so a later phase never has
// to re-derive "where did this come from" from scratch.
type Location struct {
	File   string
	Line   int // 1-based
	Column int // 1-based
	Offset int // byte offset into SourceFile.Text
}

func (l Location) String() string {
	if l.File == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// SourceFile owns the raw bytes of one input and answers offset -> (line,
// column) queries. Tokens and AST nodes hold a Location, not a pointer back
// into a SourceFile, so the file only needs to outlive the phase that
// constructs those locations (the lexer); nothing downstream re-reads it.
type SourceFile struct {
	Name string
	Text string

	// lineStarts[i] is the byte offset of the first character of line i+1.
	lineStarts []int
}

// NewSourceFile indexes text once so Location lookups are O(log n).
func NewSourceFile(name, text string) *SourceFile {
	sf := &SourceFile{Name: name, Text: text, lineStarts: []int{0}}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			sf.lineStarts = append(sf.lineStarts, i+1)
		}
	}
	return sf
}

// Locate converts a byte offset into a Location. It uses a binary search
// over the cached line-start table.
func (sf *SourceFile) Locate(offset int) Location {
	lo, hi := 0, len(sf.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if sf.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	line := lo + 1
	col := offset - sf.lineStarts[lo] + 1
	return Location{File: sf.Name, Line: line, Column: col, Offset: offset}
}
