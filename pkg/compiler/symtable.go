package compiler

import "fmt"

// This file is the symbol table: a scope stack (a slice of maps pushed and
// popped as the analyzer walks blocks) extended with a flat, process-wide
// tag namespace. struct/union/enum tags are NOT scoped like ordinary
// identifiers — they live in one shared map for the whole translation unit
// so a later `struct Foo` anywhere can see an earlier tag.

// SymbolKind distinguishes what an ordinary-namespace entry denotes.
type SymbolKind int

const (
	SymVariable SymbolKind = iota
	SymFunction
	SymEnumConstant
	SymTypedef
)

// Symbol is one entry in the ordinary-identifier namespace: variables,
// functions, enum constants, and typedef names all share it.
type Symbol struct {
	Name    string
	Kind    SymbolKind
	Type    *Type
	Storage StorageClass

	// Offset is this variable's byte offset from the frame base for a
	// local, or unused (0) for a global/function/typedef/enum-constant.
	Offset int64

	// IsLocal distinguishes a block-scope variable (frame-relative) from
	// a file-scope one (linked by name), since Offset alone cannot: a
	// local declared first in its frame legitimately has Offset 0 too.
	IsLocal bool

	// EnumValue holds the constant's value when Kind == SymEnumConstant.
	EnumValue int64

	Loc Location
}

// Tag is one entry in the flat tag namespace: a struct, union, or enum
// name together with its resolved type.
type Tag struct {
	Name string
	Type *Type
}

// scope is one lexical block's ordinary-identifier map plus a running
// offset allocator for locals declared directly in it.
type scope struct {
	id      int
	symbols map[string]*Symbol
	// nextOffset tracks how many bytes of this scope's locals have been
	// allocated so far; the caller combines it with the enclosing
	// function's running frame offset.
	nextOffset int64
}

// SymbolTable is the scope stack plus the flat tag namespace shared by the
// whole translation unit (kept flat rather than per-scope; see DESIGN.md).
type SymbolTable struct {
	scopes   []*scope
	tags     map[string]*Tag
	nextScopeID int

	// frameOffset is the running allocator for the function currently
	// being analyzed; PushScope/PopScope do not reset it, so nested
	// blocks continue growing the same frame: a variable declared in a
	// nested block still consumes frame space for the lifetime of the
	// enclosing function.
	frameOffset int64
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{tags: make(map[string]*Tag)}
}

// PushScope opens a new lexical block and returns its id, to be recorded on
// the owning AST node (CompoundStmt.ScopeID, FunctionDecl.ScopeID).
func (st *SymbolTable) PushScope() int {
	id := st.nextScopeID
	st.nextScopeID++
	st.scopes = append(st.scopes, &scope{id: id, symbols: make(map[string]*Symbol)})
	return id
}

func (st *SymbolTable) PopScope() {
	st.scopes = st.scopes[:len(st.scopes)-1]
}

// ResetFrame zeroes the local-variable offset allocator; called by the
// semantic analyzer at the start of each function definition.
func (st *SymbolTable) ResetFrame() {
	st.frameOffset = 0
}

func (st *SymbolTable) FrameSize() int64 { return st.frameOffset }

func (st *SymbolTable) top() *scope { return st.scopes[len(st.scopes)-1] }

// Declare installs a new ordinary-namespace symbol in the current scope. It
// returns an error if name is already declared in that same scope;
// shadowing an outer scope is not an error.
func (st *SymbolTable) Declare(sym *Symbol) error {
	top := st.top()
	if _, exists := top.symbols[sym.Name]; exists {
		return fmt.Errorf("redeclaration of %q in the same scope", sym.Name)
	}
	if sym.Kind == SymVariable && len(st.scopes) > 1 {
		sym.IsLocal = true
		align := sym.Type.Alignment()
		st.frameOffset = alignUp(st.frameOffset, align)
		sym.Offset = st.frameOffset
		st.frameOffset += sym.Type.Size()
	}
	top.symbols[sym.Name] = sym
	return nil
}

// DeclareGlobal installs sym in the outermost (file) scope regardless of
// which scope is currently open; used for functions and top-level
// variables which are always visible at file scope even when declared
// syntactically inside... (not applicable here, kept for symmetry with
// Lookup's fall-through to scopes[0]).
func (st *SymbolTable) DeclareGlobal(sym *Symbol) error {
	if _, exists := st.scopes[0].symbols[sym.Name]; exists {
		return fmt.Errorf("redeclaration of %q at file scope", sym.Name)
	}
	st.scopes[0].symbols[sym.Name] = sym
	return nil
}

// Lookup searches the scope stack from innermost to outermost, implementing
// C's lexical shadowing rule for the ordinary namespace.
func (st *SymbolTable) Lookup(name string) (*Symbol, bool) {
	for i := len(st.scopes) - 1; i >= 0; i-- {
		if sym, ok := st.scopes[i].symbols[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// LookupLocal searches only the innermost scope, used to detect
// same-block redeclaration before calling Declare.
func (st *SymbolTable) LookupLocal(name string) (*Symbol, bool) {
	sym, ok := st.top().symbols[name]
	return sym, ok
}

// DeclareTag installs or looks up name in the flat tag namespace. If a tag
// with the same name already exists it is returned instead of overwritten,
// so that a later `struct Foo { ... }` completing an earlier forward
// reference mutates the same *Type all existing pointers to it observe.
func (st *SymbolTable) DeclareTag(name string, kind Kind) *Tag {
	if t, ok := st.tags[name]; ok {
		return t
	}
	t := &Tag{Name: name, Type: &Type{Kind: kind, Tag: name}}
	st.tags[name] = t
	return t
}

func (st *SymbolTable) LookupTag(name string) (*Tag, bool) {
	t, ok := st.tags[name]
	return t, ok
}
