package compiler

import "fmt"

// This file is the semantic type system: the resolved
// types that replace syntactic TypeNode once the semantic analyzer has
// chased typedefs and tags down to their structural shape. It is grounded
// on original_source/Type.cpp's size/alignment/compatibility tables (see
// DESIGN.md) and reuses the flat-struct-with-Kind-tag style already used
// for ast.go's syntactic types.

type Kind int

const (
	KVoid Kind = iota
	KChar
	KShort
	KInt
	KLong
	KFloat
	KDouble
	KPointer
	KArray
	KFunction
	KStruct
	KUnion
	KEnum
)

// Type is the resolved semantic type of a declaration or expression.
// Integer/float Kinds use Unsigned; KPointer/KArray use Elem; KArray also
// uses Len (-1 when unspecified); KFunction uses Params/Variadic/Return;
// KStruct/KUnion/KEnum use Tag and Members (Members is nil for an
// incomplete tag).
type Type struct {
	Kind     Kind
	Unsigned bool

	Elem TypeElem // pointer/array element
	Len  int64    // array length, -1 if unspecified

	Return   *Type
	Params   []*Type
	Variadic bool

	Tag     string
	Members []StructMember // struct/union fields in declaration order, with byte Offset
	EnumTy  *Type    // underlying integer type for KEnum, always Int
}

// TypeElem avoids a direct self-reference cycle issue in struct literals;
// it is simply *Type, kept as a named type for readability at call sites.
type TypeElem = *Type

// StructMember is one struct/union field, decorated with its byte offset by the
// semantic analyzer's layout pass.
type StructMember struct {
	Name   string
	Type   *Type
	Offset int64
}

var (
	VoidType   = &Type{Kind: KVoid}
	CharType   = &Type{Kind: KChar}
	UCharType  = &Type{Kind: KChar, Unsigned: true}
	ShortType  = &Type{Kind: KShort}
	IntType    = &Type{Kind: KInt}
	UIntType   = &Type{Kind: KInt, Unsigned: true}
	LongType   = &Type{Kind: KLong}
	ULongType  = &Type{Kind: KLong, Unsigned: true}
	FloatType  = &Type{Kind: KFloat}
	DoubleType = &Type{Kind: KDouble}
)

func PointerTo(elem *Type) *Type { return &Type{Kind: KPointer, Elem: elem} }

func ArrayOf(elem *Type, length int64) *Type {
	return &Type{Kind: KArray, Elem: elem, Len: length}
}

func FunctionOf(ret *Type, params []*Type, variadic bool) *Type {
	return &Type{Kind: KFunction, Return: ret, Params: params, Variadic: variadic}
}

func (t *Type) String() string {
	switch t.Kind {
	case KVoid:
		return "void"
	case KChar, KShort, KInt, KLong:
		n := [...]string{KChar: "char", KShort: "short", KInt: "int", KLong: "long"}[t.Kind]
		if t.Unsigned {
			return "unsigned " + n
		}
		return n
	case KFloat:
		return "float"
	case KDouble:
		return "double"
	case KPointer:
		return t.Elem.String() + " *"
	case KArray:
		return fmt.Sprintf("%s[%d]", t.Elem, t.Len)
	case KFunction:
		return fmt.Sprintf("%s(...)", t.Return)
	case KStruct:
		return "struct " + t.Tag
	case KUnion:
		return "union " + t.Tag
	case KEnum:
		return "enum " + t.Tag
	}
	return "?"
}

// IsInteger reports whether t is one of the integer ranks, including enum:
// an enum decays to its underlying int for all arithmetic.
func (t *Type) IsInteger() bool {
	switch t.Kind {
	case KChar, KShort, KInt, KLong, KEnum:
		return true
	}
	return false
}

func (t *Type) IsFloat() bool { return t.Kind == KFloat || t.Kind == KDouble }

func (t *Type) IsArithmetic() bool { return t.IsInteger() || t.IsFloat() }

func (t *Type) IsScalar() bool { return t.IsArithmetic() || t.Kind == KPointer }

func (t *Type) IsAggregate() bool { return t.Kind == KStruct || t.Kind == KUnion }

func (t *Type) IsComplete() bool {
	if t.Kind == KVoid {
		return false
	}
	if t.Kind == KArray {
		return t.Len >= 0 && t.Elem.IsComplete()
	}
	if t.IsAggregate() {
		return t.Members != nil
	}
	return true
}

// Decay implements the "array-to-pointer, function-to-pointer"
// conversion applied to an expression's type whenever it is used as a
// value rather than as the operand of &, sizeof, or as an initializer for
// another array.
func (t *Type) Decay() *Type {
	switch t.Kind {
	case KArray:
		return PointerTo(t.Elem)
	case KFunction:
		return PointerTo(t)
	}
	return t
}

// Size returns the byte size of t: char=1, short=2, int/float=4,
// long/double/pointer=8, array=elemSize*len, struct/union per their
// computed layout.
func (t *Type) Size() int64 {
	switch t.Kind {
	case KVoid:
		return 0
	case KChar:
		return 1
	case KShort:
		return 2
	case KInt, KFloat:
		return 4
	case KLong, KDouble, KPointer:
		return 8
	case KEnum:
		return 4
	case KArray:
		if t.Len < 0 {
			return 0
		}
		return t.Elem.Size() * t.Len
	case KFunction:
		return 8 // decays to a pointer whenever used as a value
	case KStruct, KUnion:
		return structSize(t)
	}
	return 0
}

// Alignment returns t's required alignment: scalar types align to their own
// size, aggregates to the maximum alignment of their members.
func (t *Type) Alignment() int64 {
	switch t.Kind {
	case KArray:
		return t.Elem.Alignment()
	case KStruct, KUnion:
		var max int64 = 1
		for _, m := range t.Members {
			if a := m.Type.Alignment(); a > max {
				max = a
			}
		}
		return max
	default:
		sz := t.Size()
		if sz == 0 {
			return 1
		}
		return sz
	}
}

func structSize(t *Type) int64 {
	if t.Kind == KUnion {
		var max int64
		for _, m := range t.Members {
			if s := m.Type.Size(); s > max {
				max = s
			}
		}
		return alignUp(max, t.Alignment())
	}
	var offset int64
	for _, m := range t.Members {
		a := m.Type.Alignment()
		offset = alignUp(offset, a)
		offset += m.Type.Size()
	}
	return alignUp(offset, t.Alignment())
}

// LayoutStruct computes byte offsets for a struct's members in declaration
// order, applying C's natural alignment padding; for a union every member
// sits at offset 0. It mutates members in place and is called once per
// struct/union definition by the semantic analyzer.
func LayoutStruct(isUnion bool, members []StructMember) []StructMember {
	if isUnion {
		for i := range members {
			members[i].Offset = 0
		}
		return members
	}
	var offset int64
	for i := range members {
		a := members[i].Type.Alignment()
		offset = alignUp(offset, a)
		members[i].Offset = offset
		offset += members[i].Type.Size()
	}
	return members
}

func alignUp(n, align int64) int64 {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}

// FindMember looks up a named field, descending into anonymous struct/union
// members: their fields promote into the enclosing aggregate's member
// namespace.
func (t *Type) FindMember(name string) (StructMember, []int, bool) {
	for i, m := range t.Members {
		if m.Name == name {
			return m, []int{i}, true
		}
		if m.Name == "" && m.Type.IsAggregate() {
			if inner, path, ok := m.Type.FindMember(name); ok {
				return inner, append([]int{i}, path...), true
			}
		}
	}
	return StructMember{}, nil, false
}

// Compatible implements the structural compatibility: same Kind,
// same Unsigned for integer kinds, recursively compatible Elem/Return/
// Params, and same Tag for struct/union/enum (tags are compared by name
// since the analyzer's flat tag namespace guarantees a single definition
// per name).
func Compatible(a, b *Type) bool {
	if a == b {
		return true
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KChar, KShort, KInt, KLong:
		return a.Unsigned == b.Unsigned
	case KPointer:
		return Compatible(a.Elem, b.Elem)
	case KArray:
		if a.Len >= 0 && b.Len >= 0 && a.Len != b.Len {
			return false
		}
		return Compatible(a.Elem, b.Elem)
	case KFunction:
		if a.Variadic != b.Variadic || len(a.Params) != len(b.Params) {
			return false
		}
		if !Compatible(a.Return, b.Return) {
			return false
		}
		for i := range a.Params {
			if !Compatible(a.Params[i], b.Params[i]) {
				return false
			}
		}
		return true
	case KStruct, KUnion, KEnum:
		return a.Tag == b.Tag
	default:
		return true
	}
}

// rank orders the integer conversion ladder used by the usual arithmetic
// conversions: char < short < int < long, float < double.
func rank(t *Type) int {
	switch t.Kind {
	case KChar:
		return 1
	case KShort:
		return 2
	case KInt, KEnum:
		return 3
	case KLong:
		return 4
	}
	return 0
}

// Promote implements integer promotion: anything narrower than int
// promotes to int.
func Promote(t *Type) *Type {
	if t.IsInteger() && rank(t) < rank(IntType) {
		return IntType
	}
	return t
}

// CommonType implements the usual arithmetic conversions:
// if either operand is a float type, the result is the wider float type;
// otherwise both operands promote, then convert to the wider of the two
// (ties between equal rank go to the unsigned one).
func CommonType(a, b *Type) *Type {
	if a.IsFloat() || b.IsFloat() {
		if a.Kind == KDouble || b.Kind == KDouble {
			return DoubleType
		}
		return FloatType
	}
	a, b = Promote(a), Promote(b)
	if rank(a) == rank(b) {
		if a.Unsigned || b.Unsigned {
			return &Type{Kind: a.Kind, Unsigned: true}
		}
		return a
	}
	if rank(a) > rank(b) {
		return a
	}
	return b
}

// AssignableFrom reports whether a value of type src can be implicitly
// converted to dst for assignment, initialization, argument passing, or
// return.
func AssignableFrom(dst, src *Type) bool {
	src = src.Decay()
	if dst.IsArithmetic() && src.IsArithmetic() {
		return true
	}
	if dst.Kind == KPointer && src.Kind == KPointer {
		if dst.Elem.Kind == KVoid || src.Elem.Kind == KVoid {
			return true
		}
		return Compatible(dst.Elem, src.Elem)
	}
	if dst.Kind == KPointer && src.IsInteger() {
		return true // permits the 0/NULL idiom
	}
	if dst.IsAggregate() && src.IsAggregate() {
		return Compatible(dst, src)
	}
	return Compatible(dst, src)
}
