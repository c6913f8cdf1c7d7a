package compiler

import "testing"

func TestCompatibleReflexive(t *testing.T) {
	types := []*Type{
		IntType, LongType, UIntType, FloatType, DoubleType, CharType,
		PointerTo(IntType),
		ArrayOf(IntType, 10),
		FunctionOf(IntType, []*Type{IntType, CharType}, false),
		{Kind: KStruct, Tag: "Point"},
	}
	for _, ty := range types {
		if !Compatible(ty, ty) {
			t.Errorf("Compatible(%s, %s) = false, want true", ty, ty)
		}
	}
}

func TestCompatibleSymmetric(t *testing.T) {
	pairs := [][2]*Type{
		{IntType, LongType},
		{IntType, UIntType},
		{PointerTo(IntType), PointerTo(CharType)},
		{ArrayOf(IntType, 5), ArrayOf(IntType, 10)},
		{ArrayOf(IntType, 5), ArrayOf(CharType, 5)},
		{FunctionOf(IntType, nil, false), FunctionOf(IntType, []*Type{IntType}, false)},
		{{Kind: KStruct, Tag: "A"}, {Kind: KStruct, Tag: "B"}},
		{IntType, FloatType},
		{IntType, PointerTo(IntType)},
	}
	for _, p := range pairs {
		a, b := p[0], p[1]
		if Compatible(a, b) != Compatible(b, a) {
			t.Errorf("Compatible(%s, %s)=%v but Compatible(%s, %s)=%v, want equal",
				a, b, Compatible(a, b), b, a, Compatible(b, a))
		}
	}
}

func TestCompatiblePointerElemRecursion(t *testing.T) {
	a := PointerTo(PointerTo(IntType))
	b := PointerTo(PointerTo(IntType))
	c := PointerTo(PointerTo(CharType))
	if !Compatible(a, b) {
		t.Error("identically-shaped pointer-to-pointer types should be compatible")
	}
	if Compatible(a, c) {
		t.Error("pointer-to-pointer types with different base element should not be compatible")
	}
}

func TestCompatibleArrayUnspecifiedLength(t *testing.T) {
	fixed := ArrayOf(IntType, 10)
	unspecified := ArrayOf(IntType, -1)
	if !Compatible(fixed, unspecified) {
		t.Error("an unspecified-length array should be compatible with any length of the same element type")
	}
}

// TestLayoutStructOffsetsAreMonotonic checks that LayoutStruct produces
// strictly non-decreasing offsets in declaration order and never overlaps
// two members.
func TestLayoutStructOffsetsAreMonotonic(t *testing.T) {
	members := []StructMember{
		{Name: "a", Type: CharType},
		{Name: "b", Type: IntType},
		{Name: "c", Type: CharType},
		{Name: "d", Type: LongType},
	}
	laid := LayoutStruct(false, members)
	var prevEnd int64
	for i, m := range laid {
		if m.Offset < prevEnd {
			t.Fatalf("member %d (%s) offset %d overlaps previous member ending at %d", i, m.Name, m.Offset, prevEnd)
		}
		if m.Offset%m.Type.Alignment() != 0 {
			t.Errorf("member %d (%s) offset %d is not aligned to %d", i, m.Name, m.Offset, m.Type.Alignment())
		}
		prevEnd = m.Offset + m.Type.Size()
	}
}

func TestLayoutStructUnionAllMembersAtZero(t *testing.T) {
	members := []StructMember{
		{Name: "i", Type: IntType},
		{Name: "d", Type: DoubleType},
	}
	laid := LayoutStruct(true, members)
	for _, m := range laid {
		if m.Offset != 0 {
			t.Errorf("union member %s has offset %d, want 0", m.Name, m.Offset)
		}
	}
}

func TestTypeSizes(t *testing.T) {
	tests := []struct {
		ty   *Type
		want int64
	}{
		{CharType, 1}, {ShortType, 2}, {IntType, 4}, {LongType, 8},
		{FloatType, 4}, {DoubleType, 8}, {PointerTo(IntType), 8},
		{ArrayOf(IntType, 3), 12},
	}
	for _, tt := range tests {
		if got := tt.ty.Size(); got != tt.want {
			t.Errorf("%s.Size() = %d, want %d", tt.ty, got, tt.want)
		}
	}
}

func TestDecayArrayAndFunction(t *testing.T) {
	arr := ArrayOf(IntType, 5)
	if decayed := arr.Decay(); decayed.Kind != KPointer || !Compatible(decayed.Elem, IntType) {
		t.Errorf("array.Decay() = %s, want pointer to int", decayed)
	}
	fn := FunctionOf(VoidType, nil, false)
	if decayed := fn.Decay(); decayed.Kind != KPointer {
		t.Errorf("function.Decay() = %s, want a pointer", decayed)
	}
	if IntType.Decay() != IntType {
		t.Error("scalar type should decay to itself")
	}
}

func TestPromoteNarrowsToInt(t *testing.T) {
	if Promote(CharType) != IntType {
		t.Error("char should promote to int")
	}
	if Promote(ShortType) != IntType {
		t.Error("short should promote to int")
	}
	if Promote(LongType) != LongType {
		t.Error("long should not be narrowed by promotion")
	}
}

func TestCommonTypeFloatDominates(t *testing.T) {
	if got := CommonType(IntType, DoubleType); got.Kind != KDouble {
		t.Errorf("CommonType(int, double) = %s, want double", got)
	}
	if got := CommonType(FloatType, IntType); got.Kind != KFloat {
		t.Errorf("CommonType(float, int) = %s, want float", got)
	}
}

func TestCommonTypeUnsignedDominatesAtEqualRank(t *testing.T) {
	got := CommonType(IntType, UIntType)
	if !got.Unsigned || got.Kind != KInt {
		t.Errorf("CommonType(int, unsigned int) = %s, want unsigned int", got)
	}
}

func TestAssignableFromPointerZeroIdiom(t *testing.T) {
	if !AssignableFrom(PointerTo(IntType), IntType) {
		t.Error("an integer constant should be assignable to a pointer (the 0/NULL idiom)")
	}
}

func TestAssignableFromVoidPointerIsUniversal(t *testing.T) {
	voidPtr := PointerTo(VoidType)
	intPtr := PointerTo(IntType)
	if !AssignableFrom(voidPtr, intPtr) {
		t.Error("int* should be assignable to void*")
	}
	if !AssignableFrom(intPtr, voidPtr) {
		t.Error("void* should be assignable to int*")
	}
}

func TestIsCompleteArrayRequiresKnownLength(t *testing.T) {
	if ArrayOf(IntType, -1).IsComplete() {
		t.Error("an array with unspecified length should be incomplete")
	}
	if !ArrayOf(IntType, 3).IsComplete() {
		t.Error("an array with a known length and complete element should be complete")
	}
}

func TestIsCompleteStructRequiresMembers(t *testing.T) {
	incomplete := &Type{Kind: KStruct, Tag: "Opaque"}
	if incomplete.IsComplete() {
		t.Error("a struct with no Members should be incomplete")
	}
	complete := &Type{Kind: KStruct, Tag: "Point", Members: []StructMember{{Name: "x", Type: IntType}}}
	if !complete.IsComplete() {
		t.Error("a struct with Members should be complete")
	}
}

func TestFindMemberDescendsAnonymousAggregates(t *testing.T) {
	inner := &Type{Kind: KStruct, Members: []StructMember{{Name: "y", Type: IntType}}}
	outer := &Type{Kind: KStruct, Tag: "Outer", Members: []StructMember{
		{Name: "x", Type: IntType},
		{Name: "", Type: inner},
	}}
	m, path, ok := outer.FindMember("y")
	if !ok {
		t.Fatal("expected to find y through the anonymous inner struct")
	}
	if m.Name != "y" {
		t.Errorf("got member %q, want y", m.Name)
	}
	if len(path) != 2 || path[0] != 1 || path[1] != 0 {
		t.Errorf("got path %v, want [1 0]", path)
	}
}
