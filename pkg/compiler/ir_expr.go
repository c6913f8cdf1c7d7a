package compiler

// lowerExpr lowers e to the IR quadruples that compute its value, returning
// the Operand holding the result. Plain variables are represented directly
// as Local/Global operands (the emitter reads/writes their memory slot
// whenever such an operand appears as an arithmetic argument); OpLoad is
// reserved for values reached through a computed address (pointer
// dereference, subscript, arrow-member). OpStore writes either through
// such an address or, when its Result is a Local/Global operand, straight
// into that variable's slot.
func (g *irGen) lowerExpr(e Expr) Operand {
	switch expr := e.(type) {
	case *IntLit:
		return Operand{Kind: OperandImmInt, Imm: expr.Value, Type: IntType}
	case *CharLit:
		return Operand{Kind: OperandImmInt, Imm: int64(expr.Value), Type: CharType}
	case *FloatLit:
		label := g.internFloat(expr.Value, true)
		return Operand{Kind: OperandStringLabel, Label: label, Type: DoubleType}
	case *StringLit:
		label := g.internString(expr.Value)
		return Operand{Kind: OperandStringLabel, Label: label, Type: PointerTo(CharType)}
	case *Ident:
		return g.lowerIdentOperand(expr)
	case *Unary:
		return g.lowerUnary(expr)
	case *Postfix:
		return g.lowerPostfix(expr)
	case *SizeofExpr:
		var sz int64
		if expr.OfType != nil {
			sz = g.resolveSizeofType(expr.OfType).Size()
		} else if expr.Operand != nil {
			sz = expr.Operand.Meta().SemType.Size()
		}
		return Operand{Kind: OperandImmInt, Imm: sz, Type: ULongType}
	case *Binary:
		return g.lowerBinary(expr)
	case *Conditional:
		return g.lowerConditional(expr)
	case *Cast:
		return g.lowerCast(expr)
	case *Subscript:
		addr, elemTy := g.lowerElementAddr(expr)
		dst := g.newTemp(elemTy)
		g.emit(Quad{Op: OpLoad, Result: dst, Arg1: addr})
		return dst
	case *Member:
		addr, fieldTy := g.lowerMemberAddr(expr)
		dst := g.newTemp(fieldTy)
		g.emit(Quad{Op: OpLoad, Result: dst, Arg1: addr})
		return dst
	case *Call:
		return g.lowerCall(expr)
	}
	return Operand{Kind: OperandImmInt, Imm: 0, Type: IntType}
}

func (g *irGen) lowerIdentOperand(id *Ident) Operand {
	sym := id.Sym
	if sym == nil {
		return Operand{Kind: OperandImmInt, Imm: 0, Type: IntType}
	}
	switch sym.Kind {
	case SymEnumConstant:
		return Operand{Kind: OperandImmInt, Imm: sym.EnumValue, Type: IntType}
	case SymFunction:
		return Operand{Kind: OperandGlobal, Name: id.Name, Type: sym.Type}
	}
	if sym.IsLocal {
		return Operand{Kind: OperandLocal, Name: id.Name, Imm: sym.Offset, Type: sym.Type}
	}
	return Operand{Kind: OperandGlobal, Name: id.Name, Type: sym.Type}
}

// lowerAddr computes the address of an lvalue expression as an
// Operand-valued result (a temp holding a KPointer value), used by &, by
// assignment's left-hand side, and by compound-assignment operators.
func (g *irGen) lowerAddr(e Expr) Operand {
	switch expr := e.(type) {
	case *Ident:
		base := g.lowerIdentOperand(expr)
		dst := g.newTemp(PointerTo(base.Type))
		g.emit(Quad{Op: OpAddr, Result: dst, Arg1: base})
		return dst
	case *Unary:
		if expr.Op == Star {
			return g.lowerExpr(expr.Operand)
		}
	case *Subscript:
		addr, _ := g.lowerElementAddr(expr)
		return addr
	case *Member:
		addr, _ := g.lowerMemberAddr(expr)
		return addr
	}
	return g.lowerExpr(e)
}

func (g *irGen) lowerElementAddr(expr *Subscript) (Operand, *Type) {
	base := g.lowerExpr(expr.Base)
	elemTy := base.Type.Elem
	if base.Type.Kind == KArray {
		base = g.lowerAddr(expr.Base)
		elemTy = base.Type.Elem
	}
	index := g.lowerExpr(expr.Index)
	scaled := g.newTemp(LongType)
	g.emit(Quad{Op: OpMul, Result: scaled, Arg1: index, Arg2: Operand{Kind: OperandImmInt, Imm: elemTy.Size(), Type: LongType}})
	addr := g.newTemp(PointerTo(elemTy))
	g.emit(Quad{Op: OpAdd, Result: addr, Arg1: base, Arg2: scaled})
	return addr, elemTy
}

func (g *irGen) lowerMemberAddr(expr *Member) (Operand, *Type) {
	var base Operand
	var baseStructTy *Type
	if expr.Arrow {
		base = g.lowerExpr(expr.Base)
		baseStructTy = base.Type.Elem
	} else {
		base = g.lowerAddr(expr.Base)
		baseStructTy = base.Type.Elem
	}
	m, _, _ := baseStructTy.FindMember(expr.Name)
	addr := g.newTemp(PointerTo(m.Type))
	g.emit(Quad{Op: OpAdd, Result: addr, Arg1: base, Arg2: Operand{Kind: OperandImmInt, Imm: m.Offset, Type: LongType}})
	return addr, m.Type
}

func (g *irGen) storeTo(target Expr, value Operand) {
	switch t := target.(type) {
	case *Ident:
		dst := g.lowerIdentOperand(t)
		g.emit(Quad{Op: OpStore, Result: dst, Arg1: value})
	case *Unary:
		if t.Op == Star {
			addr := g.lowerExpr(t.Operand)
			g.emit(Quad{Op: OpStore, Result: addr, Arg1: value})
			return
		}
	case *Subscript:
		addr, _ := g.lowerElementAddr(t)
		g.emit(Quad{Op: OpStore, Result: addr, Arg1: value})
	case *Member:
		addr, _ := g.lowerMemberAddr(t)
		g.emit(Quad{Op: OpStore, Result: addr, Arg1: value})
	}
}

func (g *irGen) lowerUnary(expr *Unary) Operand {
	switch expr.Op {
	case Amp:
		return g.lowerAddr(expr.Operand)
	case Star:
		addr := g.lowerExpr(expr.Operand)
		dst := g.newTemp(expr.Meta().SemType)
		g.emit(Quad{Op: OpLoad, Result: dst, Arg1: addr})
		return dst
	case Minus:
		v := g.lowerExpr(expr.Operand)
		dst := g.newTemp(expr.Meta().SemType)
		op := OpNeg
		if v.Type.IsFloat() {
			op = OpFNeg
		}
		g.emit(Quad{Op: op, Result: dst, Arg1: v})
		return dst
	case Plus:
		return g.lowerExpr(expr.Operand)
	case Tilde:
		v := g.lowerExpr(expr.Operand)
		dst := g.newTemp(expr.Meta().SemType)
		g.emit(Quad{Op: OpNot, Result: dst, Arg1: v})
		return dst
	case Bang:
		v := g.lowerExpr(expr.Operand)
		dst := g.newTemp(IntType)
		g.emit(Quad{Op: OpLNot, Result: dst, Arg1: v})
		return dst
	case PlusPlus, MinusMinus:
		old := g.lowerExpr(expr.Operand)
		delta := g.stepAmount(old.Type, expr.Op)
		updated := g.newTemp(old.Type)
		op := OpAdd
		if expr.Op == MinusMinus {
			op = OpSub
		}
		if old.Type.IsFloat() {
			if op == OpAdd {
				op = OpFAdd
			} else {
				op = OpFSub
			}
		}
		g.emit(Quad{Op: op, Result: updated, Arg1: old, Arg2: delta})
		g.storeTo(expr.Operand, updated)
		return updated
	}
	return g.lowerExpr(expr.Operand)
}

// stepAmount returns 1 for arithmetic scalars or the pointee size for
// pointer increment/decrement (the pointer-arithmetic scaling
// rule applied to ++/--).
func (g *irGen) stepAmount(t *Type, op TokenKind) Operand {
	if t.Kind == KPointer {
		return Operand{Kind: OperandImmInt, Imm: t.Elem.Size(), Type: LongType}
	}
	if t.IsFloat() {
		return Operand{Kind: OperandStringLabel, Label: g.internFloat(1, t.Kind == KDouble), Type: t}
	}
	return Operand{Kind: OperandImmInt, Imm: 1, Type: t}
}

func (g *irGen) lowerPostfix(expr *Postfix) Operand {
	old := g.lowerExpr(expr.Operand)
	delta := g.stepAmount(old.Type, expr.Op)
	updated := g.newTemp(old.Type)
	op := OpAdd
	if expr.Op == MinusMinus {
		op = OpSub
	}
	if old.Type.IsFloat() {
		if op == OpAdd {
			op = OpFAdd
		} else {
			op = OpFSub
		}
	}
	g.emit(Quad{Op: op, Result: updated, Arg1: old, Arg2: delta})
	g.storeTo(expr.Operand, updated)
	return old
}

var binaryOpMap = map[TokenKind]struct{ Int, Float Opcode }{
	Plus:    {OpAdd, OpFAdd},
	Minus:   {OpSub, OpFSub},
	Star:    {OpMul, OpFMul},
	Slash:   {OpDiv, OpFDiv},
	Percent: {OpMod, OpMod},
	Amp:     {OpAnd, OpAnd},
	Pipe:    {OpOr, OpOr},
	Caret:   {OpXor, OpXor},
	Shl:     {OpShl, OpShl},
	Shr:     {OpShr, OpShr},
	Eq:      {OpCmpEq, OpFCmpEq},
	NotEq:   {OpCmpNe, OpFCmpNe},
	Less:    {OpCmpLt, OpFCmpLt},
	LessEq:  {OpCmpLe, OpFCmpLe},
	Greater: {OpCmpGt, OpFCmpGt},
	GreaterEq: {OpCmpGe, OpFCmpGe},
}

var compoundAssignBase = map[TokenKind]TokenKind{
	PlusAssign: Plus, MinusAssign: Minus, StarAssign: Star, SlashAssign: Slash,
	PercentAssign: Percent, AndAssign: Amp, OrAssign: Pipe, XorAssign: Caret,
	ShlAssign: Shl, ShrAssign: Shr,
}

func (g *irGen) lowerBinary(expr *Binary) Operand {
	switch expr.Op {
	case Assign:
		v := g.lowerExpr(expr.Right)
		g.storeTo(expr.Left, v)
		return v
	case AmpAmp:
		return g.lowerShortCircuit(expr, true)
	case PipePipe:
		return g.lowerShortCircuit(expr, false)
	case Comma:
		g.lowerExpr(expr.Left)
		return g.lowerExpr(expr.Right)
	}
	if base, ok := compoundAssignBase[expr.Op]; ok {
		old := g.lowerExpr(expr.Left)
		rhs := g.lowerExpr(expr.Right)
		dst := g.newTemp(expr.Meta().SemType)
		entry := binaryOpMap[base]
		op := entry.Int
		if old.Type.IsFloat() {
			op = entry.Float
		}
		if base == Plus || base == Minus {
			if old.Type.Kind == KPointer {
				scaled := g.newTemp(LongType)
				g.emit(Quad{Op: OpMul, Result: scaled, Arg1: rhs, Arg2: Operand{Kind: OperandImmInt, Imm: old.Type.Elem.Size(), Type: LongType}})
				rhs = scaled
			}
		}
		g.emit(Quad{Op: op, Result: dst, Arg1: old, Arg2: rhs})
		g.storeTo(expr.Left, dst)
		return dst
	}

	l := g.lowerExpr(expr.Left)
	r := g.lowerExpr(expr.Right)

	if (expr.Op == Plus || expr.Op == Minus) && (l.Type.Kind == KPointer || l.Type.Kind == KArray || r.Type.Kind == KPointer) {
		return g.lowerPointerArith(expr, l, r)
	}

	entry, ok := binaryOpMap[expr.Op]
	if !ok {
		dst := g.newTemp(expr.Meta().SemType)
		return dst
	}
	op := entry.Int
	if l.Type.IsFloat() || r.Type.IsFloat() {
		op = entry.Float
	}
	dst := g.newTemp(expr.Meta().SemType)
	g.emit(Quad{Op: op, Result: dst, Arg1: l, Arg2: r})
	return dst
}

func (g *irGen) lowerPointerArith(expr *Binary, l, r Operand) Operand {
	if l.Type.Kind == KPointer && r.Type.Kind == KPointer {
		diff := g.newTemp(LongType)
		g.emit(Quad{Op: OpSub, Result: diff, Arg1: l, Arg2: r})
		sz := l.Type.Elem.Size()
		if sz <= 1 {
			return diff
		}
		dst := g.newTemp(LongType)
		g.emit(Quad{Op: OpDiv, Result: dst, Arg1: diff, Arg2: Operand{Kind: OperandImmInt, Imm: sz, Type: LongType}})
		return dst
	}
	ptr, idx, elem := l, r, l.Type.Elem
	if ptr.Type.Kind != KPointer {
		ptr, idx, elem = r, l, r.Type.Elem
	}
	scaled := g.newTemp(LongType)
	g.emit(Quad{Op: OpMul, Result: scaled, Arg1: idx, Arg2: Operand{Kind: OperandImmInt, Imm: elem.Size(), Type: LongType}})
	dst := g.newTemp(PointerTo(elem))
	op := OpAdd
	if expr.Op == Minus && ptr == l {
		op = OpSub
	}
	g.emit(Quad{Op: op, Result: dst, Arg1: ptr, Arg2: scaled})
	return dst
}

// lowerShortCircuit lowers && and || with branch-around-evaluation of the
// right operand,: "the right operand of && and || is only
// evaluated when the left does not already determine the result."
func (g *irGen) lowerShortCircuit(expr *Binary, isAnd bool) Operand {
	result := g.newTemp(IntType)
	skip := g.newLabel("scskip")
	l := g.lowerExpr(expr.Left)
	if isAnd {
		g.emit(Quad{Op: OpJumpIfZero, Result: Operand{Kind: OperandLabel, Label: skip}, Arg1: l})
	} else {
		g.emit(Quad{Op: OpJumpIfNotZero, Result: Operand{Kind: OperandLabel, Label: skip}, Arg1: l})
	}
	r := g.lowerExpr(expr.Right)
	rBool := g.newTemp(IntType)
	g.emit(Quad{Op: OpLNot, Result: rBool, Arg1: r})
	g.emit(Quad{Op: OpLNot, Result: result, Arg1: rBool})
	end := g.newLabel("scend")
	g.emit(Quad{Op: OpJump, Result: Operand{Kind: OperandLabel, Label: end}})
	g.emit(Quad{Op: OpLabel, Result: Operand{Kind: OperandLabel, Label: skip}})
	g.emit(Quad{Op: OpMove, Result: result, Arg1: Operand{Kind: OperandImmInt, Imm: boolToInt(!isAnd), Type: IntType}})
	g.emit(Quad{Op: OpLabel, Result: Operand{Kind: OperandLabel, Label: end}})
	return result
}

func (g *irGen) lowerConditional(expr *Conditional) Operand {
	result := g.newTemp(expr.Meta().SemType)
	elseLabel := g.newLabel("condelse")
	end := g.newLabel("condend")
	cond := g.lowerExpr(expr.Cond)
	g.emit(Quad{Op: OpJumpIfZero, Result: Operand{Kind: OperandLabel, Label: elseLabel}, Arg1: cond})
	thenVal := g.lowerExpr(expr.Then)
	g.emit(Quad{Op: OpMove, Result: result, Arg1: thenVal})
	g.emit(Quad{Op: OpJump, Result: Operand{Kind: OperandLabel, Label: end}})
	g.emit(Quad{Op: OpLabel, Result: Operand{Kind: OperandLabel, Label: elseLabel}})
	elseVal := g.lowerExpr(expr.Else)
	g.emit(Quad{Op: OpMove, Result: result, Arg1: elseVal})
	g.emit(Quad{Op: OpLabel, Result: Operand{Kind: OperandLabel, Label: end}})
	return result
}

func (g *irGen) lowerCast(expr *Cast) Operand {
	v := g.lowerExpr(expr.Operand)
	target := expr.Meta().SemType
	if Compatible(v.Type, target) {
		return v
	}
	dst := g.newTemp(target)
	switch {
	case v.Type.IsFloat() && target.IsInteger():
		g.emit(Quad{Op: OpFloatToInt, Result: dst, Arg1: v})
	case v.Type.IsInteger() && target.IsFloat():
		g.emit(Quad{Op: OpIntToFloat, Result: dst, Arg1: v})
	case v.Type.Kind == KFloat && target.Kind == KDouble:
		g.emit(Quad{Op: OpFExt, Result: dst, Arg1: v})
	case v.Type.Kind == KDouble && target.Kind == KFloat:
		g.emit(Quad{Op: OpFTrunc, Result: dst, Arg1: v})
	case v.Type.IsInteger() && target.IsInteger():
		if target.Size() > v.Type.Size() {
			if v.Type.Unsigned {
				g.emit(Quad{Op: OpZExt, Result: dst, Arg1: v})
			} else {
				g.emit(Quad{Op: OpSExt, Result: dst, Arg1: v})
			}
		} else if target.Size() < v.Type.Size() {
			g.emit(Quad{Op: OpTrunc, Result: dst, Arg1: v})
		} else {
			g.emit(Quad{Op: OpMove, Result: dst, Arg1: v})
		}
	default:
		g.emit(Quad{Op: OpMove, Result: dst, Arg1: v})
	}
	return dst
}

func (g *irGen) lowerCall(expr *Call) Operand {
	args := make([]Operand, len(expr.Args))
	for i, a := range expr.Args {
		args[i] = g.lowerExpr(a)
	}
	for _, a := range args {
		g.emit(Quad{Op: OpParam, Arg1: a})
	}
	var callee Operand
	if id, ok := expr.Callee.(*Ident); ok {
		callee = Operand{Kind: OperandGlobal, Name: id.Name}
	} else {
		callee = g.lowerExpr(expr.Callee)
	}
	retTy := expr.Meta().SemType
	dst := g.newTemp(retTy)
	g.emit(Quad{Op: OpCall, Result: dst, Arg1: callee, Arg2: Operand{Kind: OperandImmInt, Imm: int64(len(args)), Type: IntType}})
	return dst
}
