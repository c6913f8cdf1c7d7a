package compiler

// This file is the semantic analyzer: a single pass over
// the parser's AST that resolves syntactic types to semantic Types,
// installs symbols, decorates every expression with its ExprMeta slots,
// and checks the constraints a conforming implementation enumerates (redeclaration,
// undeclared identifiers, control-flow placement of break/continue/case,
// return-type agreement, and so on). It is grounded on
// original_source/SemanticAnalyzer.cpp's single-visitor structure, adapted
// to Go's lack of virtual dispatch via a type switch over Expr/Stmt/Decl.

type loopKind int

const (
	loopNone loopKind = iota
	loopIterative
	loopSwitch
)

type Analyzer struct {
	syms       *SymbolTable
	diags      *Diagnostics
	typedefs   map[string]*Type
	funcReturn *Type
	loops      []loopKind
	labels     map[string]bool
	gotos      []*GotoStmt
}

// Typedefs exposes the finished typedef-name table so later phases (the IR
// generator's sizeof(typedef-name) handling) can resolve a syntactic type
// without re-running the full declaration pass.
func (a *Analyzer) Typedefs() map[string]*Type { return a.typedefs }

func NewAnalyzer(diags *Diagnostics) *Analyzer {
	return &Analyzer{
		syms:     NewSymbolTable(),
		diags:    diags,
		typedefs: make(map[string]*Type),
		labels:   make(map[string]bool),
	}
}

// Analyze runs the full pass over tu and returns the populated symbol
// table for the IR generator to reuse (offsets, tag layouts).
func (a *Analyzer) Analyze(tu *TranslationUnit) *SymbolTable {
	a.syms.PushScope() // file scope
	for _, d := range tu.Decls {
		a.analyzeDecl(d)
	}
	a.syms.PopScope()
	return a.syms
}

// ---- type resolution ----

func (a *Analyzer) resolveType(tn TypeNode) *Type {
	switch t := tn.(type) {
	case *BasicType:
		bt := &Type{Kind: basicKindToKind(t.Kind), Unsigned: t.Unsigned}
		return bt
	case *PointerType:
		return PointerTo(a.resolveType(t.Elem))
	case *ArrayType:
		length := int64(-1)
		if t.Size != nil {
			if v, ok := a.evalConstIntExpr(t.Size); ok {
				length = v
			}
		}
		return ArrayOf(a.resolveType(t.Elem), length)
	case *FunctionType:
		params := make([]*Type, len(t.Params))
		for i, p := range t.Params {
			params[i] = a.resolveType(p.Type).Decay()
		}
		return FunctionOf(a.resolveType(t.Return), params, t.Variadic)
	case *RecordTypeNode:
		kind := KStruct
		if t.IsUnion {
			kind = KUnion
		}
		tag := a.syms.DeclareTag(t.Tag, kind)
		if t.HasBody {
			members := make([]StructMember, len(t.Fields))
			for i, f := range t.Fields {
				members[i] = StructMember{Name: f.Name, Type: a.resolveType(f.Type)}
			}
			tag.Type.Members = LayoutStruct(t.IsUnion, members)
		}
		return tag.Type
	case *EnumTypeNode:
		tag := a.syms.DeclareTag(t.Tag, KEnum)
		tag.Type.EnumTy = IntType
		if t.HasBody {
			a.declareEnumConstants(t.Constants)
		}
		return tag.Type
	case *TypedefNameType:
		if ty, ok := a.typedefs[t.Name]; ok {
			return ty
		}
		a.diags.Errorf(Location{}, "unknown typedef name %q", t.Name)
		return IntType
	}
	return IntType
}

func basicKindToKind(k BasicKind) Kind {
	switch k {
	case BasicVoid:
		return KVoid
	case BasicChar:
		return KChar
	case BasicShort:
		return KShort
	case BasicInt:
		return KInt
	case BasicLong:
		return KLong
	case BasicFloat:
		return KFloat
	case BasicDouble:
		return KDouble
	}
	return KInt
}

func (a *Analyzer) declareEnumConstants(consts []*EnumConstantDecl) {
	next := int64(0)
	for _, c := range consts {
		val := next
		if c.Value != nil {
			if v, ok := a.evalConstIntExpr(c.Value); ok {
				val = v
			}
		}
		if err := a.syms.Declare(&Symbol{
			Name: c.Name, Kind: SymEnumConstant, Type: IntType,
			EnumValue: val, Loc: c.Loc,
		}); err != nil {
			a.diags.Errorf(c.Loc, "%s", err)
		}
		next = val + 1
	}
}

// ---- declarations ----

func (a *Analyzer) analyzeDecl(d Decl) {
	switch decl := d.(type) {
	case *VarDecl:
		ty := a.resolveType(decl.Type)
		if decl.Init != nil {
			a.analyzeInitializer(decl.Init, ty)
		}
		sym := &Symbol{
			Name: decl.Name, Kind: SymVariable, Type: ty,
			Storage: decl.Storage, Loc: decl.Loc,
		}
		if err := a.syms.Declare(sym); err != nil {
			a.diags.Errorf(decl.Loc, "%s", err)
		}
		decl.Sym = sym
	case *FunctionDecl:
		own := a.resolveType(decl.Type).Decay()
		ty := own
		prior, hasPrior := existingFunc(a.syms, decl.Name)
		if hasPrior {
			ty = prior // keep the earlier prototype's identity for redecl checks
		}
		if err := a.syms.DeclareGlobal(&Symbol{
			Name: decl.Name, Kind: SymFunction, Type: ty,
			Storage: decl.Storage, Loc: decl.Loc,
		}); err != nil {
			// A repeated prototype, or a body after a matching prototype, is
			// fine; only a body whose type conflicts with the earlier
			// declaration is an error.
			if decl.Body != nil && (!hasPrior || !Compatible(prior, own)) {
				a.diags.Errorf(decl.Loc, "%s", err)
			}
		}
		if decl.Body != nil {
			// ty is the decayed pointer-to-function; the body is checked
			// against the function type itself.
			a.analyzeFunctionBody(decl, ty.Elem)
		}
	case *RecordDecl:
		kind := KStruct
		if decl.IsUnion {
			kind = KUnion
		}
		tag := a.syms.DeclareTag(decl.Tag, kind)
		if decl.HasBody {
			members := make([]StructMember, len(decl.Fields))
			for i, f := range decl.Fields {
				members[i] = StructMember{Name: f.Name, Type: a.resolveType(f.Type)}
			}
			tag.Type.Members = LayoutStruct(decl.IsUnion, members)
		}
	case *EnumDecl:
		tag := a.syms.DeclareTag(decl.Tag, KEnum)
		tag.Type.EnumTy = IntType
		if decl.HasBody {
			a.declareEnumConstants(decl.Constants)
		}
	case *TypedefDecl:
		a.typedefs[decl.Name] = a.resolveType(decl.Type)
	}
}

func existingFunc(st *SymbolTable, name string) (*Type, bool) {
	if sym, ok := st.Lookup(name); ok && sym.Kind == SymFunction {
		return sym.Type, true
	}
	return nil, false
}

func (a *Analyzer) analyzeFunctionBody(decl *FunctionDecl, fnTy *Type) {
	decl.ScopeID = a.syms.PushScope()
	a.syms.ResetFrame()
	prevReturn := a.funcReturn
	a.funcReturn = fnTy.Return
	prevLabels := a.labels
	a.labels = make(map[string]bool)
	a.gotos = nil

	for _, p := range decl.Type.Params {
		if p.Name == "" {
			continue
		}
		pty := a.resolveType(p.Type).Decay()
		sym := &Symbol{Name: p.Name, Kind: SymVariable, Type: pty, Loc: p.Loc}
		if err := a.syms.Declare(sym); err != nil {
			a.diags.Errorf(p.Loc, "%s", err)
		}
		p.Sym = sym
	}
	a.analyzeStmt(decl.Body)
	decl.FrameSize = a.syms.FrameSize()

	for _, g := range a.gotos {
		if !a.labels[g.Label] {
			a.diags.Errorf(g.Loc, "goto to undeclared label %q", g.Label)
		}
	}

	a.funcReturn = prevReturn
	a.labels = prevLabels
	a.syms.PopScope()
}

// ---- statements ----

func (a *Analyzer) analyzeStmt(s Stmt) {
	switch stmt := s.(type) {
	case *CompoundStmt:
		stmt.ScopeID = a.syms.PushScope()
		for _, item := range stmt.Items {
			a.analyzeStmt(item)
		}
		a.syms.PopScope()
	case *DeclStmt:
		for _, d := range stmt.Decls {
			a.analyzeDecl(d)
		}
	case *ExprStmt:
		if stmt.X != nil {
			a.analyzeExpr(stmt.X)
		}
	case *IfStmt:
		a.analyzeExpr(stmt.Cond)
		a.analyzeStmt(stmt.Then)
		if stmt.Else != nil {
			a.analyzeStmt(stmt.Else)
		}
	case *WhileStmt:
		a.analyzeExpr(stmt.Cond)
		a.loops = append(a.loops, loopIterative)
		a.analyzeStmt(stmt.Body)
		a.loops = a.loops[:len(a.loops)-1]
	case *DoWhileStmt:
		a.loops = append(a.loops, loopIterative)
		a.analyzeStmt(stmt.Body)
		a.loops = a.loops[:len(a.loops)-1]
		a.analyzeExpr(stmt.Cond)
	case *ForStmt:
		a.syms.PushScope()
		if stmt.Init != nil {
			a.analyzeStmt(stmt.Init)
		}
		if stmt.Cond != nil {
			a.analyzeExpr(stmt.Cond)
		}
		if stmt.Post != nil {
			a.analyzeExpr(stmt.Post)
		}
		a.loops = append(a.loops, loopIterative)
		a.analyzeStmt(stmt.Body)
		a.loops = a.loops[:len(a.loops)-1]
		a.syms.PopScope()
	case *SwitchStmt:
		a.analyzeExpr(stmt.Tag)
		a.loops = append(a.loops, loopSwitch)
		a.analyzeStmt(stmt.Body)
		a.loops = a.loops[:len(a.loops)-1]
	case *CaseStmt:
		if !a.inSwitch() {
			a.diags.Errorf(stmt.Loc, "case label not within a switch statement")
		}
		if v, ok := a.evalConstIntExpr(stmt.Value); ok {
			stmt.ConstValue = v
		} else {
			a.diags.Errorf(stmt.Loc, "case label does not reduce to a constant expression")
		}
		a.analyzeStmt(stmt.Body)
	case *DefaultStmt:
		if !a.inSwitch() {
			a.diags.Errorf(stmt.Loc, "default label not within a switch statement")
		}
		a.analyzeStmt(stmt.Body)
	case *BreakStmt:
		if len(a.loops) == 0 {
			a.diags.Errorf(stmt.Loc, "break statement not within a loop or switch")
		}
	case *ContinueStmt:
		if !a.inIterativeLoop() {
			a.diags.Errorf(stmt.Loc, "continue statement not within a loop")
		}
	case *ReturnStmt:
		if stmt.Value != nil {
			a.analyzeExpr(stmt.Value)
			if a.funcReturn != nil && a.funcReturn.Kind == KVoid {
				a.diags.Errorf(stmt.Loc, "returning a value from a function returning void")
			}
		} else if a.funcReturn != nil && a.funcReturn.Kind != KVoid {
			a.diags.Errorf(stmt.Loc, "non-void function must return a value")
		}
	case *GotoStmt:
		a.gotos = append(a.gotos, stmt)
	case *LabelStmt:
		if a.labels[stmt.Name] {
			a.diags.Errorf(stmt.Loc, "redefinition of label %q", stmt.Name)
		}
		a.labels[stmt.Name] = true
		a.analyzeStmt(stmt.Stmt)
	}
}

func (a *Analyzer) inSwitch() bool {
	for i := len(a.loops) - 1; i >= 0; i-- {
		if a.loops[i] == loopSwitch {
			return true
		}
	}
	return false
}

func (a *Analyzer) inIterativeLoop() bool {
	for i := len(a.loops) - 1; i >= 0; i-- {
		if a.loops[i] == loopIterative {
			return true
		}
	}
	return false
}

// ---- initializers ----

func (a *Analyzer) analyzeInitializer(e Expr, target *Type) {
	if list, ok := e.(*InitList); ok {
		list.Meta().SemType = target
		for i, el := range list.Elements {
			elemTarget := target
			if target.Kind == KArray {
				elemTarget = target.Elem
			} else if target.IsAggregate() && i < len(target.Members) {
				elemTarget = target.Members[i].Type
			}
			if bin, ok := el.(*Binary); ok && bin.Op == Assign {
				a.analyzeDesignator(bin.Left, target)
				a.analyzeInitializer(bin.Right, bin.Left.Meta().SemType)
				continue
			}
			a.analyzeInitializer(el, elemTarget)
		}
		return
	}
	a.analyzeExpr(e)
	if e.Meta().SemType != nil && !AssignableFrom(target, e.Meta().SemType) {
		a.diags.Errorf(e.Meta().Loc, "cannot initialize %s from %s", target, e.Meta().SemType)
	}
}

// analyzeDesignator resolves a designated-initializer target ([index] or
// .field, possibly with a nil Base) against the aggregate
// type being initialized, without requiring an addressable base.
func (a *Analyzer) analyzeDesignator(e Expr, aggregate *Type) {
	switch d := e.(type) {
	case *Member:
		if m, _, ok := aggregate.FindMember(d.Name); ok {
			d.Meta().SemType = m.Type
		} else {
			a.diags.Errorf(d.Loc, "no member named %q in %s", d.Name, aggregate)
			d.Meta().SemType = IntType
		}
	case *Subscript:
		if v, ok := a.evalConstIntExpr(d.Index); ok && aggregate.Kind == KArray {
			_ = v
			d.Meta().SemType = aggregate.Elem
		} else {
			d.Meta().SemType = IntType
		}
	default:
		a.analyzeExpr(e)
	}
}

// ---- expressions ----

func (a *Analyzer) analyzeExpr(e Expr) {
	switch expr := e.(type) {
	case *IntLit:
		expr.SemType = IntType
	case *FloatLit:
		expr.SemType = DoubleType
	case *CharLit:
		expr.SemType = CharType
	case *StringLit:
		expr.SemType = PointerTo(CharType)
	case *Ident:
		if sym, ok := a.syms.Lookup(expr.Name); ok {
			expr.SemType = sym.Type
			expr.IsLValue = sym.Kind == SymVariable
			expr.Sym = sym
		} else {
			a.diags.Errorf(expr.Loc, "use of undeclared identifier %q", expr.Name)
			expr.SemType = IntType
		}
	case *Unary:
		a.analyzeUnary(expr)
	case *Postfix:
		a.analyzeExpr(expr.Operand)
		expr.SemType = expr.Operand.Meta().SemType
	case *SizeofExpr:
		var ty *Type
		if expr.OfType != nil {
			ty = a.resolveType(expr.OfType)
		} else {
			a.analyzeExpr(expr.Operand)
			ty = expr.Operand.Meta().SemType
		}
		expr.SemType = ULongType
		_ = ty
	case *Binary:
		a.analyzeBinary(expr)
	case *Conditional:
		a.analyzeExpr(expr.Cond)
		a.analyzeExpr(expr.Then)
		a.analyzeExpr(expr.Else)
		expr.SemType = a.resultTypeOf(expr.Then.Meta().SemType, expr.Else.Meta().SemType)
	case *Cast:
		a.analyzeExpr(expr.Operand)
		expr.SemType = a.resolveType(expr.Type)
	case *Subscript:
		a.analyzeExpr(expr.Base)
		a.analyzeExpr(expr.Index)
		bt := expr.Base.Meta().SemType.Decay()
		if bt.Kind == KPointer {
			expr.SemType = bt.Elem
			expr.IsLValue = true
		} else {
			a.diags.Errorf(expr.Loc, "subscripted value is not an array or pointer")
			expr.SemType = IntType
		}
	case *Call:
		a.analyzeCall(expr)
	case *Member:
		a.analyzeExpr(expr.Base)
		base := expr.Base.Meta().SemType
		if expr.Arrow {
			if base.Kind == KPointer {
				base = base.Elem
			} else {
				a.diags.Errorf(expr.Loc, "-> applied to a non-pointer")
			}
		}
		if m, _, ok := base.FindMember(expr.Name); ok {
			expr.SemType = m.Type
			expr.IsLValue = true
		} else {
			a.diags.Errorf(expr.Loc, "no member named %q in %s", expr.Name, base)
			expr.SemType = IntType
		}
	case *InitList:
		for _, el := range expr.Elements {
			a.analyzeExpr(el)
		}
		expr.SemType = IntType
	}
}

func (a *Analyzer) analyzeUnary(expr *Unary) {
	a.analyzeExpr(expr.Operand)
	ot := expr.Operand.Meta().SemType
	switch expr.Op {
	case Amp:
		if !expr.Operand.Meta().IsLValue {
			a.diags.Errorf(expr.Loc, "cannot take the address of a non-lvalue")
		}
		expr.SemType = PointerTo(ot)
	case Star:
		dt := ot.Decay()
		if dt.Kind != KPointer {
			a.diags.Errorf(expr.Loc, "indirection requires a pointer operand")
			expr.SemType = IntType
		} else {
			expr.SemType = dt.Elem
			expr.IsLValue = true
		}
	case Plus, Minus, Tilde:
		expr.SemType = Promote(ot)
	case Bang:
		expr.SemType = IntType
	case PlusPlus, MinusMinus:
		expr.SemType = ot
		expr.IsLValue = true
	default:
		expr.SemType = ot
	}
}

func (a *Analyzer) analyzeBinary(expr *Binary) {
	a.analyzeExpr(expr.Left)
	a.analyzeExpr(expr.Right)
	lt, rt := expr.Left.Meta().SemType, expr.Right.Meta().SemType

	switch expr.Op {
	case Assign:
		if !expr.Left.Meta().IsLValue {
			a.diags.Errorf(expr.Loc, "assignment target is not an lvalue")
		}
		if !AssignableFrom(lt, rt) {
			a.diags.Errorf(expr.Loc, "cannot assign %s to %s", rt, lt)
		}
		expr.SemType = lt
		expr.IsLValue = true
	case PlusAssign, MinusAssign, StarAssign, SlashAssign, PercentAssign,
		AndAssign, OrAssign, XorAssign, ShlAssign, ShrAssign:
		if !expr.Left.Meta().IsLValue {
			a.diags.Errorf(expr.Loc, "assignment target is not an lvalue")
		}
		expr.SemType = lt
		expr.IsLValue = true
	case AmpAmp, PipePipe:
		expr.SemType = IntType
	case Eq, NotEq, Less, Greater, LessEq, GreaterEq:
		expr.SemType = IntType
	case Comma:
		expr.SemType = rt
	case Plus, Minus:
		expr.SemType = a.pointerArithType(expr, lt, rt)
	default:
		expr.SemType = CommonType(lt.Decay(), rt.Decay())
	}
}

func (a *Analyzer) pointerArithType(expr *Binary, lt, rt *Type) *Type {
	ldt, rdt := lt.Decay(), rt.Decay()
	if ldt.Kind == KPointer && rdt.Kind == KPointer {
		if expr.Op == Minus {
			return LongType
		}
		a.diags.Errorf(expr.Loc, "invalid pointer arithmetic")
		return ldt
	}
	if ldt.Kind == KPointer {
		return ldt
	}
	if rdt.Kind == KPointer {
		return rdt
	}
	return CommonType(ldt, rdt)
}

func (a *Analyzer) resultTypeOf(a1, b1 *Type) *Type {
	a1, b1 = a1.Decay(), b1.Decay()
	if a1.IsArithmetic() && b1.IsArithmetic() {
		return CommonType(a1, b1)
	}
	return a1
}

func (a *Analyzer) analyzeCall(expr *Call) {
	a.analyzeExpr(expr.Callee)
	for _, arg := range expr.Args {
		a.analyzeExpr(arg)
	}
	ct := expr.Callee.Meta().SemType
	if ct.Kind == KPointer {
		ct = ct.Elem
	}
	if ct.Kind != KFunction {
		a.diags.Errorf(expr.Loc, "called object is not a function")
		expr.SemType = IntType
		return
	}
	if !ct.Variadic && len(expr.Args) != len(ct.Params) {
		a.diags.Errorf(expr.Loc, "function called with %d arguments, expected %d", len(expr.Args), len(ct.Params))
	}
	for i, param := range ct.Params {
		if i >= len(expr.Args) {
			break
		}
		if at := expr.Args[i].Meta().SemType; at != nil && !AssignableFrom(param, at) {
			a.diags.Errorf(expr.Args[i].Meta().Loc, "argument %d: cannot convert %s to %s", i+1, at, param)
		}
	}
	expr.SemType = ct.Return
}

// evalConstIntExpr evaluates e as a constant integer expression, used for
// array bounds, enum initializers, and case labels. It walks the
// already-typed-or-untyped AST directly rather than reusing the
// preprocessor's text-based evaluator, since here the operands are
// expression nodes, not token strings.
func (a *Analyzer) evalConstIntExpr(e Expr) (int64, bool) {
	switch expr := e.(type) {
	case *IntLit:
		return expr.Value, true
	case *CharLit:
		return int64(expr.Value), true
	case *Ident:
		if sym, ok := a.syms.Lookup(expr.Name); ok && sym.Kind == SymEnumConstant {
			return sym.EnumValue, true
		}
		return 0, false
	case *Unary:
		v, ok := a.evalConstIntExpr(expr.Operand)
		if !ok {
			return 0, false
		}
		switch expr.Op {
		case Minus:
			return -v, true
		case Plus:
			return v, true
		case Tilde:
			return ^v, true
		case Bang:
			return boolToInt(v == 0), true
		}
		return 0, false
	case *Binary:
		l, ok1 := a.evalConstIntExpr(expr.Left)
		r, ok2 := a.evalConstIntExpr(expr.Right)
		if !ok1 || !ok2 {
			return 0, false
		}
		return evalConstIntBinary(expr.Op, l, r)
	case *Cast:
		return a.evalConstIntExpr(expr.Operand)
	case *SizeofExpr:
		if expr.OfType != nil {
			return a.resolveType(expr.OfType).Size(), true
		}
		if expr.Operand != nil && expr.Operand.Meta().SemType != nil {
			return expr.Operand.Meta().SemType.Size(), true
		}
		return 0, false
	}
	return 0, false
}

func evalConstIntBinary(op TokenKind, l, r int64) (int64, bool) {
	switch op {
	case Plus:
		return l + r, true
	case Minus:
		return l - r, true
	case Star:
		return l * r, true
	case Slash:
		if r == 0 {
			return 0, true
		}
		return l / r, true
	case Percent:
		if r == 0 {
			return 0, true
		}
		return l % r, true
	case Amp:
		return l & r, true
	case Pipe:
		return l | r, true
	case Caret:
		return l ^ r, true
	case Shl:
		return l << uint(r), true
	case Shr:
		return l >> uint(r), true
	case AmpAmp:
		return boolToInt(l != 0 && r != 0), true
	case PipePipe:
		return boolToInt(l != 0 || r != 0), true
	case Eq:
		return boolToInt(l == r), true
	case NotEq:
		return boolToInt(l != r), true
	case Less:
		return boolToInt(l < r), true
	case Greater:
		return boolToInt(l > r), true
	case LessEq:
		return boolToInt(l <= r), true
	case GreaterEq:
		return boolToInt(l >= r), true
	}
	return 0, false
}
