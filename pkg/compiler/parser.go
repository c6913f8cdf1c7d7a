package compiler

// Parser is a recursive-descent parser over the flat token slice the Lexer
// produces. It carries its own typedef-name set (a plain map, not a global)
// so a leading identifier can be told apart from the start of an
// expression without consulting the symbol table, which does not exist
// yet at parse time.
type Parser struct {
	tokens   []Token
	pos      int
	diags    *Diagnostics
	typedefs map[string]bool
}

func NewParser(tokens []Token, diags *Diagnostics) *Parser {
	return &Parser{tokens: tokens, diags: diags, typedefs: make(map[string]bool)}
}

// ParseTranslationUnit consumes tokens until EOF, producing an ordered
// sequence of declarations. Parse errors are recorded on diags and the
// parser resynchronizes rather than aborting, so a single bad declaration
// never hides the rest of the file's diagnostics.
func ParseTranslationUnit(tokens []Token, diags *Diagnostics) *TranslationUnit {
	p := NewParser(tokens, diags)
	tu := &TranslationUnit{}
	for !p.check(EOF) {
		before := p.pos
		tu.Decls = append(tu.Decls, p.parseExternalDecl()...)
		if p.pos == before {
			// nothing was consumed; avoid spinning forever on a token
			// that starts neither a declaration nor a statement.
			p.advance()
		}
	}
	return tu
}

// ---- token cursor ----

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Kind: EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(n int) Token {
	idx := p.pos + n
	if idx >= len(p.tokens) {
		return Token{Kind: EOF}
	}
	return p.tokens[idx]
}

func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) check(k TokenKind) bool { return p.peek().Kind == k }

// expectTok consumes the current token unconditionally, recording a
// diagnostic if it isn't the expected kind. Unconditional consumption
// keeps every caller's loop making forward progress even after an error.
func (p *Parser) expectTok(k TokenKind) Token {
	tok := p.advance()
	if tok.Kind != k {
		p.errorf(tok, "expected %s, got %s (%q)", k, tok.Kind, tok.Lexeme)
	}
	return tok
}

func (p *Parser) errorf(tok Token, format string, args ...any) {
	p.diags.Errorf(tok.Loc, format, args...)
}

// synchronize discards tokens until a plausible statement/declaration
// boundary, used after a parse error to keep later diagnostics meaningful.
func (p *Parser) synchronize() {
	for !p.check(EOF) {
		if p.check(Semicolon) {
			p.advance()
			return
		}
		switch p.peek().Kind {
		case RBrace, KwIf, KwWhile, KwFor, KwDo, KwSwitch, KwReturn, KwCase, KwDefault:
			return
		}
		if IsTypeStartKeyword(p.peek().Kind) {
			return
		}
		p.advance()
	}
}

func (p *Parser) startsTypeName(tok Token) bool {
	if IsTypeStartKeyword(tok.Kind) {
		return true
	}
	return tok.Kind == Identifier && p.typedefs[tok.Lexeme]
}

func (p *Parser) startsDeclaration() bool {
	return p.startsTypeName(p.peek())
}

// ---- declaration specifiers ----

type declSpecs struct {
	Type      TypeNode
	Storage   StorageClass
	IsTypedef bool
}

func identityType(t TypeNode) TypeNode { return t }

func applyQualifiers(t TypeNode, q Qualifiers) TypeNode {
	switch v := t.(type) {
	case *RecordTypeNode:
		v.Qualifiers = q
	case *EnumTypeNode:
		v.Qualifiers = q
	case *TypedefNameType:
		v.Qualifiers = q
	}
	return t
}

// parseDeclSpecs collects storage-class, qualifier, and type-specifier
// keywords in any order, per C's declaration-specifier grammar, and folds
// the arithmetic-type combination (signed/unsigned/short/long/int/char/
// float/double) into a single BasicType.
func (p *Parser) parseDeclSpecs() declSpecs {
	var spec declSpecs
	var quals Qualifiers
	basic := BasicInt
	explicitBasic := false
	unsigned := false
	shortSeen := false
	longCount := 0
	var named TypeNode
	haveAny := false

loop:
	for {
		tok := p.peek()
		switch tok.Kind {
		case KwConst:
			p.advance()
			quals.Const = true
		case KwVolatile:
			p.advance()
			quals.Volatile = true
		case KwStatic:
			p.advance()
			spec.Storage = StorageStatic
		case KwExtern:
			p.advance()
			spec.Storage = StorageExtern
		case KwRegister:
			p.advance()
			spec.Storage = StorageRegister
		case KwAuto:
			p.advance()
			spec.Storage = StorageAuto
		case KwTypedef:
			p.advance()
			spec.IsTypedef = true
		case KwVoid:
			p.advance()
			basic, explicitBasic, haveAny = BasicVoid, true, true
		case KwChar:
			p.advance()
			basic, explicitBasic, haveAny = BasicChar, true, true
		case KwFloat:
			p.advance()
			basic, explicitBasic, haveAny = BasicFloat, true, true
		case KwDouble:
			p.advance()
			basic, explicitBasic, haveAny = BasicDouble, true, true
		case KwShort:
			p.advance()
			shortSeen, haveAny = true, true
		case KwLong:
			p.advance()
			longCount++
			haveAny = true
		case KwInt:
			p.advance()
			haveAny = true
		case KwSigned:
			p.advance()
			haveAny = true
		case KwUnsigned:
			p.advance()
			unsigned, haveAny = true, true
		case KwStruct, KwUnion:
			if named != nil || explicitBasic {
				break loop
			}
			named = p.parseRecordSpecifier()
			haveAny = true
		case KwEnum:
			if named != nil || explicitBasic {
				break loop
			}
			named = p.parseEnumSpecifier()
			haveAny = true
		case Identifier:
			if !haveAny && named == nil && p.typedefs[tok.Lexeme] {
				named = &TypedefNameType{Name: tok.Lexeme}
				p.advance()
				haveAny = true
				continue
			}
			break loop
		default:
			break loop
		}
	}

	if !haveAny {
		p.errorf(p.peek(), "expected type specifier, got %s (%q)", p.peek().Kind, p.peek().Lexeme)
		spec.Type = &BasicType{Kind: BasicInt}
		return spec
	}

	if named != nil {
		spec.Type = applyQualifiers(named, quals)
		return spec
	}

	switch {
	case shortSeen:
		basic = BasicShort
	case longCount > 0:
		basic = BasicLong
	}
	spec.Type = &BasicType{Kind: basic, Unsigned: unsigned, Qualifiers: quals}
	return spec
}

func (p *Parser) parseTypeQualifiers() Qualifiers {
	var q Qualifiers
	for {
		switch p.peek().Kind {
		case KwConst:
			p.advance()
			q.Const = true
		case KwVolatile:
			p.advance()
			q.Volatile = true
		default:
			return q
		}
	}
}

func (p *Parser) parseRecordSpecifier() TypeNode {
	isUnion := p.advance().Kind == KwUnion
	tag := ""
	if p.check(Identifier) {
		tag = p.advance().Lexeme
	}
	if !p.check(LBrace) {
		return &RecordTypeNode{IsUnion: isUnion, Tag: tag}
	}
	p.advance()
	var fields []*FieldDecl
	for !p.check(RBrace) && !p.check(EOF) {
		fields = append(fields, p.parseFieldDecls()...)
	}
	p.expectTok(RBrace)
	return &RecordTypeNode{IsUnion: isUnion, Tag: tag, Fields: fields, HasBody: true}
}

func (p *Parser) parseFieldDecls() []*FieldDecl {
	spec := p.parseDeclSpecs()
	var fields []*FieldDecl
	for {
		d := p.parseDeclarator()
		fields = append(fields, &FieldDecl{Loc: d.name.Loc, Name: d.name.Lexeme, Type: d.build(spec.Type)})
		if !p.check(Comma) {
			break
		}
		p.advance()
	}
	p.expectTok(Semicolon)
	return fields
}

func (p *Parser) parseEnumSpecifier() TypeNode {
	p.advance() // 'enum'
	tag := ""
	if p.check(Identifier) {
		tag = p.advance().Lexeme
	}
	if !p.check(LBrace) {
		return &EnumTypeNode{Tag: tag}
	}
	p.advance()
	var consts []*EnumConstantDecl
	for !p.check(RBrace) && !p.check(EOF) {
		nameTok := p.expectTok(Identifier)
		var val Expr
		if p.check(Assign) {
			p.advance()
			val = p.parseAssignment()
		}
		consts = append(consts, &EnumConstantDecl{Loc: nameTok.Loc, Name: nameTok.Lexeme, Value: val})
		if !p.check(Comma) {
			break
		}
		p.advance()
		if p.check(RBrace) {
			break
		}
	}
	p.expectTok(RBrace)
	return &EnumTypeNode{Tag: tag, Constants: consts, HasBody: true}
}

// parseTypeName parses a type-name as used inside a cast or sizeof(...):
// declaration-specifiers followed by an optional abstract declarator.
func (p *Parser) parseTypeName() TypeNode {
	spec := p.parseDeclSpecs()
	d := p.parseDeclarator()
	return d.build(spec.Type)
}

// ---- declarators ----

// declarator is the parser's working representation of a (possibly
// abstract) declarator: the introduced name, if any, plus a function that
// plugs a base type into the "hole" a parenthesized inner declarator
// leaves behind. Composing these functions bottom-up lets the same
// machinery build both ordinary declarators and the pointer-to-function,
// array-of-pointer, and function-returning-pointer-to-function shapes C
// allows.
type declarator struct {
	name  Token
	build func(base TypeNode) TypeNode
}

func (p *Parser) parseDeclarator() declarator {
	var quals []Qualifiers
	for p.check(Star) {
		p.advance()
		quals = append(quals, p.parseTypeQualifiers())
	}
	dd := p.parseDirectDeclarator()
	build := func(base TypeNode) TypeNode {
		t := base
		for _, q := range quals {
			t = &PointerType{Elem: t, Qualifiers: q}
		}
		return dd.build(t)
	}
	return declarator{name: dd.name, build: build}
}

func (p *Parser) parseDirectDeclarator() declarator {
	var core declarator
	switch {
	case p.check(Identifier):
		core = declarator{name: p.advance(), build: identityType}
	case p.check(LParen):
		p.advance()
		core = p.parseDeclarator()
		p.expectTok(RParen)
	default:
		core = declarator{build: identityType}
	}
	suffix := p.parseDeclaratorSuffixChain()
	return declarator{
		name:  core.name,
		build: func(base TypeNode) TypeNode { return core.build(suffix(base)) },
	}
}

// parseDeclaratorSuffixChain parses the `[size]` and `(params)` suffixes
// that follow a declarator's core. It recurses before building its own
// wrapper, so "int a[3][4]" composes as Array(3, Array(4, int)) rather
// than the reverse — the leftmost dimension is the outermost array.
func (p *Parser) parseDeclaratorSuffixChain() func(TypeNode) TypeNode {
	switch {
	case p.check(LBracket):
		p.advance()
		var size Expr
		if !p.check(RBracket) {
			size = p.parseAssignment()
		}
		p.expectTok(RBracket)
		rest := p.parseDeclaratorSuffixChain()
		return func(base TypeNode) TypeNode { return &ArrayType{Elem: rest(base), Size: size} }
	case p.check(LParen):
		p.advance()
		params, variadic := p.parseParamList()
		p.expectTok(RParen)
		rest := p.parseDeclaratorSuffixChain()
		return func(base TypeNode) TypeNode {
			return &FunctionType{Return: rest(base), Params: params, Variadic: variadic}
		}
	default:
		return identityType
	}
}

func (p *Parser) parseParamList() ([]*ParamDecl, bool) {
	var params []*ParamDecl
	if p.check(RParen) {
		return params, false
	}
	if p.check(KwVoid) && p.peekAt(1).Kind == RParen {
		p.advance()
		return params, false
	}
	for {
		if p.check(Ellipsis) {
			p.advance()
			return params, true
		}
		loc := p.peek().Loc
		spec := p.parseDeclSpecs()
		d := p.parseDeclarator()
		params = append(params, &ParamDecl{Loc: loc, Name: d.name.Lexeme, Type: d.build(spec.Type)})
		if !p.check(Comma) {
			break
		}
		p.advance()
	}
	return params, false
}

// ---- external (top-level) declarations ----

func (p *Parser) parseExternalDecl() []Decl {
	loc := p.peek().Loc
	if p.check(Semicolon) {
		p.advance()
		return nil
	}
	spec := p.parseDeclSpecs()

	if p.check(Semicolon) {
		p.advance()
		return bareSpecifierDecl(spec, loc)
	}

	first := p.parseDeclarator()

	if spec.IsTypedef {
		return p.finishTypedefs(spec, first)
	}

	ty := first.build(spec.Type)
	if fnType, isFn := ty.(*FunctionType); isFn {
		if p.check(LBrace) {
			body := p.parseCompoundStmt()
			return []Decl{&FunctionDecl{Loc: loc, Name: first.name.Lexeme, Type: fnType, Body: body, Storage: spec.Storage}}
		}
		p.expectTok(Semicolon)
		return []Decl{&FunctionDecl{Loc: loc, Name: first.name.Lexeme, Type: fnType, Storage: spec.Storage}}
	}

	return p.finishVarDecls(spec, first, ty)
}

func bareSpecifierDecl(spec declSpecs, loc Location) []Decl {
	switch t := spec.Type.(type) {
	case *RecordTypeNode:
		return []Decl{&RecordDecl{Loc: loc, IsUnion: t.IsUnion, Tag: t.Tag, Fields: t.Fields, HasBody: t.HasBody}}
	case *EnumTypeNode:
		return []Decl{&EnumDecl{Loc: loc, Tag: t.Tag, Constants: t.Constants, HasBody: t.HasBody}}
	}
	return nil
}

func (p *Parser) finishTypedefs(spec declSpecs, first declarator) []Decl {
	var decls []Decl
	d := first
	for {
		p.typedefs[d.name.Lexeme] = true
		decls = append(decls, &TypedefDecl{Loc: d.name.Loc, Name: d.name.Lexeme, Type: d.build(spec.Type)})
		if !p.check(Comma) {
			break
		}
		p.advance()
		d = p.parseDeclarator()
	}
	p.expectTok(Semicolon)
	return decls
}

func (p *Parser) finishVarDecls(spec declSpecs, first declarator, firstTy TypeNode) []Decl {
	var decls []Decl
	d, ty := first, firstTy
	for {
		var init Expr
		if p.check(Assign) {
			p.advance()
			init = p.parseInitializer()
		}
		decls = append(decls, &VarDecl{Loc: d.name.Loc, Name: d.name.Lexeme, Type: ty, Init: init, Storage: spec.Storage})
		if !p.check(Comma) {
			break
		}
		p.advance()
		d = p.parseDeclarator()
		ty = d.build(spec.Type)
	}
	p.expectTok(Semicolon)
	return decls
}

// parseBlockDeclaration is the statement-position counterpart of
// parseExternalDecl: no function definitions are possible here, but
// prototypes, typedefs, and ordinary variable declarations are.
func (p *Parser) parseBlockDeclaration() Stmt {
	loc := p.peek().Loc
	spec := p.parseDeclSpecs()

	if p.check(Semicolon) {
		p.advance()
		return &DeclStmt{Loc: loc, Decls: bareSpecifierDecl(spec, loc)}
	}

	first := p.parseDeclarator()

	if spec.IsTypedef {
		return &DeclStmt{Loc: loc, Decls: p.finishTypedefs(spec, first)}
	}

	ty := first.build(spec.Type)
	if fnType, isFn := ty.(*FunctionType); isFn {
		p.expectTok(Semicolon)
		decl := &FunctionDecl{Loc: loc, Name: first.name.Lexeme, Type: fnType, Storage: spec.Storage}
		return &DeclStmt{Loc: loc, Decls: []Decl{decl}}
	}

	return &DeclStmt{Loc: loc, Decls: p.finishVarDecls(spec, first, ty)}
}

// ---- initializers ----

func (p *Parser) parseInitializer() Expr {
	if p.check(LBrace) {
		return p.parseInitList()
	}
	return p.parseAssignment()
}

func (p *Parser) parseInitList() Expr {
	loc := p.expectTok(LBrace).Loc
	var elems []Expr
	for !p.check(RBrace) && !p.check(EOF) {
		elems = append(elems, p.parseInitListElement())
		if !p.check(Comma) {
			break
		}
		p.advance()
		if p.check(RBrace) {
			break // trailing comma
		}
	}
	p.expectTok(RBrace)
	return &InitList{ExprMeta: ExprMeta{Loc: loc}, Elements: elems}
}

// parseInitListElement handles the two designated-initializer forms by
// modeling them as an Assign binary whose left side is a Member or
// Subscript with a nil Base; the IR generator recognizes this shape.
func (p *Parser) parseInitListElement() Expr {
	switch {
	case p.check(Dot):
		loc := p.advance().Loc
		name := p.expectTok(Identifier)
		p.expectTok(Assign)
		val := p.parseInitializer()
		left := &Member{ExprMeta: ExprMeta{Loc: loc}, Name: name.Lexeme}
		return &Binary{ExprMeta: ExprMeta{Loc: loc}, Op: Assign, Left: left, Right: val}
	case p.check(LBracket):
		loc := p.advance().Loc
		idx := p.parseAssignment()
		p.expectTok(RBracket)
		p.expectTok(Assign)
		val := p.parseInitializer()
		left := &Subscript{ExprMeta: ExprMeta{Loc: loc}, Index: idx}
		return &Binary{ExprMeta: ExprMeta{Loc: loc}, Op: Assign, Left: left, Right: val}
	default:
		return p.parseInitializer()
	}
}

// ---- statements ----

func (p *Parser) parseCompoundStmt() *CompoundStmt {
	loc := p.expectTok(LBrace).Loc
	var items []Stmt
	for !p.check(RBrace) && !p.check(EOF) {
		before := p.pos
		items = append(items, p.parseStatement())
		if p.pos == before {
			p.advance()
		}
	}
	p.expectTok(RBrace)
	return &CompoundStmt{Loc: loc, Items: items}
}

func (p *Parser) parseStatement() Stmt {
	tok := p.peek()
	switch tok.Kind {
	case LBrace:
		return p.parseCompoundStmt()
	case KwIf:
		return p.parseIfStmt()
	case KwSwitch:
		return p.parseSwitchStmt()
	case KwWhile:
		return p.parseWhileStmt()
	case KwDo:
		return p.parseDoWhileStmt()
	case KwFor:
		return p.parseForStmt()
	case KwGoto:
		return p.parseGotoStmt()
	case KwContinue:
		p.advance()
		p.expectTok(Semicolon)
		return &ContinueStmt{Loc: tok.Loc}
	case KwBreak:
		p.advance()
		p.expectTok(Semicolon)
		return &BreakStmt{Loc: tok.Loc}
	case KwReturn:
		return p.parseReturnStmt()
	case KwCase:
		return p.parseCaseStmt()
	case KwDefault:
		return p.parseDefaultStmt()
	case Semicolon:
		p.advance()
		return &ExprStmt{Loc: tok.Loc}
	case Identifier:
		if p.peekAt(1).Kind == Colon {
			return p.parseLabelStmt()
		}
		if p.startsDeclaration() {
			return p.parseBlockDeclaration()
		}
		return p.parseExprStmt()
	default:
		if p.startsDeclaration() {
			return p.parseBlockDeclaration()
		}
		return p.parseExprStmt()
	}
}

func (p *Parser) parseExprStmt() Stmt {
	loc := p.peek().Loc
	expr := p.parseExpression()
	p.expectTok(Semicolon)
	return &ExprStmt{Loc: loc, X: expr}
}

func (p *Parser) parseIfStmt() Stmt {
	loc := p.advance().Loc
	p.expectTok(LParen)
	cond := p.parseExpression()
	p.expectTok(RParen)
	then := p.parseStatement()
	var els Stmt
	if p.check(KwElse) {
		p.advance()
		els = p.parseStatement()
	}
	return &IfStmt{Loc: loc, Cond: cond, Then: then, Else: els}
}

func (p *Parser) parseWhileStmt() Stmt {
	loc := p.advance().Loc
	p.expectTok(LParen)
	cond := p.parseExpression()
	p.expectTok(RParen)
	body := p.parseStatement()
	return &WhileStmt{Loc: loc, Cond: cond, Body: body}
}

func (p *Parser) parseDoWhileStmt() Stmt {
	loc := p.advance().Loc
	body := p.parseStatement()
	p.expectTok(KwWhile)
	p.expectTok(LParen)
	cond := p.parseExpression()
	p.expectTok(RParen)
	p.expectTok(Semicolon)
	return &DoWhileStmt{Loc: loc, Body: body, Cond: cond}
}

// parseForStmt's Init branch mirrors the two shapes ForStmt.Init allows:
// an ExprStmt (already ';'-terminated) or a DeclStmt (also already
// ';'-terminated by parseBlockDeclaration's own call chain).
func (p *Parser) parseForStmt() Stmt {
	loc := p.advance().Loc
	p.expectTok(LParen)

	var init Stmt
	switch {
	case p.check(Semicolon):
		p.advance()
	case p.startsDeclaration():
		init = p.parseBlockDeclaration()
	default:
		exprLoc := p.peek().Loc
		expr := p.parseExpression()
		p.expectTok(Semicolon)
		init = &ExprStmt{Loc: exprLoc, X: expr}
	}

	var cond Expr
	if !p.check(Semicolon) {
		cond = p.parseExpression()
	}
	p.expectTok(Semicolon)

	var post Expr
	if !p.check(RParen) {
		post = p.parseExpression()
	}
	p.expectTok(RParen)

	body := p.parseStatement()
	return &ForStmt{Loc: loc, Init: init, Cond: cond, Post: post, Body: body}
}

func (p *Parser) parseSwitchStmt() Stmt {
	loc := p.advance().Loc
	p.expectTok(LParen)
	tag := p.parseExpression()
	p.expectTok(RParen)
	body := p.parseStatement()
	return &SwitchStmt{Loc: loc, Tag: tag, Body: body}
}

func (p *Parser) parseCaseStmt() Stmt {
	loc := p.advance().Loc
	val := p.parseAssignment()
	p.expectTok(Colon)
	body := p.parseStatement()
	return &CaseStmt{Loc: loc, Value: val, Body: body}
}

func (p *Parser) parseDefaultStmt() Stmt {
	loc := p.advance().Loc
	p.expectTok(Colon)
	body := p.parseStatement()
	return &DefaultStmt{Loc: loc, Body: body}
}

func (p *Parser) parseGotoStmt() Stmt {
	loc := p.advance().Loc
	name := p.expectTok(Identifier)
	p.expectTok(Semicolon)
	return &GotoStmt{Loc: loc, Label: name.Lexeme}
}

func (p *Parser) parseLabelStmt() Stmt {
	nameTok := p.advance()
	p.advance() // ':'
	return &LabelStmt{Loc: nameTok.Loc, Name: nameTok.Lexeme, Stmt: p.parseStatement()}
}

func (p *Parser) parseReturnStmt() Stmt {
	loc := p.advance().Loc
	if p.check(Semicolon) {
		p.advance()
		return &ReturnStmt{Loc: loc}
	}
	val := p.parseExpression()
	p.expectTok(Semicolon)
	return &ReturnStmt{Loc: loc, Value: val}
}

// ---- expressions ----
//
// The ladder below follows spec'd C precedence, low to high: comma,
// assignment, conditional, logical-or, logical-and, bitwise or/xor/and,
// equality, relational, shift, additive, multiplicative, cast, unary,
// postfix, primary. Each level calls straight through to the next when
// its own operator isn't present, which is what gives the ladder its
// precedence.

// parseExpression handles the comma operator; argument lists and
// initializer elements call parseAssignment directly so a comma there
// acts as a separator, not this operator.
func (p *Parser) parseExpression() Expr {
	expr := p.parseAssignment()
	for p.check(Comma) {
		op := p.advance()
		rhs := p.parseAssignment()
		expr = &Binary{ExprMeta: ExprMeta{Loc: op.Loc}, Op: Comma, Left: expr, Right: rhs}
	}
	return expr
}

func isAssignOp(k TokenKind) bool {
	switch k {
	case Assign, PlusAssign, MinusAssign, StarAssign, SlashAssign, PercentAssign,
		AndAssign, OrAssign, XorAssign, ShlAssign, ShrAssign:
		return true
	}
	return false
}

// parseAssignment is right-associative: a successful match recurses into
// itself for the right-hand side rather than dropping to parseConditional,
// so "a = b = c" parses as "a = (b = c)".
func (p *Parser) parseAssignment() Expr {
	left := p.parseConditional()
	if isAssignOp(p.peek().Kind) {
		op := p.advance()
		right := p.parseAssignment()
		return &Binary{ExprMeta: ExprMeta{Loc: op.Loc}, Op: op.Kind, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseConditional() Expr {
	cond := p.parseLogicalOr()
	if p.check(Question) {
		loc := p.advance().Loc
		then := p.parseExpression()
		p.expectTok(Colon)
		els := p.parseConditional()
		return &Conditional{ExprMeta: ExprMeta{Loc: loc}, Cond: cond, Then: then, Else: els}
	}
	return cond
}

func (p *Parser) parseLogicalOr() Expr {
	expr := p.parseLogicalAnd()
	for p.check(PipePipe) {
		op := p.advance()
		right := p.parseLogicalAnd()
		expr = &Binary{ExprMeta: ExprMeta{Loc: op.Loc}, Op: op.Kind, Left: expr, Right: right}
	}
	return expr
}

func (p *Parser) parseLogicalAnd() Expr {
	expr := p.parseBitwiseOr()
	for p.check(AmpAmp) {
		op := p.advance()
		right := p.parseBitwiseOr()
		expr = &Binary{ExprMeta: ExprMeta{Loc: op.Loc}, Op: op.Kind, Left: expr, Right: right}
	}
	return expr
}

func (p *Parser) parseBitwiseOr() Expr {
	expr := p.parseBitwiseXor()
	for p.check(Pipe) {
		op := p.advance()
		right := p.parseBitwiseXor()
		expr = &Binary{ExprMeta: ExprMeta{Loc: op.Loc}, Op: op.Kind, Left: expr, Right: right}
	}
	return expr
}

func (p *Parser) parseBitwiseXor() Expr {
	expr := p.parseBitwiseAnd()
	for p.check(Caret) {
		op := p.advance()
		right := p.parseBitwiseAnd()
		expr = &Binary{ExprMeta: ExprMeta{Loc: op.Loc}, Op: op.Kind, Left: expr, Right: right}
	}
	return expr
}

// parseBitwiseAnd handles binary &. Unary & (address-of) never reaches
// here; it is consumed by parseUnary before precedence climbing starts.
func (p *Parser) parseBitwiseAnd() Expr {
	expr := p.parseEquality()
	for p.check(Amp) {
		op := p.advance()
		right := p.parseEquality()
		expr = &Binary{ExprMeta: ExprMeta{Loc: op.Loc}, Op: op.Kind, Left: expr, Right: right}
	}
	return expr
}

func (p *Parser) parseEquality() Expr {
	expr := p.parseRelational()
	for p.check(Eq) || p.check(NotEq) {
		op := p.advance()
		right := p.parseRelational()
		expr = &Binary{ExprMeta: ExprMeta{Loc: op.Loc}, Op: op.Kind, Left: expr, Right: right}
	}
	return expr
}

func (p *Parser) parseRelational() Expr {
	expr := p.parseShift()
	for p.check(Less) || p.check(Greater) || p.check(LessEq) || p.check(GreaterEq) {
		op := p.advance()
		right := p.parseShift()
		expr = &Binary{ExprMeta: ExprMeta{Loc: op.Loc}, Op: op.Kind, Left: expr, Right: right}
	}
	return expr
}

func (p *Parser) parseShift() Expr {
	expr := p.parseAdditive()
	for p.check(Shl) || p.check(Shr) {
		op := p.advance()
		right := p.parseAdditive()
		expr = &Binary{ExprMeta: ExprMeta{Loc: op.Loc}, Op: op.Kind, Left: expr, Right: right}
	}
	return expr
}

func (p *Parser) parseAdditive() Expr {
	expr := p.parseMultiplicative()
	for p.check(Plus) || p.check(Minus) {
		op := p.advance()
		right := p.parseMultiplicative()
		expr = &Binary{ExprMeta: ExprMeta{Loc: op.Loc}, Op: op.Kind, Left: expr, Right: right}
	}
	return expr
}

func (p *Parser) parseMultiplicative() Expr {
	expr := p.parseCast()
	for p.check(Star) || p.check(Slash) || p.check(Percent) {
		op := p.advance()
		right := p.parseCast()
		expr = &Binary{ExprMeta: ExprMeta{Loc: op.Loc}, Op: op.Kind, Left: expr, Right: right}
	}
	return expr
}

// parseCast disambiguates "(" type-name ")" cast-expr from a parenthesized
// expression by peeking one token past the "(" for a type-start token —
// no backtracking needed, since a typedef name can never start a
// primary expression on its own.
func (p *Parser) parseCast() Expr {
	if p.check(LParen) && p.startsTypeName(p.peekAt(1)) {
		loc := p.peek().Loc
		p.advance()
		ty := p.parseTypeName()
		p.expectTok(RParen)
		return &Cast{ExprMeta: ExprMeta{Loc: loc}, Type: ty, Operand: p.parseCast()}
	}
	return p.parseUnary()
}

func (p *Parser) parseUnary() Expr {
	tok := p.peek()
	switch tok.Kind {
	case Amp, Star, Plus, Minus, Tilde, Bang:
		p.advance()
		return &Unary{ExprMeta: ExprMeta{Loc: tok.Loc}, Op: tok.Kind, Operand: p.parseCast()}
	case PlusPlus, MinusMinus:
		p.advance()
		return &Unary{ExprMeta: ExprMeta{Loc: tok.Loc}, Op: tok.Kind, Operand: p.parseUnary()}
	case KwSizeof:
		p.advance()
		if p.check(LParen) && p.startsTypeName(p.peekAt(1)) {
			p.advance()
			ty := p.parseTypeName()
			p.expectTok(RParen)
			return &SizeofExpr{ExprMeta: ExprMeta{Loc: tok.Loc}, OfType: ty}
		}
		return &SizeofExpr{ExprMeta: ExprMeta{Loc: tok.Loc}, Operand: p.parseUnary()}
	default:
		return p.parsePostfix()
	}
}

func (p *Parser) parsePostfix() Expr {
	expr := p.parsePrimary()
	for {
		switch p.peek().Kind {
		case LBracket:
			loc := p.advance().Loc
			idx := p.parseExpression()
			p.expectTok(RBracket)
			expr = &Subscript{ExprMeta: ExprMeta{Loc: loc}, Base: expr, Index: idx}
		case Dot, Arrow:
			arrow := p.peek().Kind == Arrow
			loc := p.advance().Loc
			name := p.expectTok(Identifier)
			expr = &Member{ExprMeta: ExprMeta{Loc: loc}, Base: expr, Name: name.Lexeme, Arrow: arrow}
		case LParen:
			loc := p.advance().Loc
			args := p.parseArgList()
			p.expectTok(RParen)
			expr = &Call{ExprMeta: ExprMeta{Loc: loc}, Callee: expr, Args: args}
		case PlusPlus, MinusMinus:
			op := p.advance()
			expr = &Postfix{ExprMeta: ExprMeta{Loc: op.Loc}, Op: op.Kind, Operand: expr}
		default:
			return expr
		}
	}
}

func (p *Parser) parseArgList() []Expr {
	var args []Expr
	if p.check(RParen) {
		return args
	}
	for {
		args = append(args, p.parseAssignment())
		if !p.check(Comma) {
			break
		}
		p.advance()
	}
	return args
}

func (p *Parser) parsePrimary() Expr {
	tok := p.peek()
	switch tok.Kind {
	case IntLiteral:
		p.advance()
		return &IntLit{ExprMeta: ExprMeta{Loc: tok.Loc}, Value: tok.Literal.Int, Unsigned: tok.Literal.IsUnsigned}
	case FloatLiteral:
		p.advance()
		return &FloatLit{ExprMeta: ExprMeta{Loc: tok.Loc}, Value: tok.Literal.Float}
	case CharLiteral:
		p.advance()
		return &CharLit{ExprMeta: ExprMeta{Loc: tok.Loc}, Value: tok.Literal.Char}
	case StringLiteral:
		p.advance()
		bytes := append([]byte(nil), tok.Literal.Str...)
		for p.check(StringLiteral) {
			// adjacent string literals concatenate into one token
			bytes = append(bytes, p.advance().Literal.Str...)
		}
		return &StringLit{ExprMeta: ExprMeta{Loc: tok.Loc}, Value: bytes}
	case Identifier:
		p.advance()
		return &Ident{ExprMeta: ExprMeta{Loc: tok.Loc}, Name: tok.Lexeme}
	case LParen:
		p.advance()
		expr := p.parseExpression()
		p.expectTok(RParen)
		return expr
	default:
		p.errorf(tok, "expected expression, got %s (%q)", tok.Kind, tok.Lexeme)
		if !p.check(EOF) {
			p.advance()
		}
		return &Ident{ExprMeta: ExprMeta{Loc: tok.Loc}, Name: "<error>"}
	}
}
