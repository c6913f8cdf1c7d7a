package compiler

import "fmt"

// TokenKind identifies the category of a lexed token. The full set is a
// closed sum: keyword kinds, identifier, the four literal kinds, every
// punctuator/operator, EOF, and Invalid.
type TokenKind int

const (
	EOF TokenKind = iota
	Invalid

	Identifier
	IntLiteral
	FloatLiteral
	CharLiteral
	StringLiteral

	// Keywords
	KwInt
	KwChar
	KwShort
	KwLong
	KwSigned
	KwUnsigned
	KwFloat
	KwDouble
	KwVoid
	KwStruct
	KwUnion
	KwEnum
	KwTypedef
	KwIf
	KwElse
	KwWhile
	KwDo
	KwFor
	KwSwitch
	KwCase
	KwDefault
	KwBreak
	KwContinue
	KwReturn
	KwGoto
	KwSizeof
	KwStatic
	KwExtern
	KwConst
	KwVolatile
	KwRegister
	KwAuto

	// Paired delimiters
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket

	// Punctuation
	Comma
	Semicolon
	Colon
	Dot
	Arrow
	Ellipsis
	Question

	// Assignment
	Assign
	PlusAssign
	MinusAssign
	StarAssign
	SlashAssign
	PercentAssign
	AndAssign
	OrAssign
	XorAssign
	ShlAssign
	ShrAssign

	// Arithmetic / bitwise / logical
	Plus
	Minus
	Star
	Slash
	Percent
	Amp
	Pipe
	Caret
	Tilde
	Bang
	Shl
	Shr
	AmpAmp
	PipePipe

	// Increment/decrement
	PlusPlus
	MinusMinus

	// Comparison
	Eq
	NotEq
	Less
	Greater
	LessEq
	GreaterEq

	Hash     // '#' seen as a token (only meaningful inside macro bodies)
	HashHash // '##'
)

var tokenNames = map[TokenKind]string{
	EOF: "EOF", Invalid: "INVALID",
	Identifier: "IDENTIFIER", IntLiteral: "INT_LITERAL", FloatLiteral: "FLOAT_LITERAL",
	CharLiteral: "CHAR_LITERAL", StringLiteral: "STRING_LITERAL",
	KwInt: "int", KwChar: "char", KwShort: "short", KwLong: "long", KwSigned: "signed",
	KwUnsigned: "unsigned", KwFloat: "float", KwDouble: "double", KwVoid: "void",
	KwStruct: "struct", KwUnion: "union", KwEnum: "enum", KwTypedef: "typedef",
	KwIf: "if", KwElse: "else", KwWhile: "while", KwDo: "do", KwFor: "for",
	KwSwitch: "switch", KwCase: "case", KwDefault: "default", KwBreak: "break",
	KwContinue: "continue", KwReturn: "return", KwGoto: "goto", KwSizeof: "sizeof",
	KwStatic: "static", KwExtern: "extern", KwConst: "const", KwVolatile: "volatile",
	KwRegister: "register", KwAuto: "auto",
	LParen: "(", RParen: ")", LBrace: "{", RBrace: "}", LBracket: "[", RBracket: "]",
	Comma: ",", Semicolon: ";", Colon: ":", Dot: ".", Arrow: "->", Ellipsis: "...", Question: "?",
	Assign: "=", PlusAssign: "+=", MinusAssign: "-=", StarAssign: "*=", SlashAssign: "/=",
	PercentAssign: "%=", AndAssign: "&=", OrAssign: "|=", XorAssign: "^=", ShlAssign: "<<=", ShrAssign: ">>=",
	Plus: "+", Minus: "-", Star: "*", Slash: "/", Percent: "%", Amp: "&", Pipe: "|", Caret: "^",
	Tilde: "~", Bang: "!", Shl: "<<", Shr: ">>", AmpAmp: "&&", PipePipe: "||",
	PlusPlus: "++", MinusMinus: "--",
	Eq: "==", NotEq: "!=", Less: "<", Greater: ">", LessEq: "<=", GreaterEq: ">=",
	Hash: "#", HashHash: "##",
}

func (k TokenKind) String() string {
	if s, ok := tokenNames[k]; ok {
		return s
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// keywords maps source spelling to its keyword TokenKind. Looked up only
// after a full identifier lexeme has been scanned.
var keywords = map[string]TokenKind{
	"int": KwInt, "char": KwChar, "short": KwShort, "long": KwLong,
	"signed": KwSigned, "unsigned": KwUnsigned, "float": KwFloat, "double": KwDouble,
	"void": KwVoid, "struct": KwStruct, "union": KwUnion, "enum": KwEnum, "typedef": KwTypedef,
	"if": KwIf, "else": KwElse, "while": KwWhile, "do": KwDo, "for": KwFor,
	"switch": KwSwitch, "case": KwCase, "default": KwDefault, "break": KwBreak,
	"continue": KwContinue, "return": KwReturn, "goto": KwGoto, "sizeof": KwSizeof,
	"static": KwStatic, "extern": KwExtern, "const": KwConst, "volatile": KwVolatile,
	"register": KwRegister, "auto": KwAuto,
}

// LiteralValue is the decoded payload a literal token carries alongside its
// raw lexeme; exactly one field is meaningful, keyed by the Token's Kind.
type LiteralValue struct {
	Int      int64
	IsUnsigned bool
	Float    float64
	Char     byte
	Str      []byte // decoded string bytes, escapes already resolved
}

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Kind    TokenKind
	Lexeme  string // exact source text that was matched
	Loc     Location
	Literal LiteralValue
}

func (t Token) String() string {
	return fmt.Sprintf("[%d:%d] %-14s %q", t.Loc.Line, t.Loc.Column, t.Kind, t.Lexeme)
}

// IsTypeStartKeyword reports whether kind can begin a declaration-specifier
// list on its own (used by the parser's cast-vs-parenthesized-expression
// and declaration-vs-statement disambiguation).
func IsTypeStartKeyword(k TokenKind) bool {
	switch k {
	case KwInt, KwChar, KwShort, KwLong, KwSigned, KwUnsigned, KwFloat, KwDouble,
		KwVoid, KwStruct, KwUnion, KwEnum,
		KwConst, KwVolatile, KwStatic, KwExtern, KwRegister, KwAuto, KwTypedef:
		return true
	}
	return false
}
