// Package syntax implements the lexer and recursive-descent parser for the
// language, producing an untyped tree that semantic analysis resolves.
package syntax

import "github.com/nwmarino/lovelace/internal/diag"

// TokenKind enumerates token kinds.
type TokenKind uint32

const (
	TokenEOF TokenKind = iota

	TokenIdentifier
	TokenInteger
	TokenFloat
	TokenChar
	TokenString

	// Punctuation.

	TokenLParen
	TokenRParen
	TokenLBrace
	TokenRBrace
	TokenLBracket
	TokenRBracket
	TokenComma
	TokenSemi
	TokenColon
	TokenDot
	TokenArrow

	// Operators.

	TokenEq
	TokenEqEq
	TokenBang
	TokenBangEq
	TokenPlus
	TokenPlusPlus
	TokenPlusEq
	TokenMinus
	TokenMinusMinus
	TokenMinusEq
	TokenStar
	TokenStarEq
	TokenSlash
	TokenSlashEq
	TokenPercent
	TokenPercentEq
	TokenLeft
	TokenLeftLeft
	TokenLeftEq
	TokenLeftLeftEq
	TokenRight
	TokenRightRight
	TokenRightEq
	TokenRightRightEq
	TokenAnd
	TokenAndAnd
	TokenAndEq
	TokenOr
	TokenOrOr
	TokenOrEq
	TokenXor
	TokenXorEq
	TokenTilde

	// Keywords.

	TokenKwFn
	TokenKwLet
	TokenKwMut
	TokenKwRet
	TokenKwIf
	TokenKwElse
	TokenKwWhile
	TokenKwBreak
	TokenKwContinue
	TokenKwAsm
	TokenKwStruct
	TokenKwEnum
	TokenKwAlias
	TokenKwLoad
	TokenKwTrue
	TokenKwFalse
	TokenKwNull
	TokenKwSizeof
	TokenKwAs
)

var keywords = map[string]TokenKind{
	"fn":       TokenKwFn,
	"let":      TokenKwLet,
	"mut":      TokenKwMut,
	"ret":      TokenKwRet,
	"if":       TokenKwIf,
	"else":     TokenKwElse,
	"while":    TokenKwWhile,
	"break":    TokenKwBreak,
	"continue": TokenKwContinue,
	"asm":      TokenKwAsm,
	"struct":   TokenKwStruct,
	"enum":     TokenKwEnum,
	"alias":    TokenKwAlias,
	"load":     TokenKwLoad,
	"true":     TokenKwTrue,
	"false":    TokenKwFalse,
	"null":     TokenKwNull,
	"sizeof":   TokenKwSizeof,
	"as":       TokenKwAs,
}

// Token is one lexed token with its source span and literal text.
type Token struct {
	Kind TokenKind
	Text string
	Span diag.SourceSpan
}

// Is reports whether the token has the given kind.
func (t Token) Is(kind TokenKind) bool { return t.Kind == kind }
