package lexer

import (
	"fmt"
)

type TokenType int
type TokenCategory int

type Token struct {
	Type    TokenType // Type of the token
	Lexeme  string    // Source text, or the message of an ILLEGAL token
	Literal string    // Literal value for numbers and strings, empty otherwise
	Pos     Position  // Position in source code
}

// NewToken creates a new Token instance
func NewToken(tokenType TokenType, lexeme string, literal string, pos Position) Token {
	return Token{
		Type:    tokenType,
		Lexeme:  lexeme,
		Literal: literal,
		Pos:     pos,
	}
}

const (
	NONE TokenCategory = iota
	KEYWORD
	IDENTIFIER
	LITERAL
	OPERATOR
	DELIMITER
)

const (
	EOF TokenType = iota // End of file

	AND    // and
	CLASS  // class
	ELSE   // else
	FALSE  // false
	FOR    // for
	FUN    // fun
	IF     // if
	NIL    // nil
	OR     // or
	PRINT  // print
	RETURN // return
	SUPER  // super
	THIS   // this
	TRUE   // true
	VAR    // var
	WHILE  // while

	ID     // identifier
	NUM    // number literal
	STRING // string literal

	ASSIGN // =
	PLUS   // +
	MINUS  // -
	MULT   // *
	DIV    // /
	NOT    // !
	LT     // <
	GT     // >
	LE     // <=
	GE     // >=
	EQ     // ==
	NE     // !=

	SEMICOLON // ;
	COMMA     // ,
	DOT       // .
	LPAREN    // (
	RPAREN    // )
	LBRACE    // {
	RBRACE    // }

	ILLEGAL // scanner error, Lexeme holds the message

	tokenTypeCount
)

// TokenTypeCount is the number of token types, for tables indexed by TokenType
const TokenTypeCount = int(tokenTypeCount)

var Keywords = map[string]TokenType{
	"and":    AND,
	"class":  CLASS,
	"else":   ELSE,
	"false":  FALSE,
	"for":    FOR,
	"fun":    FUN,
	"if":     IF,
	"nil":    NIL,
	"or":     OR,
	"print":  PRINT,
	"return": RETURN,
	"super":  SUPER,
	"this":   THIS,
	"true":   TRUE,
	"var":    VAR,
	"while":  WHILE,
}

var tokenNames = [...]string{
	EOF:       "EOF",
	AND:       "and",
	CLASS:     "class",
	ELSE:      "else",
	FALSE:     "false",
	FOR:       "for",
	FUN:       "fun",
	IF:        "if",
	NIL:       "nil",
	OR:        "or",
	PRINT:     "print",
	RETURN:    "return",
	SUPER:     "super",
	THIS:      "this",
	TRUE:      "true",
	VAR:       "var",
	WHILE:     "while",
	ID:        "id",
	NUM:       "num",
	STRING:    "string",
	ASSIGN:    "=",
	PLUS:      "+",
	MINUS:     "-",
	MULT:      "*",
	DIV:       "/",
	NOT:       "!",
	LT:        "<",
	GT:        ">",
	LE:        "<=",
	GE:        ">=",
	EQ:        "==",
	NE:        "!=",
	SEMICOLON: ";",
	COMMA:     ",",
	DOT:       ".",
	LPAREN:    "(",
	RPAREN:    ")",
	LBRACE:    "{",
	RBRACE:    "}",
	ILLEGAL:   "ILLEGAL",
}

// String returns a string representation of the Token
func (t Token) String() string {
	if t.Literal == "" {
		return fmt.Sprintf("T_{%s, %v, nil, %s}",
			t.Type, t.Lexeme, t.Pos.String())
	}

	return fmt.Sprintf("T_{%s, %v, %q, %s}",
		t.Type, t.Lexeme, t.Literal, t.Pos.String())
}

// String returns a string representation of the TokenType
func (t TokenType) String() string {
	if t >= 0 && int(t) < len(tokenNames) {
		return tokenNames[t]
	}

	return fmt.Sprintf("UNKNOWN(%d)", int(t))
}

// GetCategory returns the category of the token
func (t TokenType) GetCategory() TokenCategory {
	switch t {
	case AND, CLASS, ELSE, FALSE, FOR, FUN, IF, NIL, OR, PRINT, RETURN, SUPER, THIS, TRUE, VAR, WHILE:
		return KEYWORD
	case ID:
		return IDENTIFIER
	case NUM, STRING:
		return LITERAL
	case ASSIGN, PLUS, MINUS, MULT, DIV, NOT, LT, GT, LE, GE, EQ, NE:
		return OPERATOR
	case SEMICOLON, COMMA, DOT, LPAREN, RPAREN, LBRACE, RBRACE:
		return DELIMITER
	default:
		return NONE
	}
}

// IsKeyword checks if the given identifier is a keyword and returns its TokenType if it is
func IsKeyword(identifier string) (TokenType, bool) {
	tokenType, ok := Keywords[identifier]
	return tokenType, ok
}
