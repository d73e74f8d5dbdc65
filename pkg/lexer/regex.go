package lexer

import (
	"regexp"
)

// Token regex patterns. Keywords have none: they match ID and are looked up in Keywords.
var tokenRegexes = map[TokenType]*regexp.Regexp{
	LE: regexp.MustCompile(`^<=`),
	GE: regexp.MustCompile(`^>=`),
	EQ: regexp.MustCompile(`^==`),
	NE: regexp.MustCompile(`^!=`),

	ASSIGN: regexp.MustCompile(`^=`),
	NOT:    regexp.MustCompile(`^!`),
	PLUS:   regexp.MustCompile(`^\+`),
	MINUS:  regexp.MustCompile(`^-`),
	MULT:   regexp.MustCompile(`^\*`),
	DIV:    regexp.MustCompile(`^/`),
	LT:     regexp.MustCompile(`^<`),
	GT:     regexp.MustCompile(`^>`),

	SEMICOLON: regexp.MustCompile(`^;`),
	COMMA:     regexp.MustCompile(`^,`),
	DOT:       regexp.MustCompile(`^\.`),
	LPAREN:    regexp.MustCompile(`^\(`),
	RPAREN:    regexp.MustCompile(`^\)`),
	LBRACE:    regexp.MustCompile(`^\{`),
	RBRACE:    regexp.MustCompile(`^\}`),

	NUM:    regexp.MustCompile(`^\d+(\.\d+)?`),
	STRING: regexp.MustCompile(`^"[^"]*"`),
	ID:     regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*`),
}

// Token precedence order for matching (longer patterns first)
var tokenPrecedenceOrder = []TokenType{
	LE, GE, EQ, NE, ASSIGN, NOT, PLUS, MINUS, MULT, DIV, LT, GT,
	SEMICOLON, COMMA, DOT, LPAREN, RPAREN, LBRACE, RBRACE,
	NUM, STRING, ID,
}

// Get the regex pattern for a token type
func (t TokenType) Regex() *regexp.Regexp {
	return tokenRegexes[t]
}

// MatchToken matches the first token at the start of s. Identifiers that
// spell a keyword come back as that keyword.
func MatchToken(s string) (TokenType, string, bool) {
	if s == "" {
		return EOF, "", false
	}

	for _, tokenType := range tokenPrecedenceOrder {
		match := tokenType.Regex().FindString(s)
		if match == "" {
			continue
		}

		if tokenType == ID {
			if keyword, ok := IsKeyword(match); ok {
				return keyword, match, true
			}
		}
		return tokenType, match, true
	}

	return ILLEGAL, string(s[0]), false
}
