package parser

import (
	"fmt"
	"strings"

	"loxvm/pkg/lexer"
)

// Diagnostic is one compile error
type Diagnostic struct {
	Line    int    // source line of the offending token
	Where   string // " at 'x'", " at end", or empty for scanner errors
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[line %d] Error%s: %s", d.Line, d.Where, d.Message)
}

// CompileError is returned by Compile when any diagnostic was recorded
type CompileError struct {
	Diagnostics []Diagnostic
}

func (e *CompileError) Error() string {
	lines := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		lines[i] = d.String()
	}
	return strings.Join(lines, "\n")
}

// error reports msg at the token just consumed
func (p *Parser) error(msg string) {
	p.errorAt(p.previous, msg)
}

// errorAtCurrent reports msg at the lookahead token
func (p *Parser) errorAtCurrent(msg string) {
	p.errorAt(p.current, msg)
}

// errorAt records a diagnostic unless an earlier one in the same statement
// already put the parser in panic mode.
func (p *Parser) errorAt(tok lexer.Token, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true

	var where string
	switch tok.Type {
	case lexer.EOF:
		where = " at end"
	case lexer.ILLEGAL:
		// the token is the message, there is no lexeme to point at
	default:
		where = fmt.Sprintf(" at '%s'", tok.Lexeme)
	}

	p.errors = append(p.errors, Diagnostic{
		Line:    tok.Pos.Line,
		Where:   where,
		Message: msg,
	})
}

// synchronize leaves panic mode at the next statement boundary: after a ';'
// or before a keyword that starts a declaration or statement.
func (p *Parser) synchronize() {
	p.panicMode = false

	for p.current.Type != lexer.EOF {
		if p.previous.Type == lexer.SEMICOLON {
			return
		}

		switch p.current.Type {
		case lexer.CLASS, lexer.FUN, lexer.VAR, lexer.FOR, lexer.IF, lexer.WHILE, lexer.PRINT, lexer.RETURN:
			return
		}

		p.advance()
	}
}
