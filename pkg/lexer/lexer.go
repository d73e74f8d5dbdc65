package lexer

type Lexer struct {
	input    string // input string to be tokenized
	length   int    // length of the input string
	position int    // current position in the input string
	line     int    // current line number for error reporting
	column   int    // current column number for error reporting
}

// Create a new lexer instance
func NewLexer(s string) *Lexer {
	return &Lexer{
		input:    s,
		length:   len(s),
		position: 0,
		line:     1,
		column:   1,
	}
}

// Get the next token from the input. Once the input is exhausted every call
// returns EOF. Malformed input produces an ILLEGAL token carrying the message.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	start := l.currentPosition()

	// End of input
	if l.position >= l.length {
		return NewToken(EOF, "", "", start)
	}

	// Regex match the first token it sees from the remaining input from current position to the end
	remaining := l.input[l.position:]
	tokenType, lexeme, matched := MatchToken(remaining)

	if !matched {
		if remaining[0] == '"' {
			// strings may span lines, so an unterminated one swallows the rest of the input
			l.advance(len(remaining))
			return NewToken(ILLEGAL, "Unterminated string.", "", l.currentPosition())
		}

		l.advance(1)
		return NewToken(ILLEGAL, "Unexpected character.", "", start)
	}

	var literal string
	switch tokenType {
	case NUM:
		literal = lexeme
	case STRING:
		// Remove the surrounding quotes from the lexeme
		literal = lexeme[1 : len(lexeme)-1]
	}

	l.advance(len(lexeme))

	return NewToken(tokenType, lexeme, literal, start)
}

// Skip whitespace and comments
func (l *Lexer) skipWhitespace() {
	for l.position < l.length {
		ch := l.input[l.position]

		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			l.advance(1)

		} else if l.position+1 < l.length && ch == '/' && l.input[l.position+1] == '/' {
			// a comment runs to the end of the line, the newline itself is whitespace
			for l.position < l.length && l.input[l.position] != '\n' {
				l.advance(1)
			}
		} else {
			break
		}
	}
}

// Advance the lexer position by n characters
func (l *Lexer) advance(n int) {
	for i := 0; i < n; i++ {
		if l.position >= l.length {
			break
		}

		if l.input[l.position] == '\n' {
			l.line++
			l.column = 1
		} else {
			l.column++
		}

		l.position++
	}
}

// Get the current position of the lexer
func (l *Lexer) currentPosition() Position {
	return Position{
		Line:   l.line,
		Column: l.column,
		Offset: l.position,
	}
}
