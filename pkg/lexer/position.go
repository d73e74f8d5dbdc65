package lexer

import "fmt"

// Position of a token in the source. Line and Column are 1-based, Offset is a byte offset.
type Position struct {
	Line   int
	Column int
	Offset int
}

// Returns a string representation of the Position
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}
