package parser

import "loxvm/pkg/lexer"

type Precedence int

const (
	PrecNone       Precedence = iota
	PrecAssignment            // =
	PrecOr                    // or
	PrecAnd                   // and
	PrecEquality              // == !=
	PrecComparison            // < > <= >=
	PrecTerm                  // + -
	PrecFactor                // * /
	PrecUnary                 // ! -
	PrecCall                  // ()
	PrecPrimary
)

// ruleKind names a parse action. The table stores kinds, apply dispatches them.
type ruleKind int

const (
	ruleNone ruleKind = iota
	ruleGrouping
	ruleCall
	ruleUnary
	ruleBinary
	ruleVariable
	ruleString
	ruleNumber
	ruleLiteral
	ruleAnd
	ruleOr
)

type ParseRule struct {
	Prefix     ruleKind
	Infix      ruleKind
	Precedence Precedence
}

// rules is indexed by token type. Missing entries are the zero rule: no
// prefix, no infix, PrecNone. That covers class, this and super, which are
// reserved but have no syntax yet.
var rules = [lexer.TokenTypeCount]ParseRule{
	lexer.LPAREN: {ruleGrouping, ruleCall, PrecCall},
	lexer.MINUS:  {ruleUnary, ruleBinary, PrecTerm},
	lexer.PLUS:   {ruleNone, ruleBinary, PrecTerm},
	lexer.DIV:    {ruleNone, ruleBinary, PrecFactor},
	lexer.MULT:   {ruleNone, ruleBinary, PrecFactor},
	lexer.NOT:    {ruleUnary, ruleNone, PrecNone},
	lexer.NE:     {ruleNone, ruleBinary, PrecEquality},
	lexer.EQ:     {ruleNone, ruleBinary, PrecEquality},
	lexer.GT:     {ruleNone, ruleBinary, PrecComparison},
	lexer.GE:     {ruleNone, ruleBinary, PrecComparison},
	lexer.LT:     {ruleNone, ruleBinary, PrecComparison},
	lexer.LE:     {ruleNone, ruleBinary, PrecComparison},
	lexer.ID:     {ruleVariable, ruleNone, PrecNone},
	lexer.STRING: {ruleString, ruleNone, PrecNone},
	lexer.NUM:    {ruleNumber, ruleNone, PrecNone},
	lexer.AND:    {ruleNone, ruleAnd, PrecAnd},
	lexer.OR:     {ruleNone, ruleOr, PrecOr},
	lexer.FALSE:  {ruleLiteral, ruleNone, PrecNone},
	lexer.NIL:    {ruleLiteral, ruleNone, PrecNone},
	lexer.TRUE:   {ruleLiteral, ruleNone, PrecNone},
}

// GetRule returns the parse rule of a token type
func GetRule(t lexer.TokenType) ParseRule {
	if t < 0 || int(t) >= len(rules) {
		return ParseRule{}
	}
	return rules[t]
}

// parsePrecedence parses any expression whose operators bind at least as
// tightly as prec.
func (p *Parser) parsePrecedence(prec Precedence) {
	p.advance()

	prefix := GetRule(p.previous.Type).Prefix
	if prefix == ruleNone {
		p.error("Expect expression.")
		return
	}

	canAssign := prec <= PrecAssignment
	p.apply(prefix, canAssign)

	for prec <= GetRule(p.current.Type).Precedence {
		p.advance()
		p.apply(GetRule(p.previous.Type).Infix, canAssign)
	}

	if canAssign && p.match(lexer.ASSIGN) {
		p.error("Invalid assignment target.")
	}
}

func (p *Parser) apply(kind ruleKind, canAssign bool) {
	switch kind {
	case ruleGrouping:
		p.grouping()
	case ruleCall:
		p.call()
	case ruleUnary:
		p.unary()
	case ruleBinary:
		p.binary()
	case ruleVariable:
		p.variable(canAssign)
	case ruleString:
		p.stringLiteral()
	case ruleNumber:
		p.number()
	case ruleLiteral:
		p.literal()
	case ruleAnd:
		p.and()
	case ruleOr:
		p.or()
	}
}
