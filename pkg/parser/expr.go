package parser

import (
	"errors"
	"strconv"

	"loxvm/pkg/chunk"
	"loxvm/pkg/lexer"
	"loxvm/pkg/parser/codegen"
	"loxvm/pkg/value"
)

func (p *Parser) expression() {
	p.parsePrecedence(PrecAssignment)
}

func (p *Parser) number() {
	// literals beyond float64 range become +Inf, like strtod
	n, err := strconv.ParseFloat(p.previous.Lexeme, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		p.error("Invalid number.")
		return
	}
	p.emitConstant(value.Number(n))
}

func (p *Parser) stringLiteral() {
	p.emitConstant(value.Object(p.heap.CopyString(p.previous.Literal)))
}

func (p *Parser) literal() {
	switch p.previous.Type {
	case lexer.FALSE:
		p.emitOp(chunk.OP_FALSE)
	case lexer.NIL:
		p.emitOp(chunk.OP_NIL)
	case lexer.TRUE:
		p.emitOp(chunk.OP_TRUE)
	}
}

func (p *Parser) grouping() {
	p.expression()
	p.consume(lexer.RPAREN, "Expect ')' after expression.")
}

func (p *Parser) unary() {
	operator := p.previous.Type

	p.parsePrecedence(PrecUnary)

	switch operator {
	case lexer.NOT:
		p.emitOp(chunk.OP_NOT)
	case lexer.MINUS:
		p.emitOp(chunk.OP_NEGATE)
	}
}

// binary compiles the right operand one level tighter, which makes every
// binary operator left-associative.
func (p *Parser) binary() {
	operator := p.previous.Type
	rule := GetRule(operator)
	p.parsePrecedence(rule.Precedence + 1)

	switch operator {
	case lexer.NE:
		p.emitOp(chunk.OP_EQUAL)
		p.emitOp(chunk.OP_NOT)
	case lexer.EQ:
		p.emitOp(chunk.OP_EQUAL)
	case lexer.GT:
		p.emitOp(chunk.OP_GREATER)
	case lexer.GE:
		p.emitOp(chunk.OP_LESS)
		p.emitOp(chunk.OP_NOT)
	case lexer.LT:
		p.emitOp(chunk.OP_LESS)
	case lexer.LE:
		p.emitOp(chunk.OP_GREATER)
		p.emitOp(chunk.OP_NOT)
	case lexer.PLUS:
		p.emitOp(chunk.OP_ADD)
	case lexer.MINUS:
		p.emitOp(chunk.OP_SUBTRACT)
	case lexer.MULT:
		p.emitOp(chunk.OP_MULTIPLY)
	case lexer.DIV:
		p.emitOp(chunk.OP_DIVIDE)
	}
}

// and short-circuits: a falsey left operand stays on the stack as the result
func (p *Parser) and() {
	endJump := p.emitJump(chunk.OP_JUMP_IF_FALSE)

	p.emitOp(chunk.OP_POP)
	p.parsePrecedence(PrecAnd)

	p.patchJump(endJump)
}

// or short-circuits: a truthy left operand stays on the stack as the result
func (p *Parser) or() {
	elseJump := p.emitJump(chunk.OP_JUMP_IF_FALSE)
	endJump := p.emitJump(chunk.OP_JUMP)

	p.patchJump(elseJump)
	p.emitOp(chunk.OP_POP)

	p.parsePrecedence(PrecOr)
	p.patchJump(endJump)
}

func (p *Parser) call() {
	argCount := p.argumentList()
	p.emitOp(chunk.OP_CALL, argCount)
}

func (p *Parser) argumentList() byte {
	argCount := 0
	if !p.check(lexer.RPAREN) {
		for {
			p.expression()
			if argCount == codegen.MaxArgs {
				p.error("Can't have more than 255 arguments.")
			}
			argCount++

			if !p.match(lexer.COMMA) {
				break
			}
		}
	}

	p.consume(lexer.RPAREN, "Expect ')' after arguments.")
	return byte(argCount)
}

func (p *Parser) variable(canAssign bool) {
	p.namedVariable(p.previous, canAssign)
}

// namedVariable resolves name as a local, then as an upvalue, and falls back
// to a global looked up by name at runtime.
func (p *Parser) namedVariable(name lexer.Token, canAssign bool) {
	var getOp, setOp chunk.OpCode

	arg, err := p.cg.ResolveLocal(name.Lexeme)
	if err != nil {
		p.error(err.Error())
	}

	if arg != -1 {
		getOp, setOp = chunk.OP_GET_LOCAL, chunk.OP_SET_LOCAL
	} else if arg, err = p.cg.ResolveUpvalue(name.Lexeme); arg != -1 || err != nil {
		if err != nil {
			p.error(err.Error())
		}
		getOp, setOp = chunk.OP_GET_UPVALUE, chunk.OP_SET_UPVALUE
	} else {
		arg = int(p.identifierConstant(name))
		getOp, setOp = chunk.OP_GET_GLOBAL, chunk.OP_SET_GLOBAL
	}

	if canAssign && p.match(lexer.ASSIGN) {
		p.expression()
		p.emitOp(setOp, byte(arg))
	} else {
		p.emitOp(getOp, byte(arg))
	}
}
