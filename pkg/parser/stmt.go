package parser

import (
	"loxvm/pkg/chunk"
	"loxvm/pkg/lexer"
	"loxvm/pkg/parser/codegen"
	"loxvm/pkg/value"
)

func (p *Parser) declaration() {
	switch {
	case p.match(lexer.FUN):
		p.funDeclaration()
	case p.match(lexer.VAR):
		p.varDeclaration()
	default:
		p.statement()
	}

	if p.panicMode {
		p.synchronize()
	}
}

func (p *Parser) statement() {
	switch {
	case p.match(lexer.PRINT):
		p.printStatement()
	case p.match(lexer.FOR):
		p.forStatement()
	case p.match(lexer.IF):
		p.ifStatement()
	case p.match(lexer.RETURN):
		p.returnStatement()
	case p.match(lexer.WHILE):
		p.whileStatement()
	case p.match(lexer.LBRACE):
		p.cg.BeginScope()
		p.block()
		p.cg.EndScope(p.line())
	default:
		p.expressionStatement()
	}
}

func (p *Parser) block() {
	for !p.check(lexer.RBRACE) && !p.check(lexer.EOF) {
		p.declaration()
	}

	p.consume(lexer.RBRACE, "Expect '}' after block.")
}

func (p *Parser) funDeclaration() {
	global := p.parseVariable("Expect function name.")
	// a function may refer to itself, so it is initialized before its body
	p.cg.MarkInitialized()
	p.function(codegen.KindFunction)
	p.defineVariable(global)
}

// function compiles a parameter list and body into a new function and emits
// the closure that captures it in the enclosing function.
func (p *Parser) function(kind codegen.FunctionKind) {
	p.beginFunction(kind)
	p.cg.BeginScope()

	fn := p.heap.AsFunction(p.cg.Function)

	p.consume(lexer.LPAREN, "Expect '(' after function name.")
	if !p.check(lexer.RPAREN) {
		for {
			fn.Arity++
			if fn.Arity > codegen.MaxArgs {
				p.errorAtCurrent("Can't have more than 255 parameters.")
			}

			constant := p.parseVariable("Expect parameter name.")
			p.defineVariable(constant)

			if !p.match(lexer.COMMA) {
				break
			}
		}
	}
	p.consume(lexer.RPAREN, "Expect ')' after parameters.")
	p.consume(lexer.LBRACE, "Expect '{' before function body.")
	p.block()

	// no EndScope: the frame is discarded as a whole on return
	ref, upvalues := p.endFunction()
	if err := p.cg.EmitClosure(p.line(), value.Object(ref), upvalues); err != nil {
		p.error(err.Error())
	}
}

func (p *Parser) varDeclaration() {
	global := p.parseVariable("Expect variable name.")

	if p.match(lexer.ASSIGN) {
		p.expression()
	} else {
		p.emitOp(chunk.OP_NIL)
	}
	p.consume(lexer.SEMICOLON, "Expect ';' after variable declaration.")

	p.defineVariable(global)
}

// parseVariable consumes a variable name and declares it. For globals it
// returns the constant index of the name, for locals 0.
func (p *Parser) parseVariable(msg string) byte {
	p.consume(lexer.ID, msg)

	p.declareVariable()
	if p.cg.ScopeDepth() > 0 {
		return 0
	}

	return p.identifierConstant(p.previous)
}

func (p *Parser) declareVariable() {
	if p.cg.ScopeDepth() == 0 {
		return
	}

	name := p.previous.Lexeme
	if p.cg.DeclaredInScope(name) {
		p.error(codegen.ErrRedeclared.Error())
	}

	if err := p.cg.AddLocal(name); err != nil {
		p.error(err.Error())
	}
}

func (p *Parser) defineVariable(global byte) {
	if p.cg.ScopeDepth() > 0 {
		p.cg.MarkInitialized()
		return
	}

	p.emitOp(chunk.OP_DEFINE_GLOBAL, global)
}

func (p *Parser) printStatement() {
	p.expression()
	p.consume(lexer.SEMICOLON, "Expect ';' after value.")
	p.emitOp(chunk.OP_PRINT)
}

func (p *Parser) expressionStatement() {
	p.expression()
	p.consume(lexer.SEMICOLON, "Expect ';' after expression.")
	p.emitOp(chunk.OP_POP)
}

func (p *Parser) returnStatement() {
	if p.cg.Kind == codegen.KindScript {
		p.error("Can't return from top-level code.")
	}

	if p.match(lexer.SEMICOLON) {
		p.cg.EmitReturn(p.line())
		return
	}

	p.expression()
	p.consume(lexer.SEMICOLON, "Expect ';' after return value.")
	p.emitOp(chunk.OP_RETURN)
}

func (p *Parser) ifStatement() {
	p.consume(lexer.LPAREN, "Expect '(' after 'if'.")
	p.expression()
	p.consume(lexer.RPAREN, "Expect ')' after condition.")

	thenJump := p.emitJump(chunk.OP_JUMP_IF_FALSE)
	p.emitOp(chunk.OP_POP)
	p.statement()

	elseJump := p.emitJump(chunk.OP_JUMP)

	p.patchJump(thenJump)
	p.emitOp(chunk.OP_POP)

	if p.match(lexer.ELSE) {
		p.statement()
	}
	p.patchJump(elseJump)
}

func (p *Parser) whileStatement() {
	loopStart := p.cg.Len()

	p.consume(lexer.LPAREN, "Expect '(' after 'while'.")
	p.expression()
	p.consume(lexer.RPAREN, "Expect ')' after condition.")

	exitJump := p.emitJump(chunk.OP_JUMP_IF_FALSE)
	p.emitOp(chunk.OP_POP)
	p.statement()
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
	p.emitOp(chunk.OP_POP)
}

// forStatement desugars into a while loop. The increment clause is compiled
// before the body, so the body jumps over it and loops back into it.
func (p *Parser) forStatement() {
	p.cg.BeginScope()

	p.consume(lexer.LPAREN, "Expect '(' after 'for'.")
	switch {
	case p.match(lexer.SEMICOLON):
		// no initializer
	case p.match(lexer.VAR):
		p.varDeclaration()
	default:
		p.expressionStatement()
	}

	loopStart := p.cg.Len()

	exitJump := -1
	if !p.match(lexer.SEMICOLON) {
		p.expression()
		p.consume(lexer.SEMICOLON, "Expect ';' after loop condition.")

		exitJump = p.emitJump(chunk.OP_JUMP_IF_FALSE)
		p.emitOp(chunk.OP_POP)
	}

	if !p.match(lexer.RPAREN) {
		bodyJump := p.emitJump(chunk.OP_JUMP)
		incrementStart := p.cg.Len()

		p.expression()
		p.emitOp(chunk.OP_POP)
		p.consume(lexer.RPAREN, "Expect ')' after for clauses.")

		p.emitLoop(loopStart)
		loopStart = incrementStart
		p.patchJump(bodyJump)
	}

	p.statement()
	p.emitLoop(loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emitOp(chunk.OP_POP)
	}

	p.cg.EndScope(p.line())
}
