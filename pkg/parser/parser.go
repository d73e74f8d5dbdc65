package parser

import (
	"io"

	"loxvm/pkg/chunk"
	"loxvm/pkg/heap"
	"loxvm/pkg/lexer"
	"loxvm/pkg/parser/codegen"
	"loxvm/pkg/value"

	"github.com/charmbracelet/log"
)

// Parser compiles source text straight to bytecode, one token of lookahead,
// no syntax tree.
type Parser struct {
	lexer    *lexer.Lexer     // lexer instance
	heap     *heap.Heap       // where functions and string constants are allocated
	cg       *codegen.Codegen // innermost function being compiled
	current  lexer.Token      // lookahead token
	previous lexer.Token      // most recently consumed token

	hadError  bool         // any diagnostic recorded
	panicMode bool         // suppress diagnostics until the next statement boundary
	errors    []Diagnostic // recorded diagnostics

	trace     io.Writer // receives a listing of every compiled function
	logger    *log.Logger
	functions int
}

type Option func(*Parser)

// WithTrace disassembles every function once it is compiled
func WithTrace(w io.Writer) Option {
	return func(p *Parser) { p.trace = w }
}

// WithLogger sets the logger for compile summaries
func WithLogger(logger *log.Logger) Option {
	return func(p *Parser) { p.logger = logger }
}

// Compile turns source into the top-level script function. On failure it
// returns a *CompileError holding every diagnostic and no function: partially
// compiled code is never handed out.
func Compile(h *heap.Heap, source string, opts ...Option) (value.Ref, error) {
	p := &Parser{
		lexer: lexer.NewLexer(source),
		heap:  h,
	}

	for _, o := range opts {
		o(p)
	}

	if p.logger == nil {
		p.logger = log.Default()
	}

	// allocations below may collect, functions under construction must survive
	h.AddRoots(p)
	defer h.RemoveRoots(p)

	p.beginFunction(codegen.KindScript)
	p.advance()

	for !p.match(lexer.EOF) {
		p.declaration()
	}

	fn, _ := p.endFunction()

	if p.hadError {
		p.logger.Debug("compile failed", "diagnostics", len(p.errors))
		return value.Ref{}, &CompileError{Diagnostics: p.errors}
	}

	p.logger.Debug("compile finished", "functions", p.functions)
	return fn, nil
}

// MarkRoots keeps every function on the compiler chain alive. Constants are
// reached through the functions' chunks.
func (p *Parser) MarkRoots(h *heap.Heap) {
	for cg := p.cg; cg != nil; cg = cg.Enclosing {
		h.MarkRef(cg.Function)
	}
}

// beginFunction allocates a function and makes it the compilation target
func (p *Parser) beginFunction(kind codegen.FunctionKind) {
	ref := p.heap.NewFunction()
	p.cg = codegen.NewCodegen(p.cg, ref, kind, p.heap.AsFunction(ref).Chunk)

	if kind != codegen.KindScript {
		name := p.heap.CopyString(p.previous.Lexeme)
		p.heap.AsFunction(ref).Name = name
	}
}

// endFunction finishes the innermost function and returns it together with
// the variables its closures must capture.
func (p *Parser) endFunction() (value.Ref, []codegen.Upvalue) {
	p.cg.EmitReturn(p.previous.Pos.Line)

	cg := p.cg
	fn := p.heap.AsFunction(cg.Function)
	upvalues := cg.Upvalues()
	fn.UpvalueCount = len(upvalues)
	p.heap.Resize(cg.Function)
	p.functions++

	if p.trace != nil && !p.hadError {
		name := "<script>"
		if !fn.Name.IsNull() {
			name = p.heap.AsString(fn.Name).Chars
		}
		chunk.Disassemble(p.trace, fn.Chunk, name, p.heap)
	}

	p.cg = cg.Enclosing
	return cg.Function, upvalues
}

// advance moves to the next token, reporting and skipping scanner errors
func (p *Parser) advance() {
	p.previous = p.current

	for {
		p.current = p.lexer.NextToken()
		if p.current.Type != lexer.ILLEGAL {
			break
		}

		p.errorAtCurrent(p.current.Lexeme)
	}
}

// consume advances past a token of type t or reports msg
func (p *Parser) consume(t lexer.TokenType, msg string) {
	if p.current.Type == t {
		p.advance()
		return
	}

	p.errorAtCurrent(msg)
}

func (p *Parser) check(t lexer.TokenType) bool {
	return p.current.Type == t
}

func (p *Parser) match(t lexer.TokenType) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

// line is the source line code is currently emitted for
func (p *Parser) line() int {
	return p.previous.Pos.Line
}

func (p *Parser) emitOp(op chunk.OpCode, operands ...byte) {
	p.cg.EmitOp(p.line(), op, operands...)
}

func (p *Parser) emitConstant(v value.Value) {
	if err := p.cg.EmitConstant(p.line(), v); err != nil {
		p.error(err.Error())
	}
}

func (p *Parser) emitJump(op chunk.OpCode) int {
	return p.cg.EmitJump(p.line(), op)
}

func (p *Parser) patchJump(offset int) {
	if err := p.cg.PatchJump(offset); err != nil {
		p.error(err.Error())
	}
}

func (p *Parser) emitLoop(start int) {
	if err := p.cg.EmitLoop(p.line(), start); err != nil {
		p.error(err.Error())
	}
}

func (p *Parser) makeConstant(v value.Value) byte {
	idx, err := p.cg.MakeConstant(v)
	if err != nil {
		p.error(err.Error())
	}
	return idx
}

// identifierConstant interns the name of tok and stores it as a constant
func (p *Parser) identifierConstant(tok lexer.Token) byte {
	return p.makeConstant(value.Object(p.heap.CopyString(tok.Lexeme)))
}
