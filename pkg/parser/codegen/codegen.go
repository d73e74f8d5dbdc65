package codegen

import (
	"loxvm/pkg/chunk"
	"loxvm/pkg/value"
)

const (
	MaxLocals    = 256 // slot 0 included
	MaxUpvalues  = 256
	MaxConstants = 256
	MaxArgs      = 255
	maxJump      = 0xffff
)

type FunctionKind int

const (
	KindScript FunctionKind = iota
	KindFunction
)

// Codegen holds the state of one function being compiled. The chain through
// Enclosing mirrors the lexical nesting of function declarations.
type Codegen struct {
	Enclosing *Codegen     // compiler of the surrounding function, nil for the script
	Function  value.Ref    // heap function receiving the code
	Kind      FunctionKind // script or function
	chunk     *chunk.Chunk // chunk owned by Function

	locals       [MaxLocals]Local
	localCount   int
	upvalues     [MaxUpvalues]Upvalue
	upvalueCount int
	scopeDepth   int
}

// NewCodegen creates the compiler state for fn, whose chunk is c
func NewCodegen(enclosing *Codegen, fn value.Ref, kind FunctionKind, c *chunk.Chunk) *Codegen {
	cg := &Codegen{
		Enclosing: enclosing,
		Function:  fn,
		Kind:      kind,
		chunk:     c,
	}

	// slot 0 holds the callee and has no name a program can spell
	cg.locals[0] = Local{Name: "", Depth: 0}
	cg.localCount = 1

	return cg
}

// Chunk returns the chunk code is emitted into
func (c *Codegen) Chunk() *chunk.Chunk {
	return c.chunk
}

// Len returns the offset of the next emitted byte
func (c *Codegen) Len() int {
	return c.chunk.Len()
}

// Emit appends raw bytes
func (c *Codegen) Emit(line int, bytes ...byte) {
	for _, b := range bytes {
		c.chunk.Write(b, line)
	}
}

// EmitOp appends an opcode followed by its one-byte operands
func (c *Codegen) EmitOp(line int, op chunk.OpCode, operands ...byte) {
	c.chunk.WriteOp(op, line)
	c.Emit(line, operands...)
}

// EmitReturn appends the implicit "return nil" that ends every function
func (c *Codegen) EmitReturn(line int) {
	c.EmitOp(line, chunk.OP_NIL)
	c.EmitOp(line, chunk.OP_RETURN)
}

// MakeConstant adds v to the constant pool. The pool is addressed by a
// single byte, so the 257th constant is an error.
func (c *Codegen) MakeConstant(v value.Value) (byte, error) {
	idx := c.chunk.AddConstant(v)
	if idx >= MaxConstants {
		return 0, ErrTooManyConstants
	}
	return byte(idx), nil
}

// EmitConstant loads v through OP_CONSTANT
func (c *Codegen) EmitConstant(line int, v value.Value) error {
	idx, err := c.MakeConstant(v)
	c.EmitOp(line, chunk.OP_CONSTANT, idx)
	return err
}

// EmitJump appends a forward jump with a placeholder offset and returns the
// offset of the placeholder for PatchJump.
func (c *Codegen) EmitJump(line int, op chunk.OpCode) int {
	c.EmitOp(line, op, 0xff, 0xff)
	return c.chunk.Len() - 2
}

// PatchJump points the placeholder at offset to the next emitted byte
func (c *Codegen) PatchJump(offset int) error {
	// -2 to skip over the operand itself
	jump := c.chunk.Len() - offset - 2
	if jump > maxJump {
		return ErrJumpTooLarge
	}

	c.chunk.Code[offset] = byte(jump >> 8)
	c.chunk.Code[offset+1] = byte(jump)
	return nil
}

// EmitLoop appends a backward jump to start
func (c *Codegen) EmitLoop(line int, start int) error {
	c.EmitOp(line, chunk.OP_LOOP)

	offset := c.chunk.Len() - start + 2
	if offset > maxJump {
		c.Emit(line, 0, 0)
		return ErrLoopTooLarge
	}

	c.Emit(line, byte(offset>>8), byte(offset))
	return nil
}

// EmitClosure appends OP_CLOSURE for the function constant fn followed by
// one (isLocal, index) pair per captured variable.
func (c *Codegen) EmitClosure(line int, fn value.Value, upvalues []Upvalue) error {
	idx, err := c.MakeConstant(fn)
	c.EmitOp(line, chunk.OP_CLOSURE, idx)

	for _, up := range upvalues {
		isLocal := byte(0)
		if up.IsLocal {
			isLocal = 1
		}
		c.Emit(line, isLocal, up.Index)
	}

	return err
}
