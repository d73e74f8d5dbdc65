package chunk

import "loxvm/pkg/value"

// Chunk is the compiled bytecode of one function: instructions, the source
// line of every instruction byte, and the constant pool.
type Chunk struct {
	Code      []byte
	Lines     []int
	Constants []value.Value
}

// New creates an empty chunk
func New() *Chunk {
	return &Chunk{}
}

// Write appends one byte of code tagged with its source line
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// WriteOp appends an opcode
func (c *Chunk) WriteOp(op OpCode, line int) {
	c.Write(byte(op), line)
}

// AddConstant appends v to the constant pool and returns its index
func (c *Chunk) AddConstant(v value.Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// Len returns the number of code bytes
func (c *Chunk) Len() int {
	return len(c.Code)
}

// LineAt returns the source line of the instruction byte at offset
func (c *Chunk) LineAt(offset int) int {
	if offset < 0 || offset >= len(c.Lines) {
		return 0
	}
	return c.Lines[offset]
}

// ReadShort decodes the big-endian 16-bit operand at offset
func (c *Chunk) ReadShort(offset int) int {
	return int(c.Code[offset])<<8 | int(c.Code[offset+1])
}
