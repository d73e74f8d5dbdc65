package chunk

import (
	"fmt"
	"io"

	"loxvm/pkg/value"
)

// Inspector renders constants and reports how many capture pairs follow an
// OP_CLOSURE whose function is the given constant.
type Inspector interface {
	Format(v value.Value) string
	UpvalueCount(v value.Value) int
}

// Disassemble writes a listing of every instruction in c
func Disassemble(w io.Writer, c *Chunk, name string, in Inspector) {
	fmt.Fprintf(w, "== %s ==\n", name)

	for offset := 0; offset < len(c.Code); {
		offset = DisassembleInstruction(w, c, offset, in)
	}
}

// DisassembleInstruction writes one instruction and returns the offset of the next
func DisassembleInstruction(w io.Writer, c *Chunk, offset int, in Inspector) int {
	fmt.Fprintf(w, "%04d ", offset)
	if offset > 0 && c.Lines[offset] == c.Lines[offset-1] {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", c.Lines[offset])
	}

	op := OpCode(c.Code[offset])
	switch op {
	case OP_CONSTANT, OP_GET_GLOBAL, OP_DEFINE_GLOBAL, OP_SET_GLOBAL:
		return constantInstruction(w, op, c, offset, in)

	case OP_GET_LOCAL, OP_SET_LOCAL, OP_GET_UPVALUE, OP_SET_UPVALUE, OP_CALL:
		return byteInstruction(w, op, c, offset)

	case OP_JUMP, OP_JUMP_IF_FALSE:
		return jumpInstruction(w, op, 1, c, offset)

	case OP_LOOP:
		return jumpInstruction(w, op, -1, c, offset)

	case OP_CLOSURE:
		offset++
		idx := c.Code[offset]
		offset++
		fn := c.Constants[idx]
		fmt.Fprintf(w, "%-16s %4d %s\n", op, idx, in.Format(fn))

		for j := 0; j < in.UpvalueCount(fn); j++ {
			isLocal := c.Code[offset]
			index := c.Code[offset+1]
			kind := "upvalue"
			if isLocal == 1 {
				kind = "local"
			}
			fmt.Fprintf(w, "%04d    |                     %s %d\n", offset, kind, index)
			offset += 2
		}
		return offset

	default:
		if int(op) >= len(opNames) {
			fmt.Fprintf(w, "Unknown opcode %d\n", byte(op))
			return offset + 1
		}
		fmt.Fprintf(w, "%s\n", op)
		return offset + 1
	}
}

func constantInstruction(w io.Writer, op OpCode, c *Chunk, offset int, in Inspector) int {
	idx := c.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d '%s'\n", op, idx, in.Format(c.Constants[idx]))
	return offset + 2
}

func byteInstruction(w io.Writer, op OpCode, c *Chunk, offset int) int {
	fmt.Fprintf(w, "%-16s %4d\n", op, c.Code[offset+1])
	return offset + 2
}

func jumpInstruction(w io.Writer, op OpCode, sign int, c *Chunk, offset int) int {
	jump := c.ReadShort(offset + 1)
	fmt.Fprintf(w, "%-16s %4d -> %d\n", op, offset, offset+3+sign*jump)
	return offset + 3
}
