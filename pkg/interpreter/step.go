package interpreter

import (
	"fmt"
	"strings"

	"loxvm/pkg/chunk"
	"loxvm/pkg/heap"
	"loxvm/pkg/value"
)

// step decodes and executes one instruction of the innermost frame.
// It returns (halted, error); halted is set once the script itself returns.
func (i *Interpreter) step() (bool, error) {
	frame := i.frame()

	// no instruction grows the stack by more than one slot
	if i.stackTop == len(i.stack) {
		return false, i.runtimeError("Stack overflow.")
	}

	if i.trace != nil {
		i.traceInstruction(frame)
	}

	op := chunk.OpCode(frame.readByte())

	switch op {
	case chunk.OP_CONSTANT:
		i.push(frame.readConstant())

	case chunk.OP_NIL:
		i.push(value.Nil())

	case chunk.OP_TRUE:
		i.push(value.Bool(true))

	case chunk.OP_FALSE:
		i.push(value.Bool(false))

	case chunk.OP_POP:
		i.pop()

	case chunk.OP_GET_LOCAL:
		slot := int(frame.readByte())
		i.push(i.stack[frame.base+slot])

	case chunk.OP_SET_LOCAL:
		slot := int(frame.readByte())
		i.stack[frame.base+slot] = i.peek(0)

	case chunk.OP_GET_GLOBAL:
		key := frame.readConstant().AsRef()
		name := i.heap.AsString(key)
		v, ok := i.globals.Get(key, name.Hash)
		if !ok {
			return false, i.runtimeError("Undefined variable '%s'.", name.Chars)
		}
		i.push(v)

	case chunk.OP_DEFINE_GLOBAL:
		key := frame.readConstant().AsRef()
		name := i.heap.AsString(key)
		i.globals.Set(key, name.Hash, name.Chars, i.peek(0))
		i.pop()

	case chunk.OP_SET_GLOBAL:
		key := frame.readConstant().AsRef()
		name := i.heap.AsString(key)
		if i.globals.Set(key, name.Hash, name.Chars, i.peek(0)) {
			// assignment never creates a global, undo the tentative binding
			i.globals.Delete(key, name.Hash)
			return false, i.runtimeError("Undefined variable '%s'.", name.Chars)
		}

	case chunk.OP_GET_UPVALUE:
		slot := frame.readByte()
		i.push(i.heap.AsUpvalue(frame.upvalues[slot]).Get(i.stack))

	case chunk.OP_SET_UPVALUE:
		slot := frame.readByte()
		i.heap.AsUpvalue(frame.upvalues[slot]).Set(i.stack, i.peek(0))

	case chunk.OP_EQUAL:
		b := i.pop()
		a := i.pop()
		i.push(value.Bool(value.Equal(a, b)))

	case chunk.OP_GREATER, chunk.OP_LESS, chunk.OP_SUBTRACT, chunk.OP_MULTIPLY, chunk.OP_DIVIDE:
		if err := i.binaryOp(op); err != nil {
			return false, err
		}

	case chunk.OP_ADD:
		switch {
		case i.heap.IsType(i.peek(0), heap.TypeString) && i.heap.IsType(i.peek(1), heap.TypeString):
			i.concatenate()
		case i.peek(0).IsNumber() && i.peek(1).IsNumber():
			b := i.pop().AsNumber()
			a := i.pop().AsNumber()
			i.push(value.Number(a + b))
		default:
			return false, i.runtimeError("Operands must be two numbers or two strings.")
		}

	case chunk.OP_NOT:
		i.push(value.Bool(value.IsFalsey(i.pop())))

	case chunk.OP_NEGATE:
		if !i.peek(0).IsNumber() {
			return false, i.runtimeError("Operand must be a number.")
		}
		i.push(value.Number(-i.pop().AsNumber()))

	case chunk.OP_PRINT:
		fmt.Fprintln(i.out, i.heap.Format(i.pop()))

	case chunk.OP_JUMP:
		offset := frame.readShort()
		frame.ip += offset

	case chunk.OP_JUMP_IF_FALSE:
		offset := frame.readShort()
		if value.IsFalsey(i.peek(0)) {
			frame.ip += offset
		}

	case chunk.OP_LOOP:
		offset := frame.readShort()
		frame.ip -= offset

	case chunk.OP_CALL:
		argCount := int(frame.readByte())
		if err := i.callValue(i.peek(argCount), argCount); err != nil {
			return false, err
		}

	case chunk.OP_CLOSURE:
		fn := frame.readConstant().AsRef()
		ref := i.heap.NewClosure(fn)
		// rooted before the upvalues below allocate
		i.push(value.Object(ref))

		closure := i.heap.AsClosure(ref)
		for k := range closure.Upvalues {
			isLocal := frame.readByte()
			index := int(frame.readByte())
			if isLocal == 1 {
				closure.Upvalues[k] = i.captureUpvalue(frame.base + index)
			} else {
				closure.Upvalues[k] = frame.upvalues[index]
			}
		}

	case chunk.OP_CLOSE_UPVALUE:
		i.closeUpvalues(i.stackTop - 1)
		i.pop()

	case chunk.OP_RETURN:
		result := i.pop()
		i.closeUpvalues(frame.base)
		i.frameCount--

		if i.frameCount == 0 {
			// the script closure itself
			i.pop()
			return true, nil
		}

		i.stackTop = frame.base
		i.push(result)

	default:
		return false, i.runtimeError("Unknown opcode %d.", byte(op))
	}

	return false, nil
}

// binaryOp applies a numeric operator to the two topmost values. Division
// follows IEEE 754, so dividing by zero yields inf or nan rather than an error.
func (i *Interpreter) binaryOp(op chunk.OpCode) error {
	if !i.peek(0).IsNumber() || !i.peek(1).IsNumber() {
		return i.runtimeError("Operands must be numbers.")
	}

	b := i.pop().AsNumber()
	a := i.pop().AsNumber()

	switch op {
	case chunk.OP_GREATER:
		i.push(value.Bool(a > b))
	case chunk.OP_LESS:
		i.push(value.Bool(a < b))
	case chunk.OP_SUBTRACT:
		i.push(value.Number(a - b))
	case chunk.OP_MULTIPLY:
		i.push(value.Number(a * b))
	case chunk.OP_DIVIDE:
		i.push(value.Number(a / b))
	}

	return nil
}

// concatenate joins the two topmost strings. They stay on the stack while
// the result is allocated.
func (i *Interpreter) concatenate() {
	result := i.heap.Concat(i.peek(1).AsRef(), i.peek(0).AsRef())
	i.pop()
	i.pop()
	i.push(value.Object(result))
}

// traceInstruction prints the value stack followed by the next instruction
func (i *Interpreter) traceInstruction(frame *Frame) {
	var sb strings.Builder
	sb.WriteString("          ")
	for slot := 0; slot < i.stackTop; slot++ {
		fmt.Fprintf(&sb, "[ %s ]", i.heap.Format(i.stack[slot]))
	}
	fmt.Fprintln(i.trace, sb.String())

	chunk.DisassembleInstruction(i.trace, frame.chunk(), frame.ip, i.heap)
}
