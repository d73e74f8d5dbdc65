package interpreter

import (
	"loxvm/pkg/chunk"
	"loxvm/pkg/heap"
	"loxvm/pkg/value"
)

// Frame represents a function call frame.
type Frame struct {
	closure  value.Ref         // closure being executed
	upvalues []value.Ref       // captures of closure
	function *heap.ObjFunction // function of closure
	ip       int               // offset of the next instruction in the function's chunk
	base     int               // stack slot of the callee, locals follow it
}

func (i *Interpreter) frame() *Frame {
	return &i.frames[i.frameCount-1]
}

func (f *Frame) readByte() byte {
	b := f.function.Chunk.Code[f.ip]
	f.ip++
	return b
}

func (f *Frame) readShort() int {
	v := f.function.Chunk.ReadShort(f.ip)
	f.ip += 2
	return v
}

func (f *Frame) readConstant() value.Value {
	return f.function.Chunk.Constants[f.readByte()]
}

// line is the source line of the instruction being executed
func (f *Frame) line() int {
	return f.function.Chunk.LineAt(f.ip - 1)
}

func (f *Frame) chunk() *chunk.Chunk {
	return f.function.Chunk
}

// callValue dispatches a call on the kind of callee
func (i *Interpreter) callValue(callee value.Value, argCount int) error {
	if callee.IsObject() {
		switch o := i.heap.Get(callee.AsRef()).(type) {
		case *heap.ObjClosure:
			return i.call(callee.AsRef(), o, argCount)

		case *heap.ObjNative:
			// natives run on the argument slots and never reenter the dispatch loop
			args := i.stack[i.stackTop-argCount : i.stackTop]
			result := o.Fn(args)
			i.stackTop -= argCount + 1
			i.push(result)
			return nil
		}
	}

	return i.runtimeError("Can only call functions.")
}

// call pushes a frame whose slot 0 is the callee, followed by the arguments
func (i *Interpreter) call(ref value.Ref, closure *heap.ObjClosure, argCount int) error {
	fn := i.heap.AsFunction(closure.Function)
	if argCount != fn.Arity {
		return i.runtimeError("Expected %d arguments but got %d.", fn.Arity, argCount)
	}

	if i.frameCount == FramesMax {
		return i.runtimeError("Stack overflow.")
	}

	frame := &i.frames[i.frameCount]
	i.frameCount++

	frame.closure = ref
	frame.upvalues = closure.Upvalues
	frame.function = fn
	frame.ip = 0
	frame.base = i.stackTop - argCount - 1

	return nil
}

// captureUpvalue returns the open upvalue for slot, creating it if no closure
// captured that slot yet. The list stays sorted by descending slot.
func (i *Interpreter) captureUpvalue(slot int) value.Ref {
	var prev value.Ref
	up := i.openUpvalues

	for !up.IsNull() && i.heap.AsUpvalue(up).Slot() > slot {
		prev = up
		up = i.heap.AsUpvalue(up).Next
	}

	if !up.IsNull() && i.heap.AsUpvalue(up).Slot() == slot {
		return up
	}

	created := i.heap.NewUpvalue(slot)
	i.heap.AsUpvalue(created).Next = up

	if prev.IsNull() {
		i.openUpvalues = created
	} else {
		i.heap.AsUpvalue(prev).Next = created
	}

	return created
}

// closeUpvalues closes every open upvalue at or above slot last
func (i *Interpreter) closeUpvalues(last int) {
	for !i.openUpvalues.IsNull() {
		up := i.heap.AsUpvalue(i.openUpvalues)
		if up.Slot() < last {
			return
		}

		up.Close(i.stack)
		i.openUpvalues = up.Next
		up.Next = value.Ref{}
	}
}
