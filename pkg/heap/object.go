package heap

import (
	"fmt"

	"loxvm/pkg/chunk"
	"loxvm/pkg/value"
)

type ObjType int

const (
	TypeString ObjType = iota
	TypeFunction
	TypeClosure
	TypeUpvalue
	TypeNative
)

// String returns the name of the object type
func (t ObjType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeFunction:
		return "function"
	case TypeClosure:
		return "closure"
	case TypeUpvalue:
		return "upvalue"
	case TypeNative:
		return "native"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(t))
	}
}

// Object is anything stored in a heap slot.
type Object interface {
	Type() ObjType
	size() int
}

// ObjString is an immutable, interned string.
type ObjString struct {
	Chars string
	Hash  uint32
}

// ObjFunction is a compiled function. It is the only owner of its chunk.
type ObjFunction struct {
	Arity        int
	UpvalueCount int
	Name         value.Ref // null for the top-level script
	Chunk        *chunk.Chunk
}

// ObjClosure pairs a shared function with the upvalues it captured.
type ObjClosure struct {
	Function value.Ref
	Upvalues []value.Ref
}

// NativeFn is a host function. It runs on the caller's argument slice and must
// not keep it after returning.
type NativeFn func(args []value.Value) value.Value

// ObjNative wraps a host function.
type ObjNative struct {
	Name string
	Fn   NativeFn
}

// ObjUpvalue is either open, aliasing an absolute slot of the VM value stack,
// or closed, owning a copy of the value. Next links the VM's open list.
type ObjUpvalue struct {
	open   bool
	slot   int
	closed value.Value
	Next   value.Ref
}

func (*ObjString) Type() ObjType { return TypeString }
func (*ObjFunction) Type() ObjType { return TypeFunction }
func (*ObjClosure) Type() ObjType { return TypeClosure }
func (*ObjNative) Type() ObjType { return TypeNative }
func (*ObjUpvalue) Type() ObjType { return TypeUpvalue }

// approximate footprints, used only to pace collections
func (s *ObjString) size() int { return 32 + len(s.Chars) }
func (f *ObjFunction) size() int {
	return 64 + len(f.Chunk.Code) + 8*len(f.Chunk.Lines) + 32*len(f.Chunk.Constants)
}
func (c *ObjClosure) size() int { return 40 + 16*len(c.Upvalues) }
func (*ObjNative) size() int { return 40 }
func (*ObjUpvalue) size() int { return 56 }

// IsOpen reports whether the upvalue still aliases a stack slot.
func (u *ObjUpvalue) IsOpen() bool {
	return u.open
}

// Slot returns the aliased stack slot, or -1 once closed.
func (u *ObjUpvalue) Slot() int {
	if !u.open {
		return -1
	}
	return u.slot
}

// Get reads the captured variable.
func (u *ObjUpvalue) Get(stack []value.Value) value.Value {
	if u.open {
		return stack[u.slot]
	}
	return u.closed
}

// Set writes the captured variable.
func (u *ObjUpvalue) Set(stack []value.Value, v value.Value) {
	if u.open {
		stack[u.slot] = v
		return
	}
	u.closed = v
}

// Close moves the variable off the stack. It happens once per upvalue.
func (u *ObjUpvalue) Close(stack []value.Value) {
	if !u.open {
		return
	}
	u.closed = stack[u.slot]
	u.open = false
	u.slot = -1
}

// hashString is 32-bit FNV-1a.
func hashString(s string) uint32 {
	hash := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		hash ^= uint32(s[i])
		hash *= 16777619
	}
	return hash
}
