package value

import "fmt"

type Kind int

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindObject
)

// Ref is a handle to an object slot in a heap. The zero Ref is the null handle.
type Ref struct {
	index      uint32
	generation uint32
}

// NewRef builds a handle for the given slab slot and generation.
func NewRef(index, generation uint32) Ref {
	return Ref{index: index, generation: generation}
}

// Index returns the slab slot the handle points to.
func (r Ref) Index() uint32 {
	return r.index
}

// Generation returns the slot generation the handle was issued for.
func (r Ref) Generation() uint32 {
	return r.generation
}

// IsNull reports whether r is the null handle.
func (r Ref) IsNull() bool {
	return r.generation == 0
}

func (r Ref) String() string {
	if r.IsNull() {
		return "ref(null)"
	}
	return fmt.Sprintf("ref(%d#%d)", r.index, r.generation)
}

// Value represents a dynamically-typed value in the VM.
type Value struct {
	Kind Kind
	b    bool
	num  float64
	ref  Ref
}

// Nil returns the nil Value.
func Nil() Value {
	return Value{Kind: KindNil}
}

// Bool creates a new boolean Value.
func Bool(b bool) Value {
	return Value{Kind: KindBool, b: b}
}

// Number creates a new number Value.
func Number(n float64) Value {
	return Value{Kind: KindNumber, num: n}
}

// Object creates a Value referencing a heap object.
func Object(r Ref) Value {
	return Value{Kind: KindObject, ref: r}
}

func (v Value) IsNil() bool    { return v.Kind == KindNil }
func (v Value) IsBool() bool   { return v.Kind == KindBool }
func (v Value) IsNumber() bool { return v.Kind == KindNumber }
func (v Value) IsObject() bool { return v.Kind == KindObject }

// AsBool returns the boolean payload; false for any other kind.
func (v Value) AsBool() bool {
	return v.Kind == KindBool && v.b
}

// AsNumber returns the number payload; 0 for any other kind.
func (v Value) AsNumber() float64 {
	if v.Kind != KindNumber {
		return 0
	}
	return v.num
}

// AsRef returns the object handle; the null Ref for any other kind.
func (v Value) AsRef() Ref {
	if v.Kind != KindObject {
		return Ref{}
	}
	return v.ref
}

// IsFalsey reports whether v is nil or false. Everything else is truthy.
func IsFalsey(v Value) bool {
	return v.Kind == KindNil || (v.Kind == KindBool && !v.b)
}

// Equal compares kinds first, then payloads. Objects compare by identity,
// which is content equality for strings because they are interned.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}

	switch a.Kind {
	case KindNil:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return a.num == b.num
	case KindObject:
		return a.ref == b.ref
	default:
		return false
	}
}

// String renders the kind name.
func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(k))
	}
}
