// Package heap owns every object of one interpreter instance. Objects live in
// a slab addressed by value.Ref; the mark-sweep collector in gc.go reclaims
// slots that are no longer reachable from the registered roots.
package heap

import (
	"fmt"

	"loxvm/pkg/chunk"
	"loxvm/pkg/stack"
	"loxvm/pkg/table"
	"loxvm/pkg/value"

	"github.com/charmbracelet/log"
)

const (
	DefaultGrowFactor       = 2
	DefaultInitialThreshold = 1024 * 1024
)

// RootMarker is implemented by anything holding references the collector
// cannot discover by itself: the VM and an in-progress compilation.
type RootMarker interface {
	MarkRoots(h *Heap)
}

type slot struct {
	obj        Object
	generation uint32
	size       int
}

type Heap struct {
	slots []slot
	marks []uint64
	free  []uint32
	live  int

	bytesAllocated int
	nextGC         int
	growFactor     int
	minThreshold   int
	stress         bool

	gray    *stack.Stack[value.Ref]
	strings *table.Table // weak interning set
	roots   []RootMarker

	collections int
	freed       int

	logger *log.Logger
}

type Option func(*Heap)

// WithStressGC collects on every allocation
func WithStressGC(enabled bool) Option {
	return func(h *Heap) { h.stress = enabled }
}

// WithGrowFactor sets the multiple of live bytes at which the next collection runs
func WithGrowFactor(factor int) Option {
	return func(h *Heap) {
		if factor > 1 {
			h.growFactor = factor
		}
	}
}

// WithInitialThreshold sets the first collection threshold, which is also the floor for later ones
func WithInitialThreshold(bytes int) Option {
	return func(h *Heap) {
		if bytes > 0 {
			h.minThreshold = bytes
			h.nextGC = bytes
		}
	}
}

// WithLogger routes collection logs to logger
func WithLogger(logger *log.Logger) Option {
	return func(h *Heap) { h.logger = logger }
}

// New creates an empty heap
func New(opts ...Option) *Heap {
	h := &Heap{
		growFactor:   DefaultGrowFactor,
		minThreshold: DefaultInitialThreshold,
		nextGC:       DefaultInitialThreshold,
		gray:         stack.New[value.Ref](),
		strings:      table.New(),
	}

	for _, o := range opts {
		o(h)
	}

	if h.logger == nil {
		h.logger = log.Default()
	}

	return h
}

// AddRoots registers a root source
func (h *Heap) AddRoots(r RootMarker) {
	h.roots = append(h.roots, r)
}

// RemoveRoots unregisters a root source
func (h *Heap) RemoveRoots(r RootMarker) {
	for i := len(h.roots) - 1; i >= 0; i-- {
		if h.roots[i] == r {
			h.roots = append(h.roots[:i], h.roots[i+1:]...)
			return
		}
	}
}

// allocate accounts for obj, possibly collects, then stores obj in a slot.
// The collection runs before obj is stored, so everything obj references must
// already be reachable from a root.
func (h *Heap) allocate(obj Object) value.Ref {
	size := obj.size()
	h.bytesAllocated += size

	if h.stress || h.bytesAllocated > h.nextGC {
		h.Collect()
	}

	var index uint32
	if n := len(h.free); n > 0 {
		index = h.free[n-1]
		h.free = h.free[:n-1]
	} else {
		index = uint32(len(h.slots))
		h.slots = append(h.slots, slot{})
		if int(index)/64 >= len(h.marks) {
			h.marks = append(h.marks, 0)
		}
	}

	s := &h.slots[index]
	s.generation++
	if s.generation == 0 {
		s.generation = 1
	}
	s.obj = obj
	s.size = size
	h.live++

	return value.NewRef(index, s.generation)
}

// release empties a slot and returns its index to the free list
func (h *Heap) release(index uint32) {
	s := &h.slots[index]
	h.bytesAllocated -= s.size
	s.obj = nil
	s.size = 0
	h.free = append(h.free, index)
	h.live--
	h.freed++
}

// Resize charges the current footprint of a grown object, such as a function
// whose chunk was just filled. It never collects; the next allocation does.
func (h *Heap) Resize(ref value.Ref) {
	obj := h.Get(ref)
	s := &h.slots[ref.Index()]

	size := obj.size()
	h.bytesAllocated += size - s.size
	s.size = size
}

// Get resolves ref. A stale or null ref is a programming error and panics.
func (h *Heap) Get(ref value.Ref) Object {
	idx := ref.Index()
	if ref.IsNull() || int(idx) >= len(h.slots) {
		panic(fmt.Sprintf("heap: invalid reference %v", ref))
	}

	s := &h.slots[idx]
	if s.obj == nil || s.generation != ref.Generation() {
		panic(fmt.Sprintf("heap: stale reference %v", ref))
	}

	return s.obj
}

// Contains reports whether ref still points at a live object
func (h *Heap) Contains(ref value.Ref) bool {
	idx := ref.Index()
	if ref.IsNull() || int(idx) >= len(h.slots) {
		return false
	}
	s := &h.slots[idx]
	return s.obj != nil && s.generation == ref.Generation()
}

// TypeOf returns the object type of v and whether v is an object at all
func (h *Heap) TypeOf(v value.Value) (ObjType, bool) {
	if !v.IsObject() {
		return 0, false
	}
	return h.Get(v.AsRef()).Type(), true
}

// IsType reports whether v references an object of type t
func (h *Heap) IsType(v value.Value, t ObjType) bool {
	ot, ok := h.TypeOf(v)
	return ok && ot == t
}

func (h *Heap) AsString(ref value.Ref) *ObjString { return h.Get(ref).(*ObjString) }
func (h *Heap) AsFunction(ref value.Ref) *ObjFunction { return h.Get(ref).(*ObjFunction) }
func (h *Heap) AsClosure(ref value.Ref) *ObjClosure { return h.Get(ref).(*ObjClosure) }
func (h *Heap) AsUpvalue(ref value.Ref) *ObjUpvalue { return h.Get(ref).(*ObjUpvalue) }

// CopyString returns the interned string with content s, allocating it only
// when no live string has that content.
func (h *Heap) CopyString(s string) value.Ref {
	hash := hashString(s)
	if ref, ok := h.strings.FindString(s, hash); ok {
		return ref
	}

	ref := h.allocate(&ObjString{Chars: s, Hash: hash})
	h.strings.Set(ref, hash, s, value.Nil())

	return ref
}

// FindString returns the interned string with content s, if there is one
func (h *Heap) FindString(s string) (value.Ref, bool) {
	return h.strings.FindString(s, hashString(s))
}

// Concat interns the concatenation of two strings. Both operands must stay
// reachable until it returns.
func (h *Heap) Concat(a, b value.Ref) value.Ref {
	return h.CopyString(h.AsString(a).Chars + h.AsString(b).Chars)
}

// NewFunction allocates a blank function with an empty chunk
func (h *Heap) NewFunction() value.Ref {
	return h.allocate(&ObjFunction{Chunk: chunk.New()})
}

// NewClosure allocates a closure over fn with every upvalue still null
func (h *Heap) NewClosure(fn value.Ref) value.Ref {
	count := h.AsFunction(fn).UpvalueCount
	return h.allocate(&ObjClosure{
		Function: fn,
		Upvalues: make([]value.Ref, count),
	})
}

// NewUpvalue allocates an open upvalue aliasing the given stack slot
func (h *Heap) NewUpvalue(slot int) value.Ref {
	return h.allocate(&ObjUpvalue{open: true, slot: slot})
}

// NewNative allocates a host function wrapper
func (h *Heap) NewNative(name string, fn NativeFn) value.Ref {
	return h.allocate(&ObjNative{Name: name, Fn: fn})
}

// Stats is a snapshot of allocator bookkeeping
type Stats struct {
	Objects        int
	Strings        int
	BytesAllocated int
	NextGC         int
	Collections    int
	Freed          int
}

// Stats returns the current allocator bookkeeping
func (h *Heap) Stats() Stats {
	strings := 0
	h.strings.Each(func(value.Ref, value.Value) { strings++ })

	return Stats{
		Objects:        h.live,
		Strings:        strings,
		BytesAllocated: h.bytesAllocated,
		NextGC:         h.nextGC,
		Collections:    h.collections,
		Freed:          h.freed,
	}
}

// FreeAll drops every object, as at interpreter teardown
func (h *Heap) FreeAll() {
	for i := range h.slots {
		if h.slots[i].obj != nil {
			h.release(uint32(i))
		}
	}
	h.strings = table.New()
	h.gray.Reset()
	clear(h.marks)
}
