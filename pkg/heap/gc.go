package heap

import (
	"loxvm/pkg/table"
	"loxvm/pkg/value"

	"github.com/dustin/go-humanize"
)

// MarkRef grays ref unless it is null or already marked
func (h *Heap) MarkRef(ref value.Ref) {
	if ref.IsNull() {
		return
	}

	idx := ref.Index()
	if h.isMarked(idx) {
		return
	}

	h.Get(ref) // stale roots are bugs, surface them here
	h.setMark(idx)
	h.gray.Push(ref)
}

// MarkValue grays v if it references an object
func (h *Heap) MarkValue(v value.Value) {
	if v.IsObject() {
		h.MarkRef(v.AsRef())
	}
}

// MarkTable grays every key and value of t
func (h *Heap) MarkTable(t *table.Table) {
	t.Each(func(key value.Ref, v value.Value) {
		h.MarkRef(key)
		h.MarkValue(v)
	})
}

// IsMarked reports whether ref survived the current trace
func (h *Heap) IsMarked(ref value.Ref) bool {
	return h.isMarked(ref.Index())
}

// Collect runs one full mark-sweep cycle
func (h *Heap) Collect() {
	before := h.bytesAllocated
	h.logger.Debug("gc begin", "allocated", humanize.Bytes(uint64(before)), "objects", h.live)

	for _, r := range h.roots {
		r.MarkRoots(h)
	}
	h.traceReferences()

	// the intern table is weak: drop strings nothing else reached
	interned := h.strings.RemoveWhite(h.IsMarked)

	freed := h.sweep()

	h.nextGC = h.bytesAllocated * h.growFactor
	if h.nextGC < h.minThreshold {
		h.nextGC = h.minThreshold
	}
	h.collections++

	h.logger.Debug("gc end",
		"collected", humanize.Bytes(uint64(before-h.bytesAllocated)),
		"from", humanize.Bytes(uint64(before)),
		"to", humanize.Bytes(uint64(h.bytesAllocated)),
		"next", humanize.Bytes(uint64(h.nextGC)),
		"freed", freed,
		"interned_dropped", interned,
	)
}

func (h *Heap) traceReferences() {
	for {
		ref, ok := h.gray.Pop()
		if !ok {
			return
		}
		h.blacken(ref)
	}
}

func (h *Heap) blacken(ref value.Ref) {
	switch o := h.Get(ref).(type) {
	case *ObjClosure:
		h.MarkRef(o.Function)
		for _, up := range o.Upvalues {
			h.MarkRef(up)
		}

	case *ObjFunction:
		h.MarkRef(o.Name)
		for _, c := range o.Chunk.Constants {
			h.MarkValue(c)
		}

	case *ObjUpvalue:
		// an open upvalue's slot is on the stack, which is a root already
		if !o.open {
			h.MarkValue(o.closed)
		}

	case *ObjString, *ObjNative:
	}
}

func (h *Heap) sweep() int {
	freed := 0
	for i := range h.slots {
		if h.slots[i].obj == nil {
			continue
		}

		idx := uint32(i)
		if h.isMarked(idx) {
			h.clearMark(idx)
			continue
		}

		h.release(idx)
		freed++
	}
	return freed
}

func (h *Heap) isMarked(idx uint32) bool {
	word := int(idx / 64)
	if word >= len(h.marks) {
		return false
	}
	return h.marks[word]&(1<<(idx%64)) != 0
}

func (h *Heap) setMark(idx uint32) {
	h.marks[idx/64] |= 1 << (idx % 64)
}

func (h *Heap) clearMark(idx uint32) {
	h.marks[idx/64] &^= 1 << (idx % 64)
}
