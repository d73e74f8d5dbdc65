// Package table implements an open-addressing hash table keyed by interned
// string handles. The VM uses one instance for global variables and the heap
// uses another as the weak interning set.
package table

import "loxvm/pkg/value"

const (
	minCapacity = 8
	maxLoad     = 0.75
)

// Entry is one slot. An empty slot has a null key and a nil value; a
// tombstone has a null key and the value true.
type Entry struct {
	Key   value.Ref
	Hash  uint32
	Chars string
	Value value.Value
}

func (e *Entry) isTombstone() bool {
	return e.Key.IsNull() && !e.Value.IsNil()
}

type Table struct {
	count   int // live entries plus tombstones
	entries []Entry
}

// New creates an empty table. No storage is allocated until the first Set.
func New() *Table {
	return &Table{}
}

// Len returns the number of occupied slots, tombstones included.
func (t *Table) Len() int {
	return t.count
}

// Capacity returns the number of slots; always zero or a power of two.
func (t *Table) Capacity() int {
	return len(t.entries)
}

// Get looks up key and returns its value.
func (t *Table) Get(key value.Ref, hash uint32) (value.Value, bool) {
	if t.count == 0 {
		return value.Nil(), false
	}

	e := findEntry(t.entries, key, hash)
	if e.Key.IsNull() {
		return value.Nil(), false
	}

	return e.Value, true
}

// Set binds key to v and reports whether the key was not present before.
func (t *Table) Set(key value.Ref, hash uint32, chars string, v value.Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*maxLoad {
		capacity := len(t.entries) * 2
		if capacity < minCapacity {
			capacity = minCapacity
		}
		t.adjustCapacity(capacity)
	}

	e := findEntry(t.entries, key, hash)
	isNew := e.Key.IsNull()
	if isNew && e.Value.IsNil() {
		t.count++
	}

	e.Key = key
	e.Hash = hash
	e.Chars = chars
	e.Value = v

	return isNew
}

// Delete removes key, leaving a tombstone so later probes still find
// entries inserted after it.
func (t *Table) Delete(key value.Ref, hash uint32) bool {
	if t.count == 0 {
		return false
	}

	e := findEntry(t.entries, key, hash)
	if e.Key.IsNull() {
		return false
	}

	e.Key = value.Ref{}
	e.Chars = ""
	e.Value = value.Bool(true)

	return true
}

// AddAll copies every live entry of from into t.
func (t *Table) AddAll(from *Table) {
	for i := range from.entries {
		e := &from.entries[i]
		if !e.Key.IsNull() {
			t.Set(e.Key, e.Hash, e.Chars, e.Value)
		}
	}
}

// FindString looks a key up by content rather than identity. It is how the
// heap decides whether a string is already interned.
func (t *Table) FindString(chars string, hash uint32) (value.Ref, bool) {
	if t.count == 0 {
		return value.Ref{}, false
	}

	mask := uint32(len(t.entries) - 1)
	index := hash & mask
	for {
		e := &t.entries[index]
		if e.Key.IsNull() {
			if !e.isTombstone() {
				return value.Ref{}, false
			}
		} else if e.Hash == hash && e.Chars == chars {
			return e.Key, true
		}

		index = (index + 1) & mask
	}
}

// RemoveWhite deletes every entry whose key was not marked during the last
// trace.
func (t *Table) RemoveWhite(isMarked func(value.Ref) bool) int {
	removed := 0
	for i := range t.entries {
		e := &t.entries[i]
		if !e.Key.IsNull() && !isMarked(e.Key) {
			t.Delete(e.Key, e.Hash)
			removed++
		}
	}
	return removed
}

// Each calls fn for every live entry.
func (t *Table) Each(fn func(key value.Ref, v value.Value)) {
	for i := range t.entries {
		e := &t.entries[i]
		if !e.Key.IsNull() {
			fn(e.Key, e.Value)
		}
	}
}

func (t *Table) adjustCapacity(capacity int) {
	entries := make([]Entry, capacity)

	// tombstones are dropped, so the count is rebuilt from live entries
	t.count = 0
	for i := range t.entries {
		e := &t.entries[i]
		if e.Key.IsNull() {
			continue
		}

		dest := findEntry(entries, e.Key, e.Hash)
		*dest = *e
		t.count++
	}

	t.entries = entries
}

func findEntry(entries []Entry, key value.Ref, hash uint32) *Entry {
	mask := uint32(len(entries) - 1)
	index := hash & mask

	var tombstone *Entry
	for {
		e := &entries[index]
		if e.Key.IsNull() {
			if !e.isTombstone() {
				if tombstone != nil {
					return tombstone
				}
				return e
			}
			if tombstone == nil {
				tombstone = e
			}
		} else if e.Key == key {
			return e
		}

		index = (index + 1) & mask
	}
}
