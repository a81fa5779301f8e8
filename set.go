// SPDX-License-Identifier: Apache-2.0

// Package indexedset provides an ordered set whose elements are reachable
// two ways: by value, with balanced-tree lookup, and by a stable small
// integer slot that stays valid until the element is erased.
//
// All elements live inside one contiguous, relocatable arena. Tree links are
// signed byte distances between nodes rather than pointers, so growing the
// arena moves everything with a single copy and no fix-up. Erased records
// are recycled through a free chain, which is what keeps slot numbers small
// and reusable.
//
// A set must not be mutated concurrently; see the method docs for which
// calls invalidate iterators and element pointers.
package indexedset

import (
	"cmp"
	"fmt"
	"reflect"
)

// Slot is the stable external handle of a live element: its arena offset
// divided by the node size. Slot 0 is reserved for the free-chain sentinel
// and doubles as "not found". Slot numbers have no relation to the set's
// size; an erased slot may be handed out again by a later insert.
type Slot uint32

// Set is an ordered set addressable by value and by slot.
type Set[T any] struct {
	tree tree[T]
}

// New creates a set ordered by less, which must implement a strict weak
// ordering over T.
//
// T must be a fixed-size, pointer-free type: elements live inside a byte
// arena the garbage collector does not scan, and they move bytewise when the
// arena grows. New panics on a payload type that contains pointers.
func New[T any](less func(a, b T) bool, opts ...Option) *Set[T] {
	if typ := reflect.TypeOf((*T)(nil)).Elem(); hasPointers(typ) {
		panic(fmt.Sprintf("indexedset: payload type %s contains pointers", typ))
	}

	var cfg options
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Set[T]{tree: tree[T]{less: less}}
	s.tree.arena.max = cfg.maxBytes
	if cfg.capacity > 0 {
		// a failed pre-size is not fatal here; it resurfaces from the
		// insert that actually needs the room
		_ = s.Reserve(cfg.capacity)
	}
	return s
}

// NewOrdered creates a set of a naturally ordered type.
func NewOrdered[T cmp.Ordered](opts ...Option) *Set[T] {
	return New(cmp.Less[T], opts...)
}

func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return hasPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		// pointers, slices, strings, maps, chans, funcs, interfaces
		return true
	}
}

func (s *Set[T]) slotOf(o int32) Slot {
	if o == 0 {
		return 0
	}
	return Slot(int(o) / nodeSize[T]())
}

// offsetOfSlot turns an externally supplied slot back into an offset,
// rejecting the sentinel and anything past the used region.
func (s *Set[T]) offsetOfSlot(p Slot) (int32, bool) {
	if p == 0 {
		return 0, false
	}
	o := int64(p) * int64(nodeSize[T]())
	if o >= int64(s.tree.arena.Len()) {
		return 0, false
	}
	return int32(o), true
}

// Insert adds v to the set. It returns the element's slot (>= 1, stable
// until that element is erased) and whether this call introduced the value;
// inserting an equivalent value again returns the existing slot and false,
// with no allocation. The only error is arena exhaustion, in which case the
// set is unchanged.
func (s *Set[T]) Insert(v T) (Slot, bool, error) {
	o, added, err := s.tree.insert(v)
	if err != nil {
		return 0, false, err
	}
	return s.slotOf(o), added, nil
}

// Erase removes the element equal to v. It reports whether an element was
// removed; erasing an absent value is a no-op. The freed slot goes to the
// head of the free chain and will be the next one reused.
func (s *Set[T]) Erase(v T) bool {
	return s.tree.erase(v)
}

// EraseAt removes the element held in slot p. Out-of-range and free slots
// are no-ops.
func (s *Set[T]) EraseAt(p Slot) bool {
	o, ok := s.offsetOfSlot(p)
	if !ok {
		return false
	}
	return s.tree.eraseAt(o)
}

// Find returns an iterator positioned at the element equal to v, or an
// exhausted iterator when v is absent.
func (s *Set[T]) Find(v T) Iterator[T] {
	return Iterator[T]{n: s.tree.find(v)}
}

// FindSlot returns the slot of the element equal to v, or 0 when absent.
func (s *Set[T]) FindSlot(v T) Slot {
	n := s.tree.find(v)
	if n == nil {
		return 0
	}
	return s.slotOf(s.tree.offsetOf(n))
}

// At returns the element held in slot p, or nil when the slot is free or
// out of range. The pointer is valid until the next mutating call. The
// caller must not change the element in a way that reorders it relative to
// the rest of the set.
func (s *Set[T]) At(p Slot) *T {
	o, ok := s.offsetOfSlot(p)
	if !ok {
		return nil
	}
	n := s.tree.nodeAt(o)
	if n.isFree() {
		return nil
	}
	return &n.payload
}

// Len returns the number of elements.
func (s *Set[T]) Len() int { return s.tree.count }

// Empty reports whether the set has no elements.
func (s *Set[T]) Empty() bool { return s.tree.count == 0 }

// Clear removes all elements and releases the arena.
func (s *Set[T]) Clear() { s.tree.clear() }

// Reset removes all elements but keeps the arena's capacity, so a refill of
// similar size runs without reallocations.
func (s *Set[T]) Reset() { s.tree.reset() }

// Reserve grows the arena to hold at least n elements (plus the sentinel)
// without further reallocation.
func (s *Set[T]) Reserve(n int) error {
	return s.tree.arena.Reserve((n + 1) * nodeSize[T]())
}
