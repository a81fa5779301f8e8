// SPDX-License-Identifier: Apache-2.0

package indexedset

import "unsafe"

// tree is the arena-resident AVL tree. The record at offset 0 is the
// sentinel: never part of the tree, its right link anchors the chain of
// freed nodes. Live nodes start at offset nodeSize.
type tree[T any] struct {
	arena Arena
	less  func(a, b T) bool
	root  int32
	count int
}

// nodeAt resolves an arena offset to a node. The pointer is only good until
// the next growing append.
func (t *tree[T]) nodeAt(o int32) *node[T] {
	return (*node[T])(unsafe.Add(unsafe.Pointer(t.arena.Head()), int(o)))
}

func (t *tree[T]) safeNodeAt(o int32) *node[T] {
	if o == 0 {
		return nil
	}
	return t.nodeAt(o)
}

func (t *tree[T]) offsetOf(n *node[T]) int32 {
	return int32(uintptr(unsafe.Pointer(n)) - uintptr(unsafe.Pointer(t.arena.Head())))
}

func (t *tree[T]) sentinel() *node[T] { return t.nodeAt(0) }

// insert returns the offset of the node holding v and whether this call
// introduced it. Allocation happens before any link mutation, so a failed
// grow leaves the tree exactly as it was.
func (t *tree[T]) insert(v T) (int32, bool, error) {
	if t.arena.Len() == 0 {
		// the sentinel is appended once, on the first insertion ever
		if _, err := t.arena.AppendZero(nodeSize[T]()); err != nil {
			return 0, false, err
		}
	}

	if t.root == 0 {
		n, err := t.newNode(v)
		if err != nil {
			return 0, false, err
		}
		t.root = t.offsetOf(n)
		t.count++
		return t.root, true, nil
	}

	p, dir := t.nodeAt(t.root).insertionPoint(t.less, v)
	if dir == tiltNone {
		return t.offsetOf(p), false, nil
	}

	// newNode can move the arena; only the parent's offset survives that
	parent := t.offsetOf(p)
	n, err := t.newNode(v)
	if err != nil {
		return 0, false, err
	}
	t.nodeAt(parent).addChild(n, dir)

	// a rotation at the root displaces it by at most one link
	t.root += t.nodeAt(t.root).parent
	t.count++
	return t.offsetOf(n), true, nil
}

// newNode dequeues a record from the free chain when one is there, otherwise
// appends a fresh one to the arena.
func (t *tree[T]) newNode(v T) (*node[T], error) {
	s := t.sentinel()
	if s.right != 0 {
		n := s.ref(s.right)
		if n.right != 0 {
			s.right += n.right
		} else {
			s.right = 0
		}
		n.right = 0
		n.tilt = tiltNone
		n.payload = v
		return n, nil
	}

	o, err := t.arena.AppendZero(nodeSize[T]())
	if err != nil {
		return nil, err
	}
	n := t.nodeAt(o)
	n.tilt = tiltNone
	n.payload = v
	return n, nil
}

// find returns the live node holding v, or nil.
func (t *tree[T]) find(v T) *node[T] {
	root := t.safeNodeAt(t.root)
	if root == nil {
		return nil
	}
	n, dir := root.insertionPoint(t.less, v)
	if dir != tiltNone {
		return nil
	}
	return n
}

func (t *tree[T]) erase(v T) bool {
	root := t.safeNodeAt(t.root)
	if root == nil {
		return false
	}
	n, dir := root.insertionPoint(t.less, v)
	if dir != tiltNone {
		return false
	}
	return t.eraseNode(n)
}

func (t *tree[T]) eraseAt(o int32) bool {
	if t.root == 0 {
		return false
	}
	return t.eraseNode(t.nodeAt(o))
}

// eraseNode unlinks n, retraces, and returns the record to the free chain.
// A node with two children is first swapped with its in-order neighbor on
// the heavy side, reducing it to the one-or-no-child case while its payload
// (and therefore its slot) stays put.
func (t *tree[T]) eraseNode(n *node[T]) bool {
	if n == nil || n.isFree() {
		return false
	}

	if n.left != 0 && n.right != 0 {
		var swap *node[T]
		if n.tilt == tiltRight {
			swap = n.rightNode()
			for swap.left != 0 {
				swap = swap.leftNode()
			}
		} else {
			swap = n.leftNode()
			for swap.right != 0 {
				swap = swap.rightNode()
			}
		}
		n.swapWith(swap)
	}

	p, t1, t2 := n.safeParent(), n.safeLeft(), n.safeRight()

	var root *node[T]
	if p != nil {
		del := tiltRight
		if p.left == -n.parent {
			del = tiltLeft
		}

		child := t1
		if child == nil {
			child = t2
		}
		if child != nil {
			child.parent = dist(child, p)
		}

		if del == tiltLeft {
			if child != nil {
				p.left = dist(p, child)
			} else {
				p.left = 0
			}
		} else {
			if child != nil {
				p.right = dist(p, child)
			} else {
				p.right = 0
			}
		}

		retraceErase(p, del)
		root = p.rootNode()
	} else {
		switch {
		case t1 != nil:
			t1.parent = 0
			root = t1
		case t2 != nil:
			t2.parent = 0
			root = t2
		}
	}

	n.parent, n.left, n.right = 0, 0, 0

	if root != nil {
		t.root = t.offsetOf(root)
	} else {
		t.root = 0
	}
	t.count--

	t.decommission(n)
	return true
}

// decommission wipes the record and pushes it on the free chain headed by
// the sentinel's right link. Free records are all zero except that link.
func (t *tree[T]) decommission(n *node[T]) {
	b := unsafe.Slice((*byte)(unsafe.Pointer(n)), nodeSize[T]())
	clear(b)

	s := t.sentinel()
	if s.right != 0 {
		n.right = dist(n, s) + s.right
	}
	s.right = dist(s, n)
}

// clear drops every element and releases the arena.
func (t *tree[T]) clear() {
	t.arena.Release()
	t.root = 0
	t.count = 0
}

// reset drops every element but keeps the arena's capacity.
func (t *tree[T]) reset() {
	t.arena.Recycle()
	t.root = 0
	t.count = 0
}
