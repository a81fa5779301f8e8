// SPDX-License-Identifier: Apache-2.0

package indexedset

import "fmt"

// Validate sweeps the whole arena and reports the first structural defect it
// finds: ordering or balance violations, links whose two ends disagree,
// links escaping the used region, free-chain records that are not wiped, or
// records reachable from neither the tree nor the free chain.
//
// The hot paths carry no checks; tests and soak runs call Validate between
// operations instead.
func (s *Set[T]) Validate() error {
	t := &s.tree
	ns := nodeSize[T]()

	if t.arena.Len() == 0 {
		if t.root != 0 || t.count != 0 {
			return fmt.Errorf("empty arena but root=%d count=%d", t.root, t.count)
		}
		return nil
	}
	if t.arena.Len()%ns != 0 {
		return fmt.Errorf("arena length %d is not a multiple of the node size %d", t.arena.Len(), ns)
	}
	total := t.arena.Len() / ns

	sent := t.sentinel()
	if sent.tilt != tiltFree || sent.parent != 0 || sent.left != 0 {
		return fmt.Errorf("sentinel record is corrupted")
	}

	live := 0
	var walk func(o int32, lo, hi *T) (int, error)
	walk = func(o int32, lo, hi *T) (int, error) {
		if o < int32(ns) || int(o) >= t.arena.Len() || int(o)%ns != 0 {
			return 0, fmt.Errorf("link to offset %d escapes the arena", o)
		}
		n := t.nodeAt(o)
		slot := int(o) / ns
		if n.isFree() {
			return 0, fmt.Errorf("tree reaches free record at slot %d", slot)
		}
		if lo != nil && !t.less(*lo, n.payload) {
			return 0, fmt.Errorf("ordering violated at slot %d (left bound)", slot)
		}
		if hi != nil && !t.less(n.payload, *hi) {
			return 0, fmt.Errorf("ordering violated at slot %d (right bound)", slot)
		}
		live++

		var hl, hr int
		if n.left != 0 {
			if n.leftNode().parent != -n.left {
				return 0, fmt.Errorf("left link at slot %d is not mirrored by its child", slot)
			}
			h, err := walk(o+n.left, lo, &n.payload)
			if err != nil {
				return 0, err
			}
			hl = h
		}
		if n.right != 0 {
			if n.rightNode().parent != -n.right {
				return 0, fmt.Errorf("right link at slot %d is not mirrored by its child", slot)
			}
			h, err := walk(o+n.right, &n.payload, hi)
			if err != nil {
				return 0, err
			}
			hr = h
		}

		if hl-hr > 1 || hr-hl > 1 {
			return 0, fmt.Errorf("height invariant violated at slot %d: left %d, right %d", slot, hl, hr)
		}
		want := tiltNone
		switch {
		case hl > hr:
			want = tiltLeft
		case hr > hl:
			want = tiltRight
		}
		if n.tilt != want {
			return 0, fmt.Errorf("tilt byte at slot %d disagrees with subtree heights", slot)
		}

		if hl > hr {
			return hl + 1, nil
		}
		return hr + 1, nil
	}

	if t.root != 0 {
		if t.nodeAt(t.root).parent != 0 {
			return fmt.Errorf("root at offset %d has a parent link", t.root)
		}
		if _, err := walk(t.root, nil, nil); err != nil {
			return err
		}
	}
	if live != t.count {
		return fmt.Errorf("tree holds %d nodes but count says %d", live, t.count)
	}

	// the sentinel sits at offset 0, so its right link doubles as the
	// absolute offset of the chain head
	freeCount := 0
	for o := sent.right; o != 0; {
		if freeCount > total {
			return fmt.Errorf("free chain does not terminate")
		}
		if o < int32(ns) || int(o) >= t.arena.Len() || int(o)%ns != 0 {
			return fmt.Errorf("free chain link to offset %d escapes the arena", o)
		}
		n := t.nodeAt(o)
		if n.tilt != tiltFree || n.parent != 0 || n.left != 0 {
			return fmt.Errorf("free record at slot %d is not wiped", int(o)/ns)
		}
		freeCount++
		if n.right == 0 {
			break
		}
		o += n.right
	}

	if live+freeCount+1 != total {
		return fmt.Errorf("%d records unaccounted for", total-live-freeCount-1)
	}
	return nil
}

// Stats describes the physical shape of a set.
type Stats struct {
	Capacity     int // arena capacity in bytes
	Used         int // arena bytes in use
	Peak         int // high-water mark of Used
	Reallocs     int // times the arena moved
	Nodes        int // live elements
	Leaves       int // nodes without children
	MinLeafDepth int
	MaxLeafDepth int
}

// Stats walks the tree and reports its shape alongside the arena counters.
func (s *Set[T]) Stats() Stats {
	st := Stats{
		Capacity: s.tree.arena.Cap(),
		Used:     s.tree.arena.Len(),
		Peak:     s.tree.arena.Peak(),
		Reallocs: s.tree.arena.Reallocs(),
	}

	for n := leftmost(s.tree.safeNodeAt(s.tree.root)); n != nil; n = inorderNext(n) {
		st.Nodes++
		if n.left != 0 || n.right != 0 {
			continue
		}
		d := n.depth()
		if st.Leaves == 0 {
			st.MinLeafDepth, st.MaxLeafDepth = d, d
		} else {
			if d < st.MinLeafDepth {
				st.MinLeafDepth = d
			}
			if d > st.MaxLeafDepth {
				st.MaxLeafDepth = d
			}
		}
		st.Leaves++
	}
	return st
}

func (s Stats) String() string {
	return fmt.Sprintf(
		"capacity %d, used %d (peak %d, %d reallocs), %d nodes, %d leaves, leaf depth %d..%d",
		s.Capacity, s.Used, s.Peak, s.Reallocs, s.Nodes, s.Leaves, s.MinLeafDepth, s.MaxLeafDepth)
}
