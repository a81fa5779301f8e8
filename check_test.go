// SPDX-License-Identifier: Apache-2.0

package indexedset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateDetectsCorruption(t *testing.T) {
	t.Run("tilt disagrees with heights", func(t *testing.T) {
		s := buildSet(t, 1, 2, 3)
		require.NoError(t, s.Validate())

		s.tree.find(1).tilt = tiltLeft
		require.ErrorContains(t, s.Validate(), "tilt byte")
	})

	t.Run("broken link mirror", func(t *testing.T) {
		s := buildSet(t, 1, 2, 3)
		root := s.tree.nodeAt(s.tree.root)
		root.leftNode().parent += 4
		require.ErrorContains(t, s.Validate(), "mirrored")
	})

	t.Run("ordering violation", func(t *testing.T) {
		s := buildSet(t, 1, 2, 3)
		s.tree.find(1).payload = 9
		require.ErrorContains(t, s.Validate(), "ordering")
	})

	t.Run("count drift", func(t *testing.T) {
		s := buildSet(t, 1, 2, 3)
		s.tree.count++
		require.ErrorContains(t, s.Validate(), "count")
	})

	t.Run("dirty free record", func(t *testing.T) {
		s := buildSet(t, 1, 2, 3)
		slot := s.FindSlot(3)
		require.True(t, s.Erase(3))
		o, ok := s.offsetOfSlot(slot)
		require.True(t, ok)
		s.tree.nodeAt(o).parent = 4
		require.ErrorContains(t, s.Validate(), "not wiped")
	})
}

func TestStatsReport(t *testing.T) {
	s := NewOrdered[uint32]()
	st := s.Stats()
	require.Equal(t, 0, st.Nodes)
	require.Equal(t, 0, st.Capacity)

	for i := uint32(0); i < 10; i++ {
		_, _, err := s.Insert(i)
		require.NoError(t, err)
	}

	st = s.Stats()
	require.Equal(t, 10, st.Nodes)
	require.Greater(t, st.Leaves, 0)
	require.Equal(t, 11*nodeSize[uint32](), st.Used)
	require.GreaterOrEqual(t, st.Capacity, st.Used)
	require.LessOrEqual(t, st.MinLeafDepth, st.MaxLeafDepth)
	require.NotEmpty(t, st.String())
}
