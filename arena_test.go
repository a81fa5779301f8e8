// SPDX-License-Identifier: Apache-2.0

package indexedset

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestArenaGrowthRule(t *testing.T) {
	var a Arena

	// first append grows by minGrow
	off, err := a.AppendZero(1)
	require.NoError(t, err)
	require.Equal(t, int32(0), off)
	require.Equal(t, 1, a.Len())
	require.Equal(t, 1024, a.Cap())
	require.Equal(t, 1, a.Reallocs())

	// filling the free space does not reallocate
	_, err = a.AppendZero(1023)
	require.NoError(t, err)
	require.Equal(t, 1024, a.Len())
	require.Equal(t, 1, a.Reallocs())

	// deficit 1, minGrow 1024, cap/2 = 512 -> +1024
	_, err = a.AppendZero(1)
	require.NoError(t, err)
	require.Equal(t, 2048, a.Cap())
	require.Equal(t, 2, a.Reallocs())

	// deficit 1, minGrow 1024, cap/2 = 1024 -> +1024
	_, err = a.AppendZero(1023)
	require.NoError(t, err)
	_, err = a.AppendZero(1)
	require.NoError(t, err)
	require.Equal(t, 3072, a.Cap())

	// cap/2 = 1536 wins over minGrow
	_, err = a.AppendZero(1023)
	require.NoError(t, err)
	_, err = a.AppendZero(1)
	require.NoError(t, err)
	require.Equal(t, 4608, a.Cap())
}

func TestArenaOffsetsSurviveGrowth(t *testing.T) {
	var a Arena

	off, err := a.AppendZero(64)
	require.NoError(t, err)

	buf := unsafe.Slice(a.Head(), a.Len())
	buf[off] = 0xAB
	buf[off+63] = 0xCD

	// force a reallocation; the old raw slice is now stale but the offsets
	// still name the same bytes
	_, err = a.AppendZero(4096)
	require.NoError(t, err)
	require.GreaterOrEqual(t, a.Reallocs(), 2)

	buf = unsafe.Slice(a.Head(), a.Len())
	require.Equal(t, byte(0xAB), buf[off])
	require.Equal(t, byte(0xCD), buf[off+63])
}

func TestArenaAppendZeroClearsRecycledBytes(t *testing.T) {
	var a Arena

	off, err := a.AppendZero(64)
	require.NoError(t, err)

	buf := unsafe.Slice(a.Head(), a.Len())
	for i := range buf {
		buf[i] = 0xFF
	}

	a.Recycle()
	require.Equal(t, 0, a.Len())
	require.Equal(t, 1024, a.Cap())

	off, err = a.AppendZero(64)
	require.NoError(t, err)
	require.Equal(t, int32(0), off)

	buf = unsafe.Slice(a.Head(), a.Len())
	for i := range buf {
		require.Equal(t, byte(0), buf[i])
	}
}

func TestArenaReserve(t *testing.T) {
	var a Arena

	require.NoError(t, a.Reserve(5000))
	require.Equal(t, 0, a.Len())
	require.Equal(t, 5008, a.Cap()) // aligned up to 16
	require.Equal(t, 1, a.Reallocs())

	// reserving less is a no-op
	require.NoError(t, a.Reserve(100))
	require.Equal(t, 5008, a.Cap())
	require.Equal(t, 1, a.Reallocs())
}

func TestArenaMaxBytes(t *testing.T) {
	a := Arena{max: 1024}

	_, err := a.AppendZero(512)
	require.NoError(t, err)

	_, err = a.AppendZero(600)
	require.ErrorIs(t, err, ErrArenaOverflow)
	// a failed grow leaves the arena untouched
	require.Equal(t, 512, a.Len())
	require.Equal(t, 1024, a.Cap())
}

func TestArenaPeakSurvivesRecycle(t *testing.T) {
	var a Arena

	_, err := a.AppendZero(100)
	require.NoError(t, err)
	require.Equal(t, 100, a.Peak())

	a.Recycle()
	require.Equal(t, 0, a.Len())
	require.Equal(t, 100, a.Peak())

	_, err = a.AppendZero(40)
	require.NoError(t, err)
	require.Equal(t, 100, a.Peak())

	a.Release()
	require.Equal(t, 0, a.Cap())
	require.Equal(t, 100, a.Peak())
}
