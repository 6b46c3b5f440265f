// Package testutil provides scratch-image helpers for tests across this
// module, grounded on the teacher's testing.LoadDiskImage pattern: a thin
// wrapper that fails the test immediately via testify/require instead of
// returning an error for the caller to check.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dargueta/ospfs"
)

// NewScratchImage formats a brand new image of totalBlocks blocks holding
// ninodes inodes, failing the test immediately if formatting fails.
func NewScratchImage(t *testing.T, totalBlocks uint, ninodes uint32) *ospfs.Image {
	t.Helper()
	img, err := ospfs.Format(totalBlocks, ninodes)
	require.NoError(t, err, "failed to format scratch image")
	return img
}

// DefaultScratchImage formats a modestly sized image big enough to exercise
// indirect and doubly-indirect growth in tests without needing a huge
// backing array.
func DefaultScratchImage(t *testing.T) *ospfs.Image {
	t.Helper()
	return NewScratchImage(t, 512, 64)
}

// CopyOutToBuffer returns a CopyOutFunc that appends every transferred
// chunk to buf.
func CopyOutToBuffer(buf *[]byte) ospfs.CopyOutFunc {
	return func(src []byte) error {
		*buf = append(*buf, src...)
		return nil
	}
}

// CopyInFromBuffer returns a CopyInFunc that copies successive chunks of
// buf into the destination on each call, tracking its own read position.
func CopyInFromBuffer(buf []byte) ospfs.CopyInFunc {
	pos := 0
	return func(dst []byte) error {
		n := copy(dst, buf[pos:])
		pos += n
		return nil
	}
}
