// Package bitmap implements the OSPFS free-block bitmap (spec.md §4.1): one
// bit per block, 1 meaning free and 0 meaning allocated. It is grounded on
// disko's drivers/common/allocatormap.go, which wraps the same third-party
// bitmap library (github.com/boljen/go-bitmap) the same way: a flat bit
// array scanned linearly for the lowest free index.
package bitmap

import (
	bitmaplib "github.com/boljen/go-bitmap"
)

// BlockNum is a block index within the image. Block 0 is never allocatable
// (spec.md §9: it doubles as the null pointer sentinel).
type BlockNum uint

// FreeMap is the free-block bitmap for an image. Bit n is 1 ("set") when
// block n is free, 0 when allocated, matching spec.md §4.1's convention.
type FreeMap struct {
	bits       bitmaplib.Bitmap
	totalBits  uint
	lastSearch uint
}

// New creates a FreeMap with every bit initialized to 0 (allocated). Callers
// building a fresh image are expected to mark free blocks explicitly with
// Set; this mirrors the teacher's pattern of starting from an
// all-allocated bitmap and carving out the free region.
func New(totalBlocks uint) *FreeMap {
	return &FreeMap{
		bits:      bitmaplib.New(int(totalBlocks)),
		totalBits: totalBlocks,
	}
}

// FromBytes wraps a bitmap already materialized as bytes, e.g. one just read
// from the image's bitmap region.
func FromBytes(data []byte, totalBlocks uint) *FreeMap {
	return &FreeMap{
		bits:      bitmaplib.Bitmap(data),
		totalBits: totalBlocks,
	}
}

// Bytes returns the bitmap's backing byte slice, suitable for writing back to
// the image's bitmap region. The slice aliases the FreeMap's storage.
func (m *FreeMap) Bytes() []byte {
	return m.bits.Data(false)
}

// Test reports whether block n is free (bit == 1).
func (m *FreeMap) Test(n BlockNum) bool {
	return m.bits.Get(int(n))
}

// Set marks block n free (bit = 1).
func (m *FreeMap) Set(n BlockNum) {
	m.bits.Set(int(n), true)
}

// Clear marks block n allocated (bit = 0).
func (m *FreeMap) Clear(n BlockNum) {
	m.bits.Set(int(n), false)
}

// Allocate scans bits linearly from index 0, returns the lowest-index free
// block, marks it allocated, and returns it. It returns (0, false) when no
// free block exists; block 0 is the reserved boot block and can never be
// returned as a genuine allocation, so 0 unambiguously signals "no space"
// (spec.md §4.1, §9).
func (m *FreeMap) Allocate() (BlockNum, bool) {
	for i := uint(0); i < m.totalBits; i++ {
		if m.bits.Get(int(i)) {
			m.bits.Set(int(i), false)
			return BlockNum(i), true
		}
	}
	return 0, false
}

// Free marks block n as free again.
func (m *FreeMap) Free(n BlockNum) {
	m.Set(n)
}

// CountFree returns the number of free (bit == 1) blocks. Used by fsck and
// by tests that assert on free-bit counts (spec.md §8, scenario 3).
func (m *FreeMap) CountFree() uint {
	count := uint(0)
	for i := uint(0); i < m.totalBits; i++ {
		if m.bits.Get(int(i)) {
			count++
		}
	}
	return count
}

// TotalBits returns the number of blocks this bitmap covers.
func (m *FreeMap) TotalBits() uint {
	return m.totalBits
}
