// Package blockio provides the OSPFS block device view (spec.md §4,
// component 1): a contiguous byte array logically partitioned into
// fixed-size blocks, with block(n) -> byte span addressing.
//
// It is grounded on disko's drivers/common/blockdevice.go and
// file_systems/common/blockcache, simplified for OSPFS's requirement that
// the entire image is always resident in memory (spec.md §9:
// "unbounded in-memory image" -- no streaming, no partial loads).
package blockio

import (
	"io"

	"github.com/xaionaro-go/bytesextra"
)

// Device is a fixed-size, block-addressable view over an in-memory byte
// array. It never grows or shrinks; OSPFS's variable total block count is
// fixed at image-creation time (spec.md §3 "Image layout ... fixed at build
// time").
type Device struct {
	data      []byte
	blockSize uint
}

// New wraps data as a Device with the given block size. len(data) must be an
// exact multiple of blockSize.
func New(data []byte, blockSize uint) *Device {
	return &Device{data: data, blockSize: blockSize}
}

// BlockSize returns the fixed size of one block, in bytes.
func (d *Device) BlockSize() uint {
	return d.blockSize
}

// TotalBlocks returns the number of blocks in the image.
func (d *Device) TotalBlocks() uint {
	return uint(len(d.data)) / d.blockSize
}

// Size returns the total size of the image, in bytes.
func (d *Device) Size() int {
	return len(d.data)
}

// Block returns the byte span backing block n. The returned slice aliases
// the device's storage; writes through it are immediately visible to
// subsequent reads, matching spec.md §5's same-operation visibility
// guarantee.
func (d *Device) Block(n uint) []byte {
	start := n * d.blockSize
	return d.data[start : start+d.blockSize]
}

// ZeroBlock overwrites block n with zero bytes. Used whenever a freshly
// allocated block must be zeroed before any pointer to it becomes observable
// (spec.md §4.3).
func (d *Device) ZeroBlock(n uint) {
	b := d.Block(n)
	for i := range b {
		b[i] = 0
	}
}

// Raw returns the entire backing array. Callers must not change its length.
func (d *Device) Raw() []byte {
	return d.data
}

// Stream adapts the device's backing array to an io.ReadWriteSeeker, the way
// disko's blockcache.WrapSlice adapts a []byte with bytesextra. Useful for
// encoding/binary-based (de)serialization of fixed-size records at a known
// byte offset.
func (d *Device) Stream() io.ReadWriteSeeker {
	return bytesextra.NewReadWriteSeeker(d.data)
}
