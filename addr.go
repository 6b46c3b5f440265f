package ospfs

import "encoding/binary"

// isIndirect2 reports whether file-block index b requires the
// doubly-indirect pointer (spec.md §4.2).
func isIndirect2(b uint32) bool {
	return b >= NDirect+NIndirect
}

// isIndirect reports whether b falls in the singly-indirect range.
func isIndirect(b uint32) bool {
	return b >= NDirect && b < NDirect+NIndirect
}

// indirSlot returns the slot within the doubly-indirect table that the given
// block index falls under when isIndirect2(b) is true, 0 for the
// singly-indirect range, and 0 (spec.md: "undefined otherwise") for direct
// blocks.
func indirSlot(b uint32) uint32 {
	if isIndirect2(b) {
		return (b - NDirect - NIndirect) / NIndirect
	}
	return 0
}

// directSlot returns the slot within whichever block (direct array,
// indirect block, or the indirect block selected by indirSlot) ultimately
// holds the pointer for file-block index b.
func directSlot(b uint32) uint32 {
	switch {
	case b < NDirect:
		return b
	case isIndirect(b):
		return b - NDirect
	default:
		return (b - NDirect - NIndirect) % NIndirect
	}
}

// readPtrSlot reads the block-number slot at index i within the block
// indirectBlock, interpreting it as an array of little-endian uint32s.
func readPtrSlot(img *Image, indirectBlock uint32, i uint32) uint32 {
	block := img.dev.Block(uint(indirectBlock))
	off := i * blockPtrSize
	return binary.LittleEndian.Uint32(block[off : off+blockPtrSize])
}

// writePtrSlot writes value into slot i of indirectBlock.
func writePtrSlot(img *Image, indirectBlock uint32, i uint32, value uint32) {
	block := img.dev.Block(uint(indirectBlock))
	off := i * blockPtrSize
	binary.LittleEndian.PutUint32(block[off:off+blockPtrSize], value)
}

// blockPtr returns the raw on-image pointer (0 meaning "none") stored in
// inode slot b, without validating that b is within the file's current
// size. Used internally by the size engine while growing/shrinking.
func blockPtr(img *Image, raw *rawInode, b uint32) (uint32, error) {
	switch {
	case b < NDirect:
		return raw.Direct[b], nil
	case isIndirect(b):
		if raw.Indirect == 0 {
			return 0, nil
		}
		return readPtrSlot(img, raw.Indirect, directSlot(b)), nil
	case isIndirect2(b):
		if raw.Indirect2 == 0 {
			return 0, nil
		}
		indBlock := readPtrSlot(img, raw.Indirect2, indirSlot(b))
		if indBlock == 0 {
			return 0, nil
		}
		return readPtrSlot(img, indBlock, directSlot(b)), nil
	default:
		return 0, NewDriverError(ErrIOFailed)
	}
}

// BlockNoForOffset implements spec.md §4.2's blockno_for_offset: returns the
// data block number backing byteOffset within inode, or 0 if byteOffset is
// at or past the inode's current size, or the inode is a symlink.
func BlockNoForOffset(ref *InodeRef, byteOffset uint32) (uint32, error) {
	raw, err := ref.readRaw()
	if err != nil {
		return 0, err
	}
	if FileType(raw.FType) == FTypeSymlink || byteOffset >= raw.Size {
		return 0, nil
	}
	b := byteOffset / BlockSize
	return blockPtr(ref.img, &raw, b)
}
