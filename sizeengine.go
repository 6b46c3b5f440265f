package ospfs

import "github.com/dargueta/ospfs/bitmap"

// ptrWrite records a pointer slot this call wrote, together with the value
// the slot held before. Every slot write is recorded, whether the block
// already existed or was freshly allocated this call. If the call fails
// partway through, these writes are undone so the pre-existing structure is
// left exactly as it was found (spec.md §4.3,
// §9: "records allocations in a small fixed-size list so rollback on
// failure is a bounded loop over that list").
type ptrWrite struct {
	block uint32
	slot  uint32
	prior uint32
}

type growthTxn struct {
	img       *Image
	allocated []uint32
	writes    []ptrWrite
}

func (t *growthTxn) allocate() (uint32, error) {
	b, ok := t.img.free.Allocate()
	if !ok {
		return 0, NewDriverError(ErrNoSpaceOnDevice)
	}
	t.img.dev.ZeroBlock(uint(b))
	t.allocated = append(t.allocated, uint32(b))
	return uint32(b), nil
}

func (t *growthTxn) setSlot(block, slot, value uint32) {
	prior := readPtrSlot(t.img, block, slot)
	t.writes = append(t.writes, ptrWrite{block: block, slot: slot, prior: prior})
	writePtrSlot(t.img, block, slot, value)
}

func (t *growthTxn) rollback() {
	for i := len(t.writes) - 1; i >= 0; i-- {
		w := t.writes[i]
		writePtrSlot(t.img, w.block, w.slot, w.prior)
	}
	for _, b := range t.allocated {
		t.img.free.Free(bitmap.BlockNum(b))
	}
}

// AddBlock implements spec.md §4.3's add_block: grows inode by one block.
//
// If the inode's current size is not block-aligned, the trailing partial
// block already covers the growth: size is simply rounded up to the block
// boundary and no allocation occurs (this case cannot fail). Otherwise a
// genuinely new data block is needed at file-block index size/BlockSize,
// along with whatever indirect/doubly-indirect scaffolding addressing that
// index requires. All allocations performed by this call are undone before
// returning any error, leaving i.size and the reachable-block set bitwise
// unchanged (the growth-rollback law of spec.md §8).
func AddBlock(ref *InodeRef) error {
	raw, err := ref.readRaw()
	if err != nil {
		return err
	}

	if raw.Size%BlockSize != 0 {
		raw.Size = blocksNeededFor(raw.Size) * BlockSize
		return ref.writeRaw(&raw)
	}

	newBlockIdx := raw.Size / BlockSize
	if newBlockIdx >= MaxFileBlocks {
		return NewDriverErrorWithMessage(ErrIOFailed, "file has reached MAXFILEBLKS")
	}

	txn := &growthTxn{img: ref.img}

	switch {
	case newBlockIdx < NDirect:
		dataBlk, err := txn.allocate()
		if err != nil {
			txn.rollback()
			return err
		}
		raw.Direct[newBlockIdx] = dataBlk

	case isIndirect(newBlockIdx):
		if raw.Indirect == 0 {
			indBlk, err := txn.allocate()
			if err != nil {
				txn.rollback()
				return err
			}
			raw.Indirect = indBlk
		}
		dataBlk, err := txn.allocate()
		if err != nil {
			txn.rollback()
			return err
		}
		txn.setSlot(raw.Indirect, directSlot(newBlockIdx), dataBlk)

	default: // doubly-indirect
		if raw.Indirect2 == 0 {
			ind2Blk, err := txn.allocate()
			if err != nil {
				txn.rollback()
				return err
			}
			raw.Indirect2 = ind2Blk
		}

		slot := indirSlot(newBlockIdx)
		indBlk := readPtrSlot(ref.img, raw.Indirect2, slot)
		if indBlk == 0 {
			newIndBlk, err := txn.allocate()
			if err != nil {
				txn.rollback()
				return err
			}
			indBlk = newIndBlk
			txn.setSlot(raw.Indirect2, slot, indBlk)
		}

		dataBlk, err := txn.allocate()
		if err != nil {
			txn.rollback()
			return err
		}
		txn.setSlot(indBlk, directSlot(newBlockIdx), dataBlk)
	}

	raw.Size += BlockSize
	if err := ref.writeRaw(&raw); err != nil {
		txn.rollback()
		return err
	}
	return nil
}

// RemoveBlock implements spec.md §4.3's remove_block: shrinks inode by one
// block, always freeing the single highest-index data block and cascading
// the emptiness check up through the indirect and doubly-indirect levels.
func RemoveBlock(ref *InodeRef) error {
	raw, err := ref.readRaw()
	if err != nil {
		return err
	}
	if raw.Size == 0 {
		return NewDriverErrorWithMessage(ErrIOFailed, "cannot remove a block from an empty file")
	}

	blocksBefore := blocksNeededFor(raw.Size)
	lastIdx := blocksBefore - 1

	dataBlk, err := blockPtr(ref.img, &raw, lastIdx)
	if err != nil {
		return err
	}
	if dataBlk == 0 {
		return NewDriverErrorWithMessage(ErrIOFailed, "expected data block missing from reachable set")
	}
	ref.img.free.Free(bitmap.BlockNum(dataBlk))

	switch {
	case lastIdx < NDirect:
		raw.Direct[lastIdx] = 0

	case isIndirect(lastIdx):
		writePtrSlot(ref.img, raw.Indirect, directSlot(lastIdx), 0)
		if lastIdx == NDirect {
			// That was the only pointer left in the indirect block.
			ref.img.free.Free(bitmap.BlockNum(raw.Indirect))
			raw.Indirect = 0
		}

	default: // doubly-indirect
		outerSlot := indirSlot(lastIdx)
		indBlk := readPtrSlot(ref.img, raw.Indirect2, outerSlot)
		if indBlk == 0 {
			return NewDriverErrorWithMessage(ErrIOFailed, "expected indirect block missing")
		}
		innerSlot := directSlot(lastIdx)
		writePtrSlot(ref.img, indBlk, innerSlot, 0)

		if innerSlot == 0 {
			// The inner indirect block is now empty.
			ref.img.free.Free(bitmap.BlockNum(indBlk))
			writePtrSlot(ref.img, raw.Indirect2, outerSlot, 0)

			if outerSlot == 0 {
				// The doubly-indirect block is now empty too.
				ref.img.free.Free(bitmap.BlockNum(raw.Indirect2))
				raw.Indirect2 = 0
			}
		}
	}

	if tail := raw.Size % BlockSize; tail != 0 {
		raw.Size -= tail
	} else {
		raw.Size -= BlockSize
	}

	return ref.writeRaw(&raw)
}

// ChangeSize implements spec.md §4.3's change_size: grows or shrinks inode
// one block at a time until its block count matches newSize, then sets
// i.size exactly to newSize. A NO_SPACE or IO failure during growth unwinds
// back to the size the inode had when ChangeSize was called, then
// propagates the error (spec.md §7).
//
// Callers are responsible for rejecting truncation of directories; this
// function has no opinion on file type (spec.md §4.3).
func ChangeSize(ref *InodeRef, newSize uint32) error {
	raw, err := ref.readRaw()
	if err != nil {
		return err
	}
	oldSize := raw.Size
	targetBlocks := blocksNeededFor(newSize)

	for {
		raw, err = ref.readRaw()
		if err != nil {
			return err
		}
		curBlocks := blocksNeededFor(raw.Size)
		if curBlocks == targetBlocks {
			break
		}

		if curBlocks < targetBlocks {
			if err := AddBlock(ref); err != nil {
				for {
					cur, rerr := ref.Size()
					if rerr != nil {
						return rerr
					}
					if blocksNeededFor(cur) <= blocksNeededFor(oldSize) {
						break
					}
					if rerr := RemoveBlock(ref); rerr != nil {
						return rerr
					}
				}
				raw, rerr := ref.readRaw()
				if rerr != nil {
					return rerr
				}
				raw.Size = oldSize
				if rerr := ref.writeRaw(&raw); rerr != nil {
					return rerr
				}
				return err
			}
		} else {
			if err := RemoveBlock(ref); err != nil {
				return err
			}
		}
	}

	raw, err = ref.readRaw()
	if err != nil {
		return err
	}
	raw.Size = newSize
	return ref.writeRaw(&raw)
}
