package ospfs

// CopyOutFunc is the host's half of a read transfer (spec.md §4.4, §6): it
// receives a read-only view of src-in-image bytes and is responsible for
// delivering them to wherever the caller wants them. Returning a non-nil
// error is treated as FAULT.
type CopyOutFunc func(src []byte) error

// CopyInFunc is the host's half of a write transfer: it receives a
// writable view of dst-in-image bytes and is responsible for filling them
// from the caller's source. Returning a non-nil error is treated as FAULT.
type CopyInFunc func(dst []byte) error

// Read implements spec.md §4.4's read(i, buf, count, pos): clamps count so
// pos+count never exceeds the inode's size, then transfers block by block,
// each iteration moving min(remaining, BlockSize-within_block_offset)
// bytes through copyOut. Returns the number of bytes actually transferred;
// a copyOut failure stops the loop and returns FAULT only if nothing had
// been transferred yet, otherwise the partial count is returned.
func Read(ref *InodeRef, pos uint32, count uint32, copyOut CopyOutFunc) (uint32, error) {
	raw, err := ref.readRaw()
	if err != nil {
		return 0, err
	}

	if pos >= raw.Size {
		count = 0
	} else if pos+count > raw.Size {
		count = raw.Size - pos
	}

	var transferred uint32
	remaining := count
	for remaining > 0 {
		withinBlockOff := pos % BlockSize
		tail := BlockSize - withinBlockOff
		n := remaining
		if n > tail {
			n = tail
		}

		blockNo, err := BlockNoForOffset(ref, pos)
		if err != nil {
			return transferred, err
		}
		if blockNo == 0 {
			// The size clamp above guarantees pos < raw.Size for every
			// iteration, so a missing block here means the reachable-block
			// invariant was already broken before this call.
			return transferred, NewDriverErrorWithMessage(ErrIOFailed, "blockno_for_offset returned 0 mid-read")
		}

		block := ref.img.dev.Block(uint(blockNo))
		src := block[withinBlockOff : withinBlockOff+n]
		if err := copyOut(src); err != nil {
			if transferred == 0 {
				return 0, NewDriverError(ErrFault).Wrap(err)
			}
			return transferred, nil
		}

		pos += n
		transferred += n
		remaining -= n
	}
	return transferred, nil
}

// Write implements spec.md §4.4's write(i, buf, count, pos): if appendMode
// is set, pos is reset to the inode's current size before anything else
// happens. If the transfer would extend past the inode's size, ChangeSize
// is invoked first; its failure is propagated untouched, leaving the
// inode's size exactly where it was (ChangeSize's own rollback guarantees
// this). The copy loop mirrors Read, using copyIn.
func Write(ref *InodeRef, pos uint32, count uint32, copyIn CopyInFunc, appendMode bool) (uint32, error) {
	if appendMode {
		sz, err := ref.Size()
		if err != nil {
			return 0, err
		}
		pos = sz
	}

	raw, err := ref.readRaw()
	if err != nil {
		return 0, err
	}
	if pos+count > raw.Size {
		if err := ChangeSize(ref, pos+count); err != nil {
			return 0, err
		}
	}

	var transferred uint32
	remaining := count
	for remaining > 0 {
		withinBlockOff := pos % BlockSize
		tail := BlockSize - withinBlockOff
		n := remaining
		if n > tail {
			n = tail
		}

		blockNo, err := BlockNoForOffset(ref, pos)
		if err != nil {
			return transferred, err
		}
		if blockNo == 0 {
			return transferred, NewDriverErrorWithMessage(ErrIOFailed, "blockno_for_offset returned 0 mid-write")
		}

		block := ref.img.dev.Block(uint(blockNo))
		dst := block[withinBlockOff : withinBlockOff+n]
		if err := copyIn(dst); err != nil {
			if transferred == 0 {
				return 0, NewDriverError(ErrFault).Wrap(err)
			}
			return transferred, nil
		}

		pos += n
		transferred += n
		remaining -= n
	}
	return transferred, nil
}
