package ospfs

import (
	"bytes"
	"encoding/binary"

	"github.com/noxer/bytewriter"
)

// rawDirent is the byte-exact on-image directory entry record (spec.md §3,
// §9): a 4-byte inode number followed by a zero-terminated name field. Ino
// == 0 marks an unused slot, mirroring block 0 and inode 0's shared role as
// the "nothing here" sentinel.
type rawDirent struct {
	Ino  uint32
	Name [MaxNameLen + 1]byte
}

func direntRegion(img *Image, blockNo uint32, offInBlock uint32) []byte {
	return img.dev.Block(uint(blockNo))[offInBlock : offInBlock+DirentrySize]
}

func readDirentAt(dirRef *InodeRef, index uint32) (rawDirent, error) {
	var d rawDirent
	byteOff := index * DirentrySize
	blockNo, err := BlockNoForOffset(dirRef, byteOff)
	if err != nil {
		return d, err
	}
	if blockNo == 0 {
		return d, NewDriverErrorWithMessage(ErrIOFailed, "directory entry index out of range")
	}
	region := direntRegion(dirRef.img, blockNo, byteOff%BlockSize)
	if err := binary.Read(bytes.NewReader(region), binary.LittleEndian, &d); err != nil {
		return d, NewDriverError(ErrIOFailed).Wrap(err)
	}
	return d, nil
}

func writeDirentAt(dirRef *InodeRef, index uint32, d *rawDirent) error {
	byteOff := index * DirentrySize
	blockNo, err := BlockNoForOffset(dirRef, byteOff)
	if err != nil {
		return err
	}
	if blockNo == 0 {
		return NewDriverErrorWithMessage(ErrIOFailed, "directory entry index out of range")
	}
	region := direntRegion(dirRef.img, blockNo, byteOff%BlockSize)
	w := bytewriter.New(region)
	if err := binary.Write(w, binary.LittleEndian, d); err != nil {
		return NewDriverError(ErrIOFailed).Wrap(err)
	}
	return nil
}

func direntCount(dirRef *InodeRef) (uint32, error) {
	size, err := dirRef.Size()
	if err != nil {
		return 0, err
	}
	return size / DirentrySize, nil
}

func direntName(d *rawDirent) string {
	n := bytes.IndexByte(d.Name[:], 0)
	if n < 0 {
		n = len(d.Name)
	}
	return string(d.Name[:n])
}

// CreateBlankDirEntry implements spec.md §4.5's create_blank_direntry: scans
// dir's existing slots for one with Ino == 0 and returns it; if none is
// free, it grows dir by exactly one entry's worth of bytes (via ChangeSize,
// which only touches the block layer when a block boundary is actually
// crossed) and returns the new slot.
func CreateBlankDirEntry(dirRef *InodeRef) (uint32, error) {
	n, err := direntCount(dirRef)
	if err != nil {
		return 0, err
	}
	for i := uint32(0); i < n; i++ {
		d, err := readDirentAt(dirRef, i)
		if err != nil {
			return 0, err
		}
		if d.Ino == 0 {
			return i, nil
		}
	}

	size, err := dirRef.Size()
	if err != nil {
		return 0, err
	}
	if err := ChangeSize(dirRef, size+DirentrySize); err != nil {
		return 0, err
	}
	return n, nil
}

// AddDirEntry implements spec.md §4.5's add_dirent: claims a blank slot in
// dir and populates it with ino/name. It does not check for an existing
// entry of the same name; that uniqueness policy belongs to the namespace
// layer (spec.md §4.6), which looks the name up first.
func AddDirEntry(dirRef *InodeRef, ino uint32, name string) error {
	if len(name) > MaxNameLen {
		return NewDriverError(ErrNameTooLong)
	}
	idx, err := CreateBlankDirEntry(dirRef)
	if err != nil {
		return err
	}
	var d rawDirent
	d.Ino = ino
	copy(d.Name[:], name)
	return writeDirentAt(dirRef, idx, &d)
}

// FindDirEntry implements spec.md §4.5's find_direntry: linear scan for the
// first occupied slot whose name matches. Returns ErrNotFound if absent.
func FindDirEntry(dirRef *InodeRef, name string) (ino uint32, index uint32, err error) {
	n, err := direntCount(dirRef)
	if err != nil {
		return 0, 0, err
	}
	for i := uint32(0); i < n; i++ {
		d, err := readDirentAt(dirRef, i)
		if err != nil {
			return 0, 0, err
		}
		if d.Ino == 0 {
			continue
		}
		if direntName(&d) == name {
			return d.Ino, i, nil
		}
	}
	return 0, 0, NewDriverError(ErrNotFound)
}

// RemoveDirEntryAt clears slot index back to unused (Ino = 0) without
// shrinking the directory's storage; the slot is recycled by a later
// CreateBlankDirEntry call (spec.md §4.6's unlink behavior).
func RemoveDirEntryAt(dirRef *InodeRef, index uint32) error {
	var d rawDirent
	return writeDirentAt(dirRef, index, &d)
}

// DirEntry is a listing-friendly view of one directory slot, real or
// synthesized.
type DirEntry struct {
	Ino  uint32
	Name string
}

// ReadDirStatus reports how a ReadDirStream call ended.
type ReadDirStatus int

const (
	ReadDirDone ReadDirStatus = iota
	ReadDirInterrupted
)

// ReadDirStream implements spec.md §4.5's readdir(dir, pos, emit): a
// cursor-based enumeration where positions 0 and 1 are synthesized "." and
// ".." entries (dir's own inode number and the caller-supplied parentIno,
// since a directory's on-image record carries no parent pointer of its
// own), and positions 2.. map onto (pos-2) as a byte offset into dir's
// stored entries, one DirentrySize at a time. emit is called once per
// occupied slot; unoccupied slots are skipped silently, though pos still
// advances past them. A false return from emit requests the scan stop,
// yielding ReadDirInterrupted.
func ReadDirStream(dirRef *InodeRef, parentIno uint32, startPos uint32, emit func(pos uint32, ino uint32, name string) bool) (ReadDirStatus, error) {
	pos := startPos

	if pos == 0 {
		if !emit(0, dirRef.Num, ".") {
			return ReadDirInterrupted, nil
		}
		pos = 1
	}
	if pos == 1 {
		if !emit(1, parentIno, "..") {
			return ReadDirInterrupted, nil
		}
		pos = 2
	}

	size, err := dirRef.Size()
	if err != nil {
		return ReadDirDone, err
	}

	for {
		byteOff := pos - 2
		if byteOff >= size {
			return ReadDirDone, nil
		}
		index := byteOff / DirentrySize
		d, err := readDirentAt(dirRef, index)
		if err != nil {
			return ReadDirDone, err
		}
		if d.Ino != 0 {
			if !emit(pos, d.Ino, direntName(&d)) {
				return ReadDirInterrupted, nil
			}
		}
		pos += DirentrySize
	}
}

// ReadDir is a listing convenience built on ReadDirStream: it runs the
// cursor to completion and returns every entry encountered, dots included.
func ReadDir(dirRef *InodeRef, parentIno uint32) ([]DirEntry, error) {
	var out []DirEntry
	_, err := ReadDirStream(dirRef, parentIno, 0, func(pos, ino uint32, name string) bool {
		out = append(out, DirEntry{Ino: ino, Name: name})
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
