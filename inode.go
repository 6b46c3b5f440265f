package ospfs

import (
	"bytes"
	"encoding/binary"

	"github.com/noxer/bytewriter"
)

// rawInode is the byte-exact on-image inode record (spec.md §3). The
// regular-file/directory fields (Direct/Indirect/Indirect2) and the symlink
// field (SymlinkTarget) are never both meaningful for the same inode: which
// one is valid is determined by FType. The original C implementation this
// spec distills stores them as a union of the same bytes; Go has no portable
// union, so this record keeps both fields and the engine only ever touches
// the one FType selects, which preserves the spec's externally observable
// behavior (see DESIGN.md).
type rawInode struct {
	Size          uint32
	Nlink         uint16
	Mode          uint16
	FType         uint8
	_             [3]byte // padding, always zero
	Direct        [NDirect]uint32
	Indirect      uint32
	Indirect2     uint32
	SymlinkTarget [MaxSymlinkLen]byte
}

var rawInodeSize = binary.Size(rawInode{})

// InodeRef addresses a single inode slot on an Image. It has no field
// caching: every accessor reads straight from the image bytes, and every
// mutator writes straight back, so the rest of the engine never has to
// remember to "flush" an inode.
type InodeRef struct {
	img *Image
	Num uint32
}

// Inode returns a reference to inode number n. It performs no validation;
// callers are expected to have already resolved n from a directory entry or
// a free-inode scan.
func (img *Image) Inode(n uint32) *InodeRef {
	return &InodeRef{img: img, Num: n}
}

func (ref *InodeRef) region() []byte {
	off := inodeOffset(ref.img, ref.Num)
	return ref.img.dev.Raw()[off : off+rawInodeSize]
}

func (ref *InodeRef) readRaw() (rawInode, error) {
	var raw rawInode
	if err := binary.Read(bytes.NewReader(ref.region()), binary.LittleEndian, &raw); err != nil {
		return raw, NewDriverError(ErrIOFailed).Wrap(err)
	}
	return raw, nil
}

func (ref *InodeRef) writeRaw(raw *rawInode) error {
	w := bytewriter.New(ref.region())
	if err := binary.Write(w, binary.LittleEndian, raw); err != nil {
		return NewDriverError(ErrIOFailed).Wrap(err)
	}
	return nil
}

// Size returns the inode's byte length.
func (ref *InodeRef) Size() (uint32, error) {
	raw, err := ref.readRaw()
	return raw.Size, err
}

// FType returns the inode's file type.
func (ref *InodeRef) FType() (FileType, error) {
	raw, err := ref.readRaw()
	return FileType(raw.FType), err
}

// Nlink returns the inode's link count.
func (ref *InodeRef) Nlink() (uint16, error) {
	raw, err := ref.readRaw()
	return raw.Nlink, err
}

// Mode returns the inode's permission bits.
func (ref *InodeRef) Mode() (FileMode, error) {
	raw, err := ref.readRaw()
	return FileMode(raw.Mode), err
}

// IsFree reports whether this inode slot is unused (spec.md §3: inodes with
// nlink == 0 are available to be (re)created by a namespace operation).
func (ref *InodeRef) IsFree() (bool, error) {
	raw, err := ref.readRaw()
	if err != nil {
		return false, err
	}
	return raw.Nlink == 0, nil
}

// SetNlink overwrites the inode's link count.
func (ref *InodeRef) SetNlink(n uint16) error {
	raw, err := ref.readRaw()
	if err != nil {
		return err
	}
	raw.Nlink = n
	return ref.writeRaw(&raw)
}

// AdjustNlink adds delta (positive or negative) to the inode's link count.
func (ref *InodeRef) AdjustNlink(delta int) (uint16, error) {
	raw, err := ref.readRaw()
	if err != nil {
		return 0, err
	}
	newVal := int(raw.Nlink) + delta
	raw.Nlink = uint16(newVal)
	if err := ref.writeRaw(&raw); err != nil {
		return 0, err
	}
	return raw.Nlink, nil
}

// SymlinkTarget returns the stored symlink text as a string copied out of
// the record, so nothing done with it touches the on-image bytes (spec.md
// §9: resolvers must never mutate the stored target).
func (ref *InodeRef) SymlinkTarget() (string, error) {
	raw, err := ref.readRaw()
	if err != nil {
		return "", err
	}
	buf := make([]byte, raw.Size)
	copy(buf, raw.SymlinkTarget[:raw.Size])
	return string(buf), nil
}

// FindFreeInode linearly scans the inode table for the first slot with
// nlink == 0 (spec.md §4.6). Inode 0 is skipped; it is never used.
func (img *Image) FindFreeInode() (*InodeRef, error) {
	for i := uint32(1); i < img.ninodes; i++ {
		ref := img.Inode(i)
		free, err := ref.IsFree()
		if err != nil {
			return nil, err
		}
		if free {
			return ref, nil
		}
	}
	return nil, NewDriverError(ErrNoSpaceOnDevice)
}

// blocksNeededFor returns ceil(size / BlockSize), the number of data blocks a
// file of the given byte length occupies (spec.md §3, P-SIZE-BLOCKS).
func blocksNeededFor(size uint32) uint32 {
	return (size + BlockSize - 1) / BlockSize
}

// BlocksNeededFor exposes blocksNeededFor for consistency checking outside
// this package (spec.md §8, P-SIZE-BLOCKS).
func BlocksNeededFor(size uint32) uint32 {
	return blocksNeededFor(size)
}
