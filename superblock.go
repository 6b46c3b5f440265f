package ospfs

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/dargueta/ospfs/bitmap"
	"github.com/dargueta/ospfs/blockio"
)

// rawSuperblock is the byte-exact superblock record stored in block 1
// (spec.md §6): magic, total inode count, the first inode-table block, and
// the image's total block count.
type rawSuperblock struct {
	Magic      uint32
	NInodes    uint32
	FirstInoB  uint32
	TotalBlock uint32
}

const rawSuperblockSize = 4 * 4

// Image is the mounted, in-memory representation of an OSPFS disk image: the
// block device view, the free-block bitmap, and the superblock fields
// needed to address the inode table. It is the root object every engine
// operation in this package hangs off of.
type Image struct {
	dev        *blockio.Device
	free       *bitmap.FreeMap
	ninodes    uint32
	firstInoB  uint32
	firstDataB uint32
	inodesPerB uint32
}

// bitmapBlocksFor returns the number of blocks needed to store a bitmap
// covering totalBlocks bits.
func bitmapBlocksFor(totalBlocks uint) uint {
	bits := totalBlocks
	bytesNeeded := (bits + 7) / 8
	return (bytesNeeded + BlockSize - 1) / BlockSize
}

func inodesPerBlock() uint32 {
	return BlockSize / uint32(rawInodeSize)
}

func inodeBlocksFor(ninodes uint32) uint32 {
	perBlock := inodesPerBlock()
	return (ninodes + perBlock - 1) / perBlock
}

// Format builds a brand new, empty OSPFS image of totalBlocks blocks holding
// ninodes inodes, and returns the mounted Image; its backing byte slice is
// available through Bytes.
//
// This is the on-image engine's own responsibility (every disko driver has
// an equivalent Format/FormatImage method); it is distinct from the
// out-of-scope "initial image builder" of spec.md §1, which populates a
// *populated* file tree from an external source and is treated as an opaque
// byte producer by this package.
func Format(totalBlocks uint, ninodes uint32) (*Image, error) {
	if ninodes == 0 {
		return nil, NewDriverErrorWithMessage(ErrInvalidArgument, "ninodes must be nonzero")
	}

	bitmapBlocks := bitmapBlocksFor(totalBlocks)
	inodeBlocks := inodeBlocksFor(ninodes)
	firstInoB := 2 + bitmapBlocks
	firstDataB := firstInoB + uint(inodeBlocks)

	if totalBlocks <= firstDataB {
		return nil, NewDriverErrorWithMessage(
			ErrInvalidArgument,
			fmt.Sprintf(
				"totalBlocks %d too small to hold superblock, %d bitmap "+
					"block(s), and %d inode block(s)",
				totalBlocks, bitmapBlocks, inodeBlocks,
			),
		)
	}

	data := make([]byte, totalBlocks*BlockSize)
	dev := blockio.New(data, BlockSize)

	sb := rawSuperblock{
		Magic:      supermagic,
		NInodes:    ninodes,
		FirstInoB:  uint32(firstInoB),
		TotalBlock: uint32(totalBlocks),
	}
	stream := dev.Stream()
	if _, err := stream.Seek(int64(BlockSize), io.SeekStart); err != nil {
		return nil, NewDriverError(ErrIOFailed).Wrap(err)
	}
	if err := binary.Write(stream, binary.LittleEndian, &sb); err != nil {
		return nil, NewDriverError(ErrIOFailed).Wrap(err)
	}

	bitmapRegion := dev.Raw()[2*BlockSize : firstInoB*BlockSize]
	free := bitmap.FromBytes(bitmapRegion, totalBlocks)
	// Blocks [0, firstDataB) are metadata and are never freed (spec.md §3);
	// mark everything from firstDataB onward as free.
	for b := firstDataB; b < totalBlocks; b++ {
		free.Set(bitmap.BlockNum(b))
	}

	img := &Image{
		dev:        dev,
		free:       free,
		ninodes:    ninodes,
		firstInoB:  uint32(firstInoB),
		firstDataB: uint32(firstDataB),
		inodesPerB: inodesPerBlock(),
	}

	// Inode 0 is never used (mirrors block 0's role as the null sentinel).
	// Populate the root directory at RootIno. It starts with no stored
	// entries at all: "." and ".." are synthesized by ReadDir, never
	// written to the image (spec.md §4.5).
	root := img.Inode(RootIno)
	raw := rawInode{
		FType: uint8(FTypeDirectory),
		Nlink: 1,
		Mode:  uint16(S_IRWXU | S_IRGRP | S_IXGRP | S_IROTH | S_IXOTH),
	}
	if err := root.writeRaw(&raw); err != nil {
		return nil, err
	}

	return img, nil
}

// Open mounts an existing OSPFS image from its raw bytes.
func Open(data []byte) (*Image, error) {
	if len(data) < 2*BlockSize {
		return nil, NewDriverErrorWithMessage(ErrIOFailed, "image too small to contain a superblock")
	}

	dev := blockio.New(data, BlockSize)
	var sb rawSuperblock
	stream := dev.Stream()
	if _, err := stream.Seek(int64(BlockSize), io.SeekStart); err != nil {
		return nil, NewDriverError(ErrIOFailed).Wrap(err)
	}
	if err := binary.Read(stream, binary.LittleEndian, &sb); err != nil {
		return nil, NewDriverError(ErrIOFailed).Wrap(err)
	}
	if sb.Magic != supermagic {
		return nil, NewDriverErrorWithMessage(ErrIOFailed, "bad superblock magic")
	}
	if uint(sb.TotalBlock) != dev.TotalBlocks() {
		return nil, NewDriverErrorWithMessage(ErrIOFailed, "superblock block count disagrees with image size")
	}

	bitmapRegion := dev.Raw()[2*BlockSize : uint(sb.FirstInoB)*BlockSize]
	free := bitmap.FromBytes(bitmapRegion, dev.TotalBlocks())
	firstDataB := sb.FirstInoB + inodeBlocksFor(sb.NInodes)

	return &Image{
		dev:        dev,
		free:       free,
		ninodes:    sb.NInodes,
		firstInoB:  sb.FirstInoB,
		firstDataB: firstDataB,
		inodesPerB: inodesPerBlock(),
	}, nil
}

// Bytes returns the image's backing byte array.
func (img *Image) Bytes() []byte { return img.dev.Raw() }

// TotalBlocks returns the number of blocks in the image.
func (img *Image) TotalBlocks() uint { return img.dev.TotalBlocks() }

// NInodes returns the number of inode slots in the image.
func (img *Image) NInodes() uint32 { return img.ninodes }

// FreeBlockCount returns the number of currently-unallocated blocks.
func (img *Image) FreeBlockCount() uint { return img.free.CountFree() }

// FirstDataBlock returns the index of the first block available for
// allocation; every block before it is permanently reserved metadata
// (spec.md §3: "Blocks 0..firstinob + inode-table-size - 1 are never
// freed").
func (img *Image) FirstDataBlock() uint32 { return img.firstDataB }

// BlockIsFree reports whether block n is currently marked free in the
// bitmap.
func (img *Image) BlockIsFree(n uint32) bool { return img.free.Test(bitmap.BlockNum(n)) }

func inodeOffset(img *Image, n uint32) int {
	return int(img.firstInoB)*BlockSize + int(n)*rawInodeSize
}
