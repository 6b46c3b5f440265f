package ospfs

// Design-level constants (spec.md §3). BlockSize is a compile-time constant
// because the three-level addressing arithmetic (NINDIRECT, MAXFILEBLKS) is
// derived from it; a real deployment would never change it without
// reformatting every image.
const (
	// BlockSize is the fixed block size in bytes (power of two).
	BlockSize = 1024

	// NDirect is the number of direct block pointers stored in an inode.
	NDirect = 10

	// blockPtrSize is sizeof(blkno) for the purposes of computing NIndirect:
	// block numbers are stored on-image as 32-bit little-endian integers.
	blockPtrSize = 4

	// NIndirect is the number of block pointers that fit in one block.
	NIndirect = BlockSize / blockPtrSize

	// MaxFileBlocks is the largest number of data blocks a single file can
	// reference: direct + singly-indirect + doubly-indirect.
	MaxFileBlocks = NDirect + NIndirect + NIndirect*NIndirect

	// MaxNameLen is the maximum byte length of a file name, not counting the
	// trailing zero byte the name field reserves for it (spec.md §3, §9).
	MaxNameLen = 59

	// MaxSymlinkLen is the maximum byte length of a symlink target. Symlink
	// targets are stored inline in the inode record (spec.md §3), in a
	// SymlinkTarget field of their own sized to match the block-pointer
	// region: (NDirect+2) block pointers wide.
	MaxSymlinkLen = (NDirect + 2) * blockPtrSize

	// DirentrySize is the fixed byte width of one directory entry: a 4-byte
	// inode number followed by a zero-terminated name field sized to hold
	// MaxNameLen bytes plus its trailing zero (spec.md §9, "symlink name
	// truncation").
	DirentrySize = 4 + MaxNameLen + 1

	// RootIno is the inode number of the root directory. Inode number 0 is
	// never used, mirroring block number 0's role as the null sentinel: a
	// directory entry with Ino == 0 is an empty slot (spec.md §3, §9).
	RootIno = 1

	// supermagic identifies a valid OSPFS superblock.
	supermagic = 0x0BADF00D
)

// conditionalSymlinkPrefix is the literal marker for a conditional symlink
// (spec.md §4.7, §9): the stored target starts with this 5-byte prefix iff
// it encodes a "root?PRIMARY:FALLBACK" choice.
const conditionalSymlinkPrefix = "root?"
