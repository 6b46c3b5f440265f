package ospfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsIndirect__Boundaries(t *testing.T) {
	assert.False(t, isIndirect(NDirect-1))
	assert.True(t, isIndirect(NDirect))
	assert.True(t, isIndirect(NDirect+NIndirect-1))
	assert.False(t, isIndirect(NDirect+NIndirect))
}

func TestIsIndirect2__Boundaries(t *testing.T) {
	assert.False(t, isIndirect2(NDirect+NIndirect-1))
	assert.True(t, isIndirect2(NDirect+NIndirect))
}

func TestDirectSlot__EachRange(t *testing.T) {
	assert.Equal(t, uint32(3), directSlot(3))
	assert.Equal(t, uint32(0), directSlot(NDirect))
	assert.Equal(t, uint32(5), directSlot(NDirect+5))
	assert.Equal(t, uint32(0), directSlot(NDirect+NIndirect))
	assert.Equal(t, uint32(1), directSlot(NDirect+NIndirect+NIndirect+1))
}

func TestIndirSlot__OnlyMeaningfulForIndirect2(t *testing.T) {
	assert.Equal(t, uint32(0), indirSlot(NDirect))
	assert.Equal(t, uint32(0), indirSlot(NDirect+NIndirect))
	assert.Equal(t, uint32(1), indirSlot(NDirect+NIndirect+NIndirect))
}

func TestBlockNoForOffset__PastEndOfFileIsZero(t *testing.T) {
	img, err := Format(512, 64)
	require.NoError(t, err)

	root := img.Inode(RootIno)
	ino, err := Create(img, root, "a", FileMode(S_IRUSR|S_IWUSR))
	require.NoError(t, err)

	ref := img.Inode(ino)
	b, err := BlockNoForOffset(ref, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), b, "empty file has no backing block")
}

func TestBlockNoForOffset__SymlinkAlwaysZero(t *testing.T) {
	img, err := Format(512, 64)
	require.NoError(t, err)

	root := img.Inode(RootIno)
	ino, err := Symlink(img, root, "link", "/target")
	require.NoError(t, err)

	ref := img.Inode(ino)
	b, err := BlockNoForOffset(ref, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), b)
}

func TestBlockNoForOffset__GrowsAcrossIndirectBoundary(t *testing.T) {
	img, err := Format(4096, 64)
	require.NoError(t, err)

	root := img.Inode(RootIno)
	ino, err := Create(img, root, "big", FileMode(S_IRUSR|S_IWUSR))
	require.NoError(t, err)
	ref := img.Inode(ino)

	newSize := uint32(NDirect*BlockSize + 17)
	require.NoError(t, ChangeSize(ref, newSize))

	raw, err := ref.readRaw()
	require.NoError(t, err)
	assert.NotZero(t, raw.Indirect, "crossing NDIRECT should allocate the indirect block")
	assert.Equal(t, newSize, raw.Size)

	b, err := BlockNoForOffset(ref, NDirect*BlockSize)
	require.NoError(t, err)
	assert.NotZero(t, b, "first byte of the indirect-addressed block should resolve")
}
