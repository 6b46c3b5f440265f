package ospfs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dargueta/ospfs"
	"github.com/dargueta/ospfs/testutil"
)

func TestCreate__EmptyFileReadsZeroBytes(t *testing.T) {
	img := testutil.DefaultScratchImage(t)
	root := img.Inode(ospfs.RootIno)

	ino, err := ospfs.Create(img, root, "a", ospfs.FileMode(0o644))
	require.NoError(t, err)

	ref := img.Inode(ino)
	size, err := ref.Size()
	require.NoError(t, err)
	assert.Zero(t, size)

	var buf []byte
	n, err := ospfs.Read(ref, 0, 10, testutil.CopyOutToBuffer(&buf))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreate__DuplicateNameIsExists(t *testing.T) {
	img := testutil.DefaultScratchImage(t)
	root := img.Inode(ospfs.RootIno)

	_, err := ospfs.Create(img, root, "a", ospfs.FileMode(0o644))
	require.NoError(t, err)

	_, err = ospfs.Create(img, root, "a", ospfs.FileMode(0o644))
	require.Error(t, err)
	assert.Equal(t, ospfs.ErrExists, ospfs.CodeOf(err))
}

func TestUnlink__ReleasesBlocksAndZeroesNlink(t *testing.T) {
	img := testutil.DefaultScratchImage(t)
	root := img.Inode(ospfs.RootIno)

	ino, err := ospfs.Create(img, root, "a", ospfs.FileMode(0o644))
	require.NoError(t, err)
	ref := img.Inode(ino)

	payload := make([]byte, ospfs.BlockSize)
	_, err = ospfs.Write(ref, 0, uint32(len(payload)), testutil.CopyInFromBuffer(payload), false)
	require.NoError(t, err)

	freeBefore := img.FreeBlockCount()
	require.NoError(t, ospfs.Unlink(img, root, "a"))

	assert.Equal(t, freeBefore+1, img.FreeBlockCount())
	nlink, err := ref.Nlink()
	require.NoError(t, err)
	assert.Zero(t, nlink)

	_, _, err = ospfs.FindDirEntry(root, "a")
	assert.True(t, ospfs.IsNotFound(err))
}

func TestUnlink__SecondCallIsNotFound(t *testing.T) {
	img := testutil.DefaultScratchImage(t)
	root := img.Inode(ospfs.RootIno)

	_, err := ospfs.Create(img, root, "a", ospfs.FileMode(0o644))
	require.NoError(t, err)
	require.NoError(t, ospfs.Unlink(img, root, "a"))

	err = ospfs.Unlink(img, root, "a")
	require.Error(t, err)
	assert.True(t, ospfs.IsNotFound(err))
}

func TestLink__PreservesContentAfterOriginalUnlinked(t *testing.T) {
	img := testutil.DefaultScratchImage(t)
	root := img.Inode(ospfs.RootIno)

	ino, err := ospfs.Create(img, root, "a", ospfs.FileMode(0o644))
	require.NoError(t, err)
	ref := img.Inode(ino)

	payload := []byte("hello")
	_, err = ospfs.Write(ref, 0, uint32(len(payload)), testutil.CopyInFromBuffer(payload), false)
	require.NoError(t, err)

	require.NoError(t, ospfs.Link(img, ino, root, "b"))
	require.NoError(t, ospfs.Unlink(img, root, "a"))

	bIno, _, err := ospfs.FindDirEntry(root, "b")
	require.NoError(t, err)
	bRef := img.Inode(bIno)

	var got []byte
	_, err = ospfs.Read(bRef, 0, uint32(len(payload)), testutil.CopyOutToBuffer(&got))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	nlink, err := bRef.Nlink()
	require.NoError(t, err)
	assert.Equal(t, uint16(1), nlink)
}

func TestSymlink__RejectsOversizedTarget(t *testing.T) {
	img := testutil.DefaultScratchImage(t)
	root := img.Inode(ospfs.RootIno)

	target := make([]byte, ospfs.MaxSymlinkLen+1)
	_, err := ospfs.Symlink(img, root, "link", string(target))
	require.Error(t, err)
	assert.Equal(t, ospfs.ErrNameTooLong, ospfs.CodeOf(err))
}

func TestSymlink__UnlinkFreesNoDataBlocks(t *testing.T) {
	img := testutil.DefaultScratchImage(t)
	root := img.Inode(ospfs.RootIno)

	_, err := ospfs.Symlink(img, root, "link", "/somewhere")
	require.NoError(t, err)

	freeBefore := img.FreeBlockCount()
	require.NoError(t, ospfs.Unlink(img, root, "link"))
	assert.Equal(t, freeBefore, img.FreeBlockCount(), "symlink storage is inline, nothing to release")
}
