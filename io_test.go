package ospfs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dargueta/ospfs"
	"github.com/dargueta/ospfs/testutil"
)

func TestReadWrite__RoundTrip(t *testing.T) {
	img := testutil.DefaultScratchImage(t)
	root := img.Inode(ospfs.RootIno)
	ino, err := ospfs.Create(img, root, "a", ospfs.FileMode(ospfs.S_IRUSR|ospfs.S_IWUSR))
	require.NoError(t, err)
	ref := img.Inode(ino)

	payload := []byte("hello, ospfs")
	n, err := ospfs.Write(ref, 0, uint32(len(payload)), testutil.CopyInFromBuffer(payload), false)
	require.NoError(t, err)
	require.Equal(t, uint32(len(payload)), n)

	var got []byte
	n, err = ospfs.Read(ref, 0, uint32(len(payload)), testutil.CopyOutToBuffer(&got))
	require.NoError(t, err)
	assert.Equal(t, uint32(len(payload)), n)
	assert.Equal(t, payload, got)
}

func TestRead__ClampsPastEndOfFile(t *testing.T) {
	img := testutil.DefaultScratchImage(t)
	root := img.Inode(ospfs.RootIno)
	ino, err := ospfs.Create(img, root, "a", ospfs.FileMode(ospfs.S_IRUSR|ospfs.S_IWUSR))
	require.NoError(t, err)
	ref := img.Inode(ino)

	var got []byte
	n, err := ospfs.Read(ref, 0, 10, testutil.CopyOutToBuffer(&got))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, got)
}

func TestWrite__AppendModeIgnoresRequestedPos(t *testing.T) {
	img := testutil.DefaultScratchImage(t)
	root := img.Inode(ospfs.RootIno)
	ino, err := ospfs.Create(img, root, "a", ospfs.FileMode(ospfs.S_IRUSR|ospfs.S_IWUSR))
	require.NoError(t, err)
	ref := img.Inode(ino)

	first := []byte("abc")
	_, err = ospfs.Write(ref, 0, uint32(len(first)), testutil.CopyInFromBuffer(first), false)
	require.NoError(t, err)

	second := []byte("def")
	n, err := ospfs.Write(ref, 0, uint32(len(second)), testutil.CopyInFromBuffer(second), true)
	require.NoError(t, err)
	require.Equal(t, uint32(len(second)), n)

	var got []byte
	_, err = ospfs.Read(ref, 0, 6, testutil.CopyOutToBuffer(&got))
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(got))
}

func TestWrite__GrowsFileWhenWritingPastCurrentSize(t *testing.T) {
	img := testutil.DefaultScratchImage(t)
	root := img.Inode(ospfs.RootIno)
	ino, err := ospfs.Create(img, root, "a", ospfs.FileMode(ospfs.S_IRUSR|ospfs.S_IWUSR))
	require.NoError(t, err)
	ref := img.Inode(ino)

	payload := []byte("extend me")
	_, err = ospfs.Write(ref, 100, uint32(len(payload)), testutil.CopyInFromBuffer(payload), false)
	require.NoError(t, err)

	size, err := ref.Size()
	require.NoError(t, err)
	assert.Equal(t, uint32(100+len(payload)), size)
}
