package ospfs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dargueta/ospfs"
	"github.com/dargueta/ospfs/testutil"
)

func TestFollow__PlainTargetIgnoresSuperuserFlag(t *testing.T) {
	img := testutil.DefaultScratchImage(t)
	root := img.Inode(ospfs.RootIno)

	ino, err := ospfs.Symlink(img, root, "link", "/etc/passwd")
	require.NoError(t, err)
	ref := img.Inode(ino)

	target, err := ospfs.Follow(ref, true)
	require.NoError(t, err)
	assert.Equal(t, "/etc/passwd", target)

	target, err = ospfs.Follow(ref, false)
	require.NoError(t, err)
	assert.Equal(t, "/etc/passwd", target)
}

func TestFollow__ConditionalTargetPicksBranchByIdentity(t *testing.T) {
	img := testutil.DefaultScratchImage(t)
	root := img.Inode(ospfs.RootIno)

	ino, err := ospfs.Symlink(img, root, "link", "root?/root/secret:/home/guest/public")
	require.NoError(t, err)
	ref := img.Inode(ino)

	target, err := ospfs.Follow(ref, true)
	require.NoError(t, err)
	assert.Equal(t, "/root/secret", target)

	target, err = ospfs.Follow(ref, false)
	require.NoError(t, err)
	assert.Equal(t, "/home/guest/public", target)
}

func TestFollow__StoredTargetUnchangedAcrossCalls(t *testing.T) {
	img := testutil.DefaultScratchImage(t)
	root := img.Inode(ospfs.RootIno)

	ino, err := ospfs.Symlink(img, root, "link", "root?/a:/b")
	require.NoError(t, err)
	ref := img.Inode(ino)

	_, err = ospfs.Follow(ref, true)
	require.NoError(t, err)

	raw, err := ref.SymlinkTarget()
	require.NoError(t, err)
	assert.Equal(t, "root?/a:/b", raw, "resolution must not rewrite the on-image record")

	target, err := ospfs.Follow(ref, false)
	require.NoError(t, err)
	assert.Equal(t, "/b", target)
}
