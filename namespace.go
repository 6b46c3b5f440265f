package ospfs

// checkNamespacePreconditions implements the shared preconditions spec.md
// §4.6 lists for the name-creating operations (Create, Link, Symlink): dir
// must actually be a directory, the name must fit, and no entry with that
// name may already exist. Unlink does not call it; it looks the name up
// directly and fails with ErrNotFound when it is absent.
func checkNamespacePreconditions(dirRef *InodeRef, name string) error {
	ftype, err := dirRef.FType()
	if err != nil {
		return err
	}
	if ftype != FTypeDirectory {
		return NewDriverError(ErrNotADirectory)
	}
	if len(name) > MaxNameLen {
		return NewDriverError(ErrNameTooLong)
	}
	if _, _, err := FindDirEntry(dirRef, name); err == nil {
		return NewDriverError(ErrExists)
	} else if CodeOf(err) != ErrNotFound {
		return err
	}
	return nil
}

// Create implements spec.md §4.6's create(dir, name, mode): allocates a
// free inode, fully populates it as an empty regular file, and only then
// publishes the directory entry that makes it reachable by name — so a
// concurrent-looking reader via lookup/readdir never observes a dirent
// whose inode isn't ready yet.
func Create(img *Image, dirRef *InodeRef, name string, mode FileMode) (uint32, error) {
	if err := checkNamespacePreconditions(dirRef, name); err != nil {
		return 0, err
	}

	free, err := img.FindFreeInode()
	if err != nil {
		return 0, err
	}

	raw := rawInode{
		FType: uint8(FTypeRegular),
		Nlink: 1,
		Mode:  uint16(mode),
	}
	if err := free.writeRaw(&raw); err != nil {
		return 0, err
	}

	if err := AddDirEntry(dirRef, free.Num, name); err != nil {
		return 0, err
	}
	return free.Num, nil
}

// Link implements spec.md §4.6's link(src, dir, dst_name): publishes a new
// name for an existing inode and bumps its link count. Hard-linking a
// directory is disallowed by contract, not by this function — the caller
// is responsible for refusing that before calling Link.
func Link(img *Image, srcIno uint32, dirRef *InodeRef, dstName string) error {
	if err := checkNamespacePreconditions(dirRef, dstName); err != nil {
		return err
	}
	if err := AddDirEntry(dirRef, srcIno, dstName); err != nil {
		return err
	}
	if _, err := img.Inode(srcIno).AdjustNlink(1); err != nil {
		return err
	}
	return nil
}

// Unlink implements spec.md §4.6's unlink(dir, name): clears the directory
// entry and decrements the target inode's link count. When the count
// reaches zero, the target's storage is released: regular files and
// directories are truncated to zero via ChangeSize; symlinks need nothing
// further since their content lives inline in the inode record.
func Unlink(img *Image, dirRef *InodeRef, name string) error {
	ino, index, err := FindDirEntry(dirRef, name)
	if err != nil {
		return err
	}
	if err := RemoveDirEntryAt(dirRef, index); err != nil {
		return err
	}

	target := img.Inode(ino)
	nlink, err := target.AdjustNlink(-1)
	if err != nil {
		return err
	}
	if nlink != 0 {
		return nil
	}

	ftype, err := target.FType()
	if err != nil {
		return err
	}
	if ftype == FTypeSymlink {
		return nil
	}
	return ChangeSize(target, 0)
}

// Symlink implements spec.md §4.6's symlink(dir, name, target): allocates a
// free inode and stores target inline in the inode record rather than in
// data blocks.
func Symlink(img *Image, dirRef *InodeRef, name string, target string) (uint32, error) {
	if len(target) > MaxSymlinkLen {
		return 0, NewDriverError(ErrNameTooLong)
	}
	if err := checkNamespacePreconditions(dirRef, name); err != nil {
		return 0, err
	}

	free, err := img.FindFreeInode()
	if err != nil {
		return 0, err
	}

	raw := rawInode{
		FType: uint8(FTypeSymlink),
		Nlink: 1,
		Size:  uint32(len(target)),
	}
	copy(raw.SymlinkTarget[:], target)
	if err := free.writeRaw(&raw); err != nil {
		return 0, err
	}

	if err := AddDirEntry(dirRef, free.Num, name); err != nil {
		return 0, err
	}
	return free.Num, nil
}
