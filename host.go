package ospfs

import "strings"

// Identity is the permission context a host passes into engine operations
// that need it. OSPFS only ever asks one question of it (spec.md §1): is
// the caller the superuser, which conditional symlinks consult.
type Identity struct {
	IsSuperuser bool
}

// maxSymlinkHops bounds path resolution so a symlink cycle surfaces as
// ErrLinkLoop instead of looping forever (spec.md §7 ELOOP).
const maxSymlinkHops = 16

// FileSystem is the host adapter surface (spec.md §2 component 9, §6): a
// thin façade translating slash-separated paths into the dir+name calls
// the namespace and directory layers actually operate on, threading parent
// inode numbers so "." and ".." resolve correctly even though no on-image
// structure stores a parent pointer.
type FileSystem struct {
	img *Image
}

// Mount wraps an already-open Image as a path-addressable file system.
func Mount(img *Image) *FileSystem {
	return &FileSystem{img: img}
}

func splitPath(path string) []string {
	var out []string
	for _, part := range strings.Split(path, "/") {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Lookup implements spec.md §6's lookup(dir, name): "." and ".." are
// handled here rather than in the directory layer, since they require
// parent context the on-image directory record does not carry.
func (fs *FileSystem) Lookup(dirRef *InodeRef, parentIno uint32, name string) (uint32, error) {
	switch name {
	case ".":
		return dirRef.Num, nil
	case "..":
		return parentIno, nil
	default:
		ino, _, err := FindDirEntry(dirRef, name)
		return ino, err
	}
}

// Resolve walks path from the root, following symlinks (including
// relative ones, resolved against the directory containing the symlink)
// and enforcing a hop limit, and returns the final inode plus its parent's
// inode number.
func (fs *FileSystem) Resolve(identity Identity, path string) (*InodeRef, uint32, error) {
	dirRef := fs.img.Inode(RootIno)
	parent := uint32(RootIno)
	remaining := splitPath(path)
	hops := 0

	for len(remaining) > 0 {
		comp := remaining[0]
		remaining = remaining[1:]

		ino, err := fs.Lookup(dirRef, parent, comp)
		if err != nil {
			return nil, 0, err
		}
		next := fs.img.Inode(ino)
		ftype, err := next.FType()
		if err != nil {
			return nil, 0, err
		}

		if ftype == FTypeSymlink {
			hops++
			if hops > maxSymlinkHops {
				return nil, 0, NewDriverError(ErrLinkLoop)
			}
			target, err := Follow(next, identity.IsSuperuser)
			if err != nil {
				return nil, 0, err
			}
			targetComponents := splitPath(target)
			if strings.HasPrefix(target, "/") {
				dirRef = fs.img.Inode(RootIno)
				parent = RootIno
			}
			remaining = append(targetComponents, remaining...)
			continue
		}

		parent = dirRef.Num
		dirRef = next
	}
	return dirRef, parent, nil
}

// FileStat is the subset of inode metadata a host typically surfaces
// through its own stat-equivalent.
type FileStat struct {
	Ino   uint32
	FType FileType
	Size  uint32
	Nlink uint16
	Mode  FileMode
}

// Stat resolves path and reports its inode's metadata.
func (fs *FileSystem) Stat(identity Identity, path string) (FileStat, error) {
	ref, _, err := fs.Resolve(identity, path)
	if err != nil {
		return FileStat{}, err
	}
	raw, err := ref.readRaw()
	if err != nil {
		return FileStat{}, err
	}
	return FileStat{
		Ino:   ref.Num,
		FType: FileType(raw.FType),
		Size:  raw.Size,
		Nlink: raw.Nlink,
		Mode:  FileMode(raw.Mode),
	}, nil
}

// Truncate implements spec.md §6's truncate(inode, new_size): a thin
// wrapper over ChangeSize that refuses directories (EPERM), matching the
// caller-side check spec.md §4.3 assigns to whatever stands in for
// ospfs_notify_change.
func (fs *FileSystem) Truncate(ref *InodeRef, newSize uint32) error {
	ftype, err := ref.FType()
	if err != nil {
		return err
	}
	if ftype == FTypeDirectory {
		return NewDriverErrorWithMessage(ErrNotPermitted, "cannot resize a directory directly")
	}
	return ChangeSize(ref, newSize)
}

// CreateAt resolves dirPath and creates name within it (spec.md §4.6).
func (fs *FileSystem) CreateAt(identity Identity, dirPath, name string, mode FileMode) (uint32, error) {
	dirRef, _, err := fs.Resolve(identity, dirPath)
	if err != nil {
		return 0, err
	}
	return Create(fs.img, dirRef, name, mode)
}

// LinkAt resolves srcPath and dirPath and links srcPath's inode into dirPath
// under dstName.
func (fs *FileSystem) LinkAt(identity Identity, srcPath, dirPath, dstName string) error {
	srcRef, _, err := fs.Resolve(identity, srcPath)
	if err != nil {
		return err
	}
	dirRef, _, err := fs.Resolve(identity, dirPath)
	if err != nil {
		return err
	}
	return Link(fs.img, srcRef.Num, dirRef, dstName)
}

// UnlinkAt resolves dirPath and removes name from it.
func (fs *FileSystem) UnlinkAt(identity Identity, dirPath, name string) error {
	dirRef, _, err := fs.Resolve(identity, dirPath)
	if err != nil {
		return err
	}
	return Unlink(fs.img, dirRef, name)
}

// SymlinkAt resolves dirPath and creates a symlink named name within it.
func (fs *FileSystem) SymlinkAt(identity Identity, dirPath, name, target string) (uint32, error) {
	dirRef, _, err := fs.Resolve(identity, dirPath)
	if err != nil {
		return 0, err
	}
	return Symlink(fs.img, dirRef, name, target)
}

// ReadDirAt resolves dirPath and lists its entries, dots included.
func (fs *FileSystem) ReadDirAt(identity Identity, dirPath string) ([]DirEntry, error) {
	dirRef, parent, err := fs.Resolve(identity, dirPath)
	if err != nil {
		return nil, err
	}
	return ReadDir(dirRef, parent)
}
