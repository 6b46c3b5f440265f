// Package fsck checks the testable properties spec.md §8 names (P-BITMAP,
// P-SIZE-BLOCKS, P-INDIRECT, P-NLINK, P-ZERO-TAIL) against a mounted
// image. It never repairs anything; it only reports.
package fsck

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/exp/slices"

	"github.com/dargueta/ospfs"
)

// Check runs every testable property against img and returns a single
// error aggregating every violation found, or nil if the image is
// consistent. Violations are aggregated rather than stopping at the first
// one, so a single pass reports every problem instead of failing fast.
func Check(img *ospfs.Image) error {
	var result *multierror.Error

	reachable := make(map[uint32]bool)

	for i := uint32(1); i < img.NInodes(); i++ {
		ref := img.Inode(i)
		free, err := ref.IsFree()
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("inode %d: %w", i, err))
			continue
		}
		if free {
			continue
		}

		ftype, err := ref.FType()
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("inode %d: %w", i, err))
			continue
		}
		if ftype == ospfs.FTypeSymlink {
			continue
		}

		if err := checkInode(img, ref, i, reachable); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if err := checkBitmap(img, reachable); err != nil {
		result = multierror.Append(result, err)
	}
	if err := checkNlinks(img); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}

// checkInode verifies P-SIZE-BLOCKS, P-INDIRECT, and P-ZERO-TAIL for one
// REG/DIR inode, and records every block it legitimately occupies
// (scaffolding included) into reachable for the later P-BITMAP pass.
func checkInode(img *ospfs.Image, ref *ospfs.InodeRef, ino uint32, reachable map[uint32]bool) error {
	var result *multierror.Error

	size, err := ref.Size()
	if err != nil {
		return fmt.Errorf("inode %d: %w", ino, err)
	}
	m, err := ref.BlockMap()
	if err != nil {
		return fmt.Errorf("inode %d: %w", ino, err)
	}

	blocksNeeded := ospfs.BlocksNeededFor(size)

	var dataBlocks []uint32
	for _, b := range m.Direct {
		if b != 0 {
			dataBlocks = append(dataBlocks, b)
			reachable[b] = true
		}
	}
	if m.Indirect != 0 {
		reachable[m.Indirect] = true
		for _, b := range m.IndirectSlots {
			if b != 0 {
				dataBlocks = append(dataBlocks, b)
				reachable[b] = true
			}
		}
	}
	if m.Indirect2 != 0 {
		reachable[m.Indirect2] = true
		for _, entry := range m.Indirect2Entries {
			if entry.InnerBlock == 0 {
				continue
			}
			reachable[entry.InnerBlock] = true
			for _, b := range entry.InnerSlots {
				if b != 0 {
					dataBlocks = append(dataBlocks, b)
					reachable[b] = true
				}
			}
		}
	}

	// P-SIZE-BLOCKS: exactly ceil(size/BLKSIZE) distinct reachable blocks.
	sorted := append([]uint32(nil), dataBlocks...)
	slices.Sort(sorted)
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			result = multierror.Append(result, fmt.Errorf(
				"inode %d: P-SIZE-BLOCKS: block %d reachable through more than one pointer", ino, sorted[i]))
		}
	}
	if uint32(len(dataBlocks)) != blocksNeeded {
		result = multierror.Append(result, fmt.Errorf(
			"inode %d: P-SIZE-BLOCKS: size %d needs %d block(s), found %d reachable",
			ino, size, blocksNeeded, len(dataBlocks)))
	}

	// P-INDIRECT
	wantIndirect := blocksNeeded > ospfs.NDirect
	if wantIndirect != (m.Indirect != 0) {
		result = multierror.Append(result, fmt.Errorf(
			"inode %d: P-INDIRECT: indirect pointer presence disagrees with block count", ino))
	}
	wantIndirect2 := blocksNeeded > ospfs.NDirect+ospfs.NIndirect
	if wantIndirect2 != (m.Indirect2 != 0) {
		result = multierror.Append(result, fmt.Errorf(
			"inode %d: P-INDIRECT: indirect2 pointer presence disagrees with block count", ino))
	}

	if err := checkZeroTail(ino, blocksNeeded, m); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}

func checkZeroTail(ino uint32, blocksNeeded uint32, m ospfs.InodeBlockMap) error {
	var result *multierror.Error
	if blocksNeeded <= ospfs.NDirect {
		return nil
	}

	indirectUsed := blocksNeeded - ospfs.NDirect
	if indirectUsed > ospfs.NIndirect {
		indirectUsed = ospfs.NIndirect
	}
	for i, v := range m.IndirectSlots {
		if uint32(i) >= indirectUsed && v != 0 {
			result = multierror.Append(result, fmt.Errorf(
				"inode %d: P-ZERO-TAIL: indirect slot %d beyond block count is nonzero", ino, i))
		}
	}

	if blocksNeeded <= ospfs.NDirect+ospfs.NIndirect {
		return result.ErrorOrNil()
	}

	indirect2Used := blocksNeeded - ospfs.NDirect - ospfs.NIndirect
	outerFull := indirect2Used / ospfs.NIndirect
	outerRemainder := indirect2Used % ospfs.NIndirect
	usedOuterSlots := outerFull
	if outerRemainder > 0 {
		usedOuterSlots++
	}

	for i, entry := range m.Indirect2Entries {
		idx := uint32(i)
		if idx >= usedOuterSlots {
			if entry.InnerBlock != 0 {
				result = multierror.Append(result, fmt.Errorf(
					"inode %d: P-ZERO-TAIL: indirect2 outer slot %d beyond block count is nonzero", ino, i))
			}
			continue
		}
		innerBudget := uint32(ospfs.NIndirect)
		if idx == usedOuterSlots-1 && outerRemainder > 0 {
			innerBudget = outerRemainder
		}
		for j, v := range entry.InnerSlots {
			if uint32(j) >= innerBudget && v != 0 {
				result = multierror.Append(result, fmt.Errorf(
					"inode %d: P-ZERO-TAIL: indirect2[%d] inner slot %d beyond block count is nonzero", ino, i, j))
			}
		}
	}
	return result.ErrorOrNil()
}

// checkBitmap verifies P-BITMAP across the data region: a block's bitmap
// bit must be free exactly when no live inode reaches it.
func checkBitmap(img *ospfs.Image, reachable map[uint32]bool) error {
	var result *multierror.Error
	for b := img.FirstDataBlock(); b < uint32(img.TotalBlocks()); b++ {
		free := img.BlockIsFree(b)
		if reachable[b] && free {
			result = multierror.Append(result, fmt.Errorf(
				"P-BITMAP: block %d is reachable from an inode but marked free", b))
		}
		if !reachable[b] && !free {
			result = multierror.Append(result, fmt.Errorf(
				"P-BITMAP: block %d is marked allocated but unreachable from any inode", b))
		}
	}
	return result.ErrorOrNil()
}

// checkNlinks verifies P-NLINK by walking the directory tree from root and
// counting real (non-dot) directory entries per target inode. The root
// inode is exempt: nothing points to it from a parent, since it has none.
func checkNlinks(img *ospfs.Image) error {
	var result *multierror.Error
	counts := make(map[uint32]int)

	var walk func(dirIno, parentIno uint32) error
	walk = func(dirIno, parentIno uint32) error {
		dirRef := img.Inode(dirIno)
		entries, err := ospfs.ReadDir(dirRef, parentIno)
		if err != nil {
			return fmt.Errorf("directory inode %d: %w", dirIno, err)
		}
		for _, e := range entries {
			if e.Name == "." || e.Name == ".." {
				continue
			}
			counts[e.Ino]++

			ftype, err := img.Inode(e.Ino).FType()
			if err != nil {
				result = multierror.Append(result, fmt.Errorf(
					"directory inode %d entry %q: %w", dirIno, e.Name, err))
				continue
			}
			if ftype == ospfs.FTypeDirectory {
				if err := walk(e.Ino, dirIno); err != nil {
					result = multierror.Append(result, err)
				}
			}
		}
		return nil
	}

	if err := walk(ospfs.RootIno, ospfs.RootIno); err != nil {
		result = multierror.Append(result, err)
	}

	for i := uint32(1); i < img.NInodes(); i++ {
		if i == ospfs.RootIno {
			continue
		}
		ref := img.Inode(i)
		free, err := ref.IsFree()
		if err != nil || free {
			continue
		}
		ftype, err := ref.FType()
		if err != nil || ftype == ospfs.FTypeSymlink {
			continue
		}
		nlink, err := ref.Nlink()
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("inode %d: %w", i, err))
			continue
		}
		if int(nlink) != counts[i] {
			result = multierror.Append(result, fmt.Errorf(
				"inode %d: P-NLINK: nlink=%d but %d directory entr(y/ies) reference it", i, nlink, counts[i]))
		}
	}

	return result.ErrorOrNil()
}
