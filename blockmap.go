package ospfs

// Indirect2Entry describes one slot of a doubly-indirect block: the inner
// indirect block it points to (0 if unused) and, when present, that inner
// block's own data-block slots.
type Indirect2Entry struct {
	InnerBlock uint32
	InnerSlots []uint32
}

// InodeBlockMap is the fully-expanded pointer structure of a REG/DIR
// inode, exposed for consistency checking (fsck) without leaking rawInode
// itself outside the package.
type InodeBlockMap struct {
	Direct           [NDirect]uint32
	Indirect         uint32
	IndirectSlots    []uint32
	Indirect2        uint32
	Indirect2Entries []Indirect2Entry
}

// BlockMap walks every pointer level of ref and returns the full structure.
// Unused indirect/indirect2 blocks yield nil slot slices. Grounded on the
// same three-level traversal BlockNoForOffset performs, generalized to
// visit every slot rather than just the one matching a given offset.
func (ref *InodeRef) BlockMap() (InodeBlockMap, error) {
	raw, err := ref.readRaw()
	if err != nil {
		return InodeBlockMap{}, err
	}

	m := InodeBlockMap{
		Direct:    raw.Direct,
		Indirect:  raw.Indirect,
		Indirect2: raw.Indirect2,
	}

	if raw.Indirect != 0 {
		m.IndirectSlots = make([]uint32, NIndirect)
		for i := uint32(0); i < NIndirect; i++ {
			m.IndirectSlots[i] = readPtrSlot(ref.img, raw.Indirect, i)
		}
	}

	if raw.Indirect2 != 0 {
		m.Indirect2Entries = make([]Indirect2Entry, NIndirect)
		for i := uint32(0); i < NIndirect; i++ {
			inner := readPtrSlot(ref.img, raw.Indirect2, i)
			entry := Indirect2Entry{InnerBlock: inner}
			if inner != 0 {
				entry.InnerSlots = make([]uint32, NIndirect)
				for j := uint32(0); j < NIndirect; j++ {
					entry.InnerSlots[j] = readPtrSlot(ref.img, inner, j)
				}
			}
			m.Indirect2Entries[i] = entry
		}
	}

	return m, nil
}
