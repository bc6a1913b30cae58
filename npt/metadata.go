package npt

// Metadata fixes the shape of a multi-level radix page table: how many
// levels it has, how many bits of the guest-physical address each level
// consumes, and which levels may terminate in a huge-page leaf instead of
// pointing at a child table.
//
// Every architecture this core models (Intel EPT, and by analogy ARM64
// Stage-2 and RISC-V G-stage) shares the same 4-level, 512-entries-per-table
// shape over a 4 KiB base granule, so one Metadata value serves all of
// them; only the Entry encoding differs.
type Metadata struct {
	// Levels is the table depth, top level first. 4 for the standard
	// x86-64/AArch64 4 KiB-granule hierarchy (PML4/PDPT/PD/PT or
	// equivalent).
	Levels int

	// IndexShift[i] is the bit position of the index consumed at level i.
	// Must be strictly decreasing and IndexShift[Levels-1] == PageShift.
	IndexShift []uint

	// IndexBits is the number of address bits each level consumes; every
	// table therefore has 1<<IndexBits entries.
	IndexBits uint

	// PageShift is log2 of the base (4 KiB) page size.
	PageShift uint

	// LeafSize[i] is the PageSize a present-and-huge entry at level i
	// represents, or 0 if level i can never terminate early (in
	// DefaultAMD64 and DefaultARM64, only the top level). The bottom
	// level's LeafSize is always Size4K and entries there are leaves
	// unconditionally, never "huge".
	LeafSize []PageSize
}

// EntriesPerTable is 1<<IndexBits.
func (m Metadata) EntriesPerTable() int { return 1 << m.IndexBits }

// Index returns the table index at level for guest-physical address gpa.
func (m Metadata) Index(gpa uint64, level int) int {
	mask := uint64(m.EntriesPerTable() - 1)
	return int((gpa >> m.IndexShift[level]) & mask)
}

// LevelForSize returns the table level at which a leaf of the given size is
// installed, or ok=false if size is not one of this metadata's leaf sizes.
func (m Metadata) LevelForSize(size PageSize) (level int, ok bool) {
	for i, s := range m.LeafSize {
		if s == size {
			return i, true
		}
	}
	return 0, false
}

// DefaultAMD64 is the 4-level, 4 KiB/2 MiB/1 GiB hierarchy shared by Intel
// EPT: PML4 (no huge leaves), PDPT (1 GiB), PD (2 MiB), PT (4 KiB, always a
// leaf).
var DefaultAMD64 = Metadata{
	Levels:     4,
	IndexShift: []uint{39, 30, 21, 12},
	IndexBits:  9,
	PageShift:  12,
	LeafSize:   []PageSize{0, Size1G, Size2M, Size4K},
}

// DefaultARM64 is the analogous 4-level Stage-2 hierarchy used by ARM64
// (4 KiB granule): the same shape as DefaultAMD64, named separately so that
// a caller selecting by architecture does not have to know the two layouts
// happen to coincide.
var DefaultARM64 = Metadata{
	Levels:     4,
	IndexShift: []uint{39, 30, 21, 12},
	IndexBits:  9,
	PageShift:  12,
	LeafSize:   []PageSize{0, Size1G, Size2M, Size4K},
}
