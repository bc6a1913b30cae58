// Package npt implements the multi-level nested/second-stage page-table
// engine: walk, map, unmap, remap, protect and query across levels,
// honouring mixed 4 KiB/2 MiB/1 GiB page sizes, generic over an
// architecture's entry encoding so the walk itself is written once.
package npt

import (
	"github.com/blacktop/go-nptcore/addr"
	"github.com/blacktop/go-nptcore/frame"
	"github.com/blacktop/go-nptcore/hverror"
)

// PageTable is the generic engine, parameterized over an architecture's
// entry type E and the EntryOps that interpret it.
type PageTable[E Entry] struct {
	ops   EntryOps[E]
	meta  Metadata
	alloc frame.Allocator
	flush FlushFunc
	root  addr.HostPhysAddr
}

// TryNew allocates the root table frame and returns a ready-to-use engine.
// Fails with NoMemory if the allocator has nothing left.
func TryNew[E Entry](ops EntryOps[E], meta Metadata, alloc frame.Allocator, flush FlushFunc) (*PageTable[E], error) {
	root, ok := frame.AllocZero(alloc)
	if !ok {
		return nil, hverror.New("npt.TryNew", hverror.NoMemory, "allocating root table frame")
	}
	if flush == nil {
		flush = NoopFlush
	}
	return &PageTable[E]{ops: ops, meta: meta, alloc: alloc, flush: flush, root: root}, nil
}

// Root returns the page table's top-level frame address, e.g. for encoding
// into an architecture's pointer register (EPTP, VTTBR_EL2, hgatp).
func (t *PageTable[E]) Root() addr.HostPhysAddr { return t.root }

// walkStep descends one level, allocating a child table if the entry is
// empty. Returns the child table's physical address, or an error if the
// entry is already a huge leaf (cannot descend further).
func (t *PageTable[E]) walkStep(tablePA addr.HostPhysAddr, idx int) (addr.HostPhysAddr, error) {
	tbl := tableSlice[E](t.alloc, tablePA, t.meta.EntriesPerTable())
	e := tbl[idx]
	if !t.ops.IsPresent(e) {
		child, ok := frame.AllocZero(t.alloc)
		if !ok {
			return 0, hverror.New("npt.walk", hverror.NoMemory, "allocating intermediate table")
		}
		tbl[idx] = t.ops.MakeIntermediate(child)
		return child, nil
	}
	if t.ops.IsHuge(e) {
		return 0, hverror.New("npt.walk", hverror.BadState, "MappedToHugePage")
	}
	return t.ops.ChildTable(e), nil
}

// descendToLeafLevel walks from the root to targetLevel, allocating
// intermediate tables along the way, and returns the physical address of
// the table at targetLevel plus the index within it.
func (t *PageTable[E]) descendToLeafLevel(gpa uint64, targetLevel int) (addr.HostPhysAddr, int, error) {
	cur := t.root
	for level := 0; level < targetLevel; level++ {
		idx := t.meta.Index(gpa, level)
		next, err := t.walkStep(cur, idx)
		if err != nil {
			return 0, 0, err
		}
		cur = next
	}
	return cur, t.meta.Index(gpa, targetLevel), nil
}

// Map installs a single leaf of the given size. AlreadyExists if the target
// PTE is already present; InvalidInput if vaddr/paddr do not match size.
func (t *PageTable[E]) Map(vaddr uint64, paddr addr.HostPhysAddr, size PageSize, flags MappingFlags) error {
	return t.mapOne(vaddr, paddr, size, flags, false)
}

func (t *PageTable[E]) mapOne(vaddr uint64, paddr addr.HostPhysAddr, size PageSize, flags MappingFlags, overwrite bool) error {
	level, ok := t.meta.LevelForSize(size)
	if !ok {
		return hverror.New("npt.Map", hverror.InvalidInput, "unsupported page size")
	}
	if !size.Covers(vaddr) || !size.Covers(uint64(paddr)) {
		return hverror.New("npt.Map", hverror.InvalidInput, "vaddr/paddr not aligned to page size")
	}

	tablePA, idx, err := t.descendToLeafLevel(vaddr, level)
	if err != nil {
		return err
	}
	tbl := tableSlice[E](t.alloc, tablePA, t.meta.EntriesPerTable())
	if t.ops.IsPresent(tbl[idx]) && !overwrite {
		return hverror.New("npt.Map", hverror.AlreadyExists, "PTE already mapped")
	}
	tbl[idx] = t.ops.MakeLeaf(paddr, flags, size)

	g := addr.GuestPhysAddr(vaddr)
	t.flush(&g)
	return nil
}

// MapRegion bulk-maps [vaddr, vaddr+size) via paddrFor(va), picking the
// largest page size whose alignment permits at each sub-range when
// allowHuge is set; overwrite=false means any existing PTE in range fails
// the whole call. Entries installed before the failing one stay installed;
// cleaning partial state up is the caller's job.
func (t *PageTable[E]) MapRegion(vaddr uint64, size uint64, paddrFor func(va uint64) addr.HostPhysAddr, flags MappingFlags, allowHuge bool, overwrite bool) error {
	if !Size4K.IsAligned(vaddr, size) {
		return hverror.New("npt.MapRegion", hverror.InvalidInput, "range not 4K aligned")
	}
	va := vaddr
	end := vaddr + size
	for va < end {
		remaining := end - va
		pageSize := Size4K
		if allowHuge {
			pageSize = LargestFitting(va, remaining)
		}
		pa := paddrFor(va)
		if err := t.mapOne(va, pa, pageSize, flags, overwrite); err != nil {
			return err
		}
		va += uint64(pageSize)
	}
	return nil
}

// walkReadOnly descends following existing entries without installing
// anything, returning the level at which a leaf (huge or bottom) was found.
func (t *PageTable[E]) walkReadOnly(gpa uint64) (tablePA addr.HostPhysAddr, idx int, level int, leaf E, found bool) {
	cur := t.root
	for lvl := 0; lvl < t.meta.Levels; lvl++ {
		i := t.meta.Index(gpa, lvl)
		tbl := tableSlice[E](t.alloc, cur, t.meta.EntriesPerTable())
		e := tbl[i]
		if !t.ops.IsPresent(e) {
			return 0, 0, 0, e, false
		}
		if t.ops.IsHuge(e) || lvl == t.meta.Levels-1 {
			return cur, i, lvl, e, true
		}
		cur = t.ops.ChildTable(e)
	}
	var zero E
	return 0, 0, 0, zero, false
}

// Query walks without mutation and reports the leaf covering vaddr. The
// returned host-physical address includes vaddr's offset within the leaf,
// not just the leaf's frame base, so callers get the exact byte vaddr
// refers to rather than the start of whatever page/huge-page contains it.
func (t *PageTable[E]) Query(vaddr uint64) (addr.HostPhysAddr, MappingFlags, PageSize, error) {
	_, _, level, leaf, found := t.walkReadOnly(vaddr)
	if !found {
		return 0, 0, 0, hverror.New("npt.Query", hverror.InvalidInput, "not mapped")
	}
	size := t.meta.LeafSize[level]
	offset := vaddr & (uint64(size) - 1)
	pa := addr.HostPhysAddr(uint64(t.ops.Frame(leaf)) + offset)
	return pa, t.ops.Flags(leaf), size, nil
}

// Unmap removes the single leaf spanning vaddr and returns the frame it
// previously pointed to, its page size and flags.
func (t *PageTable[E]) Unmap(vaddr uint64) (addr.HostPhysAddr, PageSize, MappingFlags, error) {
	tablePA, idx, level, leaf, found := t.walkReadOnly(vaddr)
	if !found {
		return 0, 0, 0, hverror.New("npt.Unmap", hverror.InvalidInput, "not mapped")
	}
	tbl := tableSlice[E](t.alloc, tablePA, t.meta.EntriesPerTable())
	pa := t.ops.Frame(leaf)
	flags := t.ops.Flags(leaf)
	size := t.meta.LeafSize[level]
	tbl[idx] = t.ops.Empty()

	g := addr.GuestPhysAddr(vaddr)
	t.flush(&g)
	return pa, size, flags, nil
}

// UnmapRegion removes every leaf in [vaddr, vaddr+size). When
// releaseIntermediates is set, child tables left entirely empty by the
// sweep are themselves deallocated. Holes (already-unmapped sub-ranges)
// are tolerated silently.
func (t *PageTable[E]) UnmapRegion(vaddr uint64, size uint64, releaseIntermediates bool) error {
	if !Size4K.IsAligned(vaddr, size) {
		return hverror.New("npt.UnmapRegion", hverror.InvalidInput, "range not 4K aligned")
	}
	va := vaddr
	end := vaddr + size
	for va < end {
		_, _, level, _, found := t.walkReadOnly(va)
		if !found {
			va += uint64(Size4K)
			continue
		}
		pageSize := t.meta.LeafSize[level]
		if _, _, _, err := t.Unmap(va); err != nil {
			return err
		}
		va += uint64(pageSize)
	}
	if releaseIntermediates {
		t.pruneEmptyIntermediates()
	}
	return nil
}

// pruneEmptyIntermediates walks the whole table tree below the root and
// releases any intermediate table that has become entirely empty. It scans
// unconditionally rather than tracking the exact sub-range touched by one
// UnmapRegion call: simpler to get right, and the cost is bounded by the
// number of live intermediate tables, not by guest-physical range size.
func (t *PageTable[E]) pruneEmptyIntermediates() {
	var walk func(tablePA addr.HostPhysAddr, level int) bool
	walk = func(tablePA addr.HostPhysAddr, level int) bool {
		tbl := tableSlice[E](t.alloc, tablePA, t.meta.EntriesPerTable())
		anyPresent := false
		for i, e := range tbl {
			if !t.ops.IsPresent(e) {
				continue
			}
			if !t.ops.IsHuge(e) && level < t.meta.Levels-1 {
				child := t.ops.ChildTable(e)
				if empty := walk(child, level+1); empty {
					t.alloc.DeallocFrame(child)
					tbl[i] = t.ops.Empty()
					continue
				}
			}
			anyPresent = true
		}
		return !anyPresent
	}
	walk(t.root, 0)
}

// Remap replaces the frame mapped at the leaf covering vaddr. The caller
// need not align vaddr to the leaf's page size; the engine rounds down to
// the covering page.
func (t *PageTable[E]) Remap(vaddr uint64, newPaddr addr.HostPhysAddr, flags MappingFlags) error {
	tablePA, idx, level, _, found := t.walkReadOnly(vaddr)
	if !found {
		return hverror.New("npt.Remap", hverror.InvalidInput, "not mapped")
	}
	size := t.meta.LeafSize[level]
	tbl := tableSlice[E](t.alloc, tablePA, t.meta.EntriesPerTable())
	tbl[idx] = t.ops.MakeLeaf(newPaddr, flags, size)

	covering := addr.GuestPhysAddr(vaddr &^ (uint64(size) - 1))
	t.flush(&covering)
	return nil
}

// ProtectRegion changes flags across [vaddr, vaddr+size). When lazy is
// false, encountering an unmapped sub-range fails with BadState; when lazy
// is true, holes are skipped. Returns a FlushToken the caller may Apply or
// Ignore instead of an immediate flush.
func (t *PageTable[E]) ProtectRegion(vaddr uint64, size uint64, newFlags MappingFlags, lazy bool) (*FlushToken, error) {
	if !Size4K.IsAligned(vaddr, size) {
		return nil, hverror.New("npt.ProtectRegion", hverror.InvalidInput, "range not 4K aligned")
	}
	va := vaddr
	end := vaddr + size
	mutated := false
	for va < end {
		tablePA, idx, level, leaf, found := t.walkReadOnly(va)
		if !found {
			if !lazy {
				return nil, hverror.New("npt.ProtectRegion", hverror.BadState, "gap in range")
			}
			va += uint64(Size4K)
			continue
		}
		pageSize := t.meta.LeafSize[level]
		if t.ops.Flags(leaf) != newFlags {
			tbl := tableSlice[E](t.alloc, tablePA, t.meta.EntriesPerTable())
			tbl[idx] = t.ops.MakeLeaf(t.ops.Frame(leaf), newFlags, pageSize)
			mutated = true
		}
		va += uint64(pageSize)
	}
	g := addr.GuestPhysAddr(vaddr)
	token := &FlushToken{fn: t.flush, gpa: &g}
	if !mutated {
		token.applied = true // nothing changed, Apply is a no-op either way
	}
	return token, nil
}

// Teardown recursively deallocates every intermediate frame (including the
// root) owned by this page table. Leaf frames are not touched -- callers
// are responsible for unmapping leaves (and releasing their frames through
// whatever backend owns them) before tearing down the table itself.
func (t *PageTable[E]) Teardown() {
	var free func(tablePA addr.HostPhysAddr, level int)
	free = func(tablePA addr.HostPhysAddr, level int) {
		if level < t.meta.Levels-1 {
			tbl := tableSlice[E](t.alloc, tablePA, t.meta.EntriesPerTable())
			for _, e := range tbl {
				if t.ops.IsPresent(e) && !t.ops.IsHuge(e) {
					free(t.ops.ChildTable(e), level+1)
				}
			}
		}
		t.alloc.DeallocFrame(tablePA)
	}
	free(t.root, 0)
}
