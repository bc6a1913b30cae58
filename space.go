package nptcore

import (
	"time"

	"github.com/blacktop/go-nptcore/addr"
	"github.com/blacktop/go-nptcore/backend"
	"github.com/blacktop/go-nptcore/frame"
	"github.com/blacktop/go-nptcore/npt"
)

// countingAllocator wraps an embedder-supplied frame.Allocator so that every
// frame it hands out or takes back is reflected in the package's Metrics.
type countingAllocator struct {
	frame.Allocator
}

func (c countingAllocator) AllocFrame() (addr.HostPhysAddr, bool) {
	pa, ok := c.Allocator.AllocFrame()
	if ok {
		recordFrameAlloc()
	}
	return pa, ok
}

func (c countingAllocator) AllocFrames(n uint64, align uint64) (addr.HostPhysAddr, bool) {
	pa, ok := c.Allocator.AllocFrames(n, align)
	if ok {
		for i := uint64(0); i < n; i++ {
			recordFrameAlloc()
		}
	}
	return pa, ok
}

func (c countingAllocator) DeallocFrame(pa addr.HostPhysAddr) {
	c.Allocator.DeallocFrame(pa)
	recordFrameFree()
}

func (c countingAllocator) DeallocFrames(pa addr.HostPhysAddr, n uint64) {
	c.Allocator.DeallocFrames(pa, n)
	for i := uint64(0); i < n; i++ {
		recordFrameFree()
	}
}

// AddrSpace owns one guest VM's second-stage page table and the ordered set
// of regions backing it. It is not safe for concurrent use: callers
// linearize access, typically through the VMM's per-VM lock.
type AddrSpace struct {
	rng   addr.AddrRange[addr.GuestPhysAddr]
	areas *MemorySet
	pt    *npt.PageTable[npt.DefaultEntry]
	alloc frame.Allocator
}

// NewEmpty builds an address space spanning [base, base+size) with an empty
// page table. Fails with NoMemory if the root table frame cannot be
// allocated.
func NewEmpty(base addr.GuestPhysAddr, size uint64, alloc frame.Allocator) (*AddrSpace, error) {
	ca := countingAllocator{alloc}
	pt, err := npt.TryNew[npt.DefaultEntry](npt.DefaultOps, npt.DefaultMetadata, ca, npt.GlobalFlush)
	if err != nil {
		return nil, err
	}
	return &AddrSpace{
		rng:   addr.NewAddrRange(base, size),
		areas: newMemorySet(),
		pt:    pt,
		alloc: ca,
	}, nil
}

// ContainsRange reports whether [start, start+size) is wholly inside this
// address space's guest-physical range.
func (as *AddrSpace) ContainsRange(start addr.GuestPhysAddr, size uint64) bool {
	return as.rng.ContainsRange(addr.NewAddrRange(start, size))
}

func (as *AddrSpace) validateRange(op string, start addr.GuestPhysAddr, size uint64) error {
	if !npt.Size4K.Covers(uint64(start)) || !npt.Size4K.Covers(size) {
		return newErr(op, InvalidInput, "start/size not 4K aligned")
	}
	if size == 0 {
		return newErr(op, InvalidInput, "size must be > 0")
	}
	if !as.ContainsRange(start, size) {
		return newErr(op, InvalidInput, "range outside address space")
	}
	return nil
}

// MapLinear registers a Linear-backed region mapping [startGPA,
// startGPA+size) at a constant offset from startHPA and installs its
// page-table entries.
func (as *AddrSpace) MapLinear(startGPA addr.GuestPhysAddr, startHPA addr.HostPhysAddr, size uint64, flags npt.MappingFlags, allowHuge bool) error {
	if err := as.validateRange("AddrSpace.MapLinear", startGPA, size); err != nil {
		return err
	}
	b := backend.Linear{PAVAOffset: uint64(startGPA) - uint64(startHPA), AllowHuge: allowHuge}
	area := &MemoryArea{Start: startGPA, Size: size, Flags: flags, Backend: b}
	if err := as.areas.insert(area); err != nil {
		return err
	}
	if err := b.Map(as.pt, as.alloc, uint64(startGPA), size, flags); err != nil {
		as.areas.remove(startGPA)
		return wrapErr("AddrSpace.MapLinear", BadState, "installing linear mapping", err)
	}
	recordMap()
	return nil
}

// MapAlloc registers an Alloc-backed region, eagerly populating its frames
// when populate is true and leaving it empty (fault-serviced) otherwise.
func (as *AddrSpace) MapAlloc(startGPA addr.GuestPhysAddr, size uint64, flags npt.MappingFlags, populate bool) error {
	if err := as.validateRange("AddrSpace.MapAlloc", startGPA, size); err != nil {
		return err
	}
	b := backend.Alloc{Populate: populate}
	area := &MemoryArea{Start: startGPA, Size: size, Flags: flags, Backend: b}
	if err := as.areas.insert(area); err != nil {
		return err
	}
	if err := b.Map(as.pt, as.alloc, uint64(startGPA), size, flags); err != nil {
		// A populated map's own partial-failure cleanup already unwound
		// whatever it had installed (see backend.Alloc.populateEager); only
		// the bookkeeping entry needs removing here.
		as.areas.remove(startGPA)
		return wrapErr("AddrSpace.MapAlloc", NoMemory, "populating region", err)
	}
	recordMap()
	return nil
}

// Protect changes flags across [start, start+size), a no-op against any
// sub-range whose flags already match the target.
func (as *AddrSpace) Protect(start addr.GuestPhysAddr, size uint64, flags npt.MappingFlags) error {
	if err := as.validateRange("AddrSpace.Protect", start, size); err != nil {
		return err
	}
	token, err := as.pt.ProtectRegion(uint64(start), size, flags, false)
	if err != nil {
		return err
	}
	token.Apply()

	// Fault dispatch checks area flags, so a wholly-covered area takes on
	// the new flags. A partial protect narrows only the touched PTEs; the
	// area keeps describing what its backend installs on future faults
	// (areas, like huge pages, are never split).
	r := addr.NewAddrRange(start, size)
	for _, area := range as.areas.all() {
		if r.ContainsRange(area.Range()) {
			area.Flags = flags
		}
	}
	recordProtect()
	return nil
}

// Unmap removes the region covering [start, start+size) and releases any
// frames its backend owns.
func (as *AddrSpace) Unmap(start addr.GuestPhysAddr, size uint64) error {
	if err := as.validateRange("AddrSpace.Unmap", start, size); err != nil {
		return err
	}
	area, err := as.areas.remove(start)
	if err != nil {
		return err
	}
	if area.Size != size {
		warnf("unmap size %d does not match region size %d at %v", size, area.Size, start)
	}
	if err := area.Backend.Unmap(as.pt, as.alloc, uint64(start), area.Size); err != nil {
		return err
	}
	recordUnmap()
	return nil
}

// Clear removes every region, releasing all frames Alloc regions own, then
// tears down the page table's intermediate frames.
func (as *AddrSpace) Clear() {
	for _, area := range as.areas.all() {
		area.Backend.Unmap(as.pt, as.alloc, uint64(area.Start), area.Size)
	}
	as.areas = newMemorySet()
	as.pt.Teardown()
}

// HandlePageFault dispatches a nested page fault at gpa whose access
// matches accessFlags: inside the range, covered by a region, permitted by
// the region's flags, and resolvable by the region's backend -- all four or
// the fault is not handled.
func (as *AddrSpace) HandlePageFault(gpa addr.GuestPhysAddr, accessFlags npt.MappingFlags) bool {
	begin := time.Now()
	handled := as.handlePageFault(gpa, accessFlags)
	recordFault(handled, time.Since(begin))
	return handled
}

func (as *AddrSpace) handlePageFault(gpa addr.GuestPhysAddr, accessFlags npt.MappingFlags) bool {
	if !as.rng.Contains(gpa) {
		return false
	}
	area := as.areas.find(gpa)
	if area == nil {
		return false
	}
	if !area.Flags.Contains(accessFlags) {
		return false
	}
	return area.Backend.HandlePageFault(as.pt, as.alloc, uint64(gpa), area.Flags)
}

// Translate resolves gpa to its current host-physical mapping, flags and
// page size, or ok=false if unmapped.
func (as *AddrSpace) Translate(gpa addr.GuestPhysAddr) (addr.HostPhysAddr, npt.MappingFlags, npt.PageSize, bool) {
	pa, flags, size, err := as.pt.Query(uint64(gpa))
	if err != nil {
		return 0, 0, 0, false
	}
	return pa, flags, size, true
}

// TranslateAndGetLimit resolves gpa and also reports how many bytes past it
// the returned host-physical address stays valid for, which is what lets the
// accessor chunk a multi-page read/write without knowing about page
// boundaries itself. For a Linear region the host backing is contiguous by
// construction, so the limit runs to the end of the region; for an Alloc
// region each leaf's frames were allocated independently, so the limit stops
// at the covering leaf's end (or the region's, whichever is nearer).
func (as *AddrSpace) TranslateAndGetLimit(gpa addr.GuestPhysAddr) (addr.HostPhysAddr, uint64, bool) {
	pa, _, size, err := as.pt.Query(uint64(gpa))
	if err != nil {
		return 0, 0, false
	}
	area := as.areas.find(gpa)
	if area == nil {
		return 0, 0, false
	}
	limit := uint64(area.Start) + area.Size - uint64(gpa)
	if _, linear := area.Backend.(backend.Linear); !linear {
		pageEnd := (uint64(gpa) &^ (uint64(size) - 1)) + uint64(size)
		if residual := pageEnd - uint64(gpa); residual < limit {
			limit = residual
		}
	}
	return pa, limit, true
}

// ReverseLookup finds the guest-physical address a host-physical frame is
// currently mapped at, by scanning every region's page-table coverage. It
// exists for callers that already hold a host pointer and need to know
// which guest region it belongs to.
func (as *AddrSpace) ReverseLookup(pa addr.HostPhysAddr) (addr.GuestPhysAddr, bool) {
	for _, area := range as.areas.all() {
		gpa := area.Start
		end := area.Start + addr.GuestPhysAddr(area.Size)
		for gpa < end {
			foundPA, _, size, err := as.pt.Query(uint64(gpa))
			if err == nil && foundPA == pa {
				return gpa, true
			}
			if err == nil {
				gpa += addr.GuestPhysAddr(size)
			} else {
				gpa += addr.GuestPhysAddr(npt.Size4K)
			}
		}
	}
	return 0, false
}
