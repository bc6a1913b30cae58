package backend

import (
	"github.com/blacktop/go-nptcore/addr"
	"github.com/blacktop/go-nptcore/frame"
	"github.com/blacktop/go-nptcore/npt"
)

// Linear maps a region at a constant offset from a host-physical base:
// paddr = gpa - PAVAOffset. No per-page allocation happens; the physical
// memory is externally owned (e.g. guest RAM backed by a host mmap), so
// Unmap never returns frames to the allocator.
type Linear struct {
	// PAVAOffset is gpa - paddr for every address in the region.
	PAVAOffset uint64
	// AllowHuge permits the underlying MapRegion sweep to pick 2M/1G leaves.
	AllowHuge bool
}

func (l Linear) Map(pt *npt.PageTable[npt.DefaultEntry], alloc frame.Allocator, gpa uint64, size uint64, flags npt.MappingFlags) error {
	return pt.MapRegion(gpa, size, func(va uint64) addr.HostPhysAddr {
		return addr.HostPhysAddr(va - l.PAVAOffset)
	}, flags, l.AllowHuge, false)
}

// Unmap removes the region's page-table entries without deallocating any
// frame: the linear-mapped physical range is not owned by this backend.
func (l Linear) Unmap(pt *npt.PageTable[npt.DefaultEntry], alloc frame.Allocator, gpa uint64, size uint64) error {
	return pt.UnmapRegion(gpa, size, false)
}

// HandlePageFault always fails: a Linear region is expected to be fully
// mapped up front, so any fault against it is a genuine guest error rather
// than something the core can resolve.
func (l Linear) HandlePageFault(pt *npt.PageTable[npt.DefaultEntry], alloc frame.Allocator, gpa uint64, regionFlags npt.MappingFlags) bool {
	return false
}

func (l Linear) AllowsFault() bool { return false }
