package backend

import (
	"github.com/blacktop/go-nptcore/addr"
	"github.com/blacktop/go-nptcore/frame"
	"github.com/blacktop/go-nptcore/hverror"
	"github.com/blacktop/go-nptcore/npt"
)

// Alloc draws its frames from the allocator rather than from a fixed host
// offset. When Populate is set, every frame in the region is allocated and
// mapped eagerly at Map time, trying 1 GiB then 2 MiB then 4 KiB frames
// depending on what alignment and remaining size permit; a fault against a
// populated region is always a guest error. When Populate is false, Map
// installs nothing and frames are allocated one 4 KiB page at a time as
// faults arrive.
type Alloc struct {
	Populate bool
}

func (a Alloc) Map(pt *npt.PageTable[npt.DefaultEntry], alloc frame.Allocator, gpa uint64, size uint64, flags npt.MappingFlags) error {
	if !a.Populate {
		// Lazy: nothing to install up front. Frames arrive via HandlePageFault.
		return nil
	}
	return a.populateEager(pt, alloc, gpa, size, flags)
}

// populateEager walks [gpa, gpa+size) greedily choosing the largest page
// size npt.LargestFitting allows at each step, allocating a matching
// contiguous frame block and mapping it before advancing.
func (a Alloc) populateEager(pt *npt.PageTable[npt.DefaultEntry], alloc frame.Allocator, gpa uint64, size uint64, flags npt.MappingFlags) error {
	va := gpa
	end := gpa + size
	mapped := uint64(0)
	for va < end {
		remaining := end - va
		pageSize := npt.LargestFitting(va, remaining)
		pa, ok := allocPage(alloc, pageSize)
		if !ok {
			// Clean up everything this call mapped, frames included, before
			// failing; the caller only sees the error, never the partial state.
			if mapped > 0 {
				a.Unmap(pt, alloc, gpa, mapped)
			}
			return hverror.New("backend.Alloc.Map", hverror.NoMemory, "allocating frame for populated region")
		}
		if err := pt.Map(va, pa, pageSize, flags); err != nil {
			if pageSize == npt.Size4K {
				alloc.DeallocFrame(pa)
			} else {
				alloc.DeallocFrames(pa, uint64(pageSize)/uint64(npt.Size4K))
			}
			if mapped > 0 {
				a.Unmap(pt, alloc, gpa, mapped)
			}
			return err
		}
		va += uint64(pageSize)
		mapped += uint64(pageSize)
	}
	return nil
}

func allocPage(alloc frame.Allocator, size npt.PageSize) (addr.HostPhysAddr, bool) {
	if size == npt.Size4K {
		return alloc.AllocFrame()
	}
	n := uint64(size) / uint64(npt.Size4K)
	return alloc.AllocFrames(n, uint64(size))
}

// Unmap releases every frame this region owns: for populate=true the whole
// swept range was allocated at Map time, for populate=false only the
// sub-ranges a fault actually populated were ever mapped, so walking and
// releasing whatever is currently present covers both cases identically.
func (a Alloc) Unmap(pt *npt.PageTable[npt.DefaultEntry], alloc frame.Allocator, gpa uint64, size uint64) error {
	va := gpa
	end := gpa + size
	for va < end {
		_, _, pageSize, qerr := pt.Query(va)
		if qerr != nil {
			// Hole: a lazy sub-range no fault ever populated.
			va += uint64(npt.Size4K)
			continue
		}
		if !pageSize.Covers(va) {
			// The sweep landed mid-leaf, which only happens when the caller's
			// range cuts into a huge page; releasing part of one is not a
			// thing this core does (no huge-page splitting).
			return hverror.New("backend.Alloc.Unmap", hverror.BadState, "range cuts into a huge page")
		}
		pa, pageSize, _, err := pt.Unmap(va)
		if err != nil {
			return err
		}
		if pageSize == npt.Size4K {
			alloc.DeallocFrame(pa)
		} else {
			alloc.DeallocFrames(pa, uint64(pageSize)/uint64(npt.Size4K))
		}
		va += uint64(pageSize)
	}
	return nil
}

// HandlePageFault allocates a single 4 KiB frame for the faulting address
// and installs it with the region's original flags. Populated regions never
// reach here through a correctly-dispatching address space, but report no
// fault handled if they do.
func (a Alloc) HandlePageFault(pt *npt.PageTable[npt.DefaultEntry], alloc frame.Allocator, gpa uint64, regionFlags npt.MappingFlags) bool {
	if a.Populate {
		return false
	}
	pageGPA := gpa &^ (uint64(npt.Size4K) - 1)
	pa, ok := alloc.AllocFrame()
	if !ok {
		return false
	}
	if _, _, _, err := pt.Query(pageGPA); err == nil {
		// Already mapped (e.g. a racing fault already resolved it); remap
		// in place rather than failing with AlreadyExists.
		if err := pt.Remap(pageGPA, pa, regionFlags); err != nil {
			alloc.DeallocFrame(pa)
			return false
		}
		return true
	}
	if err := pt.Map(pageGPA, pa, npt.Size4K, regionFlags); err != nil {
		alloc.DeallocFrame(pa)
		return false
	}
	return true
}

func (a Alloc) AllowsFault() bool { return !a.Populate }
