package nptcore

import (
	"time"

	"github.com/blacktop/go-nptcore/addr"
	"github.com/blacktop/go-nptcore/backend"
	"github.com/blacktop/go-nptcore/frame"
	"github.com/blacktop/go-nptcore/npt"
)

// Clone deep-copies this address space: a fresh AddrSpace over the same
// guest-physical range, every region re-registered with the same backend
// variant and flags. Linear regions are reproduced by re-mapping -- the
// physical backing is shared, never copied. Alloc regions get freshly
// allocated target frames and their contents are copied byte-for-byte.
//
// The copy walks the source's already-populated pages directly and faults
// the corresponding clone pages in one at a time. The clone registers its
// Alloc regions lazily regardless of how the source populated them:
// a populated backend never reports a fault handled, so driving the copy
// through the fault path requires the lazy variant.
func (as *AddrSpace) Clone(alloc frame.Allocator) (*AddrSpace, error) {
	begin := time.Now()
	defer func() { recordClone(time.Since(begin)) }()

	target, err := NewEmpty(as.rng.Start, as.rng.Size(), alloc)
	if err != nil {
		return nil, err
	}

	for _, area := range as.areas.all() {
		switch b := area.Backend.(type) {
		case backend.Linear:
			if err := target.MapLinear(area.Start, addr.HostPhysAddr(uint64(area.Start)-b.PAVAOffset), area.Size, area.Flags, b.AllowHuge); err != nil {
				target.Clear()
				return nil, err
			}
		case backend.Alloc:
			if err := target.MapAlloc(area.Start, area.Size, area.Flags, false); err != nil {
				target.Clear()
				return nil, err
			}
			if err := as.copyAllocRegion(target, area); err != nil {
				target.Clear()
				return nil, err
			}
		default:
			target.Clear()
			return nil, newErr("AddrSpace.Clone", BadState, "unrecognized backend variant")
		}
	}
	return target, nil
}

// copyAllocRegion walks the source's populated pages within area and writes
// their contents directly into newly-faulted-in frames of target. The walk
// advances one 4 KiB page at a time even through a huge source leaf: the
// target faults frames in at 4 KiB granularity, so each copy must fit in one
// target frame.
func (as *AddrSpace) copyAllocRegion(target *AddrSpace, area *MemoryArea) error {
	const step = uint64(npt.Size4K)
	buf := make([]byte, step)
	gpa := area.Start
	end := area.Start + addr.GuestPhysAddr(area.Size)
	for gpa < end {
		if _, _, _, ok := as.Translate(gpa); !ok {
			gpa += addr.GuestPhysAddr(step)
			continue
		}
		if err := as.readBuffer(gpa, buf); err != nil {
			return err
		}
		if !target.handlePageFault(gpa, area.Flags) {
			warnf("clone: could not fault in target page at %v", gpa)
			return newErr("AddrSpace.Clone", BadState, "target page fault failed during copy")
		}
		if err := target.writeBuffer(gpa, buf); err != nil {
			return err
		}
		gpa += addr.GuestPhysAddr(step)
	}
	return nil
}

// CloneCOW would share frames between source and clone until either side
// writes. Not implemented; it reports an error rather than silently
// falling back to a deep copy.
func (as *AddrSpace) CloneCOW() (*AddrSpace, error) {
	return nil, ErrCloneCOWUnsupported
}
