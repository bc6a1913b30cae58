package frame

import (
	"fmt"

	"github.com/blacktop/go-nptcore/addr"
)

// PhysFrame is a scoped acquisition of one host-physical frame. The frame
// returns to its allocator exactly once, no matter how many times Release
// is called.
//
// The zero value is the uninitialized placeholder: PhysAddr panics on it so
// that a forgotten Alloc call fails loudly instead of silently handing out
// address 0, which is frequently a legitimate low-memory guest-physical
// address and must not be confused with "no frame".
type PhysFrame struct {
	alloc    Allocator
	pa       addr.HostPhysAddr
	valid    bool
	released bool
}

// ErrUninitializedFrame is the panic value used when PhysAddr is called on a
// PhysFrame that was never assigned via AllocPhysFrame.
const ErrUninitializedFrame = "frame: PhysFrame accessed before assignment"

// AllocPhysFrame acquires one frame from a and wraps it for scoped release.
func AllocPhysFrame(a Allocator) (PhysFrame, bool) {
	pa, ok := a.AllocFrame()
	if !ok {
		return PhysFrame{}, false
	}
	return PhysFrame{alloc: a, pa: pa, valid: true}, true
}

// AdoptPhysFrame wraps an already-allocated frame (e.g. the first of a
// contiguous block returned by AllocFrames) for scoped release. The caller
// is responsible for releasing the remaining frames of a multi-frame block
// itself; PhysFrame only ever owns one frame.
func AdoptPhysFrame(a Allocator, pa addr.HostPhysAddr) PhysFrame {
	return PhysFrame{alloc: a, pa: pa, valid: true}
}

// PhysAddr returns the frame's host-physical address. Panics if the frame
// was never assigned (the zero-value placeholder).
func (f PhysFrame) PhysAddr() addr.HostPhysAddr {
	if !f.valid {
		panic(ErrUninitializedFrame)
	}
	return f.pa
}

// Valid reports whether the frame holds a real allocation.
func (f PhysFrame) Valid() bool { return f.valid }

// Release returns the frame to its allocator. Safe to call multiple times;
// only the first call has an effect. Release on the zero value is a no-op.
func (f *PhysFrame) Release() {
	if !f.valid || f.released {
		return
	}
	f.alloc.DeallocFrame(f.pa)
	f.released = true
}

// Leak detaches the frame from RAII tracking and returns its address
// without releasing it, for the rare case where ownership is being handed
// off to a page-table leaf entry that will release it itself later (see
// backend.Alloc, which finds leaf frames by querying the page table in its
// own Unmap rather than through a live PhysFrame).
func (f *PhysFrame) Leak() addr.HostPhysAddr {
	pa := f.PhysAddr()
	f.released = true
	return pa
}

func (f PhysFrame) String() string {
	if !f.valid {
		return "PhysFrame(uninitialized)"
	}
	return fmt.Sprintf("PhysFrame(%s)", f.pa)
}
