// Package frame provides the physical-frame allocator contract consumed by
// the rest of go-nptcore, plus the scoped PhysFrame handle that guarantees a
// frame is released exactly once.
//
// The allocator itself is an external collaborator: production embedders
// supply their own implementation backed by the host's real frame
// allocator. This package only defines the interface and the scoped wrapper
// around it.
package frame

import "github.com/blacktop/go-nptcore/addr"

// Allocator is the contract the core consumes for physical memory. Frames
// handed out are always 4 KiB, whatever NativePageSize reports; AllocFrames is
// used only when installing huge pages and must return a physically
// contiguous, aligned block or fail.
//
// Implementations must be safe for concurrent use: the allocator may be
// shared across multiple independent AddrSpace instances.
type Allocator interface {
	// AllocFrame allocates a single 4 KiB frame. ok is false if none is
	// available.
	AllocFrame() (pa addr.HostPhysAddr, ok bool)

	// AllocFrames allocates n physically contiguous 4 KiB frames, the block
	// aligned to align bytes (a power of two). Used only for 2 MiB/1 GiB
	// huge-page backing.
	AllocFrames(n uint64, align uint64) (pa addr.HostPhysAddr, ok bool)

	// DeallocFrame releases a single frame previously returned by
	// AllocFrame.
	DeallocFrame(pa addr.HostPhysAddr)

	// DeallocFrames releases n contiguous frames previously returned by
	// AllocFrames.
	DeallocFrames(pa addr.HostPhysAddr, n uint64)

	// PhysToVirt returns a host-virtual address at which pa may be
	// dereferenced for as long as the frame remains allocated.
	PhysToVirt(pa addr.HostPhysAddr) addr.HostVirtAddr
}

// AllocZero allocates a single frame and zeroes it through the allocator's
// phys-to-virt mapping, for callers that cannot rely on AllocFrame returning
// zero-clean memory.
func AllocZero(a Allocator) (addr.HostPhysAddr, bool) {
	pa, ok := a.AllocFrame()
	if !ok {
		return 0, false
	}
	zero(a, pa, 0x1000)
	return pa, true
}

func zero(a Allocator, pa addr.HostPhysAddr, size uint64) {
	va := a.PhysToVirt(pa)
	buf := unsafeBytes(va, size)
	for i := range buf {
		buf[i] = 0
	}
}
