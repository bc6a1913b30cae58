package nptcore

import (
	"sync"
	"unsafe"

	"github.com/blacktop/go-nptcore/addr"
)

// testAllocator is this package's frame.Allocator test double, the same
// bump/free-list shape as npt's and backend's own local copies, duplicated
// per-package because Go test helpers do not cross package boundaries.
type testAllocator struct {
	mu       sync.Mutex
	arena    []byte
	base     addr.HostPhysAddr
	next     uint64
	free     []addr.HostPhysAddr
	allocN   int
	deallocN int
}

func newTestAllocator(frames int) *testAllocator {
	arena := make([]byte, frames*0x1000)
	return &testAllocator{arena: arena, base: addr.HostPhysAddr(0x1000)}
}

func (a *testAllocator) AllocFrame() (addr.HostPhysAddr, bool) {
	return a.AllocFrames(1, 0x1000)
}

func (a *testAllocator) AllocFrames(n uint64, align uint64) (addr.HostPhysAddr, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.allocN++
	if n == 1 && len(a.free) > 0 {
		pa := a.free[len(a.free)-1]
		a.free = a.free[:len(a.free)-1]
		return pa, true
	}
	start := (a.next + align - 1) &^ (align - 1)
	end := start + n*0x1000
	if end > uint64(len(a.arena)) {
		return 0, false
	}
	a.next = end
	return a.base + addr.HostPhysAddr(start), true
}

func (a *testAllocator) DeallocFrame(pa addr.HostPhysAddr) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deallocN++
	a.free = append(a.free, pa)
}

func (a *testAllocator) DeallocFrames(pa addr.HostPhysAddr, n uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := uint64(0); i < n; i++ {
		a.deallocN++
		a.free = append(a.free, pa+addr.HostPhysAddr(i*0x1000))
	}
}

func (a *testAllocator) PhysToVirt(pa addr.HostPhysAddr) addr.HostVirtAddr {
	off := uint64(pa - a.base)
	return addr.HostVirtAddr(uintptr(unsafe.Pointer(&a.arena[0])) + uintptr(off))
}
