package frame

import (
	"testing"
	"unsafe"

	"github.com/blacktop/go-nptcore/addr"
)

// bumpAllocator is the package-local test double for Allocator: a simple
// bump allocator over a fixed backing arena.
type bumpAllocator struct {
	arena []byte
	next  uint64
	freed map[addr.HostPhysAddr]bool
}

func newBumpAllocator(frames int) *bumpAllocator {
	return &bumpAllocator{
		arena: make([]byte, frames*0x1000),
		freed: make(map[addr.HostPhysAddr]bool),
	}
}

func (b *bumpAllocator) AllocFrame() (addr.HostPhysAddr, bool) {
	return b.AllocFrames(1, 0x1000)
}

func (b *bumpAllocator) AllocFrames(n uint64, align uint64) (addr.HostPhysAddr, bool) {
	base := (b.next + align - 1) &^ (align - 1)
	end := base + n*0x1000
	if end > uint64(len(b.arena)) {
		return 0, false
	}
	b.next = end
	return addr.HostPhysAddr(base), true
}

func (b *bumpAllocator) DeallocFrame(pa addr.HostPhysAddr)          { b.freed[pa] = true }
func (b *bumpAllocator) DeallocFrames(pa addr.HostPhysAddr, n uint64) { b.freed[pa] = true }
func (b *bumpAllocator) PhysToVirt(pa addr.HostPhysAddr) addr.HostVirtAddr {
	return addr.HostVirtAddr(uintptr(unsafe.Pointer(&b.arena[0])) + uintptr(pa))
}

func TestPhysFrameUninitializedPanics(t *testing.T) {
	var f PhysFrame
	defer func() {
		r := recover()
		if r != ErrUninitializedFrame {
			t.Errorf("recover() = %v, want %v", r, ErrUninitializedFrame)
		}
	}()
	_ = f.PhysAddr()
}

func TestPhysFrameReleaseExactlyOnce(t *testing.T) {
	a := newBumpAllocator(4)
	f, ok := AllocPhysFrame(a)
	if !ok {
		t.Fatal("AllocPhysFrame failed")
	}
	pa := f.PhysAddr()
	f.Release()
	f.Release() // second call must be a no-op
	if len(a.freed) != 1 {
		t.Errorf("expected exactly one dealloc, got %d", len(a.freed))
	}
	if !a.freed[pa] {
		t.Errorf("expected %v to be freed", pa)
	}
}

func TestPhysFrameLeakDetachesWithoutReleasing(t *testing.T) {
	a := newBumpAllocator(4)
	f, _ := AllocPhysFrame(a)
	pa := f.Leak()
	f.Release()
	if a.freed[pa] {
		t.Error("Leak followed by Release should not dealloc")
	}
}

func TestAllocZero(t *testing.T) {
	a := newBumpAllocator(4)
	pa, ok := AllocZero(a)
	if !ok {
		t.Fatal("AllocZero failed")
	}
	va := a.PhysToVirt(pa)
	buf := unsafeBytes(va, 0x1000)
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("byte %d not zeroed: %v", i, b)
		}
	}
}
