package npt

import (
	"unsafe"

	"github.com/blacktop/go-nptcore/addr"
	"github.com/blacktop/go-nptcore/frame"
)

// tableSlice reinterprets the table frame at pa as a slice of n entries, the
// one place the generic engine touches raw memory. Centralizing it here
// keeps every other file in the package free of unsafe.
func tableSlice[E Entry](alloc frame.Allocator, pa addr.HostPhysAddr, n int) []E {
	va := alloc.PhysToVirt(pa)
	return unsafe.Slice((*E)(unsafe.Pointer(uintptr(va))), n)
}
