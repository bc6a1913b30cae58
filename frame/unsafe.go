package frame

import (
	"unsafe"

	"github.com/blacktop/go-nptcore/addr"
)

// unsafeBytes reinterprets the size bytes starting at va as a byte slice.
// Centralized here (and in the root package's accessor.go) so every raw-memory touch
// in the core goes through one audited helper rather than ad-hoc
// unsafe.Pointer arithmetic at call sites.
func unsafeBytes(va addr.HostVirtAddr, size uint64) []byte {
	if size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(va))), int(size))
}
