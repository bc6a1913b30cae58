//go:build !windows

package frame

import (
	"sync"

	"golang.org/x/sys/unix"
)

var (
	nativePageSizeOnce sync.Once
	nativePageSize     int
)

// NativePageSize returns the real host page size, cached after the first
// call. The core itself always works in fixed 4 KiB nested-page-table
// units regardless of the host's native page size; this is a sanity
// oracle used by embedders and by cmd/hv's doctor command to flag a host
// whose page size would make the allocator's frames not actually
// page-aligned.
func NativePageSize() int {
	nativePageSizeOnce.Do(func() {
		nativePageSize = unix.Getpagesize()
	})
	return nativePageSize
}
