//go:build windows

package frame

// NativePageSize returns the real host page size. golang.org/x/sys/unix is
// not available on Windows; 4 KiB matches every Windows platform this core
// targets (x86-64, ARM64), so no syscall is needed.
func NativePageSize() int { return 0x1000 }
