/*
Copyright © 2025 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/blacktop/go-nptcore/addr"
	"golang.org/x/sys/unix"
)

// hostArena is the cmd/hv frame.Allocator: a single anonymous mmap carved
// into fixed 4 KiB frames, the same mmap-for-guest-memory approach a real
// VMM would use to back guest RAM, here standing in for the external
// allocator collaborator the library itself never provides.
type hostArena struct {
	mu     sync.Mutex
	mem    []byte
	base   addr.HostPhysAddr
	next   uint64
	free   []addr.HostPhysAddr
	nPages int
}

const framePageSize = 0x1000

func newHostArena(frames int) (*hostArena, error) {
	mem, err := unix.Mmap(-1, 0, frames*framePageSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap arena: %w", err)
	}
	return &hostArena{mem: mem, base: addr.HostPhysAddr(0x1000), nPages: frames}, nil
}

func (a *hostArena) Close() error {
	return unix.Munmap(a.mem)
}

func (a *hostArena) AllocFrame() (addr.HostPhysAddr, bool) {
	return a.AllocFrames(1, framePageSize)
}

func (a *hostArena) AllocFrames(n uint64, align uint64) (addr.HostPhysAddr, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n == 1 && len(a.free) > 0 {
		pa := a.free[len(a.free)-1]
		a.free = a.free[:len(a.free)-1]
		return pa, true
	}
	start := (a.next + align - 1) &^ (align - 1)
	end := start + n*framePageSize
	if end > uint64(len(a.mem)) {
		return 0, false
	}
	a.next = end
	return a.base + addr.HostPhysAddr(start), true
}

func (a *hostArena) DeallocFrame(pa addr.HostPhysAddr) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.free = append(a.free, pa)
}

func (a *hostArena) DeallocFrames(pa addr.HostPhysAddr, n uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := uint64(0); i < n; i++ {
		a.free = append(a.free, pa+addr.HostPhysAddr(i*framePageSize))
	}
}

func (a *hostArena) PhysToVirt(pa addr.HostPhysAddr) addr.HostVirtAddr {
	off := uint64(pa - a.base)
	return addr.HostVirtAddr(uintptr(unsafe.Pointer(&a.mem[0])) + uintptr(off))
}
