// Package addr defines the typed address primitives used throughout
// go-nptcore: guest-physical, guest-virtual, host-physical and host-virtual
// addresses are distinct wrapper types so that the compiler rejects mixing
// them, and a half-open AddrRange for bookkeeping over any one of them.
package addr

import "fmt"

// PageSize4K is the smallest page granule on every architecture this package
// supports; alignment helpers offer it as a fast path alongside the generic
// arbitrary-power-of-two variants.
const PageSize4K = 0x1000

// GuestPhysAddr is an address in a guest VM's second-stage (nested) address
// space, as produced by the guest's first-stage page tables or presented
// directly by firmware/BIOS regions.
type GuestPhysAddr uint64

// GuestVirtAddr is an address in the guest's own virtual address space. The
// core never translates these itself (the guest owns its first-stage
// tables); the type exists so call sites that accept one cannot be handed a
// GuestPhysAddr by mistake.
type GuestVirtAddr uint64

// HostPhysAddr is a real machine physical address, as handed out by the
// frame allocator.
type HostPhysAddr uint64

// HostVirtAddr is a pointer-sized host-virtual address, typically obtained
// via the frame allocator's phys-to-virt mapping and dereferenced directly
// by the guest-memory accessor.
type HostVirtAddr uint64

// alignDown rounds a down to the nearest multiple of align, which must be a
// power of two. No helper here checks that: a non-power-of-two align gives
// a meaningless result.
func alignDown(a, align uint64) uint64 { return a &^ (align - 1) }
func alignUp(a, align uint64) uint64   { return (a + align - 1) &^ (align - 1) }
func alignOffset(a, align uint64) uint64 { return a & (align - 1) }
func isAligned(a, align uint64) bool   { return a&(align-1) == 0 }

// GuestPhysAddr methods.

func (a GuestPhysAddr) AlignDown(align uint64) GuestPhysAddr { return GuestPhysAddr(alignDown(uint64(a), align)) }
func (a GuestPhysAddr) AlignUp(align uint64) GuestPhysAddr   { return GuestPhysAddr(alignUp(uint64(a), align)) }
func (a GuestPhysAddr) AlignOffset(align uint64) uint64      { return alignOffset(uint64(a), align) }
func (a GuestPhysAddr) IsAligned(align uint64) bool          { return isAligned(uint64(a), align) }
func (a GuestPhysAddr) IsPageAligned() bool                  { return isAligned(uint64(a), PageSize4K) }
func (a GuestPhysAddr) Add(n uint64) GuestPhysAddr           { return a + GuestPhysAddr(n) }
func (a GuestPhysAddr) String() string                       { return fmt.Sprintf("GPA:0x%x", uint64(a)) }

// GuestVirtAddr methods.

func (a GuestVirtAddr) AlignDown(align uint64) GuestVirtAddr { return GuestVirtAddr(alignDown(uint64(a), align)) }
func (a GuestVirtAddr) AlignUp(align uint64) GuestVirtAddr   { return GuestVirtAddr(alignUp(uint64(a), align)) }
func (a GuestVirtAddr) AlignOffset(align uint64) uint64      { return alignOffset(uint64(a), align) }
func (a GuestVirtAddr) IsAligned(align uint64) bool          { return isAligned(uint64(a), align) }
func (a GuestVirtAddr) IsPageAligned() bool                  { return isAligned(uint64(a), PageSize4K) }
func (a GuestVirtAddr) Add(n uint64) GuestVirtAddr           { return a + GuestVirtAddr(n) }
func (a GuestVirtAddr) String() string                       { return fmt.Sprintf("GVA:0x%x", uint64(a)) }

// HostPhysAddr methods.

func (a HostPhysAddr) AlignDown(align uint64) HostPhysAddr { return HostPhysAddr(alignDown(uint64(a), align)) }
func (a HostPhysAddr) AlignUp(align uint64) HostPhysAddr   { return HostPhysAddr(alignUp(uint64(a), align)) }
func (a HostPhysAddr) AlignOffset(align uint64) uint64     { return alignOffset(uint64(a), align) }
func (a HostPhysAddr) IsAligned(align uint64) bool         { return isAligned(uint64(a), align) }
func (a HostPhysAddr) IsPageAligned() bool                 { return isAligned(uint64(a), PageSize4K) }
func (a HostPhysAddr) Add(n uint64) HostPhysAddr           { return a + HostPhysAddr(n) }
func (a HostPhysAddr) String() string                      { return fmt.Sprintf("HPA:0x%x", uint64(a)) }

// HostVirtAddr methods.

func (a HostVirtAddr) AlignDown(align uint64) HostVirtAddr { return HostVirtAddr(alignDown(uint64(a), align)) }
func (a HostVirtAddr) AlignUp(align uint64) HostVirtAddr   { return HostVirtAddr(alignUp(uint64(a), align)) }
func (a HostVirtAddr) AlignOffset(align uint64) uint64     { return alignOffset(uint64(a), align) }
func (a HostVirtAddr) IsAligned(align uint64) bool         { return isAligned(uint64(a), align) }
func (a HostVirtAddr) IsPageAligned() bool                 { return isAligned(uint64(a), PageSize4K) }
func (a HostVirtAddr) Add(n uint64) HostVirtAddr           { return a + HostVirtAddr(n) }
func (a HostVirtAddr) String() string                      { return fmt.Sprintf("HVA:0x%x", uint64(a)) }

// This package has no conversion from HostVirtAddr to an unsafe pointer, so
// it needs no unsafe import. The core dereferences host-virtual addresses
// (obtained through frame.Allocator.PhysToVirt) in three helpers only:
// hostBytes in accessor.go, unsafeBytes in frame/unsafe.go and tableSlice
// in npt/unsafe.go.
