package npt

import "github.com/blacktop/go-nptcore/addr"

// FlushFunc invalidates TLB entries for one guest-physical page, or for the
// whole address space when gpa is nil.
//
// The architecture-specific instruction (invept on Intel, tlbi ipas2e1is on
// ARM64) lives behind this one function pointer so the engine never embeds
// assembly; embedders running on real hardware supply it, and tests supply
// a counting stub.
type FlushFunc func(gpa *addr.GuestPhysAddr)

// GlobalFlush is the FlushFunc nptcore.NewEmpty installs in every
// AddrSpace's page table. It ignores gpa and its body is empty, the same as
// NoopFlush: this package executes no TLB-invalidation instruction, so
// GlobalFlush invalidates nothing.
var GlobalFlush FlushFunc = func(*addr.GuestPhysAddr) {}

// NoopFlush performs no invalidation. Only appropriate for tests exercising
// the engine against plain memory with no real TLB behind it.
func NoopFlush(*addr.GuestPhysAddr) {}

// FlushToken is a deferred TLB-invalidation handle returned by
// ProtectRegion, which the caller may Apply or Ignore. Every other mutating
// operation flushes immediately and never hands back a token.
type FlushToken struct {
	fn      FlushFunc
	gpa     *addr.GuestPhysAddr
	applied bool
}

// Apply invalidates the TLB for the range the token covers. Safe to call
// at most meaningfully once; subsequent calls are no-ops.
func (t *FlushToken) Apply() {
	if t == nil || t.applied {
		return
	}
	t.fn(t.gpa)
	t.applied = true
}

// Ignore marks the token as not needing a flush, documenting at the call
// site that the caller is deliberately batching or skipping invalidation
// (e.g. because a broader flush will follow).
func (t *FlushToken) Ignore() {
	if t != nil {
		t.applied = true
	}
}
