// Package nptcore implements the guest-physical address-space management
// core of a bare-metal hypervisor: ownership of a guest VM's second-stage
// (nested) page tables, bookkeeping of which guest-physical ranges are
// backed by what kind of mapping, lazy nested-page-fault servicing, and
// byte-accurate host-side access to guest memory.
//
// # Basic usage
//
// Create an address space and map guest RAM one-to-one against host memory
// already owned by the embedder:
//
//	as, err := nptcore.NewEmpty(addr.GuestPhysAddr(0x10000), 0x10000, alloc)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer as.Clear()
//
//	err = as.MapLinear(0x18000, 0x10000, 0x8000, npt.FlagRead|npt.FlagWrite, false)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Allocator-backed regions can populate eagerly or service faults lazily:
//
//	err = as.MapAlloc(0x10000, 0x2000, npt.FlagRead|npt.FlagWrite, false)
//	...
//	handled := as.HandlePageFault(0x10000, npt.FlagRead)
//
// Guest memory is read and written through the accessor once a region
// exists:
//
//	var v uint32
//	if err := nptcore.ReadObj(as, 0x10000, &v); err != nil {
//		log.Fatal(err)
//	}
//
// # Concurrency
//
// An AddrSpace is not safe for concurrent use; the caller (typically the
// VMM's per-VM lock) must linearize every operation against a given
// instance. The frame allocator it is built with, however, may be shared
// across VMs and must be safe for concurrent use by the caller.
//
// # Error handling
//
// All errors are *hverror.Error values carrying a coarse Kind
// (InvalidInput, NoMemory, AlreadyExists, BadState). Use hverror.Of(err)
// to recover the Kind for programmatic handling.
package nptcore
