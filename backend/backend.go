// Package backend implements the two mapping disciplines a memory region can
// use to obtain its physical frames: Linear (a fixed host-physical offset,
// no allocation) and Alloc (frames drawn from the allocator, eagerly or
// lazily). Both satisfy the Backend interface so the address-space layer can
// dispatch map/unmap/fault calls without knowing which discipline a region
// uses.
package backend

import (
	"github.com/blacktop/go-nptcore/frame"
	"github.com/blacktop/go-nptcore/npt"
)

// Backend is the contract a MemoryArea's mapping policy must satisfy: how to
// install a region's page-table entries, how to tear them down, and whether
// a nested page fault against the region can be serviced in place.
type Backend interface {
	// Map installs page-table entries covering [gpa, gpa+size) with flags.
	Map(pt *npt.PageTable[npt.DefaultEntry], alloc frame.Allocator, gpa uint64, size uint64, flags npt.MappingFlags) error

	// Unmap removes page-table entries covering [gpa, gpa+size), releasing
	// any frames this backend itself owns.
	Unmap(pt *npt.PageTable[npt.DefaultEntry], alloc frame.Allocator, gpa uint64, size uint64) error

	// HandlePageFault attempts to service a nested page fault at gpa. The
	// address-space layer has already checked the access against the
	// region's flags before calling; regionFlags is what the backend installs
	// into any new PTE it creates. Returns true iff the fault was resolved.
	HandlePageFault(pt *npt.PageTable[npt.DefaultEntry], alloc frame.Allocator, gpa uint64, regionFlags npt.MappingFlags) bool

	// AllowsFault reports whether this backend's regions can ever resolve a
	// fault (false for Linear and for Alloc(populate=true), both of which
	// consider any fault against them a guest error).
	AllowsFault() bool
}
