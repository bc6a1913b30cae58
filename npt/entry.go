package npt

import "github.com/blacktop/go-nptcore/addr"

// Entry is implemented by a per-architecture PTE encoding (EPTEntry for
// Intel, Stage2Entry for ARM64). The engine in table.go never inspects raw
// bits itself: every interpretation of an entry's contents goes through
// EntryOps, so adding an architecture means writing one small file, not
// touching the walk.
type Entry interface {
	comparable
}

// EntryOps is the architecture-specific entry encoder/decoder the generic
// PageTable is parameterized over.
type EntryOps[E Entry] interface {
	// Empty returns the zero/not-present entry value.
	Empty() E

	// IsPresent reports whether e refers to a child table or a leaf frame.
	IsPresent(e E) bool

	// IsHuge reports whether e is a huge-page leaf (2 MiB/1 GiB). Only
	// meaningful when IsPresent(e); undefined on an empty entry.
	IsHuge(e E) bool

	// ChildTable returns the physical address of the next-level table e
	// points to. Only valid when IsPresent(e) && !IsHuge(e).
	ChildTable(e E) addr.HostPhysAddr

	// Frame returns the physical frame a leaf entry maps. Only valid when
	// IsPresent(e) and e is a leaf (huge or bottom-level).
	Frame(e E) addr.HostPhysAddr

	// Flags returns the permission/memory-type flags encoded in a leaf
	// entry.
	Flags(e E) MappingFlags

	// MakeIntermediate builds an entry pointing at a freshly allocated
	// child table.
	MakeIntermediate(child addr.HostPhysAddr) E

	// MakeLeaf builds a leaf entry of the given size mapping pa with the
	// given flags.
	MakeLeaf(pa addr.HostPhysAddr, flags MappingFlags, size PageSize) E
}
