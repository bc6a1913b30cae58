package nptcore

import (
	"sort"

	"github.com/blacktop/go-nptcore/addr"
	"github.com/blacktop/go-nptcore/backend"
	"github.com/blacktop/go-nptcore/npt"
)

// MemoryArea is one contiguous mapping region: a tuple of
// (start, size, flags, backend) with size > 0 and a 4 KiB-aligned start.
type MemoryArea struct {
	Start   addr.GuestPhysAddr
	Size    uint64
	Flags   npt.MappingFlags
	Backend backend.Backend
}

// Range returns the area's guest-physical extent as a half-open interval.
func (a *MemoryArea) Range() addr.AddrRange[addr.GuestPhysAddr] {
	return addr.NewAddrRange(a.Start, a.Size)
}

// Contains reports whether gpa falls inside this area.
func (a *MemoryArea) Contains(gpa addr.GuestPhysAddr) bool {
	return a.Range().Contains(gpa)
}

// MemorySet is an ordered, non-overlapping collection of MemoryAreas indexed
// by start address. It does not itself touch the page table; AddrSpace owns
// that coordination.
type MemorySet struct {
	areas []*MemoryArea
}

// newMemorySet returns an empty set.
func newMemorySet() *MemorySet { return &MemorySet{} }

// find returns the area covering gpa, or nil.
func (ms *MemorySet) find(gpa addr.GuestPhysAddr) *MemoryArea {
	i := sort.Search(len(ms.areas), func(i int) bool {
		return ms.areas[i].Start+addr.GuestPhysAddr(ms.areas[i].Size) > gpa
	})
	if i < len(ms.areas) && ms.areas[i].Contains(gpa) {
		return ms.areas[i]
	}
	return nil
}

// overlaps reports whether [start, start+size) intersects any existing area.
func (ms *MemorySet) overlaps(start addr.GuestPhysAddr, size uint64) bool {
	r := addr.NewAddrRange(start, size)
	for _, a := range ms.areas {
		if a.Range().Overlaps(r) {
			return true
		}
	}
	return false
}

// insert adds a new area, maintaining start-address order. Returns
// AlreadyExists if it overlaps an existing area; AddrSpace.MapLinear and
// AddrSpace.MapAlloc rely on this check alone to reject overlaps.
func (ms *MemorySet) insert(a *MemoryArea) error {
	if ms.overlaps(a.Start, a.Size) {
		return newErr("MemorySet.insert", AlreadyExists, "region overlaps an existing area")
	}
	i := sort.Search(len(ms.areas), func(i int) bool { return ms.areas[i].Start > a.Start })
	ms.areas = append(ms.areas, nil)
	copy(ms.areas[i+1:], ms.areas[i:])
	ms.areas[i] = a
	return nil
}

// remove deletes the area starting exactly at start, reporting BadState if
// none exists there.
func (ms *MemorySet) remove(start addr.GuestPhysAddr) (*MemoryArea, error) {
	for i, a := range ms.areas {
		if a.Start == start {
			ms.areas = append(ms.areas[:i], ms.areas[i+1:]...)
			return a, nil
		}
	}
	return nil, newErr("MemorySet.remove", BadState, "no area starts at the given address")
}

// all returns every area in ascending start-address order.
func (ms *MemorySet) all() []*MemoryArea { return ms.areas }
