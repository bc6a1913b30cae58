package npt

import "fmt"

// PageSize is one of the three leaf granules nested page tables support on
// every architecture in scope: 4 KiB, 2 MiB or 1 GiB.
type PageSize uint64

const (
	Size4K PageSize = 1 << 12
	Size2M PageSize = 1 << 21
	Size1G PageSize = 1 << 30
)

// Bytes returns the page size in bytes.
func (s PageSize) Bytes() uint64 { return uint64(s) }

func (s PageSize) String() string {
	switch s {
	case Size4K:
		return "4K"
	case Size2M:
		return "2M"
	case Size1G:
		return "1G"
	default:
		return fmt.Sprintf("PageSize(0x%x)", uint64(s))
	}
}

// IsAligned reports whether addr and size are both multiples of the page
// size, as required of every Map call.
func (s PageSize) IsAligned(vaddr, size uint64) bool {
	mask := uint64(s) - 1
	return vaddr&mask == 0 && size&mask == 0
}

// Covers reports whether a single address is aligned to this page size.
func (s PageSize) Covers(a uint64) bool { return a&(uint64(s)-1) == 0 }

// LargestFitting returns the largest of {1G, 2M, 4K} whose alignment
// permits mapping at least one page of that size at vaddr within a region
// of the given remaining size, used by map_region's allow_huge sweep and by
// the Alloc(populate=true) backend's greedy frame sweep.
func LargestFitting(vaddr, remaining uint64) PageSize {
	switch {
	case remaining >= uint64(Size1G) && vaddr&(uint64(Size1G)-1) == 0:
		return Size1G
	case remaining >= uint64(Size2M) && vaddr&(uint64(Size2M)-1) == 0:
		return Size2M
	default:
		return Size4K
	}
}
