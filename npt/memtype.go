package npt

// MemType is the cacheability attribute written into an architecture's PTE
// memory-type bits, threaded from MappingFlags through to the entry encoder
// as its own concept rather than folded into a single bit at each call
// site.
type MemType uint8

const (
	MemTypeWriteBack MemType = iota
	MemTypeUncacheable
)

func (t MemType) String() string {
	if t == MemTypeUncacheable {
		return "uncacheable"
	}
	return "write-back"
}

// MemTypeFor derives the memory type a region's flags imply: DEVICE forces
// uncached, everything else gets the default write-back type.
func MemTypeFor(flags MappingFlags) MemType {
	if flags&FlagDevice != 0 {
		return MemTypeUncacheable
	}
	return MemTypeWriteBack
}
