package npt

// MappingFlags is a bit set over the permission and memory-type attributes
// a region or page-table leaf carries. DEVICE forces an uncached memory
// type when an architecture's entry encoder writes the native PTE.
type MappingFlags uint8

const (
	FlagRead MappingFlags = 1 << iota
	FlagWrite
	FlagExecute
	FlagUser
	FlagDevice

	FlagNone MappingFlags = 0
)

// Contains reports whether f has every bit set in want.
func (f MappingFlags) Contains(want MappingFlags) bool { return f&want == want }

func (f MappingFlags) String() string {
	if f == FlagNone {
		return "---"
	}
	buf := [5]byte{'-', '-', '-', '-', '-'}
	if f&FlagRead != 0 {
		buf[0] = 'R'
	}
	if f&FlagWrite != 0 {
		buf[1] = 'W'
	}
	if f&FlagExecute != 0 {
		buf[2] = 'X'
	}
	if f&FlagUser != 0 {
		buf[3] = 'U'
	}
	if f&FlagDevice != 0 {
		buf[4] = 'D'
	}
	return string(buf[:])
}
