package npt

import "github.com/blacktop/go-nptcore/addr"

// Stage2Entry is a simplified ARM64 Stage-2 translation table descriptor.
// It captures the same information EPTEntry does -- presence,
// huge-page-ness, frame, R/W/X/device -- in the bit positions the real
// Armv8-A VMSA uses for the fields this core cares about:
//
//	bit  0     valid
//	bit  1     table (at non-leaf levels) / page vs block (at leaf level)
//	bits 6-7   S2AP: 01 read-only, 11 read-write (never 10, reserved)
//	bit  54    XN (execute-never); clear means executable
//	bits 2-5   MemAttr; 0b0000 is Device-nGnRE, 0b1111 Normal write-back
//	bits 12-51 output address
//
// This omits shareability, access-flag and dirty-bit-management fields the
// real architecture defines: go-nptcore services its own "access tracking"
// at the AddrSpace level (populate vs. lazy fault), not through hardware
// AF faulting, so those bits are left unmodeled.
type Stage2Entry uint64

const (
	s2Valid           = 1 << 0
	s2Table           = 1 << 1 // at non-leaf levels: 1 = points to a table, 0 = invalid
	s2Block           = 1 << 1 // at leaf level: 1 = page/last-level block, same bit position
	s2APShift         = 6
	s2APMask          = 0x3 << s2APShift
	s2APReadOnly      = 0x1 << s2APShift
	s2APReadWrite     = 0x3 << s2APShift
	s2XN              = 1 << 54
	s2MemAttrShift    = 2
	s2MemAttrMask     = 0xf << s2MemAttrShift
	s2MemAttrDevice   = 0x0 << s2MemAttrShift
	s2MemAttrNormalWB = 0xf << s2MemAttrShift
	s2AddrShift       = 12
	s2AddrMask        = ((uint64(1) << 40) - 1) << s2AddrShift
)

// Stage2Ops implements EntryOps[Stage2Entry].
type Stage2Ops struct{}

func (Stage2Ops) Empty() Stage2Entry { return 0 }

func (Stage2Ops) IsPresent(e Stage2Entry) bool { return e&s2Valid != 0 }

func (Stage2Ops) IsHuge(e Stage2Entry) bool {
	// A present entry with the table/block bit clear is a block (huge leaf);
	// intermediate entries always set it.
	return e&s2Valid != 0 && e&s2Table == 0
}

func (Stage2Ops) ChildTable(e Stage2Entry) addr.HostPhysAddr {
	return addr.HostPhysAddr(uint64(e) & s2AddrMask)
}

func (Stage2Ops) Frame(e Stage2Entry) addr.HostPhysAddr {
	return addr.HostPhysAddr(uint64(e) & s2AddrMask)
}

func (Stage2Ops) Flags(e Stage2Entry) MappingFlags {
	var f MappingFlags
	f |= FlagRead // S2AP always grants at least read in this model
	if e&s2APMask == s2APReadWrite {
		f |= FlagWrite
	}
	if e&s2XN == 0 {
		f |= FlagExecute
	}
	if memTypeFromStage2Bits(e) == MemTypeUncacheable {
		f |= FlagDevice
	}
	return f
}

func memTypeFromStage2Bits(e Stage2Entry) MemType {
	if uint64(e)&s2MemAttrMask == s2MemAttrDevice {
		return MemTypeUncacheable
	}
	return MemTypeWriteBack
}

func (Stage2Ops) MakeIntermediate(child addr.HostPhysAddr) Stage2Entry {
	return Stage2Entry(uint64(child)&s2AddrMask | s2Valid | s2Table)
}

func (Stage2Ops) MakeLeaf(pa addr.HostPhysAddr, flags MappingFlags, size PageSize) Stage2Entry {
	var e uint64 = s2Valid
	if size == Size4K {
		e |= s2Block // the "page" bit reuses the same position at the bottom level
	}
	if flags&FlagWrite != 0 {
		e |= s2APReadWrite
	} else {
		e |= s2APReadOnly
	}
	if flags&FlagExecute == 0 {
		e |= s2XN
	}
	if MemTypeFor(flags) == MemTypeUncacheable {
		e |= s2MemAttrDevice
	} else {
		e |= s2MemAttrNormalWB
	}
	e |= uint64(pa) & s2AddrMask
	return Stage2Entry(e)
}
