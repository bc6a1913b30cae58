package npt

import "github.com/blacktop/go-nptcore/addr"

// EPTEntry is Intel's Extended Page Table entry format:
//
//	bit  0    read
//	bit  1    write
//	bit  2    execute
//	bits 3-5  EPT memory type (0 = uncacheable, 6 = write-back)
//	bit  7    huge page (1 GiB/2 MiB leaf, ignored at the bottom level)
//	bits 12-51 host-physical frame address
//
// present is defined as read|write|execute != 0.
type EPTEntry uint64

const (
	eptRead            = 1 << 0
	eptWrite           = 1 << 1
	eptExec            = 1 << 2
	eptTypeShift       = 3
	eptTypeMask        = 0x7 << eptTypeShift
	eptTypeUncacheable = 0 << eptTypeShift
	eptTypeWriteBack   = 6 << eptTypeShift
	eptHuge            = 1 << 7
	eptAddrShift       = 12
	eptAddrMask        = ((uint64(1) << 40) - 1) << eptAddrShift // bits 12..51
)

// EPTOps implements EntryOps[EPTEntry].
type EPTOps struct{}

func (EPTOps) Empty() EPTEntry { return 0 }

func (EPTOps) IsPresent(e EPTEntry) bool {
	return e&(eptRead|eptWrite|eptExec) != 0
}

func (EPTOps) IsHuge(e EPTEntry) bool { return e&eptHuge != 0 }

func (EPTOps) ChildTable(e EPTEntry) addr.HostPhysAddr {
	return addr.HostPhysAddr(uint64(e) & eptAddrMask)
}

func (EPTOps) Frame(e EPTEntry) addr.HostPhysAddr {
	return addr.HostPhysAddr(uint64(e) & eptAddrMask)
}

func (EPTOps) Flags(e EPTEntry) MappingFlags {
	var f MappingFlags
	if e&eptRead != 0 {
		f |= FlagRead
	}
	if e&eptWrite != 0 {
		f |= FlagWrite
	}
	if e&eptExec != 0 {
		f |= FlagExecute
	}
	if memTypeFromBits(e) == MemTypeUncacheable {
		f |= FlagDevice
	}
	return f
}

func memTypeFromBits(e EPTEntry) MemType {
	if uint64(e)&eptTypeMask == eptTypeUncacheable {
		return MemTypeUncacheable
	}
	return MemTypeWriteBack
}

func (EPTOps) MakeIntermediate(child addr.HostPhysAddr) EPTEntry {
	return EPTEntry(uint64(child)&eptAddrMask | eptRead | eptWrite | eptExec | eptTypeWriteBack)
}

func (EPTOps) MakeLeaf(pa addr.HostPhysAddr, flags MappingFlags, size PageSize) EPTEntry {
	var e uint64
	if flags&FlagRead != 0 {
		e |= eptRead
	}
	if flags&FlagWrite != 0 {
		e |= eptWrite
	}
	if flags&FlagExecute != 0 {
		e |= eptExec
	}
	if MemTypeFor(flags) == MemTypeUncacheable {
		e |= eptTypeUncacheable
	} else {
		e |= eptTypeWriteBack
	}
	if size != Size4K {
		e |= eptHuge
	}
	e |= uint64(pa) & eptAddrMask
	return EPTEntry(e)
}

// EPTP encodes the EPT pointer register value for a root table frame:
// memory type write-back (bits 0-2 = 6), page-walk length 4 (bits 3-5 = 3),
// accessed/dirty flags enabled (bit 6), upper bits the root frame address.
func EPTP(root addr.HostPhysAddr) uint64 {
	const (
		memTypeWB     = 6
		pageWalkLen4  = 3 << 3
		adEnable      = 1 << 6
	)
	return memTypeWB | pageWalkLen4 | adEnable | (uint64(root) & eptAddrMask)
}

// EPTPRoot extracts the root frame address (bits 12-51) from an EPTP value.
func EPTPRoot(eptp uint64) addr.HostPhysAddr {
	return addr.HostPhysAddr(eptp & eptAddrMask)
}
