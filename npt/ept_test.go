package npt

import (
	"testing"

	"github.com/blacktop/go-nptcore/addr"
)

func TestEPTEntryPresence(t *testing.T) {
	ops := EPTOps{}
	if ops.IsPresent(ops.Empty()) {
		t.Error("empty entry should not be present")
	}
	leaf := ops.MakeLeaf(0x10000, FlagRead|FlagWrite, Size4K)
	if !ops.IsPresent(leaf) {
		t.Error("leaf with RW should be present")
	}
	if ops.IsHuge(leaf) {
		t.Error("4K leaf should not be marked huge")
	}
}

func TestEPTEntryHugeBit(t *testing.T) {
	ops := EPTOps{}
	leaf2M := ops.MakeLeaf(0x200000, FlagRead, Size2M)
	if !ops.IsHuge(leaf2M) {
		t.Error("2M leaf should be marked huge")
	}
	leaf1G := ops.MakeLeaf(0x40000000, FlagRead, Size1G)
	if !ops.IsHuge(leaf1G) {
		t.Error("1G leaf should be marked huge")
	}
}

func TestEPTEntryFlagsRoundTrip(t *testing.T) {
	ops := EPTOps{}
	tests := []MappingFlags{
		FlagRead,
		FlagRead | FlagWrite,
		FlagRead | FlagWrite | FlagExecute,
		FlagRead | FlagDevice,
	}
	for _, f := range tests {
		e := ops.MakeLeaf(0x3000, f, Size4K)
		if got := ops.Flags(e); got != f {
			t.Errorf("Flags(MakeLeaf(_, %v, _)) = %v, want %v", f, got, f)
		}
	}
}

func TestEPTEntryFrameMasking(t *testing.T) {
	ops := EPTOps{}
	pa := addr.HostPhysAddr(0x123456000)
	e := ops.MakeLeaf(pa, FlagRead, Size4K)
	if got := ops.Frame(e); got != pa {
		t.Errorf("Frame() = %v, want %v", got, pa)
	}
}

func TestEPTP(t *testing.T) {
	root := addr.HostPhysAddr(0x100000)
	val := EPTP(root)
	if val&0x7 != 6 {
		t.Errorf("EPTP memory type bits = %d, want 6", val&0x7)
	}
	if (val>>3)&0x7 != 3 {
		t.Errorf("EPTP page walk length bits = %d, want 3", (val>>3)&0x7)
	}
	if got := EPTPRoot(val); got != root {
		t.Errorf("EPTPRoot(EPTP(root)) = %v, want %v", got, root)
	}
}

func TestEPTMemoryTypeDevice(t *testing.T) {
	ops := EPTOps{}
	e := ops.MakeLeaf(0x1000, FlagRead|FlagWrite|FlagDevice, Size4K)
	f := ops.Flags(e)
	if f&FlagDevice == 0 {
		t.Error("DEVICE flag should round-trip")
	}
}
