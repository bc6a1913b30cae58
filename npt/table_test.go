package npt

import (
	"testing"

	"github.com/blacktop/go-nptcore/addr"
	"github.com/blacktop/go-nptcore/hverror"
)

func newTestTable(t *testing.T, frames int) (*PageTable[EPTEntry], *testAllocator) {
	t.Helper()
	a := newTestAllocator(frames)
	pt, err := TryNew[EPTEntry](EPTOps{}, DefaultAMD64, a, NoopFlush)
	if err != nil {
		t.Fatalf("TryNew: %v", err)
	}
	return pt, a
}

func TestMapAndQuery4K(t *testing.T) {
	pt, _ := newTestTable(t, 64)
	if err := pt.Map(0x18000, 0x10000, Size4K, FlagRead|FlagWrite); err != nil {
		t.Fatalf("Map: %v", err)
	}
	pa, flags, size, err := pt.Query(0x18000)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if pa != 0x10000 || flags != FlagRead|FlagWrite || size != Size4K {
		t.Errorf("Query = (%v, %v, %v), want (0x10000, RW, 4K)", pa, flags, size)
	}
}

func TestMapAlreadyMapped(t *testing.T) {
	pt, _ := newTestTable(t, 64)
	if err := pt.Map(0x1000, 0x2000, Size4K, FlagRead); err != nil {
		t.Fatalf("Map: %v", err)
	}
	err := pt.Map(0x1000, 0x3000, Size4K, FlagRead)
	if kind, ok := hverror.Of(err); !ok || kind != hverror.AlreadyExists {
		t.Errorf("second Map() kind = (%v,%v), want AlreadyExists", kind, ok)
	}
}

func TestMapNotAligned(t *testing.T) {
	pt, _ := newTestTable(t, 64)
	err := pt.Map(0x1001, 0x2000, Size4K, FlagRead)
	if kind, ok := hverror.Of(err); !ok || kind != hverror.InvalidInput {
		t.Errorf("unaligned Map() kind = (%v,%v), want InvalidInput", kind, ok)
	}
}

func TestQueryUnmapped(t *testing.T) {
	pt, _ := newTestTable(t, 64)
	_, _, _, err := pt.Query(0x9999000)
	if kind, ok := hverror.Of(err); !ok || kind != hverror.InvalidInput {
		t.Errorf("Query of unmapped kind = (%v,%v), want InvalidInput", kind, ok)
	}
}

func TestUnmapReturnsFrame(t *testing.T) {
	pt, _ := newTestTable(t, 64)
	pt.Map(0x4000, 0x5000, Size4K, FlagRead|FlagWrite)
	pa, size, flags, err := pt.Unmap(0x4000)
	if err != nil {
		t.Fatalf("Unmap: %v", err)
	}
	if pa != 0x5000 || size != Size4K || flags != FlagRead|FlagWrite {
		t.Errorf("Unmap = (%v,%v,%v)", pa, size, flags)
	}
	if _, _, _, err := pt.Query(0x4000); err == nil {
		t.Error("address should no longer be mapped")
	}
}

func TestMapRegionHugePagesPicksLargest(t *testing.T) {
	// Identity paddrFor: no data frames are allocated, only the handful of
	// intermediate tables the walk installs, so a small arena suffices.
	pt, _ := newTestTable(t, 64)
	const base = uint64(0x40000000) // 1 GiB aligned
	const size = uint64(0x40000000) // exactly 1 GiB
	err := pt.MapRegion(base, size, func(va uint64) addr.HostPhysAddr {
		return addr.HostPhysAddr(va) // identity, for inspection simplicity
	}, FlagRead|FlagWrite, true, false)
	if err != nil {
		t.Fatalf("MapRegion: %v", err)
	}
	_, _, pageSize, err := pt.Query(base)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if pageSize != Size1G {
		t.Errorf("expected a 1G leaf for a 1G-aligned 1G region, got %v", pageSize)
	}
}

func TestMapRegionNoHugeUsesBasePages(t *testing.T) {
	pt, _ := newTestTable(t, 64)
	err := pt.MapRegion(0x20000, 0x3000, func(va uint64) addr.HostPhysAddr {
		return addr.HostPhysAddr(va - 0x10000)
	}, FlagRead, false, false)
	if err != nil {
		t.Fatalf("MapRegion: %v", err)
	}
	for _, va := range []uint64{0x20000, 0x21000, 0x22000} {
		pa, _, size, err := pt.Query(va)
		if err != nil {
			t.Fatalf("Query(0x%x): %v", va, err)
		}
		if size != Size4K {
			t.Errorf("Query(0x%x) size = %v, want 4K", va, size)
		}
		if want := addr.HostPhysAddr(va - 0x10000); pa != want {
			t.Errorf("Query(0x%x) pa = %v, want %v", va, pa, want)
		}
	}
}

func TestRemapRoundsDownToCoveringPage(t *testing.T) {
	pt, _ := newTestTable(t, 64)
	pt.Map(0x30000, 0x40000, Size4K, FlagRead)
	if err := pt.Remap(0x30123, 0x50000, FlagRead|FlagWrite); err != nil {
		t.Fatalf("Remap: %v", err)
	}
	pa, flags, _, err := pt.Query(0x30000)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if pa != 0x50000 || flags != FlagRead|FlagWrite {
		t.Errorf("after Remap: pa=%v flags=%v", pa, flags)
	}
}

func TestProtectRegionIdempotent(t *testing.T) {
	pt, _ := newTestTable(t, 64)
	pt.Map(0x60000, 0x61000, Size4K, FlagRead)
	tok1, err := pt.ProtectRegion(0x60000, 0x1000, FlagRead|FlagWrite, false)
	if err != nil {
		t.Fatalf("ProtectRegion: %v", err)
	}
	tok1.Apply()
	_, flags, _, _ := pt.Query(0x60000)
	if flags != FlagRead|FlagWrite {
		t.Fatalf("protect did not take effect: %v", flags)
	}

	// Second call with the same flags should report nothing mutated (the
	// token is pre-applied) and leave the PTE unchanged.
	tok2, err := pt.ProtectRegion(0x60000, 0x1000, FlagRead|FlagWrite, false)
	if err != nil {
		t.Fatalf("ProtectRegion (2nd): %v", err)
	}
	tok2.Apply()
	_, flags, _, _ = pt.Query(0x60000)
	if flags != FlagRead|FlagWrite {
		t.Errorf("flags changed on idempotent protect: %v", flags)
	}
}

func TestProtectRegionGapError(t *testing.T) {
	pt, _ := newTestTable(t, 64)
	_, err := pt.ProtectRegion(0x70000, 0x1000, FlagRead, false)
	if kind, ok := hverror.Of(err); !ok || kind != hverror.BadState {
		t.Errorf("ProtectRegion over a gap kind = (%v,%v), want BadState", kind, ok)
	}
}

func TestProtectRegionLazySkipsGaps(t *testing.T) {
	pt, _ := newTestTable(t, 64)
	pt.Map(0x80000, 0x81000, Size4K, FlagRead)
	// 0x81000 is deliberately left unmapped.
	tok, err := pt.ProtectRegion(0x80000, 0x2000, FlagRead|FlagWrite, true)
	if err != nil {
		t.Fatalf("lazy ProtectRegion should tolerate gaps: %v", err)
	}
	tok.Apply()
	_, flags, _, _ := pt.Query(0x80000)
	if flags != FlagRead|FlagWrite {
		t.Errorf("mapped sub-range should still be protected: %v", flags)
	}
}

func TestMapDeeperThanHugeLeafFails(t *testing.T) {
	pt, _ := newTestTable(t, 64)
	if err := pt.Map(0x40000000, 0x80000000, Size1G, FlagRead); err != nil {
		t.Fatalf("Map 1G: %v", err)
	}
	err := pt.Map(0x40000000, 0x2000000, Size4K, FlagRead)
	if kind, ok := hverror.Of(err); !ok || kind != hverror.BadState {
		t.Errorf("mapping 4K inside an existing 1G leaf kind = (%v,%v), want BadState", kind, ok)
	}
}

func TestUnmapRegionReleasesIntermediates(t *testing.T) {
	pt, a := newTestTable(t, 4096)
	if err := pt.MapRegion(0x100000, 0x3000, func(va uint64) addr.HostPhysAddr {
		return addr.HostPhysAddr(va)
	}, FlagRead, false, false); err != nil {
		t.Fatalf("MapRegion: %v", err)
	}
	freedBefore := a.freeN
	if err := pt.UnmapRegion(0x100000, 0x3000, true); err != nil {
		t.Fatalf("UnmapRegion: %v", err)
	}
	if a.freeN <= freedBefore {
		t.Error("expected at least the emptied leaf-level table to be freed")
	}
	for _, va := range []uint64{0x100000, 0x101000, 0x102000} {
		if _, _, _, err := pt.Query(va); err == nil {
			t.Errorf("0x%x should no longer be mapped", va)
		}
	}
}

func TestTeardownFreesAllTables(t *testing.T) {
	pt, a := newTestTable(t, 4096)
	pt.MapRegion(0x0, 0x3000, func(va uint64) addr.HostPhysAddr { return addr.HostPhysAddr(va) }, FlagRead, false, false)
	allocCount := a.allocN
	pt.Teardown()
	if a.freeN == 0 {
		t.Error("Teardown should release at least the root table")
	}
	_ = allocCount
}
