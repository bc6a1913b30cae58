package addr

import "testing"

func TestAddrRangeEmpty(t *testing.T) {
	tests := []struct {
		name  string
		r     AddrRange[GuestPhysAddr]
		empty bool
		size  uint64
	}{
		{"normal", AddrRange[GuestPhysAddr]{0x1000, 0x2000}, false, 0x1000},
		{"zero-size", AddrRange[GuestPhysAddr]{0x1000, 0x1000}, true, 0},
		{"inverted", AddrRange[GuestPhysAddr]{0x2000, 0x1000}, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.IsEmpty(); got != tt.empty {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.empty)
			}
			if got := tt.r.Size(); got != tt.size {
				t.Errorf("Size() = %v, want %v", got, tt.size)
			}
		})
	}
}

func TestAddrRangeContains(t *testing.T) {
	r := NewAddrRange[GuestPhysAddr](0x10000, 0x10000)
	if !r.Contains(0x10000) {
		t.Error("should contain start")
	}
	if r.Contains(0x20000) {
		t.Error("end is exclusive, should not be contained")
	}
	if !r.Contains(0x1ffff) {
		t.Error("should contain last byte")
	}
	if r.Contains(0xffff) {
		t.Error("should not contain address before start")
	}
}

func TestAddrRangeContainsRange(t *testing.T) {
	outer := NewAddrRange[GuestPhysAddr](0x10000, 0x10000)
	tests := []struct {
		name  string
		inner AddrRange[GuestPhysAddr]
		want  bool
	}{
		{"wholly inside", AddrRange[GuestPhysAddr]{0x11000, 0x12000}, true},
		{"exact match", outer, true},
		{"spills past end", AddrRange[GuestPhysAddr]{0x1f000, 0x21000}, false},
		{"starts before", AddrRange[GuestPhysAddr]{0xf000, 0x11000}, false},
		{"disjoint", AddrRange[GuestPhysAddr]{0x30000, 0x31000}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := outer.ContainsRange(tt.inner); got != tt.want {
				t.Errorf("ContainsRange(%v) = %v, want %v", tt.inner, got, tt.want)
			}
		})
	}
}

func TestAddrRangeOverlaps(t *testing.T) {
	a := NewAddrRange[GuestPhysAddr](0x1000, 0x1000) // [0x1000, 0x2000)
	tests := []struct {
		name string
		b    AddrRange[GuestPhysAddr]
		want bool
	}{
		{"identical", a, true},
		{"touches at end, half-open so no overlap", AddrRange[GuestPhysAddr]{0x2000, 0x3000}, false},
		{"touches at start, half-open so no overlap", AddrRange[GuestPhysAddr]{0x0, 0x1000}, false},
		{"partial overlap", AddrRange[GuestPhysAddr]{0x1800, 0x2800}, true},
		{"fully contains a", AddrRange[GuestPhysAddr]{0x0, 0x3000}, true},
		{"disjoint", AddrRange[GuestPhysAddr]{0x5000, 0x6000}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Overlaps(tt.b); got != tt.want {
				t.Errorf("Overlaps(%v) = %v, want %v", tt.b, got, tt.want)
			}
			if got := tt.b.Overlaps(a); got != tt.want {
				t.Errorf("Overlaps is not symmetric for %v", tt.b)
			}
		})
	}
}
