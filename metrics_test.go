package nptcore

import "testing"

func TestMetricsRoundTrip(t *testing.T) {
	ResetMetrics()
	recordMap()
	recordMap()
	recordUnmap()
	recordFrameAlloc()
	recordFrameAlloc()
	recordFrameFree()

	m := GetMetrics()
	if m.MapOperations != 2 {
		t.Errorf("MapOperations = %d, want 2", m.MapOperations)
	}
	if m.UnmapOperations != 1 {
		t.Errorf("UnmapOperations = %d, want 1", m.UnmapOperations)
	}
	if m.FramesAllocated != 2 || m.FramesReleased != 1 {
		t.Errorf("frame counters = (%d,%d), want (2,1)", m.FramesAllocated, m.FramesReleased)
	}
}

func TestMetricsReset(t *testing.T) {
	recordMap()
	recordClone(0)
	ResetMetrics()
	m := GetMetrics()
	if m.MapOperations != 0 || m.CloneOperations != 0 {
		t.Errorf("ResetMetrics did not clear counters: %+v", m)
	}
}
