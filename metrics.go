package nptcore

import (
	"sync/atomic"
	"time"
)

// Performance metrics for monitoring address-space operations, kept as
// package-level atomic counters so instrumentation happens at the point the
// call does, not in every caller.
var (
	mapOperations     uint64
	unmapOperations   uint64
	protectOperations uint64
	faultOperations   uint64
	faultsHandled     uint64
	cloneOperations   uint64
	framesAllocated   uint64
	framesReleased    uint64

	totalFaultTime uint64
	totalCloneTime uint64
)

// Metrics provides access to cumulative address-space performance counters.
type Metrics struct {
	MapOperations     uint64 `json:"map_operations"`
	UnmapOperations   uint64 `json:"unmap_operations"`
	ProtectOperations uint64 `json:"protect_operations"`
	FaultOperations   uint64 `json:"fault_operations"`
	FaultsHandled     uint64 `json:"faults_handled"`
	CloneOperations   uint64 `json:"clone_operations"`
	FramesAllocated   uint64 `json:"frames_allocated"`
	FramesReleased    uint64 `json:"frames_released"`
	AvgFaultTimeNs    uint64 `json:"avg_fault_time_ns"`
	AvgCloneTimeNs    uint64 `json:"avg_clone_time_ns"`
}

// GetMetrics returns a snapshot of the current counters.
func GetMetrics() Metrics {
	faults := atomic.LoadUint64(&faultOperations)
	clones := atomic.LoadUint64(&cloneOperations)

	var avgFault, avgClone uint64
	if faults > 0 {
		avgFault = atomic.LoadUint64(&totalFaultTime) / faults
	}
	if clones > 0 {
		avgClone = atomic.LoadUint64(&totalCloneTime) / clones
	}

	return Metrics{
		MapOperations:     atomic.LoadUint64(&mapOperations),
		UnmapOperations:   atomic.LoadUint64(&unmapOperations),
		ProtectOperations: atomic.LoadUint64(&protectOperations),
		FaultOperations:   faults,
		FaultsHandled:     atomic.LoadUint64(&faultsHandled),
		CloneOperations:   clones,
		FramesAllocated:   atomic.LoadUint64(&framesAllocated),
		FramesReleased:    atomic.LoadUint64(&framesReleased),
		AvgFaultTimeNs:    avgFault,
		AvgCloneTimeNs:    avgClone,
	}
}

// ResetMetrics clears every counter. Intended for test isolation.
func ResetMetrics() {
	atomic.StoreUint64(&mapOperations, 0)
	atomic.StoreUint64(&unmapOperations, 0)
	atomic.StoreUint64(&protectOperations, 0)
	atomic.StoreUint64(&faultOperations, 0)
	atomic.StoreUint64(&faultsHandled, 0)
	atomic.StoreUint64(&cloneOperations, 0)
	atomic.StoreUint64(&framesAllocated, 0)
	atomic.StoreUint64(&framesReleased, 0)
	atomic.StoreUint64(&totalFaultTime, 0)
	atomic.StoreUint64(&totalCloneTime, 0)
}

func recordMap()     { atomic.AddUint64(&mapOperations, 1) }
func recordUnmap()   { atomic.AddUint64(&unmapOperations, 1) }
func recordProtect() { atomic.AddUint64(&protectOperations, 1) }

func recordFault(handled bool, d time.Duration) {
	atomic.AddUint64(&faultOperations, 1)
	atomic.AddUint64(&totalFaultTime, uint64(d.Nanoseconds()))
	if handled {
		atomic.AddUint64(&faultsHandled, 1)
	}
}

func recordClone(d time.Duration) {
	atomic.AddUint64(&cloneOperations, 1)
	atomic.AddUint64(&totalCloneTime, uint64(d.Nanoseconds()))
}

func recordFrameAlloc() { atomic.AddUint64(&framesAllocated, 1) }
func recordFrameFree()  { atomic.AddUint64(&framesReleased, 1) }
