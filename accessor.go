package nptcore

import (
	"unsafe"

	"github.com/blacktop/go-nptcore/addr"
	"github.com/blacktop/go-nptcore/frame"
)

// ReadObj reads sizeof(*out) bytes from gpa into out. Fails InvalidInput if
// gpa is unmapped or the limit TranslateAndGetLimit reports (the region's
// residual for a Linear region, the covering leaf's for an Alloc region) is
// smaller than the object. The translation happens exactly once; the
// accessor never decides page boundaries itself, it trusts the translator's
// limit.
func ReadObj[V any](as *AddrSpace, gpa addr.GuestPhysAddr, out *V) error {
	size := uint64(unsafe.Sizeof(*out))
	pa, limit, ok := as.TranslateAndGetLimit(gpa)
	if !ok {
		return newErr("ReadObj", InvalidInput, "translation failed")
	}
	if limit < size {
		return newErr("ReadObj", InvalidInput, "region residual smaller than object")
	}
	buf := unsafe.Slice((*byte)(unsafe.Pointer(out)), size)
	copy(buf, hostBytes(as.alloc, pa, size))
	return nil
}

// WriteObj writes *in to gpa. Same failure modes as ReadObj.
func WriteObj[V any](as *AddrSpace, gpa addr.GuestPhysAddr, in *V) error {
	size := uint64(unsafe.Sizeof(*in))
	pa, limit, ok := as.TranslateAndGetLimit(gpa)
	if !ok {
		return newErr("WriteObj", InvalidInput, "translation failed")
	}
	if limit < size {
		return newErr("WriteObj", InvalidInput, "region residual smaller than object")
	}
	buf := unsafe.Slice((*byte)(unsafe.Pointer(in)), size)
	copy(hostBytes(as.alloc, pa, size), buf)
	return nil
}

// ReadVolatile is an alias for ReadObj: there is no separate
// tearing-avoidance story above what the platform's natural aligned-load
// atomicity already gives V.
func ReadVolatile[V any](as *AddrSpace, gpa addr.GuestPhysAddr, out *V) error {
	return ReadObj(as, gpa, out)
}

// WriteVolatile is an alias for WriteObj.
func WriteVolatile[V any](as *AddrSpace, gpa addr.GuestPhysAddr, in *V) error {
	return WriteObj(as, gpa, in)
}

// ReadBuffer fills out with bytes starting at gpa, chunking at the limits
// TranslateAndGetLimit reports (region ends for Linear regions, leaf ends
// for Alloc regions). An empty out is always a success.
func (as *AddrSpace) ReadBuffer(gpa addr.GuestPhysAddr, out []byte) error {
	return as.readBuffer(gpa, out)
}

// WriteBuffer writes in to guest memory starting at gpa, chunking the same
// way ReadBuffer does. An empty in is always a success.
func (as *AddrSpace) WriteBuffer(gpa addr.GuestPhysAddr, in []byte) error {
	return as.writeBuffer(gpa, in)
}

func (as *AddrSpace) readBuffer(gpa addr.GuestPhysAddr, out []byte) error {
	remaining := out
	cur := gpa
	for len(remaining) > 0 {
		pa, limit, ok := as.TranslateAndGetLimit(cur)
		if !ok {
			return newErr("AddrSpace.readBuffer", InvalidInput, "translation failed")
		}
		if limit == 0 {
			return newErr("AddrSpace.readBuffer", InvalidInput, "zero residual at translated address")
		}
		n := uint64(len(remaining))
		if limit < n {
			n = limit
		}
		src := hostBytes(as.alloc, pa, n)
		copy(remaining[:n], src)
		remaining = remaining[n:]
		cur += addr.GuestPhysAddr(n)
	}
	return nil
}

func (as *AddrSpace) writeBuffer(gpa addr.GuestPhysAddr, in []byte) error {
	remaining := in
	cur := gpa
	for len(remaining) > 0 {
		pa, limit, ok := as.TranslateAndGetLimit(cur)
		if !ok {
			return newErr("AddrSpace.writeBuffer", InvalidInput, "translation failed")
		}
		if limit == 0 {
			return newErr("AddrSpace.writeBuffer", InvalidInput, "zero residual at translated address")
		}
		n := uint64(len(remaining))
		if limit < n {
			n = limit
		}
		dst := hostBytes(as.alloc, pa, n)
		copy(dst, remaining[:n])
		remaining = remaining[n:]
		cur += addr.GuestPhysAddr(n)
	}
	return nil
}

// TranslatedByteBuffer returns a scatter list of host-virtual byte slices
// covering [gpa, gpa+length), one entry per page-size-bounded chunk: frames
// of an allocator-backed region need not be host-contiguous across a leaf
// boundary, so each slice stops at the covering leaf's end.
func (as *AddrSpace) TranslatedByteBuffer(gpa addr.GuestPhysAddr, length uint64) ([][]byte, bool) {
	if length == 0 {
		return nil, true
	}
	var out [][]byte
	remaining := length
	cur := gpa
	for remaining > 0 {
		pa, _, size, ok := as.Translate(cur)
		if !ok {
			return nil, false
		}
		pageEnd := (uint64(cur) &^ (uint64(size) - 1)) + uint64(size)
		n := pageEnd - uint64(cur)
		if remaining < n {
			n = remaining
		}
		out = append(out, hostBytes(as.alloc, pa, n))
		remaining -= n
		cur += addr.GuestPhysAddr(n)
	}
	return out, true
}

func hostBytes(alloc frame.Allocator, pa addr.HostPhysAddr, n uint64) []byte {
	if n == 0 {
		return nil
	}
	va := alloc.PhysToVirt(pa)
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(va))), n)
}
