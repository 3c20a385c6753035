package zone

import (
	"unsafe"

	"github.com/pkg/errors"
)

var (
	ErrCapacityExceeded = errors.New("zone: capacity exceeded")
	ErrOutOfRange       = errors.New("zone: range outside of memory")
	ErrPointerType      = errors.New("zone: type contains pointers")
)

// header is the zone descriptor. It is pointer-free so that nested zones can
// keep it inside their controlling zone.
type header struct {
	base uint64
	size uint64
	used uint64
}

// Zone is a bump allocator over a sub-range of a shared memory block.
// Not safe for concurrent use.
type Zone struct {
	name string
	mem  []byte
	hdr  *header
	root header
	subs []span // ranges handed to nested zones
}

type span struct{ base, end int }

// New creates a root zone spanning all of mem.
func New(name string, mem []byte) *Zone {
	z := &Zone{name: name, mem: mem}
	z.root = header{base: 0, size: uint64(len(mem))}
	z.hdr = &z.root
	return z
}

// NewRange creates a root zone over [base, base+size) of mem. Offsets handed
// out by the zone and its nested zones are relative to the start of mem.
func NewRange(name string, mem []byte, base, size int) (*Zone, error) {
	if base < 0 || size < 0 || base+size > len(mem) {
		return nil, errors.Wrapf(ErrOutOfRange, "zone %q: [%d, %d) in %d bytes", name, base, base+size, len(mem))
	}
	z := &Zone{name: name, mem: mem}
	z.root = header{base: uint64(base), size: uint64(size)}
	z.hdr = &z.root
	return z, nil
}

// CreateZone creates a nested zone whose descriptor is allocated from z and
// whose payload is the explicit range [base, base+size) of the shared memory.
// The range must not overlap z's own range or that of another zone created
// from z.
func (z *Zone) CreateZone(name string, base, size int) (*Zone, error) {
	if base < 0 || size < 0 || base+size > len(z.mem) {
		return nil, errors.Wrapf(ErrOutOfRange, "zone %q: sub-zone %q [%d, %d) in %d bytes",
			z.name, name, base, base+size, len(z.mem))
	}
	zb, ze := z.Base(), z.Base()+z.Size()
	if size > 0 && base < ze && zb < base+size {
		return nil, errors.Wrapf(ErrOutOfRange, "zone %q: sub-zone %q [%d, %d) overlaps [%d, %d)",
			z.name, name, base, base+size, zb, ze)
	}
	for _, sub := range z.subs {
		if size > 0 && base < sub.end && sub.base < base+size {
			return nil, errors.Wrapf(ErrOutOfRange, "zone %q: sub-zone %q [%d, %d) overlaps a sibling at [%d, %d)",
				z.name, name, base, base+size, sub.base, sub.end)
		}
	}
	h, err := Alloc[header](z)
	if err != nil {
		return nil, errors.Wrapf(err, "zone %q: descriptor for %q", z.name, name)
	}
	h.base = uint64(base)
	h.size = uint64(size)
	h.used = 0
	z.subs = append(z.subs, span{base, base + size})
	return &Zone{name: name, mem: z.mem, hdr: h}, nil
}

// Allocate reserves n bytes and returns the offset of the first one, which is
// the value of the used mark before the call. No alignment padding is applied.
func (z *Zone) Allocate(n int) (int, error) {
	if n < 0 {
		return 0, errors.Wrapf(ErrOutOfRange, "zone %q: negative allocation %d", z.name, n)
	}
	h := z.hdr
	if h.used+uint64(n) > h.size {
		return 0, errors.Wrapf(ErrCapacityExceeded, "zone %q: %d bytes requested, %d free",
			z.name, n, h.size-h.used)
	}
	off := h.base + h.used
	h.used += uint64(n)
	return int(off), nil
}

// AllocateAligned reserves n bytes starting at an address that is a multiple
// of align, padding the used mark first. align must be a power of two.
func (z *Zone) AllocateAligned(n, align int) (int, error) {
	if align <= 0 || align&(align-1) != 0 {
		return 0, errors.Wrapf(ErrOutOfRange, "zone %q: alignment %d is not a power of two", z.name, align)
	}
	if n < 0 {
		return 0, errors.Wrapf(ErrOutOfRange, "zone %q: negative allocation %d", z.name, n)
	}
	h := z.hdr
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(z.mem))) + uintptr(h.base+h.used)
	pad := uint64(-addr & uintptr(align-1))
	if h.used+pad+uint64(n) > h.size {
		return 0, errors.Wrapf(ErrCapacityExceeded, "zone %q: %d bytes (+%d padding) requested, %d free",
			z.name, n, pad, h.size-h.used)
	}
	off := h.base + h.used + pad
	h.used += pad + uint64(n)
	return int(off), nil
}

// Bytes returns the n bytes at off. The range must lie inside the zone.
func (z *Zone) Bytes(off, n int) []byte {
	if !z.contains(off, n) {
		panic(errors.Wrapf(ErrOutOfRange, "zone %q: bytes [%d, %d)", z.name, off, off+n))
	}
	return z.mem[off : off+n : off+n]
}

// Reset discards every allocation made from the zone. Structures built on
// it become invalid.
func (z *Zone) Reset() {
	z.hdr.used = 0
}

func (z *Zone) Name() string { return z.name }
func (z *Zone) Base() int    { return int(z.hdr.base) }
func (z *Zone) Size() int    { return int(z.hdr.size) }
func (z *Zone) Used() int    { return int(z.hdr.used) }
func (z *Zone) Free() int    { return int(z.hdr.size - z.hdr.used) }

// Memory returns the whole block the zone lives in.
func (z *Zone) Memory() []byte { return z.mem }

func (z *Zone) contains(off, n int) bool {
	base := int(z.hdr.base)
	return off >= base && n >= 0 && off+n <= base+int(z.hdr.size)
}
