package zone

// Ref is an ownership-free handle to a T living in a zone. It stores the
// offset rather than a pointer so it can itself be kept in zone memory.
// The zero Ref is nil.
type Ref[T any] struct {
	off uint64 // offset + 1
}

// AllocRef allocates a zeroed T in the zone and returns a Ref to it.
func AllocRef[T any](z *Zone) (Ref[T], error) {
	off, err := allocTyped[T](z, 1)
	if err != nil {
		return Ref[T]{}, err
	}
	return Ref[T]{off: uint64(off) + 1}, nil
}

// RefAt wraps an offset previously returned for an allocation of T.
func RefAt[T any](off int) Ref[T] {
	return Ref[T]{off: uint64(off) + 1}
}

func (r Ref[T]) IsNil() bool { return r.off == 0 }

// Offset returns the offset of the value, or -1 for a nil Ref.
func (r Ref[T]) Offset() int { return int(r.off) - 1 }

// Deref returns a pointer to the value. The zone must share the memory block
// the value was allocated from.
func (r Ref[T]) Deref(z *Zone) *T {
	if r.off == 0 {
		panic("zone: dereference of nil Ref")
	}
	return At[T](z, int(r.off-1))
}
