package containers

import (
	"iter"
	"math/bits"

	"github.com/asteroids-engine/framecore/zone"
	"github.com/pkg/errors"
)

// MaxPoolCount bounds a Pool's capacity; occupancy is tracked in one uint64.
const MaxPoolCount = 64

type poolHeader struct {
	storage      uint64
	maxCount     uint64
	count        uint64
	occupiedMask uint64
}

// Pool is a small fixed-capacity set whose slots are reused after removal.
// The index returned by Add identifies the element until it is removed.
type Pool[T any] struct {
	hdr   *poolHeader
	items []T
}

// NewPool reserves a pool of count slots in z. count must be in [1, 64).
func NewPool[T any](z *zone.Zone, count int) (Pool[T], error) {
	if count <= 0 || count >= MaxPoolCount {
		return Pool[T]{}, errors.Wrapf(ErrInvalidCapacity, "pool of %d, want 1..%d", count, MaxPoolCount-1)
	}
	hdr, err := zone.Alloc[poolHeader](z)
	if err != nil {
		return Pool[T]{}, errors.Wrap(err, "pool descriptor")
	}
	items, err := zone.AllocSlice[T](z, count)
	if err != nil {
		return Pool[T]{}, errors.Wrap(err, "pool storage")
	}
	hdr.storage = uint64(storageOffset(z, items))
	hdr.maxCount = uint64(count)
	return Pool[T]{hdr: hdr, items: items}, nil
}

// Add stores x in the lowest free slot and returns its index.
func (p Pool[T]) Add(x T) (int, error) {
	h := p.hdr
	if h.count >= h.maxCount {
		return -1, errors.Wrapf(zone.ErrCapacityExceeded, "pool full at %d", h.maxCount)
	}
	i := bits.TrailingZeros64(^h.occupiedMask)
	p.items[i] = x
	h.occupiedMask |= 1 << uint(i)
	h.count++
	return i, nil
}

// RemoveAt frees slot i. The slot's bytes are left as they were.
// Removing a free slot panics.
func (p Pool[T]) RemoveAt(i int) {
	h := p.hdr
	if i < 0 || i >= int(h.maxCount) {
		panic(errors.Errorf("containers: pool index %d out of range [0, %d)", i, h.maxCount))
	}
	if h.occupiedMask&(1<<uint(i)) == 0 {
		panic(errors.Errorf("containers: pool slot %d is not occupied", i))
	}
	h.occupiedMask &^= 1 << uint(i)
	h.count--
}

func (p Pool[T]) Has(i int) bool {
	return i >= 0 && i < int(p.hdr.maxCount) && p.hdr.occupiedMask&(1<<uint(i)) != 0
}

func (p Pool[T]) Get(i int) (T, bool) {
	if !p.Has(i) {
		var zero T
		return zero, false
	}
	return p.items[i], true
}

// Ptr returns a pointer to the element in slot i, or nil for a free slot.
func (p Pool[T]) Ptr(i int) *T {
	if !p.Has(i) {
		return nil
	}
	return &p.items[i]
}

func (p Pool[T]) Len() int     { return int(p.hdr.count) }
func (p Pool[T]) Cap() int     { return int(p.hdr.maxCount) }
func (p Pool[T]) Mask() uint64 { return p.hdr.occupiedMask }
func (p Pool[T]) Full() bool   { return p.hdr.count == p.hdr.maxCount }

// Clear zeroes the storage and frees every slot.
func (p Pool[T]) Clear() {
	clear(p.items)
	p.hdr.count = 0
	p.hdr.occupiedMask = 0
}

// All yields occupied slots in ascending index order. The slot being yielded
// may be removed from inside the loop; other adds and removes are not safe.
func (p Pool[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := 0; i < int(p.hdr.maxCount); i++ {
			if p.hdr.occupiedMask&(1<<uint(i)) == 0 {
				continue
			}
			if !yield(i, p.items[i]) {
				return
			}
		}
	}
}
