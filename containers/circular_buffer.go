package containers

import (
	"iter"

	"github.com/asteroids-engine/framecore/zone"
	"github.com/pkg/errors"
)

type circularBufferHeader struct {
	storage   uint64
	maxCount  uint64
	count     uint64
	nextIndex uint64
}

// CircularBuffer is a fixed-capacity buffer that silently overwrites its
// oldest entry once full.
type CircularBuffer[T any] struct {
	hdr   *circularBufferHeader
	items []T
}

func NewCircularBuffer[T any](z *zone.Zone, count int) (CircularBuffer[T], error) {
	if count <= 0 {
		return CircularBuffer[T]{}, errors.Wrapf(ErrInvalidCapacity, "circular buffer of %d", count)
	}
	hdr, err := zone.Alloc[circularBufferHeader](z)
	if err != nil {
		return CircularBuffer[T]{}, errors.Wrap(err, "circular buffer descriptor")
	}
	items, err := zone.AllocSlice[T](z, count)
	if err != nil {
		return CircularBuffer[T]{}, errors.Wrap(err, "circular buffer storage")
	}
	hdr.storage = uint64(storageOffset(z, items))
	hdr.maxCount = uint64(count)
	return CircularBuffer[T]{hdr: hdr, items: items}, nil
}

func (b CircularBuffer[T]) Push(x T) {
	h := b.hdr
	b.items[h.nextIndex] = x
	h.nextIndex++
	if h.nextIndex == h.maxCount {
		h.nextIndex = 0
	}
	if h.count < h.maxCount {
		h.count++
	}
}

// At returns the element at raw storage index i.
func (b CircularBuffer[T]) At(i int) T {
	if i < 0 || i >= int(b.hdr.count) {
		panic(errors.Errorf("containers: circular buffer index %d out of range [0, %d)", i, b.hdr.count))
	}
	return b.items[i]
}

// Ptr returns a pointer to the element at raw storage index i.
func (b CircularBuffer[T]) Ptr(i int) *T {
	if i < 0 || i >= int(b.hdr.count) {
		panic(errors.Errorf("containers: circular buffer index %d out of range [0, %d)", i, b.hdr.count))
	}
	return &b.items[i]
}

func (b CircularBuffer[T]) Len() int       { return int(b.hdr.count) }
func (b CircularBuffer[T]) Cap() int       { return int(b.hdr.maxCount) }
func (b CircularBuffer[T]) NextIndex() int { return int(b.hdr.nextIndex) }

func (b CircularBuffer[T]) Clear() {
	clear(b.items)
	b.hdr.count = 0
	b.hdr.nextIndex = 0
}

// All yields storage indices 0..Len() in raw storage order. Once the buffer
// has wrapped this is not oldest-first; use Ordered for that.
func (b CircularBuffer[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := 0; i < int(b.hdr.count); i++ {
			if !yield(i, b.items[i]) {
				return
			}
		}
	}
}

// Ordered yields the live elements oldest first, starting at
// (nextIndex - count) mod maxCount. The int is the raw storage index.
func (b CircularBuffer[T]) Ordered() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		h := b.hdr
		start := (h.nextIndex + h.maxCount - h.count) % h.maxCount
		for k := uint64(0); k < h.count; k++ {
			i := (start + k) % h.maxCount
			if !yield(int(i), b.items[i]) {
				return
			}
		}
	}
}
