package containers

import (
	"iter"

	"github.com/asteroids-engine/framecore/zone"
	"github.com/pkg/errors"
)

type staticArrayHeader struct {
	storage  uint64
	maxCount uint64
	count    uint64
}

// StaticArray is a fixed-capacity, append-only sequence. Once it is full,
// Push fails until Clear.
type StaticArray[T any] struct {
	hdr   *staticArrayHeader
	items []T
}

// NewStaticArray reserves a descriptor and room for count elements in z.
func NewStaticArray[T any](z *zone.Zone, count int) (StaticArray[T], error) {
	if count < 0 {
		return StaticArray[T]{}, errors.Wrapf(ErrInvalidCapacity, "static array of %d", count)
	}
	hdr, err := zone.Alloc[staticArrayHeader](z)
	if err != nil {
		return StaticArray[T]{}, errors.Wrap(err, "static array descriptor")
	}
	items, err := zone.AllocSlice[T](z, count)
	if err != nil {
		return StaticArray[T]{}, errors.Wrap(err, "static array storage")
	}
	hdr.storage = uint64(storageOffset(z, items))
	hdr.maxCount = uint64(count)
	return StaticArray[T]{hdr: hdr, items: items}, nil
}

func (a StaticArray[T]) Push(x T) error {
	h := a.hdr
	if h.count >= h.maxCount {
		return errors.Wrapf(zone.ErrCapacityExceeded, "static array full at %d", h.maxCount)
	}
	a.items[h.count] = x
	h.count++
	return nil
}

func (a StaticArray[T]) At(i int) T {
	return a.items[a.index(i)]
}

func (a StaticArray[T]) Ptr(i int) *T {
	return &a.items[a.index(i)]
}

func (a StaticArray[T]) Len() int { return int(a.hdr.count) }
func (a StaticArray[T]) Cap() int { return int(a.hdr.maxCount) }

// Clear zeroes the storage and empties the array.
func (a StaticArray[T]) Clear() {
	clear(a.items)
	a.hdr.count = 0
}

// All yields the elements in push order.
func (a StaticArray[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := 0; i < int(a.hdr.count); i++ {
			if !yield(i, a.items[i]) {
				return
			}
		}
	}
}

func (a StaticArray[T]) index(i int) int {
	if i < 0 || i >= int(a.hdr.count) {
		panic(errors.Errorf("containers: static array index %d out of range [0, %d)", i, a.hdr.count))
	}
	return i
}

func storageOffset[T any](z *zone.Zone, items []T) int {
	if len(items) == 0 {
		return 0
	}
	return zone.OffsetOf(z, &items[0])
}
