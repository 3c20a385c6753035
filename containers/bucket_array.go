package containers

import (
	"iter"
	"math/bits"

	"github.com/asteroids-engine/framecore/zone"
	"github.com/pkg/errors"
)

// BucketSize is the number of slots in one bucket.
const BucketSize = 64

type bucketArrayHeader struct {
	first    uint64 // offset+1 of the first bucket descriptor
	last     uint64 // offset+1 of the last bucket descriptor
	buckets  uint64
	capacity uint64
	used     uint64
}

type bucketHeader struct {
	storage      uint64
	used         uint64
	occupiedMask uint64
	next         uint64 // offset+1, 0 at the tail
}

// Locator identifies an element of a BucketArray. It stays valid until the
// element is removed or the array is cleared; growth does not move elements.
type Locator struct {
	Bucket uint32
	Slot   uint32
}

// BucketArray is a growable collection made of linked fixed-size buckets.
// Growth appends one bucket at a time and never relocates existing ones.
type BucketArray[T any] struct {
	z   *zone.Zone
	hdr *bucketArrayHeader
}

// NewBucketArray reserves enough buckets for hint elements (at least one
// bucket) with their storage in one contiguous block.
func NewBucketArray[T any](z *zone.Zone, hint int) (BucketArray[T], error) {
	if hint < 0 {
		return BucketArray[T]{}, errors.Wrapf(ErrInvalidCapacity, "bucket array hint %d", hint)
	}
	n := max((hint+BucketSize-1)/BucketSize, 1)
	hdr, err := zone.Alloc[bucketArrayHeader](z)
	if err != nil {
		return BucketArray[T]{}, errors.Wrap(err, "bucket array descriptor")
	}
	buckets, err := zone.AllocSlice[bucketHeader](z, n)
	if err != nil {
		return BucketArray[T]{}, errors.Wrap(err, "bucket descriptors")
	}
	items, err := zone.AllocSlice[T](z, n*BucketSize)
	if err != nil {
		return BucketArray[T]{}, errors.Wrap(err, "bucket storage")
	}
	for i := range buckets {
		buckets[i].storage = uint64(storageOffset(z, items[i*BucketSize:]))
		if i+1 < n {
			buckets[i].next = uint64(zone.OffsetOf(z, &buckets[i+1])) + 1
		}
	}
	hdr.first = uint64(zone.OffsetOf(z, &buckets[0])) + 1
	hdr.last = uint64(zone.OffsetOf(z, &buckets[n-1])) + 1
	hdr.buckets = uint64(n)
	hdr.capacity = uint64(n * BucketSize)
	return BucketArray[T]{z: z, hdr: hdr}, nil
}

// NewElement claims a free slot, growing by one bucket if every slot is in
// use, and returns the zeroed element with its locator.
func (a BucketArray[T]) NewElement() (*T, Locator, error) {
	h := a.hdr
	if h.used == h.capacity {
		if err := a.grow(); err != nil {
			return nil, Locator{}, err
		}
	}
	var b uint32
	for bk := a.bucketAt(h.first); bk != nil; bk = a.bucketAt(bk.next) {
		if bk.used < BucketSize {
			slot := bits.TrailingZeros64(^bk.occupiedMask)
			bk.occupiedMask |= 1 << uint(slot)
			bk.used++
			h.used++
			p := &a.items(bk)[slot]
			var zero T
			*p = zero
			return p, Locator{Bucket: b, Slot: uint32(slot)}, nil
		}
		b++
	}
	panic("containers: bucket array counters out of sync")
}

func (a BucketArray[T]) grow() error {
	bk, err := zone.Alloc[bucketHeader](a.z)
	if err != nil {
		return errors.Wrap(err, "bucket array grow")
	}
	items, err := zone.AllocSlice[T](a.z, BucketSize)
	if err != nil {
		return errors.Wrap(err, "bucket array grow")
	}
	bk.storage = uint64(storageOffset(a.z, items))
	off := uint64(zone.OffsetOf(a.z, bk)) + 1
	a.bucketAt(a.hdr.last).next = off
	a.hdr.last = off
	a.hdr.buckets++
	a.hdr.capacity += BucketSize
	return nil
}

// Get returns the element at loc, or nil if the slot is not in use.
func (a BucketArray[T]) Get(loc Locator) *T {
	bk := a.bucket(loc.Bucket)
	if bk == nil || loc.Slot >= BucketSize || bk.occupiedMask&(1<<loc.Slot) == 0 {
		return nil
	}
	return &a.items(bk)[loc.Slot]
}

// Remove frees the slot at loc. The element's bytes are left as they were.
// Removing a slot that is not in use panics.
func (a BucketArray[T]) Remove(loc Locator) {
	bk := a.bucket(loc.Bucket)
	if bk == nil || loc.Slot >= BucketSize {
		panic(errors.Errorf("containers: bucket array locator %v out of range", loc))
	}
	if bk.occupiedMask&(1<<loc.Slot) == 0 {
		panic(errors.Errorf("containers: bucket array slot %v is not occupied", loc))
	}
	bk.occupiedMask &^= 1 << loc.Slot
	bk.used--
	a.hdr.used--
}

// Clear frees every slot without touching element bytes. Buckets added by
// growth are kept.
func (a BucketArray[T]) Clear() {
	for bk := a.bucketAt(a.hdr.first); bk != nil; bk = a.bucketAt(bk.next) {
		bk.used = 0
		bk.occupiedMask = 0
	}
	a.hdr.used = 0
}

func (a BucketArray[T]) Len() int        { return int(a.hdr.used) }
func (a BucketArray[T]) Cap() int        { return int(a.hdr.capacity) }
func (a BucketArray[T]) NumBuckets() int { return int(a.hdr.buckets) }

// All yields live elements in bucket order, ascending slot within a bucket.
// The element being yielded may be removed from inside the loop.
func (a BucketArray[T]) All() iter.Seq2[Locator, *T] {
	return func(yield func(Locator, *T) bool) {
		remaining := a.hdr.used
		var b uint32
		for bk := a.bucketAt(a.hdr.first); bk != nil && remaining > 0; bk = a.bucketAt(bk.next) {
			items := a.items(bk)
			for m := bk.occupiedMask; m != 0 && remaining > 0; m &= m - 1 {
				slot := bits.TrailingZeros64(m)
				remaining--
				if !yield(Locator{Bucket: b, Slot: uint32(slot)}, &items[slot]) {
					return
				}
			}
			b++
		}
	}
}

func (a BucketArray[T]) bucket(i uint32) *bucketHeader {
	if uint64(i) >= a.hdr.buckets {
		return nil
	}
	bk := a.bucketAt(a.hdr.first)
	for ; i > 0 && bk != nil; i-- {
		bk = a.bucketAt(bk.next)
	}
	return bk
}

func (a BucketArray[T]) bucketAt(ref uint64) *bucketHeader {
	if ref == 0 {
		return nil
	}
	return zone.At[bucketHeader](a.z, int(ref-1))
}

func (a BucketArray[T]) items(bk *bucketHeader) []T {
	return zone.SliceAt[T](a.z, int(bk.storage), BucketSize)
}
