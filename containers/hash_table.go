package containers

import (
	"iter"

	"github.com/asteroids-engine/framecore/zone"
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

type hashTableHeader struct {
	storage  uint64
	maxCount uint64
	count    uint64
}

// A keyHash of zero marks an empty slot.
type hashEntry[V any] struct {
	keyHash uint64
	value   V
}

// HashTable is a fixed-capacity map from integer keys to values using open
// addressing with linear probing. Entries cannot be deleted; Clear empties
// the whole table. A prime capacity spreads sequential keys best.
type HashTable[K constraints.Integer, V any] struct {
	hdr     *hashTableHeader
	entries []hashEntry[V]
}

func NewHashTable[K constraints.Integer, V any](z *zone.Zone, count int) (HashTable[K, V], error) {
	if count <= 0 {
		return HashTable[K, V]{}, errors.Wrapf(ErrInvalidCapacity, "hash table of %d", count)
	}
	hdr, err := zone.Alloc[hashTableHeader](z)
	if err != nil {
		return HashTable[K, V]{}, errors.Wrap(err, "hash table descriptor")
	}
	entries, err := zone.AllocSlice[hashEntry[V]](z, count)
	if err != nil {
		return HashTable[K, V]{}, errors.Wrap(err, "hash table storage")
	}
	hdr.storage = uint64(storageOffset(z, entries))
	hdr.maxCount = uint64(count)
	return HashTable[K, V]{hdr: hdr, entries: entries}, nil
}

func hashKey[K constraints.Integer](k K) uint64 { return uint64(k) }

// Insert stores v under k, overwriting any previous value for k.
func (t HashTable[K, V]) Insert(k K, v V) error {
	h := hashKey(k)
	if h == 0 {
		return errors.Wrapf(ErrInvalidKey, "insert %d", k)
	}
	i := t.find(h)
	if i < 0 {
		return errors.Wrapf(zone.ErrCapacityExceeded, "hash table full at %d", t.hdr.maxCount)
	}
	e := &t.entries[i]
	if e.keyHash == 0 {
		e.keyHash = h
		t.hdr.count++
	}
	e.value = v
	return nil
}

func (t HashTable[K, V]) Lookup(k K) (V, bool) {
	if p := t.Ptr(k); p != nil {
		return *p, true
	}
	var zero V
	return zero, false
}

// Ptr returns a pointer to the value stored under k, or nil.
func (t HashTable[K, V]) Ptr(k K) *V {
	h := hashKey(k)
	if h == 0 {
		return nil
	}
	i := t.find(h)
	if i < 0 || t.entries[i].keyHash != h {
		return nil
	}
	return &t.entries[i].value
}

// find probes from h mod capacity and returns the slot holding h or the
// first empty slot, or -1 after a full cycle.
func (t HashTable[K, V]) find(h uint64) int {
	n := t.hdr.maxCount
	start := h % n
	for step := uint64(0); step < n; step++ {
		i := (start + step) % n
		if kh := t.entries[i].keyHash; kh == 0 || kh == h {
			return int(i)
		}
	}
	return -1
}

func (t HashTable[K, V]) Len() int { return int(t.hdr.count) }
func (t HashTable[K, V]) Cap() int { return int(t.hdr.maxCount) }

func (t HashTable[K, V]) Clear() {
	clear(t.entries)
	t.hdr.count = 0
}

// All yields the stored pairs in slot order.
func (t HashTable[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for i := range t.entries {
			e := &t.entries[i]
			if e.keyHash == 0 {
				continue
			}
			if !yield(K(e.keyHash), e.value) {
				return
			}
		}
	}
}
