package containers

import (
	"math/bits"
	"math/rand"
	"slices"
	"testing"

	"github.com/asteroids-engine/framecore/zone"
	"github.com/pkg/errors"
)

func newZone(t *testing.T, size int) *zone.Zone {
	t.Helper()
	return zone.New(t.Name(), make([]byte, size))
}

func TestStaticArraysInSmallZone(t *testing.T) {
	z := newZone(t, 1024)
	for i := 0; i < 3; i++ {
		if _, err := NewStaticArray[int](z, 10); err != nil {
			t.Fatalf("array %d: %v", i, err)
		}
	}

	// 24-byte descriptor plus 80 bytes of storage each.
	z = newZone(t, 200)
	if _, err := NewStaticArray[int64](z, 10); err != nil {
		t.Fatalf("first array: %v", err)
	}
	if _, err := NewStaticArray[int64](z, 10); !errors.Is(err, zone.ErrCapacityExceeded) {
		t.Fatalf("second array = %v, want ErrCapacityExceeded", err)
	}
}

func TestStaticArray(t *testing.T) {
	a, err := NewStaticArray[int32](newZone(t, 256), 4)
	if err != nil {
		t.Fatal(err)
	}
	for i := int32(1); i <= 4; i++ {
		if err := a.Push(i * 10); err != nil {
			t.Fatalf("Push(%d): %v", i*10, err)
		}
	}
	if err := a.Push(50); !errors.Is(err, zone.ErrCapacityExceeded) {
		t.Fatalf("Push past capacity = %v, want ErrCapacityExceeded", err)
	}
	var got []int32
	for i, v := range a.All() {
		if a.At(i) != v {
			t.Errorf("At(%d) = %d, iteration gave %d", i, a.At(i), v)
		}
		got = append(got, v)
	}
	if want := []int32{10, 20, 30, 40}; !slices.Equal(got, want) {
		t.Errorf("All() = %v, want %v", got, want)
	}
	*a.Ptr(2) = 33
	if a.At(2) != 33 {
		t.Errorf("write through Ptr not visible: %d", a.At(2))
	}

	a.Clear()
	if a.Len() != 0 || a.Cap() != 4 {
		t.Errorf("after Clear len/cap = %d/%d, want 0/4", a.Len(), a.Cap())
	}
	for range a.All() {
		t.Fatal("All() yielded after Clear")
	}
}

func TestStaticArrayHandlesShareState(t *testing.T) {
	a, _ := NewStaticArray[uint8](newZone(t, 64), 2)
	b := a
	b.Push(7)
	if a.Len() != 1 || a.At(0) != 7 {
		t.Errorf("copy of handle did not share state: len %d", a.Len())
	}
}

func TestStaticArrayAtOutOfRangePanics(t *testing.T) {
	a, _ := NewStaticArray[int](newZone(t, 128), 4)
	a.Push(1)
	defer func() {
		if recover() == nil {
			t.Error("At(1) on a one-element array did not panic")
		}
	}()
	a.At(1)
}

func TestPoolReusesLowestSlot(t *testing.T) {
	p, err := NewPool[int](newZone(t, 256), 8)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 8; i++ {
		idx, err := p.Add(i * 100)
		if err != nil {
			t.Fatalf("Add %d: %v", i, err)
		}
		if idx != i {
			t.Fatalf("Add %d landed at %d", i, idx)
		}
	}
	if _, err := p.Add(800); !errors.Is(err, zone.ErrCapacityExceeded) {
		t.Fatalf("Add to full pool = %v, want ErrCapacityExceeded", err)
	}
	p.RemoveAt(3)
	if p.Has(3) {
		t.Fatal("slot 3 still occupied after RemoveAt")
	}
	idx, err := p.Add(333)
	if err != nil {
		t.Fatal(err)
	}
	if idx != 3 {
		t.Errorf("Add after RemoveAt(3) landed at %d, want 3", idx)
	}
	if v, ok := p.Get(3); !ok || v != 333 {
		t.Errorf("Get(3) = %d, %v", v, ok)
	}
}

func TestPoolCapacityBounds(t *testing.T) {
	z := newZone(t, 4096)
	for _, n := range []int{-1, 0, 64, 100} {
		if _, err := NewPool[int](z, n); !errors.Is(err, ErrInvalidCapacity) {
			t.Errorf("NewPool(%d) = %v, want ErrInvalidCapacity", n, err)
		}
	}
	p, err := NewPool[int](z, 63)
	if err != nil {
		t.Fatalf("NewPool(63): %v", err)
	}
	for i := 0; i < 63; i++ {
		if _, err := p.Add(i); err != nil {
			t.Fatalf("Add %d: %v", i, err)
		}
	}
	if !p.Full() || bits.OnesCount64(p.Mask()) != 63 {
		t.Errorf("full pool mask %064b", p.Mask())
	}
}

func TestPoolCountMatchesMask(t *testing.T) {
	p, _ := NewPool[uint16](newZone(t, 1024), 40)
	rng := rand.New(rand.NewSource(3))
	live := map[int]uint16{}
	for step := 0; step < 2000; step++ {
		if len(live) > 0 && rng.Intn(3) == 0 {
			for i := range live {
				p.RemoveAt(i)
				delete(live, i)
				break
			}
		} else if !p.Full() {
			v := uint16(rng.Intn(1 << 16))
			i, err := p.Add(v)
			if err != nil {
				t.Fatal(err)
			}
			if _, dup := live[i]; dup {
				t.Fatalf("step %d: Add reused live slot %d", step, i)
			}
			live[i] = v
		}
		if p.Len() != bits.OnesCount64(p.Mask()) || p.Len() != len(live) {
			t.Fatalf("step %d: len %d, mask %064b, live %d", step, p.Len(), p.Mask(), len(live))
		}
	}
	for i, v := range p.All() {
		if live[i] != v {
			t.Errorf("slot %d = %d, want %d", i, v, live[i])
		}
	}
}

func TestPoolRemoveDuringIteration(t *testing.T) {
	p, _ := NewPool[int](newZone(t, 512), 10)
	for i := 0; i < 10; i++ {
		p.Add(i)
	}
	var seen []int
	for i, v := range p.All() {
		seen = append(seen, i)
		if v%2 == 0 {
			p.RemoveAt(i)
		}
	}
	if want := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}; !slices.Equal(seen, want) {
		t.Errorf("visited %v, want %v", seen, want)
	}
	if p.Len() != 5 || p.Mask() != 0b1010101010 {
		t.Errorf("after removing evens len %d mask %b", p.Len(), p.Mask())
	}
}

func TestPoolRemoveFreeSlotPanics(t *testing.T) {
	tests := []struct {
		name string
		i    int
	}{
		{"free slot", 2},
		{"negative", -1},
		{"past capacity", 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := NewPool[int](newZone(t, 256), 8)
			p.Add(1)
			defer func() {
				if recover() == nil {
					t.Errorf("RemoveAt(%d) did not panic", tt.i)
				}
			}()
			p.RemoveAt(tt.i)
		})
	}
}

func TestCircularBufferOverwrites(t *testing.T) {
	b, err := NewCircularBuffer[int](newZone(t, 256), 4)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 5; i++ {
		b.Push(i)
	}
	if b.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", b.Len())
	}
	var raw []int
	for _, v := range b.All() {
		raw = append(raw, v)
	}
	if want := []int{5, 2, 3, 4}; !slices.Equal(raw, want) {
		t.Errorf("All() = %v, want %v", raw, want)
	}
	var ordered []int
	for _, v := range b.Ordered() {
		ordered = append(ordered, v)
	}
	if want := []int{2, 3, 4, 5}; !slices.Equal(ordered, want) {
		t.Errorf("Ordered() = %v, want %v", ordered, want)
	}
}

func TestCircularBufferKeepsMostRecent(t *testing.T) {
	const capacity = 7
	for k := 0; k < 20; k++ {
		b, _ := NewCircularBuffer[int](newZone(t, 512), capacity)
		n := capacity + k
		for i := 0; i < n; i++ {
			b.Push(i)
		}
		if b.Len() != capacity {
			t.Fatalf("k=%d: Len() = %d", k, b.Len())
		}
		var got []int
		for _, v := range b.Ordered() {
			got = append(got, v)
		}
		for j, v := range got {
			if v != n-capacity+j {
				t.Fatalf("k=%d: Ordered() = %v", k, got)
			}
		}
	}
}

func TestCircularBufferPartialAndClear(t *testing.T) {
	b, _ := NewCircularBuffer[int](newZone(t, 256), 5)
	b.Push(1)
	b.Push(2)
	var got []int
	for _, v := range b.Ordered() {
		got = append(got, v)
	}
	if !slices.Equal(got, []int{1, 2}) {
		t.Errorf("Ordered() before wrap = %v", got)
	}
	b.Clear()
	if b.Len() != 0 || b.NextIndex() != 0 {
		t.Errorf("after Clear len %d next %d", b.Len(), b.NextIndex())
	}
	b.Push(9)
	if b.At(0) != 9 {
		t.Errorf("At(0) after Clear = %d", b.At(0))
	}
}

type particle struct {
	X, Y  float32
	Life  uint16
	Alive bool
}

func TestBucketArrayGrowthKeepsLocators(t *testing.T) {
	z := newZone(t, 1<<16)
	a, err := NewBucketArray[particle](z, 64)
	if err != nil {
		t.Fatal(err)
	}
	if a.Cap() != 64 || a.NumBuckets() != 1 {
		t.Fatalf("cap %d, buckets %d", a.Cap(), a.NumBuckets())
	}
	locs := make([]Locator, 0, 65)
	ptrs := make([]*particle, 0, 65)
	for i := 0; i < 65; i++ {
		p, loc, err := a.NewElement()
		if err != nil {
			t.Fatalf("NewElement %d: %v", i, err)
		}
		p.Life = uint16(i)
		locs = append(locs, loc)
		ptrs = append(ptrs, p)
	}
	if a.Cap() != 128 || a.NumBuckets() != 2 || a.Len() != 65 {
		t.Fatalf("after 65 elements cap %d, buckets %d, len %d", a.Cap(), a.NumBuckets(), a.Len())
	}
	if locs[64] != (Locator{Bucket: 1, Slot: 0}) {
		t.Errorf("65th locator = %+v", locs[64])
	}
	for i, loc := range locs {
		p := a.Get(loc)
		if p != ptrs[i] || p.Life != uint16(i) {
			t.Fatalf("locator %+v no longer resolves to element %d", loc, i)
		}
	}
}

func TestBucketArrayRemoveReusesSlot(t *testing.T) {
	a, _ := NewBucketArray[particle](newZone(t, 1<<15), 100)
	if a.Cap() != 128 {
		t.Fatalf("hint 100 gave cap %d", a.Cap())
	}
	var locs []Locator
	for i := 0; i < 70; i++ {
		_, loc, _ := a.NewElement()
		locs = append(locs, loc)
	}
	a.Remove(locs[5])
	if a.Get(locs[5]) != nil {
		t.Error("Get after Remove returned an element")
	}
	p, loc, err := a.NewElement()
	if err != nil {
		t.Fatal(err)
	}
	if loc != locs[5] {
		t.Errorf("NewElement after Remove got %+v, want %+v", loc, locs[5])
	}
	if *p != (particle{}) {
		t.Errorf("reused element not zeroed: %+v", *p)
	}
}

func TestBucketArrayIteration(t *testing.T) {
	a, _ := NewBucketArray[uint32](newZone(t, 1<<15), 0)
	if a.Cap() != BucketSize {
		t.Fatalf("hint 0 gave cap %d", a.Cap())
	}
	var locs []Locator
	for i := uint32(0); i < 150; i++ {
		p, loc, _ := a.NewElement()
		*p = i
		locs = append(locs, loc)
	}
	for i := 0; i < 150; i += 3 {
		a.Remove(locs[i])
	}
	var got []uint32
	for loc, p := range a.All() {
		if a.Get(loc) != p {
			t.Fatalf("iteration locator %+v does not resolve", loc)
		}
		got = append(got, *p)
	}
	if len(got) != a.Len() || a.Len() != 100 {
		t.Fatalf("iterated %d, Len() %d", len(got), a.Len())
	}
	if !slices.IsSorted(got) {
		t.Errorf("iteration out of bucket/slot order: %v", got)
	}

	a.Clear()
	if a.Len() != 0 || a.NumBuckets() != 3 {
		t.Errorf("after Clear len %d buckets %d", a.Len(), a.NumBuckets())
	}
	for range a.All() {
		t.Fatal("All() yielded after Clear")
	}
}

func TestBucketArrayRemoveMisusePanics(t *testing.T) {
	tests := []struct {
		name string
		loc  Locator
	}{
		{"free slot", Locator{0, 1}},
		{"missing bucket", Locator{4, 0}},
		{"slot past bucket", Locator{0, BucketSize}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := NewBucketArray[int](newZone(t, 4096), 1)
			a.NewElement()
			defer func() {
				if recover() == nil {
					t.Errorf("Remove(%+v) did not panic", tt.loc)
				}
			}()
			a.Remove(tt.loc)
		})
	}
}

func TestHashTableInsertLookup(t *testing.T) {
	h, err := NewHashTable[uint32, int64](newZone(t, 2048), 37)
	if err != nil {
		t.Fatal(err)
	}
	keys := []uint32{1, 38, 75, 2, 100, 9999, 36, 73, 37, 74}
	for i, k := range keys {
		if err := h.Insert(k, int64(i)); err != nil {
			t.Fatalf("Insert(%d): %v", k, err)
		}
	}
	if h.Len() != len(keys) {
		t.Errorf("Len() = %d", h.Len())
	}
	for i, k := range keys {
		if v, ok := h.Lookup(k); !ok || v != int64(i) {
			t.Errorf("Lookup(%d) = %d, %v", k, v, ok)
		}
	}
	if _, ok := h.Lookup(5); ok {
		t.Error("Lookup of a missing key succeeded")
	}

	h.Insert(38, -1)
	if v, _ := h.Lookup(38); v != -1 || h.Len() != len(keys) {
		t.Errorf("re-insert: value %d len %d", v, h.Len())
	}
	*h.Ptr(75) = 750
	if v, _ := h.Lookup(75); v != 750 {
		t.Errorf("write through Ptr not visible: %d", v)
	}
}

func TestHashTableZeroKey(t *testing.T) {
	h, _ := NewHashTable[int, int](newZone(t, 1024), 11)
	if err := h.Insert(0, 1); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Insert(0) = %v, want ErrInvalidKey", err)
	}
	if _, ok := h.Lookup(0); ok {
		t.Error("Lookup(0) found a value")
	}
	if h.Ptr(0) != nil {
		t.Error("Ptr(0) != nil")
	}
}

func TestHashTableFull(t *testing.T) {
	h, _ := NewHashTable[int, int](newZone(t, 1024), 5)
	for k := 1; k <= 5; k++ {
		if err := h.Insert(k*5, k); err != nil {
			t.Fatalf("Insert(%d): %v", k*5, err)
		}
	}
	if err := h.Insert(6, 6); !errors.Is(err, zone.ErrCapacityExceeded) {
		t.Errorf("Insert into full table = %v, want ErrCapacityExceeded", err)
	}
	if err := h.Insert(10, 20); err != nil {
		t.Errorf("overwrite in full table: %v", err)
	}
	if _, ok := h.Lookup(7); ok {
		t.Error("Lookup of missing key in full table succeeded")
	}
	h.Clear()
	if h.Len() != 0 {
		t.Errorf("Len() after Clear = %d", h.Len())
	}
	if _, ok := h.Lookup(10); ok {
		t.Error("Lookup after Clear succeeded")
	}
}

func TestHashTableRandomized(t *testing.T) {
	const capacity = 257
	h, _ := NewHashTable[uint64, uint64](newZone(t, 1<<14), capacity)
	rng := rand.New(rand.NewSource(11))
	want := map[uint64]uint64{}
	for len(want) < capacity*3/4 {
		k := rng.Uint64()%5000 + 1
		v := rng.Uint64()
		if err := h.Insert(k, v); err != nil {
			t.Fatal(err)
		}
		want[k] = v
	}
	for k, v := range want {
		if got, ok := h.Lookup(k); !ok || got != v {
			t.Fatalf("Lookup(%d) = %d, %v; want %d", k, got, ok, v)
		}
	}
	n := 0
	for k, v := range h.All() {
		if want[k] != v {
			t.Errorf("All() yielded %d=%d, want %d", k, v, want[k])
		}
		n++
	}
	if n != len(want) {
		t.Errorf("All() yielded %d pairs, want %d", n, len(want))
	}
}

func TestPointerElementsRejected(t *testing.T) {
	z := newZone(t, 1024)
	if _, err := NewStaticArray[*int](z, 2); !errors.Is(err, zone.ErrPointerType) {
		t.Errorf("StaticArray[*int] = %v", err)
	}
	if _, err := NewHashTable[int, string](z, 2); !errors.Is(err, zone.ErrPointerType) {
		t.Errorf("HashTable[int, string] = %v", err)
	}
}
