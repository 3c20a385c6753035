package containers_test

import (
	"fmt"

	"github.com/asteroids-engine/framecore/containers"
	"github.com/asteroids-engine/framecore/zone"
)

func ExampleCircularBuffer_Ordered() {
	z := zone.New("example", make([]byte, 256))
	ring, err := containers.NewCircularBuffer[int32](z, 4)
	if err != nil {
		panic(err)
	}
	for i := int32(1); i <= 5; i++ {
		ring.Push(i)
	}
	var raw, ordered []int32
	for _, v := range ring.All() {
		raw = append(raw, v)
	}
	for _, v := range ring.Ordered() {
		ordered = append(ordered, v)
	}
	fmt.Println(raw, ordered)
	// Output: [5 2 3 4] [2 3 4 5]
}
