//go:build !unix

package zone

// Without mmap the block comes from the Go heap; make already zeroes it.
func mapMemory(size int) ([]byte, bool, error) {
	return make([]byte, size), false, nil
}

func unmapMemory([]byte) error { return nil }
