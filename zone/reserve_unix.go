//go:build unix

package zone

import "golang.org/x/sys/unix"

func mapMemory(size int) ([]byte, bool, error) {
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, false, err
	}
	return mem, true, nil
}

func unmapMemory(mem []byte) error {
	return unix.Munmap(mem)
}
