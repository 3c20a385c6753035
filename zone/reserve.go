package zone

import "github.com/pkg/errors"

// Reservation is the zero-initialized block of memory the platform hands to
// the engine once at startup. On unix systems it is an anonymous mapping
// outside the Go heap.
type Reservation struct {
	mem    []byte
	mapped bool
}

// Reserve obtains size bytes of zeroed memory.
func Reserve(size int) (*Reservation, error) {
	if size <= 0 {
		return nil, errors.Wrapf(ErrOutOfRange, "zone: reservation of %d bytes", size)
	}
	mem, mapped, err := mapMemory(size)
	if err != nil {
		return nil, errors.Wrapf(err, "zone: reserve %d bytes", size)
	}
	return &Reservation{mem: mem, mapped: mapped}, nil
}

func (r *Reservation) Bytes() []byte { return r.mem }
func (r *Reservation) Len() int      { return len(r.mem) }

// Release returns the memory to the platform. Every zone over it becomes
// unusable.
func (r *Reservation) Release() error {
	if r.mem == nil {
		return nil
	}
	mem, mapped := r.mem, r.mapped
	r.mem = nil
	if !mapped {
		return nil
	}
	return errors.Wrap(unmapMemory(mem), "zone: release")
}
