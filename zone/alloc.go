package zone

import (
	"reflect"
	"unsafe"

	"github.com/pkg/errors"
)

// Alloc returns a zeroed *T placed in the zone, aligned for T.
func Alloc[T any](z *Zone) (*T, error) {
	off, err := allocTyped[T](z, 1)
	if err != nil {
		return nil, err
	}
	return At[T](z, off), nil
}

// AllocSlice returns a zeroed slice of n elements of T placed in the zone.
// It returns an empty slice if n is 0.
func AllocSlice[T any](z *Zone, n int) ([]T, error) {
	if n < 0 {
		return nil, errors.Wrapf(ErrOutOfRange, "zone %q: negative slice length %d", z.name, n)
	}
	off, err := allocTyped[T](z, n)
	if err != nil {
		return nil, err
	}
	return SliceAt[T](z, off, n), nil
}

// At reinterprets the memory at off as a *T. off must come from an
// allocation of T in the same memory block.
func At[T any](z *Zone, off int) *T {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if off < 0 || off+size > len(z.mem) {
		panic(errors.Wrapf(ErrOutOfRange, "zone %q: %d-byte value at %d", z.name, size, off))
	}
	return (*T)(unsafe.Add(unsafe.Pointer(unsafe.SliceData(z.mem)), off))
}

// SliceAt reinterprets the memory at off as n consecutive values of T.
func SliceAt[T any](z *Zone, off, n int) []T {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if off < 0 || n < 0 || off+size*n > len(z.mem) {
		panic(errors.Wrapf(ErrOutOfRange, "zone %q: %d x %d-byte values at %d", z.name, n, size, off))
	}
	return unsafe.Slice((*T)(unsafe.Add(unsafe.Pointer(unsafe.SliceData(z.mem)), off)), n)
}

func allocTyped[T any](z *Zone, n int) (int, error) {
	t := reflect.TypeFor[T]()
	if !pointerFree(t) {
		return 0, errors.Wrapf(ErrPointerType, "zone %q: %v", z.name, t)
	}
	size := int(t.Size()) * n
	off, err := z.AllocateAligned(size, t.Align())
	if err != nil {
		return 0, err
	}
	clear(z.mem[off : off+size])
	return off, nil
}

// pointerFree reports whether values of t can live in memory the garbage
// collector does not scan.
func pointerFree(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return t.Len() == 0 || pointerFree(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if !pointerFree(t.Field(i).Type) {
				return false
			}
		}
		return true
	}
	return false
}

// OffsetOf returns the offset of p within the zone's memory block.
func OffsetOf[T any](z *Zone, p *T) int {
	d := uintptr(unsafe.Pointer(p)) - uintptr(unsafe.Pointer(unsafe.SliceData(z.mem)))
	if d >= uintptr(len(z.mem)) {
		panic(errors.Wrapf(ErrOutOfRange, "zone %q: pointer outside of memory", z.name))
	}
	return int(d)
}
