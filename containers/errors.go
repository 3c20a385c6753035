package containers

import "github.com/pkg/errors"

var (
	ErrInvalidCapacity = errors.New("containers: invalid capacity")
	ErrInvalidKey      = errors.New("containers: key hashes to zero")
)
