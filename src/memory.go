package main

import (
	"github.com/asteroids-engine/framecore/zone"
	"github.com/pkg/errors"
)

// GameMemory is the one platform reservation the game runs in, split into
// the permanent, transient and command regions in that order.
type GameMemory struct {
	reservation   *zone.Reservation
	PermanentSize int
	TransientSize int
	CommandSize   int
}

func newGameMemory(permanent, transient, commands int) (*GameMemory, error) {
	if permanent <= 0 || transient <= 0 || commands <= 0 {
		return nil, errors.Wrapf(zone.ErrOutOfRange, "memory layout %d/%d/%d", permanent, transient, commands)
	}
	res, err := zone.Reserve(permanent + transient + commands)
	if err != nil {
		return nil, errors.Wrap(err, "failed to reserve game memory")
	}
	return &GameMemory{
		reservation:   res,
		PermanentSize: permanent,
		TransientSize: transient,
		CommandSize:   commands,
	}, nil
}

func (m *GameMemory) Bytes() []byte { return m.reservation.Bytes() }

func (m *GameMemory) TransientBase() int { return m.PermanentSize }

// CommandBuffer returns the region the command stream is written into.
func (m *GameMemory) CommandBuffer() []byte {
	base := m.PermanentSize + m.TransientSize
	return m.Bytes()[base : base+m.CommandSize]
}

func (m *GameMemory) Release() error {
	return m.reservation.Release()
}
