package main

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Inputs is everything the game reads from the player for one frame.
type Inputs struct {
	Dt      float32
	Rotate  float32 // -1 counter-clockwise to 1 clockwise
	Thrust  bool
	Fire    bool
	Restart bool

	// Select picks the entity under Cursor, in world coordinates.
	Select bool
	Cursor mgl32.Vec2
}

// InputSource produces the inputs for each frame, counted from 1.
type InputSource interface {
	Next(frame int, dt float32) (Inputs, error)
	Close() error
}

// patternInput is the built-in pilot used when no script is configured. It
// sweeps the ship back and forth, thrusts in bursts and fires continuously.
type patternInput struct {
	restartEvery int
}

func newPatternInput(restartEvery int) *patternInput {
	return &patternInput{restartEvery: restartEvery}
}

func (p *patternInput) Next(frame int, dt float32) (Inputs, error) {
	in := Inputs{
		Dt:     dt,
		Rotate: float32(math.Sin(float64(frame) / 40)),
		Thrust: (frame/90)%2 == 0,
		Fire:   true,
	}
	if p.restartEvery > 0 && frame%p.restartEvery == 0 {
		in.Restart = true
	}
	return in, nil
}

func (p *patternInput) Close() error { return nil }
