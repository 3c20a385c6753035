package main

import (
	"github.com/asteroids-engine/framecore/rendercmd"
	"github.com/pkg/errors"
)

// Vertices are 8 floats: x, y, z, w, r, g, b, a.
const vertexStride = 8

// BufferCreator is implemented by the platform layer. Handles it returns are
// carried through the command stream untouched.
type BufferCreator interface {
	CreateVertexBuffer(verts []float32) (rendercmd.Handle, error)
}

// memoryHandle names a range of game memory in a command. Text commands use
// it for the quads and indices built in the transient zone each frame and
// for the font atlas.
func memoryHandle(off int) rendercmd.Handle { return rendercmd.Handle(off) }

// headlessPlatform keeps vertex buffers on the Go heap and issues sequential
// handles starting at 1.
type headlessPlatform struct {
	buffers [][]float32
	bytes   int
}

func newHeadlessPlatform() *headlessPlatform {
	return &headlessPlatform{}
}

func (p *headlessPlatform) CreateVertexBuffer(verts []float32) (rendercmd.Handle, error) {
	if len(verts) == 0 || len(verts)%vertexStride != 0 {
		return 0, errors.Errorf("vertex buffer of %d floats, want a multiple of %d", len(verts), vertexStride)
	}
	p.buffers = append(p.buffers, append([]float32(nil), verts...))
	p.bytes += len(verts) * 4
	return rendercmd.Handle(len(p.buffers)), nil
}

// vertexBuffer returns the vertices behind h, or nil for an unknown handle.
func (p *headlessPlatform) vertexBuffer(h rendercmd.Handle) []float32 {
	if h == 0 || int(h) > len(p.buffers) {
		return nil
	}
	return p.buffers[h-1]
}

func (p *headlessPlatform) BufferCount() int { return len(p.buffers) }
func (p *headlessPlatform) BufferBytes() int { return p.bytes }
