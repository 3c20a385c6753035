package rendercmd

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type Kind uint32

const (
	KindOptions Kind = iota + 1
	KindUniforms
	KindTriangles
	KindPolyline
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindOptions:
		return "options"
	case KindUniforms:
		return "uniforms"
	case KindTriangles:
		return "triangles"
	case KindPolyline:
		return "polyline"
	case KindText:
		return "text"
	}
	return "invalid"
}

// Record sizes, sub-header included.
const (
	optionsSize   = 24
	uniformsSize  = 80
	trianglesSize = 96
	polylineSize  = 96
	textSize      = 128
)

func (k Kind) layout() (size, align int, ok bool) {
	switch k {
	case KindOptions:
		return optionsSize, 8, true
	case KindUniforms:
		return uniformsSize, 16, true
	case KindTriangles:
		return trianglesSize, 16, true
	case KindPolyline:
		return polylineSize, 16, true
	case KindText:
		return textSize, 16, true
	}
	return 0, 0, false
}

// Handle is an opaque vertex, index or texel buffer id issued by the
// platform layer.
type Handle uint64

type FillMode uint32

const (
	FillSolid FillMode = iota
	FillWireframe
	FillPoints
)

func (m FillMode) String() string {
	switch m {
	case FillSolid:
		return "solid"
	case FillWireframe:
		return "wireframe"
	case FillPoints:
		return "points"
	}
	return "unknown"
}

// Command is one of Options, Uniforms, Triangles, Polyline or Text.
type Command interface {
	Kind() Kind
	// encode writes the payload into rec, a whole record including its
	// sub-header.
	encode(rec []byte)
}

type Options struct {
	FillMode FillMode
}

type Uniforms struct {
	Transform mgl32.Mat4
}

type Triangles struct {
	Transform    mgl32.Mat4
	VertexBuffer Handle
	VertexCount  uint32
	Selected     bool
}

type Polyline struct {
	Transform    mgl32.Mat4
	VertexBuffer Handle
	VertexCount  uint32
}

// Text draws QuadCount glyph quads sampling a Width x Height texel buffer.
type Text struct {
	Transform mgl32.Mat4
	QuadCount uint32
	Quads     Handle
	Indices   Handle
	Texels    Handle
	Width     uint32
	Height    uint32
	Stride    uint32
}

func (Options) Kind() Kind   { return KindOptions }
func (Uniforms) Kind() Kind  { return KindUniforms }
func (Triangles) Kind() Kind { return KindTriangles }
func (Polyline) Kind() Kind  { return KindPolyline }
func (Text) Kind() Kind      { return KindText }

var le = binary.LittleEndian

func putMat4(b []byte, m mgl32.Mat4) {
	for i, f := range m {
		le.PutUint32(b[i*4:], math.Float32bits(f))
	}
}

func getMat4(b []byte) (m mgl32.Mat4) {
	for i := range m {
		m[i] = math.Float32frombits(le.Uint32(b[i*4:]))
	}
	return m
}

func (c Options) encode(rec []byte) {
	le.PutUint32(rec[16:], uint32(c.FillMode))
	le.PutUint32(rec[20:], 0)
}

func decodeOptions(rec []byte) Options {
	return Options{FillMode: FillMode(le.Uint32(rec[16:]))}
}

func (c Uniforms) encode(rec []byte) {
	putMat4(rec[16:], c.Transform)
}

func decodeUniforms(rec []byte) Uniforms {
	return Uniforms{Transform: getMat4(rec[16:])}
}

func (c Triangles) encode(rec []byte) {
	putMat4(rec[16:], c.Transform)
	le.PutUint64(rec[80:], uint64(c.VertexBuffer))
	le.PutUint32(rec[88:], c.VertexCount)
	var sel uint32
	if c.Selected {
		sel = 1
	}
	le.PutUint32(rec[92:], sel)
}

func decodeTriangles(rec []byte) Triangles {
	return Triangles{
		Transform:    getMat4(rec[16:]),
		VertexBuffer: Handle(le.Uint64(rec[80:])),
		VertexCount:  le.Uint32(rec[88:]),
		Selected:     rec[92] != 0,
	}
}

func (c Polyline) encode(rec []byte) {
	putMat4(rec[16:], c.Transform)
	le.PutUint64(rec[80:], uint64(c.VertexBuffer))
	le.PutUint32(rec[88:], c.VertexCount)
	le.PutUint32(rec[92:], 0)
}

func decodePolyline(rec []byte) Polyline {
	return Polyline{
		Transform:    getMat4(rec[16:]),
		VertexBuffer: Handle(le.Uint64(rec[80:])),
		VertexCount:  le.Uint32(rec[88:]),
	}
}

func (c Text) encode(rec []byte) {
	putMat4(rec[16:], c.Transform)
	le.PutUint32(rec[80:], c.QuadCount)
	le.PutUint32(rec[84:], 0)
	le.PutUint64(rec[88:], uint64(c.Quads))
	le.PutUint64(rec[96:], uint64(c.Indices))
	le.PutUint64(rec[104:], uint64(c.Texels))
	le.PutUint32(rec[112:], c.Width)
	le.PutUint32(rec[116:], c.Height)
	le.PutUint32(rec[120:], c.Stride)
	le.PutUint32(rec[124:], 0)
}

func decodeText(rec []byte) Text {
	return Text{
		Transform: getMat4(rec[16:]),
		QuadCount: le.Uint32(rec[80:]),
		Quads:     Handle(le.Uint64(rec[88:])),
		Indices:   Handle(le.Uint64(rec[96:])),
		Texels:    Handle(le.Uint64(rec[104:])),
		Width:     le.Uint32(rec[112:]),
		Height:    le.Uint32(rec[116:]),
		Stride:    le.Uint32(rec[120:]),
	}
}
