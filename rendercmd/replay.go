package rendercmd

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Backend is the receiving end of Replay.
type Backend interface {
	SetFillMode(FillMode)
	SetUniforms(transform mgl32.Mat4)
	DrawTriangles(Triangles)
	DrawPolyline(Polyline)
	DrawText(Text)
}

// Replay decodes every command in buf and dispatches it to b in push order.
// It returns the number of commands dispatched.
func Replay(buf []byte, b Backend) (int, error) {
	r := NewReader(buf)
	n := 0
	for r.Next() {
		switch r.Kind() {
		case KindOptions:
			b.SetFillMode(r.Options().FillMode)
		case KindUniforms:
			b.SetUniforms(r.Uniforms().Transform)
		case KindTriangles:
			b.DrawTriangles(r.Triangles())
		case KindPolyline:
			b.DrawPolyline(r.Polyline())
		case KindText:
			b.DrawText(r.Text())
		}
		n++
	}
	return n, r.Err()
}
