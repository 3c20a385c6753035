package rendercmd

import (
	"github.com/pkg/errors"
	"github.com/tidwall/sjson"
)

// DumpJSON renders the commands in buf as a JSON document:
//
//	{"count":2,"commands":[{"fillMode":"solid","kind":"options","next":64,"offset":32},...],"used":160}
func DumpJSON(buf []byte) ([]byte, error) {
	r := NewReader(buf)
	out := []byte(`{}`)
	var err error
	set := func(path string, v any) {
		if err == nil {
			out, err = sjson.SetBytes(out, path, v)
		}
	}
	set("count", r.Count())
	set("commands", []any{})
	used := headerSize
	for r.Next() {
		cmd := map[string]any{
			"kind":   r.Kind().String(),
			"offset": r.Offset(),
			"next":   r.NextOffset(),
		}
		switch r.Kind() {
		case KindOptions:
			cmd["fillMode"] = r.Options().FillMode.String()
		case KindUniforms:
			u := r.Uniforms()
			cmd["transform"] = u.Transform[:]
		case KindTriangles:
			c := r.Triangles()
			cmd["transform"] = c.Transform[:]
			cmd["vertexBuffer"] = uint64(c.VertexBuffer)
			cmd["vertexCount"] = c.VertexCount
			cmd["selected"] = c.Selected
		case KindPolyline:
			c := r.Polyline()
			cmd["transform"] = c.Transform[:]
			cmd["vertexBuffer"] = uint64(c.VertexBuffer)
			cmd["vertexCount"] = c.VertexCount
		case KindText:
			c := r.Text()
			cmd["transform"] = c.Transform[:]
			cmd["quadCount"] = c.QuadCount
			cmd["quads"] = uint64(c.Quads)
			cmd["indices"] = uint64(c.Indices)
			cmd["texels"] = uint64(c.Texels)
			cmd["width"] = c.Width
			cmd["height"] = c.Height
			cmd["stride"] = c.Stride
		}
		size, _, _ := r.Kind().layout()
		used = r.Offset() + size
		set("commands.-1", cmd)
	}
	if rerr := r.Err(); rerr != nil {
		return nil, rerr
	}
	set("used", used)
	return out, errors.Wrap(err, "rendercmd: dump")
}
