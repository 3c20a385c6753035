package main

import (
	"image"
	"unicode/utf8"

	"github.com/asteroids-engine/framecore/containers"
	"github.com/asteroids-engine/framecore/rendercmd"
	"github.com/asteroids-engine/framecore/zone"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/text/unicode/norm"
)

// Glyph locates one character in the atlas, in texels.
type Glyph struct {
	X, Y    uint16
	W, H    uint16
	Advance uint16
}

// BitmapFont is a single column glyph atlas copied into zone memory.
type BitmapFont struct {
	glyphs     containers.HashTable[rune, Glyph]
	texels     int // offset of the atlas in game memory
	Width      int
	Height     int
	CellHeight int
	Ascent     int
	fallback   rune
	normalized []byte // reused for text that is not already NFC
}

// maxTextRunes keeps quad vertex indices within uint16.
const maxTextRunes = 1<<14 - 1

func loadBitmapFont(z *zone.Zone, face *basicfont.Face) (*BitmapFont, error) {
	mask, ok := face.Mask.(*image.Alpha)
	if !ok {
		return nil, errors.Errorf("font mask is %T, want *image.Alpha", face.Mask)
	}
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()
	texels, err := zone.AllocSlice[byte](z, w*h)
	if err != nil {
		return nil, errors.Wrap(err, "font atlas")
	}
	for y := 0; y < h; y++ {
		src := mask.Pix[mask.PixOffset(b.Min.X, b.Min.Y+y):]
		copy(texels[y*w:(y+1)*w], src[:w])
	}

	n := 0
	for _, r := range face.Ranges {
		n += int(r.High - r.Low)
	}
	glyphs, err := containers.NewHashTable[rune, Glyph](z, nextPrime(2*n+1))
	if err != nil {
		return nil, errors.Wrap(err, "glyph table")
	}
	f := &BitmapFont{
		glyphs:     glyphs,
		texels:     zone.OffsetOf(z, &texels[0]),
		Width:      w,
		Height:     h,
		CellHeight: face.Height,
		Ascent:     face.Ascent,
		fallback:   '?',
	}
	for _, rg := range face.Ranges {
		for r := rg.Low; r < rg.High; r++ {
			// The zero rune can't be a key and is never drawn.
			if r == 0 {
				continue
			}
			g := Glyph{
				X:       0,
				Y:       uint16((int(r-rg.Low) + rg.Offset) * face.Height),
				W:       uint16(face.Width),
				H:       uint16(face.Height),
				Advance: uint16(face.Advance),
			}
			if err := glyphs.Insert(r, g); err != nil {
				return nil, errors.Wrapf(err, "glyph %q", r)
			}
		}
	}
	return f, nil
}

func (f *BitmapFont) glyph(r rune) (Glyph, bool) {
	if g, ok := f.glyphs.Lookup(r); ok {
		return g, true
	}
	return f.glyphs.Lookup(f.fallback)
}

// renderText lays text out on one line starting at the origin, one pixel per
// unit, and builds its quads and indices in z. The command is only valid
// until z is reset. ok is false when nothing would be drawn.
func (f *BitmapFont) renderText(z *zone.Zone, text []byte, transform mgl32.Mat4) (cmd rendercmd.Text, ok bool, err error) {
	if !norm.NFC.IsNormal(text) {
		f.normalized = norm.NFC.Append(f.normalized[:0], text...)
		text = f.normalized
	}
	n := min(utf8.RuneCount(text), maxTextRunes)
	if n == 0 {
		return cmd, false, nil
	}
	quads, err := zone.AllocSlice[float32](z, n*4*vertexStride)
	if err != nil {
		return cmd, false, errors.Wrap(err, "text quads")
	}
	indices, err := zone.AllocSlice[uint16](z, n*6)
	if err != nil {
		return cmd, false, errors.Wrap(err, "text indices")
	}

	q := 0
	var cursor float32
	atlasH := float32(f.Height)
	for _, r := range string(text) {
		if q == n {
			break
		}
		g, found := f.glyph(r)
		if !found {
			continue
		}
		x0, x1 := cursor, cursor+float32(g.W)
		y0, y1 := float32(0), float32(g.H)
		u0, u1 := float32(g.X), float32(g.X+g.W)
		// Atlas rows run top down, text is laid out bottom up.
		v0, v1 := atlasH-float32(g.Y+g.H), atlasH-float32(g.Y)
		v := quads[q*4*vertexStride:]
		copy(v[0*vertexStride:], []float32{x0, y1, 0, 1, u0, v1, 0, 0})
		copy(v[1*vertexStride:], []float32{x1, y1, 0, 1, u1, v1, 0, 0})
		copy(v[2*vertexStride:], []float32{x0, y0, 0, 1, u0, v0, 0, 0})
		copy(v[3*vertexStride:], []float32{x1, y0, 0, 1, u1, v0, 0, 0})
		base := uint16(q * 4)
		copy(indices[q*6:], []uint16{base, base + 1, base + 2, base + 1, base + 3, base + 2})
		q++
		cursor += float32(g.Advance)
	}
	if q == 0 {
		return cmd, false, nil
	}
	return rendercmd.Text{
		Transform: transform,
		QuadCount: uint32(q),
		Quads:     memoryHandle(zone.OffsetOf(z, &quads[0])),
		Indices:   memoryHandle(zone.OffsetOf(z, &indices[0])),
		Texels:    memoryHandle(f.texels),
		Width:     uint32(f.Width),
		Height:    uint32(f.Height),
		Stride:    uint32(f.Width),
	}, true, nil
}

func nextPrime(n int) int {
	if n <= 2 {
		return 2
	}
	if n%2 == 0 {
		n++
	}
	for ; ; n += 2 {
		prime := true
		for d := 3; d*d <= n; d += 2 {
			if n%d == 0 {
				prime = false
				break
			}
		}
		if prime {
			return n
		}
	}
}
