package main

import (
	"testing"

	"github.com/asteroids-engine/framecore/zone"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/font/basicfont"
)

func testFont(t *testing.T) (*BitmapFont, *zone.Zone, *zone.Zone) {
	t.Helper()
	mem := make([]byte, 1<<20)
	assets, err := zone.NewRange("assets", mem, 0, 1<<19)
	if err != nil {
		t.Fatal(err)
	}
	transient, err := zone.NewRange("transient", mem, 1<<19, 1<<19)
	if err != nil {
		t.Fatal(err)
	}
	f, err := loadBitmapFont(assets, basicfont.Face7x13)
	if err != nil {
		t.Fatal(err)
	}
	return f, assets, transient
}

func TestLoadBitmapFont(t *testing.T) {
	f, assets, _ := testFont(t)
	face := basicfont.Face7x13
	if f.CellHeight != face.Height || f.Ascent != face.Ascent {
		t.Errorf("cell %d ascent %d", f.CellHeight, f.Ascent)
	}
	g, ok := f.glyphs.Lookup('A')
	if !ok {
		t.Fatal("no glyph for A")
	}
	idx := -1
	for _, rg := range face.Ranges {
		if 'A' >= rg.Low && 'A' < rg.High {
			idx = int('A'-rg.Low) + rg.Offset
		}
	}
	if int(g.Y) != idx*face.Height || int(g.W) != face.Width || int(g.Advance) != face.Advance {
		t.Errorf("glyph A = %+v", g)
	}

	// The atlas in zone memory matches the face mask.
	atlas := zone.SliceAt[byte](assets, f.texels, f.Width*f.Height)
	mask := face.Mask.Bounds()
	for y := 0; y < f.Height; y += 7 {
		for x := 0; x < f.Width; x++ {
			_, _, _, a := face.Mask.At(mask.Min.X+x, mask.Min.Y+y).RGBA()
			if byte(a>>8) != atlas[y*f.Width+x] {
				t.Fatalf("texel %d,%d = %d, want %d", x, y, atlas[y*f.Width+x], a>>8)
			}
		}
	}
	if f.glyphs.Len() > f.glyphs.Cap()/2+1 {
		t.Errorf("glyph table %d/%d is too full", f.glyphs.Len(), f.glyphs.Cap())
	}
}

func TestRenderText(t *testing.T) {
	f, _, transient := testFont(t)
	cmd, ok, err := f.renderText(transient, []byte("AB"), mgl32.Ident4())
	if err != nil || !ok {
		t.Fatalf("renderText = %v, %v", ok, err)
	}
	if cmd.QuadCount != 2 || cmd.Width != uint32(f.Width) || cmd.Stride != cmd.Width {
		t.Errorf("command %+v", cmd)
	}
	indices := zone.SliceAt[uint16](transient, int(cmd.Indices), 12)
	want := []uint16{0, 1, 2, 1, 3, 2, 4, 5, 6, 5, 7, 6}
	for i := range want {
		if indices[i] != want[i] {
			t.Fatalf("indices = %v, want %v", indices, want)
		}
	}
	quads := zone.SliceAt[float32](transient, int(cmd.Quads), 2*4*vertexStride)
	// Second quad starts one advance to the right.
	if x := quads[4*vertexStride]; x != float32(basicfont.Face7x13.Advance) {
		t.Errorf("second glyph at x=%v", x)
	}
}

func TestRenderTextNormalizes(t *testing.T) {
	f, _, transient := testFont(t)
	// e followed by a combining acute accent composes to one rune.
	cmd, ok, err := f.renderText(transient, []byte("e\u0301"), mgl32.Ident4())
	if err != nil || !ok {
		t.Fatalf("renderText = %v, %v", ok, err)
	}
	if cmd.QuadCount != 1 {
		t.Errorf("%d quads, want 1", cmd.QuadCount)
	}
	if _, ok, err := f.renderText(transient, nil, mgl32.Ident4()); ok || err != nil {
		t.Errorf("empty text = %v, %v", ok, err)
	}
}

func TestNextPrime(t *testing.T) {
	for n, want := range map[int]int{0: 2, 2: 2, 3: 3, 4: 5, 24: 29, 37: 37, 190: 191} {
		if got := nextPrime(n); got != want {
			t.Errorf("nextPrime(%d) = %d, want %d", n, got, want)
		}
	}
}
