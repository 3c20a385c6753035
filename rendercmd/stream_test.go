package rendercmd

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

func newStream(t *testing.T, size int) *Stream {
	t.Helper()
	s, err := New(make([]byte, size))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestOptionsThenTriangles(t *testing.T) {
	s := newStream(t, 1024)
	if err := Push(s, Options{FillMode: FillWireframe}); err != nil {
		t.Fatal(err)
	}
	tri := Triangles{
		Transform:    mgl32.Translate3D(1, 2, 0),
		VertexBuffer: 7,
		VertexCount:  18,
	}
	if err := Push(s, tri); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 {
		t.Fatalf("Len() = %d", s.Len())
	}

	r := s.Reader()
	if !r.Next() || r.Kind() != KindOptions {
		t.Fatalf("first record kind %v, err %v", r.Kind(), r.Err())
	}
	if r.Offset() != headerSize {
		t.Errorf("first record at %d, want %d", r.Offset(), headerSize)
	}
	if got := r.Options().FillMode; got != FillWireframe {
		t.Errorf("fill mode %v", got)
	}
	if !r.Next() || r.Kind() != KindTriangles {
		t.Fatalf("second record kind %v, err %v", r.Kind(), r.Err())
	}
	if r.Offset()%16 != 0 {
		t.Errorf("triangles record at unaligned offset %d", r.Offset())
	}
	if got := r.Triangles(); got != tri {
		t.Errorf("Triangles() = %+v, want %+v", got, tri)
	}
	if r.Next() {
		t.Error("Next() past the last record")
	}
	if r.Err() != nil {
		t.Error(r.Err())
	}
}

func randomCommand(rng *rand.Rand) Command {
	var m mgl32.Mat4
	for i := range m {
		m[i] = rng.Float32()*200 - 100
	}
	switch rng.Intn(5) {
	case 0:
		return Options{FillMode: FillMode(rng.Intn(3))}
	case 1:
		return Uniforms{Transform: m}
	case 2:
		return Triangles{Transform: m, VertexBuffer: Handle(rng.Uint64()), VertexCount: rng.Uint32(), Selected: rng.Intn(2) == 0}
	case 3:
		return Polyline{Transform: m, VertexBuffer: Handle(rng.Uint64()), VertexCount: rng.Uint32()}
	}
	return Text{
		Transform: m, QuadCount: rng.Uint32(),
		Quads: Handle(rng.Uint64()), Indices: Handle(rng.Uint64()), Texels: Handle(rng.Uint64()),
		Width: rng.Uint32(), Height: rng.Uint32(), Stride: rng.Uint32(),
	}
}

func TestMixedRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	s := newStream(t, 64<<10)
	for round := 0; round < 10; round++ {
		s.Reset()
		n := 1 + rng.Intn(200)
		want := make([]Command, n)
		for i := range want {
			want[i] = randomCommand(rng)
			if err := s.PushCommand(want[i]); err != nil {
				t.Fatalf("push %d: %v", i, err)
			}
		}
		r := s.Reader()
		i := 0
		for r.Next() {
			if got := r.Command(); !reflect.DeepEqual(got, want[i]) {
				t.Fatalf("round %d record %d: got %#v, want %#v", round, i, got, want[i])
			}
			i++
		}
		if r.Err() != nil || i != n {
			t.Fatalf("round %d: read %d of %d, err %v", round, i, n, r.Err())
		}
	}
}

func TestPushOverflow(t *testing.T) {
	s := newStream(t, headerSize+optionsSize+uniformsSize)
	if err := Push(s, Options{}); err != nil {
		t.Fatal(err)
	}
	// Uniforms needs 16-byte alignment, so the remaining 80 bytes are not enough.
	err := Push(s, Uniforms{Transform: mgl32.Ident4()})
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("Push past the end = %v, want ErrCapacityExceeded", err)
	}
	if s.Len() != 1 || s.Used() != headerSize+optionsSize {
		t.Errorf("failed push changed the header: len %d used %d", s.Len(), s.Used())
	}
	n, err := Replay(s.Bytes(), &recorder{})
	if err != nil || n != 1 {
		t.Errorf("Replay after failed push: %d, %v", n, err)
	}
}

func TestNewBufferTooSmall(t *testing.T) {
	if _, err := New(make([]byte, headerSize-1)); !errors.Is(err, ErrBufferTooSmall) {
		t.Errorf("New = %v, want ErrBufferTooSmall", err)
	}
	r := NewReader(make([]byte, 8))
	if r.Next() || !errors.Is(r.Err(), ErrBufferTooSmall) {
		t.Errorf("reader over short buffer: %v", r.Err())
	}
}

func TestReset(t *testing.T) {
	s := newStream(t, 512)
	Push(s, Options{})
	Push(s, Uniforms{})
	s.Reset()
	if s.Len() != 0 || s.Used() != headerSize {
		t.Fatalf("after Reset len %d used %d", s.Len(), s.Used())
	}
	Push(s, Polyline{VertexCount: 4})
	r := s.Reader()
	if !r.Next() || r.Kind() != KindPolyline || r.Polyline().VertexCount != 4 {
		t.Fatalf("first record after Reset: %v %v", r.Kind(), r.Err())
	}
	if r.Next() {
		t.Error("stale record visible after Reset")
	}
}

func TestReaderRejectsCorruptStreams(t *testing.T) {
	build := func() []byte {
		s := newStream(t, 512)
		Push(s, Options{})
		Push(s, Triangles{VertexCount: 3})
		Push(s, Text{QuadCount: 2})
		return s.Bytes()
	}
	tests := []struct {
		name  string
		patch func(b []byte)
	}{
		{"count too high", func(b []byte) { le.PutUint32(b[0:], 4) }},
		{"first offset outside", func(b []byte) { le.PutUint64(b[8:], 4096) }},
		{"first offset in header", func(b []byte) { le.PutUint64(b[8:], 8) }},
		{"bad kind", func(b []byte) { le.PutUint32(b[headerSize:], 99) }},
		{"backward link", func(b []byte) { le.PutUint64(b[headerSize+8:], headerSize) }},
		{"misaligned link", func(b []byte) { le.PutUint64(b[headerSize+8:], 60) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := build()
			tt.patch(b)
			n, err := Replay(b, &recorder{})
			if !errors.Is(err, ErrCorrupt) {
				t.Errorf("Replay = %d, %v; want ErrCorrupt", n, err)
			}
		})
	}
}

func TestAccessorKindMismatchPanics(t *testing.T) {
	s := newStream(t, 256)
	Push(s, Options{})
	r := s.Reader()
	r.Next()
	defer func() {
		if recover() == nil {
			t.Error("Triangles() on an options record did not panic")
		}
	}()
	r.Triangles()
}

type recorder struct {
	calls []string
	last  Triangles
}

func (r *recorder) SetFillMode(m FillMode)    { r.calls = append(r.calls, "fill:"+m.String()) }
func (r *recorder) SetUniforms(mgl32.Mat4)    { r.calls = append(r.calls, "uniforms") }
func (r *recorder) DrawTriangles(t Triangles) { r.calls = append(r.calls, "triangles"); r.last = t }
func (r *recorder) DrawPolyline(Polyline)     { r.calls = append(r.calls, "polyline") }
func (r *recorder) DrawText(Text)             { r.calls = append(r.calls, "text") }

func TestReplay(t *testing.T) {
	s := newStream(t, 1024)
	Push(s, Options{FillMode: FillSolid})
	Push(s, Uniforms{Transform: mgl32.Scale3D(2, 2, 1)})
	Push(s, Triangles{VertexBuffer: 3, VertexCount: 6, Selected: true})
	Push(s, Polyline{VertexBuffer: 4, VertexCount: 5})
	Push(s, Text{QuadCount: 11})
	rec := &recorder{}
	n, err := Replay(s.Bytes(), rec)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"fill:solid", "uniforms", "triangles", "polyline", "text"}
	if n != len(want) || !reflect.DeepEqual(rec.calls, want) {
		t.Errorf("Replay dispatched %d: %v", n, rec.calls)
	}
	if !rec.last.Selected || rec.last.VertexCount != 6 {
		t.Errorf("triangles = %+v", rec.last)
	}
}

func TestDumpJSON(t *testing.T) {
	s := newStream(t, 1024)
	Push(s, Options{FillMode: FillPoints})
	Push(s, Triangles{Transform: mgl32.Ident4(), VertexBuffer: 9, VertexCount: 18})
	Push(s, Uniforms{Transform: mgl32.Scale3D(2, 3, 1)})
	out, err := DumpJSON(s.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	doc := gjson.ParseBytes(out)
	if doc.Get("count").Int() != 3 || doc.Get("commands.#").Int() != 3 {
		t.Fatalf("dump: %s", out)
	}
	if u := doc.Get("commands.2"); u.Get("kind").String() != "uniforms" ||
		u.Get("transform.0").Float() != 2 || u.Get("transform.5").Float() != 3 {
		t.Errorf("uniforms entry: %s", u.Raw)
	}
	if got := doc.Get("commands.0.fillMode").String(); got != "points" {
		t.Errorf("fillMode = %q", got)
	}
	tri := doc.Get("commands.1")
	if tri.Get("kind").String() != "triangles" || tri.Get("vertexCount").Int() != 18 {
		t.Errorf("triangles entry: %s", tri.Raw)
	}
	if tri.Get("transform.#").Int() != 16 || tri.Get("transform.15").Float() != 1 {
		t.Errorf("transform: %s", tri.Get("transform").Raw)
	}
	if doc.Get("commands.0.next").Int() != tri.Get("offset").Int() {
		t.Errorf("link %d does not point at %d", doc.Get("commands.0.next").Int(), tri.Get("offset").Int())
	}
	if doc.Get("used").Int() != int64(s.Used()) {
		t.Errorf("used = %d, stream says %d", doc.Get("used").Int(), s.Used())
	}
}

func TestPushDoesNotAllocate(t *testing.T) {
	s := newStream(t, 4096)
	tri := Triangles{Transform: mgl32.Translate3D(1, 2, 0), VertexBuffer: 3, VertexCount: 18}
	text := Text{Transform: mgl32.Ident4(), QuadCount: 4, Quads: 64, Indices: 512, Texels: 1024, Width: 6, Height: 1248, Stride: 6}
	allocs := testing.AllocsPerRun(100, func() {
		s.Reset()
		if err := Push(s, Options{FillMode: FillSolid}); err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 8; i++ {
			if err := Push(s, tri); err != nil {
				t.Fatal(err)
			}
		}
		if err := Push(s, text); err != nil {
			t.Fatal(err)
		}
	})
	if allocs != 0 {
		t.Errorf("a frame of pushes allocated %v times", allocs)
	}
	if s.Len() != 10 {
		t.Errorf("Len = %d, want 10", s.Len())
	}
}
