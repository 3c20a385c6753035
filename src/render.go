package main

import (
	"math"
	"strconv"

	"github.com/asteroids-engine/framecore/rendercmd"
	"github.com/asteroids-engine/framecore/zone"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// Renderer consumes a finished command stream. Everything it draws with is
// named by handles in the stream.
type Renderer interface {
	GetName() string
	BeginFrame()
	EndFrame() (FrameStats, error)
	rendercmd.Backend
}

// FrameStats is what a renderer counted while replaying one frame.
type FrameStats struct {
	Commands         int `json:"commands"`
	DrawCalls        int `json:"drawCalls"`
	Triangles        int `json:"triangles"`
	PolylineVertices int `json:"polylineVertices"`
	TextQuads        int `json:"textQuads"`
	Visible          int `json:"visible"`
	Selected         int `json:"selected"`
}

var shipHull = [3]mgl32.Vec2{{0, 0.7}, {0.5, -0.7}, {-0.5, -0.7}}

func vertex(dst []float32, x, y float32, c mgl32.Vec4) []float32 {
	return append(dst, x, y, 0, 1, c[0], c[1], c[2], c[3])
}

func shipVertices(mgl32.Vec2) []float32 {
	nose := mgl32.Vec4{0, 1, 1, 1}
	tail := mgl32.Vec4{0.7, 1, 0.4, 1}
	v := make([]float32, 0, 3*vertexStride)
	v = vertex(v, shipHull[0][0], shipHull[0][1], nose)
	v = vertex(v, shipHull[1][0], shipHull[1][1], tail)
	return vertex(v, shipHull[2][0], shipHull[2][1], tail)
}

// asteroidVertices is a unit hexagon as six triangles around the origin.
func asteroidVertices(mgl32.Vec2) []float32 {
	blue := mgl32.Vec4{0, 0, 1, 1}
	v := make([]float32, 0, 18*vertexStride)
	for i := 0; i < 6; i++ {
		a0 := 2 * math.Pi * float64(i) / 6
		a1 := 2 * math.Pi * float64(i+1) / 6
		v = vertex(v, 0, 0, blue)
		v = vertex(v, float32(math.Cos(a0)), float32(math.Sin(a0)), blue)
		v = vertex(v, float32(math.Cos(a1)), float32(math.Sin(a1)), blue)
	}
	return v
}

func laserVertices(mgl32.Vec2) []float32 {
	white := mgl32.Vec4{1, 1, 1, 1}
	v := make([]float32, 0, 6*vertexStride)
	v = vertex(v, 1, 1, white)
	v = vertex(v, -1, 1, white)
	v = vertex(v, -1, -1, white)
	v = vertex(v, 1, 1, white)
	v = vertex(v, -1, -1, white)
	return vertex(v, 1, -1, white)
}

func backgroundVertices(size mgl32.Vec2) []float32 {
	black := mgl32.Vec4{0, 0, 0, 1}
	w, h := size[0]/2, size[1]/2
	v := make([]float32, 0, 6*vertexStride)
	v = vertex(v, -w, h, black)
	v = vertex(v, w, h, black)
	v = vertex(v, w, -h, black)
	v = vertex(v, -w, h, black)
	v = vertex(v, w, -h, black)
	return vertex(v, -w, -h, black)
}

// extents returns the corners of the axis aligned box around verts.
func extents(verts []float32) (lo, hi mgl32.Vec2) {
	lo = mgl32.Vec2{float32(math.Inf(1)), float32(math.Inf(1))}
	hi = mgl32.Vec2{float32(math.Inf(-1)), float32(math.Inf(-1))}
	for i := 0; i+1 < len(verts); i += vertexStride {
		lo = mgl32.Vec2{min(lo[0], verts[i]), min(lo[1], verts[i+1])}
		hi = mgl32.Vec2{max(hi[0], verts[i]), max(hi[1], verts[i+1])}
	}
	return lo, hi
}

// boundingBoxVertices is a closed five point polyline around the extents of
// verts.
func boundingBoxVertices(verts []float32) []float32 {
	lo, hi := extents(verts)
	green := mgl32.Vec4{0, 1, 0, 1}
	v := make([]float32, 0, 5*vertexStride)
	v = vertex(v, lo[0], hi[1], green)
	v = vertex(v, hi[0], hi[1], green)
	v = vertex(v, hi[0], lo[1], green)
	v = vertex(v, lo[0], lo[1], green)
	return vertex(v, lo[0], hi[1], green)
}

// entityTransform is translate * rotate * scale. Rotation is clockwise so
// that a rotation of zero points up the y axis.
func entityTransform(p mgl32.Vec2, rot, scale float32) mgl32.Mat4 {
	return mgl32.Translate3D(p[0], p[1], 0).
		Mul4(mgl32.HomogRotate3DZ(-rot)).
		Mul4(mgl32.Scale3D(scale, scale, 1))
}

// torusOffsets returns the translations at which an object of the given
// radius must be drawn so that it shows on both sides of any edge it
// overlaps. The first offset is always zero.
func torusOffsets(p mgl32.Vec2, r float32, size mgl32.Vec2) (out [4]mgl32.Vec2, n int) {
	n = 1
	var dx, dy float32
	switch {
	case p[0] < -size[0]/2+r:
		dx = size[0]
	case p[0] > size[0]/2-r:
		dx = -size[0]
	}
	switch {
	case p[1] < -size[1]/2+r:
		dy = size[1]
	case p[1] > size[1]/2-r:
		dy = -size[1]
	}
	if dx != 0 {
		out[n] = mgl32.Vec2{dx, 0}
		n++
	}
	if dy != 0 {
		out[n] = mgl32.Vec2{0, dy}
		n++
	}
	if dx != 0 && dy != 0 {
		out[n] = mgl32.Vec2{dx, dy}
		n++
	}
	return
}

func (gs *GameState) render(s *rendercmd.Stream) error {
	if err := rendercmd.Push(s, rendercmd.Options{FillMode: rendercmd.FillSolid}); err != nil {
		return err
	}
	scale := 2 / max(gs.world.Size[0], gs.world.Size[1])
	world := rendercmd.Uniforms{Transform: mgl32.Scale3D(scale, scale, 1)}
	if err := rendercmd.Push(s, world); err != nil {
		return err
	}

	bg, err := gs.renderable(renderableWorld, backgroundVertices)
	if err != nil {
		return err
	}
	if err := rendercmd.Push(s, rendercmd.Triangles{
		Transform:    mgl32.Ident4(),
		VertexBuffer: bg.VertexBuffer,
		VertexCount:  bg.VertexCount,
	}); err != nil {
		return err
	}

	for _, ref := range gs.world.asteroids.All() {
		if err := gs.renderEntityOnTorus(s, ref.Deref(gs.entityZone), renderableAsteroid); err != nil {
			return err
		}
	}
	if ship := gs.ship(); ship.Alive {
		if err := gs.renderEntityOnTorus(s, ship, renderableShip); err != nil {
			return err
		}
	}
	if err := gs.renderLasers(s); err != nil {
		return err
	}
	if err := gs.renderDebris(s); err != nil {
		return err
	}

	if gs.cfg.Debug.BoundingBoxes {
		for _, ref := range gs.world.entities.All() {
			if err := gs.renderBoundingBoxOnTorus(s, ref.resolve(gs.entityZone)); err != nil {
				return err
			}
		}
	} else if e := gs.selectedEntity(); e != nil {
		if err := gs.renderBoundingBoxOnTorus(s, e); err != nil {
			return err
		}
	}
	if gs.font != nil {
		return gs.renderHUD(s)
	}
	return nil
}

func renderableFor(k EntityKind) RenderableID {
	switch k {
	case EntityShip:
		return renderableShip
	case EntityAsteroid:
		return renderableAsteroid
	}
	return renderableLaser
}

func (gs *GameState) renderEntityOnTorus(s *rendercmd.Stream, e Entity, id RenderableID) error {
	r, ok := gs.renderables.Lookup(id)
	if !ok {
		return errors.Errorf("renderable %d was never created", id)
	}
	p, rot, scale := e.Position(), e.Rotation(), e.Radius()
	selected := gs.isSelected(e)
	offsets, n := torusOffsets(p, scale, gs.world.Size)
	for _, off := range offsets[:n] {
		cmd := rendercmd.Triangles{
			Transform:    entityTransform(p.Add(off), rot, scale),
			VertexBuffer: r.VertexBuffer,
			VertexCount:  r.VertexCount,
			Selected:     selected,
		}
		if err := rendercmd.Push(s, cmd); err != nil {
			return err
		}
	}
	return nil
}

func (gs *GameState) renderBoundingBoxOnTorus(s *rendercmd.Stream, e Entity) error {
	r, ok := gs.renderables.Lookup(renderableFor(e.Kind()))
	if !ok {
		return errors.Errorf("no renderable for %d", e.Kind())
	}
	p, rot, scale := e.Position(), e.Rotation(), e.Radius()
	offsets, n := torusOffsets(p, scale, gs.world.Size)
	for _, off := range offsets[:n] {
		cmd := rendercmd.Polyline{
			Transform:    entityTransform(p.Add(off), rot, scale),
			VertexBuffer: r.BoundingBox,
			VertexCount:  5,
		}
		if err := rendercmd.Push(s, cmd); err != nil {
			return err
		}
	}
	return nil
}

func (gs *GameState) renderLasers(s *rendercmd.Stream) error {
	r, ok := gs.renderables.Lookup(renderableLaser)
	if !ok {
		return nil
	}
	for _, ref := range gs.world.lasers.Ordered() {
		l := ref.Deref(gs.entityZone)
		if !l.Alive {
			continue
		}
		cmd := rendercmd.Triangles{
			Transform:    entityTransform(l.P, 0, l.Scale),
			VertexBuffer: r.VertexBuffer,
			VertexCount:  r.VertexCount,
			Selected:     gs.isSelected(l),
		}
		if err := rendercmd.Push(s, cmd); err != nil {
			return err
		}
	}
	return nil
}

func (gs *GameState) renderDebris(s *rendercmd.Stream) error {
	r, ok := gs.renderables.Lookup(renderableDebris)
	if !ok {
		return nil
	}
	for _, d := range gs.world.debris.All() {
		cmd := rendercmd.Triangles{
			Transform:    entityTransform(d.P, 0, 0.02*d.Life),
			VertexBuffer: r.VertexBuffer,
			VertexCount:  r.VertexCount,
		}
		if err := rendercmd.Push(s, cmd); err != nil {
			return err
		}
	}
	return nil
}

func (gs *GameState) renderHUD(s *rendercmd.Stream) error {
	lasers := 0
	for i := 0; i < gs.world.lasers.Len(); i++ {
		if gs.world.lasers.At(i).Deref(gs.entityZone).Alive {
			lasers++
		}
	}
	line := append(gs.hud[:0], "ASTEROIDS "...)
	line = strconv.AppendInt(line, int64(gs.world.asteroids.Len()), 10)
	line = append(line, "  LASERS "...)
	line = strconv.AppendInt(line, int64(lasers), 10)
	line = append(line, "  FPS "...)
	line = strconv.AppendFloat(line, float64(gs.averageFPS()), 'f', 0, 32)
	if !gs.ship().Alive {
		line = append(line, "  GAME OVER"...)
	}
	gs.hud = line
	// Text is laid out in pixels from the top left corner of the world.
	px := gs.world.Size[1] / 40 / float32(gs.font.CellHeight)
	at := mgl32.Translate3D(-gs.world.Size[0]/2+0.2, gs.world.Size[1]/2-0.2-px*float32(gs.font.CellHeight), 0).
		Mul4(mgl32.Scale3D(px, px, 1))
	cmd, ok, err := gs.font.renderText(gs.transient, line, at)
	if err != nil || !ok {
		return err
	}
	return rendercmd.Push(s, cmd)
}

// headlessRenderer replays streams without a GPU. It resolves every handle
// a command carries and counts what a real backend would have drawn.
type headlessRenderer struct {
	platform *headlessPlatform
	memory   *zone.Zone
	fill     rendercmd.FillMode
	view     mgl32.Mat4
	stats    FrameStats
	err      error
}

func newHeadlessRenderer(p *headlessPlatform, mem *GameMemory) *headlessRenderer {
	return &headlessRenderer{platform: p, memory: zone.New("memory", mem.Bytes()), view: mgl32.Ident4()}
}

func (r *headlessRenderer) GetName() string { return "headless" }

func (r *headlessRenderer) BeginFrame() {
	r.stats = FrameStats{}
	r.err = nil
	r.view = mgl32.Ident4()
	r.fill = rendercmd.FillSolid
}

func (r *headlessRenderer) EndFrame() (FrameStats, error) {
	return r.stats, r.err
}

func (r *headlessRenderer) fail(format string, args ...any) {
	if r.err == nil {
		r.err = errors.Errorf(format, args...)
	}
}

func (r *headlessRenderer) SetFillMode(m rendercmd.FillMode) {
	r.stats.Commands++
	r.fill = m
}

func (r *headlessRenderer) SetUniforms(transform mgl32.Mat4) {
	r.stats.Commands++
	r.view = transform
}

// visible reports whether the first vertex of verts lands in clip space.
func (r *headlessRenderer) visible(model mgl32.Mat4, verts []float32) bool {
	p := r.view.Mul4(model).Mul4x1(mgl32.Vec4{verts[0], verts[1], verts[2], verts[3]})
	return p[0] >= -1 && p[0] <= 1 && p[1] >= -1 && p[1] <= 1
}

func (r *headlessRenderer) draw(h rendercmd.Handle, count uint32, model mgl32.Mat4, kind rendercmd.Kind) bool {
	r.stats.Commands++
	verts := r.platform.vertexBuffer(h)
	if verts == nil {
		r.fail("%s: unknown vertex buffer %d", kind, h)
		return false
	}
	if int(count)*vertexStride > len(verts) {
		r.fail("%s: %d vertices from a buffer of %d", kind, count, len(verts)/vertexStride)
		return false
	}
	r.stats.DrawCalls++
	if count > 0 && r.visible(model, verts) {
		r.stats.Visible++
	}
	return true
}

func (r *headlessRenderer) DrawTriangles(c rendercmd.Triangles) {
	if r.draw(c.VertexBuffer, c.VertexCount, c.Transform, rendercmd.KindTriangles) {
		if r.fill != rendercmd.FillPoints {
			r.stats.Triangles += int(c.VertexCount / 3)
		}
		if c.Selected {
			r.stats.Selected++
		}
	}
}

func (r *headlessRenderer) DrawPolyline(c rendercmd.Polyline) {
	if r.draw(c.VertexBuffer, c.VertexCount, c.Transform, rendercmd.KindPolyline) {
		r.stats.PolylineVertices += int(c.VertexCount)
	}
}

// inMemory reports whether n bytes at handle h lie inside game memory.
func (r *headlessRenderer) inMemory(h rendercmd.Handle, n int) bool {
	return n >= 0 && h <= rendercmd.Handle(len(r.memory.Memory())) &&
		n <= len(r.memory.Memory())-int(h)
}

func (r *headlessRenderer) DrawText(c rendercmd.Text) {
	r.stats.Commands++
	q := int(c.QuadCount)
	switch {
	case !r.inMemory(c.Quads, q*4*vertexStride*4):
		r.fail("text: quads at %d out of range", c.Quads)
		return
	case !r.inMemory(c.Indices, q*6*2):
		r.fail("text: indices at %d out of range", c.Indices)
		return
	case c.Stride < c.Width || !r.inMemory(c.Texels, int(c.Height*c.Stride)):
		r.fail("text: texels at %d out of range", c.Texels)
		return
	}
	for _, i := range zone.SliceAt[uint16](r.memory, int(c.Indices), q*6) {
		if int(i) >= q*4 {
			r.fail("text: index %d past %d vertices", i, q*4)
			return
		}
	}
	r.stats.DrawCalls++
	r.stats.TextQuads += q
	r.stats.Triangles += 2 * q
}
