package main

import (
	"github.com/asteroids-engine/framecore/zone"
	"github.com/go-gl/mathgl/mgl32"
)

// hitTest reports whether the world space point p lies inside the bounding
// box of e, taking the wrap-around at the world's edges into account.
func (gs *GameState) hitTest(p mgl32.Vec2, e Entity) bool {
	size := gs.world.Size
	if p[0] < -size[0]/2 || p[0] > size[0]/2 || p[1] < -size[1]/2 || p[1] > size[1]/2 {
		return false
	}
	// Only test entities that are within a reasonable range
	if torusDistance(size, e.Position(), p) > 2*e.Radius() {
		return false
	}
	r, ok := gs.renderables.Lookup(renderableFor(e.Kind()))
	if !ok {
		return false
	}
	d := p.Sub(e.Position())
	d = mgl32.Vec2{
		normalizeToRange(d[0], -size[0]/2, size[0]/2),
		normalizeToRange(d[1], -size[1]/2, size[1]/2),
	}
	inv := entityTransform(mgl32.Vec2{}, e.Rotation(), e.Radius()).Inv()
	l := inv.Mul4x1(mgl32.Vec4{d[0], d[1], 0, 1})
	return l[0] >= r.Min[0] && l[0] <= r.Max[0] && l[1] >= r.Min[1] && l[1] <= r.Max[1]
}

// selectAt selects the first entity under p, or clears the selection.
func (gs *GameState) selectAt(p mgl32.Vec2) {
	gs.selected = EntityRef{}
	for slot, ref := range gs.world.entities.All() {
		e := ref.resolve(gs.entityZone)
		if s, ok := e.(*Ship); ok && !s.Alive {
			continue
		}
		if gs.hitTest(p, e) {
			gs.selected = ref
			gs.log.Debug("entity selected", "kind", ref.Kind, "slot", slot, "at", p)
			return
		}
	}
}

// selectedEntity returns the selected entity while it is still in the world.
func (gs *GameState) selectedEntity() Entity {
	if gs.selected.Kind == 0 {
		return nil
	}
	e := gs.selected.resolve(gs.entityZone)
	if s, ok := e.(*Ship); e.body().Slot < 0 || ok && !s.Alive {
		gs.selected = EntityRef{}
		return nil
	}
	return e
}

func (gs *GameState) isSelected(e Entity) bool {
	return gs.selected.Kind == e.Kind() && e.body().Slot >= 0 &&
		uint64(zone.OffsetOf(gs.entityZone, e.body())) == gs.selected.Offset
}
