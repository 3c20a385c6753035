package main

import (
	"math"
	"math/rand"

	"github.com/asteroids-engine/framecore/zone"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

type EntityKind uint8

const (
	EntityShip EntityKind = iota + 1
	EntityAsteroid
	EntityLaser
)

// Body is the part every entity record starts with. Slot is the entity's
// index in the world's entity pool, or -1.
type Body struct {
	P     mgl32.Vec2
	DP    mgl32.Vec2
	Rot   float32
	DRot  float32
	Scale float32
	Slot  int32
}

func (b *Body) Position() mgl32.Vec2 { return b.P }
func (b *Body) Velocity() mgl32.Vec2 { return b.DP }
func (b *Body) Rotation() float32    { return b.Rot }
func (b *Body) Radius() float32      { return b.Scale }
func (b *Body) body() *Body          { return b }

// Entity is implemented by *Ship, *Asteroid and *Laser.
type Entity interface {
	Kind() EntityKind
	Position() mgl32.Vec2
	Velocity() mgl32.Vec2
	Rotation() float32
	Radius() float32
	body() *Body
}

type Ship struct {
	Body
	Alive bool
}

func (*Ship) Kind() EntityKind { return EntityShip }

type AsteroidSize uint8

const (
	AsteroidSmall AsteroidSize = iota
	AsteroidMedium
	AsteroidLarge
)

func (s AsteroidSize) scale() float32 {
	switch s {
	case AsteroidLarge:
		return 2.0
	case AsteroidMedium:
		return 1.5
	}
	return 1.0
}

func (s AsteroidSize) speed() float32 {
	switch s {
	case AsteroidMedium:
		return 0.04
	case AsteroidSmall:
		return 0.06
	}
	return 0.02
}

type Asteroid struct {
	Body
	Size AsteroidSize
}

func (*Asteroid) Kind() EntityKind { return EntityAsteroid }

type Laser struct {
	Body
	TimeAlive float32
	Lifetime  float32
	Alive     bool
}

func (*Laser) Kind() EntityKind { return EntityLaser }

// Debris is a short-lived particle kept in the world's bucket array.
type Debris struct {
	P    mgl32.Vec2
	DP   mgl32.Vec2
	Life float32
}

// EntityRef is a tagged offset to an entity record in the entity zone.
type EntityRef struct {
	Kind   EntityKind
	Offset uint64
}

func refOf[T any](z *zone.Zone, kind EntityKind, e *T) EntityRef {
	return EntityRef{Kind: kind, Offset: uint64(zone.OffsetOf(z, e))}
}

// resolve returns the entity ref points at.
func (ref EntityRef) resolve(z *zone.Zone) Entity {
	switch ref.Kind {
	case EntityShip:
		return zone.At[Ship](z, int(ref.Offset))
	case EntityAsteroid:
		return zone.At[Asteroid](z, int(ref.Offset))
	case EntityLaser:
		return zone.At[Laser](z, int(ref.Offset))
	}
	panic(errors.Errorf("entity ref of unknown kind %d", ref.Kind))
}

func randomInRange(rng *rand.Rand, lo, hi float32) float32 {
	return lo + rng.Float32()*(hi-lo)
}

// normalizeToRange wraps v into [lo, hi).
func normalizeToRange(v, lo, hi float32) float32 {
	w := hi - lo
	v = float32(math.Mod(float64(v-lo), float64(w)))
	if v < 0 {
		v += w
	}
	return v + lo
}

func wrapPosition(p, size mgl32.Vec2) mgl32.Vec2 {
	return mgl32.Vec2{
		normalizeToRange(p[0], -size[0]/2, size[0]/2),
		normalizeToRange(p[1], -size[1]/2, size[1]/2),
	}
}

// torusDistance is the shortest distance between a and b on a world that
// wraps at its edges.
func torusDistance(size, a, b mgl32.Vec2) float32 {
	dx := float32(math.Abs(float64(a[0] - b[0])))
	dy := float32(math.Abs(float64(a[1] - b[1])))
	dx = min(dx, size[0]-dx)
	dy = min(dy, size[1]-dy)
	return mgl32.Vec2{dx, dy}.Len()
}

func rotateEntity(e Entity, radians float32) {
	b := e.body()
	b.Rot = normalizeToRange(b.Rot+radians, -math.Pi, math.Pi)
}

func randomizeAsteroidRotationAndVelocity(rng *rand.Rand, a *Asteroid) {
	a.Rot = randomInRange(rng, -math.Pi, math.Pi)
	a.DRot = randomInRange(rng, 2*math.Pi/900, 2*math.Pi/700)
	v := a.Size.speed()
	a.DP = mgl32.Vec2{randomInRange(rng, -v, v), randomInRange(rng, -v, v)}
}
