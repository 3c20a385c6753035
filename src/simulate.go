package main

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

const (
	shipRotateSpeed  = 0.1
	shipAcceleration = 0.005
	shipMaxSpeed     = 0.5
	laserCooldown    = 0.25
	debrisPerHit     = 6
)

func (gs *GameState) simulate(in Inputs) error {
	w := &gs.world
	ship := gs.ship()

	if ship.Alive {
		rotateEntity(ship, shipRotateSpeed*in.Rotate)
		if in.Thrust {
			dir := mgl32.Vec2{
				float32(math.Sin(float64(ship.Rot))),
				float32(math.Cos(float64(ship.Rot))),
			}
			ship.DP = ship.DP.Add(dir.Mul(shipAcceleration))
			if l := ship.DP.Len(); l > shipMaxSpeed {
				ship.DP = ship.DP.Mul(shipMaxSpeed / l)
			}
		}
		ship.P = wrapPosition(ship.P.Add(ship.DP), w.Size)
	}

	for _, ref := range w.asteroids.All() {
		a := ref.Deref(gs.entityZone)
		rotateEntity(a, a.DRot)
		a.P = wrapPosition(a.P.Add(a.DP), w.Size)
	}

	gs.laserCooldown = max(gs.laserCooldown-in.Dt, 0)
	if in.Fire && ship.Alive && gs.laserCooldown == 0 {
		if err := gs.createLaser(ship); err != nil {
			return err
		}
		gs.laserCooldown = laserCooldown
	}

	for _, ref := range w.lasers.All() {
		l := ref.Deref(gs.entityZone)
		if !l.Alive {
			continue
		}
		l.TimeAlive += in.Dt
		if l.TimeAlive >= l.Lifetime {
			gs.killLaser(l)
			continue
		}
		l.P = wrapPosition(l.P.Add(l.DP), w.Size)
	}

	for loc, d := range w.debris.All() {
		d.Life -= in.Dt
		if d.Life <= 0 {
			w.debris.Remove(loc)
			continue
		}
		d.P = wrapPosition(d.P.Add(d.DP), w.Size)
	}

	if err := gs.collideLasers(); err != nil {
		return err
	}
	gs.collideShip()
	return nil
}

func (gs *GameState) killLaser(l *Laser) {
	l.Alive = false
	gs.destroyEntity(l)
}

// collideLasers resolves at most one laser hit per frame. The hit asteroid is
// removed and, unless it was already small, replaced by two smaller ones.
func (gs *GameState) collideLasers() error {
	w := &gs.world
	hitSlot := -1
	var hit *Asteroid
	var laser *Laser
outer:
	for slot, aref := range w.asteroids.All() {
		a := aref.Deref(gs.entityZone)
		for _, lref := range w.lasers.All() {
			l := lref.Deref(gs.entityZone)
			if l.Alive && torusDistance(w.Size, a.P, l.P) < a.Radius() {
				hitSlot, hit, laser = slot, a, l
				break outer
			}
		}
	}
	if hit == nil {
		return nil
	}

	gs.killLaser(laser)
	w.asteroids.RemoveAt(hitSlot)
	gs.destroyEntity(hit)
	if err := gs.spawnDebris(hit.P, debrisPerHit); err != nil {
		return err
	}
	if hit.Size == AsteroidSmall {
		return nil
	}
	for i := 0; i < 2; i++ {
		a, err := gs.createAsteroid(hit.Size - 1)
		if err != nil {
			return errors.Wrap(err, "failed to split asteroid")
		}
		a.P = hit.P
		randomizeAsteroidRotationAndVelocity(gs.rng, a)
	}
	return nil
}

// collideShip tests the ship's nose and both wing tips against every
// asteroid.
func (gs *GameState) collideShip() {
	w := &gs.world
	ship := gs.ship()
	if !ship.Alive {
		return
	}
	m := entityTransform(ship.P, ship.Rot, ship.Scale)
	for _, aref := range w.asteroids.All() {
		a := aref.Deref(gs.entityZone)
		for _, v := range shipHull {
			p := m.Mul4x1(mgl32.Vec4{v[0], v[1], 0, 1}).Vec2()
			if torusDistance(w.Size, a.P, p) < a.Radius() {
				ship.Alive = false
				gs.log.Info("ship destroyed", "frame", gs.frame, "asteroids", w.asteroids.Len())
				return
			}
		}
	}
}
