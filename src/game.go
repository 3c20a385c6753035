package main

import (
	"math"
	"math/rand"

	"github.com/asteroids-engine/framecore/containers"
	"github.com/asteroids-engine/framecore/rendercmd"
	"github.com/asteroids-engine/framecore/zone"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"golang.org/x/exp/slog"
	"golang.org/x/image/font/basicfont"
)

type RenderableID uint32

const (
	renderableWorld RenderableID = iota + 1
	renderableShip
	renderableAsteroid
	renderableLaser
	renderableDebris
)

// Renderable holds the platform buffers shared by every entity of a kind.
// Min and Max bound its vertices in model space.
type Renderable struct {
	VertexBuffer rendercmd.Handle
	BoundingBox  rendercmd.Handle
	VertexCount  uint32
	Min, Max     mgl32.Vec2
}

const frameTimeWindow = 120

type World struct {
	Size       mgl32.Vec2
	entities   containers.Pool[EntityRef]
	ship       zone.Ref[Ship]
	asteroids  containers.Pool[zone.Ref[Asteroid]]
	lasers     containers.CircularBuffer[zone.Ref[Laser]]
	debris     containers.BucketArray[Debris]
	frameTimes containers.StaticArray[float32]
}

// GameState owns the zone hierarchy and everything built in it.
type GameState struct {
	cfg      *Config
	log      *slog.Logger
	mem      *GameMemory
	platform BufferCreator
	rng      *rand.Rand

	zoneZone   *zone.Zone
	entityZone *zone.Zone
	assetZone  *zone.Zone
	transient  *zone.Zone

	renderables containers.HashTable[RenderableID, Renderable]
	font        *BitmapFont
	hud         []byte
	world       World

	selected      EntityRef
	restarting    bool
	restarts      int
	laserCooldown float32
	frame         int
}

func newGameState(cfg *Config, mem *GameMemory, platform BufferCreator, log *slog.Logger) (*GameState, error) {
	gs := &GameState{
		cfg:      cfg,
		log:      log,
		mem:      mem,
		platform: platform,
		rng:      rand.New(rand.NewSource(cfg.World.Seed)),
	}
	b := mem.Bytes()
	var err error
	if gs.zoneZone, err = zone.NewRange("zones", b, 0, cfg.Memory.ZoneZoneSize*kib); err != nil {
		return nil, err
	}
	entityBase := gs.zoneZone.Base() + gs.zoneZone.Size()
	if gs.entityZone, err = gs.zoneZone.CreateZone("entities", entityBase, cfg.Memory.EntityZoneSize*kib); err != nil {
		return nil, err
	}
	assetBase := entityBase + gs.entityZone.Size()
	if gs.assetZone, err = gs.zoneZone.CreateZone("assets", assetBase, mem.PermanentSize-assetBase); err != nil {
		return nil, err
	}
	if gs.transient, err = zone.NewRange("transient", b, mem.TransientBase(), mem.TransientSize); err != nil {
		return nil, err
	}

	if cfg.Debug.HUD {
		if gs.font, err = loadBitmapFont(gs.assetZone, basicfont.Face7x13); err != nil {
			return nil, errors.Wrap(err, "failed to load HUD font")
		}
	}
	if gs.renderables, err = containers.NewHashTable[RenderableID, Renderable](gs.entityZone, cfg.World.RenderableTable); err != nil {
		return nil, errors.Wrap(err, "failed to create renderables")
	}
	if err := gs.createWorld(); err != nil {
		return nil, err
	}
	log.Debug("game state initialized",
		"entities", gs.entityZone.Metrics(), "assets", gs.assetZone.Metrics())
	return gs, nil
}

func (gs *GameState) createWorld() error {
	w := &gs.world
	ez := gs.entityZone
	w.Size = mgl32.Vec2{gs.cfg.World.Width, gs.cfg.World.Height}

	var err error
	if w.entities, err = containers.NewPool[EntityRef](ez, gs.cfg.World.EntityPool); err != nil {
		return errors.Wrap(err, "entity pool")
	}
	// Every asteroid can split twice so x + 2x + 4x = 7x
	if w.asteroids, err = containers.NewPool[zone.Ref[Asteroid]](ez, max(7*gs.cfg.World.Asteroids, 1)); err != nil {
		return errors.Wrap(err, "asteroid pool")
	}
	if w.lasers, err = containers.NewCircularBuffer[zone.Ref[Laser]](ez, gs.cfg.World.MaxLasers); err != nil {
		return errors.Wrap(err, "laser buffer")
	}
	if w.debris, err = containers.NewBucketArray[Debris](ez, gs.cfg.World.DebrisHint); err != nil {
		return errors.Wrap(err, "debris")
	}
	if w.frameTimes, err = containers.NewStaticArray[float32](ez, frameTimeWindow); err != nil {
		return errors.Wrap(err, "frame times")
	}
	return gs.populateWorld()
}

func (gs *GameState) populateWorld() error {
	ship, err := gs.createShip()
	if err != nil {
		return err
	}
	gs.world.ship = ship
	for i := 0; i < gs.cfg.World.Asteroids; i++ {
		a, err := gs.createAsteroid(AsteroidLarge)
		if err != nil {
			return err
		}
		gs.randomizeAsteroidLocation(a)
		randomizeAsteroidRotationAndVelocity(gs.rng, a)
	}
	return nil
}

// restartGame clears the world's collections and spawns a fresh ship and
// starting asteroids. Records of the old entities stay in the entity zone.
func (gs *GameState) restartGame() error {
	w := &gs.world
	w.asteroids.Clear()
	w.entities.Clear()
	w.lasers.Clear()
	w.debris.Clear()
	gs.laserCooldown = 0
	gs.selected = EntityRef{}
	gs.restarts++
	gs.log.Info("restarting game", "restarts", gs.restarts, "entityZoneUsed", gs.entityZone.Used())
	return gs.populateWorld()
}

func (gs *GameState) registerEntity(e Entity, ref EntityRef) error {
	slot, err := gs.world.entities.Add(ref)
	if err != nil {
		return errors.Wrap(err, "no free entity slot")
	}
	e.body().Slot = int32(slot)
	return nil
}

func (gs *GameState) destroyEntity(e Entity) {
	b := e.body()
	if b.Slot >= 0 {
		gs.world.entities.RemoveAt(int(b.Slot))
		b.Slot = -1
	}
}

func (gs *GameState) createShip() (zone.Ref[Ship], error) {
	ref, err := zone.AllocRef[Ship](gs.entityZone)
	if err != nil {
		return ref, errors.Wrap(err, "ship")
	}
	s := ref.Deref(gs.entityZone)
	s.Scale = 1
	s.Alive = true
	if _, err := gs.renderable(renderableShip, shipVertices); err != nil {
		return ref, err
	}
	return ref, gs.registerEntity(s, refOf(gs.entityZone, EntityShip, s))
}

func (gs *GameState) createAsteroid(size AsteroidSize) (*Asteroid, error) {
	ref, err := zone.AllocRef[Asteroid](gs.entityZone)
	if err != nil {
		return nil, errors.Wrap(err, "asteroid")
	}
	a := ref.Deref(gs.entityZone)
	a.Size = size
	a.Scale = size.scale()
	if _, err := gs.renderable(renderableAsteroid, asteroidVertices); err != nil {
		return nil, err
	}
	if _, err := gs.world.asteroids.Add(ref); err != nil {
		return nil, errors.Wrap(err, "asteroid pool")
	}
	return a, gs.registerEntity(a, refOf(gs.entityZone, EntityAsteroid, a))
}

// randomizeAsteroidLocation keeps asteroids from spawning on top of the ship.
func (gs *GameState) randomizeAsteroidLocation(a *Asteroid) {
	size := gs.world.Size
	ship := gs.world.ship.Deref(gs.entityZone)
	for {
		a.P = mgl32.Vec2{
			randomInRange(gs.rng, -size[0]/2, size[0]/2),
			randomInRange(gs.rng, -size[1]/2, size[1]/2),
		}
		if torusDistance(size, a.P, ship.P) >= AsteroidLarge.scale()*2 {
			return
		}
	}
}

func (gs *GameState) createLaser(ship *Ship) error {
	w := &gs.world
	// The oldest laser is about to be overwritten.
	if w.lasers.Len() == w.lasers.Cap() {
		old := w.lasers.At(w.lasers.NextIndex()).Deref(gs.entityZone)
		gs.destroyEntity(old)
		old.Alive = false
	}
	ref, err := zone.AllocRef[Laser](gs.entityZone)
	if err != nil {
		return errors.Wrap(err, "laser")
	}
	l := ref.Deref(gs.entityZone)
	l.P = ship.P
	l.DP = mgl32.Vec2{
		float32(math.Sin(float64(ship.Rot))) * 0.2,
		float32(math.Cos(float64(ship.Rot))) * 0.2,
	}
	l.Scale = 0.03
	l.Lifetime = 1
	l.Alive = true
	if _, err := gs.renderable(renderableLaser, laserVertices); err != nil {
		return err
	}
	w.lasers.Push(ref)
	return gs.registerEntity(l, refOf(gs.entityZone, EntityLaser, l))
}

func (gs *GameState) spawnDebris(p mgl32.Vec2, n int) error {
	if _, err := gs.renderable(renderableDebris, laserVertices); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		d, _, err := gs.world.debris.NewElement()
		if err != nil {
			return errors.Wrap(err, "debris")
		}
		d.P = p
		d.DP = mgl32.Vec2{randomInRange(gs.rng, -0.05, 0.05), randomInRange(gs.rng, -0.05, 0.05)}
		d.Life = randomInRange(gs.rng, 0.3, 0.6)
	}
	return nil
}

// renderable returns the buffers for id, creating them through the platform
// on first use.
func (gs *GameState) renderable(id RenderableID, verts func(size mgl32.Vec2) []float32) (Renderable, error) {
	if r, ok := gs.renderables.Lookup(id); ok {
		return r, nil
	}
	v := verts(gs.world.Size)
	vb, err := gs.platform.CreateVertexBuffer(v)
	if err != nil {
		return Renderable{}, errors.Wrapf(err, "renderable %d", id)
	}
	bb, err := gs.platform.CreateVertexBuffer(boundingBoxVertices(v))
	if err != nil {
		return Renderable{}, errors.Wrapf(err, "renderable %d bounding box", id)
	}
	r := Renderable{VertexBuffer: vb, BoundingBox: bb, VertexCount: uint32(len(v) / vertexStride)}
	r.Min, r.Max = extents(v)
	if err := gs.renderables.Insert(id, r); err != nil {
		return Renderable{}, err
	}
	return r, nil
}

// updateAndRender advances the game by one frame and writes the frame's
// drawing commands into s.
func (gs *GameState) updateAndRender(in Inputs, s *rendercmd.Stream) error {
	gs.frame++
	if !gs.restarting && in.Restart {
		gs.restarting = true
		if err := gs.restartGame(); err != nil {
			return err
		}
	} else if gs.restarting && !in.Restart {
		gs.restarting = false
	}

	if err := gs.simulate(in); err != nil {
		return err
	}
	if in.Select {
		gs.selectAt(in.Cursor)
	}

	w := &gs.world
	if w.frameTimes.Len() == w.frameTimes.Cap() {
		w.frameTimes.Clear()
	}
	if err := w.frameTimes.Push(in.Dt); err != nil {
		return err
	}

	gs.transient.Reset()
	return gs.render(s)
}

// averageFPS is derived from the frame times recorded since the window
// was last cleared.
func (gs *GameState) averageFPS() float32 {
	var total float32
	for i := 0; i < gs.world.frameTimes.Len(); i++ {
		total += gs.world.frameTimes.At(i)
	}
	if total == 0 {
		return 0
	}
	return float32(gs.world.frameTimes.Len()) / total
}

func (gs *GameState) ship() *Ship {
	return gs.world.ship.Deref(gs.entityZone)
}
