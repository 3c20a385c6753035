package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/asteroids-engine/framecore/rendercmd"
	"github.com/pkg/errors"
	"golang.org/x/exp/slog"
)

// System owns the platform side of the game: game memory, the vertex buffer
// store, the renderer and the frame loop.
type System struct {
	cfg      *Config
	log      *slog.Logger
	mem      *GameMemory
	platform *headlessPlatform
	renderer Renderer
	game     *GameState
	stream   *rendercmd.Stream
	input    InputSource
	stats    RunStats

	frame      int
	frameSkip  bool
	redrawWait struct{ nextTime, lastDraw time.Time }
	started    time.Time
}

func newSystem(cfg *Config, log *slog.Logger) *System {
	return &System{cfg: cfg, log: log}
}

// init reserves game memory and builds everything that lives in it. input
// may be nil, in which case the configured script or the built-in pilot is
// used.
func (s *System) init(input InputSource) (err error) {
	c := s.cfg
	if s.mem, err = newGameMemory(c.Memory.PermanentSize*kib, c.Memory.TransientSize*kib, c.Memory.CommandSize*kib); err != nil {
		return err
	}
	s.platform = newHeadlessPlatform()
	s.renderer = newHeadlessRenderer(s.platform, s.mem)
	if s.stream, err = rendercmd.New(s.mem.CommandBuffer()); err != nil {
		return errors.Wrap(err, "failed to create command stream")
	}
	if s.game, err = newGameState(c, s.mem, s.platform, s.log); err != nil {
		return errors.Wrap(err, "failed to initialize game")
	}
	switch {
	case input != nil:
		s.input = input
	case c.Debug.Script != "":
		if s.input, err = newScriptInput(c.Debug.Script, s.game, s.log); err != nil {
			return err
		}
	default:
		s.input = newPatternInput(0)
	}
	s.started = time.Now()
	s.stats = newRunStats(c.World.Seed, s.started)
	s.log.Info("system initialized",
		"renderer", s.renderer.GetName(),
		"memory", s.mem.PermanentSize+s.mem.TransientSize+s.mem.CommandSize,
		"frames", c.Frame.Frames, "realtime", c.Frame.Realtime)
	return nil
}

// run steps frames until the configured count is reached or ctx is done.
func (s *System) run(ctx context.Context) error {
	s.redrawWait.nextTime = time.Now()
	for s.cfg.Frame.Frames == 0 || s.frame < s.cfg.Frame.Frames {
		select {
		case <-ctx.Done():
			s.log.Info("frame loop interrupted", "frame", s.frame)
			return nil
		default:
		}
		if err := s.step(); err != nil {
			return err
		}
		if s.cfg.Frame.Realtime {
			s.await(s.cfg.Frame.Framerate)
		}
	}
	return nil
}

// step runs one frame: read input, let the game fill the command stream and
// hand the stream to the renderer.
func (s *System) step() error {
	s.frame++
	dt := 1 / float32(s.cfg.Frame.Framerate)
	in, err := s.input.Next(s.frame, dt)
	if err != nil {
		return err
	}

	s.stream.Reset()
	if err := s.game.updateAndRender(in, s.stream); err != nil {
		return errors.Wrapf(err, "frame %d", s.frame)
	}
	transientUsed := s.game.transient.Used()

	var fs FrameStats
	if !s.frameSkip {
		s.renderer.BeginFrame()
		if _, err := rendercmd.Replay(s.stream.Bytes(), s.renderer); err != nil {
			return errors.Wrapf(err, "frame %d: replay", s.frame)
		}
		if fs, err = s.renderer.EndFrame(); err != nil {
			return errors.Wrapf(err, "frame %d: %s renderer", s.frame, s.renderer.GetName())
		}
	}
	s.stats.addFrame(s.stream.Len(), s.stream.Used(), transientUsed, fs)

	if s.frame == s.cfg.Debug.DumpFrame {
		if err := s.dumpFrame(); err != nil {
			return err
		}
	}
	if s.frame%600 == 0 {
		s.log.Debug("frame", "n", s.frame, "commands", s.stream.Len(), "used", s.stream.Used(),
			"asteroids", s.game.world.asteroids.Len(), "entities", s.game.world.entities.Len())
	}
	return nil
}

// dumpPath is where the configured frame is written, next to the stats file.
func (s *System) dumpPath() string {
	dir := "save"
	if s.cfg.Debug.Stats != "" {
		dir = filepath.Dir(s.cfg.Debug.Stats)
	}
	return filepath.Join(dir, fmt.Sprintf("frame%d.json", s.frame))
}

func (s *System) dumpFrame() error {
	js, err := rendercmd.DumpJSON(s.stream.Bytes())
	if err != nil {
		return errors.Wrapf(err, "frame %d: dump", s.frame)
	}
	p := s.dumpPath()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.Wrap(err, "failed to create dump directory")
	}
	if err := os.WriteFile(p, js, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %q", p)
	}
	s.log.Info("command stream dumped", "frame", s.frame, "file", p)
	return nil
}

// await paces the loop to fps. When the loop falls behind, the next frame
// is simulated without being rendered.
func (s *System) await(fps int) {
	now := time.Now()
	diff := s.redrawWait.nextTime.Sub(now)
	waitDuration := time.Second / time.Duration(fps)
	s.redrawWait.nextTime = s.redrawWait.nextTime.Add(waitDuration)

	switch {
	case diff >= 0 && diff < waitDuration+2*time.Millisecond:
		time.Sleep(diff)
		fallthrough
	case now.Sub(s.redrawWait.lastDraw) > 250*time.Millisecond:
		fallthrough
	case diff >= -17*time.Millisecond:
		s.redrawWait.lastDraw = now
		s.frameSkip = false
	default:
		if diff < -150*time.Millisecond {
			s.redrawWait.nextTime = now.Add(waitDuration)
		}
		s.frameSkip = true
	}
}

// shutdown records the run and releases game memory. Nothing built in game
// memory may be used afterwards.
func (s *System) shutdown() error {
	var errs []error
	if s.input != nil {
		if err := s.input.Close(); err != nil {
			errs = append(errs, err)
		}
		s.input = nil
	}
	if s.game != nil {
		s.stats.Restarts = s.game.restarts
		s.stats.Asteroids = s.game.world.asteroids.Len()
		s.stats.ShipAlive = s.game.ship().Alive
		s.stats.EntityZoneUsed = s.game.entityZone.Used()
		s.stats.PlatformBuffers = s.platform.BufferCount()
		s.stats.PlatformBytes = s.platform.BufferBytes()
		s.stats.ElapsedMillis = time.Since(s.started).Milliseconds()
		if s.cfg.Debug.Stats != "" {
			if err := saveStats(s.cfg.Debug.Stats, s.stats); err != nil {
				errs = append(errs, err)
			}
		}
		s.log.Info("run finished", "frames", s.stats.Frames, "commands", s.stats.Commands,
			"restarts", s.stats.Restarts, "asteroids", s.stats.Asteroids)
		s.game = nil
	}
	if s.mem != nil {
		if err := s.mem.Release(); err != nil {
			errs = append(errs, err)
		}
		s.mem = nil
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
