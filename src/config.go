package main

import (
	_ "embed" // Support for go:embed resources
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/slog"
	"gopkg.in/ini.v1"
)

//go:embed resources/defaultConfig.ini
var defaultConfig []byte

const kib = 1024

// Config represents the top-level config structure.
type Config struct {
	Def     string    `ini:"-"`
	IniFile *ini.File `ini:"-"`
	Memory  struct {
		PermanentSize  int `ini:"PermanentSize"`
		TransientSize  int `ini:"TransientSize"`
		CommandSize    int `ini:"CommandSize"`
		ZoneZoneSize   int `ini:"ZoneZoneSize"`
		EntityZoneSize int `ini:"EntityZoneSize"`
	} `ini:"Memory"`
	World struct {
		Width           float32 `ini:"Width"`
		Height          float32 `ini:"Height"`
		Asteroids       int     `ini:"Asteroids"`
		MaxLasers       int     `ini:"MaxLasers"`
		EntityPool      int     `ini:"EntityPool"`
		RenderableTable int     `ini:"RenderableTable"`
		DebrisHint      int     `ini:"DebrisHint"`
		Seed            int64   `ini:"Seed"`
	} `ini:"World"`
	Frame struct {
		Framerate int  `ini:"Framerate"`
		Frames    int  `ini:"Frames"`
		Realtime  bool `ini:"Realtime"`
	} `ini:"Frame"`
	Debug struct {
		LogLevel      string `ini:"LogLevel"`
		DumpFrame     int    `ini:"DumpFrame"`
		Script        string `ini:"Script"`
		Stats         string `ini:"Stats"`
		BoundingBoxes bool   `ini:"BoundingBoxes"`
		HUD           bool   `ini:"HUD"`
	} `ini:"Debug"`
}

// Loads and parses the INI file into a Config struct. The embedded defaults
// are loaded first so that the user file only needs the keys it changes.
func loadConfig(def string) (*Config, error) {
	options := ini.LoadOptions{
		Insensitive:             false,
		IgnoreInlineComment:     false,
		SkipUnrecognizableLines: true,
		AllowShadows:            false,
	}

	var iniFile *ini.File
	var err error
	if _, serr := os.Stat(def); def == "" || serr != nil {
		iniFile, err = ini.LoadSources(options, defaultConfig)
	} else {
		iniFile, err = ini.LoadSources(options, defaultConfig, def)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %q", def)
	}
	var c Config
	if err := iniFile.MapTo(&c); err != nil {
		return nil, errors.Wrapf(err, "failed to map config %q", def)
	}
	c.Def = def
	c.IniFile = iniFile
	if err := c.normalize(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Normalize values and write the result back into IniFile.
func (c *Config) normalize() error {
	c.Frame.Framerate = Clamp(c.Frame.Framerate, 1, 840)
	if c.Frame.Frames < 0 || (c.Frame.Frames == 0 && !c.Frame.Realtime) {
		c.Frame.Frames = 600
	}

	// Options that determine allocation sizes must be positive
	c.Memory.PermanentSize = max(c.Memory.PermanentSize, 64)
	c.Memory.TransientSize = max(c.Memory.TransientSize, 16)
	c.Memory.CommandSize = max(c.Memory.CommandSize, 4)
	c.Memory.ZoneZoneSize = max(c.Memory.ZoneZoneSize, 1)
	c.Memory.EntityZoneSize = Clamp(c.Memory.EntityZoneSize, 1,
		c.Memory.PermanentSize-c.Memory.ZoneZoneSize-1)

	c.World.Width = ClampF(c.World.Width, 1, 1000)
	c.World.Height = ClampF(c.World.Height, 1, 1000)
	c.World.Asteroids = Clamp(c.World.Asteroids, 0, 6)
	c.World.MaxLasers = Clamp(c.World.MaxLasers, 1, 16)
	// Ship, every asteroid after two splits, and every laser need a slot.
	c.World.EntityPool = Clamp(c.World.EntityPool, 1+7*c.World.Asteroids+c.World.MaxLasers, 63)
	c.World.RenderableTable = max(c.World.RenderableTable, 7)
	c.World.DebrisHint = max(c.World.DebrisHint, 0)

	switch strings.ToLower(c.Debug.LogLevel) {
	case "debug", "info", "warn", "error":
		c.Debug.LogLevel = strings.ToLower(c.Debug.LogLevel)
	default:
		c.Debug.LogLevel = "info"
	}
	c.Debug.Stats = filepath.ToSlash(strings.TrimSpace(c.Debug.Stats))

	return errors.Wrap(c.IniFile.ReflectFrom(c), "failed to update config")
}

// LogLevel converts the configured level name.
func (c *Config) LogLevel() slog.Level {
	switch c.Debug.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Save writes the current IniFile to disk.
func (c *Config) Save(file string) error {
	if c.IniFile == nil {
		return errors.New("iniFile is not initialized")
	}
	// Normalize all true/false to 1/0
	for _, section := range c.IniFile.Sections() {
		for _, key := range section.Keys() {
			if key.Value() == "true" {
				key.SetValue("1")
			} else if key.Value() == "false" {
				key.SetValue("0")
			}
		}
	}
	if dir := filepath.Dir(file); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "failed to create config directory")
		}
	}
	return c.IniFile.SaveTo(file)
}

func Clamp[T int | int32 | int64](x, lo, hi T) T {
	return max(lo, min(x, hi))
}

func ClampF(x, lo, hi float32) float32 {
	return max(lo, min(x, hi))
}
