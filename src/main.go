package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"syscall"

	"github.com/pkg/errors"
	"github.com/pkg/profile"
)

var Version = "development"
var BuildTime = ""

const helpText = `Options (case sensitive):
-h -?                   Help
-config <file>          Loads <file> over the built-in defaults (save/config.ini)
-frames <num>           Simulates <num> frames, 0 with -realtime runs until interrupted
-script <file>          Drives the ship from the Lua script <file>
-dump <frame>           Writes the command stream of <frame> as JSON
-stats <file>           Appends run statistics to <file>
-seed <num>             World seed
-realtime               Paces frames to the configured framerate
-boxes                  Draws entity bounding boxes
-profile <cpu|mem>      Writes a profile to the working directory
-saveconfig             Writes the effective config back to the config file`

// Checks if error is not null, if there is an error it prints it and exits.
func chk(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}

func main() {
	flags, help := processCommandLine(os.Args[1:])
	if help {
		fmt.Println("Asteroids frame core command line options\n\n" + helpText)
		return
	}
	if _, ok := flags["-config"]; !ok {
		flags["-config"] = "save/config.ini"
	}

	cfg, err := loadConfig(flags["-config"])
	chk(err)
	chk(applyFlags(cfg, flags))
	if _, ok := flags["-saveconfig"]; ok {
		chk(cfg.Save(flags["-config"]))
	}

	switch flags["-profile"] {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	}

	log := newLogger(NewLogWriter(), cfg.LogLevel())
	log.Info("starting", "version", Version, "buildTime", BuildTime, "config", cfg.Def)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sys := newSystem(cfg, log)
	err = sys.init(nil)
	if err == nil {
		err = sys.run(ctx)
	}
	if serr := sys.shutdown(); err == nil {
		err = serr
	}
	chk(err)
}

// processCommandLine collects flags and their values. A flag not followed by
// a value is set to "true".
func processCommandLine(args []string) (flags map[string]string, help bool) {
	flags = make(map[string]string)
	boolFlags := map[string]bool{
		"-realtime":   true,
		"-boxes":      true,
		"-saveconfig": true,
	}
	key := ""
	r1 := regexp.MustCompile("^-[h%?]$")
	r2 := regexp.MustCompile("^-")
	for _, a := range args {
		_, err := strconv.ParseFloat(a, 64)
		isNumber := err == nil

		if key != "" && (isNumber || !r2.MatchString(a)) {
			flags[key] = a
			key = ""
		} else if r2.MatchString(a) {
			if r1.MatchString(a) {
				return flags, true
			}
			if boolFlags[a] {
				flags[a] = "true"
				key = ""
			} else {
				flags[a] = ""
				key = a
			}
		}
	}
	if key != "" {
		flags[key] = "true"
	}
	return flags, false
}

// applyFlags overrides config values with command line flags.
func applyFlags(cfg *Config, flags map[string]string) error {
	atoi := func(name string) (int, bool, error) {
		v, ok := flags[name]
		if !ok {
			return 0, false, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false, errors.Wrapf(err, "flag %s", name)
		}
		return n, true, nil
	}
	if n, ok, err := atoi("-frames"); err != nil {
		return err
	} else if ok {
		cfg.Frame.Frames = n
	}
	if n, ok, err := atoi("-dump"); err != nil {
		return err
	} else if ok {
		cfg.Debug.DumpFrame = n
	}
	if n, ok, err := atoi("-seed"); err != nil {
		return err
	} else if ok {
		cfg.World.Seed = int64(n)
	}
	if v, ok := flags["-script"]; ok {
		cfg.Debug.Script = v
	}
	if v, ok := flags["-stats"]; ok {
		cfg.Debug.Stats = v
	}
	if _, ok := flags["-realtime"]; ok {
		cfg.Frame.Realtime = true
	}
	if _, ok := flags["-boxes"]; ok {
		cfg.Debug.BoundingBoxes = true
	}
	switch flags["-profile"] {
	case "", "cpu", "mem":
	default:
		return errors.Errorf("unknown profile %q", flags["-profile"])
	}
	return cfg.normalize()
}
