package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sugawarayuuta/sonnet"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// RunStats summarizes one run of the frame loop.
type RunStats struct {
	Started   string `json:"started"`   // RFC 3339 start time
	Frames    int    `json:"frames"`    // frames simulated
	Restarts  int    `json:"restarts"`  // rising edges of the restart input
	Seed      int64  `json:"seed"`      // world seed
	Asteroids int    `json:"asteroids"` // asteroids alive at the end
	ShipAlive bool   `json:"shipAlive"` // ship state at the end

	// Command stream
	Commands      int `json:"commands"`      // total commands pushed
	MaxCommands   int `json:"maxCommands"`   // most commands in one frame
	MaxStreamUsed int `json:"maxStreamUsed"` // most stream bytes in one frame

	// Renderer totals
	DrawCalls     int `json:"drawCalls"`
	Triangles     int `json:"triangles"`
	TextQuads     int `json:"textQuads"`
	SelectedDraws int `json:"selectedDraws"`

	// Zones at the end of the run
	EntityZoneUsed   int   `json:"entityZoneUsed"`
	MaxTransientUsed int   `json:"maxTransientUsed"`
	PlatformBuffers  int   `json:"platformBuffers"`
	PlatformBytes    int   `json:"platformBytes"`
	ElapsedMillis    int64 `json:"elapsedMillis"`
}

func newRunStats(seed int64, now time.Time) RunStats {
	return RunStats{Started: now.UTC().Format(time.RFC3339), Seed: seed}
}

// addFrame folds one frame's stream and renderer counts into the totals.
func (s *RunStats) addFrame(commands, streamUsed, transientUsed int, fs FrameStats) {
	s.Frames++
	s.Commands += commands
	s.MaxCommands = max(s.MaxCommands, commands)
	s.MaxStreamUsed = max(s.MaxStreamUsed, streamUsed)
	s.MaxTransientUsed = max(s.MaxTransientUsed, transientUsed)
	s.DrawCalls += fs.DrawCalls
	s.Triangles += fs.Triangles
	s.TextQuads += fs.TextQuads
	s.SelectedDraws += fs.Selected
}

// saveStats appends run to the runs array of the JSON file at path and
// bumps the file's totals. A missing or empty file starts a new document.
func saveStats(path string, run RunStats) error {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to read stats %q", path)
	}
	if len(data) == 0 || !gjson.ValidBytes(data) {
		data = []byte("{}")
	}

	buf, err := sonnet.Marshal(run)
	if err != nil {
		return errors.Wrap(err, "failed to encode run stats")
	}
	if !gjson.GetBytes(data, "runs").IsArray() {
		if data, err = sjson.SetRawBytes(data, "runs", []byte("[]")); err != nil {
			return err
		}
	}
	if data, err = sjson.SetRawBytes(data, "runs.-1", buf); err != nil {
		return errors.Wrap(err, "failed to append run")
	}
	totalFrames := gjson.GetBytes(data, "totalFrames").Int() + int64(run.Frames)
	if data, err = sjson.SetBytes(data, "totalFrames", totalFrames); err != nil {
		return err
	}
	totalRestarts := gjson.GetBytes(data, "totalRestarts").Int() + int64(run.Restarts)
	if data, err = sjson.SetBytes(data, "totalRestarts", totalRestarts); err != nil {
		return err
	}
	if best := gjson.GetBytes(data, "maxCommands"); !best.Exists() || best.Int() < int64(run.MaxCommands) {
		if data, err = sjson.SetBytes(data, "maxCommands", run.MaxCommands); err != nil {
			return err
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "failed to create stats directory")
		}
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "failed to write stats %q", path)
}

// loadRuns decodes every run recorded in a stats document.
func loadRuns(data []byte) ([]RunStats, error) {
	var runs []RunStats
	res := gjson.GetBytes(data, "runs")
	if !res.Exists() {
		return nil, nil
	}
	if err := sonnet.Unmarshal([]byte(res.Raw), &runs); err != nil {
		return nil, errors.Wrap(err, "failed to decode runs")
	}
	return runs, nil
}
