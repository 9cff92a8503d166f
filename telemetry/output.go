package telemetry

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/pupil/config"
)

// ReadoutRow is one sensor reading at one tick.
type ReadoutRow struct {
	Tick     int32   `csv:"tick"`
	Agent    uint32  `csv:"agent"`
	Sensor   int     `csv:"sensor"`
	Detected bool    `csv:"detected"`
	Distance float64 `csv:"distance"` // 0 when not detected
}

// RunMeta describes a run. Written once to run.yaml.
type RunMeta struct {
	RunID     string    `yaml:"run_id"`
	Seed      int64     `yaml:"seed"`
	Layout    string    `yaml:"layout"` // hex digest of the level layout
	StartedAt time.Time `yaml:"started_at"`
	Obstacles int       `yaml:"obstacles"`
	Agents    int       `yaml:"agents"`
	Sensors   int       `yaml:"sensors"`
}

// NewRunMeta builds run metadata for a configuration with a fresh run id.
func NewRunMeta(cfg *config.Config, seed int64) RunMeta {
	sensors := 0
	for _, a := range cfg.World.Agents {
		sensors += len(a.Sensors)
	}
	return RunMeta{
		RunID:     uuid.NewString(),
		Seed:      seed,
		Layout:    fmt.Sprintf("%016x", LayoutDigest(cfg)),
		StartedAt: time.Now().UTC(),
		Obstacles: len(cfg.World.Obstacles),
		Agents:    len(cfg.World.Agents),
		Sensors:   sensors,
	}
}

// LayoutDigest hashes the level geometry: bounds, obstacles, agent bodies and sensors.
// Two runs with equal digests started from the same scene.
func LayoutDigest(cfg *config.Config) uint64 {
	d := xxhash.New()
	var buf [8]byte
	put := func(vs ...float64) {
		for _, v := range vs {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			d.Write(buf[:])
		}
	}

	b := cfg.World.Bounds
	put(b.MinX, b.MinY, b.MaxX, b.MaxY)
	for _, o := range cfg.World.Obstacles {
		put(o.X, o.Y, o.W, o.H)
		if o.Hidden {
			d.Write([]byte{1})
		}
	}
	for _, a := range cfg.World.Agents {
		put(a.X, a.Y, a.W, a.H)
		d.WriteString(a.Controller)
		for _, s := range a.Sensors {
			put(s.X, s.Y, s.Length, s.Width, s.Angle)
		}
	}
	return d.Sum64()
}

// OutputManager handles structured run output with CSV logging.
type OutputManager struct {
	dir           string
	telemetryFile *os.File
	perfFile      *os.File
	readoutFile   *os.File // nil unless readouts are enabled

	telemetryHeaderWritten bool
	perfHeaderWritten      bool
	readoutHeaderWritten   bool
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string, readouts bool) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	f, err := os.Create(filepath.Join(dir, "telemetry.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating telemetry.csv: %w", err)
	}
	om.telemetryFile = f

	f, err = os.Create(filepath.Join(dir, "perf.csv"))
	if err != nil {
		om.Close()
		return nil, fmt.Errorf("creating perf.csv: %w", err)
	}
	om.perfFile = f

	if readouts {
		f, err = os.Create(filepath.Join(dir, "readouts.csv"))
		if err != nil {
			om.Close()
			return nil, fmt.Errorf("creating readouts.csv: %w", err)
		}
		om.readoutFile = f
	}

	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteRunMeta saves run metadata to run.yaml.
func (om *OutputManager) WriteRunMeta(meta RunMeta) error {
	if om == nil {
		return nil
	}
	data, err := yaml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshaling run meta: %w", err)
	}
	if err := os.WriteFile(filepath.Join(om.dir, "run.yaml"), data, 0644); err != nil {
		return fmt.Errorf("writing run.yaml: %w", err)
	}
	return nil
}

// appendCSV writes records, with a header row the first time.
func appendCSV[T any](f *os.File, headerWritten *bool, records []T) error {
	if !*headerWritten {
		if err := gocsv.Marshal(records, f); err != nil {
			return err
		}
		*headerWritten = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(records, f)
}

// WriteTelemetry writes a window stats record to telemetry.csv.
func (om *OutputManager) WriteTelemetry(stats WindowStats) error {
	if om == nil {
		return nil
	}
	if err := appendCSV(om.telemetryFile, &om.telemetryHeaderWritten, []WindowStats{stats}); err != nil {
		return fmt.Errorf("writing telemetry: %w", err)
	}
	return nil
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int32) error {
	if om == nil {
		return nil
	}
	if err := appendCSV(om.perfFile, &om.perfHeaderWritten, []PerfStatsCSV{stats.ToCSV(windowEnd)}); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// WriteReadouts appends sensor readings to readouts.csv.
// A no-op when readouts are disabled or rows is empty.
func (om *OutputManager) WriteReadouts(rows []ReadoutRow) error {
	if om == nil || om.readoutFile == nil || len(rows) == 0 {
		return nil
	}
	if err := appendCSV(om.readoutFile, &om.readoutHeaderWritten, rows); err != nil {
		return fmt.Errorf("writing readouts: %w", err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	for _, f := range []*os.File{om.telemetryFile, om.perfFile, om.readoutFile} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	om.telemetryFile, om.perfFile, om.readoutFile = nil, nil, nil
	return firstErr
}
