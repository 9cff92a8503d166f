package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/pupil/config"
)

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("", true)
	require.NoError(t, err)
	assert.Nil(t, om)

	// Every method is safe on a nil manager.
	assert.NoError(t, om.WriteTelemetry(WindowStats{}))
	assert.NoError(t, om.WritePerf(PerfStats{}, 0))
	assert.NoError(t, om.WriteReadouts([]ReadoutRow{{Tick: 1}}))
	assert.NoError(t, om.WriteConfig(config.Default()))
	assert.NoError(t, om.WriteRunMeta(RunMeta{}))
	assert.Empty(t, om.Dir())
	assert.NoError(t, om.Close())
}

func TestOutputManagerWritesCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir, true)
	require.NoError(t, err)

	require.NoError(t, om.WriteTelemetry(WindowStats{WindowEndTick: 600, Agents: 2}))
	require.NoError(t, om.WriteTelemetry(WindowStats{WindowEndTick: 1200, Agents: 1}))
	require.NoError(t, om.WriteReadouts([]ReadoutRow{
		{Tick: 5, Agent: 1, Sensor: 0, Detected: true, Distance: 0.5},
		{Tick: 5, Agent: 1, Sensor: 1},
	}))
	require.NoError(t, om.WriteReadouts(nil))
	require.NoError(t, om.WritePerf(PerfStats{}, 600))
	require.NoError(t, om.Close())

	data, err := os.ReadFile(filepath.Join(dir, "telemetry.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3, "one header and two rows")
	assert.True(t, strings.HasPrefix(lines[0], "window_end,sim_time,agents"))

	var rows []ReadoutRow
	f, err := os.Open(filepath.Join(dir, "readouts.csv"))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, gocsv.UnmarshalFile(f, &rows))
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Detected)
	assert.Equal(t, 0.5, rows[0].Distance)
	assert.False(t, rows[1].Detected)

	assert.FileExists(t, filepath.Join(dir, "perf.csv"))
}

func TestOutputManagerReadoutsOptional(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir, false)
	require.NoError(t, err)
	defer om.Close()

	assert.NoError(t, om.WriteReadouts([]ReadoutRow{{Tick: 1}}))
	assert.NoFileExists(t, filepath.Join(dir, "readouts.csv"))
}

func TestRunMeta(t *testing.T) {
	cfg := config.Default()
	meta := NewRunMeta(cfg, 7)

	_, err := uuid.Parse(meta.RunID)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), meta.Seed)
	assert.Len(t, meta.Layout, 16)
	assert.Equal(t, len(cfg.World.Obstacles), meta.Obstacles)
	assert.Equal(t, len(cfg.World.Agents), meta.Agents)
	assert.NotEqual(t, meta.RunID, NewRunMeta(cfg, 7).RunID)

	dir := t.TempDir()
	om, err := NewOutputManager(dir, false)
	require.NoError(t, err)
	defer om.Close()
	require.NoError(t, om.WriteRunMeta(meta))

	data, err := os.ReadFile(filepath.Join(dir, "run.yaml"))
	require.NoError(t, err)
	var loaded RunMeta
	require.NoError(t, yaml.Unmarshal(data, &loaded))
	assert.Equal(t, meta.RunID, loaded.RunID)
	assert.Equal(t, meta.Layout, loaded.Layout)
}

func TestLayoutDigest(t *testing.T) {
	a := config.Default()
	b := config.Default()
	assert.Equal(t, LayoutDigest(a), LayoutDigest(b))

	b.World.Obstacles[0].X += 1
	assert.NotEqual(t, LayoutDigest(a), LayoutDigest(b))

	c := config.Default()
	c.World.Agents[0].Controller = "none"
	assert.NotEqual(t, LayoutDigest(a), LayoutDigest(c))

	// Physics tuning is not part of the layout.
	d := config.Default()
	d.Physics.Gravity = 1
	assert.Equal(t, LayoutDigest(a), LayoutDigest(d))
}
