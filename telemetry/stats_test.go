package telemetry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeDistribution(t *testing.T) {
	values := []float64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}
	d := ComputeDistribution(values)

	assert.InDelta(t, 5.5, d.Mean, 1e-9)
	assert.InDelta(t, math.Sqrt(8.25), d.Std, 1e-9)
	assert.Equal(t, 1.0, d.P10)
	assert.Equal(t, 5.0, d.P50)
	assert.Equal(t, 9.0, d.P90)
	assert.Equal(t, 10.0, d.Max)
	assert.Equal(t, 10.0, values[0], "input is not reordered")
}

func TestComputeDistributionEmpty(t *testing.T) {
	assert.Equal(t, Distribution{}, ComputeDistribution(nil))
}

func TestComputeDistributionSingle(t *testing.T) {
	d := ComputeDistribution([]float64{0.4})
	assert.Equal(t, 0.4, d.Mean)
	assert.Equal(t, 0.0, d.Std)
	assert.Equal(t, 0.4, d.P10)
	assert.Equal(t, 0.4, d.P90)
}

func TestCollectorFlush(t *testing.T) {
	c := NewCollector(1.0, 0.1)
	assert.Equal(t, int32(10), c.WindowDurationTicks())
	assert.False(t, c.ShouldFlush(9))
	assert.True(t, c.ShouldFlush(10))

	c.Record(Event{Type: EventContact})
	c.Record(Event{Type: EventContact})
	c.Record(Event{Type: EventBounce})
	c.RecordN(EventSpawn, 3)
	c.Record(Event{Type: EventFreeze})
	assert.Equal(t, 2, c.Count(EventContact))

	stats := c.Flush(10, Sample{
		Agents:      3,
		Inert:       1,
		Obstacles:   4,
		SensorSlots: 4,
		Distances:   []float64{0.25, 0.75},
		Speeds:      []float64{0, 100, 200},
	})

	assert.Equal(t, int32(0), stats.WindowStartTick)
	assert.Equal(t, int32(10), stats.WindowEndTick)
	assert.InDelta(t, 1.0, stats.SimTimeSec, 1e-9)
	assert.Equal(t, 2, stats.Contacts)
	assert.Equal(t, 1, stats.Bounces)
	assert.Equal(t, 3, stats.Spawns)
	assert.Equal(t, 1, stats.Freezes)
	assert.Equal(t, 0.5, stats.DetectionRate)
	assert.InDelta(t, 0.5, stats.DistMean, 1e-9)
	assert.InDelta(t, 100, stats.SpeedMean, 1e-9)
	assert.Equal(t, 200.0, stats.SpeedMax)

	// Counters reset and the next window starts where this one ended.
	next := c.Flush(20, Sample{})
	assert.Equal(t, int32(10), next.WindowStartTick)
	assert.Zero(t, next.Contacts)
	assert.Zero(t, next.DetectionRate)
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "orphan_eye", EventOrphanEye.String())
	assert.Equal(t, "unknown", EventType(200).String())
}
