package telemetry

// Collector accumulates events within time windows and produces WindowStats.
type Collector struct {
	windowDurationTicks int32
	dt                  float64

	// Current window tracking
	windowStartTick int32

	// Event counters for current window
	counts [len(eventNames)]int
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticksPerWindow := int32(windowDurationSec / dt)
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// Record counts one event in the current window.
func (c *Collector) Record(ev Event) {
	if int(ev.Type) < len(c.counts) {
		c.counts[ev.Type]++
	}
}

// RecordN counts n events of one type.
func (c *Collector) RecordN(t EventType, n int) {
	if int(t) < len(c.counts) {
		c.counts[t] += n
	}
}

// Count returns the current window's count for an event type.
func (c *Collector) Count(t EventType) int {
	if int(t) < len(c.counts) {
		return c.counts[t]
	}
	return 0
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Sample is the world state measured at the end of a window.
type Sample struct {
	Agents      int
	Inert       int
	Obstacles   int
	SensorSlots int       // total sensors across agents
	Distances   []float64 // detected readings only
	Speeds      []float64 // agent speeds
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int32, s Sample) WindowStats {
	var detectionRate float64
	if s.SensorSlots > 0 {
		detectionRate = float64(len(s.Distances)) / float64(s.SensorSlots)
	}
	dist := ComputeDistribution(s.Distances)
	speed := ComputeDistribution(s.Speeds)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		Agents:    s.Agents,
		Inert:     s.Inert,
		Obstacles: s.Obstacles,

		Contacts:   c.counts[EventContact],
		Bounces:    c.counts[EventBounce],
		Freezes:    c.counts[EventFreeze],
		Spawns:     c.counts[EventSpawn],
		Despawns:   c.counts[EventDespawn],
		OrphanEyes: c.counts[EventOrphanEye],

		DetectionRate: detectionRate,
		DistMean:      dist.Mean,
		DistStd:       dist.Std,
		DistP10:       dist.P10,
		DistP50:       dist.P50,
		DistP90:       dist.P90,

		SpeedMean: speed.Mean,
		SpeedMax:  speed.Max,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.counts = [len(eventNames)]int{}

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
