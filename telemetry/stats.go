package telemetry

import (
	"log/slog"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// World counts at window end
	Agents    int `csv:"agents"`
	Inert     int `csv:"inert"`
	Obstacles int `csv:"obstacles"`

	// Events during window
	Contacts   int `csv:"contacts"`
	Bounces    int `csv:"bounces"`
	Freezes    int `csv:"freezes"`
	Spawns     int `csv:"spawns"`
	Despawns   int `csv:"despawns"`
	OrphanEyes int `csv:"orphan_eyes"`

	// Sensor readings (sampled at window end)
	DetectionRate float64 `csv:"detection_rate"` // detected / total sensors
	DistMean      float64 `csv:"dist_mean"`
	DistStd       float64 `csv:"dist_std"`
	DistP10       float64 `csv:"dist_p10"`
	DistP50       float64 `csv:"dist_p50"`
	DistP90       float64 `csv:"dist_p90"`

	SpeedMean float64 `csv:"speed_mean"`
	SpeedMax  float64 `csv:"speed_max"`
}

// Distribution summarizes a sample.
type Distribution struct {
	Mean, Std     float64
	P10, P50, P90 float64
	Max           float64
}

// ComputeDistribution calculates mean, population std, empirical percentiles
// and max. Returns zeros for an empty sample.
func ComputeDistribution(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	mean, std := stat.PopMeanStdDev(sorted, nil)
	return Distribution{
		Mean: mean,
		Std:  std,
		P10:  stat.Quantile(0.10, stat.Empirical, sorted, nil),
		P50:  stat.Quantile(0.50, stat.Empirical, sorted, nil),
		P90:  stat.Quantile(0.90, stat.Empirical, sorted, nil),
		Max:  sorted[len(sorted)-1],
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("agents", s.Agents),
		slog.Int("inert", s.Inert),
		slog.Int("obstacles", s.Obstacles),
		slog.Int("contacts", s.Contacts),
		slog.Int("bounces", s.Bounces),
		slog.Int("freezes", s.Freezes),
		slog.Int("spawns", s.Spawns),
		slog.Int("despawns", s.Despawns),
		slog.Int("orphan_eyes", s.OrphanEyes),
		slog.Float64("detection_rate", s.DetectionRate),
		slog.Float64("dist_mean", s.DistMean),
		slog.Float64("dist_std", s.DistStd),
		slog.Float64("dist_p10", s.DistP10),
		slog.Float64("dist_p50", s.DistP50),
		slog.Float64("dist_p90", s.DistP90),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_max", s.SpeedMax),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats", "window", s)
}
