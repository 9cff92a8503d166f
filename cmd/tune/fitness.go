package main

import (
	"fmt"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pthm-cable/pupil/config"
	"github.com/pthm-cable/pupil/game"
	"github.com/pthm-cable/pupil/telemetry"
)

// warmupWindows are skipped when averaging speed; agents start at rest.
const warmupWindows = 1

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params      *ParamVector
	maxTicks    int32
	seeds       []int64
	baseConfig  *config.Config
	statsWindow float64

	mu          sync.Mutex
	lastSpeed   float64
	lastSurvive float64
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int32, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		seeds:       seeds,
		baseConfig:  baseCfg,
		statsWindow: 2.0,
	}
}

// Last returns mean speed and surviving fraction from the most recent Evaluate.
func (fe *FitnessEvaluator) Last() (speed, survive float64) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastSpeed, fe.lastSurvive
}

// runResult holds the results from a single simulation run.
type runResult struct {
	windows []telemetry.WindowStats
	agents  int
	inert   int
}

// Evaluate computes fitness for a raw parameter vector (lower = better).
// A run that fails to start scores +Inf.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.configFor(x)

	results := make([]*runResult, len(fe.seeds))
	var eg errgroup.Group
	for i, seed := range fe.seeds {
		eg.Go(func() error {
			r, err := fe.runSimulation(cfg, seed)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return math.Inf(1)
	}

	var total, speed, survive float64
	for _, r := range results {
		total += computeFitness(r)
		speed += meanSpeed(r.windows)
		survive += survivingFraction(r)
	}
	n := float64(len(results))

	fe.mu.Lock()
	fe.lastSpeed = speed / n
	fe.lastSurvive = survive / n
	fe.mu.Unlock()

	return total / n
}

// configFor copies the base config and applies x. Level slices are shared;
// the game only reads them.
func (fe *FitnessEvaluator) configFor(x []float64) *config.Config {
	cfg := *fe.baseConfig
	fe.params.ApplyToConfig(&cfg, x)
	// Seeds already run concurrently.
	cfg.Perception.Workers = 1
	cfg.Stream.Addr = ""
	return &cfg
}

// runSimulation executes a single headless run for maxTicks.
func (fe *FitnessEvaluator) runSimulation(cfg *config.Config, seed int64) (*runResult, error) {
	g, err := game.NewGameWithOptions(game.Options{
		Config:         cfg,
		Seed:           seed,
		Headless:       true,
		StatsWindowSec: fe.statsWindow,
		StepsPerUpdate: 1,
	})
	if err != nil {
		return nil, err
	}
	defer g.Unload()

	result := &runResult{}
	g.SetStatsCallback(func(s telemetry.WindowStats) {
		result.windows = append(result.windows, s)
	})

	for g.Tick() < fe.maxTicks {
		g.UpdateHeadless()
	}

	for _, r := range g.Readouts() {
		result.agents++
		if r.Inert {
			result.inert++
		}
	}
	return result, nil
}

// computeFitness rewards fast agents and punishes ones that leave the
// world: -(mean speed × surviving fraction).
func computeFitness(r *runResult) float64 {
	return -meanSpeed(r.windows) * survivingFraction(r)
}

func meanSpeed(windows []telemetry.WindowStats) float64 {
	if len(windows) <= warmupWindows {
		return 0
	}
	var sum float64
	for _, w := range windows[warmupWindows:] {
		sum += w.SpeedMean
	}
	return sum / float64(len(windows)-warmupWindows)
}

func survivingFraction(r *runResult) float64 {
	if r.agents == 0 {
		return 0
	}
	return float64(r.agents-r.inert) / float64(r.agents)
}
