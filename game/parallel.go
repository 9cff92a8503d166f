package game

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"
	"golang.org/x/sync/errgroup"

	"github.com/pthm-cable/pupil/components"
	"github.com/pthm-cable/pupil/systems"
	"github.com/pthm-cable/pupil/telemetry"
)

// perceptionJob captures read-only state for one sensor.
type perceptionJob struct {
	Owner  ecs.Entity
	Index  int
	SeeBox components.SeeBox
	Origin r2.Vec
}

// workerScratch holds per-worker reusable buffers.
type workerScratch struct {
	candidates []int
	subset     []systems.ObstacleShape
}

// perceptionState holds buffers reused across ticks.
type perceptionState struct {
	jobs       []perceptionJob
	results    []components.Reading
	scratches  []workerScratch
	numWorkers int
}

func newPerceptionState(workers int) *perceptionState {
	workers = max(1, workers)
	return &perceptionState{
		numWorkers: workers,
		scratches:  make([]workerScratch, workers),
		jobs:       make([]perceptionJob, 0, 64),
		results:    make([]components.Reading, 0, 64),
	}
}

// updatePerception range-finds every sensor against this tick's obstacle
// snapshot.
func (g *Game) updatePerception() {
	p := g.perception

	// Phase A: mirror eyes to their owner's facing and build jobs (single-threaded)
	p.jobs = p.jobs[:0]
	orphans := 0

	query := g.eyeFilter.Query()
	for query.Next() {
		eye, sb := query.Get()
		if !g.ownerAlive(eye.Owner) {
			orphans++
			continue
		}
		sb.InvertX = g.facingMap.Get(eye.Owner).Dir == components.DirLeft
		p.jobs = append(p.jobs, perceptionJob{
			Owner:  eye.Owner,
			Index:  eye.Index,
			SeeBox: *sb,
			Origin: g.posMap.Get(eye.Owner).Vec(),
		})
	}
	if orphans > 0 {
		g.collector.RecordN(telemetry.EventOrphanEye, orphans)
	}

	n := len(p.jobs)
	if n == 0 {
		return
	}
	if cap(p.results) < n {
		p.results = make([]components.Reading, n)
	}
	p.results = p.results[:n]

	// Phase B: compute - single-threaded for small sensor counts
	if n < parallelThreshold || p.numWorkers == 1 {
		g.perceiveChunk(0, n, &p.scratches[0])
	} else {
		g.perceiveParallel(n)
	}

	// Phase C: write back (single-threaded)
	for i, job := range p.jobs {
		senses := g.sensesMap.Get(job.Owner)
		if job.Index < 0 || job.Index >= len(senses.Readings) {
			continue
		}
		senses.Readings[job.Index] = p.results[i]
	}
}

// perceiveParallel splits jobs into one contiguous chunk per worker.
// Each chunk writes only its own result slots.
func (g *Game) perceiveParallel(n int) {
	p := g.perception
	chunkSize := (n + p.numWorkers - 1) / p.numWorkers

	var eg errgroup.Group
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			break
		}
		scratch := &p.scratches[w]
		eg.Go(func() error {
			g.perceiveChunk(start, end, scratch)
			return nil
		})
	}
	_ = eg.Wait()
}

// perceiveChunk computes readings for jobs [i0, i1). Only the obstacles
// whose cells the full-length wedge touches are tested.
func (g *Game) perceiveChunk(i0, i1 int, scratch *workerScratch) {
	iterations := g.cfg.Perception.Iterations

	for i := i0; i < i1; i++ {
		job := &g.perception.jobs[i]

		scratch.candidates = g.grid.QueryInto(scratch.candidates[:0], systems.WedgeBox(job.SeeBox, job.Origin))
		scratch.subset = scratch.subset[:0]
		for _, idx := range scratch.candidates {
			scratch.subset = append(scratch.subset, g.obstacles[idx])
		}

		g.perception.results[i] = systems.ComputeReadingN(job.SeeBox, job.Origin, scratch.subset, iterations)
	}
}
