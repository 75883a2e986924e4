// Package simulation replays a memory trace through a cache hierarchy and
// feeds the outcome to the optional recorder, monitor and tracers.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem/cache/hierarchy"
	"github.com/sarchlab/cachesim/mem/cache/profile"
	"github.com/sarchlab/cachesim/mem/cache/stats"
	"github.com/sarchlab/cachesim/mem/trace"
	"github.com/sarchlab/cachesim/monitoring"
)

// ErrUnknownLevel is returned when asking for a cache level other than "l1"
// or "l2".
var ErrUnknownLevel = errors.New("unknown cache level")

// A Simulation owns one cache hierarchy and replays one trace through it.
// Simulations share no state with each other.
type Simulation struct {
	id string

	lock      sync.Mutex
	resumed   *sync.Cond
	paused    bool
	finished  bool
	hierarchy *hierarchy.Hierarchy

	blockProfile *profile.BlockProfile
	dataRecorder datarecording.DataRecorder
	monitor      *monitoring.Monitor
}

// ID returns the unique id of the run.
func (s *Simulation) ID() string {
	return s.id
}

// Hierarchy returns the simulated caches. It must not be used while Run is
// in progress.
func (s *Simulation) Hierarchy() *hierarchy.Hierarchy {
	return s.hierarchy
}

// BlockProfile returns the per-block counters, or nil if they are not
// collected.
func (s *Simulation) BlockProfile() *profile.BlockProfile {
	return s.blockProfile
}

// GetDataRecorder returns the data recorder used in the simulation.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetMonitor returns the monitor used in the simulation.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// Run replays the trace read from r. size is the number of bytes expected
// from r, used only for progress reporting; 0 means unknown. Run returns nil
// when r is exhausted, in which case the statistics are final. A clock
// overflow is returned wrapping hierarchy.ErrClockOverflow.
func (s *Simulation) Run(ctx context.Context, r io.Reader, size uint64) error {
	reader := trace.NewReader(r)

	stop := context.AfterFunc(ctx, func() {
		s.lock.Lock()
		defer s.lock.Unlock()

		s.resumed.Broadcast()
	})
	defer stop()

	progress := s.startProgress(size)
	defer progress.complete()

	for {
		access, ok, err := reader.Next()
		if err != nil {
			return fmt.Errorf("reading trace: %w", err)
		}

		if !ok {
			break
		}

		err = s.access(ctx, access)
		if err != nil {
			return err
		}

		progress.update(reader.BytesRead())
	}

	s.finish()

	return nil
}

func (s *Simulation) access(ctx context.Context, a trace.Access) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	for s.paused && ctx.Err() == nil {
		s.resumed.Wait()
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.hierarchy.Access(a.Kind, a.Address)
	if err != nil {
		return fmt.Errorf("access %s 0x%x after %d accesses: %w",
			a.Kind, a.Address, s.hierarchy.Clock(), err)
	}

	return nil
}

func (s *Simulation) finish() {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.finished {
		return
	}

	s.hierarchy.Finish()
	s.finished = true

	if s.dataRecorder != nil {
		s.record()
	}
}

// Pause stops the replay before its next access.
func (s *Simulation) Pause() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.paused = true
}

// Continue resumes a paused replay.
func (s *Simulation) Continue() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.paused = false
	s.resumed.Broadcast()
}

// IsPaused tells whether the replay is paused.
func (s *Simulation) IsPaused() bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.paused
}

// IsFinished tells whether the whole trace has been replayed.
func (s *Simulation) IsFinished() bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.finished
}

// Clock returns the number of accesses replayed so far.
func (s *Simulation) Clock() uint64 {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.hierarchy.Clock()
}

// Statistics returns a copy of the counters. If the replay is still going,
// the derived fields are computed as if it stopped now.
func (s *Simulation) Statistics() stats.Statistics {
	s.lock.Lock()
	defer s.lock.Unlock()

	snapshot := *s.hierarchy.Stats()
	if !snapshot.IsFinished() {
		snapshot.Finish()
	}

	return snapshot
}

// CacheView is a copy of the lines of one cache level. L1 lines are listed
// in Lines; L2 lines are grouped by set in Sets.
type CacheView struct {
	Level string
	Clock uint64
	Lines []hierarchy.LineState
	Sets  [][]hierarchy.LineState
}

// CacheLines returns a copy of the lines of "l1" or "l2".
func (s *Simulation) CacheLines(level string) (any, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	view := &CacheView{
		Level: level,
		Clock: s.hierarchy.Clock(),
	}

	switch level {
	case "l1":
		view.Lines = s.hierarchy.L1Lines()
	case "l2":
		view.Sets = s.hierarchy.L2Lines()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownLevel, level)
	}

	return view, nil
}

// Terminate flushes and closes the data recorder, if any.
func (s *Simulation) Terminate() error {
	if s.dataRecorder == nil {
		return nil
	}

	return s.dataRecorder.Close()
}

type progressTracker struct {
	monitor *monitoring.Monitor
	bar     *monitoring.ProgressBar
	last    uint64
}

func (s *Simulation) startProgress(size uint64) *progressTracker {
	p := &progressTracker{monitor: s.monitor}
	if s.monitor != nil {
		p.bar = s.monitor.CreateProgressBar("Trace "+s.id, size)
	}

	return p
}

func (p *progressTracker) update(bytesRead uint64) {
	if p.bar == nil {
		return
	}

	p.bar.IncrementFinished(bytesRead - p.last)
	p.last = bytesRead
}

func (p *progressTracker) complete() {
	if p.bar == nil {
		return
	}

	p.monitor.CompleteProgressBar(p.bar)
}
