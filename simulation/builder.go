package simulation

import (
	"sync"

	"github.com/rs/xid"

	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem/cache/geometry"
	"github.com/sarchlab/cachesim/mem/cache/hierarchy"
	"github.com/sarchlab/cachesim/mem/cache/profile"
	"github.com/sarchlab/cachesim/mem/cache/stats"
	"github.com/sarchlab/cachesim/mem/trace"
	"github.com/sarchlab/cachesim/monitoring"
	"github.com/sarchlab/cachesim/sim/hooking"
)

// Builder can be used to build a simulation.
type Builder struct {
	geometry     geometry.Geometry
	latency      stats.Latency
	blockProfile bool
	dataRecorder datarecording.DataRecorder
	accessLog    bool
	hooks        []hooking.Hook
	monitorOn    bool
	monitorPort  int
	openBrowser  bool
}

// MakeBuilder creates a new builder with the default geometry and latencies,
// and with recording and monitoring off.
func MakeBuilder() Builder {
	return Builder{
		geometry: geometry.Default(),
		latency:  stats.DefaultLatency(),
	}
}

// WithGeometry sets the shape of the caches. The geometry must be valid.
func (b Builder) WithGeometry(g geometry.Geometry) Builder {
	b.geometry = g
	return b
}

// WithLatency sets the access time of each level.
func (b Builder) WithLatency(l stats.Latency) Builder {
	b.latency = l
	return b
}

// WithBlockProfile makes the simulation count accesses per block.
func (b Builder) WithBlockProfile() Builder {
	b.blockProfile = true
	return b
}

// WithDataRecorder makes the simulation write its summary, and the block
// profile if enabled, to r when the replay finishes.
func (b Builder) WithDataRecorder(r datarecording.DataRecorder) Builder {
	b.dataRecorder = r
	return b
}

// WithAccessLog makes the simulation record every access to the data
// recorder.
func (b Builder) WithAccessLog() Builder {
	b.accessLog = true
	return b
}

// WithHook attaches an extra hook to the cache hierarchy.
func (b Builder) WithHook(h hooking.Hook) Builder {
	b.hooks = append(b.hooks[:len(b.hooks):len(b.hooks)], h)
	return b
}

// WithMonitoring starts a monitoring server for the simulation.
func (b Builder) WithMonitoring() Builder {
	b.monitorOn = true
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithBrowser opens the monitoring page in a browser.
func (b Builder) WithBrowser() Builder {
	b.openBrowser = true
	return b
}

func (b Builder) parametersMustBeValid() {
	err := b.geometry.Validate()
	if err != nil {
		panic(err)
	}

	if !b.monitorOn && (b.monitorPort != 0 || b.openBrowser) {
		panic("monitor options cannot be set when monitoring is disabled")
	}

	if b.accessLog && b.dataRecorder == nil {
		panic("access log requires a data recorder")
	}
}

// Build builds the simulation.
func (b Builder) Build() *Simulation {
	b.parametersMustBeValid()

	s := &Simulation{
		id: xid.New().String(),
	}
	s.resumed = sync.NewCond(&s.lock)

	s.hierarchy = hierarchy.MakeBuilder().
		WithGeometry(b.geometry).
		WithLatency(b.latency).
		Build("Cache")

	if b.blockProfile {
		s.blockProfile = profile.NewBlockProfile(b.geometry.BlockSize())
		s.hierarchy.AcceptHook(s.blockProfile)
	}

	if b.dataRecorder != nil {
		s.dataRecorder = b.dataRecorder
		s.createTables()

		if b.accessLog {
			s.hierarchy.AcceptHook(trace.NewDBTracer(s.dataRecorder, s.id))
		}
	}

	for _, h := range b.hooks {
		s.hierarchy.AcceptHook(h)
	}

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor()
		if b.monitorPort > 0 {
			s.monitor.WithPortNumber(b.monitorPort)
		}

		if b.openBrowser {
			s.monitor.WithBrowser()
		}

		s.monitor.RegisterSimulation(s)
		s.monitor.StartServer()
	}

	return s
}
