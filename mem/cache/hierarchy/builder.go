package hierarchy

import (
	"github.com/sarchlab/cachesim/mem/cache/geometry"
	"github.com/sarchlab/cachesim/mem/cache/internal/tagging"
	"github.com/sarchlab/cachesim/mem/cache/stats"
)

// A Builder can build cache hierarchies.
type Builder struct {
	geometry geometry.Geometry
	latency  stats.Latency
}

// MakeBuilder creates a builder with the default geometry and latencies.
func MakeBuilder() Builder {
	return Builder{
		geometry: geometry.Default(),
		latency:  stats.DefaultLatency(),
	}
}

// WithGeometry sets the shape of both levels. The geometry must have been
// validated.
func (b Builder) WithGeometry(g geometry.Geometry) Builder {
	b.geometry = g
	return b
}

// WithLatency sets the access time of each level.
func (b Builder) WithLatency(l stats.Latency) Builder {
	b.latency = l
	return b
}

// Build creates a hierarchy with all lines invalid and the clock at zero.
func (b Builder) Build(name string) *Hierarchy {
	h := &Hierarchy{
		name:         name,
		geometry:     b.geometry,
		l1:           tagging.NewDirectMappedArray(b.geometry.L1Lines()),
		l2:           tagging.NewTagArray(b.geometry.L2Sets(), b.geometry.L2Ways()),
		victimFinder: tagging.NewLRUVictimFinder(),
		stats:        stats.New(b.latency),
	}

	return h
}
