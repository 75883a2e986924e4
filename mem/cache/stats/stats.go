// Package stats accumulates the counters of a cache hierarchy replay and
// derives miss rates and average access times from them.
package stats

// Nominal per-level latencies.
const (
	DefaultL1AccessTime     uint64 = 2
	DefaultL2AccessTime     uint64 = 10
	DefaultMemoryAccessTime uint64 = 100
)

// Latency holds the fixed access time of each level of the hierarchy.
type Latency struct {
	L1     uint64 `yaml:"l1_access_time"`
	L2     uint64 `yaml:"l2_access_time"`
	Memory uint64 `yaml:"memory_access_time"`
}

// DefaultLatency returns the nominal latencies.
func DefaultLatency() Latency {
	return Latency{
		L1:     DefaultL1AccessTime,
		L2:     DefaultL2AccessTime,
		Memory: DefaultMemoryAccessTime,
	}
}

// Statistics are the counters of one replay. The raw counters are updated
// during the replay. The derived fields are only meaningful after Finish.
type Statistics struct {
	Accesses    uint64 `json:"accesses"`
	Reads       uint64 `json:"reads"`
	ReadMisses  uint64 `json:"read_misses"`
	Writes      uint64 `json:"writes"`
	WriteMisses uint64 `json:"write_misses"`
	Misses      uint64 `json:"misses"`
	WriteBacks  uint64 `json:"write_backs"`

	L1ReadMisses  uint64 `json:"l1_read_misses"`
	L1WriteMisses uint64 `json:"l1_write_misses"`
	L2ReadMisses  uint64 `json:"l2_read_misses"`
	L2WriteMisses uint64 `json:"l2_write_misses"`

	L1AccessTime     uint64 `json:"l1_access_time"`
	L2AccessTime     uint64 `json:"l2_access_time"`
	MemoryAccessTime uint64 `json:"memory_access_time"`

	L1MissRate float64 `json:"l1_miss_rate"`
	L2MissRate float64 `json:"l2_miss_rate"`
	MissRate   float64 `json:"miss_rate"`

	L2AvgAccessTime float64 `json:"l2_avg_access_time"`
	AvgAccessTime   float64 `json:"avg_access_time"`

	finished bool
}

// New creates empty statistics that will use the given latencies.
func New(latency Latency) *Statistics {
	return &Statistics{
		L1AccessTime:     latency.L1,
		L2AccessTime:     latency.L2,
		MemoryAccessTime: latency.Memory,
	}
}

// IsFinished tells whether the derived fields have been computed.
func (s *Statistics) IsFinished() bool {
	return s.finished
}

// L1Misses returns the number of accesses that missed in L1.
func (s *Statistics) L1Misses() uint64 {
	return s.L1ReadMisses + s.L1WriteMisses
}

// L2Misses returns the number of accesses that missed in both levels.
func (s *Statistics) L2Misses() uint64 {
	return s.L2ReadMisses + s.L2WriteMisses
}

// Finish computes the derived fields. It must be called once, after the last
// access. The L2 miss rate is relative to L2 traffic (every L1 miss), so it
// is NaN when no access missed L1.
func (s *Statistics) Finish() {
	s.ReadMisses = s.L1ReadMisses + s.L2ReadMisses
	s.WriteMisses = s.L1WriteMisses + s.L2WriteMisses
	s.Misses = s.ReadMisses + s.WriteMisses

	s.L1MissRate = float64(s.L1Misses()) / float64(s.Accesses)
	s.L2MissRate = float64(s.L2Misses()) / float64(s.L1Misses())
	s.MissRate = float64(s.Misses) / float64(s.Accesses)

	s.L2AvgAccessTime = float64(s.L2AccessTime) +
		s.L2MissRate*float64(s.MemoryAccessTime)
	s.AvgAccessTime = float64(s.L1AccessTime) +
		s.L1MissRate*s.L2AvgAccessTime

	s.finished = true
}
