package simulation

import (
	"fmt"

	"github.com/sarchlab/cachesim/mem/cache/profile"
)

// Tables written when recording is enabled.
const (
	RunSummaryTableName   = "run_summary"
	BlockProfileTableName = "block_profile"
)

// RunSummary is the row written for each finished replay.
type RunSummary struct {
	RunID string
	Name  string

	C1 uint64
	C2 uint64
	B  uint64
	S  uint64

	Accesses      uint64
	Reads         uint64
	ReadMisses    uint64
	Writes        uint64
	WriteMisses   uint64
	Misses        uint64
	WriteBacks    uint64
	L1ReadMisses  uint64
	L1WriteMisses uint64
	L2ReadMisses  uint64
	L2WriteMisses uint64

	L1AccessTime     uint64
	L2AccessTime     uint64
	MemoryAccessTime uint64

	L1MissRate      float64
	L2MissRate      float64
	MissRate        float64
	L2AvgAccessTime float64
	AvgAccessTime   float64
}

// BlockEntry is one row of the block profile. Addresses are hex text since
// SQLite integers are signed.
type BlockEntry struct {
	RunID      string
	Address    string
	Accesses   uint64
	Reads      uint64
	Writes     uint64
	L1Misses   uint64
	L2Misses   uint64
	WriteBacks uint64
}

func (s *Simulation) createTables() {
	s.dataRecorder.CreateTable(RunSummaryTableName, RunSummary{})

	if s.blockProfile != nil {
		s.dataRecorder.CreateTable(BlockProfileTableName, BlockEntry{})
	}
}

func (s *Simulation) summary() RunSummary {
	g := s.hierarchy.Geometry()
	st := s.hierarchy.Stats()

	return RunSummary{
		RunID:            s.id,
		Name:             s.hierarchy.Name(),
		C1:               g.C1,
		C2:               g.C2,
		B:                g.B,
		S:                g.S,
		Accesses:         st.Accesses,
		Reads:            st.Reads,
		ReadMisses:       st.ReadMisses,
		Writes:           st.Writes,
		WriteMisses:      st.WriteMisses,
		Misses:           st.Misses,
		WriteBacks:       st.WriteBacks,
		L1ReadMisses:     st.L1ReadMisses,
		L1WriteMisses:    st.L1WriteMisses,
		L2ReadMisses:     st.L2ReadMisses,
		L2WriteMisses:    st.L2WriteMisses,
		L1AccessTime:     st.L1AccessTime,
		L2AccessTime:     st.L2AccessTime,
		MemoryAccessTime: st.MemoryAccessTime,
		L1MissRate:       st.L1MissRate,
		L2MissRate:       st.L2MissRate,
		MissRate:         st.MissRate,
		L2AvgAccessTime:  st.L2AvgAccessTime,
		AvgAccessTime:    st.AvgAccessTime,
	}
}

func (s *Simulation) record() {
	s.dataRecorder.InsertData(RunSummaryTableName, s.summary())

	if s.blockProfile != nil {
		s.blockProfile.Ascend(func(r profile.BlockRecord) bool {
			s.dataRecorder.InsertData(BlockProfileTableName, BlockEntry{
				RunID:      s.id,
				Address:    fmt.Sprintf("0x%x", r.Address),
				Accesses:   r.Accesses,
				Reads:      r.Reads,
				Writes:     r.Writes,
				L1Misses:   r.L1Misses,
				L2Misses:   r.L2Misses,
				WriteBacks: r.WriteBacks,
			})

			return true
		})
	}

	s.dataRecorder.Flush()
}
