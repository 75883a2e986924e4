package stats

import (
	"fmt"
	"io"

	"github.com/sarchlab/cachesim/mem/cache/geometry"
)

// An Entry is one named line of the report.
type Entry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Entries lists every counter in report order.
func (s *Statistics) Entries() []Entry {
	u := func(name string, v uint64) Entry {
		return Entry{Name: name, Value: fmt.Sprintf("%d", v)}
	}
	f := func(name string, v float64) Entry {
		return Entry{Name: name, Value: fmt.Sprintf("%f", v)}
	}

	return []Entry{
		u("Accesses", s.Accesses),
		u("Reads", s.Reads),
		u("Read misses", s.ReadMisses),
		u("Writes", s.Writes),
		u("Write misses", s.WriteMisses),
		u("Misses", s.Misses),
		u("Write backs", s.WriteBacks),
		u("L1 read misses", s.L1ReadMisses),
		u("L1 write misses", s.L1WriteMisses),
		u("L2 read misses", s.L2ReadMisses),
		u("L2 write misses", s.L2WriteMisses),
		u("L1 access time", s.L1AccessTime),
		u("L2 access time", s.L2AccessTime),
		u("Memory access time", s.MemoryAccessTime),
		f("L1 miss rate", s.L1MissRate),
		f("L2 miss rate", s.L2MissRate),
		f("Miss rate", s.MissRate),
		f("L2 average access time", s.L2AvgAccessTime),
		f("Average access time", s.AvgAccessTime),
	}
}

// WriteSettings prints the geometry, one exponent per line.
func WriteSettings(w io.Writer, g geometry.Geometry) error {
	_, err := fmt.Fprintf(w, "C1: %d\nC2: %d\nB: %d\nS: %d\n",
		g.C1, g.C2, g.B, g.S)

	return err
}

// WriteStatistics prints every counter as "Name: value", one per line.
func WriteStatistics(w io.Writer, s *Statistics) error {
	for _, e := range s.Entries() {
		_, err := fmt.Fprintf(w, "%s: %s\n", e.Name, e.Value)
		if err != nil {
			return err
		}
	}

	return nil
}
