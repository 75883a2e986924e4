// Package hierarchy simulates a strictly inclusive two-level cache: a
// direct-mapped L1 backed by a set-associative LRU L2. Only metadata is
// tracked.
package hierarchy

import (
	"errors"
	"fmt"

	"github.com/sarchlab/cachesim/mem/cache/geometry"
	"github.com/sarchlab/cachesim/mem/cache/internal/tagging"
	"github.com/sarchlab/cachesim/mem/cache/stats"
	"github.com/sarchlab/cachesim/sim/hooking"
)

// ErrClockOverflow is returned when the logical clock cannot advance any
// further. The hierarchy has no valid next state after it.
var ErrClockOverflow = errors.New("cache clock would overflow")

// ErrInclusionViolated is returned when an L1 block has no copy in L2.
var ErrInclusionViolated = errors.New("L1 block is not present in L2")

// HookPosAccess marks the completion of one access. The hook item is the
// AccessResult.
var HookPosAccess = &hooking.HookPos{Name: "CacheAccess"}

// AccessKind tells reads from writes.
type AccessKind int

// Kinds of access.
const (
	Read AccessKind = iota
	Write
)

func (k AccessKind) String() string {
	switch k {
	case Read:
		return "r"
	case Write:
		return "w"
	default:
		return fmt.Sprintf("AccessKind(%d)", int(k))
	}
}

// AccessResult describes what one access did to the hierarchy.
type AccessResult struct {
	Clock   uint64
	Kind    AccessKind
	Address uint64

	L1Hit bool
	L2Hit bool

	// L2Evicted is set when a valid L2 block was replaced. EvictedAddress is
	// the first address of that block.
	L2Evicted      bool
	EvictedAddress uint64
	L1Invalidated  bool
	WriteBack      bool
}

// Hierarchy owns both cache levels, the logical clock and the counters of a
// replay. It is not safe for concurrent use.
type Hierarchy struct {
	hooking.HookableBase

	name         string
	geometry     geometry.Geometry
	clock        uint64
	l1           *tagging.DirectMappedArray
	l2           tagging.TagArray
	victimFinder tagging.VictimFinder
	stats        *stats.Statistics
}

// Name returns the name of the hierarchy.
func (h *Hierarchy) Name() string {
	return h.name
}

// Geometry returns the shape of the hierarchy.
func (h *Hierarchy) Geometry() geometry.Geometry {
	return h.geometry
}

// Clock returns the number of accesses processed so far.
func (h *Hierarchy) Clock() uint64 {
	return h.clock
}

// Stats returns the live statistics.
func (h *Hierarchy) Stats() *stats.Statistics {
	return h.stats
}

// Finish derives the rates once no more accesses will happen.
func (h *Hierarchy) Finish() *stats.Statistics {
	h.stats.Finish()
	return h.stats
}

// LineState is a copy of the metadata of one cache line.
type LineState struct {
	Index        int    `json:"index"`
	Way          int    `json:"way"`
	Tag          uint64 `json:"tag"`
	Valid        bool   `json:"valid"`
	Dirty        bool   `json:"dirty"`
	LastAccess   uint64 `json:"last_access"`
	BlockAddress uint64 `json:"block_address"`
}

func lineState(b tagging.Block, l geometry.Level) LineState {
	return LineState{
		Index:        b.SetID,
		Way:          b.WayID,
		Tag:          b.Tag,
		Valid:        b.IsValid,
		Dirty:        b.IsDirty,
		LastAccess:   b.LastAccess,
		BlockAddress: geometry.BlockAddress(b.Tag, uint64(b.SetID), l),
	}
}

// L1Lines returns a copy of every L1 line.
func (h *Hierarchy) L1Lines() []LineState {
	lines := make([]LineState, 0, h.l1.NumLines())
	for _, b := range h.l1.Blocks() {
		lines = append(lines, lineState(b, h.geometry.L1()))
	}

	return lines
}

// L2Lines returns a copy of every L2 line, grouped by set.
func (h *Hierarchy) L2Lines() [][]LineState {
	sets := make([][]LineState, h.l2.NumSets())
	for i := range sets {
		for _, b := range h.l2.GetSet(i) {
			sets[i] = append(sets[i], lineState(b, h.geometry.L2()))
		}
	}

	return sets
}

// CheckInclusion verifies that every valid L1 block also lives in L2.
func (h *Hierarchy) CheckInclusion() error {
	for _, b := range h.l1.Blocks() {
		if !b.IsValid {
			continue
		}

		l2Tag, l2Set := h.geometry.L1ToL2(b.Tag, uint64(b.SetID))
		if _, found := h.l2.Lookup(int(l2Set), l2Tag); !found {
			return fmt.Errorf("%w: L1 line %d tag %#x",
				ErrInclusionViolated, b.SetID, b.Tag)
		}
	}

	return nil
}
