package hierarchy

import (
	"fmt"
	"math"

	"github.com/sarchlab/cachesim/mem/cache/geometry"
	"github.com/sarchlab/cachesim/mem/cache/internal/tagging"
	"github.com/sarchlab/cachesim/sim/hooking"
)

// Access simulates one memory access. On ErrClockOverflow nothing has been
// changed and no further access can succeed.
func (h *Hierarchy) Access(
	kind AccessKind,
	address uint64,
) (AccessResult, error) {
	if h.clock == math.MaxUint64 {
		return AccessResult{}, ErrClockOverflow
	}

	h.clock++
	h.countAccess(kind)

	result := AccessResult{
		Clock:   h.clock,
		Kind:    kind,
		Address: address,
	}

	err := h.lookup(&result)
	if err != nil {
		return result, err
	}

	if h.NumHooks() > 0 {
		h.InvokeHook(hooking.HookCtx{
			Domain: h,
			Pos:    HookPosAccess,
			Item:   result,
		})
	}

	return result, nil
}

func (h *Hierarchy) lookup(result *AccessResult) error {
	l1 := h.geometry.L1()
	l1Tag := l1.Tag(result.Address)
	l1Index := l1.Index(result.Address)

	if block, hit := h.l1.Lookup(l1Index, l1Tag); hit {
		result.L1Hit = true
		return h.handleL1Hit(block, result.Kind)
	}

	h.countL1Miss(result.Kind)

	l2Tag, l2Set := h.geometry.L1ToL2(l1Tag, l1Index)
	if block, hit := h.l2.Lookup(int(l2Set), l2Tag); hit {
		result.L2Hit = true
		h.l2.Visit(block, h.clock)
		h.fillL1(l1Index, l1Tag, result.Kind == Write)

		return nil
	}

	h.countL2Miss(result.Kind)
	h.fetchFromMemory(result, l1Tag, l1Index, l2Tag, l2Set)

	return nil
}

// handleL1Hit touches the L1 line and the L2 line backing it. The L2 dirty
// bit is left alone; it only learns about the write when the L1 line leaves.
func (h *Hierarchy) handleL1Hit(block tagging.Block, kind AccessKind) error {
	block.LastAccess = h.clock
	if kind == Write {
		block.IsDirty = true
	}
	h.l1.Update(block)

	l2Tag, l2Set := h.geometry.L1ToL2(block.Tag, uint64(block.SetID))

	l2Block, found := h.l2.Lookup(int(l2Set), l2Tag)
	if !found {
		return fmt.Errorf("%w: L1 line %d tag %#x",
			ErrInclusionViolated, block.SetID, block.Tag)
	}

	h.l2.Visit(l2Block, h.clock)

	return nil
}

// fetchFromMemory installs the block in L2, evicting the LRU way if needed,
// and then in L1. The write, if any, is recorded on the L2 line only.
func (h *Hierarchy) fetchFromMemory(
	result *AccessResult,
	l1Tag, l1Index uint64,
	l2Tag, l2Set uint64,
) {
	victim := h.victimFinder.FindVictim(h.l2, int(l2Set))
	if victim.IsValid {
		h.evictL2Block(victim, result)
	}

	victim.Tag = l2Tag
	victim.IsValid = true
	victim.IsDirty = result.Kind == Write
	victim.LastAccess = h.clock
	h.l2.Update(victim)

	h.fillL1(l1Index, l1Tag, false)
}

// evictL2Block keeps inclusion by dropping the L1 copy of the victim and
// counts a write-back if either copy is dirty.
func (h *Hierarchy) evictL2Block(victim tagging.Block, result *AccessResult) {
	result.L2Evicted = true
	result.EvictedAddress = geometry.BlockAddress(
		victim.Tag, uint64(victim.SetID), h.geometry.L2())

	l1Tag, l1Index := h.geometry.L2ToL1(victim.Tag, uint64(victim.SetID))

	l1Block, found := h.l1.Lookup(l1Index, l1Tag)
	if found {
		l1Block.IsValid = false
		h.l1.Update(l1Block)
		result.L1Invalidated = true
	}

	if victim.IsDirty || (found && l1Block.IsDirty) {
		result.WriteBack = true
		h.stats.WriteBacks++
	}
}

// fillL1 installs a block at an L1 index. A valid dirty block that is
// displaced passes its dirtiness to its L2 copy first.
func (h *Hierarchy) fillL1(index, tag uint64, dirty bool) {
	outgoing := h.l1.Block(index)

	if outgoing.IsValid && outgoing.IsDirty {
		l2Tag, l2Set := h.geometry.L1ToL2(outgoing.Tag, index)
		if l2Block, found := h.l2.Lookup(int(l2Set), l2Tag); found {
			l2Block.IsDirty = true
			h.l2.Update(l2Block)
		}
	}

	h.l1.Update(tagging.Block{
		Tag:        tag,
		SetID:      int(index),
		IsValid:    true,
		IsDirty:    dirty,
		LastAccess: h.clock,
	})
}

func (h *Hierarchy) countAccess(kind AccessKind) {
	h.stats.Accesses++

	switch kind {
	case Read:
		h.stats.Reads++
	case Write:
		h.stats.Writes++
	}
}

func (h *Hierarchy) countL1Miss(kind AccessKind) {
	switch kind {
	case Read:
		h.stats.L1ReadMisses++
	case Write:
		h.stats.L1WriteMisses++
	}
}

func (h *Hierarchy) countL2Miss(kind AccessKind) {
	switch kind {
	case Read:
		h.stats.L2ReadMisses++
	case Write:
		h.stats.L2WriteMisses++
	}
}
