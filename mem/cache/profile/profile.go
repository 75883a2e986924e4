// Package profile collects per-block access counts from a cache hierarchy.
package profile

import (
	"sort"

	"github.com/google/btree"

	"github.com/sarchlab/cachesim/mem/cache/hierarchy"
	"github.com/sarchlab/cachesim/sim/hooking"
)

// BlockRecord is the access summary of one block.
type BlockRecord struct {
	Address    uint64
	Accesses   uint64
	Reads      uint64
	Writes     uint64
	L1Misses   uint64
	L2Misses   uint64
	WriteBacks uint64
}

func (b *BlockRecord) Less(than btree.Item) bool {
	return b.Address < than.(*BlockRecord).Address
}

// A BlockProfile is a hook that counts the accesses to every block, ordered
// by block address.
type BlockProfile struct {
	blockSize uint64
	tree      *btree.BTree
}

// NewBlockProfile creates an empty profile for blocks of the given size.
func NewBlockProfile(blockSize uint64) *BlockProfile {
	return &BlockProfile{
		blockSize: blockSize,
		tree:      btree.New(2),
	}
}

// Func records one access.
func (p *BlockProfile) Func(ctx hooking.HookCtx) {
	if ctx.Pos != hierarchy.HookPosAccess {
		return
	}

	result, ok := ctx.Item.(hierarchy.AccessResult)
	if !ok {
		return
	}

	p.Record(result)
}

// Record adds one access result to the profile.
func (p *BlockProfile) Record(result hierarchy.AccessResult) {
	rec := p.getOrCreate(result.Address &^ (p.blockSize - 1))

	rec.Accesses++
	switch result.Kind {
	case hierarchy.Read:
		rec.Reads++
	case hierarchy.Write:
		rec.Writes++
	}

	if !result.L1Hit {
		rec.L1Misses++
		if !result.L2Hit {
			rec.L2Misses++
		}
	}

	if result.WriteBack {
		p.getOrCreate(result.EvictedAddress).WriteBacks++
	}
}

func (p *BlockProfile) getOrCreate(addr uint64) *BlockRecord {
	key := &BlockRecord{Address: addr}

	item := p.tree.Get(key)
	if item != nil {
		return item.(*BlockRecord)
	}

	p.tree.ReplaceOrInsert(key)

	return key
}

// Len returns the number of distinct blocks seen.
func (p *BlockProfile) Len() int {
	return p.tree.Len()
}

// Get returns the record of the block containing addr.
func (p *BlockProfile) Get(addr uint64) (BlockRecord, bool) {
	item := p.tree.Get(&BlockRecord{Address: addr &^ (p.blockSize - 1)})
	if item == nil {
		return BlockRecord{}, false
	}

	return *item.(*BlockRecord), true
}

// Ascend visits the records in address order until f returns false.
func (p *BlockProfile) Ascend(f func(BlockRecord) bool) {
	p.tree.Ascend(func(i btree.Item) bool {
		return f(*i.(*BlockRecord))
	})
}

// Hottest returns up to n records with the most accesses. Ties go to the
// lower address.
func (p *BlockProfile) Hottest(n int) []BlockRecord {
	records := make([]BlockRecord, 0, p.tree.Len())
	p.Ascend(func(r BlockRecord) bool {
		records = append(records, r)
		return true
	})

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Accesses > records[j].Accesses
	})

	if n < len(records) {
		records = records[:n]
	}

	return records
}
