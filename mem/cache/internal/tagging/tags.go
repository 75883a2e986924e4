// Package tagging holds the metadata arrays of the cache levels.
package tagging

// A Block of a cache is the metadata associated with one cache line.
type Block struct {
	Tag        uint64
	SetID      int
	WayID      int
	IsValid    bool
	IsDirty    bool
	LastAccess uint64
}

// TagArray is a set-associative array of blocks.
type TagArray interface {
	Lookup(setID int, tag uint64) (Block, bool)
	Update(block Block)
	Visit(block Block, now uint64)
	GetSet(setID int) []Block
	NumSets() int
	NumWays() int
	Reset()
}

// NewTagArray creates a TagArray with numSets sets of numWays ways each.
func NewTagArray(numSets, numWays int) TagArray {
	t := &tagArrayImpl{
		numSets: numSets,
		numWays: numWays,
	}

	t.Reset()

	return t
}

// tagArrayImpl stores all the blocks contiguously, set-major.
type tagArrayImpl struct {
	numSets int
	numWays int
	blocks  []Block
}

func (d *tagArrayImpl) NumSets() int {
	return d.numSets
}

func (d *tagArrayImpl) NumWays() int {
	return d.numWays
}

// GetSet returns the ways of a set. The returned slice aliases the array.
func (d *tagArrayImpl) GetSet(setID int) []Block {
	start := setID * d.numWays
	return d.blocks[start : start+d.numWays]
}

// Lookup finds the valid block in the set that carries the tag.
func (d *tagArrayImpl) Lookup(setID int, tag uint64) (Block, bool) {
	for _, block := range d.GetSet(setID) {
		if block.IsValid && block.Tag == tag {
			return block, true
		}
	}

	return Block{}, false
}

// Update writes the block back to the position named by its SetID and WayID.
func (d *tagArrayImpl) Update(block Block) {
	d.blocks[block.SetID*d.numWays+block.WayID] = block
}

// Visit refreshes the recency of a block.
func (d *tagArrayImpl) Visit(block Block, now uint64) {
	d.blocks[block.SetID*d.numWays+block.WayID].LastAccess = now
}

// Reset will mark all the blocks in the array invalid
func (d *tagArrayImpl) Reset() {
	d.blocks = make([]Block, d.numSets*d.numWays)
	for i := 0; i < d.numSets; i++ {
		for j := 0; j < d.numWays; j++ {
			d.blocks[i*d.numWays+j] = Block{
				SetID: i,
				WayID: j,
			}
		}
	}
}
