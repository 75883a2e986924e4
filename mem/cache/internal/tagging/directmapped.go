package tagging

// DirectMappedArray is a cache level with exactly one line per index. The
// index computed from an address is the only candidate, so there is no
// victim selection.
type DirectMappedArray struct {
	blocks []Block
}

// NewDirectMappedArray creates an array with numLines invalid lines.
func NewDirectMappedArray(numLines int) *DirectMappedArray {
	a := &DirectMappedArray{}
	a.blocks = make([]Block, numLines)
	a.Reset()

	return a
}

// NumLines returns the number of lines.
func (a *DirectMappedArray) NumLines() int {
	return len(a.blocks)
}

// Block returns the line at index.
func (a *DirectMappedArray) Block(index uint64) Block {
	return a.blocks[index]
}

// Lookup returns the line at index if it is valid and holds the tag.
func (a *DirectMappedArray) Lookup(index, tag uint64) (Block, bool) {
	block := a.blocks[index]
	if block.IsValid && block.Tag == tag {
		return block, true
	}

	return Block{}, false
}

// Update overwrites the line at block.SetID.
func (a *DirectMappedArray) Update(block Block) {
	a.blocks[block.SetID] = block
}

// Blocks returns all lines. The returned slice aliases the array.
func (a *DirectMappedArray) Blocks() []Block {
	return a.blocks
}

// Reset invalidates every line.
func (a *DirectMappedArray) Reset() {
	for i := range a.blocks {
		a.blocks[i] = Block{SetID: i}
	}
}
