package geometry

// A Level is the addressing view of one cache level: capacity exponent C,
// block exponent B and associativity exponent S.
type Level struct {
	C uint64
	B uint64
	S uint64
}

// indexBits is the number of index bits the level keeps.
func (l Level) indexBits() uint64 {
	return l.C - l.B - l.S
}

// Tag returns the tag of addr under this level.
func (l Level) Tag(addr uint64) uint64 {
	return TagOf(addr, l.C, l.S)
}

// Index returns the index (line or set) of addr under this level.
func (l Level) Index(addr uint64) uint64 {
	return IndexOf(addr, l.C, l.B, l.S)
}

// TagOf returns the high-order bits of addr that identify a block.
func TagOf(addr, c, s uint64) uint64 {
	return addr >> (c - s)
}

// IndexOf returns the index bits of addr, with the block offset stripped.
func IndexOf(addr, c, b, s uint64) uint64 {
	return (addr >> b) & mask(c-b-s)
}

// Translate rebuilds the block address implied by (tag, index) under the
// from level and splits it again under the to level. The block offset is
// never part of the rebuilt value, so both levels must share B.
func Translate(tag, index uint64, from, to Level) (uint64, uint64) {
	blockAddr := (tag << from.indexBits()) | index

	return blockAddr >> to.indexBits(), blockAddr & mask(to.indexBits())
}

// BlockAddress returns the first address of the block identified by (tag,
// index) under level l.
func BlockAddress(tag, index uint64, l Level) uint64 {
	return ((tag << l.indexBits()) | index) << l.B
}

func mask(bits uint64) uint64 {
	return (uint64(1) << bits) - 1
}
