package tagging

// A VictimFinder decides which block of a set should be evicted.
type VictimFinder interface {
	FindVictim(tags TagArray, setID int) Block
}

// LRUVictimFinder evicts the least recently used block.
type LRUVictimFinder struct {
}

// NewLRUVictimFinder returns a newly constructed lru evictor
func NewLRUVictimFinder() *LRUVictimFinder {
	e := new(LRUVictimFinder)
	return e
}

// FindVictim returns the first invalid block of the set if there is one.
// Otherwise, it returns the block with the oldest access time, taking the
// first one in way order on ties.
func (e *LRUVictimFinder) FindVictim(tags TagArray, setID int) Block {
	set := tags.GetSet(setID)
	victim := set[0]

	for _, block := range set {
		if !block.IsValid {
			return block
		}

		if block.LastAccess < victim.LastAccess {
			victim = block
		}
	}

	return victim
}
