// Package geometry describes the shape of a two-level cache hierarchy and
// converts physical addresses into the tag and index seen by each level.
package geometry

import (
	"fmt"
)

// Default exponents used when the user does not provide a geometry.
const (
	DefaultC1 uint64 = 10
	DefaultC2 uint64 = 15
	DefaultB  uint64 = 5
	DefaultS  uint64 = 3
)

// addressBits is the width of a physical address.
const addressBits = 64

// MaxLineBits bounds log2 of the number of blocks in one level.
const MaxLineBits = 30

// Geometry holds the log2-sized parameters of both cache levels. C1 and C2
// are the total capacities, B is the block size shared by both levels, and S
// is the L2 associativity. L1 is always direct-mapped.
type Geometry struct {
	C1 uint64 `yaml:"c1"`
	C2 uint64 `yaml:"c2"`
	B  uint64 `yaml:"b"`
	S  uint64 `yaml:"s"`
}

// Default returns the nominal geometry.
func Default() Geometry {
	return Geometry{
		C1: DefaultC1,
		C2: DefaultC2,
		B:  DefaultB,
		S:  DefaultS,
	}
}

// Validate reports whether the geometry produces sane bit widths and a
// number of lines that can be allocated. The codec functions assume a valid
// geometry and never check it themselves.
func (g Geometry) Validate() error {
	if g.B >= addressBits || g.S >= addressBits {
		return fmt.Errorf("block size exponent %d and associativity "+
			"exponent %d must be below %d", g.B, g.S, addressBits)
	}

	if g.C1 >= addressBits || g.C2 >= addressBits {
		return fmt.Errorf("capacity exponents must be below %d",
			addressBits)
	}

	if g.C1 <= g.B {
		return fmt.Errorf("L1 capacity exponent %d must exceed block "+
			"size exponent %d", g.C1, g.B)
	}

	if g.C2 <= g.B+g.S {
		return fmt.Errorf("L2 capacity exponent %d must exceed block "+
			"size exponent plus associativity exponent %d", g.C2, g.B+g.S)
	}

	if g.C1-g.B > MaxLineBits || g.C2-g.B > MaxLineBits {
		return fmt.Errorf("each level can hold at most 2^%d blocks",
			MaxLineBits)
	}

	return nil
}

// L1 returns the addressing view of the direct-mapped first level.
func (g Geometry) L1() Level {
	return Level{C: g.C1, B: g.B, S: 0}
}

// L2 returns the addressing view of the set-associative second level.
func (g Geometry) L2() Level {
	return Level{C: g.C2, B: g.B, S: g.S}
}

// L1Lines returns the number of direct-mapped lines in L1.
func (g Geometry) L1Lines() int {
	return 1 << (g.C1 - g.B)
}

// L2Sets returns the number of sets in L2.
func (g Geometry) L2Sets() int {
	return 1 << (g.C2 - g.B - g.S)
}

// L2Ways returns the number of ways in each L2 set.
func (g Geometry) L2Ways() int {
	return 1 << g.S
}

// BlockSize returns the number of addressable units in a block.
func (g Geometry) BlockSize() uint64 {
	return 1 << g.B
}

// L1ToL2 converts an L1 (tag, index) pair into the L2 (tag, set).
func (g Geometry) L1ToL2(tag, index uint64) (uint64, uint64) {
	return Translate(tag, index, g.L1(), g.L2())
}

// L2ToL1 converts an L2 (tag, set) pair into the L1 (tag, index).
func (g Geometry) L2ToL1(tag, index uint64) (uint64, uint64) {
	return Translate(tag, index, g.L2(), g.L1())
}

func (g Geometry) String() string {
	return fmt.Sprintf("C1=%d C2=%d B=%d S=%d", g.C1, g.C2, g.B, g.S)
}
