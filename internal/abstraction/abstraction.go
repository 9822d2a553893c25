// Package abstraction builds and queries the hand-strength abstraction
// used to compress the game of No-Limit Hold'em down to a size MCCFR can
// actually solve: histograms of next-street cluster membership, an
// earth-mover distance between those histograms, k-means clustering over
// that distance, and a frozen encoder from canonical cards to cluster id.
package abstraction

import (
	"fmt"

	"github.com/lox/nlhe-blueprint/poker"
)

// Abstraction is an opaque bucket id for one Isomorphism on one street,
// packed street (2 bits) then within-street cluster index (8 bits) into
// a 16-bit word. River indices are round(equity*100); every other
// street's index is a k-means cluster id.
type Abstraction uint16

const maxIndex = 0xFF

// NewAbstraction packs a street and a within-street cluster index into an
// Abstraction.
func NewAbstraction(street poker.Street, index int) Abstraction {
	if index < 0 || index > maxIndex {
		panic(fmt.Sprintf("abstraction: index %d out of range", index))
	}
	return Abstraction(uint16(street)<<8 | uint16(index))
}

// Street recovers the street this Abstraction was built for.
func (a Abstraction) Street() poker.Street {
	return poker.Street(a >> 8)
}

// Index recovers the within-street cluster index.
func (a Abstraction) Index() int {
	return int(a & maxIndex)
}

func (a Abstraction) String() string {
	return fmt.Sprintf("%s#%d", a.Street(), a.Index())
}

// Pair is an unordered pair of Abstractions, identified by xor(u16,u16),
// used to key the flattened pairwise Metric table. XOR makes Pair(a, b)
// and Pair(b, a) collide by construction, and Pair(a, a) always collapse
// to zero.
type Pair uint16

// NewPair builds the unordered pair key for a and b.
func NewPair(a, b Abstraction) Pair {
	return Pair(uint16(a) ^ uint16(b))
}
