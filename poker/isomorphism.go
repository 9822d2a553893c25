package poker

// Permutation is one of the 4! = 24 ways to relabel the four suits. By
// convention suits are ordered Clubs < Diamonds < Hearts < Spades; a
// Permutation maps that canonical order onto a concrete order, so
// Permutation[Clubs] is the suit clubs is renamed to.
type Permutation [4]Suit

// Identity is the no-op permutation.
func Identity() Permutation {
	return Permutation{Clubs, Diamonds, Hearts, Spades}
}

// Apply renames suit through the permutation.
func (p Permutation) Apply(suit Suit) Suit {
	return p[suit]
}

// PermuteHand renames every card's suit in hand through the permutation,
// leaving ranks untouched.
func (p Permutation) PermuteHand(hand Hand) Hand {
	var out Hand
	for suit := Clubs; suit <= Spades; suit++ {
		mask := hand.SuitMask(suit)
		if mask == 0 {
			continue
		}
		newSuit := p.Apply(suit)
		out |= Hand(uint64(mask)) << (uint8(newSuit) * 13)
	}
	return out
}

// Isomorphism is the suit-canonical representative of an Observation.
// Many observations are strategically identical up to a relabeling of
// suits; canonizing collapses them to one representative so downstream
// clustering and lookup work over a far smaller index space.
type Isomorphism struct {
	obs Observation
}

// NewIsomorphism canonizes obs into its suit-isomorphism class
// representative.
func NewIsomorphism(obs Observation) Isomorphism {
	return Isomorphism{obs: obs.permuted(canonicalPermutation(obs.Pocket, obs.Public))}
}

// Observation returns the canonical representative observation.
func (iso Isomorphism) Observation() Observation {
	return iso.obs
}

// canonicalPermutation derives the suit relabeling that sorts suits by
// (pocket card count, public card count) descending, then by the suit's
// pocket and public rank masks, so only suits holding exactly the same
// cards tie (and those keep their natural index order). Suits carrying
// more information (more pocket cards, then more public cards) are
// renamed to the lowest suit index, so two observations that differ only
// by a suit relabeling always canonize to the same representative.
func canonicalPermutation(pocket, public Hand) Permutation {
	type weighted struct {
		suit       Suit
		pocketN    int
		publicN    int
		pocketMask uint16
		publicMask uint16
	}

	weights := make([]weighted, 4)
	for suit := Clubs; suit <= Spades; suit++ {
		weights[suit] = weighted{
			suit:       suit,
			pocketN:    countBits(pocket.SuitMask(suit)),
			publicN:    countBits(public.SuitMask(suit)),
			pocketMask: pocket.SuitMask(suit),
			publicMask: public.SuitMask(suit),
		}
	}

	// Stable insertion sort descending by (pocketN, publicN, pocketMask,
	// publicMask); suits equal on all four keep their original order.
	for i := 1; i < len(weights); i++ {
		for j := i; j > 0; j-- {
			a, b := weights[j-1], weights[j]
			less := a.pocketN < b.pocketN || (a.pocketN == b.pocketN && (a.publicN < b.publicN ||
				(a.publicN == b.publicN && (a.pocketMask < b.pocketMask ||
					(a.pocketMask == b.pocketMask && a.publicMask < b.publicMask)))))
			if !less {
				break
			}
			weights[j-1], weights[j] = weights[j], weights[j-1]
		}
	}

	var perm Permutation
	for newSuit, w := range weights {
		perm[w.suit] = Suit(newSuit)
	}
	return perm
}

func countBits(mask uint16) int {
	n := 0
	for mask != 0 {
		mask &= mask - 1
		n++
	}
	return n
}

// EnumerateIsomorphisms returns one Observation representative per
// suit-isomorphism class on the given street, by exhaustively generating
// every (pocket, public) combination and deduplicating on its canonical
// form. This is the ground truth enumeration pretraining clusters over;
// callers on a hot path should prefer a cached or sampled subset.
func EnumerateIsomorphisms(street Street) []Isomorphism {
	seen := make(map[Observation]bool)
	classes := make([]Isomorphism, 0)

	eachCombination(FullDeck, 2, func(pocket Hand) bool {
		deck := pocket.Complement()
		eachCombination(deck, street.NPublic(), func(public Hand) bool {
			obs := Observation{Pocket: pocket, Public: public}
			iso := NewIsomorphism(obs)
			canon := iso.Observation()
			if !seen[canon] {
				seen[canon] = true
				classes = append(classes, iso)
			}
			return true
		})
		return true
	})

	return classes
}
