package poker

import "math/bits"

// eachCombination calls fn once for every k-card sub-Hand of deck, using
// Gosper's hack to step from one k-bit subset to the next without ever
// materializing a slice of cards. It stops early if fn returns false.
func eachCombination(deck Hand, k int, fn func(Hand) bool) {
	if k == 0 {
		fn(0)
		return
	}

	available := uint64(deck)
	n := bits.OnesCount64(available)
	if k > n {
		return
	}

	// Map the n set bits of `available` onto a dense [0, n) index
	// space so Gosper's hack can walk it as a plain k-combination, then
	// translate each resulting index set back onto the sparse card bits.
	positions := make([]uint8, 0, n)
	remaining := available
	for remaining != 0 {
		low := remaining & -remaining
		positions = append(positions, uint8(bits.TrailingZeros64(remaining)))
		remaining ^= low
	}

	subset := uint64(1)<<k - 1
	limit := uint64(1) << n
	for subset < limit {
		var hand Hand
		bitset := subset
		for bitset != 0 {
			low := bitset & -bitset
			idx := bits.TrailingZeros64(bitset)
			hand |= Hand(1) << positions[idx]
			bitset ^= low
		}
		if !fn(hand) {
			return
		}

		// Gosper's hack: next subset with the same popcount.
		c := subset & -subset
		r := subset + c
		subset = (((r ^ subset) >> 2) / c) | r
	}
}
