package edge

import "github.com/lox/nlhe-blueprint/poker"

// emptyCode marks a Path nibble that has never been pushed to. It is
// chosen above every real edge code (0-14) so a short, real history can
// never be confused with a longer one padded with empty slots.
const emptyCode uint8 = 0xF

// codes is the canonical union of every street/depth's raise odds grid,
// used to assign each Edge a stable 4-bit identity inside a Path
// regardless of which grid was active when it was taken. Preflop's grid
// is the widest and a strict superset of every other street's, so it
// doubles as the canonical table.
var codes = grid(poker.Pref, 0)

// code returns e's 4-bit identity within a Path: 0-4 for the non-raise
// kinds, 5+index for a Raise at the canonical grid's index-th odds.
func (e Edge) code() uint8 {
	switch e.Kind() {
	case KindFold:
		return 0
	case KindCheck:
		return 1
	case KindCall:
		return 2
	case KindShove:
		return 3
	case KindDraw:
		return 4
	case KindRaise:
		odds := e.Odds()
		for i, o := range codes {
			if o == odds {
				return uint8(5 + i)
			}
		}
		panic("edge: raise odds not present in the canonical grid")
	default:
		panic("edge: unknown kind")
	}
}

// Path is an ordered, bounded (16-edge) history of Edges, newest at the
// low bits, packed 4 bits per edge into a 64-bit word.
type Path uint64

// EmptyPath is the zero-length history.
func EmptyPath() Path {
	var p uint64
	for i := 0; i < 16; i++ {
		p = p<<4 | uint64(emptyCode)
	}
	return Path(p)
}

// Push appends e as the newest edge. Once 16 edges have been pushed, the
// oldest silently falls off the top, matching the fixed 64-bit budget.
func (p Path) Push(e Edge) Path {
	return Path(uint64(p)<<4 | uint64(e.code()))
}

// Len reports how many real (non-padding) edges are present, scanning
// from the newest slot until the first empty one.
func (p Path) Len() int {
	n := 0
	v := uint64(p)
	for i := 0; i < 16; i++ {
		nibble := uint8(v & 0xF)
		if nibble == emptyCode {
			break
		}
		n++
		v >>= 4
	}
	return n
}

// Truncate keeps only the newest n edges (as Len would count them),
// replacing anything beyond that with padding. It is used to bound
// history to MAX_DEPTH_SUBGAME before it enters an Info key.
func (p Path) Truncate(n int) Path {
	if n >= 16 {
		return p
	}
	mask := uint64(1)<<(4*uint(n)) - 1
	kept := uint64(p) & mask
	padded := uint64(0)
	for i := 0; i < 16-n; i++ {
		padded = padded<<4 | uint64(emptyCode)
	}
	return Path(padded<<(4*uint(n)) | kept)
}
