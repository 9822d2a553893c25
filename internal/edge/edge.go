// Package edge discretizes the game engine's continuous raise sizes into
// a small, fixed action abstraction: Fold/Check/Call/Shove/Draw plus a
// handful of pot-relative Raise odds per street and raise depth. This is
// the alphabet MCCFR's infosets branch on.
package edge

import (
	"fmt"

	"github.com/lox/nlhe-blueprint/internal/game"
	"github.com/lox/nlhe-blueprint/poker"
)

// Kind discriminates the six action families an Edge can represent.
type Kind uint8

const (
	KindFold Kind = iota
	KindCheck
	KindCall
	KindShove
	KindDraw
	KindRaise
)

func (k Kind) String() string {
	switch k {
	case KindFold:
		return "fold"
	case KindCheck:
		return "check"
	case KindCall:
		return "call"
	case KindShove:
		return "shove"
	case KindDraw:
		return "draw"
	case KindRaise:
		return "raise"
	default:
		return "unknown"
	}
}

// Odds is a coprime pot-relative raise size, e.g. {Num: 3, Den: 4} means
// "raise to 3/4 pot".
type Odds struct {
	Num uint8
	Den uint8
}

func (o Odds) String() string {
	return fmt.Sprintf("%d/%d", o.Num, o.Den)
}

// Edge packs a Kind and, for KindRaise, an Odds pair, into a single
// 64-bit value. Non-raise kinds carry zero odds.
type Edge uint64

// New builds a non-raise Edge. It panics if kind is KindRaise (use
// NewRaise instead, since a raise needs its Odds).
func New(kind Kind) Edge {
	if kind == KindRaise {
		panic("edge: KindRaise requires NewRaise")
	}
	return Edge(kind) << 16
}

// NewRaise builds a KindRaise Edge at the given pot-relative odds.
func NewRaise(odds Odds) Edge {
	return Edge(KindRaise)<<16 | Edge(odds.Num)<<8 | Edge(odds.Den)
}

// Kind recovers the Edge's action family.
func (e Edge) Kind() Kind {
	return Kind(e >> 16)
}

// Odds recovers the raise fraction. It is only meaningful when Kind is
// KindRaise.
func (e Edge) Odds() Odds {
	return Odds{Num: uint8(e >> 8), Den: uint8(e)}
}

func (e Edge) String() string {
	if e.Kind() == KindRaise {
		return "raise(" + e.Odds().String() + ")"
	}
	return e.Kind().String()
}

// MaxRaiseRepeats bounds how many consecutive aggressive edges a street
// can see before Raise drops out of the legal set, leaving only
// Fold/Call/Shove.
const MaxRaiseRepeats = 4

// grid returns the fixed pot-odds ladder available at the given street
// and raise depth (the count of trailing aggressive choice-edges on the
// current street). An empty grid means no Raise edge is offered.
func grid(street poker.Street, depth int) []Odds {
	if depth > MaxRaiseRepeats {
		return nil
	}
	switch street {
	case poker.Pref:
		return []Odds{{1, 4}, {1, 3}, {1, 2}, {3, 4}, {1, 1}, {3, 2}, {2, 1}, {3, 1}, {5, 1}, {10, 1}}
	case poker.Flop:
		return []Odds{{1, 3}, {1, 2}, {3, 4}, {1, 1}, {3, 2}}
	default: // Turn, Rive
		if depth == 0 {
			return []Odds{{1, 2}, {1, 1}}
		}
		return []Odds{{1, 1}}
	}
}

// Futures enumerates the abstracted Edges legal at g's current choice
// node, given the raise depth reached so far this street.
func Futures(g *game.Game, street poker.Street, depth int) []Edge {
	legal := g.LegalActions()
	edges := make([]Edge, 0, len(legal))
	seenRaise := false

	for _, action := range legal {
		switch action.Kind {
		case game.Blind:
			// Blind posting is not part of the abstracted action space;
			// the solver's tree starts once both blinds are in.
			continue
		case game.Check:
			edges = append(edges, New(KindCheck))
		case game.Fold:
			edges = append(edges, New(KindFold))
		case game.Call:
			edges = append(edges, New(KindCall))
		case game.Shove:
			edges = append(edges, New(KindShove))
		case game.Raise:
			if seenRaise {
				continue
			}
			seenRaise = true
			for _, odds := range grid(street, depth) {
				edges = append(edges, NewRaise(odds))
			}
		}
	}
	return edges
}

// Edgify maps a concrete chip raise size into the nearest grid element
// for the given street and depth, snapping amounts at or below minRaise
// to the grid's smallest odds and amounts at or above shove (or any
// amount, when the grid is empty) to Shove.
func Edgify(street poker.Street, depth int, pot, chips, minRaise, shove int) Edge {
	candidates := grid(street, depth)
	if len(candidates) == 0 || chips >= shove {
		return New(KindShove)
	}
	if chips <= minRaise {
		return NewRaise(candidates[0])
	}

	best := candidates[0]
	bestDelta := abs(oddsChips(best, pot) - chips)
	for _, o := range candidates[1:] {
		delta := abs(oddsChips(o, pot) - chips)
		if delta < bestDelta {
			best, bestDelta = o, delta
		}
	}
	return NewRaise(best)
}

// Actionize maps an abstracted Raise Edge back to a concrete chip
// amount, clamped to the legal [minRaise, shove] range.
func Actionize(e Edge, pot, minRaise, shove int) int {
	if e.Kind() != KindRaise {
		panic("edge: Actionize called on a non-raise edge")
	}
	chips := oddsChips(e.Odds(), pot)
	if chips < minRaise {
		return minRaise
	}
	if chips > shove {
		return shove
	}
	return chips
}

func oddsChips(o Odds, pot int) int {
	return pot * int(o.Num) / int(o.Den)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
