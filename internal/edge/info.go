package edge

import (
	"github.com/lox/nlhe-blueprint/internal/abstraction"
	"github.com/lox/nlhe-blueprint/internal/game"
	"github.com/lox/nlhe-blueprint/poker"
)

// MaxDepthSubgame bounds how much history an Info key remembers. Two
// Games whose trailing MaxDepthSubgame edges, present-street Abstraction,
// and legal-edge set all agree are strategically indistinguishable and
// share one learned policy.
const MaxDepthSubgame = 8

// Info is the infoset key the blueprint's regret/policy tables are
// indexed by.
type Info struct {
	History Path
	Present abstraction.Abstraction
	Choices Path
}

// Build derives the Info key for g's current choice node. encoder maps
// g's hole-card/board Observation to an Abstraction for the current
// street; history is the full, untruncated edge sequence taken so far
// this hand.
func Build(g *game.Game, street poker.Street, encoder abstraction.Encoder, history Path) Info {
	turn := g.Next()
	if turn.Kind != game.TurnChoice {
		panic("edge: Build called outside a choice node")
	}

	obs, err := poker.NewObservation(g.Seats[turn.Seat].Cards, g.Board)
	if err != nil {
		panic(err)
	}
	present := encoder.Encode(poker.NewIsomorphism(obs))

	depth := RaiseDepth(history)
	var choices Path
	for _, e := range Futures(g, street, depth) {
		choices = choices.Push(e)
	}

	return Info{
		History: history.Truncate(MaxDepthSubgame),
		Present: present,
		Choices: choices,
	}
}

// RaiseDepth counts the trailing aggressive (Raise or Shove) edges in
// history on the current street, reading from the newest edge backward
// and stopping at the first non-aggressive one.
func RaiseDepth(history Path) int {
	depth := 0
	v := uint64(history)
	for i := 0; i < history.Len(); i++ {
		nibble := uint8(v & 0xF)
		if nibble < 3 {
			// Fold(0), Check(1), Call(2) are not aggressive.
			break
		}
		if nibble == 4 {
			// Draw is a chance edge, not a choice edge; it never
			// appears inside a single street's run of choice edges.
			break
		}
		depth++
		v >>= 4
	}
	return depth
}
