package mccfr

import (
	"math/rand/v2"

	"github.com/lox/nlhe-blueprint/internal/abstraction"
	"github.com/lox/nlhe-blueprint/internal/edge"
	"github.com/lox/nlhe-blueprint/internal/game"
	"github.com/lox/nlhe-blueprint/poker"
)

// node is one point in a single iteration's sampled tree. Nodes live in
// a flat slice rather than as a pointer graph, per the fixed explicit
// work-list this package replaces naive recursive tree construction
// with: each node only knows its parent's index and which of the
// parent's edges led to it, so the tree never needs back-pointers that
// outlive the slice it was built into.
type node struct {
	parent     int
	parentEdge int // index into parent's edges/children, -1 at the root

	terminal bool
	payoff   [2]float64 // chip reward for each seat, only set when terminal

	seat     int // acting seat, meaningful only for non-terminal non-chance nodes
	chance   bool
	info     edge.Info
	edges    []edge.Edge
	children []int
	sampled  int // index into edges/children actually taken when seat != walker, -1 otherwise
}

// Tree is one fully-built, single-iteration MCCFR sample: the walker's
// choice nodes are expanded across every legal edge, the opponent's and
// chance's are collapsed to the one branch the sampler drew.
type Tree struct {
	nodes  []node
	walker int
}

// Build walks g to completion using an explicit stack rather than
// recursion, expanding every edge at the walker's choice nodes and
// sampling one edge everywhere else (opponent choices, chance deals).
// Encoders must already cover every street the hand can reach.
func Build(g *game.Game, walker int, encoders map[poker.Street]abstraction.Encoder, rng *rand.Rand) *Tree {
	t := &Tree{walker: walker}

	type work struct {
		g          game.Game
		history    edge.Path
		parent     int
		parentEdge int
	}

	stack := []work{{g: *g, history: edge.EmptyPath(), parent: -1, parentEdge: -1}}
	for len(stack) > 0 {
		w := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		idx := len(t.nodes)
		t.nodes = append(t.nodes, node{parent: w.parent, parentEdge: w.parentEdge, sampled: -1})
		if w.parent >= 0 {
			t.nodes[w.parent].children[w.parentEdge] = idx
		}

		turn := w.g.Next()
		switch turn.Kind {
		case game.TurnTerminal:
			strengths := [2]poker.Strength{
				poker.Evaluate7(w.g.Seats[0].Cards.Union(w.g.Board)),
				poker.Evaluate7(w.g.Seats[1].Cards.Union(w.g.Board)),
			}
			settlements := game.Settle(&w.g, strengths)
			t.nodes[idx].terminal = true
			for s := 0; s < 2; s++ {
				t.nodes[idx].payoff[s] = float64(settlements[s].Reward - settlements[s].Risked)
			}

		case game.TurnChance:
			street := poker.StreetOf(w.g.Board.Count())
			dealt := dealCards(rng, w.g, street.NRevealed())
			next := w.g
			if err := next.Apply(game.Action{Kind: game.Draw, Board: dealt}); err != nil {
				panic(err)
			}
			t.nodes[idx].chance = true
			t.nodes[idx].children = make([]int, 1)
			stack = append(stack, work{g: next, history: w.history, parent: idx, parentEdge: 0})

		case game.TurnChoice:
			street := poker.StreetOf(w.g.Board.Count())
			encoder := encoders[street]
			info := edge.Build(&w.g, street, encoder, w.history)
			edges := edge.Futures(&w.g, street, edge.RaiseDepth(w.history))

			t.nodes[idx].seat = turn.Seat
			t.nodes[idx].info = info
			t.nodes[idx].edges = edges
			t.nodes[idx].children = make([]int, len(edges))

			legal := w.g.LegalActions()
			if turn.Seat == walker {
				for i, e := range edges {
					next := w.g
					applyEdge(&next, legal, e)
					stack = append(stack, work{g: next, history: w.history.Push(e), parent: idx, parentEdge: i})
				}
			} else {
				i := sampleIndex(rng, len(edges))
				t.nodes[idx].sampled = i
				next := w.g
				applyEdge(&next, legal, edges[i])
				stack = append(stack, work{g: next, history: w.history.Push(edges[i]), parent: idx, parentEdge: i})
			}
		}
	}

	return t
}

// applyEdge maps an abstracted edge back to one of g's concrete legal
// actions and applies it. Raise needs both the engine's min-raise and
// shove amounts to clamp its pot-fraction into range, so the legal set
// is scanned once up front rather than action-by-action.
func applyEdge(g *game.Game, legal []game.Action, e edge.Edge) {
	var minRaise, shoveChips int
	for _, a := range legal {
		switch a.Kind {
		case game.Raise:
			minRaise = a.Chips
		case game.Shove:
			shoveChips = a.Chips
		}
	}

	for _, a := range legal {
		switch e.Kind() {
		case edge.KindFold:
			if a.Kind == game.Fold {
				mustApply(g, a)
				return
			}
		case edge.KindCheck:
			if a.Kind == game.Check {
				mustApply(g, a)
				return
			}
		case edge.KindCall:
			if a.Kind == game.Call {
				mustApply(g, a)
				return
			}
		case edge.KindShove:
			if a.Kind == game.Shove {
				mustApply(g, a)
				return
			}
		case edge.KindRaise:
			if a.Kind == game.Raise {
				chips := edge.Actionize(e, g.Pot, minRaise, shoveChips)
				mustApply(g, game.Action{Kind: game.Raise, Chips: chips})
				return
			}
		}
	}
	panic("mccfr: edge has no matching legal action")
}

func mustApply(g *game.Game, a game.Action) {
	if err := g.Apply(a); err != nil {
		panic(err)
	}
}

func sampleIndex(rng *rand.Rand, n int) int {
	if n == 1 {
		return 0
	}
	return rng.IntN(n)
}

// dealCards draws k cards uniformly at random, without replacement,
// from the undealt deck.
func dealCards(rng *rand.Rand, g game.Game, k int) poker.Hand {
	deck := g.Seats[0].Cards.Union(g.Seats[1].Cards).Union(g.Board).Complement()
	cards := deck.Cards()
	rng.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })

	var dealt poker.Hand
	for i := 0; i < k; i++ {
		dealt = dealt.Add(cards[i])
	}
	return dealt
}
