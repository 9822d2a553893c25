package mccfr

import (
	"testing"

	"github.com/lox/nlhe-blueprint/internal/abstraction"
	"github.com/lox/nlhe-blueprint/internal/edge"
	"github.com/lox/nlhe-blueprint/internal/game"
	"github.com/lox/nlhe-blueprint/internal/randutil"
	"github.com/lox/nlhe-blueprint/poker"
)

// flatEncoder buckets every isomorphism on a street into a single
// Abstraction, collapsing all hole-card detail so the tests exercise
// the tree walk rather than any real clustering.
type flatEncoder struct {
	street poker.Street
}

func (e flatEncoder) Encode(poker.Isomorphism) abstraction.Abstraction {
	return abstraction.NewAbstraction(e.street, 0)
}
func (e flatEncoder) Len() int { return 1 }

func newHeadsUpGame(t *testing.T) *game.Game {
	t.Helper()
	g := game.New([2]int{20, 20}, 0, 1, 2)
	for i := 0; i < 2; i++ {
		actions := g.LegalActions()
		if len(actions) != 1 || actions[0].Kind != game.Blind {
			t.Fatalf("expected a single blind action, got %+v", actions)
		}
		if err := g.Apply(actions[0]); err != nil {
			t.Fatal(err)
		}
	}
	deck := poker.NewHand().Complement().Cards()
	g.Seats[0].Cards = poker.NewHand(deck[0], deck[1])
	g.Seats[1].Cards = poker.NewHand(deck[2], deck[3])
	return g
}

func allEncoders() map[poker.Street]abstraction.Encoder {
	return map[poker.Street]abstraction.Encoder{
		poker.Pref: flatEncoder{poker.Pref},
		poker.Flop: flatEncoder{poker.Flop},
		poker.Turn: flatEncoder{poker.Turn},
		poker.Rive: flatEncoder{poker.Rive},
	}
}

func TestWalkZeroSumAndGrowsTable(t *testing.T) {
	t.Parallel()

	table := NewTable()
	discount := DefaultDiscount(10)
	rng := randutil.New(1)

	for iter := 1; iter <= 20; iter++ {
		for walker := 0; walker < 2; walker++ {
			g := newHeadsUpGame(t)
			tree := Build(g, walker, allEncoders(), rng)
			ev, records := Walk(tree, table)
			if got, want := ev[0]+ev[1], 0.0; got < want-1e-6 || got > want+1e-6 {
				t.Fatalf("expected zero-sum EV, got %v + %v = %v", ev[0], ev[1], got)
			}
			table.Submit(records, discount, iter)
		}
	}

	if table.Size() == 0 {
		t.Fatal("expected the walk to populate at least one infoset")
	}
}

func TestWalkProducesNormalizedAverageStrategy(t *testing.T) {
	t.Parallel()

	table := NewTable()
	discount := DefaultDiscount(10)
	rng := randutil.New(7)

	for iter := 1; iter <= 15; iter++ {
		g := newHeadsUpGame(t)
		tree := Build(g, iter%2, allEncoders(), rng)
		_, records := Walk(tree, table)
		table.Submit(records, discount, iter)
	}

	found := false
	table.Each(func(info edge.Info, entry *Entry) {
		found = true
		edges := entry.Edges()
		strat := entry.AverageStrategy(edges)
		total := 0.0
		for _, p := range strat {
			total += p
		}
		if total < 0.999 || total > 1.001 {
			t.Errorf("expected normalized average strategy, got sum %v", total)
		}
	})
	if !found {
		t.Fatal("expected at least one visited infoset")
	}
}
