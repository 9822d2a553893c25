package poker

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Observation is the memoryless game state between chance actions: the
// hero's two-card pocket and whatever community cards are public so far.
// Hands don't preserve deal order, so two deals that reveal the same
// cards in a different sequence are the same Observation.
type Observation struct {
	Pocket Hand
	Public Hand
}

// NewObservation builds an Observation from a two-card pocket and a
// public Hand of 0, 3, 4, or 5 cards.
func NewObservation(pocket, public Hand) (Observation, error) {
	if pocket.Count() != 2 {
		return Observation{}, fmt.Errorf("poker: pocket must hold 2 cards, got %d", pocket.Count())
	}
	switch public.Count() {
	case 0, 3, 4, 5:
	default:
		return Observation{}, fmt.Errorf("poker: public must hold 0, 3, 4, or 5 cards, got %d", public.Count())
	}
	if pocket.Intersect(public) != 0 {
		return Observation{}, fmt.Errorf("poker: pocket and public share a card")
	}
	return Observation{Pocket: pocket, Public: public}, nil
}

// Street returns the betting street this Observation sits on.
func (o Observation) Street() Street {
	return StreetOf(o.Public.Count())
}

// Hand coalesces pocket and public cards into a single Hand, e.g. to feed
// the 7-card evaluator once the river is dealt.
func (o Observation) Hand() Hand {
	return o.Pocket.Union(o.Public)
}

func (o Observation) permuted(p Permutation) Observation {
	return Observation{Pocket: p.PermuteHand(o.Pocket), Public: p.PermuteHand(o.Public)}
}

// Children enumerates every Observation reachable by revealing the next
// street's cards, one per combination of undealt cards.
func (o Observation) Children() []Observation {
	street := o.Street()
	if street == Rive {
		return nil
	}

	removed := o.Pocket.Union(o.Public)
	deck := removed.Complement()
	n := street.NRevealed()

	children := make([]Observation, 0)
	eachCombination(deck, n, func(reveal Hand) bool {
		children = append(children, Observation{Pocket: o.Pocket, Public: o.Public.Union(reveal)})
		return true
	})
	return children
}

// Equity returns the hero's win probability against a uniformly random
// villain hand, conditioned on the cards already known. On the river this
// is the exhaustive ratio of won/total non-tied villain hands; on earlier
// streets it is the reach-weighted expectation of river equity over every
// possible run-out, fanned out across an errgroup worker pool.
func (o Observation) Equity(ctx context.Context) (float64, error) {
	if o.Street() == Rive {
		return o.riverEquity(), nil
	}

	children := o.Children()
	if len(children) == 0 {
		return 0.5, nil
	}

	results := make([]float64, len(children))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, child := range children {
		i, child := i, child
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			eq, err := child.Equity(ctx)
			if err != nil {
				return err
			}
			results[i] = eq
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	sum := 0.0
	for _, eq := range results {
		sum += eq
	}
	return sum / float64(len(results)), nil
}

// riverEquity exhaustively compares hero's made hand against every
// possible two-card villain hand drawn from the remaining deck.
func (o Observation) riverEquity() float64 {
	hero := Evaluate7(o.Hand())
	deck := o.Hand().Complement()

	var wins, total uint64
	eachCombination(deck, 2, func(villainPocket Hand) bool {
		villain := Evaluate7(o.Public.Union(villainPocket))
		switch Compare(hero, villain) {
		case 1:
			wins++
			total++
		case -1:
			total++
		case 0:
			// tie: excluded from both numerator and denominator, per
			// the all-draw convention of treating ties as uninformative.
		}
		return true
	})

	if total == 0 {
		return 0.5
	}
	return float64(wins) / float64(total)
}

func (o Observation) String() string {
	return fmt.Sprintf("%s~%s", o.Pocket, o.Public)
}
