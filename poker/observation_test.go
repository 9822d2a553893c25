package poker

import (
	"context"
	"testing"
)

func TestNewObservationValidation(t *testing.T) {
	pocket := NewHand(MustParseCard("As"), MustParseCard("Ks"))
	public := NewHand(MustParseCard("Qs"), MustParseCard("Js"), MustParseCard("Ts"))

	if _, err := NewObservation(pocket, public); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	badPublic := NewHand(MustParseCard("Qs"), MustParseCard("Js"))
	if _, err := NewObservation(pocket, badPublic); err == nil {
		t.Error("expected error for a 2-card public hand")
	}

	overlapping := NewHand(MustParseCard("As"), MustParseCard("Ks"), MustParseCard("Qs"))
	if _, err := NewObservation(pocket, overlapping); err == nil {
		t.Error("expected error when pocket and public share a card")
	}
}

func TestObservationStreet(t *testing.T) {
	pocket := NewHand(MustParseCard("As"), MustParseCard("Ks"))
	obs, _ := NewObservation(pocket, 0)
	if obs.Street() != Pref {
		t.Errorf("expected Pref, got %v", obs.Street())
	}

	flop := NewHand(MustParseCard("2c"), MustParseCard("7d"), MustParseCard("9h"))
	obs, _ = NewObservation(pocket, flop)
	if obs.Street() != Flop {
		t.Errorf("expected Flop, got %v", obs.Street())
	}
}

func TestObservationChildrenCount(t *testing.T) {
	pocket := NewHand(MustParseCard("As"), MustParseCard("Ks"))
	obs, _ := NewObservation(pocket, 0)

	children := obs.Children()
	// Choosing 3 of the 50 remaining cards.
	if len(children) != 19600 {
		t.Errorf("expected 19600 flops, got %d", len(children))
	}
}

func TestRiverEquityNutsIsOne(t *testing.T) {
	pocket := NewHand(MustParseCard("As"), MustParseCard("Ks"))
	public := NewHand(MustParseCard("Qs"), MustParseCard("Js"), MustParseCard("Ts"), MustParseCard("2c"), MustParseCard("2d"))
	obs, err := NewObservation(pocket, public)
	if err != nil {
		t.Fatal(err)
	}

	eq, err := obs.Equity(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if eq != 1.0 {
		t.Errorf("expected the nut royal flush to have 100%% equity, got %f", eq)
	}
}

func TestIsomorphismCollapsesSuitRelabeling(t *testing.T) {
	pocket1 := NewHand(MustParseCard("As"), MustParseCard("Ks"))
	public1 := NewHand(MustParseCard("2c"), MustParseCard("7d"), MustParseCard("9h"))
	obs1, _ := NewObservation(pocket1, public1)

	// Relabel spades->hearts, hearts->spades: strategically identical hand.
	pocket2 := NewHand(MustParseCard("Ah"), MustParseCard("Kh"))
	public2 := NewHand(MustParseCard("2c"), MustParseCard("7d"), MustParseCard("9s"))
	obs2, _ := NewObservation(pocket2, public2)

	iso1 := NewIsomorphism(obs1)
	iso2 := NewIsomorphism(obs2)

	if iso1.Observation() != iso2.Observation() {
		t.Errorf("expected suit-relabeled observations to canonize identically: %v vs %v",
			iso1.Observation(), iso2.Observation())
	}
}
