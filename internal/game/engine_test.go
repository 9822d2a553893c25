package game

import "testing"

func TestBlindsPostInOrder(t *testing.T) {
	t.Parallel()

	g := New([2]int{200, 200}, 0, 1, 2)

	turn := g.Next()
	if turn.Kind != TurnChoice || turn.Seat != 0 {
		t.Fatalf("expected dealer to post first, got %+v", turn)
	}

	actions := g.LegalActions()
	if len(actions) != 1 || actions[0].Kind != Blind || actions[0].Chips != 1 {
		t.Fatalf("expected only Blind(1), got %+v", actions)
	}
	if err := g.Apply(actions[0]); err != nil {
		t.Fatal(err)
	}

	turn = g.Next()
	if turn.Kind != TurnChoice || turn.Seat != 1 {
		t.Fatalf("expected non-dealer to post next, got %+v", turn)
	}
	actions = g.LegalActions()
	if len(actions) != 1 || actions[0].Kind != Blind || actions[0].Chips != 2 {
		t.Fatalf("expected only Blind(2), got %+v", actions)
	}
	if err := g.Apply(actions[0]); err != nil {
		t.Fatal(err)
	}

	if g.Pot != 3 {
		t.Errorf("expected pot of 3 after both blinds, got %d", g.Pot)
	}

	turn = g.Next()
	if turn.Kind != TurnChoice || turn.Seat != 0 {
		t.Fatalf("expected dealer to act first preflop after blinds, got %+v", turn)
	}
}

func TestCheckCheckAdvancesToChance(t *testing.T) {
	t.Parallel()

	g := New([2]int{200, 200}, 0, 1, 2)
	postBlinds(t, g)

	if err := g.Apply(Action{Kind: Call, Chips: 1}); err != nil {
		t.Fatal(err)
	}
	if err := g.Apply(Action{Kind: Check}); err != nil {
		t.Fatal(err)
	}

	if turn := g.Next(); turn.Kind != TurnChance {
		t.Fatalf("expected a chance turn once preflop is settled, got %+v", turn)
	}
}

func TestFoldEndsHand(t *testing.T) {
	t.Parallel()

	g := New([2]int{200, 200}, 0, 1, 2)
	postBlinds(t, g)

	if err := g.Apply(Action{Kind: Fold}); err != nil {
		t.Fatal(err)
	}
	if turn := g.Next(); turn.Kind != TurnTerminal {
		t.Fatalf("expected terminal turn after a fold, got %+v", turn)
	}
}

func TestMinRaiseMatchesBigBlindFloor(t *testing.T) {
	t.Parallel()

	g := New([2]int{200, 200}, 0, 1, 2)
	postBlinds(t, g)

	var raise *Action
	for _, a := range g.LegalActions() {
		if a.Kind == Raise {
			raise = &a
		}
	}
	if raise == nil {
		t.Fatal("expected a raise to be legal")
	}
	// Own stake is 1 (small blind); effective stake is 2 (big blind); the
	// gap between the two stakes (1) is below the big blind, so min-raise
	// commits one more big blind on top of the effective stake.
	if got, want := raise.Chips, 2+2-1; got != want {
		t.Errorf("expected min-raise chips %d, got %d", want, got)
	}
}

func postBlinds(t *testing.T, g *Game) {
	t.Helper()
	for i := 0; i < 2; i++ {
		actions := g.LegalActions()
		if len(actions) != 1 || actions[0].Kind != Blind {
			t.Fatalf("expected a single blind action, got %+v", actions)
		}
		if err := g.Apply(actions[0]); err != nil {
			t.Fatal(err)
		}
	}
}
