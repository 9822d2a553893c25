package poker

import (
	"math/bits"
	"math/rand"
	"testing"
)

func TestCardCreation(t *testing.T) {
	t.Parallel()
	aceSpades := NewCard(Ace, Spades)
	if aceSpades.Rank() != Ace {
		t.Errorf("Expected rank Ace, got %v", aceSpades.Rank())
	}
	if aceSpades.Suit() != Spades {
		t.Errorf("Expected suit Spades, got %v", aceSpades.Suit())
	}
	if aceSpades.String() != "As" {
		t.Errorf("Expected 'As', got %s", aceSpades.String())
	}

	twoClubs := NewCard(Two, Clubs)
	if twoClubs.String() != "2c" {
		t.Errorf("Expected '2c', got %s", twoClubs.String())
	}
}

func TestParseCard(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		input    string
		wantCard Card
		wantErr  bool
	}{
		{"ace of spades", "As", NewCard(Ace, Spades), false},
		{"two of hearts", "2h", NewCard(Two, Hearts), false},
		{"king of diamonds", "Kd", NewCard(King, Diamonds), false},
		{"ten of clubs", "Tc", NewCard(Ten, Clubs), false},
		{"nine of spades", "9s", NewCard(Nine, Spades), false},
		{"invalid rank", "Xs", 0, true},
		{"invalid suit", "Ax", 0, true},
		{"empty string", "", 0, true},
		{"too short", "A", 0, true},
		{"too long", "Asd", 0, true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			card, err := ParseCard(tc.input)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseCard(%q) error = %v, wantErr %v", tc.input, err, tc.wantErr)
			}
			if !tc.wantErr && card != tc.wantCard {
				t.Errorf("ParseCard(%q) = %v, want %v", tc.input, card, tc.wantCard)
			}
		})
	}
}

func TestAll52Cards(t *testing.T) {
	t.Parallel()
	seen := make(map[string]bool)

	for suit := Clubs; suit <= Spades; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			card := NewCard(rank, suit)
			str := card.String()

			if seen[str] {
				t.Errorf("Duplicate card: %s", str)
			}
			seen[str] = true

			parsed, err := ParseCard(str)
			if err != nil {
				t.Errorf("Failed to parse %s: %v", str, err)
			}
			if parsed != card {
				t.Errorf("Round-trip failed for %s", str)
			}
		}
	}

	if len(seen) != 52 {
		t.Errorf("Expected 52 unique cards, got %d", len(seen))
	}
}

func TestHandOperations(t *testing.T) {
	t.Parallel()
	aceSpades := MustParseCard("As")
	kingHearts := MustParseCard("Kh")
	queenDiamonds := MustParseCard("Qd")

	hand := NewHand(aceSpades, kingHearts)

	if !hand.Has(aceSpades) {
		t.Error("Hand should contain Ace of Spades")
	}
	if !hand.Has(kingHearts) {
		t.Error("Hand should contain King of Hearts")
	}
	if hand.Has(queenDiamonds) {
		t.Error("Hand should not contain Queen of Diamonds")
	}

	if hand.Count() != 2 {
		t.Errorf("Hand should have 2 cards, got %d", hand.Count())
	}

	hand = hand.Add(queenDiamonds)
	if !hand.Has(queenDiamonds) {
		t.Error("Hand should now contain Queen of Diamonds")
	}
	if hand.Count() != 3 {
		t.Errorf("Hand should have 3 cards, got %d", hand.Count())
	}

	hand = hand.Remove(kingHearts)
	if hand.Has(kingHearts) {
		t.Error("Hand should no longer contain King of Hearts")
	}
}

func TestHandBitset(t *testing.T) {
	t.Parallel()
	aceSpades := MustParseCard("As")
	aceHearts := MustParseCard("Ah")
	twoClubs := MustParseCard("2c")

	if bits.OnesCount64(uint64(aceSpades)) != 1 {
		t.Error("Card should be a single bit")
	}

	if aceSpades&aceHearts != 0 || aceSpades&twoClubs != 0 || aceHearts&twoClubs != 0 {
		t.Error("Different cards should not share bits")
	}

	combined := NewHand(aceSpades, aceHearts, twoClubs)
	if combined.Count() != 3 {
		t.Errorf("Combined hand should have 3 cards, got %d", combined.Count())
	}
}

func TestSuitMask(t *testing.T) {
	t.Parallel()
	var cards []Card
	for rank := Two; rank <= Ace; rank++ {
		cards = append(cards, NewCard(rank, Spades))
	}
	hand := NewHand(cards...)

	if mask := hand.SuitMask(Spades); mask != 0x1FFF {
		t.Errorf("Expected all spades, got mask %013b", mask)
	}
	if hand.SuitMask(Hearts) != 0 {
		t.Error("Hearts should be empty")
	}
}

func TestComplement(t *testing.T) {
	t.Parallel()
	hand := NewHand(MustParseCard("As"), MustParseCard("Kd"))
	deck := hand.Complement()
	if deck.Count() != 50 {
		t.Errorf("Expected 50 remaining cards, got %d", deck.Count())
	}
	if deck.Intersect(hand) != 0 {
		t.Error("Complement should not overlap the source hand")
	}
}

func TestDeck(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(42))
	deck := NewDeck(rng)

	cards1 := deck.Deal(2)
	if len(cards1) != 2 {
		t.Errorf("Expected 2 cards, got %d", len(cards1))
	}

	cards2 := deck.Deal(3)
	if len(cards2) != 3 {
		t.Errorf("Expected 3 cards, got %d", len(cards2))
	}

	for _, c1 := range cards1 {
		for _, c2 := range cards2 {
			if c1 == c2 {
				t.Error("Dealt same card twice")
			}
		}
	}

	remaining := deck.Deal(47)
	if len(remaining) != 47 {
		t.Errorf("Expected 47 remaining cards, got %d", len(remaining))
	}

	if extra := deck.Deal(1); extra != nil {
		t.Error("Should not be able to deal from empty deck")
	}

	deck.Reset()
	if newCards := deck.Deal(2); len(newCards) != 2 {
		t.Error("Should be able to deal after reset")
	}
}

func BenchmarkCardCreation(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = NewCard(Ace, Spades)
	}
}

func BenchmarkCardString(b *testing.B) {
	card := NewCard(Ace, Spades)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = card.String()
	}
}

func BenchmarkParseCard(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = ParseCard("As")
	}
}

func BenchmarkHandOperations(b *testing.B) {
	c1 := NewCard(Ace, Spades)
	c2 := NewCard(King, Hearts)
	c3 := NewCard(Queen, Diamonds)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		hand := NewHand(c1, c2).Add(c3)
		_ = hand.Count()
		_ = hand.Has(c1)
	}
}
