// Package game implements the heads-up No-Limit Hold'em state machine
// the solver's tree is built from: two Seats, a shared pot, the board,
// and the dealer/ticker pair that derives whose turn it is without ever
// storing an acting-seat field directly.
package game

import "github.com/lox/nlhe-blueprint/poker"

// State is a Seat's standing in the current hand.
type State uint8

const (
	// Betting seats can still act.
	Betting State = iota
	// Folding seats have surrendered any claim on the pot.
	Folding
	// Shoving seats have committed their entire stack and cannot act again.
	Shoving
)

func (s State) String() string {
	switch s {
	case Betting:
		return "betting"
	case Folding:
		return "folding"
	case Shoving:
		return "shoving"
	default:
		return "unknown"
	}
}

// Seat is one player's chips and cards at a point in a hand. Stack is
// chips not yet committed to the pot, Stake is chips committed on the
// current street, and Spent is the running total committed this hand.
type Seat struct {
	Stack int
	Stake int
	Spent int
	Cards poker.Hand
	State State
}

// NewSeat seats a player with stack chips and no cards dealt yet.
func NewSeat(stack int) Seat {
	return Seat{Stack: stack, State: Betting}
}

// Acting reports whether the seat can still be asked to act this hand.
func (s Seat) Acting() bool {
	return s.State == Betting
}

// commit moves c chips from Stack into Stake and Spent, clamping to the
// chips actually available so a Shove never drives Stack negative.
func (s *Seat) commit(c int) {
	if c > s.Stack {
		c = s.Stack
	}
	s.Stack -= c
	s.Stake += c
	s.Spent += c
}
