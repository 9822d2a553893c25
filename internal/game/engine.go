package game

import (
	"fmt"

	"github.com/lox/nlhe-blueprint/poker"
)

// Kind discriminates the seven concrete actions the engine accepts.
type Kind uint8

const (
	Draw Kind = iota
	Check
	Fold
	Call
	Raise
	Blind
	Shove
)

func (k Kind) String() string {
	switch k {
	case Draw:
		return "draw"
	case Check:
		return "check"
	case Fold:
		return "fold"
	case Call:
		return "call"
	case Raise:
		return "raise"
	case Blind:
		return "blind"
	case Shove:
		return "shove"
	default:
		return "unknown"
	}
}

// Action is a concrete, chip-denominated move applied to a Game. Chips
// is meaningful for every Kind except Draw, for which Board carries the
// cards being revealed.
type Action struct {
	Kind  Kind
	Chips int
	Board poker.Hand
}

// TurnKind discriminates whose move it is, if anyone's.
type TurnKind uint8

const (
	// TurnChoice means a seat has a decision to make.
	TurnChoice TurnKind = iota
	// TurnChance means a board card is due and no seat acts.
	TurnChance
	// TurnTerminal means the hand is over and ready for Settle.
	TurnTerminal
)

// Turn describes what happens next in a Game. Seat is only meaningful
// when Kind is TurnChoice.
type Turn struct {
	Kind TurnKind
	Seat int
}

// Game is the heads-up table state the MCCFR tree walks. The acting
// seat is never stored directly: it is derived from Dealer and Ticker
// every time Next is called.
type Game struct {
	Seats  [2]Seat
	Pot    int
	Board  poker.Hand
	Dealer int
	Ticker int

	SmallBlind int
	BigBlind   int
}

// New starts a fresh hand with the given starting stacks, dealer seat,
// and blind sizes. No cards are dealt; callers deal Cards into each Seat
// and apply the Blind actions to begin play.
func New(stacks [2]int, dealer, smallBlind, bigBlind int) *Game {
	return &Game{
		Seats:      [2]Seat{NewSeat(stacks[0]), NewSeat(stacks[1])},
		Dealer:     dealer,
		SmallBlind: smallBlind,
		BigBlind:   bigBlind,
	}
}

// Next derives the current Turn without mutating the Game.
func (g *Game) Next() Turn {
	if g.showdownReached() {
		return Turn{Kind: TurnTerminal}
	}
	if g.Board.Count() < 5 && g.streetClosed() {
		return Turn{Kind: TurnChance}
	}
	return Turn{Kind: TurnChoice, Seat: (g.Dealer + g.Ticker) % 2}
}

// opponent returns the other seat's index.
func opponent(seat int) int {
	return 1 - seat
}

// showdownReached reports whether the hand is already decided: at most
// one seat remains able to contest the pot.
func (g *Game) showdownReached() bool {
	if g.Seats[0].State == Folding || g.Seats[1].State == Folding {
		return true
	}
	return g.Board.Count() == 5 && g.streetClosed()
}

// streetClosed reports whether the current street's betting is settled:
// every seat still Betting has matched the effective stake, and both
// seats have had at least one chance to act since the last board card
// (or no further decision is possible because fewer than two seats can
// still act). Preflop, the two blind posts do not count as chances to
// act, so the big blind still gets its option after the small blind calls.
func (g *Game) streetClosed() bool {
	acting := 0
	for _, s := range g.Seats {
		if s.Acting() {
			acting++
		}
	}

	matched := g.Seats[0].State == Folding || g.Seats[1].State == Folding ||
		g.Seats[0].Stake == g.Seats[1].Stake

	if !matched {
		return false
	}
	if acting < 2 {
		return true
	}
	if g.Board.Count() == 0 {
		return g.Ticker >= 4
	}
	return g.Ticker >= 2
}

// effectiveStake is the largest Stake committed by any non-folded seat
// this street — the amount a caller must match.
func (g *Game) effectiveStake() int {
	top := 0
	for _, s := range g.Seats {
		if s.State != Folding && s.Stake > top {
			top = s.Stake
		}
	}
	return top
}

// stakesDescending returns the non-folded seats' stakes, highest first.
func (g *Game) stakesDescending() []int {
	stakes := make([]int, 0, 2)
	for _, s := range g.Seats {
		if s.State != Folding {
			stakes = append(stakes, s.Stake)
		}
	}
	if len(stakes) == 2 && stakes[0] < stakes[1] {
		stakes[0], stakes[1] = stakes[1], stakes[0]
	}
	return stakes
}

// minRaise is the smallest legal raise size (as an additional chip
// commitment on top of seat's own Stake) available to seat.
func (g *Game) minRaise(seat int) int {
	stakes := g.stakesDescending()
	top := 0
	second := 0
	if len(stakes) > 0 {
		top = stakes[0]
	}
	if len(stakes) > 1 {
		second = stakes[1]
	}

	gap := top - second
	if gap < g.BigBlind {
		gap = g.BigBlind
	}

	target := g.effectiveStake() + gap
	if target < g.BigBlind {
		target = g.BigBlind
	}
	return target - g.Seats[seat].Stake
}

// LegalActions enumerates the moves available to the acting seat. It
// panics if called when Next is not TurnChoice.
func (g *Game) LegalActions() []Action {
	turn := g.Next()
	if turn.Kind != TurnChoice {
		panic("game: LegalActions called outside a choice turn")
	}
	seat := turn.Seat

	if g.Board.Count() == 0 && g.Pot < g.SmallBlind+g.BigBlind {
		blind := g.SmallBlind
		if g.Pot == g.SmallBlind {
			blind = g.BigBlind
		}
		return []Action{{Kind: Blind, Chips: blind}}
	}

	own := g.Seats[seat]
	toCall := g.effectiveStake() - own.Stake

	actions := make([]Action, 0, 4)
	if toCall == 0 {
		actions = append(actions, Action{Kind: Check})
	} else {
		actions = append(actions, Action{Kind: Fold})
		if toCall < own.Stack {
			actions = append(actions, Action{Kind: Call, Chips: toCall})
		}
	}

	if raise := g.minRaise(seat); raise > 0 && raise < own.Stack {
		actions = append(actions, Action{Kind: Raise, Chips: raise})
	}
	if own.Stack > 0 {
		actions = append(actions, Action{Kind: Shove, Chips: own.Stack})
	}
	return actions
}

// Apply transitions the Game by one action taken by the currently
// acting seat (or, for Draw, by the dealer revealing board cards).
func (g *Game) Apply(action Action) error {
	switch action.Kind {
	case Draw:
		return g.applyDraw(action)
	case Check:
		return g.applyCheck()
	case Fold:
		return g.applyFold()
	case Call, Raise:
		return g.applyCommit(action, false)
	case Blind:
		return g.applyCommit(action, false)
	case Shove:
		return g.applyCommit(action, true)
	default:
		return fmt.Errorf("game: unknown action kind %v", action.Kind)
	}
}

func (g *Game) applyDraw(action Action) error {
	if turn := g.Next(); turn.Kind != TurnChance {
		return fmt.Errorf("game: Draw applied outside a chance turn")
	}
	g.Board = g.Board.Union(action.Board)
	for i := range g.Seats {
		g.Seats[i].Stake = 0
	}
	g.Ticker = 0
	return nil
}

func (g *Game) applyCheck() error {
	if _, err := g.actingSeat(); err != nil {
		return err
	}
	g.advance()
	return nil
}

func (g *Game) applyFold() error {
	seat, err := g.actingSeat()
	if err != nil {
		return err
	}
	g.Seats[seat].State = Folding
	g.advance()
	return nil
}

func (g *Game) applyCommit(action Action, shoving bool) error {
	seat, err := g.actingSeat()
	if err != nil {
		return err
	}
	g.Seats[seat].commit(action.Chips)
	g.Pot += action.Chips
	if shoving {
		g.Seats[seat].State = Shoving
	}
	g.advance()
	return nil
}

func (g *Game) actingSeat() (int, error) {
	turn := g.Next()
	if turn.Kind != TurnChoice {
		return 0, fmt.Errorf("game: action applied outside a choice turn")
	}
	return turn.Seat, nil
}

// advance moves the ticker to the next seat able to act, per the spec's
// "advance ticker past the next non-Folding/Shoving seat" rule. With two
// seats this skips at most once.
func (g *Game) advance() {
	g.Ticker++
	next := (g.Dealer + g.Ticker) % 2
	if !g.Seats[next].Acting() {
		g.Ticker++
	}
}
