package game

import "github.com/lox/nlhe-blueprint/poker"

// Settlement is one seat's resolution at the end of a hand: how much it
// had risked, and how much of the pot it won back.
type Settlement struct {
	State    State
	Strength poker.Strength
	Risked   int
	Reward   int
}

// Settle resolves a terminal Game into one Settlement per seat, handling
// every side-pot configuration. strengths must give each seat's 7-card
// hand strength; it is only consulted for seats that reached showdown.
func Settle(g *Game, strengths [2]poker.Strength) [2]Settlement {
	settlements := [2]Settlement{}
	for i, s := range g.Seats {
		settlements[i] = Settlement{State: s.State, Strength: strengths[i], Risked: s.Spent}
	}

	remaining := make([]int, 0, 2)
	for i, s := range g.Seats {
		if s.State != Folding {
			remaining = append(remaining, i)
		}
	}

	if len(remaining) == 1 {
		settlements[remaining[0]].Reward = g.Pot
		return settlements
	}

	settled := make(map[int]bool)
	sPrev := 0

	for len(settled) < len(remaining) {
		// Pick the highest strength among unresolved, non-folded seats.
		best := -1
		for _, i := range remaining {
			if settled[i] {
				continue
			}
			if best == -1 || settlements[i].Strength > settlements[best].Strength {
				best = i
			}
		}

		// Among ties at that strength, find the smallest risked value
		// above the last settled level.
		sMin := -1
		for _, i := range remaining {
			if settled[i] {
				continue
			}
			if settlements[i].Strength != settlements[best].Strength {
				continue
			}
			risked := settlements[i].Risked
			if risked <= sPrev {
				continue
			}
			if sMin == -1 || risked < sMin {
				sMin = risked
			}
		}
		if sMin == -1 {
			// Every tied seat's risk is already exhausted at sPrev; mark
			// them settled and move on.
			for _, i := range remaining {
				if !settled[i] && settlements[i].Strength == settlements[best].Strength {
					settled[i] = true
				}
			}
			continue
		}

		winnings := 0
		for i := range g.Seats {
			risked := settlements[i].Risked
			capped := risked
			if capped > sMin {
				capped = sMin
			}
			contribution := capped - sPrev
			if contribution > 0 {
				winnings += contribution
			}
		}

		tied := make([]int, 0, 2)
		for _, i := range remaining {
			if !settled[i] && settlements[i].Strength == settlements[best].Strength && settlements[i].Risked >= sMin {
				tied = append(tied, i)
			}
		}

		share := winnings / len(tied)
		remainder := winnings % len(tied)
		for _, i := range tied {
			settlements[i].Reward += share
		}
		// Distribute the odd chips one at a time in seat order relative
		// to the dealer.
		for offset := 0; remainder > 0; offset++ {
			i := tied[(g.Dealer+offset)%len(tied)]
			settlements[i].Reward++
			remainder--
		}

		for _, i := range remaining {
			if settlements[i].Risked <= sMin {
				settled[i] = true
			}
		}
		sPrev = sMin
	}

	return settlements
}
