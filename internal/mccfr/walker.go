package mccfr

// Walk computes each seat's expected value over t, reading the current
// policy at each of the walker's choice nodes from table, and returns
// that value alongside the batch of Records describing how much each
// walker edge's regret and strategy-sum mass should change. Walk changes
// no regret or strategy-sum value in table — applying a batch is
// Table.Submit's job, the seam a Storage sits behind so concurrent
// workers only ever change the blueprint through the submit boundary.
// Reading policy does add an empty Entry, or a zeroed edge slot, for an
// infoset or edge seen for the first time.
//
// Because nodes are appended to t.nodes in the order Build first visits
// them, no child ever precedes its parent in the slice: a single
// forward pass is enough to propagate reach probabilities down, and a
// single reverse pass is enough to fold values back up.
func Walk(t *Tree, table *Table) ([2]float64, []Record) {
	n := len(t.nodes)
	reach := make([][2]float64, n)
	policies := make([][]float64, n)
	if n > 0 {
		reach[0] = [2]float64{1, 1}
	}

	for i := 0; i < n; i++ {
		nd := &t.nodes[i]
		switch {
		case nd.terminal:
			continue
		case nd.chance:
			reach[nd.children[0]] = reach[i]
		case len(nd.edges) == 0:
			continue
		default:
			policy := table.Get(nd.info).Policy(nd.edges)
			policies[i] = policy
			for e, child := range nd.children {
				if nd.seat != t.walker && e != nd.sampled {
					continue
				}
				r := reach[i]
				r[nd.seat] *= policy[e]
				reach[child] = r
			}
		}
	}

	var records []Record
	value := make([][2]float64, n)
	for i := n - 1; i >= 0; i-- {
		nd := &t.nodes[i]
		switch {
		case nd.terminal:
			value[i] = nd.payoff

		case nd.chance:
			value[i] = value[nd.children[0]]

		case len(nd.edges) == 0:
			value[i] = [2]float64{}

		case nd.seat == t.walker:
			policy := policies[i]
			util := make([][2]float64, len(nd.edges))
			var nodeValue [2]float64
			for e, child := range nd.children {
				util[e] = value[child]
				nodeValue[0] += policy[e] * util[e][0]
				nodeValue[1] += policy[e] * util[e][1]
			}
			value[i] = nodeValue

			opponent := 1 - nd.seat
			selfReach := reach[i][nd.seat]
			opponentReach := reach[i][opponent]
			for e, c := range nd.edges {
				records = append(records, Record{
					Info:   nd.info,
					Edge:   c,
					Gain:   opponentReach * (util[e][nd.seat] - nodeValue[nd.seat]),
					Weight: selfReach * policy[e],
				})
			}

		default:
			value[i] = value[nd.children[nd.sampled]]
		}
	}

	return value[0], records
}
