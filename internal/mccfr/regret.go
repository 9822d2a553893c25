// Package mccfr implements external-sampling Monte-Carlo counterfactual
// regret minimization over the abstracted heads-up game: a sharded
// regret-matching+ table with a discounted-CFR update schedule, and a
// tree walker that samples the opponent's edges while expanding the
// walker's own.
package mccfr

import (
	"math"
	"sync"

	"github.com/lox/nlhe-blueprint/internal/edge"
)

// PolicyMin floors regret-matching+ so a never-visited edge still gets a
// sliver of probability mass instead of dividing by zero.
const PolicyMin = 1e-6

// RegretMax/RegretMin clamp the per-iteration regret delta applied to an
// infoset, and the accumulated regret is floored at RegretMin, per
// spec.md's DCFR update.
const (
	RegretMax = 1e6
	RegretMin = -1e6
)

// Entry accumulates regret and strategy-sum mass per Edge for one Info.
// Edges are tracked in first-seen order; index maps an Edge to its slot.
type Entry struct {
	mu      sync.Mutex
	edges   []edge.Edge
	index   map[edge.Edge]int
	regret  []float64
	average []float64
}

func newEntry() *Entry {
	return &Entry{index: make(map[edge.Edge]int)}
}

// slot returns e's index, growing the entry's slices if e is new.
func (n *Entry) slot(e edge.Edge) int {
	if i, ok := n.index[e]; ok {
		return i
	}
	i := len(n.edges)
	n.index[e] = i
	n.edges = append(n.edges, e)
	n.regret = append(n.regret, 0)
	n.average = append(n.average, 0)
	return i
}

// Edges returns the edges visited at this entry so far, in first-seen
// order, the same order Policy and AverageStrategy expect.
func (n *Entry) Edges() []edge.Edge {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]edge.Edge, len(n.edges))
	copy(out, n.edges)
	return out
}

// Cell is one edge's raw (average-policy, regret) accumulator, the unit
// a Storage's memory(info) read exposes. Unlike Policy/AverageStrategy
// these are not normalized into a distribution.
type Cell struct {
	Policy float64
	Regret float64
}

// Cells snapshots every edge's raw accumulator.
func (n *Entry) Cells(edges []edge.Edge) map[edge.Edge]Cell {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make(map[edge.Edge]Cell, len(edges))
	for _, e := range edges {
		i := n.slot(e)
		out[e] = Cell{Policy: n.average[i], Regret: n.regret[i]}
	}
	return out
}

// Policy returns the regret-matching+ distribution over edges, in the
// same order as edges.
func (n *Entry) Policy(edges []edge.Edge) []float64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	policy := make([]float64, len(edges))
	total := 0.0
	for i, e := range edges {
		r := math.Max(n.regret[n.slot(e)], PolicyMin)
		policy[i] = r
		total += r
	}
	if total <= 0 {
		uniform := 1.0 / float64(len(edges))
		for i := range policy {
			policy[i] = uniform
		}
		return policy
	}
	for i := range policy {
		policy[i] /= total
	}
	return policy
}

// AverageStrategy returns the time-averaged policy over edges, the unit
// the blueprint ultimately persists and plays from.
func (n *Entry) AverageStrategy(edges []edge.Edge) []float64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]float64, len(edges))
	total := 0.0
	for i, e := range edges {
		v := n.average[n.slot(e)]
		out[i] = v
		total += v
	}
	if total <= 0 {
		uniform := 1.0 / float64(len(edges))
		for i := range out {
			out[i] = uniform
		}
		return out
	}
	for i := range out {
		out[i] /= total
	}
	return out
}

// Update applies one infoset's regret gains and policy contribution at
// the given DCFR epoch, discounting each edge's existing regret by its
// own sign before the new gain is folded in. It panics if either
// accumulator becomes NaN or infinite.
func (n *Entry) Update(edges []edge.Edge, gains, policy []float64, discount Discount, epoch int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	policyDiscount := discount.PolicyDiscount(epoch)
	for i, e := range edges {
		slot := n.slot(e)
		regretDiscount := discount.RegretDiscount(epoch, n.regret[slot])
		n.regret[slot] = math.Max(n.regret[slot]*regretDiscount+clamp(gains[i], RegretMin, RegretMax), RegretMin)
		n.average[slot] = n.average[slot]*policyDiscount + policy[i]
		if math.IsNaN(n.regret[slot]) || math.IsInf(n.regret[slot], 0) ||
			math.IsNaN(n.average[slot]) || math.IsInf(n.average[slot], 0) {
			panic("mccfr: non-finite regret or policy after update")
		}
	}
}

// Restore overwrites the entry's raw accumulators with values read back
// from a checkpoint, bypassing the discount schedule Update applies:
// a checkpoint already holds post-discount values, so replaying them
// through Update again would double-discount.
func (n *Entry) Restore(edges []edge.Edge, regret, average []float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, e := range edges {
		slot := n.slot(e)
		n.regret[slot] = regret[i]
		n.average[slot] = average[i]
	}
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Record is one infoset edge's regret gain and strategy-sum contribution
// from a single walked tree: the unit a worker computes and hands across
// the submit boundary for a Table (or a Storage wrapping one) to apply.
// Gain and Weight are deltas, not absolute values — Submit folds them
// into whatever the table already holds for that edge under the DCFR
// discount schedule.
type Record struct {
	Info   edge.Info
	Edge   edge.Edge
	Gain   float64
	Weight float64
}

// Table is a sharded map from Info to Entry, read and written
// concurrently by every worker walking the tree.
type Table struct {
	shards [shardCount]shard
}

const shardCount = 64

type shard struct {
	mu      sync.RWMutex
	entries map[edge.Info]*Entry
}

// NewTable builds an empty regret table.
func NewTable() *Table {
	t := &Table{}
	for i := range t.shards {
		t.shards[i].entries = make(map[edge.Info]*Entry)
	}
	return t
}

// Get returns the Entry for info, creating it on first visit.
func (t *Table) Get(info edge.Info) *Entry {
	s := &t.shards[fnv1a(info)&(shardCount-1)]

	s.mu.RLock()
	e, ok := s.entries[info]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[info]; ok {
		return e
	}
	e = newEntry()
	s.entries[info] = e
	return e
}

// Size reports how many infosets have been visited.
func (t *Table) Size() int {
	total := 0
	for i := range t.shards {
		t.shards[i].mu.RLock()
		total += len(t.shards[i].entries)
		t.shards[i].mu.RUnlock()
	}
	return total
}

// Each calls fn for every (Info, Entry) pair, used by checkpoint
// persistence.
func (t *Table) Each(fn func(edge.Info, *Entry)) {
	for i := range t.shards {
		t.shards[i].mu.RLock()
		for k, v := range t.shards[i].entries {
			fn(k, v)
		}
		t.shards[i].mu.RUnlock()
	}
}

// Submit groups records by Info and applies each group's regret gain and
// policy-mass contribution through Entry.Update, discounted at epoch.
// This is the only path that changes a Table's regret or strategy-sum
// values: a worker's Walk only reads policy to sample and score a tree
// (adding empty entries for infosets it sees first), and hands the
// resulting Records back across this boundary to apply.
func (t *Table) Submit(records []Record, discount Discount, epoch int) {
	byInfo := make(map[edge.Info][]Record)
	for _, r := range records {
		byInfo[r.Info] = append(byInfo[r.Info], r)
	}
	for info, group := range byInfo {
		edges := make([]edge.Edge, len(group))
		gains := make([]float64, len(group))
		weights := make([]float64, len(group))
		for i, r := range group {
			edges[i] = r.Edge
			gains[i] = r.Gain
			weights[i] = r.Weight
		}
		t.Get(info).Update(edges, gains, weights, discount, epoch)
	}
}

func fnv1a(info edge.Info) uint32 {
	const offset32 = 2166136261
	const prime32 = 16777619
	hash := uint32(offset32)
	for _, b := range []uint64{uint64(info.History), uint64(info.Present), uint64(info.Choices)} {
		for i := 0; i < 8; i++ {
			hash ^= uint32(b >> (8 * i) & 0xFF)
			hash *= prime32
		}
	}
	return hash
}
