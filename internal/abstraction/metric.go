package abstraction

import "fmt"

// Metric is a flattened pairwise distance table between same-street
// Abstractions, populated once that street's k-means clustering settles
// on its final centroids. It never stores distance(a, a) = 0 explicitly;
// that case is handled by direct equality.
type Metric struct {
	distances map[Pair]float64
}

// NewMetric wraps a precomputed pairwise distance table.
func NewMetric(distances map[Pair]float64) *Metric {
	return &Metric{distances: distances}
}

// Distance looks up the distance between two same-street Abstractions.
// It panics if a pair was never recorded: every distinct pair of
// centroids must be populated before training begins, so a lookup miss
// means the metric was built incompletely.
func (m *Metric) Distance(x, y Abstraction) float64 {
	if x == y {
		return 0
	}
	d, ok := m.distances[NewPair(x, y)]
	if !ok {
		panic(fmt.Sprintf("abstraction: missing metric entry for pair %v/%v", x, y))
	}
	return d
}

// Set records the distance between two Abstractions. Distances are
// symmetric by construction (see Pair), so Set(x, y, d) also answers
// Distance(y, x).
func (m *Metric) Set(x, y Abstraction, d float64) {
	if m.distances == nil {
		m.distances = make(map[Pair]float64)
	}
	m.distances[NewPair(x, y)] = d
}

// Len reports how many distinct pairs are recorded.
func (m *Metric) Len() int {
	return len(m.distances)
}

// EMD computes the earth-mover distance between two histograms over this
// metric's Abstraction domain. River histograms (whose domain is raw
// equity percentiles rather than learned clusters) use the cheaper
// ℓ¹-CDF shortcut; every other street routes through Sinkhorn's
// entropy-regularized transport.
func (m *Metric) EMD(mu, nu Histogram, isRiver bool) float64 {
	if isRiver {
		return EquityVariation(mu, nu)
	}
	return Sinkhorn(mu, nu, m, DefaultEpsilon, DefaultIterations)
}
