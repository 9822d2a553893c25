package abstraction

import "gonum.org/v1/gonum/floats"

// Histogram is a probability distribution over next-street Abstractions,
// built by sampling many run-outs from one Isomorphism and tallying which
// next-street cluster each one lands in.
type Histogram struct {
	sum     int
	weights map[Abstraction]int
}

// NewHistogram tallies a slice of sampled next-street Abstractions into a
// Histogram.
func NewHistogram(samples []Abstraction) Histogram {
	weights := make(map[Abstraction]int, len(samples))
	for _, a := range samples {
		weights[a]++
	}
	return Histogram{sum: len(samples), weights: weights}
}

// Weight returns the empirical probability mass on a, zero if a was never
// sampled.
func (h Histogram) Weight(a Abstraction) float64 {
	if h.sum == 0 {
		return 0
	}
	return float64(h.weights[a]) / float64(h.sum)
}

// Domain returns every Abstraction with nonzero mass, in no particular
// order.
func (h Histogram) Domain() []Abstraction {
	domain := make([]Abstraction, 0, len(h.weights))
	for a := range h.weights {
		domain = append(domain, a)
	}
	return domain
}

// Size is the number of distinct Abstractions with nonzero mass.
func (h Histogram) Size() int {
	return len(h.weights)
}

// Merge folds other's samples into h, mutating h in place.
func (h *Histogram) Merge(other Histogram) {
	if h.weights == nil {
		h.weights = make(map[Abstraction]int, len(other.weights))
	}
	h.sum += other.sum
	for a, n := range other.weights {
		h.weights[a] += n
	}
}

// Vector projects the histogram onto a dense probability vector over the
// given ordered domain, suitable for gonum vector arithmetic.
func (h Histogram) Vector(domain []Abstraction) []float64 {
	v := make([]float64, len(domain))
	for i, a := range domain {
		v[i] = h.Weight(a)
	}
	return v
}

// CDF returns the cumulative distribution function of h evaluated over
// domain, assumed already sorted in the order equity-variation distance
// wants to walk it.
func (h Histogram) CDF(domain []Abstraction) []float64 {
	cdf := h.Vector(domain)
	floats.CumSum(cdf, cdf)
	return cdf
}
