package abstraction

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// DefaultEpsilon is the entropic regularization strength used by Sinkhorn
// scaling. Smaller values track the true earth-mover distance more
// closely at the cost of more iterations to converge.
const DefaultEpsilon = 1e-2

// DefaultIterations bounds how many Sinkhorn potential updates run before
// the fixed point is accepted, regardless of convergence.
const DefaultIterations = 100

// Sinkhorn computes the entropy-regularized earth-mover distance between
// mu and nu under metric, via alternating log-domain potential updates
// (the Kantorovich-Rubinstein dual). It is symmetric up to the fixed
// iteration budget and self-annihilates as epsilon shrinks.
func Sinkhorn(mu, nu Histogram, metric *Metric, epsilon float64, iterations int) float64 {
	support := mu.Domain()
	target := nu.Domain()
	if len(support) == 0 || len(target) == 0 {
		return 0
	}

	lhs := make([]float64, len(support))
	rhs := make([]float64, len(target))

	kernel := func(x, y Abstraction) float64 { return metric.Distance(x, y) / epsilon }

	for iter := 0; iter < iterations; iter++ {
		for i, x := range support {
			lhs[i] = potentialEnergy(x, mu, target, rhs, kernel)
		}
		for j, y := range target {
			rhs[j] = potentialEnergy(y, nu, support, lhs, func(a, b Abstraction) float64 { return kernel(b, a) })
		}
	}

	var cost float64
	for i, x := range support {
		for j, y := range target {
			flow := math.Exp(lhs[i] + rhs[j] - kernel(x, y))
			cost += flow * metric.Distance(x, y)
		}
	}
	return cost
}

// potentialEnergy computes one side's next log-domain potential value for
// abstraction a: log density(a) minus the log-sum-exp of the opposing
// potential shifted by the regularized kernel.
func potentialEnergy(a Abstraction, histogram Histogram, opposingSupport []Abstraction, opposingPotential []float64, kernel func(Abstraction, Abstraction) float64) float64 {
	logDensity := math.Log(histogram.Weight(a))

	terms := make([]float64, len(opposingSupport))
	for i, b := range opposingSupport {
		terms[i] = opposingPotential[i] - kernel(a, b)
	}
	return logDensity - logSumExp(terms)
}

func logSumExp(xs []float64) float64 {
	if len(xs) == 0 {
		return math.Inf(-1)
	}
	max := floats.Max(xs)
	if math.IsInf(max, -1) {
		return max
	}
	sum := 0.0
	for _, x := range xs {
		sum += math.Exp(x - max)
	}
	return max + math.Log(sum)
}

// Greedy computes an unregularized approximate transport cost by
// repeatedly matching the largest remaining source mass to its nearest
// remaining sink mass. It is O(|support| * |target|) per round versus
// Sinkhorn's iterative fixed point. Neither the clustering inner loop nor
// the metric tables call it: Metric.EMD uses EquityVariation or Sinkhorn.
func Greedy(mu, nu Histogram, metric *Metric) float64 {
	type mass struct {
		a Abstraction
		w float64
	}

	source := make([]mass, 0, mu.Size())
	for _, a := range mu.Domain() {
		source = append(source, mass{a, mu.Weight(a)})
	}
	sink := make([]mass, 0, nu.Size())
	for _, a := range nu.Domain() {
		sink = append(sink, mass{a, nu.Weight(a)})
	}

	sort.Slice(source, func(i, j int) bool { return source[i].w > source[j].w })

	var cost float64
	for si := range source {
		remaining := source[si].w
		for remaining > 1e-12 {
			best := -1
			bestDist := math.Inf(1)
			for j, sk := range sink {
				if sk.w <= 1e-12 {
					continue
				}
				if d := metric.Distance(source[si].a, sk.a); d < bestDist {
					bestDist = d
					best = j
				}
			}
			if best < 0 {
				break
			}
			move := math.Min(remaining, sink[best].w)
			cost += move * bestDist
			remaining -= move
			sink[best].w -= move
		}
	}
	return cost
}

// EquityVariation is the river-only distance shortcut: river Abstractions
// are raw equity percentiles rather than learned clusters, so instead of
// running transport we compute the ℓ¹ distance between the two
// histograms' cumulative distribution functions over the shared,
// sorted domain.
func EquityVariation(mu, nu Histogram) float64 {
	seen := make(map[Abstraction]bool)
	for _, a := range mu.Domain() {
		seen[a] = true
	}
	for _, a := range nu.Domain() {
		seen[a] = true
	}
	domain := make([]Abstraction, 0, len(seen))
	for a := range seen {
		domain = append(domain, a)
	}
	sort.Slice(domain, func(i, j int) bool { return domain[i] < domain[j] })

	muCDF := mu.CDF(domain)
	nuCDF := nu.CDF(domain)

	var total float64
	for i := range domain {
		total += math.Abs(muCDF[i] - nuCDF[i])
	}
	return total
}
