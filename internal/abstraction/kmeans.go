package abstraction

import (
	"context"
	"math"
	"math/rand"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Clusterer assigns Histograms to K centroids via k-means++ initialization
// followed by Elkan's triangle-inequality-accelerated Lloyd's algorithm.
// Distance between two Histograms is EMD under the metric of the
// *previous* street's Abstractions (the street one level down the
// clustering hierarchy); Distance between two centroids is the same EMD
// applied to their running-average histograms.
type Clusterer struct {
	K       int
	Metric  *Metric
	RNG     *rand.Rand
	distant func(a, b Histogram) float64
}

// NewClusterer builds a Clusterer over k centroids, measuring distance
// between histograms with metric's EMD implementation.
func NewClusterer(k int, metric *Metric, rng *rand.Rand, isRiver bool) *Clusterer {
	return &Clusterer{
		K:      k,
		Metric: metric,
		RNG:    rng,
		distant: func(a, b Histogram) float64 {
			return metric.EMD(a, b, isRiver)
		},
	}
}

// Assignment is the outcome of clustering: for every input point, the
// index into Centroids it was assigned to.
type Assignment struct {
	Centroids []Histogram
	Labels    []int
}

// Cluster runs k-means++ initialization followed by Elkan-accelerated
// Lloyd's iterations on points until assignments stop changing or
// maxIterations is reached. At least one iteration always runs, so every
// point is labeled even when maxIterations is zero.
func (c *Clusterer) Cluster(ctx context.Context, points []Histogram, maxIterations int) (Assignment, error) {
	centroids := c.initPlusPlus(points)
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = -1
	}

	upper := make([]float64, len(points))
	lower := make([][]float64, len(points))
	for i := range lower {
		lower[i] = make([]float64, c.K)
	}

	for iter := 0; iter < max(maxIterations, 1); iter++ {
		half := centroidHalfDistances(centroids, c.distant)

		changed, err := c.assign(ctx, points, centroids, labels, upper, lower, half)
		if err != nil {
			return Assignment{}, err
		}

		next := c.recompute(points, labels, centroids)
		c.reseedEmpty(points, labels, next)
		// A centroid that moved by drift is at most drift closer to, or
		// farther from, any point: widen the bounds so the skips stay safe.
		for k := range next {
			drift := c.distant(centroids[k], next[k])
			for i := range points {
				lower[i][k] = math.Max(lower[i][k]-drift, 0)
				if labels[i] == k {
					upper[i] += drift
				}
			}
		}
		centroids = next

		if changed == 0 && iter > 0 {
			break
		}
	}

	return Assignment{Centroids: centroids, Labels: labels}, nil
}

// initPlusPlus seeds K centroids with k-means++: the first is uniform
// random, each subsequent centroid is sampled with probability
// proportional to its squared distance from the nearest already-chosen
// centroid, which spreads the initial centroids out and shortens
// subsequent Lloyd convergence.
func (c *Clusterer) initPlusPlus(points []Histogram) []Histogram {
	centroids := make([]Histogram, 0, c.K)
	centroids = append(centroids, points[c.RNG.Intn(len(points))])

	minDist := make([]float64, len(points))
	for i := range minDist {
		minDist[i] = math.Inf(1)
	}

	for len(centroids) < c.K {
		last := centroids[len(centroids)-1]
		total := 0.0
		for i, p := range points {
			d := c.distant(p, last)
			if d*d < minDist[i] {
				minDist[i] = d * d
			}
			total += minDist[i]
		}
		if total == 0 {
			centroids = append(centroids, points[c.RNG.Intn(len(points))])
			continue
		}
		target := c.RNG.Float64() * total
		cum := 0.0
		chosen := len(points) - 1
		for i := range points {
			cum += minDist[i]
			if cum >= target {
				chosen = i
				break
			}
		}
		centroids = append(centroids, points[chosen])
	}
	return centroids
}

// centroidHalfDistances computes s(c) = min over c' != c of d(c, c')/2,
// Elkan's Lemma-1 bound: any point whose upper bound to its current
// centroid is already below s(c) cannot possibly be reassigned away from
// it, letting assign skip the full distance recomputation.
func centroidHalfDistances(centroids []Histogram, distant func(a, b Histogram) float64) []float64 {
	half := make([]float64, len(centroids))
	for i := range half {
		half[i] = math.Inf(1)
	}
	for i := range centroids {
		for j := i + 1; j < len(centroids); j++ {
			d := distant(centroids[i], centroids[j]) / 2
			if d < half[i] {
				half[i] = d
			}
			if d < half[j] {
				half[j] = d
			}
		}
	}
	return half
}

func (c *Clusterer) assign(ctx context.Context, points []Histogram, centroids []Histogram, labels []int, upper []float64, lower [][]float64, half []float64) (int, error) {
	changed := 0
	var mu chanChangeCounter

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i := range points {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if labels[i] >= 0 && upper[i] <= half[labels[i]] {
				return nil // Lemma 1: cannot have moved, skip full recomputation.
			}

			best := labels[i]
			bestDist := math.Inf(1)
			for k, centroid := range centroids {
				if labels[i] >= 0 && k == labels[i] {
					d := c.distant(points[i], centroid)
					lower[i][k] = d
					if d < bestDist {
						bestDist = d
						best = k
					}
					continue
				}
				if labels[i] >= 0 && lower[i][k] >= bestDist {
					continue // Lemma 2: already farther than the current best.
				}
				d := c.distant(points[i], centroid)
				lower[i][k] = d
				if d < bestDist {
					bestDist = d
					best = k
				}
			}

			upper[i] = bestDist
			if best != labels[i] {
				labels[i] = best
				mu.mark()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	changed = mu.count()
	return changed, nil
}

type chanChangeCounter struct {
	n int64
}

func (c *chanChangeCounter) mark()      { atomic.AddInt64(&c.n, 1) }
func (c *chanChangeCounter) count() int { return int(atomic.LoadInt64(&c.n)) }

// recompute folds every assigned point's histogram into its centroid's
// running average.
func (c *Clusterer) recompute(points []Histogram, labels []int, prev []Histogram) []Histogram {
	next := make([]Histogram, len(prev))
	for i, label := range labels {
		next[label].Merge(points[i])
	}
	for k := range next {
		if next[k].sum == 0 {
			next[k] = prev[k]
		}
	}
	return next
}

// reseedEmpty re-seeds any centroid that ended the round with no
// assigned points by stealing a point from the largest remaining
// cluster, preventing k-means from silently collapsing to fewer than K
// clusters.
func (c *Clusterer) reseedEmpty(points []Histogram, labels []int, centroids []Histogram) {
	counts := make([]int, len(centroids))
	for _, l := range labels {
		counts[l]++
	}
	for k, n := range counts {
		if n > 0 {
			continue
		}
		donor := 0
		for j, cn := range counts {
			if cn > counts[donor] {
				donor = j
			}
		}
		for i, l := range labels {
			if l == donor {
				labels[i] = k
				centroids[k] = points[i]
				counts[donor]--
				counts[k]++
				break
			}
		}
	}
}
