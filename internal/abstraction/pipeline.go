package abstraction

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/lox/nlhe-blueprint/poker"
	"github.com/rs/zerolog/log"
)

// StreetConfig fixes the cluster count and sampling budget used to build
// one street's abstraction.
type StreetConfig struct {
	Street     poker.Street
	Clusters   int // cluster count, ignored on the river
	Samples    int // histogram samples per isomorphism, ignored on the river
	Iterations int // Lloyd iteration budget
}

// DefaultStreetConfigs is the pretraining plan this module ships with:
// river buckets are raw equity percentiles (no clustering needed), and
// each earlier street clusters histograms over the street below it.
func DefaultStreetConfigs() []StreetConfig {
	return []StreetConfig{
		{Street: poker.Rive, Clusters: 50, Samples: 0, Iterations: 0},
		{Street: poker.Turn, Clusters: 200, Samples: 500, Iterations: 20},
		{Street: poker.Flop, Clusters: 200, Samples: 500, Iterations: 20},
		{Street: poker.Pref, Clusters: 169, Samples: 0, Iterations: 0},
	}
}

// Pipeline drives the bottom-up Rive -> Turn -> Flop -> Pref clustering
// order: a street's Abstraction can only be built once the street below
// it already has a frozen Encoder and Metric, because that street's
// Histograms are distributions over the lower street's clusters.
type Pipeline struct {
	Configs []StreetConfig
	RNG     *rand.Rand

	encoders   map[poker.Street]Encoder
	metrics    map[poker.Street]*Metric
	histograms map[poker.Street]map[Abstraction]Histogram
}

// NewPipeline builds a Pipeline with the given street plan and RNG seed.
func NewPipeline(configs []StreetConfig, rng *rand.Rand) *Pipeline {
	return &Pipeline{
		Configs:    configs,
		RNG:        rng,
		encoders:   make(map[poker.Street]Encoder),
		metrics:    make(map[poker.Street]*Metric),
		histograms: make(map[poker.Street]map[Abstraction]Histogram),
	}
}

// Encoder returns the frozen Encoder for street, or nil if it hasn't been
// built yet.
func (p *Pipeline) Encoder(street poker.Street) Encoder {
	return p.encoders[street]
}

// Metric returns the pairwise distance table for street, or nil if it
// hasn't been built yet.
func (p *Pipeline) Metric(street poker.Street) *Metric {
	return p.metrics[street]
}

// Histograms returns, for every cluster built on street, the centroid
// distribution over the street below it that produced the cluster. Rive
// has none, since its buckets come from raw equity rather than
// clustering a histogram.
func (p *Pipeline) Histograms(street poker.Street) map[Abstraction]Histogram {
	return p.histograms[street]
}

// Run builds every configured street's Abstraction in order, skipping any
// street already present in already (as reported by a prior run's
// persisted checkpoint), logging progress the way the orchestrator's
// training loop does.
func (p *Pipeline) Run(ctx context.Context, already map[poker.Street]bool) error {
	for _, cfg := range p.Configs {
		if already[cfg.Street] {
			log.Info().Str("street", cfg.Street.String()).Msg("skipping street, already clustered")
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		log.Info().Str("street", cfg.Street.String()).Int("clusters", cfg.Clusters).Msg("clustering street")

		switch cfg.Street {
		case poker.Rive:
			if err := p.buildRiver(cfg); err != nil {
				return fmt.Errorf("abstraction: river: %w", err)
			}
		default:
			if err := p.buildUpperStreet(ctx, cfg); err != nil {
				return fmt.Errorf("abstraction: %s: %w", cfg.Street, err)
			}
		}
	}
	return nil
}

// buildRiver buckets every river Isomorphism directly by its equity
// percentile, round(equity*100) in 0..100, so cfg.Clusters is not used;
// no histogram or clustering step is needed because equity is already a
// scalar. The river Metric records |i-j|/100 for each pair of percentiles.
func (p *Pipeline) buildRiver(cfg StreetConfig) error {
	mutable := NewMapEncoder()

	isomorphisms := poker.EnumerateIsomorphisms(poker.Rive)
	for _, iso := range isomorphisms {
		eq, err := iso.Observation().Equity(context.Background())
		if err != nil {
			return err
		}
		bucket := int(math.Round(eq * 100))
		mutable.Set(iso, NewAbstraction(poker.Rive, bucket))
	}

	frozen, err := FreezeEncoder(mutable)
	if err != nil {
		return err
	}
	p.encoders[poker.Rive] = frozen
	metric := NewMetric(nil)
	for i := 0; i < 100; i++ {
		for j := i + 1; j <= 100; j++ {
			metric.Set(NewAbstraction(poker.Rive, i), NewAbstraction(poker.Rive, j), float64(j-i)/100)
		}
	}
	p.metrics[poker.Rive] = metric
	return nil
}

// buildUpperStreet clusters every Isomorphism's sampled next-street
// histogram using the already-frozen Encoder one level down, then freezes
// both the resulting Encoder and the pairwise centroid Metric.
func (p *Pipeline) buildUpperStreet(ctx context.Context, cfg StreetConfig) error {
	below := cfg.Street.Next()
	belowEncoder := p.encoders[below]
	if belowEncoder == nil {
		return fmt.Errorf("abstraction: street %s has no lower-street encoder built yet", below)
	}

	isomorphisms := poker.EnumerateIsomorphisms(cfg.Street)
	points := make([]Histogram, len(isomorphisms))
	for i, iso := range isomorphisms {
		points[i] = sampleHistogram(iso, belowEncoder, cfg.Samples, p.RNG)
	}

	isRiver := below == poker.Rive
	clusterer := NewClusterer(cfg.Clusters, p.metrics[below], p.RNG, isRiver)
	result, err := clusterer.Cluster(ctx, points, cfg.Iterations)
	if err != nil {
		return err
	}

	mutable := NewMapEncoder()
	for i, iso := range isomorphisms {
		mutable.Set(iso, NewAbstraction(cfg.Street, result.Labels[i]))
	}
	frozen, err := FreezeEncoder(mutable)
	if err != nil {
		return err
	}
	p.encoders[cfg.Street] = frozen

	metric := NewMetric(nil)
	histograms := make(map[Abstraction]Histogram, len(result.Centroids))
	for i := range result.Centroids {
		histograms[NewAbstraction(cfg.Street, i)] = result.Centroids[i]
		for j := i + 1; j < len(result.Centroids); j++ {
			d := Sinkhorn(result.Centroids[i], result.Centroids[j], p.metrics[below], DefaultEpsilon, DefaultIterations)
			metric.Set(NewAbstraction(cfg.Street, i), NewAbstraction(cfg.Street, j), d)
		}
	}
	p.metrics[cfg.Street] = metric
	p.histograms[cfg.Street] = histograms

	return nil
}

// sampleHistogram draws up to `samples` child observations of iso (all of
// them, if the true branching factor is smaller) and tallies which
// lower-street bucket each one encodes to.
func sampleHistogram(iso poker.Isomorphism, belowEncoder Encoder, samples int, rng *rand.Rand) Histogram {
	children := iso.Observation().Children()
	if samples <= 0 || samples >= len(children) {
		buckets := make([]Abstraction, len(children))
		for i, child := range children {
			buckets[i] = belowEncoder.Encode(poker.NewIsomorphism(child))
		}
		return NewHistogram(buckets)
	}

	buckets := make([]Abstraction, samples)
	for i := 0; i < samples; i++ {
		child := children[rng.Intn(len(children))]
		buckets[i] = belowEncoder.Encode(poker.NewIsomorphism(child))
	}
	return NewHistogram(buckets)
}
