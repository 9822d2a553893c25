// Package storage is the persistence boundary between MCCFR training and
// the hand abstraction: a read path over the frozen pretraining tables
// (encoder, metric, transitions, and the derived per-bucket equity
// table) and a read/write path over the blueprint's per-infoset memory,
// mutated only through submit and advance so concurrent workers never
// touch the underlying tables directly.
//
// The default backend below is in-process, generalizing the sharded
// regret table internal/mccfr already keeps into the full set of tables
// the contract names; a future backend can satisfy the same Store
// interface over a real database without touching a caller.
package storage

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/lox/nlhe-blueprint/internal/abstraction"
	"github.com/lox/nlhe-blueprint/internal/edge"
	"github.com/lox/nlhe-blueprint/internal/mccfr"
	"github.com/lox/nlhe-blueprint/poker"
)

// Record is one infoset edge's regret/policy delta, the unit Submit
// applies. It is mccfr's own type: a worker walking a sampled tree
// produces a batch of these, and handing them to Submit is the only way
// they ever reach the blueprint.
type Record = mccfr.Record

// Cell is the (average policy, regret) pair a Memory read returns for
// one edge.
type Cell = mccfr.Cell

// AbstractionStats is the derived per-bucket row spec's abstraction
// table keeps: how many isomorphisms fell into a bucket during
// pretraining, and that bucket's average showdown equity.
type AbstractionStats struct {
	Population int
	Equity     float64
}

// Store is the full persistence contract: Encode/Equity/Metric/Distance/
// Histogram are read-only views over tables pretraining fixes once,
// Memory is a read over the live blueprint, Submit/Advance are the only
// two operations that change the blueprint's values or the epoch, and
// Cluster writes one street's pretraining tables.
type Store interface {
	Encode(iso poker.Isomorphism, street poker.Street) (abstraction.Abstraction, error)
	Equity(a abstraction.Abstraction) (float64, error)
	Metric(street poker.Street) (*abstraction.Metric, error)
	Distance(street poker.Street, x, y abstraction.Abstraction) (float64, error)
	Histogram(a abstraction.Abstraction) (abstraction.Histogram, error)
	Memory(info edge.Info, edges []edge.Edge) map[edge.Edge]Cell

	Submit(records []Record) error
	Advance() int
	Epoch() int64
	Stats(a abstraction.Abstraction) (AbstractionStats, error)

	Clustered(street poker.Street) bool
	Cluster(street poker.Street, encoder abstraction.Encoder, metric *abstraction.Metric, histograms map[abstraction.Abstraction]abstraction.Histogram) error
	Encoders() map[poker.Street]abstraction.Encoder
	Abstractions(street poker.Street) []abstraction.Abstraction

	// Blueprint exposes the underlying regret table directly for the
	// one caller that must read current policy mid-walk: mccfr.Walk.
	Blueprint() *mccfr.Table
}

// MemoryStore is the in-process Store backend: one encoder/metric/
// histogram set per street, filled in once by pretraining, plus the
// sharded blueprint table every MCCFR worker reads and submits through.
type MemoryStore struct {
	mu         sync.RWMutex
	encoders   map[poker.Street]abstraction.Encoder
	metrics    map[poker.Street]*abstraction.Metric
	histograms map[abstraction.Abstraction]abstraction.Histogram
	stats      map[abstraction.Abstraction]AbstractionStats
	clustered  map[poker.Street]bool

	blueprint *mccfr.Table
	discount  mccfr.Discount
	epoch     atomic.Int64
}

// NewMemoryStore builds an empty store. discount fixes the DCFR schedule
// Submit applies to every regret/policy upsert.
func NewMemoryStore(discount mccfr.Discount) *MemoryStore {
	return &MemoryStore{
		encoders:   make(map[poker.Street]abstraction.Encoder),
		metrics:    make(map[poker.Street]*abstraction.Metric),
		histograms: make(map[abstraction.Abstraction]abstraction.Histogram),
		stats:      make(map[abstraction.Abstraction]AbstractionStats),
		clustered:  make(map[poker.Street]bool),
		blueprint:  mccfr.NewTable(),
		discount:   discount,
	}
}

// Encode looks up iso's Abstraction on street's frozen encoder.
func (m *MemoryStore) Encode(iso poker.Isomorphism, street poker.Street) (abstraction.Abstraction, error) {
	m.mu.RLock()
	enc, ok := m.encoders[street]
	m.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("storage: no encoder row for street %s", street)
	}
	return enc.Encode(iso), nil
}

// Equity returns a's derived average showdown equity: the raw percentile
// for a river bucket, or the weighted average of its child histogram's
// equities for every earlier street.
func (m *MemoryStore) Equity(a abstraction.Abstraction) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.equityLocked(a)
}

func (m *MemoryStore) equityLocked(a abstraction.Abstraction) (float64, error) {
	if a.Street() == poker.Rive {
		return float64(a.Index()) / 100, nil
	}
	hist, ok := m.histograms[a]
	if !ok {
		return 0, fmt.Errorf("storage: no abstraction row for %s", a)
	}
	var equity float64
	for _, child := range hist.Domain() {
		childEquity, err := m.equityLocked(child)
		if err != nil {
			return 0, err
		}
		equity += hist.Weight(child) * childEquity
	}
	return equity, nil
}

// Stats returns a's derived population and equity row, the materialized
// abstraction table spec's external schema describes.
func (m *MemoryStore) Stats(a abstraction.Abstraction) (AbstractionStats, error) {
	m.mu.RLock()
	population := m.stats[a].Population
	equity, err := m.equityLocked(a)
	m.mu.RUnlock()
	if err != nil {
		return AbstractionStats{}, err
	}
	return AbstractionStats{Population: population, Equity: equity}, nil
}

// Metric returns street's frozen pairwise distance table.
func (m *MemoryStore) Metric(street poker.Street) (*abstraction.Metric, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	metric, ok := m.metrics[street]
	if !ok {
		return nil, fmt.Errorf("storage: no metric row for street %s", street)
	}
	return metric, nil
}

// Distance looks up the distance between x and y on street's metric.
func (m *MemoryStore) Distance(street poker.Street, x, y abstraction.Abstraction) (float64, error) {
	metric, err := m.Metric(street)
	if err != nil {
		return 0, err
	}
	return metric.Distance(x, y), nil
}

// Histogram returns a's centroid distribution over the street below it.
// It is an error to ask for a river bucket's histogram: river has none.
func (m *MemoryStore) Histogram(a abstraction.Abstraction) (abstraction.Histogram, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	hist, ok := m.histograms[a]
	if !ok {
		return abstraction.Histogram{}, fmt.Errorf("storage: no histogram row for %s", a)
	}
	return hist, nil
}

// Memory reads the blueprint's current (policy, regret) pair for every
// edge at info without changing any stored value; an infoset or edge
// not seen before gets an empty entry.
func (m *MemoryStore) Memory(info edge.Info, edges []edge.Edge) map[edge.Edge]Cell {
	return m.blueprint.Get(info).Cells(edges)
}

// Submit applies one worker's batch of Records to the blueprint at the
// store's current epoch. Disjoint records (different Info/Edge pairs)
// may be submitted concurrently from any number of workers; Table.Submit
// itself serializes at the (info, edge) granularity spec.md requires.
func (m *MemoryStore) Submit(records []Record) error {
	m.blueprint.Submit(records, m.discount, int(m.epoch.Load()))
	return nil
}

// Advance flips the walker once per epoch and returns the new walker
// seat. It is a barrier in name only: callers don't need to synchronize
// around it, since a worker observing the old or new epoch for a given
// iteration only changes which discount multiplier that iteration's
// regret update receives.
func (m *MemoryStore) Advance() int {
	epoch := m.epoch.Add(1)
	return int(epoch % 2)
}

// Epoch reports the current DCFR epoch, the same value Submit discounts
// against.
func (m *MemoryStore) Epoch() int64 {
	return m.epoch.Load()
}

// Clustered reports whether street's encoder/metric tables are already
// populated, the check pretraining uses to skip finished streets on
// resume.
func (m *MemoryStore) Clustered(street poker.Street) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clustered[street]
}

// Cluster writes street's frozen encoder, metric, and centroid
// histograms, and derives the per-bucket population row by scanning
// every isomorphism on street through encoder.
func (m *MemoryStore) Cluster(street poker.Street, enc abstraction.Encoder, metric *abstraction.Metric, histograms map[abstraction.Abstraction]abstraction.Histogram) error {
	if enc == nil || metric == nil {
		return fmt.Errorf("storage: cluster requires a non-nil encoder and metric")
	}

	population := make(map[abstraction.Abstraction]int)
	for _, iso := range poker.EnumerateIsomorphisms(street) {
		population[enc.Encode(iso)]++
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.encoders[street] = enc
	m.metrics[street] = metric
	for a, hist := range histograms {
		m.histograms[a] = hist
	}
	for a, n := range population {
		stats := m.stats[a]
		stats.Population = n
		m.stats[a] = stats
	}
	m.clustered[street] = true
	return nil
}

// Abstractions lists every bucket on street with a known population row,
// the domain CLI tooling walks to report a bucket's nearest neighbors.
func (m *MemoryStore) Abstractions(street poker.Street) []abstraction.Abstraction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []abstraction.Abstraction
	for a := range m.stats {
		if a.Street() == street {
			out = append(out, a)
		}
	}
	return out
}

// Encoders returns every street's frozen Encoder built so far, the set
// mccfr.Build needs to canonicalize isomorphisms while sampling a tree.
func (m *MemoryStore) Encoders() map[poker.Street]abstraction.Encoder {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[poker.Street]abstraction.Encoder, len(m.encoders))
	for street, enc := range m.encoders {
		out[street] = enc
	}
	return out
}

// Blueprint exposes the underlying regret table for mccfr.Walk's policy
// reads mid-tree-walk; every mutation still goes through Submit.
func (m *MemoryStore) Blueprint() *mccfr.Table {
	return m.blueprint
}
