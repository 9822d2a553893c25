package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lox/nlhe-blueprint/internal/abstraction"
	"github.com/lox/nlhe-blueprint/internal/edge"
	"github.com/lox/nlhe-blueprint/internal/mccfr"
	"github.com/lox/nlhe-blueprint/poker"
)

func TestSubmitAndMemoryRoundTrip(t *testing.T) {
	store := NewMemoryStore(mccfr.DefaultDiscount(10))

	info := edge.Info{}
	edges := []edge.Edge{edge.New(edge.KindCheck), edge.New(edge.KindCall)}
	records := []Record{
		{Info: info, Edge: edges[0], Gain: 2, Weight: 1},
		{Info: info, Edge: edges[1], Gain: -1, Weight: 0},
	}

	if err := store.Submit(records); err != nil {
		t.Fatalf("submit: %v", err)
	}

	cells := store.Memory(info, edges)
	if cells[edges[0]].Regret != 2 {
		t.Errorf("expected regret 2 on the first edge, got %v", cells[edges[0]].Regret)
	}
	if cells[edges[1]].Regret != -1 {
		t.Errorf("expected regret -1 on the second edge, got %v", cells[edges[1]].Regret)
	}
}

func TestAdvanceFlipsWalker(t *testing.T) {
	store := NewMemoryStore(mccfr.DefaultDiscount(10))

	first := store.Advance()
	second := store.Advance()
	if first == second {
		t.Errorf("expected Advance to alternate, got %d then %d", first, second)
	}
	if store.Epoch() != 2 {
		t.Errorf("expected epoch 2 after two Advance calls, got %d", store.Epoch())
	}
}

func TestClusterPopulatesEncoderMetricAndStats(t *testing.T) {
	store := NewMemoryStore(mccfr.DefaultDiscount(10))

	enc := abstraction.NewMapEncoder()
	isomorphisms := poker.EnumerateIsomorphisms(poker.Rive)
	for _, iso := range isomorphisms {
		enc.Set(iso, abstraction.NewAbstraction(poker.Rive, 0))
	}
	frozen, err := abstraction.FreezeEncoder(enc)
	if err != nil {
		t.Fatalf("freeze encoder: %v", err)
	}
	metric := abstraction.NewMetric(nil)

	if store.Clustered(poker.Rive) {
		t.Fatal("expected river to start unclustered")
	}
	if err := store.Cluster(poker.Rive, frozen, metric, nil); err != nil {
		t.Fatalf("cluster: %v", err)
	}
	if !store.Clustered(poker.Rive) {
		t.Fatal("expected river to be clustered after Cluster")
	}

	bucket := abstraction.NewAbstraction(poker.Rive, 0)
	stats, err := store.Stats(bucket)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Population != len(isomorphisms) {
		t.Errorf("expected population %d, got %d", len(isomorphisms), stats.Population)
	}
	if stats.Equity != 0 {
		t.Errorf("expected river bucket 0's equity to be 0, got %v", stats.Equity)
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	store := NewMemoryStore(mccfr.DefaultDiscount(10))
	info := edge.Info{}
	e := edge.New(edge.KindFold)
	if err := store.Submit([]Record{{Info: info, Edge: e, Gain: 5, Weight: 3}}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	store.Advance()

	path := filepath.Join(t.TempDir(), "checkpoint.json")
	if err := store.Checkpoint(path); err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected checkpoint file to exist: %v", err)
	}

	restored, _, err := LoadCheckpoint(path, mccfr.DefaultDiscount(10))
	if err != nil {
		t.Fatalf("load checkpoint: %v", err)
	}
	if restored.Epoch() != store.Epoch() {
		t.Errorf("expected epoch %d, got %d", store.Epoch(), restored.Epoch())
	}
	cells := restored.Memory(info, []edge.Edge{e})
	if cells[e].Regret != 5 || cells[e].Policy != 3 {
		t.Errorf("expected restored cell {5,3}, got %+v", cells[e])
	}
}
