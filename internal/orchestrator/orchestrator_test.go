package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/lox/nlhe-blueprint/internal/abstraction"
	"github.com/lox/nlhe-blueprint/internal/storage"
	"github.com/lox/nlhe-blueprint/poker"
)

// flatEncoder collapses every isomorphism on a street into a single
// bucket, so a test can skip the real clustering pipeline and still
// exercise Train against a fully "pretrained" store.
type flatEncoder struct{ street poker.Street }

func (e flatEncoder) Encode(poker.Isomorphism) abstraction.Abstraction {
	return abstraction.NewAbstraction(e.street, 0)
}
func (e flatEncoder) Len() int { return 1 }

func preclustered(t *testing.T, store *storage.MemoryStore) {
	t.Helper()
	for _, street := range []poker.Street{poker.Pref, poker.Flop, poker.Turn, poker.Rive} {
		if err := store.Cluster(street, flatEncoder{street}, abstraction.NewMetric(nil), nil); err != nil {
			t.Fatalf("cluster %s: %v", street, err)
		}
	}
}

func testConfig(t *testing.T, checkpointPath string) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Game.Stack = 10
	cfg.Training.BatchSize = 4
	cfg.Training.CheckpointEvery = 8
	cfg.Training.CheckpointPath = checkpointPath
	cfg.Training.Seed = 1
	return cfg
}

func TestTrainSubmitsAndChecksPointAfterPretrain(t *testing.T) {
	checkpointPath := filepath.Join(t.TempDir(), "blueprint.json")
	config := testConfig(t, checkpointPath)

	store := storage.NewMemoryStore(config.Discount())
	preclustered(t, store)

	orch, err := New(config, store)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}

	var reports []Progress
	if err := orch.Train(context.Background(), 16, 2, func(p Progress) {
		reports = append(reports, p)
	}); err != nil {
		t.Fatalf("train: %v", err)
	}

	if store.Blueprint().Size() == 0 {
		t.Fatal("expected training to populate the blueprint")
	}
	if len(reports) == 0 {
		t.Fatal("expected at least one progress report")
	}
	if _, err := os.Stat(checkpointPath); err != nil {
		t.Fatalf("expected checkpoint file: %v", err)
	}
}

func TestTrainRequiresPretrainedEncoders(t *testing.T) {
	config := testConfig(t, "")
	store := storage.NewMemoryStore(config.Discount())

	orch, err := New(config, store)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	if err := orch.Train(context.Background(), 4, 1, nil); err == nil {
		t.Fatal("expected an error training against an unpretrained store")
	}
}

func TestPretrainSkipsAlreadyClusteredStreets(t *testing.T) {
	config := testConfig(t, "")
	config.Abstraction = []AbstractionConfig{{Street: "river", Clusters: 2}}

	store := storage.NewMemoryStore(config.Discount())
	if err := store.Cluster(poker.Rive, flatEncoder{poker.Rive}, abstraction.NewMetric(nil), nil); err != nil {
		t.Fatalf("cluster: %v", err)
	}

	orch, err := New(config, store)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	if err := orch.Pretrain(context.Background()); err != nil {
		t.Fatalf("pretrain: %v", err)
	}

	if store.Encoders()[poker.Rive].Len() != 1 {
		t.Fatalf("expected the preclustered flat encoder to survive untouched")
	}
}
