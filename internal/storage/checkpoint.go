package storage

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/lox/nlhe-blueprint/internal/abstraction"
	"github.com/lox/nlhe-blueprint/internal/edge"
	"github.com/lox/nlhe-blueprint/internal/fileutil"
	"github.com/lox/nlhe-blueprint/internal/mccfr"
)

const checkpointVersion = 1

// checkpointSnapshot is the on-disk shape a checkpoint round-trips: the
// blueprint's per-infoset regret/average accumulators plus the epoch and
// which streets have already been clustered, which is everything a
// resumed run needs to skip finished pretraining and continue training
// without replaying history. Frozen encoder/metric/histogram tables are
// not part of the snapshot — pretraining is deterministic given the same
// RNG seed and street configuration, so resuming re-derives them instead
// of serializing the perfect-hash tables themselves.
type checkpointSnapshot struct {
	Version   int               `json:"version"`
	Epoch     int64             `json:"epoch"`
	Clustered map[string]bool   `json:"clustered"`
	Entries   []checkpointEntry `json:"entries"`
}

type checkpointEntry struct {
	Info   string    `json:"info"`
	Edges  []uint64  `json:"edges"`
	Policy []float64 `json:"policy"`
	Regret []float64 `json:"regret"`
}

// Checkpoint atomically writes a snapshot of m's blueprint, epoch, and
// clustered-streets state to path.
func (m *MemoryStore) Checkpoint(path string) error {
	snap := checkpointSnapshot{
		Version: checkpointVersion,
		Epoch:   m.Epoch(),
	}

	m.mu.RLock()
	snap.Clustered = make(map[string]bool, len(m.clustered))
	for street, done := range m.clustered {
		snap.Clustered[street.String()] = done
	}
	m.mu.RUnlock()

	m.blueprint.Each(func(info edge.Info, entry *mccfr.Entry) {
		edges := entry.Edges()
		cells := entry.Cells(edges)
		e := checkpointEntry{Info: infoKey(info)}
		for _, edgeID := range edges {
			cell := cells[edgeID]
			e.Edges = append(e.Edges, uint64(edgeID))
			e.Policy = append(e.Policy, cell.Policy)
			e.Regret = append(e.Regret, cell.Regret)
		}
		snap.Entries = append(snap.Entries, e)
	})

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode checkpoint: %w", err)
	}
	return fileutil.WriteFileAtomic(path, data, 0o644)
}

// infoKey renders an Info as a stable string, since edge.Info's struct
// fields can't serve as a JSON map key directly.
func infoKey(info edge.Info) string {
	return fmt.Sprintf("%d:%d:%d", info.History, info.Present, info.Choices)
}

// LoadCheckpoint restores a MemoryStore's epoch and blueprint memory from
// a snapshot written by Checkpoint, and returns the snapshot's
// clustered-streets map alongside it. Encoder/metric/histogram tables are
// not restored, and the returned store reports no street as clustered,
// so the caller's pretraining run rebuilds every street.
func LoadCheckpoint(path string, discount mccfr.Discount) (*MemoryStore, map[string]bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("storage: read checkpoint: %w", err)
	}

	var snap checkpointSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, nil, fmt.Errorf("storage: decode checkpoint: %w", err)
	}
	if snap.Version != checkpointVersion {
		return nil, nil, fmt.Errorf("storage: unsupported checkpoint version %d", snap.Version)
	}

	m := NewMemoryStore(discount)
	m.epoch.Store(snap.Epoch)

	for _, e := range snap.Entries {
		info, err := parseInfoKey(e.Info)
		if err != nil {
			return nil, nil, err
		}
		edges := make([]edge.Edge, len(e.Edges))
		for i := range e.Edges {
			edges[i] = edge.Edge(e.Edges[i])
		}
		m.blueprint.Get(info).Restore(edges, e.Regret, e.Policy)
	}

	return m, snap.Clustered, nil
}

func parseInfoKey(s string) (edge.Info, error) {
	var history, present, choices uint64
	if _, err := fmt.Sscanf(s, "%d:%d:%d", &history, &present, &choices); err != nil {
		return edge.Info{}, fmt.Errorf("storage: malformed infoset key %q: %w", s, err)
	}
	return edge.Info{
		History: edge.Path(history),
		Present: abstraction.Abstraction(present),
		Choices: edge.Path(choices),
	}, nil
}
