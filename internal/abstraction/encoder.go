package abstraction

import (
	"encoding/binary"
	"fmt"

	"github.com/lox/nlhe-blueprint/poker"
	"github.com/opencoff/go-chd"
)

// Encoder is a read-only dictionary from canonical Isomorphism to
// Abstraction. It never mutates once built: pretraining populates a
// mapEncoder street by street, then freezes each finished street into a
// chdEncoder backed by a minimal perfect hash, which is what the MCCFR
// training loop actually queries on its hottest path.
type Encoder interface {
	// Encode looks up the Abstraction for iso. It panics if iso was
	// never registered: every Isomorphism the solver can reach must be
	// assigned an Abstraction during pretraining.
	Encode(iso poker.Isomorphism) Abstraction
	Len() int
}

// mapEncoder is the mutable encoder used while a street's clustering is
// still being assigned.
type mapEncoder struct {
	table map[poker.Isomorphism]Abstraction
}

// NewMapEncoder builds an empty mutable Encoder.
func NewMapEncoder() *mapEncoder {
	return &mapEncoder{table: make(map[poker.Isomorphism]Abstraction)}
}

// Set assigns iso's Abstraction. Later calls with the same iso overwrite
// earlier ones, which is expected while clustering reassigns points
// across Lloyd iterations.
func (e *mapEncoder) Set(iso poker.Isomorphism, a Abstraction) {
	e.table[iso] = a
}

func (e *mapEncoder) Encode(iso poker.Isomorphism) Abstraction {
	a, ok := e.table[iso]
	if !ok {
		panic(fmt.Sprintf("abstraction: no bucket registered for isomorphism %v", iso.Observation()))
	}
	return a
}

func (e *mapEncoder) Len() int {
	return len(e.table)
}

// chdEncoder is a frozen Encoder backed by a compress-hash-displace
// minimal perfect hash (github.com/opencoff/go-chd), built once a
// street's isomorphism set is final. Lookup is O(1) with no probing and
// a memory footprint close to the information-theoretic minimum for a
// static key set, which matters because this sits on the hottest path
// of MCCFR training.
type chdEncoder struct {
	mph    *chd.CHD
	keys   []poker.Isomorphism
	values []Abstraction
}

// FreezeEncoder builds a chdEncoder from a finished mapEncoder.
func FreezeEncoder(mutable *mapEncoder) (*chdEncoder, error) {
	keys := make([]poker.Isomorphism, 0, len(mutable.table))
	values := make([]Abstraction, 0, len(mutable.table))
	for iso, a := range mutable.table {
		keys = append(keys, iso)
		values = append(values, a)
	}

	builder, err := chd.NewBuilder(uint32(len(keys)))
	if err != nil {
		return nil, fmt.Errorf("abstraction: chd builder: %w", err)
	}
	for _, iso := range keys {
		builder.Add(isomorphismBytes(iso))
	}

	mph, err := builder.Freeze(1.6)
	if err != nil {
		return nil, fmt.Errorf("abstraction: chd freeze: %w", err)
	}

	return &chdEncoder{mph: mph, keys: keys, values: values}, nil
}

func (e *chdEncoder) Encode(iso poker.Isomorphism) Abstraction {
	idx := e.mph.Find(isomorphismBytes(iso))
	if idx >= uint32(len(e.values)) || e.keys[idx] != iso {
		panic(fmt.Sprintf("abstraction: no bucket registered for isomorphism %v", iso.Observation()))
	}
	return e.values[idx]
}

func (e *chdEncoder) Len() int {
	return len(e.values)
}

// isomorphismBytes serializes an Isomorphism's canonical pocket/public
// Hands into a stable byte key for the perfect-hash builder.
func isomorphismBytes(iso poker.Isomorphism) []byte {
	obs := iso.Observation()
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], uint64(obs.Pocket))
	binary.BigEndian.PutUint64(buf[8:16], uint64(obs.Public))
	return buf
}
