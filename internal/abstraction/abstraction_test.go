package abstraction

import (
	"testing"

	"github.com/lox/nlhe-blueprint/poker"
)

func TestAbstractionPacking(t *testing.T) {
	a := NewAbstraction(poker.Flop, 42)
	if a.Street() != poker.Flop {
		t.Errorf("expected street Flop, got %v", a.Street())
	}
	if a.Index() != 42 {
		t.Errorf("expected index 42, got %d", a.Index())
	}
}

func TestPairIsOrderIndependent(t *testing.T) {
	a := NewAbstraction(poker.Turn, 3)
	b := NewAbstraction(poker.Turn, 7)
	if NewPair(a, b) != NewPair(b, a) {
		t.Error("Pair should be symmetric under argument order")
	}
}

func TestHistogramWeightAndMerge(t *testing.T) {
	a := NewAbstraction(poker.Rive, 1)
	b := NewAbstraction(poker.Rive, 2)

	h := NewHistogram([]Abstraction{a, a, a, b})
	if got := h.Weight(a); got != 0.75 {
		t.Errorf("expected weight 0.75, got %f", got)
	}
	if got := h.Weight(b); got != 0.25 {
		t.Errorf("expected weight 0.25, got %f", got)
	}

	other := NewHistogram([]Abstraction{b, b})
	h.Merge(other)
	if got := h.Weight(b); got-0.5 > 1e-9 {
		t.Errorf("expected weight 0.5 after merge, got %f", got)
	}
}

func TestEquityVariationZeroForIdenticalHistograms(t *testing.T) {
	a := NewAbstraction(poker.Rive, 1)
	b := NewAbstraction(poker.Rive, 2)
	h1 := NewHistogram([]Abstraction{a, a, b})
	h2 := NewHistogram([]Abstraction{a, a, b})

	if d := EquityVariation(h1, h2); d != 0 {
		t.Errorf("expected zero distance between identical histograms, got %f", d)
	}
}

func TestEquityVariationSymmetric(t *testing.T) {
	a := NewAbstraction(poker.Rive, 1)
	b := NewAbstraction(poker.Rive, 2)
	h1 := NewHistogram([]Abstraction{a, a, a, b})
	h2 := NewHistogram([]Abstraction{a, b, b, b})

	d12 := EquityVariation(h1, h2)
	d21 := EquityVariation(h2, h1)
	if d12 != d21 {
		t.Errorf("expected symmetric distance, got %f vs %f", d12, d21)
	}
	if d12 <= 0 {
		t.Errorf("expected positive distance between different histograms, got %f", d12)
	}
}

func TestMetricDistancePanicsOnMissingPair(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on missing metric entry")
		}
	}()

	m := NewMetric(nil)
	a := NewAbstraction(poker.Flop, 1)
	b := NewAbstraction(poker.Flop, 2)
	m.Distance(a, b)
}

func TestMetricDistanceZeroForSameAbstraction(t *testing.T) {
	m := NewMetric(nil)
	a := NewAbstraction(poker.Flop, 1)
	if d := m.Distance(a, a); d != 0 {
		t.Errorf("expected zero self-distance, got %f", d)
	}
}

func TestSinkhornZeroForIdenticalHistograms(t *testing.T) {
	a := NewAbstraction(poker.Flop, 1)
	b := NewAbstraction(poker.Flop, 2)
	m := NewMetric(nil)
	m.Set(a, b, 1.0)

	h := NewHistogram([]Abstraction{a, a, b})
	d := Sinkhorn(h, h, m, DefaultEpsilon, DefaultIterations)
	if d > 0.05 {
		t.Errorf("expected near-zero self-distance, got %f", d)
	}
}
