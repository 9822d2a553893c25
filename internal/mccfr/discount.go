package mccfr

import "math"

// Discount fixes the DCFR (α, ω, γ) tunables and update period used to
// decay old regret and policy mass as training progresses.
type Discount struct {
	Alpha  float64
	Omega  float64
	Gamma  float64
	Period int
}

// DefaultDiscount matches spec.md's defaults: α=1.5, ω=0.5, γ=1.5.
func DefaultDiscount(period int) Discount {
	return Discount{Alpha: 1.5, Omega: 0.5, Gamma: 1.5, Period: period}
}

// RegretDiscount returns the multiplier applied to an infoset's
// accumulated regret before this epoch's gain is added, branching on
// the sign of the regret being discounted.
func (d Discount) RegretDiscount(epoch int, regret float64) float64 {
	if d.Period <= 0 || epoch%d.Period != 0 {
		return 1
	}
	t := float64(epoch) / float64(d.Period)
	if regret > 0 {
		pow := math.Pow(t, d.Alpha)
		return pow / (pow + 1)
	}
	if regret < 0 {
		pow := math.Pow(t, d.Omega)
		return pow / (pow + 1)
	}
	return 1
}

// PolicyDiscount returns the multiplier applied to accumulated average
// policy mass, independent of regret sign.
func (d Discount) PolicyDiscount(epoch int) float64 {
	t := float64(epoch)
	return math.Pow(t/(t+1), d.Gamma)
}
