package symkern

import (
	"fmt"
	"math"
	"math/big"
	"sync"
)

// ZetaConfig holds the region boundary and term counts of the machine
// precision Hurwitz zeta evaluator.
type ZetaConfig struct {
	SwitchForms     float64 `yaml:"switch_forms" json:"switch_forms"`         // below this x the cosine series is used
	DirectTerms     int     `yaml:"direct_terms" json:"direct_terms"`         // direct sum length before Euler-Maclaurin
	AsymptoticTerms int     `yaml:"asymptotic_terms" json:"asymptotic_terms"` // Bernoulli corrections
	Tolerance       float64 `yaml:"tolerance" json:"tolerance"`               // cosine series stops below this term bound
	MaxSeriesTerms  int     `yaml:"max_series_terms" json:"max_series_terms"`
}

func DefaultZetaConfig() ZetaConfig {
	return ZetaConfig{
		SwitchForms:     -5,
		DirectTerms:     15,
		AsymptoticTerms: 5,
		Tolerance:       1e-10,
		MaxSeriesTerms:  100_000,
	}
}

func (c ZetaConfig) Validate() error {
	switch {
	case c.DirectTerms < 1:
		return fmt.Errorf("direct_terms must be >= 1")
	case c.AsymptoticTerms < 1 || c.AsymptoticTerms > 60:
		return fmt.Errorf("asymptotic_terms must be in [1, 60]")
	case !(c.Tolerance > 0):
		return fmt.Errorf("tolerance must be > 0")
	case c.MaxSeriesTerms < 1:
		return fmt.Errorf("max_series_terms must be >= 1")
	case c.SwitchForms > 0:
		return fmt.Errorf("switch_forms must be <= 0")
	}
	return nil
}

// HurwitzZeta evaluates zeta(x, a) = sum over k >= 0 of (a+k)^-x with the
// default configuration.
func HurwitzZeta(x, a float64) (float64, error) { return DefaultZetaConfig().HurwitzZeta(x, a) }

// HurwitzZeta evaluates zeta(x, a). It fails with a *DomainError at the
// pole x == 1 and for a <= 0.
func (c ZetaConfig) HurwitzZeta(x, a float64) (float64, error) {
	if math.IsNaN(x) || math.IsNaN(a) {
		return 0, domainErrorf("HurwitzZeta", "NaN argument")
	}
	if x == 1 {
		return 0, domainErrorf("HurwitzZeta", "pole at x == 1")
	}
	if a <= 0 {
		return 0, domainErrorf("HurwitzZeta", "a = %v must be positive", a)
	}
	if a > 1 {
		return c.shifted(x, a), nil
	}
	if x < c.SwitchForms {
		return c.cosineSeries(x, a), nil
	}
	return c.eulerMaclaurin(x, a), nil
}

// shifted reduces a > 1 by its integer part:
// zeta(x, a) = zeta(x, a-m) - sum_{i<m} (a-m+i)^-x.
// The cosine series needs a-m in (0, 1]. Euler-Maclaurin is reduced only to
// [1, 2) so a tiny a-m never enters as a term that the correction cancels.
func (c ZetaConfig) shifted(x, a float64) float64 {
	m := math.Floor(a)
	r := a - m
	if x >= c.SwitchForms {
		r, m = r+1, m-1
	} else if r == 0 {
		r, m = 1, m-1
	}
	var corr float64
	for i := m - 1; i >= 0; i-- {
		corr += math.Pow(r+i, -x)
	}
	if x < c.SwitchForms {
		return c.cosineSeries(x, r) - corr
	}
	return c.eulerMaclaurin(x, r) - corr
}

// cosineSeries uses the functional equation, valid for x < 0 and 0 < a <= 1:
// zeta(x, a) = 2 Gamma(s)/(2pi)^s sum_{i>=1} cos(pi s/2 - 2 pi i a)/i^s, s = 1-x.
func (c ZetaConfig) cosineSeries(x, a float64) float64 {
	s := 1 - x
	var sum float64
	for i := 1; i <= c.MaxSeriesTerms; i++ {
		fi := float64(i)
		bound := math.Pow(fi, -s)
		if bound <= c.Tolerance {
			break
		}
		sum += math.Cos(math.Pi*s/2-2*math.Pi*fi*a) * bound
	}
	return 2 * math.Gamma(s) / math.Pow(2*math.Pi, s) * sum
}

// eulerMaclaurin sums the first n terms directly, adds the integral of the
// tail and m Bernoulli corrections.
func (c ZetaConfig) eulerMaclaurin(x, a float64) float64 {
	n := float64(c.DirectTerms)
	var direct float64
	for i := 0.0; i < n; i++ {
		direct += math.Pow(a+i, -x)
	}
	an := a + n
	integral := math.Pow(an, 1-x) / (x - 1)

	// Gamma(x+2i-1)/Gamma(x) as the rising factorial x(x+1)...(x+2i-2).
	var corr float64
	rising := x
	fact := 2.0
	for i := 1; i <= c.AsymptoticTerms; i++ {
		k := float64(2 * i)
		if i > 1 {
			rising *= (x + k - 3) * (x + k - 2)
			fact *= (k - 1) * k
		}
		corr += bernoulliFloat(2*i) / fact * rising / math.Pow(an, k-1)
	}
	tail := (0.5 + corr) / math.Pow(an, x)
	return direct + integral + tail
}

// ============================================================
// Bernoulli numbers
// ============================================================

var bernoulliCache struct {
	sync.Mutex
	vals []float64
}

// bernoulliFloat returns B_n (with B_1 = -1/2).
func bernoulliFloat(n int) float64 {
	bernoulliCache.Lock()
	defer bernoulliCache.Unlock()
	if n >= len(bernoulliCache.vals) {
		exact := bernoulliNumbers(2*n + 2)
		bernoulliCache.vals = make([]float64, len(exact))
		for i, b := range exact {
			bernoulliCache.vals[i], _ = b.Float64()
		}
	}
	return bernoulliCache.vals[n]
}

// bernoulliNumbers computes B_0 .. B_{n-1} exactly with the
// Akiyama-Tanigawa recurrence.
func bernoulliNumbers(n int) []*big.Rat {
	out := make([]*big.Rat, n)
	a := make([]*big.Rat, n)
	for m := 0; m < n; m++ {
		a[m] = big.NewRat(1, int64(m+1))
		for j := m; j >= 1; j-- {
			d := new(big.Rat).Sub(a[j-1], a[j])
			a[j-1] = d.Mul(d, big.NewRat(int64(j), 1))
		}
		out[m] = new(big.Rat).Set(a[0])
	}
	// The recurrence yields B_1 = +1/2.
	if n > 1 {
		out[1].Neg(out[1])
	}
	return out
}
