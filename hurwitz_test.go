package symkern

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHurwitzZetaKnownValues(t *testing.T) {
	tests := []struct {
		name  string
		x, a  float64
		want  float64
		delta float64
	}{
		{"zeta(2)", 2, 1, math.Pi * math.Pi / 6, 1e-12},
		{"zeta(2, 1/2)", 2, 0.5, math.Pi * math.Pi / 2, 1e-12},
		{"shifted a", 2, 1.5, math.Pi*math.Pi/2 - 4, 1e-12},
		{"integral a", 2, 3, math.Pi*math.Pi/6 - 1 - 0.25, 1e-12},
		{"zeta(-1)", -1, 1, -1.0 / 12, 1e-12},
		{"zeta(0, a)", 0, 0.25, 0.25, 1e-12},
		{"zeta(-5, a)", -5, 0.3, -bernoulli6(0.3) / 6, 1e-7},
		{"cosine region", -6, 0.3, -bernoulli7(0.3) / 7, 1e-9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HurwitzZeta(tt.x, tt.a)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, tt.delta)
		})
	}
}

// zeta(-n, a) = -B_{n+1}(a)/(n+1).
func bernoulli6(a float64) float64 {
	return math.Pow(a, 6) - 3*math.Pow(a, 5) + 2.5*math.Pow(a, 4) - 0.5*a*a + 1.0/42
}

func bernoulli7(a float64) float64 {
	return math.Pow(a, 7) - 3.5*math.Pow(a, 6) + 3.5*math.Pow(a, 5) - 7.0/6*math.Pow(a, 3) + a/6
}

func TestHurwitzZetaMatchesDirectSum(t *testing.T) {
	const n = 200_000
	for _, a := range []float64{1, 1.25, 1.7, 0.4, 1 + 1e-6, 1 + 1e-12, 2 + 1e-6, 3.5} {
		var sum float64
		for k := n - 1; k >= 0; k-- {
			sum += math.Pow(a+float64(k), -3)
		}
		// Tail beyond n by the integral with its first correction.
		an := a + n
		sum += 1/(2*an*an) + 1/(2*an*an*an)

		got, err := HurwitzZeta(3, a)
		require.NoError(t, err)
		assert.InDelta(t, sum, got, 1e-12, "a = %v", a)
	}
}

func TestHurwitzZetaContinuousAboveIntegers(t *testing.T) {
	for _, x := range []float64{3, 0.5, -2, -4.5} {
		for _, n := range []float64{1, 2, 5} {
			at, err := HurwitzZeta(x, n)
			require.NoError(t, err)
			above, err := HurwitzZeta(x, n+1e-12)
			require.NoError(t, err)
			assert.InDelta(t, at, above, 1e-7, "x = %v, a = %v", x, n)
		}
	}
}

func TestHurwitzZetaFormsAgree(t *testing.T) {
	c := DefaultZetaConfig()
	for _, a := range []float64{0.3, 0.5, 0.9, 1} {
		cs := c.cosineSeries(-5.5, a)
		em := c.eulerMaclaurin(-5.5, a)
		assert.InDelta(t, em, cs, 1e-6, "a = %v", a)
	}
}

func TestHurwitzZetaDomain(t *testing.T) {
	for _, tt := range []struct{ x, a float64 }{
		{1, 0.5},
		{2, 0},
		{2, -1.5},
		{math.NaN(), 1},
	} {
		_, err := HurwitzZeta(tt.x, tt.a)
		var de *DomainError
		require.True(t, errors.As(err, &de), "zeta(%v, %v) gave %v", tt.x, tt.a, err)
		assert.Equal(t, "HurwitzZeta", de.Func)
	}
}

func TestZetaConfigValidate(t *testing.T) {
	require.NoError(t, DefaultZetaConfig().Validate())

	for name, mutate := range map[string]func(*ZetaConfig){
		"direct_terms":     func(c *ZetaConfig) { c.DirectTerms = 0 },
		"asymptotic_terms": func(c *ZetaConfig) { c.AsymptoticTerms = 61 },
		"tolerance":        func(c *ZetaConfig) { c.Tolerance = 0 },
		"max_series_terms": func(c *ZetaConfig) { c.MaxSeriesTerms = 0 },
		"switch_forms":     func(c *ZetaConfig) { c.SwitchForms = 1 },
	} {
		c := DefaultZetaConfig()
		mutate(&c)
		assert.ErrorContains(t, c.Validate(), name)
	}
}

func TestBernoulliNumbers(t *testing.T) {
	got := bernoulliNumbers(9)
	want := []string{"1", "-1/2", "1/6", "0", "-1/30", "0", "1/42", "0", "-1/30"}
	for i, b := range got {
		assert.Equal(t, want[i], b.RatString(), "B_%d", i)
	}
	assert.InDelta(t, 1.0/6, bernoulliFloat(2), 1e-17)
	assert.InDelta(t, 5.0/66, bernoulliFloat(10), 1e-17)
}
