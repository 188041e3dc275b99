package symkern

import (
	"errors"
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func realValue(t *testing.T, e Expr) float64 {
	t.Helper()
	r, ok := e.(Real)
	require.True(t, ok, "%s is not a machine real", e)
	return float64(r)
}

func TestMachineEvaluation(t *testing.T) {
	s := newTestSession(t)
	tests := []struct {
		in   Expr
		want float64
	}{
		{Fn("Sin", R(0.5)), math.Sin(0.5)},
		{Fn("Cosh", R(1)), math.Cosh(1)},
		{Fn("Exp", R(2)), math.Exp(2)},
		{Fn("Log", R(10)), math.Log(10)},
		{Power(R(2), F(1, 2)), math.Sqrt2},
		{Plus(R(1.5), F(1, 2)), 2},
		{Times(R(0.5), N(3)), 1.5},
		{Fn("Gamma", R(4.5)), math.Gamma(4.5)},
		{Fn("Zeta", R(2)), math.Pi * math.Pi / 6},
		{Fn("HurwitzZeta", R(2), R(0.5)), math.Pi * math.Pi / 2},
		{Fn("N", Fn("Cosh", F(1, 3))), math.Cosh(1.0 / 3)},
		{Fn("N", Pi), math.Pi},
	}
	for _, tt := range tests {
		got := realValue(t, rewrite(t, s, tt.in))
		assert.InDelta(t, tt.want, got, 1e-9, "rewriting %s", tt.in)
	}
}

func TestComplexPromotion(t *testing.T) {
	s := newTestSession(t)

	got := rewrite(t, s, Fn("Log", R(-1)))
	z, ok := got.(Complex)
	require.True(t, ok, "Log[-1.] gave %s", got)
	assert.InDelta(t, 0, real(z), 1e-15)
	assert.InDelta(t, math.Pi, imag(z), 1e-15)

	got = rewrite(t, s, Fn("Sqrt", R(-4)))
	z, ok = got.(Complex)
	require.True(t, ok, "Sqrt[-4.] gave %s", got)
	assert.InDelta(t, 0, real(z), 1e-12)
	assert.InDelta(t, 2, imag(z), 1e-12)

	got = rewrite(t, s, Fn("Sin", C(0, 1)))
	z, ok = got.(Complex)
	require.True(t, ok)
	assert.InDelta(t, math.Sinh(1), imag(z), 1e-12)
}

func TestDomainErrorsStaySymbolic(t *testing.T) {
	s := newTestSession(t)
	assert.Equal(t, "Gamma[0.]", rewrite(t, s, Fn("Gamma", R(0))).String())
	assert.Equal(t, "Gamma[-2.]", rewrite(t, s, Fn("Gamma", R(-2))).String())
	assert.Equal(t, "Log[0.]", rewrite(t, s, Fn("Log", R(0))).String())
	assert.Equal(t, "Zeta[1.]", rewrite(t, s, Fn("Zeta", R(1))).String())

	_, ok, err := s.EvaluateNumeric("Gamma", []Expr{R(-2)}, 0)
	assert.False(t, ok)
	var de *DomainError
	require.True(t, errors.As(err, &de), "got %v", err)
	assert.Equal(t, "Gamma", de.Func)
}

func TestEvaluateNumericDispatch(t *testing.T) {
	s := newTestSession(t)

	_, ok, err := s.EvaluateNumeric("Sin", []Expr{x}, 0)
	require.NoError(t, err)
	assert.False(t, ok, "symbolic arguments stay symbolic")

	_, ok, err = s.EvaluateNumeric("Sin", []Expr{N(1)}, 0)
	require.NoError(t, err)
	assert.False(t, ok, "exact arguments need a precision")

	out, ok, err := s.EvaluateNumeric("Sin", []Expr{N(1)}, PrecisionDigits(30))
	require.NoError(t, err)
	require.True(t, ok)
	br, isBig := out.(*BigReal)
	require.True(t, isBig, "got %s", out)
	assert.GreaterOrEqual(t, br.Prec(), uint(PrecisionDigits(30)))
	f, _ := br.Float().Float64()
	assert.InDelta(t, math.Sin(1), f, 1e-15)

	out, ok, err = s.EvaluateNumeric("Sin", []Expr{N(1)}, MachinePrecision)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, math.Sin(1), realValue(t, out), 1e-15)

	_, ok, err = s.EvaluateNumeric("NoSuchHead", []Expr{R(1)}, 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArbitraryPrecision(t *testing.T) {
	s := newTestSession(t)

	out := rewrite(t, s, Fn("N", Pi, N(40)))
	br, ok := out.(*BigReal)
	require.True(t, ok, "N[Pi, 40] gave %s", out)
	assert.Equal(t, "3.14159265358979323846264338327950288", br.Float().Text('f', 35))

	out = rewrite(t, s, Fn("N", Fn("Exp", N(1)), N(30)))
	br, ok = out.(*BigReal)
	require.True(t, ok, "N[Exp[1], 30] gave %s", out)
	assert.Equal(t, "2.718281828459045235360287471", br.Float().Text('f', 27))

	two, err := ParseBigReal("2", 50)
	require.NoError(t, err)
	out = rewrite(t, s, Power(two, F(1, 2)))
	br, ok = out.(*BigReal)
	require.True(t, ok, "Sqrt[2`50] gave %s", out)
	assert.Equal(t, "1.41421356237309504880168872420969807856967", br.Float().Text('f', 41))

	out = rewrite(t, s, Fn("Log", &BigReal{val: new(big.Float).SetPrec(128).SetInt64(-1)}))
	bc, ok := out.(*BigComplex)
	require.True(t, ok, "Log[-1`38] gave %s", out)
	im, _ := bc.Im().Float64()
	assert.InDelta(t, math.Pi, im, 1e-15)
}

func TestRegisterNumeric(t *testing.T) {
	s := newTestSession(t)
	s.RegisterNumeric("square", NumericFuncs{
		MachineReal: func(x []float64) (Expr, error) { return R(x[0] * x[0]), nil },
	})
	assert.True(t, s.Attributes("square").Has(NumericFunction))
	assert.Equal(t, "9.", rewrite(t, s, Fn("square", R(3))).String())
	assert.Equal(t, "square[3]", rewrite(t, s, Fn("square", N(3))).String())
	// No complex entry: the call stays symbolic.
	assert.Equal(t, "square[Complex[1., 1.]]", rewrite(t, s, Fn("square", C(1, 1))).String())
}

func TestJoinDomain(t *testing.T) {
	tests := []struct {
		a, b, want Domain
	}{
		{DomainExact, DomainMachineReal, DomainMachineReal},
		{DomainMachineReal, DomainBigReal, DomainBigReal},
		{DomainMachineComplex, DomainBigReal, DomainBigComplex},
		{DomainMachineReal, DomainMachineComplex, DomainMachineComplex},
		{DomainExact, DomainExact, DomainExact},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, joinDomain(tt.a, tt.b), "%s + %s", tt.a, tt.b)
	}
	assert.Equal(t, DomainBigComplex, DomainBigReal.promote())
	assert.Equal(t, "MachineComplex", DomainMachineComplex.String())
}
