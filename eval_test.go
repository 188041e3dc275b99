package symkern

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rewrite(t *testing.T, s *Session, e Expr) Expr {
	t.Helper()
	out, err := s.Rewrite(context.Background(), e)
	require.NoError(t, err, "rewriting %s", e)
	return out
}

func TestRewriteCanonicalForms(t *testing.T) {
	s := newTestSession(t)
	tests := []struct {
		name string
		in   Expr
		want string
	}{
		{"like terms", Plus(x, Times(N(2), x), y, x), "Plus[y, Times[4, x]]"},
		{"powers of equal bases", Times(y, x, x), "Times[y, Power[x, 2]]"},
		{"product power", Power(Times(x, y), N(2)), "Times[Power[x, 2], Power[y, 2]]"},
		{"rationals", Plus(F(1, 3), F(5, 6)), "7/6"},
		{"zero terms drop", Plus(x, N(0)), "x"},
		{"cancel", Plus(x, Times(N(-1), x)), "0"},
		{"exact zero product", Times(N(0), x), "0"},
		{"square root", Fn("Sqrt", N(12)), "Times[2, Power[3, 1/2]]"},
		{"I squared", Power(I, N(2)), "-1"},
		{"nested power", Power(Power(x, N(2)), N(3)), "Power[x, 6]"},
		{"zero to zero", Power(N(0), N(0)), "Indeterminate"},
		{"inverse", Power(N(4), N(-1)), "1/4"},
		{"zeta at -1", Fn("Zeta", N(-1)), "-1/12"},
		{"zeta at 2", Fn("Zeta", N(2)), "Times[1/6, Power[Pi, 2]]"},
		{"gamma", Fn("Gamma", N(5)), "24"},
		{"gamma pole", Fn("Gamma", N(0)), "ComplexInfinity"},
		{"scaled complex infinity", Times(F(-3, 2), S("ComplexInfinity")), "ComplexInfinity"},
		{"zero times complex infinity", Times(N(0), S("ComplexInfinity")), "Indeterminate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rewrite(t, s, tt.in).String())
		})
	}
}

func TestRewriteIsIdempotent(t *testing.T) {
	s := newTestSession(t)
	for _, e := range []Expr{
		Plus(x, Times(N(2), x), y, x),
		Fn("Cosh", Times(F(1, 3), I, Pi)),
		Fn("D", Times(x, Fn("Sin", x)), x),
		Power(Plus(x, N(1)), N(2)),
		Fn("Sqrt", N(-8)),
	} {
		once := rewrite(t, s, e)
		twice := rewrite(t, s, once)
		assert.True(t, once.Equal(twice), "%s: %s then %s", e, once, twice)
	}
}

func TestOrderlessPermutationsAgree(t *testing.T) {
	s := newTestSession(t)
	want := rewrite(t, s, Plus(a, b, Times(N(2), c)))
	for _, e := range []Expr{
		Plus(Times(N(2), c), b, a),
		Plus(b, Times(c, N(2)), a),
		Plus(Plus(b, a), Times(N(2), c)),
	} {
		got := rewrite(t, s, e)
		assert.True(t, want.Equal(got), "%s gave %s, want %s", e, got, want)
	}
}

func TestAttributesDriveNormalization(t *testing.T) {
	s := newTestSession(t)
	s.SetAttributes("f", Flat)
	s.SetAttributes("k", OneIdentity)
	s.SetAttributes("o", Orderless)
	s.SetAttributes("l", Listable)

	assert.Equal(t, "f[a, b, c]", rewrite(t, s, f(f(a, b), c)).String())
	assert.Equal(t, "a", rewrite(t, s, Fn("k", a)).String())
	assert.Equal(t, "o[a, b, c]", rewrite(t, s, Fn("o", c, a, b)).String())
	assert.Equal(t, "List[l[1, a], l[2, a]]", rewrite(t, s, Fn("l", List(N(1), N(2)), a)).String())
	assert.Equal(t, "List[11, 12]", rewrite(t, s, Plus(List(N(1), N(2)), N(10))).String())

	s.ClearAttributes("f", Flat)
	assert.Equal(t, "f[f[a, b], c]", rewrite(t, s, f(f(a, b), c)).String())
	assert.Equal(t, Attribute(0), s.Attributes("f"))
}

func TestHoldAndSequence(t *testing.T) {
	s := newTestSession(t)
	held := Fn(hHold, Plus(N(1), N(2)))
	assert.Equal(t, "Hold[Plus[1, 2]]", rewrite(t, s, held).String())
	assert.Equal(t, "f[a, b, c]", rewrite(t, s, f(Fn(hSequence, a, b), c)).String())
	assert.Equal(t, "7", rewrite(t, s, Plus(N(3), Fn(hSequence, N(1), N(3)))).String())
}

func TestControlBuiltins(t *testing.T) {
	s := newTestSession(t)
	tests := []struct {
		in   Expr
		want string
	}{
		{Fn("If", Fn("Greater", N(2), N(1)), a, b), "a"},
		{Fn("If", Fn("Less", N(2), N(1)), a, b), "b"},
		{Fn("If", Fn("Less", N(2), N(1)), a), "Null"},
		{Fn("If", x, a, b), "If[x, a, b]"},
		{Fn("And", True, x), "x"},
		{Fn("And", x, False), "False"},
		{Fn("Or", False, False), "False"},
		{Fn("Not", Fn("EvenQ", N(3))), "True"},
		{Fn("FreeQ", Plus(x, Fn("Sin", y)), y), "False"},
		{Fn("FreeQ", Plus(x, Fn("Sin", y)), PH("", "Integer")), "True"},
		{Fn("SameQ", Plus(a, b), Plus(b, a)), "True"},
		{Fn("IntegerQ", F(1, 2)), "False"},
		{Fn("LessEqual", N(1), F(3, 2), R(1.5)), "True"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rewrite(t, s, tt.in).String(), "rewriting %s", tt.in)
	}
}

func TestUserRules(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Define(f(P("n"), P("n")), g(S("n"))))
	require.NoError(t, s.AddRule(Rule{LHS: Fn("sign", P("n")), RHS: Str("pos"), Guard: Fn("Positive", S("n"))}))
	require.NoError(t, s.Define(Fn("fact", N(0)), N(1)))
	require.NoError(t, s.Define(Fn("fact", PH("n", "Integer")), Times(S("n"), Fn("fact", Plus(S("n"), N(-1))))))

	assert.Equal(t, "g[5]", rewrite(t, s, f(N(5), N(5))).String())
	assert.Equal(t, "f[5, 6]", rewrite(t, s, f(N(5), N(6))).String())
	assert.Equal(t, `"pos"`, rewrite(t, s, Fn("sign", N(3))).String())
	assert.Equal(t, "sign[-3]", rewrite(t, s, Fn("sign", N(-3))).String())
	assert.Equal(t, "sign[x]", rewrite(t, s, Fn("sign", x)).String())
	assert.Equal(t, "3628800", rewrite(t, s, Fn("fact", N(10))).String())

	rules := s.Rules("fact")
	require.Len(t, rules, 2)
	assert.Equal(t, "fact[0] -> 1", rules[0].String())
	assert.Contains(t, s.Heads(), "fact")
	assert.Nil(t, s.Rules("nothing"))

	// An equal left-hand side replaces the earlier rule.
	require.NoError(t, s.Define(Fn("fact", N(0)), N(7)))
	assert.Len(t, s.Rules("fact"), 2)
	assert.Equal(t, "7", rewrite(t, s, Fn("fact", N(0))).String())

	assert.Error(t, s.Define(x, y), "a symbol is not a rule head")
	assert.Error(t, s.AddRule(Rule{LHS: f(x)}))
}

func TestLiteralRulesKeepDeclarationOrder(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.AddRule(Rule{LHS: Fn("mode", N(0)), RHS: Str("guarded"), Guard: S("flag")}))
	require.NoError(t, s.Define(Fn("mode", N(0)), Str("plain")))
	require.NoError(t, s.Define(Fn("late", N(0)), Str("plain")))
	require.NoError(t, s.AddRule(Rule{LHS: Fn("late", N(0)), RHS: Str("guarded"), Guard: S("flag")}))

	assert.Equal(t, `"plain"`, rewrite(t, s, Fn("mode", N(0))).String())
	s.SetValue("flag", True)
	assert.Equal(t, `"guarded"`, rewrite(t, s, Fn("mode", N(0))).String())
	assert.Equal(t, `"plain"`, rewrite(t, s, Fn("late", N(0))).String())
}

func TestLiteralRulesMatchWholeSymbolNames(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Define(f(a, N(1)), N(99)))
	assert.Equal(t, "99", rewrite(t, s, f(a, N(1))).String())
	assert.Equal(t, "f[a i1]", rewrite(t, s, f(S("a i1"))).String())
}

func TestRuleLHSIsCanonicalized(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Define(Fn("w", Plus(y, x)), Str("hit")))
	assert.Equal(t, `"hit"`, rewrite(t, s, Fn("w", Plus(x, y))).String())
	assert.Equal(t, `"hit"`, rewrite(t, s, Fn("w", Plus(y, x))).String())
}

func TestOwnValues(t *testing.T) {
	s := newTestSession(t)
	s.SetValue("y", N(3))
	assert.Equal(t, "Plus[4, x]", rewrite(t, s, Plus(x, y, N(1))).String())
	s.SetValue("y", nil)
	assert.Equal(t, "Plus[1, x, y]", rewrite(t, s, Plus(x, y, N(1))).String())
}

func TestCloneIsIndependent(t *testing.T) {
	s := newTestSession(t)
	c := s.Clone()
	require.NoError(t, c.Define(f(a), b))
	c.SetAttributes("h", Orderless)

	assert.NotEqual(t, s.ID, c.ID)
	assert.Equal(t, "b", rewrite(t, c, f(a)).String())
	assert.Equal(t, "f[a]", rewrite(t, s, f(a)).String())
	assert.Equal(t, Attribute(0), s.Attributes("h"))
	assert.Equal(t, len(s.Rules("Sin")), len(c.Rules("Sin")))
}

func TestRewriteAborts(t *testing.T) {
	t.Run("iteration", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.IterationLimit = 10
		s := newTestSession(t, WithConfig(cfg))
		require.NoError(t, s.Define(f(P("x")), f(Plus(S("x"), N(1)))))

		out, err := s.Rewrite(context.Background(), f(N(0)))
		var ab *AbortError
		require.True(t, errors.As(err, &ab), "got %v", err)
		assert.Equal(t, "iteration", ab.Limit)
		assert.Equal(t, "f", ab.Head)
		assert.ErrorIs(t, err, ErrIterationLimit)
		assert.Equal(t, "f", HeadOf(out).String())
		assert.Same(t, out, ab.Partial)
	})

	t.Run("recursion", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.RecursionLimit = 64
		s := newTestSession(t, WithConfig(cfg))
		require.NoError(t, s.Define(f(P("x")), g(f(S("x")))))

		_, err := s.Rewrite(context.Background(), f(a))
		var ab *AbortError
		require.True(t, errors.As(err, &ab), "got %v", err)
		assert.Equal(t, "recursion", ab.Limit)
		assert.ErrorIs(t, err, ErrIterationLimit)
	})

	t.Run("steps", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.StepLimit = 100
		s := newTestSession(t, WithConfig(cfg))
		require.NoError(t, s.Define(f(P("x")), f(Plus(S("x"), N(1)))))

		_, err := s.Rewrite(context.Background(), f(N(0)))
		var ab *AbortError
		require.True(t, errors.As(err, &ab), "got %v", err)
		assert.Equal(t, "steps", ab.Limit)
	})

	t.Run("cancelled", func(t *testing.T) {
		s := newTestSession(t)
		require.NoError(t, s.Define(f(P("x")), f(Plus(S("x"), N(1)))))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := s.Rewrite(ctx, f(N(0)))
		var ab *AbortError
		require.True(t, errors.As(err, &ab), "got %v", err)
		assert.Equal(t, "time", ab.Limit)
		assert.ErrorIs(t, err, ErrTimeout)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("must rewrite panics", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.IterationLimit = 4
		s := newTestSession(t, WithConfig(cfg))
		require.NoError(t, s.Define(f(P("x")), f(Plus(S("x"), N(1)))))
		assert.Panics(t, func() { s.MustRewrite(f(N(0))) })
	})
}

func TestMemoizationDoesNotChangeResults(t *testing.T) {
	on := newTestSession(t)
	cfg := DefaultConfig()
	cfg.Memoize = false
	off := newTestSession(t, WithConfig(cfg))

	e := Fn("D", Plus(Power(x, N(3)), Times(x, Fn("Sin", x)), Fn("Exp", Times(N(2), x))), x)
	assert.True(t, rewrite(t, on, e).Equal(rewrite(t, off, e)))
}

func TestNewSessionRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RecursionLimit = 3
	_, err := NewSession(WithConfig(cfg))
	assert.ErrorContains(t, err, "recursion_limit")
}
