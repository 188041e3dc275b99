package symkern

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
)

// ============================================================
// Poly: dense univariate polynomial over the rationals
// ============================================================

// Poly holds coefficients in ascending degree: p[i] multiplies x^i. The
// zero polynomial is empty. Operations never modify their receivers.
type Poly []*big.Rat

// PolyOf builds a polynomial from ascending integer coefficients.
func PolyOf(coeffs ...int64) Poly {
	p := make(Poly, len(coeffs))
	for i, c := range coeffs {
		p[i] = big.NewRat(c, 1)
	}
	return p.trim()
}

// PolyRat builds a polynomial from ascending rational coefficients.
func PolyRat(coeffs ...*big.Rat) Poly {
	p := make(Poly, len(coeffs))
	for i, c := range coeffs {
		p[i] = new(big.Rat).Set(c)
	}
	return p.trim()
}

func polyConst(c *big.Rat) Poly { return PolyRat(c) }

func (p Poly) trim() Poly {
	n := len(p)
	for n > 0 && p[n-1].Sign() == 0 {
		n--
	}
	return p[:n]
}

func (p Poly) Degree() int  { return len(p) - 1 }
func (p Poly) IsZero() bool { return len(p) == 0 }

// Coeff returns the coefficient of x^i.
func (p Poly) Coeff(i int) *big.Rat {
	if i < 0 || i >= len(p) {
		return new(big.Rat)
	}
	return new(big.Rat).Set(p[i])
}

// LC is the leading coefficient; zero for the zero polynomial.
func (p Poly) LC() *big.Rat {
	if len(p) == 0 {
		return new(big.Rat)
	}
	return new(big.Rat).Set(p[len(p)-1])
}

func (p Poly) Equal(q Poly) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i].Cmp(q[i]) != 0 {
			return false
		}
	}
	return true
}

func (p Poly) Add(q Poly) Poly {
	n := len(p)
	if len(q) > n {
		n = len(q)
	}
	out := make(Poly, n)
	for i := range out {
		out[i] = new(big.Rat).Add(p.at(i), q.at(i))
	}
	return out.trim()
}

func (p Poly) Sub(q Poly) Poly { return p.Add(q.Neg()) }

func (p Poly) Neg() Poly { return p.Scale(big.NewRat(-1, 1)) }

func (p Poly) Scale(c *big.Rat) Poly {
	out := make(Poly, len(p))
	for i := range p {
		out[i] = new(big.Rat).Mul(p[i], c)
	}
	return out.trim()
}

func (p Poly) Mul(q Poly) Poly {
	if p.IsZero() || q.IsZero() {
		return nil
	}
	out := make(Poly, len(p)+len(q)-1)
	for i := range out {
		out[i] = new(big.Rat)
	}
	t := new(big.Rat)
	for i, a := range p {
		for j, b := range q {
			out[i+j].Add(out[i+j], t.Mul(a, b))
		}
	}
	return out.trim()
}

func (p Poly) Pow(n int) Poly {
	out := PolyOf(1)
	for i := 0; i < n; i++ {
		out = out.Mul(p)
	}
	return out
}

// DivMod divides p by q. q must not be zero.
func (p Poly) DivMod(q Poly) (quo, rem Poly, err error) {
	if q.IsZero() {
		return nil, nil, ErrDivisionByZero
	}
	rem = append(Poly(nil), p...)
	for i := range rem {
		rem[i] = new(big.Rat).Set(rem[i])
	}
	if len(p) < len(q) {
		return nil, rem, nil
	}
	quo = make(Poly, len(p)-len(q)+1)
	for i := range quo {
		quo[i] = new(big.Rat)
	}
	lc := q[len(q)-1]
	t := new(big.Rat)
	for d := len(rem) - 1; d >= len(q)-1; d-- {
		if rem[d].Sign() == 0 {
			continue
		}
		c := new(big.Rat).Quo(rem[d], lc)
		k := d - (len(q) - 1)
		quo[k] = c
		for j, b := range q {
			rem[k+j].Sub(rem[k+j], t.Mul(c, b))
		}
	}
	return quo.trim(), rem.trim(), nil
}

// Monic divides p by its leading coefficient.
func (p Poly) Monic() Poly {
	if p.IsZero() {
		return nil
	}
	return p.Scale(new(big.Rat).Inv(p[len(p)-1]))
}

func (p Poly) Deriv() Poly {
	if len(p) <= 1 {
		return nil
	}
	out := make(Poly, len(p)-1)
	for i := 1; i < len(p); i++ {
		out[i-1] = new(big.Rat).Mul(p[i], big.NewRat(int64(i), 1))
	}
	return out.trim()
}

// Eval evaluates p at x by Horner's rule.
func (p Poly) Eval(x *big.Rat) *big.Rat {
	z := new(big.Rat)
	for i := len(p) - 1; i >= 0; i-- {
		z.Mul(z, x)
		z.Add(z, p[i])
	}
	return z
}

func (p Poly) at(i int) *big.Rat {
	if i < len(p) {
		return p[i]
	}
	return new(big.Rat)
}

// String renders p in x, highest degree first, e.g. "x^2 - 3*x + 2".
func (p Poly) String() string {
	if p.IsZero() {
		return "0"
	}
	var b strings.Builder
	for i := len(p) - 1; i >= 0; i-- {
		c := p[i]
		if c.Sign() == 0 {
			continue
		}
		abs := new(big.Rat).Abs(c)
		switch {
		case b.Len() == 0 && c.Sign() < 0:
			b.WriteString("-")
		case b.Len() > 0 && c.Sign() < 0:
			b.WriteString(" - ")
		case b.Len() > 0:
			b.WriteString(" + ")
		}
		one := abs.Cmp(big.NewRat(1, 1)) == 0
		if i == 0 || !one {
			b.WriteString(abs.RatString())
			if i > 0 {
				b.WriteString("*")
			}
		}
		switch {
		case i == 1:
			b.WriteString("x")
		case i > 1:
			fmt.Fprintf(&b, "x^%d", i)
		}
	}
	return b.String()
}

// PolyGCD is the monic greatest common divisor of a and b.
func PolyGCD(a, b Poly) Poly {
	for !b.IsZero() {
		_, r, _ := a.DivMod(b)
		a, b = b, r
	}
	return a.Monic()
}

// PolyExtGCD returns the monic g = gcd(a, b) and s, t with s*a + t*b = g.
func PolyExtGCD(a, b Poly) (g, s, t Poly) {
	r0, r1 := a, b
	s0, s1 := PolyOf(1), Poly(nil)
	t0, t1 := Poly(nil), PolyOf(1)
	for !r1.IsZero() {
		q, r, _ := r0.DivMod(r1)
		r0, r1 = r1, r
		s0, s1 = s1, s0.Sub(q.Mul(s1))
		t0, t1 = t1, t0.Sub(q.Mul(t1))
	}
	if r0.IsZero() {
		return nil, s0, t0
	}
	inv := new(big.Rat).Inv(r0.LC())
	return r0.Scale(inv), s0.Scale(inv), t0.Scale(inv)
}

// ============================================================
// Exact arithmetic collaborator
// ============================================================

// FactorPower is one factor of a factorization with its multiplicity.
type FactorPower struct {
	Factor Poly
	Mult   int
}

// PolyArithmetic is the exact polynomial arithmetic the partial fraction
// decomposer relies on. Factor returns the leading coefficient of p and its
// monic factors with multiplicities in a deterministic order.
type PolyArithmetic interface {
	Factor(p Poly) (lc *big.Rat, factors []FactorPower, err error)
	DivMod(n, d Poly) (q, r Poly, err error)
}

// RationalArithmetic factors over the rationals by square-free
// decomposition and extraction of rational roots. What remains of a
// square-free part after its rational roots are removed is kept as a single
// factor; above degree three it may still be reducible.
type RationalArithmetic struct {
	MaxDegree int
}

// rootSearchLimit bounds the integers whose divisors are enumerated for
// rational root candidates.
var rootSearchLimit = big.NewInt(1_000_000_000_000)

// maxRootCandidates bounds the divisor pairs tried for one polynomial. A
// larger search fails with ErrNotFactorable.
const maxRootCandidates = 1 << 16

func (a RationalArithmetic) DivMod(n, d Poly) (Poly, Poly, error) {
	q, r, err := n.DivMod(d)
	if err != nil {
		return nil, nil, &ArithmeticError{Op: "divmod", Err: err}
	}
	return q, r, nil
}

func (a RationalArithmetic) Factor(p Poly) (*big.Rat, []FactorPower, error) {
	return a.FactorContext(context.Background(), p)
}

// FactorContext is Factor that stops the rational root search when ctx
// ends and returns ctx's error.
func (a RationalArithmetic) FactorContext(ctx context.Context, p Poly) (*big.Rat, []FactorPower, error) {
	if p.IsZero() {
		return nil, nil, &ArithmeticError{Op: "factor", Err: fmt.Errorf("zero polynomial: %w", ErrNotFactorable)}
	}
	if a.MaxDegree > 0 && p.Degree() > a.MaxDegree {
		return nil, nil, &ArithmeticError{Op: "factor", Err: fmt.Errorf("degree %d above %d: %w", p.Degree(), a.MaxDegree, ErrNotFactorable)}
	}
	lc := p.LC()
	var out []FactorPower
	for _, sf := range squareFree(p.Monic()) {
		split, err := splitRationalRoots(ctx, sf.Factor)
		if err != nil {
			return nil, nil, err
		}
		for _, f := range split {
			out = append(out, FactorPower{Factor: f, Mult: sf.Mult})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return lessFactor(out[i], out[j]) })
	return lc, out, nil
}

// squareFree is Yun's algorithm on a monic polynomial.
func squareFree(f Poly) []FactorPower {
	if f.Degree() < 1 {
		return nil
	}
	var out []FactorPower
	d1 := f.Deriv()
	b := PolyGCD(f, d1)
	c, _, _ := f.DivMod(b)
	dq, _, _ := d1.DivMod(b)
	d := dq.Sub(c.Deriv())
	for i := 1; c.Degree() > 0; i++ {
		g := PolyGCD(c, d)
		if g.Degree() > 0 {
			out = append(out, FactorPower{Factor: g, Mult: i})
		}
		c, _, _ = c.DivMod(g)
		dq, _, _ = d.DivMod(g)
		d = dq.Sub(c.Deriv())
	}
	return out
}

// splitRationalRoots splits a monic square-free polynomial into linear
// factors for its rational roots and one remaining factor.
func splitRationalRoots(ctx context.Context, f Poly) ([]Poly, error) {
	if f.Degree() <= 1 {
		return []Poly{f}, nil
	}
	roots, err := rationalRoots(ctx, f)
	if err != nil {
		return nil, err
	}
	var out []Poly
	rest := f
	for _, r := range roots {
		lin := PolyRat(new(big.Rat).Neg(r), big.NewRat(1, 1))
		q, rem, _ := rest.DivMod(lin)
		if !rem.IsZero() {
			continue
		}
		out = append(out, lin)
		rest = q
	}
	if rest.Degree() > 0 {
		out = append(out, rest.Monic())
	}
	return out, nil
}

// rationalRoots lists the distinct rational roots of f in ascending order
// by the rational root theorem on the integer multiple of f.
func rationalRoots(ctx context.Context, f Poly) ([]*big.Rat, error) {
	ints := integerCoeffs(f)
	var roots []*big.Rat
	low := 0
	for low < len(ints) && ints[low].Sign() == 0 {
		low++
	}
	if low > 0 {
		roots = append(roots, new(big.Rat))
		ints = ints[low:]
	}
	if len(ints) < 2 {
		return roots, nil
	}
	a0 := new(big.Int).Abs(ints[0])
	an := new(big.Int).Abs(ints[len(ints)-1])
	if a0.Cmp(rootSearchLimit) > 0 || an.Cmp(rootSearchLimit) > 0 {
		return roots, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ps, qs := divisors(a0), divisors(an)
	if len(ps)*len(qs) > maxRootCandidates {
		return nil, &ArithmeticError{Op: "factor", Err: fmt.Errorf("%d rational root candidates: %w", 2*len(ps)*len(qs), ErrNotFactorable)}
	}
	g := PolyRat(ratsOf(ints)...)
	seen := map[string]bool{}
	n := 0
	for _, p := range ps {
		for _, q := range qs {
			if n++; n&255 == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			for _, sign := range []int64{1, -1} {
				r := new(big.Rat).SetFrac(new(big.Int).Mul(p, big.NewInt(sign)), q)
				k := r.RatString()
				if seen[k] {
					continue
				}
				seen[k] = true
				if g.Eval(r).Sign() == 0 {
					roots = append(roots, r)
				}
			}
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].Cmp(roots[j]) < 0 })
	return roots, nil
}

func integerCoeffs(f Poly) []*big.Int {
	l := big.NewInt(1)
	for _, c := range f {
		d := c.Denom()
		g := new(big.Int).GCD(nil, nil, l, d)
		l.Mul(l, new(big.Int).Quo(d, g))
	}
	out := make([]*big.Int, len(f))
	for i, c := range f {
		v := new(big.Rat).Mul(c, new(big.Rat).SetInt(l))
		out[i] = new(big.Int).Set(v.Num())
	}
	return out
}

func ratsOf(ints []*big.Int) []*big.Rat {
	out := make([]*big.Rat, len(ints))
	for i, v := range ints {
		out[i] = new(big.Rat).SetInt(v)
	}
	return out
}

// divisors enumerates the positive divisors of n > 0 by trial division.
func divisors(n *big.Int) []*big.Int {
	v := n.Int64()
	var small, large []*big.Int
	for d := int64(1); d*d <= v; d++ {
		if v%d == 0 {
			small = append(small, big.NewInt(d))
			if d*d != v {
				large = append(large, big.NewInt(v/d))
			}
		}
	}
	for i := len(large) - 1; i >= 0; i-- {
		small = append(small, large[i])
	}
	return small
}

// lessFactor orders factors by degree, then linear factors by root, then
// coefficients from the constant term up, then multiplicity.
func lessFactor(a, b FactorPower) bool {
	if a.Factor.Degree() != b.Factor.Degree() {
		return a.Factor.Degree() < b.Factor.Degree()
	}
	for i := range a.Factor {
		c := a.Factor[i].Cmp(b.Factor[i])
		if a.Factor.Degree() == 1 && i == 0 {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
	}
	return a.Mult < b.Mult
}
