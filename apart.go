package symkern

import (
	"context"
	"fmt"
	"math/big"
)

// ============================================================
// Partial fractions
// ============================================================

// PolyContext is the working context handed to a generator before any
// part is delivered. Ctx, when set, bounds the factorization.
type PolyContext struct {
	Ctx   context.Context
	Var   Expr
	Arith PolyArithmetic
}

// ContextFactorer is implemented by arithmetics whose factorization can be
// cut short by a context.
type ContextFactorer interface {
	FactorContext(ctx context.Context, p Poly) (lc *big.Rat, factors []FactorPower, err error)
}

func (c *PolyContext) factor(p Poly) (*big.Rat, []FactorPower, error) {
	if cf, ok := c.Arith.(ContextFactorer); ok && c.Ctx != nil {
		return cf.FactorContext(c.Ctx, p)
	}
	return c.Arith.Factor(p)
}

// PartialFractionGenerator receives the pieces of a decomposition in order:
// the context, the non-fractional part, then each numer/factor^power term.
type PartialFractionGenerator interface {
	SetContext(ctx *PolyContext)
	AddNonFractionalPart(q Poly)
	AddSinglePartialFraction(numer, factor Poly, power int)
}

// Decompose splits num/den into a polynomial part and a sum of terms
// A/D^j where each D is a monic factor of den and deg A < deg D. Terms are
// delivered in factor order with ascending powers; zero numerators are
// skipped. When den cannot be factored the generator has received only the
// non-fractional part and an *ArithmeticError is returned.
func Decompose(num, den Poly, arith PolyArithmetic, gen PartialFractionGenerator) error {
	return decompose(&PolyContext{Var: S("x"), Arith: arith}, num, den, gen)
}

func decompose(ctx *PolyContext, num, den Poly, gen PartialFractionGenerator) error {
	if den.IsZero() {
		return &ArithmeticError{Op: "decompose", Err: ErrDivisionByZero}
	}
	arith := ctx.Arith
	gen.SetContext(ctx)
	q, r, err := arith.DivMod(num, den)
	if err != nil {
		return err
	}
	gen.AddNonFractionalPart(q)
	if r.IsZero() || den.Degree() == 0 {
		return nil
	}
	lc, factors, err := ctx.factor(den)
	if err != nil {
		return err
	}
	inv := new(big.Rat).Inv(lc)
	r = r.Scale(inv)
	monic := den.Scale(inv)

	for _, fp := range factors {
		pk := fp.Factor.Pow(fp.Mult)
		cofactor, rem, err := arith.DivMod(monic, pk)
		if err != nil {
			return err
		}
		if !rem.IsZero() {
			return &ArithmeticError{Op: "factor", Err: fmt.Errorf("factor %s does not divide the denominator", fp.Factor)}
		}
		g, s, _ := PolyExtGCD(cofactor, pk)
		if g.Degree() != 0 {
			return &ArithmeticError{Op: "factor", Err: fmt.Errorf("factors are not coprime")}
		}
		// c/pk is this factor's share of r/den.
		_, c, err := arith.DivMod(r.Mul(s), pk)
		if err != nil {
			return err
		}
		numers := make([]Poly, fp.Mult+1)
		for j := fp.Mult; j >= 1; j-- {
			quo, a, err := arith.DivMod(c, fp.Factor)
			if err != nil {
				return err
			}
			numers[j] = a
			c = quo
		}
		for j := 1; j <= fp.Mult; j++ {
			if !numers[j].IsZero() {
				gen.AddSinglePartialFraction(numers[j], fp.Factor, j)
			}
		}
	}
	return nil
}

// PartialFraction is one term numer/factor^power.
type PartialFraction struct {
	Numer  Poly
	Factor Poly
	Power  int
}

// Decomposition collects a decomposition as plain data.
type Decomposition struct {
	Quotient Poly
	Terms    []PartialFraction
}

func (d *Decomposition) SetContext(*PolyContext)     {}
func (d *Decomposition) AddNonFractionalPart(q Poly) { d.Quotient = q }
func (d *Decomposition) AddSinglePartialFraction(numer, factor Poly, power int) {
	d.Terms = append(d.Terms, PartialFraction{Numer: numer, Factor: factor, Power: power})
}

// ExprGenerator builds the decomposition as an unevaluated Plus in the
// context variable.
type ExprGenerator struct {
	x     Expr
	terms []Expr
}

func (g *ExprGenerator) SetContext(ctx *PolyContext) { g.x = ctx.Var }

func (g *ExprGenerator) AddNonFractionalPart(q Poly) {
	if !q.IsZero() {
		g.terms = append(g.terms, PolyToExpr(q, g.x))
	}
}

func (g *ExprGenerator) AddSinglePartialFraction(numer, factor Poly, power int) {
	g.terms = append(g.terms, Times(PolyToExpr(numer, g.x), Power(PolyToExpr(factor, g.x), N(int64(-power)))))
}

// Result is the sum of the delivered parts.
func (g *ExprGenerator) Result() Expr {
	switch len(g.terms) {
	case 0:
		return N(0)
	case 1:
		return g.terms[0]
	}
	return Plus(g.terms...)
}

// ============================================================
// Conversion between expressions and polynomials
// ============================================================

// PolyToExpr writes p as an unevaluated sum of monomials in x.
func PolyToExpr(p Poly, x Expr) Expr {
	if p.IsZero() {
		return N(0)
	}
	var terms []Expr
	for i, c := range p {
		if c.Sign() == 0 {
			continue
		}
		coeff := RatOf(c)
		var mono Expr
		switch i {
		case 0:
			terms = append(terms, coeff)
			continue
		case 1:
			mono = x
		default:
			mono = Power(x, N(int64(i)))
		}
		if c.Cmp(big.NewRat(1, 1)) == 0 {
			terms = append(terms, mono)
		} else {
			terms = append(terms, Times(coeff, mono))
		}
	}
	if len(terms) == 1 {
		return terms[0]
	}
	return Plus(terms...)
}

// ExprToPoly reads e as a polynomial in x with rational coefficients.
func ExprToPoly(e Expr, x Expr) (Poly, bool) {
	n, d, ok := toRationalFunction(e, x)
	if !ok || d.Degree() != 0 {
		return nil, false
	}
	return n.Scale(new(big.Rat).Inv(d[0])), true
}

// toRationalFunction reads e as num/den with num, den polynomials in x.
func toRationalFunction(e Expr, x Expr) (num, den Poly, ok bool) {
	if e.Equal(x) {
		return PolyOf(0, 1), PolyOf(1), true
	}
	if r, ok := toRat(e); ok {
		return polyConst(r), PolyOf(1), true
	}
	c, isCall := e.(*Call)
	if !isCall {
		return nil, nil, false
	}
	switch c.HeadName() {
	case hPlus:
		num, den = nil, PolyOf(1)
		for _, a := range c.args {
			n, d, ok := toRationalFunction(a, x)
			if !ok {
				return nil, nil, false
			}
			num = num.Mul(d).Add(n.Mul(den))
			den = den.Mul(d)
		}
		return num, den, true
	case hTimes:
		num, den = PolyOf(1), PolyOf(1)
		for _, a := range c.args {
			n, d, ok := toRationalFunction(a, x)
			if !ok {
				return nil, nil, false
			}
			num, den = num.Mul(n), den.Mul(d)
		}
		return num, den, true
	case hPower:
		if len(c.args) != 2 {
			return nil, nil, false
		}
		k, ok := c.args[1].(*Int)
		if !ok {
			return nil, nil, false
		}
		e, ok := k.Int64()
		if !ok || e > 1024 || e < -1024 {
			return nil, nil, false
		}
		n, d, ok := toRationalFunction(c.args[0], x)
		if !ok {
			return nil, nil, false
		}
		if e < 0 {
			if n.IsZero() {
				return nil, nil, false
			}
			n, d, e = d, n, -e
		}
		return n.Pow(int(e)), d.Pow(int(e)), true
	}
	return nil, nil, false
}

// apartExpr decomposes e in x and returns the unevaluated sum.
func apartExpr(ctx context.Context, e, x Expr, arith PolyArithmetic) (Expr, error) {
	num, den, ok := toRationalFunction(e, x)
	if !ok {
		return nil, fmt.Errorf("not a rational function of %s", x)
	}
	if den.Degree() == 0 {
		return nil, nil
	}
	if g := PolyGCD(num, den); g.Degree() > 0 {
		num, _, _ = num.DivMod(g)
		den, _, _ = den.DivMod(g)
	}
	gen := &ExprGenerator{}
	if err := decompose(&PolyContext{Ctx: ctx, Var: x, Arith: arith}, num, den, gen); err != nil {
		return nil, err
	}
	return gen.Result(), nil
}
