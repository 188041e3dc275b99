package symkern

import (
	"math/big"
)

// trigInfo describes the symbolic identities of one function.
type trigInfo struct {
	odd    bool   // f(-x) = -f(x); otherwise f(-x) = f(x)
	period int64  // in multiples of Pi; 0 when not periodic on the real line
	ix     string // f(I x) = ixI * ix(x)
	ixI    bool
}

var trigTable = map[string]trigInfo{
	"Sin":  {odd: true, period: 2, ix: "Sinh", ixI: true},
	"Cos":  {period: 2, ix: "Cosh"},
	"Tan":  {odd: true, period: 1, ix: "Tanh", ixI: true},
	"Sinh": {odd: true, ix: "Sin", ixI: true},
	"Cosh": {ix: "Cos"},
	"Tanh": {odd: true, ix: "Tan", ixI: true},
	"Abs":  {},
}

// trigBuiltin normalizes a one-argument function before numeric dispatch:
// the sign of a negative argument is pulled out (odd) or dropped (even), a
// multiple k*Pi with |k| >= period is reduced modulo the period, and a
// purely imaginary argument I*x turns into the complementary function of x.
// Inexact arguments are left to the numeric ladder.
func trigBuiltin(name string) builtinFunc {
	info := trigTable[name]
	return func(ev *evaluator, c *Call) Expr {
		if len(c.args) != 1 || isInexactNumber(c.args[0]) {
			return nil
		}
		x := c.args[0]
		if neg, ok := negated(x); ok {
			if info.odd {
				return Times(N(-1), Fn(name, neg))
			}
			return Fn(name, neg)
		}
		if info.period > 0 {
			if r, ok := reducePeriod(x, info.period); ok {
				return Fn(name, r)
			}
		}
		if info.ix != "" {
			if y, ok := imaginaryPart(x); ok {
				if info.ixI {
					return Times(I, Fn(info.ix, y))
				}
				return Fn(info.ix, y)
			}
		}
		return nil
	}
}

// negated returns -x when x is syntactically negative: a negative number
// or a product with a negative numeric coefficient.
func negated(x Expr) (Expr, bool) {
	if s, ok := numSign(x); ok {
		if s < 0 {
			return numNeg(x), true
		}
		return nil, false
	}
	t, ok := isCall(x, hTimes)
	if !ok || len(t.args) < 2 {
		return nil, false
	}
	if s, ok := numSign(t.args[0]); !ok || s >= 0 {
		return nil, false
	}
	coeff := numNeg(t.args[0])
	if isExactInt(coeff, 1) {
		if len(t.args) == 2 {
			return t.args[1], true
		}
		return newCall(t.head, t.args[1:]), true
	}
	args := make([]Expr, len(t.args))
	copy(args, t.args)
	args[0] = coeff
	return newCall(t.head, args), true
}

// piMultiple reads x as k*Pi with exact rational k.
func piMultiple(x Expr) (*big.Rat, bool) {
	if isSym(x, symPi) {
		return big.NewRat(1, 1), true
	}
	t, ok := isCall(x, hTimes)
	if !ok || len(t.args) != 2 || !isSym(t.args[1], symPi) {
		return nil, false
	}
	return toRat(t.args[0])
}

// reducePeriod rewrites k*Pi, or a sum containing a k*Pi term, with k
// reduced into [0, period) when |k| >= period.
func reducePeriod(x Expr, period int64) (Expr, bool) {
	if k, ok := piMultiple(x); ok {
		r, ok := reduceMod(k, period)
		if !ok {
			return nil, false
		}
		return Times(RatOf(r), Pi), true
	}
	p, ok := isCall(x, hPlus)
	if !ok {
		return nil, false
	}
	for i, a := range p.args {
		k, ok := piMultiple(a)
		if !ok {
			continue
		}
		r, ok := reduceMod(k, period)
		if !ok {
			return nil, false
		}
		args := make([]Expr, len(p.args))
		copy(args, p.args)
		args[i] = Times(RatOf(r), Pi)
		return newCall(p.head, args), true
	}
	return nil, false
}

func reduceMod(k *big.Rat, period int64) (*big.Rat, bool) {
	per := big.NewRat(period, 1)
	if new(big.Rat).Abs(k).Cmp(per) < 0 {
		return nil, false
	}
	// floor(k / period)
	q := new(big.Rat).Quo(k, per)
	fl := new(big.Int).Div(q.Num(), q.Denom())
	r := new(big.Rat).Sub(k, new(big.Rat).Mul(per, new(big.Rat).SetInt(fl)))
	return r, true
}

// imaginaryPart returns y when x is I*y.
func imaginaryPart(x Expr) (Expr, bool) {
	if isSym(x, symI) {
		return N(1), true
	}
	t, ok := isCall(x, hTimes)
	if !ok {
		return nil, false
	}
	for i, a := range t.args {
		if !isSym(a, symI) {
			continue
		}
		rest := make([]Expr, 0, len(t.args)-1)
		rest = append(append(rest, t.args[:i]...), t.args[i+1:]...)
		if len(rest) == 1 {
			return rest[0], true
		}
		return newCall(t.head, rest), true
	}
	return nil, false
}
