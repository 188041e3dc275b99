package symkern

import (
	"math"
	"math/big"
	"sync"
)

// Arbitrary precision elementary functions. Every routine computes with
// guard bits and rounds the result to the requested precision.

const guardBits = 32

func newF(prec uint) *big.Float { return new(big.Float).SetPrec(prec) }

func fInt(prec uint, v int64) *big.Float { return newF(prec).SetInt64(v) }

// series decides when an iteration has converged: the value stopped
// changing, or the change stalled for a few rounds, or max rounds passed.
type series struct {
	i, max    int
	stall     int
	prevZ     *big.Float
	delta     *big.Float
	prevDelta *big.Float
}

func newSeries(prec uint, itersPerBit int) *series {
	return &series{
		max:       10 + itersPerBit*int(prec),
		prevZ:     newF(prec),
		delta:     newF(prec),
		prevDelta: newF(prec),
	}
}

func (s *series) done(z *big.Float) bool {
	s.delta.Sub(s.prevZ, z)
	if s.delta.Sign() == 0 {
		return true
	}
	s.delta.Abs(s.delta)
	if s.delta.Cmp(s.prevDelta) == 0 {
		s.stall++
		if s.stall > 3 {
			return true
		}
	} else {
		s.stall = 0
	}
	s.i++
	if s.i >= s.max {
		return true
	}
	s.prevDelta.Set(s.delta)
	s.prevZ.Set(z)
	return false
}

// ============================================================
// Constants
// ============================================================

var piCache struct {
	sync.Mutex
	prec uint
	val  *big.Float
}

// bigPi returns pi at prec bits. The widest value computed so far is kept.
func bigPi(prec uint) *big.Float {
	piCache.Lock()
	defer piCache.Unlock()
	if piCache.val == nil || piCache.prec < prec {
		w := prec + guardBits
		// Machin: pi = 16 atan(1/5) - 4 atan(1/239)
		a := atanInv(5, w)
		a.Mul(a, fInt(w, 16))
		b := atanInv(239, w)
		b.Mul(b, fInt(w, 4))
		piCache.val = a.Sub(a, b)
		piCache.prec = prec
	}
	return newF(prec).Set(piCache.val)
}

// atanInv is atan(1/n) by its Taylor series.
func atanInv(n int64, prec uint) *big.Float {
	z := newF(prec)
	nn := fInt(prec, n*n)
	pow := newF(prec).Quo(fInt(prec, 1), fInt(prec, n))
	term := newF(prec)
	s := newSeries(prec, 1)
	for k := int64(0); ; k++ {
		term.Quo(pow, fInt(prec, 2*k+1))
		if k%2 == 0 {
			z.Add(z, term)
		} else {
			z.Sub(z, term)
		}
		if s.done(z) {
			return z
		}
		pow.Quo(pow, nn)
	}
}

// ============================================================
// Real functions
// ============================================================

func bigExp(x *big.Float, prec uint) *big.Float {
	if x.IsInf() {
		if x.Sign() > 0 {
			return newF(prec).SetInf(false)
		}
		return newF(prec)
	}
	y := new(big.Float).Abs(x)
	// Halve the argument until it is below 1/2, then square back.
	k := 0
	if e := y.MantExp(nil); e > -1 {
		k = e + 1
	}
	w := prec + guardBits + uint(k)
	y = newF(w).SetMantExp(newF(w).Set(y), -k)

	z := fInt(w, 1)
	term := fInt(w, 1)
	s := newSeries(w, 1)
	for n := int64(1); ; n++ {
		term.Mul(term, y)
		term.Quo(term, fInt(w, n))
		z.Add(z, term)
		if s.done(z) {
			break
		}
	}
	for i := 0; i < k; i++ {
		z.Mul(z, z)
	}
	if x.Sign() < 0 {
		z.Quo(fInt(w, 1), z)
	}
	return newF(prec).Set(z)
}

// bigLog is the natural log of x > 0 by Newton iteration on exp.
func bigLog(x *big.Float, prec uint) *big.Float {
	if x.IsInf() {
		return newF(prec).SetInf(false)
	}
	w := prec + guardBits
	mant := new(big.Float)
	e := x.MantExp(mant)
	m, _ := mant.Float64()
	y := newF(w).SetFloat64(math.Log(m) + float64(e)*math.Ln2)

	xw := newF(w).Set(x)
	num, den := newF(w), newF(w)
	s := newSeries(w, 1)
	for {
		ey := bigExp(y, w)
		num.Sub(xw, ey)
		num.Mul(num, fInt(w, 2))
		den.Add(xw, ey)
		num.Quo(num, den)
		y.Add(y, num)
		if s.done(y) {
			break
		}
	}
	return newF(prec).Set(y)
}

func bigAtan(x *big.Float, prec uint) *big.Float {
	if x.IsInf() {
		p := bigPi(prec)
		p.Quo(p, fInt(prec, 2))
		if x.Sign() < 0 {
			p.Neg(p)
		}
		return p
	}
	w := prec + guardBits
	y := newF(w).Set(x)
	// atan(x) = 2 atan(x / (1 + sqrt(1+x^2))) until |x| is small.
	r := 0
	limit := newF(w).SetFloat64(0.125)
	t := newF(w)
	for new(big.Float).Abs(y).Cmp(limit) > 0 {
		t.Mul(y, y)
		t.Add(t, fInt(w, 1))
		t.Sqrt(t)
		t.Add(t, fInt(w, 1))
		y.Quo(y, t)
		r++
	}
	z := newF(w)
	y2 := newF(w).Mul(y, y)
	pow := newF(w).Set(y)
	term := newF(w)
	s := newSeries(w, 1)
	for k := int64(0); ; k++ {
		term.Quo(pow, fInt(w, 2*k+1))
		if k%2 == 0 {
			z.Add(z, term)
		} else {
			z.Sub(z, term)
		}
		if s.done(z) {
			break
		}
		pow.Mul(pow, y2)
	}
	z.SetMantExp(z, r)
	return newF(prec).Set(z)
}

// bigAtan2 is the angle of the point (x, y).
func bigAtan2(y, x *big.Float, prec uint) *big.Float {
	switch {
	case x.Sign() == 0 && y.Sign() == 0:
		return newF(prec)
	case x.Sign() == 0:
		p := bigPi(prec)
		p.Quo(p, fInt(prec, 2))
		if y.Sign() < 0 {
			p.Neg(p)
		}
		return p
	}
	w := prec + guardBits
	a := bigAtan(newF(w).Quo(y, x), w)
	if x.Sign() < 0 {
		if y.Sign() >= 0 {
			a.Add(a, bigPi(w))
		} else {
			a.Sub(a, bigPi(w))
		}
	}
	return newF(prec).Set(a)
}

// bigSinCos returns sin(x) and cos(x).
func bigSinCos(x *big.Float, prec uint) (*big.Float, *big.Float) {
	w := prec + guardBits
	if e := x.MantExp(nil); e > 0 {
		w += uint(e)
	}
	y := newF(w).Set(x)
	twoPi := bigPi(w)
	twoPi.Mul(twoPi, fInt(w, 2))
	// Reduce into [-pi, pi].
	q := newF(w).Quo(y, twoPi)
	qi, _ := q.Int(nil)
	if q.Sign() >= 0 {
		if frac := newF(w).Sub(q, newF(w).SetInt(qi)); frac.Cmp(newF(w).SetFloat64(0.5)) > 0 {
			qi.Add(qi, big.NewInt(1))
		}
	} else if frac := newF(w).Sub(q, newF(w).SetInt(qi)); frac.Cmp(newF(w).SetFloat64(-0.5)) < 0 {
		qi.Sub(qi, big.NewInt(1))
	}
	y.Sub(y, newF(w).Mul(newF(w).SetInt(qi), twoPi))

	sin, cos := newF(w), fInt(w, 1)
	term := newF(w).Set(y)
	y2 := newF(w).Mul(y, y)
	sin.Set(y)
	s := newSeries(w, 1)
	c := newSeries(w, 1)
	sinDone, cosDone := false, false
	ct := fInt(w, 1)
	for n := int64(1); !sinDone || !cosDone; n++ {
		// ct holds (-1)^n y^(2n)/(2n)!, term holds (-1)^n y^(2n+1)/(2n+1)!
		ct.Mul(ct, y2)
		ct.Quo(ct, fInt(w, (2*n-1)*(2*n)))
		ct.Neg(ct)
		term.Mul(term, y2)
		term.Quo(term, fInt(w, (2*n)*(2*n+1)))
		term.Neg(term)
		if !cosDone {
			cos.Add(cos, ct)
			cosDone = c.done(cos)
		}
		if !sinDone {
			sin.Add(sin, term)
			sinDone = s.done(sin)
		}
	}
	return newF(prec).Set(sin), newF(prec).Set(cos)
}

// bigSinhCosh returns sinh(x) and cosh(x).
func bigSinhCosh(x *big.Float, prec uint) (*big.Float, *big.Float) {
	w := prec + guardBits
	if e := x.MantExp(nil); e < 0 {
		w += uint(-e)
	}
	ex := bigExp(x, w)
	inv := newF(w).Quo(fInt(w, 1), ex)
	sh := newF(w).Sub(ex, inv)
	ch := newF(w).Add(ex, inv)
	sh.Quo(sh, fInt(w, 2))
	ch.Quo(ch, fInt(w, 2))
	return newF(prec).Set(sh), newF(prec).Set(ch)
}

// bigPowInt is x^n by repeated squaring.
func bigPowInt(x *big.Float, n *big.Int, prec uint) *big.Float {
	w := prec + guardBits + uint(n.BitLen())
	z := fInt(w, 1)
	b := newF(w).Set(x)
	e := new(big.Int).Abs(n)
	for i := 0; i < e.BitLen(); i++ {
		if e.Bit(i) == 1 {
			z.Mul(z, b)
		}
		b.Mul(b, b)
	}
	if n.Sign() < 0 {
		z.Quo(fInt(w, 1), z)
	}
	return newF(prec).Set(z)
}

// ============================================================
// Complex functions
// ============================================================

func bigCMul(prec uint, a, b, c, d *big.Float) (*big.Float, *big.Float) {
	re := newF(prec).Mul(a, c)
	re.Sub(re, newF(prec).Mul(b, d))
	im := newF(prec).Mul(a, d)
	im.Add(im, newF(prec).Mul(b, c))
	return re, im
}

func bigCQuo(prec uint, a, b, c, d *big.Float) (*big.Float, *big.Float) {
	den := newF(prec).Mul(c, c)
	den.Add(den, newF(prec).Mul(d, d))
	re, im := bigCMul(prec, a, b, c, newF(prec).Neg(d))
	return re.Quo(re, den), im.Quo(im, den)
}

func bigCAbs(z *BigComplex, prec uint) *big.Float {
	w := prec + guardBits
	s := newF(w).Mul(z.re, z.re)
	s.Add(s, newF(w).Mul(z.im, z.im))
	return newF(prec).Set(s.Sqrt(s))
}

func bigCExp(z *BigComplex, prec uint) *BigComplex {
	w := prec + guardBits
	r := bigExp(z.re, w)
	sin, cos := bigSinCos(z.im, w)
	return &BigComplex{re: newF(prec).Mul(r, cos), im: newF(prec).Mul(r, sin)}
}

func bigCLog(z *BigComplex, prec uint) *BigComplex {
	w := prec + guardBits
	return &BigComplex{
		re: newF(prec).Set(bigLog(bigCAbs(z, w), w)),
		im: bigAtan2(z.im, z.re, prec),
	}
}

func bigCSin(z *BigComplex, prec uint) *BigComplex {
	w := prec + guardBits
	s, c := bigSinCos(z.re, w)
	sh, ch := bigSinhCosh(z.im, w)
	return &BigComplex{re: newF(prec).Mul(s, ch), im: newF(prec).Mul(c, sh)}
}

func bigCCos(z *BigComplex, prec uint) *BigComplex {
	w := prec + guardBits
	s, c := bigSinCos(z.re, w)
	sh, ch := bigSinhCosh(z.im, w)
	im := newF(prec).Mul(s, sh)
	return &BigComplex{re: newF(prec).Mul(c, ch), im: im.Neg(im)}
}

func bigCSinh(z *BigComplex, prec uint) *BigComplex {
	w := prec + guardBits
	s, c := bigSinCos(z.im, w)
	sh, ch := bigSinhCosh(z.re, w)
	return &BigComplex{re: newF(prec).Mul(sh, c), im: newF(prec).Mul(ch, s)}
}

func bigCCosh(z *BigComplex, prec uint) *BigComplex {
	w := prec + guardBits
	s, c := bigSinCos(z.im, w)
	sh, ch := bigSinhCosh(z.re, w)
	return &BigComplex{re: newF(prec).Mul(ch, c), im: newF(prec).Mul(sh, s)}
}

func bigCQuotient(a, b *BigComplex, prec uint) *BigComplex {
	re, im := bigCQuo(prec, a.re, a.im, b.re, b.im)
	return &BigComplex{re: re, im: im}
}

// bigCPow is z^p = exp(p log z). 0^p is 0 for p with positive real part.
func bigCPow(z, p *BigComplex, prec uint) (*BigComplex, error) {
	if z.re.Sign() == 0 && z.im.Sign() == 0 {
		if p.re.Sign() > 0 {
			return &BigComplex{re: newF(prec), im: newF(prec)}, nil
		}
		return nil, domainErrorf(hPower, "zero to a non-positive power")
	}
	w := prec + guardBits
	l := bigCLog(z, w)
	re, im := bigCMul(w, p.re, p.im, l.re, l.im)
	return bigCExp(&BigComplex{re: re, im: im}, prec), nil
}
