package symkern

import (
	"math"
	"math/big"
)

// ============================================================
// Number classification
// ============================================================

func isNumber(e Expr) bool {
	switch e.(type) {
	case *Int, *Rat, Real, Complex, *BigReal, *BigComplex:
		return true
	}
	return false
}

func isExactNumber(e Expr) bool {
	switch e.(type) {
	case *Int, *Rat:
		return true
	}
	return false
}

func isInexactNumber(e Expr) bool { return isNumber(e) && !isExactNumber(e) }

func isRealNumber(e Expr) bool {
	switch e.(type) {
	case *Int, *Rat, Real, *BigReal:
		return true
	}
	return false
}

// domainOf is the representation domain of a number; DomainExact otherwise.
func domainOf(e Expr) Domain {
	switch e.(type) {
	case Real:
		return DomainMachineReal
	case Complex:
		return DomainMachineComplex
	case *BigReal:
		return DomainBigReal
	case *BigComplex:
		return DomainBigComplex
	}
	return DomainExact
}

// precOf is the mantissa precision of an arbitrary precision number, or 0.
func precOf(e Expr) uint {
	switch x := e.(type) {
	case *BigReal:
		return x.Prec()
	case *BigComplex:
		return x.Prec()
	}
	return 0
}

func toRat(e Expr) (*big.Rat, bool) {
	switch x := e.(type) {
	case *Int:
		return new(big.Rat).SetInt(x.val), true
	case *Rat:
		return new(big.Rat).Set(x.val), true
	}
	return nil, false
}

func toFloat64(e Expr) float64 {
	switch x := e.(type) {
	case *Int:
		f, _ := new(big.Float).SetInt(x.val).Float64()
		return f
	case *Rat:
		f, _ := x.val.Float64()
		return f
	case Real:
		return float64(x)
	case *BigReal:
		f, _ := x.val.Float64()
		return f
	}
	return math.NaN()
}

func toComplex128(e Expr) complex128 {
	switch x := e.(type) {
	case Complex:
		return complex128(x)
	case *BigComplex:
		re, _ := x.re.Float64()
		im, _ := x.im.Float64()
		return complex(re, im)
	}
	return complex(toFloat64(e), 0)
}

// toBigFloat converts a real number at prec bits. Machine NaN maps to nil.
func toBigFloat(e Expr, prec uint) *big.Float {
	f := new(big.Float).SetPrec(prec)
	switch x := e.(type) {
	case *Int:
		return f.SetInt(x.val)
	case *Rat:
		return f.SetRat(x.val)
	case Real:
		if math.IsNaN(float64(x)) {
			return nil
		}
		return f.SetFloat64(float64(x))
	case *BigReal:
		return f.Set(x.val)
	}
	return nil
}

// toBigParts converts any number to real and imaginary parts at prec bits.
func toBigParts(e Expr, prec uint) (re, im *big.Float) {
	switch x := e.(type) {
	case Complex:
		re = new(big.Float).SetPrec(prec)
		im = new(big.Float).SetPrec(prec)
		if !math.IsNaN(real(x)) {
			re.SetFloat64(real(x))
		}
		if !math.IsNaN(imag(x)) {
			im.SetFloat64(imag(x))
		}
		return re, im
	case *BigComplex:
		return new(big.Float).SetPrec(prec).Set(x.re), new(big.Float).SetPrec(prec).Set(x.im)
	}
	re = toBigFloat(e, prec)
	if re == nil {
		re = new(big.Float).SetPrec(prec)
	}
	return re, new(big.Float).SetPrec(prec)
}

// workPrec is the precision of an arbitrary precision operation over args:
// the lowest precision among the arbitrary precision operands.
func workPrec(args ...Expr) uint {
	var p uint
	for _, a := range args {
		if q := precOf(a); q > 0 && (p == 0 || q < p) {
			p = q
		}
	}
	if p == 0 {
		p = MachinePrecision
	}
	return p
}

// ============================================================
// Arithmetic across domains
// ============================================================

func numAdd(a, b Expr) Expr {
	switch joinDomain(domainOf(a), domainOf(b)) {
	case DomainExact:
		x, _ := toRat(a)
		y, _ := toRat(b)
		return RatOf(x.Add(x, y))
	case DomainMachineReal:
		return R(toFloat64(a) + toFloat64(b))
	case DomainMachineComplex:
		return Complex(toComplex128(a) + toComplex128(b))
	case DomainBigReal:
		p := workPrec(a, b)
		return &BigReal{val: new(big.Float).SetPrec(p).Add(toBigFloat(a, p), toBigFloat(b, p))}
	}
	p := workPrec(a, b)
	ar, ai := toBigParts(a, p)
	br, bi := toBigParts(b, p)
	return &BigComplex{re: ar.Add(ar, br), im: ai.Add(ai, bi)}
}

func numMul(a, b Expr) Expr {
	switch joinDomain(domainOf(a), domainOf(b)) {
	case DomainExact:
		x, _ := toRat(a)
		y, _ := toRat(b)
		return RatOf(x.Mul(x, y))
	case DomainMachineReal:
		return R(toFloat64(a) * toFloat64(b))
	case DomainMachineComplex:
		return Complex(toComplex128(a) * toComplex128(b))
	case DomainBigReal:
		p := workPrec(a, b)
		return &BigReal{val: new(big.Float).SetPrec(p).Mul(toBigFloat(a, p), toBigFloat(b, p))}
	}
	p := workPrec(a, b)
	ar, ai := toBigParts(a, p)
	br, bi := toBigParts(b, p)
	re, im := bigCMul(p, ar, ai, br, bi)
	return &BigComplex{re: re, im: im}
}

func numNeg(a Expr) Expr { return numMul(N(-1), a) }

// numSign is the sign of a real number; ok is false for complex or NaN.
func numSign(e Expr) (int, bool) {
	switch x := e.(type) {
	case *Int:
		return x.val.Sign(), true
	case *Rat:
		return x.val.Sign(), true
	case Real:
		f := float64(x)
		switch {
		case math.IsNaN(f):
			return 0, false
		case f > 0:
			return 1, true
		case f < 0:
			return -1, true
		}
		return 0, true
	case *BigReal:
		return x.val.Sign(), true
	}
	return 0, false
}

func isZeroNumber(e Expr) bool {
	switch x := e.(type) {
	case Complex:
		return x == 0
	case *BigComplex:
		return x.re.Sign() == 0 && x.im.Sign() == 0
	}
	s, ok := numSign(e)
	return ok && s == 0
}

func isExactInt(e Expr, v int64) bool {
	n, ok := e.(*Int)
	if !ok {
		return false
	}
	w, ok := n.Int64()
	return ok && w == v
}

// compareReal orders two real numbers numerically.
func compareReal(a, b Expr) (int, bool) {
	if x, ok := toRat(a); ok {
		if y, ok := toRat(b); ok {
			return x.Cmp(y), true
		}
	}
	if !isRealNumber(a) || !isRealNumber(b) {
		return 0, false
	}
	p := workPrec(a, b) + 64
	x, y := toBigFloat(a, p), toBigFloat(b, p)
	if x == nil || y == nil {
		return 0, false
	}
	return x.Cmp(y), true
}

var numberKindRank = map[string]int{"int": 0, "rat": 1, "real": 2, "bigreal": 3, "complex": 4, "bigcomplex": 5}

// compareNumbers is the canonical order of numbers: by real part, then
// imaginary part, then representation.
func compareNumbers(a, b Expr) int {
	if c, ok := compareReal(a, b); ok && c != 0 {
		return c
	}
	if !isRealNumber(a) || !isRealNumber(b) {
		nanA, nanB := hasNaN(a), hasNaN(b)
		if nanA || nanB {
			if nanA && nanB {
				return cmpInt(numberKindRank[a.exprType()], numberKindRank[b.exprType()])
			}
			if nanA {
				return 1
			}
			return -1
		}
		p := workPrec(a, b) + 64
		ar, ai := toBigParts(a, p)
		br, bi := toBigParts(b, p)
		if c := ar.Cmp(br); c != 0 {
			return c
		}
		if c := ai.Cmp(bi); c != 0 {
			return c
		}
	} else if hasNaN(a) != hasNaN(b) {
		if hasNaN(a) {
			return 1
		}
		return -1
	}
	return cmpInt(numberKindRank[a.exprType()], numberKindRank[b.exprType()])
}

func hasNaN(e Expr) bool {
	switch x := e.(type) {
	case Real:
		return math.IsNaN(float64(x))
	case Complex:
		return math.IsNaN(real(x)) || math.IsNaN(imag(x))
	}
	return false
}
