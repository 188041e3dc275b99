package symkern

import (
	"errors"
	"math"
	"math/big"
	"math/cmplx"
)

// Domain is a rung of the numeric ladder.
type Domain int

const (
	DomainExact Domain = iota
	DomainMachineReal
	DomainMachineComplex
	DomainBigReal
	DomainBigComplex
)

func (d Domain) String() string {
	switch d {
	case DomainExact:
		return "Exact"
	case DomainMachineReal:
		return "MachineReal"
	case DomainMachineComplex:
		return "MachineComplex"
	case DomainBigReal:
		return "BigReal"
	case DomainBigComplex:
		return "BigComplex"
	}
	return "Domain(?)"
}

func (d Domain) complex() bool { return d == DomainMachineComplex || d == DomainBigComplex }
func (d Domain) big() bool     { return d == DomainBigReal || d == DomainBigComplex }

// joinDomain is the lowest domain covering both a and b.
func joinDomain(a, b Domain) Domain {
	if a == DomainExact {
		return b
	}
	if b == DomainExact {
		return a
	}
	cx := a.complex() || b.complex()
	bg := a.big() || b.big()
	switch {
	case cx && bg:
		return DomainBigComplex
	case bg:
		return DomainBigReal
	case cx:
		return DomainMachineComplex
	}
	return DomainMachineReal
}

// promote moves a real domain to the complex domain of the same precision.
func (d Domain) promote() Domain {
	switch d {
	case DomainMachineReal:
		return DomainMachineComplex
	case DomainBigReal:
		return DomainBigComplex
	}
	return d
}

// Precision is a requested mantissa precision in bits. Zero requests
// nothing; MachinePrecision or less selects machine numbers.
type Precision uint

const MachinePrecision = 53

// PrecisionDigits converts decimal digits to a Precision.
func PrecisionDigits(digits int) Precision { return Precision(digitsToBits(digits)) }

func (p Precision) domain() Domain {
	switch {
	case p == 0:
		return DomainExact
	case p <= MachinePrecision:
		return DomainMachineReal
	}
	return DomainBigReal
}

// NumericFuncs holds the typed entry points of one head. A nil entry means
// the head has no evaluator at that domain and stays symbolic there.
type NumericFuncs struct {
	MachineReal    func(args []float64) (Expr, error)
	MachineComplex func(args []complex128) (Expr, error)
	BigReal        func(prec uint, args []*big.Float) (Expr, error)
	BigComplex     func(prec uint, args []*BigComplex) (Expr, error)
}

func (f *NumericFuncs) has(d Domain) bool {
	switch d {
	case DomainMachineReal:
		return f.MachineReal != nil
	case DomainMachineComplex:
		return f.MachineComplex != nil
	case DomainBigReal:
		return f.BigReal != nil
	case DomainBigComplex:
		return f.BigComplex != nil
	}
	return false
}

// evaluateNumeric selects a domain for args and calls the matching entry.
// ok is false when no numeric evaluation applies. A *DomainError is
// returned as is; callers keep the symbolic form.
func evaluateNumeric(table map[string]*NumericFuncs, head string, args []Expr, prec Precision) (Expr, bool, error) {
	f := table[head]
	if f == nil {
		return nil, false, nil
	}
	d := prec.domain()
	for _, a := range args {
		if !isNumber(a) {
			return nil, false, nil
		}
		d = joinDomain(d, domainOf(a))
	}
	if d == DomainExact {
		return nil, false, nil
	}
	bits := uint(prec)
	if p := workPrec(args...); p > MachinePrecision && (bits == 0 || p < bits) {
		bits = p
	}
	if bits < MachinePrecision {
		bits = MachinePrecision
	}
	for {
		if !f.has(d) {
			return nil, false, nil
		}
		out, err := callNumeric(f, d, bits, args)
		if errors.Is(err, errNeedsComplex) && d.promote() != d {
			d = d.promote()
			continue
		}
		if err != nil {
			return nil, false, err
		}
		return out, true, nil
	}
}

func callNumeric(f *NumericFuncs, d Domain, prec uint, args []Expr) (Expr, error) {
	switch d {
	case DomainMachineReal:
		xs := make([]float64, len(args))
		for i, a := range args {
			xs[i] = toFloat64(a)
		}
		return f.MachineReal(xs)
	case DomainMachineComplex:
		zs := make([]complex128, len(args))
		for i, a := range args {
			zs[i] = toComplex128(a)
		}
		return f.MachineComplex(zs)
	case DomainBigReal:
		xs := make([]*big.Float, len(args))
		for i, a := range args {
			if xs[i] = toBigFloat(a, prec); xs[i] == nil {
				return nil, domainErrorf("N", "NaN argument")
			}
		}
		return f.BigReal(prec, xs)
	}
	zs := make([]*BigComplex, len(args))
	for i, a := range args {
		re, im := toBigParts(a, prec)
		zs[i] = &BigComplex{re: re, im: im}
	}
	return f.BigComplex(prec, zs)
}

// ============================================================
// Default numeric table
// ============================================================

func real1(fn func(float64) float64) func([]float64) (Expr, error) {
	return func(x []float64) (Expr, error) { return R(fn(x[0])), nil }
}

func cplx1(fn func(complex128) complex128) func([]complex128) (Expr, error) {
	return func(z []complex128) (Expr, error) { return Complex(fn(z[0])), nil }
}

func big1(fn func(*big.Float, uint) *big.Float) func(uint, []*big.Float) (Expr, error) {
	return func(p uint, x []*big.Float) (Expr, error) { return &BigReal{val: fn(x[0], p)}, nil }
}

func bigc1(fn func(*BigComplex, uint) *BigComplex) func(uint, []*BigComplex) (Expr, error) {
	return func(p uint, z []*BigComplex) (Expr, error) { return fn(z[0], p), nil }
}

func defaultNumericTable(cfg ZetaConfig) map[string]*NumericFuncs {
	sinF := func(x *big.Float, p uint) *big.Float { s, _ := bigSinCos(x, p); return s }
	cosF := func(x *big.Float, p uint) *big.Float { _, c := bigSinCos(x, p); return c }
	sinhF := func(x *big.Float, p uint) *big.Float { s, _ := bigSinhCosh(x, p); return s }
	coshF := func(x *big.Float, p uint) *big.Float { _, c := bigSinhCosh(x, p); return c }

	return map[string]*NumericFuncs{
		hPower: {
			MachineReal:    machinePower,
			MachineComplex: func(z []complex128) (Expr, error) { return machineComplexPower(z[0], z[1]) },
			BigReal:        bigRealPower,
			BigComplex: func(p uint, z []*BigComplex) (Expr, error) {
				v, err := bigCPow(z[0], z[1], p)
				if err != nil {
					return nil, err
				}
				return v, nil
			},
		},
		"Sin": {
			MachineReal:    real1(math.Sin),
			MachineComplex: cplx1(cmplx.Sin),
			BigReal:        big1(sinF),
			BigComplex:     bigc1(bigCSin),
		},
		"Cos": {
			MachineReal:    real1(math.Cos),
			MachineComplex: cplx1(cmplx.Cos),
			BigReal:        big1(cosF),
			BigComplex:     bigc1(bigCCos),
		},
		"Tan": {
			MachineReal:    real1(math.Tan),
			MachineComplex: cplx1(cmplx.Tan),
			BigReal: big1(func(x *big.Float, p uint) *big.Float {
				s, c := bigSinCos(x, p+guardBits)
				return newF(p).Quo(s, c)
			}),
			BigComplex: bigc1(func(z *BigComplex, p uint) *BigComplex {
				return bigCQuotient(bigCSin(z, p+guardBits), bigCCos(z, p+guardBits), p)
			}),
		},
		"Sinh": {
			MachineReal:    real1(math.Sinh),
			MachineComplex: cplx1(cmplx.Sinh),
			BigReal:        big1(sinhF),
			BigComplex:     bigc1(bigCSinh),
		},
		"Cosh": {
			MachineReal:    real1(math.Cosh),
			MachineComplex: cplx1(cmplx.Cosh),
			BigReal:        big1(coshF),
			BigComplex:     bigc1(bigCCosh),
		},
		"Tanh": {
			MachineReal:    real1(math.Tanh),
			MachineComplex: cplx1(cmplx.Tanh),
			BigReal: big1(func(x *big.Float, p uint) *big.Float {
				s, c := bigSinhCosh(x, p+guardBits)
				return newF(p).Quo(s, c)
			}),
			BigComplex: bigc1(func(z *BigComplex, p uint) *BigComplex {
				return bigCQuotient(bigCSinh(z, p+guardBits), bigCCosh(z, p+guardBits), p)
			}),
		},
		"Exp": {
			MachineReal:    real1(math.Exp),
			MachineComplex: cplx1(cmplx.Exp),
			BigReal:        big1(bigExp),
			BigComplex:     bigc1(bigCExp),
		},
		"Log": {
			MachineReal: func(x []float64) (Expr, error) {
				switch {
				case x[0] < 0:
					return nil, errNeedsComplex
				case x[0] == 0:
					return nil, domainErrorf("Log", "logarithm of zero")
				}
				return R(math.Log(x[0])), nil
			},
			MachineComplex: func(z []complex128) (Expr, error) {
				if z[0] == 0 {
					return nil, domainErrorf("Log", "logarithm of zero")
				}
				return Complex(cmplx.Log(z[0])), nil
			},
			BigReal: func(p uint, x []*big.Float) (Expr, error) {
				switch x[0].Sign() {
				case -1:
					return nil, errNeedsComplex
				case 0:
					return nil, domainErrorf("Log", "logarithm of zero")
				}
				return &BigReal{val: bigLog(x[0], p)}, nil
			},
			BigComplex: func(p uint, z []*BigComplex) (Expr, error) {
				if z[0].re.Sign() == 0 && z[0].im.Sign() == 0 {
					return nil, domainErrorf("Log", "logarithm of zero")
				}
				return bigCLog(z[0], p), nil
			},
		},
		"Abs": {
			MachineReal:    real1(math.Abs),
			MachineComplex: func(z []complex128) (Expr, error) { return R(cmplx.Abs(z[0])), nil },
			BigReal: big1(func(x *big.Float, p uint) *big.Float {
				return newF(p).Abs(x)
			}),
			BigComplex: func(p uint, z []*BigComplex) (Expr, error) { return &BigReal{val: bigCAbs(z[0], p)}, nil },
		},
		"Gamma": {
			MachineReal: func(x []float64) (Expr, error) {
				if x[0] <= 0 && x[0] == math.Trunc(x[0]) {
					return nil, domainErrorf("Gamma", "pole at %v", x[0])
				}
				return R(math.Gamma(x[0])), nil
			},
		},
		"Zeta": {
			MachineReal: func(x []float64) (Expr, error) {
				v, err := cfg.HurwitzZeta(x[0], 1)
				if err != nil {
					return nil, err
				}
				return R(v), nil
			},
		},
		"HurwitzZeta": {
			MachineReal: func(x []float64) (Expr, error) {
				v, err := cfg.HurwitzZeta(x[0], x[1])
				if err != nil {
					return nil, err
				}
				return R(v), nil
			},
		},
	}
}

func machinePower(x []float64) (Expr, error) {
	b, e := x[0], x[1]
	if b < 0 && e != math.Trunc(e) {
		return nil, errNeedsComplex
	}
	if b == 0 && e < 0 {
		return nil, domainErrorf(hPower, "zero to a negative power")
	}
	return R(math.Pow(b, e)), nil
}

func machineComplexPower(b, e complex128) (Expr, error) {
	if b == 0 {
		if real(e) > 0 {
			return C(0, 0), nil
		}
		return nil, domainErrorf(hPower, "zero to a non-positive power")
	}
	return Complex(cmplx.Pow(b, e)), nil
}

func bigRealPower(p uint, x []*big.Float) (Expr, error) {
	b, e := x[0], x[1]
	if e.IsInt() {
		n, _ := e.Int(nil)
		if b.Sign() == 0 {
			if n.Sign() < 0 {
				return nil, domainErrorf(hPower, "zero to a negative power")
			}
			if n.Sign() == 0 {
				return nil, domainErrorf(hPower, "zero to the zero power")
			}
			return &BigReal{val: newF(p)}, nil
		}
		return &BigReal{val: bigPowInt(b, n, p)}, nil
	}
	switch b.Sign() {
	case -1:
		return nil, errNeedsComplex
	case 0:
		if e.Sign() < 0 {
			return nil, domainErrorf(hPower, "zero to a negative power")
		}
		return &BigReal{val: newF(p)}, nil
	}
	w := p + guardBits
	l := bigLog(b, w)
	l.Mul(l, e)
	return &BigReal{val: bigExp(l, p)}, nil
}
