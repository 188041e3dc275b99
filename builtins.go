package symkern

import (
	"errors"
	"math"
	"math/big"

	"go.uber.org/zap"
)

// builtinFunc is the symbolic evaluator of one head. It returns nil when it
// has nothing to say about c.
type builtinFunc func(ev *evaluator, c *Call) Expr

var builtins map[string]builtinFunc

func init() {
	builtins = map[string]builtinFunc{
		hPlus:  plusBuiltin,
		hTimes: timesBuiltin,
		hPower: powerBuiltin,
		"Sin":  trigBuiltin("Sin"),
		"Cos":  trigBuiltin("Cos"),
		"Tan":  trigBuiltin("Tan"),
		"Sinh": trigBuiltin("Sinh"),
		"Cosh": trigBuiltin("Cosh"),
		"Tanh": trigBuiltin("Tanh"),
		"Abs":  absBuiltin,

		"Gamma": gammaBuiltin,
		"Zeta":  zetaBuiltin,
		"N":     nBuiltin,

		"Apart":                       apartBuiltin,
		"PolynomialQuotientRemainder": quotientRemainderBuiltin,

		"FreeQ":    freeQBuiltin,
		"IntegerQ": predicate(func(e Expr) bool { _, ok := e.(*Int); return ok }),
		"NumberQ":  predicate(isNumber),
		"EvenQ":    predicate(func(e Expr) bool { n, ok := e.(*Int); return ok && n.val.Bit(0) == 0 }),
		"OddQ":     predicate(func(e Expr) bool { n, ok := e.(*Int); return ok && n.val.Bit(0) == 1 }),
		"SameQ":    sameQBuiltin,
		"Positive": signBuiltin(1),
		"Negative": signBuiltin(-1),

		"Greater":      compareBuiltin(func(c int) bool { return c > 0 }),
		"Less":         compareBuiltin(func(c int) bool { return c < 0 }),
		"GreaterEqual": compareBuiltin(func(c int) bool { return c >= 0 }),
		"LessEqual":    compareBuiltin(func(c int) bool { return c <= 0 }),

		"And": andBuiltin,
		"Or":  orBuiltin,
		"Not": notBuiltin,
		"If":  ifBuiltin,
	}
}

// ============================================================
// Plus and Times
// ============================================================

// plusBuiltin folds the numbers of a sorted, flat sum and collects like
// terms c1*t + c2*t -> (c1+c2)*t.
func plusBuiltin(ev *evaluator, c *Call) Expr {
	if len(c.args) == 0 {
		return N(0)
	}
	type term struct{ coeff, rest Expr }
	var num Expr
	var terms []term
	index := make(map[string]int)
	for _, a := range c.args {
		if isNumber(a) {
			if num == nil {
				num = a
			} else {
				num = numAdd(num, a)
			}
			continue
		}
		coeff, rest := splitCoeff(a)
		k := Key(rest)
		if i, ok := index[k]; ok {
			terms[i].coeff = numAdd(terms[i].coeff, coeff)
			continue
		}
		index[k] = len(terms)
		terms = append(terms, term{coeff, rest})
	}
	out := make([]Expr, 0, len(terms)+1)
	if num != nil && !isZeroNumber(num) {
		out = append(out, num)
	}
	for _, t := range terms {
		if isZeroNumber(t.coeff) {
			continue
		}
		out = append(out, withCoeff(t.coeff, t.rest))
	}
	switch len(out) {
	case 0:
		if num != nil {
			return num
		}
		return N(0)
	case 1:
		return out[0]
	}
	sortArgs(out)
	return newCall(c.head, out)
}

// splitCoeff splits a term into its numeric coefficient and the rest.
func splitCoeff(e Expr) (Expr, Expr) {
	t, ok := isCall(e, hTimes)
	if !ok || len(t.args) < 2 || !isNumber(t.args[0]) {
		return N(1), e
	}
	if len(t.args) == 2 {
		return t.args[0], t.args[1]
	}
	return t.args[0], newCall(t.head, t.args[1:])
}

func withCoeff(coeff, rest Expr) Expr {
	if isExactInt(coeff, 1) {
		return rest
	}
	if t, ok := isCall(rest, hTimes); ok {
		args := make([]Expr, 0, len(t.args)+1)
		return newCall(t.head, append(append(args, coeff), t.args...))
	}
	return Times(coeff, rest)
}

// timesBuiltin folds the numbers of a sorted, flat product and collects
// powers of equal bases b^e1 * b^e2 -> b^(e1+e2).
func timesBuiltin(ev *evaluator, c *Call) Expr {
	if len(c.args) == 0 {
		return N(1)
	}
	type factor struct{ base, exp Expr }
	var num Expr
	var fs []factor
	index := make(map[string]int)
	for _, a := range c.args {
		if isNumber(a) {
			if num == nil {
				num = a
			} else {
				num = numMul(num, a)
			}
			continue
		}
		base, exp := a, Expr(N(1))
		if p, ok := isCall(a, hPower); ok && len(p.args) == 2 {
			base, exp = p.args[0], p.args[1]
		}
		k := Key(base)
		if i, ok := index[k]; ok {
			fs[i].exp = addExponents(fs[i].exp, exp)
			continue
		}
		index[k] = len(fs)
		fs = append(fs, factor{base, exp})
	}
	// A numeric factor is absorbed by ComplexInfinity; zero makes it
	// Indeterminate.
	if num != nil {
		for _, f := range fs {
			if s, ok := f.base.(*Sym); ok && s.name == symComplexInf && isExactInt(f.exp, 1) {
				if isZeroNumber(num) {
					return S(symIndet)
				}
				num = nil
				break
			}
		}
	}
	if num != nil && isZeroNumber(num) {
		if isExactNumber(num) {
			return N(0)
		}
		return num
	}
	out := make([]Expr, 0, len(fs)+1)
	if num != nil && !isExactInt(num, 1) {
		out = append(out, num)
	}
	for _, f := range fs {
		switch {
		case isExactInt(f.exp, 0):
		case isExactInt(f.exp, 1):
			out = append(out, f.base)
		default:
			out = append(out, Power(f.base, f.exp))
		}
	}
	switch len(out) {
	case 0:
		if num != nil {
			return num
		}
		return N(1)
	case 1:
		return out[0]
	}
	sortArgs(out)
	return newCall(c.head, out)
}

func addExponents(a, b Expr) Expr {
	if isNumber(a) && isNumber(b) {
		return numAdd(a, b)
	}
	return Plus(a, b)
}

func mulExponents(a, b Expr) Expr {
	if isNumber(a) && isNumber(b) {
		return numMul(a, b)
	}
	return Times(a, b)
}

// ============================================================
// Power
// ============================================================

// maxExactExponent bounds exact integer powers.
const maxExactExponent = 1 << 16

func powerBuiltin(ev *evaluator, c *Call) Expr {
	if len(c.args) != 2 {
		return nil
	}
	b, e := c.args[0], c.args[1]
	switch {
	case isExactInt(e, 1):
		return b
	case isExactInt(e, 0):
		if isExactInt(b, 0) {
			return S(symIndet)
		}
		return N(1)
	case isExactInt(b, 1):
		return N(1)
	}
	n, intExp := e.(*Int)
	if isSym(b, symI) && intExp {
		return powerOfI(n)
	}
	if p, ok := isCall(b, hPower); ok && len(p.args) == 2 && intExp {
		return Power(p.args[0], mulExponents(p.args[1], e))
	}
	if t, ok := isCall(b, hTimes); ok && intExp {
		fs := make([]Expr, len(t.args))
		for i, a := range t.args {
			fs[i] = Power(a, e)
		}
		return newCall(t.head, fs)
	}
	br, ok := toRat(b)
	if !ok {
		return nil
	}
	switch x := e.(type) {
	case *Int:
		return exactIntPower(br, x.val)
	case *Rat:
		return exactRatPower(br, x.val)
	}
	return nil
}

func powerOfI(n *Int) Expr {
	switch new(big.Int).Mod(n.val, big.NewInt(4)).Int64() {
	case 0:
		return N(1)
	case 1:
		return I
	case 2:
		return N(-1)
	}
	return Times(N(-1), I)
}

func exactIntPower(b *big.Rat, n *big.Int) Expr {
	if b.Sign() == 0 {
		if n.Sign() < 0 {
			return S(symComplexInf)
		}
		return N(0)
	}
	abs := new(big.Int).Abs(n)
	if !abs.IsInt64() || abs.Int64() > maxExactExponent {
		if b.Cmp(big.NewRat(-1, 1)) == 0 {
			return exactIntPower(b, new(big.Int).Mod(n, big.NewInt(2)))
		}
		return nil
	}
	num := new(big.Int).Exp(b.Num(), abs, nil)
	den := new(big.Int).Exp(b.Denom(), abs, nil)
	r := new(big.Rat).SetFrac(num, den)
	if n.Sign() < 0 {
		r.Inv(r)
	}
	return RatOf(r)
}

// maxRootIndex bounds the root extraction of exact rational powers.
const maxRootIndex = 64

// exactRatPower simplifies b^(p/q) for exact b: perfect q-th power factors
// move out of the root, b^(p/q) with p > q splits off b^floor(p/q), and a
// negative base under a square root becomes I times a positive root.
func exactRatPower(b, e *big.Rat) Expr {
	p, q := e.Num(), e.Denom()
	if b.Sign() == 0 {
		if p.Sign() < 0 {
			return S(symComplexInf)
		}
		return N(0)
	}
	if !q.IsInt64() || q.Int64() > maxRootIndex || !p.IsInt64() {
		return nil
	}
	qi, pi := int(q.Int64()), p.Int64()
	if b.Sign() < 0 {
		if qi != 2 {
			return nil
		}
		neg := new(big.Rat).Neg(b)
		return Times(Power(I, N(pi)), Power(RatOf(neg), RatOf(e)))
	}
	if pi > int64(qi) {
		k := pi / int64(qi)
		rest := new(big.Rat).SetFrac64(pi-k*int64(qi), int64(qi))
		return Times(Power(RatOf(b), N(k)), Power(RatOf(b), RatOf(rest)))
	}
	ma, ra := rootPart(b.Num(), qi)
	md, rd := rootPart(b.Denom(), qi)
	one := big.NewInt(1)
	if ma.Cmp(one) == 0 && md.Cmp(one) == 0 {
		if rd.Cmp(one) != 0 && ra.Cmp(one) != 0 && pi > 0 {
			neg := new(big.Rat).Neg(e)
			return Times(Power(NBig(ra), RatOf(e)), Power(NBig(rd), RatOf(neg)))
		}
		if rd.Cmp(one) != 0 && ra.Cmp(one) == 0 {
			neg := new(big.Rat).Neg(e)
			return Power(NBig(rd), RatOf(neg))
		}
		return nil
	}
	coeff := exactIntPower(new(big.Rat).SetFrac(ma, md), p)
	if coeff == nil {
		return nil
	}
	rest := new(big.Rat).SetFrac(ra, rd)
	if rest.Cmp(big.NewRat(1, 1)) == 0 {
		return coeff
	}
	return Times(coeff, Power(RatOf(rest), RatOf(e)))
}

var smallPrimes = func() []int64 {
	var ps []int64
	sieve := make([]bool, 1000)
	for i := 2; i < len(sieve); i++ {
		if sieve[i] {
			continue
		}
		ps = append(ps, int64(i))
		for j := i * i; j < len(sieve); j += i {
			sieve[j] = true
		}
	}
	return ps
}()

// rootPart writes n = m^k * rest where rest has no k-th power factor among
// the small primes and is not itself a perfect k-th power.
func rootPart(n *big.Int, k int) (m, rest *big.Int) {
	m, rest = big.NewInt(1), new(big.Int).Set(n)
	if r, ok := iroot(rest, k); ok {
		return r, big.NewInt(1)
	}
	var quo, mod big.Int
	for _, p := range smallPrimes {
		bp := big.NewInt(p)
		if new(big.Int).Mul(bp, bp).Cmp(rest) > 0 {
			break
		}
		cnt := 0
		for {
			quo.QuoRem(rest, bp, &mod)
			if mod.Sign() != 0 {
				break
			}
			rest.Set(&quo)
			cnt++
		}
		if cnt == 0 {
			continue
		}
		if e := cnt / k; e > 0 {
			m.Mul(m, new(big.Int).Exp(bp, big.NewInt(int64(e)), nil))
		}
		if r := cnt % k; r > 0 {
			rest.Mul(rest, new(big.Int).Exp(bp, big.NewInt(int64(r)), nil))
		}
	}
	if r, ok := iroot(rest, k); ok && rest.Cmp(big.NewInt(1)) > 0 {
		return m.Mul(m, r), big.NewInt(1)
	}
	return m, rest
}

// iroot returns floor(n^(1/k)) for n >= 0 and whether it is exact.
func iroot(n *big.Int, k int) (*big.Int, bool) {
	if n.Sign() == 0 || k == 1 {
		return new(big.Int).Set(n), true
	}
	x := new(big.Int).Lsh(big.NewInt(1), uint((n.BitLen()+k-1)/k))
	bk, bk1 := big.NewInt(int64(k)), big.NewInt(int64(k-1))
	for {
		t := new(big.Int).Exp(x, bk1, nil)
		t.Quo(n, t)
		y := new(big.Int).Mul(x, bk1)
		y.Add(y, t)
		y.Quo(y, bk)
		if y.Cmp(x) >= 0 {
			break
		}
		x = y
	}
	return x, new(big.Int).Exp(x, bk, nil).Cmp(n) == 0
}

// ============================================================
// Special functions on exact arguments
// ============================================================

func absBuiltin(ev *evaluator, c *Call) Expr {
	if len(c.args) != 1 {
		return nil
	}
	if r, ok := toRat(c.args[0]); ok {
		return RatOf(r.Abs(r))
	}
	return trigBuiltin("Abs")(ev, c)
}

func gammaBuiltin(ev *evaluator, c *Call) Expr {
	if len(c.args) != 1 {
		return nil
	}
	n, ok := c.args[0].(*Int)
	if !ok {
		return nil
	}
	if n.Sign() <= 0 {
		return S(symComplexInf)
	}
	v, ok := n.Int64()
	if !ok || v > 10_000 {
		return nil
	}
	return &Int{val: new(big.Int).MulRange(1, v-1)}
}

// maxZetaIndex bounds the exact values produced from Bernoulli numbers.
const maxZetaIndex = 200

// zetaBuiltin gives exact values at integers: zeta(-n) = (-1)^n B(n+1)/(n+1)
// and zeta(2n) = (-1)^(n+1) B(2n) (2 Pi)^(2n) / (2 (2n)!).
func zetaBuiltin(ev *evaluator, c *Call) Expr {
	if len(c.args) != 1 {
		return nil
	}
	n, ok := c.args[0].(*Int)
	if !ok {
		return nil
	}
	v, ok := n.Int64()
	if !ok || v > maxZetaIndex || v < -maxZetaIndex {
		return nil
	}
	switch {
	case v == 1:
		return S(symComplexInf)
	case v <= 0:
		m := -v
		b := bernoulliNumbers(int(m) + 2)[m+1]
		r := new(big.Rat).Quo(b, big.NewRat(m+1, 1))
		if m%2 == 1 {
			r.Neg(r)
		}
		return RatOf(r)
	case v%2 == 0:
		b := bernoulliNumbers(int(v) + 1)[v]
		r := new(big.Rat).Mul(b, new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(2), big.NewInt(v), nil)))
		fact := new(big.Int).MulRange(1, v)
		r.Quo(r, new(big.Rat).SetInt(fact.Mul(fact, big.NewInt(2))))
		if (v/2)%2 == 0 {
			r.Neg(r)
		}
		return Times(RatOf(r), Power(Pi, N(v)))
	}
	return nil
}

// ============================================================
// N
// ============================================================

// nBuiltin replaces exact numbers and the constants Pi, E and I by machine
// numbers, or by arbitrary precision numbers when more than 15 digits are
// requested, and lets evaluation continue numerically.
func nBuiltin(ev *evaluator, c *Call) Expr {
	prec := uint(MachinePrecision)
	switch len(c.args) {
	case 1:
	case 2:
		d, ok := c.args[1].(*Int)
		if !ok {
			return nil
		}
		digits, ok := d.Int64()
		if !ok || digits < 1 || digits > 100_000 {
			return nil
		}
		if digits > 15 {
			prec = digitsToBits(int(digits))
		}
	default:
		return nil
	}
	return numericize(c.args[0], prec)
}

func numericize(e Expr, prec uint) Expr {
	arb := prec > MachinePrecision
	switch x := e.(type) {
	case *Int, *Rat:
		if !arb {
			return R(toFloat64(x))
		}
		return &BigReal{val: toBigFloat(x, prec)}
	case *Sym:
		switch x.name {
		case symPi:
			if !arb {
				return R(math.Pi)
			}
			return &BigReal{val: bigPi(prec)}
		case symE:
			if !arb {
				return R(math.E)
			}
			return &BigReal{val: bigExp(fInt(prec, 1), prec)}
		case symI:
			if !arb {
				return C(0, 1)
			}
			return &BigComplex{re: newF(prec), im: fInt(prec, 1)}
		}
	case *Call:
		if p, ok := isCall(x, hPower); ok && len(p.args) == 2 {
			if _, ok := p.args[1].(*Int); ok {
				return Power(numericize(p.args[0], prec), p.args[1])
			}
		}
		args := make([]Expr, len(x.args))
		for i, a := range x.args {
			args[i] = numericize(a, prec)
		}
		return newCall(x.head, args)
	}
	return e
}

// ============================================================
// Polynomial builtins
// ============================================================

// apartBuiltin is Apart[expr, x], or Apart[expr] when expr has exactly one
// variable. Expressions that are not rational functions, and denominators
// the collaborator cannot factor, stay unevaluated.
func apartBuiltin(ev *evaluator, c *Call) Expr {
	var x Expr
	switch len(c.args) {
	case 1:
		vars := variables(c.args[0])
		if len(vars) != 1 {
			return nil
		}
		x = vars[0]
	case 2:
		if _, ok := c.args[1].(*Sym); !ok {
			return nil
		}
		x = c.args[1]
	default:
		return nil
	}
	out, err := apartExpr(ev.ctx, c.args[0], x, ev.s.arith)
	if ctxErr := ev.ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		ev.abort(&AbortError{Limit: "time", Err: ErrTimeout, cause: err}, "Apart")
		return nil
	}
	if err != nil {
		ev.log.Debug("apart left unevaluated", zap.Error(err), exprField("expr", c))
		return nil
	}
	if out == nil {
		return c.args[0]
	}
	return out
}

func quotientRemainderBuiltin(ev *evaluator, c *Call) Expr {
	if len(c.args) != 3 {
		return nil
	}
	x := c.args[2]
	n, ok := ExprToPoly(c.args[0], x)
	if !ok {
		return nil
	}
	d, ok := ExprToPoly(c.args[1], x)
	if !ok {
		return nil
	}
	q, r, err := ev.s.arith.DivMod(n, d)
	if err != nil {
		ev.log.Debug("polynomial division failed", zap.Error(err), exprField("expr", c))
		return nil
	}
	return List(PolyToExpr(q, x), PolyToExpr(r, x))
}

// variables lists the symbols in argument positions of e, excluding the
// constants Pi, E and I.
func variables(e Expr) []Expr {
	var out []Expr
	seen := make(map[string]bool)
	var walk func(Expr)
	walk = func(e Expr) {
		switch x := e.(type) {
		case *Sym:
			switch x.name {
			case symPi, symE, symI, symTrue, symFalse:
				return
			}
			if !seen[x.name] {
				seen[x.name] = true
				out = append(out, x)
			}
		case *Call:
			for _, a := range x.args {
				walk(a)
			}
		}
	}
	walk(e)
	return out
}

// ============================================================
// Predicates and control
// ============================================================

func predicate(fn func(Expr) bool) builtinFunc {
	return func(ev *evaluator, c *Call) Expr {
		if len(c.args) != 1 {
			return nil
		}
		return boolSym(fn(c.args[0]))
	}
}

func freeQBuiltin(ev *evaluator, c *Call) Expr {
	if len(c.args) != 2 {
		return nil
	}
	free := ev.freeOf(c.args[0], c.args[1])
	if ev.err != nil {
		return nil
	}
	return boolSym(free)
}

func (ev *evaluator) freeOf(e, form Expr) bool {
	if ev.matches(form, e) {
		return false
	}
	if c, ok := e.(*Call); ok {
		if !ev.freeOf(c.head, form) {
			return false
		}
		for _, a := range c.args {
			if !ev.freeOf(a, form) {
				return false
			}
		}
	}
	return true
}

func sameQBuiltin(ev *evaluator, c *Call) Expr {
	for i := 1; i < len(c.args); i++ {
		if !c.args[i].Equal(c.args[0]) {
			return False
		}
	}
	return True
}

func signBuiltin(want int) builtinFunc {
	return func(ev *evaluator, c *Call) Expr {
		if len(c.args) != 1 {
			return nil
		}
		s, ok := numSign(c.args[0])
		if !ok {
			return nil
		}
		return boolSym(s == want)
	}
}

// compareBuiltin chains a numeric comparison over real arguments. Anything
// that is not a real number leaves the comparison unevaluated.
func compareBuiltin(want func(int) bool) builtinFunc {
	return func(ev *evaluator, c *Call) Expr {
		if len(c.args) < 2 {
			return nil
		}
		result := true
		for i := 0; i+1 < len(c.args); i++ {
			r, ok := compareReal(c.args[i], c.args[i+1])
			if !ok {
				return nil
			}
			result = result && want(r)
		}
		return boolSym(result)
	}
}

func andBuiltin(ev *evaluator, c *Call) Expr { return logical(ev, c, symFalse, symTrue) }
func orBuiltin(ev *evaluator, c *Call) Expr  { return logical(ev, c, symTrue, symFalse) }

// logical evaluates held arguments left to right. An argument equal to
// stop decides the result; arguments equal to skip drop out.
func logical(ev *evaluator, c *Call, stop, skip string) Expr {
	var rest []Expr
	for _, a := range c.args {
		v := ev.eval(a)
		if ev.err != nil {
			return nil
		}
		switch {
		case isSym(v, stop):
			return S(stop)
		case isSym(v, skip):
			continue
		}
		rest = append(rest, v)
	}
	switch len(rest) {
	case 0:
		return S(skip)
	case 1:
		return rest[0]
	}
	return newCall(c.head, rest)
}

func notBuiltin(ev *evaluator, c *Call) Expr {
	if len(c.args) != 1 {
		return nil
	}
	switch {
	case isSym(c.args[0], symTrue):
		return False
	case isSym(c.args[0], symFalse):
		return True
	}
	return nil
}

// ifBuiltin is If[cond, then], If[cond, then, else] and
// If[cond, then, else, neither].
func ifBuiltin(ev *evaluator, c *Call) Expr {
	if len(c.args) < 2 || len(c.args) > 4 {
		return nil
	}
	switch {
	case isSym(c.args[0], symTrue):
		return c.args[1]
	case isSym(c.args[0], symFalse):
		if len(c.args) >= 3 {
			return c.args[2]
		}
		return S("Null")
	case len(c.args) == 4:
		return c.args[3]
	}
	return nil
}
