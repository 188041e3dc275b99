// Package symkern is the evaluation kernel of a symbolic algebra engine.
//
// An expression tree is reduced to a canonical form by matching patterns
// against rewrite rules, normalizing under attributes (Flat, Orderless,
// OneIdentity, Listable) and dispatching numeric evaluation across precision
// domains. The package also provides partial-fraction decomposition over
// exact rational polynomials and a Hurwitz zeta evaluator.
//
// Expressions are immutable values. A Session owns the symbol table
// (attributes, rules, values) and rewrites expressions with Rewrite.
package symkern

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// ============================================================
// Core Interface
// ============================================================

// Expr is a node of an expression tree.
type Expr interface {
	String() string
	Equal(other Expr) bool
	exprType() string
	toJSON() map[string]interface{}
}

// Names of the heads the kernel itself knows about.
const (
	hPlus         = "Plus"
	hTimes        = "Times"
	hPower        = "Power"
	hList         = "List"
	hSequence     = "Sequence"
	hHold         = "Hold"
	hRational     = "Rational"
	hComplex      = "Complex"
	hInteger      = "Integer"
	hReal         = "Real"
	hString       = "String"
	hSymbol       = "Symbol"
	hPattern      = "Blank"
	symTrue       = "True"
	symFalse      = "False"
	symI          = "I"
	symPi         = "Pi"
	symE          = "E"
	symInfinity   = "Infinity"
	symComplexInf = "ComplexInfinity"
	symIndet      = "Indeterminate"
)

// ============================================================
// Int: arbitrary precision integer
// ============================================================

type Int struct{ val *big.Int }

func N(n int64) *Int { return &Int{val: big.NewInt(n)} }

// NBig returns an integer holding a copy of v.
func NBig(v *big.Int) *Int { return &Int{val: new(big.Int).Set(v)} }

func (n *Int) Equal(other Expr) bool { o, ok := other.(*Int); return ok && n.val.Cmp(o.val) == 0 }
func (n *Int) exprType() string      { return "int" }
func (n *Int) String() string        { return n.val.String() }
func (n *Int) Big() *big.Int         { return new(big.Int).Set(n.val) }
func (n *Int) Sign() int             { return n.val.Sign() }
func (n *Int) IsZero() bool          { return n.val.Sign() == 0 }
func (n *Int) IsOne() bool           { return n.val.IsInt64() && n.val.Int64() == 1 }
func (n *Int) IsNegOne() bool        { return n.val.IsInt64() && n.val.Int64() == -1 }

// Int64 reports the value when it fits in an int64.
func (n *Int) Int64() (int64, bool) {
	if !n.val.IsInt64() {
		return 0, false
	}
	return n.val.Int64(), true
}

func (n *Int) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "int", "value": n.val.String()}
}

// ============================================================
// Rat: exact rational, never integral
// ============================================================

type Rat struct{ val *big.Rat }

// F returns p/q reduced. An integral quotient comes back as *Int.
func F(p, q int64) Expr {
	if q == 0 {
		panic("symkern: denominator is zero")
	}
	return RatOf(new(big.Rat).SetFrac(big.NewInt(p), big.NewInt(q)))
}

// RatOf wraps a copy of r, demoting integral values to *Int.
func RatOf(r *big.Rat) Expr {
	if r.IsInt() {
		return &Int{val: new(big.Int).Set(r.Num())}
	}
	return &Rat{val: new(big.Rat).Set(r)}
}

func (r *Rat) Equal(other Expr) bool { o, ok := other.(*Rat); return ok && r.val.Cmp(o.val) == 0 }
func (r *Rat) exprType() string      { return "rat" }
func (r *Rat) String() string        { return r.val.RatString() }
func (r *Rat) Rat() *big.Rat         { return new(big.Rat).Set(r.val) }
func (r *Rat) Num() *big.Int         { return new(big.Int).Set(r.val.Num()) }
func (r *Rat) Den() *big.Int         { return new(big.Int).Set(r.val.Denom()) }
func (r *Rat) Sign() int             { return r.val.Sign() }

func (r *Rat) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "rat", "value": r.val.RatString()}
}

// ============================================================
// Machine numbers
// ============================================================

// Real is a machine precision real number.
type Real float64

func R(f float64) Real { return Real(f) }

func (r Real) Equal(other Expr) bool {
	o, ok := other.(Real)
	if !ok {
		return false
	}
	return r == o || (math.IsNaN(float64(r)) && math.IsNaN(float64(o)))
}
func (r Real) exprType() string { return "real" }
func (r Real) String() string   { return formatMachine(float64(r)) }

func (r Real) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "real", "value": float64(r)}
}

func formatMachine(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if strings.ContainsAny(s, ".eIN") {
		return s
	}
	return s + "."
}

// Complex is a machine precision complex number.
type Complex complex128

func C(re, im float64) Complex { return Complex(complex(re, im)) }

func (c Complex) Equal(other Expr) bool {
	o, ok := other.(Complex)
	return ok && R(real(c)).Equal(R(real(o))) && R(imag(c)).Equal(R(imag(o)))
}
func (c Complex) exprType() string { return "complex" }
func (c Complex) String() string {
	return "Complex[" + formatMachine(real(c)) + ", " + formatMachine(imag(c)) + "]"
}

func (c Complex) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "complex", "re": real(c), "im": imag(c)}
}

// ============================================================
// Arbitrary precision numbers
// ============================================================

// BigReal is an arbitrary precision real. Its precision is the mantissa
// precision of the wrapped big.Float.
type BigReal struct{ val *big.Float }

// BR wraps a copy of f.
func BR(f *big.Float) *BigReal { return &BigReal{val: new(big.Float).Copy(f)} }

// ParseBigReal reads a decimal string at the given number of decimal digits.
func ParseBigReal(s string, digits int) (*BigReal, error) {
	f, _, err := big.ParseFloat(s, 10, digitsToBits(digits), big.ToNearestEven)
	if err != nil {
		return nil, fmt.Errorf("big real %q: %w", s, err)
	}
	return &BigReal{val: f}, nil
}

func (b *BigReal) Equal(other Expr) bool {
	o, ok := other.(*BigReal)
	return ok && b.val.Cmp(o.val) == 0
}
func (b *BigReal) exprType() string  { return "bigreal" }
func (b *BigReal) Prec() uint        { return b.val.Prec() }
func (b *BigReal) Float() *big.Float { return new(big.Float).Copy(b.val) }
func (b *BigReal) String() string    { return formatBig(b.val) }

func (b *BigReal) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "bigreal", "value": b.val.Text('g', bitsToDigits(b.val.Prec())), "prec": b.val.Prec()}
}

// BigComplex is an arbitrary precision complex number.
type BigComplex struct{ re, im *big.Float }

// BC wraps copies of re and im.
func BC(re, im *big.Float) *BigComplex {
	return &BigComplex{re: new(big.Float).Copy(re), im: new(big.Float).Copy(im)}
}

func (b *BigComplex) Equal(other Expr) bool {
	o, ok := other.(*BigComplex)
	return ok && b.re.Cmp(o.re) == 0 && b.im.Cmp(o.im) == 0
}
func (b *BigComplex) exprType() string { return "bigcomplex" }
func (b *BigComplex) Re() *big.Float   { return new(big.Float).Copy(b.re) }
func (b *BigComplex) Im() *big.Float   { return new(big.Float).Copy(b.im) }
func (b *BigComplex) Prec() uint       { return minUint(b.re.Prec(), b.im.Prec()) }
func (b *BigComplex) String() string {
	return "Complex[" + formatBig(b.re) + ", " + formatBig(b.im) + "]"
}

func (b *BigComplex) toJSON() map[string]interface{} {
	d := bitsToDigits(b.Prec())
	return map[string]interface{}{"type": "bigcomplex", "re": b.re.Text('g', d), "im": b.im.Text('g', d), "prec": b.Prec()}
}

func formatBig(f *big.Float) string {
	d := bitsToDigits(f.Prec())
	return f.Text('g', d) + "`" + strconv.Itoa(d)
}

// digitsToBits converts decimal digits to mantissa bits.
func digitsToBits(digits int) uint {
	if digits < 1 {
		digits = 1
	}
	return uint(math.Ceil(float64(digits)*math.Log2(10))) + 1
}

func bitsToDigits(bits uint) int {
	d := int(math.Floor(float64(bits) * math.Log10(2)))
	if d < 1 {
		return 1
	}
	return d
}

func minUint(a, b uint) uint {
	if a < b {
		return a
	}
	return b
}

// ============================================================
// Sym and Str
// ============================================================

type Sym struct{ name string }

func S(name string) *Sym             { return &Sym{name: name} }
func (s *Sym) String() string        { return s.name }
func (s *Sym) Equal(other Expr) bool { o, ok := other.(*Sym); return ok && s.name == o.name }
func (s *Sym) exprType() string      { return "sym" }
func (s *Sym) Name() string          { return s.name }
func (s *Sym) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "sym", "name": s.name}
}

// Frequently used symbols.
var (
	True  = S(symTrue)
	False = S(symFalse)
	I     = S(symI)
	Pi    = S(symPi)
	E     = S(symE)
)

// Str is a string atom.
type Str string

func (s Str) String() string        { return strconv.Quote(string(s)) }
func (s Str) Equal(other Expr) bool { o, ok := other.(Str); return ok && s == o }
func (s Str) exprType() string      { return "str" }
func (s Str) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "str", "value": string(s)}
}

// ============================================================
// Call: head applied to ordered arguments
// ============================================================

type Call struct {
	head Expr
	args []Expr
}

// Fn builds name[args...]. The argument slice is copied.
func Fn(name string, args ...Expr) *Call { return CallOf(S(name), args...) }

// CallOf builds head[args...]. The argument slice is copied.
func CallOf(head Expr, args ...Expr) *Call {
	cp := make([]Expr, len(args))
	copy(cp, args)
	return &Call{head: head, args: cp}
}

// newCall takes ownership of args.
func newCall(head Expr, args []Expr) *Call { return &Call{head: head, args: args} }

func Plus(args ...Expr) *Call  { return Fn(hPlus, args...) }
func Times(args ...Expr) *Call { return Fn(hTimes, args...) }
func Power(b, e Expr) *Call    { return Fn(hPower, b, e) }
func List(args ...Expr) *Call  { return Fn(hList, args...) }

func (c *Call) Head() Expr       { return c.head }
func (c *Call) Len() int         { return len(c.args) }
func (c *Call) Arg(i int) Expr   { return c.args[i] }
func (c *Call) exprType() string { return "call" }

// Args returns a copy of the arguments.
func (c *Call) Args() []Expr {
	cp := make([]Expr, len(c.args))
	copy(cp, c.args)
	return cp
}

// HeadName returns the head symbol name, or "" for a compound head.
func (c *Call) HeadName() string {
	if s, ok := c.head.(*Sym); ok {
		return s.name
	}
	return ""
}

func (c *Call) is(name string) bool { return c.HeadName() == name }

func (c *Call) Equal(other Expr) bool {
	o, ok := other.(*Call)
	if !ok || len(c.args) != len(o.args) || !c.head.Equal(o.head) {
		return false
	}
	for i := range c.args {
		if !c.args[i].Equal(o.args[i]) {
			return false
		}
	}
	return true
}

func (c *Call) String() string {
	var b strings.Builder
	b.WriteString(c.head.String())
	b.WriteByte('[')
	for i, a := range c.args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.String())
	}
	b.WriteByte(']')
	return b.String()
}

func (c *Call) toJSON() map[string]interface{} {
	args := make([]map[string]interface{}, len(c.args))
	for i, a := range c.args {
		args[i] = a.toJSON()
	}
	return map[string]interface{}{"type": "call", "head": c.head.toJSON(), "args": args}
}

// ============================================================
// Inspection helpers
// ============================================================

// HeadOf returns the head of e: the call head for calls, and the type symbol
// (Integer, Rational, Real, Complex, String, Symbol) for atoms.
func HeadOf(e Expr) Expr { return S(headName(e)) }

func headName(e Expr) string {
	switch x := e.(type) {
	case *Int:
		return hInteger
	case *Rat:
		return hRational
	case Real, *BigReal:
		return hReal
	case Complex, *BigComplex:
		return hComplex
	case Str:
		return hString
	case *Sym:
		return hSymbol
	case *Blank:
		return hPattern
	case *Call:
		if n := x.HeadName(); n != "" {
			return n
		}
		return x.head.String()
	}
	return ""
}

func isCall(e Expr, name string) (*Call, bool) {
	c, ok := e.(*Call)
	if !ok || !c.is(name) {
		return nil, false
	}
	return c, true
}

func isSym(e Expr, name string) bool {
	s, ok := e.(*Sym)
	return ok && s.name == name
}

func boolSym(b bool) Expr {
	if b {
		return True
	}
	return False
}

// FreeOf reports whether no subexpression of e (including e) equals sub.
func FreeOf(e, sub Expr) bool {
	if e.Equal(sub) {
		return false
	}
	if c, ok := e.(*Call); ok {
		if !FreeOf(c.head, sub) {
			return false
		}
		for _, a := range c.args {
			if !FreeOf(a, sub) {
				return false
			}
		}
	}
	return true
}

// ============================================================
// Canonical order, keys and hashing
// ============================================================

func rank(e Expr) int {
	switch e.(type) {
	case *Int, *Rat, Real, Complex, *BigReal, *BigComplex:
		return 0
	case *Sym:
		return 1
	case Str:
		return 2
	case *Call:
		return 3
	}
	return 4
}

// Compare is the canonical total order used to sort Orderless arguments:
// numbers before symbols before strings before calls before patterns.
func Compare(a, b Expr) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return cmpInt(ra, rb)
	}
	switch x := a.(type) {
	case *Sym:
		return strings.Compare(x.name, b.(*Sym).name)
	case Str:
		return strings.Compare(string(x), string(b.(Str)))
	case *Call:
		y := b.(*Call)
		if c := Compare(x.head, y.head); c != 0 {
			return c
		}
		for i := 0; i < len(x.args) && i < len(y.args); i++ {
			if c := Compare(x.args[i], y.args[i]); c != 0 {
				return c
			}
		}
		return cmpInt(len(x.args), len(y.args))
	case *Blank:
		return strings.Compare(x.String(), b.String())
	}
	return compareNumbers(a, b)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Key returns an injective textual key for e. Structurally equal
// expressions have equal keys.
func Key(e Expr) string {
	var b strings.Builder
	writeKey(&b, e)
	return b.String()
}

func writeKey(b *strings.Builder, e Expr) {
	switch x := e.(type) {
	case *Int:
		b.WriteString("i")
		b.WriteString(x.val.String())
	case *Rat:
		b.WriteString("q")
		b.WriteString(x.val.RatString())
	case Real:
		b.WriteString("r")
		b.WriteString(floatKey(float64(x)))
	case Complex:
		b.WriteString("c")
		b.WriteString(floatKey(real(x)))
		b.WriteByte(',')
		b.WriteString(floatKey(imag(x)))
	case *BigReal:
		b.WriteString("b")
		b.WriteString(bigFloatKey(x.val))
	case *BigComplex:
		b.WriteString("z")
		b.WriteString(bigFloatKey(x.re))
		b.WriteByte(',')
		b.WriteString(bigFloatKey(x.im))
	case *Sym:
		b.WriteString("s")
		b.WriteString(strconv.Quote(x.name))
	case Str:
		b.WriteString("t")
		b.WriteString(strconv.Quote(string(x)))
	case *Blank:
		b.WriteString("p")
		b.WriteString(strconv.Quote(x.String()))
	case *Call:
		b.WriteByte('(')
		writeKey(b, x.head)
		for _, a := range x.args {
			b.WriteByte(' ')
			writeKey(b, a)
		}
		b.WriteByte(')')
	}
}

// floatKey folds the values Real.Equal identifies: both zeros and all NaNs.
func floatKey(v float64) string {
	switch {
	case v == 0:
		return "0"
	case math.IsNaN(v):
		return "nan"
	}
	return strconv.FormatUint(math.Float64bits(v), 16)
}

func bigFloatKey(v *big.Float) string {
	if v.Sign() == 0 {
		return "0"
	}
	return v.Text('p', 0)
}

// Hash is a 64-bit FNV-1a hash of Key(e).
func Hash(e Expr) uint64 {
	h := fnv.New64a()
	h.Write([]byte(Key(e)))
	return h.Sum64()
}
