package symkern

import (
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ============================================================
// FullForm YAML codec
// ============================================================
//
// Expressions are written as nested YAML sequences in FullForm order:
//
//	[Plus, 1, [Times, 2, x]]        Plus[1, Times[2, x]]
//	[Power, x, 1/2]                 Power[x, 1/2]
//	[f, n_Integer, x__, "text"]     f[n_Integer, x__, "text"]
//	[Real, "3.14159265358979323846", 30]
//
// Plain scalars are integers, p/q rationals, machine reals, blanks or
// symbols. Quoted scalars are strings.

var (
	intRe  = regexp.MustCompile(`^[-+]?[0-9]+$`)
	ratRe  = regexp.MustCompile(`^[-+]?[0-9]+/[0-9]+$`)
	realRe = regexp.MustCompile(`^[-+]?([0-9]+\.[0-9]*|\.[0-9]+|[0-9]+(\.[0-9]*)?[eE][-+]?[0-9]+)$`)
)

// DecodeYAML reads one expression from YAML text.
func DecodeYAML(data []byte) (Expr, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding expression: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, fmt.Errorf("decoding expression: empty document")
	}
	return FromNode(doc.Content[0])
}

// DecodeYAMLStream reads every expression of a YAML sequence. A document
// holding a single expression that is not a list of expressions is
// returned as one element.
func DecodeYAMLStream(data []byte) ([]Expr, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding expressions: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.MappingNode {
		n := mappingValue(root, "exprs")
		if n == nil {
			return nil, fmt.Errorf("line %d: expected an exprs key", root.Line)
		}
		root = n
	}
	if root.Kind != yaml.SequenceNode || len(root.Content) == 0 || root.Content[0].Kind != yaml.SequenceNode {
		e, err := FromNode(root)
		if err != nil {
			return nil, err
		}
		return []Expr{e}, nil
	}
	out := make([]Expr, len(root.Content))
	for i, n := range root.Content {
		e, err := FromNode(n)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// FromNode converts a YAML node to an expression.
func FromNode(n *yaml.Node) (Expr, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, fmt.Errorf("empty document")
		}
		return FromNode(n.Content[0])
	case yaml.AliasNode:
		return FromNode(n.Alias)
	case yaml.ScalarNode:
		return scalarExpr(n)
	case yaml.SequenceNode:
		return sequenceExpr(n)
	}
	return nil, fmt.Errorf("line %d: mappings are not expressions", n.Line)
}

func scalarExpr(n *yaml.Node) (Expr, error) {
	v := n.Value
	if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle|yaml.LiteralStyle|yaml.FoldedStyle) != 0 {
		return Str(v), nil
	}
	switch {
	case intRe.MatchString(v):
		i, ok := new(big.Int).SetString(strings.TrimPrefix(v, "+"), 10)
		if !ok {
			return nil, fmt.Errorf("line %d: bad integer %q", n.Line, v)
		}
		return &Int{val: i}, nil
	case ratRe.MatchString(v):
		r, ok := new(big.Rat).SetString(strings.TrimPrefix(v, "+"))
		if !ok {
			return nil, fmt.Errorf("line %d: bad rational %q", n.Line, v)
		}
		return RatOf(r), nil
	case realRe.MatchString(v):
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return R(f), nil
	case strings.Contains(v, "_"):
		if b, ok := ParseBlank(v); ok {
			return b, nil
		}
		return nil, fmt.Errorf("line %d: bad pattern %q", n.Line, v)
	case isIdent(v):
		return S(v), nil
	}
	return nil, fmt.Errorf("line %d: %q is not a symbol or number", n.Line, v)
}

func sequenceExpr(n *yaml.Node) (Expr, error) {
	if len(n.Content) == 0 {
		return nil, fmt.Errorf("line %d: empty call", n.Line)
	}
	head, err := FromNode(n.Content[0])
	if err != nil {
		return nil, err
	}
	args := make([]Expr, len(n.Content)-1)
	for i, c := range n.Content[1:] {
		if args[i], err = FromNode(c); err != nil {
			return nil, err
		}
	}
	if s, ok := head.(*Sym); ok {
		switch s.name {
		case hRational:
			return rationalExpr(n, args)
		case hComplex:
			return complexExpr(n, args)
		case hReal:
			return realExpr(n)
		case "Optional":
			return optionalExpr(n, args)
		}
	}
	return newCall(head, args), nil
}

func rationalExpr(n *yaml.Node, args []Expr) (Expr, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("line %d: Rational takes 2 integers", n.Line)
	}
	p, ok1 := args[0].(*Int)
	q, ok2 := args[1].(*Int)
	if !ok1 || !ok2 || q.IsZero() {
		return nil, fmt.Errorf("line %d: Rational takes 2 integers with a nonzero denominator", n.Line)
	}
	return RatOf(new(big.Rat).SetFrac(p.val, q.val)), nil
}

// complexExpr builds a complex number. Machine parts give a Complex, big
// parts a BigComplex and exact parts the sum re + im*I.
func complexExpr(n *yaml.Node, args []Expr) (Expr, error) {
	if len(args) != 2 || !isRealNumber(args[0]) || !isRealNumber(args[1]) {
		return nil, fmt.Errorf("line %d: Complex takes 2 real numbers", n.Line)
	}
	re, im := args[0], args[1]
	switch {
	case isExactNumber(re) && isExactNumber(im):
		return Plus(re, Times(im, I)), nil
	case precOf(re) > 0 || precOf(im) > 0:
		p := workPrec(re, im)
		return &BigComplex{re: toBigFloat(re, p), im: toBigFloat(im, p)}, nil
	}
	return C(toFloat64(re), toFloat64(im)), nil
}

// realExpr reads [Real, "digits", precision] without going through the
// machine float path, so the digits keep their full precision.
func realExpr(n *yaml.Node) (Expr, error) {
	if len(n.Content) != 3 {
		return nil, fmt.Errorf("line %d: Real takes a digit string and a precision", n.Line)
	}
	digits, err := strconv.Atoi(n.Content[2].Value)
	if err != nil || digits < 1 {
		return nil, fmt.Errorf("line %d: bad Real precision %q", n.Line, n.Content[2].Value)
	}
	return ParseBigReal(n.Content[1].Value, digits)
}

func optionalExpr(n *yaml.Node, args []Expr) (Expr, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("line %d: Optional takes a blank and a default", n.Line)
	}
	b, ok := args[0].(*Blank)
	if !ok || b.isSeq() {
		return nil, fmt.Errorf("line %d: Optional needs a single blank", n.Line)
	}
	cp := *b
	cp.optional, cp.def = true, args[1]
	return &cp, nil
}

// ToNode converts an expression to a YAML node in the form FromNode reads.
func ToNode(e Expr) *yaml.Node {
	plain := func(v string) *yaml.Node { return &yaml.Node{Kind: yaml.ScalarNode, Value: v} }
	seq := func(items ...*yaml.Node) *yaml.Node {
		return &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle, Content: items}
	}
	switch x := e.(type) {
	case *Int:
		return plain(x.val.String())
	case *Rat:
		return plain(x.val.RatString())
	case Real:
		f := float64(x)
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return seq(plain(hReal), &yaml.Node{Kind: yaml.ScalarNode, Style: yaml.DoubleQuotedStyle, Value: strconv.FormatFloat(f, 'g', -1, 64)}, plain("16"))
		}
		return plain(formatMachine(f))
	case Complex:
		return seq(plain(hComplex), ToNode(R(real(x))), ToNode(R(imag(x))))
	case *BigReal:
		return bigNode(x.val)
	case *BigComplex:
		return seq(plain(hComplex), bigNode(x.re), bigNode(x.im))
	case *Sym:
		return plain(x.name)
	case Str:
		return &yaml.Node{Kind: yaml.ScalarNode, Style: yaml.DoubleQuotedStyle, Value: string(x)}
	case *Blank:
		if x.optional && x.def != nil {
			b := *x
			b.optional, b.def = false, nil
			return seq(plain("Optional"), plain(b.String()), ToNode(x.def))
		}
		return plain(x.String())
	case *Call:
		items := make([]*yaml.Node, 0, len(x.args)+1)
		items = append(items, ToNode(x.head))
		for _, a := range x.args {
			items = append(items, ToNode(a))
		}
		return seq(items...)
	}
	return plain("Null")
}

func bigNode(f *big.Float) *yaml.Node {
	d := bitsToDigits(f.Prec())
	return &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle, Content: []*yaml.Node{
		{Kind: yaml.ScalarNode, Value: hReal},
		{Kind: yaml.ScalarNode, Style: yaml.DoubleQuotedStyle, Value: f.Text('g', d+2)},
		{Kind: yaml.ScalarNode, Value: strconv.Itoa(d)},
	}}
}

// EncodeYAML writes e in flow style.
func EncodeYAML(e Expr) ([]byte, error) {
	out, err := yaml.Marshal(ToNode(e))
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", e, err)
	}
	return out, nil
}

// ============================================================
// Rule tables
// ============================================================

// RuleTable is a parsed rule file: attributes and defaults to install,
// then rules in declaration order.
type RuleTable struct {
	Name       string
	Attributes map[string]Attribute
	Defaults   map[string]Expr
	Rules      []Rule
}

type ruleFile struct {
	Attributes map[string][]string  `yaml:"attributes"`
	Defaults   map[string]yaml.Node `yaml:"defaults"`
	Rules      []struct {
		LHS yaml.Node `yaml:"lhs"`
		RHS yaml.Node `yaml:"rhs"`
		If  yaml.Node `yaml:"if"`
	} `yaml:"rules"`
}

// ParseRuleTable decodes a YAML rule file:
//
//	attributes: {f: [Flat, Orderless]}
//	defaults:   {f: 0}
//	rules:
//	  - {lhs: [f, x_, x_], rhs: [g, x]}
//	  - {lhs: [f, n_Integer], rhs: 0, if: [Negative, n]}
func ParseRuleTable(data []byte, name string) (*RuleTable, error) {
	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	t := &RuleTable{Name: name, Attributes: make(map[string]Attribute), Defaults: make(map[string]Expr)}
	for sym, names := range rf.Attributes {
		var a Attribute
		for _, n := range names {
			v, err := ParseAttribute(n)
			if err != nil {
				return nil, fmt.Errorf("%s: %s: %w", name, sym, err)
			}
			a |= v
		}
		t.Attributes[sym] = a
	}
	for sym, node := range rf.Defaults {
		v, err := FromNode(&node)
		if err != nil {
			return nil, fmt.Errorf("%s: default of %s: %w", name, sym, err)
		}
		t.Defaults[sym] = v
	}
	for i := range rf.Rules {
		r := &rf.Rules[i]
		if r.LHS.Kind == 0 || r.RHS.Kind == 0 {
			return nil, fmt.Errorf("%s: rule %d needs lhs and rhs", name, i+1)
		}
		lhs, err := FromNode(&r.LHS)
		if err != nil {
			return nil, fmt.Errorf("%s: rule %d lhs: %w", name, i+1, err)
		}
		rhs, err := FromNode(&r.RHS)
		if err != nil {
			return nil, fmt.Errorf("%s: rule %d rhs: %w", name, i+1, err)
		}
		rule := Rule{LHS: lhs, RHS: rhs}
		if r.If.Kind != 0 {
			if rule.Guard, err = FromNode(&r.If); err != nil {
				return nil, fmt.Errorf("%s: rule %d if: %w", name, i+1, err)
			}
		}
		if _, err := ruleHead(lhs); err != nil {
			return nil, fmt.Errorf("%s: rule %d: %w", name, i+1, err)
		}
		t.Rules = append(t.Rules, rule)
	}
	return t, nil
}
