package symkern

import (
	"fmt"
	"strings"
)

// Attribute is a set of evaluation properties attached to a head symbol.
type Attribute uint32

const (
	Flat Attribute = 1 << iota
	Orderless
	OneIdentity
	Listable
	NumericFunction
	HoldFirst
	HoldRest

	HoldAll = HoldFirst | HoldRest
)

var attributeNames = []struct {
	a    Attribute
	name string
}{
	{Flat, "Flat"},
	{Orderless, "Orderless"},
	{OneIdentity, "OneIdentity"},
	{Listable, "Listable"},
	{NumericFunction, "NumericFunction"},
	{HoldFirst, "HoldFirst"},
	{HoldRest, "HoldRest"},
}

func (a Attribute) Has(b Attribute) bool { return a&b == b }

func (a Attribute) String() string {
	if a == 0 {
		return "{}"
	}
	var parts []string
	for _, n := range attributeNames {
		if a.Has(n.a) {
			parts = append(parts, n.name)
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// ParseAttribute maps an attribute name to its flag. HoldAll is accepted as
// the union of HoldFirst and HoldRest.
func ParseAttribute(name string) (Attribute, error) {
	if name == "HoldAll" {
		return HoldAll, nil
	}
	for _, n := range attributeNames {
		if n.name == name {
			return n.a, nil
		}
	}
	return 0, fmt.Errorf("unknown attribute %q", name)
}

const (
	arith = Flat | Orderless | OneIdentity | Listable | NumericFunction
	mathf = Listable | NumericFunction
)

// builtinAttributes seeds every new session.
var builtinAttributes = map[string]Attribute{
	hPlus:         arith,
	hTimes:        arith,
	hPower:        OneIdentity | mathf,
	"Sqrt":        mathf,
	"Sin":         mathf,
	"Cos":         mathf,
	"Tan":         mathf,
	"Sinh":        mathf,
	"Cosh":        mathf,
	"Tanh":        mathf,
	"Exp":         mathf,
	"Log":         mathf,
	"Abs":         mathf,
	"Gamma":       mathf,
	"Zeta":        mathf,
	"HurwitzZeta": mathf,
	"EvenQ":       Listable,
	"OddQ":        Listable,
	hHold:         HoldAll,
	"If":          HoldRest,
	"And":         HoldAll,
	"Or":          HoldAll,
	"Apart":       0,
}

// builtinDefaults are the values optional pattern arguments take under a head.
var builtinDefaults = map[string]Expr{
	hPlus:  N(0),
	hTimes: N(1),
	hPower: N(1),
}
