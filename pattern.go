package symkern

import (
	"strings"
)

// BlankKind says how many arguments a blank may absorb.
type BlankKind uint8

const (
	BlankOne         BlankKind = iota // x_
	BlankSequence                     // x__, one or more
	BlankNullSequence                 // x___, zero or more
)

// Blank is a pattern variable. It only appears in rule left-hand sides,
// guards and FreeQ forms.
type Blank struct {
	name     string
	head     string
	kind     BlankKind
	optional bool
	def      Expr
}

// P is the pattern name_.
func P(name string) *Blank { return &Blank{name: name} }

// PH is the pattern name_head.
func PH(name, head string) *Blank { return &Blank{name: name, head: head} }

// PSeq is the pattern name__.
func PSeq(name string) *Blank { return &Blank{name: name, kind: BlankSequence} }

// PNullSeq is the pattern name___.
func PNullSeq(name string) *Blank { return &Blank{name: name, kind: BlankNullSequence} }

// POpt is name_:def, or name_. when def is nil.
func POpt(name string, def Expr) *Blank { return &Blank{name: name, optional: true, def: def} }

func (p *Blank) Name() string     { return p.name }
func (p *Blank) HeadTest() string { return p.head }
func (p *Blank) Kind() BlankKind  { return p.kind }
func (p *Blank) Optional() bool   { return p.optional }
func (p *Blank) exprType() string { return "blank" }
func (p *Blank) isSeq() bool      { return p.kind != BlankOne }

func (p *Blank) Equal(other Expr) bool {
	o, ok := other.(*Blank)
	if !ok || p.name != o.name || p.head != o.head || p.kind != o.kind || p.optional != o.optional {
		return false
	}
	if p.def == nil || o.def == nil {
		return p.def == nil && o.def == nil
	}
	return p.def.Equal(o.def)
}

func (p *Blank) String() string {
	var b strings.Builder
	b.WriteString(p.name)
	switch p.kind {
	case BlankSequence:
		b.WriteString("__")
	case BlankNullSequence:
		b.WriteString("___")
	default:
		b.WriteString("_")
	}
	b.WriteString(p.head)
	if p.optional {
		if p.def == nil {
			b.WriteString(".")
		} else {
			b.WriteString(":")
			b.WriteString(p.def.String())
		}
	}
	return b.String()
}

func (p *Blank) toJSON() map[string]interface{} {
	m := map[string]interface{}{"type": "blank", "name": p.name, "head": p.head, "kind": int(p.kind), "optional": p.optional}
	if p.def != nil {
		m["default"] = p.def.toJSON()
	}
	return m
}

// ParseBlank reads the compact blank notation: "x_", "x_Integer", "x__",
// "x___", "_", "x_." (head default). Explicit defaults are attached with
// POpt or the structured codec.
func ParseBlank(s string) (*Blank, bool) {
	i := strings.IndexByte(s, '_')
	if i < 0 {
		return nil, false
	}
	name, rest := s[:i], s[i:]
	if name != "" && !isIdent(name) {
		return nil, false
	}
	p := &Blank{name: name}
	switch {
	case strings.HasPrefix(rest, "___"):
		p.kind, rest = BlankNullSequence, rest[3:]
	case strings.HasPrefix(rest, "__"):
		p.kind, rest = BlankSequence, rest[2:]
	default:
		rest = rest[1:]
	}
	if strings.HasSuffix(rest, ".") {
		if p.kind != BlankOne {
			return nil, false
		}
		p.optional, rest = true, strings.TrimSuffix(rest, ".")
	}
	if rest != "" && !isIdent(rest) {
		return nil, false
	}
	p.head = rest
	return p, true
}

func isIdent(s string) bool {
	for i, r := range s {
		switch {
		case r == '$', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return s != ""
}

// ContainsPattern reports whether e has a Blank anywhere.
func ContainsPattern(e Expr) bool {
	switch x := e.(type) {
	case *Blank:
		return true
	case *Call:
		if ContainsPattern(x.head) {
			return true
		}
		for _, a := range x.args {
			if ContainsPattern(a) {
				return true
			}
		}
	}
	return false
}
