package symkern

import (
	"fmt"
	"sort"
)

// Rule rewrites expressions matching LHS into RHS with the pattern
// variables substituted. A non-nil Guard must rewrite to True under the
// same bindings for the rule to fire.
type Rule struct {
	LHS   Expr
	RHS   Expr
	Guard Expr
}

func (r Rule) String() string {
	s := r.LHS.String() + " -> " + r.RHS.String()
	if r.Guard != nil {
		s += " /; " + r.Guard.String()
	}
	return s
}

// ruleHead is the symbol a rule is stored under: the head of its LHS.
func ruleHead(lhs Expr) (string, error) {
	c, ok := lhs.(*Call)
	if !ok {
		return "", fmt.Errorf("rule lhs %s is not a call", lhs)
	}
	for {
		switch h := c.head.(type) {
		case *Sym:
			return h.name, nil
		case *Call:
			c = h
			continue
		}
		return "", fmt.Errorf("rule lhs %s has no symbol head", lhs)
	}
}

// specificity class: literal rules first, then plain patterns, then rules
// with sequence or optional blanks.
func specificity(lhs Expr) int {
	if !ContainsPattern(lhs) {
		return 0
	}
	if hasVariadic(lhs) {
		return 2
	}
	return 1
}

func hasVariadic(e Expr) bool {
	switch x := e.(type) {
	case *Blank:
		return x.isSeq() || x.optional
	case *Call:
		if hasVariadic(x.head) {
			return true
		}
		for _, a := range x.args {
			if hasVariadic(a) {
				return true
			}
		}
	}
	return false
}

type storedRule struct {
	Rule
	class int
	seq   int
}

// RuleSet is the ordered rule list of one head. Rules are ordered by
// specificity class, then declaration order. Unconditional literal rules are
// also indexed by key.
type RuleSet struct {
	rules []*storedRule
	exact map[string]*storedRule
	next  int
}

func newRuleSet() *RuleSet { return &RuleSet{exact: make(map[string]*storedRule)} }

// Add inserts r, replacing an existing rule with an equal LHS and guard.
func (rs *RuleSet) Add(r Rule) {
	for _, old := range rs.rules {
		if old.LHS.Equal(r.LHS) && sameGuard(old.Guard, r.Guard) {
			old.RHS = r.RHS
			return
		}
	}
	sr := &storedRule{Rule: r, class: specificity(r.LHS), seq: rs.next}
	rs.next++
	i := sort.Search(len(rs.rules), func(i int) bool { return rs.rules[i].class > sr.class })
	rs.rules = append(rs.rules, nil)
	copy(rs.rules[i+1:], rs.rules[i:])
	rs.rules[i] = sr
	if sr.class == 0 && r.Guard == nil {
		rs.exact[Key(r.LHS)] = sr
	}
}

func sameGuard(a, b Expr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b)
}

// Len is the number of rules.
func (rs *RuleSet) Len() int { return len(rs.rules) }

// Rules returns the rules in application order.
func (rs *RuleSet) Rules() []Rule {
	out := make([]Rule, len(rs.rules))
	for i, r := range rs.rules {
		out[i] = r.Rule
	}
	return out
}

// lookup returns the unconditional literal rule for e.
func (rs *RuleSet) lookup(e Expr) (*storedRule, bool) {
	r, ok := rs.exact[Key(e)]
	return r, ok
}

func (rs *RuleSet) clone() *RuleSet {
	c := &RuleSet{rules: make([]*storedRule, len(rs.rules)), exact: make(map[string]*storedRule, len(rs.exact)), next: rs.next}
	for i, r := range rs.rules {
		cp := *r
		c.rules[i] = &cp
		if cp.class == 0 && cp.Guard == nil {
			c.exact[Key(cp.LHS)] = &cp
		}
	}
	return c
}
