package symkern

import (
	"context"
	"sort"
)

// ============================================================
// Pattern matching
// ============================================================
//
// The matcher keeps an explicit stack of choice points. A frame is a goal
// list plus the environment reached so far; both are persistent, so pushing
// an alternative never copies. Goals are expanded one at a time and every
// alternative beyond the first is pushed for later, in reverse so that the
// first alternative runs next. Search depth is bounded by the heap, not the
// Go stack, and every expansion ticks a budget that can stop the search.

// many stands for an unbounded argument count.
const many = 1 << 30

type goalKind uint8

const (
	goalOne    goalKind = iota // pat against cand
	goalArgs                   // pats against the argument list cands
	goalBind                   // blank against the run cands
	goalChoose                 // orderless: pick need of cands[pos:] for blank
)

type goal struct {
	kind   goalKind
	pat    Expr
	cand   Expr
	blank  *Blank
	head   Expr
	attrs  Attribute
	pats   []Expr
	cands  []Expr
	picked []Expr
	left   []Expr
	pos    int
	need   int
}

type goalList struct {
	g    goal
	next *goalList
}

func (l *goalList) push(g goal) *goalList { return &goalList{g: g, next: l} }

type frame struct {
	goals *goalList
	env   *env
}

type matcher struct {
	s     *Session
	tick  func() error
	lit   map[*Call]bool
	stack []frame
}

func newMatcher(s *Session, tick func() error) *matcher {
	return &matcher{s: s, tick: tick, lit: make(map[*Call]bool)}
}

// run enumerates the matches of pat against cand in order, calling yield
// with each final environment until yield returns false.
func (m *matcher) run(pat, cand Expr, start *env, yield func(*env) bool) error {
	m.stack = append(m.stack[:0], frame{goals: (*goalList)(nil).push(goal{kind: goalOne, pat: pat, cand: cand}), env: start})
	for len(m.stack) > 0 {
		f := m.stack[len(m.stack)-1]
		m.stack = m.stack[:len(m.stack)-1]
		for {
			if err := m.tick(); err != nil {
				m.stack = m.stack[:0]
				return err
			}
			if f.goals == nil {
				if !yield(f.env) {
					m.stack = m.stack[:0]
					return nil
				}
				break
			}
			alts := m.expand(f.goals.g, f.goals.next, f.env)
			if len(alts) == 0 {
				break
			}
			for i := len(alts) - 1; i > 0; i-- {
				m.stack = append(m.stack, alts[i])
			}
			f = alts[0]
		}
	}
	return nil
}

func (m *matcher) expand(g goal, rest *goalList, e *env) []frame {
	switch g.kind {
	case goalOne:
		return m.one(g.pat, g.cand, rest, e)
	case goalArgs:
		return m.args(g, rest, e)
	case goalChoose:
		return m.choose(g, rest, e)
	}
	return m.bindRun(g, rest, e)
}

func (m *matcher) literal(e Expr) bool {
	switch x := e.(type) {
	case *Blank:
		return false
	case *Call:
		v, ok := m.lit[x]
		if !ok {
			v = !ContainsPattern(x)
			m.lit[x] = v
		}
		return v
	}
	return true
}

func (m *matcher) attrsOf(head Expr) Attribute {
	if s, ok := head.(*Sym); ok {
		return m.s.attributes(s.name)
	}
	return 0
}

func (m *matcher) defaultFor(head string, b *Blank) (Expr, bool) {
	if b.def != nil {
		return b.def, true
	}
	return m.s.defaultValue(head)
}

func bound(rest *goalList, e *env, name string, v Expr) []frame {
	e, ok := bindName(e, name, v)
	if !ok {
		return nil
	}
	return []frame{{goals: rest, env: e}}
}

func (m *matcher) one(pat, cand Expr, rest *goalList, e *env) []frame {
	switch p := pat.(type) {
	case *Blank:
		if p.head != "" && headName(cand) != p.head {
			return nil
		}
		return bound(rest, e, p.name, cand)
	case *Call:
		if m.literal(p) {
			if p.Equal(cand) {
				return []frame{{goals: rest, env: e}}
			}
			return nil
		}
		return m.call(p, cand, rest, e)
	}
	if pat.Equal(cand) {
		return []frame{{goals: rest, env: e}}
	}
	return nil
}

// call matches a compound pattern: structurally against a call candidate,
// then through the OneIdentity default form.
func (m *matcher) call(p *Call, cand Expr, rest *goalList, e *env) []frame {
	var out []frame
	if c, ok := cand.(*Call); ok {
		litHead := m.literal(p.head)
		if !litHead || p.head.Equal(c.head) {
			attrs := m.attrsOf(c.head)
			args := goal{kind: goalArgs, head: c.head, attrs: attrs, pats: m.order(p.args, attrs), cands: c.args}
			if m.fits(args) {
				next := rest.push(args)
				if !litHead {
					next = next.push(goal{kind: goalOne, pat: p.head, cand: c.head})
				}
				out = append(out, frame{goals: next, env: e})
			}
		}
	}
	if f, ok := m.oneIdentity(p, cand, rest, e); ok {
		out = append(out, f)
	}
	return out
}

// oneIdentity matches h[..., x, ...] against a candidate that is not an h
// call, when h is OneIdentity and every sub-pattern but x is optional: the
// optional ones take their defaults and x matches the whole candidate.
func (m *matcher) oneIdentity(p *Call, cand Expr, rest *goalList, e *env) (frame, bool) {
	name := p.HeadName()
	if name == "" || !m.s.attributes(name).Has(OneIdentity) {
		return frame{}, false
	}
	if c, ok := cand.(*Call); ok && c.head.Equal(p.head) {
		return frame{}, false
	}
	var main Expr
	for _, a := range p.args {
		if b, ok := a.(*Blank); ok && b.optional {
			continue
		}
		if main != nil {
			return frame{}, false
		}
		main = a
	}
	if main == nil {
		return frame{}, false
	}
	for _, a := range p.args {
		b, ok := a.(*Blank)
		if !ok || !b.optional {
			continue
		}
		v, ok := m.defaultFor(name, b)
		if !ok || (b.head != "" && headName(v) != b.head) {
			return frame{}, false
		}
		if e, ok = bindName(e, b.name, v); !ok {
			return frame{}, false
		}
	}
	return frame{goals: rest.push(goal{kind: goalOne, pat: main, cand: cand}), env: e}, true
}

// span is the number of arguments p may take under a head with attrs.
func span(p Expr, attrs Attribute) (lo, hi int) {
	b, ok := p.(*Blank)
	switch {
	case !ok:
		return 1, 1
	case b.kind == BlankSequence:
		return 1, many
	case b.kind == BlankNullSequence:
		return 0, many
	case b.optional:
		return 0, 1
	case attrs.Has(Flat):
		return 1, many
	}
	return 1, 1
}

func bounds(pats []Expr, attrs Attribute) (lo, hi int) {
	for _, p := range pats {
		l, h := span(p, attrs)
		lo += l
		hi = min(hi+h, many)
	}
	return lo, hi
}

func (m *matcher) fits(g goal) bool {
	lo, hi := bounds(g.pats, g.attrs)
	return lo <= len(g.cands) && len(g.cands) <= hi
}

// order puts the sub-patterns of an Orderless call in the order they are
// tried: literals, compound patterns, head-tested blanks, optional blanks,
// plain blanks, sequences.
func (m *matcher) order(pats []Expr, attrs Attribute) []Expr {
	if !attrs.Has(Orderless) || len(pats) < 2 {
		return pats
	}
	out := make([]Expr, len(pats))
	copy(out, pats)
	sort.SliceStable(out, func(i, j int) bool { return m.priority(out[i]) < m.priority(out[j]) })
	return out
}

func (m *matcher) priority(p Expr) int {
	b, ok := p.(*Blank)
	switch {
	case m.literal(p):
		return 0
	case !ok:
		return 1
	case b.isSeq():
		return 5
	case b.optional:
		return 3
	case b.head != "":
		return 2
	}
	return 4
}

func (m *matcher) args(g goal, rest *goalList, e *env) []frame {
	if len(g.pats) == 0 {
		if len(g.cands) == 0 {
			return []frame{{goals: rest, env: e}}
		}
		return nil
	}
	if !m.fits(g) {
		return nil
	}
	if g.attrs.Has(Orderless) {
		return m.orderless(g, rest, e)
	}
	return m.positional(g, rest, e)
}

// positional matches the first sub-pattern against a prefix of the
// arguments. Variable-length blanks try the shortest prefix first;
// optional blanks try consuming an argument before taking the default.
func (m *matcher) positional(g goal, rest *goalList, e *env) []frame {
	p, more := g.pats[0], g.pats[1:]
	n := len(g.cands)
	lo, hi := span(p, g.attrs)
	restLo, restHi := bounds(more, g.attrs)
	kmin, kmax := max(lo, n-restHi), min(hi, n-restLo)
	b, _ := p.(*Blank)

	var out []frame
	try := func(k int) {
		next := rest.push(goal{kind: goalArgs, head: g.head, attrs: g.attrs, pats: more, cands: g.cands[k:]})
		if b != nil && (b.isSeq() || k != 1) {
			next = next.push(goal{kind: goalBind, blank: b, head: g.head, cands: g.cands[:k]})
		} else {
			next = next.push(goal{kind: goalOne, pat: p, cand: g.cands[0]})
		}
		out = append(out, frame{goals: next, env: e})
	}
	if b != nil && b.optional {
		for k := kmax; k >= kmin; k-- {
			try(k)
		}
	} else {
		for k := kmin; k <= kmax; k++ {
			try(k)
		}
	}
	return out
}

// orderless assigns candidates to the first sub-pattern. Single-argument
// sub-patterns try each distinct candidate in sorted order; a literal
// stops at the first equal candidate. Variable-length blanks pick subsets
// through goalChoose, smallest first.
func (m *matcher) orderless(g goal, rest *goalList, e *env) []frame {
	p, more := g.pats[0], g.pats[1:]
	lo, hi := span(p, g.attrs)
	var out []frame

	if lo == 1 && hi == 1 {
		lit := m.literal(p)
		for i, c := range g.cands {
			if i > 0 && c.Equal(g.cands[i-1]) {
				continue
			}
			if lit && !p.Equal(c) || !lit && m.reject(p, c) {
				continue
			}
			left := make([]Expr, 0, len(g.cands)-1)
			left = append(append(left, g.cands[:i]...), g.cands[i+1:]...)
			next := rest.push(goal{kind: goalArgs, head: g.head, attrs: g.attrs, pats: more, cands: left})
			out = append(out, frame{goals: next.push(goal{kind: goalOne, pat: p, cand: c}), env: e})
			if lit {
				break
			}
		}
		return out
	}

	b := p.(*Blank)
	n := len(g.cands)
	restLo, restHi := bounds(more, g.attrs)
	kmin, kmax := max(lo, n-restHi), min(hi, n-restLo)
	try := func(k int) {
		out = append(out, frame{goals: rest.push(goal{kind: goalChoose, blank: b, head: g.head, attrs: g.attrs, pats: more, cands: g.cands, need: k}), env: e})
	}
	if b.optional {
		for k := kmax; k >= kmin; k-- {
			try(k)
		}
	} else {
		for k := kmin; k <= kmax; k++ {
			try(k)
		}
	}
	return out
}

// reject is a cheap structural test that rules out a candidate before any
// choice point is created for it.
func (m *matcher) reject(p, c Expr) bool {
	switch x := p.(type) {
	case *Blank:
		return x.head != "" && !x.isSeq() && headName(c) != x.head
	case *Call:
		name := x.HeadName()
		if name == "" {
			return false
		}
		if cc, ok := c.(*Call); ok && cc.head.Equal(x.head) {
			return false
		}
		return !m.s.attributes(name).Has(OneIdentity)
	}
	return false
}

// choose picks the next candidate for an orderless run or skips it. Equal
// candidates are skipped together so each multiset is produced once.
func (m *matcher) choose(g goal, rest *goalList, e *env) []frame {
	if g.need == 0 {
		left := make([]Expr, 0, len(g.left)+len(g.cands)-g.pos)
		left = append(append(left, g.left...), g.cands[g.pos:]...)
		next := rest.push(goal{kind: goalArgs, head: g.head, attrs: g.attrs, pats: g.pats, cands: left})
		return []frame{{goals: next.push(goal{kind: goalBind, blank: g.blank, head: g.head, cands: g.picked}), env: e}}
	}
	n := len(g.cands)
	if n-g.pos < g.need {
		return nil
	}
	c := g.cands[g.pos]
	var out []frame
	if !g.blank.isSeq() || g.blank.head == "" || headName(c) == g.blank.head {
		take := g
		take.picked = append(append(make([]Expr, 0, len(g.picked)+1), g.picked...), c)
		take.pos++
		take.need--
		out = append(out, frame{goals: rest.push(take), env: e})
	}
	j := g.pos
	for j < n && g.cands[j].Equal(c) {
		j++
	}
	if n-j >= g.need {
		skip := g
		skip.left = append(append(make([]Expr, 0, len(g.left)+j-g.pos), g.left...), g.cands[g.pos:j]...)
		skip.pos = j
		out = append(out, frame{goals: rest.push(skip), env: e})
	}
	return out
}

// bindRun binds a blank to a run of arguments: a sequence blank to
// Sequence[...], a plain blank under a Flat head to head[...], and an
// optional blank with no argument to its default.
func (m *matcher) bindRun(g goal, rest *goalList, e *env) []frame {
	b := g.blank
	var v Expr
	switch {
	case len(g.cands) == 0 && b.optional:
		var name string
		if s, ok := g.head.(*Sym); ok {
			name = s.name
		}
		d, ok := m.defaultFor(name, b)
		if !ok {
			return nil
		}
		v = d
	case b.isSeq():
		for _, c := range g.cands {
			if b.head != "" && headName(c) != b.head {
				return nil
			}
		}
		return bound(rest, e, b.name, CallOf(S(hSequence), g.cands...))
	case len(g.cands) == 1:
		v = g.cands[0]
	default:
		v = CallOf(g.head, g.cands...)
	}
	if b.head != "" && headName(v) != b.head {
		return nil
	}
	return bound(rest, e, b.name, v)
}

// ============================================================
// Session entry points
// ============================================================

// matchBudget counts choice points against limit and polls ctx.
func matchBudget(ctx context.Context, limit int) func() error {
	n := 0
	return func() error {
		n++
		if limit > 0 && n > limit {
			return &AbortError{Limit: "match", Err: ErrIterationLimit}
		}
		if n&255 == 0 {
			if err := ctx.Err(); err != nil {
				return &AbortError{Limit: "time", Err: ErrTimeout, cause: err}
			}
		}
		return nil
	}
}

// Match returns the first binding of pattern against e, using the
// session's attributes and defaults. A search that exceeds the match limit
// counts as no match.
func (s *Session) Match(pattern, e Expr) (Bindings, bool) {
	var found Bindings
	err := s.MatchAll(context.Background(), pattern, e, func(b Bindings) bool {
		found = b
		return false
	})
	if err != nil || found == nil {
		return nil, false
	}
	return found, true
}

// MatchAll calls yield with every binding of pattern against e, in match
// order, until yield returns false. It fails only when the search is cut
// short by ctx or by the match limit.
func (s *Session) MatchAll(ctx context.Context, pattern, e Expr, yield func(Bindings) bool) error {
	m := newMatcher(s, matchBudget(ctx, s.cfg.MatchLimit))
	return m.run(pattern, e, nil, func(en *env) bool { return yield(en.bindings()) })
}
