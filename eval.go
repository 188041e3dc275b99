package symkern

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"
)

// evaluator holds the state of one rewrite pass. Nothing in it outlives
// the pass, so concurrent passes over one stable session do not interfere.
type evaluator struct {
	s     *Session
	ctx   context.Context
	log   *zap.Logger
	memo  map[string]Expr
	steps int
	depth int
	err   *AbortError
}

func (s *Session) newEvaluator(ctx context.Context) *evaluator {
	ev := &evaluator{s: s, ctx: ctx, log: s.log}
	if s.cfg.Memoize {
		ev.memo = make(map[string]Expr)
	}
	return ev
}

// Rewrite reduces e to a fixpoint of the session's rules, attribute
// normalization, builtins and numeric evaluation.
//
// When a limit is hit or ctx ends first, Rewrite returns the best partial
// result together with an *AbortError; errors.Is reports ErrIterationLimit
// or ErrTimeout.
func (s *Session) Rewrite(ctx context.Context, e Expr) (Expr, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	ev := s.newEvaluator(ctx)
	out := ev.eval(e)
	if ev.err != nil {
		ev.err.Partial = out
		s.log.Warn("rewrite aborted", zap.Error(ev.err), zap.Int("steps", ev.steps), exprField("partial", out))
		return out, ev.err
	}
	return out, nil
}

// MustRewrite is Rewrite without a deadline that panics on abort.
// It is meant for tests and examples.
func (s *Session) MustRewrite(e Expr) Expr {
	out, err := s.Rewrite(context.Background(), e)
	if err != nil {
		panic(err)
	}
	return out
}

func (ev *evaluator) abort(err error, head string) {
	if ev.err != nil {
		return
	}
	var ab *AbortError
	if !errors.As(err, &ab) {
		ab = &AbortError{Limit: "time", Err: ErrTimeout, cause: err}
	}
	if ab.Head == "" {
		ab.Head = head
	}
	ev.err = ab
}

// tick counts one rewrite or match step against the step limit and polls
// the context.
func (ev *evaluator) tick() error {
	ev.steps++
	if ev.steps > ev.s.cfg.StepLimit {
		return &AbortError{Limit: "steps", Err: ErrIterationLimit}
	}
	if ev.steps&255 == 0 {
		if err := ev.ctx.Err(); err != nil {
			return &AbortError{Limit: "time", Err: ErrTimeout, cause: err}
		}
	}
	return nil
}

func (ev *evaluator) eval(e Expr) Expr {
	if ev.err != nil {
		return e
	}
	switch x := e.(type) {
	case *Sym:
		v, ok := ev.s.values[x.name]
		if !ok || v.Equal(x) {
			return x
		}
		ev.depth++
		defer func() { ev.depth-- }()
		if ev.depth > ev.s.cfg.RecursionLimit {
			ev.abort(&AbortError{Limit: "recursion", Err: ErrIterationLimit}, x.name)
			return x
		}
		return ev.eval(v)
	case *Call:
		return ev.evalCall(x)
	}
	return e
}

// evalCall rewrites c until a step changes nothing.
func (ev *evaluator) evalCall(c *Call) Expr {
	ev.depth++
	defer func() { ev.depth-- }()
	if ev.depth > ev.s.cfg.RecursionLimit {
		ev.abort(&AbortError{Limit: "recursion", Err: ErrIterationLimit}, c.HeadName())
		return c
	}
	var key string
	if ev.memo != nil {
		key = Key(c)
		if v, ok := ev.memo[key]; ok {
			return v
		}
	}

	cur := c
	var out Expr
	for i := 0; ; i++ {
		if i >= ev.s.cfg.IterationLimit {
			ev.abort(&AbortError{Limit: "iteration", Err: ErrIterationLimit}, cur.HeadName())
			return cur
		}
		if err := ev.tick(); err != nil {
			ev.abort(err, cur.HeadName())
			return cur
		}
		next, changed := ev.step(cur)
		if ev.err != nil {
			return next
		}
		if !changed {
			out = next
			break
		}
		nc, ok := next.(*Call)
		if !ok {
			out = ev.eval(next)
			break
		}
		cur = nc
	}
	if ev.err != nil {
		return out
	}
	if ev.memo != nil {
		if len(ev.memo) >= ev.s.cfg.MemoLimit {
			clear(ev.memo)
		}
		ev.memo[key] = out
		if oc, ok := out.(*Call); ok {
			ev.memo[Key(oc)] = out
		}
	}
	return out
}

// step evaluates the head and arguments of c, normalizes them under the
// head's attributes and tries rules, builtins and the numeric ladder in
// that order. changed reports whether anything fired; the returned
// expression then needs another pass.
func (ev *evaluator) step(c *Call) (Expr, bool) {
	head := ev.eval(c.head)
	name := ""
	if s, ok := head.(*Sym); ok {
		name = s.name
	}
	attrs := ev.s.attributes(name)

	args := make([]Expr, 0, len(c.args))
	for i, a := range c.args {
		held := (i == 0 && attrs.Has(HoldFirst)) || (i > 0 && attrs.Has(HoldRest))
		if !held {
			a = ev.eval(a)
			if ev.err != nil {
				return c, false
			}
		}
		if seq, ok := isCall(a, hSequence); ok && name != hSequence {
			args = append(args, seq.args...)
			continue
		}
		args = append(args, a)
	}
	if attrs.Has(Flat) {
		args = flatten(head, args)
	}
	if attrs.Has(Listable) {
		if out, ok := threadListable(head, args); ok {
			return out, true
		}
	}
	if attrs.Has(Orderless) {
		sortArgs(args)
	}
	nc := newCall(head, args)

	if out, ok := ev.applyRules(nc); ok || ev.err != nil {
		return out, ok
	}
	if fn, ok := builtins[name]; ok && name != "" {
		if out := fn(ev, nc); out != nil && !out.Equal(nc) {
			return out, true
		}
		if ev.err != nil {
			return nc, false
		}
	}
	if attrs.Has(NumericFunction) && hasInexact(args) {
		out, ok, err := ev.s.EvaluateNumeric(name, args, 0)
		switch {
		case err != nil:
			ev.log.Debug("numeric evaluation failed", zap.String("head", name), zap.Error(err), exprField("expr", nc))
		case ok:
			return out, true
		}
	}
	if attrs.Has(OneIdentity) && len(args) == 1 {
		return args[0], true
	}
	return nc, false
}

func flatten(head Expr, args []Expr) []Expr {
	nested := false
	for _, a := range args {
		if c, ok := a.(*Call); ok && c.head.Equal(head) {
			nested = true
			break
		}
	}
	if !nested {
		return args
	}
	out := make([]Expr, 0, len(args)+4)
	for _, a := range args {
		if c, ok := a.(*Call); ok && c.head.Equal(head) {
			out = append(out, flatten(head, c.args)...)
			continue
		}
		out = append(out, a)
	}
	return out
}

func sortArgs(args []Expr) {
	sort.SliceStable(args, func(i, j int) bool { return Compare(args[i], args[j]) < 0 })
}

// threadListable maps head over List arguments of equal length.
func threadListable(head Expr, args []Expr) (Expr, bool) {
	n := -1
	for _, a := range args {
		if l, ok := isCall(a, hList); ok {
			if n >= 0 && l.Len() != n {
				return nil, false
			}
			n = l.Len()
		}
	}
	if n < 0 {
		return nil, false
	}
	items := make([]Expr, n)
	for i := range items {
		row := make([]Expr, len(args))
		for j, a := range args {
			if l, ok := isCall(a, hList); ok {
				row[j] = l.args[i]
			} else {
				row[j] = a
			}
		}
		items[i] = newCall(head, row)
	}
	return newCall(S(hList), items), true
}

func hasInexact(args []Expr) bool {
	for _, a := range args {
		if isInexactNumber(a) {
			return true
		}
	}
	return false
}

// applyRules tries the rule set of c's head. The first rule with a binding
// whose guard rewrites to True fires.
func (ev *evaluator) applyRules(c *Call) (Expr, bool) {
	name, err := ruleHead(c)
	if err != nil {
		return c, false
	}
	rs, ok := ev.s.rules[name]
	if !ok {
		return c, false
	}
	// An indexed literal rule still yields to guarded literal rules declared
	// before it.
	hit, _ := rs.lookup(c)
	for _, r := range rs.rules {
		if r == hit {
			break
		}
		if r.class == 0 && r.Guard == nil {
			continue
		}
		out, err := ev.tryRule(&r.Rule, c)
		if err != nil {
			ev.abort(err, name)
			return c, false
		}
		if ev.err != nil {
			return c, false
		}
		if out != nil {
			ev.traceRule(&r.Rule, c)
			return out, true
		}
	}
	if hit != nil {
		ev.traceRule(&hit.Rule, c)
		return hit.RHS, true
	}
	return c, false
}

// tryRule returns the instantiated right-hand side, or nil when no binding
// satisfies the rule.
func (ev *evaluator) tryRule(r *Rule, c Expr) (Expr, error) {
	n := 0
	limit := ev.s.cfg.MatchLimit
	m := newMatcher(ev.s, func() error {
		n++
		if n > limit {
			return &AbortError{Limit: "match", Err: ErrIterationLimit}
		}
		return ev.tick()
	})
	var out Expr
	err := m.run(r.LHS, c, nil, func(en *env) bool {
		if r.Guard != nil {
			g := ev.eval(substitute(r.Guard, en))
			if ev.err != nil {
				return false
			}
			if !isSym(g, symTrue) {
				return true
			}
		}
		out = substitute(r.RHS, en)
		return false
	})
	return out, err
}

func (ev *evaluator) traceRule(r *Rule, c Expr) {
	if ev.s.cfg.TraceRules {
		ev.log.Debug("rule fired", zap.Stringer("rule", r), exprField("expr", c))
	}
}

// matches reports whether pattern matches e under the session, sharing the
// pass budget.
func (ev *evaluator) matches(pattern, e Expr) bool {
	if !ContainsPattern(pattern) {
		return pattern.Equal(e)
	}
	m := newMatcher(ev.s, ev.tick)
	found := false
	if err := m.run(pattern, e, nil, func(*env) bool { found = true; return false }); err != nil {
		ev.abort(err, "")
	}
	return found
}

// canonical applies Flat and Orderless normalization recursively without
// evaluating. Rule left-hand sides are stored in this form.
func (s *Session) canonical(e Expr) Expr {
	c, ok := e.(*Call)
	if !ok {
		return e
	}
	head := s.canonical(c.head)
	args := make([]Expr, len(c.args))
	for i, a := range c.args {
		args[i] = s.canonical(a)
	}
	var attrs Attribute
	if h, ok := head.(*Sym); ok {
		attrs = s.attrs[h.name]
	}
	if attrs.Has(Flat) {
		args = flatten(head, args)
	}
	if attrs.Has(Orderless) {
		sortArgs(args)
	}
	return newCall(head, args)
}
