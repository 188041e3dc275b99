package symkern

import (
	"sort"
	"strings"
)

// env is a persistent binding list. Extending it never changes a parent,
// so a choice point can keep the environment it was created with.
type env struct {
	name string
	val  Expr
	next *env
}

func (e *env) lookup(name string) (Expr, bool) {
	for ; e != nil; e = e.next {
		if e.name == name {
			return e.val, true
		}
	}
	return nil, false
}

func (e *env) bind(name string, v Expr) *env { return &env{name: name, val: v, next: e} }

// bindName binds name to v, or checks v against an earlier binding.
// Anonymous blanks never bind.
func bindName(e *env, name string, v Expr) (*env, bool) {
	if name == "" {
		return e, true
	}
	if old, ok := e.lookup(name); ok {
		return e, old.Equal(v)
	}
	return e.bind(name, v), true
}

func (e *env) bindings() Bindings {
	b := Bindings{}
	for ; e != nil; e = e.next {
		if _, ok := b[e.name]; !ok {
			b[e.name] = e.val
		}
	}
	return b
}

// Bindings maps pattern variable names to the values they matched.
// Sequence variables are bound to Sequence[...].
type Bindings map[string]Expr

func (b Bindings) String() string {
	names := make([]string, 0, len(b))
	for n := range b {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n + " -> " + b[n].String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Substitute replaces the bound symbols of e. A value bound to
// Sequence[...] is spliced into the enclosing argument list.
func (b Bindings) Substitute(e Expr) Expr {
	var head *env
	for n, v := range b {
		head = head.bind(n, v)
	}
	return substitute(e, head)
}

func substitute(e Expr, en *env) Expr {
	if en == nil {
		return e
	}
	switch x := e.(type) {
	case *Sym:
		if v, ok := en.lookup(x.name); ok {
			return v
		}
	case *Blank:
		if x.name != "" {
			if v, ok := en.lookup(x.name); ok {
				return v
			}
		}
	case *Call:
		head := substitute(x.head, en)
		changed := head != x.head
		args := make([]Expr, 0, len(x.args))
		for _, a := range x.args {
			v := substitute(a, en)
			if v != a {
				changed = true
			}
			if seq, ok := isCall(v, hSequence); ok && v != a {
				args = append(args, seq.args...)
				continue
			}
			args = append(args, v)
		}
		if !changed {
			return x
		}
		return newCall(head, args)
	}
	return e
}
