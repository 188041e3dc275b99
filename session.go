package symkern

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session owns a symbol table: attributes, default values, rule sets, own
// values and the numeric evaluator table. A session must not be mutated
// while a Rewrite on it is in flight; concurrent Rewrite calls on a session
// that is no longer mutated are safe.
type Session struct {
	ID string

	cfg      Config
	log      *zap.Logger
	arith    PolyArithmetic
	attrs    map[string]Attribute
	defaults map[string]Expr
	rules    map[string]*RuleSet
	values   map[string]Expr
	numeric  map[string]*NumericFuncs
}

// Option configures a new Session.
type Option func(*Session)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option { return func(s *Session) { s.cfg = cfg } }

// WithLogger sets the base logger. Sessions log nothing by default.
func WithLogger(l *zap.Logger) Option { return func(s *Session) { s.log = l } }

// WithPolyArithmetic replaces the polynomial collaborator used by Apart.
func WithPolyArithmetic(a PolyArithmetic) Option { return func(s *Session) { s.arith = a } }

// NewSession builds a session seeded with the builtin attributes, the
// embedded rule tables and the rule files named in the configuration.
func NewSession(opts ...Option) (*Session, error) {
	s := &Session{
		ID:       uuid.NewString(),
		cfg:      DefaultConfig(),
		attrs:    make(map[string]Attribute, len(builtinAttributes)),
		defaults: make(map[string]Expr, len(builtinDefaults)),
		rules:    make(map[string]*RuleSet),
		values:   make(map[string]Expr),
	}
	for _, o := range opts {
		o(s)
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	s.log = sessionLogger(s.log, s.ID)
	if s.arith == nil {
		s.arith = RationalArithmetic{MaxDegree: s.cfg.MaxFactorDegree}
	}
	for name, a := range builtinAttributes {
		s.attrs[name] = a
	}
	for name, v := range builtinDefaults {
		s.defaults[name] = v
	}
	s.numeric = defaultNumericTable(s.cfg.Zeta)

	tables, err := builtinRuleTables()
	if err != nil {
		return nil, err
	}
	for _, t := range tables {
		if err := s.apply(t); err != nil {
			return nil, fmt.Errorf("rule table %s: %w", t.Name, err)
		}
	}
	for _, path := range s.cfg.RuleFiles {
		if err := s.LoadRuleFile(path); err != nil {
			return nil, err
		}
	}
	s.log.Debug("session ready", zap.Int("heads", len(s.rules)), zap.Int("rule_files", len(s.cfg.RuleFiles)))
	return s, nil
}

// Config returns the session configuration.
func (s *Session) Config() Config { return s.cfg }

// Logger returns the session logger.
func (s *Session) Logger() *zap.Logger { return s.log }

// ============================================================
// Attributes and defaults
// ============================================================

func (s *Session) attributes(name string) Attribute { return s.attrs[name] }

// Attributes returns the attributes of the symbol name.
func (s *Session) Attributes(name string) Attribute { return s.attrs[name] }

// SetAttributes adds attrs to the symbol name.
func (s *Session) SetAttributes(name string, attrs Attribute) { s.attrs[name] |= attrs }

// ClearAttributes removes attrs from the symbol name.
func (s *Session) ClearAttributes(name string, attrs Attribute) {
	s.attrs[name] &^= attrs
	if s.attrs[name] == 0 {
		delete(s.attrs, name)
	}
}

func (s *Session) defaultValue(head string) (Expr, bool) {
	v, ok := s.defaults[head]
	return v, ok
}

// SetDefault sets the value optional blanks take under head.
func (s *Session) SetDefault(head string, v Expr) { s.defaults[head] = v }

// ============================================================
// Rules and values
// ============================================================

// AddRule stores r under the head symbol of its LHS. The LHS is first put
// in canonical order under the current attributes.
func (s *Session) AddRule(r Rule) error {
	if r.LHS == nil || r.RHS == nil {
		return fmt.Errorf("rule needs both sides")
	}
	r.LHS = s.canonical(r.LHS)
	head, err := ruleHead(r.LHS)
	if err != nil {
		return err
	}
	rs, ok := s.rules[head]
	if !ok {
		rs = newRuleSet()
		s.rules[head] = rs
	}
	rs.Add(r)
	return nil
}

// Define adds the unconditional rule lhs -> rhs.
func (s *Session) Define(lhs, rhs Expr) error { return s.AddRule(Rule{LHS: lhs, RHS: rhs}) }

// Rules returns the rules stored under head in application order.
func (s *Session) Rules(head string) []Rule {
	rs, ok := s.rules[head]
	if !ok {
		return nil
	}
	return rs.Rules()
}

// Heads lists the symbols that carry rules, sorted.
func (s *Session) Heads() []string {
	out := make([]string, 0, len(s.rules))
	for h := range s.rules {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

// SetValue makes the symbol name evaluate to v. A nil v clears it.
func (s *Session) SetValue(name string, v Expr) {
	if v == nil {
		delete(s.values, name)
		return
	}
	s.values[name] = v
}

// ============================================================
// Numeric table
// ============================================================

// RegisterNumeric installs the numeric entry points of head and marks it
// NumericFunction. Entries left nil keep the head symbolic in that domain.
func (s *Session) RegisterNumeric(head string, f NumericFuncs) {
	s.numeric[head] = &f
	s.attrs[head] |= NumericFunction
}

// EvaluateNumeric dispatches head over args at the lowest adequate domain.
// ok is false when no entry point applies; the expression then stays
// symbolic. prec is the requested precision, 0 for none.
func (s *Session) EvaluateNumeric(head string, args []Expr, prec Precision) (Expr, bool, error) {
	return evaluateNumeric(s.numeric, head, args, prec)
}

// Clone returns an independent copy of the symbol table with a new id.
// Expressions are immutable and shared.
func (s *Session) Clone() *Session {
	c := &Session{
		ID:       uuid.NewString(),
		cfg:      s.cfg,
		arith:    s.arith,
		attrs:    make(map[string]Attribute, len(s.attrs)),
		defaults: make(map[string]Expr, len(s.defaults)),
		rules:    make(map[string]*RuleSet, len(s.rules)),
		values:   make(map[string]Expr, len(s.values)),
		numeric:  make(map[string]*NumericFuncs, len(s.numeric)),
	}
	c.cfg.RuleFiles = append([]string(nil), s.cfg.RuleFiles...)
	for k, v := range s.attrs {
		c.attrs[k] = v
	}
	for k, v := range s.defaults {
		c.defaults[k] = v
	}
	for k, v := range s.rules {
		c.rules[k] = v.clone()
	}
	for k, v := range s.values {
		c.values[k] = v
	}
	for k, v := range s.numeric {
		f := *v
		c.numeric[k] = &f
	}
	c.log = s.log.With(zap.String("clone", c.ID))
	return c
}
