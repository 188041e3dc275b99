package symkern

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"sync"

	"go.uber.org/zap"
)

//go:embed rules/*.yaml
var ruleFS embed.FS

// builtinRuleTables parses the embedded rule files once. The tables are
// shared by every session and never modified.
var builtinRuleTables = sync.OnceValues(func() ([]*RuleTable, error) {
	names, err := fs.Glob(ruleFS, "rules/*.yaml")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	tables := make([]*RuleTable, 0, len(names))
	for _, name := range names {
		data, err := ruleFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		t, err := ParseRuleTable(data, path.Base(name))
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
})

// LoadRuleFile installs the rule table stored in file.
func (s *Session) LoadRuleFile(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("reading rules %s: %w", file, err)
	}
	return s.LoadRules(data, file)
}

// LoadRules installs a YAML rule table. name is used in errors and logs.
func (s *Session) LoadRules(data []byte, name string) error {
	t, err := ParseRuleTable(data, name)
	if err != nil {
		return err
	}
	if err := s.apply(t); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	s.log.Debug("rules loaded", zap.String("table", name), zap.Int("rules", len(t.Rules)))
	return nil
}

// apply installs attributes and defaults before the rules, so the rule
// left-hand sides are stored in the canonical form those attributes give.
func (s *Session) apply(t *RuleTable) error {
	for sym, a := range t.Attributes {
		s.SetAttributes(sym, a)
	}
	for sym, v := range t.Defaults {
		s.SetDefault(sym, v)
	}
	for _, r := range t.Rules {
		if err := s.AddRule(r); err != nil {
			return err
		}
	}
	return nil
}
