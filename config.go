package symkern

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the evaluation limits and numeric tunables of a session.
type Config struct {
	IterationLimit  int           `yaml:"iteration_limit" json:"iteration_limit"`     // fixpoint loop per node
	RecursionLimit  int           `yaml:"recursion_limit" json:"recursion_limit"`     // nested evaluation depth
	StepLimit       int           `yaml:"step_limit" json:"step_limit"`               // rewrite and match steps per pass
	MatchLimit      int           `yaml:"match_limit" json:"match_limit"`             // choice points per match attempt
	Timeout         time.Duration `yaml:"timeout" json:"timeout"`                     // 0 disables
	Memoize         bool          `yaml:"memoize" json:"memoize"`                     // per-pass memo
	MemoLimit       int           `yaml:"memo_limit" json:"memo_limit"`               // memo entries before reset
	TraceRules      bool          `yaml:"trace_rules" json:"trace_rules"`             // debug-log each rule firing
	MaxFactorDegree int           `yaml:"max_factor_degree" json:"max_factor_degree"` // RationalArithmetic bound
	RuleFiles       []string      `yaml:"rule_files" json:"rule_files,omitempty"`
	Zeta            ZetaConfig    `yaml:"zeta" json:"zeta"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		IterationLimit:  4096,
		RecursionLimit:  1024,
		StepLimit:       1_000_000,
		MatchLimit:      100_000,
		Memoize:         true,
		MemoLimit:       1 << 16,
		MaxFactorDegree: 64,
		Zeta:            DefaultZetaConfig(),
	}
}

// LoadConfig reads a YAML configuration file. Fields absent from the file
// keep their defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig decodes YAML configuration data. path is only used in errors.
func ParseConfig(data []byte, path string) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that every limit is usable.
func (c Config) Validate() error {
	if c.IterationLimit < 1 {
		return fmt.Errorf("iteration_limit must be >= 1")
	}
	if c.RecursionLimit < 16 {
		return fmt.Errorf("recursion_limit must be >= 16")
	}
	if c.StepLimit < 1 {
		return fmt.Errorf("step_limit must be >= 1")
	}
	if c.MatchLimit < 1 {
		return fmt.Errorf("match_limit must be >= 1")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if c.Memoize && c.MemoLimit < 1 {
		return fmt.Errorf("memo_limit must be >= 1 when memoize is set")
	}
	if c.MaxFactorDegree < 1 {
		return fmt.Errorf("max_factor_degree must be >= 1")
	}
	if err := c.Zeta.Validate(); err != nil {
		return fmt.Errorf("zeta: %w", err)
	}
	return nil
}
