package driver

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the optional waskr.yaml project file SPEC_FULL.md §3 adds as an
// ambient supplement to spec.md §6's CLI surface: a place to check in the
// flags a project always wants (optimization level, target triple, which
// C/R toggles) instead of repeating them on every invocation. CLI flags
// always take precedence over a loaded Config; see Options.Merge.
type Config struct {
	OptimizeLevel int    `yaml:"optimize_level"`
	Target        string `yaml:"target"`
	EnableCR      bool   `yaml:"enable_cr"`
	OptimizeCR    bool   `yaml:"optimize_cr"`
	DisableLoopCR bool   `yaml:"disable_loop_cr"`
	LTO           bool   `yaml:"lto"`
	CFProtection  bool   `yaml:"cf_protection"`
}

// LoadConfig reads and parses a waskr.yaml file at path. A missing file is
// not an error: every Config field has a zero-value default that matches
// the CLI's own defaults, so an all-flags invocation needs no config file
// at all.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
