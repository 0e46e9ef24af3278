package project

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the parsed ferrite.toml. Zero values mean "not configured";
// the CLI layers its flags on top.
type Config struct {
	Check CheckConfig `toml:"check"`
}

// CheckConfig is the [check] section.
type CheckConfig struct {
	// Signatures is the path to the function signature TOML, relative to
	// the manifest directory unless absolute.
	Signatures string `toml:"signatures"`
	// SafetyDefault applies to functions with no safety annotation:
	// "safe", "unsafe", or "" (leave unannotated functions unchecked).
	SafetyDefault string `toml:"safety_default"`
	// Jobs caps analysis parallelism; 0 uses GOMAXPROCS.
	Jobs int `toml:"jobs"`
	// Format selects diagnostic output: "pretty" (default) or "json".
	Format string `toml:"format"`
	// MaxDiagnostics caps diagnostics per file; 0 uses the built-in cap.
	MaxDiagnostics int `toml:"max_diagnostics"`
	// NoCache disables the on-disk result cache.
	NoCache bool `toml:"no_cache"`
}

// LoadConfig parses a ferrite.toml manifest. Relative paths inside the
// config are resolved against the manifest's directory.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if meta.IsDefined("check", "safety_default") {
		switch strings.TrimSpace(cfg.Check.SafetyDefault) {
		case "", "safe", "unsafe":
		default:
			return nil, fmt.Errorf("%s: invalid [check].safety_default %q (want safe or unsafe)", path, cfg.Check.SafetyDefault)
		}
	}
	if meta.IsDefined("check", "format") {
		switch strings.TrimSpace(cfg.Check.Format) {
		case "", "pretty", "json":
		default:
			return nil, fmt.Errorf("%s: invalid [check].format %q (want pretty or json)", path, cfg.Check.Format)
		}
	}
	if cfg.Check.Signatures != "" && !filepath.IsAbs(cfg.Check.Signatures) {
		cfg.Check.Signatures = filepath.Join(filepath.Dir(path), cfg.Check.Signatures)
	}
	return &cfg, nil
}
