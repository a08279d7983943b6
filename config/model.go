package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/rs/zerolog"
)

const cacheDirName = "borg-restore.pl"

type Config struct {
	// Repository is the borg repository location. Empty leaves it to the
	// BORG_REPO environment variable.
	Repository string `json:"repository,omitempty"`
	// CacheDir overrides the XDG cache base for the index file.
	CacheDir string `json:"cache_dir,omitempty"`
	// CacheSize is the SQLite page cache size, e.g. "100MB".
	CacheSize SizeArgument `json:"cache_size,omitempty"`
	// Strategy selects the ingestion table: "memory" or "direct".
	Strategy string `json:"strategy,omitempty"`
	// Rewrites are applied to the absolute lookup path, first match wins.
	Rewrites []RewriteRule `json:"rewrites,omitempty"`
	// Schedule is the daemon's cron expression for cache updates.
	Schedule string `json:"cron,omitempty"`
}

type RewriteRule struct {
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`
}

func (c *Config) MarshalZerologObject(e *zerolog.Event) {
	if c.Repository != "" {
		e.Str("repository", c.Repository)
	}
	if c.CacheDir != "" {
		e.Str("cache_dir", c.CacheDir)
	}
	if c.CacheSize.Size > 0 {
		e.Int64("cache_size", c.CacheSize.Size)
	}
	if c.Strategy != "" {
		e.Str("strategy", c.Strategy)
	}
	if c.Schedule != "" {
		e.Str("cron", c.Schedule)
	}
	e.Int("rewrites", len(c.Rewrites))
}

// CachePath returns the index file location,
// $cache_base/borg-restore.pl/v2/archives.db. The v2 segment carries the
// schema version.
func (c *Config) CachePath() (string, error) {
	base := c.CacheDir
	if base == "" {
		base = os.Getenv("XDG_CACHE_HOME")
	}
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not determine cache directory: %w", err)
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, cacheDirName, "v2", "archives.db"), nil
}

// CompileRewrites validates the rewrite rules and returns their compiled
// patterns in rule order. Replacements are not included; they stay in
// Rewrites at the same index.
func (c *Config) CompileRewrites() ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, len(c.Rewrites))
	for i, rule := range c.Rewrites {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid rewrite pattern %q: %w", rule.Pattern, err)
		}
		compiled[i] = re
	}
	return compiled, nil
}
