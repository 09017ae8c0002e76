package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Configuration keys.
const (
	KeyMaxCorrectionRetries = "max_correction_retries"
	KeyRequestTimeout       = "request_timeout"
	KeyContextPath          = "context_path"
	KeyClaudeBinary         = "claude_binary"
	KeyGeminiBinary         = "gemini_binary"
	KeyThresholdTrivial     = "threshold_trivial"
	KeyThresholdStandard    = "threshold_standard"
	KeyThresholdComplex     = "threshold_complex"
	KeyPromptDir            = "prompt_dir"
	KeySlackWebhook         = "slack_webhook"
)

const (
	envPrefix       = "DUET_"
	globalConfigDir = "duet"
	localConfigName = ".duet.yaml"
)

// defaults provides the built-in values for all configuration keys.
func defaults() map[string]string {
	return map[string]string{
		KeyMaxCorrectionRetries: "2",
		KeyRequestTimeout:       "5m",
		KeyContextPath:          ".duet/context.md",
		KeyClaudeBinary:         "claude",
		KeyGeminiBinary:         "gemini",
		KeyThresholdTrivial:     "80",
		KeyThresholdStandard:    "400",
		KeyThresholdComplex:     "1500",
		KeyPromptDir:            "",
		KeySlackWebhook:         "",
	}
}

// Resolver handles hierarchical configuration resolution.
// Priority (highest to lowest): env > local > global > defaults.
type Resolver struct {
	globalPath string
	localPath  string

	// Warnings collects non-fatal issues during resolution.
	Warnings []string
}

// NewResolver creates a resolver rooted at the given project directory.
// The local config is .duet.yaml in the nearest ancestor containing .git,
// or in projectDir itself when no repository root is found.
func NewResolver(projectDir string) *Resolver {
	r := &Resolver{}

	root := findProjectRoot(projectDir)
	if root == "" {
		root = projectDir
	}
	r.localPath = filepath.Join(root, localConfigName)

	if home, err := os.UserHomeDir(); err == nil {
		r.globalPath = filepath.Join(home, ".config", globalConfigDir, "config.yaml")
	}

	return r
}

// NewResolverWithPaths creates a resolver with explicit global and local
// paths. Useful for testing.
func NewResolverWithPaths(globalPath, localPath string) *Resolver {
	return &Resolver{globalPath: globalPath, localPath: localPath}
}

// Resolved holds the final merged configuration.
type Resolved struct {
	values  map[string]string
	sources map[string]Source
}

// Get returns the value for a key, or empty string if not set.
func (c *Resolved) Get(key string) string {
	return c.values[key]
}

// Source returns the source of a key's value.
func (c *Resolved) Source(key string) Source {
	return c.sources[key]
}

// All returns a copy of all key-value pairs.
func (c *Resolved) All() map[string]string {
	result := make(map[string]string, len(c.values))
	for k, v := range c.values {
		result[k] = v
	}
	return result
}

// Resolve builds the final config by merging all sources.
func (r *Resolver) Resolve() *Resolved {
	cfg := &Resolved{
		values:  make(map[string]string),
		sources: make(map[string]Source),
	}

	for key, value := range defaults() {
		cfg.values[key] = value
		cfg.sources[key] = SourceDefault
	}

	r.applyFile(cfg, r.globalPath, SourceGlobal)
	r.applyFile(cfg, r.localPath, SourceLocal)
	r.applyEnv(cfg)

	return cfg
}

func (r *Resolver) applyFile(cfg *Resolved, path string, source Source) {
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return // File doesn't exist - not an error
	}

	var parsed map[string]interface{}
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		r.warn(fmt.Sprintf("could not parse %s: %v", path, err))
		return
	}

	for key, value := range parsed {
		if _, known := cfg.values[key]; !known {
			r.warn(fmt.Sprintf("%s: unknown key %q", path, key))
			continue
		}
		if strVal := toString(value); strVal != "" {
			cfg.values[key] = strVal
			cfg.sources[key] = source
		}
	}
}

func (r *Resolver) applyEnv(cfg *Resolved) {
	for key := range cfg.values {
		envKey := envPrefix + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
		if value := os.Getenv(envKey); value != "" {
			cfg.values[key] = value
			cfg.sources[key] = SourceEnv
		}
	}
}

// warn records a non-fatal resolution issue.
func (r *Resolver) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// GlobalPath returns the path to the global config file.
func (r *Resolver) GlobalPath() string {
	return r.globalPath
}

// LocalPath returns the path to the local config file.
func (r *Resolver) LocalPath() string {
	return r.localPath
}

func toString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case int, int64, float64:
		return fmt.Sprintf("%v", val)
	default:
		return ""
	}
}

// findProjectRoot finds the project root by looking for a .git directory.
func findProjectRoot(startDir string) string {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return ""
	}

	for {
		gitDir := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break // Reached root
		}
		dir = parent
	}

	return ""
}
