package config

import (
	"fmt"
	"strconv"
	"time"
)

// Settings is the typed view of the resolved configuration.
type Settings struct {
	// MaxCorrectionRetries bounds the review-correction loop per session.
	MaxCorrectionRetries int

	// RequestTimeout is the per-agent-call timeout.
	RequestTimeout time.Duration

	// ContextPath is the session synopsis file location.
	ContextPath string

	// ClaudeBinary and GeminiBinary name or path the agent CLIs.
	ClaudeBinary string
	GeminiBinary string

	// Complexity length thresholds, in characters.
	ThresholdTrivial  int
	ThresholdStandard int
	ThresholdComplex  int

	// PromptDir optionally overrides the prompt template search path.
	PromptDir string

	// SlackWebhook, when set, enables Slack notifications.
	SlackWebhook string
}

// Default returns the built-in settings.
func Default() Settings {
	s, _ := fromResolved(&Resolved{values: defaults()})
	return s
}

// Load resolves settings for the given project directory, merging defaults,
// global config, local config, and DUET_* environment variables. Unparseable
// values fall back to defaults and are reported as warnings.
func Load(projectDir string) (Settings, []string) {
	r := NewResolver(projectDir)
	resolved := r.Resolve()

	s, warnings := fromResolved(resolved)
	return s, append(r.Warnings, warnings...)
}

// LoadFrom resolves settings from explicit config file paths. Useful for
// testing.
func LoadFrom(globalPath, localPath string) (Settings, []string) {
	r := NewResolverWithPaths(globalPath, localPath)
	resolved := r.Resolve()

	s, warnings := fromResolved(resolved)
	return s, append(r.Warnings, warnings...)
}

func fromResolved(cfg *Resolved) (Settings, []string) {
	var warnings []string

	def := defaults()
	intVal := func(key string) int {
		raw := cfg.Get(key)
		n, err := strconv.Atoi(raw)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: invalid integer %q, using default", key, raw))
			n, _ = strconv.Atoi(def[key])
		}
		return n
	}

	s := Settings{
		MaxCorrectionRetries: intVal(KeyMaxCorrectionRetries),
		ContextPath:          cfg.Get(KeyContextPath),
		ClaudeBinary:         cfg.Get(KeyClaudeBinary),
		GeminiBinary:         cfg.Get(KeyGeminiBinary),
		ThresholdTrivial:     intVal(KeyThresholdTrivial),
		ThresholdStandard:    intVal(KeyThresholdStandard),
		ThresholdComplex:     intVal(KeyThresholdComplex),
		PromptDir:            cfg.Get(KeyPromptDir),
		SlackWebhook:         cfg.Get(KeySlackWebhook),
	}

	raw := cfg.Get(KeyRequestTimeout)
	d, err := time.ParseDuration(raw)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("%s: invalid duration %q, using default", KeyRequestTimeout, raw))
		d, _ = time.ParseDuration(def[KeyRequestTimeout])
	}
	s.RequestTimeout = d

	if s.MaxCorrectionRetries < 0 {
		warnings = append(warnings, fmt.Sprintf("%s: negative value, using 0", KeyMaxCorrectionRetries))
		s.MaxCorrectionRetries = 0
	}

	return s, warnings
}
