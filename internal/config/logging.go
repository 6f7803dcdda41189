package config

// LoggingConfig controls debug logging to .clauseguard/logs/.
type LoggingConfig struct {
	// DebugMode is the master toggle. When false nothing is written.
	DebugMode bool `json:"debug_mode" yaml:"debug_mode"`

	// Level: "debug", "info", "warn", "error".
	Level string `json:"level" yaml:"level"`

	// Categories toggles individual log categories. Absent categories are
	// enabled.
	Categories map[string]bool `json:"categories,omitempty" yaml:"categories,omitempty"`

	// JSONFormat switches log lines to structured JSON.
	JSONFormat bool `json:"json_format" yaml:"json_format"`
}

// DefaultLoggingConfig returns logging defaults (disabled).
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		DebugMode: false,
		Level:     "info",
	}
}

// IsCategoryEnabled reports whether a category should produce output.
func (l LoggingConfig) IsCategoryEnabled(category string) bool {
	if !l.DebugMode {
		return false
	}
	if l.Categories == nil {
		return true
	}
	enabled, ok := l.Categories[category]
	if !ok {
		return true
	}
	return enabled
}
