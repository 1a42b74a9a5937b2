package config

import (
	"fmt"
	"strings"

	"github.com/duke-git/lancet/v2/slice"

	"github.com/evpl/xteps-sub001/pkg/hooks"
)

var (
	validListeners  = []string{"log", "stats", "json"}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"json", "console"}
	validLogOutputs = []string{"stdout", "stderr", "file", "both", "none"}
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration values.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// addError adds a validation error.
func (v *Validator) addError(field, message string) {
	v.errors = append(v.errors, ValidationError{Field: field, Message: message})
}

// Validate validates the entire configuration and returns any errors.
func (v *Validator) Validate(cfg *Config) error {
	v.errors = make(ValidationErrors, 0)

	v.validateHooksConfig(&cfg.Hooks)
	v.validateReportConfig(&cfg.Report)
	v.validateLoggingConfig(&cfg.Logging)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

// Validate validates cfg with a fresh Validator.
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

func (v *Validator) validateHooksConfig(cfg *HooksConfig) {
	if _, err := hooks.ParseOrder(cfg.Order); err != nil {
		v.addError("hooks.order", fmt.Sprintf("unknown order %q", cfg.Order))
	}
	if _, err := hooks.ParseOrder(cfg.ThreadOrder); err != nil {
		v.addError("hooks.thread_order", fmt.Sprintf("unknown order %q", cfg.ThreadOrder))
	}
}

func (v *Validator) validateReportConfig(cfg *ReportConfig) {
	for _, name := range cfg.Listeners {
		if !slice.Contain(validListeners, name) {
			v.addError("report.listeners", fmt.Sprintf("unknown listener %q, expected one of %v", name, validListeners))
		}
	}
	if slice.Contain(cfg.Listeners, "json") && cfg.JSONPath == "" {
		v.addError("report.json_path", "json_path is required when the json listener is enabled")
	}
	if cfg.StatsMaxDuration < 0 {
		v.addError("report.stats_max_duration", "must not be negative")
	}
}

func (v *Validator) validateLoggingConfig(cfg *LoggingConfig) {
	if !slice.Contain(validLogLevels, strings.ToLower(cfg.Level)) {
		v.addError("logging.level", fmt.Sprintf("invalid log level, must be one of %v", validLogLevels))
	}
	if !slice.Contain(validLogFormats, strings.ToLower(cfg.Format)) {
		v.addError("logging.format", fmt.Sprintf("invalid log format, must be one of %v", validLogFormats))
	}
	output := strings.ToLower(cfg.Output)
	if !slice.Contain(validLogOutputs, output) {
		v.addError("logging.output", fmt.Sprintf("invalid log output, must be one of %v", validLogOutputs))
	}
	if (output == "file" || output == "both") && cfg.FilePath == "" {
		v.addError("logging.file_path", "file_path is required for file output")
	}
	if cfg.MaxSize < 0 {
		v.addError("logging.max_size", "must not be negative")
	}
}
