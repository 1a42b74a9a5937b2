package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration of xteps.
type Config struct {
	// Enabled turns step reporting on. Disabled steps still run and still clean up.
	Enabled bool          `yaml:"enabled" env:"XTEPS_ENABLED"`
	Hooks   HooksConfig   `yaml:"hooks"`
	Report  ReportConfig  `yaml:"report"`
	Logging LoggingConfig `yaml:"logging"`
}

// HooksConfig holds the default hook order policies.
type HooksConfig struct {
	Order       string `yaml:"order" env:"XTEPS_HOOKS_ORDER"`
	ThreadOrder string `yaml:"thread_order" env:"XTEPS_HOOKS_THREAD_ORDER"`
}

// ReportConfig holds step listener configuration.
type ReportConfig struct {
	Listeners        []string      `yaml:"listeners" env:"XTEPS_REPORT_LISTENERS"`
	JSONPath         string        `yaml:"json_path" env:"XTEPS_REPORT_JSON_PATH"`
	StatsMaxDuration time.Duration `yaml:"stats_max_duration" env:"XTEPS_REPORT_STATS_MAX_DURATION"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `yaml:"level" env:"XTEPS_LOG_LEVEL"`
	Format     string `yaml:"format" env:"XTEPS_LOG_FORMAT"`
	Output     string `yaml:"output" env:"XTEPS_LOG_OUTPUT"`
	FilePath   string `yaml:"file_path" env:"XTEPS_LOG_FILE_PATH"`
	MaxSize    int    `yaml:"max_size" env:"XTEPS_LOG_MAX_SIZE"` // MB
	MaxBackups int    `yaml:"max_backups" env:"XTEPS_LOG_MAX_BACKUPS"`
	MaxAge     int    `yaml:"max_age" env:"XTEPS_LOG_MAX_AGE"` // days
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Enabled: true,
		Hooks: HooksConfig{
			Order:       "insertion",
			ThreadOrder: "insertion",
		},
		Report: ReportConfig{
			Listeners:        []string{"log"},
			StatsMaxDuration: time.Hour,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			Output:     "stderr",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
		},
	}
}

// Loader handles configuration loading from multiple sources.
type Loader struct {
	configPath string
	envPrefix  string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		envPrefix: "XTEPS_",
	}
}

// WithConfigPath sets the path to the YAML configuration file.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix replaces the XTEPS_ prefix of environment variable names.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load loads configuration from all sources with proper precedence:
// defaults < YAML file < environment variables
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File doesn't exist, use defaults
		}
		return fmt.Errorf("read %s: %w", l.configPath, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", l.configPath, err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	return l.applyEnvToStruct(reflect.ValueOf(cfg).Elem())
}

// applyEnvToStruct recursively applies environment variables to struct fields.
func (l *Loader) applyEnvToStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if field.Kind() == reflect.Struct {
			if err := l.applyEnvToStruct(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}
		envName := l.envPrefix + strings.TrimPrefix(envTag, "XTEPS_")

		envValue, ok := os.LookupEnv(envName)
		if !ok || envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("set %s from %s: %w", fieldType.Name, envName, err)
		}
	}

	return nil
}

// setFieldValue sets a reflect.Value from a string value.
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return fmt.Errorf("field cannot be set")
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		// comma-separated string slices
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Serialize serializes the configuration to YAML bytes.
func (c *Config) Serialize() ([]byte, error) {
	return yaml.Marshal(c)
}

// ParseConfig parses a YAML configuration from bytes on top of the defaults.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file path.
func LoadFromFile(path string) (*Config, error) {
	return NewLoader().WithConfigPath(path).Load()
}
