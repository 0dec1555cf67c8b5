// =============================================================================
// Journal Batch Upload - Configuration Module
// =============================================================================
//
// Loads the application configuration.
//
// SOURCES (later wins):
//   1. Built-in defaults
//   2. YAML file (config.yaml by default)
//   3. Environment variables prefixed BATCHUPLOAD_, with the YAML path in
//      upper case and dots replaced by underscores:
//        service.base_url  -> BATCHUPLOAD_SERVICE_BASE_URL
//        log.level         -> BATCHUPLOAD_LOG_LEVEL
//
// A missing file is only accepted for the default path, so a typo in an
// explicit --config still fails loudly.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when no --config flag is given.
const DefaultPath = "config.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BATCHUPLOAD"

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the application configuration.
type MainConfig struct {
	Service ServiceConfig `yaml:"service"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Output  OutputConfig  `yaml:"output"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServiceConfig locates the receiving OData service.
type ServiceConfig struct {
	// BaseURL is the service root, e.g.
	// https://host/sap/opu/odata/sap/ZJOURNAL_UPLOAD_SRV
	// Required for real submissions, not for dry runs.
	BaseURL string `yaml:"base_url"`

	// EntitySet receives the create call.
	// Default: "BatchCreateSet"
	EntitySet string `yaml:"entity_set"`

	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	SAPClient string `yaml:"sap_client"`

	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`
}

// IngestConfig controls reading of input files.
type IngestConfig struct {
	// InputDir is scanned by submit when no --file is given.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// DefaultNote is attached to every batch without --note.
	// Default: "Imported from Excel"
	DefaultNote string `yaml:"default_note"`

	// Default: ","
	CSVDelimiter string `yaml:"csv_delimiter"`

	// "UTF-8", "ISO-8859-1" or "Windows-1252".
	// Default: "UTF-8"
	CSVEncoding string `yaml:"csv_encoding"`
}

// OutputConfig controls dry-run output, error logs and archiving.
type OutputConfig struct {
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir receives input files after a successful submission.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// FileNameFormat names dry-run and error-log files.
	// Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {name}      - Input file name without extension
	// Default: "{timestamp}_{uuid}"
	FileNameFormat string `yaml:"file_name_format"`

	// Default: true
	ArchiveOnSuccess *bool `yaml:"archive_on_success"`
}

// LogConfig selects the log format and level.
type LogConfig struct {
	// "trace", "debug", "info", "warn", "error". Default: "info"
	Level string `yaml:"level"`

	// "development" writes readable console lines, anything else JSON.
	// Default: "production"
	Env string `yaml:"env"`
}

// MetricsConfig enables pushing run metrics.
type MetricsConfig struct {
	// PushgatewayURL disables pushing when empty.
	PushgatewayURL string `yaml:"pushgateway_url"`

	// Default: "batchupload"
	Job string `yaml:"job"`
}

// ArchiveEnabled reports whether inputs are archived after submission.
func (o OutputConfig) ArchiveEnabled() bool {
	return o.ArchiveOnSuccess == nil || *o.ArchiveOnSuccess
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Load reads the configuration at path and applies defaults and
// environment overrides.
//
// RETURNS:
//   - The validated configuration.
//   - An error if the file cannot be read or parsed, or a value is invalid.
func Load(path string) (*MainConfig, error) {
	if path == "" {
		path = DefaultPath
	}

	var cfg MainConfig
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && path == DefaultPath:
		// Defaults and environment only.
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyDefaults(&cfg)
	if err := applyEnv(&cfg, envSource()); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *MainConfig {
	var cfg MainConfig
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *MainConfig) {
	setDefault(&cfg.Service.EntitySet, "BatchCreateSet")
	if cfg.Service.Timeout <= 0 {
		cfg.Service.Timeout = 30 * time.Second
	}

	setDefault(&cfg.Ingest.InputDir, "./input")
	setDefault(&cfg.Ingest.DefaultNote, "Imported from Excel")
	setDefault(&cfg.Ingest.CSVDelimiter, ",")
	setDefault(&cfg.Ingest.CSVEncoding, "UTF-8")

	setDefault(&cfg.Output.OutputDir, "./output")
	setDefault(&cfg.Output.InputArchiveDir, "./input_archive")
	setDefault(&cfg.Output.FileNameFormat, "{timestamp}_{uuid}")
	if cfg.Output.ArchiveOnSuccess == nil {
		on := true
		cfg.Output.ArchiveOnSuccess = &on
	}

	setDefault(&cfg.Log.Level, "info")
	setDefault(&cfg.Log.Env, "production")

	setDefault(&cfg.Metrics.Job, "batchupload")
}

// Validate checks values that defaults cannot repair.
func (c *MainConfig) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q is not one of trace, debug, info, warn, error", c.Log.Level)
	}
	if !strings.Contains(c.Output.FileNameFormat, "{uuid}") && !strings.Contains(c.Output.FileNameFormat, "{timestamp}") {
		return fmt.Errorf("output.file_name_format %q needs {uuid} or {timestamp}", c.Output.FileNameFormat)
	}
	if c.Service.Timeout <= 0 {
		return fmt.Errorf("service.timeout must be positive")
	}
	return nil
}

// RequireService reports an error when a real submission is impossible.
func (c *MainConfig) RequireService() error {
	if strings.TrimSpace(c.Service.BaseURL) == "" {
		return fmt.Errorf("service.base_url is not set (config file or %s_SERVICE_BASE_URL)", EnvPrefix)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// envGetter is the part of viper used for overrides.
type envGetter interface {
	GetString(key string) string
}

func envSource() envGetter {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func applyEnv(cfg *MainConfig, v envGetter) error {
	overrideString(v, "service.base_url", &cfg.Service.BaseURL)
	overrideString(v, "service.entity_set", &cfg.Service.EntitySet)
	overrideString(v, "service.username", &cfg.Service.Username)
	overrideString(v, "service.password", &cfg.Service.Password)
	overrideString(v, "service.sap_client", &cfg.Service.SAPClient)
	if s := v.GetString("service.timeout"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("%s_SERVICE_TIMEOUT: %w", EnvPrefix, err)
		}
		cfg.Service.Timeout = d
	}

	overrideString(v, "ingest.input_dir", &cfg.Ingest.InputDir)
	overrideString(v, "ingest.default_note", &cfg.Ingest.DefaultNote)
	overrideString(v, "ingest.csv_delimiter", &cfg.Ingest.CSVDelimiter)
	overrideString(v, "ingest.csv_encoding", &cfg.Ingest.CSVEncoding)

	overrideString(v, "output.output_dir", &cfg.Output.OutputDir)
	overrideString(v, "output.input_archive_dir", &cfg.Output.InputArchiveDir)
	overrideString(v, "output.file_name_format", &cfg.Output.FileNameFormat)
	if s := v.GetString("output.archive_on_success"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("%s_OUTPUT_ARCHIVE_ON_SUCCESS: %w", EnvPrefix, err)
		}
		cfg.Output.ArchiveOnSuccess = &b
	}

	overrideString(v, "log.level", &cfg.Log.Level)
	overrideString(v, "log.env", &cfg.Log.Env)

	overrideString(v, "metrics.pushgateway_url", &cfg.Metrics.PushgatewayURL)
	overrideString(v, "metrics.job", &cfg.Metrics.Job)
	return nil
}

func overrideString(v envGetter, key string, dst *string) {
	if s := v.GetString(key); s != "" {
		*dst = s
	}
}

func setDefault(dst *string, value string) {
	if strings.TrimSpace(*dst) == "" {
		*dst = value
	}
}
