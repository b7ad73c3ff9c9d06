package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/getmockd/stubd/pkg/logging"
)

// Default values for ServerConfiguration.
const (
	DefaultPort              = 8080
	DefaultRootDir           = "."
	DefaultMaxJournalEntries = 1000
	DefaultReadTimeout       = 30
	DefaultWriteTimeout      = 30
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"

	// MappingsDirName and FilesDirName are the subdirectories of the root dir.
	MappingsDirName = "mappings"
	FilesDirName    = "__files"
)

// ServerConfiguration holds the stub server settings.
type ServerConfiguration struct {
	// Port is the HTTP port (0 picks a free port).
	Port int `mapstructure:"port" yaml:"port"`
	// BindAddress is the interface to listen on ("" for all).
	BindAddress string `mapstructure:"bind_address" yaml:"bind_address"`
	// HTTPSPort is the HTTPS port (0 disables HTTPS).
	HTTPSPort int `mapstructure:"https_port" yaml:"https_port"`
	// TLSCertFile and TLSKeyFile select the HTTPS certificate. When both are
	// empty a self-signed certificate is generated.
	TLSCertFile string `mapstructure:"tls_cert_file" yaml:"tls_cert_file"`
	TLSKeyFile  string `mapstructure:"tls_key_file" yaml:"tls_key_file"`

	// RootDir contains the mappings and __files directories.
	RootDir string `mapstructure:"root_dir" yaml:"root_dir"`
	// Mappings are extra mapping file globs (doublestar syntax).
	Mappings []string `mapstructure:"mappings" yaml:"mappings"`
	// Watch reloads mappings when files change.
	Watch bool `mapstructure:"watch" yaml:"watch"`

	// ProxyAll forwards every unmatched request to this base URL.
	ProxyAll string `mapstructure:"proxy_all" yaml:"proxy_all"`
	// PreserveHostHeader forwards the client's Host header when proxying.
	PreserveHostHeader bool `mapstructure:"preserve_host_header" yaml:"preserve_host_header"`
	// ProxyVia routes proxied requests through this upstream proxy.
	ProxyVia string `mapstructure:"proxy_via" yaml:"proxy_via"`

	// Verbose prints every rendered response to the console.
	Verbose bool `mapstructure:"verbose" yaml:"verbose"`

	// DisableRequestJournal turns off the request journal.
	DisableRequestJournal bool `mapstructure:"disable_request_journal" yaml:"disable_request_journal"`
	// MaxJournalEntries bounds the request journal.
	MaxJournalEntries int `mapstructure:"max_journal_entries" yaml:"max_journal_entries"`

	// GlobalFixedDelay in milliseconds applies to responses without their own delay (0 = none).
	GlobalFixedDelay int `mapstructure:"global_fixed_delay" yaml:"global_fixed_delay"`

	// MaxBodySize is the maximum request body size in bytes (0 = default).
	MaxBodySize int64 `mapstructure:"max_body_size" yaml:"max_body_size"`
	// ReadTimeout and WriteTimeout are in seconds.
	ReadTimeout  int `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout" yaml:"write_timeout"`

	Log LogConfig `mapstructure:"log" yaml:"log"`
}

// LogConfig configures operational logging.
type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	File       string `mapstructure:"file" yaml:"file"`
	FileLevel  string `mapstructure:"file_level" yaml:"file_level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// Default returns the configuration used when nothing is set.
func Default() *ServerConfiguration {
	return &ServerConfiguration{
		Port:              DefaultPort,
		RootDir:           DefaultRootDir,
		MaxJournalEntries: DefaultMaxJournalEntries,
		ReadTimeout:       DefaultReadTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// MappingsDir returns the directory mapping files are loaded from.
func (c *ServerConfiguration) MappingsDir() string {
	return filepath.Join(c.RootDir, MappingsDirName)
}

// FilesDir returns the directory response body files are read from.
func (c *ServerConfiguration) FilesDir() string {
	return filepath.Join(c.RootDir, FilesDirName)
}

// HTTPAddr returns the HTTP listen address.
func (c *ServerConfiguration) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.BindAddress, c.Port)
}

// HTTPSAddr returns the HTTPS listen address.
func (c *ServerConfiguration) HTTPSAddr() string {
	return fmt.Sprintf("%s:%d", c.BindAddress, c.HTTPSPort)
}

// HTTPSEnabled reports whether an HTTPS listener is configured.
func (c *ServerConfiguration) HTTPSEnabled() bool {
	return c.HTTPSPort > 0
}

// FixedDelay returns the global delay, or nil when none is set.
func (c *ServerConfiguration) FixedDelay() *int {
	if c.GlobalFixedDelay <= 0 {
		return nil
	}
	d := c.GlobalFixedDelay
	return &d
}

// LoggingConfig converts the log settings for logging.New.
func (c *ServerConfiguration) LoggingConfig() logging.Config {
	cfg := logging.Config{
		Level:  logging.ParseLevel(c.Log.Level),
		Format: logging.ParseFormat(c.Log.Format),
	}
	if c.Log.File != "" {
		cfg.File = &logging.FileConfig{
			Path:       c.Log.File,
			MaxSizeMB:  c.Log.MaxSizeMB,
			MaxBackups: c.Log.MaxBackups,
			MaxAgeDays: c.Log.MaxAgeDays,
			Compress:   c.Log.Compress,
		}
		if c.Log.FileLevel != "" {
			level := logging.ParseLevel(c.Log.FileLevel)
			cfg.File.Level = &level
		}
	}
	return cfg
}

// Validate checks the configuration. Every problem is reported.
func (c *ServerConfiguration) Validate() error {
	var errs []error

	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.HTTPSPort < 0 || c.HTTPSPort > 65535 {
		errs = append(errs, fmt.Errorf("https port %d out of range", c.HTTPSPort))
	}
	if c.HTTPSPort > 0 && c.HTTPSPort == c.Port {
		errs = append(errs, errors.New("http and https ports must differ"))
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		errs = append(errs, errors.New("tls cert file and key file must be set together"))
	}
	if c.RootDir == "" {
		errs = append(errs, errors.New("root dir is required"))
	}
	if c.ProxyAll != "" {
		if err := validateBaseURL(c.ProxyAll); err != nil {
			errs = append(errs, fmt.Errorf("proxy all: %w", err))
		}
	}
	if c.ProxyVia != "" {
		if err := validateBaseURL(c.ProxyVia); err != nil {
			errs = append(errs, fmt.Errorf("proxy via: %w", err))
		}
	}
	if c.MaxJournalEntries < 0 {
		errs = append(errs, errors.New("max journal entries must not be negative"))
	}
	if c.GlobalFixedDelay < 0 {
		errs = append(errs, errors.New("global fixed delay must not be negative"))
	}
	if c.MaxBodySize < 0 {
		errs = append(errs, errors.New("max body size must not be negative"))
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}

	return errors.Join(errs...)
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q in %s", u.Scheme, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %s", raw)
	}
	return nil
}
