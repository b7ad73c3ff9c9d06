package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variable overrides, e.g. STUBD_PORT.
const EnvPrefix = "STUBD"

// Load reads the configuration. configPath selects an explicit file; when
// empty, stubd.yaml is looked up in the working directory and $HOME/.stubd and
// may be absent. If v is nil a new viper instance is created; pass the
// instance the command-line flags were bound to so they take precedence.
func Load(configPath string, v *viper.Viper) (*ServerConfiguration, error) {
	if v == nil {
		v = viper.New()
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("stubd")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.stubd")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := &ServerConfiguration{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// ConfigFileUsed returns the file v read, or "".
func ConfigFileUsed(v *viper.Viper) string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("port", d.Port)
	v.SetDefault("bind_address", d.BindAddress)
	v.SetDefault("https_port", d.HTTPSPort)
	v.SetDefault("tls_cert_file", "")
	v.SetDefault("tls_key_file", "")
	v.SetDefault("root_dir", d.RootDir)
	v.SetDefault("mappings", []string{})
	v.SetDefault("watch", false)
	v.SetDefault("proxy_all", "")
	v.SetDefault("preserve_host_header", false)
	v.SetDefault("proxy_via", "")
	v.SetDefault("verbose", false)
	v.SetDefault("disable_request_journal", false)
	v.SetDefault("max_journal_entries", d.MaxJournalEntries)
	v.SetDefault("global_fixed_delay", 0)
	v.SetDefault("max_body_size", 0)
	v.SetDefault("read_timeout", d.ReadTimeout)
	v.SetDefault("write_timeout", d.WriteTimeout)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", "")
	v.SetDefault("log.file_level", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", false)
}
