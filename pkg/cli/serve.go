package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/getmockd/stubd/pkg/cli/internal/output"
	"github.com/getmockd/stubd/pkg/config"
	"github.com/getmockd/stubd/pkg/engine"
	"github.com/getmockd/stubd/pkg/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the stub server (foreground)",
	Example: `  # Serve mappings from ./mappings on port 8080
  stubd serve

  # Serve another root directory on a custom port, reloading on change
  stubd serve --root-dir ./stubs --port 9000 --watch

  # Answer unmatched requests from a real backend
  stubd serve --proxy-all https://api.example.com

  # HTTPS with a generated self-signed certificate
  stubd serve --https-port 8443`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// serveFlagKeys maps each serve flag to its configuration key.
var serveFlagKeys = map[string]string{
	"port":                 "port",
	"bind-address":         "bind_address",
	"https-port":           "https_port",
	"tls-cert":             "tls_cert_file",
	"tls-key":              "tls_key_file",
	"root-dir":             "root_dir",
	"mappings":             "mappings",
	"watch":                "watch",
	"proxy-all":            "proxy_all",
	"preserve-host-header": "preserve_host_header",
	"proxy-via":            "proxy_via",
	"verbose":              "verbose",
	"no-request-journal":   "disable_request_journal",
	"max-journal-entries":  "max_journal_entries",
	"global-fixed-delay":   "global_fixed_delay",
	"max-body-size":        "max_body_size",
	"read-timeout":         "read_timeout",
	"write-timeout":        "write_timeout",
	"log-level":            "log.level",
	"log-format":           "log.format",
	"log-file":             "log.file",
	"log-file-level":       "log.file_level",
}

func addServeFlags(cmd *cobra.Command) {
	f := cmd.Flags()

	f.IntP("port", "p", config.DefaultPort, "HTTP port (0 picks a free port)")
	f.String("bind-address", "", "Interface to listen on (default all)")
	f.Int("https-port", 0, "HTTPS port (0 = disabled)")
	f.String("tls-cert", "", "Path to TLS certificate file (self-signed when unset)")
	f.String("tls-key", "", "Path to TLS private key file")

	f.String("root-dir", config.DefaultRootDir, "Directory holding mappings/ and __files/")
	f.StringSlice("mappings", nil, "Extra mapping file globs (repeatable, ** supported)")
	f.Bool("watch", false, "Reload mappings when files change")

	f.String("proxy-all", "", "Proxy unmatched requests to this base URL")
	f.Bool("preserve-host-header", false, "Forward the client's Host header when proxying")
	f.String("proxy-via", "", "Send proxied requests through this HTTP proxy")

	f.BoolP("verbose", "v", false, "Print every response to the console")
	f.Bool("no-request-journal", false, "Disable the request journal")
	f.Int("max-journal-entries", config.DefaultMaxJournalEntries, "Maximum request journal entries")
	f.Int("global-fixed-delay", 0, "Delay in milliseconds for responses without their own delay")
	f.Int64("max-body-size", 0, "Maximum request body size in bytes (0 = default)")
	f.Int("read-timeout", config.DefaultReadTimeout, "Read timeout in seconds")
	f.Int("write-timeout", config.DefaultWriteTimeout, "Write timeout in seconds")

	f.String("log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	f.String("log-format", config.DefaultLogFormat, "Log format (text, json)")
	f.String("log-file", "", "Also write JSON logs to this rotating file")
	f.String("log-file-level", "", "Log level for the log file (defaults to --log-level)")
}

func init() {
	addServeFlags(serveCmd)
	rootCmd.AddCommand(serveCmd)
}

// bindServeFlags makes the serve flags the highest priority source in v.
func bindServeFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range serveFlagKeys {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("binding flag --%s: %w", name, err)
		}
	}
	return nil
}

// loadServeConfig resolves flags, environment and config file into a
// validated configuration.
func loadServeConfig(fs *pflag.FlagSet) (*config.ServerConfiguration, *viper.Viper, error) {
	v := viper.New()
	if err := bindServeFlags(v, fs); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(configFile, v)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, v, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, v, err := loadServeConfig(cmd.Flags())
	if err != nil {
		return err
	}

	log, closer := logging.Open(cfg.LoggingConfig())
	defer func() { _ = closer.Close() }()

	opts := []engine.ServerOption{engine.WithLogger(log)}
	if cfg.Verbose {
		opts = append(opts, engine.WithRendererOptions(engine.WithNotifier(logging.NewConsoleNotifier(cmd.OutOrStdout()))))
	}
	srv, err := engine.NewServer(cfg, opts...)
	if err != nil {
		return err
	}

	result, err := srv.LoadMappings()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		select {
		case <-srv.Ready():
			printSummary(cmd.OutOrStdout(), summary{
				cfg:        cfg,
				httpAddr:   srv.Addr(),
				httpsAddr:  srv.HTTPSAddr(),
				configFile: config.ConfigFileUsed(v),
				result:     result,
				mappings:   srv.Stubs().Count(),
			})
		case <-ctx.Done():
		}
	}()

	return srv.Run(ctx)
}

type summary struct {
	cfg        *config.ServerConfiguration
	httpAddr   string
	httpsAddr  string
	configFile string
	result     *config.LoadResult
	mappings   int
}

func printSummary(w io.Writer, s summary) {
	var size int64
	for _, f := range s.result.Files {
		size += f.Size
	}

	fmt.Fprintln(w, "stubd is running")
	tw := output.Table(w)
	fmt.Fprintf(tw, "  HTTP:\thttp://%s\n", s.httpAddr)
	if s.httpsAddr != "" {
		fmt.Fprintf(tw, "  HTTPS:\thttps://%s\n", s.httpsAddr)
	}
	fmt.Fprintf(tw, "  Admin:\thttp://%s%s\n", s.httpAddr, engine.AdminPrefix)
	fmt.Fprintf(tw, "  Root dir:\t%s\n", s.cfg.RootDir)
	fmt.Fprintf(tw, "  Mappings:\t%d from %d files (%s)\n", s.mappings, len(s.result.Files), humanize.Bytes(uint64(size)))
	if s.cfg.ProxyAll != "" {
		fmt.Fprintf(tw, "  Proxy all:\t%s\n", s.cfg.ProxyAll)
	}
	if s.configFile != "" {
		fmt.Fprintf(tw, "  Config:\t%s\n", s.configFile)
	}
	_ = tw.Flush()

	for _, le := range s.result.Errors {
		output.Warn(w, "%s", le.Error())
	}
}
