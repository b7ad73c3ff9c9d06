package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Persistent flags available to all subcommands
	configFile string
	jsonOutput bool

	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// rootCmd runs the server when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "stubd",
	Short: "stubd is an HTTP stub server",
	Long: `stubd serves canned HTTP responses from stub mappings: request predicates
paired with response templates. Mappings are loaded from <root-dir>/mappings
and can be added at runtime through the admin API under /__admin.

Configuration can be provided via flags, environment variables (STUBD_*), or a
configuration file. By default stubd looks for stubd.yaml in the working
directory and in ~/.stubd.`,
	Args:          cobra.NoArgs,
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true, // We handle errors in Execute()
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to the stubd.yaml configuration file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output command results in JSON format")

	addServeFlags(rootCmd)
}
