package cli

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/getmockd/stubd/pkg/cli/internal/output"
	"github.com/getmockd/stubd/pkg/config"
)

// ErrInvalidMappings is returned by validate when any file fails.
var ErrInvalidMappings = errors.New("mapping validation failed")

var validateFlagVals validateFlags

type validateFlags struct {
	rootDir    string
	skipSchema bool
}

var validateCmd = &cobra.Command{
	Use:   "validate [glob...]",
	Short: "Validate mapping files without starting the server",
	Long: `Validate loads every mapping file under <root-dir>/mappings, plus any globs
given as arguments, and reports schema and mapping errors per file.`,
	Example: `  # Validate ./mappings
  stubd validate

  # Validate extra files as well
  stubd validate 'contracts/**/*.yaml'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd.OutOrStdout(), validateFlagVals, args, jsonOutput)
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateFlagVals.rootDir, "root-dir", config.DefaultRootDir, "Directory holding mappings/")
	validateCmd.Flags().BoolVar(&validateFlagVals.skipSchema, "skip-schema", false, "Skip JSON schema validation")
	rootCmd.AddCommand(validateCmd)
}

// ValidateOutput is the JSON form of a validate run.
type ValidateOutput struct {
	Valid    bool                 `json:"valid"`
	Mappings int                  `json:"mappings"`
	Files    []ValidateFileOutput `json:"files"`
	Errors   []ValidateError      `json:"errors,omitempty"`
}

// ValidateFileOutput describes one valid file.
type ValidateFileOutput struct {
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Mappings int    `json:"mappings"`
}

// ValidateError describes one invalid file.
type ValidateError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

func runValidate(w io.Writer, f validateFlags, globs []string, asJSON bool) error {
	loader := &config.MappingLoader{
		Dir:        filepath.Join(f.rootDir, config.MappingsDirName),
		Globs:      globs,
		SkipSchema: f.skipSchema,
	}
	result, err := loader.Load()
	if err != nil {
		return err
	}

	out := ValidateOutput{
		Valid:    len(result.Errors) == 0,
		Mappings: len(result.Mappings),
		Files:    make([]ValidateFileOutput, 0, len(result.Files)),
	}
	for _, fs := range result.Files {
		out.Files = append(out.Files, ValidateFileOutput{Path: fs.Path, Size: fs.Size, Mappings: fs.Mappings})
	}
	for _, le := range result.Errors {
		out.Errors = append(out.Errors, ValidateError{Path: le.Path, Error: le.Error()})
	}

	if asJSON {
		if err := output.JSON(w, out); err != nil {
			return err
		}
	} else {
		printValidation(w, out)
	}

	if !out.Valid {
		return fmt.Errorf("%w: %d of %d files invalid", ErrInvalidMappings, len(out.Errors), len(out.Errors)+len(out.Files))
	}
	return nil
}

func printValidation(w io.Writer, out ValidateOutput) {
	if len(out.Files) == 0 && len(out.Errors) == 0 {
		fmt.Fprintln(w, "No mapping files found")
		return
	}

	tw := output.Table(w)
	fmt.Fprintln(tw, "FILE\tMAPPINGS\tSIZE\tSTATUS")
	for _, f := range out.Files {
		fmt.Fprintf(tw, "%s\t%d\t%s\tok\n", f.Path, f.Mappings, humanize.Bytes(uint64(f.Size)))
	}
	for _, e := range out.Errors {
		fmt.Fprintf(tw, "%s\t-\t-\tinvalid\n", e.Path)
	}
	_ = tw.Flush()

	for _, e := range out.Errors {
		fmt.Fprintf(w, "\n%s\n", e.Error)
	}
	fmt.Fprintf(w, "\n%d mappings in %d valid files, %d invalid\n", out.Mappings, len(out.Files), len(out.Errors))
}
