package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/getmockd/stubd/pkg/stub"
)

// mappingFilePattern selects mapping files below the mappings directory.
const mappingFilePattern = "**/*.{json,yaml,yml}"

// MappingLoader loads stub mappings from files.
type MappingLoader struct {
	// Dir is scanned recursively; a missing directory is not an error.
	Dir string

	// Globs are extra file patterns; ** matches across directories.
	Globs []string

	// SkipSchema disables the JSON Schema check.
	SkipSchema bool
}

// LoadResult contains the result of loading mapping files.
type LoadResult struct {
	// Mappings are validated and in file then document order.
	Mappings []*stub.Mapping

	// Files lists the files that loaded without error.
	Files []FileSummary

	// Errors are per-file failures. Mappings from failed files are dropped.
	Errors []LoadError
}

// FileSummary describes one loaded file.
type FileSummary struct {
	Path     string
	Size     int64
	Mappings int
}

// LoadError represents an error loading a specific file.
type LoadError struct {
	Path    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Err joins the per-file errors, or returns nil.
func (r *LoadResult) Err() error {
	errs := make([]error, len(r.Errors))
	for i := range r.Errors {
		errs[i] = &r.Errors[i]
	}
	return errors.Join(errs...)
}

// Files returns the mapping files the loader would read, sorted and unique.
func (l *MappingLoader) Files() ([]string, error) {
	var files []string

	if l.Dir != "" {
		info, err := os.Stat(l.Dir)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to access mappings directory: %w", err)
		case !info.IsDir():
			return nil, fmt.Errorf("mappings path is not a directory: %s", l.Dir)
		default:
			matches, err := doublestar.Glob(os.DirFS(l.Dir), mappingFilePattern, doublestar.WithFilesOnly())
			if err != nil {
				return nil, fmt.Errorf("failed to scan mappings directory: %w", err)
			}
			for _, m := range matches {
				files = append(files, filepath.Join(l.Dir, filepath.FromSlash(m)))
			}
		}
	}

	for _, pattern := range l.Globs {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expanding glob pattern %q: %w", pattern, err)
		}
		files = append(files, matches...)
	}

	slices.Sort(files)
	return slices.Compact(files), nil
}

// Load reads and validates every mapping file. A file with any invalid
// mapping contributes an error and no mappings.
func (l *MappingLoader) Load() (*LoadResult, error) {
	files, err := l.Files()
	if err != nil {
		return nil, err
	}

	result := &LoadResult{}
	for _, path := range files {
		mappings, size, err := l.loadFile(path)
		if err != nil {
			var le *LoadError
			if errors.As(err, &le) {
				result.Errors = append(result.Errors, *le)
			} else {
				result.Errors = append(result.Errors, LoadError{Path: path, Message: "failed to load", Err: err})
			}
			continue
		}
		result.Mappings = append(result.Mappings, mappings...)
		result.Files = append(result.Files, FileSummary{Path: path, Size: size, Mappings: len(mappings)})
	}
	return result, nil
}

func (l *MappingLoader) loadFile(path string) ([]*stub.Mapping, int64, error) {
	format, err := stub.FormatForPath(path)
	if err != nil {
		return nil, 0, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	if len(data) == 0 {
		return nil, 0, &LoadError{Path: path, Message: "file is empty"}
	}

	if !l.SkipSchema {
		if err := ValidateDocument(data, format); err != nil {
			return nil, 0, &LoadError{Path: path, Message: "schema validation failed", Err: err}
		}
	}

	mappings, err := stub.Decode(data, format)
	if err != nil {
		return nil, 0, &LoadError{Path: path, Message: "failed to decode", Err: err}
	}

	var errs []error
	for i, m := range mappings {
		if m == nil {
			errs = append(errs, fmt.Errorf("mapping %d is empty", i))
			continue
		}
		if err := m.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("mapping %d: %w", i, err))
		}
	}
	if len(errs) > 0 {
		return nil, 0, &LoadError{Path: path, Message: "invalid mapping", Err: errors.Join(errs...)}
	}
	return mappings, int64(len(data)), nil
}
