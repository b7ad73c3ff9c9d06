// Package files serves response body files from a directory.
package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/getmockd/stubd/pkg/util"
)

// ErrUnsafePath is returned for names that would escape the root directory.
var ErrUnsafePath = errors.New("body file path escapes the files directory")

// Source reads body files below a root directory.
type Source struct {
	root string
}

// NewSource returns a Source rooted at dir.
func NewSource(dir string) *Source {
	return &Source{root: dir}
}

// Root returns the directory files are read from.
func (s *Source) Root() string {
	return s.root
}

// ReadBinaryFile reads name relative to the root. Absolute names and names
// containing ".." that leave the root are rejected.
func (s *Source) ReadBinaryFile(name string) ([]byte, error) {
	clean, ok := util.SafeFilePath(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	data, err := os.ReadFile(filepath.Join(s.root, clean))
	if err != nil {
		return nil, fmt.Errorf("reading body file: %w", err)
	}
	return data, nil
}
