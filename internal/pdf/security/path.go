// Package security confines every file the server reads or writes to the
// configured forms directory.
package security

import (
	"os"
	"path/filepath"
	"strings"

	pdferrors "github.com/joshasn/medical-form-app-sub001/internal/pdf/errors"
)

// PathValidator resolves caller-supplied paths against a root directory
type PathValidator struct {
	root string
}

// NewPathValidator creates a validator rooted at dir
func NewPathValidator(dir string) (*PathValidator, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, restricted("configured directory cannot be empty", "")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeSecurityRestriction, "cannot resolve configured directory", err)
	}
	return &PathValidator{root: filepath.Clean(abs)}, nil
}

func restricted(msg, path string) *pdferrors.PDFError {
	e := pdferrors.NewPDFError(pdferrors.ErrorTypeSecurityRestriction, msg)
	if path != "" {
		e.Context = path
	}
	return e
}

// Root returns the absolute configured directory
func (v *PathValidator) Root() string {
	return v.root
}

// ResolveInput returns the absolute path of an existing regular file inside the root.
// Relative paths are taken relative to the root.
func (v *PathValidator) ResolveInput(path string) (string, error) {
	abs, err := v.resolve(path)
	if err != nil {
		return "", err
	}

	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeDocumentLoad, "file not found", path)
		}
		return "", pdferrors.WrapError(pdferrors.ErrorTypeDocumentLoad, "cannot access file", err)
	}
	if !v.within(real) {
		return "", restricted("path resolves outside configured directory", path)
	}

	info, err := os.Stat(real)
	if err != nil {
		return "", pdferrors.WrapError(pdferrors.ErrorTypeDocumentLoad, "cannot access file", err)
	}
	if !info.Mode().IsRegular() {
		return "", pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeDocumentLoad, "not a regular file", path)
	}
	return abs, nil
}

// ResolveOutput returns the absolute path for a file that is about to be written.
// The file may not exist yet but its parent directory must, and must lie inside the root.
func (v *PathValidator) ResolveOutput(path string) (string, error) {
	abs, err := v.resolve(path)
	if err != nil {
		return "", err
	}
	if abs == v.root {
		return "", restricted("output path names the configured directory", path)
	}

	parent, err := filepath.EvalSymlinks(filepath.Dir(abs))
	if err != nil {
		return "", pdferrors.WrapError(pdferrors.ErrorTypeSecurityRestriction, "output directory is not accessible", err)
	}
	if !v.within(parent) {
		return "", restricted("path resolves outside configured directory", path)
	}

	if info, err := os.Lstat(abs); err == nil {
		if info.Mode()&os.ModeSymlink != 0 {
			return "", restricted("refusing to write through a symlink", path)
		}
		if info.IsDir() {
			return "", restricted("output path is a directory", path)
		}
	}
	return abs, nil
}

// IsPathWithinDirectory reports whether path lexically lies inside the root
func (v *PathValidator) IsPathWithinDirectory(path string) bool {
	abs, err := v.resolve(path)
	return err == nil && v.within(abs)
}

func (v *PathValidator) resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if strings.TrimSpace(path) == "" {
		return "", restricted("path cannot be empty", "")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(v.root, path)
	}
	abs := filepath.Clean(path)
	if !v.within(abs) {
		return "", restricted("path is outside configured directory", path)
	}
	return abs, nil
}

// within compares against both the lexical root and its symlink-resolved form
func (v *PathValidator) within(path string) bool {
	roots := []string{v.root}
	if real, err := filepath.EvalSymlinks(v.root); err == nil && real != v.root {
		roots = append(roots, real)
	}
	for _, root := range roots {
		if path == root {
			return true
		}
		prefix := root
		if !strings.HasSuffix(prefix, string(filepath.Separator)) {
			prefix += string(filepath.Separator)
		}
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
