package dispatch

import (
	"os"
	"path/filepath"
)

// Files resolves workspace-relative paths for the dispatcher. The indirection
// keeps the dispatcher independent of where documents actually live.
type Files interface {
	// Abs returns the absolute filesystem path for a workspace path.
	Abs(path string) (string, error)
	// Exists reports whether the workspace path names an existing file.
	Exists(path string) bool
}

// DirFiles serves files rooted at a base directory. An empty base resolves
// against the process working directory.
type DirFiles struct {
	Base string
}

func (d *DirFiles) Abs(path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	if d.Base != "" {
		return filepath.Abs(filepath.Join(d.Base, path))
	}
	return filepath.Abs(path)
}

func (d *DirFiles) Exists(path string) bool {
	abs, err := d.Abs(path)
	if err != nil {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && !info.IsDir()
}
