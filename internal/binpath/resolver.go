package binpath

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrNotFound reports that no usable executable was found for a name.
var ErrNotFound = errors.New("binary not found")

// Resolver locates executables for logical names. An explicit override path
// is trusted as-is; verification of overrides happens at spawn time.
type Resolver struct {
	logger    *slog.Logger
	overrides map[string]string
	goos      string
	dirs      func() []string
}

func NewResolver(logger *slog.Logger) *Resolver {
	r := &Resolver{
		logger:    logger,
		overrides: map[string]string{},
		goos:      runtime.GOOS,
	}
	r.dirs = r.searchDirs
	return r
}

// SetOverride registers a manual path for a logical name. Empty values are
// ignored so unset settings fields can be forwarded directly.
func (r *Resolver) SetOverride(name, path string) {
	path = strings.TrimSpace(path)
	if path == "" {
		return
	}
	r.overrides[name] = path
}

// Resolve returns a usable executable path for name, or ErrNotFound. A
// candidate that exists but is not executable stops the search: resolving to
// a non-runnable file would only defer the failure to spawn time.
func (r *Resolver) Resolve(name string) (string, error) {
	if override, ok := r.overrides[name]; ok {
		r.log(name, override, "override")
		return override, nil
	}
	path, err := resolveIn(r.dirs(), name, r.goos)
	if err != nil {
		r.log(name, "", "not found")
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	r.log(name, path, "search")
	return path, nil
}

func (r *Resolver) log(name, path, how string) {
	if r.logger == nil {
		return
	}
	if path == "" {
		r.logger.Warn("binary resolution failed", "name", name)
		return
	}
	r.logger.Debug("binary resolved", "name", name, "path", path, "via", how)
}

func resolveIn(dirs []string, name, goos string) (string, error) {
	fileName := name
	if goos == "windows" && !strings.HasSuffix(strings.ToLower(fileName), ".exe") {
		fileName += ".exe"
	}
	for _, dir := range dirs {
		candidate := filepath.Join(dir, fileName)
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		if !isExecutable(info, goos) {
			// Fail closed rather than picking a later, possibly unrelated match.
			return "", ErrNotFound
		}
		return candidate, nil
	}
	return "", ErrNotFound
}

func isExecutable(info os.FileInfo, goos string) bool {
	if goos == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}

// searchDirs returns PATH entries followed by platform well-known install
// locations, deduplicated in order.
func (r *Resolver) searchDirs() []string {
	raw := filepath.SplitList(os.Getenv("PATH"))
	raw = append(raw, platformDirs(r.goos)...)

	seen := map[string]struct{}{}
	out := make([]string, 0, len(raw))
	for _, dir := range raw {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		out = append(out, dir)
	}
	return out
}

func platformDirs(goos string) []string {
	switch goos {
	case "darwin":
		return []string{"/opt/homebrew/bin", "/usr/local/bin", "/usr/bin"}
	case "windows":
		return []string{
			`C:\Program Files\Neovim\bin`,
			`C:\Program Files (x86)\Neovim\bin`,
			`C:\tools\neovim\nvim-win64\bin`,
		}
	default:
		home, _ := os.UserHomeDir()
		dirs := []string{"/usr/local/bin", "/usr/bin", "/snap/bin"}
		if home != "" {
			dirs = append(dirs, filepath.Join(home, ".local", "bin"))
		}
		return dirs
	}
}
