package binpath

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), mode); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func newTestResolver(dirs ...string) *Resolver {
	r := NewResolver(nil)
	r.dirs = func() []string { return dirs }
	r.goos = "linux"
	return r
}

func TestResolve_FirstExecutableMatchWins(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	want := writeFile(t, dirA, "nvim", 0o755)
	writeFile(t, dirB, "nvim", 0o755)

	r := newTestResolver(dirA, dirB)
	got, err := r.Resolve("nvim")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != want {
		t.Fatalf("Resolve = %q, want %q", got, want)
	}
}

func TestResolve_NonExecutableMatchFailsClosed(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	writeFile(t, dirA, "nvim", 0o644)
	writeFile(t, dirB, "nvim", 0o755)

	r := newTestResolver(dirA, dirB)
	if _, err := r.Resolve("nvim"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-executable first match, got %v", err)
	}
}

func TestResolve_NotFound(t *testing.T) {
	r := newTestResolver(t.TempDir())
	if _, err := r.Resolve("nvim"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolve_OverrideIsTrustedWithoutChecks(t *testing.T) {
	r := newTestResolver(t.TempDir())
	r.SetOverride("nvim", "/nonexistent/nvim")
	got, err := r.Resolve("nvim")
	if err != nil {
		t.Fatalf("override should not be verified at resolve time: %v", err)
	}
	if got != "/nonexistent/nvim" {
		t.Fatalf("override path = %q", got)
	}
}

func TestResolve_EmptyOverrideIgnored(t *testing.T) {
	dir := t.TempDir()
	want := writeFile(t, dir, "nvim", 0o755)
	r := newTestResolver(dir)
	r.SetOverride("nvim", "   ")
	got, err := r.Resolve("nvim")
	if err != nil || got != want {
		t.Fatalf("Resolve = %q, %v; want %q", got, err, want)
	}
}

func TestResolveIn_WindowsSuffix(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "nvim.exe", 0o644)
	got, err := resolveIn([]string{dir}, "nvim", "windows")
	if err != nil {
		t.Fatalf("resolveIn windows: %v", err)
	}
	if filepath.Base(got) != "nvim.exe" {
		t.Fatalf("expected .exe candidate, got %q", got)
	}
}

func TestSearchDirs_Deduplicates(t *testing.T) {
	t.Setenv("PATH", "/usr/bin"+string(os.PathListSeparator)+"/usr/bin"+string(os.PathListSeparator)+"/usr/local/bin")
	r := NewResolver(nil)
	r.goos = "linux"
	dirs := r.searchDirs()
	seen := map[string]int{}
	for _, d := range dirs {
		seen[d]++
		if seen[d] > 1 {
			t.Fatalf("duplicate dir %q in %v", d, dirs)
		}
	}
}

type fakeExec struct {
	out string
	err error
}

func (f fakeExec) Output(name string, args ...string) ([]byte, error) {
	return []byte(f.out), f.err
}

func TestDescribe_VersionFirstLine(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "nvim", 0o755)
	r := newTestResolver(dir)

	d := Describe(r, fakeExec{out: "NVIM v0.10.2\nBuild type: Release\n"}, "nvim")
	if !d.Found() {
		t.Fatalf("Describe did not resolve: %+v", d)
	}
	if d.Version != "NVIM v0.10.2" {
		t.Fatalf("version = %q", d.Version)
	}
}

func TestDescribe_NotFoundKeepsError(t *testing.T) {
	r := newTestResolver(t.TempDir())
	d := Describe(r, fakeExec{}, "nvim")
	if d.Found() {
		t.Fatalf("unexpected path: %q", d.Path)
	}
	if !errors.Is(d.Err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", d.Err)
	}
}
