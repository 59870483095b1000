package binpath

import (
	"fmt"
	"os/exec"
	"strings"
)

// Exec abstracts subprocess invocation so version probing is testable.
type Exec interface {
	Output(name string, args ...string) ([]byte, error)
}

type RealExec struct{}

func (RealExec) Output(name string, args ...string) ([]byte, error) {
	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return out, fmt.Errorf("%w: %s", err, msg)
		}
		return out, err
	}
	return out, nil
}

// Descriptor is a resolved binary plus discovery metadata. Version and Err
// are informational; callers branch only on Path being empty.
type Descriptor struct {
	Name    string
	Path    string
	Version string
	Err     error
}

func (d Descriptor) Found() bool { return d.Path != "" }

// Describe resolves name and, when found, probes `<path> --version` for the
// first output line.
func Describe(r *Resolver, e Exec, name string) Descriptor {
	d := Descriptor{Name: name}
	path, err := r.Resolve(name)
	if err != nil {
		d.Err = err
		return d
	}
	d.Path = path
	if e == nil {
		return d
	}
	out, err := e.Output(path, "--version")
	if err != nil {
		d.Err = err
		return d
	}
	if line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n"); line != "" {
		d.Version = strings.TrimSpace(line)
	}
	return d
}
