package muxer

import (
	"fmt"
	"os/exec"
	"strings"
)

// Exec abstracts tmux invocation so session management is testable.
type Exec interface {
	Run(name string, args ...string) error
}

type RealExec struct{}

func (r *RealExec) Run(name string, args ...string) error {
	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}
