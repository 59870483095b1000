package launch

import (
	"fmt"
	"os/exec"
	"runtime"
	"syscall"

	"nvimbridge/internal/session"
)

type osProcess struct {
	cmd *exec.Cmd
}

func (p *osProcess) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *osProcess) Terminate() error {
	if p.cmd.Process == nil {
		return nil
	}
	if runtime.GOOS == "windows" {
		return p.cmd.Process.Kill()
	}
	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		return p.cmd.Process.Kill()
	}
	return nil
}

// startProcess spawns bin with stdio silenced and supervises it: the
// returned channel delivers exactly one terminal event when the process
// goes away, then closes.
func startProcess(bin string, args []string, dir string, env []string) (session.Process, <-chan session.ExitEvent, error) {
	cmd := exec.Command(bin, args...)
	cmd.Dir = dir
	cmd.Env = env
	// Stdout/Stderr deliberately left nil: the child talks RPC, not stdio.

	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("start %s: %w", bin, err)
	}

	events := make(chan session.ExitEvent, 1)
	go func() {
		defer close(events)
		err := cmd.Wait()
		reason := session.ExitExited
		if err != nil {
			reason = session.ExitErrored
		}
		events <- session.ExitEvent{Reason: reason, Err: err}
	}()
	return &osProcess{cmd: cmd}, events, nil
}
