package muxer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"nvimbridge/internal/notify"
	"nvimbridge/internal/rpcprobe"
)

var (
	// ErrMultiplexerNotFound reports that the tmux binary itself is missing.
	// Deliberately distinct from "session absent".
	ErrMultiplexerNotFound = errors.New("tmux binary not found")
	// ErrPortConflict reports that the TCP listen port is already bound by
	// something that is not the named session.
	ErrPortConflict = errors.New("listen port is already in use")
	// ErrUnsupportedPlatform reports that multiplexer sessions are not
	// available on this platform.
	ErrUnsupportedPlatform = errors.New("tmux sessions are not supported on this platform")
)

// Options describes the session EnsureSession must converge on.
type Options struct {
	Name       string
	EditorPath string
	ListenAddr string
	WorkDir    string
	Env        []string // explicit KEY=VALUE pairs forwarded into the session
	// AttachTerminal, when non-nil, spawns a terminal window attached to the
	// session. Best effort: failure is reported but never fails EnsureSession.
	AttachTerminal func() error
}

// Manager drives a named tmux session hosting the editor. Session existence
// is always queried, never cached: other agents create and destroy sessions
// outside this process.
type Manager struct {
	logger   *slog.Logger
	notifier notify.Notifier
	exec     Exec
	tmuxPath string

	waitReady     func(ctx context.Context, addr string, timeout time.Duration) bool
	attachTimeout time.Duration

	// test seams
	goos      string
	portInUse func(addr rpcprobe.Addr) bool
}

func NewManager(logger *slog.Logger, notifier notify.Notifier, e Exec, tmuxPath string,
	waitReady func(ctx context.Context, addr string, timeout time.Duration) bool,
	attachTimeout time.Duration) *Manager {
	m := &Manager{
		logger:        logger,
		notifier:      notifier,
		exec:          e,
		tmuxPath:      tmuxPath,
		waitReady:     waitReady,
		attachTimeout: attachTimeout,
		goos:          runtime.GOOS,
	}
	if m.attachTimeout <= 0 {
		m.attachTimeout = 7 * time.Second
	}
	m.portInUse = func(addr rpcprobe.Addr) bool {
		return rpcprobe.PortReachable(addr, 250*time.Millisecond)
	}
	return m
}

// HasSession queries the multiplexer for a session of the given name.
func (m *Manager) HasSession(name string) (bool, error) {
	if m.tmuxPath == "" {
		return false, ErrMultiplexerNotFound
	}
	if err := m.exec.Run(m.tmuxPath, "has-session", "-t", name); err != nil {
		return false, nil
	}
	return true, nil
}

// KillSession terminates the named session.
func (m *Manager) KillSession(name string) error {
	if m.tmuxPath == "" {
		return ErrMultiplexerNotFound
	}
	return m.exec.Run(m.tmuxPath, "kill-session", "-t", name)
}

// EnsureSession makes the named session exist and host a reachable editor.
// An existing session is reused as-is; a missing one is created detached
// with the editor listening on opts.ListenAddr.
func (m *Manager) EnsureSession(ctx context.Context, opts Options) error {
	if m.goos == "windows" {
		return ErrUnsupportedPlatform
	}
	if m.tmuxPath == "" {
		return ErrMultiplexerNotFound
	}

	exists, err := m.HasSession(opts.Name)
	if err != nil {
		return err
	}

	addr := rpcprobe.ParseListenAddr(opts.ListenAddr)
	if !exists {
		// A bound port with no session of our name means an unrelated listener;
		// refuse rather than silently talking to it. When the session exists the
		// port is assumed to be ours.
		if addr.IsTCP() && m.portInUse(addr) {
			return fmt.Errorf("%w: %s", ErrPortConflict, opts.ListenAddr)
		}
		if err := m.createSession(opts); err != nil {
			return err
		}
	} else if m.logger != nil {
		m.logger.Info("reusing existing tmux session", "session", opts.Name)
	}

	if opts.AttachTerminal != nil {
		if err := opts.AttachTerminal(); err != nil {
			if m.logger != nil {
				m.logger.Warn("terminal attach failed", "session", opts.Name, "err", err)
			}
			if m.notifier != nil {
				m.notifier.Warn(fmt.Sprintf("Could not open a terminal for tmux session %q: %v", opts.Name, err))
			}
		}
	}

	if !m.waitReady(ctx, opts.ListenAddr, m.attachTimeout) {
		return m.timeoutError(addr, opts)
	}
	return nil
}

func (m *Manager) createSession(opts Options) error {
	args := []string{"new-session", "-d", "-s", opts.Name}
	if opts.WorkDir != "" {
		args = append(args, "-c", opts.WorkDir)
	}
	if len(opts.Env) > 0 {
		args = append(args, "env")
		args = append(args, opts.Env...)
	}
	args = append(args, opts.EditorPath, "--headless", "--listen", opts.ListenAddr)

	if err := m.exec.Run(m.tmuxPath, args...); err != nil {
		return fmt.Errorf("tmux new-session %q: %w", opts.Name, err)
	}
	if m.logger != nil {
		m.logger.Info("created tmux session", "session", opts.Name, "addr", opts.ListenAddr)
	}
	return nil
}

// timeoutError distinguishes a socket path that never appeared from a TCP
// endpoint that is simply unreachable.
func (m *Manager) timeoutError(addr rpcprobe.Addr, opts Options) error {
	if !addr.IsTCP() {
		if _, err := os.Stat(addr.Value); err != nil {
			return fmt.Errorf("%w: socket %s was never created by session %q",
				rpcprobe.ErrAttachTimeout, addr.Value, opts.Name)
		}
		return fmt.Errorf("%w: socket %s exists but the editor is not answering",
			rpcprobe.ErrAttachTimeout, addr.Value)
	}
	return fmt.Errorf("%w: %s is unreachable (session %q)",
		rpcprobe.ErrAttachTimeout, opts.ListenAddr, opts.Name)
}
