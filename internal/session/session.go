package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"nvimbridge/internal/notify"
)

type StartedVia string

const (
	ViaUnknown  StartedVia = "unknown"
	ViaHeadless StartedVia = "headless"
	ViaTerminal StartedVia = "terminal"
	ViaTmux     StartedVia = "tmux"
)

// RPC is the opaque editor connection. Implemented by rpcprobe.Client; only
// the liveness ping, buffer listing, and graceful quit are ever used.
type RPC interface {
	Ping() error
	Buffers() ([]string, error)
	Quit() error
	Close() error
}

// Process is a locally spawned child the session exclusively owns. Never set
// for tmux sessions: there the editor belongs to the multiplexer.
type Process interface {
	PID() int
	Terminate() error
}

// MuxKiller terminates a named multiplexer session on full close.
type MuxKiller interface {
	KillSession(name string) error
}

var (
	errAlreadyActive = errors.New("a session is already recorded")
	errNotLaunched   = errors.New("no launch recorded for this session")
)

type Snapshot struct {
	ID         string     `json:"id"`
	StartedVia StartedVia `json:"started_via"`
	ListenAddr string     `json:"listen_addr"`
	MuxSession string     `json:"mux_session,omitempty"`
	HasProcess bool       `json:"has_process"`
	HasRPC     bool       `json:"has_rpc"`
	PID        int        `json:"pid,omitempty"`
}

// Hook observes state transitions. Used to publish events to the local API
// and the session journal.
type Hook func(event string, snap Snapshot)

// Session is the authoritative record of how the current editor session was
// started and which handles exist. One session per process; a second launch
// while live is refused by the launcher, never queued.
type Session struct {
	mu       sync.Mutex
	logger   *slog.Logger
	notifier notify.Notifier
	hooks    []Hook

	id         string
	startedVia StartedVia
	proc       Process
	rpc        RPC
	listenAddr string
	muxSession string
}

func New(logger *slog.Logger, notifier notify.Notifier) *Session {
	return &Session{
		logger:     logger,
		notifier:   notifier,
		startedVia: ViaUnknown,
	}
}

func (s *Session) AddHook(h Hook) {
	if h == nil {
		return
	}
	s.mu.Lock()
	s.hooks = append(s.hooks, h)
	s.mu.Unlock()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:         s.id,
		StartedVia: s.startedVia,
		ListenAddr: s.listenAddr,
		MuxSession: s.muxSession,
		HasProcess: s.proc != nil,
		HasRPC:     s.rpc != nil,
	}
	if s.proc != nil {
		snap.PID = s.proc.PID()
	}
	return snap
}

// Live reports whether a locally spawned process is currently tracked.
func (s *Session) Live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proc != nil
}

// Reachable reports whether the session holds a live process plus RPC pair.
func (s *Session) Reachable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proc != nil && s.rpc != nil
}

// RPCHandle returns the current RPC handle, or nil.
func (s *Session) RPCHandle() RPC {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rpc
}

// RecordSpawn transitions unknown -> headless|terminal after a successful
// local spawn. Returns the generation id supervision must report exits with.
func (s *Session) RecordSpawn(via StartedVia, proc Process, listenAddr string) (string, error) {
	if via != ViaHeadless && via != ViaTerminal {
		return "", fmt.Errorf("spawn cannot start a %q session", via)
	}
	s.mu.Lock()
	if s.startedVia != ViaUnknown || s.proc != nil {
		s.mu.Unlock()
		return "", errAlreadyActive
	}
	s.id = uuid.NewString()
	s.startedVia = via
	s.proc = proc
	s.listenAddr = listenAddr
	s.muxSession = ""
	id := s.id
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.fire("launched", snap)
	return id, nil
}

// RecordTmux transitions unknown -> tmux. No process handle exists in this
// state; the multiplexer owns the editor.
func (s *Session) RecordTmux(listenAddr, muxSession string) (string, error) {
	s.mu.Lock()
	if s.startedVia != ViaUnknown {
		s.mu.Unlock()
		return "", errAlreadyActive
	}
	s.id = uuid.NewString()
	s.startedVia = ViaTmux
	s.proc = nil
	s.listenAddr = listenAddr
	s.muxSession = muxSession
	id := s.id
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.fire("launched", snap)
	return id, nil
}

// RecordAttach stores the RPC handle after a successful readiness probe.
func (s *Session) RecordAttach(rpc RPC) error {
	s.mu.Lock()
	if s.startedVia == ViaUnknown {
		s.mu.Unlock()
		return errNotLaunched
	}
	s.rpc = rpc
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.fire("attached", snap)
	return nil
}

// HandleExit reacts to the terminal supervision event of a spawned process.
// Events from a superseded generation (the process we terminated ourselves
// during close) are ignored.
func (s *Session) HandleExit(generation string, reason ExitReason, exitErr error) {
	s.mu.Lock()
	if s.id != generation || s.startedVia == ViaUnknown {
		s.mu.Unlock()
		return
	}
	rpc := s.rpc
	// Snapshot before reset: the event must identify the session that ended.
	snap := s.snapshotLocked()
	s.resetLocked()
	s.mu.Unlock()

	if rpc != nil {
		_ = rpc.Close()
	}
	if s.logger != nil {
		s.logger.Info("editor session ended", "reason", reason, "err", exitErr)
	}
	if s.notifier != nil {
		s.notifier.Notice("Neovim session ended")
	}
	s.fire("ended", snap)
}

// Disconnect drops both handles without contacting the process or the
// multiplexer. Used for keep-alive shutdowns.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.startedVia == ViaUnknown {
		s.mu.Unlock()
		return
	}
	rpc := s.rpc
	snap := s.snapshotLocked()
	s.resetLocked()
	s.mu.Unlock()

	if rpc != nil {
		_ = rpc.Close()
	}
	s.fire("disconnected", snap)
}

// Close fully tears the session down. For tmux sessions the named session is
// killed through the multiplexer; otherwise the local process is terminated
// and the editor is asked to quit gracefully first.
func (s *Session) Close(killer MuxKiller) {
	s.mu.Lock()
	if s.startedVia == ViaUnknown {
		s.mu.Unlock()
		return
	}
	via := s.startedVia
	proc := s.proc
	rpc := s.rpc
	muxSession := s.muxSession
	snap := s.snapshotLocked()
	s.resetLocked()
	s.mu.Unlock()

	if via == ViaTmux {
		if killer == nil {
			s.notice("Cannot stop tmux session %q: no multiplexer available", muxSession)
		} else if err := killer.KillSession(muxSession); err != nil {
			s.notice("Failed to stop tmux session %q: %v", muxSession, err)
		} else {
			s.notice("Stopped tmux session %q", muxSession)
		}
		if rpc != nil {
			_ = rpc.Close()
		}
		s.fire("closed", snap)
		return
	}

	if rpc != nil {
		if err := rpc.Quit(); err != nil && s.logger != nil {
			s.logger.Debug("graceful quit failed", "err", err)
		}
		_ = rpc.Close()
	}
	if proc != nil {
		if err := proc.Terminate(); err != nil && s.logger != nil {
			s.logger.Debug("terminate failed", "err", err)
		}
	}
	s.fire("closed", snap)
}

// OnHostQuit is the host termination hook. A tmux session with keep-alive
// set is disconnected locally only; the multiplexer is never contacted.
func (s *Session) OnHostQuit(keepAlive bool, killer MuxKiller) {
	s.mu.Lock()
	via := s.startedVia
	s.mu.Unlock()

	if via == ViaTmux && keepAlive {
		s.Disconnect()
		return
	}
	s.Close(killer)
}

func (s *Session) resetLocked() {
	s.id = ""
	s.startedVia = ViaUnknown
	s.proc = nil
	s.rpc = nil
	s.listenAddr = ""
	s.muxSession = ""
}

func (s *Session) fire(event string, snap Snapshot) {
	s.mu.Lock()
	hooks := make([]Hook, len(s.hooks))
	copy(hooks, s.hooks)
	s.mu.Unlock()
	for _, h := range hooks {
		h(event, snap)
	}
}

func (s *Session) notice(format string, args ...any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notice(fmt.Sprintf(format, args...))
}
