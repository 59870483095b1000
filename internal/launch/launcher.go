package launch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"nvimbridge/internal/binpath"
	"nvimbridge/internal/global"
	"nvimbridge/internal/muxer"
	"nvimbridge/internal/notify"
	"nvimbridge/internal/rpcprobe"
	"nvimbridge/internal/session"
)

var (
	// ErrAlreadyRunning reports a second launch while a local session is live.
	ErrAlreadyRunning = errors.New("a Neovim session is already running")
	// ErrBinaryNotFound reports that the editor binary could not be resolved.
	ErrBinaryNotFound = errors.New("nvim binary not found")
	// ErrSpawnFailed wraps spawn errors from the OS.
	ErrSpawnFailed = errors.New("failed to spawn")
)

const editorBinaryName = "nvim"

type muxManager interface {
	EnsureSession(ctx context.Context, opts muxer.Options) error
	HasSession(name string) (bool, error)
	KillSession(name string) error
}

// Launcher coordinates strategy selection, spawning, and RPC attachment,
// committing the outcome to the session state machine.
type Launcher struct {
	logger   *slog.Logger
	notifier notify.Notifier
	sess     *session.Session
	resolver *binpath.Resolver
	mux      muxManager
	tmuxPath string

	attachTimeout time.Duration

	// seams, overridable in tests
	attach    func(ctx context.Context, addr string, timeout time.Duration) (session.RPC, error)
	startProc func(bin string, args []string, dir string, env []string) (session.Process, <-chan session.ExitEvent, error)
	environ   func() []string
}

func NewLauncher(logger *slog.Logger, notifier notify.Notifier, sess *session.Session,
	resolver *binpath.Resolver, prober *rpcprobe.Prober, mux muxManager, tmuxPath string,
	attachTimeout time.Duration) *Launcher {
	l := &Launcher{
		logger:        logger,
		notifier:      notifier,
		sess:          sess,
		resolver:      resolver,
		mux:           mux,
		tmuxPath:      tmuxPath,
		attachTimeout: attachTimeout,
		startProc:     startProcess,
		environ:       os.Environ,
	}
	if l.attachTimeout <= 0 {
		l.attachTimeout = 5 * time.Second
	}
	l.attach = func(ctx context.Context, addr string, timeout time.Duration) (session.RPC, error) {
		c, err := prober.AttachWithRetry(ctx, addr, timeout)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return l
}

// Launch starts (or reuses) an editor session per the persisted settings.
// overlay entries win over the inherited host environment on key collision.
func (l *Launcher) Launch(ctx context.Context, st global.Settings, overlay map[string]string) error {
	terminalPath := ""
	if st.Terminal != "" {
		if p, err := l.resolver.Resolve(st.Terminal); err == nil {
			terminalPath = p
		}
	}
	strategy := SelectStrategy(st.HostMode, terminalPath != "")

	if strategy != StrategyTmux && l.sess.Live() {
		return ErrAlreadyRunning
	}

	nvimPath, err := l.resolver.Resolve(editorBinaryName)
	if err != nil {
		l.notice("Neovim binary not found; set nvim_path in the settings")
		return fmt.Errorf("%w (override: %q)", ErrBinaryNotFound, st.NvimPath)
	}

	env := l.buildEnv(overlay)

	switch strategy {
	case StrategyTmux:
		return l.launchTmux(ctx, st, nvimPath, terminalPath, overlay)
	case StrategyTerminal:
		l.warnStaleTmuxSession(st)
		argv := TerminalArgv(terminalPath, []string{nvimPath, "--listen", st.ListenAddr})
		return l.launchLocal(ctx, session.ViaTerminal, terminalPath, argv, st, env)
	default:
		l.warnStaleTmuxSession(st)
		argv := []string{"--headless", "--listen", st.ListenAddr}
		return l.launchLocal(ctx, session.ViaHeadless, nvimPath, argv, st, env)
	}
}

func (l *Launcher) launchLocal(ctx context.Context, via session.StartedVia, bin string, argv []string, st global.Settings, env []string) error {
	proc, events, err := l.startProc(bin, argv, st.BaseDir, env)
	if err != nil {
		l.notice(fmt.Sprintf("Failed to start Neovim: %v", err))
		return fmt.Errorf("%w %s: %v", ErrSpawnFailed, bin, err)
	}

	gen, err := l.sess.RecordSpawn(via, proc, st.ListenAddr)
	if err != nil {
		_ = proc.Terminate()
		return ErrAlreadyRunning
	}
	go l.forwardExit(gen, events)

	rpc, err := l.attach(ctx, st.ListenAddr, l.attachTimeout)
	if err != nil {
		if via == session.ViaTerminal {
			// Leave the window open: whatever went wrong is printed inside it.
			l.notice(fmt.Sprintf("Neovim did not become reachable at %s; check the terminal window", st.ListenAddr))
			return err
		}
		l.sess.Close(l.mux)
		l.notice(fmt.Sprintf("Neovim did not become reachable at %s; launch aborted", st.ListenAddr))
		return err
	}
	if err := l.sess.RecordAttach(rpc); err != nil {
		// The process died while we were probing; attach evidence is stale.
		_ = rpc.Close()
		return err
	}
	if l.logger != nil {
		l.logger.Info("editor session started", "via", via, "addr", st.ListenAddr)
	}
	return nil
}

func (l *Launcher) launchTmux(ctx context.Context, st global.Settings, nvimPath, terminalPath string, overlay map[string]string) error {
	opts := muxer.Options{
		Name:       st.TmuxSession,
		EditorPath: nvimPath,
		ListenAddr: st.ListenAddr,
		WorkDir:    st.BaseDir,
		Env:        overlayPairs(overlay),
	}
	if st.TmuxAttachTerm && terminalPath != "" {
		// Use the path the composition root resolved; tmux may live outside
		// PATH in a platform well-known dir.
		tmuxBin := l.tmuxPath
		if tmuxBin == "" {
			tmuxBin = "tmux"
		}
		opts.AttachTerminal = func() error {
			argv := TerminalArgv(terminalPath, []string{tmuxBin, "attach-session", "-t", st.TmuxSession})
			_, _, err := l.startProc(terminalPath, argv, st.BaseDir, l.buildEnv(nil))
			return err
		}
	}

	if err := l.mux.EnsureSession(ctx, opts); err != nil {
		l.notice(fmt.Sprintf("Could not start tmux session %q: %v", st.TmuxSession, err))
		return err
	}

	if _, err := l.sess.RecordTmux(st.ListenAddr, st.TmuxSession); err != nil {
		return err
	}
	rpc, err := l.attach(ctx, st.ListenAddr, l.attachTimeout)
	if err != nil {
		// The session exists but we could not attach; drop our half-open record.
		l.sess.Disconnect()
		l.notice(fmt.Sprintf("tmux session %q is running but not answering at %s", st.TmuxSession, st.ListenAddr))
		return err
	}
	if err := l.sess.RecordAttach(rpc); err != nil {
		_ = rpc.Close()
		return err
	}
	if l.logger != nil {
		l.logger.Info("editor session started", "via", session.ViaTmux, "session", st.TmuxSession)
	}
	return nil
}

func (l *Launcher) forwardExit(gen string, events <-chan session.ExitEvent) {
	ev, ok := <-events
	if !ok {
		return
	}
	l.sess.HandleExit(gen, ev.Reason, ev.Err)
}

// warnStaleTmuxSession surfaces a tmux session left behind after host mode
// switched away from tmux. It is left running; `stop --all` kills it.
func (l *Launcher) warnStaleTmuxSession(st global.Settings) {
	if l.mux == nil || st.TmuxSession == "" {
		return
	}
	exists, err := l.mux.HasSession(st.TmuxSession)
	if err != nil || !exists {
		return
	}
	if l.notifier != nil {
		l.notifier.Warn(fmt.Sprintf("tmux session %q from a previous tmux-mode launch is still running", st.TmuxSession))
	}
}

func (l *Launcher) buildEnv(overlay map[string]string) []string {
	env := l.environ()
	for _, kv := range overlayPairs(overlay) {
		env = append(env, kv)
	}
	return env
}

// overlayPairs renders the overlay as sorted KEY=VALUE pairs. Later entries
// win in exec.Cmd env handling, which gives the overlay priority.
func overlayPairs(overlay map[string]string) []string {
	if len(overlay) == 0 {
		return nil
	}
	keys := make([]string, 0, len(overlay))
	for k := range overlay {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+overlay[k])
	}
	return pairs
}

func (l *Launcher) notice(msg string) {
	if l.notifier != nil {
		l.notifier.Notice(msg)
	}
}
