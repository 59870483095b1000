package dispatch

import (
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"nvimbridge/internal/binpath"
	"nvimbridge/internal/global"
	"nvimbridge/internal/notify"
	"nvimbridge/internal/rpcprobe"
	"nvimbridge/internal/session"
)

const excalidrawSuffix = ".excalidraw.md"

// Exec runs the remote open command. The error carries the command's
// combined output so failures can be classified.
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

// Dispatcher sends "open this file" commands to a running editor session.
// Dispatch is fire-and-forget: every refusal or failure ends in a log line
// or a notice, never an error return.
type Dispatcher struct {
	logger   *slog.Logger
	notifier notify.Notifier
	sess     *session.Session
	resolver *binpath.Resolver
	files    Files
	exec     Exec

	// portProbe is the fallback reachability check, injectable for tests.
	portProbe func(addr rpcprobe.Addr) bool
}

func NewDispatcher(logger *slog.Logger, notifier notify.Notifier, sess *session.Session,
	resolver *binpath.Resolver, files Files, exec Exec) *Dispatcher {
	return &Dispatcher{
		logger:   logger,
		notifier: notifier,
		sess:     sess,
		resolver: resolver,
		files:    files,
		exec:     exec,
		portProbe: func(addr rpcprobe.Addr) bool {
			return rpcprobe.PortReachable(addr, time.Second)
		},
	}
}

// OpenFile asks the editor listening at the configured address to open path.
// No-op when the file is absent, its type is not enabled, the editor binary
// cannot be resolved, or no server is reachable.
func (d *Dispatcher) OpenFile(st global.Settings, path string) {
	if path == "" || !d.files.Exists(path) {
		d.debug("open skipped: file absent", "path", path)
		return
	}
	if !typeEnabled(st, path) {
		d.debug("open skipped: extension not enabled", "path", path)
		return
	}

	nvimPath, err := d.resolver.Resolve("nvim")
	if err != nil {
		d.debug("open skipped: nvim not resolved", "err", err)
		return
	}

	if !d.serverReachable(st) {
		d.debug("open skipped: no reachable server", "addr", st.ListenAddr)
		return
	}

	abs, err := d.files.Abs(path)
	if err != nil {
		d.debug("open skipped: cannot resolve path", "path", path, "err", err)
		return
	}

	if err := d.exec.Run(nvimPath, "--server", st.ListenAddr, "--remote", abs); err != nil {
		msg := classifyRemoteError(err.Error(), st.ListenAddr)
		if d.notifier != nil {
			d.notifier.Warn(msg)
		}
		if d.logger != nil {
			d.logger.Warn("remote open failed", "path", abs, "err", err)
		}
		return
	}
	d.debug("file opened", "path", abs, "addr", st.ListenAddr)
}

// serverReachable requires either a live process+RPC pair or direct evidence
// that something accepts connections at the listen address.
func (d *Dispatcher) serverReachable(st global.Settings) bool {
	if d.sess != nil && d.sess.Reachable() {
		return true
	}
	return d.portProbe(rpcprobe.ParseListenAddr(st.ListenAddr))
}

// typeEnabled gates dispatch on the supported-extension set. Excalidraw
// documents use a compound suffix and their own capability flag.
func typeEnabled(st global.Settings, path string) bool {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, excalidrawSuffix) {
		return st.Excalidraw
	}
	i := strings.LastIndexByte(lower, '.')
	if i < 0 {
		return false
	}
	ext := lower[i+1:]
	for _, e := range st.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

func (d *Dispatcher) debug(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}
