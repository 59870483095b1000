package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"gorm.io/gorm"

	"nvimbridge/internal/binpath"
	"nvimbridge/internal/command"
	"nvimbridge/internal/config"
	"nvimbridge/internal/dispatch"
	"nvimbridge/internal/global"
	"nvimbridge/internal/history"
	"nvimbridge/internal/launch"
	"nvimbridge/internal/lifecycle"
	"nvimbridge/internal/localapi"
	"nvimbridge/internal/logging"
	"nvimbridge/internal/muxer"
	"nvimbridge/internal/notify"
	"nvimbridge/internal/rpcprobe"
	"nvimbridge/internal/session"
)

type app struct {
	cfg      config.Config
	logger   *slog.Logger
	store    *global.ConfigStore
	notifier notify.Notifier
	sess     *session.Session
	resolver *binpath.Resolver
	mux      *muxer.Manager
	launcher *launch.Launcher
	opener   *dispatch.Dispatcher
	journal  *history.Store
	db       *gorm.DB
}

func main() {
	cfg := config.LoadConfig()
	logger := logging.NewLogger(logging.Options{Level: cfg.LogLevel, Component: "nvimbridge"})

	a, err := buildApp(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "err", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer a.closeJournal()

	cli := command.BuildApp(command.Deps{
		RunLaunch:  a.runLaunch,
		RunOpen:    a.runOpen,
		RunStatus:  a.runStatus,
		RunStop:    a.runStop,
		RunServe:   a.runServe,
		RunHistory: a.runHistory,
	})
	if err := cli.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildApp(cfg config.Config, logger *slog.Logger) (*app, error) {
	configDir, err := global.ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}
	store := global.NewConfigStore(configDir)
	st, err := store.LoadOrInit()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	notifier := &notify.WriterNotifier{W: os.Stdout, Logger: logger}
	sess := session.New(logger, notifier)

	resolver := binpath.NewResolver(logger)
	resolver.SetOverride("nvim", st.NvimPath)

	prober := rpcprobe.NewProber(logger, rpcprobe.Options{Interval: cfg.PollInterval})

	tmuxPath, _ := resolver.Resolve("tmux")
	mux := muxer.NewManager(logger, notifier, &muxer.RealExec{}, tmuxPath,
		prober.WaitReady, cfg.AttachTimeout)

	launcher := launch.NewLauncher(logger, notifier, sess, resolver, prober, mux, tmuxPath, cfg.AttachTimeout)

	opener := dispatch.NewDispatcher(logger, notifier, sess, resolver,
		&dispatch.DirFiles{Base: st.BaseDir}, &dispatch.RealExec{})

	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = configDir
	}
	db, err := history.Open(filepath.Join(dataDir, "journal.db"))
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	journal := history.NewStore(db, logger)
	sess.AddHook(journal.Hook())

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		notifier: notifier,
		sess:     sess,
		resolver: resolver,
		mux:      mux,
		launcher: launcher,
		opener:   opener,
		journal:  journal,
		db:       db,
	}, nil
}

// currentOverlay maps runtime config onto the environment of spawned
// editors. Read through the cached config so long-running serve sessions
// pick up env changes between launches.
func (a *app) currentOverlay() map[string]string {
	cfg := config.GetConfig()
	overlay := map[string]string{}
	if cfg.APIKey != "" {
		overlay["NVIMBRIDGE_API_KEY"] = cfg.APIKey
	}
	if cfg.AppName != "" {
		overlay["NVIM_APPNAME"] = cfg.AppName
	}
	return overlay
}

func (a *app) closeJournal() {
	if err := history.Close(a.db); err != nil {
		a.logger.Warn("journal close failed", "err", err)
	}
}

func (a *app) runLaunch(ctx context.Context) error {
	st, err := a.store.LoadOrInit()
	if err != nil {
		return err
	}
	return a.launcher.Launch(ctx, st, a.currentOverlay())
}

func (a *app) runOpen(_ context.Context, path string) error {
	st, err := a.store.LoadOrInit()
	if err != nil {
		return err
	}
	a.opener.OpenFile(st, path)
	return nil
}

func (a *app) runStatus(context.Context) error {
	st, err := a.store.LoadOrInit()
	if err != nil {
		return err
	}
	payload := map[string]any{
		"session":  a.sess.Snapshot(),
		"binaries": a.describeBinaries(st),
	}
	if rpc := a.sess.RPCHandle(); rpc != nil {
		if names, err := rpc.Buffers(); err == nil {
			payload["open_buffers"] = len(names)
		}
	}
	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func (a *app) runStop(_ context.Context, all bool) error {
	st, err := a.store.LoadOrInit()
	if err != nil {
		return err
	}
	a.sess.Close(a.mux)
	if all && st.TmuxSession != "" {
		if exists, _ := a.mux.HasSession(st.TmuxSession); exists {
			if err := a.mux.KillSession(st.TmuxSession); err != nil {
				return err
			}
			a.notifier.Notice(fmt.Sprintf("Stopped tmux session %q", st.TmuxSession))
		}
	}
	return nil
}

func (a *app) runHistory(_ context.Context, limit int) error {
	rows, err := a.journal.Recent(limit)
	if err != nil {
		return err
	}
	for _, row := range rows {
		ts := time.UnixMilli(row.CreatedAt).Format(time.RFC3339)
		line := fmt.Sprintf("%s  %-12s  via=%-8s", ts, row.Event, row.StartedVia)
		if row.MuxSession != "" {
			line += "  tmux=" + row.MuxSession
		}
		if row.PID != 0 {
			line += "  pid=" + strconv.Itoa(row.PID)
		}
		fmt.Println(line)
	}
	return nil
}

// runServe hosts the local control API until interrupted, then shuts the
// session down per the keep-alive setting.
func (a *app) runServe(ctx context.Context) error {
	st, err := a.store.LoadOrInit()
	if err != nil {
		return err
	}

	srv := localapi.NewServer(localapi.Deps{
		SettingsStore: a.store,
		Launcher:      a.launcher,
		Opener:        a.opener,
		Session:       a.sess,
		Journal:       a.journal,
		Killer:        a.mux,
		Binaries:      func() []binpath.Descriptor { return a.describeBinaries(st) },
		Overlay:       a.currentOverlay,
	})
	a.sess.AddHook(srv.SessionHook())

	addr := net.JoinHostPort(a.cfg.LocalHost, strconv.Itoa(a.cfg.LocalPort))
	httpServer := &http.Server{Addr: addr, Handler: srv.Handler()}

	mgr := lifecycle.NewManager(a.logger)
	mgr.AddRun("localapi", func(ctx context.Context) error {
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = httpServer.Shutdown(shutdownCtx)
		}()
		a.logger.Info("local API listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	mgr.AddShutdown("session", func(context.Context) error {
		a.sess.OnHostQuit(st.KeepAliveOnQuit, a.mux)
		return nil
	})

	return mgr.StartAndWait(ctx, os.Interrupt, syscall.SIGTERM)
}

func (a *app) describeBinaries(st global.Settings) []binpath.Descriptor {
	probe := binpath.RealExec{}
	names := []string{"nvim", "tmux"}
	if st.Terminal != "" {
		names = append(names, st.Terminal)
	}
	out := make([]binpath.Descriptor, 0, len(names))
	for _, name := range names {
		out = append(out, binpath.Describe(a.resolver, probe, name))
	}
	return out
}
