package global

import (
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const configTOMLFileName = "config.toml"

const (
	HostModeNvim = "nvim"
	HostModeTmux = "tmux"
)

// Settings is the persisted host configuration. The host application's
// settings UI writes it through Save; the daemon only reads it.
type Settings struct {
	HostMode        string   `toml:"host_mode"`
	ListenAddr      string   `toml:"listen_addr"`
	NvimPath        string   `toml:"nvim_path,omitempty"`
	Terminal        string   `toml:"terminal,omitempty"`
	TmuxSession     string   `toml:"tmux_session"`
	TmuxAttachTerm  bool     `toml:"tmux_attach_terminal"`
	KeepAliveOnQuit bool     `toml:"keep_alive_on_quit"`
	BaseDir         string   `toml:"base_dir,omitempty"`
	Extensions      []string `toml:"supported_extensions"`
	Excalidraw      bool     `toml:"excalidraw_enabled"`
}

type ConfigStore struct {
	dir string
}

func NewConfigStore(dir string) *ConfigStore {
	return &ConfigStore{dir: dir}
}

func (s *ConfigStore) LoadOrInit() (Settings, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Settings{}, err
	}

	path := filepath.Join(s.dir, configTOMLFileName)
	if b, err := os.ReadFile(path); err == nil {
		var cfg Settings
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return Settings{}, err
		}
		return normalizeSettings(cfg), nil
	} else if !os.IsNotExist(err) {
		return Settings{}, err
	}

	cfg := normalizeSettings(Settings{})
	if err := writeTOMLAtomically(path, cfg); err != nil {
		return Settings{}, err
	}
	return cfg, nil
}

func (s *ConfigStore) Save(cfg Settings) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return writeTOMLAtomically(filepath.Join(s.dir, configTOMLFileName), normalizeSettings(cfg))
}

func normalizeSettings(cfg Settings) Settings {
	switch strings.ToLower(strings.TrimSpace(cfg.HostMode)) {
	case HostModeTmux:
		cfg.HostMode = HostModeTmux
	default:
		cfg.HostMode = HostModeNvim
	}
	cfg.ListenAddr = strings.TrimSpace(cfg.ListenAddr)
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "127.0.0.1:2006"
	}
	cfg.NvimPath = strings.TrimSpace(cfg.NvimPath)
	cfg.Terminal = strings.TrimSpace(cfg.Terminal)
	cfg.TmuxSession = strings.TrimSpace(cfg.TmuxSession)
	if cfg.TmuxSession == "" {
		cfg.TmuxSession = "nvimbridge"
	}
	cfg.BaseDir = strings.TrimSpace(cfg.BaseDir)

	exts := make([]string, 0, len(cfg.Extensions))
	seen := map[string]struct{}{}
	for _, ext := range cfg.Extensions {
		e := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if e == "" {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		exts = append(exts, e)
	}
	if len(exts) == 0 {
		exts = []string{"md", "txt"}
	}
	cfg.Extensions = exts
	return cfg
}

func writeTOMLAtomically(path string, v any) error {
	b, err := toml.Marshal(v)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
