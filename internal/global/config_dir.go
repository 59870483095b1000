package global

import (
	"os"
	"path/filepath"
	"strings"
)

// ConfigDir resolves the directory holding config.toml and the session
// journal. NVIMBRIDGE_CONFIG_DIR wins; otherwise the platform user config
// directory is used.
func ConfigDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("NVIMBRIDGE_CONFIG_DIR")); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "nvimbridge"), nil
}
