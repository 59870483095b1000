package launch

import (
	"path/filepath"
	"strings"
)

// TerminalArgv returns the argument vector that makes the named terminal
// emulator open a new window running inner. Emulators disagree on how a
// command is passed; unknown ones get the conventional -e flag.
func TerminalArgv(terminalPath string, inner []string) []string {
	base := strings.ToLower(filepath.Base(terminalPath))
	base = strings.TrimSuffix(base, ".exe")

	switch base {
	case "kitty", "foot", "ghostty":
		// These exec the trailing command directly.
		return inner
	case "gnome-terminal", "kgx":
		return append([]string{"--"}, inner...)
	case "wezterm":
		return append([]string{"start", "--"}, inner...)
	case "alacritty", "konsole", "xterm", "urxvt", "rxvt", "st":
		return append([]string{"-e"}, inner...)
	default:
		return append([]string{"-e"}, inner...)
	}
}
