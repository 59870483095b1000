package launch

import "testing"

func TestSelectStrategy(t *testing.T) {
	cases := []struct {
		hostMode         string
		terminalResolved bool
		want             Strategy
	}{
		{"tmux", true, StrategyTmux},
		{"tmux", false, StrategyTmux},
		{"nvim", false, StrategyHeadless},
		{"nvim", true, StrategyTerminal},
	}
	for _, tc := range cases {
		if got := SelectStrategy(tc.hostMode, tc.terminalResolved); got != tc.want {
			t.Fatalf("SelectStrategy(%q, %v) = %q, want %q", tc.hostMode, tc.terminalResolved, got, tc.want)
		}
	}
}

func TestTerminalArgv(t *testing.T) {
	inner := []string{"/usr/bin/nvim", "--listen", "127.0.0.1:2006"}
	cases := []struct {
		terminal string
		first    string
		length   int
	}{
		{"/usr/bin/alacritty", "-e", 4},
		{"/usr/bin/kitty", "/usr/bin/nvim", 3},
		{"/usr/bin/gnome-terminal", "--", 4},
		{"/usr/bin/wezterm", "start", 5},
		{"/usr/bin/xterm", "-e", 4},
		{`C:\tools\alacritty.exe`, "-e", 4},
		{"/usr/bin/mystery-term", "-e", 4},
	}
	for _, tc := range cases {
		got := TerminalArgv(tc.terminal, inner)
		if len(got) != tc.length || got[0] != tc.first {
			t.Fatalf("TerminalArgv(%q) = %#v", tc.terminal, got)
		}
	}
}
