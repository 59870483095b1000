package launch

// Strategy is how the editor process gets started. A pure function of
// configuration and binary availability, never persisted.
type Strategy string

const (
	StrategyHeadless Strategy = "headless"
	StrategyTerminal Strategy = "terminal"
	StrategyTmux     Strategy = "tmux"
)

// SelectStrategy picks the launch strategy. Tmux host mode always wins.
// Without a resolved terminal binary, headless is the only strategy that is
// guaranteed to work, so it is the fallback; a terminal window is preferred
// when available because the user can see and interact with the editor.
func SelectStrategy(hostMode string, terminalResolved bool) Strategy {
	if hostMode == "tmux" {
		return StrategyTmux
	}
	if !terminalResolved {
		return StrategyHeadless
	}
	return StrategyTerminal
}
