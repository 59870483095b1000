package dispatch

import (
	"fmt"
	"strings"
)

type failureKind int

const (
	failureUnknown failureKind = iota
	failureConnectionRefused
	failureMissingFile
	failureExecutableNotFound
)

// remoteFailures maps recognizable stderr substrings to failure kinds.
// Order matters: the first match wins.
var remoteFailures = []struct {
	substr string
	kind   failureKind
}{
	{"connection refused", failureConnectionRefused},
	{"ECONNREFUSED", failureConnectionRefused},
	{"no such file or directory", failureMissingFile},
	{"executable file not found", failureExecutableNotFound},
	{"not found in $PATH", failureExecutableNotFound},
}

// classifyRemoteError turns the raw failure text of a remote open command
// into an actionable message. Unrecognized output is surfaced truncated to
// its first line.
func classifyRemoteError(raw, listenAddr string) string {
	for _, f := range remoteFailures {
		if !strings.Contains(raw, f.substr) {
			continue
		}
		switch f.kind {
		case failureConnectionRefused:
			return fmt.Sprintf("Neovim is not listening at %s; relaunch the session", listenAddr)
		case failureMissingFile:
			return "Neovim could not find the file to open"
		case failureExecutableNotFound:
			return "The nvim executable could not be run; check nvim_path in the settings"
		}
	}
	line := raw
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	return fmt.Sprintf("Remote open failed: %s", strings.TrimSpace(line))
}
