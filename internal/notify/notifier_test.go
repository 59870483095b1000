package notify

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriterNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := &WriterNotifier{W: &buf}

	n.Notice("Neovim session ended")
	n.Warn("tmux session still running")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines: %#v", lines)
	}
	if lines[0] != "Neovim session ended" {
		t.Fatalf("notice line: %q", lines[0])
	}
	if lines[1] != "warning: tmux session still running" {
		t.Fatalf("warn line: %q", lines[1])
	}
}
