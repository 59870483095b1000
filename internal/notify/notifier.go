package notify

import (
	"fmt"
	"io"
	"log/slog"
)

// Notifier surfaces user-visible messages. Host frontends provide their own
// implementation; the CLI prints to stdout.
type Notifier interface {
	Notice(msg string)
	Warn(msg string)
}

// WriterNotifier prints notices to a writer and mirrors them to the log so
// they survive in the structured record.
type WriterNotifier struct {
	W      io.Writer
	Logger *slog.Logger
}

func (n *WriterNotifier) Notice(msg string) {
	fmt.Fprintln(n.W, msg)
	if n.Logger != nil {
		n.Logger.Info("notice", "msg", msg)
	}
}

func (n *WriterNotifier) Warn(msg string) {
	fmt.Fprintln(n.W, "warning: "+msg)
	if n.Logger != nil {
		n.Logger.Warn("notice", "msg", msg)
	}
}
