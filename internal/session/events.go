package session

// ExitReason classifies the single terminal supervision event a spawned
// process produces.
type ExitReason string

const (
	ExitExited       ExitReason = "exited"
	ExitErrored      ExitReason = "errored"
	ExitDisconnected ExitReason = "disconnected"
)

// ExitEvent is pushed exactly once per process lifetime by the supervision
// goroutine in the launcher.
type ExitEvent struct {
	Generation string
	Reason     ExitReason
	Err        error
}
