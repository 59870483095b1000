package history

// SessionEvent is one row of the session journal: a state transition of the
// session state machine, keyed by the session's generation id.
type SessionEvent struct {
	ID         int64  `gorm:"column:id;primaryKey;autoIncrement"`
	SessionID  string `gorm:"column:session_id;not null;default:''"`
	Event      string `gorm:"column:event;not null"`
	StartedVia string `gorm:"column:started_via;not null;default:''"`
	ListenAddr string `gorm:"column:listen_addr;not null;default:''"`
	MuxSession string `gorm:"column:mux_session;not null;default:''"`
	PID        int    `gorm:"column:pid;not null;default:0"`
	CreatedAt  int64  `gorm:"column:created_at;not null;default:0"`
}

func (SessionEvent) TableName() string { return "session_events" }
