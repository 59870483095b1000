package history

import (
	"log/slog"
	"time"

	"gorm.io/gorm"

	"nvimbridge/internal/session"
)

// Store appends session transitions to the journal and serves them back for
// the history command and the status endpoint.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

func NewStore(db *gorm.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger, now: time.Now}
}

// Append records one transition. Journal failures must never disturb the
// session itself, so errors are logged and swallowed.
func (s *Store) Append(event string, snap session.Snapshot) {
	row := SessionEvent{
		SessionID:  snap.ID,
		Event:      event,
		StartedVia: string(snap.StartedVia),
		ListenAddr: snap.ListenAddr,
		MuxSession: snap.MuxSession,
		PID:        snap.PID,
		CreatedAt:  s.now().UnixMilli(),
	}
	if err := s.db.Create(&row).Error; err != nil && s.logger != nil {
		s.logger.Warn("journal append failed", "event", event, "err", err)
	}
}

// Hook adapts the store to the session's transition hook.
func (s *Store) Hook() session.Hook {
	return func(event string, snap session.Snapshot) {
		s.Append(event, snap)
	}
}

// Recent returns up to limit journal rows, newest first.
func (s *Store) Recent(limit int) ([]SessionEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []SessionEvent
	err := s.db.Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// BySession returns the full transition history of one session, oldest first.
func (s *Store) BySession(sessionID string) ([]SessionEvent, error) {
	var rows []SessionEvent
	err := s.db.Where("session_id = ?", sessionID).Order("id ASC").Find(&rows).Error
	return rows, err
}
