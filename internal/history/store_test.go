package history

import (
	"path/filepath"
	"testing"
	"time"

	"nvimbridge/internal/session"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = Close(db) })
	return NewStore(db, nil)
}

func TestStore_AppendAndRecent(t *testing.T) {
	s := openStore(t)
	base := time.UnixMilli(1_700_000_000_000)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	snap := session.Snapshot{
		ID:         "gen-1",
		StartedVia: session.ViaHeadless,
		ListenAddr: "127.0.0.1:2006",
		PID:        42,
	}
	s.Append("launched", snap)
	s.Append("attached", snap)
	s.Append("ended", session.Snapshot{ID: "gen-1"})

	rows, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].Event != "ended" || rows[2].Event != "launched" {
		t.Fatalf("expected newest first, got %q .. %q", rows[0].Event, rows[2].Event)
	}
	if rows[2].StartedVia != "headless" || rows[2].PID != 42 || rows[2].ListenAddr != "127.0.0.1:2006" {
		t.Fatalf("launched row: %+v", rows[2])
	}
	if rows[0].CreatedAt <= rows[2].CreatedAt {
		t.Fatalf("timestamps not increasing: %d .. %d", rows[2].CreatedAt, rows[0].CreatedAt)
	}
}

func TestStore_RecentHonorsLimit(t *testing.T) {
	s := openStore(t)
	for i := 0; i < 5; i++ {
		s.Append("launched", session.Snapshot{ID: "gen"})
	}
	rows, err := s.Recent(2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
}

func TestStore_BySessionFiltersAndOrders(t *testing.T) {
	s := openStore(t)
	s.Append("launched", session.Snapshot{ID: "a"})
	s.Append("launched", session.Snapshot{ID: "b"})
	s.Append("ended", session.Snapshot{ID: "a"})

	rows, err := s.BySession("a")
	if err != nil {
		t.Fatalf("BySession failed: %v", err)
	}
	if len(rows) != 2 || rows[0].Event != "launched" || rows[1].Event != "ended" {
		t.Fatalf("rows: %+v", rows)
	}
}

func TestStore_HookFeedsJournal(t *testing.T) {
	s := openStore(t)
	sess := session.New(nil, nil)
	sess.AddHook(s.Hook())

	if _, err := sess.RecordTmux("127.0.0.1:2006", "notes"); err != nil {
		t.Fatal(err)
	}
	sess.Disconnect()

	rows, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected launched+disconnected, got %+v", rows)
	}
	if rows[1].Event != "launched" || rows[1].MuxSession != "notes" {
		t.Fatalf("launched row: %+v", rows[1])
	}
	if rows[0].Event != "disconnected" || rows[0].MuxSession != "notes" {
		t.Fatalf("disconnected row: %+v", rows[0])
	}
	if rows[0].SessionID == "" || rows[0].SessionID != rows[1].SessionID {
		t.Fatalf("journal rows must share the session id: %+v", rows)
	}
}
