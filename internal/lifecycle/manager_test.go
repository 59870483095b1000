package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestManager_SignalessCancelRunsShutdownInReverse(t *testing.T) {
	mgr := NewManager(nil)
	var mu sync.Mutex
	steps := []string{}
	appendStep := func(v string) {
		mu.Lock()
		steps = append(steps, v)
		mu.Unlock()
	}

	mgr.AddRun("server", func(ctx context.Context) error {
		<-ctx.Done()
		appendStep("server-stopped")
		return nil
	})
	mgr.AddShutdown("journal", func(context.Context) error {
		appendStep("journal-closed")
		return nil
	})
	mgr.AddShutdown("session", func(context.Context) error {
		appendStep("session-closed")
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	if err := mgr.StartAndWait(ctx); err != nil {
		t.Fatalf("StartAndWait: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"server-stopped", "session-closed", "journal-closed"}
	if len(steps) != len(want) {
		t.Fatalf("steps: %#v", steps)
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Fatalf("steps: %#v, want %#v", steps, want)
		}
	}
}

func TestManager_RunFailureCancelsSiblingsAndSurfacesError(t *testing.T) {
	mgr := NewManager(nil)
	boom := errors.New("listener broke")

	siblingStopped := make(chan struct{})
	mgr.AddRun("broken", func(context.Context) error { return boom })
	mgr.AddRun("sibling", func(ctx context.Context) error {
		<-ctx.Done()
		close(siblingStopped)
		return nil
	})

	err := mgr.StartAndWait(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected run error, got %v", err)
	}
	select {
	case <-siblingStopped:
	case <-time.After(2 * time.Second):
		t.Fatal("sibling was not cancelled")
	}
}

func TestManager_ShutdownErrorsJoined(t *testing.T) {
	mgr := NewManager(nil)
	closeErr := errors.New("close failed")
	mgr.AddShutdown("bad", func(context.Context) error { return closeErr })

	err := mgr.StartAndWait(context.Background())
	if !errors.Is(err, closeErr) {
		t.Fatalf("expected shutdown error, got %v", err)
	}
}

func TestManager_AllRunsFinishedMeansClean(t *testing.T) {
	mgr := NewManager(nil)
	mgr.AddRun("oneshot", func(context.Context) error { return nil })
	if err := mgr.StartAndWait(context.Background()); err != nil {
		t.Fatalf("StartAndWait: %v", err)
	}
}
