package rpcprobe

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func TestWaitReady_NothingListeningReturnsFalseWithinTimeout(t *testing.T) {
	// Grab a free port and close it so nothing is listening there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	p := NewProber(nil, Options{Interval: 20 * time.Millisecond, AttemptTimeout: 50 * time.Millisecond})
	timeout := 300 * time.Millisecond
	start := time.Now()
	if p.WaitReady(context.Background(), addr, timeout) {
		t.Fatal("WaitReady should be false with nothing listening")
	}
	if elapsed := time.Since(start); elapsed > timeout+150*time.Millisecond {
		t.Fatalf("WaitReady overran its deadline: %v", elapsed)
	}
}

func TestWaitReady_ContextCancelAbortsPolling(t *testing.T) {
	p := NewProber(nil, Options{Interval: 20 * time.Millisecond})
	p.attachFn = func(ctx context.Context, addr string) (*Client, error) {
		return nil, errors.New("still starting")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool, 1)
	go func() { done <- p.WaitReady(ctx, "127.0.0.1:2006", time.Minute) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("cancelled WaitReady must report not ready")
		}
	case <-time.After(time.Second):
		t.Fatal("WaitReady did not stop after context cancellation")
	}
}

func TestAttachWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	p := NewProber(nil, Options{Interval: 10 * time.Millisecond})
	attempts := 0
	want := &Client{}
	p.attachFn = func(ctx context.Context, addr string) (*Client, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("connection refused")
		}
		return want, nil
	}

	got, err := p.AttachWithRetry(context.Background(), "127.0.0.1:2006", time.Second)
	if err != nil {
		t.Fatalf("AttachWithRetry: %v", err)
	}
	if got != want {
		t.Fatal("AttachWithRetry returned a different client")
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestAttachWithRetry_TimeoutReportsAttachTimeout(t *testing.T) {
	p := NewProber(nil, Options{Interval: 10 * time.Millisecond})
	p.attachFn = func(ctx context.Context, addr string) (*Client, error) {
		return nil, errors.New("connection refused")
	}
	_, err := p.AttachWithRetry(context.Background(), "127.0.0.1:2006", 80*time.Millisecond)
	if !errors.Is(err, ErrAttachTimeout) {
		t.Fatalf("expected ErrAttachTimeout, got %v", err)
	}
}

func TestAttach_SilentListenerFailsAndClosesConn(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			// Accept and say nothing; the ping must time out.
			_ = conn
		}
	}()

	p := NewProber(nil, Options{AttemptTimeout: 100 * time.Millisecond})
	if _, err := p.Attach(context.Background(), ln.Addr().String()); err == nil {
		t.Fatal("Attach against a silent listener should fail")
	}
}

func TestPortReachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ParseListenAddr(ln.Addr().String())
	if !PortReachable(addr, 200*time.Millisecond) {
		t.Fatal("expected live listener to be reachable")
	}
	_ = ln.Close()
	if PortReachable(addr, 200*time.Millisecond) {
		t.Fatal("closed listener should not be reachable")
	}
	if PortReachable(ParseListenAddr("/tmp/nvim.sock"), 100*time.Millisecond) {
		t.Fatal("socket paths are never TCP-reachable")
	}
}
