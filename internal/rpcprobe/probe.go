package rpcprobe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/neovim/go-client/nvim"
)

// ErrAttachTimeout reports that no attach attempt succeeded before the
// overall deadline.
var ErrAttachTimeout = errors.New("editor did not become reachable")

type Options struct {
	// Interval between attach attempts in the polling wrapper.
	Interval time.Duration
	// AttemptTimeout bounds a single dial-plus-ping attempt.
	AttemptTimeout time.Duration
}

// Prober opens RPC connections to the editor's listen address and validates
// them with a liveness ping.
type Prober struct {
	logger   *slog.Logger
	interval time.Duration
	attempt  time.Duration

	// attachFn is the single-attempt implementation, injectable for tests.
	attachFn func(ctx context.Context, addr string) (*Client, error)
}

func NewProber(logger *slog.Logger, opts Options) *Prober {
	p := &Prober{
		logger:   logger,
		interval: opts.Interval,
		attempt:  opts.AttemptTimeout,
	}
	if p.interval <= 0 {
		p.interval = 200 * time.Millisecond
	}
	if p.attempt <= 0 {
		p.attempt = time.Second
	}
	p.attachFn = p.attach
	return p
}

// Attach performs one dial-plus-ping attempt against addr. Any failure
// discards the partially constructed connection before returning.
func (p *Prober) Attach(ctx context.Context, addr string) (*Client, error) {
	return p.attachFn(ctx, addr)
}

func (p *Prober) attach(ctx context.Context, addr string) (*Client, error) {
	a := ParseListenAddr(addr)

	attemptCtx, cancel := context.WithTimeout(ctx, p.attempt)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(attemptCtx, a.Network, a.Value)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	logf := func(format string, args ...interface{}) {
		if p.logger != nil {
			p.logger.Debug(fmt.Sprintf(format, args...))
		}
	}
	v, err := nvim.New(conn, conn, conn, logf)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rpc channel: %w", err)
	}
	go func() { _ = v.Serve() }()

	client := &Client{v: v}

	// Bound the ping with the attempt deadline; Eval itself has no context.
	_ = conn.SetDeadline(time.Now().Add(p.attempt))
	if err := client.Ping(); err != nil {
		_ = v.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})
	return client, nil
}

// AttachWithRetry polls Attach at the configured interval until one attempt
// succeeds or timeout elapses. Individual failures are swallowed; only the
// final timeout is reported.
func (p *Prober) AttachWithRetry(ctx context.Context, addr string, timeout time.Duration) (*Client, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var client *Client
	op := func() error {
		c, err := p.attachFn(waitCtx, addr)
		if err != nil {
			return err
		}
		client = c
		return nil
	}
	b := backoff.WithContext(backoff.NewConstantBackOff(p.interval), waitCtx)
	if err := backoff.Retry(op, b); err != nil {
		if p.logger != nil {
			p.logger.Warn("attach retries exhausted", "addr", addr, "timeout", timeout, "err", err)
		}
		return nil, fmt.Errorf("%w: %s", ErrAttachTimeout, addr)
	}
	return client, nil
}

// WaitReady reports whether the editor at addr became reachable within
// timeout. It never returns an error and never hangs past the deadline.
func (p *Prober) WaitReady(ctx context.Context, addr string, timeout time.Duration) bool {
	c, err := p.AttachWithRetry(ctx, addr, timeout)
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// PortReachable reports whether something accepts TCP connections at addr.
// Used as direct evidence of a live server when no local handles exist.
func PortReachable(addr Addr, timeout time.Duration) bool {
	if !addr.IsTCP() {
		return false
	}
	conn, err := net.DialTimeout("tcp", addr.Value, timeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
