package rpcprobe

import (
	"fmt"

	"github.com/neovim/go-client/nvim"
)

// Client wraps an attached msgpack-rpc connection to the editor. Callers
// treat the protocol as opaque: a liveness ping, a buffer listing, and a
// graceful quit are the only operations used.
type Client struct {
	v *nvim.Nvim
}

// Ping issues a trivial evaluate call; the connection counts as live only
// when it returns without error.
func (c *Client) Ping() error {
	var out int
	if err := c.v.Eval("1", &out); err != nil {
		return fmt.Errorf("eval probe: %w", err)
	}
	return nil
}

// Buffers returns the names of the editor's open buffers.
func (c *Client) Buffers() ([]string, error) {
	bufs, err := c.v.Buffers()
	if err != nil {
		return nil, fmt.Errorf("list buffers: %w", err)
	}
	names := make([]string, 0, len(bufs))
	for _, b := range bufs {
		name, err := c.v.BufferName(b)
		if err != nil {
			return nil, fmt.Errorf("buffer name: %w", err)
		}
		names = append(names, name)
	}
	return names, nil
}

// Quit asks the remote editor to exit, discarding unsaved changes.
func (c *Client) Quit() error {
	return c.v.Command("qall!")
}

func (c *Client) Close() error {
	return c.v.Close()
}
