package rpcprobe

import (
	"net"
	"strconv"
	"strings"
)

// Addr is a parsed listen address: either a TCP host:port or a filesystem
// socket path.
type Addr struct {
	Network string // "tcp" or "unix"
	Value   string // dial target: host:port or socket path
	Host    string
	Port    int
}

func (a Addr) IsTCP() bool { return a.Network == "tcp" }

// ParseListenAddr treats s as host:port when it has a colon after position 0,
// does not look like a path (no leading slash, no escaped backslashes), and
// the text after the last colon is an integer. Anything else is a socket
// path.
func ParseListenAddr(s string) Addr {
	s = strings.TrimSpace(s)
	if isTCPAddr(s) {
		host, portText, _ := splitHostPort(s)
		port, _ := strconv.Atoi(portText)
		return Addr{Network: "tcp", Value: net.JoinHostPort(host, portText), Host: host, Port: port}
	}
	return Addr{Network: "unix", Value: s}
}

func isTCPAddr(s string) bool {
	if strings.HasPrefix(s, "/") || strings.Contains(s, `\\`) {
		return false
	}
	idx := strings.LastIndex(s, ":")
	if idx <= 0 {
		return false
	}
	_, err := strconv.Atoi(s[idx+1:])
	return err == nil
}

func splitHostPort(s string) (string, string, bool) {
	idx := strings.LastIndex(s, ":")
	if idx <= 0 {
		return "", "", false
	}
	return strings.Trim(s[:idx], "[]"), s[idx+1:], true
}
