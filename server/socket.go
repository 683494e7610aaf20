package server

import (
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"
)

const dialTimeout = 2 * time.Second

// Listen listens on the unix socket at path, removing a stale socket file
// left by a daemon that did not shut down cleanly.
func Listen(path string) (net.Listener, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to remove stale socket %s: %w", path, err)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", path, err)
	}
	return ln, nil
}

// Say sends cmd to the daemon listening at path. It returns false without an
// error when no daemon is running.
func Say(path string, cmd Command) (bool, error) {
	conn, err := net.DialTimeout("unix", path, dialTimeout)
	if err != nil {
		if notListening(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to connect to %s: %w", path, err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte{byte(cmd)}); err != nil {
		return true, fmt.Errorf("failed to send %s: %w", cmd, err)
	}
	return true, nil
}

// Running reports whether a daemon answers at path.
func Running(path string) (bool, error) {
	return Say(path, CmdPing)
}

func notListening(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ENOENT)
}
