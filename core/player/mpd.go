package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"Lyra/logger"

	"github.com/fhs/gompd/v2/mpd"
)

// MPD drives a Music Player Daemon. Every operation dials a fresh connection,
// MPD drops idle clients anyway.
type MPD struct {
	network  string
	addr     string
	password string
	musicDir string
	binary   string
}

// NewMPD creates an MPD player. musicDir is MPD's music_directory; files are
// sent to MPD relative to it.
func NewMPD(network, addr, password, musicDir string) *MPD {
	return &MPD{
		network:  network,
		addr:     addr,
		password: password,
		musicDir: musicDir,
		binary:   "mpd",
	}
}

func (m *MPD) dial() (*mpd.Client, error) {
	var (
		c   *mpd.Client
		err error
	)
	if m.password != "" {
		c, err = mpd.DialAuthenticated(m.network, m.addr, m.password)
	} else {
		c, err = mpd.Dial(m.network, m.addr)
	}
	if err != nil {
		if isUnreachable(err) {
			return nil, ErrNotRunning
		}
		return nil, fmt.Errorf("failed to connect to mpd at %s: %w", m.addr, err)
	}
	return c, nil
}

// isUnreachable reports the dial errors that mean nothing is listening.
func isUnreachable(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ENOENT)
}

func (m *MPD) do(fn func(c *mpd.Client) error) error {
	c, err := m.dial()
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}

// Start launches the mpd binary, which daemonizes itself.
func (m *MPD) Start(ctx context.Context) error {
	out, err := exec.CommandContext(ctx, m.binary).CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to start mpd: %w\nmpd output: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// State maps MPD's status "state" attribute.
func (m *MPD) State(ctx context.Context) (State, error) {
	var state State
	err := m.do(func(c *mpd.Client) error {
		status, err := c.Status()
		if err != nil {
			return fmt.Errorf("mpd status failed: %w", err)
		}
		state = parseMPDState(status["state"])
		return nil
	})
	return state, err
}

func parseMPDState(s string) State {
	switch s {
	case "play":
		return StatePlay
	case "pause":
		return StatePause
	default:
		return StateStop
	}
}

// uri converts an absolute file name to a path inside the music directory.
func (m *MPD) uri(file string) string {
	if m.musicDir == "" {
		return file
	}
	rel, err := filepath.Rel(m.musicDir, file)
	if err != nil || strings.HasPrefix(rel, "..") {
		return file
	}
	return filepath.ToSlash(rel)
}

// Play clears the MPD queue and plays file alone.
func (m *MPD) Play(ctx context.Context, file string) error {
	uri := m.uri(file)
	return m.do(func(c *mpd.Client) error {
		if err := c.Clear(); err != nil {
			return fmt.Errorf("mpd clear failed: %w", err)
		}
		if err := c.Add(uri); err != nil {
			return fmt.Errorf("mpd add %s failed: %w", uri, err)
		}
		if err := c.Play(0); err != nil {
			return fmt.Errorf("mpd play failed: %w", err)
		}
		return nil
	})
}

// Shutdown asks MPD to exit.
func (m *MPD) Shutdown(ctx context.Context) error {
	return m.do(func(c *mpd.Client) error {
		// mpd closes the connection without answering
		if err := c.Command("kill").OK(); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("mpd kill failed: %w", err)
		}
		return nil
	})
}

// Watch follows the player subsystem and calls fn when playback stops.
func (m *MPD) Watch(ctx context.Context, fn func()) error {
	w, err := mpd.NewWatcher(m.network, m.addr, m.password, "player")
	if err != nil {
		return fmt.Errorf("failed to watch mpd: %w", err)
	}
	defer w.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-w.Error:
			logger.Warn("mpd watcher error", logger.ErrorField(err))
		case <-w.Event:
			state, err := m.State(ctx)
			if err != nil {
				logger.Warn("mpd state after player event failed", logger.ErrorField(err))
				continue
			}
			if state == StateStop {
				fn()
			}
		}
	}
}
