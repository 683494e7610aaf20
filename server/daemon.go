package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"Lyra/core/history"
	"Lyra/core/notify"
	"Lyra/core/player"
	"Lyra/core/playlist"
	"Lyra/logger"
	"Lyra/model"
)

// readTimeout bounds how long a client may take to send its command byte.
const readTimeout = 5 * time.Second

// Daemon owns the playlist and the player and executes commands one at a time.
type Daemon struct {
	mu       sync.Mutex
	playlist *playlist.Playlist
	player   player.Player
	notifier notify.Notifier
	history  history.Recorder
	hub      *Hub

	stopOnce sync.Once
	stopped  chan struct{}
	err      error // set before stopped is closed
}

// DaemonOption configures a Daemon.
type DaemonOption func(*Daemon)

// WithNotifier shows the playing song on the desktop.
func WithNotifier(n notify.Notifier) DaemonOption {
	return func(d *Daemon) { d.notifier = n }
}

// WithHistory records every played song.
func WithHistory(r history.Recorder) DaemonOption {
	return func(d *Daemon) { d.history = r }
}

// WithHub broadcasts now-playing events to websocket clients.
func WithHub(h *Hub) DaemonOption {
	return func(d *Daemon) { d.hub = h }
}

// NewDaemon creates a daemon driving p from pl.
func NewDaemon(pl *playlist.Playlist, p player.Player, opts ...DaemonOption) *Daemon {
	d := &Daemon{
		playlist: pl,
		player:   p,
		notifier: notify.Nop{},
		history:  history.Nop{},
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Playlist returns the playlist the daemon plays from.
func (d *Daemon) Playlist() *playlist.Playlist {
	return d.playlist
}

// Stopped is closed once the daemon received exit or quit, or lost the player.
func (d *Daemon) Stopped() <-chan struct{} {
	return d.stopped
}

// Err returns the player failure that stopped the daemon, if any.
// Only meaningful after Stopped is closed.
func (d *Daemon) Err() error {
	select {
	case <-d.stopped:
		return d.err
	default:
		return nil
	}
}

func (d *Daemon) stop() {
	d.stopOnce.Do(func() { close(d.stopped) })
}

// fail stops the daemon with err, whichever surface the command came from.
func (d *Daemon) fail(err error) {
	d.stopOnce.Do(func() {
		d.err = err
		close(d.stopped)
	})
}

// Run serves ln until exit, quit, ctx cancellation or a player failure.
// Connections are handled strictly one after another.
func (d *Daemon) Run(ctx context.Context, ln net.Listener) error {
	defer ln.Close()

	if err := d.Dispatch(ctx, CmdSoftNext); err != nil {
		return err
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-d.stopped:
		}
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-d.stopped:
				return d.Err()
			case <-ctx.Done():
				logger.Info("daemon interrupted")
				return nil
			default:
			}
			return fmt.Errorf("accept failed: %w", err)
		}

		cmd, err := readCommand(conn)
		conn.Close()
		if err != nil {
			logger.Debug("client sent no command", logger.ErrorField(err))
			continue
		}

		if err := d.Dispatch(ctx, cmd); err != nil {
			return err
		}

		select {
		case <-d.stopped:
			return d.Err()
		default:
		}
	}
}

func readCommand(conn net.Conn) (Command, error) {
	var buf [1]byte
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	if _, err := io.ReadFull(conn, buf[:]); err != nil {
		return 0, err
	}
	return Command(buf[0]), nil
}

// Dispatch executes cmd. Only player failures are returned, and they also
// stop the daemon; anything else is logged and the daemon keeps going.
func (d *Daemon) Dispatch(ctx context.Context, cmd Command) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	logger.Debug("command", logger.String("command", cmd.String()))
	if err := d.dispatch(ctx, cmd); err != nil {
		logger.Error("player connection broken, stopping",
			logger.String("command", cmd.String()),
			logger.ErrorField(err))
		d.fail(err)
		return err
	}
	return nil
}

func (d *Daemon) dispatch(ctx context.Context, cmd Command) error {
	switch cmd {
	case CmdNext:
		return d.next(ctx)
	case CmdExit:
		d.stop()
	case CmdSoftNext:
		state, err := d.player.State(ctx)
		if err != nil {
			return err
		}
		if state == player.StateStop {
			return d.next(ctx)
		}
	case CmdUp, CmdDown:
		song, err := d.playlist.Rank(ctx, cmd == CmdUp)
		if err != nil {
			if errors.Is(err, playlist.ErrNoCurrent) {
				logger.Warn("no current song to rank")
			} else {
				logger.Error("failed to rank song", logger.ErrorField(err))
			}
			return nil
		}
		logger.Info("ranked",
			logger.String("song", song.Info()),
			logger.Int("rank", song.Rank))
	case CmdQuit:
		if err := d.player.Shutdown(ctx); err != nil && !errors.Is(err, player.ErrNotRunning) {
			logger.Error("failed to shut the player down", logger.ErrorField(err))
		}
		d.stop()
	case CmdRefresh:
		if err := d.playlist.Refresh(ctx); err != nil {
			logger.Error("failed to refresh playlist", logger.ErrorField(err))
			return nil
		}
		logger.Info("playlist refreshed", logger.Int("songs", d.playlist.Len()))
	case CmdPing:
	default:
		logger.Warn("unknown command", logger.Int("byte", int(cmd)))
	}
	return nil
}

func (d *Daemon) next(ctx context.Context) error {
	song, err := d.playlist.Choose(ctx)
	if err != nil {
		logger.Error("failed to choose a song", logger.ErrorField(err))
		return nil
	}
	return d.play(ctx, *song)
}

func (d *Daemon) play(ctx context.Context, song model.Song) error {
	info := song.Info()
	if err := d.notifier.Update(ctx, "Playing "+info); err != nil {
		logger.Warn("failed to update notification", logger.ErrorField(err))
	}
	logger.Info("playing",
		logger.String("song", info),
		logger.Int("rank", song.Rank),
		logger.Int("played", song.PlayedTimes))
	if err := d.history.Record(ctx, song); err != nil {
		logger.Warn("failed to record history", logger.ErrorField(err))
	}

	if err := d.player.Play(ctx, song.File); err != nil {
		return fmt.Errorf("failed to play %s: %w", song.File, err)
	}

	if d.hub != nil {
		d.hub.Broadcast(Event{Type: EventNowPlaying, Song: &song})
	}
	return nil
}

// Status is a snapshot of the daemon.
type Status struct {
	State   string      `json:"state"`
	Current *model.Song `json:"current"`
	Songs   int         `json:"songs"`
	Points  int         `json:"points"`
}

// Status queries the player and the playlist.
func (d *Daemon) Status(ctx context.Context) (Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	state, err := d.player.State(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		State:   state.String(),
		Current: d.playlist.Current(),
		Songs:   d.playlist.Len(),
		Points:  d.playlist.Points(),
	}, nil
}
