package player

import (
	"context"
	"errors"
)

// ErrNotRunning means the player server could not be reached.
var ErrNotRunning = errors.New("player is not running")

// State is the player's playback state.
type State int

const (
	StateStop State = iota
	StatePlay
	StatePause
)

func (s State) String() string {
	switch s {
	case StatePlay:
		return "play"
	case StatePause:
		return "pause"
	default:
		return "stop"
	}
}

// Player is the external music player the daemon drives.
type Player interface {
	// Start launches the player server.
	Start(ctx context.Context) error
	// State returns ErrNotRunning when the server is down.
	State(ctx context.Context) (State, error)
	// Play replaces whatever is playing with file.
	Play(ctx context.Context, file string) error
	// Shutdown stops the player server.
	Shutdown(ctx context.Context) error
}

// StopWatcher is implemented by players that can report the end of playback
// themselves. fn is called every time playback stops; Watch blocks until ctx
// is done.
type StopWatcher interface {
	Watch(ctx context.Context, fn func()) error
}

// Connect makes sure p answers, starting the server first if needed.
func Connect(ctx context.Context, p Player) error {
	_, err := p.State(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotRunning) {
		return err
	}
	if err := p.Start(ctx); err != nil {
		return err
	}
	_, err = p.State(ctx)
	return err
}
