// Package mplayer controls an mplayer process running in slave mode, where
// it reads line based commands from a named pipe or from its stdin instead
// of the keyboard.
package mplayer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"Lyra/logger"

	"golang.org/x/sys/unix"
)

// Mode selects how commands reach mplayer.
type Mode int

const (
	// ModeFIFO writes commands into a named pipe given to -input file=.
	ModeFIFO Mode = iota
	// ModePipe writes commands to the subprocess stdin.
	ModePipe
)

// DefaultSettle is how long Do waits for mplayer to answer.
const DefaultSettle = 200 * time.Millisecond

var (
	// ErrFIFOMissing means the command pipe does not exist (any more).
	ErrFIFOMissing = errors.New("mplayer fifo is missing")
	// ErrNoReader means nobody has the FIFO open for reading.
	ErrNoReader = errors.New("no mplayer is reading the fifo")
	// ErrNotStarted is returned by pipe mode calls before Start.
	ErrNotStarted = errors.New("mplayer is not started")
)

// Options configures an MPlayer.
type Options struct {
	Path   string        // mplayer binary, default "mplayer"
	Mode   Mode          // ModeFIFO or ModePipe
	FIFO   string        // command pipe, required for ModeFIFO
	Settle time.Duration // wait after each command, default DefaultSettle
	Args   []string      // extra arguments before the files
}

// MPlayer is a slave mode controller. It can also drive an instance started
// by someone else when only the FIFO is known.
type MPlayer struct {
	opts Options

	mu      sync.Mutex
	playing bool
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	out     *syncBuffer
	done    chan struct{}
	waitErr error
}

// New creates a controller. Nothing is started until Start.
func New(opts Options) *MPlayer {
	if opts.Path == "" {
		opts.Path = "mplayer"
	}
	if opts.Settle <= 0 {
		opts.Settle = DefaultSettle
	}
	return &MPlayer{opts: opts, out: &syncBuffer{}}
}

// Start runs mplayer in slave mode on files.
func (m *MPlayer) Start(ctx context.Context, files ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cmd != nil {
		return fmt.Errorf("mplayer already started")
	}

	args := []string{"-slave", "-quiet", "-idle"}
	if m.opts.Mode == ModeFIFO {
		if err := ensureFIFO(m.opts.FIFO); err != nil {
			return err
		}
		args = append(args, "-input", "file="+m.opts.FIFO)
	}
	args = append(args, m.opts.Args...)
	args = append(args, files...)

	cmd := exec.CommandContext(ctx, m.opts.Path, args...)
	cmd.Stdout = m.out
	cmd.Stderr = m.out
	if m.opts.Mode == ModePipe {
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return fmt.Errorf("failed to open mplayer stdin: %w", err)
		}
		m.stdin = stdin
	}

	logger.Info("starting mplayer", logger.String("path", m.opts.Path), logger.String("args", strings.Join(args, " ")))
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start mplayer: %w", err)
	}
	m.cmd = cmd
	m.playing = len(files) > 0
	m.done = make(chan struct{})
	go func() {
		err := cmd.Wait()
		m.mu.Lock()
		m.waitErr = err
		m.playing = false
		m.mu.Unlock()
		close(m.done)
	}()
	return nil
}

// ensureFIFO creates a named pipe at path unless one is already there.
func ensureFIFO(path string) error {
	if path == "" {
		return fmt.Errorf("fifo path must not be empty")
	}
	fi, err := os.Stat(path)
	if err == nil {
		if fi.Mode()&os.ModeNamedPipe == 0 {
			return fmt.Errorf("%s exists and is not a fifo", path)
		}
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat fifo %s: %w", path, err)
	}
	if err := unix.Mkfifo(path, 0600); err != nil {
		return fmt.Errorf("failed to create fifo %s: %w", path, err)
	}
	return nil
}

// Do sends one command and returns what mplayer printed since the last call.
// Any command resumes a paused mplayer, so it counts as playing from the
// moment it is sent, even when the write fails.
func (m *MPlayer) Do(cmd string) (string, error) {
	if !strings.HasSuffix(cmd, "\n") {
		cmd += "\n"
	}

	m.mu.Lock()
	m.playing = true
	m.mu.Unlock()
	if err := m.write(cmd); err != nil {
		return "", err
	}

	time.Sleep(m.opts.Settle)
	return m.Output(), nil
}

func (m *MPlayer) write(cmd string) error {
	if m.opts.Mode == ModePipe {
		m.mu.Lock()
		stdin := m.stdin
		m.mu.Unlock()
		if stdin == nil {
			return ErrNotStarted
		}
		if _, err := io.WriteString(stdin, cmd); err != nil {
			return fmt.Errorf("failed to write to mplayer: %w", err)
		}
		return nil
	}
	return writeFIFO(m.opts.FIFO, cmd)
}

func writeFIFO(path, cmd string) error {
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrFIFOMissing
		}
		return fmt.Errorf("failed to stat fifo %s: %w", path, err)
	}
	if fi.Mode()&os.ModeNamedPipe == 0 {
		return fmt.Errorf("%s is not a fifo", path)
	}

	// O_NONBLOCK makes the open fail instead of hanging without a reader
	f, err := os.OpenFile(path, os.O_WRONLY|syscall.O_NONBLOCK, 0)
	if err != nil {
		if errors.Is(err, syscall.ENXIO) {
			return ErrNoReader
		}
		return fmt.Errorf("failed to open fifo %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(cmd); err != nil {
		return fmt.Errorf("failed to write fifo %s: %w", path, err)
	}
	return nil
}

// Output drains and returns the collected mplayer output.
func (m *MPlayer) Output() string {
	return m.out.Drain()
}

// Playing reports whether mplayer is believed to be playing.
func (m *MPlayer) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

// LoadFile plays file, replacing the current one unless add is set.
func (m *MPlayer) LoadFile(file string, add bool) (string, error) {
	flag := 0
	if add {
		flag = 1
	}
	return m.Do(fmt.Sprintf("loadfile %s %d", quote(file), flag))
}

// Pause toggles pause.
func (m *MPlayer) Pause() (string, error) {
	wasPlaying := m.Playing()
	out, err := m.Do("pause")
	if err != nil {
		return "", err
	}
	if wasPlaying {
		m.mu.Lock()
		m.playing = false
		m.mu.Unlock()
	}
	return out, nil
}

// Seek moves by seconds (relative) or to seconds (absolute).
func (m *MPlayer) Seek(seconds float64, absolute bool) (string, error) {
	typ := 0
	if absolute {
		typ = 2
	}
	return m.Do(fmt.Sprintf("seek %g %d", seconds, typ))
}

// Volume changes the volume by v, or sets it to v when absolute.
func (m *MPlayer) Volume(v int, absolute bool) (string, error) {
	abs := 0
	if absolute {
		abs = 1
	}
	return m.Do(fmt.Sprintf("volume %d %d", v, abs))
}

// Quit asks mplayer to exit and waits for a started process.
func (m *MPlayer) Quit(ctx context.Context) error {
	if _, err := m.Do("quit"); err != nil {
		return err
	}
	m.mu.Lock()
	started := m.cmd != nil
	m.mu.Unlock()
	if !started {
		return nil
	}
	return m.Wait(ctx)
}

// Wait blocks until the started process exits.
func (m *MPlayer) Wait(ctx context.Context) error {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()
	if done == nil {
		return ErrNotStarted
	}
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stdin != nil {
		m.stdin.Close()
	}
	return m.waitErr
}

// quote wraps s for mplayer's command parser.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// syncBuffer is a bytes.Buffer shared by the process and Output.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Drain() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.buf.String()
	b.buf.Reset()
	return s
}
